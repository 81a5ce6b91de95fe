package cvs

import (
	"log"
)

// Every complete video carries exactly this many frame annotations.
const FramesPerVideo = 18

// CombinedRow is one row of the outer join of frames and videos on videoId.
// A side that had no row for the videoId contributes null cells.
type CombinedRow struct {
	VideoID  string
	Frame    FrameRow
	HasFrame bool
	Video    VideoRow
	HasVideo bool
}

func (r CombinedRow) cells() []Cell {
	cells := []Cell{Str(r.VideoID)}
	if r.HasFrame {
		cells = append(cells, Str(r.Frame.NodeID))
		cells = append(cells, r.Frame.Raters[:]...)
		cells = append(cells, r.Frame.Scores.cells()...)
	} else {
		cells = appendNulls(cells, 1+NumRaters+NumCategories*NumRaters)
	}
	if r.HasVideo {
		cells = append(cells, r.Video.cells()[1:]...)
	} else {
		cells = appendNulls(cells, 2+NumRaters+NumCategories*NumRaters+NumRaters)
	}
	return cells
}

func (r CombinedRow) HasNull() bool {
	return anyNull(r.cells())
}

func appendNulls(cells []Cell, n int) []Cell {
	for i := 0; i < n; i++ {
		cells = append(cells, Null)
	}
	return cells
}

// Reason explains why a row landed in the wrong set.
type Reason string

const (
	ReasonMissingRows   Reason = "missing_rows"
	ReasonMissingValues Reason = "missing_values"
	ReasonExcessRows    Reason = "excess_rows"
)

type WrongRow struct {
	CombinedRow
	Reason Reason
}

// GroupStatus summarizes the validation of one videoId.
type GroupStatus struct {
	VideoID string
	// Rows in the join before partitioning.
	Rows int
	// Rows kept in the combined table.
	Retained int
	// Empty if the video is complete.
	Reason Reason
}

func (g GroupStatus) Complete() bool {
	return g.Retained == FramesPerVideo
}

type Validation struct {
	Combined []CombinedRow
	Wrong    []WrongRow
	// Frame and video tables with invalid videoIds removed.
	Frames []FrameRow
	Videos []VideoRow
	Groups []GroupStatus
}

// Join outer-joins the frame and video tables on videoId.
// Groups are ordered by first appearance in frames, then in videos; within a
// group rows keep their table order.
func Join(frames []FrameRow, videos []VideoRow) []CombinedRow {
	var order []string
	seen := make(map[string]bool)
	frameGroups := make(map[string][]FrameRow)
	videoGroups := make(map[string][]VideoRow)
	for _, f := range frames {
		if !seen[f.VideoID] {
			seen[f.VideoID] = true
			order = append(order, f.VideoID)
		}
		frameGroups[f.VideoID] = append(frameGroups[f.VideoID], f)
	}
	for _, v := range videos {
		if !seen[v.VideoID] {
			seen[v.VideoID] = true
			order = append(order, v.VideoID)
		}
		videoGroups[v.VideoID] = append(videoGroups[v.VideoID], v)
	}

	var rows []CombinedRow
	for _, videoID := range order {
		fs, vs := frameGroups[videoID], videoGroups[videoID]
		switch {
		case len(fs) == 0:
			for _, v := range vs {
				rows = append(rows, CombinedRow{VideoID: videoID, Video: v, HasVideo: true})
			}
		case len(vs) == 0:
			for _, f := range fs {
				rows = append(rows, CombinedRow{VideoID: videoID, Frame: f, HasFrame: true})
			}
		default:
			for _, f := range fs {
				for _, v := range vs {
					rows = append(rows, CombinedRow{
						VideoID:  videoID,
						Frame:    f,
						HasFrame: true,
						Video:    v,
						HasVideo: true,
					})
				}
			}
		}
	}
	return rows
}

// Validate joins the tables and partitions every videoId into complete
// (exactly FramesPerVideo rows, no nulls) or wrong.
// Groups with too few rows or any null move to the wrong set entirely; groups
// with too many rows keep their first FramesPerVideo rows and the rest go to
// the wrong set.
func Validate(t Tables) Validation {
	joined := Join(t.Frames, t.Videos)

	var order []string
	groups := make(map[string][]CombinedRow)
	for _, row := range joined {
		if _, ok := groups[row.VideoID]; !ok {
			order = append(order, row.VideoID)
		}
		groups[row.VideoID] = append(groups[row.VideoID], row)
	}

	var v Validation
	dropped := make(map[string]bool)
	for _, videoID := range order {
		rows := groups[videoID]
		status := GroupStatus{VideoID: videoID, Rows: len(rows)}

		hasNull := false
		for _, row := range rows {
			if row.HasNull() {
				hasNull = true
				break
			}
		}

		switch {
		case len(rows) < FramesPerVideo || hasNull:
			status.Reason = ReasonMissingRows
			if len(rows) >= FramesPerVideo {
				status.Reason = ReasonMissingValues
			}
			for _, row := range rows {
				v.Wrong = append(v.Wrong, WrongRow{row, status.Reason})
			}
			dropped[videoID] = true
		case len(rows) > FramesPerVideo:
			status.Reason = ReasonExcessRows
			status.Retained = FramesPerVideo
			v.Combined = append(v.Combined, rows[:FramesPerVideo]...)
			for _, row := range rows[FramesPerVideo:] {
				v.Wrong = append(v.Wrong, WrongRow{row, ReasonExcessRows})
			}
		default:
			status.Retained = len(rows)
			v.Combined = append(v.Combined, rows...)
		}
		v.Groups = append(v.Groups, status)
	}

	frameCounts := make(map[string]int)
	for _, f := range t.Frames {
		if dropped[f.VideoID] || frameCounts[f.VideoID] >= FramesPerVideo {
			continue
		}
		frameCounts[f.VideoID]++
		v.Frames = append(v.Frames, f)
	}
	for _, row := range t.Videos {
		if dropped[row.VideoID] {
			continue
		}
		v.Videos = append(v.Videos, row)
	}

	log.Printf(
		"[validate] %d videos: %d complete, %d wrong rows, %d combined rows",
		len(v.Groups), v.CompleteCount(), len(v.Wrong), len(v.Combined),
	)
	return v
}

// CompleteCount returns the number of videoIds kept in the combined table.
func (v Validation) CompleteCount() int {
	n := 0
	for _, g := range v.Groups {
		if g.Complete() {
			n++
		}
	}
	return n
}

func (v Validation) Group(videoID string) (GroupStatus, bool) {
	for _, g := range v.Groups {
		if g.VideoID == videoID {
			return g, true
		}
	}
	return GroupStatus{}, false
}
