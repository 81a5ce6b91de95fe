package cvs

import (
	"fmt"
)

// DedupMode decides how several video rows of one videoId collapse into one.
type DedupMode int

const (
	// Keep the first row in insertion order and drop the rest wholesale.
	DedupFirstRow DedupMode = iota
	// Per field, keep the first non-null value across the group.
	DedupMergeFields
)

func (m DedupMode) String() string {
	switch m {
	case DedupFirstRow:
		return "first-row"
	case DedupMergeFields:
		return "merge-fields"
	}
	return fmt.Sprintf("DedupMode(%d)", int(m))
}

func ParseDedupMode(s string) (DedupMode, error) {
	switch s {
	case "", "first-row":
		return DedupFirstRow, nil
	case "merge-fields":
		return DedupMergeFields, nil
	}
	return 0, fmt.Errorf("unknown dedup mode %q (want first-row or merge-fields)", s)
}

// Tables are the frame-level and video-level tables.
type Tables struct {
	Frames []FrameRow
	// Exactly one row per videoId.
	Videos []VideoRow
}

// Assemble deduplicates the video rows by videoId. Frame rows are kept as is.
func Assemble(p Parsed, mode DedupMode) Tables {
	var order []string
	groups := make(map[string][]VideoRow)
	for _, row := range p.Videos {
		if _, ok := groups[row.VideoID]; !ok {
			order = append(order, row.VideoID)
		}
		groups[row.VideoID] = append(groups[row.VideoID], row)
	}

	t := Tables{Frames: append([]FrameRow(nil), p.Frames...)}
	for _, videoID := range order {
		group := groups[videoID]
		if mode == DedupMergeFields {
			t.Videos = append(t.Videos, mergeVideoRows(group))
		} else {
			t.Videos = append(t.Videos, group[0])
		}
	}
	return t
}

func mergeVideoRows(rows []VideoRow) VideoRow {
	out := rows[0]
	for _, row := range rows[1:] {
		out.VideoNodeID = out.VideoNodeID.Or(row.VideoNodeID)
		out.DifficultyNodeID = out.DifficultyNodeID.Or(row.DifficultyNodeID)
		for i := 0; i < NumRaters; i++ {
			out.Raters[i] = out.Raters[i].Or(row.Raters[i])
			out.Difficulty[i] = out.Difficulty[i].Or(row.Difficulty[i])
			for cat := 0; cat < NumCategories; cat++ {
				out.Scores[cat][i] = out.Scores[cat][i].Or(row.Scores[cat][i])
			}
		}
	}
	return out
}
