package cvs

import (
	"log"
	"path/filepath"
	"regexp"
	"strings"
)

// Enrich left-joins video_name onto a table with a videoId column.
// Row count and order are unchanged; unmapped ids get a null video_name.
func Enrich(t *Table, m *Mapping) *Table {
	idx := t.ColumnIndex(ColumnVideoID)
	return t.WithColumn(ColumnSpec{Label: ColumnVideoName, Type: "string"}, func(row []Cell) Cell {
		if idx < 0 {
			return Null
		}
		return m.Lookup(row[idx].Value)
	})
}

// Rater name columns, with or without a join suffix.
var raterNameColumn = regexp.MustCompile(`^rater[0-9]+(_frame|_video)?$`)

// StripIdentifying removes the videoId and rater name columns.
func StripIdentifying(t *Table) *Table {
	return t.DropFunc(func(label string) bool {
		return label == ColumnVideoID || raterNameColumn.MatchString(label)
	})
}

// FolderName is the per-video output folder for a video file name.
func FolderName(videoName string) string {
	base := filepath.Base(strings.ReplaceAll(videoName, "\\", "/"))
	if strings.HasSuffix(strings.ToLower(base), ".mp4") {
		base = base[:len(base)-len(".mp4")]
	}
	return base
}

// VideoOutput holds the frame and video rows of one named video.
type VideoOutput struct {
	Name   string
	Folder string
	Frames *Table
	Video  *Table
}

// FanOut splits enriched frame and video tables by video_name, skipping rows
// without a name. Identifying columns are removed from each subset.
// A video that only appears on one side gets an empty table for the other.
func FanOut(frames *Table, videos *Table) []VideoOutput {
	strippedFrames := StripIdentifying(frames)
	strippedVideos := StripIdentifying(videos)

	var outputs []VideoOutput
	byName := make(map[string]int)
	folders := make(map[string]string)
	get := func(name string) *VideoOutput {
		i, ok := byName[name]
		if !ok {
			folder := FolderName(name)
			if other, ok := folders[folder]; ok {
				log.Printf("[fanout] warning: %s and %s share output folder %s; the later one overwrites it", other, name, folder)
			} else {
				folders[folder] = name
			}
			i = len(outputs)
			byName[name] = i
			outputs = append(outputs, VideoOutput{
				Name:   name,
				Folder: folder,
				Frames: &Table{Columns: strippedFrames.Columns},
				Video:  &Table{Columns: strippedVideos.Columns},
			})
		}
		return &outputs[i]
	}
	for _, g := range strippedFrames.GroupBy(ColumnVideoName) {
		get(g.Key).Frames = g.Table
	}
	for _, g := range strippedVideos.GroupBy(ColumnVideoName) {
		get(g.Key).Video = g.Table
	}
	return outputs
}
