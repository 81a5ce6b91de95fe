package cvs

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeFrame(videoID string, i int) FrameRow {
	row := FrameRow{VideoID: videoID, NodeID: fmt.Sprintf("%s-f%d", videoID, i)}
	for slot := 0; slot < NumRaters; slot++ {
		row.Raters[slot] = Str(fmt.Sprintf("rater-%d", slot))
		for cat := 0; cat < NumCategories; cat++ {
			row.Scores[cat][slot] = Str("1")
		}
	}
	return row
}

func completeVideo(videoID string) VideoRow {
	row := VideoRow{
		VideoID:          videoID,
		VideoNodeID:      Str(videoID + "-v"),
		DifficultyNodeID: Str(videoID + "-d"),
	}
	for slot := 0; slot < NumRaters; slot++ {
		row.Raters[slot] = Str(fmt.Sprintf("rater-%d", slot))
		row.Difficulty[slot] = Str("2")
		for cat := 0; cat < NumCategories; cat++ {
			row.Scores[cat][slot] = Str("0")
		}
	}
	return row
}

func framesFor(videoID string, n int) []FrameRow {
	var rows []FrameRow
	for i := 0; i < n; i++ {
		rows = append(rows, completeFrame(videoID, i))
	}
	return rows
}

func TestValidateComplete(t *testing.T) {
	tables := Tables{
		Frames: framesFor("v1", FramesPerVideo),
		Videos: []VideoRow{completeVideo("v1")},
	}
	v := Validate(tables)
	assert.Len(t, v.Combined, FramesPerVideo)
	assert.Empty(t, v.Wrong)
	assert.Len(t, v.Frames, FramesPerVideo)
	assert.Len(t, v.Videos, 1)
	require.Len(t, v.Groups, 1)
	assert.True(t, v.Groups[0].Complete())
	assert.Equal(t, 1, v.CompleteCount())
	for _, row := range v.Combined {
		assert.False(t, row.HasNull())
	}
}

func TestValidateTooFewRows(t *testing.T) {
	tables := Tables{
		Frames: framesFor("v1", FramesPerVideo-1),
		Videos: []VideoRow{completeVideo("v1")},
	}
	v := Validate(tables)
	assert.Empty(t, v.Combined)
	assert.Len(t, v.Wrong, FramesPerVideo-1)
	assert.Empty(t, v.Frames)
	assert.Empty(t, v.Videos)
	g, ok := v.Group("v1")
	require.True(t, ok)
	assert.Equal(t, ReasonMissingRows, g.Reason)
	assert.Equal(t, 0, g.Retained)
}

func TestValidateNullValue(t *testing.T) {
	frames := framesFor("v1", FramesPerVideo)
	frames[5].Scores[1][2] = Null
	tables := Tables{Frames: frames, Videos: []VideoRow{completeVideo("v1")}}

	v := Validate(tables)
	assert.Empty(t, v.Combined)
	assert.Len(t, v.Wrong, FramesPerVideo)
	for _, row := range v.Wrong {
		assert.Equal(t, ReasonMissingValues, row.Reason)
	}
}

func TestValidateMissingVideoRow(t *testing.T) {
	tables := Tables{Frames: framesFor("v1", FramesPerVideo)}
	v := Validate(tables)
	assert.Empty(t, v.Combined)
	assert.Len(t, v.Wrong, FramesPerVideo)
	assert.False(t, v.Wrong[0].HasVideo)
}

func TestValidateVideoWithoutFrames(t *testing.T) {
	tables := Tables{Videos: []VideoRow{completeVideo("v1")}}
	v := Validate(tables)
	require.Len(t, v.Wrong, 1)
	assert.False(t, v.Wrong[0].HasFrame)
	assert.True(t, v.Wrong[0].HasVideo)
	assert.Equal(t, ReasonMissingRows, v.Wrong[0].Reason)
}

func TestValidateExcessRows(t *testing.T) {
	frames := framesFor("v1", FramesPerVideo+3)
	tables := Tables{Frames: frames, Videos: []VideoRow{completeVideo("v1")}}

	v := Validate(tables)
	require.Len(t, v.Combined, FramesPerVideo)
	require.Len(t, v.Wrong, 3)
	for i, row := range v.Wrong {
		assert.Equal(t, ReasonExcessRows, row.Reason)
		assert.Equal(t, frames[FramesPerVideo+i].NodeID, row.Frame.NodeID)
	}
	assert.Equal(t, frames[:FramesPerVideo], v.Frames)
	assert.Len(t, v.Videos, 1)
	g, _ := v.Group("v1")
	assert.True(t, g.Complete())
	assert.Equal(t, FramesPerVideo+3, g.Rows)
}

func TestJoinOrder(t *testing.T) {
	frames := []FrameRow{completeFrame("b", 0), completeFrame("a", 0), completeFrame("b", 1)}
	videos := []VideoRow{completeVideo("c"), completeVideo("a")}
	rows := Join(frames, videos)
	var got []string
	for _, row := range rows {
		got = append(got, row.VideoID+":"+row.Frame.NodeID)
	}
	assert.Equal(t, []string{"b:b-f0", "b:b-f1", "a:a-f0", "c:"}, got)
}

// Every videoId ends up in exactly one of the combined table and the wrong
// set (apart from excess rows), and the two together give back the join.
func TestValidatePartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 50; iter++ {
		var tables Tables
		for vi := 0; vi < 6; vi++ {
			videoID := fmt.Sprintf("v%d", vi)
			n := FramesPerVideo - 2 + rng.Intn(5)
			frames := framesFor(videoID, n)
			if rng.Intn(4) == 0 {
				frames[rng.Intn(n)].Raters[rng.Intn(NumRaters)] = Null
			}
			tables.Frames = append(tables.Frames, frames...)
			if rng.Intn(6) != 0 {
				tables.Videos = append(tables.Videos, completeVideo(videoID))
			}
		}
		rng.Shuffle(len(tables.Frames), func(i, j int) {
			tables.Frames[i], tables.Frames[j] = tables.Frames[j], tables.Frames[i]
		})

		joined := Join(tables.Frames, tables.Videos)
		v := Validate(tables)

		combinedIDs := make(map[string]int)
		for _, row := range v.Combined {
			combinedIDs[row.VideoID]++
			assert.False(t, row.HasNull())
		}
		for id, n := range combinedIDs {
			assert.Equal(t, FramesPerVideo, n, "video %s", id)
		}
		for _, row := range v.Wrong {
			if row.Reason != ReasonExcessRows {
				_, inCombined := combinedIDs[row.VideoID]
				assert.False(t, inCombined, "video %s in both sets", row.VideoID)
			}
		}

		key := func(row CombinedRow) string {
			return row.VideoID + "/" + row.Frame.NodeID + "/" + row.Video.VideoNodeID.String()
		}
		union := make(map[string]int)
		for _, row := range v.Combined {
			union[key(row)]++
		}
		for _, row := range v.Wrong {
			union[key(row.CombinedRow)]++
		}
		expected := make(map[string]int)
		for _, row := range joined {
			expected[key(row)]++
		}
		assert.Equal(t, expected, union)
		assert.Equal(t, len(joined), len(v.Combined)+len(v.Wrong))
	}
}
