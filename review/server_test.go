package review

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyhookml/cvsprep/cvs"
)

func answers(value string) string {
	return `[{"userName": "ann", "value": "` + value + `"}, {"userName": "bob", "value": "` + value + `"}, {"userName": "cat", "value": "` + value + `"}]`
}

func annotation(label string, nodeID string, value string) string {
	a := answers(value)
	features := fmt.Sprintf(`[{"name": "2 Structures", "answers": %s}, {"name": "Hepatocystic Triangle", "answers": %s}, {"name": "Cystic Plate", "answers": %s}]`, a, a, a)
	return fmt.Sprintf(`{"label": {"name": %q}, "nodeId": %q, "formFeatures": %s}`, label, nodeID, features)
}

func testReport(t *testing.T, frames int) *cvs.Report {
	var good []string
	for i := 0; i < frames; i++ {
		good = append(good, annotation(cvs.LabelFrame, fmt.Sprintf("f%d", i), "1"))
	}
	good = append(good,
		annotation(cvs.LabelVideo, "v", "1"),
		fmt.Sprintf(`{"label": {"name": %q}, "nodeId": "v", "formFeatures": [{"name": "Difficulty", "answers": %s}]}`, cvs.LabelDifficulty, answers("3")),
	)
	doc := fmt.Sprintf(
		`[{"videoId": "good", "annotations": [%s]}, {"videoId": "bad", "annotations": [%s]}]`,
		strings.Join(good, ","),
		annotation(cvs.LabelFrame, "g0", "0"),
	)
	mapping := cvs.NewMapping(map[string]string{"good": "good_case.mp4", "bad": "bad_case.mp4"})
	report, err := cvs.BuildReport([]byte(doc), mapping, cvs.DedupFirstRow, cvs.ParseOptions{})
	require.NoError(t, err)
	return report
}

func get(t *testing.T, s *Server, method string, path string, x interface{}) int {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code == 200 && x != nil {
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), x))
	}
	return rec.Code
}

type tableResponse struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
}

func TestServer(t *testing.T) {
	s, err := NewServer(func() (*cvs.Report, error) {
		return testReport(t, cvs.FramesPerVideo), nil
	})
	require.NoError(t, err)

	var summary Summary
	require.Equal(t, 200, get(t, s, "GET", "/summary", &summary))
	assert.Equal(t, 2, summary.Videos)
	assert.Equal(t, 1, summary.CompleteVideos)
	assert.Equal(t, cvs.FramesPerVideo, summary.CombinedRows)
	assert.Equal(t, 2, summary.NamedVideos)

	var videos []VideoStatus
	require.Equal(t, 200, get(t, s, "GET", "/videos", &videos))
	require.Len(t, videos, 2)
	assert.Equal(t, "good", videos[0].VideoID)
	assert.Equal(t, "good_case.mp4", videos[0].Name)
	assert.Equal(t, "good_case", videos[0].Folder)
	assert.True(t, videos[0].Complete)
	assert.Equal(t, "bad", videos[1].VideoID)
	assert.False(t, videos[1].Complete)
	assert.NotEmpty(t, videos[1].Reason)

	var frames tableResponse
	require.Equal(t, 200, get(t, s, "GET", "/videos/good_case.mp4/frames", &frames))
	assert.Len(t, frames.Rows, cvs.FramesPerVideo)
	assert.NotContains(t, frames.Columns, cvs.ColumnVideoID)
	assert.Contains(t, frames.Columns, cvs.ColumnVideoName)

	var video tableResponse
	require.Equal(t, 200, get(t, s, "GET", "/videos/good_case.mp4/video", &video))
	assert.Len(t, video.Rows, 1)

	assert.Equal(t, 404, get(t, s, "GET", "/videos/missing.mp4/frames", nil))

	var wrong tableResponse
	require.Equal(t, 200, get(t, s, "GET", "/wrong", &wrong))
	require.Len(t, wrong.Rows, 1)
	assert.Equal(t, cvs.ColumnVideoID, wrong.Columns[0])
	require.NotNil(t, wrong.Rows[0][0])
	assert.Equal(t, "bad", *wrong.Rows[0][0])

	assert.Equal(t, 405, get(t, s, "POST", "/summary", nil))
}

func TestServerReload(t *testing.T) {
	frames := cvs.FramesPerVideo - 1
	fail := false
	s, err := NewServer(func() (*cvs.Report, error) {
		if fail {
			return nil, fmt.Errorf("input went away")
		}
		return testReport(t, frames), nil
	})
	require.NoError(t, err)

	var summary Summary
	require.Equal(t, 200, get(t, s, "GET", "/summary", &summary))
	assert.Equal(t, 0, summary.CompleteVideos)
	firstID := summary.ReportID

	frames = cvs.FramesPerVideo
	require.Equal(t, 200, get(t, s, "POST", "/reload", &summary))
	assert.Equal(t, 1, summary.CompleteVideos)
	assert.NotEqual(t, firstID, summary.ReportID)

	// a failed reload keeps the previous report
	fail = true
	assert.Equal(t, 500, get(t, s, "POST", "/reload", nil))
	require.Equal(t, 200, get(t, s, "GET", "/summary", &summary))
	assert.Equal(t, 1, summary.CompleteVideos)
}

func TestNewServerError(t *testing.T) {
	_, err := NewServer(func() (*cvs.Report, error) {
		return nil, fmt.Errorf("bad input")
	})
	assert.Error(t, err)
}
