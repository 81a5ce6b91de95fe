package review

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	sync "github.com/sasha-s/go-deadlock"

	"github.com/skyhookml/cvsprep/cvs"
)

// Loader produces a fresh report, typically by re-running the pipeline on
// the configured inputs.
type Loader func() (*cvs.Report, error)

type VideoStatus struct {
	VideoID  string `json:"video_id"`
	Name     string `json:"name,omitempty"`
	Folder   string `json:"folder,omitempty"`
	Rows     int    `json:"rows"`
	Retained int    `json:"retained"`
	Complete bool   `json:"complete"`
	Reason   string `json:"reason,omitempty"`
}

type Summary struct {
	ReportID       string    `json:"report_id"`
	InputPath      string    `json:"input_path"`
	LoadedAt       time.Time `json:"loaded_at"`
	FrameRows      int       `json:"frame_rows"`
	VideoRows      int       `json:"video_rows"`
	CombinedRows   int       `json:"combined_rows"`
	WrongRows      int       `json:"wrong_rows"`
	Videos         int       `json:"videos"`
	CompleteVideos int       `json:"complete_videos"`
	NamedVideos    int       `json:"named_videos"`
}

// Server exposes a report over HTTP for review. All routes are read-only
// except POST /reload.
type Server struct {
	Router *mux.Router

	load Loader

	mu       sync.RWMutex
	report   *cvs.Report
	loadedAt time.Time
	statuses []VideoStatus
	byName   map[string]cvs.VideoOutput
}

// NewServer loads the initial report and registers the routes.
func NewServer(load Loader) (*Server, error) {
	s := &Server{
		Router: mux.NewRouter(),
		load:   load,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Reload replaces the current report. On error the previous one is kept.
func (s *Server) Reload() error {
	report, err := s.load()
	if err != nil {
		return err
	}
	statuses, byName := index(report)

	s.mu.Lock()
	s.report = report
	s.loadedAt = time.Now()
	s.statuses = statuses
	s.byName = byName
	s.mu.Unlock()
	log.Printf("[review] loaded report %s (%d videos)", report.ID, len(statuses))
	return nil
}

// Builds the per-video status list in group order.
func index(report *cvs.Report) ([]VideoStatus, map[string]cvs.VideoOutput) {
	names := make(map[string]string)
	for _, t := range []*cvs.Table{report.Frames, report.Videos, report.Wrong} {
		ids := t.Column(cvs.ColumnVideoID)
		videoNames := t.Column(cvs.ColumnVideoName)
		if ids == nil || videoNames == nil {
			continue
		}
		for i := range ids {
			if ids[i].IsNull() || videoNames[i].IsNull() {
				continue
			}
			if _, ok := names[ids[i].Value]; !ok {
				names[ids[i].Value] = videoNames[i].Value
			}
		}
	}

	byName := make(map[string]cvs.VideoOutput)
	for _, out := range report.PerVideo {
		byName[out.Name] = out
	}

	var statuses []VideoStatus
	for _, g := range report.Validation.Groups {
		status := VideoStatus{
			VideoID:  g.VideoID,
			Name:     names[g.VideoID],
			Rows:     g.Rows,
			Retained: g.Retained,
			Complete: g.Complete(),
			Reason:   string(g.Reason),
		}
		if out, ok := byName[status.Name]; ok {
			status.Folder = out.Folder
		}
		statuses = append(statuses, status)
	}
	return statuses, byName
}

func (s *Server) summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary := Summary{
		ReportID:       s.report.ID,
		InputPath:      s.report.InputPath,
		LoadedAt:       s.loadedAt,
		FrameRows:      s.report.Frames.Len(),
		VideoRows:      s.report.Videos.Len(),
		CombinedRows:   s.report.Combined.Len(),
		WrongRows:      s.report.Wrong.Len(),
		Videos:         len(s.statuses),
		CompleteVideos: s.report.Validation.CompleteCount(),
	}
	for _, status := range s.statuses {
		if status.Name != "" {
			summary.NamedVideos++
		}
	}
	return summary
}

func (s *Server) videos() []VideoStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]VideoStatus{}, s.statuses...)
}

func (s *Server) video(name string) (cvs.VideoOutput, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.byName[name]
	return out, ok
}

func (s *Server) wrong() *cvs.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report.Wrong
}

func (s *Server) routes() {
	s.Router.HandleFunc("/summary", func(w http.ResponseWriter, r *http.Request) {
		JsonResponse(w, s.summary())
	}).Methods("GET")

	s.Router.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		JsonResponse(w, s.videos())
	}).Methods("GET")

	s.Router.HandleFunc("/videos/{name}/frames", func(w http.ResponseWriter, r *http.Request) {
		out, ok := s.video(mux.Vars(r)["name"])
		if !ok {
			http.Error(w, "no such video", 404)
			return
		}
		JsonResponse(w, out.Frames)
	}).Methods("GET")

	s.Router.HandleFunc("/videos/{name}/video", func(w http.ResponseWriter, r *http.Request) {
		out, ok := s.video(mux.Vars(r)["name"])
		if !ok {
			http.Error(w, "no such video", 404)
			return
		}
		JsonResponse(w, out.Video)
	}).Methods("GET")

	s.Router.HandleFunc("/wrong", func(w http.ResponseWriter, r *http.Request) {
		JsonResponse(w, s.wrong())
	}).Methods("GET")

	s.Router.HandleFunc("/reload", func(w http.ResponseWriter, r *http.Request) {
		if err := s.Reload(); err != nil {
			log.Printf("[review] reload failed: %v", err)
			http.Error(w, err.Error(), 500)
			return
		}
		JsonResponse(w, s.summary())
	}).Methods("POST")
}

func JsonResponse(w http.ResponseWriter, x interface{}) {
	bytes := cvs.JsonMarshal(x)
	w.Header().Set("Content-Type", "application/json")
	w.Write(bytes)
}
