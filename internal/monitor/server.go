// Package monitor serves the live scan over HTTP: status, the current window,
// rendered frames, charts and the frame catalogue.
package monitor

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/banshee-data/scanview/internal/frames"
	"github.com/banshee-data/scanview/internal/fsutil"
	"github.com/banshee-data/scanview/internal/httputil"
	"github.com/banshee-data/scanview/internal/session"
	"github.com/banshee-data/scanview/internal/version"
)

//go:embed status.html
var statusHTML embed.FS

var statusTemplate = template.Must(template.ParseFS(statusHTML, "status.html"))

// Catalogue is the read side of the frame catalogue.
type Catalogue interface {
	ListSessions(ctx context.Context, limit int) ([]session.Info, error)
	ListFrames(ctx context.Context, sessionID string, limit int) ([]frames.Record, error)
	GetFrame(ctx context.Context, id int64) (frames.Record, error)
}

// Config configures a Server. Only Session is required.
type Config struct {
	Session *session.Session

	// Catalogue, when set, enables the session and frame listing endpoints.
	Catalogue Catalogue
	// Writer, when set, has its counters reported by /api/status.
	Writer *frames.Writer
	// FrameDir bounds which catalogued files may be served.
	FrameDir string
	FS       fsutil.FileSystem
}

// Server holds the HTTP handlers for one session.
type Server struct {
	cfg Config
}

func NewServer(cfg Config) *Server {
	if cfg.FS == nil {
		cfg.FS = fsutil.OSFileSystem{}
	}
	if cfg.FrameDir == "" {
		cfg.FrameDir = frames.DefaultDir
	}
	return &Server{cfg: cfg}
}

// ServeMux returns a mux with every monitor route mounted. Debug routes are
// attached to it by the caller.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/points", s.handlePoints)
	mux.HandleFunc("/frame.png", s.handleFrame)
	mux.HandleFunc("/frame.bmp", s.handleFrame)
	mux.HandleFunc("/plot.png", s.handlePlot)
	mux.HandleFunc("/chart", s.handleChart)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/frames", s.handleFrames)
	mux.HandleFunc("/api/frames/file", s.handleFrameFile)
	return mux
}

// StatusResponse is the body of /api/status.
type StatusResponse struct {
	Session   session.Status      `json:"session"`
	Distances DistanceSummary     `json:"distances"`
	Frames    *frames.WriterStats `json:"frames,omitempty"`
	Version   string              `json:"version"`
}

func (s *Server) status() StatusResponse {
	resp := StatusResponse{
		Session:   s.cfg.Session.Status(),
		Distances: Summarise(s.cfg.Session.Points()),
		Version:   version.Version,
	}
	if s.cfg.Writer != nil {
		st := s.cfg.Writer.Stats()
		resp.Frames = &st
	}
	return resp
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	st := s.status()
	data := struct {
		StatusResponse
		Uptime    string
		Catalogue bool
		GitSHA    string
	}{
		StatusResponse: st,
		Uptime:         st.Session.Uptime.Round(time.Second).String(),
		Catalogue:      s.cfg.Catalogue != nil,
		GitSHA:         version.GitSHA,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusTemplate.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "scanview", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.status())
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.cfg.Session.Points())
}

// Serve runs handler on addr until ctx is cancelled, then shuts the server
// down.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("HTTP server routine stopped")
	return nil
}
