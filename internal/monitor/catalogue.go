package monitor

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/scanview/internal/db"
	"github.com/banshee-data/scanview/internal/httputil"
	"github.com/banshee-data/scanview/internal/security"
)

const maxListLimit = 1000

func (s *Server) requireCatalogue(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return false
	}
	if s.cfg.Catalogue == nil {
		httputil.NotFound(w, "no frame catalogue attached")
		return false
	}
	return true
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalogue(w, r) {
		return
	}
	limit, err := httputil.QueryInt(r, "limit", 50, 1, maxListLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	sessions, err := s.cfg.Catalogue.ListSessions(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, sessions)
}

// handleFrames lists catalogued frames for ?session=, defaulting to the
// running session.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalogue(w, r) {
		return
	}
	limit, err := httputil.QueryInt(r, "limit", 100, 1, maxListLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	id := r.URL.Query().Get("session")
	if id == "" {
		id = s.cfg.Session.ID()
	}
	recs, err := s.cfg.Catalogue.ListFrames(r.Context(), id, limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, recs)
}

// handleFrameFile serves a catalogued frame by ?id=, refusing paths outside
// the frame directory.
func (s *Server) handleFrameFile(w http.ResponseWriter, r *http.Request) {
	if !s.requireCatalogue(w, r) {
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		httputil.BadRequest(w, "id must be an integer")
		return
	}
	rec, err := s.cfg.Catalogue.GetFrame(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if err := security.IsWithinDirectory(rec.Path, s.cfg.FrameDir); err != nil {
		httputil.WriteJSONError(w, http.StatusForbidden, "frame is outside the frame directory")
		return
	}
	data, err := s.cfg.FS.ReadFile(rec.Path)
	if err != nil {
		httputil.NotFound(w, "frame file is gone: "+filepath.Base(rec.Path))
		return
	}
	w.Header().Set("Content-Type", rec.Format.ContentType())
	_, _ = w.Write(data)
}
