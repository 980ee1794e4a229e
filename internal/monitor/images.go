package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/scanview/internal/frames"
	"github.com/banshee-data/scanview/internal/httputil"
	"github.com/banshee-data/scanview/internal/plotting"
	"github.com/banshee-data/scanview/internal/scan"
)

const maxThumbnailEdge = 8192

// handleFrame encodes the current surface. The extension of the request path
// picks the encoding; max_w and max_h scale it down.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	format, err := frames.ParseFormat(r.URL.Path[strings.LastIndex(r.URL.Path, ".")+1:])
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	maxW, err := httputil.QueryInt(r, "max_w", 0, 1, maxThumbnailEdge)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	maxH, err := httputil.QueryInt(r, "max_h", 0, 1, maxThumbnailEdge)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	fr := s.cfg.Session.Latest()
	var img image.Image = fr.Image
	if maxW > 0 || maxH > 0 {
		img = scan.Thumbnail(fr.Image, maxW, maxH)
	}

	var buf bytes.Buffer
	if err := frames.Encode(&buf, img, format); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to encode frame: %v", err))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Scan-Seq", fmt.Sprint(fr.Seq))
	_, _ = w.Write(buf.Bytes())
}

// handlePlot renders the window with gonum/plot. Size is in inches.
func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	width, err := httputil.QueryInt(r, "w", 8, 1, 40)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	height, err := httputil.QueryInt(r, "h", 5, 1, 40)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	buffer := s.cfg.Session.Buffer()
	ox, oy := buffer.Projector().Origin()
	opts := plotting.Options{
		Title:   "Session " + s.cfg.Session.ID(),
		OriginX: ox,
		OriginY: oy,
		Range:   float64(buffer.Projector().MaxLength()),
	}

	var buf bytes.Buffer
	err = plotting.WritePNG(&buf, buffer.Points(), opts, vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch)
	if errors.Is(err, plotting.ErrNoPoints) {
		httputil.NotFound(w, "no points in window")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}
