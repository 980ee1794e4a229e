package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/scanview/internal/httputil"
	"github.com/banshee-data/scanview/internal/plotting"
)

// handleChart renders an interactive scatter of the window relative to the
// sensor, newest point highlighted.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	buffer := s.cfg.Session.Buffer()
	ox, oy := buffer.Projector().Origin()
	pad := float64(buffer.Projector().MaxLength()) * 1.05

	points := buffer.Points()
	xys := plotting.XY(points, ox, oy)
	trail := make([]opts.ScatterData, 0, len(xys))
	for i, p := range xys {
		trail = append(trail, opts.ScatterData{
			Value: []interface{}{p.X, p.Y, points[i].AngleDegrees, points[i].Distance},
		})
	}
	var newest []opts.ScatterData
	if n := len(trail); n > 0 {
		newest = trail[n-1:]
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "scanview", Theme: "dark", Width: "1000px", Height: "560px"}),
		charts.WithTitleOpts(opts.Title{Title: "Scan window", Subtitle: fmt.Sprintf("session=%s points=%d", s.cfg.Session.ID(), len(points))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: pad, Name: "Y", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("trail", trail, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	scatter.AddSeries("newest", newest, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
