package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/banshee-data/scanview/internal/frames"
	"github.com/banshee-data/scanview/internal/httputil"
	"github.com/banshee-data/scanview/internal/scan"
)

// Client talks to a running monitor.
type Client struct {
	BaseURL string
	HTTP    httputil.HTTPClient
}

// NewClient returns a Client for baseURL using http.DefaultClient.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: http.DefaultClient}
}

func (c *Client) url(path string, q url.Values) string {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var st StatusResponse
	err := httputil.GetJSON(ctx, c.HTTP, c.url("/api/status", nil), &st)
	return st, err
}

func (c *Client) Points(ctx context.Context) ([]scan.ProjectedPoint, error) {
	var pts []scan.ProjectedPoint
	err := httputil.GetJSON(ctx, c.HTTP, c.url("/api/points", nil), &pts)
	return pts, err
}

// Frames lists catalogued frames; an empty sessionID means the running
// session.
func (c *Client) Frames(ctx context.Context, sessionID string, limit int) ([]frames.Record, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("session", sessionID)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var recs []frames.Record
	err := httputil.GetJSON(ctx, c.HTTP, c.url("/api/frames", q), &recs)
	return recs, err
}

// SendCommand writes a raw command line to the monitor's serial port through
// the debug route.
func (c *Client) SendCommand(ctx context.Context, command string) (string, error) {
	return httputil.PostForm(ctx, c.HTTP, c.url("/debug/send-command-api", nil), url.Values{"command": {command}})
}
