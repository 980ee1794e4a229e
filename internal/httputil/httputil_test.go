package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/banshee-data/scanview/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusBadRequest, "test error")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %s, want application/json", ct)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "test error" {
		t.Errorf("error = %s, want 'test error'", resp["error"])
	}
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(http.ResponseWriter)
		want int
	}{
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed},
		{"bad", func(w http.ResponseWriter) { BadRequest(w, "x") }, http.StatusBadRequest},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "x") }, http.StatusInternalServerError},
		{"missing", func(w http.ResponseWriter) { NotFound(w, "x") }, http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		tt.fn(rec)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
	}
}

func TestWriteJSONOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"n": 3})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"n\":3}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestQueryInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 10, false},
		{"limit=5", 5, false},
		{"limit=0", 0, true},
		{"limit=1001", 0, true},
		{"limit=abc", 0, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
		got, err := QueryInt(r, "limit", 10, 1, 1000)
		if (err != nil) != tt.wantErr {
			t.Errorf("QueryInt(%q) err = %v, wantErr %v", tt.query, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("QueryInt(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			NotFound(w, "nope")
			return
		}
		WriteJSONOK(w, map[string]string{"path": r.URL.Path})
	}))
	defer srv.Close()

	var got map[string]string
	if err := GetJSON(context.Background(), srv.Client(), srv.URL+"/api/status", &got); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if got["path"] != "/api/status" {
		t.Errorf("path = %q", got["path"])
	}

	err := GetJSON(context.Background(), srv.Client(), srv.URL+"/missing", &got)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 StatusError, got %v", err)
	}
}

func TestMockHTTPClient(t *testing.T) {
	m := NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"ok":true}`).
		AddErrorResponse(errors.New("connection refused"))

	var got struct{ OK bool }
	if err := GetJSON(context.Background(), m, "http://scan/api/status", &got); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !got.OK {
		t.Error("expected ok=true")
	}

	if _, err := PostForm(context.Background(), m, "http://scan/debug/send-command-api", url.Values{"command": {"STOP"}}); err == nil {
		t.Error("expected queued transport error")
	}
	if m.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", m.RequestCount())
	}
	if m.Bodies[1] != "command=STOP" {
		t.Errorf("posted body = %q", m.Bodies[1])
	}

	// Queue drained: default 200 with empty body.
	body, err := PostForm(context.Background(), m, "http://scan/x", nil)
	if err != nil || body != "" {
		t.Errorf("default response = %q, %v", body, err)
	}
}
