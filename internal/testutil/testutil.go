// Package testutil provides shared test helpers for the HTTP handlers and
// sample pipelines.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/scanview/internal/protocol"
)

// LocalRemoteAddr is accepted by the tsweb debug handlers as a loopback peer.
const LocalRemoteAddr = "127.0.0.1:12345"

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// LocalRequest builds a request that appears to come from localhost, as the
// debug routes require.
func LocalRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.RemoteAddr = LocalRemoteAddr
	return req
}

// DecodeJSON decodes a recorded response body into v, failing the test on
// error.
func DecodeJSON(t testing.TB, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q, want application/json", ct)
	}
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// Sweep returns one sample per step from `from` to `to` inclusive, all at
// the same distance.
func Sweep(from, to, step, distance int) []protocol.Sample {
	if step <= 0 {
		step = 1
	}
	var out []protocol.Sample
	for a := from; a <= to; a += step {
		out = append(out, protocol.Sample{AngleDegrees: a, Distance: distance})
	}
	return out
}
