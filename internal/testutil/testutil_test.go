package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/scanview/internal/protocol"
)

func TestAssertStatusCode_Matching(t *testing.T) {
	fakeT := &testing.T{}
	AssertStatusCode(fakeT, http.StatusOK, http.StatusOK)
	if fakeT.Failed() {
		t.Error("expected no failure for matching status codes")
	}
}

func TestLocalRequest(t *testing.T) {
	req := LocalRequest(http.MethodGet, "/debug/tail", nil)
	if req.RemoteAddr != LocalRemoteAddr {
		t.Errorf("RemoteAddr = %q", req.RemoteAddr)
	}
}

func TestDecodeJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.WriteString(`{"angle_deg": 5, "distance": 9}`)

	var s protocol.Sample
	DecodeJSON(t, rec, &s)
	if s != (protocol.Sample{AngleDegrees: 5, Distance: 9}) {
		t.Errorf("decoded %+v", s)
	}
}

func TestSweep(t *testing.T) {
	got := Sweep(0, 10, 5, 40)
	if len(got) != 3 || got[2].AngleDegrees != 10 || got[0].Distance != 40 {
		t.Errorf("Sweep = %+v", got)
	}
	if n := len(Sweep(0, 2, 0, 1)); n != 3 {
		t.Errorf("zero step yields %d samples, want 3", n)
	}
}
