package db

import (
	"testing"

	"github.com/banshee-data/scanview/internal/scan"
)

func testBuffer(t *testing.T) *scan.ScanBuffer {
	t.Helper()
	b, err := scan.NewScanBuffer(scan.Config{MaxProjectionLength: 20, MaxPoints: 4})
	if err != nil {
		t.Fatalf("NewScanBuffer: %v", err)
	}
	return b
}
