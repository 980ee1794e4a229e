package frames

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
	"time"

	"golang.org/x/image/bmp"
)

// Format is an image encoding for saved frames.
type Format string

const (
	FormatBMP Format = "bmp"
	FormatPNG Format = "png"
)

// ErrUnknownFormat is returned by ParseFormat for anything but bmp or png.
var ErrUnknownFormat = errors.New("unknown frame format")

// ParseFormat accepts "bmp" or "png" in any case, with or without a
// leading dot.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")) {
	case FormatBMP:
		return FormatBMP, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type of the encoding.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/bmp"
}

// Encode writes img in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		return enc.Encode(w, img)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

// FileName names a frame by its capture time with 100ns resolution, e.g.
// 20240501-120000-1234567.bmp.
func FileName(t time.Time, f Format) string {
	return fmt.Sprintf("%s-%07d%s", t.Format("20060102-150405"), t.Nanosecond()/100, f.Ext())
}
