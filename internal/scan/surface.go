package scan

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// Palette holds the colours a ScanBuffer paints with.
type Palette struct {
	Background color.RGBA
	Marker     color.RGBA
	Trail      color.RGBA
}

// DefaultPalette is black background, green markers, lime-green trail.
func DefaultPalette() Palette {
	return Palette{
		Background: color.RGBA{A: 0xff},
		Marker:     color.RGBA{G: 0x80, A: 0xff},
		Trail:      color.RGBA{R: 0x32, G: 0xcd, B: 0x32, A: 0xff},
	}
}

// Canvas is the set of pixel operations a ScanBuffer performs on its surface.
type Canvas interface {
	SetPixel(x, y int, c color.RGBA)
	DrawLine(x0, y0, x1, y1 int, c color.RGBA, width int)
}

// Surface is an RGBA raster. Writes outside its bounds are dropped.
type Surface struct {
	img *image.RGBA
}

// NewSurface allocates a width x height surface filled with bg.
func NewSurface(width, height int, bg color.RGBA) *Surface {
	s := &Surface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
	s.Fill(bg)
	return s
}

func (s *Surface) Bounds() image.Rectangle { return s.img.Bounds() }
func (s *Surface) Width() int              { return s.img.Bounds().Dx() }
func (s *Surface) Height() int             { return s.img.Bounds().Dy() }

// At returns the colour at (x, y), or the zero colour outside the surface.
func (s *Surface) At(x, y int) color.RGBA {
	return s.img.RGBAAt(x, y)
}

// Fill paints the whole surface with c.
func (s *Surface) Fill(c color.RGBA) {
	xdraw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
}

// SetPixel paints a single pixel.
func (s *Surface) SetPixel(x, y int, c color.RGBA) {
	s.img.SetRGBA(x, y, c)
}

// DrawLine strokes the segment between two points with a square pen.
func (s *Surface) DrawLine(x0, y0, x1, y1 int, c color.RGBA, width int) {
	lo, hi := penOffsets(width)
	bresenham(x0, y0, x1, y1, func(x, y int) {
		for dy := lo; dy <= hi; dy++ {
			for dx := lo; dx <= hi; dx++ {
				s.img.SetRGBA(x+dx, y+dy, c)
			}
		}
	})
}

// Snapshot returns a deep copy of the surface.
func (s *Surface) Snapshot() *image.RGBA {
	dst := image.NewRGBA(s.img.Bounds())
	xdraw.Draw(dst, dst.Bounds(), s.img, s.img.Bounds().Min, xdraw.Src)
	return dst
}

// Thumbnail returns a copy of the surface scaled to fit within maxW x maxH,
// preserving aspect ratio. Nearest-neighbour keeps single-pixel trails visible.
func (s *Surface) Thumbnail(maxW, maxH int) *image.RGBA {
	return Thumbnail(s.img, maxW, maxH)
}

// Thumbnail scales src to fit within maxW x maxH, preserving aspect ratio.
// A non-positive bound leaves that dimension unconstrained.
func Thumbnail(src *image.RGBA, maxW, maxH int) *image.RGBA {
	b := src.Bounds()
	scale := 1.0
	if maxW > 0 && b.Dx() > maxW {
		scale = float64(maxW) / float64(b.Dx())
	}
	if maxH > 0 && float64(b.Dy())*scale > float64(maxH) {
		scale = float64(maxH) / float64(b.Dy())
	}
	w := max(1, int(float64(b.Dx())*scale))
	h := max(1, int(float64(b.Dy())*scale))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
