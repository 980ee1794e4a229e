package scan

import "image"

// ProjectedPoint is a sample placed on the raster surface.
//
// X and Y are fixed at projection time. The link records the point this one
// was joined to when it was inserted; eviction uses it to erase exactly the
// segment that insertion drew.
type ProjectedPoint struct {
	AngleDegrees int     `json:"angle_deg"`
	AngleRadians float64 `json:"angle_rad"`
	Distance     int     `json:"distance"`
	X            int     `json:"x"`
	Y            int     `json:"y"`
	Linked       bool    `json:"linked"`
	LinkX        int     `json:"link_x,omitempty"`
	LinkY        int     `json:"link_y,omitempty"`
}

// Pt returns the point's pixel position.
func (p ProjectedPoint) Pt() image.Point {
	return image.Pt(p.X, p.Y)
}

// Link returns the position this point was joined to at insertion time, and
// whether there was one.
func (p ProjectedPoint) Link() (image.Point, bool) {
	if !p.Linked {
		return image.Point{}, false
	}
	return image.Pt(p.LinkX, p.LinkY), true
}
