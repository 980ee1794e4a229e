package scan

// bresenham calls plot for every pixel on the segment between two points.
//
// Endpoints are ordered before stepping so a segment and its reverse visit
// the same pixels. Erasing relies on this.
func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	if x1 < x0 || (x1 == x0 && y1 < y0) {
		x0, y0, x1, y1 = x1, y1, x0, y0
	}

	dx := x1 - x0
	dy := y1 - y0
	if dy < 0 {
		dy = -dy
	}
	sy := 1
	if y1 < y0 {
		sy = -1
	}

	err := dx - dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0++
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// penOffsets returns the inclusive range of offsets covered by a square pen
// of the given width centred on a pixel.
func penOffsets(width int) (lo, hi int) {
	if width < 1 {
		width = 1
	}
	return -(width / 2), (width - 1) / 2
}
