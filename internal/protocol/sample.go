package protocol

import "fmt"

// Sample is one (angle, distance) reading.
type Sample struct {
	AngleDegrees int `json:"angle_deg"`
	Distance     int `json:"distance"`
}

func (s Sample) String() string {
	return fmt.Sprintf("%d°@%d", s.AngleDegrees, s.Distance)
}

// NormaliseAngle wraps an angle into [0, 360).
func NormaliseAngle(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}
