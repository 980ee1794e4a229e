package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/scanview/internal/scan"
)

func pointsAt(distances ...int) []scan.ProjectedPoint {
	out := make([]scan.ProjectedPoint, len(distances))
	for i, d := range distances {
		out[i] = scan.ProjectedPoint{Distance: d}
	}
	return out
}

func TestSummarise(t *testing.T) {
	sum := Summarise(pointsAt(10, 0, 20, 30, 0, 40))

	assert.Equal(t, 4, sum.Count)
	assert.Equal(t, 2, sum.Noise)
	assert.InDelta(t, 25.0, sum.Mean, 1e-9)
	// Sample standard deviation of 10, 20, 30, 40.
	assert.InDelta(t, 12.909944, sum.StdDev, 1e-6)
	assert.Equal(t, 10.0, sum.Min)
	assert.Equal(t, 40.0, sum.Max)
	assert.Equal(t, 20.0, sum.Median)
}

func TestSummarise_Degenerate(t *testing.T) {
	assert.Equal(t, DistanceSummary{}, Summarise(nil))
	assert.Equal(t, DistanceSummary{Noise: 2}, Summarise(pointsAt(0, 0)))

	one := Summarise(pointsAt(7))
	assert.Equal(t, DistanceSummary{Count: 1, Mean: 7, Min: 7, Max: 7, Median: 7}, one)
}
