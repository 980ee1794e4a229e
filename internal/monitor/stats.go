package monitor

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/scanview/internal/scan"
)

// DistanceSummary describes the distances in the current window. Points
// collapsed to the origin as noise are counted but left out of the
// statistics.
type DistanceSummary struct {
	Count  int     `json:"count"`
	Noise  int     `json:"noise"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// Summarise computes a DistanceSummary over points.
func Summarise(points []scan.ProjectedPoint) DistanceSummary {
	var sum DistanceSummary
	xs := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Distance == 0 {
			sum.Noise++
			continue
		}
		xs = append(xs, float64(p.Distance))
	}
	sum.Count = len(xs)
	if len(xs) == 0 {
		return sum
	}

	sum.Mean, sum.StdDev = stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		sum.StdDev = 0
	}
	sum.Min = floats.Min(xs)
	sum.Max = floats.Max(xs)
	sort.Float64s(xs)
	sum.Median = stat.Quantile(0.5, stat.Empirical, xs, nil)
	return sum
}
