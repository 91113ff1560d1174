package landing

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GroundPercentile is the quantile of footprint terrain height used as the
// ground-elevation estimate. A high percentile biases the estimate toward the
// tallest terrain under the vehicle, so the loiter height is held above
// obstacles rather than above the mean surface.
const GroundPercentile = 0.8

// FootprintHeightPercentile computes the p-quantile (0..1) of terrain height
// over the square window of half-width halfCells centred on the grid's own
// center cell. O(window²) per call; recomputed every tick while transiting or
// changing altitude because both reveal new terrain under the footprint.
func FootprintHeightPercentile(grid *TerrainGrid, halfCells int, p float64) float32 {
	center := grid.Center()
	heights := make([]float64, 0, (2*halfCells+1)*(2*halfCells+1))
	for i := center - halfCells; i <= center+halfCells; i++ {
		for j := center - halfCells; j <= center+halfCells; j++ {
			heights = append(heights, float64(grid.HeightAt(i, j)))
		}
	}
	sort.Float64s(heights)
	return float32(stat.Quantile(p, stat.Empirical, heights, nil))
}
