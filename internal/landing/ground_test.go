package landing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFootprintHeightPercentileUniform(t *testing.T) {
	t.Parallel()
	grid := uniformGrid(9, 1, 1, 7.5)
	assert.Equal(t, float32(7.5), FootprintHeightPercentile(grid, 2, GroundPercentile))
}

func TestFootprintHeightPercentileGraded(t *testing.T) {
	t.Parallel()
	grid := uniformGrid(5, 1, 1, 0)
	for i := range grid.Height {
		grid.Height[i] = float32(i + 1) // 1..25
	}
	// Empirical 80th percentile of 1..25 is the 20th order statistic.
	assert.Equal(t, float32(20), FootprintHeightPercentile(grid, 2, GroundPercentile))
}

func TestFootprintHeightPercentileIgnoresOutsideWindow(t *testing.T) {
	t.Parallel()
	grid := uniformGrid(9, 1, 1, 2)
	// Spike a corner cell outside the half-width-1 window around the center.
	grid.Height[grid.Idx(0, 0)] = 100
	assert.Equal(t, float32(2), FootprintHeightPercentile(grid, 1, GroundPercentile))
}
