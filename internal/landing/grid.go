package landing

// TerrainGrid is a read-only snapshot of the terrain classifier output for one
// tick: a square grid of per-cell landability plus the terrain height used for
// the ground-elevation estimate. The planner never retains a grid past the
// tick that supplied it.
//
// The caller must guarantee the grid covers at least the configured smoothing
// window around its own center cell; the planner does not clamp or recover
// from an undersized grid.
type TerrainGrid struct {
	Size     int       // cells per side
	CellSize float32   // metres per cell
	Land     []float32 // row-major Size*Size landability, 0 (no) to 1 (yes)
	Height   []float32 // row-major Size*Size terrain height in metres
}

// NewTerrainGrid allocates a zeroed size x size grid.
func NewTerrainGrid(size int, cellSize float32) *TerrainGrid {
	return &TerrainGrid{
		Size:     size,
		CellSize: cellSize,
		Land:     make([]float32, size*size),
		Height:   make([]float32, size*size),
	}
}

// Idx maps a (row, col) cell to its flat index.
func (g *TerrainGrid) Idx(i, j int) int { return i*g.Size + j }

// Center returns the row (and column) of the grid's center cell.
func (g *TerrainGrid) Center() int { return g.Size / 2 }

// LandAt returns the landability value at (row, col).
func (g *TerrainGrid) LandAt(i, j int) float32 { return g.Land[g.Idx(i, j)] }

// HeightAt returns the terrain height at (row, col).
func (g *TerrainGrid) HeightAt(i, j int) float32 { return g.Height[g.Idx(i, j)] }
