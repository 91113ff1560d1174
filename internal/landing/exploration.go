package landing

// explorationPattern is the closed ring of unit lateral offsets walked when a
// candidate site is rejected: east, then counter-clockwise around the anchor.
var explorationPattern = [][2]float32{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

// ExplorationState drives the deterministic escape search after a rejected
// site. Each rejection advances one step around explorationPattern; a full lap
// increments the growth factor, so the ring of candidate sites widens until
// something is landable.
type ExplorationState struct {
	Active bool
	Anchor Vec3

	patternIndex int     // -1 before the first step
	growthFactor float32 // scales the ring outward, lap by lap
}

// Reset returns the exploration state to inactive with the pattern rewound.
func (e *ExplorationState) Reset() {
	e.Active = false
	e.patternIndex = -1
	e.growthFactor = 1
}

// Activate records the anchor the pattern grows around. The first rejected
// hold position stays the anchor for the whole search.
func (e *ExplorationState) Activate(anchor Vec3) {
	e.Anchor = anchor
	e.Active = true
}

// NextGoal advances one pattern step and returns the next candidate goal at
// the anchor's altitude. The offset magnitude is
// spiralWidth·growthFactor·2·halfCells·cellSize; when the pattern index wraps
// past the pattern length it resets to zero and the growth factor increments
// by one, so each lap reaches further out.
func (e *ExplorationState) NextGoal(spiralWidth float32, halfCells int, cellSize float32) Vec3 {
	offset := spiralWidth * e.growthFactor * 2 * float32(halfCells) * cellSize
	e.patternIndex++
	if e.patternIndex == len(explorationPattern) {
		e.patternIndex = 0
		e.growthFactor++
	}
	step := explorationPattern[e.patternIndex]
	return Vec3{
		X: e.Anchor.X + offset*step[0],
		Y: e.Anchor.Y + offset*step[1],
		Z: e.Anchor.Z,
	}
}

// PatternIndex returns the current position within the pattern, -1 before the
// first step.
func (e *ExplorationState) PatternIndex() int { return e.patternIndex }

// GrowthFactor returns the current lap scale factor.
func (e *ExplorationState) GrowthFactor() float32 { return e.growthFactor }
