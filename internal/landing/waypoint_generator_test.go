package landing

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlannerConfig() *PlannerConfig {
	return &PlannerConfig{
		SmoothingLandCells:  2,
		CanLandThreshold:    0.4,
		HysteresisBeta:      0.9,
		DecisionWindowTicks: 20,
		LandingRadius:       2,
		VerticalRangeError:  0.5,
		LoiterHeight:        3,
		LandSpeed:           0.7,
		SpiralWidth:         2,
	}
}

// recordingSink captures every published setpoint.
type recordingSink struct {
	setpoints []Setpoint
}

func (r *recordingSink) sink() SetpointSink {
	return func(position, velocity Vec3, yaw, yawSpeed float32) {
		r.setpoints = append(r.setpoints, Setpoint{Position: position, Velocity: velocity, Yaw: yaw, YawSpeed: yawSpeed})
	}
}

func newTestGenerator(t *testing.T) (*WaypointGenerator, *recordingSink) {
	t.Helper()
	rec := &recordingSink{}
	g, err := NewWaypointGenerator(testPlannerConfig(), rec.sink())
	require.NoError(t, err)
	return g, rec
}

// hoverInput is a vehicle already hovering at loiter height directly over the
// landing goal, with the given terrain under it.
func hoverInput(grid *TerrainGrid, seq int64) TickInput {
	return TickInput{
		Position:          Vec3{X: 0, Y: 0, Z: 3},
		Goal:              Vec3{X: 0, Y: 0, Z: 0},
		IsLandingWaypoint: true,
		VelocitySetpoint:  Vec3{X: 0, Y: 0, Z: 0},
		Grid:              grid,
		GridSeq:           seq,
	}
}

func TestChooseNextState(t *testing.T) {
	t.Parallel()

	states := []GPState{StateGoTo, StateAltitudeChange, StateLoiter, StateLand}
	expected := map[GPState]map[Transition]GPState{
		StateGoTo:           {TransitionNext1: StateAltitudeChange, TransitionNext2: StateLoiter},
		StateAltitudeChange: {TransitionNext1: StateLoiter},
		StateLoiter:         {TransitionNext1: StateLand, TransitionNext2: StateGoTo},
		StateLand:           {},
	}

	for _, state := range states {
		for _, tr := range []Transition{TransitionRepeat, TransitionNext1, TransitionNext2, TransitionError} {
			next := ChooseNextState(state, tr)
			if tr == TransitionError {
				assert.Equal(t, StateGoTo, next, "error from %s", state)
				continue
			}
			want, ok := expected[state][tr]
			if !ok {
				want = state // unmapped combinations repeat
			}
			assert.Equal(t, want, next, "%s + %s", state, tr)
		}
	}
}

func TestGoToEntersLoiterAndRecordsWindowStart(t *testing.T) {
	t.Parallel()
	g, _ := newTestGenerator(t)
	grid := uniformGrid(9, 1, 1, 0)

	g.Tick(hoverInput(grid, 7))

	assert.Equal(t, StateLoiter, g.State())
	assert.Equal(t, int64(7), g.DecisionWindowStart())
	assert.False(t, g.DecisionTaken())
}

func TestGoToEntersAltitudeChangeWhenTooHigh(t *testing.T) {
	t.Parallel()
	g, rec := newTestGenerator(t)
	grid := uniformGrid(9, 1, 1, 0)

	in := hoverInput(grid, 0)
	in.Position.Z = 10 // well above loiter height
	g.Tick(in)
	require.Equal(t, StateAltitudeChange, g.State())

	// First tick in ALTITUDE_CHANGE captures yaw; later ticks keep it.
	in.Yaw = 1.25
	in.GridSeq = 1
	g.Tick(in)
	assert.Equal(t, float32(1.25), rec.setpoints[len(rec.setpoints)-1].Yaw)

	in.Yaw = 2.5
	in.GridSeq = 2
	g.Tick(in)
	sp := rec.setpoints[len(rec.setpoints)-1]
	assert.Equal(t, float32(1.25), sp.Yaw, "yaw must not be re-captured on repeats")

	// Above target height: goal altitude unconstrained, fixed-rate descent.
	assert.True(t, math.IsNaN(float64(sp.Position.Z)))
	assert.Equal(t, float32(-0.7), sp.Velocity.Z)
}

func TestAltitudeChangeAscendsWhenBelowTarget(t *testing.T) {
	t.Parallel()
	g, rec := newTestGenerator(t)
	grid := uniformGrid(9, 1, 1, 0)

	in := hoverInput(grid, 0)
	in.Position.Z = 1 // below loiter height band
	g.Tick(in)
	require.Equal(t, StateAltitudeChange, g.State())

	in.GridSeq = 1
	g.Tick(in)
	assert.Equal(t, float32(0.7), rec.setpoints[len(rec.setpoints)-1].Velocity.Z)
}

func TestLandingDescentFlow(t *testing.T) {
	t.Parallel()
	g, rec := newTestGenerator(t)
	grid := uniformGrid(9, 1, 1, 0)

	g.Tick(hoverInput(grid, 0))
	require.Equal(t, StateLoiter, g.State())

	// The decision fires only once the sequence delta exceeds the window.
	for seq := int64(1); seq <= 20; seq++ {
		g.Tick(hoverInput(grid, seq))
		assert.Equal(t, StateLoiter, g.State(), "seq %d", seq)
		assert.False(t, g.DecisionTaken(), "seq %d", seq)
	}

	g.Tick(hoverInput(grid, 21))
	assert.True(t, g.DecisionTaken())
	assert.True(t, g.CanLand())
	assert.Equal(t, StateLand, g.State())

	// LAND keeps descending at the fixed rate indefinitely.
	for seq := int64(22); seq < 25; seq++ {
		g.Tick(hoverInput(grid, seq))
		assert.Equal(t, StateLand, g.State())
		sp := rec.setpoints[len(rec.setpoints)-1]
		assert.Equal(t, float32(-0.7), sp.Velocity.Z)
		assert.True(t, math.IsNaN(float64(sp.Position.Z)))
		assert.Equal(t, float32(0), sp.Position.X)
		assert.Equal(t, float32(0), sp.Position.Y)
	}
}

// The documented fallback: a window where every cell fails the threshold is
// approved for landing anyway. Kept bit-for-bit from the reference behavior;
// this test exists so nobody "fixes" it by accident.
func TestAllCellsFailingInvertsToApprove(t *testing.T) {
	t.Parallel()
	g, _ := newTestGenerator(t)
	grid := uniformGrid(9, 1, 0, 0) // nothing landable

	for seq := int64(0); seq <= 21; seq++ {
		g.Tick(hoverInput(grid, seq))
	}
	assert.True(t, g.DecisionTaken())
	assert.True(t, g.CanLand())
	assert.Equal(t, StateLand, g.State())
}

func TestRejectedSiteStartsExploration(t *testing.T) {
	t.Parallel()
	g, rec := newTestGenerator(t)

	// Left half unlandable, right half fine: some cells fail, some pass.
	grid := uniformGrid(9, 1, 1, 0)
	for i := 0; i < grid.Size; i++ {
		for j := 0; j < grid.Size/2; j++ {
			grid.Land[grid.Idx(i, j)] = 0
		}
	}

	for seq := int64(0); seq <= 21; seq++ {
		g.Tick(hoverInput(grid, seq))
	}
	require.Equal(t, StateGoTo, g.State())
	assert.True(t, g.DecisionTaken())
	assert.False(t, g.CanLand())
	assert.True(t, g.Exploration().Active)

	// First exploration goal: one pattern step east of the hold position.
	offset := float32(2 * 1 * 2 * 2 * 1) // spiralWidth·factor·2·halfCells·cellSize
	assert.InDelta(t, offset, g.Goal().X, 1e-5)
	assert.InDelta(t, 0, g.Goal().Y, 1e-5)

	// Next GOTO tick with the exploration goal: tightened radius and yaw
	// forced toward the direction of travel.
	in := hoverInput(grid, 22)
	in.Goal = g.Goal()
	in.VelocitySetpoint = UnconstrainedVec3()
	g.Tick(in)
	assert.Equal(t, float32(0.5), g.LandingRadius())
	sp := rec.setpoints[len(rec.setpoints)-1]
	assert.InDelta(t, nextYaw(in.Position, in.Goal), sp.Yaw, 1e-5)
}

func TestResetForcesGoTo(t *testing.T) {
	t.Parallel()
	g, rec := newTestGenerator(t)
	grid := uniformGrid(9, 1, 1, 0)

	// Through the decision and one full LAND tick.
	for seq := int64(0); seq <= 22; seq++ {
		g.Tick(hoverInput(grid, seq))
	}
	require.Equal(t, StateLand, g.State())
	held := rec.setpoints[len(rec.setpoints)-1]

	in := hoverInput(grid, 23)
	in.Reset = true
	g.Tick(in)

	assert.Equal(t, StateGoTo, g.State())
	// State logic was skipped; the previous command is republished.
	require.Len(t, rec.setpoints, 24)
	got := rec.setpoints[len(rec.setpoints)-1]
	assert.Equal(t, held.Position.X, got.Position.X)
	assert.Equal(t, held.Yaw, got.Yaw)
	assert.Equal(t, held.Velocity.Z, got.Velocity.Z)

	// Hysteresis evidence survives the reset.
	assert.Greater(t, g.Filter().Scores()[0], float32(0.8))
}

func TestNeutralResetWhileNotLandingWaypoint(t *testing.T) {
	t.Parallel()
	g, _ := newTestGenerator(t)
	grid := uniformGrid(9, 1, 1, 0)

	// Accumulate several ticks of loiter evidence first.
	for seq := int64(0); seq <= 5; seq++ {
		g.Tick(hoverInput(grid, seq))
	}
	require.Equal(t, StateLoiter, g.State())
	require.Greater(t, g.Filter().Scores()[0], float32(0.3))

	in := hoverInput(grid, 6)
	in.IsLandingWaypoint = false
	g.Tick(in)

	// The buffer is zeroed before the state behavior runs, so at most one
	// fresh EMA step of evidence can remain after the tick.
	for _, s := range g.Filter().Scores() {
		assert.LessOrEqual(t, s, float32(0.1)+1e-5)
	}
	assert.False(t, g.Exploration().Active)
	assert.True(t, g.CanLand())
	assert.False(t, g.DecisionTaken())
	assert.Equal(t, float32(2), g.LandingRadius())
}

func TestPublishesExactlyOncePerTick(t *testing.T) {
	t.Parallel()
	g, rec := newTestGenerator(t)
	grid := uniformGrid(9, 1, 1, 0)

	ticks := 0
	for seq := int64(0); seq <= 25; seq++ {
		in := hoverInput(grid, seq)
		in.Reset = seq == 10
		g.Tick(in)
		ticks++
		assert.Len(t, rec.setpoints, ticks, "one publish per tick, seq %d", seq)
	}
}

func TestSetpointSequence(t *testing.T) {
	t.Parallel()
	g, rec := newTestGenerator(t)
	grid := uniformGrid(9, 1, 1, 0)

	// Tick 1: transit toward a distant goal. Tick 2: arrive over the landing
	// goal. Tick 3: first loiter tick holds the captured pose.
	in := hoverInput(grid, 0)
	in.Goal = Vec3{X: 50, Y: 0, Z: 3}
	in.VelocitySetpoint = Vec3{X: 1.5, Y: 0, Z: 0}
	g.Tick(in)

	g.Tick(hoverInput(grid, 1))
	g.Tick(hoverInput(grid, 2))

	nan := NaN32()
	want := []Setpoint{
		{Position: Vec3{X: 50, Y: 0, Z: 3}, Velocity: Vec3{X: 1.5, Y: 0, Z: 0}},
		{Position: Vec3{X: 0, Y: 0, Z: 0}, Velocity: Vec3{X: 0, Y: 0, Z: 0}},
		{Position: Vec3{X: 0, Y: 0, Z: 3}, Velocity: Vec3{X: nan, Y: nan, Z: nan}, YawSpeed: nan},
	}

	// NaN axes mean "unconstrained" and must compare equal to each other.
	nanEqual := cmp.Comparer(func(a, b float32) bool {
		if math.IsNaN(float64(a)) && math.IsNaN(float64(b)) {
			return true
		}
		return a == b
	})
	if diff := cmp.Diff(want, rec.setpoints, nanEqual); diff != "" {
		t.Errorf("setpoint sequence mismatch (-want +got):\n%s", diff)
	}
}
