// Package landing decides, once per control tick, whether a vehicle hovering
// over a candidate landing site should descend, hold, retreat to search
// elsewhere, or commit to landing, and produces the setpoint for the
// trajectory executor. It is single-threaded and tick-driven: the host calls
// Tick at a fixed rate with fresh read-only inputs, and exactly one setpoint
// is published per tick.
package landing

import (
	"github.com/perch-aero/safeland/internal/monitoring"
)

// GPState is the operating mode of the waypoint generator.
type GPState string

const (
	StateGoTo           GPState = "GOTO"            // fly toward the goal
	StateAltitudeChange GPState = "ALTITUDE_CHANGE" // climb or descend to loiter height
	StateLoiter         GPState = "LOITER"          // hold and accumulate landing evidence
	StateLand           GPState = "LAND"            // terminal continuous descent
)

func (s GPState) String() string { return string(s) }

// Transition is the outcome a state behavior requests for the current tick.
type Transition string

const (
	TransitionRepeat Transition = "repeat"
	TransitionNext1  Transition = "next1"
	TransitionNext2  Transition = "next2"
	TransitionError  Transition = "error"
)

// ChooseNextState maps (current state, requested transition) to the next
// state. It is a pure lookup with no side effects: GOTO advances to
// ALTITUDE_CHANGE on next1 or straight to LOITER on next2, ALTITUDE_CHANGE
// advances to LOITER on next1, LOITER commits to LAND on next1 or retreats to
// GOTO on next2, and LAND is terminal. An error transition restarts the
// machine at GOTO from any state. Unmapped combinations repeat.
func ChooseNextState(current GPState, tr Transition) GPState {
	if tr == TransitionError {
		return StateGoTo
	}
	switch current {
	case StateGoTo:
		switch tr {
		case TransitionNext1:
			return StateAltitudeChange
		case TransitionNext2:
			return StateLoiter
		}
	case StateAltitudeChange:
		if tr == TransitionNext1 {
			return StateLoiter
		}
	case StateLoiter:
		switch tr {
		case TransitionNext1:
			return StateLand
		case TransitionNext2:
			return StateGoTo
		}
	case StateLand:
		// terminal
	}
	return current
}

// TickInput carries the read-only inputs for one control tick. The grid is
// borrowed for the duration of the call only.
type TickInput struct {
	Position          Vec3
	Yaw               float32
	Goal              Vec3 // NaN Z means unconstrained altitude
	IsLandingWaypoint bool
	VelocitySetpoint  Vec3 // used verbatim while in GOTO
	YawSpeedSetpoint  float32
	Grid              *TerrainGrid
	GridSeq           int64 // sequence counter of this grid snapshot
	Reset             bool  // skip state logic, force GOTO next tick
}

// WaypointGenerator is the per-mission landing controller. It owns all
// mutable state; the host guarantees one Tick call at a time, so no internal
// synchronization is needed.
type WaypointGenerator struct {
	cfg             *PlannerConfig
	publishSetpoint SetpointSink

	state     GPState
	prevState GPState

	// Inputs copied in each tick. The grid pointer is cleared before Tick
	// returns.
	position          Vec3
	yaw               float32
	goal              Vec3
	isLandingWaypoint bool
	velocitySetpoint  Vec3
	yawSetpoint       float32
	yawSpeedSetpoint  float32
	grid              *TerrainGrid
	gridSeq           int64

	// Landing geometry
	landingRadius   float32
	groundElevation float32 // footprint height percentile, metres

	// Decision window
	startSeqLandingDecision int64
	decisionTaken           bool
	canLand                 bool

	filter      *LandabilityFilter
	exploration ExplorationState

	loiterPosition Vec3
	loiterYaw      float32

	// Last published setpoint, replayed on reset ticks where state logic is
	// skipped but the executor still expects a command.
	last Setpoint
}

// NewWaypointGenerator constructs a controller in GOTO with the given
// configuration and setpoint sink. A nil sink is replaced by one that logs an
// error on every publish, mirroring a mis-wired host.
func NewWaypointGenerator(cfg *PlannerConfig, sink SetpointSink) (*WaypointGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = func(Vec3, Vec3, float32, float32) {
			monitoring.Logf("[wpg] setpoint sink not set in WaypointGenerator")
		}
	}
	g := &WaypointGenerator{
		cfg:             cfg,
		publishSetpoint: sink,
		state:           StateGoTo,
		prevState:       StateGoTo,
		landingRadius:   cfg.LandingRadius,
		canLand:         true,
		filter:          NewLandabilityFilter(cfg.SmoothingLandCells, cfg.HysteresisBeta, cfg.CanLandThreshold),
	}
	g.exploration.Reset()
	return g, nil
}

// State returns the active controller state.
func (g *WaypointGenerator) State() GPState { return g.state }

// Goal returns the current goal, including any exploration goal the
// controller selected itself after rejecting a site.
func (g *WaypointGenerator) Goal() Vec3 { return g.goal }

// DecisionWindowStart returns the grid sequence recorded when the controller
// last transitioned into LOITER.
func (g *WaypointGenerator) DecisionWindowStart() int64 { return g.startSeqLandingDecision }

// DecisionTaken reports whether the current LOITER visit has finalized its
// verdict. CanLand is only authoritative when this is true.
func (g *WaypointGenerator) DecisionTaken() bool { return g.decisionTaken }

// CanLand returns the landing approval flag.
func (g *WaypointGenerator) CanLand() bool { return g.canLand }

// GroundElevation returns the latest footprint height percentile estimate.
func (g *WaypointGenerator) GroundElevation() float32 { return g.groundElevation }

// LandingRadius returns the active horizontal capture radius, tightened while
// exploration is underway.
func (g *WaypointGenerator) LandingRadius() float32 { return g.landingRadius }

// Exploration exposes the escape-search state, primarily for diagnostics.
func (g *WaypointGenerator) Exploration() *ExplorationState { return &g.exploration }

// Filter exposes the hysteresis filter, primarily for diagnostics.
func (g *WaypointGenerator) Filter() *LandabilityFilter { return g.filter }

// LastSetpoint returns the setpoint published on the most recent tick.
func (g *WaypointGenerator) LastSetpoint() Setpoint { return g.last }

// Tick advances the controller by one control period: sample inputs, maybe
// transition, run the active state's behavior, and publish exactly one
// setpoint. It never blocks and performs no allocation beyond a pending
// hysteresis buffer resize.
func (g *WaypointGenerator) Tick(in TickInput) {
	g.position = in.Position
	g.yaw = in.Yaw
	g.goal = in.Goal
	g.isLandingWaypoint = in.IsLandingWaypoint
	g.velocitySetpoint = in.VelocitySetpoint
	g.yawSpeedSetpoint = in.YawSpeedSetpoint
	g.grid = in.Grid
	g.gridSeq = in.GridSeq

	g.neutralReset()

	var tr Transition
	if in.Reset {
		// State logic is skipped entirely; hold the previous command so the
		// executor still sees one setpoint this tick. Hysteresis scores are
		// deliberately kept so a fresh descent continues with the confidence
		// already accumulated.
		tr = TransitionError
		g.publish(g.last.Position, g.last.Velocity, g.last.Yaw, g.last.YawSpeed)
	} else {
		tr = g.runCurrentState()
	}

	next := ChooseNextState(g.state, tr)
	g.prevState = g.state
	g.state = next
	if g.state != g.prevState {
		monitoring.Logf("[wpg] update to %s state", g.state)
	}

	// The grid snapshot is externally owned; never keep it past the tick.
	g.grid = nil
}

// neutralReset holds all landing and exploration state at rest while the
// current goal is not a landing waypoint. Driven every tick: the controller
// must tolerate running continuously during normal waypoint flight.
func (g *WaypointGenerator) neutralReset() {
	g.filter.EnsureSized()
	if !g.isLandingWaypoint {
		g.decisionTaken = false
		g.canLand = true
		g.filter.Reset()
		g.exploration.Reset()
		g.landingRadius = g.cfg.LandingRadius
		monitoring.Debugf("[wpg] not a land waypoint")
	}
}

func (g *WaypointGenerator) runCurrentState() Transition {
	switch g.state {
	case StateGoTo:
		return g.runGoTo()
	case StateAltitudeChange:
		return g.runAltitudeChange()
	case StateLoiter:
		return g.runLoiter()
	case StateLand:
		return g.runLand()
	}
	return TransitionError
}

// runGoTo flies toward the goal at the externally supplied velocity. While an
// escape search is active the capture radius tightens to 0.5 m and the yaw is
// forced to face the direction of travel. No landing evidence accumulates in
// transit.
func (g *WaypointGenerator) runGoTo() Transition {
	g.decisionTaken = false
	if g.exploration.Active {
		g.landingRadius = 0.5
		g.yawSetpoint = nextYaw(g.position, g.goal)
	}
	g.publish(g.goal, g.velocitySetpoint, g.yawSetpoint, g.yawSpeedSetpoint)
	g.groundElevation = FootprintHeightPercentile(g.grid, g.cfg.SmoothingLandCells, GroundPercentile)
	g.filter.Reset()

	monitoring.Debugf("[wpg] goto %.2f %.2f %.2f, radius xy %.2f z %.2f",
		g.goal.X, g.goal.Y, g.goal.Z,
		g.goal.XYDistance(g.position), absDiff(g.position.Z, g.groundElevation))

	if g.withinLandingRadius() && !g.inVerticalRange() && g.isLandingWaypoint {
		return TransitionNext1
	}
	if g.withinLandingRadius() && g.inVerticalRange() && g.isLandingWaypoint {
		g.startSeqLandingDecision = g.gridSeq
		return TransitionNext2
	}
	return TransitionRepeat
}

// runAltitudeChange moves the hover height toward LoiterHeight above the
// ground estimate at a fixed vertical speed, with the goal altitude left
// unconstrained. Yaw is captured once on entry and held.
func (g *WaypointGenerator) runAltitudeChange() Transition {
	if g.prevState != StateAltitudeChange {
		g.yawSetpoint = g.yaw
	}
	g.goal.Z = NaN32()
	g.groundElevation = FootprintHeightPercentile(g.grid, g.cfg.SmoothingLandCells, GroundPercentile)

	direction := float32(-1)
	if absDiff(g.position.Z, g.groundElevation)-g.cfg.LoiterHeight < 0 {
		direction = 1
	}
	g.velocitySetpoint.Z = direction * g.cfg.LandSpeed
	g.publish(g.goal, g.velocitySetpoint, g.yawSetpoint, g.yawSpeedSetpoint)

	if g.exploration.Active {
		g.landingRadius = 0.5
	}

	monitoring.Debugf("[wpg] altitude change %.2f %.2f, radius xy %.2f z %.2f",
		g.goal.X, g.goal.Y,
		g.goal.XYDistance(g.position), absDiff(g.position.Z, g.groundElevation))

	if g.withinLandingRadius() && g.inVerticalRange() && g.isLandingWaypoint {
		g.startSeqLandingDecision = g.gridSeq
		return TransitionNext1
	}
	return TransitionRepeat
}

// runLoiter holds the pose captured on entry, accumulates landing evidence
// over the smoothing window, and once the decision window has elapsed
// finalizes a verdict exactly once per visit. Approval commits to LAND; a
// rejection picks the next exploration goal and retreats to GOTO.
func (g *WaypointGenerator) runLoiter() Transition {
	if g.prevState != StateLoiter {
		g.loiterPosition = g.position
		g.loiterYaw = g.yaw
	}

	g.filter.Update(g.grid)

	if !g.decisionTaken && absInt64(g.gridSeq-g.startSeqLandingDecision) > g.cfg.DecisionWindowTicks {
		g.canLand = g.filter.Decide(g.canLand)
		g.decisionTaken = true
	}

	g.publish(g.loiterPosition, UnconstrainedVec3(), g.loiterYaw, NaN32())

	if g.decisionTaken && g.canLand {
		return TransitionNext1
	}
	if g.decisionTaken && !g.canLand {
		if !g.exploration.Active {
			g.exploration.Activate(g.loiterPosition)
		}
		g.goal = g.exploration.NextGoal(g.cfg.SpiralWidth, g.cfg.SmoothingLandCells, g.grid.CellSize)
		g.velocitySetpoint = UnconstrainedVec3()
		return TransitionNext2
	}
	return TransitionRepeat
}

// runLand descends continuously at LandSpeed over the held loiter pose.
// Terminal: touchdown detection belongs to the host.
func (g *WaypointGenerator) runLand() Transition {
	g.loiterPosition.Z = NaN32()
	vel := UnconstrainedVec3()
	vel.Z = -g.cfg.LandSpeed
	g.publish(g.loiterPosition, vel, g.loiterYaw, NaN32())
	return TransitionRepeat
}

// withinLandingRadius reports whether the vehicle is horizontally within the
// active capture radius of the goal.
func (g *WaypointGenerator) withinLandingRadius() bool {
	return g.goal.XYDistance(g.position) < g.landingRadius
}

// inVerticalRange reports whether the hover height sits within the capture
// band around LoiterHeight above the ground estimate.
func (g *WaypointGenerator) inVerticalRange() bool {
	return absDiff(g.position.Z, g.groundElevation+g.cfg.LoiterHeight) < g.cfg.VerticalRangeError
}

func (g *WaypointGenerator) publish(position, velocity Vec3, yaw, yawSpeed float32) {
	g.last = Setpoint{Position: position, Velocity: velocity, Yaw: yaw, YawSpeed: yawSpeed}
	g.publishSetpoint(position, velocity, yaw, yawSpeed)
}

func absDiff(a, b float32) float32 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
