// Command safeland runs the landing waypoint generator against a synthetic
// terrain scenario, optionally persisting the run to a SQLite mission log and
// rendering an HTML report of scores and the flown track.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/perch-aero/safeland/internal/config"
	"github.com/perch-aero/safeland/internal/landing"
	"github.com/perch-aero/safeland/internal/landing/missionlog"
	"github.com/perch-aero/safeland/internal/landing/monitor"
	"github.com/perch-aero/safeland/internal/monitoring"
)

var (
	scenario     = flag.String("scenario", "flat", "terrain scenario: flat, blocked, crater, rough")
	gridSize     = flag.Int("grid-size", 21, "terrain grid cells per side")
	cellSize     = flag.Float64("cell-size", 1.0, "terrain grid cell size in metres")
	hazardRadius = flag.Float64("hazard-radius", 6.0, "unlandable radius around the origin (crater scenario)")
	maxTicks     = flag.Int64("ticks", 400, "maximum control ticks to run")
	tickRate     = flag.Duration("rate", 0, "wall-clock delay between ticks (0 runs flat out)")
	startAlt     = flag.Float64("start-alt", 12.0, "initial vehicle altitude in metres")
	tuningPath   = flag.String("tuning", "", "path to a tuning JSON file (default built-in tuning)")
	dbFile       = flag.String("db", "", "SQLite mission log path (empty disables persistence)")
	reportFile   = flag.String("report", "", "HTML report output path (empty disables the report)")
	label        = flag.String("label", "", "run label for the mission log (default scenario name)")
	debug        = flag.Bool("debug", false, "enable per-tick debug traces")
)

const simStep = 0.1 // seconds of simulated time per tick

// terrainField maps a world XY position to (landability, height).
type terrainField func(x, y float32) (float32, float32)

func fieldForScenario(name string) (terrainField, error) {
	switch name {
	case "flat":
		return func(x, y float32) (float32, float32) { return 1, 0 }, nil
	case "blocked":
		return func(x, y float32) (float32, float32) { return 0, 0 }, nil
	case "crater":
		r := float32(*hazardRadius)
		return func(x, y float32) (float32, float32) {
			if x*x+y*y < r*r {
				return 0, 1.5
			}
			return 1, 0
		}, nil
	case "rough":
		return func(x, y float32) (float32, float32) {
			// Deterministic cell hash so runs are repeatable.
			h := uint32(int32(x))*2654435761 ^ uint32(int32(y))*40503
			h ^= h >> 13
			land := float32(0)
			if h%10 < 7 {
				land = 1
			}
			return land, float32(h%100) / 100.0
		}, nil
	}
	return nil, fmt.Errorf("unknown scenario %q", name)
}

// sampleGrid builds the terrain snapshot centered under the vehicle.
func sampleGrid(field terrainField, center landing.Vec3, size int, cell float32) *landing.TerrainGrid {
	grid := landing.NewTerrainGrid(size, cell)
	half := size / 2
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			x := center.X + float32(i-half)*cell
			y := center.Y + float32(j-half)*cell
			land, height := field(x, y)
			grid.Land[grid.Idx(i, j)] = land
			grid.Height[grid.Idx(i, j)] = height
		}
	}
	return grid
}

// stepVehicle advances the simulated vehicle toward the published setpoint.
// Finite velocity axes integrate directly; otherwise finite position axes are
// approached at cruise speed.
func stepVehicle(pos landing.Vec3, sp landing.Setpoint) landing.Vec3 {
	const cruise = 3.0 // m/s
	step := func(p, target, vel float32) float32 {
		if !math.IsNaN(float64(vel)) {
			return p + vel*simStep
		}
		if math.IsNaN(float64(target)) {
			return p
		}
		d := target - p
		limit := float32(cruise * simStep)
		if d > limit {
			d = limit
		} else if d < -limit {
			d = -limit
		}
		return p + d
	}
	return landing.Vec3{
		X: step(pos.X, sp.Position.X, sp.Velocity.X),
		Y: step(pos.Y, sp.Position.Y, sp.Velocity.Y),
		Z: step(pos.Z, sp.Position.Z, sp.Velocity.Z),
	}
}

func loadPlannerConfig() (*landing.PlannerConfig, bool, error) {
	// The accessor defaults match config/tuning.defaults.json, so the binary
	// runs without a tuning file from any working directory.
	if *tuningPath == "" {
		tuning := config.EmptyTuningConfig()
		return landing.PlannerConfigFromTuning(tuning), tuning.GetDebugTraces(), nil
	}
	tuning, err := config.LoadTuningConfig(*tuningPath)
	if err != nil {
		return nil, false, err
	}
	return landing.PlannerConfigFromTuning(tuning), tuning.GetDebugTraces(), nil
}

func main() {
	flag.Parse()

	field, err := fieldForScenario(*scenario)
	if err != nil {
		log.Fatalf("bad scenario: %v", err)
	}
	cfg, debugTraces, err := loadPlannerConfig()
	if err != nil {
		log.Fatalf("load tuning: %v", err)
	}
	monitoring.SetDebug(*debug || debugTraces)

	runLabel := *label
	if runLabel == "" {
		runLabel = *scenario
	}

	var store *missionlog.Store
	var runID string
	if *dbFile != "" {
		store, err = missionlog.Open(*dbFile)
		if err != nil {
			log.Fatalf("open mission log: %v", err)
		}
		defer store.Close()
		runID, err = store.BeginRun(runLabel)
		if err != nil {
			log.Fatalf("begin run: %v", err)
		}
		log.Printf("mission log run %s", runID)
	}

	rec := monitor.NewRecorder(runLabel)

	gen, err := landing.NewWaypointGenerator(cfg, nil)
	if err != nil {
		log.Fatalf("configure generator: %v", err)
	}

	pos := landing.Vec3{X: 0, Y: 0, Z: float32(*startAlt)}
	goal := landing.Vec3{X: 0, Y: 0, Z: 0}
	yaw := float32(0)
	decisions := 0
	lastDecided := false
	stateTicks := map[landing.GPState]int64{}

	ticks := int64(0)
	for ; ticks < *maxTicks; ticks++ {
		grid := sampleGrid(field, pos, *gridSize, float32(*cellSize))
		prevState := gen.State()

		gen.Tick(landing.TickInput{
			Position:          pos,
			Yaw:               yaw,
			Goal:              goal,
			IsLandingWaypoint: true,
			VelocitySetpoint:  landing.UnconstrainedVec3(),
			YawSpeedSetpoint:  landing.NaN32(),
			Grid:              grid,
			GridSeq:           ticks,
		})

		sp := gen.LastSetpoint()
		stateTicks[prevState]++
		if store != nil {
			if gen.State() != prevState {
				if err := store.RecordTransition(runID, ticks, prevState, gen.State()); err != nil {
					log.Printf("record transition: %v", err)
				}
			}
			if err := store.RecordSetpoint(runID, ticks, gen.State(), sp); err != nil {
				log.Printf("record setpoint: %v", err)
			}
		}

		if gen.DecisionTaken() && !lastDecided {
			decisions++
			log.Printf("decision at seq %d: can_land=%v", ticks, gen.CanLand())
			if store != nil {
				scores := gen.Filter().Scores()
				if err := store.RecordDecision(runID, ticks, gen.CanLand(), false, scores); err != nil {
					log.Printf("record decision: %v", err)
				}
			}
		}
		lastDecided = gen.DecisionTaken()

		// A rejected site hands a fresh exploration goal back through the
		// controller; adopt it as the next mission goal. Only XY is compared
		// because the controller leaves the goal altitude unconstrained (NaN).
		if gen.Goal().X != goal.X || gen.Goal().Y != goal.Y {
			goal = gen.Goal()
			if gen.Exploration().Active {
				rec.ObserveGoal(goal)
				log.Printf("exploring toward %.1f %.1f", goal.X, goal.Y)
			}
		}

		rec.Observe(ticks, gen, pos)
		pos = stepVehicle(pos, sp)
		if !math.IsNaN(float64(sp.Yaw)) {
			yaw = sp.Yaw
		}

		if gen.State() == landing.StateLand && pos.Z <= 0.05 {
			log.Printf("touched down at %.2f %.2f after %d ticks", pos.X, pos.Y, ticks+1)
			ticks++
			break
		}
		if *tickRate > 0 {
			time.Sleep(*tickRate)
		}
	}

	log.Printf("run complete: scenario=%s ticks=%d final=%s decisions=%d pos=(%.2f, %.2f, %.2f)",
		*scenario, ticks, gen.State(), decisions, pos.X, pos.Y, pos.Z)
	for _, state := range []landing.GPState{landing.StateGoTo, landing.StateAltitudeChange, landing.StateLoiter, landing.StateLand} {
		if n := stateTicks[state]; n > 0 {
			log.Printf("  %s: %d ticks", state, n)
		}
	}

	if store != nil {
		if err := store.FinishRun(runID, gen.State(), ticks); err != nil {
			log.Printf("finish run: %v", err)
		}
	}
	if *reportFile != "" {
		if err := rec.WriteReportFile(*reportFile); err != nil {
			log.Fatalf("write report: %v", err)
		}
		log.Printf("report written to %s", *reportFile)
	}
}
