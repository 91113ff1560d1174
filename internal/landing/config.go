package landing

import (
	"fmt"

	"github.com/perch-aero/safeland/internal/config"
)

// PlannerConfig collects the tunable parameters of the waypoint generator.
// Build one with DefaultPlannerConfig or PlannerConfigFromTuning and validate
// it before constructing a WaypointGenerator.
type PlannerConfig struct {
	// Landability hysteresis
	SmoothingLandCells  int     // window half-width in cells (default: 6)
	CanLandThreshold    float32 // per-cell score required to approve (default: 0.4)
	HysteresisBeta      float32 // EMA smoothing factor in [0, 1) (default: 0.9)
	DecisionWindowTicks int64   // ticks of evidence before a verdict (default: 20)

	// Approach geometry
	LandingRadius      float32 // horizontal capture radius in metres (default: 2.0)
	VerticalRangeError float32 // vertical capture band in metres (default: 0.5)
	LoiterHeight       float32 // target hover height above ground (default: 3.0)
	LandSpeed          float32 // fixed vertical speed magnitude (default: 0.7)

	// Exploration
	SpiralWidth float32 // base width of the escape pattern (default: 2.0)
}

// DefaultPlannerConfig returns a PlannerConfig loaded from the canonical
// tuning defaults file (config/tuning.defaults.json). Panics if the file
// cannot be found — intended for tests and binaries that have already
// validated config availability.
func DefaultPlannerConfig() *PlannerConfig {
	return PlannerConfigFromTuning(config.MustLoadDefaultConfig())
}

// PlannerConfigFromTuning builds a PlannerConfig from a loaded TuningConfig.
// Use this in production code where the TuningConfig is already loaded.
func PlannerConfigFromTuning(cfg *config.TuningConfig) *PlannerConfig {
	return &PlannerConfig{
		SmoothingLandCells:  cfg.GetSmoothingLandCells(),
		CanLandThreshold:    float32(cfg.GetCanLandThreshold()),
		HysteresisBeta:      float32(cfg.GetHysteresisBeta()),
		DecisionWindowTicks: int64(cfg.GetDecisionWindowTicks()),
		LandingRadius:       float32(cfg.GetLandingRadius()),
		VerticalRangeError:  float32(cfg.GetVerticalRangeError()),
		LoiterHeight:        float32(cfg.GetLoiterHeight()),
		LandSpeed:           float32(cfg.GetLandSpeed()),
		SpiralWidth:         float32(cfg.GetSpiralWidth()),
	}
}

// Validate checks if the configuration is valid. Returns an error if any
// parameter is out of acceptable range.
func (c *PlannerConfig) Validate() error {
	if c.SmoothingLandCells < 0 {
		return fmt.Errorf("SmoothingLandCells must be non-negative, got %d", c.SmoothingLandCells)
	}
	if c.CanLandThreshold < 0 || c.CanLandThreshold > 1 {
		return fmt.Errorf("CanLandThreshold must be in [0, 1], got %f", c.CanLandThreshold)
	}
	if c.HysteresisBeta < 0 || c.HysteresisBeta >= 1 {
		return fmt.Errorf("HysteresisBeta must be in [0, 1), got %f", c.HysteresisBeta)
	}
	if c.DecisionWindowTicks <= 0 {
		return fmt.Errorf("DecisionWindowTicks must be positive, got %d", c.DecisionWindowTicks)
	}
	if c.LandingRadius <= 0 {
		return fmt.Errorf("LandingRadius must be positive, got %f", c.LandingRadius)
	}
	if c.VerticalRangeError <= 0 {
		return fmt.Errorf("VerticalRangeError must be positive, got %f", c.VerticalRangeError)
	}
	if c.LoiterHeight < 0 {
		return fmt.Errorf("LoiterHeight must be non-negative, got %f", c.LoiterHeight)
	}
	if c.LandSpeed <= 0 {
		return fmt.Errorf("LandSpeed must be positive, got %f", c.LandSpeed)
	}
	if c.SpiralWidth <= 0 {
		return fmt.Errorf("SpiralWidth must be positive, got %f", c.SpiralWidth)
	}
	return nil
}
