package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for landing-planner tuning
// parameters. Fields are pointers so a partial JSON file only overrides what
// it names; the Get* accessors supply defaults for everything else.
type TuningConfig struct {
	// Landability hysteresis params
	SmoothingLandCells  *int     `json:"smoothing_land_cells,omitempty"`
	CanLandThreshold    *float64 `json:"can_land_threshold,omitempty"`
	HysteresisBeta      *float64 `json:"hysteresis_beta,omitempty"`
	DecisionWindowTicks *int     `json:"decision_window_ticks,omitempty"`

	// Approach geometry params
	LandingRadius      *float64 `json:"landing_radius,omitempty"`
	VerticalRangeError *float64 `json:"vertical_range_error,omitempty"`
	LoiterHeight       *float64 `json:"loiter_height,omitempty"`
	LandSpeed          *float64 `json:"land_speed,omitempty"`

	// Exploration params
	SpiralWidth *float64 `json:"spiral_width,omitempty"`

	// Diagnostics
	DebugTraces *bool `json:"debug_traces,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so partial
// configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath. It searches for the file in the current directory and
// common parent directories. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/landing/*
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SmoothingLandCells != nil && *c.SmoothingLandCells < 0 {
		return fmt.Errorf("smoothing_land_cells must be non-negative, got %d", *c.SmoothingLandCells)
	}
	if c.CanLandThreshold != nil {
		if *c.CanLandThreshold < 0 || *c.CanLandThreshold > 1 {
			return fmt.Errorf("can_land_threshold must be between 0 and 1, got %f", *c.CanLandThreshold)
		}
	}
	if c.HysteresisBeta != nil {
		if *c.HysteresisBeta < 0 || *c.HysteresisBeta >= 1 {
			return fmt.Errorf("hysteresis_beta must be in [0, 1), got %f", *c.HysteresisBeta)
		}
	}
	if c.DecisionWindowTicks != nil && *c.DecisionWindowTicks <= 0 {
		return fmt.Errorf("decision_window_ticks must be positive, got %d", *c.DecisionWindowTicks)
	}
	if c.LandingRadius != nil && *c.LandingRadius <= 0 {
		return fmt.Errorf("landing_radius must be positive, got %f", *c.LandingRadius)
	}
	if c.VerticalRangeError != nil && *c.VerticalRangeError <= 0 {
		return fmt.Errorf("vertical_range_error must be positive, got %f", *c.VerticalRangeError)
	}
	if c.LoiterHeight != nil && *c.LoiterHeight < 0 {
		return fmt.Errorf("loiter_height must be non-negative, got %f", *c.LoiterHeight)
	}
	if c.LandSpeed != nil && *c.LandSpeed <= 0 {
		return fmt.Errorf("land_speed must be positive, got %f", *c.LandSpeed)
	}
	if c.SpiralWidth != nil && *c.SpiralWidth <= 0 {
		return fmt.Errorf("spiral_width must be positive, got %f", *c.SpiralWidth)
	}
	return nil
}

// GetSmoothingLandCells returns the smoothing_land_cells value or the default.
func (c *TuningConfig) GetSmoothingLandCells() int {
	if c.SmoothingLandCells == nil {
		return 6
	}
	return *c.SmoothingLandCells
}

// GetCanLandThreshold returns the can_land_threshold value or the default.
func (c *TuningConfig) GetCanLandThreshold() float64 {
	if c.CanLandThreshold == nil {
		return 0.4
	}
	return *c.CanLandThreshold
}

// GetHysteresisBeta returns the hysteresis_beta value or the default.
func (c *TuningConfig) GetHysteresisBeta() float64 {
	if c.HysteresisBeta == nil {
		return 0.9
	}
	return *c.HysteresisBeta
}

// GetDecisionWindowTicks returns the decision_window_ticks value or the default.
func (c *TuningConfig) GetDecisionWindowTicks() int {
	if c.DecisionWindowTicks == nil {
		return 20
	}
	return *c.DecisionWindowTicks
}

// GetLandingRadius returns the landing_radius value or the default.
func (c *TuningConfig) GetLandingRadius() float64 {
	if c.LandingRadius == nil {
		return 2.0
	}
	return *c.LandingRadius
}

// GetVerticalRangeError returns the vertical_range_error value or the default.
func (c *TuningConfig) GetVerticalRangeError() float64 {
	if c.VerticalRangeError == nil {
		return 0.5
	}
	return *c.VerticalRangeError
}

// GetLoiterHeight returns the loiter_height value or the default.
func (c *TuningConfig) GetLoiterHeight() float64 {
	if c.LoiterHeight == nil {
		return 3.0
	}
	return *c.LoiterHeight
}

// GetLandSpeed returns the land_speed value or the default.
func (c *TuningConfig) GetLandSpeed() float64 {
	if c.LandSpeed == nil {
		return 0.7
	}
	return *c.LandSpeed
}

// GetSpiralWidth returns the spiral_width value or the default.
func (c *TuningConfig) GetSpiralWidth() float64 {
	if c.SpiralWidth == nil {
		return 2.0
	}
	return *c.SpiralWidth
}

// GetDebugTraces returns the debug_traces value or the default.
func (c *TuningConfig) GetDebugTraces() bool {
	if c.DebugTraces == nil {
		return false
	}
	return *c.DebugTraces
}
