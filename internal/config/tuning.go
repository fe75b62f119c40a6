// Package config provides JSON-loadable tuning parameters for the gauge
// engine's numerical tolerances.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the tolerance defaults file. Nothing
// loads it implicitly: the built-in defaults used for unset fields are
// the zeros returned by GetParallelEpsilon and GetVerticalEpsilon, and
// the file spells out those same values.
const DefaultConfigPath = "config/tolerances.defaults.json"

// Tolerances represents the root configuration for the determination
// engine's numerical tolerances. All fields are optional pointers so a
// partial JSON document only overrides the fields it mentions; unset
// fields keep the distilled spec's exact, bitwise-strict behavior.
type Tolerances struct {
	// ParallelEpsilon is the maximum |Δvelocity| between two lines for
	// Line.Intersect to treat them as parallel (no intersection) even
	// when their velocities are not bitwise equal. Zero (the default)
	// reproduces the spec's exact-equality parallel check.
	ParallelEpsilon *float64 `json:"parallel_epsilon,omitempty"`

	// VerticalEpsilon, if positive, makes Line.Intersect treat any line
	// whose |velocity| exceeds 1/VerticalEpsilon as near-vertical and
	// short-circuit to the line's midpoint rather than dividing by its
	// (near-infinite) slope.
	// Zero (the default) means only a literal +/-Inf velocity triggers it.
	VerticalEpsilon *float64 `json:"vertical_epsilon,omitempty"`
}

// Helper functions to create pointers.
func ptrFloat64(v float64) *float64 { return &v }

// EmptyTolerances returns a Tolerances with all fields set to nil.
// Use LoadTolerances to load actual values from a defaults file.
func EmptyTolerances() *Tolerances {
	return &Tolerances{}
}

// LoadTolerances loads a Tolerances from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadTolerances(path string) (*Tolerances, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB).
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTolerances()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Tolerances) Validate() error {
	if c.ParallelEpsilon != nil && *c.ParallelEpsilon < 0 {
		return fmt.Errorf("parallel_epsilon must be non-negative, got %f", *c.ParallelEpsilon)
	}
	if c.VerticalEpsilon != nil && *c.VerticalEpsilon < 0 {
		return fmt.Errorf("vertical_epsilon must be non-negative, got %f", *c.VerticalEpsilon)
	}
	return nil
}

// GetParallelEpsilon returns the parallel_epsilon value or the default.
func (c *Tolerances) GetParallelEpsilon() float64 {
	if c.ParallelEpsilon == nil {
		return 0
	}
	return *c.ParallelEpsilon
}

// GetVerticalEpsilon returns the vertical_epsilon value or the default.
func (c *Tolerances) GetVerticalEpsilon() float64 {
	if c.VerticalEpsilon == nil {
		return 0
	}
	return *c.VerticalEpsilon
}

// Resolved returns the plain-value form of the tolerances, substituting
// defaults for any unset field. Gauge construction takes a Resolved value
// rather than a *Tolerances so the zero value of the struct is always the
// spec's exact-equality behavior.
type Resolved struct {
	ParallelEpsilon float64
	VerticalEpsilon float64
}

// Resolve fills in defaults for any unset pointer field.
func (c *Tolerances) Resolve() Resolved {
	if c == nil {
		return Resolved{}
	}
	return Resolved{
		ParallelEpsilon: c.GetParallelEpsilon(),
		VerticalEpsilon: c.GetVerticalEpsilon(),
	}
}
