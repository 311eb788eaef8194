// Package ohm implements the Occupancy Map: the container that ties key/region geometry, voxel
// layout, region storage, the compression queue and a ray mapper together into the single object a
// caller constructs and integrates rays into (spec.md §3, §4.4–§4.5). It is grounded on the
// teacher's octree package, which plays the same "top-level container gluing storage and geometry
// together" role for a point-cloud-derived tree.
package ohm

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ohmcore/ohm/logging"
	"github.com/ohmcore/ohm/ohmfilter"
	"github.com/ohmcore/ohm/ohmmapper"
)

// MapConfig is the constructor argument for New: a plain, validated struct rather than a
// process-level config/flag library, since building a Map is a library call, not a CLI concern
// (spec.md §1's Non-goals exclude a CLI).
type MapConfig struct {
	// Origin is the world-space centre of region {0,0,0}.
	Origin r3.Vector
	// Resolution is the edge length of one voxel, in metres. Must be > 0.
	Resolution float64
	// RegionVoxelDim is the per-axis voxel count of one region. Each axis must be > 0.
	RegionVoxelDim [3]uint8

	// Ndt enables the NDT Ray Mapper (spec.md §4.8) instead of the plain Occupancy Ray Mapper.
	// NdtParams is only consulted when Ndt is true.
	Ndt       bool
	Params    ohmmapper.Params
	NdtParams ohmmapper.NdtParams

	// Filter overrides the ray filter applied before integration (spec.md §6). Defaults to
	// ohmfilter.Default (NaN/Inf rejection) when nil.
	Filter ohmfilter.Filter

	// HighTide and LowTide are the compression queue's watermarks, in resident bytes (spec.md
	// §4.6). HighTide == 0 disables background compression entirely (an unbounded resident
	// footprint), which is the zero-value default so a Map works without a caller opting in.
	HighTide int64
	LowTide  int64

	// Logger receives lifecycle events: region creation, compression failures, serializer
	// progress. Defaults to a no-op logger when nil.
	Logger logging.Logger
}

// Validate checks cfg for the invariants New requires, returning a *ConfigError describing the
// first violation found.
func (cfg MapConfig) Validate() error {
	if cfg.Resolution <= 0 {
		return newConfigError("resolution must be > 0, got %v", cfg.Resolution)
	}
	for axis, d := range cfg.RegionVoxelDim {
		if d == 0 {
			return newConfigError("region_voxel_dim[%d] must be > 0", axis)
		}
	}
	if cfg.LowTide > cfg.HighTide {
		return newConfigError("low_tide (%d) must be <= high_tide (%d)", cfg.LowTide, cfg.HighTide)
	}
	if cfg.LowTide < 0 || cfg.HighTide < 0 {
		return newConfigError("watermarks must be >= 0")
	}
	return nil
}

func newConfigError(format string, args ...interface{}) error {
	return &ConfigError{Err: errors.Errorf(format, args...)}
}

// ConfigError reports a MapConfig that failed Validate, part of the bad-input error taxonomy
// (spec.md §7).
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "ohm: invalid config: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }
