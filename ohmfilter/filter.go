// Package ohmfilter implements the Ray Filter callback contract (spec.md §6): a hook invoked once
// per ray, before walking, that may shorten either endpoint, tag flags, or reject the ray outright.
// Grounded on the teacher's PointCloud filtering idiom (pointcloud/rounding.go wraps one
// implementation to adjust geometry before storage); here the same "adjust-then-accept-or-reject"
// shape is generalized to a per-ray callback instead of a whole-cloud decorator.
package ohmfilter

import (
	"math"

	"github.com/golang/geo/r3"
)

// Flags is the per-ray flag word the filter and the ray mapper exchange.
type Flags uint32

// Flag bits recognized by the ray mappers, per spec.md §6.
const (
	ExcludeRay     Flags = 1 << 0 // skip miss updates on interior voxels
	ExcludeSample  Flags = 1 << 1 // treat end voxel as miss, no hit update
	EndPointAsFree Flags = 1 << 2 // end voxel contributes to miss rather than hit
	ClippedEnd     Flags = 1 << 3 // filter signal: end was clipped to range
)

// Filter may shorten start or end in place, set bits in flags, and returns false to drop the ray
// entirely. The engine guarantees at most one invocation per ray before walking.
type Filter func(start, end *r3.Vector, flags *Flags) bool

// Default rejects any ray whose origin or sample contains a NaN or infinite component, and accepts
// every other ray unmodified. This is the engine's built-in bad-input guard (spec.md §7: "Per-ray
// NaN/inf is detected by the Ray Filter's default implementation and rejected").
func Default(start, end *r3.Vector, flags *Flags) bool {
	return isFinite(*start) && isFinite(*end)
}

func isFinite(v r3.Vector) bool {
	return isFiniteComponent(v.X) && isFiniteComponent(v.Y) && isFiniteComponent(v.Z)
}

func isFiniteComponent(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Chain returns a Filter that runs each of filters in order, short-circuiting on the first
// rejection. Flags accumulate across every filter that ran before the rejection (or across all of
// them, on acceptance).
func Chain(filters ...Filter) Filter {
	return func(start, end *r3.Vector, flags *Flags) bool {
		for _, f := range filters {
			if !f(start, end, flags) {
				return false
			}
		}
		return true
	}
}
