// Package ohmray implements the Line Walker: the Amanatides-Woo voxel traversal algorithm that
// yields the ordered sequence of voxel keys a ray segment crosses. It has no direct teacher
// analogue (the teacher repo has no grid-traversal code); it is grounded on spec.md §4.5's own
// fully-specified algorithm description, written in the numeric, invariant-driven style the
// teacher uses for its own geometry helpers (see pointcloud/rounding.go).
package ohmray

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/ohmcore/ohm/ohmkey"
)

// Visit describes one voxel crossed by a walked ray segment.
type Visit struct {
	Key   ohmkey.Key
	Entry float64
	Exit  float64
	IsEnd bool
}

// Visitor is called once per voxel crossed, in travel order. Returning false stops the walk early;
// IsEnd is only ever true on the last Visit a walk delivers, whether the walk stopped early or
// completed.
type Visitor func(v Visit) bool

const degenerateLengthFactor = 1e-3

// Walk traverses geom's voxel grid from the voxel containing start to the voxel containing end,
// inclusive, invoking visit for each crossed voxel in travel order.
func Walk(geom ohmkey.Geometry, start, end r3.Vector, visit Visitor) {
	startKey := geom.VoxelKey(start)
	endKey := geom.VoxelKey(end)

	dir := end.Sub(start)
	lengthSq := dir.Dot(dir)
	resolution := geom.Resolution

	if lengthSq < degenerateLengthFactor*resolution*resolution {
		if startKey.IsEqual(endKey) {
			visit(Visit{Key: startKey, Entry: 0, Exit: 0, IsEnd: true})
			return
		}
		// Degenerate but the keys differ (can happen right at a region/voxel boundary): fall back
		// to the key-lattice direction so every axis still gets a sensible step sign.
		dir = latticeDirection(startKey, endKey)
		lengthSq = dir.Dot(dir)
	}

	length := math.Sqrt(lengthSq)

	var step [3]int64
	var tDelta, tMax, tLimit [3]float64

	startLocal := [3]float64{
		axisComponent(start, 0),
		axisComponent(start, 1),
		axisComponent(start, 2),
	}
	// Unit direction components, so t_max, t_delta and t_limit all measure distance along the ray.
	dirAxis := [3]float64{dir.X / length, dir.Y / length, dir.Z / length}

	for i := 0; i < 3; i++ {
		if dirAxis[i] == 0 {
			step[i] = 0
			tDelta[i] = math.Inf(1)
			tMax[i] = math.Inf(1)
			tLimit[i] = 0
			continue
		}

		if dirAxis[i] > 0 {
			step[i] = 1
		} else {
			step[i] = -1
		}
		tDelta[i] = resolution / math.Abs(dirAxis[i])
		tLimit[i] = length

		voxelCentre := geom.VoxelCentre(startKey)
		voxelCentreAxis := axisComponent(voxelCentre, i)
		nextBorder := voxelCentreAxis + float64(step[i])*0.5*resolution
		tMax[i] = (nextBorder - startLocal[i]) / dirAxis[i]
	}

	current := startKey
	entry := 0.0

	for {
		if current.IsEqual(endKey) {
			visit(Visit{Key: current, Entry: entry, Exit: length, IsEnd: true})
			return
		}

		axis := argMinTMax(tMax)
		if tMax[axis] > tLimit[axis] && tLimit[axis] != 0 {
			// Safety-net termination: the walk overshot t_limit without landing exactly on endKey
			// (a floating-point edge case at the end of a ray). spec.md §4.5 requires the mandatory
			// final visit to be endKey regardless, since callers key their hit update on IsEnd.
			visit(Visit{Key: endKey, Entry: entry, Exit: length, IsEnd: true})
			return
		}

		exit := tMax[axis]
		if !visit(Visit{Key: current, Entry: entry, Exit: exit, IsEnd: false}) {
			return
		}

		current = geom.Step(current, ohmkey.Axis(axis), step[axis])
		entry = exit
		tMax[axis] += tDelta[axis]
	}
}

func argMinTMax(tMax [3]float64) int {
	best := 0
	for i := 1; i < 3; i++ {
		if tMax[i] < tMax[best] {
			best = i
		} else if tMax[i] == tMax[best] {
			// Tie-break in axis order X, Y, Z (spec.md §4.5): keep the lower index, which is
			// already `best` since axes are visited in increasing order above.
			continue
		}
	}
	return best
}

func axisComponent(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func latticeDirection(a, b ohmkey.Key) r3.Vector {
	out := r3.Vector{}
	if a.RegionAxis(ohmkey.AxisX) != b.RegionAxis(ohmkey.AxisX) || a.LocalAxis(ohmkey.AxisX) != b.LocalAxis(ohmkey.AxisX) {
		out.X = 1
	}
	if a.RegionAxis(ohmkey.AxisY) != b.RegionAxis(ohmkey.AxisY) || a.LocalAxis(ohmkey.AxisY) != b.LocalAxis(ohmkey.AxisY) {
		out.Y = 1
	}
	if a.RegionAxis(ohmkey.AxisZ) != b.RegionAxis(ohmkey.AxisZ) || a.LocalAxis(ohmkey.AxisZ) != b.LocalAxis(ohmkey.AxisZ) {
		out.Z = 1
	}
	if out.X == 0 && out.Y == 0 && out.Z == 0 {
		out.X = 1
	}
	return out
}

// Collect runs Walk and returns every visited Visit in order. Convenience wrapper for tests and
// small ray counts; hot paths should use Walk directly with a Visitor to avoid the allocation.
func Collect(geom ohmkey.Geometry, start, end r3.Vector) []Visit {
	var out []Visit
	Walk(geom, start, end, func(v Visit) bool {
		out = append(out, v)
		return true
	})
	return out
}
