// Package ohmkey implements the coordinate algebra over the hierarchical voxel address space used
// by the rest of the ohm packages: a Key addresses one voxel as a region coordinate plus a local
// offset within that region. The layout mirrors pointcloud.VoxelCoords in the teacher repo
// (three-axis integer coordinates keying a sparse map) generalized to the two-level region/local
// hierarchy described by the occupancy map's region geometry.
package ohmkey

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Axis identifies one of the three principal axes.
type Axis int

// The three principal axes, in the tie-break order used throughout this module.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// RegionCoord addresses a region in the region lattice. Each component is a signed 16-bit value,
// matching spec.md's "signed 16-bit triple identifying a region in region-lattice coordinates".
type RegionCoord struct {
	X, Y, Z int16
}

// IsEqual reports whether two region coordinates are identical.
func (r RegionCoord) IsEqual(o RegionCoord) bool {
	return r.X == o.X && r.Y == o.Y && r.Z == o.Z
}

// Key is the address of one voxel: a region coordinate plus a local offset within that region.
// The zero value is the null key (see IsNull).
type Key struct {
	Region RegionCoord
	Local  [3]uint8
	null   bool
}

// NullKey returns the sentinel invalid key.
func NullKey() Key {
	return Key{null: true}
}

// NewKey returns a bounded (valid) key for the given region and local coordinates.
func NewKey(region RegionCoord, local [3]uint8) Key {
	return Key{Region: region, Local: local}
}

// IsNull reports whether this is the sentinel invalid key.
func (k Key) IsNull() bool {
	return k.null
}

// IsBounded reports whether this is a valid (non-null) key.
func (k Key) IsBounded() bool {
	return !k.null
}

// IsEqual reports whether two keys address the same voxel.
func (k Key) IsEqual(o Key) bool {
	if k.null != o.null {
		return false
	}
	if k.null {
		return true
	}
	return k.Region.IsEqual(o.Region) && k.Local == o.Local
}

// LocalAxis returns the local coordinate along the given axis.
func (k Key) LocalAxis(axis Axis) uint8 {
	return k.Local[axis]
}

// RegionAxis returns the region coordinate along the given axis.
func (k Key) RegionAxis(axis Axis) int16 {
	switch axis {
	case AxisX:
		return k.Region.X
	case AxisY:
		return k.Region.Y
	default:
		return k.Region.Z
	}
}

func setRegionAxis(r *RegionCoord, axis Axis, v int16) {
	switch axis {
	case AxisX:
		r.X = v
	case AxisY:
		r.Y = v
	default:
		r.Z = v
	}
}

// Step moves key by delta voxels along axis, carrying into the region coordinate as needed. dim is
// the region's voxel extent along that axis (region_voxel_dim component). The implementation
// follows spec.md §4.1's true mathematical floor for negative results:
//
//	local.axis + delta < 0  =>  region.axis += (local.axis - (dim-1)) / dim
//	                             local.axis = ((local.axis % dim) + dim) % dim
func Step(k Key, axis Axis, delta int64, dim uint8) Key {
	if k.IsNull() {
		return k
	}
	out := k
	local := int64(k.LocalAxis(axis)) + delta
	regionDelta := int64(0)
	dimI := int64(dim)

	if local < 0 {
		regionDelta = (local - (dimI - 1)) / dimI
		local = ((local % dimI) + dimI) % dimI
	} else if local >= dimI {
		regionDelta = local / dimI
		local = local % dimI
	}

	setRegionAxis(&out.Region, axis, k.RegionAxis(axis)+int16(regionDelta))
	out.Local[axis] = uint8(local)
	return out
}

// StepAll moves key by (dx, dy, dz) voxels, carrying independently on each axis.
func StepAll(k Key, dx, dy, dz int64, dim [3]uint8) Key {
	k = Step(k, AxisX, dx, dim[0])
	k = Step(k, AxisY, dy, dim[1])
	k = Step(k, AxisZ, dz, dim[2])
	return k
}

// RangeBetween returns the signed per-axis voxel count from a to b (b - a in voxel units,
// including the region-lattice contribution). Both keys must be bounded and drawn from grids of
// the same voxel dimensions.
func RangeBetween(a, b Key, dim [3]uint8) ([3]int64, error) {
	if a.IsNull() || b.IsNull() {
		return [3]int64{}, errors.New("ohmkey: RangeBetween requires bounded keys")
	}
	var out [3]int64
	for i, axis := range []Axis{AxisX, AxisY, AxisZ} {
		regionDelta := int64(b.RegionAxis(axis)) - int64(a.RegionAxis(axis))
		out[i] = regionDelta*int64(dim[i]) + int64(b.LocalAxis(axis)) - int64(a.LocalAxis(axis))
	}
	return out, nil
}

// Bounded clamps key's local coordinate into [min, max] on each axis, without adjusting the
// region; it is used to keep a computed key within a single region's local index space.
func Bounded(k Key, min, max [3]uint8) Key {
	out := k
	for i := range out.Local {
		if out.Local[i] < min[i] {
			out.Local[i] = min[i]
		} else if out.Local[i] > max[i] {
			out.Local[i] = max[i]
		}
	}
	return out
}

// ClampToAxis clamps only the given axis's local coordinate into [min, max].
func ClampToAxis(k Key, axis Axis, min, max uint8) Key {
	out := k
	v := out.Local[axis]
	if v < min {
		v = min
	} else if v > max {
		v = max
	}
	out.Local[axis] = v
	return out
}

// Hash returns a hash of the key's region coordinate only, per spec.md §4.1 ("Hashing is on region
// only, collisions are handled by dictionary chaining"). Callers building a Go map keyed by
// RegionCoord get this behaviour for free since RegionCoord is a comparable struct; Hash is
// exposed for callers building custom sharded dictionaries.
func Hash(r RegionCoord) uint64 {
	// FNV-1a over the three 16-bit components, packed into a uint64.
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, v := range [3]int16{r.X, r.Y, r.Z} {
		h ^= uint64(uint16(v))
		h *= prime64
	}
	return h
}

// VoxelCentre returns the world-space centre of the voxel addressed by k.
func VoxelCentre(k Key, origin r3.Vector, resolution float64, regionSpatialDim r3.Vector) r3.Vector {
	regionCentre := r3.Vector{
		X: origin.X + regionSpatialDim.X*float64(k.Region.X),
		Y: origin.Y + regionSpatialDim.Y*float64(k.Region.Y),
		Z: origin.Z + regionSpatialDim.Z*float64(k.Region.Z),
	}
	regionMin := r3.Vector{
		X: regionCentre.X - 0.5*regionSpatialDim.X,
		Y: regionCentre.Y - 0.5*regionSpatialDim.Y,
		Z: regionCentre.Z - 0.5*regionSpatialDim.Z,
	}
	return r3.Vector{
		X: regionMin.X + (float64(k.Local[0])+0.5)*resolution,
		Y: regionMin.Y + (float64(k.Local[1])+0.5)*resolution,
		Z: regionMin.Z + (float64(k.Local[2])+0.5)*resolution,
	}
}

// VoxelKey returns the key of the voxel containing world, for a grid with the given geometry.
func VoxelKey(world r3.Vector, origin r3.Vector, resolution float64, regionVoxelDim [3]uint8, regionSpatialDim r3.Vector) Key {
	rel := world.Sub(origin)

	regionIdx := [3]float64{
		rel.X / regionSpatialDim.X,
		rel.Y / regionSpatialDim.Y,
		rel.Z / regionSpatialDim.Z,
	}

	var out Key
	for i, f := range regionIdx {
		// Region index is the floor of the (shifted-by-half) region-relative coordinate: region 0
		// spans [-spatialDim/2, spatialDim/2) around the origin on each axis.
		shifted := f + 0.5
		regionCoord := floorInt64(shifted)
		setRegionAxis(&out.Region, Axis(i), int16(regionCoord))

		regionMinAxis := (float64(regionCoord) - 0.5) * regionDimAxis(regionSpatialDim, i)
		localOffset := (relAxis(rel, i) - regionMinAxis) / resolution
		local := floorInt64(localOffset)
		if local < 0 {
			local = 0
		}
		dim := int64(regionVoxelDim[i])
		if local >= dim {
			local = dim - 1
		}
		out.Local[i] = uint8(local)
	}
	return out
}

func floorInt64(f float64) int64 {
	i := int64(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}

func relAxis(v r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func regionDimAxis(v r3.Vector, axis int) float64 {
	return relAxis(v, axis)
}
