package ohmkey

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Geometry holds the region-lattice parameters shared by every key operation against one map:
// the map origin, voxel edge length (resolution), and region voxel dimensions. It is the Go
// analogue of the per-map parameters spec.md §3 "Region Geometry" describes.
type Geometry struct {
	Origin         r3.Vector
	Resolution     float64
	RegionVoxelDim [3]uint8
}

// NewGeometry validates and constructs a Geometry. Each RegionVoxelDim axis must be in [1,255]
// (spec.md §3) and Resolution must be positive.
func NewGeometry(origin r3.Vector, resolution float64, regionVoxelDim [3]uint8) (Geometry, error) {
	if resolution <= 0 {
		return Geometry{}, errors.New("ohmkey: resolution must be > 0")
	}
	for i, d := range regionVoxelDim {
		if d == 0 {
			return Geometry{}, errors.Errorf("ohmkey: region_voxel_dim[%d] must be >= 1", i)
		}
	}
	return Geometry{Origin: origin, Resolution: resolution, RegionVoxelDim: regionVoxelDim}, nil
}

// RegionSpatialDim returns region_voxel_dim * resolution, the world-space extent of one region.
func (g Geometry) RegionSpatialDim() r3.Vector {
	return r3.Vector{
		X: float64(g.RegionVoxelDim[0]) * g.Resolution,
		Y: float64(g.RegionVoxelDim[1]) * g.Resolution,
		Z: float64(g.RegionVoxelDim[2]) * g.Resolution,
	}
}

// RegionCentre returns the world-space centre of the given region coordinate:
// origin + region_spatial_dim * (rx, ry, rz).
func (g Geometry) RegionCentre(r RegionCoord) r3.Vector {
	dim := g.RegionSpatialDim()
	return r3.Vector{
		X: g.Origin.X + dim.X*float64(r.X),
		Y: g.Origin.Y + dim.Y*float64(r.Y),
		Z: g.Origin.Z + dim.Z*float64(r.Z),
	}
}

// VoxelCountPerRegion returns the total number of voxels in one region.
func (g Geometry) VoxelCountPerRegion() int {
	return int(g.RegionVoxelDim[0]) * int(g.RegionVoxelDim[1]) * int(g.RegionVoxelDim[2])
}

// VoxelCentre returns the world-space centre of the voxel addressed by k.
func (g Geometry) VoxelCentre(k Key) r3.Vector {
	return VoxelCentre(k, g.Origin, g.Resolution, g.RegionSpatialDim())
}

// VoxelKey returns the key of the voxel containing world.
func (g Geometry) VoxelKey(world r3.Vector) Key {
	return VoxelKey(world, g.Origin, g.Resolution, g.RegionVoxelDim, g.RegionSpatialDim())
}

// Step moves key by delta voxels along axis, carrying between local and region as needed.
func (g Geometry) Step(k Key, axis Axis, delta int64) Key {
	return Step(k, axis, delta, g.RegionVoxelDim[axis])
}

// StepAll moves key by (dx, dy, dz) voxels.
func (g Geometry) StepAll(k Key, dx, dy, dz int64) Key {
	return StepAll(k, dx, dy, dz, g.RegionVoxelDim)
}

// RangeBetween returns the signed per-axis voxel count from a to b.
func (g Geometry) RangeBetween(a, b Key) ([3]int64, error) {
	return RangeBetween(a, b, g.RegionVoxelDim)
}

// LocalIndex returns the flattened index of key's local coordinate into a region's voxel block,
// in X-major, then Y, then Z order (matching the canonical layer byte layout in ohmlayout).
func (g Geometry) LocalIndex(k Key) int {
	dim := g.RegionVoxelDim
	x, y, z := int(k.Local[0]), int(k.Local[1]), int(k.Local[2])
	return x + y*int(dim[0]) + z*int(dim[0])*int(dim[1])
}
