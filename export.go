package ohm

import (
	"runtime"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/ohmcore/ohm/ohmblock"
	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
	"github.com/ohmcore/ohm/ohmmapper"
	"github.com/ohmcore/ohm/ohmregion"
)

// PointCloudPoint is one sample in a PointCloud export: a world-space position, plus the occupancy
// value of the voxel it came from.
type PointCloudPoint struct {
	Position r3.Vector
	Value    float32
}

// PointCloud exports the voxel-centre point cloud derived from the grid (spec.md §1's "secondary
// derived products"): one point per voxel whose occupancy value is at or above the map's
// occupancy threshold. When the mean layer is present its accumulated sample position is used in
// place of the voxel centre, giving a sub-voxel-accurate cloud. Regions are visited concurrently,
// bounded to GOMAXPROCS workers at once, via ohmregion.Dictionary.ForEachConcurrent, since each
// region's extraction is independent of every other's.
func (m *Map) PointCloud() []PointCloudPoint {
	occLayer, ok := m.Layout.Layer(ohmlayout.LayerOccupancy)
	if !ok {
		return nil
	}
	valueMember, _ := occLayer.Member(ohmlayout.MemberValue)

	meanLayer, hasMean := m.Layout.Layer(ohmlayout.LayerMean)
	var meanCoord, meanCount ohmlayout.Member
	if hasMean {
		var okCoord, okCount bool
		meanCoord, okCoord = meanLayer.Member(ohmlayout.MemberCoord)
		meanCount, okCount = meanLayer.Member(ohmlayout.MemberCount)
		hasMean = okCoord && okCount
	}

	var mu sync.Mutex
	var out []PointCloudPoint
	_ = m.Regions.ForEachConcurrent(runtime.GOMAXPROCS(0), func(coord ohmkey.RegionCoord, region *ohmregion.Region) error {
		if !region.HasValidVoxel() {
			return nil
		}
		occView, err := ohmblock.Acquire(region.Block(occLayer.Index))
		if err != nil {
			return nil
		}
		defer occView.Release()

		var meanView *ohmblock.View
		if hasMean {
			if v, err := ohmblock.Acquire(region.Block(meanLayer.Index)); err == nil {
				meanView = v
				defer meanView.Release()
			}
		}

		var regionPoints []PointCloudPoint
		count := m.Geometry.VoxelCountPerRegion()
		for local := 0; local < count; local++ {
			voxel := occView.VoxelBytes(local)
			value := ohmlayout.DecodeFloat32(voxel, valueMember)
			if ohmlayout.IsUnobserved(value) || value < m.params.OccupancyThresholdValue {
				continue
			}
			key := ohmkey.NewKey(coord, localToLocalCoord(local, m.Geometry.RegionVoxelDim))
			centre := m.Geometry.VoxelCentre(key)

			pos := centre
			if meanView != nil {
				meanVoxel := meanView.VoxelBytes(local)
				pos, _ = ohmmapper.DecodeMeanVoxel(meanVoxel, meanCoord, meanCount, centre, m.Geometry.Resolution)
			}
			regionPoints = append(regionPoints, PointCloudPoint{Position: pos, Value: value})
		}

		if len(regionPoints) > 0 {
			mu.Lock()
			out = append(out, regionPoints...)
			mu.Unlock()
		}
		return nil
	})
	return out
}

// HeightmapCell is one occupied column in a Heightmap export.
type HeightmapCell struct {
	// PlaneU, PlaneV are the in-plane voxel-lattice coordinates, in the two axes orthogonal to
	// UpAxis, expressed as a global (region-independent) voxel index.
	PlaneU, PlaneV int64
	// Height is the world-space coordinate along UpAxis of the highest occupied voxel in the
	// column.
	Height float64
}

// Heightmap projects the grid onto the plane orthogonal to upAxis (spec.md §1's "heightmaps
// projected onto a chosen up-axis"): for every column of voxels along upAxis, the height of the
// highest voxel whose occupancy value is at or above the threshold. This is the core geometric
// extraction only; the clearance/virtual-surface heuristics a full heightmap pipeline applies are
// an external collaborator's concern (spec.md §1 Non-goals: "heightmap-specific post-processing"),
// not implemented here.
func (m *Map) Heightmap(upAxis ohmkey.Axis) []HeightmapCell {
	occLayer, ok := m.Layout.Layer(ohmlayout.LayerOccupancy)
	if !ok {
		return nil
	}
	valueMember, _ := occLayer.Member(ohmlayout.MemberValue)

	uAxis, vAxis := planeAxes(upAxis)
	best := map[[2]int64]float64{}
	seen := map[[2]int64]bool{}

	m.Regions.ForEach(func(coord ohmkey.RegionCoord, region *ohmregion.Region) {
		if !region.HasValidVoxel() {
			return
		}
		view, err := ohmblock.Acquire(region.Block(occLayer.Index))
		if err != nil {
			return
		}
		defer view.Release()

		count := m.Geometry.VoxelCountPerRegion()
		for local := 0; local < count; local++ {
			value := ohmlayout.DecodeFloat32(view.VoxelBytes(local), valueMember)
			if ohmlayout.IsUnobserved(value) || value < m.params.OccupancyThresholdValue {
				continue
			}
			key := ohmkey.NewKey(coord, localToLocalCoord(local, m.Geometry.RegionVoxelDim))
			centre := m.Geometry.VoxelCentre(key)
			dim := m.Geometry.RegionVoxelDim
			column := [2]int64{globalVoxelCoord(key, uAxis, dim), globalVoxelCoord(key, vAxis, dim)}
			h := axisComponent(centre, upAxis)
			if !seen[column] || h > best[column] {
				best[column] = h
				seen[column] = true
			}
		}
	})

	cells := make([]HeightmapCell, 0, len(best))
	for col, h := range best {
		cells = append(cells, HeightmapCell{PlaneU: col[0], PlaneV: col[1], Height: h})
	}
	return cells
}

func planeAxes(up ohmkey.Axis) (ohmkey.Axis, ohmkey.Axis) {
	switch up {
	case ohmkey.AxisX:
		return ohmkey.AxisY, ohmkey.AxisZ
	case ohmkey.AxisY:
		return ohmkey.AxisX, ohmkey.AxisZ
	default:
		return ohmkey.AxisX, ohmkey.AxisY
	}
}

func axisComponent(v r3.Vector, axis ohmkey.Axis) float64 {
	switch axis {
	case ohmkey.AxisX:
		return v.X
	case ohmkey.AxisY:
		return v.Y
	default:
		return v.Z
	}
}

func globalVoxelCoord(k ohmkey.Key, axis ohmkey.Axis, regionVoxelDim [3]uint8) int64 {
	return int64(k.RegionAxis(axis))*int64(regionVoxelDim[axis]) + int64(k.LocalAxis(axis))
}

func localToLocalCoord(local int, dim [3]uint8) [3]uint8 {
	x := local % int(dim[0])
	y := (local / int(dim[0])) % int(dim[1])
	z := local / (int(dim[0]) * int(dim[1]))
	return [3]uint8{uint8(x), uint8(y), uint8(z)}
}
