package ohmmapper

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/ohmcore/ohm/ohmblock"
	"github.com/ohmcore/ohm/ohmfilter"
	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
	"github.com/ohmcore/ohm/ohmregion"
)

func testMapper(t *testing.T) (*OccupancyMapper, ohmkey.Geometry) {
	t.Helper()
	layout, err := ohmlayout.DefaultLayout()
	test.That(t, err, test.ShouldBeNil)
	geom, err := ohmkey.NewGeometry(r3.Vector{}, 0.1, [3]uint8{32, 32, 32})
	test.That(t, err, test.ShouldBeNil)
	regions := ohmregion.NewDictionary(layout, geom)
	var stamp uint64
	m, err := NewOccupancyMapper(geom, layout, regions, ohmfilter.Default, DefaultParams(), &stamp)
	test.That(t, err, test.ShouldBeNil)
	return m, geom
}

func mustAcquireRead(t *testing.T, block *ohmblock.Block) *ohmblock.View {
	t.Helper()
	view, err := ohmblock.Acquire(block)
	test.That(t, err, test.ShouldBeNil)
	return view
}

// TestIntegrateSingleRayWorkedExample reproduces spec.md §8 test case 1: a ray from the origin to
// (0.95, 0, 0) at 0.1m resolution should leave 9 interior voxels at the miss value and the end
// voxel at the hit value.
func TestIntegrateSingleRayWorkedExample(t *testing.T) {
	m, geom := testMapper(t)
	rays := []Ray{{Origin: r3.Vector{}, Sample: r3.Vector{X: 0.95}}}
	accepted := m.Integrate(rays)
	test.That(t, accepted, test.ShouldEqual, 1)

	for i := 0; i < 9; i++ {
		world := r3.Vector{X: (float64(i) + 0.5) * geom.Resolution}
		key := geom.VoxelKey(world)
		region := m.Regions.GetOrCreate(key.Region)
		localIdx := geom.LocalIndex(key)
		view := mustAcquireRead(t, region.Block(m.layers.occupancyIdx))
		value := ohmlayout.DecodeFloat32(view.VoxelBytes(localIdx), m.layers.occupancyVal)
		view.Release()
		test.That(t, value, test.ShouldEqual, float32(-0.4))
	}

	endKey := geom.VoxelKey(r3.Vector{X: 0.95})
	endRegion := m.Regions.GetOrCreate(endKey.Region)
	endLocal := geom.LocalIndex(endKey)
	endView := mustAcquireRead(t, endRegion.Block(m.layers.occupancyIdx))
	endValue := ohmlayout.DecodeFloat32(endView.VoxelBytes(endLocal), m.layers.occupancyVal)
	endView.Release()
	test.That(t, endValue, test.ShouldEqual, float32(0.85))
}

// TestIntegrateClampsAtMax reproduces spec.md §8 test case 2: repeated hits on the same voxel
// saturate at max_voxel_value and stay there.
func TestIntegrateClampsAtMax(t *testing.T) {
	m, _ := testMapper(t)
	sample := r3.Vector{X: 0.95}
	rays := make([]Ray, 100)
	for i := range rays {
		rays[i] = Ray{Origin: r3.Vector{}, Sample: sample}
	}
	m.Integrate(rays)

	key := m.Geometry.VoxelKey(sample)
	region := m.Regions.GetOrCreate(key.Region)
	localIdx := m.Geometry.LocalIndex(key)
	view := mustAcquireRead(t, region.Block(m.layers.occupancyIdx))
	value := ohmlayout.DecodeFloat32(view.VoxelBytes(localIdx), m.layers.occupancyVal)
	view.Release()
	test.That(t, value, test.ShouldEqual, m.Params.MaxVoxelValue)
}

// TestIntegrateRejectsNonFiniteRay confirms the default filter drops NaN/Inf rays before any
// voxel is touched.
func TestIntegrateRejectsNonFiniteRay(t *testing.T) {
	m, _ := testMapper(t)
	nanSample := r3.Vector{X: math.NaN(), Y: 0, Z: 0}
	accepted := m.Integrate([]Ray{{Origin: r3.Vector{}, Sample: nanSample}})
	test.That(t, accepted, test.ShouldEqual, 0)
}

// TestAccumulateMeanTracksAverageSample confirms the mean layer converges toward the average of
// repeated samples around a voxel centre.
func TestAccumulateMeanTracksAverageSample(t *testing.T) {
	m, geom := testMapper(t)
	centre := geom.VoxelCentre(geom.VoxelKey(r3.Vector{X: 0.95}))
	samples := []r3.Vector{
		centre.Add(r3.Vector{X: 0.01}),
		centre.Add(r3.Vector{X: -0.01}),
	}
	var rays []Ray
	for _, s := range samples {
		rays = append(rays, Ray{Origin: r3.Vector{}, Sample: s})
	}
	m.Integrate(rays)

	key := geom.VoxelKey(samples[0])
	region := m.Regions.GetOrCreate(key.Region)
	localIdx := geom.LocalIndex(key)
	view := mustAcquireRead(t, region.Block(m.layers.meanIdx))
	packed := ohmlayout.DecodeUInt32(view.VoxelBytes(localIdx), m.layers.meanCoord)
	count := ohmlayout.DecodeUInt32(view.VoxelBytes(localIdx), m.layers.meanCount)
	view.Release()
	test.That(t, count, test.ShouldEqual, uint32(2))
	offset := unpackMeanCoord(packed, geom.Resolution)
	test.That(t, offset[0], test.ShouldBeBetween, -0.005, 0.005)
}
