package ohmmapper

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/ohmcore/ohm/internal/raygen"
	"github.com/ohmcore/ohm/ohmfilter"
	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
	"github.com/ohmcore/ohm/ohmregion"
)

func testNdtMapper(t *testing.T) (*NdtMapper, ohmkey.Geometry) {
	t.Helper()
	layout, err := ohmlayout.DefaultLayout()
	test.That(t, err, test.ShouldBeNil)
	geom, err := ohmkey.NewGeometry(r3.Vector{}, 0.1, [3]uint8{32, 32, 32})
	test.That(t, err, test.ShouldBeNil)
	regions := ohmregion.NewDictionary(layout, geom)
	var stamp uint64
	m, err := NewNdtMapper(geom, layout, regions, ohmfilter.Default, DefaultParams(), DefaultNdtParams(), &stamp)
	test.That(t, err, test.ShouldBeNil)
	return m, geom
}

func TestNewNdtMapperRequiresCovarianceLayers(t *testing.T) {
	l := ohmlayout.New()
	occ, err := l.AppendLayer(ohmlayout.LayerOccupancy, 0, [3]uint8{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.AppendMember(occ, ohmlayout.MemberValue, ohmlayout.Float32, ohmlayout.Float32Default(ohmlayout.UnobservedValue)), test.ShouldBeNil)
	geom, err := ohmkey.NewGeometry(r3.Vector{}, 0.1, [3]uint8{8, 8, 8})
	test.That(t, err, test.ShouldBeNil)
	regions := ohmregion.NewDictionary(l, geom)
	_, err = NewNdtMapper(geom, l, regions, nil, DefaultParams(), DefaultNdtParams(), nil)
	test.That(t, err, test.ShouldNotBeNil)
}

// TestNdtFirstHitReinitialisesCovariance confirms the first sample into a voxel reinitialises its
// covariance to the sensor-noise identity and sets count to 1, rather than folding into a zeroed
// accumulator.
func TestNdtFirstHitReinitialisesCovariance(t *testing.T) {
	m, geom := testNdtMapper(t)
	sample := r3.Vector{X: 0.95}
	m.Integrate([]Ray{{Origin: r3.Vector{}, Sample: sample}})

	key := geom.VoxelKey(sample)
	region := m.Regions.GetOrCreate(key.Region)
	localIdx := geom.LocalIndex(key)

	meanView := mustAcquireRead(t, region.Block(m.layers.meanIdx))
	count := ohmlayout.DecodeUInt32(meanView.VoxelBytes(localIdx), m.layers.meanCount)
	meanView.Release()
	test.That(t, count, test.ShouldEqual, uint32(1))

	covView := mustAcquireRead(t, region.Block(m.layers.covarianceIdx))
	t00 := ohmlayout.DecodeFloat32(covView.VoxelBytes(localIdx), m.layers.triangular[0])
	covView.Release()
	test.That(t, t00, test.ShouldAlmostEqual, float32(m.Ndt.SensorNoise), 1e-6)
}

// TestNdtRepeatedHitsAccumulateSampleCount confirms repeated hits on the same voxel accumulate
// the mean count instead of re-triggering reinitialisation once the voxel holds a confident value
// above the reinitialise threshold.
func TestNdtRepeatedHitsAccumulateSampleCount(t *testing.T) {
	m, geom := testNdtMapper(t)
	sample := r3.Vector{X: 0.95}
	rays := make([]Ray, 6)
	for i := range rays {
		rays[i] = Ray{Origin: r3.Vector{}, Sample: sample}
	}
	m.Integrate(rays)

	key := geom.VoxelKey(sample)
	region := m.Regions.GetOrCreate(key.Region)
	localIdx := geom.LocalIndex(key)
	meanView := mustAcquireRead(t, region.Block(m.layers.meanIdx))
	count := ohmlayout.DecodeUInt32(meanView.VoxelBytes(localIdx), m.layers.meanCount)
	meanView.Release()
	test.That(t, count, test.ShouldBeGreaterThan, uint32(1))
}

// TestNdtMissFallsBackBelowSampleThreshold confirms an interior voxel with fewer samples than
// sample_threshold uses the plain occupancy miss instead of the covariance-modulated update. The
// first ray only moves the unobserved interior voxel to miss_value; the second finds it observed
// with no samples and applies the plain miss again.
func TestNdtMissFallsBackBelowSampleThreshold(t *testing.T) {
	m, geom := testNdtMapper(t)
	sample := r3.Vector{X: 0.95}
	ray := Ray{Origin: r3.Vector{}, Sample: sample}
	m.Integrate([]Ray{ray, ray})

	interior := r3.Vector{X: 0.25}
	key := geom.VoxelKey(interior)
	region := m.Regions.GetOrCreate(key.Region)
	localIdx := geom.LocalIndex(key)
	view := mustAcquireRead(t, region.Block(m.layers.occupancyIdx))
	value := ohmlayout.DecodeFloat32(view.VoxelBytes(localIdx), m.layers.occupancyVal)
	view.Release()
	test.That(t, value, test.ShouldEqual, m.Params.MissValue+m.Params.MissValue)
}

// TestNdtMissAboveSampleThresholdUsesConfiguredMissValue drives a voxel's sample count above
// NdtParams.SampleThreshold via hits, then applies a miss through that same voxel as an interior
// crossing, and confirms the resulting value matches CalculateMissNdt computed independently with
// the map's configured miss_value. Had applyMiss passed the voxel's current value instead of
// miss_value as CalculateMissNdt's adaptation-rate argument, the result would diverge from this
// expectation.
func TestNdtMissAboveSampleThresholdUsesConfiguredMissValue(t *testing.T) {
	m, geom := testNdtMapper(t)

	target := r3.Vector{X: 0.95}
	hits := make([]Ray, m.Ndt.SampleThreshold+2)
	for i := range hits {
		hits[i] = Ray{Origin: r3.Vector{}, Sample: target}
	}
	m.Integrate(hits)

	key := geom.VoxelKey(target)
	region := m.Regions.GetOrCreate(key.Region)
	localIdx := geom.LocalIndex(key)
	voxelCentre := geom.VoxelCentre(key)

	meanView := mustAcquireRead(t, region.Block(m.layers.meanIdx))
	mean, count := m.voxelMean(meanView, localIdx, voxelCentre)
	meanView.Release()
	test.That(t, count, test.ShouldBeGreaterThanOrEqualTo, m.Ndt.SampleThreshold)

	covView := mustAcquireRead(t, region.Block(m.layers.covarianceIdx))
	cov := m.readCovariance(covView.VoxelBytes(localIdx))
	covView.Release()

	occView := mustAcquireRead(t, region.Block(m.layers.occupancyIdx))
	value := ohmlayout.DecodeFloat32(occView.VoxelBytes(localIdx), m.layers.occupancyVal)
	occView.Release()

	// A ray that crosses the target voxel but ends elsewhere, so the target receives a miss via
	// applyMiss's interior-voxel branch rather than the end-voxel hit branch.
	missOrigin := r3.Vector{}
	missSample := r3.Vector{X: 1.55}
	expected, _ := CalculateMissNdt(cov, value, missOrigin, missSample, mean, float64(m.Ndt.SensorNoise), m.Params.MissValue)
	expected = clampValue(expected, m.Params)

	accepted := m.Integrate([]Ray{{Origin: missOrigin, Sample: missSample}})
	test.That(t, accepted, test.ShouldEqual, 1)

	occView = mustAcquireRead(t, region.Block(m.layers.occupancyIdx))
	actual := ohmlayout.DecodeFloat32(occView.VoxelBytes(localIdx), m.layers.occupancyVal)
	occView.Release()

	test.That(t, actual, test.ShouldAlmostEqual, expected, 1e-6)
}

// TestNdtCovarianceConvergesToSampleStatistics drives many hits into a single voxel from samples
// drawn around a fixed mean and checks that the voxel's fitted mean and M*Mᵀ covariance converge
// to the direct sample mean/covariance of the same draws, once the sample count is large enough
// that the identity seed InitialiseCovariance contributes negligibly next to the real spread.
func TestNdtCovarianceConvergesToSampleStatistics(t *testing.T) {
	m, geom := testNdtMapper(t)

	target := r3.Vector{X: 0.25, Y: 0.25, Z: 0.25}
	sigma := r3.Vector{X: 0.01, Y: 0.01, Z: 0.01}
	samples := raygen.GaussianHitsAtVoxel(4000, target, sigma)

	rays := raygen.RaysToward(r3.Vector{X: -1, Y: -1, Z: -1}, samples)
	m.Integrate(rays)

	sampleMean, sampleCov := raygen.SampleCovariance(samples)

	key := geom.VoxelKey(target)
	region := m.Regions.GetOrCreate(key.Region)
	localIdx := geom.LocalIndex(key)
	voxelCentre := geom.VoxelCentre(key)

	meanView := mustAcquireRead(t, region.Block(m.layers.meanIdx))
	fittedMean, count := m.voxelMean(meanView, localIdx, voxelCentre)
	meanView.Release()
	test.That(t, count, test.ShouldBeGreaterThan, uint32(0))

	test.That(t, raygen.RelativeError(fittedMean.X, sampleMean.X) < 1e-3, test.ShouldBeTrue)
	test.That(t, raygen.RelativeError(fittedMean.Y, sampleMean.Y) < 1e-3, test.ShouldBeTrue)
	test.That(t, raygen.RelativeError(fittedMean.Z, sampleMean.Z) < 1e-3, test.ShouldBeTrue)

	covView := mustAcquireRead(t, region.Block(m.layers.covarianceIdx))
	var tri Triangular
	for i, member := range m.layers.triangular {
		tri[i] = float64(ohmlayout.DecodeFloat32(covView.VoxelBytes(localIdx), member))
	}
	covView.Release()

	fittedCov := tri.Expand()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(sampleCov[i][j]) < 1e-10 {
				continue
			}
			err := raygen.RelativeError(fittedCov.At(i, j), sampleCov[i][j])
			if err > 1e-2 {
				t.Fatalf("cov[%d][%d]: fitted %v sample %v relative error %v", i, j, fittedCov.At(i, j), sampleCov[i][j], err)
			}
		}
	}
}

// TestTriangularEigenvaluesOfIdentityAreEqual confirms the scaled-identity seed covariance (every
// direction equally uncertain) has three equal eigenvalues, the isotropic case of the
// planar/line-like voxel-shape diagnostic.
func TestTriangularEigenvaluesOfIdentityAreEqual(t *testing.T) {
	cov := InitialiseCovariance(0.05)
	eig := cov.Eigenvalues()
	test.That(t, eig[0], test.ShouldAlmostEqual, 0.0025, 1e-9)
	test.That(t, eig[1], test.ShouldAlmostEqual, 0.0025, 1e-9)
	test.That(t, eig[2], test.ShouldAlmostEqual, 0.0025, 1e-9)
}
