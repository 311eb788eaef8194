package ohmmapper

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestInitialiseCovarianceIsScaledIdentity(t *testing.T) {
	cov := InitialiseCovariance(0.05)
	test.That(t, cov[0], test.ShouldAlmostEqual, 0.05)
	test.That(t, cov[2], test.ShouldAlmostEqual, 0.05)
	test.That(t, cov[5], test.ShouldAlmostEqual, 0.05)
	test.That(t, cov[1], test.ShouldEqual, 0.0)
	test.That(t, cov[3], test.ShouldEqual, 0.0)
	test.That(t, cov[4], test.ShouldEqual, 0.0)
}

func TestSolveTriangularIdentity(t *testing.T) {
	cov := Triangular{1, 0, 1, 0, 0, 1}
	y := r3.Vector{X: 2, Y: 3, Z: 4}
	x := SolveTriangular(cov, y)
	test.That(t, x.X, test.ShouldAlmostEqual, 2.0)
	test.That(t, x.Y, test.ShouldAlmostEqual, 3.0)
	test.That(t, x.Z, test.ShouldAlmostEqual, 4.0)
}

// TestCalculateHitWithCovarianceReinitialisesOnFirstSample confirms a voxel with no prior samples
// reinitialises its covariance to the sensor-noise identity and sets the value to hit_value.
func TestCalculateHitWithCovarianceReinitialisesOnFirstSample(t *testing.T) {
	cov := Triangular{}
	voxelMean := r3.Vector{}
	sample := r3.Vector{X: 1, Y: 0, Z: 0}
	newCov, newValue, reinitialised := CalculateHitWithCovariance(
		cov, ohmUnobserved(), sample, voxelMean, 0,
		0.85, ohmUnobserved(), 0.05, 0.0, 4,
	)
	test.That(t, reinitialised, test.ShouldBeTrue)
	test.That(t, newValue, test.ShouldEqual, float32(0.85))
	test.That(t, newCov[0], test.ShouldAlmostEqual, float64(float32(0.05)))
}

// TestCalculateHitWithCovarianceAccumulates confirms covariance accumulation does not reinitialise
// once a voxel already holds a confident, above-threshold value and sample count.
func TestCalculateHitWithCovarianceAccumulates(t *testing.T) {
	cov := InitialiseCovariance(0.05)
	voxelMean := r3.Vector{X: 1, Y: 0, Z: 0}
	sample := r3.Vector{X: 1.01, Y: 0, Z: 0}
	_, newValue, reinitialised := CalculateHitWithCovariance(
		cov, 1.0, sample, voxelMean, 10,
		0.85, ohmUnobserved(), 0.05, 0.0, 4,
	)
	test.That(t, reinitialised, test.ShouldBeFalse)
	test.That(t, newValue, test.ShouldAlmostEqual, float32(1.85))
}

// TestCalculateMissNdtNumericalGuard confirms the degenerate a·a < 1e-12 case falls back to the
// standard miss update (value + missValue) and returns the voxel mean, rather than dividing by
// ~zero.
func TestCalculateMissNdtNumericalGuard(t *testing.T) {
	cov := Triangular{1e9, 0, 1e9, 0, 0, 1e9}
	sensor := r3.Vector{X: 0, Y: 0, Z: 0}
	sample := r3.Vector{X: 1, Y: 0, Z: 0}
	voxelMean := r3.Vector{X: 0.5, Y: 0, Z: 0}
	newValue, xML := CalculateMissNdt(cov, 0.5, sensor, sample, voxelMean, 0.05, -0.4)
	test.That(t, newValue, test.ShouldEqual, float32(0.5)+float32(-0.4))
	test.That(t, xML, test.ShouldResemble, voxelMean)
}

func ohmUnobserved() float32 {
	return float32(math.NaN())
}
