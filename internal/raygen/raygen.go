// Package raygen generates synthetic rays and point samples for property tests, adapted from the
// teacher's matrix sampling helpers.
package raygen

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ohmcore/ohm/ohmmapper"
)

// UniformPoints draws n points with each coordinate independently uniform in [min, max].
func UniformPoints(n int, min, max r3.Vector) []r3.Vector {
	dx := distuv.Uniform{Min: min.X, Max: max.X}
	dy := distuv.Uniform{Min: min.Y, Max: max.Y}
	dz := distuv.Uniform{Min: min.Z, Max: max.Z}
	pts := make([]r3.Vector, n)
	for i := range pts {
		pts[i] = r3.Vector{X: dx.Rand(), Y: dy.Rand(), Z: dz.Rand()}
	}
	return pts
}

// UniformRayPairs draws n (origin, sample) pairs with both endpoints independently uniform in
// [min, max], for line-walker symmetry tests: walking origin->sample must visit the same voxels,
// in reverse, as walking sample->origin.
func UniformRayPairs(n int, min, max r3.Vector) []ohmmapper.Ray {
	origins := UniformPoints(n, min, max)
	samples := UniformPoints(n, min, max)
	rays := make([]ohmmapper.Ray, n)
	for i := range rays {
		rays[i] = ohmmapper.Ray{Origin: origins[i], Sample: samples[i]}
	}
	return rays
}

// GaussianHitsAtVoxel draws n samples from a normal distribution with the given mean and
// per-axis standard deviation, for feeding repeated NDT hits at roughly the same voxel and then
// checking the fitted mean/covariance against the sample statistics.
func GaussianHitsAtVoxel(n int, mean r3.Vector, sigma r3.Vector) []r3.Vector {
	dx := distuv.Normal{Mu: mean.X, Sigma: sigma.X}
	dy := distuv.Normal{Mu: mean.Y, Sigma: sigma.Y}
	dz := distuv.Normal{Mu: mean.Z, Sigma: sigma.Z}
	pts := make([]r3.Vector, n)
	for i := range pts {
		pts[i] = r3.Vector{X: dx.Rand(), Y: dy.Rand(), Z: dz.Rand()}
	}
	return pts
}

// RaysToward fires n rays from a common origin toward each of samples, useful for building a
// batch of hits that all pass through roughly the same region of free space.
func RaysToward(origin r3.Vector, samples []r3.Vector) []ohmmapper.Ray {
	rays := make([]ohmmapper.Ray, len(samples))
	for i, s := range samples {
		rays[i] = ohmmapper.Ray{Origin: origin, Sample: s}
	}
	return rays
}

// SampleCovariance computes the 3x3 sample covariance matrix of pts about their own mean,
// matching the convention ohmmapper's NDT layers accumulate (divide by n, not n-1), so tests can
// compare it directly against a fitted voxel's M*Mᵀ.
func SampleCovariance(pts []r3.Vector) (mean r3.Vector, cov [3][3]float64) {
	n := float64(len(pts))
	if n == 0 {
		return r3.Vector{}, cov
	}
	for _, p := range pts {
		mean.X += p.X
		mean.Y += p.Y
		mean.Z += p.Z
	}
	mean.X /= n
	mean.Y /= n
	mean.Z /= n

	for _, p := range pts {
		d := [3]float64{p.X - mean.X, p.Y - mean.Y, p.Z - mean.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[i][j] += d[i] * d[j]
			}
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cov[i][j] /= n
		}
	}
	return mean, cov
}

// RelativeError returns |a-b| / max(|a|, |b|, eps), clamping the denominator away from zero so
// comparisons against a near-zero expected value don't divide out to +Inf.
func RelativeError(a, b float64) float64 {
	const eps = 1e-12
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom < eps {
		denom = eps
	}
	return math.Abs(a-b) / denom
}
