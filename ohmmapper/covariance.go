// Package ohmmapper implements the Occupancy Ray Mapper (spec.md §4.7) and the NDT Ray Mapper
// (spec.md §4.8): the two integration pipelines that walk rays through an ohmregion.Dictionary and
// apply per-voxel occupancy, mean, covariance, traversal, intensity, hit/miss and incident-normal
// updates. The packed square-root covariance math is ported directly from
// original_source/ohm/CovarianceVoxel.h's modified Gram-Schmidt update, the one piece of this
// system with no idiomatic-Go rewrite available: it is a specific numerical algorithm, not a
// structural pattern, so it is transcribed faithfully rather than reimagined in the teacher's
// idiom.
package ohmmapper

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Triangular is the packed lower-triangular square root of a voxel's accumulated 3x3 spatial
// covariance, in the storage order CovarianceVoxel.h documents:
//
//	t00  .    .
//	t10  t11  .
//	t20  t21  t22
type Triangular [6]float64

// InitialiseCovariance returns the square root seeded as sensorNoise·I, so the covariance it
// represents is an identity matrix scaled by sensorNoise^2: this avoids a divide-by-zero in
// solveTriangular when a voxel's first sample lies on a perfect plane.
func InitialiseCovariance(sensorNoise float64) Triangular {
	v := sensorNoise
	return Triangular{v, 0, v, 0, 0, v}
}

// unpacked is the scratch 3x4 sparse matrix unpackCovariance produces: the first 6 entries are the
// scaled triangular covariance (indices matching Triangular's layout), and the last 3 are the
// scaled sample-to-mean vector, appended as a 4th row.
type unpacked [9]float64

var colFirstElement = [3]int{0, 1, 3}

// packedDot computes the dot product of the j-th and k-th columns of the sparse 3x4 matrix m, per
// CovarianceVoxel.h's packedDot.
func packedDot(m unpacked, j, k int) float64 {
	indJ := colFirstElement[j]
	indK := colFirstElement[k]
	minJK := j
	if k < j {
		minJK = k
	}
	d := m[6+k] * m[6+j]
	for i := 0; i <= minJK; i++ {
		d += m[indJ+i] * m[indK+i]
	}
	return d
}

// unpackCovariance scales the triangular covariance and appends the scaled sample-to-mean vector,
// per CovarianceVoxel.h's unpackCovariance.
func unpackCovariance(cov Triangular, pointCount uint32, sampleToMean r3.Vector) unpacked {
	oneOnCountPlusOne := 1.0 / (float64(pointCount) + 1.0)
	sc1 := 1.0
	if pointCount != 0 {
		sc1 = math.Sqrt(float64(pointCount) * oneOnCountPlusOne)
	}
	sc2 := oneOnCountPlusOne * math.Sqrt(float64(pointCount))

	var m unpacked
	for i := 0; i < 6; i++ {
		m[i] = sc1 * cov[i]
	}
	m[6] = sc2 * sampleToMean.X
	m[7] = sc2 * sampleToMean.Y
	m[8] = sc2 * sampleToMean.Z
	return m
}

// SolveTriangular finds x for Mx = y given the lower-triangular M represented by cov, per
// CovarianceVoxel.h's solveTriangular.
func SolveTriangular(cov Triangular, y r3.Vector) r3.Vector {
	var x r3.Vector

	d := y.X
	x.X = d / cov[0]

	d = y.Y
	d -= cov[1] * x.X
	x.Y = d / cov[2]

	d = y.Z
	d -= cov[3]*x.X + cov[4]*x.Y
	x.Z = d / cov[5]

	return x
}

// CalculateHitWithCovariance updates cov and value for a hit at sample, given the voxel's current
// mean and point count. It returns the updated covariance, the updated value, and whether the
// covariance was reinitialised (signalling the caller to discard the current mean/count and
// restart accumulation), per CovarianceVoxel.h's calculateHitWithCovariance.
func CalculateHitWithCovariance(
	cov Triangular,
	value float32,
	sample, voxelMean r3.Vector,
	pointCount uint32,
	hitValue, uninitialisedValue, sensorNoise, reinitialiseThreshold float32,
	reinitialiseSampleCount uint32,
) (newCov Triangular, newValue float32, reinitialised bool) {
	wasUncertain := value != value || value == uninitialisedValue // value != value catches the NaN unobserved sentinel
	if wasUncertain || pointCount == 0 || (value < reinitialiseThreshold && pointCount >= reinitialiseSampleCount) {
		newCov = InitialiseCovariance(float64(sensorNoise))
		newValue = hitValue
		reinitialised = true
		pointCount = 0 // the reseeded covariance takes nothing from the discarded mean/count
	} else {
		newCov = cov
		newValue = value + hitValue
	}

	sampleToMean := sample.Sub(voxelMean)
	m := unpackCovariance(newCov, pointCount, sampleToMean)

	for k := 0; k < 3; k++ {
		ind1 := (k * (k + 3)) >> 1
		indK := ind1 - k
		ak := math.Sqrt(packedDot(m, k, k))
		newCov[ind1] = ak
		if ak > 0 {
			aki := 1.0 / ak
			for j := k + 1; j < 3; j++ {
				indJ := (j * (j + 1)) >> 1
				indKJ := indJ + k
				c := packedDot(m, j, k) * aki
				newCov[indKJ] = c
				c *= aki
				m[j+6] -= c * m[k+6]
				for l := 0; l <= k; l++ {
					m[indJ+l] -= c * m[indK+l]
				}
			}
		}
	}

	return newCov, newValue, reinitialised
}

// Expand reconstructs the full symmetric 3x3 covariance matrix cov represents, L*Lᵀ where L is the
// packed lower-triangular square root.
func (cov Triangular) Expand() *mat.SymDense {
	l := mat.NewDense(3, 3, []float64{
		cov[0], 0, 0,
		cov[1], cov[2], 0,
		cov[3], cov[4], cov[5],
	})
	var full mat.Dense
	full.Mul(l, l.T())
	sym := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			sym.SetSym(i, j, full.At(i, j))
		}
	}
	return sym
}

// Eigenvalues returns cov's three eigenvalues in ascending order, by way of gonum's symmetric
// eigendecomposition. This is a diagnostic path only — spec.md's hit/miss update never needs it —
// for callers that want to classify a voxel's spatial shape: one eigenvalue collapsing toward
// zero next to the other two marks a planar voxel, one surviving eigenvalue next to two collapsed
// ones marks a line-like voxel, matching the usual NDT covariance-shape diagnostic.
func (cov Triangular) Eigenvalues() [3]float64 {
	var eig mat.EigenSym
	ok := eig.Factorize(cov.Expand(), false)
	if !ok {
		return [3]float64{}
	}
	values := eig.Values(nil)
	var out [3]float64
	copy(out[:], values)
	return out
}

// CalculateMissNdt computes the NDT-modulated miss adjustment for an occupied voxel with
// sufficient samples, returning the updated value and the maximum-likelihood point x_ML (useful
// for diagnostics; the caller does not need to store it), per CovarianceVoxel.h's
// calculateMissNdt. missValue is the map's configured miss adjustment (spec.md §4.8's fixed
// adaptation-rate constant, not the voxel's current accumulated value). Callers must have already
// handled the unobserved-voxel and insufficient-sample-count cases per spec.md §4.8 before calling
// this.
func CalculateMissNdt(cov Triangular, value float32, sensor, sample, voxelMean r3.Vector, sensorNoise float64, missValue float32) (newValue float32, xML r3.Vector) {
	sensorToSample := sample.Sub(sensor)
	sensorRay := sensorToSample.Normalize()
	sensorToMean := sensor.Sub(voxelMean)

	a := SolveTriangular(cov, sensorRay)
	bNorm := SolveTriangular(cov, sensorToMean)

	aa := a.Dot(a)
	if math.Abs(aa) < 1e-12 {
		// Numerical guard (spec.md §4.8): fall back to the standard miss update.
		return value + missValue, voxelMean
	}
	t := -a.Dot(bNorm) / aa

	xML = sensorRay.Mul(t).Add(sensor)

	pVoxel := math.Exp(-0.5 * SolveTriangular(cov, xML.Sub(voxelMean)).Norm2())

	sensorNoiseVariance := sensorNoise * sensorNoise
	pSample := math.Exp(-0.5 * xML.Sub(sample).Norm2() / sensorNoiseVariance)

	scalingFactor := 1.0 - 1.0/(1.0+math.Exp(float64(missValue)))
	probabilityUpdate := 0.5 - scalingFactor*pVoxel*(1.0-pSample)

	if probabilityUpdate == probabilityUpdate { // NaN guard, mirroring the original's self-comparison check
		newValue = value + float32(math.Log(probabilityUpdate/(1.0-probabilityUpdate)))
	} else {
		newValue = value
	}
	return newValue, xML
}
