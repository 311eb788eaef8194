package ohmray_test

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/ohmcore/ohm/internal/raygen"
	"github.com/ohmcore/ohm/ohmkey"
	. "github.com/ohmcore/ohm/ohmray"
)

func testGeometry(t *testing.T) ohmkey.Geometry {
	t.Helper()
	geom, err := ohmkey.NewGeometry(r3.Vector{}, 0.1, [3]uint8{32, 32, 32})
	test.That(t, err, test.ShouldBeNil)
	return geom
}

func TestWalkSingleRayHit(t *testing.T) {
	geom := testGeometry(t)
	visits := Collect(geom, r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 0.95, Y: 0, Z: 0})

	test.That(t, len(visits) >= 2, test.ShouldBeTrue)
	last := visits[len(visits)-1]
	test.That(t, last.IsEnd, test.ShouldBeTrue)

	expectedEnd := geom.VoxelKey(r3.Vector{X: 0.95, Y: 0, Z: 0})
	test.That(t, last.Key.IsEqual(expectedEnd), test.ShouldBeTrue)

	for i, v := range visits[:len(visits)-1] {
		test.That(t, v.IsEnd, test.ShouldBeFalse)
		_ = i
	}
}

func TestWalkDegenerateSameVoxel(t *testing.T) {
	geom := testGeometry(t)
	visits := Collect(geom, r3.Vector{X: 0.01, Y: 0.01, Z: 0.01}, r3.Vector{X: 0.011, Y: 0.01, Z: 0.01})
	test.That(t, len(visits), test.ShouldEqual, 1)
	test.That(t, visits[0].IsEnd, test.ShouldBeTrue)
	test.That(t, visits[0].Entry, test.ShouldEqual, 0.0)
	test.That(t, visits[0].Exit, test.ShouldEqual, 0.0)
}

func TestWalkStopsEarlyWhenVisitorReturnsFalse(t *testing.T) {
	geom := testGeometry(t)
	count := 0
	Walk(geom, r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 2, Y: 0, Z: 0}, func(v Visit) bool {
		count++
		return count < 3
	})
	test.That(t, count, test.ShouldEqual, 3)
}

func TestWalkDiagonalVisitsBothAxes(t *testing.T) {
	geom := testGeometry(t)
	visits := Collect(geom, r3.Vector{X: 0, Y: 0, Z: 0}, r3.Vector{X: 0.5, Y: 0.5, Z: 0})
	test.That(t, len(visits) > 1, test.ShouldBeTrue)

	sawX, sawY := false, false
	for i := 1; i < len(visits); i++ {
		if visits[i].Key.LocalAxis(ohmkey.AxisX) != visits[i-1].Key.LocalAxis(ohmkey.AxisX) {
			sawX = true
		}
		if visits[i].Key.LocalAxis(ohmkey.AxisY) != visits[i-1].Key.LocalAxis(ohmkey.AxisY) {
			sawY = true
		}
	}
	test.That(t, sawX, test.ShouldBeTrue)
	test.That(t, sawY, test.ShouldBeTrue)
}

// TestWalkIsSymmetricOverRandomPairs checks that walking a segment forward and backward visits
// the same set of voxels regardless of direction, over a large sample of random endpoint pairs
// (spec.md §8's line-walker symmetry scenario).
func TestWalkIsSymmetricOverRandomPairs(t *testing.T) {
	geom := testGeometry(t)
	rays := raygen.UniformRayPairs(10000, r3.Vector{X: -1, Y: -1, Z: -1}, r3.Vector{X: 1, Y: 1, Z: 1})

	for i, ray := range rays {
		forward := Collect(geom, ray.Origin, ray.Sample)
		backward := Collect(geom, ray.Sample, ray.Origin)

		forwardSet := make(map[ohmkey.Key]bool, len(forward))
		for _, v := range forward {
			forwardSet[v.Key] = true
		}
		backwardSet := make(map[ohmkey.Key]bool, len(backward))
		for _, v := range backward {
			backwardSet[v.Key] = true
		}

		if len(forwardSet) != len(backwardSet) {
			t.Fatalf("pair %d: forward visited %d distinct voxels, backward visited %d", i, len(forwardSet), len(backwardSet))
		}
		for k := range forwardSet {
			if !backwardSet[k] {
				t.Fatalf("pair %d: voxel visited forward but not backward", i)
			}
		}
	}
}
