package ohm

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmmapper"
)

func TestPointCloudIncludesOnlyOccupiedVoxels(t *testing.T) {
	m, err := New(testConfig(t))
	test.That(t, err, test.ShouldBeNil)
	defer m.Close()

	m.Integrate([]ohmmapper.Ray{
		{Origin: r3.Vector{X: 0, Y: 0, Z: 0}, Sample: r3.Vector{X: 0.95, Y: 0, Z: 0}},
	})

	cloud := m.PointCloud()
	test.That(t, len(cloud), test.ShouldEqual, 1)
	test.That(t, cloud[0].Value, test.ShouldEqual, float32(0.85))
}

func TestHeightmapProjectsOccupiedColumn(t *testing.T) {
	m, err := New(testConfig(t))
	test.That(t, err, test.ShouldBeNil)
	defer m.Close()

	m.Integrate([]ohmmapper.Ray{
		{Origin: r3.Vector{X: 0, Y: 0, Z: 1}, Sample: r3.Vector{X: 0, Y: 0, Z: 0.05}},
	})

	cells := m.Heightmap(ohmkey.AxisZ)
	test.That(t, len(cells), test.ShouldBeGreaterThan, 0)
}
