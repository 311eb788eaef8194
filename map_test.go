package ohm

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/ohmcore/ohm/logging"
	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmmapper"
)

func testConfig(t *testing.T) MapConfig {
	t.Helper()
	return MapConfig{
		Origin:         r3.Vector{X: 0, Y: 0, Z: 0},
		Resolution:     0.1,
		RegionVoxelDim: [3]uint8{32, 32, 32},
		Params:         ohmmapper.DefaultParams(),
		Logger:         logging.NewTestLogger(t),
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(MapConfig{})
	test.That(t, err, test.ShouldNotBeNil)
	_, ok := err.(*ConfigError)
	test.That(t, ok, test.ShouldBeTrue)
}

func TestNewBuildsOccupancyMapByDefault(t *testing.T) {
	m, err := New(testConfig(t))
	test.That(t, err, test.ShouldBeNil)
	defer m.Close()
	test.That(t, m.Ndt(), test.ShouldBeFalse)
	test.That(t, m.RegionCount(), test.ShouldEqual, 0)
}

func TestIntegrateCreatesRegionAndOccupiesEndVoxel(t *testing.T) {
	m, err := New(testConfig(t))
	test.That(t, err, test.ShouldBeNil)
	defer m.Close()

	accepted := m.Integrate([]ohmmapper.Ray{
		{Origin: r3.Vector{X: 0, Y: 0, Z: 0}, Sample: r3.Vector{X: 0.95, Y: 0, Z: 0}},
	})
	test.That(t, accepted, test.ShouldEqual, 1)
	test.That(t, m.RegionCount(), test.ShouldBeGreaterThan, 0)

	value, ok := m.Occupancy(r3.Vector{X: 0.95, Y: 0, Z: 0})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, value, test.ShouldEqual, float32(0.85))
}

func TestOccupancyMissingRegionReportsNotOk(t *testing.T) {
	m, err := New(testConfig(t))
	test.That(t, err, test.ShouldBeNil)
	defer m.Close()

	_, ok := m.Occupancy(r3.Vector{X: 100, Y: 100, Z: 100})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNewNdtMapBuilds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ndt = true
	cfg.NdtParams = ohmmapper.DefaultNdtParams()
	m, err := New(cfg)
	test.That(t, err, test.ShouldBeNil)
	defer m.Close()
	test.That(t, m.Ndt(), test.ShouldBeTrue)

	accepted := m.Integrate([]ohmmapper.Ray{
		{Origin: r3.Vector{X: 0, Y: 0, Z: 0}, Sample: r3.Vector{X: 0.95, Y: 0, Z: 0}},
	})
	test.That(t, accepted, test.ShouldEqual, 1)
}

func TestCompressionQueueRegistersNewRegionBlocks(t *testing.T) {
	cfg := testConfig(t)
	cfg.HighTide = 1 << 30
	cfg.LowTide = 1 << 20
	m, err := New(cfg)
	test.That(t, err, test.ShouldBeNil)
	defer m.Close()

	m.Regions.GetOrCreate(ohmkey.RegionCoord{X: 0, Y: 0, Z: 0})
	test.That(t, m.compress.ResidentBytes(), test.ShouldBeGreaterThan, int64(0))
}

func TestCloseWithoutCompressionIsNoOp(t *testing.T) {
	m, err := New(testConfig(t))
	test.That(t, err, test.ShouldBeNil)
	m.Close()
}
