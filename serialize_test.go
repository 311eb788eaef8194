package ohm

import (
	"bytes"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/ohmcore/ohm/ohmmapper"
	"github.com/ohmcore/ohm/ohmserialize"
)

func TestSaveLoadRoundTripPreservesOccupancy(t *testing.T) {
	m, err := New(testConfig(t))
	test.That(t, err, test.ShouldBeNil)
	defer m.Close()

	m.Integrate([]ohmmapper.Ray{
		{Origin: r3.Vector{X: 0, Y: 0, Z: 0}, Sample: r3.Vector{X: 0.95, Y: 0, Z: 0}},
	})
	m.MapInfo.SetBool("heightmap", true)

	var buf bytes.Buffer
	test.That(t, m.Save(&buf, ohmserialize.Options{}), test.ShouldBeNil)

	loaded, err := Load(bytes.NewReader(buf.Bytes()), MapConfig{}, ohmserialize.Options{})
	test.That(t, err, test.ShouldBeNil)
	defer loaded.Close()

	test.That(t, loaded.Ndt(), test.ShouldBeFalse)
	test.That(t, loaded.MapInfo.GetBool("heightmap"), test.ShouldBeTrue)

	value, ok := loaded.Occupancy(r3.Vector{X: 0.95, Y: 0, Z: 0})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, value, test.ShouldEqual, float32(0.85))
}

func TestSaveLoadRoundTripPreservesNdtFlag(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ndt = true
	cfg.NdtParams = ohmmapper.DefaultNdtParams()
	m, err := New(cfg)
	test.That(t, err, test.ShouldBeNil)
	defer m.Close()

	var buf bytes.Buffer
	test.That(t, m.Save(&buf, ohmserialize.Options{}), test.ShouldBeNil)

	loaded, err := Load(bytes.NewReader(buf.Bytes()), MapConfig{}, ohmserialize.Options{})
	test.That(t, err, test.ShouldBeNil)
	defer loaded.Close()
	test.That(t, loaded.Ndt(), test.ShouldBeTrue)
}
