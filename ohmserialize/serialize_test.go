package ohmserialize

import (
	"bytes"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
	"github.com/ohmcore/ohm/ohmmapper"
	"github.com/ohmcore/ohm/ohmregion"
)

func testInput(t *testing.T) SaveInput {
	t.Helper()
	layout, err := ohmlayout.DefaultLayout()
	test.That(t, err, test.ShouldBeNil)
	geom, err := ohmkey.NewGeometry(r3.Vector{X: 1, Y: 2, Z: 3}, 0.1, [3]uint8{4, 4, 4})
	test.That(t, err, test.ShouldBeNil)
	regions := ohmregion.NewDictionary(layout, geom)

	regions.GetOrCreate(ohmkey.RegionCoord{X: 0, Y: 0, Z: 0})
	regions.GetOrCreate(ohmkey.RegionCoord{X: 1, Y: -1, Z: 2})

	var mapInfo MapInfo
	mapInfo.SetBool("heightmap", true)
	mapInfo.SetFloat64("heightmap-clearance", 2.5)

	return SaveInput{
		Geometry: geom,
		Layout:   layout,
		Regions:  regions,
		Params:   ohmmapper.DefaultParams(),
		Flags:    0,
		MapInfo:  mapInfo,
	}
}

// TestSaveLoadRoundTrip reproduces spec.md §8 test case 5: saving, loading, and saving again
// yields byte-identical output.
func TestSaveLoadRoundTrip(t *testing.T) {
	in := testInput(t)

	var b1 bytes.Buffer
	test.That(t, Save(&b1, in, Options{}), test.ShouldBeNil)

	loaded, err := Load(bytes.NewReader(b1.Bytes()), Options{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Regions.Len(), test.ShouldEqual, 2)
	test.That(t, loaded.MapInfo.GetBool("heightmap"), test.ShouldBeTrue)
	test.That(t, loaded.MapInfo.GetFloat64("heightmap-clearance"), test.ShouldEqual, 2.5)

	var b2 bytes.Buffer
	reloadedInput := SaveInput{
		Geometry: loaded.Geometry,
		Layout:   loaded.Layout,
		Regions:  loaded.Regions,
		Params:   loaded.Params,
		Flags:    loaded.Flags,
		MapInfo:  loaded.MapInfo,
	}
	test.That(t, Save(&b2, reloadedInput, Options{}), test.ShouldBeNil)

	test.That(t, bytes.Equal(b1.Bytes(), b2.Bytes()), test.ShouldBeTrue)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("nope-not-an-ohm-file-at-all")), Options{})
	test.That(t, err, test.ShouldNotBeNil)
	serr, ok := err.(*Error)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, serr.Kind, test.ShouldEqual, KindBadMagic)
}

func TestLoadRejectsTruncatedStream(t *testing.T) {
	in := testInput(t)
	var buf bytes.Buffer
	test.That(t, Save(&buf, in, Options{}), test.ShouldBeNil)

	truncated := buf.Bytes()[:buf.Len()-10]
	_, err := Load(bytes.NewReader(truncated), Options{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSaveHonorsShouldQuit(t *testing.T) {
	in := testInput(t)
	var buf bytes.Buffer
	calls := 0
	opts := Options{ShouldQuit: func() bool {
		calls++
		return true
	}}
	err := Save(&buf, in, opts)
	test.That(t, err, test.ShouldEqual, ErrAborted)
	test.That(t, calls, test.ShouldBeGreaterThan, 0)
}

func TestSaveReportsProgress(t *testing.T) {
	in := testInput(t)
	var buf bytes.Buffer
	var progressCalls [][2]int
	opts := Options{OnProgress: func(done, target int) {
		progressCalls = append(progressCalls, [2]int{done, target})
	}}
	test.That(t, Save(&buf, in, opts), test.ShouldBeNil)
	test.That(t, len(progressCalls), test.ShouldEqual, 2)
	test.That(t, progressCalls[len(progressCalls)-1][0], test.ShouldEqual, progressCalls[len(progressCalls)-1][1])
}
