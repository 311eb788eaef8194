package ohmcompress

import (
	"testing"

	"go.viam.com/test"

	"github.com/ohmcore/ohm/logging"
	"github.com/ohmcore/ohm/ohmblock"
	"github.com/ohmcore/ohm/ohmlayout"
)

func testBlock(t *testing.T, voxelCount int) *ohmblock.Block {
	t.Helper()
	l := ohmlayout.New()
	layer, err := l.AppendLayer(ohmlayout.LayerOccupancy, 0, [3]uint8{0, 0, 0})
	test.That(t, err, test.ShouldBeNil)
	err = l.AppendMember(layer, ohmlayout.MemberValue, ohmlayout.Float32, ohmlayout.Float32Default(0))
	test.That(t, err, test.ShouldBeNil)
	return ohmblock.New(layer, voxelCount)
}

func TestNewRejectsInvertedWatermarks(t *testing.T) {
	_, err := New(10, 20, logging.NewNoop())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRegisterTracksResidentBytes(t *testing.T) {
	q, err := New(1000, 100, logging.NewNoop())
	test.That(t, err, test.ShouldBeNil)

	b := testBlock(t, 100)
	q.Register(b)
	test.That(t, q.ResidentBytes(), test.ShouldEqual, int64(b.UncompressedByteSize()))

	q.Deregister(b)
	test.That(t, q.ResidentBytes(), test.ShouldEqual, int64(0))
}

func TestScanCompressesIdleBlocksAboveHighTide(t *testing.T) {
	q, err := New(10, 0, logging.NewNoop())
	test.That(t, err, test.ShouldBeNil)
	q.SetTestMode(true)

	b := testBlock(t, 1000)
	q.Register(b)
	test.That(t, q.ResidentBytes() > 10, test.ShouldBeTrue)

	q.Scan()
	test.That(t, b.State(), test.ShouldEqual, ohmblock.Compressed)
}

func TestScanSkipsBlocksWithLiveViews(t *testing.T) {
	q, err := New(10, 0, logging.NewNoop())
	test.That(t, err, test.ShouldBeNil)
	q.SetTestMode(true)

	b := testBlock(t, 1000)
	q.Register(b)

	view, err := ohmblock.Acquire(b)
	test.That(t, err, test.ShouldBeNil)
	defer view.Release()

	q.Scan()
	test.That(t, b.State(), test.ShouldEqual, ohmblock.Uncompressed)
}

func TestScanNoOpBelowHighTide(t *testing.T) {
	q, err := New(1_000_000, 0, logging.NewNoop())
	test.That(t, err, test.ShouldBeNil)
	q.SetTestMode(true)

	b := testBlock(t, 10)
	q.Register(b)
	q.Scan()
	test.That(t, b.State(), test.ShouldEqual, ohmblock.Uncompressed)
}
