package ohmserialize

import (
	"github.com/golang/geo/r3"

	"github.com/ohmcore/ohm/ohmblock"
	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
	"github.com/ohmcore/ohm/ohmregion"
)

// writeRegion encodes one region record per spec.md §4.9: {region_coord:i16^3, region_centre:f64^3,
// touched_time:f64, per_layer_blocks:{size:u32, bytes}} where skip-serialise layers are omitted
// entirely (no size field, no bytes).
func writeRegion(bw *binWriter, r *ohmregion.Region, layers []*ohmlayout.Layer) error {
	bw.i16(r.Coord.X)
	bw.i16(r.Coord.Y)
	bw.i16(r.Coord.Z)
	bw.f64(r.Centre.X)
	bw.f64(r.Centre.Y)
	bw.f64(r.Centre.Z)
	bw.f64(r.TouchedTime())

	for i, layer := range layers {
		if layer.SkipSerialise() {
			continue
		}
		block := r.Block(i)
		view, err := ohmblock.Acquire(block)
		if err != nil {
			return wrapErr(KindIO, err)
		}
		data := view.Bytes()
		bw.blob(data)
		view.Release()
	}
	return bw.err
}

// readRegion decodes one region record, building a fresh ohmregion.Region from the file's blocks.
// layers must be in the same order writeRegion used (the owning Layout's layer order).
func readRegion(br *binReader, layers []*ohmlayout.Layer, regionVoxelDim [3]uint8) (*ohmregion.Region, error) {
	var coord ohmkey.RegionCoord
	coord.X = br.i16()
	coord.Y = br.i16()
	coord.Z = br.i16()
	var centre r3.Vector
	centre.X = br.f64()
	centre.Y = br.f64()
	centre.Z = br.f64()
	touchedTime := br.f64()
	if br.err != nil {
		return nil, wrapErr(KindTruncated, br.err)
	}

	blocks := make([]*ohmblock.Block, len(layers))
	for i, layer := range layers {
		if layer.SkipSerialise() {
			dim := layer.VoxelDim(regionVoxelDim)
			count := int(dim[0]) * int(dim[1]) * int(dim[2])
			blocks[i] = ohmblock.New(layer, count)
			continue
		}
		data := br.blob()
		if br.err != nil {
			return nil, wrapErr(KindTruncated, br.err)
		}
		dim := layer.VoxelDim(regionVoxelDim)
		count := int(dim[0]) * int(dim[1]) * int(dim[2])
		block, err := ohmblock.NewFromBytes(layer, count, data)
		if err != nil {
			return nil, wrapErr(KindCorruptBlock, err)
		}
		blocks[i] = block
	}

	return ohmregion.NewFromBlocks(coord, centre, blocks, touchedTime), nil
}
