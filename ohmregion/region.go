// Package ohmregion implements the Region (a fixed-size 3D tile of voxels holding one Voxel Block
// per layer) and the region dictionary that maps a region coordinate to its Region. It is grounded
// on the teacher's octree package: a flat, explicit container of per-tile state, generalized from
// octree's implicit node tree to the occupancy map's flat hashed region lattice (spec.md §3's
// "Hierarchical sparse grid vs. octree" redesign).
package ohmregion

import (
	"sync"

	"github.com/golang/geo/r3"

	"github.com/ohmcore/ohm/ohmblock"
	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
)

// Region holds one Voxel Block per layer for a single region coordinate, plus the bookkeeping
// spec.md §3 names: touched_time, per-layer touched stamps, a dirty stamp, a first-valid-index
// hint, and flags.
type Region struct {
	Coord  ohmkey.RegionCoord
	Centre r3.Vector

	mu sync.RWMutex

	blocks       []*ohmblock.Block // indexed by layer index, same order as the owning Layout
	touchedTime  float64
	touchedStamp []uint64
	dirtyStamp   uint64
	firstValid   int
	flags        uint32
}

// Flag bits for Region.flags.
const (
	// FlagHasValidVoxel is set once any voxel in the occupancy layer has been written.
	FlagHasValidVoxel uint32 = 1 << iota
)

// New allocates a Region for coord at world-space centre centre, with one freshly-initialised
// Block per layer in layout, sized from the map's per-axis region_voxel_dim.
func New(coord ohmkey.RegionCoord, centre r3.Vector, layout *ohmlayout.Layout, regionVoxelDim [3]uint8) *Region {
	layers := layout.Layers()
	blocks := make([]*ohmblock.Block, len(layers))
	for i, layer := range layers {
		dim := layer.VoxelDim(regionVoxelDim)
		count := int(dim[0]) * int(dim[1]) * int(dim[2])
		blocks[i] = ohmblock.New(layer, count)
	}
	return &Region{
		Coord:        coord,
		Centre:       centre,
		blocks:       blocks,
		touchedStamp: make([]uint64, len(layers)),
		firstValid:   -1,
	}
}

// NewFromBlocks reconstructs a Region from already-built per-layer blocks, as ohmserialize does
// when loading a saved map: the blocks were decoded directly from the file's region record, so
// there is no default-fill allocation step. touchedTime is the record's saved touched_time; every
// layer is marked touched at the map's stamp 0 since per-layer stamps are not themselves
// serialized.
func NewFromBlocks(coord ohmkey.RegionCoord, centre r3.Vector, blocks []*ohmblock.Block, touchedTime float64) *Region {
	r := &Region{
		Coord:        coord,
		Centre:       centre,
		blocks:       blocks,
		touchedStamp: make([]uint64, len(blocks)),
		touchedTime:  touchedTime,
		firstValid:   0,
		flags:        FlagHasValidVoxel,
	}
	return r
}

// Block returns the Voxel Block for the layer at layerIndex.
func (r *Region) Block(layerIndex int) *ohmblock.Block {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.blocks[layerIndex]
}

// TouchedTime returns the wall-clock stamp of this region's most recent write.
func (r *Region) TouchedTime() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.touchedTime
}

// DirtyStamp returns the region's monotone dirty stamp.
func (r *Region) DirtyStamp() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dirtyStamp
}

// Touch records a write to layerIndex at wall-clock time t with the map's current monotone stamp,
// advancing the region's dirty stamp and per-layer touched stamp.
func (r *Region) Touch(layerIndex int, t float64, stamp uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchedTime = t
	r.touchedStamp[layerIndex] = stamp
	if stamp > r.dirtyStamp {
		r.dirtyStamp = stamp
	}
	r.flags |= FlagHasValidVoxel
	if r.firstValid < 0 {
		r.firstValid = 0
	}
}

// TouchedStamp returns the map stamp at which layerIndex was last written.
func (r *Region) TouchedStamp(layerIndex int) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.touchedStamp[layerIndex]
}

// HasValidVoxel reports whether any voxel in this region has ever been written.
func (r *Region) HasValidVoxel() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flags&FlagHasValidVoxel != 0
}

// Idle reports whether every layer block in this region currently has no live views, and so is
// eligible for the compression queue to consider.
func (r *Region) Idle() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.blocks {
		if b.RefCount() > 0 {
			return false
		}
	}
	return true
}

// ForEachBlock invokes fn for every (layerIndex, block) pair in layer order.
func (r *Region) ForEachBlock(fn func(layerIndex int, block *ohmblock.Block)) {
	r.mu.RLock()
	blocks := append([]*ohmblock.Block(nil), r.blocks...)
	r.mu.RUnlock()
	for i, b := range blocks {
		fn(i, b)
	}
}
