// Package ohmblock implements the Voxel Block: a reference-counted, optionally-compressed byte
// buffer holding one layer's voxels for one region. It is the Go analogue of the original ohm
// library's VoxelBuffer/VoxelBlock retain-release pair (original_source/ohm/VoxelBuffer.cpp),
// reworked from C++ RAII into an explicit Acquire/Release handle since Go has no destructors.
package ohmblock

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ohmcore/ohm/ohmlayout"
)

// State is the storage state of a Block's backing bytes.
type State int

const (
	// Uncompressed means Data holds voxel_byte_size*voxelCount raw, directly addressable bytes.
	Uncompressed State = iota
	// Compressed means Data holds opaque zstd-compressed bytes; a View acquisition will transparently
	// decompress into a fresh uncompressed buffer before handing out access.
	Compressed
)

// Block is one layer's voxel storage for one region: voxel_byte_size * voxelCount contiguous
// bytes, reference counted, and eligible for background compression while idle (refCount == 0).
type Block struct {
	mu sync.Mutex

	layer      *ohmlayout.Layer
	voxelCount int
	state      State
	data       []byte // raw voxel bytes when Uncompressed, zstd frame when Compressed
	refCount   int32
}

// New allocates a Block for layer sized for voxelCount voxels, with every voxel initialised to the
// layer schema's per-member default-fill values.
func New(layer *ohmlayout.Layer, voxelCount int) *Block {
	b := &Block{
		layer:      layer,
		voxelCount: voxelCount,
		state:      Uncompressed,
		data:       make([]byte, int(layer.VoxelByteSize)*voxelCount),
	}
	b.fillDefaults()
	return b
}

// NewFromBytes allocates a Block for layer sized for voxelCount voxels, taking ownership of data
// as its initial uncompressed bytes rather than filling defaults. Used by ohmserialize to
// reconstruct a block from a saved file's per-region record; data's length must match
// voxel_byte_size*voxelCount exactly.
func NewFromBytes(layer *ohmlayout.Layer, voxelCount int, data []byte) (*Block, error) {
	want := int(layer.VoxelByteSize) * voxelCount
	if len(data) != want {
		return nil, errors.Errorf("ohmblock: layer %q expects %d bytes for %d voxels, got %d", layer.Name, want, voxelCount, len(data))
	}
	return &Block{
		layer:      layer,
		voxelCount: voxelCount,
		state:      Uncompressed,
		data:       data,
	}, nil
}

func (b *Block) fillDefaults() {
	voxelSize := int(b.layer.VoxelByteSize)
	if voxelSize == 0 {
		return
	}
	for v := 0; v < b.voxelCount; v++ {
		base := v * voxelSize
		for _, m := range b.layer.Members {
			copy(b.data[base+int(m.Offset):], m.Default)
		}
	}
}

// Layer returns the layout layer this block stores.
func (b *Block) Layer() *ohmlayout.Layer {
	return b.layer
}

// VoxelCount returns the number of voxels this block holds (region_voxel_dim's product, adjusted
// for the layer's subsampling).
func (b *Block) VoxelCount() int {
	return b.voxelCount
}

// State reports the block's current storage state. Intended for diagnostics and the compression
// queue; callers needing voxel access should go through Acquire/AcquireWrite instead of inspecting
// state directly, since State can change concurrently.
func (b *Block) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RefCount reports the current number of live views. Used by the compression queue to decide
// whether a block is eligible for compression (refCount == 0).
func (b *Block) RefCount() int32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refCount
}

// UncompressedByteSize returns voxel_byte_size * voxelCount, the size of the block's buffer when
// uncompressed.
func (b *Block) UncompressedByteSize() int {
	return int(b.layer.VoxelByteSize) * b.voxelCount
}
