package ohmblock

// View is a scoped handle onto a Block's uncompressed voxel bytes, acquired with Acquire or
// AcquireWrite and released with Release. Acquiring increments the block's reference count and
// transparently decompresses it if it was idle and compressed; releasing decrements it, making the
// block eligible for background compression once the count returns to zero.
type View struct {
	block    *Block
	writable bool
	released bool
}

// Acquire returns a read-only View onto block, decompressing it first if necessary.
func Acquire(b *Block) (*View, error) {
	return acquire(b, false)
}

// AcquireWrite returns a writable View onto block, decompressing it first if necessary.
func AcquireWrite(b *Block) (*View, error) {
	return acquire(b, true)
}

func acquire(b *Block, writable bool) (*View, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.decompressLocked(); err != nil {
		return nil, err
	}
	b.refCount++
	return &View{block: b, writable: writable}, nil
}

// Release drops this view's hold on its block. Calling Release more than once is a no-op.
func (v *View) Release() {
	if v.released {
		return
	}
	v.released = true

	v.block.mu.Lock()
	defer v.block.mu.Unlock()
	if v.block.refCount > 0 {
		v.block.refCount--
	}
}

// Writable reports whether this view permits mutation.
func (v *View) Writable() bool {
	return v.writable
}

// Bytes returns the full underlying voxel buffer. Mutating the returned slice of a read-only view
// is a misuse the type system cannot prevent in Go; callers should treat it as immutable unless
// they acquired the view via AcquireWrite.
func (v *View) Bytes() []byte {
	return v.block.data
}

// VoxelBytes returns the raw bytes of the voxel at localIndex within this block.
func (v *View) VoxelBytes(localIndex int) []byte {
	voxelSize := int(v.block.layer.VoxelByteSize)
	start := localIndex * voxelSize
	return v.block.data[start : start+voxelSize]
}
