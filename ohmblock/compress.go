package ohmblock

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// encoder/decoder are process-wide singletons: both EncodeAll and DecodeAll are documented by
// klauspost/compress/zstd as safe for concurrent use, so every Block in the process shares them
// rather than paying per-block construction cost.
var (
	encoderOnce sync.Once
	encoder     *zstd.Encoder

	decoderOnce sync.Once
	decoder     *zstd.Decoder
)

func sharedEncoder() *zstd.Encoder {
	encoderOnce.Do(func() {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			// Only fails on invalid options; the defaults above are always valid.
			panic(err)
		}
		encoder = enc
	})
	return encoder
}

func sharedDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			panic(err)
		}
		decoder = dec
	})
	return decoder
}

// Compress converts an idle block's backing bytes from Uncompressed to Compressed in place. It is
// a no-op if the block is already compressed, and returns an error if it still has live views
// (refCount > 0), matching spec.md §3's "on drop to zero the block becomes eligible for
// compression".
func (b *Block) Compress() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Compressed {
		return nil
	}
	if b.refCount > 0 {
		return errors.New("ohmblock: cannot compress a block with live views")
	}

	compressed := sharedEncoder().EncodeAll(b.data, make([]byte, 0, len(b.data)/2))
	b.data = compressed
	b.state = Compressed
	return nil
}

// decompressLocked returns this block's raw voxel bytes, decompressing into a fresh buffer and
// switching state back to Uncompressed if necessary. Caller must hold b.mu.
func (b *Block) decompressLocked() error {
	if b.state == Uncompressed {
		return nil
	}
	raw, err := sharedDecoder().DecodeAll(b.data, make([]byte, 0, b.UncompressedByteSize()))
	if err != nil {
		return errors.Wrap(err, "ohmblock: decompress")
	}
	b.data = raw
	b.state = Uncompressed
	return nil
}

// CompressedByteSize returns the current size of the block's backing bytes, whatever its state.
// Used by the compression queue to track resident memory.
func (b *Block) CompressedByteSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
