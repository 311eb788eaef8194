// Package ohmcompress implements the Compression Queue: a watermark-driven background worker that
// keeps the resident (uncompressed) footprint of a map's voxel blocks bounded. It is grounded on
// the teacher's utils.StoppableWorkers (a goroutine group that can be cancelled as a unit) for its
// background-worker lifecycle, generalized from a fixed worker function to a periodic tide-check
// scan.
package ohmcompress

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ohmcore/ohm/logging"
	"github.com/ohmcore/ohm/ohmblock"
	"github.com/ohmcore/ohm/utils"
)

// compressBatchSize bounds how many candidate blocks Scan hands to compressBatch's errgroup at
// once, so the resident total is re-checked against low_tide between batches instead of
// overshooting it by however much a fully-parallel pass would free.
const compressBatchSize = 4

// entry tracks one registered block's last-touched time and per-cycle compression eligibility.
type entry struct {
	block         *ohmblock.Block
	lastTouched   time.Time
	doNotCompress bool
}

// Queue tracks every registered block's resident byte footprint and compresses idle, long-quiet
// blocks once the total crosses high_tide, until it falls back to low_tide or no candidates remain.
type Queue struct {
	mu       sync.Mutex
	entries  map[*ohmblock.Block]*entry
	resident int64

	highTide int64
	lowTide  int64
	testMode bool

	logger  logging.Logger
	workers utils.StoppableWorkers

	scanInterval time.Duration
}

// New returns a Queue with the given watermarks. lowTide must be <= highTide, per spec.md §4.6.
func New(highTide, lowTide int64, logger logging.Logger) (*Queue, error) {
	if lowTide > highTide {
		return nil, errors.New("ohmcompress: low_tide must be <= high_tide")
	}
	if logger == nil {
		logger = logging.NewNoop()
	}
	return &Queue{
		entries:      map[*ohmblock.Block]*entry{},
		highTide:     highTide,
		lowTide:      lowTide,
		logger:       logger,
		scanInterval: time.Second,
	}, nil
}

// SetTestMode disables the background worker while still honoring watermark configuration and
// manual Scan calls, per spec.md §4.6's "test mode flag disables the background worker".
func (q *Queue) SetTestMode(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.testMode = enabled
}

// Register adds a block to the queue's tracking set and to the resident byte total. Called on
// region create (spec.md §4.6: "a map registers/deregisters its blocks on region create / map
// drop").
func (q *Queue) Register(b *ohmblock.Block) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.entries[b]; exists {
		return
	}
	q.entries[b] = &entry{block: b, lastTouched: time.Now()}
	q.resident += int64(b.CompressedByteSize())
}

// Deregister removes a block from tracking, called on map drop.
func (q *Queue) Deregister(b *ohmblock.Block) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[b]
	if !ok {
		return
	}
	q.resident -= int64(e.block.CompressedByteSize())
	delete(q.entries, b)
}

// Touch records a write to a registered block, resetting its last-touched time so it is the least
// likely candidate for the next compression pass.
func (q *Queue) Touch(b *ohmblock.Block) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.entries[b]; ok {
		e.lastTouched = time.Now()
		e.doNotCompress = false
	}
}

// ResidentBytes returns the queue's current tracked resident byte total. This is a best-effort
// cache updated on Register/Deregister/Scan, not a live re-measurement of every block.
func (q *Queue) ResidentBytes() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.resident
}

// Start launches the background worker via the teacher's StoppableWorkers pattern. It is a no-op
// in test mode. Calling Start more than once replaces the previous worker group.
func (q *Queue) Start() {
	q.mu.Lock()
	testMode := q.testMode
	interval := q.scanInterval
	q.mu.Unlock()

	if testMode {
		return
	}
	if q.workers != nil {
		q.workers.Stop()
	}
	q.workers = utils.NewStoppableWorkers(func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				q.Scan()
			}
		}
	})
}

// Stop shuts down the background worker, if one was started.
func (q *Queue) Stop() {
	if q.workers != nil {
		q.workers.Stop()
	}
}

// Scan runs one compression pass synchronously: if resident bytes exceed high_tide, the oldest
// idle, compressible candidates are compressed until resident falls to low_tide or no candidates
// remain. Safe to call directly in test mode.
func (q *Queue) Scan() {
	q.mu.Lock()
	if q.resident <= q.highTide {
		q.mu.Unlock()
		return
	}

	candidates := make([]*entry, 0, len(q.entries))
	for _, e := range q.entries {
		if e.doNotCompress {
			continue
		}
		if e.block.RefCount() != 0 {
			continue
		}
		if e.block.State() == ohmblock.Compressed {
			continue
		}
		candidates = append(candidates, e)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastTouched.Before(candidates[j].lastTouched)
	})
	lowTide := q.lowTide
	resident := q.resident
	q.mu.Unlock()

	for start := 0; start < len(candidates) && resident > lowTide; start += compressBatchSize {
		end := start + compressBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		resident -= q.compressBatch(candidates[start:end])
	}

	q.mu.Lock()
	q.resident = resident
	// This cycle is over: do-not-compress marks set by its failed compresses are cleared.
	for _, e := range q.entries {
		e.doNotCompress = false
	}
	q.mu.Unlock()
}

// compressBatch compresses every entry in batch concurrently (each block holds its own lock, so
// distinct blocks compress independently) and returns the total resident bytes freed. A failed
// compress marks its block do-not-compress for the remainder of this cycle and is logged, never
// returned as an error: compression failures must not propagate into the caller's ray-integration
// path (spec.md §7).
func (q *Queue) compressBatch(batch []*entry) int64 {
	var freed int64
	var g errgroup.Group
	for _, e := range batch {
		e := e
		g.Go(func() error {
			before := e.block.CompressedByteSize()
			if err := e.block.Compress(); err != nil {
				q.mu.Lock()
				e.doNotCompress = true
				q.mu.Unlock()
				q.logger.Warnw("compression failed, marking block do-not-compress for this cycle", "error", err)
				return nil
			}
			after := e.block.CompressedByteSize()
			atomic.AddInt64(&freed, int64(before-after))
			return nil
		})
	}
	_ = g.Wait()
	return freed
}
