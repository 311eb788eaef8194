package ohmregion

import (
	"sync"

	"github.com/golang/geo/r3"
	"golang.org/x/sync/errgroup"

	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
)

// Dictionary maps region coordinates to their Region, hashed on the region coordinate only
// (spec.md §4.1: "Hashing is on region only, collisions are handled by dictionary chaining"; a Go
// map keyed by the comparable RegionCoord struct gets that behaviour, with chaining handled by the
// runtime map implementation).
type Dictionary struct {
	mu      sync.RWMutex
	regions map[ohmkey.RegionCoord]*Region

	layout         *ohmlayout.Layout
	regionVoxelDim [3]uint8
	geom           ohmkey.Geometry

	// OnCreate, if set, is called with each newly-allocated region, outside the dictionary's lock.
	// The root ohm.Map uses this to register a new region's blocks with its compression queue.
	OnCreate func(r *Region)
}

// NewDictionary returns an empty Dictionary that allocates new regions using layout and geom.
func NewDictionary(layout *ohmlayout.Layout, geom ohmkey.Geometry) *Dictionary {
	return &Dictionary{
		regions:        map[ohmkey.RegionCoord]*Region{},
		layout:         layout,
		regionVoxelDim: geom.RegionVoxelDim,
		geom:           geom,
	}
}

// Get returns the region at coord and whether it exists, without allocating.
func (d *Dictionary) Get(coord ohmkey.RegionCoord) (*Region, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.regions[coord]
	return r, ok
}

// GetOrCreate returns the region at coord, allocating and locking the layout on first access.
func (d *Dictionary) GetOrCreate(coord ohmkey.RegionCoord) *Region {
	d.mu.RLock()
	r, ok := d.regions[coord]
	d.mu.RUnlock()
	if ok {
		return r
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.regions[coord]; ok {
		return r
	}
	if !d.layout.Locked() {
		d.layout.Lock()
	}
	centre := d.geom.RegionCentre(coord)
	r = New(coord, centre, d.layout, d.regionVoxelDim)
	d.regions[coord] = r
	onCreate := d.OnCreate
	d.mu.Unlock()
	if onCreate != nil {
		onCreate(r)
	}
	d.mu.Lock()
	return r
}

// InsertLoaded registers an already-built region (as ohmserialize constructs via NewFromBlocks
// when loading a saved map) under coord, locking the layout as GetOrCreate would. Overwrites any
// existing region at coord.
func (d *Dictionary) InsertLoaded(coord ohmkey.RegionCoord, r *Region) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.layout.Locked() {
		d.layout.Lock()
	}
	d.regions[coord] = r
}

// Len returns the number of allocated regions.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.regions)
}

// ForEach invokes fn for every region currently in the dictionary. fn must not call back into the
// Dictionary.
func (d *Dictionary) ForEach(fn func(coord ohmkey.RegionCoord, r *Region)) {
	d.mu.RLock()
	snapshot := make(map[ohmkey.RegionCoord]*Region, len(d.regions))
	for k, v := range d.regions {
		snapshot[k] = v
	}
	d.mu.RUnlock()
	for k, v := range snapshot {
		fn(k, v)
	}
}

// ForEachConcurrent snapshots the dictionary exactly as ForEach does, then invokes fn for every
// region on a worker pool bounded to limit goroutines at once, per spec.md §4.4's concurrent
// snapshot enumeration. fn must not call back into the Dictionary. limit <= 0 is treated as 1. The
// first error any fn call returns is propagated after every in-flight call has completed; other
// regions' fn calls still run (errgroup.Group without WithContext does not cancel siblings).
func (d *Dictionary) ForEachConcurrent(limit int, fn func(coord ohmkey.RegionCoord, r *Region) error) error {
	if limit <= 0 {
		limit = 1
	}
	d.mu.RLock()
	snapshot := make(map[ohmkey.RegionCoord]*Region, len(d.regions))
	for k, v := range d.regions {
		snapshot[k] = v
	}
	d.mu.RUnlock()

	var g errgroup.Group
	g.SetLimit(limit)
	for k, v := range snapshot {
		k, v := k, v
		g.Go(func() error {
			return fn(k, v)
		})
	}
	return g.Wait()
}

// Delete removes the region at coord, if present. Used by callers trimming empty regions.
func (d *Dictionary) Delete(coord ohmkey.RegionCoord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.regions, coord)
}

// Bounds returns the axis-aligned bounding box of centres across every allocated region. ok is
// false if the dictionary is empty.
func (d *Dictionary) Bounds() (min, max r3.Vector, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	first := true
	for _, r := range d.regions {
		if first {
			min, max = r.Centre, r.Centre
			first = false
			continue
		}
		min = r3.Vector{X: minF(min.X, r.Centre.X), Y: minF(min.Y, r.Centre.Y), Z: minF(min.Z, r.Centre.Z)}
		max = r3.Vector{X: maxF(max.X, r.Centre.X), Y: maxF(max.Y, r.Centre.Y), Z: maxF(max.Z, r.Centre.Z)}
	}
	return min, max, !first
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
