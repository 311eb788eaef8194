package ohmserialize

import (
	"bufio"
	"io"
	"sort"

	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
	"github.com/ohmcore/ohm/ohmmapper"
	"github.com/ohmcore/ohm/ohmregion"
)

// Options controls cancellation and progress reporting for Save and Load, per spec.md §4.9.
type Options struct {
	// ShouldQuit, if set, is consulted between regions; a true return aborts the operation with
	// ErrAborted, writing (or reading) nothing further.
	ShouldQuit func() bool
	// OnProgress, if set, is called after every region with (done, target).
	OnProgress func(done, target int)
}

func (o Options) shouldQuit() bool {
	return o.ShouldQuit != nil && o.ShouldQuit()
}

func (o Options) reportProgress(done, target int) {
	if o.OnProgress != nil {
		o.OnProgress(done, target)
	}
}

// SaveInput bundles the pieces of a map Save needs. It operates on the individual ohmkey/ohmlayout/
// ohmregion/ohmmapper components directly rather than a root map type, so the Serializer has no
// dependency on whatever container package composes them.
type SaveInput struct {
	Geometry ohmkey.Geometry
	Layout   *ohmlayout.Layout
	Regions  *ohmregion.Dictionary
	Params   ohmmapper.Params
	Flags    uint32
	MapInfo  MapInfo
}

// Save writes in to w in the Serializer's versioned binary format.
func Save(w io.Writer, in SaveInput, opts Options) error {
	buffered := bufio.NewWriter(w)
	bw := &binWriter{w: buffered}

	type regionEntry struct {
		coord  ohmkey.RegionCoord
		region *ohmregion.Region
	}
	var all []regionEntry
	in.Regions.ForEach(func(coord ohmkey.RegionCoord, r *ohmregion.Region) {
		all = append(all, regionEntry{coord, r})
	})
	// ForEach ranges over a Go map, whose iteration order is randomized; regions are sorted by
	// coordinate before writing so repeated saves of the same map are byte-identical (spec.md §8).
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].coord, all[j].coord
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})

	h := header{
		Version:        CurrentVersion,
		RegionCount:    uint32(len(all)),
		Origin:         in.Geometry.Origin,
		Resolution:     in.Geometry.Resolution,
		RegionVoxelDim: in.Geometry.RegionVoxelDim,
		Params:         in.Params,
		Flags:          in.Flags,
		MapInfo:        in.MapInfo,
	}
	writeHeader(bw, h)
	writeLayout(bw, in.Layout)
	if bw.err != nil {
		return wrapErr(KindIO, bw.err)
	}

	layers := in.Layout.Layers()
	for i, entry := range all {
		if opts.shouldQuit() {
			return ErrAborted
		}
		if err := writeRegion(bw, entry.region, layers); err != nil {
			return err
		}
		opts.reportProgress(i+1, len(all))
	}

	if bw.err != nil {
		return wrapErr(KindIO, bw.err)
	}
	return wrapErr(KindIO, buffered.Flush())
}

// LoadResult is what Load reconstructs from a saved file.
type LoadResult struct {
	Geometry ohmkey.Geometry
	Layout   *ohmlayout.Layout
	Regions  *ohmregion.Dictionary
	Params   ohmmapper.Params
	Flags    uint32
	MapInfo  MapInfo
}

// Load reads a map previously written by Save, reconstructing its geometry, layout, regions,
// occupancy parameters and MapInfo from the stream.
func Load(r io.Reader, opts Options) (*LoadResult, error) {
	br := &binReader{r: bufio.NewReader(r)}

	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	layout, err := readLayout(br)
	if err != nil {
		return nil, err
	}
	geom, geomErr := h.geometry()
	if geomErr != nil {
		return nil, wrapErr(KindLayoutMismatch, geomErr)
	}

	regions := ohmregion.NewDictionary(layout, geom)
	layers := layout.Layers()

	for i := uint32(0); i < h.RegionCount; i++ {
		if opts.shouldQuit() {
			return nil, ErrAborted
		}
		region, rerr := readRegion(br, layers, geom.RegionVoxelDim)
		if rerr != nil {
			return nil, rerr
		}
		regions.InsertLoaded(region.Coord, region)
		opts.reportProgress(int(i)+1, int(h.RegionCount))
	}

	return &LoadResult{
		Geometry: geom,
		Layout:   layout,
		Regions:  regions,
		Params:   h.Params,
		Flags:    h.Flags,
		MapInfo:  h.MapInfo,
	}, nil
}
