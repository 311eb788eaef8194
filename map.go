package ohm

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ohmcore/ohm/logging"
	"github.com/ohmcore/ohm/ohmblock"
	"github.com/ohmcore/ohm/ohmcompress"
	"github.com/ohmcore/ohm/ohmfilter"
	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
	"github.com/ohmcore/ohm/ohmmapper"
	"github.com/ohmcore/ohm/ohmregion"
	"github.com/ohmcore/ohm/ohmserialize"
)

// rayMapper is satisfied by both ohmmapper.OccupancyMapper and ohmmapper.NdtMapper; Map holds
// whichever one MapConfig.Ndt selected behind this interface.
type rayMapper interface {
	Integrate(rays []ohmmapper.Ray) int
}

// Map is the Occupancy Map (spec.md §3): key/region geometry, a voxel layout, a region dictionary,
// an optional background compression queue, and a ray mapper, constructed together so a caller
// only ever holds the one object.
type Map struct {
	Geometry ohmkey.Geometry
	Layout   *ohmlayout.Layout
	Regions  *ohmregion.Dictionary

	// MapInfo carries arbitrary named metadata alongside the map, round-tripped through Save/Load
	// (spec.md §6's MapInfo keys, e.g. the heightmap collaborator's axis/clearance settings).
	MapInfo ohmserialize.MapInfo
	// Flags is an opaque, serializer-preserved flags word (spec.md §4.9's header Flags field).
	Flags uint32

	compress *ohmcompress.Queue
	mapper   rayMapper
	stamp    *uint64
	logger   logging.Logger
	ndt      bool
	params   ohmmapper.Params
}

// New constructs a Map from cfg, returning a *ConfigError if cfg fails Validate.
func New(cfg MapConfig) (*Map, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	geom, err := ohmkey.NewGeometry(cfg.Origin, cfg.Resolution, cfg.RegionVoxelDim)
	if err != nil {
		return nil, errors.Wrap(err, "ohm: building geometry")
	}

	layout, err := ohmlayout.DefaultLayout()
	if err != nil {
		return nil, errors.Wrap(err, "ohm: building layout")
	}

	regions := ohmregion.NewDictionary(layout, geom)
	return buildMap(geom, layout, regions, cfg)
}

// buildMap assembles a Map's compression queue, ray mapper and lifecycle wiring around an
// already-constructed geometry/layout/region-dictionary triple, shared by New (freshly built
// components) and newFromLoaded (components reconstructed by ohmserialize.Load).
func buildMap(geom ohmkey.Geometry, layout *ohmlayout.Layout, regions *ohmregion.Dictionary, cfg MapConfig) (*Map, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNoop()
	}
	logger = logger.Named("ohm")

	var compress *ohmcompress.Queue
	var err error
	if cfg.HighTide > 0 {
		compress, err = ohmcompress.New(cfg.HighTide, cfg.LowTide, logger.Named("compress"))
		if err != nil {
			return nil, errors.Wrap(err, "ohm: building compression queue")
		}
		regions.ForEach(func(_ ohmkey.RegionCoord, r *ohmregion.Region) {
			r.ForEachBlock(func(_ int, b *ohmblock.Block) {
				compress.Register(b)
			})
		})
		compress.Start()
	}

	regions.OnCreate = func(r *ohmregion.Region) {
		logger.Debugw("region created", "coord", r.Coord)
		if compress == nil {
			return
		}
		r.ForEachBlock(func(_ int, b *ohmblock.Block) {
			compress.Register(b)
		})
	}

	filter := cfg.Filter
	if filter == nil {
		filter = ohmfilter.Default
	}

	stamp := new(uint64)
	onWrite := func(b *ohmblock.Block) {
		if compress != nil {
			compress.Touch(b)
		}
	}

	var mapper rayMapper
	if cfg.Ndt {
		m, err := ohmmapper.NewNdtMapper(geom, layout, regions, filter, cfg.Params, cfg.NdtParams, stamp)
		if err != nil {
			return nil, errors.Wrap(err, "ohm: building NDT mapper")
		}
		m.OnWrite = onWrite
		mapper = m
	} else {
		m, err := ohmmapper.NewOccupancyMapper(geom, layout, regions, filter, cfg.Params, stamp)
		if err != nil {
			return nil, errors.Wrap(err, "ohm: building occupancy mapper")
		}
		m.OnWrite = onWrite
		mapper = m
	}

	return &Map{
		Geometry: geom,
		Layout:   layout,
		Regions:  regions,
		compress: compress,
		mapper:   mapper,
		stamp:    stamp,
		logger:   logger,
		ndt:      cfg.Ndt,
		params:   cfg.Params,
	}, nil
}

// Integrate applies every ray in rays to the map via its configured ray mapper (spec.md §4.7/§4.8),
// returning the count of rays accepted by the ray filter.
func (m *Map) Integrate(rays []ohmmapper.Ray) int {
	return m.mapper.Integrate(rays)
}

// Ndt reports whether this map was constructed with the NDT ray mapper.
func (m *Map) Ndt() bool {
	return m.ndt
}

// Params returns the occupancy parameters this map was constructed with.
func (m *Map) Params() ohmmapper.Params {
	return m.params
}

// RegionCount returns the number of allocated regions.
func (m *Map) RegionCount() int {
	return m.Regions.Len()
}

// Close stops the background compression worker, if one was started. A Map with HighTide == 0 in
// its config has no worker and Close is a no-op.
func (m *Map) Close() {
	if m.compress != nil {
		m.compress.Stop()
	}
}

// Occupancy looks up the occupancy layer's raw log-odds value for the voxel at world, returning
// ok=false if no region has been allocated at that location yet.
func (m *Map) Occupancy(world r3.Vector) (float32, bool) {
	key := m.Geometry.VoxelKey(world)
	region, ok := m.Regions.Get(key.Region)
	if !ok {
		return 0, false
	}
	occLayer, ok := m.Layout.Layer(ohmlayout.LayerOccupancy)
	if !ok {
		return 0, false
	}
	valueMember, ok := occLayer.Member(ohmlayout.MemberValue)
	if !ok {
		return 0, false
	}
	block := region.Block(occLayer.Index)
	view, err := ohmblock.Acquire(block)
	if err != nil {
		return 0, false
	}
	defer view.Release()
	localIdx := m.Geometry.LocalIndex(key)
	voxel := view.VoxelBytes(localIdx)
	return ohmlayout.DecodeFloat32(voxel, valueMember), true
}
