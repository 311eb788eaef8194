package ohm

import (
	"io"

	"github.com/pkg/errors"

	"github.com/ohmcore/ohm/ohmserialize"
)

// flagNdt is stored in the serialized header's reserved flags word to record whether the map
// that wrote the file used the NDT ray mapper, since DefaultLayout always carries the mean and
// covariance layers regardless of which mapper is selected (spec.md §3's layers are a property of
// the layout, not of which mapper happens to be driving it) and so can't be used to recover this
// on Load.
const flagNdt uint32 = 1 << 31

// Save writes the map's geometry, layout, regions, occupancy parameters and MapInfo to w in the
// Serializer's versioned binary format (spec.md §4.9).
func (m *Map) Save(w io.Writer, opts ohmserialize.Options) error {
	return ohmserialize.Save(w, m.saveInput(), opts)
}

// SaveFile writes the map to a file at path, by convention carrying the .ohm extension.
func (m *Map) SaveFile(path string, opts ohmserialize.Options) error {
	return ohmserialize.SaveFile(path, m.saveInput(), opts)
}

func (m *Map) saveInput() ohmserialize.SaveInput {
	flags := m.Flags
	if m.ndt {
		flags |= flagNdt
	}
	return ohmserialize.SaveInput{
		Geometry: m.Geometry,
		Layout:   m.Layout,
		Regions:  m.Regions,
		Params:   m.params,
		Flags:    flags,
		MapInfo:  m.MapInfo,
	}
}

// Load reconstructs a Map from a stream previously written by Save or SaveFile. cfg supplies the
// settings Save does not persist: the ray filter, compression watermarks, logger, and NdtParams.
// cfg's Origin, Resolution, RegionVoxelDim, Ndt and Params are ignored in favor of the loaded
// file's own values.
func Load(r io.Reader, cfg MapConfig, opts ohmserialize.Options) (*Map, error) {
	result, err := ohmserialize.Load(r, opts)
	if err != nil {
		return nil, err
	}
	return fromLoadResult(result, cfg)
}

// LoadFile reconstructs a Map from a file previously written by Save or SaveFile.
func LoadFile(path string, cfg MapConfig, opts ohmserialize.Options) (*Map, error) {
	result, err := ohmserialize.LoadFile(path, opts)
	if err != nil {
		return nil, err
	}
	return fromLoadResult(result, cfg)
}

func fromLoadResult(result *ohmserialize.LoadResult, cfg MapConfig) (*Map, error) {
	loadedCfg := cfg
	loadedCfg.Ndt = result.Flags&flagNdt != 0
	loadedCfg.Params = result.Params

	m, err := buildMap(result.Geometry, result.Layout, result.Regions, loadedCfg)
	if err != nil {
		return nil, errors.Wrap(err, "ohm: reconstructing map from loaded snapshot")
	}
	m.Flags = result.Flags &^ flagNdt
	m.MapInfo = result.MapInfo
	return m, nil
}
