package ohmserialize

import (
	"encoding/binary"
	"math"

	"github.com/ohmcore/ohm/ohmlayout"
)

// MapInfoEntry is one named, typed value in a map's MapInfo block (spec.md §4.9: "length-prefixed
// {name, type, bytes}*"). The canonical keys a heightmap collaborator consumes are named in
// spec.md §6: heightmap:bool, heightmap-axis:i8, heightmap-axis-[xyz]:f64, heightmap-clearance:f64.
type MapInfoEntry struct {
	Name  string
	Type  ohmlayout.MemberType
	Bytes []byte
}

// MapInfo is an ordered list of MapInfoEntry, preserving write order across a save/load round trip.
type MapInfo []MapInfoEntry

// Get returns the raw entry named name, if present.
func (mi MapInfo) Get(name string) (MapInfoEntry, bool) {
	for _, e := range mi {
		if e.Name == name {
			return e, true
		}
	}
	return MapInfoEntry{}, false
}

// SetBool sets (or replaces) a bool-typed entry.
func (mi *MapInfo) SetBool(name string, v bool) {
	var b byte
	if v {
		b = 1
	}
	mi.set(name, ohmlayout.Bool, []byte{b})
}

// GetBool reads a bool-typed entry, returning false if absent.
func (mi MapInfo) GetBool(name string) bool {
	e, ok := mi.Get(name)
	return ok && len(e.Bytes) == 1 && e.Bytes[0] != 0
}

// SetInt8 sets (or replaces) an int8-typed entry.
func (mi *MapInfo) SetInt8(name string, v int8) {
	mi.set(name, ohmlayout.Int8, []byte{byte(v)})
}

// GetInt8 reads an int8-typed entry, returning 0 if absent.
func (mi MapInfo) GetInt8(name string) int8 {
	e, ok := mi.Get(name)
	if !ok || len(e.Bytes) != 1 {
		return 0
	}
	return int8(e.Bytes[0])
}

// SetFloat64 sets (or replaces) a float64-typed entry.
func (mi *MapInfo) SetFloat64(name string, v float64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	mi.set(name, ohmlayout.Float64, b)
}

// GetFloat64 reads a float64-typed entry, returning 0 if absent.
func (mi MapInfo) GetFloat64(name string) float64 {
	e, ok := mi.Get(name)
	if !ok || len(e.Bytes) != 8 {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(e.Bytes))
}

func (mi *MapInfo) set(name string, typ ohmlayout.MemberType, bytes []byte) {
	for i, e := range *mi {
		if e.Name == name {
			(*mi)[i] = MapInfoEntry{Name: name, Type: typ, Bytes: bytes}
			return
		}
	}
	*mi = append(*mi, MapInfoEntry{Name: name, Type: typ, Bytes: bytes})
}
