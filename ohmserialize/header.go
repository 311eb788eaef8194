package ohmserialize

import (
	"github.com/golang/geo/r3"

	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
	"github.com/ohmcore/ohm/ohmmapper"
)

// header is the Serializer's fixed-format section preceding the Layout and region records, per
// spec.md §4.9: magic, version, region_count, map origin, resolution, region_voxel_dim, occupancy
// parameters, saturation flags, a reserved flags word, and the MapInfo block.
type header struct {
	Version        Version
	RegionCount    uint32
	Origin         r3.Vector
	Resolution     float64
	RegionVoxelDim [3]uint8
	Params         ohmmapper.Params
	Flags          uint32
	MapInfo        MapInfo
}

func writeHeader(bw *binWriter, h header) {
	bw.bytes(magic[:])
	bw.u16(h.Version.Major)
	bw.u16(h.Version.Minor)
	bw.u16(h.Version.Patch)
	bw.u32(h.RegionCount)
	bw.f64(h.Origin.X)
	bw.f64(h.Origin.Y)
	bw.f64(h.Origin.Z)
	bw.f64(h.Resolution)
	bw.u8(h.RegionVoxelDim[0])
	bw.u8(h.RegionVoxelDim[1])
	bw.u8(h.RegionVoxelDim[2])
	bw.f64(float64(h.Params.HitValue))
	bw.f64(float64(h.Params.MissValue))
	bw.f64(float64(h.Params.OccupancyThresholdValue))
	bw.f64(float64(h.Params.MinVoxelValue))
	bw.f64(float64(h.Params.MaxVoxelValue))
	var satFlags uint32
	if h.Params.SaturateAtMin {
		satFlags |= 1
	}
	if h.Params.SaturateAtMax {
		satFlags |= 2
	}
	bw.u32(satFlags)
	bw.u32(h.Flags)

	bw.u32(uint32(len(h.MapInfo)))
	for _, e := range h.MapInfo {
		bw.str(e.Name)
		bw.u8(uint8(e.Type))
		bw.blob(e.Bytes)
	}
}

func readHeader(br *binReader) (header, error) {
	var h header

	gotMagic := br.fill(4)
	if br.err != nil {
		return h, wrapErr(KindTruncated, br.err)
	}
	if gotMagic[0] != magic[0] || gotMagic[1] != magic[1] || gotMagic[2] != magic[2] || gotMagic[3] != magic[3] {
		return h, newErr(KindBadMagic, "ohmserialize: bad magic bytes %v", gotMagic)
	}

	h.Version.Major = br.u16()
	h.Version.Minor = br.u16()
	h.Version.Patch = br.u16()
	if br.err != nil {
		return h, wrapErr(KindTruncated, br.err)
	}
	if h.Version.Major != CurrentVersion.Major {
		return h, newErr(KindUnsupportedVersion, "ohmserialize: file major version %d, reader supports %d", h.Version.Major, CurrentVersion.Major)
	}

	h.RegionCount = br.u32()
	h.Origin.X = br.f64()
	h.Origin.Y = br.f64()
	h.Origin.Z = br.f64()
	h.Resolution = br.f64()
	h.RegionVoxelDim[0] = br.u8()
	h.RegionVoxelDim[1] = br.u8()
	h.RegionVoxelDim[2] = br.u8()
	h.Params.HitValue = float32(br.f64())
	h.Params.MissValue = float32(br.f64())
	h.Params.OccupancyThresholdValue = float32(br.f64())
	h.Params.MinVoxelValue = float32(br.f64())
	h.Params.MaxVoxelValue = float32(br.f64())
	satFlags := br.u32()
	h.Params.SaturateAtMin = satFlags&1 != 0
	h.Params.SaturateAtMax = satFlags&2 != 0
	h.Flags = br.u32()
	if br.err != nil {
		return h, wrapErr(KindTruncated, br.err)
	}

	mapInfoCount := br.u32()
	if br.err != nil {
		return h, wrapErr(KindTruncated, br.err)
	}
	h.MapInfo = make(MapInfo, 0, mapInfoCount)
	for i := uint32(0); i < mapInfoCount; i++ {
		name := br.str()
		typ := br.u8()
		b := br.blob()
		if br.err != nil {
			return h, wrapErr(KindTruncated, br.err)
		}
		h.MapInfo = append(h.MapInfo, MapInfoEntry{Name: name, Type: ohmlayout.MemberType(typ), Bytes: b})
	}
	return h, nil
}

// geometry reassembles an ohmkey.Geometry from the decoded header fields.
func (h header) geometry() (ohmkey.Geometry, error) {
	return ohmkey.NewGeometry(h.Origin, h.Resolution, h.RegionVoxelDim)
}
