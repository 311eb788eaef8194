package ohmmapper

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/ohmcore/ohm/ohmlayout"
)

// layerSet caches the layer and member lookups a mapper needs once per map, rather than walking
// ohmlayout.Layout.Layer/Member by name on every voxel touched during integration.
type layerSet struct {
	occupancyIdx int
	occupancyVal ohmlayout.Member

	hasMean   bool
	meanIdx   int
	meanCoord ohmlayout.Member
	meanCount ohmlayout.Member

	hasCovariance bool
	covarianceIdx int
	triangular    [6]ohmlayout.Member

	hasTraversal bool
	traversalIdx int
	traversalLen ohmlayout.Member

	hasIncident  bool
	incidentIdx  int
	incidentNorm ohmlayout.Member

	hasIntensity  bool
	intensityIdx  int
	intensityMean ohmlayout.Member
	intensityCov  ohmlayout.Member

	hasHitMiss bool
	hitMissIdx int
	hit        ohmlayout.Member
	miss       ohmlayout.Member
}

func buildLayerSet(layout *ohmlayout.Layout) (layerSet, error) {
	var ls layerSet

	occ, ok := layout.Layer(ohmlayout.LayerOccupancy)
	if !ok {
		return ls, errMissingOccupancyLayer
	}
	valueMember, ok := occ.Member(ohmlayout.MemberValue)
	if !ok {
		return ls, errMissingOccupancyLayer
	}
	ls.occupancyIdx = occ.Index
	ls.occupancyVal = valueMember

	if mean, ok := layout.Layer(ohmlayout.LayerMean); ok {
		if coord, ok := mean.Member(ohmlayout.MemberCoord); ok {
			if count, ok := mean.Member(ohmlayout.MemberCount); ok {
				ls.hasMean = true
				ls.meanIdx = mean.Index
				ls.meanCoord = coord
				ls.meanCount = count
			}
		}
	}

	if cov, ok := layout.Layer(ohmlayout.LayerCovariance); ok {
		names := [6]string{"t00", "t10", "t11", "t20", "t21", "t22"}
		allPresent := true
		var members [6]ohmlayout.Member
		for i, n := range names {
			m, ok := cov.Member(n)
			if !ok {
				allPresent = false
				break
			}
			members[i] = m
		}
		if allPresent {
			ls.hasCovariance = true
			ls.covarianceIdx = cov.Index
			ls.triangular = members
		}
	}

	if trav, ok := layout.Layer(ohmlayout.LayerTraversal); ok {
		if m, ok := trav.Member(ohmlayout.MemberLength); ok {
			ls.hasTraversal = true
			ls.traversalIdx = trav.Index
			ls.traversalLen = m
		}
	}

	if inc, ok := layout.Layer(ohmlayout.LayerIncident); ok {
		if m, ok := inc.Member(ohmlayout.MemberPackedNormal); ok {
			ls.hasIncident = true
			ls.incidentIdx = inc.Index
			ls.incidentNorm = m
		}
	}

	if intensity, ok := layout.Layer(ohmlayout.LayerIntensity); ok {
		mean, okMean := intensity.Member(ohmlayout.MemberMean)
		cov, okCov := intensity.Member(ohmlayout.MemberCov)
		if okMean && okCov {
			ls.hasIntensity = true
			ls.intensityIdx = intensity.Index
			ls.intensityMean = mean
			ls.intensityCov = cov
		}
	}

	if hm, ok := layout.Layer(ohmlayout.LayerHitMiss); ok {
		hit, okHit := hm.Member(ohmlayout.MemberHit)
		miss, okMiss := hm.Member(ohmlayout.MemberMiss)
		if okHit && okMiss {
			ls.hasHitMiss = true
			ls.hitMissIdx = hm.Index
			ls.hit = hit
			ls.miss = miss
		}
	}

	return ls, nil
}

// packMeanCoord packs a sub-voxel offset (each axis in [-resolution/2, resolution/2]) into a u32:
// 10 bits per axis, normalized to [0,1023] across the voxel's full span. This is the engine's own
// choice of packing — spec.md §3 names the member ("coord: u32, packed sub-voxel offset") but does
// not fix its bit layout.
func packMeanCoord(offset [3]float64, resolution float64) uint32 {
	pack := func(v float64) uint32 {
		norm := (v/resolution + 0.5)
		if norm < 0 {
			norm = 0
		}
		if norm > 1 {
			norm = 1
		}
		return uint32(math.Round(norm * 1023))
	}
	x := pack(offset[0])
	y := pack(offset[1])
	z := pack(offset[2])
	return x | (y << 10) | (z << 20)
}

// DecodeMeanVoxel reads the mean layer's packed sub-voxel offset and sample count out of a raw
// mean-layer voxel, returning the world-space accumulated sample position. Exported for callers
// (point-cloud/heightmap export) that need the mean position without duplicating the packing
// scheme.
func DecodeMeanVoxel(voxel []byte, coordMember, countMember ohmlayout.Member, voxelCentre r3.Vector, resolution float64) (r3.Vector, uint32) {
	count := ohmlayout.DecodeUInt32(voxel, countMember)
	if count == 0 {
		return voxelCentre, 0
	}
	packed := ohmlayout.DecodeUInt32(voxel, coordMember)
	offset := unpackMeanCoord(packed, resolution)
	return r3.Vector{
		X: voxelCentre.X + offset[0],
		Y: voxelCentre.Y + offset[1],
		Z: voxelCentre.Z + offset[2],
	}, count
}

func unpackMeanCoord(packed uint32, resolution float64) [3]float64 {
	unpack := func(raw uint32) float64 {
		norm := float64(raw) / 1023.0
		return (norm - 0.5) * resolution
	}
	return [3]float64{
		unpack(packed & 0x3FF),
		unpack((packed >> 10) & 0x3FF),
		unpack((packed >> 20) & 0x3FF),
	}
}
