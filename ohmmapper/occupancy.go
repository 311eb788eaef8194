package ohmmapper

import (
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"

	"github.com/ohmcore/ohm/ohmblock"
	"github.com/ohmcore/ohm/ohmfilter"
	"github.com/ohmcore/ohm/ohmkey"
	"github.com/ohmcore/ohm/ohmlayout"
	"github.com/ohmcore/ohm/ohmray"
	"github.com/ohmcore/ohm/ohmregion"
)

// OccupancyMapper is the Occupancy Ray Mapper (spec.md §4.7): it walks each ray through the grid
// and applies the occupancy hit/miss update, plus any of the mean, traversal, intensity, hit/miss
// and incident-normal layers the map's layout enables.
type OccupancyMapper struct {
	Geometry ohmkey.Geometry
	Layout   *ohmlayout.Layout
	Regions  *ohmregion.Dictionary
	Filter   ohmfilter.Filter
	Params   Params
	Stamp    *uint64

	// OnWrite, if set, is called after every voxel write so a caller-owned ohmcompress.Queue can
	// refresh the block's last-touched time.
	OnWrite func(block *ohmblock.Block)
	// Clock returns the current wall-clock time in seconds, used for Region.Touch's touched_time.
	// Defaults to time.Now if nil.
	Clock func() float64

	layers layerSet
}

// NewOccupancyMapper constructs a mapper and caches the layout's layer lookups. Fails if the
// layout has no usable occupancy layer.
func NewOccupancyMapper(geom ohmkey.Geometry, layout *ohmlayout.Layout, regions *ohmregion.Dictionary, filter ohmfilter.Filter, params Params, stamp *uint64) (*OccupancyMapper, error) {
	layers, err := buildLayerSet(layout)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = ohmfilter.Default
	}
	return &OccupancyMapper{
		Geometry: geom,
		Layout:   layout,
		Regions:  regions,
		Filter:   filter,
		Params:   params,
		Stamp:    stamp,
		layers:   layers,
	}, nil
}

func (m *OccupancyMapper) now() float64 {
	if m.Clock != nil {
		return m.Clock()
	}
	return float64(time.Now().UnixNano()) / 1e9
}

func (m *OccupancyMapper) nextStamp() uint64 {
	if m.Stamp == nil {
		return 0
	}
	return atomic.AddUint64(m.Stamp, 1)
}

// Integrate applies every ray in rays and returns the number accepted by the Ray Filter (spec.md
// §4.7's "Output: number of rays processed").
func (m *OccupancyMapper) Integrate(rays []Ray) int {
	accepted := 0
	for _, ray := range rays {
		if m.integrateOne(ray) {
			accepted++
		}
	}
	return accepted
}

func (m *OccupancyMapper) integrateOne(ray Ray) bool {
	start, end := ray.Origin, ray.Sample
	flags := ray.Flags
	if !m.Filter(&start, &end, &flags) {
		return false
	}

	stamp := m.nextStamp()
	now := m.now()

	ohmray.Walk(m.Geometry, start, end, func(v ohmray.Visit) bool {
		region := m.Regions.GetOrCreate(v.Key.Region)
		localIdx := m.Geometry.LocalIndex(v.Key)

		if v.IsEnd {
			if flags&ohmfilter.ExcludeSample != 0 || flags&ohmfilter.EndPointAsFree != 0 {
				m.applyMiss(region, localIdx, now, stamp)
			} else {
				m.applyHit(region, localIdx, v.Key, ray, now, stamp)
			}
		} else {
			if flags&ohmfilter.ExcludeRay == 0 {
				m.applyMiss(region, localIdx, now, stamp)
			}
		}

		if m.layers.hasTraversal {
			m.addTraversal(region, localIdx, v.Exit-v.Entry, now, stamp)
		}
		return true
	})
	return true
}

func (m *OccupancyMapper) applyMiss(region *ohmregion.Region, localIdx int, now float64, stamp uint64) {
	block := region.Block(m.layers.occupancyIdx)
	view, err := ohmblock.AcquireWrite(block)
	if err != nil {
		return
	}
	defer view.Release()

	voxel := view.VoxelBytes(localIdx)
	value := ohmlayout.DecodeFloat32(voxel, m.layers.occupancyVal)

	var newValue float32
	if ohmlayout.IsUnobserved(value) {
		newValue = m.Params.MissValue
	} else if saturatedAtMin(value, m.Params) {
		newValue = value
	} else {
		newValue = clampValue(value+m.Params.MissValue, m.Params)
	}
	ohmlayout.EncodeFloat32(voxel, m.layers.occupancyVal, newValue)
	region.Touch(m.layers.occupancyIdx, now, stamp)
	m.notifyWrite(block)

	if m.layers.hasHitMiss && newValue < value {
		m.incrementMiss(region, localIdx, now, stamp)
	}
}

func (m *OccupancyMapper) applyHit(region *ohmregion.Region, localIdx int, key ohmkey.Key, ray Ray, now float64, stamp uint64) {
	sample := ray.Sample
	block := region.Block(m.layers.occupancyIdx)
	view, err := ohmblock.AcquireWrite(block)
	if err != nil {
		return
	}
	value := ohmlayout.DecodeFloat32(view.VoxelBytes(localIdx), m.layers.occupancyVal)

	var newValue float32
	if ohmlayout.IsUnobserved(value) {
		newValue = m.Params.HitValue
	} else if saturatedAtMax(value, m.Params) {
		newValue = value
	} else {
		newValue = clampValue(value+m.Params.HitValue, m.Params)
	}
	ohmlayout.EncodeFloat32(view.VoxelBytes(localIdx), m.layers.occupancyVal, newValue)
	view.Release()
	region.Touch(m.layers.occupancyIdx, now, stamp)
	m.notifyWrite(block)

	if m.layers.hasHitMiss && newValue > value {
		m.incrementHit(region, localIdx, now, stamp)
	}

	// Samples already in the voxel before this one: the running-average weight for intensity and
	// incident, read before accumulateMean counts this sample.
	count := m.meanCountFor(region, localIdx)

	if m.layers.hasMean {
		m.accumulateMean(region, localIdx, key, sample, now, stamp)
	}

	if m.layers.hasIntensity && ray.HasIntensity {
		m.accumulateIntensity(region, localIdx, ray.Intensity, count, now, stamp)
	}

	if m.layers.hasIncident {
		incidentRay := ray.Origin.Sub(sample)
		m.accumulateIncident(region, localIdx, incidentRay, count, now, stamp)
	}
}

func (m *OccupancyMapper) incrementHit(region *ohmregion.Region, localIdx int, now float64, stamp uint64) {
	block := region.Block(m.layers.hitMissIdx)
	view, err := ohmblock.AcquireWrite(block)
	if err != nil {
		return
	}
	defer view.Release()
	voxel := view.VoxelBytes(localIdx)
	hit := ohmlayout.DecodeUInt32(voxel, m.layers.hit)
	ohmlayout.EncodeUInt32(voxel, m.layers.hit, hit+1)
	region.Touch(m.layers.hitMissIdx, now, stamp)
	m.notifyWrite(block)
}

func (m *OccupancyMapper) incrementMiss(region *ohmregion.Region, localIdx int, now float64, stamp uint64) {
	block := region.Block(m.layers.hitMissIdx)
	view, err := ohmblock.AcquireWrite(block)
	if err != nil {
		return
	}
	defer view.Release()
	voxel := view.VoxelBytes(localIdx)
	miss := ohmlayout.DecodeUInt32(voxel, m.layers.miss)
	ohmlayout.EncodeUInt32(voxel, m.layers.miss, miss+1)
	region.Touch(m.layers.hitMissIdx, now, stamp)
	m.notifyWrite(block)
}

// accumulateMean applies spec.md §4.7 step 5's running mean update:
//
//	coord := pack((mean_old*count + sample_local) / (count+1))
//	count := min(count+1, u32::MAX)
func (m *OccupancyMapper) accumulateMean(region *ohmregion.Region, localIdx int, key ohmkey.Key, sample r3.Vector, now float64, stamp uint64) {
	block := region.Block(m.layers.meanIdx)
	view, err := ohmblock.AcquireWrite(block)
	if err != nil {
		return
	}
	defer view.Release()

	voxel := view.VoxelBytes(localIdx)
	packedCoord := ohmlayout.DecodeUInt32(voxel, m.layers.meanCoord)
	count := ohmlayout.DecodeUInt32(voxel, m.layers.meanCount)

	voxelCentre := m.Geometry.VoxelCentre(key)
	sampleLocal := sample.Sub(voxelCentre)

	var newOffset [3]float64
	if count == 0 {
		newOffset = [3]float64{sampleLocal.X, sampleLocal.Y, sampleLocal.Z}
	} else {
		oldOffset := unpackMeanCoord(packedCoord, m.Geometry.Resolution)
		n := float64(count)
		newOffset = [3]float64{
			(oldOffset[0]*n + sampleLocal.X) / (n + 1),
			(oldOffset[1]*n + sampleLocal.Y) / (n + 1),
			(oldOffset[2]*n + sampleLocal.Z) / (n + 1),
		}
	}

	newCount := count
	if newCount != ^uint32(0) {
		newCount++
	}

	ohmlayout.EncodeUInt32(voxel, m.layers.meanCoord, packMeanCoord(newOffset, m.Geometry.Resolution))
	ohmlayout.EncodeUInt32(voxel, m.layers.meanCount, newCount)
	region.Touch(m.layers.meanIdx, now, stamp)
	m.notifyWrite(block)
}

// addTraversal accumulates the chord length of the ray through the voxel at localIdx, per
// spec.md §4.7 step 6.
func (m *OccupancyMapper) addTraversal(region *ohmregion.Region, localIdx int, chordLength float64, now float64, stamp uint64) {
	block := region.Block(m.layers.traversalIdx)
	view, err := ohmblock.AcquireWrite(block)
	if err != nil {
		return
	}
	defer view.Release()
	voxel := view.VoxelBytes(localIdx)
	length := ohmlayout.DecodeFloat32(voxel, m.layers.traversalLen)
	ohmlayout.EncodeFloat32(voxel, m.layers.traversalLen, length+float32(chordLength))
	region.Touch(m.layers.traversalIdx, now, stamp)
	m.notifyWrite(block)
}

func (m *OccupancyMapper) notifyWrite(block *ohmblock.Block) {
	if m.OnWrite != nil {
		m.OnWrite(block)
	}
}
