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

// NdtMapper is the NDT Ray Mapper (spec.md §4.8): it walks rays exactly as OccupancyMapper does,
// but replaces the plain occupancy hit/miss adjustment with the covariance-modulated update from
// CalculateHitWithCovariance/CalculateMissNdt once a voxel holds enough samples to trust its
// covariance estimate.
type NdtMapper struct {
	Geometry ohmkey.Geometry
	Layout   *ohmlayout.Layout
	Regions  *ohmregion.Dictionary
	Filter   ohmfilter.Filter
	Params   Params
	Ndt      NdtParams
	Stamp    *uint64

	OnWrite func(block *ohmblock.Block)
	Clock   func() float64

	layers layerSet
}

// NewNdtMapper constructs an NDT mapper. Unlike OccupancyMapper, it requires both the mean and
// covariance layers, since the NDT update cannot run without a per-voxel sample distribution.
func NewNdtMapper(geom ohmkey.Geometry, layout *ohmlayout.Layout, regions *ohmregion.Dictionary, filter ohmfilter.Filter, params Params, ndt NdtParams, stamp *uint64) (*NdtMapper, error) {
	layers, err := buildLayerSet(layout)
	if err != nil {
		return nil, err
	}
	if !layers.hasMean || !layers.hasCovariance {
		return nil, errMissingCovarianceLayer
	}
	if filter == nil {
		filter = ohmfilter.Default
	}
	return &NdtMapper{
		Geometry: geom,
		Layout:   layout,
		Regions:  regions,
		Filter:   filter,
		Params:   params,
		Ndt:      ndt,
		Stamp:    stamp,
		layers:   layers,
	}, nil
}

func (m *NdtMapper) now() float64 {
	if m.Clock != nil {
		return m.Clock()
	}
	return float64(time.Now().UnixNano()) / 1e9
}

func (m *NdtMapper) nextStamp() uint64 {
	if m.Stamp == nil {
		return 0
	}
	return atomic.AddUint64(m.Stamp, 1)
}

func (m *NdtMapper) notifyWrite(block *ohmblock.Block) {
	if m.OnWrite != nil {
		m.OnWrite(block)
	}
}

// Integrate applies every ray in rays and returns the number accepted by the Ray Filter.
func (m *NdtMapper) Integrate(rays []Ray) int {
	accepted := 0
	for _, ray := range rays {
		if m.integrateOne(ray) {
			accepted++
		}
	}
	return accepted
}

func (m *NdtMapper) integrateOne(ray Ray) bool {
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
		voxelCentre := m.Geometry.VoxelCentre(v.Key)

		if v.IsEnd {
			if flags&ohmfilter.ExcludeSample != 0 || flags&ohmfilter.EndPointAsFree != 0 {
				m.applyMiss(region, localIdx, voxelCentre, ray.Origin, ray.Sample, now, stamp)
			} else {
				m.applyHit(region, localIdx, voxelCentre, ray.Sample, now, stamp)
			}
		} else {
			if flags&ohmfilter.ExcludeRay == 0 {
				m.applyMiss(region, localIdx, voxelCentre, ray.Origin, ray.Sample, now, stamp)
			}
		}

		if m.layers.hasTraversal {
			m.addTraversal(region, localIdx, v.Exit-v.Entry, now, stamp)
		}
		return true
	})
	return true
}

// voxelMean reads the voxel's accumulated mean sample position in world coordinates, and its
// sample count. When count is zero the mean defaults to the voxel centre, matching
// CalculateHitWithCovariance's treatment of an uninitialised voxel.
func (m *NdtMapper) voxelMean(view *ohmblock.View, localIdx int, voxelCentre r3.Vector) (r3.Vector, uint32) {
	voxel := view.VoxelBytes(localIdx)
	count := ohmlayout.DecodeUInt32(voxel, m.layers.meanCount)
	if count == 0 {
		return voxelCentre, 0
	}
	packed := ohmlayout.DecodeUInt32(voxel, m.layers.meanCoord)
	offset := unpackMeanCoord(packed, m.Geometry.Resolution)
	return voxelCentre.Add(r3.Vector{X: offset[0], Y: offset[1], Z: offset[2]}), count
}

func (m *NdtMapper) writeMean(voxel []byte, voxelCentre, mean r3.Vector, count uint32) {
	offset := mean.Sub(voxelCentre)
	packed := packMeanCoord([3]float64{offset.X, offset.Y, offset.Z}, m.Geometry.Resolution)
	ohmlayout.EncodeUInt32(voxel, m.layers.meanCoord, packed)
	ohmlayout.EncodeUInt32(voxel, m.layers.meanCount, count)
}

func (m *NdtMapper) readCovariance(voxel []byte) Triangular {
	var t Triangular
	for i, member := range m.layers.triangular {
		t[i] = float64(ohmlayout.DecodeFloat32(voxel, member))
	}
	return t
}

func (m *NdtMapper) writeCovariance(voxel []byte, t Triangular) {
	for i, member := range m.layers.triangular {
		ohmlayout.EncodeFloat32(voxel, member, float32(t[i]))
	}
}

// applyMiss implements spec.md §4.8's interior-voxel rule: a voxel without enough samples to trust
// its covariance falls back to the plain occupancy miss; otherwise the NDT miss replaces the flat
// log-odds decrement with CalculateMissNdt's covariance-modulated adjustment.
func (m *NdtMapper) applyMiss(region *ohmregion.Region, localIdx int, voxelCentre, sensor, sample r3.Vector, now float64, stamp uint64) {
	block := region.Block(m.layers.occupancyIdx)
	view, err := ohmblock.AcquireWrite(block)
	if err != nil {
		return
	}
	defer view.Release()
	voxel := view.VoxelBytes(localIdx)
	value := ohmlayout.DecodeFloat32(voxel, m.layers.occupancyVal)

	if ohmlayout.IsUnobserved(value) {
		ohmlayout.EncodeFloat32(voxel, m.layers.occupancyVal, m.Params.MissValue)
		region.Touch(m.layers.occupancyIdx, now, stamp)
		m.notifyWrite(block)
		return
	}
	if saturatedAtMin(value, m.Params) {
		return
	}

	mean, count := m.voxelMean(view, localIdx, voxelCentre)
	if count < m.Ndt.SampleThreshold {
		newValue := clampValue(value+m.Params.MissValue, m.Params)
		ohmlayout.EncodeFloat32(voxel, m.layers.occupancyVal, newValue)
		region.Touch(m.layers.occupancyIdx, now, stamp)
		m.notifyWrite(block)
		return
	}

	cov := m.readCovariance(voxel)
	newValue, _ := CalculateMissNdt(cov, value, sensor, sample, mean, float64(m.Ndt.SensorNoise), m.Params.MissValue)
	newValue = clampValue(newValue, m.Params)
	ohmlayout.EncodeFloat32(voxel, m.layers.occupancyVal, newValue)
	region.Touch(m.layers.occupancyIdx, now, stamp)
	m.notifyWrite(block)

	if m.layers.hasHitMiss && newValue < value {
		m.incrementMiss(region, localIdx, now, stamp)
	}
}

// applyHit implements spec.md §4.8's end-voxel rule: CalculateHitWithCovariance reinitialises the
// covariance and mean/count from scratch when the voxel has drifted free (or has no samples yet),
// otherwise it folds the new sample into the running covariance estimate.
func (m *NdtMapper) applyHit(region *ohmregion.Region, localIdx int, voxelCentre, sample r3.Vector, now float64, stamp uint64) {
	occBlock := region.Block(m.layers.occupancyIdx)
	occView, err := ohmblock.AcquireWrite(occBlock)
	if err != nil {
		return
	}
	occVoxel := occView.VoxelBytes(localIdx)
	value := ohmlayout.DecodeFloat32(occVoxel, m.layers.occupancyVal)

	meanBlock := region.Block(m.layers.meanIdx)
	meanView, err := ohmblock.AcquireWrite(meanBlock)
	if err != nil {
		occView.Release()
		return
	}
	meanVoxel := meanView.VoxelBytes(localIdx)

	covBlock := region.Block(m.layers.covarianceIdx)
	covView, err := ohmblock.AcquireWrite(covBlock)
	if err != nil {
		meanView.Release()
		occView.Release()
		return
	}
	covVoxel := covView.VoxelBytes(localIdx)

	mean, count := m.voxelMean(meanView, localIdx, voxelCentre)
	cov := m.readCovariance(covVoxel)

	newCov, newValue, reinitialised := CalculateHitWithCovariance(
		cov, value, sample, mean, count,
		m.Params.HitValue, ohmlayout.UnobservedValue, m.Ndt.SensorNoise, m.Ndt.ReinitialiseThreshold, m.Ndt.ReinitialiseSampleCount,
	)
	newValue = clampValue(newValue, m.Params)

	var newMean r3.Vector
	var newCount uint32
	if reinitialised {
		newMean = sample
		newCount = 1
	} else {
		n := float64(count)
		newMean = mean.Mul(n).Add(sample).Mul(1.0 / (n + 1))
		newCount = count
		if newCount != ^uint32(0) {
			newCount++
		}
	}

	ohmlayout.EncodeFloat32(occVoxel, m.layers.occupancyVal, newValue)
	m.writeMean(meanVoxel, voxelCentre, newMean, newCount)
	m.writeCovariance(covVoxel, newCov)

	covView.Release()
	meanView.Release()
	occView.Release()

	region.Touch(m.layers.occupancyIdx, now, stamp)
	region.Touch(m.layers.meanIdx, now, stamp)
	region.Touch(m.layers.covarianceIdx, now, stamp)
	m.notifyWrite(occBlock)
	m.notifyWrite(meanBlock)
	m.notifyWrite(covBlock)

	if m.layers.hasHitMiss && newValue > value {
		m.incrementHit(region, localIdx, now, stamp)
	}
}

func (m *NdtMapper) incrementHit(region *ohmregion.Region, localIdx int, now float64, stamp uint64) {
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

func (m *NdtMapper) incrementMiss(region *ohmregion.Region, localIdx int, now float64, stamp uint64) {
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

func (m *NdtMapper) addTraversal(region *ohmregion.Region, localIdx int, chordLength float64, now float64, stamp uint64) {
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
