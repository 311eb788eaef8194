package ohmmapper

import (
	"github.com/golang/geo/r3"

	"github.com/ohmcore/ohm/ohmblock"
	"github.com/ohmcore/ohm/ohmlayout"
	"github.com/ohmcore/ohm/ohmregion"
)

// accumulateIntensity runs a Welford-style running mean/variance update of the end voxel's
// intensity layer using the ray's per-sample intensity, mirroring the running-average shape the
// mean layer uses for position.
func (m *OccupancyMapper) accumulateIntensity(region *ohmregion.Region, localIdx int, intensity float32, count uint32, now float64, stamp uint64) {
	block := region.Block(m.layers.intensityIdx)
	view, err := ohmblock.AcquireWrite(block)
	if err != nil {
		return
	}
	defer view.Release()

	voxel := view.VoxelBytes(localIdx)
	mean := ohmlayout.DecodeFloat32(voxel, m.layers.intensityMean)
	cov := ohmlayout.DecodeFloat32(voxel, m.layers.intensityCov)

	n := float32(count)
	delta := intensity - mean
	newMean := mean + delta/(n+1)
	newCov := cov
	if count > 0 {
		newCov = cov + (delta*(intensity-newMean)-cov)/(n+1)
	}

	ohmlayout.EncodeFloat32(voxel, m.layers.intensityMean, newMean)
	ohmlayout.EncodeFloat32(voxel, m.layers.intensityCov, newCov)
	region.Touch(m.layers.intensityIdx, now, stamp)
	m.notifyWrite(block)
}

// accumulateIncident updates the end voxel's incident-normal layer with the reversed ray
// direction (the direction the sample was observed from), using the voxel's current mean sample
// count as the running-average weight.
func (m *OccupancyMapper) accumulateIncident(region *ohmregion.Region, localIdx int, incidentRay r3.Vector, count uint32, now float64, stamp uint64) {
	block := region.Block(m.layers.incidentIdx)
	view, err := ohmblock.AcquireWrite(block)
	if err != nil {
		return
	}
	defer view.Release()

	voxel := view.VoxelBytes(localIdx)
	packed := ohmlayout.DecodeUInt32(voxel, m.layers.incidentNorm)
	updated := UpdateIncidentNormal(packed, incidentRay, count)
	ohmlayout.EncodeUInt32(voxel, m.layers.incidentNorm, updated)
	region.Touch(m.layers.incidentIdx, now, stamp)
	m.notifyWrite(block)
}

func (m *OccupancyMapper) meanCountFor(region *ohmregion.Region, localIdx int) uint32 {
	if !m.layers.hasMean {
		return 0
	}
	block := region.Block(m.layers.meanIdx)
	view, err := ohmblock.Acquire(block)
	if err != nil {
		return 0
	}
	defer view.Release()
	return ohmlayout.DecodeUInt32(view.VoxelBytes(localIdx), m.layers.meanCount)
}
