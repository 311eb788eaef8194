package ohmmapper

// Params holds the occupancy parameters an Occupancy Map owns per spec.md §3: the per-hit/miss
// log-odds adjustments, the occupancy classification threshold, the clamping range, and the
// saturation policy at each clamp boundary.
type Params struct {
	HitValue                float32
	MissValue               float32
	OccupancyThresholdValue float32
	MinVoxelValue           float32
	MaxVoxelValue           float32
	SaturateAtMin           bool
	SaturateAtMax           bool
}

// DefaultParams returns the commonly-used starting parameters from spec.md §8's worked examples.
func DefaultParams() Params {
	return Params{
		HitValue:                0.85,
		MissValue:               -0.4,
		OccupancyThresholdValue: 0.0,
		MinVoxelValue:           -3.5,
		MaxVoxelValue:           3.5,
		SaturateAtMin:           true,
		SaturateAtMax:           true,
	}
}

// clampValue applies p's clamp range to v. It does not consult the saturation flags; callers check
// saturatedAtMin/saturatedAtMax before updating a voxel.
func clampValue(v float32, p Params) float32 {
	if v < p.MinVoxelValue {
		return p.MinVoxelValue
	}
	if v > p.MaxVoxelValue {
		return p.MaxVoxelValue
	}
	return v
}

// saturatedAtMin and saturatedAtMax report whether a further miss (atMin) or hit (atMax) update should be ignored because
// the voxel is already pinned at a saturating boundary.
func saturatedAtMin(v float32, p Params) bool {
	return p.SaturateAtMin && v <= p.MinVoxelValue
}

func saturatedAtMax(v float32, p Params) bool {
	return p.SaturateAtMax && v >= p.MaxVoxelValue
}

// NdtParams holds the extra parameters the NDT Ray Mapper needs on top of Params, per spec.md
// §4.8: the sensor noise used to seed and reinitialise a voxel's covariance, the minimum sample
// count a voxel must hold before its covariance is trusted for a miss update, and the
// reinitialisation rule that discards a hit voxel's accumulated statistics once it has drifted
// back below ReinitialiseThreshold with at least ReinitialiseSampleCount samples.
type NdtParams struct {
	SensorNoise             float32
	SampleThreshold         uint32
	ReinitialiseThreshold   float32
	ReinitialiseSampleCount uint32
}

// DefaultNdtParams returns the NDT parameters used alongside DefaultParams in spec.md §8's worked
// examples.
func DefaultNdtParams() NdtParams {
	return NdtParams{
		SensorNoise:             0.05,
		SampleThreshold:         4,
		ReinitialiseThreshold:   0.0,
		ReinitialiseSampleCount: 4,
	}
}
