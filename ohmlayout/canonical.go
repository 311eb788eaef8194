package ohmlayout

import "math"

// Canonical layer names, as named in spec.md §3's Voxel Layout table.
const (
	LayerOccupancy  = "occupancy"
	LayerMean       = "mean"
	LayerCovariance = "covariance"
	LayerTraversal  = "traversal"
	LayerClearance  = "clearance"
	LayerIncident   = "incident"
	LayerIntensity  = "intensity"
	LayerHitMiss    = "hit_miss"
)

// Member names within the canonical layers.
const (
	MemberValue        = "value"
	MemberCoord        = "coord"
	MemberCount        = "count"
	MemberTriangular   = "triangular"
	MemberLength       = "length"
	MemberPackedNormal = "packed_normal"
	MemberMean         = "mean"
	MemberCov          = "cov"
	MemberHit          = "hit"
	MemberMiss         = "miss"
)

// UnobservedValue is the occupancy sentinel: a voxel that has never been touched by a ray update
// reads this value. It is never itself the result of an occupancy adjustment (spec.md §3's
// invariant that "the unobserved sentinel is never the result of an occupancy adjustment").
var UnobservedValue = float32(math.NaN())

// IsUnobserved reports whether v is the unobserved sentinel.
func IsUnobserved(v float32) bool {
	return math.IsNaN(float64(v))
}

var zeroSub = [3]uint8{0, 0, 0}

// DefaultLayout builds the canonical eight-layer voxel layout described by spec.md §3: occupancy,
// mean, covariance, traversal, clearance, incident, intensity and hit_miss, each at full
// resolution (no subsampling) and none skip-serialised. Callers that don't need every layer (for
// example, an occupancy-only map with no NDT tracking) build a trimmed Layout directly with New,
// AppendLayer and AppendMember instead.
func DefaultLayout() (*Layout, error) {
	l := New()

	occupancy, err := l.AppendLayer(LayerOccupancy, 0, zeroSub)
	if err != nil {
		return nil, err
	}
	if err := l.AppendMember(occupancy, MemberValue, Float32, Float32Default(UnobservedValue)); err != nil {
		return nil, err
	}

	mean, err := l.AppendLayer(LayerMean, 0, zeroSub)
	if err != nil {
		return nil, err
	}
	if err := l.AppendMember(mean, MemberCoord, UInt32, UInt32Default(0)); err != nil {
		return nil, err
	}
	if err := l.AppendMember(mean, MemberCount, UInt32, UInt32Default(0)); err != nil {
		return nil, err
	}

	covariance, err := l.AppendLayer(LayerCovariance, 0, zeroSub)
	if err != nil {
		return nil, err
	}
	// triangular is [6]f32 = 24 bytes, not a single scalar member type; modeled as six
	// individually addressed f32 members instead so ohmblock can read/write each element.
	zero24 := make([]byte, 24)
	for i := 0; i < 6; i++ {
		name := triangularMemberName(i)
		if err := l.AppendMember(covariance, name, Float32, zero24[i*4:i*4+4]); err != nil {
			return nil, err
		}
	}

	traversal, err := l.AppendLayer(LayerTraversal, 0, zeroSub)
	if err != nil {
		return nil, err
	}
	if err := l.AppendMember(traversal, MemberLength, Float32, Float32Default(0)); err != nil {
		return nil, err
	}

	clearance, err := l.AppendLayer(LayerClearance, SkipSerialise, zeroSub)
	if err != nil {
		return nil, err
	}
	if err := l.AppendMember(clearance, MemberValue, Float32, Float32Default(-1)); err != nil {
		return nil, err
	}

	incident, err := l.AppendLayer(LayerIncident, 0, zeroSub)
	if err != nil {
		return nil, err
	}
	if err := l.AppendMember(incident, MemberPackedNormal, UInt32, UInt32Default(0)); err != nil {
		return nil, err
	}

	intensity, err := l.AppendLayer(LayerIntensity, 0, zeroSub)
	if err != nil {
		return nil, err
	}
	if err := l.AppendMember(intensity, MemberMean, Float32, Float32Default(0)); err != nil {
		return nil, err
	}
	if err := l.AppendMember(intensity, MemberCov, Float32, Float32Default(0)); err != nil {
		return nil, err
	}

	hitMiss, err := l.AppendLayer(LayerHitMiss, 0, zeroSub)
	if err != nil {
		return nil, err
	}
	if err := l.AppendMember(hitMiss, MemberHit, UInt32, UInt32Default(0)); err != nil {
		return nil, err
	}
	if err := l.AppendMember(hitMiss, MemberMiss, UInt32, UInt32Default(0)); err != nil {
		return nil, err
	}

	return l, nil
}

// triangularMemberName returns the member name for the i'th element (0..5) of the covariance
// layer's packed lower-triangular square root, in row-major order: (0,0) (1,0) (1,1) (2,0) (2,1)
// (2,2), matching CovarianceVoxel.h's packing order.
func triangularMemberName(i int) string {
	names := [6]string{"t00", "t10", "t11", "t20", "t21", "t22"}
	return names[i]
}
