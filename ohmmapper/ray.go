package ohmmapper

import (
	"github.com/golang/geo/r3"

	"github.com/ohmcore/ohm/ohmfilter"
)

// Ray is one origin/sample pair to integrate, plus its optional per-sample intensity and
// timestamp and its recognized flag bits, per spec.md §6's ray integrator input.
type Ray struct {
	Origin r3.Vector
	Sample r3.Vector

	Intensity    float32
	HasIntensity bool

	Timestamp    float64
	HasTimestamp bool

	Flags ohmfilter.Flags
}
