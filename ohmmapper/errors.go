package ohmmapper

import "github.com/pkg/errors"

var (
	errMissingOccupancyLayer  = errors.New("ohmmapper: layout has no usable occupancy layer")
	errMissingCovarianceLayer = errors.New("ohmmapper: NDT mapper requires covariance and mean layers")
)
