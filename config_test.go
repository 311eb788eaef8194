package ohm

import (
	"testing"

	"go.viam.com/test"
)

func TestValidateRejectsNonPositiveResolution(t *testing.T) {
	cfg := MapConfig{Resolution: 0, RegionVoxelDim: [3]uint8{32, 32, 32}}
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidateRejectsZeroRegionVoxelDim(t *testing.T) {
	cfg := MapConfig{Resolution: 0.1, RegionVoxelDim: [3]uint8{32, 0, 32}}
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidateRejectsInvertedWatermarks(t *testing.T) {
	cfg := MapConfig{
		Resolution:     0.1,
		RegionVoxelDim: [3]uint8{32, 32, 32},
		HighTide:       10,
		LowTide:        20,
	}
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidateAcceptsSaneConfig(t *testing.T) {
	cfg := MapConfig{Resolution: 0.1, RegionVoxelDim: [3]uint8{32, 32, 32}}
	test.That(t, cfg.Validate(), test.ShouldBeNil)
}
