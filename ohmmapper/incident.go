package ohmmapper

import (
	"math"

	"github.com/golang/geo/r3"
)

// Packed incident-normal encoding constants, ported from original_source/ohm/VoxelIncidentCompute.h.
const (
	normalQuant  = 16383.0
	normalMask   = 0x3FFF
	normalShiftX = 0
	normalShiftY = 15
	normalSetBit = uint32(1) << 30
	normalSignZ  = uint32(1) << 31
)

// DecodeNormal unpacks a 32-bit quantised incident normal into a unit vector, per
// VoxelIncidentCompute.h's decodeNormal. The Z component is reconstructed from X and Y under the
// unit-length constraint, with its sign restored from the sign bit.
func DecodeNormal(packed uint32) r3.Vector {
	x := 2.0*(float64((packed>>normalShiftX)&normalMask)/normalQuant) - 1.0
	y := 2.0*(float64((packed>>normalShiftY)&normalMask)/normalQuant) - 1.0

	x = clamp(x, -1, 1)
	y = clamp(y, -1, 1)
	zSq := clamp(1.0-(x*x+y*y), -1, 1)

	var n r3.Vector
	if packed&normalSetBit != 0 {
		n.X = x
		n.Y = y
		n.Z = math.Sqrt(zSq)
	}
	if packed&normalSignZ != 0 {
		n.Z = -n.Z
	}
	return n
}

// EncodeNormal packs normal into the 32-bit quantised representation DecodeNormal reads back, per
// VoxelIncidentCompute.h's encodeNormal.
func EncodeNormal(normal r3.Vector) uint32 {
	x := 0.5 * (clamp(normal.X, -1, 1) + 1.0)
	y := 0.5 * (clamp(normal.Y, -1, 1) + 1.0)

	var n uint32
	xi := uint32(x * normalQuant)
	n |= (xi & normalMask) << normalShiftX
	yi := uint32(y * normalQuant)
	n |= (yi & normalMask) << normalShiftY

	n &^= normalSetBit | normalSignZ
	if normal.Z < 0 {
		n |= normalSignZ
	}
	if normal.X != 0 || normal.Y != 0 || normal.Z != 0 {
		n |= normalSetBit
	}
	return n
}

// UpdateIncidentNormal blends incidentRay into the running-average normal decoded from packed,
// normalises the result, and re-encodes it, per VoxelIncidentCompute.h's updateIncidentNormal.
func UpdateIncidentNormal(packed uint32, incidentRay r3.Vector, pointCount uint32) uint32 {
	normal := DecodeNormal(packed)
	normal = updateIncidentNormalV3(normal, incidentRay, pointCount)
	return EncodeNormal(normal)
}

func updateIncidentNormalV3(normal, incidentRay r3.Vector, pointCount uint32) r3.Vector {
	if normal.X == 0 && normal.Y == 0 && normal.Z == 0 {
		pointCount = 0
	}
	oneOnCountPlusOne := 1.0 / float64(pointCount+1)

	rayLenSq := incidentRay.Dot(incidentRay)
	if rayLenSq > 1e-6 {
		incidentRay = incidentRay.Mul(1.0 / math.Sqrt(rayLenSq))
	} else {
		incidentRay = r3.Vector{}
	}

	normal.X += (incidentRay.X - normal.X) * oneOnCountPlusOne
	normal.Y += (incidentRay.Y - normal.Y) * oneOnCountPlusOne
	normal.Z += (incidentRay.Z - normal.Z) * oneOnCountPlusOne

	normalLenSq := normal.Dot(normal)
	if normalLenSq > 1e-6 {
		normal = normal.Mul(1.0 / math.Sqrt(normalLenSq))
	} else {
		normal = r3.Vector{}
	}
	return normal
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
