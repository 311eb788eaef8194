package ohmlayout

import (
	"encoding/binary"
	"math"
)

// BoolDefault encodes a bool member default.
func BoolDefault(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// Int8Default encodes an int8 member default.
func Int8Default(v int8) []byte {
	return []byte{byte(v)}
}

// UInt8Default encodes a uint8 member default.
func UInt8Default(v uint8) []byte {
	return []byte{v}
}

// Int16Default encodes an int16 member default, little-endian.
func Int16Default(v int16) []byte {
	return UInt16Default(uint16(v))
}

// UInt16Default encodes a uint16 member default, little-endian.
func UInt16Default(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// Int32Default encodes an int32 member default, little-endian.
func Int32Default(v int32) []byte {
	return UInt32Default(uint32(v))
}

// UInt32Default encodes a uint32 member default, little-endian.
func UInt32Default(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// Int64Default encodes an int64 member default, little-endian.
func Int64Default(v int64) []byte {
	return UInt64Default(uint64(v))
}

// UInt64Default encodes a uint64 member default, little-endian.
func UInt64Default(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// Float32Default encodes a float32 member default, little-endian.
func Float32Default(v float32) []byte {
	return UInt32Default(math.Float32bits(v))
}

// Float64Default encodes a float64 member default, little-endian.
func Float64Default(v float64) []byte {
	return UInt64Default(math.Float64bits(v))
}

// DecodeFloat32 reads a little-endian float32 member value out of a voxel's raw bytes at m.Offset.
func DecodeFloat32(voxel []byte, m Member) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(voxel[m.Offset:]))
}

// DecodeFloat64 reads a little-endian float64 member value out of a voxel's raw bytes at m.Offset.
func DecodeFloat64(voxel []byte, m Member) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(voxel[m.Offset:]))
}

// DecodeUInt32 reads a little-endian uint32 member value out of a voxel's raw bytes at m.Offset.
func DecodeUInt32(voxel []byte, m Member) uint32 {
	return binary.LittleEndian.Uint32(voxel[m.Offset:])
}

// EncodeFloat32 writes v as a little-endian float32 into voxel's raw bytes at m.Offset.
func EncodeFloat32(voxel []byte, m Member, v float32) {
	binary.LittleEndian.PutUint32(voxel[m.Offset:], math.Float32bits(v))
}

// EncodeFloat64 writes v as a little-endian float64 into voxel's raw bytes at m.Offset.
func EncodeFloat64(voxel []byte, m Member, v float64) {
	binary.LittleEndian.PutUint64(voxel[m.Offset:], math.Float64bits(v))
}

// EncodeUInt32 writes v as a little-endian uint32 into voxel's raw bytes at m.Offset.
func EncodeUInt32(voxel []byte, m Member, v uint32) {
	binary.LittleEndian.PutUint32(voxel[m.Offset:], v)
}
