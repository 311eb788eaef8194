// Package ohmlayout implements the runtime-described struct-of-arrays voxel schema: an ordered
// list of named layers, each with its own typed per-voxel member layout and default-fill values.
// The design mirrors the teacher's octree.Marshaler/Unmarshaler split (a small, explicit schema
// object consulted by serialization and storage code alike) generalized from a single fixed node
// shape to an open set of caller-defined layers.
package ohmlayout

import (
	"github.com/pkg/errors"
)

// MemberType identifies the scalar type of one voxel schema member.
type MemberType int

// The member types a voxel schema member may take, per spec.md §3's Voxel Layout member list.
const (
	Bool MemberType = iota
	Int8
	UInt8
	Int16
	UInt16
	Int32
	UInt32
	Int64
	UInt64
	Float32
	Float64
)

// Size returns the in-voxel byte size of a member of this type.
func (t MemberType) Size() int {
	switch t {
	case Bool, Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	default:
		return 0
	}
}

// String names the member type, used in layout diagnostics and serialization headers.
func (t MemberType) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int8:
		return "i8"
	case UInt8:
		return "u8"
	case Int16:
		return "i16"
	case UInt16:
		return "u16"
	case Int32:
		return "i32"
	case UInt32:
		return "u32"
	case Int64:
		return "i64"
	case UInt64:
		return "u64"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	default:
		return "unknown"
	}
}

// Member is one named, typed field within a voxel, at a byte offset assigned by the layout
// builder. Default holds the type's default-fill value, little-endian encoded to Type.Size()
// bytes; it is what every voxel in a freshly-allocated block reads as before any write.
type Member struct {
	Name    string
	Type    MemberType
	Offset  uint32
	Default []byte
}

func validateMemberName(name string) error {
	if name == "" {
		return errors.New("ohmlayout: member name must not be empty")
	}
	for _, r := range name {
		if r > 127 {
			return errors.Errorf("ohmlayout: member name %q must be ASCII", name)
		}
	}
	return nil
}
