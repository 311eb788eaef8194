// Package ohmserialize implements the Serializer (spec.md §4.9): a versioned little-endian binary
// encoding of a map's geometry, layout, occupancy parameters and region records. Its header
// parsing and cleanup-error style is grounded on the teacher's pointcloud/pointcloud_file.go (the
// PCD reader's explicit field-by-field header validation, and WriteToLASFile's multierr-combined
// close error).
package ohmserialize

// Version is a {major, minor, patch} triple. Reading is backward-compatible across all minor
// versions of a given major (spec.md §4.9); a file's major must match CurrentVersion.Major.
type Version struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// CurrentVersion is the version this package writes.
var CurrentVersion = Version{Major: 1, Minor: 0, Patch: 0}

// magic is the 4-byte file signature, "ohm\0".
var magic = [4]byte{'o', 'h', 'm', 0}
