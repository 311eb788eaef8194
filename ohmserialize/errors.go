package ohmserialize

import "github.com/pkg/errors"

// ErrorKind is the Serializer's error taxonomy, per spec.md §4.9.
type ErrorKind int

const (
	// KindIO covers underlying reader/writer failures.
	KindIO ErrorKind = iota
	// KindBadMagic means the file's leading 4 bytes did not match "ohm\0".
	KindBadMagic
	// KindUnsupportedVersion means the file's major version differs from CurrentVersion.Major.
	KindUnsupportedVersion
	// KindLayoutMismatch means a caller-supplied layout disagrees with the file's layout section.
	KindLayoutMismatch
	// KindValueOverflow means a length or count field exceeds what this implementation will trust.
	KindValueOverflow
	// KindTruncated means the stream ended before a record was fully read.
	KindTruncated
	// KindCorruptBlock means a region's block bytes did not match its declared size.
	KindCorruptBlock
	// KindAborted means ShouldQuit returned true before the operation completed.
	KindAborted
)

func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindBadMagic:
		return "bad-magic"
	case KindUnsupportedVersion:
		return "unsupported-version"
	case KindLayoutMismatch:
		return "layout-mismatch"
	case KindValueOverflow:
		return "value-overflow"
	case KindTruncated:
		return "truncated"
	case KindCorruptBlock:
		return "corrupt-block"
	case KindAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind from the Serializer's taxonomy.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapErr(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func newErr(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// ErrAborted is returned by Save/Load when the caller's ShouldQuit returns true.
var ErrAborted = &Error{Kind: KindAborted, Err: errors.New("ohmserialize: operation cancelled")}
