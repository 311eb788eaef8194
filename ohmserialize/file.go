package ohmserialize

import (
	"os"

	"go.uber.org/multierr"
)

// SaveFile writes in to a file at path, by convention carrying the .ohm extension (spec.md §6).
// Any error closing the file after a successful write is combined with the write error, matching
// the teacher's WriteToLASFile close-combining pattern.
func SaveFile(path string, in SaveInput, opts Options) (err error) {
	f, createErr := os.Create(path)
	if createErr != nil {
		return wrapErr(KindIO, createErr)
	}
	defer func() {
		err = multierr.Combine(err, wrapErr(KindIO, f.Close()))
	}()
	return Save(f, in, opts)
}

// LoadFile reads a map previously written by SaveFile or Save.
func LoadFile(path string, opts Options) (result *LoadResult, err error) {
	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, wrapErr(KindIO, openErr)
	}
	defer func() {
		err = multierr.Combine(err, wrapErr(KindIO, f.Close()))
	}()
	return Load(f, opts)
}
