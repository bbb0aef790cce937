package primitives

import (
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Filepath is a path to a file on disk.
type Filepath string

// Hash returns a 64-bit xxhash of the absolute form of the path. Relative
// paths are resolved against the working directory first so that "a.dat" and
// "./a.dat" produce the same table id.
func (f Filepath) Hash() TableID {
	p := string(f)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return TableID(xxhash.Sum64String(p))
}

// Base returns the last element of the path.
func (f Filepath) Base() string {
	return filepath.Base(string(f))
}

// Join appends path elements to f.
func (f Filepath) Join(elem ...string) Filepath {
	parts := append([]string{string(f)}, elem...)
	return Filepath(filepath.Join(parts...))
}

func (f Filepath) String() string {
	return string(f)
}
