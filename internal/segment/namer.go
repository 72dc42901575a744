package segment

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	extension   = ".log"
	indexDigits = 10
)

// Namer builds and recognizes backing file names of the form
// {prefix}.{index}.log, with the index zero-padded so that lexicographic
// order of names equals numeric order of indices.
type Namer struct {
	Dir    string
	Prefix string
}

// Path returns the full path for the backing file with the given index.
func (n Namer) Path(index int64) string {
	return filepath.Join(n.Dir, fmt.Sprintf("%s.%0*d%s", n.Prefix, indexDigits, index, extension))
}

// Next returns the smallest unused index after the given one, with its path.
// Indices are never reused, so this is simply the successor.
func (n Namer) Next(afterIndex int64) (int64, string) {
	index := afterIndex + 1
	return index, n.Path(index)
}

// Parse extracts the index from a backing file name. It reports false for
// anything else in the directory (foreign files are ignored, never counted,
// never deleted).
func (n Namer) Parse(name string) (int64, bool) {
	rest, ok := strings.CutPrefix(name, n.Prefix+".")
	if !ok {
		return 0, false
	}
	digits, ok := strings.CutSuffix(rest, extension)
	if !ok || digits == "" {
		return 0, false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	index, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return index, true
}
