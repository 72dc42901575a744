package eviction

import (
	"github.com/lucasew/logroll/internal/segment"
)

// Strategy defines the interface for victim selection.
type Strategy interface {
	// Victims returns the files to delete, in deletion order, so that at
	// least need bytes are reclaimed from the eligible set. It must not
	// return more files than necessary.
	Victims(eligible segment.Set, need int64) segment.Set
}

// Result reports what a single enforcement pass did.
type Result struct {
	// Deleted holds the files removed from the set, oldest first. A file
	// that was already gone from disk still appears here.
	Deleted segment.Set

	// Freed is the number of bytes reclaimed from the set's accounting.
	Freed int64

	// Warnings collects per-file failures. Enforcement never aborts on
	// them; it moves on to the next candidate.
	Warnings []error
}
