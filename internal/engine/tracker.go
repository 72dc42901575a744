package engine

import "sync/atomic"

// tracker keeps O(1) byte accounting for the sink: bytes written to the
// open file and bytes occupied by closed files. Both values are derivable
// from the history plus a stat of the open handle, but the write path
// checks them on every call, so they are cached here.
type tracker struct {
	current atomic.Int64
	closed  atomic.Int64
}

func (t *tracker) seed(current, closed int64) {
	t.current.Store(current)
	t.closed.Store(closed)
}

// record accounts for bytes successfully appended to the open file.
func (t *tracker) record(n int64) {
	t.current.Add(n)
}

// rotated finalizes the open file's length, moving it into the closed
// total, and returns it.
func (t *tracker) rotated() int64 {
	n := t.current.Swap(0)
	t.closed.Add(n)
	return n
}

// evicted subtracts bytes reclaimed from the closed files.
func (t *tracker) evicted(n int64) {
	t.closed.Add(-n)
}

func (t *tracker) currentBytes() int64 {
	return t.current.Load()
}

func (t *tracker) total() int64 {
	return t.current.Load() + t.closed.Load()
}
