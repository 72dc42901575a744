package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/lucasew/logroll/internal/errutil"
	"github.com/lucasew/logroll/internal/eviction"
	"github.com/lucasew/logroll/internal/segment"
)

// ErrClosed is returned by every operation attempted after Close.
var ErrClosed = errors.New("sink is closed")

// Config holds the immutable per-engine settings. Changing policy requires
// constructing a new engine.
type Config struct {
	Dir       string
	Prefix    string
	Threshold int64         // rotate once the open file reaches this many bytes
	MaxLines  int64         // optional: rotate after this many written line terminators
	MaxAge    time.Duration // optional: rotate once the open file is older than this
}

// Recorder observes the rotation lifecycle. Implementations must not call
// back into the engine.
type Recorder interface {
	RecordRotate(f segment.File)
	RecordEvict(f segment.File)
}

// Engine is the single owner of the open file handle and the backing file
// history for one directory. All public operations are serialized by an
// internal mutex; two engines pointed at the same directory are not
// supported.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	namer segment.Namer
	evict *eviction.Manager
	rec   Recorder

	file     *os.File
	index    int64 // index of the last file opened or closed
	path     string
	openedAt time.Time
	lines    int64 // line terminators written to the open file

	history segment.Set // closed files, oldest first
	tracker tracker
	closed  bool
}

// New scans the directory to recover the existing history, then opens a
// file for appending. If the recovered tail file is still below the
// threshold it is reopened and grown, so frequent restarts do not produce
// an explosion of small files; otherwise a fresh file with the next index
// is started.
func New(cfg Config, evict *eviction.Manager, rec Recorder) (*Engine, error) {
	namer := segment.Namer{Dir: cfg.Dir, Prefix: cfg.Prefix}
	set, err := segment.Scan(cfg.Dir, namer)
	if err != nil {
		return nil, fmt.Errorf("failed to recover directory state: %w", err)
	}

	e := &Engine{cfg: cfg, namer: namer, evict: evict, rec: rec}

	last, ok := set.Last()
	if ok && last.Size < cfg.Threshold {
		if err := e.reopen(last); err != nil {
			return nil, err
		}
		e.history = set[:len(set)-1]
		e.tracker.seed(last.Size, e.history.TotalBytes())
	} else {
		e.history = set
		after := int64(-1)
		if ok {
			after = last.Index
		}
		if err := e.openNext(after); err != nil {
			return nil, err
		}
		e.tracker.seed(0, e.history.TotalBytes())
	}

	// The recovered history may already exceed the budget.
	e.enforce()
	return e, nil
}

// Write appends p to the open file. A failed append leaves the accounting
// at its pre-call value and the engine usable, so the caller may retry the
// same bytes. Crossing any configured rotation trigger rotates before
// returning.
func (e *Engine) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, ErrClosed
	}
	if e.file == nil {
		// A previous rotation closed the old file but could not open the
		// next one; try again before accepting the write.
		if err := e.openNext(e.index); err != nil {
			return 0, err
		}
	}

	n, err := e.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to append to %s: %w", e.path, err)
	}
	e.tracker.record(int64(n))
	e.lines += int64(bytes.Count(p, []byte{'\n'}))

	if e.shouldRotate() {
		if err := e.rotate(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Sync flushes the open file to stable storage.
func (e *Engine) Sync() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.file == nil {
		return nil
	}
	if err := e.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", e.path, err)
	}
	return nil
}

// Close flushes and closes the open file without opening a replacement.
// The engine accepts no further operations afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.closed = true
	if e.file == nil {
		return nil
	}
	return e.closeCurrent()
}

// TotalBytes returns the bytes currently occupied on disk: closed files
// plus what has been written to the open file.
func (e *Engine) TotalBytes() int64 {
	return e.tracker.total()
}

// CurrentPath returns the path of the open backing file.
func (e *Engine) CurrentPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

// Files returns a snapshot of the closed history followed by the open file.
func (e *Engine) Files() segment.Set {
	e.mu.Lock()
	defer e.mu.Unlock()

	set := make(segment.Set, 0, len(e.history)+1)
	set = append(set, e.history...)
	if e.file != nil {
		set = append(set, segment.File{
			Index: e.index,
			Path:  e.path,
			Size:  e.tracker.currentBytes(),
		})
	}
	return set
}

func (e *Engine) shouldRotate() bool {
	if e.tracker.currentBytes() >= e.cfg.Threshold {
		return true
	}
	if e.cfg.MaxLines > 0 && e.lines >= e.cfg.MaxLines {
		return true
	}
	if e.cfg.MaxAge > 0 && time.Since(e.openedAt) >= e.cfg.MaxAge {
		return true
	}
	return false
}

// rotate finalizes the open file and starts the next one. The file just
// closed is never evicted by the enforcement pass that follows, even if it
// alone exceeds the budget.
func (e *Engine) rotate() error {
	closeErr := e.closeCurrent()

	// The file occupies its bytes on disk whether or not the close went
	// cleanly, so it always enters the history.
	closed := segment.File{Index: e.index, Path: e.path, Size: e.tracker.rotated()}
	e.history = append(e.history, closed)
	e.lines = 0
	if e.rec != nil {
		e.rec.RecordRotate(closed)
	}
	if closeErr != nil {
		return closeErr
	}

	if err := e.openNext(e.index); err != nil {
		return err
	}
	e.enforce()
	return nil
}

func (e *Engine) closeCurrent() error {
	syncErr := e.file.Sync()
	closeErr := e.file.Close()
	e.file = nil
	if syncErr != nil {
		return fmt.Errorf("failed to flush %s: %w", e.path, syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", e.path, closeErr)
	}
	return nil
}

// reopen continues appending to a recovered tail file.
func (e *Engine) reopen(last segment.File) error {
	f, err := os.OpenFile(last.Path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to reopen %s: %w", last.Path, err)
	}

	if e.cfg.MaxLines > 0 {
		// Line counts are not persisted across restarts; recover the count
		// from the file itself. The tail is below the threshold, so this
		// read is bounded.
		content, err := os.ReadFile(last.Path)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to read %s back: %w", last.Path, err)
		}
		e.lines = int64(bytes.Count(content, []byte{'\n'}))
	}

	e.file = f
	e.index = last.Index
	e.path = last.Path
	e.openedAt = time.Now()
	return nil
}

// openNext creates the backing file with the smallest unused index after
// the given one. An index squatted by a foreign actor is skipped rather
// than overwritten.
func (e *Engine) openNext(after int64) error {
	if err := os.MkdirAll(e.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", e.cfg.Dir, err)
	}

	index, path := e.namer.Next(after)
	for {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			e.file = f
			e.index = index
			e.path = path
			e.openedAt = time.Now()
			e.lines = 0
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		index, path = e.namer.Next(index)
	}
}

func (e *Engine) enforce() {
	if e.evict == nil {
		return
	}
	survivors, res := e.evict.Enforce(e.history, e.tracker.total())
	e.history = survivors
	e.tracker.evicted(res.Freed)
	for _, w := range res.Warnings {
		errutil.LogMsg(w, "Eviction warning", "dir", e.cfg.Dir)
	}
	if e.rec != nil {
		for _, f := range res.Deleted {
			e.rec.RecordEvict(f)
		}
	}
}
