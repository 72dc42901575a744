// Package logroll provides a disk-space-bounded rotating file sink.
//
// A Sink behaves like an append-only io.WriteCloser but transparently
// splits its data across numbered backing files in one directory, rotating
// to a new file when the open one reaches a size threshold and deleting the
// oldest files once the configured total budget is exceeded. Long-running
// processes can keep writing forever without exceeding a fixed disk quota
// and without external rotation tooling.
package logroll

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lucasew/logroll/internal/engine"
	"github.com/lucasew/logroll/internal/errutil"
	"github.com/lucasew/logroll/internal/eviction"
	_ "github.com/lucasew/logroll/internal/eviction/oldest"
	"github.com/lucasew/logroll/internal/eviction/policy"
	"github.com/lucasew/logroll/internal/eviction/policy/maxtotal"
	"github.com/lucasew/logroll/internal/eviction/policy/minfree"
	"github.com/lucasew/logroll/internal/journal"
)

var (
	// ErrClosed is returned when writing to or closing an already closed Sink.
	ErrClosed = engine.ErrClosed

	// ErrNoDirectory is returned by Open when no directory is configured.
	ErrNoDirectory = errors.New("directory not configured")

	// ErrBadPrefix is returned by Open when the filename prefix is empty or
	// contains a path separator.
	ErrBadPrefix = errors.New("invalid filename prefix")

	// ErrBadThreshold is returned by Open when the per-file threshold is not positive.
	ErrBadThreshold = errors.New("threshold must be positive")

	// ErrBadCap is returned by Open when the total cap is not positive.
	ErrBadCap = errors.New("cap must be positive")
)

// Config holds the immutable settings for one Sink. A Sink never mutates
// its Config; construct a new Sink to change policy.
type Config struct {
	// Dir is the directory holding the backing files. Created lazily when
	// the first file is opened.
	Dir string

	// Prefix names the backing files: {Prefix}.{index}.log. It must not
	// contain a path separator.
	Prefix string

	// Threshold is the per-file size in bytes that triggers rotation.
	Threshold int64

	// Cap is the total byte budget enforced against closed files older
	// than the protected ones. It should be at least Threshold, otherwise
	// the protection rule keeps more than the budget allows.
	Cap int64

	// MaxLines, when positive, also rotates after this many line
	// terminators have been written to the open file.
	MaxLines int64

	// MaxAge, when positive, also rotates once the open file has been open
	// longer than this. Checked on the write path; the sink runs no timers.
	MaxAge time.Duration

	// ProtectedFiles is how many of the newest closed files are exempt
	// from eviction regardless of size. Values below 1 mean 1; the open
	// file is always exempt.
	ProtectedFiles int

	// MinFreeSpace, when positive, additionally evicts eligible files
	// whenever the disk's free space drops below this many bytes.
	MinFreeSpace int64

	// Strategy selects the victim-selection strategy. Empty means "oldest".
	Strategy string

	// JournalPath, when set, records every rotation and eviction in a
	// sqlite journal at this path.
	JournalPath string
}

// Sink is an append-only writer backed by a rotating set of files. It is
// safe for concurrent use; all operations are serialized internally. One
// Sink must own its directory exclusively.
type Sink struct {
	engine  *engine.Engine
	journal *journal.Journal
}

// Open validates cfg, recovers any existing backing files in the directory
// and returns a Sink ready for writing. An unreadable directory is fatal; a
// missing one is not.
func Open(cfg Config) (*Sink, error) {
	if cfg.Dir == "" {
		return nil, ErrNoDirectory
	}
	if cfg.Prefix == "" || strings.ContainsAny(cfg.Prefix, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrBadPrefix, cfg.Prefix)
	}
	if cfg.Threshold <= 0 {
		return nil, ErrBadThreshold
	}
	if cfg.Cap <= 0 {
		return nil, ErrBadCap
	}
	if cfg.Cap < cfg.Threshold {
		slog.Warn("Cap is below threshold; protected files alone may exceed the budget",
			"cap", cfg.Cap, "threshold", cfg.Threshold)
	}

	strategyName := cfg.Strategy
	if strategyName == "" {
		strategyName = "oldest"
	}
	strat, err := eviction.GetStrategy(strategyName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize eviction strategy: %w", err)
	}

	policies := []policy.Policy{&maxtotal.Policy{CapBytes: cfg.Cap}}
	if cfg.MinFreeSpace > 0 {
		slog.Info("Adding MinFreeSpace policy", "min_free", cfg.MinFreeSpace)
		policies = append(policies, &minfree.Policy{
			Path:         cfg.Dir,
			MinFreeBytes: cfg.MinFreeSpace,
		})
	}

	mgr := eviction.NewManager(policies, strat, cfg.ProtectedFiles)

	var jnl *journal.Journal
	var rec engine.Recorder
	if cfg.JournalPath != "" {
		jnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		rec = jnl
	}

	eng, err := engine.New(engine.Config{
		Dir:       cfg.Dir,
		Prefix:    cfg.Prefix,
		Threshold: cfg.Threshold,
		MaxLines:  cfg.MaxLines,
		MaxAge:    cfg.MaxAge,
	}, mgr, rec)
	if err != nil {
		if jnl != nil {
			errutil.LogMsg(jnl.Close(), "Failed to close journal after open failure")
		}
		return nil, err
	}

	return &Sink{engine: eng, journal: jnl}, nil
}

// Write appends p to the current backing file, rotating and evicting as
// configured. A failed write leaves the Sink usable and its accounting
// untouched, so the same bytes may be retried.
func (s *Sink) Write(p []byte) (int, error) {
	return s.engine.Write(p)
}

// Sync flushes the current backing file to stable storage.
func (s *Sink) Sync() error {
	return s.engine.Sync()
}

// Close flushes and closes the current backing file. The Sink accepts no
// further writes; subsequent operations return ErrClosed.
func (s *Sink) Close() error {
	err := s.engine.Close()
	if s.journal != nil {
		errutil.LogMsg(s.journal.Close(), "Failed to close journal")
	}
	return err
}

// TotalBytes returns the bytes currently occupied on disk by all backing
// files, including what has been written to the open one.
func (s *Sink) TotalBytes() int64 {
	return s.engine.TotalBytes()
}

// CurrentPath returns the path of the backing file currently being written.
func (s *Sink) CurrentPath() string {
	return s.engine.CurrentPath()
}
