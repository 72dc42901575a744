package eviction

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/lucasew/logroll/internal/eviction/policy"
	"github.com/lucasew/logroll/internal/segment"
)

// Manager enforces the disk budget over the closed backing files.
//
// The newest protect closed files are never eligible for deletion, so the
// sink always retains at least the open file and its immediate predecessor
// regardless of their size. If the protected and open files alone exceed
// the budget, enforcement stops with the budget still violated: that is the
// minimum achievable footprint, not an error.
type Manager struct {
	policies []policy.Policy
	strategy Strategy
	protect  int
}

// NewManager creates a Manager. protect is clamped to at least 1 so the
// most recently closed file is always kept.
func NewManager(policies []policy.Policy, strategy Strategy, protect int) *Manager {
	if protect < 1 {
		protect = 1
	}
	return &Manager{
		policies: policies,
		strategy: strategy,
		protect:  protect,
	}
}

// Enforce runs one enforcement pass over the closed set (oldest first) and
// returns the surviving set plus a Result describing what was deleted.
// totalBytes is the sink's full on-disk footprint, protected and open files
// included; policies judge against it, deletions come only from the
// eligible files.
//
// A candidate that is already gone from disk is treated as deleted: some
// external actor got there first, which is worth a warning but not a
// failure. Any other deletion error leaves the file in the set and moves on.
func (m *Manager) Enforce(set segment.Set, totalBytes int64) (segment.Set, Result) {
	var res Result

	if len(set) <= m.protect {
		return set, res
	}
	eligible := set[:len(set)-m.protect]

	var need int64
	for _, p := range m.policies {
		toFree, err := p.BytesToFree(totalBytes)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Errorf("policy check failed: %w", err))
			continue
		}
		if toFree > need {
			need = toFree
		}
	}
	if need <= 0 {
		return set, res
	}

	victims := m.strategy.Victims(eligible, need)
	if len(victims) == 0 {
		return set, res
	}

	slog.Info("Evicting backing files",
		"count", len(victims), "total_bytes", totalBytes, "to_free", need)

	deleted := make(map[int64]bool, len(victims))
	for _, victim := range victims {
		err := os.Remove(victim.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			res.Warnings = append(res.Warnings,
				fmt.Errorf("failed to remove %s: %w", victim.Path, err))
			continue
		}
		if err != nil {
			// Already gone; its bytes no longer occupy the disk either way.
			res.Warnings = append(res.Warnings,
				fmt.Errorf("backing file %s removed externally", victim.Path))
		}
		deleted[victim.Index] = true
		res.Deleted = append(res.Deleted, victim)
		res.Freed += victim.Size
	}

	if len(deleted) == 0 {
		return set, res
	}
	survivors := make(segment.Set, 0, len(set)-len(deleted))
	for _, f := range set {
		if !deleted[f.Index] {
			survivors = append(survivors, f)
		}
	}
	return survivors, res
}
