package engine

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/lucasew/logroll/internal/eviction"
	"github.com/lucasew/logroll/internal/eviction/oldest"
	"github.com/lucasew/logroll/internal/eviction/policy"
	"github.com/lucasew/logroll/internal/eviction/policy/maxtotal"
	"github.com/lucasew/logroll/internal/segment"
)

func newTestEngine(t *testing.T, cfg Config, budget int64) *Engine {
	t.Helper()
	mgr := eviction.NewManager(
		[]policy.Policy{&maxtotal.Policy{CapBytes: budget}}, oldest.New(), 1)
	e, err := New(cfg, mgr, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func scanDir(t *testing.T, cfg Config) segment.Set {
	t.Helper()
	set, err := segment.Scan(cfg.Dir, segment.Namer{Dir: cfg.Dir, Prefix: cfg.Prefix})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	return set
}

func TestWriteAndRotate(t *testing.T) {
	t.Run("First File Has Index Zero", func(t *testing.T) {
		cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 100}
		e := newTestEngine(t, cfg, 1000)
		defer func() { _ = e.Close() }()

		if _, err := e.Write([]byte("hello")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		set := scanDir(t, cfg)
		if len(set) != 1 || set[0].Index != 0 {
			t.Fatalf("expected a single file with index 0, got %+v", set)
		}
	})

	t.Run("Threshold Crossings Equal Rotations", func(t *testing.T) {
		cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 10}
		e := newTestEngine(t, cfg, 1000)
		defer func() { _ = e.Close() }()

		// 6 writes of 5 bytes cross the threshold 3 times.
		for i := 0; i < 6; i++ {
			if _, err := e.Write([]byte("aaaaa")); err != nil {
				t.Fatalf("Write %d failed: %v", i, err)
			}
		}

		set := e.Files()
		if len(set) != 4 {
			t.Fatalf("expected 3 closed + 1 open file, got %d", len(set))
		}
		for i, f := range set[:3] {
			if f.Size != 10 {
				t.Errorf("closed file %d has size %d, want 10", i, f.Size)
			}
		}
		if set[3].Size != 0 {
			t.Errorf("open file has size %d, want 0", set[3].Size)
		}
		if e.TotalBytes() != 30 {
			t.Errorf("TotalBytes = %d, want 30", e.TotalBytes())
		}
	})

	t.Run("Cap Keeps Two Closed Files", func(t *testing.T) {
		cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 100}
		e := newTestEngine(t, cfg, 250)
		defer func() { _ = e.Close() }()

		payload := bytes.Repeat([]byte("x"), 100)
		for i := 0; i < 4; i++ {
			if _, err := e.Write(payload); err != nil {
				t.Fatalf("Write %d failed: %v", i, err)
			}
		}

		// After the 4th rotation only the two newest closed files remain,
		// plus the fresh open file.
		set := scanDir(t, cfg)
		if len(set) != 3 {
			t.Fatalf("expected 3 files on disk, got %d", len(set))
		}
		if set[0].Index != 2 || set[1].Index != 3 || set[2].Index != 4 {
			t.Errorf("unexpected indices %d,%d,%d", set[0].Index, set[1].Index, set[2].Index)
		}
		if total := set.TotalBytes(); total > 250 {
			t.Errorf("total on disk = %d, want <= 250", total)
		}
	})

	t.Run("Oversized Tail Is Never Deleted", func(t *testing.T) {
		cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 100}
		e := newTestEngine(t, cfg, 50) // cap below threshold

		if _, err := e.Write(bytes.Repeat([]byte("x"), 100)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		set := scanDir(t, cfg)
		if len(set) != 2 {
			t.Fatalf("expected closed + open file, got %d", len(set))
		}
		if set[0].Size != 100 {
			t.Errorf("closed file size = %d, want 100", set[0].Size)
		}
		_ = e.Close()
	})
}

func TestRotationTriggers(t *testing.T) {
	t.Run("Line Count", func(t *testing.T) {
		cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 1 << 20, MaxLines: 2}
		e := newTestEngine(t, cfg, 1<<30)
		defer func() { _ = e.Close() }()

		if _, err := e.Write([]byte("one\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if len(scanDir(t, cfg)) != 1 {
			t.Fatal("rotated too early")
		}
		if _, err := e.Write([]byte("two\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if len(scanDir(t, cfg)) != 2 {
			t.Fatal("expected rotation after second line")
		}
	})

	t.Run("Age", func(t *testing.T) {
		cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 1 << 20, MaxAge: 10 * time.Millisecond}
		e := newTestEngine(t, cfg, 1<<30)
		defer func() { _ = e.Close() }()

		if _, err := e.Write([]byte("a")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
		if _, err := e.Write([]byte("b")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if len(scanDir(t, cfg)) != 2 {
			t.Fatal("expected rotation once the file aged out")
		}
	})
}

func TestRestartRecovery(t *testing.T) {
	t.Run("Counts And Sizes Survive A Clean Close", func(t *testing.T) {
		cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 10}
		e := newTestEngine(t, cfg, 1000)

		for i := 0; i < 5; i++ {
			if _, err := e.Write([]byte("aaaaa")); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}
		wantTotal := e.TotalBytes()
		wantFiles := len(e.Files())
		if err := e.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		e2 := newTestEngine(t, cfg, 1000)
		defer func() { _ = e2.Close() }()
		if e2.TotalBytes() != wantTotal {
			t.Errorf("recovered TotalBytes = %d, want %d", e2.TotalBytes(), wantTotal)
		}
		if len(e2.Files()) != wantFiles {
			t.Errorf("recovered %d files, want %d", len(e2.Files()), wantFiles)
		}
	})

	t.Run("Short Tail Is Reopened", func(t *testing.T) {
		cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 100}
		e := newTestEngine(t, cfg, 1000)
		if _, err := e.Write([]byte("hello")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := e.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		e2 := newTestEngine(t, cfg, 1000)
		defer func() { _ = e2.Close() }()
		if _, err := e2.Write([]byte(" world")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		set := scanDir(t, cfg)
		if len(set) != 1 {
			t.Fatalf("expected the tail file to be grown, got %d files", len(set))
		}
		content, err := os.ReadFile(set[0].Path)
		if err != nil {
			t.Fatalf("failed to read tail: %v", err)
		}
		if string(content) != "hello world" {
			t.Errorf("tail content = %q, want %q", content, "hello world")
		}
	})

	t.Run("Full Tail Starts A New Index", func(t *testing.T) {
		cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 5}
		namer := segment.Namer{Dir: cfg.Dir, Prefix: cfg.Prefix}
		if err := os.WriteFile(namer.Path(3), []byte("aaaaa"), 0644); err != nil {
			t.Fatalf("failed to seed tail: %v", err)
		}

		e := newTestEngine(t, cfg, 1000)
		defer func() { _ = e.Close() }()
		if _, err := e.Write([]byte("b")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		set := scanDir(t, cfg)
		if len(set) != 2 {
			t.Fatalf("expected 2 files, got %d", len(set))
		}
		if set[1].Index != 4 {
			t.Errorf("new file index = %d, want 4", set[1].Index)
		}
	})

	t.Run("Line Count Recovered From Tail", func(t *testing.T) {
		cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 1 << 20, MaxLines: 3}
		e := newTestEngine(t, cfg, 1<<30)
		if _, err := e.Write([]byte("one\ntwo\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if err := e.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		e2 := newTestEngine(t, cfg, 1<<30)
		defer func() { _ = e2.Close() }()
		if _, err := e2.Write([]byte("three\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if len(scanDir(t, cfg)) != 2 {
			t.Fatal("expected rotation on the third line across a restart")
		}
	})
}

func TestClose(t *testing.T) {
	cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 100}
	e := newTestEngine(t, cfg, 1000)

	if _, err := e.Write([]byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := e.Write([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
	if err := e.Sync(); !errors.Is(err, ErrClosed) {
		t.Errorf("Sync after Close = %v, want ErrClosed", err)
	}
	if err := e.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
}

func TestStartupEnforcesBudget(t *testing.T) {
	cfg := Config{Dir: t.TempDir(), Prefix: "app", Threshold: 100}
	namer := segment.Namer{Dir: cfg.Dir, Prefix: cfg.Prefix}
	for i := int64(0); i < 4; i++ {
		if err := os.WriteFile(namer.Path(i), make([]byte, 100), 0644); err != nil {
			t.Fatalf("failed to seed file %d: %v", i, err)
		}
	}
	if err := os.WriteFile(namer.Path(4), make([]byte, 50), 0644); err != nil {
		t.Fatalf("failed to seed tail: %v", err)
	}

	e := newTestEngine(t, cfg, 250)
	defer func() { _ = e.Close() }()

	// Index 4 is short of the threshold and becomes the open file again;
	// the budget then applies to the recovered history behind it.
	set := scanDir(t, cfg)
	if len(set) != 3 {
		t.Fatalf("expected 3 files after recovery, got %d", len(set))
	}
	if set[0].Index != 2 {
		t.Errorf("oldest surviving index = %d, want 2", set[0].Index)
	}
}
