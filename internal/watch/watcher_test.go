// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// harness runs a Watcher over dir and collects callback invocations.
type harness struct {
	calls  chan []string
	cancel context.CancelFunc
	errCh  chan error
}

func startWatcher(t *testing.T, cfg Config, onChange func(context.Context, []string) error) *harness {
	t.Helper()

	h := &harness{calls: make(chan []string, 16), errCh: make(chan error, 1)}
	cfg.OnChange = func(ctx context.Context, changed []string) error {
		h.calls <- changed
		if onChange != nil {
			return onChange(ctx, changed)
		}
		return nil
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = 50 * time.Millisecond
	}

	w, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-h.errCh; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
	return h
}

func (h *harness) next(t *testing.T) []string {
	t.Helper()
	select {
	case changed := <-h.calls:
		return changed
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return nil
	}
}

func (h *harness) expectQuiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case changed := <-h.calls:
		t.Errorf("unexpected callback with %v", changed)
	case <-time.After(d):
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWatcher_DebounceCoalesces(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := startWatcher(t, Config{BaseDir: dir, Debounce: 100 * time.Millisecond}, nil)

	for _, name := range []string{"a.toml", "b.toml", "c.toml"} {
		writeFile(t, filepath.Join(dir, name), "data")
		time.Sleep(10 * time.Millisecond)
	}

	if got, want := h.next(t), []string{"a.toml", "b.toml", "c.toml"}; !slices.Equal(got, want) {
		t.Errorf("changed = %v, want %v", got, want)
	}
	h.expectQuiet(t, 250*time.Millisecond)
}

func TestWatcher_PatternsAndIgnores(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "svc", "placeholder"), "")
	h := startWatcher(t, Config{
		BaseDir:  dir,
		Patterns: []string{"**/Cargo.toml"},
		Ignore:   []string{".nanoservices_cache/**"},
	}, nil)

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored by pattern")
	writeFile(t, filepath.Join(dir, "target", "Cargo.toml"), "ignored by default")
	h.expectQuiet(t, 200*time.Millisecond)

	writeFile(t, filepath.Join(dir, "svc", "Cargo.toml"), "[package]")
	if got, want := h.next(t), []string{"svc/Cargo.toml"}; !slices.Equal(got, want) {
		t.Errorf("changed = %v, want %v", got, want)
	}
}

func TestWatcher_IdenticalRewriteDoesNotRetrigger(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifest := filepath.Join(dir, "Cargo.toml")
	writeFile(t, manifest, "[package]\nname = \"a\"\n")

	var mu sync.Mutex
	runs := 0
	h := startWatcher(t, Config{BaseDir: dir, Patterns: []string{"**/Cargo.toml"}},
		func(context.Context, []string) error {
			mu.Lock()
			runs++
			mu.Unlock()
			// Rewrites the watched file with fixed content, like a resolve run.
			return os.WriteFile(manifest, []byte("[package]\nname = \"a\"\n\n[dependencies]\n"), 0o644)
		})

	writeFile(t, manifest, "[package]\nname = \"a\"\n")
	h.expectQuiet(t, 200*time.Millisecond)

	writeFile(t, manifest, "[package]\nname = \"b\"\n")
	h.next(t)
	h.expectQuiet(t, 300*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Errorf("callback ran %d times, want 1", runs)
	}
}

func TestWatcher_Deletion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifest := filepath.Join(dir, "old", "Cargo.toml")
	writeFile(t, manifest, "[package]")
	h := startWatcher(t, Config{BaseDir: dir, Patterns: []string{"**/Cargo.toml"}}, nil)

	if err := os.Remove(manifest); err != nil {
		t.Fatal(err)
	}
	if got, want := h.next(t), []string{"old/Cargo.toml"}; !slices.Equal(got, want) {
		t.Errorf("changed = %v, want %v", got, want)
	}
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := startWatcher(t, Config{BaseDir: dir, Patterns: []string{"**/Cargo.toml"}}, nil)

	if err := os.Mkdir(filepath.Join(dir, "fresh"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "fresh", "Cargo.toml"), "[package]")

	changed := h.next(t)
	if !slices.Contains(changed, "fresh/Cargo.toml") {
		t.Errorf("changed = %v, want fresh/Cargo.toml", changed)
	}
}

func TestWatcher_CallbackErrorKeepsWatching(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h := startWatcher(t, Config{BaseDir: dir}, func(context.Context, []string) error {
		return errors.New("resolve failed")
	})

	writeFile(t, filepath.Join(dir, "a"), "1")
	h.next(t)
	writeFile(t, filepath.Join(dir, "a"), "2")
	h.next(t)
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "watch", cfg: Config{Patterns: []string{"[invalid"}}},
		{name: "ignore", cfg: Config{Ignore: []string{"{unclosed"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.cfg.BaseDir = t.TempDir()
			if _, err := New(tt.cfg); !errors.Is(err, doublestar.ErrBadPattern) {
				t.Errorf("New() error = %v, want ErrBadPattern", err)
			}
		})
	}
}

func TestWatcher_DoubleRun(t *testing.T) {
	t.Parallel()

	w, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{path: ".git/HEAD", want: true},
		{path: "svc/target/debug/Cargo.toml", want: true},
		{path: "src/main.rs.swp", want: true},
		{path: "Cargo.toml~", want: true},
		{path: "Cargo.toml", want: false},
		{path: "svc/Cargo.toml", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := matchAny(DefaultIgnores(), tt.path); got != tt.want {
				t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	got := DefaultIgnores()
	got[0] = "mutated"
	if DefaultIgnores()[0] == "mutated" {
		t.Error("DefaultIgnores() exposes the internal slice")
	}
}
