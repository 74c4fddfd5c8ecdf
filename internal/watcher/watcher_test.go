package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) onChange(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_debouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shopping_trends.csv")
	if err := writeFile(path, "a"); err != nil {
		t.Fatal(err)
	}

	var rec recorder
	w := NewWatcher(path, rec.onChange, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := writeFile(path, "row"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !waitFor(t, func() bool { return rec.count() >= 1 }) {
		t.Fatal("expected a change callback")
	}
	time.Sleep(300 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Errorf("burst of writes should collapse into one callback, got %d", got)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.paths[0] != filepath.Clean(path) {
		t.Errorf("callback path = %s, want %s", rec.paths[0], path)
	}
}

func TestWatcher_serializesSlowCallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shopping_trends.csv")
	if err := writeFile(path, "a"); err != nil {
		t.Fatal(err)
	}

	var (
		mu             sync.Mutex
		running, calls int
		overlapped     bool
	)
	onChange := func(string) {
		mu.Lock()
		running++
		calls++
		if running > 1 {
			overlapped = true
		}
		mu.Unlock()
		time.Sleep(300 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
	}
	w := NewWatcher(path, onChange, WithDebounce(20*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Each write settles while the previous callback is still sleeping.
	for i := 0; i < 3; i++ {
		if err := writeFile(path, "row"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 3 && running == 0
	}) {
		t.Fatal("expected one callback per settled write")
	}
	mu.Lock()
	defer mu.Unlock()
	if overlapped {
		t.Error("change callbacks ran concurrently")
	}
}

func TestWatcher_ignoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shopping_trends.csv")
	if err := writeFile(path, "a"); err != nil {
		t.Fatal(err)
	}

	var rec recorder
	w := NewWatcher(path, rec.onChange, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := writeFile(filepath.Join(dir, "notes.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Errorf("writes to other files should be ignored, got %d callbacks", got)
	}
}

func TestWatcher_seesReplaceByRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "purchases.xlsx")
	if err := writeFile(path, "old"); err != nil {
		t.Fatal(err)
	}

	var rec recorder
	w := NewWatcher(path, rec.onChange, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	tmp := filepath.Join(dir, "purchases.xlsx.tmp")
	if err := writeFile(tmp, "new"); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, func() bool { return rec.count() >= 1 }) {
		t.Error("expected a callback after the file was replaced")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	w := NewWatcher(path, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Errorf("second Start should be a no-op: %v", err)
	}
	w.Stop()
	w.Stop()
	if w.Path() != filepath.Clean(path) {
		t.Errorf("Path() = %s", w.Path())
	}
}

func TestWatcher_StartFailsForMissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing", "data.csv"), nil)
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Error("expected an error when the parent directory does not exist")
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
