package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/dshills/modelcritic/internal/config"
)

func TestRelevant(t *testing.T) {
	cases := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "app/models.py", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "kinds/rapports.YAML", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "kinds/old.yml", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "app/models.py", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "app/.models.py.swp", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "app/models.py~", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "README.md", Op: fsnotify.Write}, false},
	}
	for _, c := range cases {
		if got := relevant(c.ev); got != c.want {
			t.Errorf("relevant(%s %s) = %v, want %v", c.ev.Op, c.ev.Name, got, c.want)
		}
	}
}

func TestWatchRoots(t *testing.T) {
	opts := auditOptions{
		auditFlags: auditFlags{manifests: []string{"kinds/**/*.yaml", "extra/one.yaml", "top.yaml"}},
		python:     []config.PythonSource{{Root: "backend/"}, {Root: "backend"}},
	}
	want := []string{"backend", "kinds", "extra", "."}
	if got := watchRoots(opts); !reflect.DeepEqual(got, want) {
		t.Errorf("watchRoots = %v, want %v", got, want)
	}
}

func TestRunWatch_NothingToWatch(t *testing.T) {
	err := runWatch(context.Background(), auditOptions{}, time.Millisecond, os.Stdout, hclog.NewNullLogger())
	if code := exitCode(err); code != exitUsage {
		t.Errorf("exit code = %d, want %d", code, exitUsage)
	}
}

func TestWatchLoop_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := addRecursive(w, dir); err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchLoop(ctx, w, 100*time.Millisecond, hclog.NewNullLogger(), func() { runs.Add(1) })
		close(done)
	}()

	path := filepath.Join(dir, "models.py")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("class A: pass\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 3*time.Second, func() bool { return runs.Load() >= 1 })
	time.Sleep(300 * time.Millisecond)
	if n := runs.Load(); n != 1 {
		t.Errorf("runs = %d, want 1 for one burst", n)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watchLoop did not stop on cancel")
	}
}

func TestWatchLoop_WatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := addRecursive(w, dir); err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchLoop(ctx, w, 50*time.Millisecond, hclog.NewNullLogger(), func() { runs.Add(1) })

	sub := filepath.Join(dir, "centres")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 3*time.Second, func() bool {
		for _, p := range w.WatchList() {
			if p == sub {
				return true
			}
		}
		return false
	})
	if err := os.WriteFile(filepath.Join(sub, "models.py"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 3*time.Second, func() bool { return runs.Load() >= 1 })
}

func TestAddRecursive_SkipsVendorDirs(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{"app/models", ".git/objects", "app/__pycache__"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := addRecursive(w, dir); err != nil {
		t.Fatal(err)
	}
	watched := map[string]bool{}
	for _, p := range w.WatchList() {
		watched[p] = true
	}
	if !watched[filepath.Join(dir, "app", "models")] {
		t.Errorf("app/models not watched: %v", w.WatchList())
	}
	if watched[filepath.Join(dir, ".git")] || watched[filepath.Join(dir, "app", "__pycache__")] {
		t.Errorf("skipped directories were watched: %v", w.WatchList())
	}
}

// waitFor polls cond until it holds or timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
