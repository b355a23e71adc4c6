package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times after Stop, want 0", got)
	}
}

func TestFileWatcher_ShouldProcess(t *testing.T) {
	fw, err := NewFileWatcher(&WatcherConfig{SkipHidden: true}, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"yaml write", fsnotify.Event{Name: "/c/rules.yaml", Op: fsnotify.Write}, true},
		{"yml create", fsnotify.Event{Name: "/c/rules.YML", Op: fsnotify.Create}, true},
		{"chmod", fsnotify.Event{Name: "/c/rules.yaml", Op: fsnotify.Chmod}, false},
		{"other extension", fsnotify.Event{Name: "/c/notes.txt", Op: fsnotify.Write}, false},
		{"hidden", fsnotify.Event{Name: "/c/.rules.yaml.swp", Op: fsnotify.Write}, false},
		{"new directory", fsnotify.Event{Name: "/c/combat", Op: fsnotify.Create}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fw.shouldProcess(tt.event); got != tt.want {
				t.Errorf("shouldProcess(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestFileWatcher_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("formulas: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(&WatcherConfig{Path: path, Debounce: 20 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fw.Watch(ctx, func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)

	// A sibling file does not count.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("sibling change triggered %d reloads", got)
	}

	// Replacing the file by rename does.
	tmp := filepath.Join(dir, "rules.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("formulas: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if calls.Load() == 0 {
		t.Error("rename over the watched file did not trigger a reload")
	}

	if err := fw.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
	if err := fw.Stop(); err != nil {
		t.Errorf("second Stop() failed: %v", err)
	}
}
