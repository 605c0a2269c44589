package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPlanIDFromPath(t *testing.T) {
	tests := []struct {
		path string
		id   string
		ok   bool
	}{
		{"/plans/launch.json", "launch", true},
		{"/plans/roadmap.yml", "roadmap", true},
		{"/plans/.launch.json.123.tmp", "", false},
		{"/plans/launch.json.tmp", "", false},
		{"/plans/notes.txt", "", false},
		{"/plans/.hidden.json", "", false},
	}
	for _, tt := range tests {
		id, ok := planIDFromPath(tt.path)
		if id != tt.id || ok != tt.ok {
			t.Errorf("planIDFromPath(%q) = %q, %v", tt.path, id, ok)
		}
	}
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "launch.json")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(jsonPlan), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case id := <-w.Events():
		if id != "launch" {
			t.Errorf("expected launch, got %q", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change event")
	}

	select {
	case id := <-w.Events():
		t.Errorf("burst should collapse into one event, got extra %q", id)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherSeesSourceWrites(t *testing.T) {
	dir := writePlans(t)
	w, err := NewWatcher(dir, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	src := NewFileSource(dir, nil)
	if err := src.UpdateNodeStatus(t.Context(), "ops", "oncall", "completed"); err != nil {
		t.Fatal(err)
	}
	select {
	case id := <-w.Events():
		if id != "ops" {
			t.Errorf("expected ops, got %q", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("atomic rename was not observed")
	}
}

func TestWatcherStopClosesEvents(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
	if _, ok := <-w.Events(); ok {
		t.Error("expected closed channel after Stop")
	}
}

func TestWatcherMissingDir(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "absent"), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err == nil {
		t.Error("expected error watching a missing directory")
	}
	w.Stop()
}

func TestWatcherSlowConsumerLosesNothing(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	const n = 40
	for i := 0; i < n; i++ {
		w.fire(fmt.Sprintf("plan%02d", i))
	}
	// Still queued behind the full channel, so this is coalesced.
	w.fire(fmt.Sprintf("plan%02d", n-1))

	seen := make(map[string]int)
	for len(seen) < n {
		select {
		case id := <-w.Events():
			seen[id]++
		case <-time.After(3 * time.Second):
			t.Fatalf("only %d of %d plans reported", len(seen), n)
		}
	}
	select {
	case id := <-w.Events():
		t.Errorf("unexpected extra event for %s", id)
	case <-time.After(100 * time.Millisecond):
	}
	for id, c := range seen {
		if c != 1 {
			t.Errorf("%s reported %d times", id, c)
		}
	}
}
