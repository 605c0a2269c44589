package ui

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewsync"
)

type fakeFetcher struct {
	planID string
	calls  atomic.Int32
	err    error
	panics bool
	block  chan struct{}
}

func (f *fakeFetcher) PlanID() string { return f.planID }

func (f *fakeFetcher) Fetch(ctx context.Context) (viewsync.FetchResult, error) {
	n := f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return viewsync.FetchResult{}, ctx.Err()
		}
	}
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return viewsync.FetchResult{}, f.err
	}
	return viewsync.FetchResult{
		PlanID: f.planID,
		Seq:    uint64(n),
		Plan:   &model.Plan{ID: f.planID},
	}, nil
}

func collect() (func(tea.Msg), chan tea.Msg) {
	ch := make(chan tea.Msg, 16)
	return func(m tea.Msg) { ch <- m }, ch
}

func waitMsg(t *testing.T, ch chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for worker message")
		return nil
	}
}

func TestBackgroundWorker_NewIsIdle(t *testing.T) {
	worker := NewBackgroundWorker(WorkerConfig{Fetcher: &fakeFetcher{planID: "a"}})
	defer worker.Stop()

	if worker.State() != WorkerIdle {
		t.Errorf("Expected idle state, got %v", worker.State())
	}
	if worker.LastError() != nil {
		t.Error("Expected no error initially")
	}
}

func TestBackgroundWorker_FetchesOnActivePlanEvent(t *testing.T) {
	events := make(chan string, 4)
	send, msgs := collect()
	f := &fakeFetcher{planID: "a"}
	worker := NewBackgroundWorker(WorkerConfig{Fetcher: f, Events: events, Send: send})
	worker.Start()
	defer worker.Stop()

	events <- "other"
	events <- "a"

	msg := waitMsg(t, msgs)
	fetched, ok := msg.(FetchedMsg)
	if !ok {
		t.Fatalf("Expected FetchedMsg, got %T", msg)
	}
	if fetched.Result.PlanID != "a" {
		t.Errorf("Expected plan a, got %q", fetched.Result.PlanID)
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("Expected 1 fetch (inactive plan ignored), got %d", got)
	}
}

func TestBackgroundWorker_ErrorIsReported(t *testing.T) {
	send, msgs := collect()
	f := &fakeFetcher{planID: "a", err: errors.New("disk gone")}
	worker := NewBackgroundWorker(WorkerConfig{Fetcher: f, Send: send})
	defer worker.Stop()

	worker.TriggerRefresh()
	msg := waitMsg(t, msgs)
	em, ok := msg.(FetchErrorMsg)
	if !ok {
		t.Fatalf("Expected FetchErrorMsg, got %T", msg)
	}
	var re *viewsync.RefreshError
	if !errors.As(em.Err, &re) {
		t.Fatalf("Expected RefreshError, got %v", em.Err)
	}
	if re.Phase != "fetch" || re.PlanID != "a" {
		t.Errorf("Unexpected error context: %+v", re)
	}
	if worker.ErrorCount() != 1 {
		t.Errorf("Expected error count 1, got %d", worker.ErrorCount())
	}
	if worker.LastError() == nil {
		t.Error("Expected LastError to be set")
	}
}

func TestBackgroundWorker_KeepsExistingRefreshError(t *testing.T) {
	send, msgs := collect()
	inner := &viewsync.RefreshError{Phase: "fetch", PlanID: "a", Cause: errors.New("bad yaml")}
	f := &fakeFetcher{planID: "a", err: inner}
	worker := NewBackgroundWorker(WorkerConfig{Fetcher: f, Send: send})
	defer worker.Stop()

	worker.TriggerRefresh()
	em := waitMsg(t, msgs).(FetchErrorMsg)
	var re *viewsync.RefreshError
	if !errors.As(em.Err, &re) || re != inner {
		t.Errorf("Expected the original RefreshError, got %v", em.Err)
	}
}

func TestBackgroundWorker_RecoversPanic(t *testing.T) {
	send, msgs := collect()
	worker := NewBackgroundWorker(WorkerConfig{Fetcher: &fakeFetcher{planID: "a", panics: true}, Send: send})
	defer worker.Stop()

	worker.TriggerRefresh()
	if _, ok := waitMsg(t, msgs).(FetchErrorMsg); !ok {
		t.Fatal("Expected a panic to surface as FetchErrorMsg")
	}
	if worker.State() != WorkerIdle {
		t.Errorf("Worker should return to idle after a panic, got %v", worker.State())
	}
}

func TestBackgroundWorker_SuccessResetsErrorCount(t *testing.T) {
	send, msgs := collect()
	f := &fakeFetcher{planID: "a", err: errors.New("flaky")}
	worker := NewBackgroundWorker(WorkerConfig{Fetcher: f, Send: send})
	defer worker.Stop()

	worker.TriggerRefresh()
	waitMsg(t, msgs)
	f.err = nil
	worker.TriggerRefresh()
	if _, ok := waitMsg(t, msgs).(FetchedMsg); !ok {
		t.Fatal("Expected FetchedMsg")
	}
	if worker.ErrorCount() != 0 {
		t.Errorf("Expected error count reset, got %d", worker.ErrorCount())
	}
}

func TestBackgroundWorker_CoalescesChangesDuringFetch(t *testing.T) {
	send, msgs := collect()
	f := &fakeFetcher{planID: "a", block: make(chan struct{})}
	worker := NewBackgroundWorker(WorkerConfig{Fetcher: f, Send: send})
	defer worker.Stop()

	worker.TriggerRefresh()
	deadline := time.Now().Add(2 * time.Second)
	for worker.State() != WorkerProcessing {
		if time.Now().After(deadline) {
			t.Fatal("worker never started processing")
		}
		time.Sleep(5 * time.Millisecond)
	}
	worker.TriggerRefresh()
	worker.TriggerRefresh()
	close(f.block)

	waitMsg(t, msgs)
	waitMsg(t, msgs)
	select {
	case m := <-msgs:
		t.Errorf("Expected exactly two fetches, got extra %T", m)
	case <-time.After(100 * time.Millisecond):
	}
	if got := f.calls.Load(); got != 2 {
		t.Errorf("Expected 2 fetches, got %d", got)
	}
}

func TestBackgroundWorker_StopIsIdempotent(t *testing.T) {
	events := make(chan string)
	worker := NewBackgroundWorker(WorkerConfig{Fetcher: &fakeFetcher{planID: "a"}, Events: events})
	worker.Start()
	worker.Start()
	worker.Stop()
	worker.Stop()

	if worker.State() != WorkerStopped {
		t.Errorf("Expected stopped state, got %v", worker.State())
	}
	worker.TriggerRefresh()
	if worker.State() != WorkerStopped {
		t.Error("TriggerRefresh after Stop should do nothing")
	}
}

func TestBackgroundWorker_ClosedEventsEndsLoop(t *testing.T) {
	events := make(chan string)
	worker := NewBackgroundWorker(WorkerConfig{Fetcher: &fakeFetcher{planID: "a"}, Events: events})
	worker.Start()
	close(events)

	select {
	case <-worker.done:
	case <-time.After(2 * time.Second):
		t.Fatal("process loop did not exit when events closed")
	}
	worker.Stop()
}
