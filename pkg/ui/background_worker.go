package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/plan_viewer/pkg/viewsync"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is fetching a plan.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// Fetcher is the off-thread half of a synchronizer refresh.
type Fetcher interface {
	PlanID() string
	Fetch(ctx context.Context) (viewsync.FetchResult, error)
}

// FetchedMsg carries a fetch result to the UI thread, which applies it.
type FetchedMsg struct {
	Result viewsync.FetchResult
}

// FetchErrorMsg is sent when a background fetch fails.
type FetchErrorMsg struct {
	Err error
}

// BackgroundWorker refetches the active plan when its file changes. Results
// are handed to the UI thread; the worker never touches synchronizer state.
type BackgroundWorker struct {
	fetcher Fetcher
	events  <-chan string
	send    func(tea.Msg)
	logger  *slog.Logger

	mu         sync.RWMutex
	state      WorkerState
	dirty      bool // a change came in while processing
	started    bool
	lastError  *viewsync.RefreshError
	errorCount int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	Fetcher Fetcher
	// Events delivers ids of changed plans, usually loader.Watcher.Events().
	Events <-chan string
	// Send delivers messages to the UI, usually tea.Program.Send.
	Send   func(tea.Msg)
	Logger *slog.Logger
}

// NewBackgroundWorker creates a new background worker.
func NewBackgroundWorker(cfg WorkerConfig) *BackgroundWorker {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	send := cfg.Send
	if send == nil {
		send = func(tea.Msg) {}
	}
	return &BackgroundWorker{
		fetcher: cfg.Fetcher,
		events:  cfg.Events,
		send:    send,
		logger:  logger,
		state:   WorkerIdle,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start begins listening for change events. Start is idempotent.
func (w *BackgroundWorker) Start() {
	w.mu.Lock()
	if w.started || w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	if w.events == nil {
		close(w.done)
		return
	}
	go w.processLoop()
}

// Stop halts the worker. Stop is idempotent.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastError returns the most recent error (nil if the last fetch succeeded).
func (w *BackgroundWorker) LastError() *viewsync.RefreshError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// TriggerRefresh fetches the active plan now. Has no effect once stopped;
// during a fetch it schedules one more.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	switch w.state {
	case WorkerStopped:
		w.mu.Unlock()
		return
	case WorkerProcessing:
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	go w.process()
}

func (w *BackgroundWorker) processLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case id, ok := <-w.events:
			if !ok {
				return
			}
			if id != w.fetcher.PlanID() {
				w.logger.Debug("ignoring change to inactive plan", "plan", id)
				continue
			}
			w.process()
		}
	}
}

func (w *BackgroundWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	var res viewsync.FetchResult
	ferr := w.safeCompute("fetch", func() error {
		var err error
		res, err = w.fetcher.Fetch(w.ctx)
		return err
	})
	w.recordError(ferr)

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	w.mu.Unlock()

	if ferr != nil {
		w.logger.Warn("background fetch failed", "plan", ferr.PlanID, "error", ferr.Cause)
		w.send(FetchErrorMsg{Err: ferr})
	} else {
		w.send(FetchedMsg{Result: res})
	}

	if wasDirty {
		go w.process()
	}
}

// safeCompute runs fn and turns errors and panics into a RefreshError.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) (result *viewsync.RefreshError) {
	planID := w.fetcher.PlanID()
	defer func() {
		if r := recover(); r != nil {
			result = &viewsync.RefreshError{
				Phase:  phase,
				PlanID: planID,
				Cause:  fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
				Time:   time.Now(),
			}
		}
	}()
	if err := fn(); err != nil {
		var re *viewsync.RefreshError
		if errors.As(err, &re) {
			return re
		}
		return &viewsync.RefreshError{Phase: phase, PlanID: planID, Cause: err, Time: time.Now()}
	}
	return nil
}

func (w *BackgroundWorker) recordError(err *viewsync.RefreshError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

// ErrorCount returns the number of consecutive failed fetches.
func (w *BackgroundWorker) ErrorCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.errorCount
}
