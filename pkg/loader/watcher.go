package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a plan file must stay quiet before a change
// is reported.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports the ids of plans whose files changed. Bursts of events for
// one plan (editors often write, rename and chmod in quick succession) are
// collapsed into a single notification after the debounce interval. Ids
// waiting for a slow consumer are kept in a set, so a change is never lost
// and a plan is queued at most once.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	events chan string

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]bool
	queue   []string
	started bool
	stopped bool

	wake      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	delivered chan struct{}
}

// NewWatcher creates a watcher for the plans directory. Call Start to begin.
func NewWatcher(dir string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		dir:       dir,
		watcher:   fw,
		logger:    logger,
		debounce:  debounce,
		events:    make(chan string, 16),
		timers:    make(map[string]*time.Timer),
		pending:   make(map[string]bool),
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		delivered: make(chan struct{}),
	}
	go w.deliver()
	return w, nil
}

// Events delivers plan ids. The channel is closed by Stop.
func (w *Watcher) Events() <-chan string { return w.events }

// Start watches the directory. The directory itself is watched rather than
// each file so atomic rename-on-save is seen.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch plans dir: %w", err)
	}
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.loop()
	return nil
}

// Stop ends watching and closes Events.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = nil
	w.mu.Unlock()

	w.cancel()
	w.watcher.Close()
	if started {
		<-w.done
	}
	<-w.delivered
	close(w.events)
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			id, ok := planIDFromPath(event.Name)
			if !ok {
				continue
			}
			w.schedule(id)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Errors are logged but don't stop the watcher
			w.logger.Warn("loader: watch error", "dir", w.dir, "error", err)
		}
	}
}

// schedule restarts the quiet-period timer for id.
func (w *Watcher) schedule(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.timers[id]; ok {
		t.Stop()
	}
	w.timers[id] = time.AfterFunc(w.debounce, func() { w.fire(id) })
}

// fire queues id unless it is already waiting.
func (w *Watcher) fire(id string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	delete(w.timers, id)
	if !w.pending[id] {
		w.pending[id] = true
		w.queue = append(w.queue, id)
	}
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// deliver moves queued ids to Events in the order they first fired.
func (w *Watcher) deliver() {
	defer close(w.delivered)
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.mu.Unlock()
			select {
			case <-w.ctx.Done():
				return
			case <-w.wake:
			}
			continue
		}
		id := w.queue[0]
		w.queue = w.queue[1:]
		delete(w.pending, id)
		w.mu.Unlock()

		select {
		case w.events <- id:
		case <-w.ctx.Done():
			return
		}
	}
}

// planIDFromPath maps a plan file path to its id. Temp files written during
// atomic saves are ignored.
func planIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") {
		return "", false
	}
	if _, ok := FormatFromPath(base); !ok {
		return "", false
	}
	id := strings.TrimSuffix(base, filepath.Ext(base))
	return id, validPlanID(id)
}
