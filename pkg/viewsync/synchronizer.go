// Package viewsync keeps the graph view and the tree view of a plan in step.
//
// The Synchronizer owns the active plan id, the single selected node, the
// merged layout, the viewport transform and the presentation mode. Views
// send Intents through Dispatch and learn about changes through Subscribe.
package viewsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"github.com/Dicklesworthstone/plan_viewer/pkg/navigation"
	"github.com/Dicklesworthstone/plan_viewer/pkg/overrides"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewport"
)

var (
	// ErrNoPlan is returned for intents that need a loaded plan.
	ErrNoPlan = errors.New("no plan loaded")
	// ErrStalePlan marks a fetch result that no longer belongs to the active plan.
	ErrStalePlan = errors.New("stale plan data discarded")
	// ErrUnknownIntent is returned for intents Dispatch does not handle.
	ErrUnknownIntent = errors.New("unknown intent")
)

// DataSource is the external owner of plan data. Mutations are applied there;
// the synchronizer only re-derives its state from the next fetch.
type DataSource interface {
	FetchPlan(ctx context.Context, planID string) (*model.Plan, error)
	CreateNode(ctx context.Context, planID string, node model.PlanNode) (model.PlanNode, error)
	UpdateNodeStatus(ctx context.Context, planID, nodeID string, status model.Status) error
	DeleteNode(ctx context.Context, planID, nodeID string) error
}

// RefreshError wraps a failed fetch or mutation with phase context.
type RefreshError struct {
	Phase  string // "fetch", "create", "update_status", "delete"
	PlanID string
	Cause  error
	Time   time.Time
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Phase, e.PlanID, e.Cause)
}

func (e *RefreshError) Unwrap() error {
	return e.Cause
}

// Options configures a Synchronizer.
type Options struct {
	Layout     layout.Options
	Viewport   viewport.Config
	MatchDepth navigation.MatchDepth
	// ExpandDepth is how many levels are expanded when a plan is first shown.
	ExpandDepth int
	Logger      *slog.Logger
}

// DefaultOptions returns default layout/viewport settings with the root
// level expanded.
func DefaultOptions() Options {
	return Options{
		Layout:      layout.DefaultOptions(),
		Viewport:    viewport.DefaultConfig(),
		MatchDepth:  navigation.MatchDeep,
		ExpandDepth: 1,
	}
}

// FetchResult is the off-thread part of a refresh. It is applied with Apply.
type FetchResult struct {
	PlanID     string
	Generation uint64
	Seq        uint64
	Plan       *model.Plan
	Layout     layout.Result
	Overrides  map[string]model.Point
}

// Snapshot is a read-only copy of the synchronized state.
type Snapshot struct {
	PlanID    string
	Plan      *model.Plan // nil when no plan is loaded
	Layout    layout.Result
	Computed  layout.Result
	Rows      []navigation.Row
	Nav       navigation.State
	Selected  string
	Mode      model.PresentationMode
	Transform viewport.Transform
	Size      model.Size
}

// HasPlan reports whether a plan is loaded.
func (s Snapshot) HasPlan() bool { return s.Plan != nil }

// Synchronizer reconciles selection, tree state and graph state for one
// active plan. It is safe for concurrent use; subscribers are called after
// the internal lock is released.
type Synchronizer struct {
	source DataSource
	store  *overrides.Store
	engine *layout.Engine
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	planID     string
	generation uint64
	fetchSeq   uint64
	appliedSeq uint64
	plan       *model.Plan
	nav        *navigation.Navigator
	computed   layout.Result
	merged     layout.Result
	overrides  map[string]model.Point
	mode       model.PresentationMode
	size       model.Size
	transform  viewport.Transform

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates a synchronizer. store may be nil, in which case overrides and
// mode live in memory only.
func New(source DataSource, store *overrides.Store, opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if store == nil {
		store = overrides.NewStore(overrides.NewMemoryKV(), logger)
	}
	return &Synchronizer{
		source:    source,
		store:     store,
		engine:    layout.New(opts.Layout, logger),
		opts:      opts,
		logger:    logger,
		mode:      model.DefaultMode,
		transform: viewport.Identity,
		overrides: map[string]model.Point{},
		subs:      make(map[int]func(Event)),
	}
}

// Subscribe registers fn for change events and returns a function that
// removes it.
func (s *Synchronizer) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Synchronizer) emit(events []Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()
	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// PlanID returns the active plan id.
func (s *Synchronizer) PlanID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planID
}

// Selected returns the selected node id ("" for none).
func (s *Synchronizer) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nav == nil {
		return ""
	}
	return s.nav.Selected()
}

// Snapshot copies the current state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		PlanID:    s.planID,
		Plan:      s.plan.Clone(),
		Layout:    s.merged.Clone(),
		Computed:  s.computed.Clone(),
		Mode:      s.mode,
		Transform: s.transform,
		Size:      s.size,
	}
	if s.nav != nil {
		snap.Rows = s.nav.Rows()
		snap.Nav = s.nav.State()
		snap.Selected = s.nav.Selected()
	}
	return snap
}

// SwitchPlan makes planID the active plan, drops the previous plan's state
// and loads the new one. Results of fetches started for the previous plan
// are discarded when they arrive.
func (s *Synchronizer) SwitchPlan(ctx context.Context, planID string) error {
	mode := s.store.Mode(ctx, planID)

	s.mu.Lock()
	s.planID = planID
	s.generation++
	s.plan = nil
	s.nav = nil
	s.computed = layout.Result{}
	s.merged = layout.Result{}
	s.overrides = map[string]model.Point{}
	s.mode = mode
	s.transform = viewport.Identity
	s.mu.Unlock()

	s.emit([]Event{{Kind: PlanChanged, PlanID: planID}, {Kind: ModeChanged, PlanID: planID}})
	return s.Refresh(ctx)
}

// Refresh fetches the active plan and applies it.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	res, err := s.Fetch(ctx)
	if err != nil {
		return err
	}
	return s.Apply(res)
}

// Fetch loads the active plan, computes its layout and reads its overrides.
// It does not touch synchronized state and may run off the UI thread.
func (s *Synchronizer) Fetch(ctx context.Context) (FetchResult, error) {
	s.mu.Lock()
	planID := s.planID
	gen := s.generation
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	if planID == "" {
		return FetchResult{}, ErrNoPlan
	}
	plan, err := s.source.FetchPlan(ctx, planID)
	if err != nil {
		return FetchResult{}, &RefreshError{Phase: "fetch", PlanID: planID, Cause: err, Time: time.Now()}
	}
	res := FetchResult{PlanID: planID, Generation: gen, Seq: seq, Plan: plan}
	if plan != nil {
		res.Layout = s.engine.Layout(plan.Nodes, plan.AllEdges())
	}
	res.Overrides = s.store.Load(ctx, planID)
	return res, nil
}

// Apply installs a fetch result. Results for a plan that is no longer active,
// or older than an already applied result, are dropped with ErrStalePlan.
// A selection whose node disappeared is cleared.
func (s *Synchronizer) Apply(res FetchResult) error {
	s.mu.Lock()
	if res.PlanID != s.planID || res.Generation != s.generation || res.Seq <= s.appliedSeq {
		active := s.planID
		s.mu.Unlock()
		s.logger.Warn("viewsync: discarding stale fetch", "plan", res.PlanID, "active", active)
		return ErrStalePlan
	}
	s.appliedSeq = res.Seq

	events := []Event{{Kind: PlanChanged, PlanID: res.PlanID}}
	if res.Plan == nil {
		s.plan = nil
		s.nav = nil
		s.computed = layout.Result{}
		s.merged = layout.Result{}
		s.mu.Unlock()
		s.emit(events)
		return nil
	}

	firstLoad := s.nav == nil
	prevSelected := ""
	if s.nav == nil {
		s.nav = navigation.New(res.Plan.Nodes, s.opts.MatchDepth)
		s.nav.ExpandToDepth(s.opts.ExpandDepth)
	} else {
		prevSelected = s.nav.Selected()
		s.nav.Rebuild(res.Plan.Nodes)
	}
	s.plan = res.Plan.Clone()
	s.computed = res.Layout
	s.overrides = res.Overrides
	if s.overrides == nil {
		s.overrides = map[string]model.Point{}
	}
	s.merged = overrides.Merge(s.computed, s.overrides)
	events = append(events, Event{Kind: TreeChanged, PlanID: res.PlanID}, Event{Kind: LayoutChanged, PlanID: res.PlanID})

	if prevSelected != "" && s.nav.Selected() == "" {
		events = append(events, Event{Kind: SelectionChanged, PlanID: res.PlanID})
	}
	if firstLoad {
		s.transform = viewport.Fit(s.merged.Nodes, s.size, s.opts.Viewport)
		events = append(events, Event{Kind: ViewportChanged, PlanID: res.PlanID})
	}
	s.mu.Unlock()

	s.emit(events)
	return nil
}

// Dispatch applies an intent. Intents that fail leave selection and
// expansion unchanged and return the error.
func (s *Synchronizer) Dispatch(ctx context.Context, in Intent) error {
	switch in := in.(type) {
	case RequestMutation:
		return s.mutate(ctx, in)
	case DragEnd:
		return s.dragEnd(ctx, in)
	case SetMode:
		return s.setMode(ctx, in.Mode)
	case ResetLayout:
		return s.resetLayout(ctx)
	}

	s.mu.Lock()
	events, err := s.applyLocal(in)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.emit(events)
	return nil
}

// applyLocal handles the intents that only touch in-memory state. Callers
// hold s.mu.
func (s *Synchronizer) applyLocal(in Intent) ([]Event, error) {
	switch in := in.(type) {
	case Resize:
		s.size = in.Size
		s.transform = s.frameLocked()
		return []Event{{Kind: ViewportChanged, PlanID: s.planID}}, nil
	case FitView:
		s.transform = viewport.Fit(s.merged.Nodes, s.size, s.opts.Viewport)
		return []Event{{Kind: ViewportChanged, PlanID: s.planID}}, nil
	}

	if s.nav == nil {
		return nil, ErrNoPlan
	}
	switch in := in.(type) {
	case Select:
		if in.NodeID == "" {
			s.nav.ClearSelection()
			return []Event{{Kind: SelectionChanged, PlanID: s.planID}}, nil
		}
		if err := s.nav.Select(in.NodeID); err != nil {
			return nil, err
		}
		return s.selectedLocked(in.NodeID), nil
	case MoveSelection:
		prev := s.nav.Selected()
		id, ok := s.nav.MoveSelection(in.Delta)
		if !ok || id == prev {
			return nil, nil
		}
		return s.selectedLocked(id), nil
	case ToggleExpand:
		if err := s.nav.ToggleExpand(in.NodeID); err != nil {
			return nil, err
		}
	case ExpandAll:
		s.nav.ExpandAll()
	case CollapseAll:
		s.nav.CollapseAll()
	case ChangeFilter:
		switch in.Field {
		case FilterSearch:
			s.nav.SetSearchTerm(in.Value)
		case FilterStatus:
			if err := s.nav.SetStatusFilter(in.Value); err != nil {
				return nil, err
			}
		case FilterType:
			s.nav.SetTypeFilter(in.Value)
		default:
			return nil, fmt.Errorf("unknown filter field %q", in.Field)
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownIntent, in)
	}
	return []Event{{Kind: TreeChanged, PlanID: s.planID}}, nil
}

// selectedLocked reports a new selection and, when the graph is shown,
// centers the viewport on it.
func (s *Synchronizer) selectedLocked(id string) []Event {
	events := []Event{
		{Kind: SelectionChanged, PlanID: s.planID, NodeID: id},
		{Kind: TreeChanged, PlanID: s.planID},
	}
	if s.mode.ShowsGraph() {
		if n, ok := s.merged.Node(id); ok {
			s.transform = viewport.Focus(n, s.size, s.opts.Viewport)
			events = append(events, Event{Kind: ViewportChanged, PlanID: s.planID, NodeID: id})
		}
	}
	return events
}

// frameLocked keeps the selected node in focus when there is one and the
// graph is visible; otherwise it frames the whole plan.
func (s *Synchronizer) frameLocked() viewport.Transform {
	if s.nav != nil && s.mode.ShowsGraph() {
		if n, ok := s.merged.Node(s.nav.Selected()); ok {
			return viewport.Focus(n, s.size, s.opts.Viewport)
		}
	}
	return viewport.Fit(s.merged.Nodes, s.size, s.opts.Viewport)
}

func (s *Synchronizer) mutate(ctx context.Context, in RequestMutation) error {
	s.mu.Lock()
	planID := s.planID
	loaded := s.plan != nil
	s.mu.Unlock()
	if !loaded {
		return ErrNoPlan
	}

	var created model.PlanNode
	var err error
	switch in.Kind {
	case MutationCreate:
		created, err = s.source.CreateNode(ctx, planID, in.Node)
	case MutationUpdateStatus:
		if !in.Status.IsValid() {
			err = fmt.Errorf("invalid status %q", in.Status)
		} else {
			err = s.source.UpdateNodeStatus(ctx, planID, in.NodeID, in.Status)
		}
	case MutationDelete:
		err = s.source.DeleteNode(ctx, planID, in.NodeID)
	default:
		err = fmt.Errorf("unknown mutation %q", in.Kind)
	}
	if err != nil {
		s.logger.Warn("viewsync: mutation rejected", "plan", planID, "kind", in.Kind, "node", in.NodeID, "error", err)
		return &RefreshError{Phase: string(in.Kind), PlanID: planID, Cause: err, Time: time.Now()}
	}

	// The mutation stands; only the reload failed.
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("viewsync: mutation applied, refresh failed", "plan", planID, "kind", in.Kind, "error", err)
		var re *RefreshError
		if errors.As(err, &re) && re.Phase == "fetch" {
			return err
		}
		return &RefreshError{Phase: "fetch", PlanID: planID, Cause: err, Time: time.Now()}
	}
	if in.Kind == MutationCreate && created.ID != "" {
		// The new node may be filtered out; selecting it is best effort.
		if err := s.Dispatch(ctx, Select{NodeID: created.ID}); err != nil {
			s.logger.Debug("viewsync: could not select created node", "node", created.ID, "error", err)
		}
	}
	return nil
}

func (s *Synchronizer) dragEnd(ctx context.Context, in DragEnd) error {
	s.mu.Lock()
	planID := s.planID
	_, known := s.computed.Node(in.NodeID)
	s.mu.Unlock()
	if planID == "" {
		return ErrNoPlan
	}
	if !known {
		return fmt.Errorf("drag %s: %w", in.NodeID, navigation.ErrUnknownNode)
	}
	if err := s.store.Save(ctx, planID, in.NodeID, in.Position); err != nil {
		return err
	}

	s.mu.Lock()
	if s.planID != planID {
		s.mu.Unlock()
		return ErrStalePlan
	}
	s.overrides[in.NodeID] = in.Position
	s.merged = overrides.Merge(s.computed, s.overrides)
	s.mu.Unlock()

	s.emit([]Event{{Kind: LayoutChanged, PlanID: planID, NodeID: in.NodeID}})
	return nil
}

func (s *Synchronizer) setMode(ctx context.Context, mode model.PresentationMode) error {
	s.mu.Lock()
	planID := s.planID
	s.mu.Unlock()
	if planID == "" {
		return ErrNoPlan
	}
	if err := s.store.SetMode(ctx, planID, mode); err != nil {
		return err
	}

	s.mu.Lock()
	s.mode = mode
	events := []Event{{Kind: ModeChanged, PlanID: planID}}
	if mode.ShowsGraph() {
		s.transform = s.frameLocked()
		events = append(events, Event{Kind: ViewportChanged, PlanID: planID})
	}
	s.mu.Unlock()

	s.emit(events)
	return nil
}

func (s *Synchronizer) resetLayout(ctx context.Context) error {
	s.mu.Lock()
	planID := s.planID
	s.mu.Unlock()
	if planID == "" {
		return ErrNoPlan
	}
	if err := s.store.Reset(ctx, planID); err != nil {
		return err
	}

	s.mu.Lock()
	s.overrides = map[string]model.Point{}
	s.merged = s.computed.Clone()
	s.transform = viewport.Fit(s.merged.Nodes, s.size, s.opts.Viewport)
	s.mu.Unlock()

	s.emit([]Event{{Kind: LayoutChanged, PlanID: planID}, {Kind: ViewportChanged, PlanID: planID}})
	return nil
}
