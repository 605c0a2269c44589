package viewsync

import (
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// Intent is a request from either view. The set is closed: only the types in
// this file implement it.
type Intent interface {
	intent()
}

// Select makes NodeID the selection; an empty NodeID clears it.
type Select struct{ NodeID string }

// MoveSelection steps the selection Delta visible rows, clamped at either
// end. Without a selection the first row is selected.
type MoveSelection struct{ Delta int }

// ToggleExpand flips the expansion of NodeID.
type ToggleExpand struct{ NodeID string }

// ExpandAll expands every node.
type ExpandAll struct{}

// CollapseAll collapses every node.
type CollapseAll struct{}

// FilterField names the filter a ChangeFilter updates.
type FilterField string

const (
	FilterSearch FilterField = "search"
	FilterStatus FilterField = "status"
	FilterType   FilterField = "type"
)

// ChangeFilter updates the search term or a status/type filter.
type ChangeFilter struct {
	Field FilterField
	Value string
}

// MutationKind names a change delegated to the data source.
type MutationKind string

const (
	MutationCreate       MutationKind = "create"
	MutationUpdateStatus MutationKind = "update_status"
	MutationDelete       MutationKind = "delete"
)

// RequestMutation asks the data source to change the plan. Node is used by
// create (its ParentID names the parent), Status by update_status.
type RequestMutation struct {
	Kind   MutationKind
	NodeID string
	Node   model.PlanNode
	Status model.Status
}

// DragEnd records a manual position for a node.
type DragEnd struct {
	NodeID   string
	Position model.Point
}

// SetMode switches the presentation mode.
type SetMode struct{ Mode model.PresentationMode }

// ResetLayout discards every manual position of the active plan.
type ResetLayout struct{}

// Resize reports a new graph canvas size.
type Resize struct{ Size model.Size }

// FitView frames the whole plan in the canvas.
type FitView struct{}

func (Select) intent()          {}
func (MoveSelection) intent()   {}
func (ToggleExpand) intent()    {}
func (ExpandAll) intent()       {}
func (CollapseAll) intent()     {}
func (ChangeFilter) intent()    {}
func (RequestMutation) intent() {}
func (DragEnd) intent()         {}
func (SetMode) intent()         {}
func (ResetLayout) intent()     {}
func (Resize) intent()          {}
func (FitView) intent()         {}

// EventKind classifies a change notification.
type EventKind int

const (
	PlanChanged EventKind = iota
	SelectionChanged
	TreeChanged
	LayoutChanged
	ViewportChanged
	ModeChanged
)

func (k EventKind) String() string {
	switch k {
	case PlanChanged:
		return "plan"
	case SelectionChanged:
		return "selection"
	case TreeChanged:
		return "tree"
	case LayoutChanged:
		return "layout"
	case ViewportChanged:
		return "viewport"
	case ModeChanged:
		return "mode"
	}
	return "unknown"
}

// Event tells subscribers what changed. Subscribers read the new state with
// Synchronizer.Snapshot.
type Event struct {
	Kind   EventKind
	PlanID string
	NodeID string
}
