package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewsync"
)

// Dispatcher accepts intents; *viewsync.Synchronizer implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, in viewsync.Intent) error
}

// NodeOperation names what a NodeResultMsg reports on.
type NodeOperation int

const (
	NodeOpCreate NodeOperation = iota
	NodeOpSetStatus
	NodeOpDelete
	NodeOpMove
	NodeOpReset
	NodeOpMode
)

func (op NodeOperation) String() string {
	switch op {
	case NodeOpCreate:
		return "create"
	case NodeOpSetStatus:
		return "status"
	case NodeOpDelete:
		return "delete"
	case NodeOpMove:
		return "move"
	case NodeOpReset:
		return "reset"
	case NodeOpMode:
		return "mode"
	}
	return "unknown"
}

// NodeResultMsg is returned after a write completes.
type NodeResultMsg struct {
	Operation NodeOperation
	NodeID    string
	Err       error
}

// NodeWriter turns edits into tea.Cmds that run off the UI thread. The
// synchronizer refreshes itself after a successful write.
type NodeWriter struct {
	d       Dispatcher
	timeout time.Duration
}

// NewNodeWriter wraps d. Each write gets its own timeout.
func NewNodeWriter(d Dispatcher, timeout time.Duration) *NodeWriter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NodeWriter{d: d, timeout: timeout}
}

// CreateChild adds a task under parentID.
func (w *NodeWriter) CreateChild(parentID, title string) tea.Cmd {
	node := model.PlanNode{
		ParentID: parentID,
		NodeType: model.TypeTask,
		Status:   model.StatusNotStarted,
		Title:    title,
	}
	return w.run(NodeOpCreate, parentID, viewsync.RequestMutation{Kind: viewsync.MutationCreate, Node: node})
}

// SetStatus changes the status of nodeID.
func (w *NodeWriter) SetStatus(nodeID string, status model.Status) tea.Cmd {
	return w.run(NodeOpSetStatus, nodeID, viewsync.RequestMutation{
		Kind:   viewsync.MutationUpdateStatus,
		NodeID: nodeID,
		Status: status,
	})
}

// Advance moves node to the next status in the cycle.
func (w *NodeWriter) Advance(node model.PlanNode) tea.Cmd {
	return w.SetStatus(node.ID, node.Status.Next())
}

// Delete removes nodeID and its subtree.
func (w *NodeWriter) Delete(nodeID string) tea.Cmd {
	return w.run(NodeOpDelete, nodeID, viewsync.RequestMutation{Kind: viewsync.MutationDelete, NodeID: nodeID})
}

// Move stores a manual position for nodeID.
func (w *NodeWriter) Move(nodeID string, pos model.Point) tea.Cmd {
	return w.run(NodeOpMove, nodeID, viewsync.DragEnd{NodeID: nodeID, Position: pos})
}

// ResetLayout drops every manual position of the active plan.
func (w *NodeWriter) ResetLayout() tea.Cmd {
	return w.run(NodeOpReset, "", viewsync.ResetLayout{})
}

// SetMode persists the presentation mode.
func (w *NodeWriter) SetMode(mode model.PresentationMode) tea.Cmd {
	return w.run(NodeOpMode, "", viewsync.SetMode{Mode: mode})
}

func (w *NodeWriter) run(op NodeOperation, nodeID string, in viewsync.Intent) tea.Cmd {
	d, timeout := w.d, w.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := d.Dispatch(ctx, in)
		return NodeResultMsg{Operation: op, NodeID: nodeID, Err: err}
	}
}
