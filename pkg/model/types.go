package model

import (
	"fmt"
	"time"
)

// PlanNode is one element of a plan hierarchy.
//
// Optional fields use their zero value for "absent": an empty ParentID means
// the node has no parent, an empty Description means no description and a nil
// DueDate means no due date. Counters default to 0.
type PlanNode struct {
	ID                  string     `json:"id" yaml:"id" toml:"id"`
	ParentID            string     `json:"parent_id,omitempty" yaml:"parent_id,omitempty" toml:"parent_id,omitempty"`
	NodeType            NodeType   `json:"node_type" yaml:"node_type" toml:"node_type"`
	Status              Status     `json:"status" yaml:"status" toml:"status"`
	Title               string     `json:"title" yaml:"title" toml:"title"`
	Description         string     `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	DueDate             *time.Time `json:"due_date,omitempty" yaml:"due_date,omitempty" toml:"due_date,omitempty"`
	CommentCount        int        `json:"comment_count,omitempty" yaml:"comment_count,omitempty" toml:"comment_count,omitempty"`
	ArtifactCount       int        `json:"artifact_count,omitempty" yaml:"artifact_count,omitempty" toml:"artifact_count,omitempty"`
	ChildCount          int        `json:"child_count,omitempty" yaml:"child_count,omitempty" toml:"child_count,omitempty"`
	CompletedChildCount int        `json:"completed_child_count,omitempty" yaml:"completed_child_count,omitempty" toml:"completed_child_count,omitempty"`
}

// Clone creates a deep copy of the node
func (n PlanNode) Clone() PlanNode {
	clone := n
	if n.DueDate != nil {
		v := *n.DueDate
		clone.DueDate = &v
	}
	return clone
}

// IsRoot reports whether the node is the plan's root.
func (n PlanNode) IsRoot() bool {
	return n.NodeType == TypeRoot
}

// HasParent reports whether the node names a parent.
func (n PlanNode) HasParent() bool {
	return n.ParentID != ""
}

// Validate checks if the node data is logically valid
func (n *PlanNode) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node ID cannot be empty")
	}
	if !n.NodeType.IsValid() {
		return fmt.Errorf("node %s: node type cannot be empty", n.ID)
	}
	if !n.Status.IsValid() {
		return fmt.Errorf("node %s: invalid status: %s", n.ID, n.Status)
	}
	if n.IsRoot() && n.HasParent() {
		return fmt.Errorf("node %s: root cannot have a parent", n.ID)
	}
	if n.ParentID == n.ID {
		return fmt.Errorf("node %s: node cannot be its own parent", n.ID)
	}
	if n.CommentCount < 0 || n.ArtifactCount < 0 || n.ChildCount < 0 || n.CompletedChildCount < 0 {
		return fmt.Errorf("node %s: counters cannot be negative", n.ID)
	}
	return nil
}

// NodeType categorizes a plan node
type NodeType string

const (
	TypeRoot      NodeType = "root"
	TypePhase     NodeType = "phase"
	TypeTask      NodeType = "task"
	TypeMilestone NodeType = "milestone"
)

// KnownNodeTypes lists the node types in display order.
var KnownNodeTypes = []NodeType{TypeRoot, TypePhase, TypeTask, TypeMilestone}

// IsValid returns true if the node type is non-empty.
// Unrecognized types are accepted; layout and rendering fall back to defaults for them.
func (t NodeType) IsValid() bool {
	return t != ""
}

// IsKnown returns true if the node type is one of the standard types.
func (t NodeType) IsKnown() bool {
	switch t {
	case TypeRoot, TypePhase, TypeTask, TypeMilestone:
		return true
	}
	return false
}

// Status represents the progress state of a node
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// KnownStatuses lists the statuses in the order the status toggle cycles through them.
var KnownStatuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked}

// IsValid returns true if the status is a recognized value
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// IsDone returns true if the status represents finished work
func (s Status) IsDone() bool {
	return s == StatusCompleted
}

// Next returns the status that follows s in KnownStatuses, wrapping around.
// An unknown status advances to not_started.
func (s Status) Next() Status {
	for i, st := range KnownStatuses {
		if st == s {
			return KnownStatuses[(i+1)%len(KnownStatuses)]
		}
	}
	return StatusNotStarted
}

// EdgeType categorizes the relationship between two nodes
type EdgeType string

const (
	EdgeHierarchical EdgeType = "hierarchical"
	EdgeDependency   EdgeType = "dependency"
	EdgeReference    EdgeType = "reference"
	EdgeSequence     EdgeType = "sequence"
)

// IsValid returns true if the edge type is a recognized value
func (e EdgeType) IsValid() bool {
	switch e {
	case EdgeHierarchical, EdgeDependency, EdgeReference, EdgeSequence:
		return true
	}
	return false
}

// Edge is a directed relationship from Source to Target.
// For hierarchical edges Source is the parent; for dependency edges Source
// must finish before Target.
type Edge struct {
	Source string   `json:"source" yaml:"source" toml:"source"`
	Target string   `json:"target" yaml:"target" toml:"target"`
	Type   EdgeType `json:"type" yaml:"type" toml:"type"`
}

// Key returns an identity for deduplication.
func (e Edge) Key() string {
	return e.Source + "->" + e.Target + "#" + string(e.Type)
}

// Point is a 2-D coordinate. Layout positions are top-left corners.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether either dimension is non-positive.
func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// PresentationMode selects which views are shown.
type PresentationMode string

const (
	ModeGraph PresentationMode = "graph"
	ModeTree  PresentationMode = "tree"
	ModeSplit PresentationMode = "split"
)

// DefaultMode is used when no mode has been persisted.
const DefaultMode = ModeSplit

// IsValid returns true if the mode is a recognized value
func (m PresentationMode) IsValid() bool {
	switch m {
	case ModeGraph, ModeTree, ModeSplit:
		return true
	}
	return false
}

// ShowsGraph reports whether the graph view is visible in this mode.
func (m PresentationMode) ShowsGraph() bool {
	return m == ModeGraph || m == ModeSplit
}

// ShowsTree reports whether the tree view is visible in this mode.
func (m PresentationMode) ShowsTree() bool {
	return m == ModeTree || m == ModeSplit
}

// Next cycles graph -> tree -> split -> graph.
func (m PresentationMode) Next() PresentationMode {
	switch m {
	case ModeGraph:
		return ModeTree
	case ModeTree:
		return ModeSplit
	default:
		return ModeGraph
	}
}
