package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{"NotStarted", StatusNotStarted, true},
		{"InProgress", StatusInProgress, true},
		{"Completed", StatusCompleted, true},
		{"Blocked", StatusBlocked, true},
		{"Invalid", "open", false},
		{"Empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("Status.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_Next(t *testing.T) {
	tests := []struct {
		from Status
		want Status
	}{
		{StatusNotStarted, StatusInProgress},
		{StatusInProgress, StatusCompleted},
		{StatusCompleted, StatusBlocked},
		{StatusBlocked, StatusNotStarted},
		{"weird", StatusNotStarted},
	}
	for _, tt := range tests {
		if got := tt.from.Next(); got != tt.want {
			t.Errorf("%q.Next() = %q, want %q", tt.from, got, tt.want)
		}
	}
}

func TestNodeType_IsValidAndKnown(t *testing.T) {
	tests := []struct {
		nodeType  NodeType
		wantValid bool
		wantKnown bool
	}{
		{TypeRoot, true, true},
		{TypePhase, true, true},
		{TypeTask, true, true},
		{TypeMilestone, true, true},
		{"epic", true, false},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := tt.nodeType.IsValid(); got != tt.wantValid {
			t.Errorf("%q.IsValid() = %v, want %v", tt.nodeType, got, tt.wantValid)
		}
		if got := tt.nodeType.IsKnown(); got != tt.wantKnown {
			t.Errorf("%q.IsKnown() = %v, want %v", tt.nodeType, got, tt.wantKnown)
		}
	}
}

func TestEdgeType_IsValid(t *testing.T) {
	for _, e := range []EdgeType{EdgeHierarchical, EdgeDependency, EdgeReference, EdgeSequence} {
		if !e.IsValid() {
			t.Errorf("expected %q to be valid", e)
		}
	}
	if EdgeType("blocks").IsValid() {
		t.Error("expected unknown edge type to be invalid")
	}
}

func TestPresentationMode(t *testing.T) {
	if !ModeSplit.ShowsGraph() || !ModeSplit.ShowsTree() {
		t.Error("split mode should show both views")
	}
	if ModeTree.ShowsGraph() {
		t.Error("tree mode should hide the graph")
	}
	if ModeGraph.ShowsTree() {
		t.Error("graph mode should hide the tree")
	}
	if got := ModeGraph.Next().Next().Next(); got != ModeGraph {
		t.Errorf("mode cycle should return to graph, got %q", got)
	}
	if PresentationMode("board").IsValid() {
		t.Error("unknown mode should be invalid")
	}
}

func TestPlanNode_Validate(t *testing.T) {
	tests := []struct {
		name    string
		node    PlanNode
		wantErr string
	}{
		{"ok", PlanNode{ID: "a", NodeType: TypeTask, Status: StatusNotStarted}, ""},
		{"unknown type ok", PlanNode{ID: "a", NodeType: "epic", Status: StatusBlocked}, ""},
		{"empty id", PlanNode{NodeType: TypeTask, Status: StatusNotStarted}, "ID cannot be empty"},
		{"empty type", PlanNode{ID: "a", Status: StatusNotStarted}, "node type"},
		{"bad status", PlanNode{ID: "a", NodeType: TypeTask, Status: "done"}, "invalid status"},
		{"root with parent", PlanNode{ID: "a", ParentID: "b", NodeType: TypeRoot, Status: StatusNotStarted}, "root cannot have a parent"},
		{"self parent", PlanNode{ID: "a", ParentID: "a", NodeType: TypeTask, Status: StatusNotStarted}, "own parent"},
		{"negative counter", PlanNode{ID: "a", NodeType: TypeTask, Status: StatusNotStarted, CommentCount: -1}, "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.node.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPlanNode_CloneDeepCopiesDueDate(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	n := PlanNode{ID: "a", DueDate: &due}
	c := n.Clone()
	*c.DueDate = c.DueDate.Add(24 * time.Hour)
	if !n.DueDate.Equal(due) {
		t.Errorf("clone mutation leaked into original: %v", n.DueDate)
	}
}

func TestPlanNode_OptionalFieldsOmitted(t *testing.T) {
	data, err := json.Marshal(PlanNode{ID: "a", NodeType: TypeTask, Status: StatusNotStarted, Title: "A"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, field := range []string{"parent_id", "description", "due_date", "comment_count"} {
		if strings.Contains(s, field) {
			t.Errorf("expected %s to be omitted, got %s", field, s)
		}
	}
}

func samplePlan() *Plan {
	return &Plan{
		ID: "p1",
		Nodes: []PlanNode{
			{ID: "r", NodeType: TypeRoot, Status: StatusInProgress, Title: "Root"},
			{ID: "ph1", ParentID: "r", NodeType: TypePhase, Status: StatusNotStarted, Title: "Phase 1"},
			{ID: "t1", ParentID: "ph1", NodeType: TypeTask, Status: StatusCompleted, Title: "Task 1"},
			{ID: "t2", ParentID: "ph1", NodeType: TypeTask, Status: StatusBlocked, Title: "Task 2"},
			{ID: "m1", ParentID: "r", NodeType: TypeMilestone, Status: StatusNotStarted, Title: "Ship"},
		},
		Edges: []Edge{
			{Source: "t1", Target: "t2", Type: EdgeDependency},
			{Source: "r", Target: "ph1", Type: EdgeHierarchical},
		},
	}
}

func TestPlan_Validate(t *testing.T) {
	if err := samplePlan().Validate(); err != nil {
		t.Fatalf("sample plan should be valid: %v", err)
	}

	noRoot := samplePlan()
	noRoot.Nodes = noRoot.Nodes[1:]
	noRoot.Edges = nil
	if err := noRoot.Validate(); !errors.Is(err, ErrNoRoot) {
		t.Errorf("expected ErrNoRoot, got %v", err)
	}

	twoRoots := samplePlan()
	twoRoots.Nodes = append(twoRoots.Nodes, PlanNode{ID: "r2", NodeType: TypeRoot, Status: StatusNotStarted})
	if err := twoRoots.Validate(); !errors.Is(err, ErrMultipleRoots) {
		t.Errorf("expected ErrMultipleRoots, got %v", err)
	}

	parentless := &Plan{ID: "p2", Nodes: []PlanNode{
		{ID: "ph", NodeType: TypePhase, Status: StatusNotStarted},
		{ID: "t", ParentID: "ph", NodeType: TypeTask, Status: StatusNotStarted},
	}}
	if err := parentless.Validate(); err != nil {
		t.Errorf("a single parentless node is the root: %v", err)
	}
	if root, ok := parentless.Root(); !ok || root.ID != "ph" {
		t.Errorf("Root() = %v, %v; want ph", root.ID, ok)
	}

	extraTop := samplePlan()
	extraTop.Nodes = append(extraTop.Nodes, PlanNode{ID: "loose", NodeType: TypeTask, Status: StatusNotStarted})
	if err := extraTop.Validate(); !errors.Is(err, ErrMultipleRoots) {
		t.Errorf("root plus a parentless node: expected ErrMultipleRoots, got %v", err)
	}
	if root, _ := extraTop.Root(); root.ID != "r" {
		t.Errorf("Root() should prefer the root type, got %s", root.ID)
	}

	dup := samplePlan()
	dup.Nodes = append(dup.Nodes, dup.Nodes[1])
	if err := dup.Validate(); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("expected ErrDuplicateNode, got %v", err)
	}

	dangling := samplePlan()
	dangling.Edges = append(dangling.Edges, Edge{Source: "t1", Target: "ghost", Type: EdgeReference})
	if err := dangling.Validate(); !errors.Is(err, ErrDanglingEdge) {
		t.Errorf("expected ErrDanglingEdge, got %v", err)
	}

	empty := &Plan{ID: "empty"}
	if err := empty.Validate(); err != nil {
		t.Errorf("empty plan should validate, got %v", err)
	}
}

func TestPlan_ChildrenAndDescendants(t *testing.T) {
	p := samplePlan()
	var ids []string
	for _, c := range p.Children("r") {
		ids = append(ids, c.ID)
	}
	if !reflect.DeepEqual(ids, []string{"ph1", "m1"}) {
		t.Errorf("children of r = %v", ids)
	}
	if got := p.Descendants("r"); !reflect.DeepEqual(got, []string{"ph1", "m1", "t1", "t2"}) {
		t.Errorf("descendants of r = %v", got)
	}
	if got := p.Descendants("t2"); len(got) != 0 {
		t.Errorf("leaf should have no descendants, got %v", got)
	}
}

func TestPlan_DescendantsCycleSafe(t *testing.T) {
	p := &Plan{ID: "p", Nodes: []PlanNode{
		{ID: "a", ParentID: "b", NodeType: TypeTask, Status: StatusNotStarted},
		{ID: "b", ParentID: "a", NodeType: TypeTask, Status: StatusNotStarted},
	}}
	if got := p.Descendants("a"); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("expected [b], got %v", got)
	}
}

func TestPlan_AllEdgesDerivesHierarchy(t *testing.T) {
	p := samplePlan()
	edges := p.AllEdges()
	want := []Edge{
		{Source: "t1", Target: "t2", Type: EdgeDependency},
		{Source: "r", Target: "ph1", Type: EdgeHierarchical},
		{Source: "ph1", Target: "t1", Type: EdgeHierarchical},
		{Source: "ph1", Target: "t2", Type: EdgeHierarchical},
		{Source: "r", Target: "m1", Type: EdgeHierarchical},
	}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("AllEdges() = %+v\nwant %+v", edges, want)
	}
}

func TestPlan_CloneIndependent(t *testing.T) {
	p := samplePlan()
	c := p.Clone()
	c.Nodes[0].Title = "changed"
	c.Edges[0].Type = EdgeReference
	if p.Nodes[0].Title != "Root" || p.Edges[0].Type != EdgeDependency {
		t.Error("clone shares storage with original")
	}
	var nilPlan *Plan
	if nilPlan.Clone() != nil {
		t.Error("clone of nil plan should be nil")
	}
}
