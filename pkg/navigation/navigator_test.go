package navigation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"pgregory.net/rapid"
)

func pn(id, parent string, typ model.NodeType, status model.Status, title string) model.PlanNode {
	return model.PlanNode{ID: id, ParentID: parent, NodeType: typ, Status: status, Title: title}
}

// samplePlan:
//
//	r Root
//	├── a Design
//	│   ├── b Implement API (in_progress)
//	│   └── c Unrelated
//	└── d Launch (milestone)
//	    └── e Deep
//	        └── f Write API docs
func samplePlan() []model.PlanNode {
	return []model.PlanNode{
		pn("r", "", model.TypeRoot, model.StatusInProgress, "Root"),
		pn("a", "r", model.TypePhase, model.StatusNotStarted, "Design"),
		pn("b", "a", model.TypeTask, model.StatusInProgress, "Implement API"),
		pn("c", "a", model.TypeTask, model.StatusNotStarted, "Unrelated"),
		pn("d", "r", model.TypeMilestone, model.StatusNotStarted, "Launch"),
		pn("e", "d", model.TypeTask, model.StatusBlocked, "Deep"),
		pn("f", "e", model.TypeTask, model.StatusCompleted, "Write API docs"),
	}
}

func expandedIDs(n *Navigator) []string {
	return n.State().ExpandedIDs()
}

func TestNavigatorInitialState(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	s := n.State()
	if len(s.Expanded) != 0 {
		t.Errorf("expected empty expansion set, got %v", s.Expanded)
	}
	if s.StatusFilter != FilterAll || s.TypeFilter != FilterAll || s.SearchTerm != "" {
		t.Errorf("expected no filters, got %+v", s)
	}
	if got := n.VisibleIDs(); !reflect.DeepEqual(got, []string{"r"}) {
		t.Errorf("expected only the root row, got %v", got)
	}
}

func TestToggleExpand(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	if err := n.ToggleExpand("r"); err != nil {
		t.Fatal(err)
	}
	if got := n.VisibleIDs(); !reflect.DeepEqual(got, []string{"r", "a", "d"}) {
		t.Errorf("expected root children after expand, got %v", got)
	}
	_ = n.ToggleExpand("r")
	if n.IsExpanded("r") {
		t.Error("expected second toggle to collapse")
	}
	if err := n.ToggleExpand("ghost"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
}

func TestExpandAllCollapseAll(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	n.ExpandAll()
	if got := len(n.State().Expanded); got != 7 {
		t.Errorf("expected all 7 nodes expanded, got %d", got)
	}
	want := []string{"r", "a", "b", "c", "d", "e", "f"}
	if got := n.VisibleIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected depth-first order %v, got %v", want, got)
	}
	n.CollapseAll()
	if got := len(n.State().Expanded); got != 0 {
		t.Errorf("expected empty expansion set, got %d", got)
	}
}

func TestSelectExpandsAncestors(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	if err := n.Select("f"); err != nil {
		t.Fatal(err)
	}
	if n.Selected() != "f" {
		t.Errorf("expected f selected, got %q", n.Selected())
	}
	if got := expandedIDs(n); !reflect.DeepEqual(got, []string{"d", "e", "r"}) {
		t.Errorf("expected ancestors expanded, got %v", got)
	}
	rows := n.Rows()
	found := false
	for _, r := range rows {
		if r.Node.ID == "f" {
			found = true
			if !r.Selected {
				t.Error("expected row f to be marked selected")
			}
		}
	}
	if !found {
		t.Error("selected node should be reachable in the rendered rows")
	}
	if err := n.Select("ghost"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
	if n.Selected() != "f" {
		t.Error("failed select should not change the selection")
	}
}

func TestCollapseAllThenSelectYieldsExactlyAncestors(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	n.ExpandAll()
	n.CollapseAll()
	_ = n.Select("b")
	if got := expandedIDs(n); !reflect.DeepEqual(got, []string{"a", "r"}) {
		t.Errorf("expected exactly {a, r}, got %v", got)
	}
}

func TestFiltersDoNotChangeExpansion(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	_ = n.ToggleExpand("a")
	n.SetSearchTerm("api")
	if err := n.SetStatusFilter(string(model.StatusBlocked)); err != nil {
		t.Fatal(err)
	}
	n.SetTypeFilter(string(model.TypeTask))
	if got := expandedIDs(n); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("filters should not touch expansion, got %v", got)
	}
	if err := n.SetStatusFilter("done"); err == nil {
		t.Error("expected error for unknown status filter")
	}
	if n.State().StatusFilter != string(model.StatusBlocked) {
		t.Error("failed filter change should keep the previous filter")
	}
}

func TestVisibilityRuleExample(t *testing.T) {
	nodes := []model.PlanNode{
		pn("A", "", model.TypePhase, model.StatusNotStarted, "Design"),
		pn("B", "A", model.TypeTask, model.StatusInProgress, "Implement API"),
		pn("C", "A", model.TypeTask, model.StatusNotStarted, "Unrelated"),
	}
	for _, depth := range []MatchDepth{MatchDeep, MatchShallow} {
		t.Run(depth.String(), func(t *testing.T) {
			n := New(nodes, depth)
			n.SetSearchTerm("api")
			if !n.IsVisible("A") {
				t.Error("A should be visible through its matching child")
			}
			if !n.IsDimmed("A") {
				t.Error("A should be dimmed")
			}
			if !n.IsVisible("B") || n.IsDimmed("B") {
				t.Error("B should be visible as a direct match")
			}
			if n.IsVisible("C") {
				t.Error("C should be hidden")
			}
			n.ExpandAll()
			if got := n.VisibleIDs(); !reflect.DeepEqual(got, []string{"A", "B"}) {
				t.Errorf("expected rows [A B], got %v", got)
			}
		})
	}
}

func TestVisibilityMatchDepth(t *testing.T) {
	// Only f ("Write API docs") matches; d and e are non-matching ancestors.
	deep := New(samplePlan(), MatchDeep)
	deep.SetSearchTerm("docs")
	for _, id := range []string{"r", "d", "e", "f"} {
		if !deep.IsVisible(id) {
			t.Errorf("deep: expected %s visible", id)
		}
	}
	for _, id := range []string{"a", "b", "c"} {
		if deep.IsVisible(id) {
			t.Errorf("deep: expected %s hidden", id)
		}
	}

	shallow := New(samplePlan(), MatchShallow)
	shallow.SetSearchTerm("docs")
	if !shallow.IsVisible("e") {
		t.Error("shallow: parent of a match should be visible")
	}
	if shallow.IsVisible("d") || shallow.IsVisible("r") {
		t.Error("shallow: grandparents of a match should be hidden")
	}
}

func TestSearchMatchesDescriptionCaseInsensitive(t *testing.T) {
	nodes := samplePlan()
	nodes[3].Description = "Touches the BILLING service"
	n := New(nodes, MatchDeep)
	n.SetSearchTerm("billing")
	if !n.Matches("c") {
		t.Error("expected description match")
	}
	n.SetSearchTerm("   ")
	if !n.Matches("a") || n.FiltersActive() {
		t.Error("blank search term should match everything")
	}
}

func TestStatusAndTypeFilters(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	_ = n.SetStatusFilter(string(model.StatusInProgress))
	n.SetTypeFilter(string(model.TypeTask))
	if !n.Matches("b") {
		t.Error("b is an in-progress task")
	}
	if n.Matches("r") {
		t.Error("root is not a task")
	}
	if !n.IsDimmed("r") || !n.IsDimmed("a") {
		t.Error("ancestors of b should be dimmed context")
	}
	_ = n.SetStatusFilter("")
	if n.State().StatusFilter != FilterAll {
		t.Error("empty status filter should mean all")
	}
}

func TestRowsShape(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	n.ExpandAll()
	rows := n.Rows()
	byID := map[string]Row{}
	for _, r := range rows {
		byID[r.Node.ID] = r
	}
	if byID["b"].Depth != 2 || byID["f"].Depth != 3 {
		t.Errorf("unexpected depths b=%d f=%d", byID["b"].Depth, byID["f"].Depth)
	}
	if byID["c"].HasChildren {
		t.Error("leaf should report no children (spacer)")
	}
	if !byID["a"].HasChildren || !byID["a"].Expanded {
		t.Error("a should be an expanded parent")
	}
	if byID["b"].Last || !byID["c"].Last {
		t.Error("c is the last child of a")
	}
	if !reflect.DeepEqual(byID["b"].Guides, []bool{true, false}) {
		t.Errorf("unexpected guides for b: %v", byID["b"].Guides)
	}
}

func TestCollapsedParentStillRenders(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	_ = n.ToggleExpand("r")
	rows := n.Rows()
	for _, r := range rows {
		if r.Node.ID == "a" && (r.Expanded || !r.HasChildren) {
			t.Errorf("a should render collapsed with an expand indicator: %+v", r)
		}
	}
}

func TestOrphansAndCyclesBecomeRoots(t *testing.T) {
	nodes := []model.PlanNode{
		pn("r", "", model.TypeRoot, model.StatusNotStarted, "Root"),
		pn("o", "missing", model.TypeTask, model.StatusNotStarted, "Orphan"),
		pn("x", "y", model.TypeTask, model.StatusNotStarted, "X"),
		pn("y", "x", model.TypeTask, model.StatusNotStarted, "Y"),
	}
	n := New(nodes, MatchDeep)
	n.ExpandAll()
	got := n.VisibleIDs()
	sorted := append([]string(nil), got...)
	sort.Strings(sorted)
	if !reflect.DeepEqual(sorted, []string{"o", "r", "x", "y"}) {
		t.Errorf("every node should render exactly once, got %v", got)
	}
	if err := n.Select("y"); err != nil {
		t.Fatal(err)
	}
}

func TestRebuildDropsDanglingSelection(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	_ = n.Select("c")
	nodes := samplePlan()
	nodes = append(nodes[:3], nodes[4:]...) // delete c
	n.Rebuild(nodes)
	if n.Selected() != "" {
		t.Errorf("expected selection cleared, got %q", n.Selected())
	}
	if !n.IsExpanded("a") {
		t.Error("expansion of surviving nodes should be kept")
	}

	_ = n.Select("b")
	n.Rebuild(samplePlan())
	if n.Selected() != "b" {
		t.Error("selection of a surviving node should be kept")
	}
}

func TestMoveSelection(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	n.ExpandAll()
	if id, ok := n.MoveSelection(1); !ok || id != "r" {
		t.Errorf("first move should select the first row, got %q", id)
	}
	id, _ := n.MoveSelection(2)
	if id != "b" {
		t.Errorf("expected b, got %q", id)
	}
	id, _ = n.MoveSelection(100)
	if id != "f" {
		t.Errorf("expected clamp to last row, got %q", id)
	}
	empty := New(nil, MatchDeep)
	if _, ok := empty.MoveSelection(1); ok {
		t.Error("expected no move on an empty tree")
	}
}

func TestExpandToDepth(t *testing.T) {
	n := New(samplePlan(), MatchDeep)
	n.ExpandToDepth(1)
	if got := expandedIDs(n); !reflect.DeepEqual(got, []string{"r"}) {
		t.Errorf("expected only root expanded, got %v", got)
	}
}

func TestParseMatchDepth(t *testing.T) {
	if d, err := ParseMatchDepth("Shallow"); err != nil || d != MatchShallow {
		t.Errorf("expected shallow, got %v %v", d, err)
	}
	if d, _ := ParseMatchDepth(""); d != MatchDeep {
		t.Error("empty should default to deep")
	}
	if _, err := ParseMatchDepth("wide"); err == nil {
		t.Error("expected error")
	}
}

func TestSelectAncestorsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 25).Draw(t, "count")
		nodes := []model.PlanNode{pn("n0", "", model.TypeRoot, model.StatusNotStarted, "root")}
		for i := 1; i < count; i++ {
			parent := rapid.IntRange(0, i-1).Draw(t, "parent")
			nodes = append(nodes, pn(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", parent), model.TypeTask, model.StatusNotStarted, "t"))
		}
		n := New(nodes, MatchDeep)
		toggles := rapid.IntRange(0, 10).Draw(t, "toggles")
		for i := 0; i < toggles; i++ {
			_ = n.ToggleExpand(fmt.Sprintf("n%d", rapid.IntRange(0, count-1).Draw(t, "toggle")))
		}
		collapse := rapid.Bool().Draw(t, "collapse")
		if collapse {
			n.CollapseAll()
		}
		target := fmt.Sprintf("n%d", rapid.IntRange(0, count-1).Draw(t, "target"))
		if err := n.Select(target); err != nil {
			t.Fatal(err)
		}
		ancestors := n.Ancestors(target)
		for _, a := range ancestors {
			if !n.IsExpanded(a) {
				t.Fatalf("ancestor %s of %s not expanded", a, target)
			}
		}
		if collapse {
			want := append([]string(nil), ancestors...)
			sort.Strings(want)
			if got := expandedIDs(n); !reflect.DeepEqual(got, want) && !(len(got) == 0 && len(want) == 0) {
				t.Fatalf("expected expansion %v, got %v", want, got)
			}
		}
		visible := false
		for _, id := range n.VisibleIDs() {
			if id == target {
				visible = true
			}
		}
		if !visible {
			t.Fatalf("selected node %s is not reachable", target)
		}
	})
}
