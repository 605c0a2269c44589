package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

const jsonPlan = `{
  "id": "launch",
  "title": "Launch",
  "nodes": [
    {"id": "root", "node_type": "root", "status": "in_progress", "title": "Launch"},
    {"id": "design", "parent_id": "root", "node_type": "phase", "status": "in_progress", "title": "Design"},
    {"id": "wire", "parent_id": "design", "node_type": "task", "status": "completed", "title": "Wireframes"},
    {"id": "copy", "parent_id": "design", "node_type": "task", "status": "not_started", "title": "Copy"},
    {"id": "beta", "parent_id": "root", "node_type": "milestone", "status": "not_started", "title": "Beta"}
  ],
  "edges": [
    {"source": "wire", "target": "beta", "type": "dependency"},
    {"source": "copy", "target": "beta", "type": "dependency"}
  ]
}`

const yamlPlan = `title: Roadmap
nodes:
  - id: r
    node_type: root
    status: not_started
    title: Roadmap
  - id: q1
    parent_id: r
    node_type: phase
    status: not_started
    title: Q1
    due_date: 2026-03-31T00:00:00Z
`

const tomlPlan = `id = "ops"
title = "Ops"

[[nodes]]
id = "r"
node_type = "root"
status = "in_progress"
title = "Ops"

[[nodes]]
id = "oncall"
parent_id = "r"
node_type = "task"
status = "blocked"
title = "On-call rotation"
`

func writePlans(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"launch.json":  jsonPlan,
		"roadmap.yaml": yamlPlan,
		"ops.toml":     tomlPlan,
		"broken.json":  `{"nodes": [`,
		"notes.txt":    "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFetchPlanFormats(t *testing.T) {
	src := NewFileSource(writePlans(t), nil)
	ctx := context.Background()

	launch, err := src.FetchPlan(ctx, "launch")
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(launch.Nodes) != 5 || len(launch.Edges) != 2 {
		t.Errorf("unexpected launch plan %+v", launch)
	}

	roadmap, err := src.FetchPlan(ctx, "roadmap")
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if roadmap.ID != "roadmap" {
		t.Errorf("expected id from file name, got %q", roadmap.ID)
	}
	q1, _ := roadmap.Node("q1")
	want := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	if q1.DueDate == nil || !q1.DueDate.Equal(want) {
		t.Errorf("expected due date %v, got %v", want, q1.DueDate)
	}

	ops, err := src.FetchPlan(ctx, "ops")
	if err != nil {
		t.Fatalf("toml: %v", err)
	}
	if n, _ := ops.Node("oncall"); n.Status != model.StatusBlocked {
		t.Errorf("unexpected toml node %+v", n)
	}
}

func TestFetchPlanErrors(t *testing.T) {
	src := NewFileSource(writePlans(t), nil)
	ctx := context.Background()
	if _, err := src.FetchPlan(ctx, "missing"); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}
	if _, err := src.FetchPlan(ctx, "../etc/passwd"); !errors.Is(err, ErrInvalidPlanID) {
		t.Errorf("expected ErrInvalidPlanID, got %v", err)
	}
	if _, err := src.FetchPlan(ctx, "broken"); err == nil || errors.Is(err, ErrPlanNotFound) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestFetchPlanReturnsIndependentCopies(t *testing.T) {
	src := NewFileSource(writePlans(t), nil)
	ctx := context.Background()
	var wg sync.WaitGroup
	plans := make([]*model.Plan, 8)
	for i := range plans {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := src.FetchPlan(ctx, "launch")
			if err != nil {
				t.Errorf("fetch: %v", err)
				return
			}
			plans[i] = p
		}(i)
	}
	wg.Wait()
	plans[0].Nodes[0].Title = "changed"
	for _, p := range plans[1:] {
		if p != nil && p.Nodes[0].Title == "changed" {
			t.Fatal("concurrent fetches must not share node slices")
		}
	}
}

func TestListPlans(t *testing.T) {
	src := NewFileSource(writePlans(t), nil)
	infos, err := src.ListPlans(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	if strings.Join(ids, ",") != "broken,launch,ops,roadmap" {
		t.Fatalf("unexpected plan list %v", ids)
	}
	if infos[0].Err == "" {
		t.Error("broken plan should carry its error")
	}
	if infos[1].NodeCount != 5 || infos[1].Done != 1 || infos[1].Format != FormatJSON {
		t.Errorf("unexpected launch summary %+v", infos[1])
	}
	if infos[3].Format != FormatYAML {
		t.Errorf("expected yaml format, got %s", infos[3].Format)
	}
}

func TestListPlansMissingDir(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "none"), nil)
	infos, err := src.ListPlans(context.Background())
	if err != nil || len(infos) != 0 {
		t.Errorf("expected empty list, got %v %v", infos, err)
	}
}

func TestCreateNode(t *testing.T) {
	for _, planID := range []string{"launch", "roadmap", "ops"} {
		t.Run(planID, func(t *testing.T) {
			src := NewFileSource(writePlans(t), nil)
			ctx := context.Background()
			before, _ := src.FetchPlan(ctx, planID)
			root, _ := before.Root()

			created, err := src.CreateNode(ctx, planID, model.PlanNode{ParentID: root.ID, Title: "New work"})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if !strings.HasPrefix(created.ID, "pn-") {
				t.Errorf("expected generated id, got %q", created.ID)
			}
			if created.NodeType != model.TypeTask || created.Status != model.StatusNotStarted {
				t.Errorf("expected defaults applied, got %+v", created)
			}

			after, err := src.FetchPlan(ctx, planID)
			if err != nil {
				t.Fatalf("refetch: %v", err)
			}
			if len(after.Nodes) != len(before.Nodes)+1 {
				t.Fatalf("expected one more node, got %d", len(after.Nodes))
			}
			if _, ok := after.Node(created.ID); !ok {
				t.Error("created node not persisted")
			}
			r, _ := after.Node(root.ID)
			if r.ChildCount != len(after.Children(root.ID)) {
				t.Errorf("expected child count recomputed, got %d", r.ChildCount)
			}
		})
	}
}

func TestCreateNodeKeepsFormat(t *testing.T) {
	dir := writePlans(t)
	src := NewFileSource(dir, nil)
	if _, err := src.CreateNode(context.Background(), "ops", model.PlanNode{ParentID: "r", Title: "Runbook"}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "ops.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[[nodes]]") || !strings.Contains(string(data), "Runbook") {
		t.Errorf("expected toml write-back, got:\n%s", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "ops.json")); !os.IsNotExist(err) {
		t.Error("write-back must not create a file in another format")
	}
}

func TestCreateNodeErrors(t *testing.T) {
	src := NewFileSource(writePlans(t), nil)
	ctx := context.Background()
	tests := []struct {
		name string
		node model.PlanNode
		want error
	}{
		{"unknown parent", model.PlanNode{ParentID: "ghost", Title: "x"}, ErrNodeNotFound},
		{"duplicate id", model.PlanNode{ID: "wire", ParentID: "root", Title: "x"}, model.ErrDuplicateNode},
		{"second root", model.PlanNode{ParentID: "root", NodeType: model.TypeRoot, Title: "x"}, model.ErrMultipleRoots},
		{"bad status", model.PlanNode{ParentID: "root", Status: "done", Title: "x"}, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := src.CreateNode(ctx, "launch", tt.node); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if _, err := src.CreateNode(ctx, "launch", model.PlanNode{Title: "orphan"}); err == nil {
		t.Error("expected error without parent")
	}
	p, _ := src.FetchPlan(ctx, "launch")
	if len(p.Nodes) != 5 {
		t.Errorf("failed creates must not change the file, got %d nodes", len(p.Nodes))
	}
}

func TestUpdateNodeStatus(t *testing.T) {
	src := NewFileSource(writePlans(t), nil)
	ctx := context.Background()
	if err := src.UpdateNodeStatus(ctx, "launch", "copy", model.StatusCompleted); err != nil {
		t.Fatal(err)
	}
	p, _ := src.FetchPlan(ctx, "launch")
	if n, _ := p.Node("copy"); n.Status != model.StatusCompleted {
		t.Errorf("status not persisted: %s", n.Status)
	}
	if d, _ := p.Node("design"); d.CompletedChildCount != 2 {
		t.Errorf("expected completed child count 2, got %d", d.CompletedChildCount)
	}
	if err := src.UpdateNodeStatus(ctx, "launch", "copy", "finished"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if err := src.UpdateNodeStatus(ctx, "launch", "ghost", model.StatusBlocked); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestDeleteNodeCascades(t *testing.T) {
	src := NewFileSource(writePlans(t), nil)
	ctx := context.Background()
	if err := src.DeleteNode(ctx, "launch", "design"); err != nil {
		t.Fatal(err)
	}
	p, _ := src.FetchPlan(ctx, "launch")
	for _, id := range []string{"design", "wire", "copy"} {
		if _, ok := p.Node(id); ok {
			t.Errorf("%s should be removed", id)
		}
	}
	if len(p.Edges) != 0 {
		t.Errorf("edges touching removed nodes should be dropped, got %v", p.Edges)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("plan invalid after delete: %v", err)
	}
	if err := src.DeleteNode(ctx, "launch", "root"); !errors.Is(err, ErrRootNode) {
		t.Errorf("expected ErrRootNode, got %v", err)
	}
	if err := src.DeleteNode(ctx, "launch", "design"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestSavePlanNewFile(t *testing.T) {
	dir := t.TempDir()
	src := NewFileSource(filepath.Join(dir, "plans"), nil)
	ctx := context.Background()
	plan := &model.Plan{ID: "fresh", Nodes: []model.PlanNode{{ID: "r", NodeType: model.TypeRoot, Status: model.StatusNotStarted, Title: "Fresh"}}}
	if err := src.SavePlan(ctx, plan); err != nil {
		t.Fatal(err)
	}
	path, err := src.PathOf("fresh")
	if err != nil || filepath.Ext(path) != ".json" {
		t.Fatalf("expected json file, got %q %v", path, err)
	}
	got, err := src.FetchPlan(ctx, "fresh")
	if err != nil || got.Nodes[0].Title != "Fresh" {
		t.Errorf("unexpected round trip %+v %v", got, err)
	}
	if err := src.SavePlan(ctx, &model.Plan{ID: "a/b"}); !errors.Is(err, ErrInvalidPlanID) {
		t.Errorf("expected ErrInvalidPlanID, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{"a.json": FormatJSON, "a.YAML": FormatYAML, "a.yml": FormatYAML, "a.toml": FormatTOML}
	for path, want := range tests {
		if got, ok := FormatFromPath(path); !ok || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v", path, got, ok)
		}
	}
	if _, ok := FormatFromPath("a.txt"); ok {
		t.Error("txt should not be a plan format")
	}
}
