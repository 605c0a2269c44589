// Package loader reads and writes plan files and watches them for changes.
//
// A plans directory holds one file per plan, named <planID>.json, .yaml,
// .yml or .toml. FileSource implements the data collaborator the view
// synchronizer talks to: it fetches plans and applies node mutations,
// writing each file back in its own format.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Dicklesworthstone/plan_viewer/pkg/idgen"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

var (
	// ErrPlanNotFound is returned when no file exists for a plan id.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrNodeNotFound is returned when a mutation names an unknown node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrInvalidStatus is returned for status updates outside the known set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidPlanID is returned for ids that cannot name a file.
	ErrInvalidPlanID = errors.New("invalid plan id")
	// ErrRootNode is returned when deleting the plan root.
	ErrRootNode = errors.New("cannot delete the root node")
)

// PlanInfo summarizes a plan file for listings.
type PlanInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	Path      string `json:"path"`
	Format    Format `json:"format"`
	NodeCount int    `json:"node_count"`
	Done      int    `json:"done"`
	Err       string `json:"error,omitempty"`
}

// FileSource serves plans from a directory.
type FileSource struct {
	dir    string
	logger *slog.Logger
	group  singleflight.Group

	// mu serializes read-modify-write cycles.
	mu sync.Mutex
}

// NewFileSource creates a source over dir. The directory need not exist
// until a plan is read.
func NewFileSource(dir string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileSource{dir: dir, logger: logger}
}

// Dir returns the plans directory.
func (s *FileSource) Dir() string { return s.dir }

func validPlanID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`) && !strings.HasPrefix(id, ".")
}

// locate finds the file of planID.
func (s *FileSource) locate(planID string) (string, Format, error) {
	if !validPlanID(planID) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPlanID, planID)
	}
	var found []string
	var format Format
	for _, e := range extensions {
		p := filepath.Join(s.dir, planID+e.ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			if len(found) == 0 {
				format = e.format
			}
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return "", "", fmt.Errorf("%s: %w", planID, ErrPlanNotFound)
	}
	if len(found) > 1 {
		s.logger.Warn("loader: several files for one plan, using the first", "plan", planID, "files", found)
	}
	return found[0], format, nil
}

// PathOf returns the file backing planID.
func (s *FileSource) PathOf(planID string) (string, error) {
	p, _, err := s.locate(planID)
	return p, err
}

func (s *FileSource) read(planID string) (*model.Plan, string, Format, error) {
	path, format, err := s.locate(planID)
	if err != nil {
		return nil, "", "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", "", fmt.Errorf("%s: %w", planID, ErrPlanNotFound)
		}
		return nil, "", "", fmt.Errorf("read plan %s: %w", planID, err)
	}
	plan, err := Decode(data, format)
	if err != nil {
		return nil, "", "", fmt.Errorf("%s: %w", path, err)
	}
	if plan.ID == "" {
		plan.ID = planID
	} else if plan.ID != planID {
		s.logger.Warn("loader: plan id differs from file name, using file name", "file", path, "id", plan.ID)
		plan.ID = planID
	}
	if err := plan.Validate(); err != nil {
		// Views cope with imperfect plans; the problem is only reported.
		s.logger.Warn("loader: plan failed validation", "plan", planID, "error", err)
	}
	return plan, path, format, nil
}

// FetchPlan loads a plan. Concurrent fetches of the same plan share one read.
func (s *FileSource) FetchPlan(ctx context.Context, planID string) (*model.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, err, _ := s.group.Do(planID, func() (any, error) {
		plan, _, _, err := s.read(planID)
		return plan, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Plan).Clone(), nil
}

// ListPlans summarizes every plan file in the directory, sorted by id.
// Files that fail to parse are listed with Err set.
func (s *FileSource) ListPlans(ctx context.Context) ([]PlanInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list plans: %w", err)
	}
	seen := make(map[string]bool)
	var out []PlanInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		format, ok := FormatFromPath(e.Name())
		if !ok {
			continue
		}
		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if !validPlanID(id) || seen[id] {
			continue
		}
		seen[id] = true
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info := PlanInfo{ID: id, Path: filepath.Join(s.dir, e.Name()), Format: format}
		plan, path, format, err := s.read(id)
		if err != nil {
			info.Err = err.Error()
		} else {
			info.Path = path
			info.Format = format
			info.Title = plan.Title
			info.NodeCount = len(plan.Nodes)
			for _, n := range plan.Nodes {
				if n.Status.IsDone() {
					info.Done++
				}
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// update runs fn on the current plan and writes the result back.
func (s *FileSource) update(ctx context.Context, planID string, fn func(*model.Plan) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, path, format, err := s.read(planID)
	if err != nil {
		return err
	}
	if err := fn(plan); err != nil {
		return err
	}
	recount(plan)
	if err := s.write(path, plan, format); err != nil {
		return err
	}
	s.group.Forget(planID)
	return nil
}

// SavePlan writes plan to its existing file, or to a new JSON file.
func (s *FileSource) SavePlan(ctx context.Context, plan *model.Plan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validPlanID(plan.ID) {
		return fmt.Errorf("%w: %q", ErrInvalidPlanID, plan.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path, format, err := s.locate(plan.ID)
	if errors.Is(err, ErrPlanNotFound) {
		path, format, err = filepath.Join(s.dir, plan.ID+".json"), FormatJSON, nil
	}
	if err != nil {
		return err
	}
	if err := s.write(path, plan, format); err != nil {
		return err
	}
	s.group.Forget(plan.ID)
	return nil
}

// write replaces path atomically.
func (s *FileSource) write(path string, plan *model.Plan, format Format) error {
	data, err := Encode(plan, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plans dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write plan: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write plan: %w", err)
	}
	s.logger.Debug("loader: plan written", "path", path, "nodes", len(plan.Nodes))
	return nil
}

// CreateNode adds node under node.ParentID. An empty id is generated; an
// empty type becomes task and an empty status not_started.
func (s *FileSource) CreateNode(ctx context.Context, planID string, node model.PlanNode) (model.PlanNode, error) {
	var created model.PlanNode
	err := s.update(ctx, planID, func(plan *model.Plan) error {
		idx := plan.Index()
		if node.ParentID == "" {
			return fmt.Errorf("create node: parent is required")
		}
		if _, ok := idx[node.ParentID]; !ok {
			return fmt.Errorf("create node: parent %s: %w", node.ParentID, ErrNodeNotFound)
		}
		if node.ID == "" {
			id, err := idgen.Unique(idgen.DefaultPrefix, func(c string) bool {
				_, taken := idx[c]
				return taken
			})
			if err != nil {
				return err
			}
			node.ID = id
		} else if _, dup := idx[node.ID]; dup {
			return fmt.Errorf("create node %s: %w", node.ID, model.ErrDuplicateNode)
		}
		if node.NodeType == "" {
			node.NodeType = model.TypeTask
		}
		if node.NodeType == model.TypeRoot {
			return fmt.Errorf("create node: %w", model.ErrMultipleRoots)
		}
		if node.Status == "" {
			node.Status = model.StatusNotStarted
		}
		if !node.Status.IsValid() {
			return fmt.Errorf("create node: %w %q", ErrInvalidStatus, node.Status)
		}
		if err := node.Validate(); err != nil {
			return fmt.Errorf("create node: %w", err)
		}
		plan.Nodes = append(plan.Nodes, node)
		created = node
		return nil
	})
	if err != nil {
		return model.PlanNode{}, err
	}
	s.logger.Info("loader: node created", "plan", planID, "node", created.ID, "parent", created.ParentID)
	return created, nil
}

// UpdateNodeStatus sets the status of nodeID.
func (s *FileSource) UpdateNodeStatus(ctx context.Context, planID, nodeID string, status model.Status) error {
	if !status.IsValid() {
		return fmt.Errorf("%w %q", ErrInvalidStatus, status)
	}
	return s.update(ctx, planID, func(plan *model.Plan) error {
		i, ok := plan.Index()[nodeID]
		if !ok {
			return fmt.Errorf("update %s: %w", nodeID, ErrNodeNotFound)
		}
		plan.Nodes[i].Status = status
		return nil
	})
}

// DeleteNode removes nodeID, all of its descendants and every edge that
// touches a removed node.
func (s *FileSource) DeleteNode(ctx context.Context, planID, nodeID string) error {
	removed := 0
	err := s.update(ctx, planID, func(plan *model.Plan) error {
		n, ok := plan.Node(nodeID)
		if !ok {
			return fmt.Errorf("delete %s: %w", nodeID, ErrNodeNotFound)
		}
		if n.IsRoot() {
			return fmt.Errorf("delete %s: %w", nodeID, ErrRootNode)
		}
		gone := map[string]bool{nodeID: true}
		for _, id := range plan.Descendants(nodeID) {
			gone[id] = true
		}
		nodes := plan.Nodes[:0]
		for _, node := range plan.Nodes {
			if !gone[node.ID] {
				nodes = append(nodes, node)
			}
		}
		plan.Nodes = nodes
		edges := plan.Edges[:0]
		for _, e := range plan.Edges {
			if !gone[e.Source] && !gone[e.Target] {
				edges = append(edges, e)
			}
		}
		plan.Edges = edges
		removed = len(gone)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("loader: node deleted", "plan", planID, "node", nodeID, "removed", removed)
	return nil
}

// recount refreshes ChildCount and CompletedChildCount from the hierarchy.
func recount(plan *model.Plan) {
	idx := plan.Index()
	for i := range plan.Nodes {
		plan.Nodes[i].ChildCount = 0
		plan.Nodes[i].CompletedChildCount = 0
	}
	for _, n := range plan.Nodes {
		if n.ParentID == "" || n.ParentID == n.ID {
			continue
		}
		p, ok := idx[n.ParentID]
		if !ok {
			continue
		}
		plan.Nodes[p].ChildCount++
		if n.Status.IsDone() {
			plan.Nodes[p].CompletedChildCount++
		}
	}
}
