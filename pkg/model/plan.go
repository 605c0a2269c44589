package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRoot is returned when a plan has no root node.
	ErrNoRoot = errors.New("plan has no root node")
	// ErrMultipleRoots is returned when a plan has more than one root node.
	ErrMultipleRoots = errors.New("plan has more than one root node")
	// ErrDuplicateNode is returned when two nodes share an id.
	ErrDuplicateNode = errors.New("duplicate node id")
	// ErrDanglingEdge is returned when an edge references an unknown node.
	ErrDanglingEdge = errors.New("edge references unknown node")
)

// Plan is a hierarchy of nodes plus the relationships between them.
type Plan struct {
	ID    string     `json:"id" yaml:"id" toml:"id"`
	Title string     `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
	Nodes []PlanNode `json:"nodes" yaml:"nodes" toml:"nodes"`
	Edges []Edge     `json:"edges,omitempty" yaml:"edges,omitempty" toml:"edges,omitempty"`
}

// Clone creates a deep copy of the plan
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	clone := &Plan{ID: p.ID, Title: p.Title}
	if p.Nodes != nil {
		clone.Nodes = make([]PlanNode, len(p.Nodes))
		for i, n := range p.Nodes {
			clone.Nodes[i] = n.Clone()
		}
	}
	if p.Edges != nil {
		clone.Edges = make([]Edge, len(p.Edges))
		copy(clone.Edges, p.Edges)
	}
	return clone
}

// Validate checks structural consistency: unique ids, exactly one root and
// edges that reference known nodes. A root is a node of type root or a node
// without a parent. Parent references to unknown nodes are tolerated; such
// nodes are treated as top-level by consumers.
func (p *Plan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("plan ID cannot be empty")
	}
	seen := make(map[string]bool, len(p.Nodes))
	roots := 0
	for i := range p.Nodes {
		n := &p.Nodes[i]
		if err := n.Validate(); err != nil {
			return err
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		seen[n.ID] = true
		if n.IsRoot() || !n.HasParent() {
			roots++
		}
	}
	if len(p.Nodes) > 0 {
		switch {
		case roots == 0:
			return ErrNoRoot
		case roots > 1:
			return fmt.Errorf("%w: found %d", ErrMultipleRoots, roots)
		}
	}
	for _, e := range p.Edges {
		if !seen[e.Source] {
			return fmt.Errorf("%w: source %s", ErrDanglingEdge, e.Source)
		}
		if !seen[e.Target] {
			return fmt.Errorf("%w: target %s", ErrDanglingEdge, e.Target)
		}
	}
	return nil
}

// Index returns the node position by id. Later duplicates are ignored.
func (p *Plan) Index() map[string]int {
	idx := make(map[string]int, len(p.Nodes))
	for i, n := range p.Nodes {
		if _, ok := idx[n.ID]; !ok {
			idx[n.ID] = i
		}
	}
	return idx
}

// Node returns the node with the given id.
func (p *Plan) Node(id string) (PlanNode, bool) {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return PlanNode{}, false
}

// Root returns the node of type root, or else the first node without a
// parent.
func (p *Plan) Root() (PlanNode, bool) {
	for _, n := range p.Nodes {
		if n.IsRoot() {
			return n, true
		}
	}
	for _, n := range p.Nodes {
		if !n.HasParent() {
			return n, true
		}
	}
	return PlanNode{}, false
}

// Children returns the direct children of id in input order.
func (p *Plan) Children(id string) []PlanNode {
	var out []PlanNode
	for _, n := range p.Nodes {
		if n.ParentID == id && n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

// Descendants returns the ids of every node below id, breadth first.
// Parent cycles are cut.
func (p *Plan) Descendants(id string) []string {
	children := make(map[string][]string)
	for _, n := range p.Nodes {
		if n.HasParent() {
			children[n.ParentID] = append(children[n.ParentID], n.ID)
		}
	}
	visited := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			if visited[c] {
				continue
			}
			visited[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// AllEdges returns the explicit edges followed by a hierarchical edge for
// every parent reference that is not already present. Edges touching unknown
// nodes are kept; the layout engine skips them.
func (p *Plan) AllEdges() []Edge {
	idx := p.Index()
	seen := make(map[string]bool, len(p.Edges)+len(p.Nodes))
	out := make([]Edge, 0, len(p.Edges)+len(p.Nodes))
	for _, e := range p.Edges {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		out = append(out, e)
	}
	for _, n := range p.Nodes {
		if !n.HasParent() {
			continue
		}
		if _, ok := idx[n.ParentID]; !ok {
			continue
		}
		e := Edge{Source: n.ParentID, Target: n.ID, Type: EdgeHierarchical}
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		out = append(out, e)
	}
	return out
}
