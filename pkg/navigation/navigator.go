// Package navigation tracks tree expansion, filtering and selection for a plan.
//
// A Navigator is built from the plan's nodes and mutated only through its
// transition methods. Visibility and the flattened row list are derived on
// demand and never stored.
package navigation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// FilterAll disables a status or type filter.
const FilterAll = "all"

// ErrUnknownNode is returned when a transition names a node that is not in the tree.
var ErrUnknownNode = errors.New("unknown node")

// MatchDepth controls how far below a non-matching node the visibility rule
// looks for a match.
type MatchDepth int

const (
	// MatchDeep keeps a node visible when any descendant matches.
	MatchDeep MatchDepth = iota
	// MatchShallow keeps a node visible only when a direct child matches.
	MatchShallow
)

// ParseMatchDepth accepts "deep" or "shallow".
func ParseMatchDepth(s string) (MatchDepth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "deep":
		return MatchDeep, nil
	case "shallow":
		return MatchShallow, nil
	}
	return MatchDeep, fmt.Errorf("unknown match depth %q (want deep or shallow)", s)
}

func (d MatchDepth) String() string {
	if d == MatchShallow {
		return "shallow"
	}
	return "deep"
}

// State is a snapshot of the navigation fields.
type State struct {
	Expanded       map[string]bool `json:"expanded"`
	SearchTerm     string          `json:"search_term"`
	StatusFilter   string          `json:"status_filter"`
	TypeFilter     string          `json:"type_filter"`
	SelectedNodeID string          `json:"selected_node_id,omitempty"`
}

// ExpandedIDs returns the expansion set in sorted order.
func (s State) ExpandedIDs() []string {
	ids := make([]string, 0, len(s.Expanded))
	for id, on := range s.Expanded {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Row is one rendered line of the tree.
type Row struct {
	Node        model.PlanNode
	Depth       int
	HasChildren bool // false rows get a spacer instead of an expand indicator
	Expanded    bool
	Dimmed      bool // shown only because a descendant matches
	Selected    bool
	Last        bool   // last visible sibling
	Guides      []bool // for each ancestor level, whether that ancestor was a last sibling
}

// Navigator owns the tree navigation state of one plan.
type Navigator struct {
	nodes    []model.PlanNode
	index    map[string]int
	parent   map[string]string
	children map[string][]string
	roots    []string

	depth MatchDepth
	state State

	matchCache map[string]bool
	visCache   map[string]bool
}

// New builds a navigator over nodes with an empty expansion set and no
// filters.
func New(nodes []model.PlanNode, depth MatchDepth) *Navigator {
	n := &Navigator{
		depth: depth,
		state: State{
			Expanded:     make(map[string]bool),
			StatusFilter: FilterAll,
			TypeFilter:   FilterAll,
		},
	}
	n.build(nodes)
	return n
}

// build indexes nodes. Nodes without a (known) parent and root nodes are
// roots; parent chains that loop are cut so every node is reachable once.
func (n *Navigator) build(nodes []model.PlanNode) {
	n.nodes = make([]model.PlanNode, 0, len(nodes))
	n.index = make(map[string]int, len(nodes))
	for _, node := range nodes {
		if _, dup := n.index[node.ID]; dup {
			continue
		}
		n.index[node.ID] = len(n.nodes)
		n.nodes = append(n.nodes, node)
	}

	n.parent = make(map[string]string, len(n.nodes))
	n.children = make(map[string][]string, len(n.nodes))
	n.roots = nil
	for _, node := range n.nodes {
		_, known := n.index[node.ParentID]
		if node.IsRoot() || !node.HasParent() || !known || node.ParentID == node.ID {
			n.roots = append(n.roots, node.ID)
			continue
		}
		n.parent[node.ID] = node.ParentID
		n.children[node.ParentID] = append(n.children[node.ParentID], node.ID)
	}

	// Anything unreachable sits on a parent cycle; promote it to a root.
	reached := make(map[string]bool, len(n.nodes))
	var walk func(id string)
	walk = func(id string) {
		if reached[id] {
			return
		}
		reached[id] = true
		for _, c := range n.children[id] {
			walk(c)
		}
	}
	for _, r := range n.roots {
		walk(r)
	}
	for _, node := range n.nodes {
		if reached[node.ID] {
			continue
		}
		if p, ok := n.parent[node.ID]; ok {
			n.children[p] = removeID(n.children[p], node.ID)
			delete(n.parent, node.ID)
		}
		n.roots = append(n.roots, node.ID)
		walk(node.ID)
	}
	n.invalidate()
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func (n *Navigator) invalidate() {
	n.matchCache = nil
	n.visCache = nil
}

// Rebuild replaces the node set and keeps the navigation fields. Expansion
// entries and a selection that name removed nodes are dropped.
func (n *Navigator) Rebuild(nodes []model.PlanNode) {
	n.build(nodes)
	for id := range n.state.Expanded {
		if _, ok := n.index[id]; !ok {
			delete(n.state.Expanded, id)
		}
	}
	if n.state.SelectedNodeID != "" {
		if _, ok := n.index[n.state.SelectedNodeID]; !ok {
			n.state.SelectedNodeID = ""
		}
	}
}

// State returns a copy of the navigation fields.
func (n *Navigator) State() State {
	s := n.state
	s.Expanded = make(map[string]bool, len(n.state.Expanded))
	for id, on := range n.state.Expanded {
		s.Expanded[id] = on
	}
	return s
}

// MatchDepth returns the configured visibility lookahead.
func (n *Navigator) MatchDepth() MatchDepth { return n.depth }

// Len returns the number of nodes.
func (n *Navigator) Len() int { return len(n.nodes) }

// Node returns a node by id.
func (n *Navigator) Node(id string) (model.PlanNode, bool) {
	i, ok := n.index[id]
	if !ok {
		return model.PlanNode{}, false
	}
	return n.nodes[i], true
}

// Has reports whether id is in the tree.
func (n *Navigator) Has(id string) bool {
	_, ok := n.index[id]
	return ok
}

// Children returns the child ids of id in input order.
func (n *Navigator) Children(id string) []string {
	return append([]string(nil), n.children[id]...)
}

// Roots returns the top-level ids in input order.
func (n *Navigator) Roots() []string {
	return append([]string(nil), n.roots...)
}

// Selected returns the selected node id ("" when nothing is selected).
func (n *Navigator) Selected() string { return n.state.SelectedNodeID }

// IsExpanded reports whether id is in the expansion set.
func (n *Navigator) IsExpanded(id string) bool { return n.state.Expanded[id] }

// Ancestors returns the parent chain of id, nearest first.
func (n *Navigator) Ancestors(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	for cur := id; ; {
		p, ok := n.parent[cur]
		if !ok || seen[p] {
			return out
		}
		seen[p] = true
		out = append(out, p)
		cur = p
	}
}

// ToggleExpand flips id's membership in the expansion set.
func (n *Navigator) ToggleExpand(id string) error {
	if !n.Has(id) {
		return fmt.Errorf("toggle %s: %w", id, ErrUnknownNode)
	}
	if n.state.Expanded[id] {
		delete(n.state.Expanded, id)
	} else {
		n.state.Expanded[id] = true
	}
	return nil
}

// ExpandAll puts every node in the expansion set.
func (n *Navigator) ExpandAll() {
	n.state.Expanded = make(map[string]bool, len(n.nodes))
	for _, node := range n.nodes {
		n.state.Expanded[node.ID] = true
	}
}

// CollapseAll empties the expansion set.
func (n *Navigator) CollapseAll() {
	n.state.Expanded = make(map[string]bool)
}

// ExpandToDepth expands every node shallower than depth (roots are depth 0).
func (n *Navigator) ExpandToDepth(depth int) {
	var walk func(id string, d int)
	walk = func(id string, d int) {
		if d >= depth {
			return
		}
		if len(n.children[id]) > 0 {
			n.state.Expanded[id] = true
		}
		for _, c := range n.children[id] {
			walk(c, d+1)
		}
	}
	for _, r := range n.roots {
		walk(r, 0)
	}
}

// SetSearchTerm updates the search term. Expansion is untouched.
func (n *Navigator) SetSearchTerm(term string) {
	n.state.SearchTerm = term
	n.invalidate()
}

// SetStatusFilter sets the status filter to FilterAll or a known status.
func (n *Navigator) SetStatusFilter(f string) error {
	if f == "" {
		f = FilterAll
	}
	if f != FilterAll && !model.Status(f).IsValid() {
		return fmt.Errorf("invalid status filter %q", f)
	}
	n.state.StatusFilter = f
	n.invalidate()
	return nil
}

// SetTypeFilter sets the type filter to FilterAll or a node type.
func (n *Navigator) SetTypeFilter(f string) {
	if f == "" {
		f = FilterAll
	}
	n.state.TypeFilter = f
	n.invalidate()
}

// FiltersActive reports whether any of search, status or type is narrowing.
func (n *Navigator) FiltersActive() bool {
	return strings.TrimSpace(n.state.SearchTerm) != "" ||
		n.state.StatusFilter != FilterAll ||
		n.state.TypeFilter != FilterAll
}

// Select makes id the selection and expands every ancestor of id so the
// node is reachable. id itself is not expanded.
func (n *Navigator) Select(id string) error {
	if !n.Has(id) {
		return fmt.Errorf("select %s: %w", id, ErrUnknownNode)
	}
	n.state.SelectedNodeID = id
	for _, a := range n.Ancestors(id) {
		n.state.Expanded[a] = true
	}
	return nil
}

// ClearSelection drops the selection.
func (n *Navigator) ClearSelection() {
	n.state.SelectedNodeID = ""
}

// MoveSelection selects the row delta steps from the current selection,
// clamped to the visible rows. With no selection the first row is chosen.
func (n *Navigator) MoveSelection(delta int) (string, bool) {
	rows := n.Rows()
	if len(rows) == 0 {
		return "", false
	}
	cur := -1
	for i, r := range rows {
		if r.Node.ID == n.state.SelectedNodeID {
			cur = i
			break
		}
	}
	next := 0
	if cur >= 0 {
		next = cur + delta
	}
	if next < 0 {
		next = 0
	}
	if next >= len(rows) {
		next = len(rows) - 1
	}
	id := rows[next].Node.ID
	_ = n.Select(id)
	return id, true
}

// Matches reports whether the node satisfies search, status and type on its own.
func (n *Navigator) Matches(id string) bool {
	if n.matchCache == nil {
		n.matchCache = make(map[string]bool, len(n.nodes))
	}
	if m, ok := n.matchCache[id]; ok {
		return m
	}
	node, ok := n.Node(id)
	m := ok && n.matchNode(node)
	n.matchCache[id] = m
	return m
}

func (n *Navigator) matchNode(node model.PlanNode) bool {
	if term := strings.ToLower(strings.TrimSpace(n.state.SearchTerm)); term != "" {
		if !strings.Contains(strings.ToLower(node.Title), term) &&
			!strings.Contains(strings.ToLower(node.Description), term) {
			return false
		}
	}
	if n.state.StatusFilter != FilterAll && string(node.Status) != n.state.StatusFilter {
		return false
	}
	if n.state.TypeFilter != FilterAll && string(node.NodeType) != n.state.TypeFilter {
		return false
	}
	return true
}

// IsVisible applies the visibility rule: a node is shown when it matches,
// or when a child (MatchShallow) or any descendant (MatchDeep) matches.
func (n *Navigator) IsVisible(id string) bool {
	if !n.Has(id) {
		return false
	}
	if n.Matches(id) {
		return true
	}
	if n.depth == MatchShallow {
		for _, c := range n.children[id] {
			if n.Matches(c) {
				return true
			}
		}
		return false
	}
	if n.visCache == nil {
		n.visCache = make(map[string]bool, len(n.nodes))
	}
	if v, ok := n.visCache[id]; ok {
		return v
	}
	n.visCache[id] = false
	for _, c := range n.children[id] {
		if n.IsVisible(c) {
			n.visCache[id] = true
			break
		}
	}
	return n.visCache[id]
}

// IsDimmed reports whether a visible node is shown only as context for a
// matching descendant.
func (n *Navigator) IsDimmed(id string) bool {
	return n.IsVisible(id) && !n.Matches(id)
}

// Rows flattens the tree depth first from every root. Children are visited
// only when their parent is expanded; hidden nodes are skipped with their
// subtrees.
func (n *Navigator) Rows() []Row {
	var rows []Row
	var walk func(id string, depth int, guides []bool, last bool)
	walk = func(id string, depth int, guides []bool, last bool) {
		node := n.nodes[n.index[id]]
		expanded := n.state.Expanded[id]
		rows = append(rows, Row{
			Node:        node,
			Depth:       depth,
			HasChildren: len(n.children[id]) > 0,
			Expanded:    expanded,
			Dimmed:      n.IsDimmed(id),
			Selected:    id == n.state.SelectedNodeID,
			Last:        last,
			Guides:      append([]bool(nil), guides...),
		})
		if !expanded {
			return
		}
		kids := n.visibleOf(n.children[id])
		childGuides := append(append([]bool(nil), guides...), last)
		for i, c := range kids {
			walk(c, depth+1, childGuides, i == len(kids)-1)
		}
	}
	roots := n.visibleOf(n.roots)
	for i, r := range roots {
		walk(r, 0, nil, i == len(roots)-1)
	}
	return rows
}

// VisibleIDs returns the ids of rendered rows in order.
func (n *Navigator) VisibleIDs() []string {
	rows := n.Rows()
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Node.ID
	}
	return ids
}

func (n *Navigator) visibleOf(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n.IsVisible(id) {
			out = append(out, id)
		}
	}
	return out
}
