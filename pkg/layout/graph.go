package layout

import (
	"log/slog"
	"sort"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// vertex is a node of the working graph. Virtual vertices stand in for the
// intermediate ranks of long edges.
type vertex struct {
	id      string
	index   int // position in the input (real vertices) or creation order
	virtual bool
	seed    int        // DFS start priority: 0 root type, 1 parentless, 2 other
	size    model.Size // real footprint
	along   float64    // extent along the in-rank axis
	across  float64    // extent along the rank axis

	rank  int
	order int
	pos   float64 // center on the in-rank axis
}

// arc is an accepted input edge.
type arc struct {
	from, to int
	typ      model.EdgeType
	back     bool  // closes a cycle; ignored for ranking
	chain    []int // virtual vertices between from and to, in rank order
}

type workGraph struct {
	verts []*vertex
	arcs  []*arc
	byID  map[string]int
	out   [][]int // arc indices leaving each real vertex, input order
}

// buildGraph indexes nodes and edges. Duplicate node ids and edges that name
// unknown nodes are skipped.
func buildGraph(nodes []model.PlanNode, edges []model.Edge, dir Direction, logger *slog.Logger) *workGraph {
	g := &workGraph{byID: make(map[string]int, len(nodes))}
	for _, n := range nodes {
		if _, dup := g.byID[n.ID]; dup {
			logger.Warn("layout: duplicate node id skipped", "node", n.ID)
			continue
		}
		size := Footprint(n.NodeType)
		if !n.NodeType.IsKnown() {
			logger.Debug("layout: unknown node type, using default footprint", "node", n.ID, "type", n.NodeType)
		}
		v := &vertex{id: n.ID, index: len(g.verts), size: size, seed: 2}
		switch {
		case n.IsRoot():
			v.seed = 0
		case !n.HasParent():
			v.seed = 1
		}
		if dir.horizontal() {
			v.along, v.across = size.Height, size.Width
		} else {
			v.along, v.across = size.Width, size.Height
		}
		g.byID[n.ID] = v.index
		g.verts = append(g.verts, v)
	}
	g.out = make([][]int, len(g.verts))
	for _, e := range edges {
		from, ok1 := g.byID[e.Source]
		to, ok2 := g.byID[e.Target]
		if !ok1 || !ok2 {
			logger.Warn("layout: edge references unknown node", "source", e.Source, "target", e.Target)
			continue
		}
		g.out[from] = append(g.out[from], len(g.arcs))
		g.arcs = append(g.arcs, &arc{from: from, to: to, typ: e.Type})
	}
	return g
}

// markBackEdges runs a DFS and flags each edge that reaches a vertex still
// on the stack. Removing the flagged edges leaves the graph acyclic. Roots
// start the search, then parentless vertices, then the rest in input order;
// hierarchical arcs are followed before other arcs, so a cycle through the
// hierarchy is closed by a non-hierarchical edge. Self loops are always
// flagged.
func (g *workGraph) markBackEdges() int {
	const (
		white = iota
		grey
		black
	)
	state := make([]int, len(g.verts))
	count := 0

	var visit func(v int)
	follow := func(v int, hierarchical bool) {
		for _, ai := range g.out[v] {
			a := g.arcs[ai]
			if (a.typ == model.EdgeHierarchical) != hierarchical {
				continue
			}
			switch state[a.to] {
			case grey:
				a.back = true
				count++
			case white:
				visit(a.to)
			}
		}
	}
	visit = func(v int) {
		state[v] = grey
		follow(v, true)
		follow(v, false)
		state[v] = black
	}

	order := make([]int, len(g.verts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return g.verts[order[i]].seed < g.verts[order[j]].seed
	})
	for _, v := range order {
		if state[v] == white {
			visit(v)
		}
	}
	return count
}

func (g *workGraph) realCount() int {
	n := 0
	for _, v := range g.verts {
		if !v.virtual {
			n++
		}
	}
	return n
}
