package layout

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// rankingGraph builds the acyclic constraint graph (back edges removed).
func (g *workGraph) rankingGraph() *simple.DirectedGraph {
	dg := simple.NewDirectedGraph()
	for _, v := range g.verts {
		dg.AddNode(simple.Node(int64(v.index)))
	}
	for _, a := range g.arcs {
		if a.back || a.from == a.to {
			continue
		}
		dg.SetEdge(dg.NewEdge(simple.Node(int64(a.from)), simple.Node(int64(a.to))))
	}
	return dg
}

// byID orders nodes by id; gonum's node sets are map-backed.
func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

// topoOrder returns vertex indices in a stable topological order. If the
// graph still has a cycle (it should not) the input order is returned.
func topoOrder(dg *simple.DirectedGraph, n int) []int {
	sorted, err := topo.SortStabilized(dg, byID)
	order := make([]int, 0, n)
	if err != nil {
		for i := 0; i < n; i++ {
			order = append(order, i)
		}
		return order
	}
	for _, node := range sorted {
		order = append(order, int(node.ID()))
	}
	return order
}

// assignRanks gives every real vertex a rank such that each non-back edge
// points to a strictly later rank. It starts from longest-path ranking and
// then shifts vertices inside their feasible window toward the side with more
// incident edges, which shortens total edge length.
func (g *workGraph) assignRanks() {
	n := len(g.verts)
	if n == 0 {
		return
	}
	dg := g.rankingGraph()
	order := topoOrder(dg, n)

	preds := make([][]int, n)
	succs := make([][]int, n)
	for _, v := range order {
		for _, p := range graph.NodesOf(dg.To(int64(v))) {
			preds[v] = append(preds[v], int(p.ID()))
		}
		for _, s := range graph.NodesOf(dg.From(int64(v))) {
			succs[v] = append(succs[v], int(s.ID()))
		}
	}

	rank := make([]int, n)
	for _, v := range order {
		r := 0
		for _, p := range preds[v] {
			if rank[p]+1 > r {
				r = rank[p] + 1
			}
		}
		rank[v] = r
	}

	window := func(v int) (lo, hi int, hasLo, hasHi bool) {
		for _, p := range preds[v] {
			if !hasLo || rank[p]+1 > lo {
				lo, hasLo = rank[p]+1, true
			}
		}
		for _, s := range succs[v] {
			if !hasHi || rank[s]-1 < hi {
				hi, hasHi = rank[s]-1, true
			}
		}
		return
	}

	for iter := 0; iter < n; iter++ {
		changed := false
		for i := len(order) - 1; i >= 0; i-- {
			v := order[i]
			lo, hi, hasLo, hasHi := window(v)
			in, out := len(preds[v]), len(succs[v])
			switch {
			case out > in && hasHi && rank[v] < hi:
				rank[v] = hi
				changed = true
			case in > out && hasLo && rank[v] > lo:
				rank[v] = lo
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	minRank := rank[0]
	for _, r := range rank {
		if r < minRank {
			minRank = r
		}
	}
	for i, v := range g.verts {
		v.rank = rank[i] - minRank
	}
}

// splitLongEdges inserts a virtual vertex on every intermediate rank of a
// non-back edge that spans more than one rank.
func (g *workGraph) splitLongEdges() {
	for _, a := range g.arcs {
		if a.back || a.from == a.to {
			continue
		}
		from, to := g.verts[a.from], g.verts[a.to]
		for r := from.rank + 1; r < to.rank; r++ {
			v := &vertex{index: len(g.verts), virtual: true, rank: r}
			g.verts = append(g.verts, v)
			a.chain = append(a.chain, v.index)
		}
	}
}

// segments returns, for every vertex, its neighbours on the next rank and
// on the previous rank along non-back edges.
func (g *workGraph) segments() (down, up [][]int) {
	down = make([][]int, len(g.verts))
	up = make([][]int, len(g.verts))
	for _, a := range g.arcs {
		if a.back || a.from == a.to {
			continue
		}
		path := make([]int, 0, len(a.chain)+2)
		path = append(path, a.from)
		path = append(path, a.chain...)
		path = append(path, a.to)
		for i := 0; i+1 < len(path); i++ {
			down[path[i]] = append(down[path[i]], path[i+1])
			up[path[i+1]] = append(up[path[i+1]], path[i])
		}
	}
	return down, up
}

func (g *workGraph) maxRank() int {
	m := 0
	for _, v := range g.verts {
		if v.rank > m {
			m = v.rank
		}
	}
	return m
}
