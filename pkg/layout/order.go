package layout

import "sort"

const (
	maxOrderSweeps      = 24
	maxSweepsNoProgress = 4
)

// initialLayers seeds the in-rank order with a DFS from every vertex sorted by
// (rank, index), so connected vertices start out near each other.
func (g *workGraph) initialLayers(down [][]int) [][]int {
	layers := make([][]int, g.maxRank()+1)
	starts := make([]int, len(g.verts))
	for i := range starts {
		starts[i] = i
	}
	sort.SliceStable(starts, func(i, j int) bool {
		return g.verts[starts[i]].rank < g.verts[starts[j]].rank
	})

	visited := make([]bool, len(g.verts))
	var visit func(v int)
	visit = func(v int) {
		if visited[v] {
			return
		}
		visited[v] = true
		r := g.verts[v].rank
		layers[r] = append(layers[r], v)
		for _, w := range down[v] {
			visit(w)
		}
	}
	for _, v := range starts {
		visit(v)
	}
	return layers
}

func (g *workGraph) applyOrder(layers [][]int) {
	for _, layer := range layers {
		for i, v := range layer {
			g.verts[v].order = i
		}
	}
}

func copyLayers(layers [][]int) [][]int {
	out := make([][]int, len(layers))
	for i, l := range layers {
		out[i] = append([]int(nil), l...)
	}
	return out
}

// orderLayers reduces edge crossings with alternating barycenter sweeps and
// keeps the best ordering seen.
func (g *workGraph) orderLayers() [][]int {
	down, up := g.segments()
	layers := g.initialLayers(down)
	g.applyOrder(layers)

	best := copyLayers(layers)
	bestCrossings := g.crossings(layers, down)
	stale := 0

	for sweep := 0; sweep < maxOrderSweeps && bestCrossings > 0; sweep++ {
		if sweep%2 == 0 {
			for r := 1; r < len(layers); r++ {
				g.reorderByBarycenter(layers[r], up)
			}
		} else {
			for r := len(layers) - 2; r >= 0; r-- {
				g.reorderByBarycenter(layers[r], down)
			}
		}

		c := g.crossings(layers, down)
		if c < bestCrossings {
			bestCrossings = c
			best = copyLayers(layers)
			stale = 0
		} else {
			stale++
			if stale >= maxSweepsNoProgress {
				break
			}
		}
	}

	g.applyOrder(best)
	return best
}

// reorderByBarycenter sorts one layer by the mean order of each vertex's
// neighbours in the adjacent (fixed) layer. Vertices without neighbours keep
// their current slot as their weight.
func (g *workGraph) reorderByBarycenter(layer []int, neighbours [][]int) {
	weight := make(map[int]float64, len(layer))
	for _, v := range layer {
		adj := neighbours[v]
		if len(adj) == 0 {
			weight[v] = float64(g.verts[v].order)
			continue
		}
		sum := 0.0
		for _, w := range adj {
			sum += float64(g.verts[w].order)
		}
		weight[v] = sum / float64(len(adj))
	}
	sort.SliceStable(layer, func(i, j int) bool {
		return weight[layer[i]] < weight[layer[j]]
	})
	for i, v := range layer {
		g.verts[v].order = i
	}
}

// crossings counts pairwise segment crossings between every pair of adjacent
// layers using the current order of each vertex.
func (g *workGraph) crossings(layers [][]int, down [][]int) int {
	total := 0
	for r := 0; r+1 < len(layers); r++ {
		pos := make(map[int]int, len(layers[r]))
		for i, v := range layers[r] {
			pos[v] = i
		}
		next := make(map[int]int, len(layers[r+1]))
		for i, v := range layers[r+1] {
			next[v] = i
		}
		type seg struct{ a, b int }
		var segs []seg
		for _, v := range layers[r] {
			for _, w := range down[v] {
				if j, ok := next[w]; ok {
					segs = append(segs, seg{pos[v], j})
				}
			}
		}
		sort.Slice(segs, func(i, j int) bool {
			if segs[i].a != segs[j].a {
				return segs[i].a < segs[j].a
			}
			return segs[i].b < segs[j].b
		})
		// Inversions in the lower endpoints, counted with a Fenwick tree.
		tree := make([]int, len(layers[r+1])+1)
		seen := 0
		for _, s := range segs {
			greater := seen
			for i := s.b + 1; i > 0; i -= i & -i {
				greater -= tree[i]
			}
			total += greater
			for i := s.b + 1; i < len(tree); i += i & -i {
				tree[i]++
			}
			seen++
		}
	}
	return total
}
