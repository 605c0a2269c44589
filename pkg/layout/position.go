package layout

const positionRounds = 8

// rankOffsets returns the center of every rank on the rank axis. Each rank
// is as deep as its deepest vertex, followed by rankSpacing.
func (g *workGraph) rankOffsets(layers [][]int, rankSpacing float64) []float64 {
	centers := make([]float64, len(layers))
	cursor := 0.0
	for r, layer := range layers {
		depth := 0.0
		for _, v := range layer {
			if a := g.verts[v].across; a > depth {
				depth = a
			}
		}
		centers[r] = cursor + depth/2
		cursor += depth + rankSpacing
	}
	return centers
}

// separation is the minimum center distance between two neighbours in a rank.
func (g *workGraph) separation(a, b int, nodeSpacing float64) float64 {
	va, vb := g.verts[a], g.verts[b]
	gap := nodeSpacing
	if va.virtual || vb.virtual {
		gap = nodeSpacing / 2
	}
	return (va.along+vb.along)/2 + gap
}

// assignPositions places vertices on the in-rank axis. Each layer is first
// packed tightly, then repeatedly pulled toward the mean position of its
// neighbours in the adjacent layer while keeping the minimum separation.
func (g *workGraph) assignPositions(layers [][]int, nodeSpacing float64) {
	down, up := g.segments()

	for _, layer := range layers {
		x := 0.0
		for i, v := range layer {
			if i > 0 {
				x += g.separation(layer[i-1], v, nodeSpacing)
			}
			g.verts[v].pos = x
		}
	}

	for round := 0; round < positionRounds; round++ {
		if round%2 == 0 {
			for r := 1; r < len(layers); r++ {
				g.settleLayer(layers[r], up, nodeSpacing)
			}
		} else {
			for r := len(layers) - 2; r >= 0; r-- {
				g.settleLayer(layers[r], down, nodeSpacing)
			}
		}
	}
}

// settleLayer moves the vertices of one layer toward their desired positions.
// Two feasible placements are computed (pushing right, pushing left) and
// averaged; the average of two placements that satisfy the separation
// constraints satisfies them too.
func (g *workGraph) settleLayer(layer []int, neighbours [][]int, nodeSpacing float64) {
	n := len(layer)
	if n == 0 {
		return
	}
	desired := make([]float64, n)
	for i, v := range layer {
		adj := neighbours[v]
		if len(adj) == 0 {
			desired[i] = g.verts[v].pos
			continue
		}
		sum := 0.0
		for _, w := range adj {
			sum += g.verts[w].pos
		}
		desired[i] = sum / float64(len(adj))
	}

	right := make([]float64, n)
	right[0] = desired[0]
	for i := 1; i < n; i++ {
		lo := right[i-1] + g.separation(layer[i-1], layer[i], nodeSpacing)
		right[i] = desired[i]
		if right[i] < lo {
			right[i] = lo
		}
	}
	left := make([]float64, n)
	left[n-1] = desired[n-1]
	for i := n - 2; i >= 0; i-- {
		hi := left[i+1] - g.separation(layer[i], layer[i+1], nodeSpacing)
		left[i] = desired[i]
		if left[i] > hi {
			left[i] = hi
		}
	}
	for i, v := range layer {
		g.verts[v].pos = (right[i] + left[i]) / 2
	}
}
