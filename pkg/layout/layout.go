// Package layout places plan nodes on a 2-D canvas.
//
// Placement is rank based: edges point from earlier ranks to later ranks,
// ranks advance along the configured direction and nodes within a rank are
// ordered to reduce edge crossings. Cycles are tolerated; the edges that close
// them are ignored for ranking and still reported for drawing. The same input
// always produces the same output.
package layout

import (
	"io"
	"log/slog"
	"math"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// NodePlacement is the computed placement of one node. Position is the
// top-left corner.
type NodePlacement struct {
	ID       string         `json:"id"`
	NodeType model.NodeType `json:"node_type,omitempty"`
	Position model.Point    `json:"position"`
	Size     model.Size     `json:"size"`
	Rank     int            `json:"rank"`
	Order    int            `json:"order"`
}

// Center returns the middle of the node's footprint.
func (p NodePlacement) Center() model.Point {
	return model.Point{X: p.Position.X + p.Size.Width/2, Y: p.Position.Y + p.Size.Height/2}
}

// Overlaps reports whether two footprints intersect with positive area.
func (p NodePlacement) Overlaps(o NodePlacement) bool {
	const eps = 1e-6
	return p.Position.X+p.Size.Width > o.Position.X+eps &&
		o.Position.X+o.Size.Width > p.Position.X+eps &&
		p.Position.Y+p.Size.Height > o.Position.Y+eps &&
		o.Position.Y+o.Size.Height > p.Position.Y+eps
}

// EdgePlacement is a styled edge. Points runs from the source center to the
// target center through any bend points.
type EdgePlacement struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Type     model.EdgeType `json:"type"`
	Style    EdgeStyle      `json:"style"`
	Reversed bool           `json:"reversed,omitempty"` // closes a cycle
	Points   []model.Point  `json:"points"`
}

// Result is the output of a layout pass. Nodes keep input order.
type Result struct {
	Direction Direction       `json:"direction"`
	Nodes     []NodePlacement `json:"nodes"`
	Edges     []EdgePlacement `json:"edges"`
}

// Position returns the top-left corner of a node.
func (r Result) Position(id string) (model.Point, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n.Position, true
		}
	}
	return model.Point{}, false
}

// Node returns the placement of a node.
func (r Result) Node(id string) (NodePlacement, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodePlacement{}, false
}

// Bounds returns the top-left corner and size of the box enclosing all
// nodes. An empty result has zero bounds.
func (r Result) Bounds() (model.Point, model.Size) {
	if len(r.Nodes) == 0 {
		return model.Point{}, model.Size{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range r.Nodes {
		minX = math.Min(minX, n.Position.X)
		minY = math.Min(minY, n.Position.Y)
		maxX = math.Max(maxX, n.Position.X+n.Size.Width)
		maxY = math.Max(maxY, n.Position.Y+n.Size.Height)
	}
	return model.Point{X: minX, Y: minY}, model.Size{Width: maxX - minX, Height: maxY - minY}
}

// Clone returns a deep copy of the result.
func (r Result) Clone() Result {
	out := Result{Direction: r.Direction}
	out.Nodes = append([]NodePlacement(nil), r.Nodes...)
	out.Edges = make([]EdgePlacement, len(r.Edges))
	for i, e := range r.Edges {
		e.Points = append([]model.Point(nil), e.Points...)
		e.Style.Dash = append([]float64(nil), e.Style.Dash...)
		out.Edges[i] = e
	}
	return out
}

// Engine computes layouts with fixed options.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// New creates an engine. Zero or invalid options fall back to defaults; a nil
// logger discards output.
func New(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{opts: opts.normalized(), logger: logger}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Layout is a convenience wrapper around New(opts, nil).Layout.
func Layout(nodes []model.PlanNode, edges []model.Edge, opts Options) Result {
	return New(opts, nil).Layout(nodes, edges)
}

// Layout places nodes and styles edges. Edges naming unknown nodes and
// duplicate node ids are skipped.
func (e *Engine) Layout(nodes []model.PlanNode, edges []model.Edge) Result {
	opts := e.opts
	res := Result{Direction: opts.Direction, Nodes: []NodePlacement{}, Edges: []EdgePlacement{}}

	g := buildGraph(nodes, edges, opts.Direction, e.logger)
	if len(g.verts) == 0 {
		return res
	}
	if back := g.markBackEdges(); back > 0 {
		e.logger.Debug("layout: cycle edges ignored for ranking", "count", back)
	}
	g.assignRanks()
	g.splitLongEdges()
	layers := g.orderLayers()
	g.assignPositions(layers, opts.NodeSpacing)
	rankCenters := g.rankOffsets(layers, opts.RankSpacing)

	centers := make([]model.Point, len(g.verts))
	for i, v := range g.verts {
		centers[i] = toCanvas(opts.Direction, v.pos, rankCenters[v.rank])
	}

	realN := g.realCount()
	minX, minY := math.Inf(1), math.Inf(1)
	for i := 0; i < realN; i++ {
		v := g.verts[i]
		minX = math.Min(minX, centers[i].X-v.size.Width/2)
		minY = math.Min(minY, centers[i].Y-v.size.Height/2)
	}
	shift := func(p model.Point) model.Point {
		return model.Point{X: p.X - minX, Y: p.Y - minY}
	}

	nodeType := make(map[string]model.NodeType, len(nodes))
	for _, n := range nodes {
		if _, ok := nodeType[n.ID]; !ok {
			nodeType[n.ID] = n.NodeType
		}
	}

	res.Nodes = make([]NodePlacement, 0, realN)
	for i := 0; i < realN; i++ {
		v := g.verts[i]
		c := shift(centers[i])
		res.Nodes = append(res.Nodes, NodePlacement{
			ID:       v.id,
			NodeType: nodeType[v.id],
			Position: model.Point{X: c.X - v.size.Width/2, Y: c.Y - v.size.Height/2},
			Size:     v.size,
			Rank:     v.rank,
			Order:    v.order,
		})
	}

	res.Edges = make([]EdgePlacement, 0, len(g.arcs))
	for _, a := range g.arcs {
		pts := make([]model.Point, 0, len(a.chain)+2)
		pts = append(pts, shift(centers[a.from]))
		for _, v := range a.chain {
			pts = append(pts, shift(centers[v]))
		}
		pts = append(pts, shift(centers[a.to]))
		res.Edges = append(res.Edges, EdgePlacement{
			Source:   g.verts[a.from].id,
			Target:   g.verts[a.to].id,
			Type:     a.typ,
			Style:    StyleFor(a.typ),
			Reversed: a.back,
			Points:   pts,
		})
	}
	return res
}

// toCanvas maps (in-rank, rank-axis) coordinates to canvas x/y.
func toCanvas(d Direction, along, across float64) model.Point {
	switch d {
	case BottomToTop:
		return model.Point{X: along, Y: -across}
	case LeftToRight:
		return model.Point{X: across, Y: along}
	case RightToLeft:
		return model.Point{X: -across, Y: along}
	default:
		return model.Point{X: along, Y: across}
	}
}
