package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewport"
)

// One terminal cell covers this many canvas units. The graph canvas reported
// to the synchronizer is the panel size in cells times these factors.
const (
	CellWidth  = 10.0
	CellHeight = 20.0
)

// CanvasSize converts a panel size in cells to canvas units.
func CanvasSize(cols, rows int) model.Size {
	return model.Size{Width: float64(cols) * CellWidth, Height: float64(rows) * CellHeight}
}

type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellEdge
	cellNode
	cellSelected
	cellLabel
	cellSkip // right half of a wide rune
)

type cell struct {
	ch     rune
	kind   cellKind
	status model.Status
}

// GraphView draws the merged layout as boxes and edge traces on a cell grid.
type GraphView struct {
	theme  Theme
	width  int
	height int
}

// NewGraphView creates a graph view with theme.
func NewGraphView(theme Theme) GraphView {
	return GraphView{theme: theme}
}

// SetSize updates the available cells.
func (g *GraphView) SetSize(width, height int) {
	g.width = width
	g.height = height
}

type grid struct {
	w, h  int
	cells [][]cell
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h, cells: make([][]cell, h)}
	for y := range g.cells {
		g.cells[y] = make([]cell, w)
		for x := range g.cells[y] {
			g.cells[y][x] = cell{ch: ' '}
		}
	}
	return g
}

func (g *grid) set(x, y int, c cell) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return
	}
	g.cells[y][x] = c
}

func (g *grid) get(x, y int) cell {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return cell{}
	}
	return g.cells[y][x]
}

// toCell maps a canvas point to a cell.
func toCell(p model.Point) (int, int) {
	return int(math.Floor(p.X / CellWidth)), int(math.Floor(p.Y / CellHeight))
}

// View renders res under transform. Node titles and statuses come from plan.
func (g *GraphView) View(plan *model.Plan, res layout.Result, tr viewport.Transform, selected string) string {
	if g.width <= 0 || g.height <= 0 {
		return ""
	}
	if len(res.Nodes) == 0 {
		return g.theme.Renderer.NewStyle().Foreground(g.theme.Muted).Render("Nothing to draw.")
	}
	gr := newGrid(g.width, g.height)

	for _, e := range res.Edges {
		for i := 1; i < len(e.Points); i++ {
			ax, ay := toCell(tr.Apply(e.Points[i-1]))
			bx, by := toCell(tr.Apply(e.Points[i]))
			gr.line(ax, ay, bx, by, edgeRune(e.Type))
		}
	}

	var idx map[string]int
	if plan != nil {
		idx = plan.Index()
	}
	var sel *layout.NodePlacement
	for i := range res.Nodes {
		p := res.Nodes[i]
		if p.ID == selected {
			sel = &res.Nodes[i]
			continue
		}
		gr.box(p, tr, nodeInfo(plan, idx, p.ID), false)
	}
	// Drawn last so it stays on top.
	if sel != nil {
		gr.box(*sel, tr, nodeInfo(plan, idx, sel.ID), true)
	}

	return g.render(gr)
}

// NodeAt returns the node drawn at cell (col, row). The cell center is mapped
// back to graph units; nodes too small for a frame are hit on their glyph.
func (g *GraphView) NodeAt(res layout.Result, tr viewport.Transform, col, row int) (string, bool) {
	if col < 0 || row < 0 || col >= g.width || row >= g.height {
		return "", false
	}
	w := tr.Invert(model.Point{X: (float64(col) + 0.5) * CellWidth, Y: (float64(row) + 0.5) * CellHeight})
	for i := len(res.Nodes) - 1; i >= 0; i-- {
		p := res.Nodes[i]
		if w.X >= p.Position.X && w.X <= p.Position.X+p.Size.Width &&
			w.Y >= p.Position.Y && w.Y <= p.Position.Y+p.Size.Height {
			return p.ID, true
		}
	}
	for i := len(res.Nodes) - 1; i >= 0; i-- {
		p := res.Nodes[i]
		if cx, cy := toCell(tr.Apply(p.Center())); cx == col && cy == row {
			return p.ID, true
		}
	}
	return "", false
}

func nodeInfo(plan *model.Plan, idx map[string]int, id string) model.PlanNode {
	if i, ok := idx[id]; ok {
		return plan.Nodes[i]
	}
	return model.PlanNode{ID: id, Title: id}
}

func edgeRune(t model.EdgeType) rune {
	switch t {
	case model.EdgeDependency:
		return '┄'
	case model.EdgeReference:
		return '·'
	default:
		return '∙'
	}
}

// line traces a Bresenham line without overwriting nodes.
func (g *grid) line(x0, y0, x1, y1 int, ch rune) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for steps := 0; steps <= dx-dy; steps++ {
		if c := g.get(x0, y0); c.kind == cellEmpty {
			g.set(x0, y0, cell{ch: ch, kind: cellEdge})
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (g *grid) box(p layout.NodePlacement, tr viewport.Transform, n model.PlanNode, selected bool) {
	x0, y0 := toCell(tr.Apply(p.Position))
	x1, y1 := toCell(tr.Apply(model.Point{X: p.Position.X + p.Size.Width, Y: p.Position.Y + p.Size.Height}))
	kind := cellNode
	if selected {
		kind = cellSelected
	}
	// Too small for a frame: a single status glyph.
	if x1-x0 < 3 || y1-y0 < 2 {
		cx, cy := toCell(tr.Apply(p.Center()))
		g.set(cx, cy, cell{ch: []rune(StatusIcon(n.Status))[0], kind: kind, status: n.Status})
		return
	}
	x1--
	y1--

	h, v, tl, trc, bl, br := '─', '│', '╭', '╮', '╰', '╯'
	if selected {
		h, v, tl, trc, bl, br = '═', '║', '╔', '╗', '╚', '╝'
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			ch := ' '
			switch {
			case y == y0 && x == x0:
				ch = tl
			case y == y0 && x == x1:
				ch = trc
			case y == y1 && x == x0:
				ch = bl
			case y == y1 && x == x1:
				ch = br
			case y == y0 || y == y1:
				ch = h
			case x == x0 || x == x1:
				ch = v
			}
			g.set(x, y, cell{ch: ch, kind: kind, status: n.Status})
		}
	}

	inner := x1 - x0 - 1
	if inner < 1 || y1-y0 < 2 {
		return
	}
	label := StatusIcon(n.Status) + " " + n.Title
	label = runewidth.Truncate(label, inner, "…")
	x := x0 + 1
	y := y0 + (y1-y0)/2
	for _, r := range label {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		g.set(x, y, cell{ch: r, kind: cellLabel, status: n.Status})
		if w == 2 {
			g.set(x+1, y, cell{kind: cellSkip})
		}
		x += w
	}
}

func (g *GraphView) styleFor(c cell) lipgloss.Style {
	r := g.theme.Renderer
	switch c.kind {
	case cellEdge:
		return r.NewStyle().Foreground(g.theme.Muted)
	case cellNode:
		return r.NewStyle().Foreground(g.theme.StatusColor(c.status))
	case cellSelected:
		return r.NewStyle().Foreground(g.theme.Primary).Bold(true)
	case cellLabel:
		return r.NewStyle().Foreground(g.theme.Text)
	default:
		return r.NewStyle()
	}
}

// render joins runs of equally styled cells.
func (g *GraphView) render(gr *grid) string {
	lines := make([]string, gr.h)
	for y := 0; y < gr.h; y++ {
		var sb strings.Builder
		var run strings.Builder
		var runKey cell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runKey.kind == cellEmpty {
				sb.WriteString(run.String())
			} else {
				sb.WriteString(g.styleFor(runKey).Render(run.String()))
			}
			run.Reset()
		}
		for x := 0; x < gr.w; x++ {
			c := gr.cells[y][x]
			if c.kind == cellSkip {
				continue
			}
			key := cell{kind: c.kind, status: c.status}
			if key != runKey {
				flush()
				runKey = key
			}
			run.WriteRune(c.ch)
		}
		flush()
		lines[y] = strings.TrimRight(sb.String(), " ")
	}
	return strings.Join(lines, "\n")
}
