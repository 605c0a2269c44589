// Package export renders a laid-out plan as SVG, PNG, JSON or Markdown and
// serves a live-reloading preview.
package export

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// Palette (dark theme)
var (
	bgDark   = color.RGBA{0x1e, 0x1e, 0x2e, 0xff}
	bgCard   = color.RGBA{0x2a, 0x2a, 0x3e, 0xff}
	bgHeader = color.RGBA{0x24, 0x24, 0x34, 0xff}

	statusNotStarted = color.RGBA{0x94, 0xa3, 0xb8, 0xff} // slate
	statusInProgress = color.RGBA{0x8b, 0xe9, 0xfd, 0xff} // cyan
	statusCompleted  = color.RGBA{0x50, 0xfa, 0x7b, 0xff} // green
	statusBlocked    = color.RGBA{0xff, 0x55, 0x55, 0xff} // red

	textPrimary   = color.RGBA{0xf8, 0xf8, 0xf2, 0xff}
	textSecondary = color.RGBA{0xa0, 0xa0, 0xb0, 0xff}
	textAccent    = color.RGBA{0xbd, 0x93, 0xf9, 0xff}
)

// Margin around the drawing, in layout units.
const Margin = 40.0

// headerHeight is the band above the graph holding title and counts.
const headerHeight = 64.0

// StatusColor returns the fill accent of a status.
func StatusColor(s model.Status) color.RGBA {
	switch s {
	case model.StatusInProgress:
		return statusInProgress
	case model.StatusCompleted:
		return statusCompleted
	case model.StatusBlocked:
		return statusBlocked
	default:
		return statusNotStarted
	}
}

// statusLabel turns not_started into "Not started".
func statusLabel(s model.Status) string {
	label := strings.ReplaceAll(string(s), "_", " ")
	if label == "" {
		return ""
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// parseHex reads #rrggbb; anything else yields grey.
func parseHex(s string) color.RGBA {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{0x9c, 0xa3, 0xaf, 0xff}
	}
	return color.RGBA{r, g, b, 0xff}
}

func cssRGBA(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// scene is the shared geometry of the SVG and PNG renderers.
type scene struct {
	title  string
	width  float64
	height float64
	// offset moves layout coordinates into the drawing below the header.
	dx, dy float64
	nodes  []sceneNode
	edges  []layout.EdgePlacement
	counts map[model.Status]int
}

type sceneNode struct {
	layout.NodePlacement
	Title  string
	Status model.Status
}

func newScene(plan *model.Plan, res layout.Result) scene {
	origin, size := res.Bounds()
	sc := scene{
		width:  size.Width + 2*Margin,
		height: size.Height + 2*Margin + headerHeight,
		dx:     Margin - origin.X,
		dy:     Margin + headerHeight - origin.Y,
		edges:  res.Edges,
		counts: make(map[model.Status]int),
	}
	if sc.width < 480 {
		sc.width = 480
	}
	var idx map[string]int
	if plan != nil {
		sc.title = plan.Title
		if sc.title == "" {
			sc.title = plan.ID
		}
		idx = plan.Index()
	}
	for _, p := range res.Nodes {
		n := sceneNode{NodePlacement: p, Title: p.ID}
		if i, ok := idx[p.ID]; ok {
			node := plan.Nodes[i]
			if node.Title != "" {
				n.Title = node.Title
			}
			n.Status = node.Status
		}
		sc.counts[n.Status]++
		sc.nodes = append(sc.nodes, n)
	}
	return sc
}

func (sc scene) pt(p model.Point) (float64, float64) {
	return p.X + sc.dx, p.Y + sc.dy
}

// truncate shortens s to n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// arrowHead returns the two back corners of an arrow ending at (x2, y2)
// coming from (x1, y1).
func arrowHead(x1, y1, x2, y2, length, width float64) (ax, ay, bx, by float64, ok bool) {
	dx, dy := x2-x1, y2-y1
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return 0, 0, 0, 0, false
	}
	dx /= dist
	dy /= dist
	px, py := -dy, dx
	ax = x2 - dx*length + px*width
	ay = y2 - dy*length + py*width
	bx = x2 - dx*length - px*width
	by = y2 - dy*length - py*width
	return ax, ay, bx, by, true
}

// clipToBox moves the end point (cx, cy), the center of a w×h box, back
// along the segment from (x1, y1) to where it crosses the box border.
func clipToBox(x1, y1, cx, cy, w, h float64) (float64, float64) {
	dx, dy := cx-x1, cy-y1
	if dx == 0 && dy == 0 {
		return cx, cy
	}
	t := 1.0
	if dx != 0 {
		t = math.Min(t, (w/2)/math.Abs(dx))
	}
	if dy != 0 {
		t = math.Min(t, (h/2)/math.Abs(dy))
	}
	return cx - dx*t, cy - dy*t
}

// edgePath returns the drawing coordinates of an edge with both ends moved
// to the borders of their boxes.
func (sc scene) edgePath(e layout.EdgePlacement, boxes map[string]layout.NodePlacement) []model.Point {
	if len(e.Points) < 2 {
		return nil
	}
	pts := make([]model.Point, len(e.Points))
	for i, p := range e.Points {
		x, y := sc.pt(p)
		pts[i] = model.Point{X: x, Y: y}
	}
	if src, ok := boxes[e.Source]; ok {
		x, y := clipToBox(pts[1].X, pts[1].Y, pts[0].X, pts[0].Y, src.Size.Width, src.Size.Height)
		pts[0] = model.Point{X: x, Y: y}
	}
	if dst, ok := boxes[e.Target]; ok {
		n := len(pts)
		x, y := clipToBox(pts[n-2].X, pts[n-2].Y, pts[n-1].X, pts[n-1].Y, dst.Size.Width, dst.Size.Height)
		pts[n-1] = model.Point{X: x, Y: y}
	}
	return pts
}

func (sc scene) boxes() map[string]layout.NodePlacement {
	m := make(map[string]layout.NodePlacement, len(sc.nodes))
	for _, n := range sc.nodes {
		m[n.ID] = n.NodePlacement
	}
	return m
}
