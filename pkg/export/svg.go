package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// flowCSS animates dashed edges marked as animated.
const flowCSS = `.flow { animation: flow 1s linear infinite; }
@keyframes flow { to { stroke-dashoffset: -20; } }`

// errWriter remembers the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, nil
}

func ri(f float64) int { return int(math.Round(f)) }

// WriteSVG draws the layout as a standalone SVG document. Node boxes use
// their placed footprint and are tinted by status; edges follow their bend
// points with their style's stroke and dash pattern.
func WriteSVG(w io.Writer, plan *model.Plan, res layout.Result) error {
	ew := &errWriter{w: w}
	sc := newScene(plan, res)
	width, height := ri(sc.width), ri(sc.height)

	canvas := svg.New(ew)
	canvas.Start(width, height)
	canvas.Title(sc.title)
	canvas.Style("text/css", flowCSS)
	canvas.Rect(0, 0, width, height, "fill:"+cssRGBA(bgDark))

	drawHeaderSVG(canvas, sc, width)

	boxes := sc.boxes()
	canvas.Gid("edges")
	for _, e := range sc.edges {
		drawEdgeSVG(canvas, sc, e, boxes)
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range sc.nodes {
		drawNodeSVG(canvas, sc, n)
	}
	canvas.Gend()

	canvas.End()
	return ew.err
}

func drawHeaderSVG(canvas *svg.SVG, sc scene, width int) {
	canvas.Roundrect(12, 10, width-24, ri(headerHeight)-16, 10, 10,
		fmt.Sprintf("fill:%s;fill-opacity:0.9;stroke:%s;stroke-opacity:0.4", cssRGBA(bgHeader), cssRGBA(textAccent)))
	canvas.Text(28, 34, sc.title,
		fmt.Sprintf("fill:%s;font-size:16px;font-family:system-ui,sans-serif;font-weight:600", cssRGBA(textPrimary)))
	canvas.Text(28, 52, summaryLine(sc),
		fmt.Sprintf("fill:%s;font-size:12px;font-family:system-ui,sans-serif", cssRGBA(textSecondary)))
}

// summaryLine reads e.g. "7 nodes · 3 completed · 1 blocked".
func summaryLine(sc scene) string {
	line := fmt.Sprintf("%d nodes", len(sc.nodes))
	for _, s := range model.KnownStatuses {
		if c := sc.counts[s]; c > 0 && s != model.StatusNotStarted {
			line += fmt.Sprintf(" · %d %s", c, strings.ReplaceAll(string(s), "_", " "))
		}
	}
	return line
}

func drawEdgeSVG(canvas *svg.SVG, sc scene, e layout.EdgePlacement, boxes map[string]layout.NodePlacement) {
	pts := sc.edgePath(e, boxes)
	if len(pts) < 2 {
		return
	}
	xs := make([]int, len(pts))
	ys := make([]int, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = ri(p.X), ri(p.Y)
	}
	style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:%g", e.Style.Stroke, e.Style.StrokeWidth)
	if dash := e.Style.DashArray(); dash != "" {
		style += ";stroke-dasharray:" + dash
	}
	attrs := []string{style}
	if e.Style.Animated {
		attrs = append(attrs, `class="flow"`)
	}
	canvas.Polyline(xs, ys, attrs...)

	n := len(pts)
	ax, ay, bx, by, ok := arrowHead(pts[n-2].X, pts[n-2].Y, pts[n-1].X, pts[n-1].Y, 10, 5)
	if ok {
		canvas.Polygon(
			[]int{ri(pts[n-1].X), ri(ax), ri(bx)},
			[]int{ri(pts[n-1].Y), ri(ay), ri(by)},
			"fill:"+e.Style.Stroke)
	}
}

func drawNodeSVG(canvas *svg.SVG, sc scene, n sceneNode) {
	x, y := sc.pt(n.Position)
	w, h := n.Size.Width, n.Size.Height
	accent := StatusColor(n.Status)

	canvas.Group(`class="node"`)
	canvas.Roundrect(ri(x), ri(y), ri(w), ri(h), 8, 8,
		fmt.Sprintf("fill:%s;stroke:%s;stroke-width:2", cssRGBA(bgCard), cssRGBA(accent)))
	// Status stripe on the left edge.
	canvas.Rect(ri(x), ri(y)+8, 4, ri(h)-16, "fill:"+cssRGBA(accent))

	maxChars := int(w/8) - 2
	canvas.Text(ri(x+14), ri(y+h/2-4), truncate(n.Title, maxChars),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:system-ui,sans-serif;font-weight:600", cssRGBA(textPrimary)))
	canvas.Text(ri(x+14), ri(y+h/2+14), fmt.Sprintf("%s · %s", n.NodeType, statusLabel(n.Status)),
		fmt.Sprintf("fill:%s;font-size:11px;font-family:system-ui,sans-serif", cssRGBA(textSecondary)))
	canvas.Gend()
}
