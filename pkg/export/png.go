package export

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// MaxPNGSide caps the rendered image so huge plans do not exhaust memory.
const MaxPNGSide = 8192

// WritePNG rasterizes the same drawing as WriteSVG. scale multiplies every
// layout unit; values <= 0 mean 1. The scale is reduced when the image would
// exceed MaxPNGSide.
func WritePNG(w io.Writer, plan *model.Plan, res layout.Result, scale float64) error {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}
	sc := newScene(plan, res)
	if side := math.Max(sc.width, sc.height) * scale; side > MaxPNGSide {
		scale = MaxPNGSide / math.Max(sc.width, sc.height)
	}
	width := int(math.Ceil(sc.width * scale))
	height := int(math.Ceil(sc.height * scale))

	dc := gg.NewContext(width, height)
	dc.SetColor(bgDark)
	dc.Clear()
	dc.Scale(scale, scale)

	drawHeaderPNG(dc, sc)

	boxes := sc.boxes()
	for _, e := range sc.edges {
		drawEdgePNG(dc, sc, e, boxes)
	}
	for _, n := range sc.nodes {
		drawNodePNG(dc, sc, n)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func drawHeaderPNG(dc *gg.Context, sc scene) {
	dc.SetColor(color.RGBA{bgHeader.R, bgHeader.G, bgHeader.B, 0xe0})
	dc.DrawRoundedRectangle(12, 10, sc.width-24, headerHeight-16, 10)
	dc.Fill()

	dc.SetLineWidth(1)
	dc.SetColor(color.RGBA{textAccent.R, textAccent.G, textAccent.B, 0x60})
	dc.DrawRoundedRectangle(12, 10, sc.width-24, headerHeight-16, 10)
	dc.Stroke()

	dc.SetColor(textPrimary)
	dc.DrawStringAnchored(sc.title, 28, 28, 0, 0.5)
	dc.SetColor(textSecondary)
	dc.DrawStringAnchored(summaryLine(sc), 28, 46, 0, 0.5)
}

func drawEdgePNG(dc *gg.Context, sc scene, e layout.EdgePlacement, boxes map[string]layout.NodePlacement) {
	pts := sc.edgePath(e, boxes)
	if len(pts) < 2 {
		return
	}
	c := parseHex(e.Style.Stroke)
	dc.SetColor(c)
	dc.SetLineWidth(e.Style.StrokeWidth)
	if len(e.Style.Dash) > 0 {
		dc.SetDash(e.Style.Dash...)
	} else {
		dc.SetDash()
	}
	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.Stroke()
	dc.SetDash()

	n := len(pts)
	ax, ay, bx, by, ok := arrowHead(pts[n-2].X, pts[n-2].Y, pts[n-1].X, pts[n-1].Y, 10, 5)
	if !ok {
		return
	}
	dc.MoveTo(pts[n-1].X, pts[n-1].Y)
	dc.LineTo(ax, ay)
	dc.LineTo(bx, by)
	dc.ClosePath()
	dc.Fill()
}

func drawNodePNG(dc *gg.Context, sc scene, n sceneNode) {
	x, y := sc.pt(n.Position)
	w, h := n.Size.Width, n.Size.Height
	accent := StatusColor(n.Status)

	// Drop shadow
	dc.SetColor(color.RGBA{0, 0, 0, 0x40})
	dc.DrawRoundedRectangle(x+3, y+3, w, h, 8)
	dc.Fill()

	dc.SetColor(bgCard)
	dc.DrawRoundedRectangle(x, y, w, h, 8)
	dc.Fill()

	dc.SetLineWidth(2)
	dc.SetColor(accent)
	dc.DrawRoundedRectangle(x, y, w, h, 8)
	dc.Stroke()

	dc.DrawRectangle(x, y+8, 4, h-16)
	dc.Fill()

	dc.SetColor(textPrimary)
	dc.DrawStringAnchored(truncate(n.Title, int(w/8)-2), x+14, y+h/2-6, 0, 0.5)
	dc.SetColor(textSecondary)
	dc.DrawStringAnchored(fmt.Sprintf("%s · %s", n.NodeType, statusLabel(n.Status)), x+14, y+h/2+12, 0, 0.5)
}
