package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

// MarkdownRenderer renders the detail panel. It rebuilds its glamour
// renderer only when the width changes.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	theme    *Theme
	useTheme bool
	isDark   bool
}

// NewMarkdownRenderer uses glamour's stock style for the terminal background.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	mr := &MarkdownRenderer{width: width, isDark: lipgloss.HasDarkBackground()}
	mr.build()
	return mr
}

// NewMarkdownRendererWithTheme derives the glamour style from theme.
func NewMarkdownRendererWithTheme(width int, theme Theme) *MarkdownRenderer {
	mr := &MarkdownRenderer{
		width:    width,
		theme:    &theme,
		useTheme: true,
		isDark:   theme.Renderer.HasDarkBackground(),
	}
	mr.build()
	return mr
}

func (mr *MarkdownRenderer) build() {
	var opt glamour.TermRendererOption
	switch {
	case mr.useTheme && mr.theme != nil:
		opt = glamour.WithStyles(buildStyleFromTheme(*mr.theme, mr.isDark))
	case mr.isDark:
		opt = glamour.WithStandardStyle(styles.DarkStyle)
	default:
		opt = glamour.WithStandardStyle(styles.LightStyle)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(mr.width))
	if err != nil {
		mr.renderer = nil
		return
	}
	mr.renderer = r
}

// Render returns md unchanged when no renderer could be built.
func (mr *MarkdownRenderer) Render(md string) (string, error) {
	if mr.renderer == nil {
		return md, nil
	}
	out, err := mr.renderer.Render(md)
	if err != nil {
		return md, err
	}
	return strings.TrimRight(out, "\n "), nil
}

// SetWidth rebuilds the renderer for a new positive width.
func (mr *MarkdownRenderer) SetWidth(width int) {
	if width <= 0 || width == mr.width {
		return
	}
	mr.width = width
	mr.build()
}

// SetWidthWithTheme switches to theme and width.
func (mr *MarkdownRenderer) SetWidthWithTheme(width int, theme Theme) {
	if width > 0 {
		mr.width = width
	}
	mr.theme = &theme
	mr.useTheme = true
	mr.isDark = theme.Renderer.HasDarkBackground()
	mr.build()
}

// IsDarkMode reports the background the style was chosen for.
func (mr *MarkdownRenderer) IsDarkMode() bool {
	return mr.isDark
}

func extractHex(c lipgloss.AdaptiveColor, dark bool) string {
	if dark {
		return c.Dark
	}
	return c.Light
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

// buildStyleFromTheme starts from glamour's dark or light style and recolors
// document text, headings, links and code with the theme palette.
func buildStyleFromTheme(theme Theme, dark bool) ansi.StyleConfig {
	cfg := styles.LightStyleConfig
	if dark {
		cfg = styles.DarkStyleConfig
	}
	cfg.Document.Color = strPtr(extractHex(theme.Text, dark))
	cfg.Document.Margin = nil

	cfg.Heading.Color = strPtr(extractHex(theme.Primary, dark))
	cfg.Heading.Bold = boolPtr(true)
	cfg.H1.Color = strPtr(extractHex(theme.Primary, dark))
	cfg.H1.BackgroundColor = nil
	cfg.H2.Color = strPtr(extractHex(theme.Primary, dark))
	cfg.H3.Color = strPtr(extractHex(theme.Highlight, dark))

	cfg.Link.Color = strPtr(extractHex(theme.Highlight, dark))
	cfg.LinkText.Color = strPtr(extractHex(theme.Highlight, dark))
	cfg.Code.Color = strPtr(extractHex(theme.Highlight, dark))
	cfg.Strong.Color = strPtr(extractHex(theme.Text, dark))
	cfg.Emph.Color = strPtr(extractHex(theme.Subtext, dark))
	cfg.Table.Color = strPtr(extractHex(theme.Subtext, dark))
	return cfg
}
