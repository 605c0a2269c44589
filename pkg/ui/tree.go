package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Dicklesworthstone/plan_viewer/pkg/navigation"
)

// TreeView renders navigator rows with branch guides and keeps the selected
// row on screen.
type TreeView struct {
	theme  Theme
	width  int
	height int
	offset int // index of the first rendered row
}

// NewTreeView creates a tree view with theme.
func NewTreeView(theme Theme) TreeView {
	return TreeView{theme: theme}
}

// SetSize updates the available cells.
func (t *TreeView) SetSize(width, height int) {
	t.width = width
	t.height = height
}

// Offset returns the first rendered row.
func (t *TreeView) Offset() int { return t.offset }

// scrollTo moves the window so row idx is visible.
func (t *TreeView) scrollTo(idx, total int) {
	h := t.height
	if h <= 0 {
		h = 20
	}
	if idx >= 0 {
		if idx < t.offset {
			t.offset = idx
		}
		if idx >= t.offset+h {
			t.offset = idx - h + 1
		}
	}
	if t.offset > total-h {
		t.offset = total - h
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

// View renders rows, scrolling so the selected row is visible.
func (t *TreeView) View(rows []navigation.Row) string {
	if len(rows) == 0 {
		return t.renderEmptyState()
	}
	sel := -1
	for i, r := range rows {
		if r.Selected {
			sel = i
			break
		}
	}
	t.scrollTo(sel, len(rows))

	h := t.height
	if h <= 0 {
		h = 20
	}
	end := t.offset + h
	if end > len(rows) {
		end = len(rows)
	}

	lines := make([]string, 0, end-t.offset)
	for _, r := range rows[t.offset:end] {
		line := t.renderRow(r)
		if r.Selected {
			line = t.theme.Selected.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (t *TreeView) renderEmptyState() string {
	r := t.theme.Renderer
	muted := r.NewStyle().Foreground(t.theme.Muted)
	return muted.Render("No nodes match the current filters.")
}

// treePrefix returns the guide columns for a row. Roots have none.
func treePrefix(row navigation.Row) string {
	if row.Depth == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 1; i < len(row.Guides); i++ {
		if row.Guides[i] {
			sb.WriteString("    ")
		} else {
			sb.WriteString("│   ")
		}
	}
	if row.Last {
		sb.WriteString("└── ")
	} else {
		sb.WriteString("├── ")
	}
	return sb.String()
}

func expandIndicator(row navigation.Row) string {
	switch {
	case !row.HasChildren:
		return "•"
	case row.Expanded:
		return "▾"
	default:
		return "▸"
	}
}

func (t *TreeView) renderRow(row navigation.Row) string {
	r := t.theme.Renderer
	n := row.Node
	var sb strings.Builder

	prefix := treePrefix(row)
	sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render(prefix))
	sb.WriteString(r.NewStyle().Foreground(t.theme.Secondary).Render(expandIndicator(row)))
	sb.WriteString(" ")

	icon, iconColor := t.theme.TypeIcon(n.NodeType)
	sb.WriteString(r.NewStyle().Foreground(iconColor).Render(icon))
	sb.WriteString(" ")

	progress := ""
	if n.ChildCount > 0 {
		progress = fmt.Sprintf(" %d/%d", n.CompletedChildCount, n.ChildCount)
	}
	// prefix, indicator, icon, separators, status dot
	used := runewidth.StringWidth(prefix) + 6 + runewidth.StringWidth(progress)
	avail := t.width - used
	if avail < 10 {
		avail = 10
	}
	title := runewidth.Truncate(n.Title, avail, "…")
	if row.Dimmed {
		sb.WriteString(t.theme.Dimmed.Render(title))
	} else {
		sb.WriteString(title)
	}
	if progress != "" {
		sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render(progress))
	}

	dot := r.NewStyle().Foreground(t.theme.StatusColor(n.Status)).Render(" " + StatusIcon(n.Status))
	sb.WriteString(dot)

	if t.width <= 0 {
		return sb.String()
	}
	return lipgloss.NewStyle().MaxWidth(t.width).Render(sb.String())
}
