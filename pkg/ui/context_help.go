package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// Context is the part of the UI that has the keyboard.
type Context int

const (
	ContextTree Context = iota
	ContextGraph
	ContextSplit
	ContextSearch
	ContextStatusPicker
)

// ContextFor maps a presentation mode to its help context.
func ContextFor(mode model.PresentationMode) Context {
	switch mode {
	case model.ModeGraph:
		return ContextGraph
	case model.ModeTree:
		return ContextTree
	default:
		return ContextSplit
	}
}

// ContextHelpContent contains compact help content for each context.
// Content should fit on one screen (~20 lines) without scrolling.
var ContextHelpContent = map[Context]string{
	ContextTree:         contextHelpTree,
	ContextGraph:        contextHelpGraph,
	ContextSplit:        contextHelpSplit,
	ContextSearch:       contextHelpSearch,
	ContextStatusPicker: contextHelpStatusPicker,
}

// GetContextHelp returns the help content for a given context.
// Falls back to generic help if the context has no specific content.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpGeneric
}

// RenderContextHelp renders the context-specific help modal.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	content := GetContextHelp(ctx)
	r := theme.Renderer

	modalWidth := 60
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	contentStyle := r.NewStyle().Foreground(theme.Subtext)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("? or Esc to close"))

	modal := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth).
		Render(b.String())

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}

const contextHelpTree = `## Tree View

**Navigation**
  j/k       Move selection
  space     Expand/collapse
  E/C       Expand/collapse all

**Filtering**
  / Ctrl+F  Search titles and descriptions
  s         Cycle status filter
  t         Cycle type filter

**Actions**
  n         New child node
  x         Advance status   X  Pick status
  D         Delete node
  y         Copy node ID
  p         Toggle detail panel
  P         Open another plan
  m         Switch mode`

const contextHelpGraph = `## Graph View

**Navigation**
  j/k       Select previous/next node
  f         Fit whole plan
  R         Reset manual positions
  H/J/K/L   Nudge selected node

**Reading the Graph**
• Box colour = status
• Double border = selection
• ┄ dependency  · reference

  m         Switch mode`

const contextHelpSplit = `## Split View

Tree on the left, graph on the right.
Selecting in the tree centers the graph
on the node and expands its ancestors.

  j/k       Move selection
  space     Expand/collapse
  H/J/K/L   Nudge selected node
  f         Fit whole plan
  p         Toggle detail panel
  m         Switch mode`

const contextHelpSearch = `## Search

Type to filter. Ancestors of matches
stay visible, dimmed.

  Enter     Keep filter
  Esc       Clear search`

const contextHelpStatusPicker = `## Change Status

  j/k       Move
  Enter     Apply
  Esc       Cancel`

const contextHelpGeneric = `## Plan Viewer

  ?         This help
  P         Open another plan
  m         Switch mode
  q         Quit`
