package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/plan_viewer/pkg/loader"
)

// SwitchPlanMsg is sent when the user picks a plan.
type SwitchPlanMsg struct {
	PlanID string
}

// PlanPickerModel lists the plans of the plans directory. Number keys 1-9
// switch directly; / filters by id and title.
type PlanPickerModel struct {
	entries     []loader.PlanInfo
	active      string
	filtered    []int // indices into entries
	cursor      int
	width       int
	height      int
	filterInput textinput.Model
	filtering   bool
	theme       Theme
}

// NewPlanPicker creates a picker over entries with active highlighted.
func NewPlanPicker(entries []loader.PlanInfo, active string, theme Theme) PlanPickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 50
	ti.Width = 30
	ti.Cursor.SetMode(cursor.CursorStatic)

	m := PlanPickerModel{
		entries:     entries,
		active:      active,
		filterInput: ti,
		theme:       theme,
	}
	m.applyFilter()
	for i, idx := range m.filtered {
		if entries[idx].ID == active {
			m.cursor = i
		}
	}
	return m
}

// SetSize updates the picker dimensions.
func (m *PlanPickerModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update handles keyboard input.
func (m PlanPickerModel) Update(msg tea.Msg) (PlanPickerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.filtering {
			return m.updateFiltering(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m PlanPickerModel) updateNormal(msg tea.KeyMsg) (PlanPickerModel, tea.Cmd) {
	switch msg.String() {
	case "/":
		m.filtering = true
		m.cursor = 0
		m.filterInput.SetValue("")
		m.filterInput.Focus()
	case "j", "down":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		return m, m.choose()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n := int(msg.String()[0]-'0') - 1
		if n < len(m.filtered) {
			m.cursor = n
			return m, m.choose()
		}
	}
	return m, nil
}

func (m PlanPickerModel) updateFiltering(msg tea.KeyMsg) (PlanPickerModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.applyFilter()
		return m, nil
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		return m, m.choose()
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *PlanPickerModel) choose() tea.Cmd {
	e := m.SelectedEntry()
	if e == nil {
		return nil
	}
	id := e.ID
	return func() tea.Msg { return SwitchPlanMsg{PlanID: id} }
}

// applyFilter keeps entries whose id or title fuzzily matches the filter,
// best matches first.
func (m *PlanPickerModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	if query == "" {
		m.filtered = make([]int, len(m.entries))
		for i := range m.entries {
			m.filtered[i] = i
		}
		m.clampCursor()
		return
	}

	type scored struct {
		index int
		score int
	}
	var matches []scored
	for i, e := range m.entries {
		best := max(fuzzyScore(strings.ToLower(e.ID), query), fuzzyScore(strings.ToLower(e.Title), query))
		if best > 0 {
			matches = append(matches, scored{i, best})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	m.filtered = make([]int, len(matches))
	for i, match := range matches {
		m.filtered[i] = match.index
	}
	m.clampCursor()
}

func (m *PlanPickerModel) clampCursor() {
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// fuzzyScore is 0 unless every query rune appears in s in order. Substring
// hits outrank scattered ones, and earlier hits outrank later ones.
func fuzzyScore(s, query string) int {
	if query == "" {
		return 1
	}
	if i := strings.Index(s, query); i >= 0 {
		return 1000 - i
	}
	qi := 0
	q := []rune(query)
	score := 0
	for _, r := range s {
		if qi < len(q) && r == q[qi] {
			qi++
			score += 10
		}
	}
	if qi < len(q) {
		return 0
	}
	return score
}

// View renders the picker as a centered box.
func (m *PlanPickerModel) View() string {
	if m.width == 0 {
		m.width = 80
	}
	if m.height == 0 {
		m.height = 20
	}
	t := m.theme
	r := t.Renderer

	boxWidth := min(64, m.width-4)
	if boxWidth < 24 {
		boxWidth = 24
	}

	label := "plans"
	if m.filtering && m.filterInput.Value() != "" {
		label = fmt.Sprintf("plans(%s)", m.filterInput.Value())
	}
	lines := []string{
		r.NewStyle().Foreground(t.Primary).Bold(true).Render(label) +
			r.NewStyle().Foreground(t.Highlight).Render(fmt.Sprintf("[%d]", len(m.filtered))),
		"",
	}
	if m.filtering {
		lines = append(lines, r.NewStyle().Foreground(t.Primary).Render("/ "+m.filterInput.View()), "")
	}

	if len(m.filtered) == 0 {
		lines = append(lines, r.NewStyle().Foreground(t.Secondary).Italic(true).
			Render("No plans found. Add .json, .yaml or .toml files to the plans directory."))
	}
	for i, idx := range m.filtered {
		lines = append(lines, m.renderEntry(i, m.entries[idx], boxWidth-6))
	}

	lines = append(lines, "", r.NewStyle().Foreground(t.Secondary).Italic(true).
		Render("1-9: switch | /: filter | enter: open | esc: close"))

	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth).
		Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *PlanPickerModel) renderEntry(i int, e loader.PlanInfo, width int) string {
	t := m.theme
	r := t.Renderer

	num := " "
	if i < 9 {
		num = fmt.Sprintf("%d", i+1)
	}
	prefix := "  "
	style := r.NewStyle().Foreground(t.Text)
	if i == m.cursor {
		prefix = "> "
		style = style.Foreground(t.Primary).Bold(true)
	}
	name := e.ID
	if e.Title != "" && e.Title != e.ID {
		name += " · " + e.Title
	}
	var tail string
	switch {
	case e.Err != "":
		tail = r.NewStyle().Foreground(t.Blocked).Render(" ✖ unreadable")
	default:
		tail = r.NewStyle().Foreground(t.Muted).Render(fmt.Sprintf(" %d/%d", e.Done, e.NodeCount))
	}
	if e.ID == m.active {
		tail += r.NewStyle().Foreground(t.Secondary).Render(" ✓")
	}
	line := style.Render(prefix+num+" "+name) + tail
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

// Filtering reports whether the filter input has focus.
func (m *PlanPickerModel) Filtering() bool {
	return m.filtering
}

// Cursor returns the highlighted row.
func (m *PlanPickerModel) Cursor() int {
	return m.cursor
}

// FilteredCount returns the number of entries matching the filter.
func (m *PlanPickerModel) FilteredCount() int {
	return len(m.filtered)
}

// SelectedEntry returns the highlighted plan, or nil if none.
func (m *PlanPickerModel) SelectedEntry() *loader.PlanInfo {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	e := m.entries[m.filtered[m.cursor]]
	return &e
}
