package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/plan_viewer/pkg/loader"
)

func testPlanEntries() []loader.PlanInfo {
	return []loader.PlanInfo{
		{ID: "launch", Title: "Product launch", NodeCount: 12, Done: 4},
		{ID: "migration", Title: "Database migration", NodeCount: 8, Done: 8},
		{ID: "hiring", Title: "Q3 hiring", NodeCount: 5},
		{ID: "broken", Err: "yaml: line 3"},
	}
}

func newTestPlanPicker(active string) PlanPickerModel {
	return NewPlanPicker(testPlanEntries(), active, DefaultTheme(lipgloss.NewRenderer(nil)))
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func pickedPlan(t *testing.T, cmd tea.Cmd) string {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(SwitchPlanMsg)
	if !ok {
		t.Fatal("expected SwitchPlanMsg")
	}
	return msg.PlanID
}

func TestPlanPickerStartsOnActivePlan(t *testing.T) {
	m := newTestPlanPicker("hiring")
	if m.Cursor() != 2 {
		t.Errorf("cursor = %d, want 2", m.Cursor())
	}
	if e := m.SelectedEntry(); e == nil || e.ID != "hiring" {
		t.Errorf("selected = %v", e)
	}
}

func TestPlanPickerNumberKeySwitches(t *testing.T) {
	m := newTestPlanPicker("launch")
	m, cmd := m.Update(runeKey("2"))
	if got := pickedPlan(t, cmd); got != "migration" {
		t.Errorf("picked %q, want migration", got)
	}
	if _, cmd := m.Update(runeKey("9")); cmd != nil {
		t.Error("out of range number should do nothing")
	}
}

func TestPlanPickerNavigateAndEnter(t *testing.T) {
	m := newTestPlanPicker("launch")
	m, _ = m.Update(runeKey("j"))
	m, _ = m.Update(runeKey("j"))
	m, _ = m.Update(runeKey("k"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := pickedPlan(t, cmd); got != "migration" {
		t.Errorf("picked %q, want migration", got)
	}
}

func TestPlanPickerFilter(t *testing.T) {
	m := newTestPlanPicker("launch")
	m, _ = m.Update(runeKey("/"))
	if !m.Filtering() {
		t.Fatal("expected filter mode")
	}
	for _, r := range "data" {
		m, _ = m.Update(runeKey(string(r)))
	}
	if m.FilteredCount() != 1 {
		t.Fatalf("filtered = %d, want 1", m.FilteredCount())
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := pickedPlan(t, cmd); got != "migration" {
		t.Errorf("picked %q, want migration", got)
	}
}

func TestPlanPickerFilterEscRestores(t *testing.T) {
	m := newTestPlanPicker("launch")
	m, _ = m.Update(runeKey("/"))
	m, _ = m.Update(runeKey("z"))
	m, _ = m.Update(runeKey("z"))
	if m.FilteredCount() != 0 {
		t.Fatalf("filtered = %d, want 0", m.FilteredCount())
	}
	if m.SelectedEntry() != nil {
		t.Error("no entry should be selected")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.Filtering() || m.FilteredCount() != 4 {
		t.Errorf("esc should restore the list, got filtering=%v count=%d", m.Filtering(), m.FilteredCount())
	}
}

func TestFuzzyScore(t *testing.T) {
	if fuzzyScore("migration", "zz") != 0 {
		t.Error("non-matching query should score 0")
	}
	if fuzzyScore("migration", "mgr") == 0 {
		t.Error("subsequence should match")
	}
	if fuzzyScore("migration", "mig") <= fuzzyScore("migration", "mgr") {
		t.Error("substring should outrank a scattered match")
	}
	if fuzzyScore("database migration", "mig") >= fuzzyScore("migration", "mig") {
		t.Error("earlier substring should score higher")
	}
}

func TestPlanPickerView(t *testing.T) {
	m := newTestPlanPicker("launch")
	m.SetSize(100, 30)
	view := m.View()
	for _, want := range []string{"plans", "[4]", "launch · Product launch", "4/12", "unreadable", "✓"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	empty := NewPlanPicker(nil, "", DefaultTheme(lipgloss.NewRenderer(nil)))
	if !strings.Contains(empty.View(), "No plans found") {
		t.Error("empty picker should explain how to add plans")
	}
}
