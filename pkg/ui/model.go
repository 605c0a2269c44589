// Package ui is the terminal front-end: a tree view and a graph view of one
// plan kept in step by a viewsync.Synchronizer.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/plan_viewer/pkg/export"
	"github.com/Dicklesworthstone/plan_viewer/pkg/loader"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewsync"
)

const (
	minPanelWidth = 30
	maxPanelWidth = 56
)

// SyncEventMsg wraps a synchronizer event delivered to the program.
type SyncEventMsg struct {
	Event viewsync.Event
}

// Subscribe forwards synchronizer events to send, usually tea.Program.Send.
// The returned func unsubscribes.
func Subscribe(s *viewsync.Synchronizer, send func(tea.Msg)) func() {
	return s.Subscribe(func(ev viewsync.Event) {
		send(SyncEventMsg{Event: ev})
	})
}

// Options configures the TUI model.
type Options struct {
	Theme  *Theme
	Logger *slog.Logger
	// Copy writes to the system clipboard; defaults to clipboard.WriteAll.
	Copy func(string) error
	// Plans lists the plans offered by the plan picker. Nil disables it.
	Plans func(ctx context.Context) ([]loader.PlanInfo, error)
}

// PlansLoadedMsg carries the plan list for the picker.
type PlansLoadedMsg struct {
	Plans []loader.PlanInfo
	Err   error
}

// PlanSwitchedMsg reports the end of a plan switch.
type PlanSwitchedMsg struct {
	PlanID string
	Err    error
}

type overlay int

const (
	overlayNone overlay = iota
	overlayHelp
	overlayStatus
	overlayCreate
	overlayDelete
	overlayPlans
)

// Model is the bubbletea model of the plan viewer.
type Model struct {
	sync   *viewsync.Synchronizer
	writer *NodeWriter
	keys   KeyMap
	theme  Theme
	logger *slog.Logger
	copy   func(string) error
	plans  func(ctx context.Context) ([]loader.PlanInfo, error)

	tree   TreeView
	graph  GraphView
	detail viewport.Model
	md     *MarkdownRenderer

	search    textinput.Model
	searching bool
	title     textinput.Model
	picker    StatusPickerModel
	planList  PlanPickerModel
	overlay   overlay
	pending   string // node awaiting delete confirmation or new child's parent

	snap      viewsync.Snapshot
	showPanel bool
	width     int
	height    int
	graphW    int
	graphH    int

	status    string
	statusErr bool
}

// NewModel builds the TUI over s. s should already have a plan switched in.
func NewModel(s *viewsync.Synchronizer, opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cp := opts.Copy
	if cp == nil {
		cp = clipboard.WriteAll
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search titles and descriptions"
	search.CharLimit = 120
	search.Cursor.SetMode(cursor.CursorStatic)

	title := textinput.New()
	title.Prompt = "New node: "
	title.Placeholder = "title"
	title.CharLimit = 200
	title.Cursor.SetMode(cursor.CursorStatic)

	m := Model{
		sync:      s,
		writer:    NewNodeWriter(s, 0),
		keys:      DefaultKeyMap(),
		theme:     theme,
		logger:    logger,
		copy:      cp,
		plans:     opts.Plans,
		tree:      NewTreeView(theme),
		graph:     NewGraphView(theme),
		detail:    viewport.New(0, 0),
		md:        NewMarkdownRendererWithTheme(minPanelWidth, theme),
		search:    search,
		title:     title,
		showPanel: true,
	}
	m.snap = s.Snapshot()
	return m
}

// Init implements tea.Model. Without a plan the picker opens right away.
func (m Model) Init() tea.Cmd {
	if m.snap.HasPlan() || m.plans == nil {
		return nil
	}
	return m.loadPlans()
}

// Snapshot returns the state the model last rendered from.
func (m Model) Snapshot() viewsync.Snapshot { return m.snap }

func (m *Model) refresh() {
	m.snap = m.sync.Snapshot()
	m.updateDetail()
}

func (m *Model) flash(msg string) {
	m.status = msg
	m.statusErr = false
}

func (m *Model) fail(err error) {
	m.status = err.Error()
	m.statusErr = true
	m.logger.Warn("ui action failed", "error", err)
}

// dispatch runs a local intent on the UI thread.
func (m *Model) dispatch(in viewsync.Intent) {
	if err := m.sync.Dispatch(context.Background(), in); err != nil {
		m.fail(err)
	}
	m.refresh()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case SyncEventMsg:
		m.refresh()
		return m, nil

	case FetchedMsg:
		if err := m.sync.Apply(msg.Result); err != nil && !errors.Is(err, viewsync.ErrStalePlan) {
			m.fail(err)
		}
		m.refresh()
		return m, nil

	case FetchErrorMsg:
		m.fail(msg.Err)
		return m, nil

	case PlansLoadedMsg:
		if msg.Err != nil {
			m.fail(fmt.Errorf("list plans: %w", msg.Err))
			return m, nil
		}
		m.planList = NewPlanPicker(msg.Plans, m.sync.PlanID(), m.theme)
		m.planList.SetSize(m.width, m.height-2)
		m.overlay = overlayPlans
		return m, nil

	case SwitchPlanMsg:
		m.overlay = overlayNone
		if msg.PlanID == m.sync.PlanID() {
			return m, nil
		}
		return m, m.switchPlan(msg.PlanID)

	case PlanSwitchedMsg:
		if msg.Err != nil {
			m.fail(fmt.Errorf("open %s: %w", msg.PlanID, msg.Err))
		} else {
			m.flash("Opened " + msg.PlanID)
		}
		m.refresh()
		m.graphW = 0
		m.resize()
		return m, nil

	case NodeResultMsg:
		if msg.Err != nil {
			m.fail(fmt.Errorf("%s: %w", msg.Operation, msg.Err))
		} else {
			m.flash(resultText(msg))
		}
		m.refresh()
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

// handleMouse selects the node under a left click in the graph pane.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if m.overlay != overlayNone || m.searching || !m.snap.HasPlan() {
		return m, nil
	}
	x0, ok := m.graphOrigin()
	if !ok {
		return m, nil
	}
	// The header takes the first line.
	id, hit := m.graph.NodeAt(m.snap.Layout, m.snap.Transform, msg.X-x0, msg.Y-1)
	if !hit || id == m.snap.Selected {
		return m, nil
	}
	m.status = ""
	m.dispatch(viewsync.Select{NodeID: id})
	return m, nil
}

// graphOrigin returns the screen column where the graph pane starts.
func (m Model) graphOrigin() (int, bool) {
	if !m.snap.Mode.ShowsGraph() || m.graph.width <= 0 {
		return 0, false
	}
	if m.snap.Mode.ShowsTree() {
		return m.tree.width + 1, true
	}
	return 0, true
}

func resultText(msg NodeResultMsg) string {
	switch msg.Operation {
	case NodeOpCreate:
		return "Node created"
	case NodeOpDelete:
		return "Deleted " + msg.NodeID
	case NodeOpSetStatus:
		return "Status updated"
	case NodeOpMove:
		return "Position saved"
	case NodeOpReset:
		return "Layout reset"
	case NodeOpMode:
		return "Mode changed"
	}
	return ""
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.overlay {
	case overlayHelp:
		if key.Matches(msg, m.keys.Help) || msg.String() == "esc" || key.Matches(msg, m.keys.Quit) {
			m.overlay = overlayNone
		}
		return m, nil
	case overlayStatus:
		return m.handlePickerKey(msg)
	case overlayCreate:
		return m.handleCreateKey(msg)
	case overlayDelete:
		return m.handleDeleteKey(msg)
	case overlayPlans:
		if !m.planList.Filtering() && (msg.String() == "esc" || key.Matches(msg, m.keys.Plans)) {
			m.overlay = overlayNone
			return m, nil
		}
		var cmd tea.Cmd
		m.planList, cmd = m.planList.Update(msg)
		return m, cmd
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) {
		m.overlay = overlayHelp
		return m, nil
	}
	if key.Matches(msg, m.keys.Plans) {
		return m, m.loadPlans()
	}
	if !m.snap.HasPlan() {
		return m, nil
	}

	m.status = ""
	sel := m.snap.Selected
	switch {
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Toggle):
		if sel != "" {
			m.dispatch(viewsync.ToggleExpand{NodeID: sel})
		}
	case key.Matches(msg, m.keys.ExpandAll):
		m.dispatch(viewsync.ExpandAll{})
	case key.Matches(msg, m.keys.CollapseAll):
		m.dispatch(viewsync.CollapseAll{})
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.snap.Nav.SearchTerm)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.StatusCycle):
		m.dispatch(viewsync.ChangeFilter{Field: viewsync.FilterStatus, Value: nextStatusFilter(m.snap.Nav.StatusFilter)})
	case key.Matches(msg, m.keys.TypeCycle):
		m.dispatch(viewsync.ChangeFilter{Field: viewsync.FilterType, Value: nextTypeFilter(m.snap.Nav.TypeFilter)})
	case key.Matches(msg, m.keys.Create):
		parent := sel
		if parent == "" {
			if root, ok := m.snap.Plan.Root(); ok {
				parent = root.ID
			}
		}
		if parent == "" {
			m.fail(errors.New("plan has no root to attach to"))
			return m, nil
		}
		m.pending = parent
		m.overlay = overlayCreate
		m.title.SetValue("")
		return m, m.title.Focus()
	case key.Matches(msg, m.keys.Advance):
		if n, ok := m.selectedNode(); ok {
			return m, m.writer.Advance(n)
		}
	case key.Matches(msg, m.keys.PickStatus):
		if n, ok := m.selectedNode(); ok {
			m.picker = NewStatusPickerModel(n.ID, n.Status, m.theme)
			m.picker.SetSize(m.width, m.height-2)
			m.overlay = overlayStatus
		}
	case key.Matches(msg, m.keys.Delete):
		if sel != "" {
			m.pending = sel
			m.overlay = overlayDelete
		}
	case key.Matches(msg, m.keys.Copy):
		if sel != "" {
			if err := m.copy(sel); err != nil {
				m.fail(fmt.Errorf("copy: %w", err))
			} else {
				m.flash("Copied " + sel)
			}
		}
	case key.Matches(msg, m.keys.Panel):
		m.showPanel = !m.showPanel
		m.resize()
	case key.Matches(msg, m.keys.Mode):
		return m, m.writer.SetMode(m.snap.Mode.Next())
	case key.Matches(msg, m.keys.Fit):
		m.dispatch(viewsync.FitView{})
	case key.Matches(msg, m.keys.Reset):
		return m, m.writer.ResetLayout()
	case key.Matches(msg, m.keys.NudgeLeft):
		return m, m.nudge(-2*CellWidth, 0)
	case key.Matches(msg, m.keys.NudgeRight):
		return m, m.nudge(2*CellWidth, 0)
	case key.Matches(msg, m.keys.NudgeUp):
		return m, m.nudge(0, -CellHeight)
	case key.Matches(msg, m.keys.NudgeDown):
		return m, m.nudge(0, CellHeight)
	}
	return m, nil
}

func (m *Model) loadPlans() tea.Cmd {
	if m.plans == nil {
		m.flash("No plan directory configured")
		return nil
	}
	list := m.plans
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		plans, err := list(ctx)
		return PlansLoadedMsg{Plans: plans, Err: err}
	}
}

func (m *Model) switchPlan(planID string) tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return PlanSwitchedMsg{PlanID: planID, Err: s.SwitchPlan(ctx, planID)}
	}
}

func (m *Model) selectedNode() (model.PlanNode, bool) {
	if m.snap.Plan == nil || m.snap.Selected == "" {
		return model.PlanNode{}, false
	}
	return m.snap.Plan.Node(m.snap.Selected)
}

// moveSelection steps through the visible rows. Without a selection the
// first row is selected.
func (m *Model) moveSelection(delta int) {
	if len(m.snap.Rows) == 0 {
		return
	}
	m.dispatch(viewsync.MoveSelection{Delta: delta})
}

// nudge moves the selected node by a world offset scaled to the zoom.
func (m *Model) nudge(dx, dy float64) tea.Cmd {
	sel := m.snap.Selected
	if sel == "" {
		return nil
	}
	pos, ok := m.snap.Layout.Position(sel)
	if !ok {
		return nil
	}
	zoom := m.snap.Transform.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return m.writer.Move(sel, model.Point{X: pos.X + dx/zoom, Y: pos.Y + dy/zoom})
}

func nextStatusFilter(cur string) string {
	options := []string{"all"}
	for _, s := range model.KnownStatuses {
		options = append(options, string(s))
	}
	return cycle(options, cur)
}

func nextTypeFilter(cur string) string {
	options := []string{"all"}
	for _, t := range model.KnownNodeTypes {
		options = append(options, string(t))
	}
	return cycle(options, cur)
}

func cycle(options []string, cur string) string {
	if cur == "" {
		cur = "all"
	}
	for i, o := range options {
		if o == cur {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.dispatch(viewsync.ChangeFilter{Field: viewsync.FilterSearch, Value: ""})
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	before := m.search.Value()
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != before {
		m.dispatch(viewsync.ChangeFilter{Field: viewsync.FilterSearch, Value: v})
	}
	return m, cmd
}

func (m Model) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.overlay = overlayNone
		m.title.Blur()
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.title.Value())
		m.overlay = overlayNone
		m.title.Blur()
		if title == "" {
			return m, nil
		}
		return m, m.writer.CreateChild(m.pending, title)
	}
	var cmd tea.Cmd
	m.title, cmd = m.title.Update(msg)
	return m, cmd
}

func (m Model) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.overlay = overlayNone
	switch msg.String() {
	case "y", "Y":
		return m, m.writer.Delete(m.pending)
	}
	m.flash("Delete cancelled")
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		m.picker.MoveDown()
	case key.Matches(msg, m.keys.Up):
		m.picker.MoveUp()
	case msg.String() == "enter":
		m.overlay = overlayNone
		return m, m.writer.SetStatus(m.picker.NodeID(), m.picker.SelectedStatus())
	case msg.String() == "esc" || key.Matches(msg, m.keys.Quit):
		m.overlay = overlayNone
	}
	return m, nil
}

// resize splits the screen between tree, graph and panel and reports the
// graph canvas to the synchronizer.
func (m *Model) resize() {
	bodyH := m.height - 2
	if bodyH < 1 {
		bodyH = 1
	}
	panelW := m.panelWidth()
	rest := m.width - panelW
	treeW, graphW := 0, 0
	switch m.snap.Mode {
	case model.ModeTree:
		treeW = rest
	case model.ModeGraph:
		graphW = rest
	default:
		treeW = rest * 2 / 5
		graphW = rest - treeW - 1
	}
	m.tree.SetSize(treeW, bodyH)
	m.graph.SetSize(graphW, bodyH)
	if panelW > 0 {
		m.detail.Width = panelW - 2
		m.detail.Height = bodyH
		m.md.SetWidth(panelW - 4)
	}
	if graphW > 0 && (graphW != m.graphW || bodyH != m.graphH) && m.snap.HasPlan() {
		m.graphW, m.graphH = graphW, bodyH
		m.dispatch(viewsync.Resize{Size: CanvasSize(graphW, bodyH)})
		return
	}
	m.updateDetail()
}

func (m *Model) panelWidth() int {
	if !m.showPanel || m.width < 80 {
		return 0
	}
	w := m.width / 3
	if w < minPanelWidth {
		w = minPanelWidth
	}
	if w > maxPanelWidth {
		w = maxPanelWidth
	}
	return w
}

func (m *Model) updateDetail() {
	if m.snap.Plan == nil || m.snap.Selected == "" {
		m.detail.SetContent(m.theme.Renderer.NewStyle().Foreground(m.theme.Muted).
			Render("Select a node to see its details."))
		return
	}
	md := export.NodeMarkdown(m.snap.Plan, m.snap.Selected)
	out, err := m.md.Render(md)
	if err != nil {
		m.logger.Debug("markdown render failed", "error", err)
	}
	m.detail.SetContent(out)
	m.detail.GotoTop()
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	bodyH := m.height - 2
	if bodyH < 1 {
		bodyH = 1
	}

	var body string
	switch {
	case m.overlay == overlayHelp:
		body = RenderContextHelp(m.helpContext(), m.theme, m.width, bodyH)
	case m.overlay == overlayStatus:
		body = m.picker.View()
	case m.overlay == overlayPlans:
		body = m.planList.View()
	case !m.snap.HasPlan():
		body = m.renderEmpty(bodyH)
	default:
		body = m.renderBody(bodyH)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) helpContext() Context {
	if m.searching {
		return ContextSearch
	}
	return ContextFor(m.snap.Mode)
}

func (m Model) renderEmpty(h int) string {
	r := m.theme.Renderer
	msg := r.NewStyle().Foreground(m.theme.Primary).Bold(true).Render("No plan loaded") + "\n\n" +
		r.NewStyle().Foreground(m.theme.Muted).Render("Add a plan file (.json, .yaml or .toml) to the plans directory.")
	return lipgloss.Place(m.width, h, lipgloss.Center, lipgloss.Center, msg)
}

func (m Model) renderBody(h int) string {
	tree, graph := m.tree, m.graph
	var cols []string
	sep := m.theme.Renderer.NewStyle().Foreground(m.theme.Border).
		Render(strings.TrimRight(strings.Repeat("│\n", h), "\n"))

	if m.snap.Mode.ShowsTree() {
		cols = append(cols, lipgloss.NewStyle().Width(tree.width).Height(h).MaxHeight(h).
			Render(tree.View(m.snap.Rows)))
	}
	if m.snap.Mode.ShowsGraph() {
		if len(cols) > 0 {
			cols = append(cols, sep)
		}
		cols = append(cols, lipgloss.NewStyle().Width(graph.width).Height(h).MaxHeight(h).
			Render(graph.View(m.snap.Plan, m.snap.Layout, m.snap.Transform, m.snap.Selected)))
	}
	if pw := m.panelWidth(); pw > 0 {
		panel := m.theme.Renderer.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(m.theme.Border).
			PaddingLeft(1).
			Width(pw - 1).Height(h).MaxHeight(h).
			Render(m.detail.View())
		cols = append(cols, panel)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderHeader() string {
	r := m.theme.Renderer
	title := "plan viewer"
	if m.snap.Plan != nil {
		title = m.snap.Plan.Title
		if title == "" {
			title = m.snap.Plan.ID
		}
	}
	parts := []string{r.NewStyle().Foreground(m.theme.Primary).Bold(true).Render(title)}
	if m.snap.HasPlan() {
		parts = append(parts, r.NewStyle().Foreground(m.theme.Highlight).Render("["+string(m.snap.Mode)+"]"))
		nav := m.snap.Nav
		if nav.StatusFilter != "" && nav.StatusFilter != "all" {
			parts = append(parts, "status:"+nav.StatusFilter)
		}
		if nav.TypeFilter != "" && nav.TypeFilter != "all" {
			parts = append(parts, "type:"+nav.TypeFilter)
		}
		if nav.SearchTerm != "" && !m.searching {
			parts = append(parts, fmt.Sprintf("search:%q", nav.SearchTerm))
		}
		parts = append(parts, r.NewStyle().Foreground(m.theme.Muted).
			Render(fmt.Sprintf("%d nodes · zoom %.2f", len(m.snap.Plan.Nodes), m.snap.Transform.Zoom)))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderFooter() string {
	r := m.theme.Renderer
	var line string
	switch {
	case m.searching:
		line = m.search.View()
	case m.overlay == overlayCreate:
		line = m.title.View()
	case m.overlay == overlayDelete:
		line = r.NewStyle().Foreground(m.theme.Blocked).Bold(true).
			Render(fmt.Sprintf("Delete %s and everything below it? y/N", m.pending))
	case m.status != "" && m.statusErr:
		line = r.NewStyle().Foreground(m.theme.Blocked).Render("✖ " + m.status)
	case m.status != "":
		line = r.NewStyle().Foreground(m.theme.Completed).Render("✓ " + m.status)
	default:
		var hints []string
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			hints = append(hints, h.Key+" "+h.Desc)
		}
		line = r.NewStyle().Foreground(m.theme.Muted).Render(strings.Join(hints, " · "))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}
