// Package analysis derives scheduling insights from the dependency and
// sequence edges of a plan: what is ready, what unlocks the most work, the
// longest open chain, bottlenecks and dependency cycles.
//
// Edge direction follows the layout: an edge Source -> Target of type
// dependency or sequence means Source must be completed before Target.
// Hierarchical and reference edges are not prerequisites.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// Config caps the lists Insights returns. All outputs are deterministic.
type Config struct {
	UnlockLimit     int `json:"unlock_limit"`     // Max nodes in the unlock set (default 5)
	BottleneckLimit int `json:"bottleneck_limit"` // Max bottlenecks (default 5)
	CycleLimit      int `json:"cycle_limit"`      // Max cycles reported (default 5)
}

// DefaultConfig returns the default caps.
func DefaultConfig() Config {
	return Config{
		UnlockLimit:     5,
		BottleneckLimit: 5,
		CycleLimit:      5,
	}
}

// Feature states.
const (
	StateAvailable = "available"
	StateSkipped   = "skipped"
)

// FeatureStatus tracks the outcome of one analysis.
type FeatureStatus struct {
	State   string `json:"state"`             // available|skipped
	Reason  string `json:"reason,omitempty"`  // Explanation when skipped
	Capped  bool   `json:"capped,omitempty"`  // True if results were truncated
	Count   int    `json:"count"`             // Number of results returned
	Limited int    `json:"limited,omitempty"` // Original count before capping
}

// Insights is the full analysis of one plan.
type Insights struct {
	PlanID       string              `json:"plan_id"`
	Progress     Progress            `json:"progress"`
	Ready        []string            `json:"ready"`
	Unlocks      *UnlockResult       `json:"unlocks"`
	CriticalPath *CriticalPathResult `json:"critical_path"`
	Bottlenecks  *BottleneckResult   `json:"bottlenecks"`
	Cycles       *CycleResult        `json:"cycles"`
	Config       Config              `json:"config"`
}

// Progress counts nodes per status.
type Progress struct {
	Total    int                  `json:"total"`
	Done     int                  `json:"done"`
	Percent  float64              `json:"percent"`
	ByStatus map[model.Status]int `json:"by_status"`
}

// UnlockResult is the greedy set of open nodes whose completion makes the
// most other nodes ready.
type UnlockResult struct {
	Status    FeatureStatus `json:"status"`
	Items     []UnlockItem  `json:"items,omitempty"` // Ordered by selection sequence
	TotalGain int           `json:"total_gain"`
}

// UnlockItem is one pick of the unlock set.
type UnlockItem struct {
	ID           string   `json:"id"`
	Title        string   `json:"title,omitempty"`
	MarginalGain int      `json:"marginal_gain"`
	Unblocks     []string `json:"unblocks,omitempty"`
}

// CriticalPathResult is the longest prerequisite chain of open nodes.
type CriticalPathResult struct {
	Status FeatureStatus `json:"status"`
	Path   []string      `json:"path,omitempty"`
}

// BottleneckResult ranks nodes by betweenness centrality in the
// prerequisite graph.
type BottleneckResult struct {
	Status FeatureStatus    `json:"status"`
	Items  []BottleneckItem `json:"items,omitempty"`
}

// BottleneckItem is one ranked node.
type BottleneckItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title,omitempty"`
	Score       float64 `json:"score"`
	Dependents  int     `json:"dependents"`
	IsCompleted bool    `json:"is_completed,omitempty"`
}

// CycleResult lists strongly connected groups of the prerequisite graph.
type CycleResult struct {
	Status FeatureStatus `json:"status"`
	Cycles [][]string    `json:"cycles,omitempty"`
}

// Analyzer holds the prerequisite graph of a plan.
type Analyzer struct {
	plan     *model.Plan
	g        *simple.DirectedGraph
	idToNode map[string]int64
	nodeToID map[int64]string
	nodes    map[string]model.PlanNode
}

// isPrerequisite reports whether edges of type t order work.
func isPrerequisite(t model.EdgeType) bool {
	return t == model.EdgeDependency || t == model.EdgeSequence
}

// NewAnalyzer builds the prerequisite graph. Edges naming unknown nodes and
// self loops are ignored. A nil plan analyzes as empty.
func NewAnalyzer(plan *model.Plan) *Analyzer {
	if plan == nil {
		plan = &model.Plan{}
	}
	a := &Analyzer{
		plan:     plan,
		g:        simple.NewDirectedGraph(),
		idToNode: make(map[string]int64, len(plan.Nodes)),
		nodeToID: make(map[int64]string, len(plan.Nodes)),
		nodes:    make(map[string]model.PlanNode, len(plan.Nodes)),
	}
	for i, n := range plan.Nodes {
		if _, dup := a.idToNode[n.ID]; dup {
			continue
		}
		id := int64(i)
		a.idToNode[n.ID] = id
		a.nodeToID[id] = n.ID
		a.nodes[n.ID] = n
		a.g.AddNode(simple.Node(id))
	}
	for _, e := range plan.Edges {
		if !isPrerequisite(e.Type) || e.Source == e.Target {
			continue
		}
		from, ok1 := a.idToNode[e.Source]
		to, ok2 := a.idToNode[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		a.g.SetEdge(a.g.NewEdge(simple.Node(from), simple.Node(to)))
	}
	return a
}

func (a *Analyzer) open(id string) bool {
	n, ok := a.nodes[id]
	return ok && !n.Status.IsDone()
}

func (a *Analyzer) title(id string) string {
	return a.nodes[id].Title
}

// idsOf maps graph nodes to plan ids in plan order.
func (a *Analyzer) idsOf(nodes []graph.Node) []string {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = a.nodeToID[n.ID()]
	}
	return out
}

// Prerequisites returns the nodes that must finish before id, in plan order.
func (a *Analyzer) Prerequisites(id string) []string {
	nid, ok := a.idToNode[id]
	if !ok {
		return nil
	}
	return a.idsOf(graph.NodesOf(a.g.To(nid)))
}

// Dependents returns the nodes waiting on id, in plan order.
func (a *Analyzer) Dependents(id string) []string {
	nid, ok := a.idToNode[id]
	if !ok {
		return nil
	}
	return a.idsOf(graph.NodesOf(a.g.From(nid)))
}

// Insights runs every analysis with cfg. Non-positive caps use the defaults.
func (a *Analyzer) Insights(cfg Config) *Insights {
	def := DefaultConfig()
	if cfg.UnlockLimit <= 0 {
		cfg.UnlockLimit = def.UnlockLimit
	}
	if cfg.BottleneckLimit <= 0 {
		cfg.BottleneckLimit = def.BottleneckLimit
	}
	if cfg.CycleLimit <= 0 {
		cfg.CycleLimit = def.CycleLimit
	}
	cycles := a.cycles(cfg.CycleLimit)
	return &Insights{
		PlanID:       a.plan.ID,
		Progress:     a.Progress(),
		Ready:        a.Ready(),
		Unlocks:      a.unlocks(cfg.UnlockLimit),
		CriticalPath: a.criticalPath(cycles.Status.Limited > 0),
		Bottlenecks:  a.bottlenecks(cfg.BottleneckLimit),
		Cycles:       cycles,
		Config:       cfg,
	}
}

// Progress counts statuses over every node.
func (a *Analyzer) Progress() Progress {
	p := Progress{ByStatus: make(map[model.Status]int)}
	for _, s := range model.KnownStatuses {
		p.ByStatus[s] = 0
	}
	for _, n := range a.plan.Nodes {
		p.Total++
		p.ByStatus[n.Status]++
		if n.Status.IsDone() {
			p.Done++
		}
	}
	if p.Total > 0 {
		p.Percent = math.Round(float64(p.Done)*1000/float64(p.Total)) / 10
	}
	return p
}

// Ready returns open, unblocked nodes whose prerequisites are all completed,
// in plan order.
func (a *Analyzer) Ready() []string {
	ready := []string{}
	for _, n := range a.plan.Nodes {
		if n.Status.IsDone() || n.Status == model.StatusBlocked {
			continue
		}
		if _, ok := a.idToNode[n.ID]; !ok {
			continue
		}
		waiting := false
		for _, p := range a.Prerequisites(n.ID) {
			if a.open(p) {
				waiting = true
				break
			}
		}
		if !waiting {
			ready = append(ready, n.ID)
		}
	}
	return ready
}

// unlocks picks up to k open nodes greedily by how many other open nodes
// would have every prerequisite done once the picks are completed.
func (a *Analyzer) unlocks(k int) *UnlockResult {
	var candidates []string
	for id := range a.nodes {
		if a.open(id) {
			candidates = append(candidates, id)
		}
	}
	sort.Strings(candidates)

	if len(candidates) == 0 {
		return &UnlockResult{Status: FeatureStatus{State: StateAvailable, Reason: "No open nodes"}}
	}

	done := make(map[string]bool)
	var items []UnlockItem
	total := 0
	for i := 0; i < k; i++ {
		bestID := ""
		bestGain := -1
		var bestUnblocks []string
		for _, c := range candidates {
			if done[c] {
				continue
			}
			unblocks := a.marginalUnblocks(c, done)
			if gain := len(unblocks); gain > bestGain {
				bestID, bestGain, bestUnblocks = c, gain, unblocks
			}
		}
		if bestID == "" || bestGain == 0 {
			break
		}
		done[bestID] = true
		items = append(items, UnlockItem{
			ID:           bestID,
			Title:        a.title(bestID),
			MarginalGain: bestGain,
			Unblocks:     bestUnblocks,
		})
		total += bestGain
	}

	return &UnlockResult{
		Status: FeatureStatus{
			State:   StateAvailable,
			Count:   len(items),
			Capped:  len(items) == k && len(candidates) > k,
			Limited: len(candidates),
		},
		Items:     items,
		TotalGain: total,
	}
}

// marginalUnblocks lists open dependents of id that become ready when id and
// everything in done are completed.
func (a *Analyzer) marginalUnblocks(id string, done map[string]bool) []string {
	var out []string
	for _, dep := range a.Dependents(id) {
		if !a.open(dep) || done[dep] {
			continue
		}
		free := true
		for _, p := range a.Prerequisites(dep) {
			if p != id && a.open(p) && !done[p] {
				free = false
				break
			}
		}
		if free {
			out = append(out, dep)
		}
	}
	return out
}

// criticalPath finds the longest chain of open nodes. It is skipped when the
// prerequisite graph has cycles.
func (a *Analyzer) criticalPath(cyclic bool) *CriticalPathResult {
	if cyclic {
		return &CriticalPathResult{Status: FeatureStatus{State: StateSkipped, Reason: "Dependency cycles present"}}
	}

	sub := simple.NewDirectedGraph()
	for id, nid := range a.idToNode {
		if a.open(id) {
			sub.AddNode(simple.Node(nid))
		}
	}
	edges := a.g.Edges()
	for edges.Next() {
		e := edges.Edge()
		if sub.Node(e.From().ID()) != nil && sub.Node(e.To().ID()) != nil {
			sub.SetEdge(sub.NewEdge(e.From(), e.To()))
		}
	}
	if sub.Nodes().Len() == 0 {
		return &CriticalPathResult{Status: FeatureStatus{State: StateAvailable, Reason: "No open nodes"}}
	}

	order, err := topo.SortStabilized(sub, func(ns []graph.Node) {
		sort.Slice(ns, func(i, j int) bool { return ns[i].ID() < ns[j].ID() })
	})
	if err != nil {
		return &CriticalPathResult{Status: FeatureStatus{State: StateSkipped, Reason: err.Error()}}
	}

	length := make(map[int64]int, len(order))
	prev := make(map[int64]int64, len(order))
	var end int64 = -1
	for _, n := range order {
		id := n.ID()
		best, from := 1, int64(-1)
		preds := graph.NodesOf(sub.To(id))
		sort.Slice(preds, func(i, j int) bool { return preds[i].ID() < preds[j].ID() })
		for _, p := range preds {
			if l := length[p.ID()] + 1; l > best {
				best, from = l, p.ID()
			}
		}
		length[id] = best
		prev[id] = from
		if end < 0 || best > length[end] {
			end = id
		}
	}

	var path []string
	for id := end; id >= 0; id = prev[id] {
		path = append(path, a.nodeToID[id])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return &CriticalPathResult{
		Status: FeatureStatus{State: StateAvailable, Count: len(path)},
		Path:   path,
	}
}

// bottlenecks ranks nodes by betweenness in the prerequisite graph. Nodes
// with zero betweenness are left out.
func (a *Analyzer) bottlenecks(limit int) *BottleneckResult {
	scores := network.Betweenness(a.g)
	items := make([]BottleneckItem, 0, len(scores))
	for nid, score := range scores {
		// Summation order inside Betweenness varies between runs.
		score = math.Round(score*1e6) / 1e6
		if score <= 0 {
			continue
		}
		id := a.nodeToID[nid]
		items = append(items, BottleneckItem{
			ID:          id,
			Title:       a.title(id),
			Score:       score,
			Dependents:  a.g.From(nid).Len(),
			IsCompleted: !a.open(id),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
	found := len(items)
	if found > limit {
		items = items[:limit]
	}
	return &BottleneckResult{
		Status: FeatureStatus{State: StateAvailable, Count: len(items), Capped: found > limit, Limited: found},
		Items:  items,
	}
}

// cycles reports strongly connected components with more than one node.
// Members are in plan order; cycles are ordered by their first member.
func (a *Analyzer) cycles(limit int) *CycleResult {
	var cycles [][]string
	for _, scc := range topo.TarjanSCC(a.g) {
		if len(scc) < 2 {
			continue
		}
		cycles = append(cycles, a.idsOf(scc))
	}
	sort.Slice(cycles, func(i, j int) bool {
		return a.idToNode[cycles[i][0]] < a.idToNode[cycles[j][0]]
	})
	found := len(cycles)
	if found > limit {
		cycles = cycles[:limit]
	}
	return &CycleResult{
		Status: FeatureStatus{State: StateAvailable, Count: len(cycles), Capped: found > limit, Limited: found},
		Cycles: cycles,
	}
}
