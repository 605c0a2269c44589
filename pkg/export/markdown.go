package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// GenerateMarkdown creates a report of a plan: status summary, the
// hierarchy as a nested checklist and a Mermaid graph of all edges.
func GenerateMarkdown(plan *model.Plan) string {
	var sb strings.Builder
	if plan == nil {
		return ""
	}

	title := plan.Title
	if title == "" {
		title = plan.ID
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)

	// Summary
	counts := make(map[model.Status]int)
	for _, n := range plan.Nodes {
		counts[n.Status]++
	}
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Total**: %d\n", len(plan.Nodes))
	for _, s := range model.KnownStatuses {
		fmt.Fprintf(&sb, "- **%s**: %d\n", statusLabel(s), counts[s])
	}
	sb.WriteString("\n")

	// Outline
	sb.WriteString("## Outline\n\n")
	children := make(map[string][]model.PlanNode)
	idx := plan.Index()
	var tops []model.PlanNode
	for _, n := range plan.Nodes {
		if _, ok := idx[n.ParentID]; ok && n.ParentID != n.ID && !n.IsRoot() {
			children[n.ParentID] = append(children[n.ParentID], n)
		} else {
			tops = append(tops, n)
		}
	}
	seen := make(map[string]bool)
	var walk func(n model.PlanNode, depth int)
	walk = func(n model.PlanNode, depth int) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		box := " "
		if n.Status.IsDone() {
			box = "x"
		}
		fmt.Fprintf(&sb, "%s- [%s] **%s** _(%s)_", strings.Repeat("  ", depth), box, escapeMD(n.Title), n.NodeType)
		if n.Status == model.StatusBlocked {
			sb.WriteString(" ⛔ blocked")
		}
		if n.DueDate != nil {
			fmt.Fprintf(&sb, " · due %s", n.DueDate.Format("2006-01-02"))
		}
		sb.WriteString("\n")
		for _, c := range children[n.ID] {
			walk(c, depth+1)
		}
	}
	for _, n := range tops {
		walk(n, 0)
	}
	sb.WriteString("\n")

	// Graph (Mermaid)
	sb.WriteString("## Graph\n\n")
	sb.WriteString("```mermaid\ngraph TD\n")
	for _, n := range plan.Nodes {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", mermaidID(n.ID), mermaidLabel(n.Title))
	}
	for _, e := range plan.AllEdges() {
		if _, ok := idx[e.Source]; !ok {
			continue
		}
		if _, ok := idx[e.Target]; !ok {
			continue
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", mermaidID(e.Source), mermaidArrow(e.Type), mermaidID(e.Target))
	}
	sb.WriteString("```\n")

	return sb.String()
}

// WriteMarkdown writes GenerateMarkdown(plan).
func WriteMarkdown(w io.Writer, plan *model.Plan) error {
	_, err := io.WriteString(w, GenerateMarkdown(plan))
	return err
}

// NodeMarkdown describes one node for the detail panel.
func NodeMarkdown(plan *model.Plan, id string) string {
	if plan == nil {
		return ""
	}
	n, ok := plan.Node(id)
	if !ok {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", escapeMD(n.Title))
	sb.WriteString("| Type | Status | Due | Children |\n")
	sb.WriteString("|---|---|---|---|\n")
	due := "—"
	if n.DueDate != nil {
		due = n.DueDate.Format("2006-01-02")
	}
	children := plan.Children(id)
	done := 0
	for _, c := range children {
		if c.Status.IsDone() {
			done++
		}
	}
	fmt.Fprintf(&sb, "| %s | %s | %s | %d/%d |\n\n", n.NodeType, statusLabel(n.Status), due, done, len(children))

	if n.Description != "" {
		sb.WriteString(n.Description + "\n\n")
	}
	if n.CommentCount > 0 || n.ArtifactCount > 0 {
		fmt.Fprintf(&sb, "💬 %d comments · 📎 %d artifacts\n\n", n.CommentCount, n.ArtifactCount)
	}

	var deps []string
	for _, e := range plan.Edges {
		switch {
		case e.Target == id && e.Type != model.EdgeHierarchical:
			deps = append(deps, fmt.Sprintf("- %s from **%s**", e.Type, titleOf(plan, e.Source)))
		case e.Source == id && e.Type != model.EdgeHierarchical:
			deps = append(deps, fmt.Sprintf("- %s to **%s**", e.Type, titleOf(plan, e.Target)))
		}
	}
	if len(deps) > 0 {
		sb.WriteString("### Relations\n\n")
		sb.WriteString(strings.Join(deps, "\n"))
		sb.WriteString("\n")
	}
	sb.WriteString("\n`" + n.ID + "`\n")
	return sb.String()
}

func titleOf(plan *model.Plan, id string) string {
	if n, ok := plan.Node(id); ok && n.Title != "" {
		return escapeMD(n.Title)
	}
	return id
}

func escapeMD(s string) string {
	r := strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// mermaidID keeps ids usable as Mermaid node names.
func mermaidID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r == '_' || r == '-' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return "n_" + b.String()
}

func mermaidLabel(title string) string {
	title = strings.ReplaceAll(title, "\"", "'")
	return truncate(title, 40)
}

func mermaidArrow(t model.EdgeType) string {
	switch t {
	case model.EdgeDependency:
		return "-.->"
	case model.EdgeReference:
		return "-.-"
	case model.EdgeSequence:
		return "==>"
	default:
		return "-->"
	}
}
