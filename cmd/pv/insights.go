package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/plan_viewer/pkg/analysis"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

func newInsightsCmd(a *app) *cobra.Command {
	cfg := analysis.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "insights [plan]",
		Short: "Show progress, ready work and dependency hot spots of a plan",
		Long: `Analyze the dependency and sequence edges of a plan.

Reports progress by status, the nodes ready to start, the open nodes whose
completion unlocks the most work, the longest open chain, bottlenecks and
dependency cycles.`,
		GroupID: "views",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			planID, err := a.planArg(ctx, args)
			if err != nil {
				return err
			}
			plan, err := a.source.FetchPlan(ctx, planID)
			if err != nil {
				return notFound(err, planID)
			}
			ins := analysis.NewAnalyzer(plan).Insights(cfg)
			if a.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), ins)
			}
			writeInsights(cmd.OutOrStdout(), plan, ins)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.UnlockLimit, "unlocks", cfg.UnlockLimit, "max nodes in the unlock set")
	cmd.Flags().IntVar(&cfg.BottleneckLimit, "bottlenecks", cfg.BottleneckLimit, "max bottlenecks")
	cmd.Flags().IntVar(&cfg.CycleLimit, "cycles", cfg.CycleLimit, "max cycles")
	return cmd
}

func writeInsights(w io.Writer, plan *model.Plan, ins *analysis.Insights) {
	title := plan.ID
	if root, ok := plan.Root(); ok && root.Title != "" {
		title = root.Title
	}
	p := ins.Progress
	fmt.Fprintf(w, "%s: %d/%d done (%.1f%%)\n", title, p.Done, p.Total, p.Percent)
	var counts []string
	for _, s := range model.KnownStatuses {
		counts = append(counts, fmt.Sprintf("%s %d", s, p.ByStatus[s]))
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(counts, ", "))

	fmt.Fprintln(w, "\nReady:")
	if len(ins.Ready) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, id := range ins.Ready {
		fmt.Fprintf(w, "  %s\n", label(plan, id))
	}

	if len(ins.Unlocks.Items) > 0 {
		fmt.Fprintln(w, "\nUnlocks most:")
		for _, it := range ins.Unlocks.Items {
			fmt.Fprintf(w, "  %s -> %s\n", label(plan, it.ID), strings.Join(it.Unblocks, ", "))
		}
	}

	fmt.Fprintln(w, "\nCritical path:")
	switch cp := ins.CriticalPath; {
	case cp.Status.State == analysis.StateSkipped:
		fmt.Fprintf(w, "  skipped: %s\n", cp.Status.Reason)
	case len(cp.Path) == 0:
		fmt.Fprintln(w, "  (none)")
	default:
		fmt.Fprintf(w, "  %s\n", strings.Join(cp.Path, " -> "))
	}

	if len(ins.Bottlenecks.Items) > 0 {
		fmt.Fprintln(w, "\nBottlenecks:")
		for _, it := range ins.Bottlenecks.Items {
			fmt.Fprintf(w, "  %s  %.2f\n", label(plan, it.ID), it.Score)
		}
	}

	if len(ins.Cycles.Cycles) > 0 {
		fmt.Fprintln(w, "\nCycles:")
		for _, c := range ins.Cycles.Cycles {
			fmt.Fprintf(w, "  %s\n", strings.Join(c, " -> "))
		}
	}
}

// label renders a node as "id  title".
func label(plan *model.Plan, id string) string {
	if n, ok := plan.Node(id); ok && n.Title != "" {
		return id + "  " + n.Title
	}
	return id
}
