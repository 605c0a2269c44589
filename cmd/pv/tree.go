package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"github.com/Dicklesworthstone/plan_viewer/pkg/navigation"
	"github.com/Dicklesworthstone/plan_viewer/pkg/ui"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewsync"
)

type treeRow struct {
	ID          string         `json:"id"`
	ParentID    string         `json:"parent_id,omitempty"`
	Title       string         `json:"title"`
	NodeType    model.NodeType `json:"node_type"`
	Status      model.Status   `json:"status"`
	Depth       int            `json:"depth"`
	HasChildren bool           `json:"has_children"`
	Expanded    bool           `json:"expanded"`
	Dimmed      bool           `json:"dimmed,omitempty"`
}

func toTreeRows(rows []navigation.Row) []treeRow {
	out := make([]treeRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, treeRow{
			ID:          r.Node.ID,
			ParentID:    r.Node.ParentID,
			Title:       r.Node.Title,
			NodeType:    r.Node.NodeType,
			Status:      r.Node.Status,
			Depth:       r.Depth,
			HasChildren: r.HasChildren,
			Expanded:    r.Expanded,
			Dimmed:      r.Dimmed,
		})
	}
	return out
}

func newTreeCmd(a *app) *cobra.Command {
	var (
		search    string
		status    string
		nodeType  string
		expandAll bool
		selectID  string
		recipeArg string
	)

	cmd := &cobra.Command{
		Use:   "tree [plan]",
		Short: "Print the visible tree rows of a plan",
		Long: `Print the plan as the tree view shows it.

Filters hide non-matching nodes; ancestors of matches stay visible and are
dimmed. --all expands every node, otherwise tree.expand_depth levels are open.
--recipe applies a named preset (see pv recipes); other flags refine it.`,
		GroupID: "views",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			planID, err := a.planArg(ctx, args)
			if err != nil {
				return err
			}
			s, err := a.openPlan(ctx, planID)
			if err != nil {
				return notFound(err, planID)
			}

			var intents []viewsync.Intent
			if recipeArg != "" {
				r, err := a.recipe(recipeArg)
				if err != nil {
					return err
				}
				for _, in := range r.Intents() {
					// The printed tree has no mode.
					if _, ok := in.(viewsync.SetMode); !ok {
						intents = append(intents, in)
					}
				}
			}
			// Explicit flags refine the recipe.
			flags := cmd.Flags()
			if recipeArg == "" || flags.Changed("search") {
				intents = append(intents, viewsync.ChangeFilter{Field: viewsync.FilterSearch, Value: search})
			}
			if recipeArg == "" || flags.Changed("status") {
				intents = append(intents, viewsync.ChangeFilter{Field: viewsync.FilterStatus, Value: status})
			}
			if recipeArg == "" || flags.Changed("type") {
				intents = append(intents, viewsync.ChangeFilter{Field: viewsync.FilterType, Value: nodeType})
			}
			if expandAll {
				intents = append(intents, viewsync.ExpandAll{})
			}
			if selectID != "" {
				intents = append(intents, viewsync.Select{NodeID: selectID})
			}
			for _, in := range intents {
				if err := s.Dispatch(ctx, in); err != nil {
					return err
				}
			}

			rows := s.Snapshot().Rows
			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return writeJSON(out, toTreeRows(rows))
			}

			cols, _ := terminalSize(out)
			tv := ui.NewTreeView(ui.DefaultTheme(lipgloss.NewRenderer(out)))
			tv.SetSize(cols, max(len(rows), 1))
			fmt.Fprintln(out, tv.View(rows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "q", "", "show nodes whose title or description contains this text")
	cmd.Flags().StringVar(&status, "status", navigation.FilterAll, "status filter: all, not_started, in_progress, completed, blocked")
	cmd.Flags().StringVar(&nodeType, "type", navigation.FilterAll, "type filter: all, root, phase, task, milestone")
	cmd.Flags().BoolVarP(&expandAll, "all", "a", false, "expand every node")
	cmd.Flags().StringVarP(&recipeArg, "recipe", "r", "", "apply a named view preset")
	cmd.Flags().StringVar(&selectID, "select", "", "select this node (reveals it by expanding its ancestors)")
	return cmd
}
