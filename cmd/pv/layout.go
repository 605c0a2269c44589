package main

import (
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/plan_viewer/pkg/export"
)

func newLayoutCmd(a *app) *cobra.Command {
	var computedOnly bool

	cmd := &cobra.Command{
		Use:     "layout [plan]",
		Short:   "Print node positions and edge routes as JSON",
		GroupID: "layout",
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
			snap := s.Snapshot()
			if computedOnly {
				return export.WriteJSON(cmd.OutOrStdout(), snap.Plan, snap.Computed, nil)
			}
			return export.WriteJSON(cmd.OutOrStdout(), snap.Plan, snap.Layout, &snap.Computed)
		},
	}
	cmd.Flags().BoolVar(&computedOnly, "computed", false, "ignore manual positions")
	return cmd
}
