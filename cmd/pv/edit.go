package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewsync"
)

func parseCoord(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s coordinate %q", name, s)
	}
	return v, nil
}

func newMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <plan> <node> <x> <y>",
		Short: "Pin a node at a manual position",
		Long: `Pin a node at (x, y) in graph units. The position is kept across
layout runs until pv reset clears it. Put -- before negative coordinates:

  pv move launch beta -- 120 -40`,
		GroupID: "layout",
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, nodeID := args[0], args[1]
			x, err := parseCoord("x", args[2])
			if err != nil {
				return err
			}
			y, err := parseCoord("y", args[3])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := a.openPlan(ctx, planID)
			if err != nil {
				return notFound(err, planID)
			}
			a.ensureIgnored()
			if err := s.Dispatch(ctx, viewsync.DragEnd{NodeID: nodeID, Position: model.Point{X: x, Y: y}}); err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"plan_id": planID, "node_id": nodeID, "position": model.Point{X: x, Y: y},
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to (%g, %g)\n", nodeID, x, y)
			return nil
		},
	}
}

func newModeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "mode <plan> [graph|tree|split]",
		Short:     "Show or set the presentation mode of a plan",
		GroupID:   "layout",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{string(model.ModeGraph), string(model.ModeTree), string(model.ModeSplit)},
		RunE: func(cmd *cobra.Command, args []string) error {
			planID := args[0]
			ctx := cmd.Context()
			s, err := a.openPlan(ctx, planID)
			if err != nil {
				return notFound(err, planID)
			}

			if len(args) == 2 {
				mode := model.PresentationMode(args[1])
				if !mode.IsValid() {
					return fmt.Errorf("invalid mode %q (want graph, tree or split)", args[1])
				}
				a.ensureIgnored()
				if err := s.Dispatch(ctx, viewsync.SetMode{Mode: mode}); err != nil {
					return err
				}
			}

			mode := s.Snapshot().Mode
			if a.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"plan_id": planID, "mode": string(mode)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), mode)
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "reset <plan>",
		Short:   "Discard every manual position of a plan",
		GroupID: "layout",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID := args[0]
			ctx := cmd.Context()
			s, err := a.openPlan(ctx, planID)
			if err != nil {
				return notFound(err, planID)
			}
			if err := s.Dispatch(ctx, viewsync.ResetLayout{}); err != nil {
				return err
			}
			if !a.jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "Layout of %s reset\n", planID)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{"plan_id": planID, "status": "reset"})
		},
	}
}
