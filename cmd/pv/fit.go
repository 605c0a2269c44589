package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"github.com/Dicklesworthstone/plan_viewer/pkg/ui"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewport"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewsync"
)

// Terminal size assumed when output is not a terminal.
const (
	defaultCols = 120
	defaultRows = 40
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalSize returns the cell size of w, or the defaults.
func terminalSize(w io.Writer) (cols, rows int) {
	if f, ok := w.(*os.File); ok {
		if c, r, err := term.GetSize(int(f.Fd())); err == nil && c > 0 && r > 0 {
			return c, r
		}
	}
	return defaultCols, defaultRows
}

type fitResult struct {
	PlanID    string             `json:"plan_id"`
	Focus     string             `json:"focus,omitempty"`
	Size      model.Size         `json:"size"`
	Transform viewport.Transform `json:"transform"`
}

func newFitCmd(a *app) *cobra.Command {
	var (
		width, height float64
		focus         string
	)

	cmd := &cobra.Command{
		Use:   "fit [plan]",
		Short: "Compute the viewport that frames a plan (or one node)",
		Long: `Compute the pan and zoom that frame the whole plan in a canvas.

The canvas defaults to the terminal size in graph units. With --node the
viewport centers on that node instead.`,
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

			size := model.Size{Width: width, Height: height}
			if size.Width <= 0 || size.Height <= 0 {
				cols, rows := terminalSize(cmd.OutOrStdout())
				cells := ui.CanvasSize(cols, rows)
				if size.Width <= 0 {
					size.Width = cells.Width
				}
				if size.Height <= 0 {
					size.Height = cells.Height
				}
			}
			if err := s.Dispatch(ctx, viewsync.Resize{Size: size}); err != nil {
				return err
			}
			if err := s.Dispatch(ctx, viewsync.FitView{}); err != nil {
				return err
			}
			if focus != "" {
				if err := s.Dispatch(ctx, viewsync.Select{NodeID: focus}); err != nil {
					return fmt.Errorf("focus %q: %w", focus, err)
				}
			}

			snap := s.Snapshot()
			res := fitResult{PlanID: planID, Focus: focus, Size: snap.Size, Transform: snap.Transform}
			if a.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			t := res.Transform
			fmt.Fprintf(cmd.OutOrStdout(), "%s: zoom %.3f, pan (%.1f, %.1f) in a %.0fx%.0f canvas\n",
				planID, t.Zoom, t.X, t.Y, res.Size.Width, res.Size.Height)
			return nil
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "canvas width in graph units (default: terminal width)")
	cmd.Flags().Float64Var(&height, "height", 0, "canvas height in graph units (default: terminal height)")
	cmd.Flags().StringVar(&focus, "node", "", "center on this node")
	return cmd
}
