package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/plan_viewer/pkg/export"
)

// Export formats.
const (
	formatSVG  = "svg"
	formatPNG  = "png"
	formatJSON = "json"
	formatMD   = "md"
)

// formatFromOutput guesses the format from a file extension.
func formatFromOutput(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return formatSVG
	case ".png":
		return formatPNG
	case ".json":
		return formatJSON
	case ".md", ".markdown":
		return formatMD
	}
	return ""
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
		scale  float64
	)

	cmd := &cobra.Command{
		Use:   "export [plan]",
		Short: "Render a plan to SVG, PNG, JSON or Markdown",
		Long: `Render a plan with its current layout, manual positions included.

The format defaults to the --output extension, then to svg. PNG output is
binary and needs --output unless stdout is redirected.`,
		GroupID: "views",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = formatFromOutput(output)
			}
			if format == "" {
				format = formatSVG
			}
			format = strings.ToLower(format)
			switch format {
			case formatSVG, formatPNG, formatJSON, formatMD:
			default:
				return fmt.Errorf("unknown format %q (want svg, png, json or md)", format)
			}

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

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			} else if format == formatPNG && isTerminal(w) {
				return fmt.Errorf("refusing to write PNG to a terminal; use --output")
			}

			switch format {
			case formatSVG:
				err = export.WriteSVG(w, snap.Plan, snap.Layout)
			case formatPNG:
				err = export.WritePNG(w, snap.Plan, snap.Layout, scale)
			case formatJSON:
				err = export.WriteJSON(w, snap.Plan, snap.Layout, &snap.Computed)
			case formatMD:
				err = export.WriteMarkdown(w, snap.Plan)
			}
			if err != nil {
				return fmt.Errorf("export %s: %w", format, err)
			}
			if f, ok := w.(*os.File); ok && output != "" && output != "-" {
				if err := f.Sync(); err != nil {
					return err
				}
				a.logger.Info("pv: exported", "plan", planID, "format", format, "path", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "svg, png, json or md")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().Float64Var(&scale, "scale", 1, "PNG pixel scale")
	return cmd
}
