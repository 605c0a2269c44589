package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/plan_viewer/pkg/loader"
)

func newPlansCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "plans",
		Short:   "List the plans in the plans directory",
		GroupID: "views",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := a.source.ListPlans(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOutput {
				if plans == nil {
					plans = []loader.PlanInfo{}
				}
				return writeJSON(out, plans)
			}
			if len(plans) == 0 {
				fmt.Fprintf(out, "No plans found in %s\n", a.source.Dir())
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tNODES\tDONE\tFORMAT")
			for _, p := range plans {
				if p.Err != "" {
					fmt.Fprintf(w, "%s\t(unreadable: %s)\t-\t-\t%s\n", p.ID, p.Err, p.Format)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", p.ID, p.Title, p.NodeCount, p.Done, p.Format)
			}
			return w.Flush()
		},
	}
}
