package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/plan_viewer/pkg/recipe"
)

// recipes loads the built-in presets merged with tree.recipes.
func (a *app) recipes() ([]recipe.Recipe, error) {
	return recipe.Load(a.cfg.RecipesPath(a.root))
}

// recipe returns the preset called name.
func (a *app) recipe(name string) (recipe.Recipe, error) {
	all, err := a.recipes()
	if err != nil {
		return recipe.Recipe{}, err
	}
	r, ok := recipe.Find(all, name)
	if !ok {
		names := make([]string, len(all))
		for i, r := range all {
			names[i] = r.Name
		}
		return recipe.Recipe{}, fmt.Errorf("unknown recipe %q, one of: %s", name, strings.Join(names, ", "))
	}
	return r, nil
}

func newRecipesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recipes",
		Short: "List the named tree views usable with pv tree --recipe",
		Long: `List the built-in view presets and those defined in tree.recipes
(default .planview/recipes.yaml). A file recipe replaces the built-in of the
same name.`,
		GroupID: "views",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := a.recipes()
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), all)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, r := range all {
				fmt.Fprintf(w, "%s\t%s\n", r.Name, r.Description)
			}
			return w.Flush()
		},
	}
}
