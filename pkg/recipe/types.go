// Package recipe provides named tree views: a filter combination plus how
// much of the tree to open and which presentation mode to use.
package recipe

import (
	"fmt"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"github.com/Dicklesworthstone/plan_viewer/pkg/navigation"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewsync"
)

// Recipe defines a reusable view of a plan
type Recipe struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Filters     FilterConfig `yaml:"filters,omitempty" json:"filters,omitempty"`
	View        ViewConfig   `yaml:"view,omitempty" json:"view,omitempty"`
}

// FilterConfig defines which nodes match
type FilterConfig struct {
	Search string `yaml:"search,omitempty" json:"search,omitempty"` // Title or description substring
	Status string `yaml:"status,omitempty" json:"status,omitempty"` // all, not_started, in_progress, completed, blocked
	Type   string `yaml:"type,omitempty" json:"type,omitempty"`     // all, root, phase, task, milestone
}

// ViewConfig controls display options
type ViewConfig struct {
	ExpandAll bool   `yaml:"expand_all,omitempty" json:"expand_all,omitempty"` // Open every node
	Mode      string `yaml:"mode,omitempty" json:"mode,omitempty"`             // graph, tree, split; empty keeps the stored mode
}

// Validate reports the first invalid field.
func (r Recipe) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("recipe without a name")
	}
	if s := r.Filters.Status; s != "" && s != navigation.FilterAll && !model.Status(s).IsValid() {
		return fmt.Errorf("recipe %q: invalid status %q", r.Name, s)
	}
	if m := r.View.Mode; m != "" && !model.PresentationMode(m).IsValid() {
		return fmt.Errorf("recipe %q: invalid mode %q", r.Name, m)
	}
	return nil
}

// Intents returns the synchronizer intents that apply r. Every filter is
// set, so a recipe replaces whatever filters were active.
func (r Recipe) Intents() []viewsync.Intent {
	orAll := func(s string) string {
		if s == "" {
			return navigation.FilterAll
		}
		return s
	}
	intents := []viewsync.Intent{
		viewsync.ChangeFilter{Field: viewsync.FilterSearch, Value: r.Filters.Search},
		viewsync.ChangeFilter{Field: viewsync.FilterStatus, Value: orAll(r.Filters.Status)},
		viewsync.ChangeFilter{Field: viewsync.FilterType, Value: orAll(r.Filters.Type)},
	}
	if r.View.ExpandAll {
		intents = append(intents, viewsync.ExpandAll{})
	}
	if r.View.Mode != "" {
		intents = append(intents, viewsync.SetMode{Mode: model.PresentationMode(r.View.Mode)})
	}
	return intents
}

// DefaultRecipe returns the unfiltered view
func DefaultRecipe() Recipe {
	return Recipe{
		Name:        "default",
		Description: "Every node, opened to the configured depth",
	}
}

// BlockedRecipe returns a recipe showing blocked work
func BlockedRecipe() Recipe {
	return Recipe{
		Name:        "blocked",
		Description: "Blocked nodes and their ancestors",
		Filters:     FilterConfig{Status: string(model.StatusBlocked)},
		View:        ViewConfig{ExpandAll: true},
	}
}

// ActiveRecipe returns a recipe for work in progress
func ActiveRecipe() Recipe {
	return Recipe{
		Name:        "active",
		Description: "Nodes in progress",
		Filters:     FilterConfig{Status: string(model.StatusInProgress)},
		View:        ViewConfig{ExpandAll: true},
	}
}

// TodoRecipe returns a recipe for work not yet started
func TodoRecipe() Recipe {
	return Recipe{
		Name:        "todo",
		Description: "Nodes not started yet",
		Filters:     FilterConfig{Status: string(model.StatusNotStarted)},
		View:        ViewConfig{ExpandAll: true},
	}
}

// DoneRecipe returns a recipe for completed work
func DoneRecipe() Recipe {
	return Recipe{
		Name:        "done",
		Description: "Completed nodes",
		Filters:     FilterConfig{Status: string(model.StatusCompleted)},
		View:        ViewConfig{ExpandAll: true},
	}
}

// MilestonesRecipe returns a recipe listing milestones
func MilestonesRecipe() Recipe {
	return Recipe{
		Name:        "milestones",
		Description: "Milestones in the context of their phases",
		Filters:     FilterConfig{Type: string(model.TypeMilestone)},
		View:        ViewConfig{ExpandAll: true},
	}
}

// BuiltinRecipes returns all built-in recipes
func BuiltinRecipes() []Recipe {
	return []Recipe{
		DefaultRecipe(),
		ActiveRecipe(),
		TodoRecipe(),
		BlockedRecipe(),
		DoneRecipe(),
		MilestonesRecipe(),
	}
}
