package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/logging"
	"github.com/Dicklesworthstone/plan_viewer/pkg/navigation"
	"github.com/Dicklesworthstone/plan_viewer/pkg/overrides"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string // config key, e.g. "layout.direction"
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid setting found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidBackends lists the accepted store.backend values.
func ValidBackends() []string {
	return []string{overrides.BackendMemory, overrides.BackendFile, overrides.BackendSQLite}
}

// Validate checks c and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if _, err := layout.ParseDirection(c.Layout.Direction); err != nil {
		add("layout.direction", c.Layout.Direction, "must be one of TB, BT, LR, RL")
	}
	if !positive(c.Layout.NodeSpacing) {
		add("layout.node_spacing", c.Layout.NodeSpacing, "must be positive")
	}
	if !positive(c.Layout.RankSpacing) {
		add("layout.rank_spacing", c.Layout.RankSpacing, "must be positive")
	}

	if c.Viewport.Padding < 0 || math.IsNaN(c.Viewport.Padding) {
		add("viewport.padding", c.Viewport.Padding, "must not be negative")
	}
	if !positive(c.Viewport.MinZoom) {
		add("viewport.min_zoom", c.Viewport.MinZoom, "must be positive")
	}
	if !positive(c.Viewport.MaxZoom) {
		add("viewport.max_zoom", c.Viewport.MaxZoom, "must be positive")
	}
	if c.Viewport.MinZoom > c.Viewport.MaxZoom {
		add("viewport.min_zoom", c.Viewport.MinZoom, fmt.Sprintf("must not exceed max_zoom (%v)", c.Viewport.MaxZoom))
	}
	if !positive(c.Viewport.FocusZoom) {
		add("viewport.focus_zoom", c.Viewport.FocusZoom, "must be positive")
	}

	backend := strings.ToLower(c.Store.Backend)
	switch backend {
	case overrides.BackendMemory:
	case overrides.BackendFile, overrides.BackendSQLite:
		if c.Store.Path == "" {
			add("store.path", c.Store.Path, "is required for the "+backend+" backend")
		}
	default:
		add("store.backend", c.Store.Backend, "must be one of "+strings.Join(ValidBackends(), ", "))
	}

	if c.Plans.Dir == "" {
		add("plans.dir", c.Plans.Dir, "must not be empty")
	}

	if _, err := navigation.ParseMatchDepth(c.Tree.MatchDepth); err != nil {
		add("tree.match_depth", c.Tree.MatchDepth, "must be deep or shallow")
	}
	if c.Tree.ExpandDepth < 0 {
		add("tree.expand_depth", c.Tree.ExpandDepth, "must not be negative")
	}

	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		add("logging.level", c.Logging.Level, "must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		add("logging.format", c.Logging.Format, "must be text or json")
	}

	return errs
}

func positive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}
