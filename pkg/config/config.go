// Package config loads pv settings from defaults, a YAML config file and
// PLANVIEW_* environment variables using viper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/logging"
	"github.com/Dicklesworthstone/plan_viewer/pkg/navigation"
	"github.com/Dicklesworthstone/plan_viewer/pkg/overrides"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewport"
)

// EnvPrefix is the prefix of environment overrides, e.g. PLANVIEW_LAYOUT_DIRECTION.
const EnvPrefix = "PLANVIEW"

// Config is the complete pv configuration.
type Config struct {
	Layout   LayoutConfig   `mapstructure:"layout"`
	Viewport ViewportConfig `mapstructure:"viewport"`
	Store    StoreConfig    `mapstructure:"store"`
	Plans    PlansConfig    `mapstructure:"plans"`
	Tree     TreeConfig     `mapstructure:"tree"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// LayoutConfig controls the automatic layout.
type LayoutConfig struct {
	// Direction is TB, BT, LR or RL.
	Direction   string  `mapstructure:"direction"`
	NodeSpacing float64 `mapstructure:"node_spacing"`
	RankSpacing float64 `mapstructure:"rank_spacing"`
}

// ViewportConfig controls fit and focus framing.
type ViewportConfig struct {
	Padding   float64 `mapstructure:"padding"`
	MinZoom   float64 `mapstructure:"min_zoom"`
	MaxZoom   float64 `mapstructure:"max_zoom"`
	FocusZoom float64 `mapstructure:"focus_zoom"`
}

// StoreConfig selects where manual positions and presentation modes persist.
type StoreConfig struct {
	// Backend is memory, file or sqlite.
	Backend string `mapstructure:"backend"`
	// Path is relative to the project root unless absolute.
	Path string `mapstructure:"path"`
}

// PlansConfig locates plan files.
type PlansConfig struct {
	Dir string `mapstructure:"dir"`
	// Watch reloads the TUI when a plan file changes.
	Watch bool `mapstructure:"watch"`
}

// TreeConfig controls the tree view.
type TreeConfig struct {
	// MatchDepth is shallow or deep.
	MatchDepth string `mapstructure:"match_depth"`
	// ExpandDepth is how many levels are open when a plan is first shown.
	ExpandDepth int `mapstructure:"expand_depth"`
	// Recipes is the file with named filter presets.
	Recipes string `mapstructure:"recipes"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	lo := layout.DefaultOptions()
	vp := viewport.DefaultConfig()
	return &Config{
		Layout: LayoutConfig{
			Direction:   string(lo.Direction),
			NodeSpacing: lo.NodeSpacing,
			RankSpacing: lo.RankSpacing,
		},
		Viewport: ViewportConfig{
			Padding:   vp.Padding,
			MinZoom:   vp.MinZoom,
			MaxZoom:   vp.MaxZoom,
			FocusZoom: vp.FocusZoom,
		},
		Store: StoreConfig{
			Backend: overrides.BackendFile,
			Path:    filepath.Join(DirName, "layout.json"),
		},
		Plans: PlansConfig{
			Dir:   filepath.Join(DirName, "plans"),
			Watch: true,
		},
		Tree: TreeConfig{
			MatchDepth:  navigation.MatchDeep.String(),
			ExpandDepth: 1,
			Recipes:     filepath.Join(DirName, "recipes.yaml"),
		},
		Logging: LoggingConfig{
			Level:  logging.LevelInfo,
			Format: logging.FormatText,
		},
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("layout.direction", d.Layout.Direction)
	v.SetDefault("layout.node_spacing", d.Layout.NodeSpacing)
	v.SetDefault("layout.rank_spacing", d.Layout.RankSpacing)

	v.SetDefault("viewport.padding", d.Viewport.Padding)
	v.SetDefault("viewport.min_zoom", d.Viewport.MinZoom)
	v.SetDefault("viewport.max_zoom", d.Viewport.MaxZoom)
	v.SetDefault("viewport.focus_zoom", d.Viewport.FocusZoom)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("plans.dir", d.Plans.Dir)
	v.SetDefault("plans.watch", d.Plans.Watch)

	v.SetDefault("tree.match_depth", d.Tree.MatchDepth)
	v.SetDefault("tree.expand_depth", d.Tree.ExpandDepth)
	v.SetDefault("tree.recipes", d.Tree.Recipes)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", d.Logging.Path)
}

// NewViper returns a viper instance with defaults and environment binding.
// When path is empty the config file is looked up as .planview/config.yaml
// in the project root (see DetectProjectRoot) and the working directory.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if root, ok := DetectProjectRoot(); ok {
			v.AddConfigPath(filepath.Join(root, DirName))
		}
		v.AddConfigPath(DirName)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (if any) and env overrides into a validated Config.
// A missing config file is not an error when path is empty.
func Load(path string) (*Config, error) {
	return LoadViper(NewViper(path), path != "")
}

// LoadViper unmarshals v. When requireFile is set a missing config file is an error.
func LoadViper(v *viper.Viper, requireFile bool) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if requireFile || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// LayoutOptions converts the layout section. Call after Validate.
func (c *Config) LayoutOptions() layout.Options {
	dir, err := layout.ParseDirection(c.Layout.Direction)
	if err != nil {
		dir = layout.DefaultOptions().Direction
	}
	return layout.Options{
		Direction:   dir,
		NodeSpacing: c.Layout.NodeSpacing,
		RankSpacing: c.Layout.RankSpacing,
	}
}

// ViewportConfig converts the viewport section.
func (c *Config) ViewportConfig() viewport.Config {
	return viewport.Config{
		Padding:   c.Viewport.Padding,
		MinZoom:   c.Viewport.MinZoom,
		MaxZoom:   c.Viewport.MaxZoom,
		FocusZoom: c.Viewport.FocusZoom,
	}
}

// MatchDepth converts tree.match_depth, falling back to deep matching.
func (c *Config) MatchDepth() navigation.MatchDepth {
	d, err := navigation.ParseMatchDepth(c.Tree.MatchDepth)
	if err != nil {
		return navigation.MatchDeep
	}
	return d
}

// LoggingOptions converts the logging section.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.Logging.Level, Format: c.Logging.Format, Path: c.Logging.Path}
}

// StorePath resolves store.path against base when it is relative.
func (c *Config) StorePath(base string) string {
	return resolve(base, c.Store.Path)
}

// RecipesPath resolves tree.recipes against base when it is relative.
func (c *Config) RecipesPath(base string) string {
	return resolve(base, c.Tree.Recipes)
}

// PlansDir resolves plans.dir against base when it is relative.
func (c *Config) PlansDir(base string) string {
	return resolve(base, c.Plans.Dir)
}

func resolve(base, p string) string {
	p = expandHome(p)
	if p == "" || filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}
