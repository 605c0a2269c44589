package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/plan_viewer/pkg/config"
	"github.com/Dicklesworthstone/plan_viewer/pkg/loader"
	"github.com/Dicklesworthstone/plan_viewer/pkg/logging"
	"github.com/Dicklesworthstone/plan_viewer/pkg/overrides"
	"github.com/Dicklesworthstone/plan_viewer/pkg/viewsync"
)

// app carries the flags shared by every command and the services built from
// them in PersistentPreRunE.
type app struct {
	configPath string
	plansDir   string
	logLevel   string
	jsonOutput bool

	root   string
	cfg    *config.Config
	logger *logging.Logger
	source *loader.FileSource
	store  *overrides.Store
}

// execute builds the command tree, runs it with args and releases whatever
// the command opened.
func execute(args []string, out, errOut io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "pv <command>",
		Short:         "Browse hierarchical plans as a synchronized graph and tree",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default .planview/config.yaml)")
	root.PersistentFlags().StringVar(&a.plansDir, "dir", "", "plans directory (overrides plans.dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: DEBUG, INFO, WARN or ERROR")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "output as JSON")

	root.AddGroup(
		&cobra.Group{ID: "views", Title: "Views:"},
		&cobra.Group{ID: "layout", Title: "Layout:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	// Views
	root.AddCommand(newTUICmd(a))
	root.AddCommand(newTreeCmd(a))
	root.AddCommand(newPlansCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newInsightsCmd(a))
	root.AddCommand(newRecipesCmd(a))

	// Layout
	root.AddCommand(newLayoutCmd(a))
	root.AddCommand(newFitCmd(a))
	root.AddCommand(newMoveCmd(a))
	root.AddCommand(newModeCmd(a))
	root.AddCommand(newResetCmd(a))

	// System
	root.AddCommand(newServeCmd(a))

	return root
}

// setup reads the configuration and opens the plan source and override
// store. The TUI logs to a file or nowhere; other commands log to stderr.
func (a *app) setup(cmd *cobra.Command) error {
	v := config.NewViper(a.configPath)
	if f := cmd.Root().PersistentFlags().Lookup("log-level"); f != nil && f.Changed {
		if err := v.BindPFlag("logging.level", f); err != nil {
			return err
		}
	}
	cfg, err := config.LoadViper(v, a.configPath != "")
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.root = config.ProjectRoot()

	var fallback io.Writer = cmd.ErrOrStderr()
	if cmd.Name() == "tui" {
		fallback = io.Discard
	}
	logger, err := logging.New(cfg.LoggingOptions(), fallback)
	if err != nil {
		return err
	}
	a.logger = logger

	dir := cfg.PlansDir(a.root)
	if a.plansDir != "" {
		if dir, err = filepath.Abs(a.plansDir); err != nil {
			return fmt.Errorf("plans directory: %w", err)
		}
	}
	a.source = loader.NewFileSource(dir, logger.Logger)

	kv, err := overrides.Open(cfg.Store.Backend, cfg.StorePath(a.root))
	if err != nil {
		return fmt.Errorf("open layout store: %w", err)
	}
	a.store = overrides.NewStore(kv, logger.Logger)

	logger.Debug("pv: ready", "command", cmd.Name(), "plans", dir, "store", cfg.Store.Backend)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Warn("pv: closing layout store", "error", err)
		}
		a.store = nil
	}
	if a.logger != nil {
		a.logger.Close()
		a.logger = nil
	}
}

// newSync builds a synchronizer from the configuration.
func (a *app) newSync() *viewsync.Synchronizer {
	return viewsync.New(a.source, a.store, viewsync.Options{
		Layout:      a.cfg.LayoutOptions(),
		Viewport:    a.cfg.ViewportConfig(),
		MatchDepth:  a.cfg.MatchDepth(),
		ExpandDepth: a.cfg.Tree.ExpandDepth,
		Logger:      a.logger.Logger,
	})
}

// openPlan returns a synchronizer with planID loaded.
func (a *app) openPlan(ctx context.Context, planID string) (*viewsync.Synchronizer, error) {
	s := a.newSync()
	if err := s.SwitchPlan(ctx, planID); err != nil {
		return nil, err
	}
	return s, nil
}

// planArg picks the plan named in args, or the only plan in the directory.
func (a *app) planArg(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	plans, err := a.source.ListPlans(ctx)
	if err != nil {
		return "", err
	}
	switch len(plans) {
	case 0:
		return "", fmt.Errorf("no plans in %s", a.source.Dir())
	case 1:
		return plans[0].ID, nil
	}
	ids := make([]string, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
	}
	return "", fmt.Errorf("plan id required, one of: %s", strings.Join(ids, ", "))
}

// ensureIgnored keeps a file-backed layout store out of version control.
// Failures are logged; the store still works.
func (a *app) ensureIgnored() {
	if a.cfg.Store.Backend == overrides.BackendMemory {
		return
	}
	if _, ok := config.DetectProjectRoot(); !ok {
		return
	}
	rel, err := filepath.Rel(a.root, a.cfg.StorePath(a.root))
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	if err := loader.EnsureIgnored(a.root, rel); err != nil {
		a.logger.Warn("pv: updating .gitignore", "error", err)
	}
}

// notFound rewrites a missing plan error into one line for the terminal.
func notFound(err error, planID string) error {
	if errors.Is(err, loader.ErrPlanNotFound) {
		return fmt.Errorf("plan %q not found", planID)
	}
	return err
}
