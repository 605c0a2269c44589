package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/plan_viewer/pkg/loader"
	"github.com/Dicklesworthstone/plan_viewer/pkg/ui"
)

// errNoTerminal is returned when the TUI is started without a terminal.
var errNoTerminal = errors.New("pv tui needs an interactive terminal; try pv tree or pv export")

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [plan]",
		Short: "Browse a plan in the terminal",
		Long: `Open the interactive viewer. The graph and the tree share one selection.

Without a plan id the only plan in the directory is opened; with several the
plan picker is shown. Press ? for key bindings.`,
		GroupID: "views",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdout) {
				return errNoTerminal
			}
			ctx := cmd.Context()
			logger := a.logger.Logger

			s := a.newSync()
			planID, err := a.planArg(ctx, args)
			if err != nil {
				if len(args) > 0 {
					return err
				}
				logger.Info("pv: starting without a plan", "reason", err)
			}
			if planID != "" {
				if err := s.SwitchPlan(ctx, planID); err != nil {
					return notFound(err, planID)
				}
			}
			a.ensureIgnored()

			m := ui.NewModel(s, ui.Options{
				Logger: logger,
				Plans:  a.source.ListPlans,
			})
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

			// Send blocks while Update runs, and intents dispatched from
			// Update emit synchronously.
			unsubscribe := ui.Subscribe(s, func(msg tea.Msg) { go p.Send(msg) })
			defer unsubscribe()

			if a.cfg.Plans.Watch {
				w, err := loader.NewWatcher(a.source.Dir(), loader.DefaultDebounce, logger)
				if err == nil {
					if err = w.Start(); err != nil {
						w.Stop()
					}
				}
				if err != nil {
					logger.Warn("pv: file watching disabled", "error", err)
				} else {
					defer w.Stop()
					worker := ui.NewBackgroundWorker(ui.WorkerConfig{
						Fetcher: s,
						Events:  w.Events(),
						Send:    p.Send,
						Logger:  logger,
					})
					worker.Start()
					defer worker.Stop()
				}
			}

			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("run viewer: %w", err)
			}
			return nil
		},
	}
}
