package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/plan_viewer/pkg/export"
	"github.com/Dicklesworthstone/plan_viewer/pkg/layout"
	"github.com/Dicklesworthstone/plan_viewer/pkg/loader"
	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
	"github.com/Dicklesworthstone/plan_viewer/pkg/overrides"
)

// planRenderer lays out plans from the file source for the preview server.
type planRenderer struct {
	source *loader.FileSource
	store  *overrides.Store
	engine *layout.Engine
}

var _ export.PlanRenderer = (*planRenderer)(nil)

func (r *planRenderer) PlanIDs() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	plans, err := r.source.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(plans))
	for _, p := range plans {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *planRenderer) Render(ctx context.Context, planID string) (*model.Plan, layout.Result, error) {
	plan, err := r.source.FetchPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, loader.ErrPlanNotFound) || errors.Is(err, loader.ErrInvalidPlanID) {
			return nil, layout.Result{}, fmt.Errorf("%w: %s", export.ErrUnknownPlan, planID)
		}
		return nil, layout.Result{}, err
	}
	res := r.engine.Layout(plan.Nodes, plan.AllEdges())
	return plan, overrides.Merge(res, r.store.Load(ctx, planID)), nil
}

func (a *app) layoutEngine() *layout.Engine {
	return layout.New(a.cfg.LayoutOptions(), a.logger.Logger)
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live preview of every plan over HTTP",
		Long: `Serve an index of plans and one page per plan with the rendered graph.

Pages reload when their plan file changes. Raw renderings are available at
/plan/<id>.svg, .png and .json.`,
		GroupID: "system",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr, func(ln net.Listener) {
				fmt.Fprintf(cmd.OutOrStdout(), "Serving plans from %s at http://%s\n", a.source.Dir(), ln.Addr())
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7878", "listen address")
	return cmd
}

// serve runs the preview server until ctx is done. ready is called once the
// listener is bound.
func (a *app) serve(ctx context.Context, addr string, ready func(net.Listener)) error {
	logger := a.logger.Logger
	hub := export.NewLiveReloadHub()
	defer hub.Close()

	if a.cfg.Plans.Watch {
		if w, err := loader.NewWatcher(a.source.Dir(), loader.DefaultDebounce, logger); err != nil {
			logger.Warn("pv: live reload disabled", "error", err)
		} else if err := w.Start(); err != nil {
			logger.Warn("pv: live reload disabled", "error", err)
			w.Stop()
		} else {
			defer w.Stop()
			go hub.Run(ctx, w.Events())
		}
	}

	renderer := &planRenderer{
		source: a.source,
		store:  a.store,
		engine: a.layoutEngine(),
	}
	srv := &http.Server{
		Handler:           export.NewPreviewServer(renderer, hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if ready != nil {
		ready(ln)
	}
	logger.Info("pv: preview server listening", "addr", ln.Addr().String(), "plans", a.source.Dir())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("pv: shutting down preview server")
	// Open SSE streams never finish on their own.
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("pv: shutdown", slog.Any("error", err))
		return srv.Close()
	}
	return nil
}
