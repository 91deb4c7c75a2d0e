package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/fengrid/internal/config"
	"github.com/park285/fengrid/internal/httpfast"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Args:  cobra.ExactArgs(0),
	Short: "Serve the board generator page and render API",
}

func init() {
	p := serveCmd.Flags()
	addr := p.StringP(
		"addr", "a", "",
		"listen address (default from config: :8080)")

	serveCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd, func(cfg *config.AppConfig) {
			if *addr != "" {
				cfg.ListenAddr = *addr
			}
		})
		if err != nil {
			return err
		}
		defer a.close()

		svc := a.newService()
		srv, err := httpfast.NewServer(svc, a.msgs,
			httpfast.WithLogger(a.logger),
			httpfast.WithMaxBodyBytes(a.cfg.MaxBodyBytes),
			httpfast.WithRenderLimit(a.cfg.RenderRateLimit, a.cfg.RenderBurst),
		)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return srv.ListenAndServe(a.cfg.ListenAddr)
		})
		// Requests get 503 not_ready until this finishes.
		g.Go(func() error {
			pctx, pcancel := context.WithTimeout(gctx, a.cfg.PreloadTimeout())
			defer pcancel()
			started := time.Now()
			if err := svc.Preload(pctx); err != nil {
				return fmt.Errorf("preload glyphs: %w", err)
			}
			a.logger.Info("service_ready",
				zap.Int("glyphs", svc.Glyphs().Len()),
				zap.Duration("elapsed", time.Since(started)),
			)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer scancel()
			a.logger.Info("http_shutdown")
			return srv.Shutdown(sctx)
		})

		if err := g.Wait(); err != nil {
			a.logger.Error("serve_stopped", zap.Error(err))
			return err
		}
		return nil
	}
}
