package commands

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"price_watcher/internal/api"
	"price_watcher/internal/scheduler"
)

var noScheduler bool

func init() {
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve HTTP only; runs come from the cron endpoint")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API and the periodic scrape scheduler.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if cfg.HTTP.CronSecret == "" {
			logger.Warn("http.cron_secret is empty, the cron endpoint will reject every request")
		}

		gin.SetMode(gin.ReleaseMode)
		handler := api.NewHandler(a.batch, a.pipeline, cfg.HTTP.CronSecret, logger)
		srv := &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: api.NewRouter(handler, logger),
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logger.Info("http server listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if !noScheduler {
			sched := scheduler.NewScheduler(a.batch, cfg.Scrape.Interval, cfg.Scrape.RunTimeout, logger)
			g.Go(func() error {
				if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("shutdown complete")
		return nil
	},
}
