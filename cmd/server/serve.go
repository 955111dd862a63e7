package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warp/worktime/absence"
	"github.com/warp/worktime/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.close()

		scheduler := startReconcile(a.absences, cfg.ReconcileInterval)
		defer scheduler.Stop()

		handler := api.NewHandler(a.absences, a.clockings, a.clock, cfg.AdminID)
		router := api.NewRouter(handler, api.RouterOptions{
			AllowedOrigins: cfg.AllowedOrigins,
			RequestTimeout: cfg.RequestTimeout,
		})

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.RequestTimeout + 15*time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logrus.Infof("server starting on http://localhost:%d", cfg.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		}

		logrus.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logrus.Info("server stopped")
		return nil
	},
}

// startReconcile catches up on absences that came due while the server was
// down, exactly once, and keeps reconciling on interval when it is set.
// A running scheduler does the catch-up itself as its first pass.
func startReconcile(svc *absence.Service, interval time.Duration) *api.ReconcileScheduler {
	scheduler := api.NewReconcileScheduler(svc)
	scheduler.CheckInterval = interval
	scheduler.Timeout = 5 * time.Minute
	if interval <= 0 {
		scheduler.RunOnce()
		return scheduler
	}
	scheduler.Start()
	return scheduler
}
