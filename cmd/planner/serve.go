package main

import (
	"context"
	"finance_planner/internal/api"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, metrics endpoint and recurring processor schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(opts.env.LogLevel, os.Stdout)
			logger.Info("Starting application", slog.String("name", appName))

			a, err := buildApp(cmd.Context(), opts.env, opts.cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			metricsServer := a.metrics.StartMetricsServer(opts.env.MetricsAddr)
			httpServer := startHTTPServer(opts.env.HTTPAddr, a.handler(), logger)

			var scheduler *cron.Cron
			if !noScheduler {
				scheduler, err = startScheduler(opts.env.ProcessSchedule, a, logger)
				if err != nil {
					return err
				}
			}

			waitForShutdown(logger, httpServer, metricsServer, scheduler, a)
			logger.Info("Application shutdown complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Do not run the recurring processor on a schedule")
	return cmd
}

func startHTTPServer(addr string, apiHandler *api.APIHandler, logger *slog.Logger) *http.Server {
	r := mux.NewRouter()

	apiHandler.RegisterRoutes(r)

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "%s", "status": "ok"}`, appName)
	}).Methods("GET")

	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

// cronLogger routes robfig/cron diagnostics into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}

func startScheduler(schedule string, a *app, logger *slog.Logger) (*cron.Cron, error) {
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	_, err := c.AddFunc(schedule, func() {
		ctx := context.Background()
		if err := a.rates.RefreshDefaults(ctx); err != nil {
			logger.Warn("Default rate refresh failed", slog.String("error", err.Error()))
		}
		if _, err := a.processor.Run(ctx, time.Now().UTC()); err != nil {
			logger.Error("Scheduled recurring run failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid process schedule %q: %w", schedule, err)
	}

	c.Start()
	logger.Info("Recurring processor scheduled", slog.String("schedule", schedule))
	return c, nil
}

func waitForShutdown(
	logger *slog.Logger,
	httpServer *http.Server,
	metricsServer *http.Server,
	scheduler *cron.Cron,
	a *app,
) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-ctx.Done():
			logger.Error("Scheduled run did not finish before shutdown")
		}
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := a.metrics.Shutdown(ctx); err != nil {
		logger.Error("Metrics collector shutdown failed", slog.String("error", err.Error()))
	}
}
