package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/returnguard/returnguard/internal/reminder"
	"github.com/returnguard/returnguard/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		engine, err := initEngine()
		if err != nil {
			return eris.Wrap(err, "init extraction engine")
		}

		// Background due-date check alongside the API.
		notifiers := []reminder.Notifier{reminder.LogNotifier{}}
		if cfg.Reminder.WebhookURL != "" {
			notifiers = append(notifiers, reminder.NewWebhookNotifier(cfg.Reminder.WebhookURL))
		}
		checker := reminder.NewChecker(st, cfg.Reminder.LookaheadDays, notifiers)
		go func() {
			interval := time.Duration(cfg.Reminder.IntervalHours) * time.Hour
			if err := checker.RunPeriodic(ctx, interval); err != nil && ctx.Err() == nil {
				zap.L().Error("reminder loop stopped", zap.Error(err))
			}
		}()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		api := server.New(st, engine)
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.Router(cfg.Server.AllowedOrigins),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
