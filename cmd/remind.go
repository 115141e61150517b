package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/returnguard/returnguard/internal/reminder"
)

var remindWatch bool

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Check for purchases whose return window is about to close",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("remind"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close()

		notifiers := []reminder.Notifier{reminder.LogNotifier{}}
		if cfg.Reminder.WebhookURL != "" {
			notifiers = append(notifiers, reminder.NewWebhookNotifier(cfg.Reminder.WebhookURL))
		}

		checker := reminder.NewChecker(st, cfg.Reminder.LookaheadDays, notifiers)

		if remindWatch {
			interval := time.Duration(cfg.Reminder.IntervalHours) * time.Hour
			zap.L().Info("starting reminder watch", zap.Duration("interval", interval))
			if err := checker.RunPeriodic(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
				return eris.Wrap(err, "reminder watch")
			}
			return nil
		}

		due, err := checker.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "reminder check")
		}
		zap.L().Info("reminder check complete", zap.Int("due", len(due)))
		return nil
	},
}

func init() {
	remindCmd.Flags().BoolVar(&remindWatch, "watch", false, "keep running and re-check on the configured interval")
	rootCmd.AddCommand(remindCmd)
}
