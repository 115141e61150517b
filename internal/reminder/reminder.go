// Package reminder finds purchases whose return window is about to close and
// delivers notifications for them.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/returnguard/returnguard/internal/model"
	"github.com/returnguard/returnguard/internal/store"
)

// Reminder is one due-soon notification.
type Reminder struct {
	Purchase model.Purchase `json:"purchase"`
	DueDay   int64          `json:"due_day"`
	DaysLeft int            `json:"days_left"`
	Title    string         `json:"title"`
}

// TitleFor renders the notification title for the remaining days.
func TitleFor(daysLeft int) string {
	switch {
	case daysLeft <= 0:
		return "Heute letzter Rückgabetag"
	case daysLeft == 1:
		return "Morgen letzter Rückgabetag"
	default:
		return fmt.Sprintf("Rückgabe in %d Tagen", daysLeft)
	}
}

// Notifier delivers a single reminder.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// Checker scans the store for purchases due within the lookahead window.
type Checker struct {
	store     store.Store
	notifiers []Notifier
	lookahead int
	now       func() time.Time
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithNow overrides the clock for tests.
func WithNow(now func() time.Time) CheckerOption {
	return func(c *Checker) { c.now = now }
}

// NewChecker builds a Checker that looks lookaheadDays into the future.
func NewChecker(st store.Store, lookaheadDays int, notifiers []Notifier, opts ...CheckerOption) *Checker {
	c := &Checker{
		store:     st,
		notifiers: notifiers,
		lookahead: lookaheadDays,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run performs one reminder sweep and returns the reminders that were due.
// Notifier failures are logged, not fatal; the sweep itself fails only when
// the store does.
func (c *Checker) Run(ctx context.Context) ([]Reminder, error) {
	today := model.EpochDay(c.now())
	due, err := c.store.DueBetween(ctx, today, today+int64(c.lookahead))
	if err != nil {
		return nil, eris.Wrap(err, "reminder: query due purchases")
	}

	reminders := make([]Reminder, 0, len(due))
	for _, p := range due {
		daysLeft := int(p.ReturnDueDay() - today)
		reminders = append(reminders, Reminder{
			Purchase: p,
			DueDay:   p.ReturnDueDay(),
			DaysLeft: daysLeft,
			Title:    TitleFor(daysLeft),
		})
	}

	for _, r := range reminders {
		for _, n := range c.notifiers {
			if err := n.Notify(ctx, r); err != nil {
				zap.L().Error("reminder: notify failed",
					zap.String("purchase_id", r.Purchase.ID),
					zap.Error(err),
				)
			}
		}
	}

	zap.L().Info("reminder: sweep complete",
		zap.Int("due", len(reminders)),
		zap.Int64("today", today),
		zap.Int("lookahead_days", c.lookahead),
	)
	return reminders, nil
}

// RunPeriodic sweeps immediately and then on every interval tick until the
// context is cancelled.
func (c *Checker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if _, err := c.Run(ctx); err != nil {
		zap.L().Error("reminder: sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.Run(ctx); err != nil {
				zap.L().Error("reminder: sweep failed", zap.Error(err))
			}
		}
	}
}
