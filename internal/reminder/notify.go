package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LogNotifier writes reminders to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, r Reminder) error {
	zap.L().Info("reminder: due",
		zap.String("title", r.Title),
		zap.String("product", r.Purchase.ProductName),
		zap.String("merchant", r.Purchase.Merchant),
		zap.Int("days_left", r.DaysLeft),
	)
	return nil
}

// WebhookNotifier posts reminders as JSON to a webhook URL, rate limited so
// a large due list does not hammer the receiver.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhookNotifier creates a webhook notifier for the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, r Reminder) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "reminder: rate limit wait")
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "reminder: marshal reminder")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "reminder: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "reminder: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("reminder: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
