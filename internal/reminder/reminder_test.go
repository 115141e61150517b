package reminder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/returnguard/returnguard/internal/model"
	"github.com/returnguard/returnguard/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

var testToday = time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testToday }

func seedDue(t *testing.T, s store.Store, name string, dueInDays int, archived bool) *model.Purchase {
	t.Helper()
	today := model.EpochDay(testToday)
	p := &model.Purchase{
		ProductName: name,
		PurchaseDay: today + int64(dueInDays) - 14,
		ReturnDays:  14,
		Archived:    archived,
	}
	require.NoError(t, s.CreatePurchase(context.Background(), p))
	return p
}

type captureNotifier struct {
	got  []Reminder
	fail bool
}

func (c *captureNotifier) Notify(_ context.Context, r Reminder) error {
	c.got = append(c.got, r)
	if c.fail {
		return assert.AnError
	}
	return nil
}

func TestTitleFor(t *testing.T) {
	assert.Equal(t, "Heute letzter Rückgabetag", TitleFor(0))
	assert.Equal(t, "Morgen letzter Rückgabetag", TitleFor(1))
	assert.Equal(t, "Rückgabe in 3 Tagen", TitleFor(3))
}

func TestChecker_Run(t *testing.T) {
	s := newTestStore(t)
	today := seedDue(t, s, "Heute faellig", 0, false)
	tomorrow := seedDue(t, s, "Morgen faellig", 1, false)
	seedDue(t, s, "Spaeter", 5, false)
	seedDue(t, s, "Archiviert", 0, true)

	capture := &captureNotifier{}
	c := NewChecker(s, 1, []Notifier{capture}, WithNow(fixedNow))

	got, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, today.ID, got[0].Purchase.ID)
	assert.Equal(t, 0, got[0].DaysLeft)
	assert.Equal(t, "Heute letzter Rückgabetag", got[0].Title)

	assert.Equal(t, tomorrow.ID, got[1].Purchase.ID)
	assert.Equal(t, 1, got[1].DaysLeft)
	assert.Equal(t, "Morgen letzter Rückgabetag", got[1].Title)

	assert.Len(t, capture.got, 2)
}

func TestChecker_RunEmpty(t *testing.T) {
	s := newTestStore(t)
	capture := &captureNotifier{}
	c := NewChecker(s, 1, []Notifier{capture}, WithNow(fixedNow))

	got, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, capture.got)
}

func TestChecker_NotifierFailureIsNotFatal(t *testing.T) {
	s := newTestStore(t)
	seedDue(t, s, "Heute faellig", 0, false)

	failing := &captureNotifier{fail: true}
	working := &captureNotifier{}
	c := NewChecker(s, 1, []Notifier{failing, working}, WithNow(fixedNow))

	got, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, working.got, 1)
}

func TestChecker_RunPeriodicStopsOnCancel(t *testing.T) {
	s := newTestStore(t)
	c := NewChecker(s, 1, nil, WithNow(fixedNow))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.RunPeriodic(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop after cancel")
	}
}

func TestWebhookNotifier(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	r := Reminder{Title: "Heute letzter Rückgabetag", DaysLeft: 0}
	require.NoError(t, n.Notify(context.Background(), r))

	assert.Equal(t, "application/json", gotContentType)
	assert.Contains(t, string(gotBody), "Heute letzter")
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	err := n.Notify(context.Background(), Reminder{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
