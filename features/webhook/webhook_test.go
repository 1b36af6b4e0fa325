package webhook_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unidatahq/udc/features/webhook"
)

func openLog(t *testing.T) *webhook.Log {
	t.Helper()
	log, err := webhook.Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestRecordAndListNewestFirst(t *testing.T) {
	log := openLog(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	log.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	first, err := log.Record(ctx, "crm", "customer.updated", json.RawMessage(`{"customer_id":7}`))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := log.Record(ctx, "support", "ticket.created", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(second.Payload))

	events, err := log.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, second.ID, events[0].ID)
	require.Equal(t, first.ID, events[1].ID)
	require.Equal(t, "crm", events[1].Source)
	require.JSONEq(t, `{"customer_id":7}`, string(events[1].Payload))
}

func TestListLimit(t *testing.T) {
	log := openLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := log.Record(ctx, "analytics", "metrics.refreshed", nil)
		require.NoError(t, err)
	}

	events, err := log.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Non-positive limits fall back to the default.
	events, err = log.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 5)
}
