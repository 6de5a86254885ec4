package quota

import (
	"context"
	"testing"
	"time"

	"gamesleech-bot/lib/testutil"
	quotadb "gamesleech-bot/services/quota/db"

	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, opts Options) Service {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "quota",
		DbSchema: quotadb.Schema,
	})
	t.Cleanup(cleanup)
	return NewService(result.DB, opts)
}

func TestFreshUserHasFullAllowance(t *testing.T) {
	svc := setup(t, Options{})
	ctx := context.Background()

	decision, err := svc.Check(ctx, 100)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, 5, decision.Remaining)
	require.False(t, decision.Unlimited)
}

func TestDailyCeiling(t *testing.T) {
	svc := setup(t, Options{DailyLimit: 5})
	ctx := context.Background()

	require.NoError(t, svc.TouchUser(ctx, 100, "alice"))

	for i := 0; i < 5; i++ {
		decision, err := svc.Check(ctx, 100)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.Equal(t, 5-i, decision.Remaining)
		require.NoError(t, svc.RecordSearch(ctx, 100, "query"))
	}

	decision, err := svc.Check(ctx, 100)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, 0, decision.Remaining)
}

func TestCeilingWithoutTouchUser(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := setup(t, Options{
		DailyLimit: 5,
		Now:        func() time.Time { return current },
	})
	ctx := context.Background()

	// no TouchUser: the first RecordSearch must create the row, or
	// every increment silently updates zero rows
	for i := 0; i < 5; i++ {
		decision, err := svc.Check(ctx, 100)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.Equal(t, 5-i, decision.Remaining)
		require.NoError(t, svc.RecordSearch(ctx, 100, "query"))
	}

	decision, err := svc.Check(ctx, 100)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, 0, decision.Remaining)

	stats, err := svc.Stats(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(5), stats.TotalSearches)
	require.Equal(t, int64(5), stats.SearchesToday)
}

func TestDownloadWithoutTouchUser(t *testing.T) {
	svc := setup(t, Options{})
	ctx := context.Background()

	require.NoError(t, svc.RecordDownload(ctx, 100))

	stats, err := svc.Stats(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Downloads)
}

func TestDailyRollover(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := setup(t, Options{
		DailyLimit: 2,
		Now:        func() time.Time { return current },
	})
	ctx := context.Background()

	require.NoError(t, svc.TouchUser(ctx, 100, "alice"))
	for i := 0; i < 2; i++ {
		decision, err := svc.Check(ctx, 100)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.NoError(t, svc.RecordSearch(ctx, 100, "query"))
	}

	decision, err := svc.Check(ctx, 100)
	require.NoError(t, err)
	require.False(t, decision.Allowed)
	require.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), decision.ResetAt)

	// next calendar day, counter resets lazily on the next check
	current = current.Add(time.Hour * 13)
	decision, err = svc.Check(ctx, 100)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
	require.Equal(t, 2, decision.Remaining)

	// lifetime counter survives the rollover
	stats, err := svc.Stats(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalSearches)
	require.Equal(t, int64(0), stats.SearchesToday)
}

func TestPremiumIsUnmetered(t *testing.T) {
	svc := setup(t, Options{DailyLimit: 1})
	ctx := context.Background()

	require.NoError(t, svc.TouchUser(ctx, 100, "alice"))
	require.NoError(t, svc.SetPremium(ctx, 100, true))

	for i := 0; i < 10; i++ {
		decision, err := svc.Check(ctx, 100)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		require.True(t, decision.Unlimited)
		require.Equal(t, Unlimited, decision.Remaining)
		require.NoError(t, svc.RecordSearch(ctx, 100, "query"))
	}

	require.NoError(t, svc.SetPremium(ctx, 100, false))
	decision, err := svc.Check(ctx, 100)
	require.NoError(t, err)
	require.False(t, decision.Unlimited)
}

func TestHistoryCap(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := setup(t, Options{
		Now: func() time.Time { return current },
	})
	ctx := context.Background()

	require.NoError(t, svc.TouchUser(ctx, 100, "alice"))
	for i := 0; i < 105; i++ {
		require.NoError(t, svc.RecordSearch(ctx, 100, "query"))
		current = current.Add(time.Second)
	}

	history, err := svc.History(ctx, 100, 0)
	require.NoError(t, err)
	require.Len(t, history, 100)

	// newest first, oldest entries trimmed
	require.Greater(t, history[0].SearchedAt, history[len(history)-1].SearchedAt)
}

func TestRecordDownload(t *testing.T) {
	svc := setup(t, Options{})
	ctx := context.Background()

	require.NoError(t, svc.TouchUser(ctx, 100, "alice"))
	require.NoError(t, svc.RecordDownload(ctx, 100))
	require.NoError(t, svc.RecordDownload(ctx, 100))

	stats, err := svc.Stats(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Downloads)
}

func TestTouchUserRefreshesUsername(t *testing.T) {
	svc := setup(t, Options{})
	ctx := context.Background()

	require.NoError(t, svc.TouchUser(ctx, 100, "alice"))
	require.NoError(t, svc.TouchUser(ctx, 100, "alice2"))

	stats, err := svc.Stats(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, "alice2", stats.Username)

	users, err := svc.AllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
}
