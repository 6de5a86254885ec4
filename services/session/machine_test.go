package session

import (
	"context"
	"testing"
	"time"

	"gamesleech-bot/lib/testutil"
	"gamesleech-bot/services/catalog"
	"gamesleech-bot/services/quota"
	quotadb "gamesleech-bot/services/quota/db"

	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	posts []catalog.Post
	err   error
}

func (f *fakeCatalog) Search(ctx context.Context, query string, limit int) ([]catalog.Post, error) {
	return f.posts, f.err
}

func (f *fakeCatalog) Get(ctx context.Context, id int64) (catalog.Post, error) {
	for _, p := range f.posts {
		if p.Id == id {
			return p, nil
		}
	}
	return catalog.Post{}, catalog.ErrNotFound
}

func (f *fakeCatalog) Latest(ctx context.Context, limit int) ([]catalog.Post, error) {
	return f.posts, f.err
}

func (f *fakeCatalog) ByCategory(ctx context.Context, categoryId int64, limit int) ([]catalog.Post, error) {
	return f.posts, f.err
}

func fakePost(id int64, title string) catalog.Post {
	return catalog.Post{
		Id:    id,
		Date:  "2024-06-01T10:00:00",
		Link:  "https://example.com/post",
		Title: catalog.Rendered{Rendered: title},
		Content: catalog.Rendered{
			Rendered: `<a href="https://drive.google.com/file/d/abc123">Part 1</a>`,
		},
	}
}

func setupMachine(t *testing.T, cat Catalog, dailyLimit int) (Machine, quota.Service) {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "session",
		DbSchema: quotadb.Schema,
	})
	t.Cleanup(cleanup)

	q := quota.NewService(result.DB, quota.Options{DailyLimit: dailyLimit})
	require.NoError(t, q.TouchUser(context.Background(), 100, "alice"))

	store := NewMemoryStore(time.Minute)
	return NewMachine(store, cat, q, 8), q
}

func TestSearchSelectConfirm(t *testing.T) {
	cat := &fakeCatalog{posts: []catalog.Post{
		fakePost(1, "Download Elden Ring (2022) [FitGirl Repack]"),
		fakePost(2, "Download Hades II (2024)"),
	}}
	machine, _ := setupMachine(t, cat, 5)
	ctx := context.Background()

	results, err := machine.Search(ctx, 100, "elden ring")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, PhaseSelecting, machine.Phase(100))

	record, err := machine.Select(ctx, 100, "2")
	require.NoError(t, err)
	require.Equal(t, "Hades II (2024)", record.Title)
	require.Equal(t, PhaseConfirming, machine.Phase(100))

	confirmed, err := machine.Confirm(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, record.Id, confirmed.Id)
	require.Len(t, confirmed.DriveLinks, 1)
	require.Equal(t, PhaseIdle, machine.Phase(100))

	// the session is gone, a second confirm must fail
	_, err = machine.Confirm(ctx, 100)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestSelectValidation(t *testing.T) {
	cat := &fakeCatalog{posts: []catalog.Post{fakePost(1, "Only Game")}}
	machine, _ := setupMachine(t, cat, 5)
	ctx := context.Background()

	_, err := machine.Select(ctx, 100, "1")
	require.ErrorIs(t, err, ErrNoActiveSearch)

	_, err = machine.Search(ctx, 100, "only game")
	require.NoError(t, err)

	_, err = machine.Select(ctx, 100, "abc")
	require.ErrorIs(t, err, ErrNotNumber)

	_, err = machine.Select(ctx, 100, "5")
	var rangeErr RangeError
	require.ErrorAs(t, err, &rangeErr)
	require.Equal(t, 1, rangeErr.Max)

	// bad input left the session intact
	require.Equal(t, PhaseSelecting, machine.Phase(100))
	_, err = machine.Select(ctx, 100, "1")
	require.NoError(t, err)
}

func TestCancelClearsSession(t *testing.T) {
	cat := &fakeCatalog{posts: []catalog.Post{fakePost(1, "Some Game")}}
	machine, _ := setupMachine(t, cat, 5)
	ctx := context.Background()

	_, err := machine.Search(ctx, 100, "some game")
	require.NoError(t, err)

	machine.Cancel(100)
	require.Equal(t, PhaseIdle, machine.Phase(100))

	_, err = machine.Select(ctx, 100, "1")
	require.ErrorIs(t, err, ErrNoActiveSearch)
}

func TestSearchQuotaDenied(t *testing.T) {
	cat := &fakeCatalog{posts: []catalog.Post{fakePost(1, "Some Game")}}
	machine, _ := setupMachine(t, cat, 1)
	ctx := context.Background()

	_, err := machine.Search(ctx, 100, "first")
	require.NoError(t, err)

	_, err = machine.Search(ctx, 100, "second")
	var quotaErr QuotaError
	require.ErrorAs(t, err, &quotaErr)
	require.False(t, quotaErr.Decision.Allowed)
	require.Equal(t, 0, quotaErr.Decision.Remaining)
}

func TestSearchEmptyClearsSession(t *testing.T) {
	cat := &fakeCatalog{posts: []catalog.Post{fakePost(1, "Some Game")}}
	machine, _ := setupMachine(t, cat, 5)
	ctx := context.Background()

	_, err := machine.Search(ctx, 100, "some game")
	require.NoError(t, err)
	require.Equal(t, PhaseSelecting, machine.Phase(100))

	cat.posts = nil
	results, err := machine.Search(ctx, 100, "nothing")
	require.NoError(t, err)
	require.Empty(t, results)
	require.Equal(t, PhaseIdle, machine.Phase(100))
}

func TestSearchUnavailableDoesNotConsumeQuota(t *testing.T) {
	cat := &fakeCatalog{err: catalog.ErrUnavailable}
	machine, q := setupMachine(t, cat, 5)
	ctx := context.Background()

	_, err := machine.Search(ctx, 100, "anything")
	require.ErrorIs(t, err, catalog.ErrUnavailable)

	stats, err := q.Stats(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.TotalSearches)
}

func TestListingsAreUnmetered(t *testing.T) {
	cat := &fakeCatalog{posts: []catalog.Post{fakePost(1, "Some Game")}}
	machine, q := setupMachine(t, cat, 1)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		results, err := machine.Latest(ctx, 100)
		require.NoError(t, err)
		require.Len(t, results, 1)

		results, err = machine.Browse(ctx, 100, 577)
		require.NoError(t, err)
		require.Len(t, results, 1)
	}

	stats, err := q.Stats(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(0), stats.TotalSearches)

	// a listing still supports selection
	_, err = machine.Select(ctx, 100, "1")
	require.NoError(t, err)
}

func TestExpiredStoreEntry(t *testing.T) {
	cat := &fakeCatalog{posts: []catalog.Post{fakePost(1, "Some Game")}}
	store := NewMemoryStore(time.Minute)
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "session-expiry",
		DbSchema: quotadb.Schema,
	})
	t.Cleanup(cleanup)
	q := quota.NewService(result.DB, quota.Options{})
	require.NoError(t, q.TouchUser(context.Background(), 100, "alice"))
	machine := NewMachine(store, cat, q, 8)
	ctx := context.Background()

	_, err := machine.Search(ctx, 100, "some game")
	require.NoError(t, err)

	// simulate TTL eviction
	store.Delete(100)

	_, err = machine.Confirm(ctx, 100)
	require.ErrorIs(t, err, ErrSessionExpired)
	_, err = machine.Select(ctx, 100, "1")
	require.ErrorIs(t, err, ErrNoActiveSearch)
}
