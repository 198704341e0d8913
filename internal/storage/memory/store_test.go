package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillworks/novelforge/internal/novel"
)

// tickingClock hands out strictly increasing timestamps.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore() *Store {
	return NewStoreWithClock(&tickingClock{now: time.Unix(1700000000, 0).UTC()})
}

func TestRequestLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	created, err := store.CreateRequest(ctx, novel.Request{
		URL:    "https://www.twkan.com/book/1.html",
		UserID: "user-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, novel.StatusPending, created.Status)

	claimed, err := store.ClaimRequest(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	// A second claim must lose.
	claimed, err = store.ClaimRequest(ctx, created.ID)
	require.NoError(t, err)
	require.False(t, claimed)

	err = store.UpdateRequestStatus(ctx, created.ID, novel.StatusCompleted, "Resolved Title", "note")
	require.NoError(t, err)

	got, err := store.GetRequest(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, novel.StatusCompleted, got.Status)
	require.Equal(t, "Resolved Title", got.ResolvedTitle)
	require.Equal(t, "note", got.Notes)
	require.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestPendingRequestsOldestFirstWithLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	first, err := store.CreateRequest(ctx, novel.Request{URL: "https://a"})
	require.NoError(t, err)
	second, err := store.CreateRequest(ctx, novel.Request{URL: "https://b"})
	require.NoError(t, err)
	_, err = store.CreateRequest(ctx, novel.Request{URL: "https://c"})
	require.NoError(t, err)

	pending, err := store.PendingRequests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)
	require.Equal(t, second.ID, pending[1].ID)
}

func TestRecentRequestsNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	_, err := store.CreateRequest(ctx, novel.Request{URL: "https://a"})
	require.NoError(t, err)
	latest, err := store.CreateRequest(ctx, novel.Request{URL: "https://b"})
	require.NoError(t, err)

	recent, err := store.RecentRequests(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, latest.ID, recent[0].ID)
}

func TestGetRequestNotFound(t *testing.T) {
	t.Parallel()

	_, err := newTestStore().GetRequest(context.Background(), "missing")
	require.ErrorIs(t, err, novel.ErrNotFound)
}

func TestCountUserRequestsSince(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	_, err := store.CreateRequest(ctx, novel.Request{URL: "https://a", UserID: "user-1"})
	require.NoError(t, err)
	_, err = store.CreateRequest(ctx, novel.Request{URL: "https://b", UserID: "user-1"})
	require.NoError(t, err)
	_, err = store.CreateRequest(ctx, novel.Request{URL: "https://c", UserID: "user-2"})
	require.NoError(t, err)
	rejected, err := store.CreateRequest(ctx, novel.Request{URL: "https://d", UserID: "user-1", Status: novel.StatusRejected})
	require.NoError(t, err)
	require.Equal(t, novel.StatusRejected, rejected.Status)

	count, err := store.CountUserRequestsSince(ctx, "user-1", time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = store.CountUserRequestsSince(ctx, "user-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestUpsertNovelKeyedByTitle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	first, err := store.UpsertNovel(ctx, novel.Novel{
		Title:  "Immortal Ascension",
		Author: "Unknown",
		Slug:   "twkan-1",
	})
	require.NoError(t, err)

	second, err := store.UpsertNovel(ctx, novel.Novel{
		Title:  "Immortal Ascension",
		Author: "Mo Yan",
		Slug:   "twkan-1",
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Mo Yan", second.Author)
	require.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestInsertChaptersIdempotentOnNumber(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	n, err := store.UpsertNovel(ctx, novel.Novel{Title: "Book", Slug: "s-1"})
	require.NoError(t, err)

	err = store.InsertChapters(ctx, n.ID, []novel.Chapter{
		{Number: 1, Title: "C1", Content: "old", WordCount: 1},
		{Number: 2, Title: "C2", Content: novel.SentinelNoContent},
	})
	require.NoError(t, err)

	// Re-ingest replaces chapter 1's content, keeps its identity.
	err = store.InsertChapters(ctx, n.ID, []novel.Chapter{
		{Number: 1, Title: "C1", Content: "new content", WordCount: 2},
	})
	require.NoError(t, err)

	chapters, err := store.ChaptersByNovel(ctx, n.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	require.Equal(t, "new content", chapters[0].Content)
	require.Equal(t, 1, chapters[0].Number)
	require.Equal(t, 2, chapters[1].Number)
	require.True(t, chapters[1].IsSentinel())
}

func TestNovelBySlug(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	stored, err := store.UpsertNovel(ctx, novel.Novel{Title: "Book", Slug: "twkan-42"})
	require.NoError(t, err)

	got, err := store.NovelBySlug(ctx, "twkan-42")
	require.NoError(t, err)
	require.Equal(t, stored.ID, got.ID)

	_, err = store.NovelBySlug(ctx, "missing")
	require.ErrorIs(t, err, novel.ErrNotFound)
}
