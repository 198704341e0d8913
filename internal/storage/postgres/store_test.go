package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/quillworks/novelforge/internal/novel"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewStoreWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

func requestRows(reqs ...novel.Request) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "url", "user_id", "status", "ticket_cost",
		"resolved_title", "notes", "created_at", "updated_at",
	})
	for _, r := range reqs {
		rows.AddRow(r.ID, r.URL, r.UserID, r.Status, r.TicketCost,
			r.ResolvedTitle, r.Notes, r.CreatedAt, r.UpdatedAt)
	}
	return rows
}

func TestCreateRequest(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("INSERT INTO requests").
		WithArgs("https://www.twkan.com/book/76943.html", "user-1", novel.StatusPending, 100, "", "").
		WillReturnRows(requestRows(novel.Request{
			ID:         "req-1",
			URL:        "https://www.twkan.com/book/76943.html",
			UserID:     "user-1",
			Status:     novel.StatusPending,
			TicketCost: 100,
			CreatedAt:  now,
			UpdatedAt:  now,
		}))

	created, err := store.CreateRequest(context.Background(), novel.Request{
		URL:        "https://www.twkan.com/book/76943.html",
		UserID:     "user-1",
		TicketCost: 100,
	})
	require.NoError(t, err)
	require.Equal(t, "req-1", created.ID)
	require.Equal(t, novel.StatusPending, created.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingRequestsOldestFirst(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM requests").
		WithArgs(novel.StatusPending, 10).
		WillReturnRows(requestRows(
			novel.Request{ID: "req-1", Status: novel.StatusPending},
			novel.Request{ID: "req-2", Status: novel.StatusPending},
		))

	pending, err := store.PendingRequests(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "req-1", pending[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRequestNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM requests").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetRequest(context.Background(), "missing")
	require.ErrorIs(t, err, novel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRequest(t *testing.T) {
	t.Parallel()

	t.Run("claims pending", func(t *testing.T) {
		t.Parallel()
		store, mock := newMockStore(t)

		mock.ExpectExec("UPDATE requests").
			WithArgs(novel.StatusProcessing, "req-1", novel.StatusPending).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		claimed, err := store.ClaimRequest(context.Background(), "req-1")
		require.NoError(t, err)
		require.True(t, claimed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loses race", func(t *testing.T) {
		t.Parallel()
		store, mock := newMockStore(t)

		mock.ExpectExec("UPDATE requests").
			WithArgs(novel.StatusProcessing, "req-1", novel.StatusPending).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		claimed, err := store.ClaimRequest(context.Background(), "req-1")
		require.NoError(t, err)
		require.False(t, claimed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateRequestStatus(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE requests").
		WithArgs(novel.StatusCompleted, "Immortal Ascension", "2 chapters flagged", "req-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.UpdateRequestStatus(context.Background(), "req-1",
		novel.StatusCompleted, "Immortal Ascension", "2 chapters flagged")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRequestStatusMissingRow(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE requests").
		WithArgs(novel.StatusError, "", "", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.UpdateRequestStatus(context.Background(), "missing", novel.StatusError, "", "")
	require.ErrorIs(t, err, novel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUserRequestsSince(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	since := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1", novel.StatusRejected, since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	count, err := store.CountUserRequestsSince(context.Background(), "user-1", since)
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertNovel(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("INSERT INTO novels").
		WithArgs("Immortal Ascension", "Mo Yan", "twkan-76943",
			"https://www.twkan.com/book/76943.html", "www.twkan.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "title", "author", "slug", "original_url", "source_domain", "created_at", "updated_at",
		}).AddRow("novel-1", "Immortal Ascension", "Mo Yan", "twkan-76943",
			"https://www.twkan.com/book/76943.html", "www.twkan.com", now, now))

	stored, err := store.UpsertNovel(context.Background(), novel.Novel{
		Title:        "Immortal Ascension",
		Author:       "Mo Yan",
		Slug:         "twkan-76943",
		OriginalURL:  "https://www.twkan.com/book/76943.html",
		SourceDomain: "www.twkan.com",
	})
	require.NoError(t, err)
	require.Equal(t, "novel-1", stored.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertChaptersRunsInOneTransaction(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO chapters").
		WithArgs("novel-1", 1, "Chapter 1", "content one", 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO chapters").
		WithArgs("novel-1", 2, "Chapter 2", novel.SentinelFetchError, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.InsertChapters(context.Background(), "novel-1", []novel.Chapter{
		{Number: 1, Title: "Chapter 1", Content: "content one", WordCount: 2},
		{Number: 2, Title: "Chapter 2", Content: novel.SentinelFetchError, WordCount: 0},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertChaptersRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO chapters").
		WithArgs("novel-1", 1, "Chapter 1", "content", 1).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.InsertChapters(context.Background(), "novel-1", []novel.Chapter{
		{Number: 1, Title: "Chapter 1", Content: "content", WordCount: 1},
	})

	var persistErr *novel.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertChaptersEmptyIsNoop(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	require.NoError(t, store.InsertChapters(context.Background(), "novel-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNovelBySlugNotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM novels").
		WithArgs("missing-slug").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "title", "author", "slug", "original_url", "source_domain", "created_at", "updated_at",
		}))

	_, err := store.NovelBySlug(context.Background(), "missing-slug")
	require.ErrorIs(t, err, novel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChaptersByNovelOrdered(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT (.+) FROM chapters").
		WithArgs("novel-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "novel_id", "chapter_number", "title", "content", "word_count", "created_at", "updated_at",
		}).
			AddRow("ch-1", "novel-1", 1, "Chapter 1", "one", 1, now, now).
			AddRow("ch-2", "novel-1", 2, "Chapter 2", "two", 1, now, now))

	chapters, err := store.ChaptersByNovel(context.Background(), "novel-1")
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	require.Equal(t, 1, chapters[0].Number)
	require.Equal(t, "ch-2", chapters[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
