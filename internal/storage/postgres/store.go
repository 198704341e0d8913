// Package postgres provides the Postgres-backed request store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quillworks/novelforge/internal/config"
	"github.com/quillworks/novelforge/internal/novel"
)

// pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store implements novel.Store on Postgres.
type Store struct {
	pool pool
}

var _ novel.Store = (*Store)(nil)

// NewStore opens a connection pool against cfg.DSN.
func NewStore(ctx context.Context, cfg config.DBConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewStoreWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const requestColumns = `id, url, user_id, status, ticket_cost, resolved_title, notes, created_at, updated_at`

func scanRequest(row pgx.Row) (novel.Request, error) {
	var req novel.Request
	err := row.Scan(
		&req.ID,
		&req.URL,
		&req.UserID,
		&req.Status,
		&req.TicketCost,
		&req.ResolvedTitle,
		&req.Notes,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	return req, err
}

// CreateRequest inserts a pending request row and returns it with the
// generated ID and timestamps.
func (s *Store) CreateRequest(ctx context.Context, req novel.Request) (novel.Request, error) {
	if req.Status == "" {
		req.Status = novel.StatusPending
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO requests (url, user_id, status, ticket_cost, resolved_title, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+requestColumns,
		req.URL, req.UserID, req.Status, req.TicketCost, req.ResolvedTitle, req.Notes,
	)
	created, err := scanRequest(row)
	if err != nil {
		return novel.Request{}, &novel.PersistenceError{Op: "create request", Err: err}
	}
	return created, nil
}

// PendingRequests returns up to limit pending requests, oldest first.
func (s *Store) PendingRequests(ctx context.Context, limit int) ([]novel.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`,
		novel.StatusPending, limit,
	)
	if err != nil {
		return nil, &novel.PersistenceError{Op: "list pending requests", Err: err}
	}
	defer rows.Close()

	var out []novel.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, &novel.PersistenceError{Op: "scan pending request", Err: err}
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, &novel.PersistenceError{Op: "list pending requests", Err: err}
	}
	return out, nil
}

// GetRequest fetches a request by ID.
func (s *Store) GetRequest(ctx context.Context, id string) (novel.Request, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		WHERE id = $1`,
		id,
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return novel.Request{}, novel.ErrNotFound
	}
	if err != nil {
		return novel.Request{}, &novel.PersistenceError{Op: "get request", Err: err}
	}
	return req, nil
}

// ClaimRequest flips a request from pending to processing. The WHERE
// clause makes the claim atomic; a zero row count means another worker
// won the race or the request was moderated away.
func (s *Store) ClaimRequest(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE requests
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		novel.StatusProcessing, id, novel.StatusPending,
	)
	if err != nil {
		return false, &novel.PersistenceError{Op: "claim request", Err: err}
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateRequestStatus finalizes or annotates a request. Title and notes
// keep their stored values when the arguments are empty.
func (s *Store) UpdateRequestStatus(ctx context.Context, id string, status novel.RequestStatus, title, notes string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE requests
		SET status = $1,
			resolved_title = COALESCE(NULLIF($2, ''), resolved_title),
			notes = COALESCE(NULLIF($3, ''), notes),
			updated_at = NOW()
		WHERE id = $4`,
		status, title, notes, id,
	)
	if err != nil {
		return &novel.PersistenceError{Op: "update request status", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return novel.ErrNotFound
	}
	return nil
}

// RecentRequests returns the most recent requests, newest first.
func (s *Store) RecentRequests(ctx context.Context, limit int) ([]novel.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM requests
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, &novel.PersistenceError{Op: "list recent requests", Err: err}
	}
	defer rows.Close()

	var out []novel.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, &novel.PersistenceError{Op: "scan recent request", Err: err}
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, &novel.PersistenceError{Op: "list recent requests", Err: err}
	}
	return out, nil
}

// CountUserRequestsSince counts a user's non-rejected requests created at
// or after since.
func (s *Store) CountUserRequestsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM requests
		WHERE user_id = $1 AND status <> $2 AND created_at >= $3`,
		userID, novel.StatusRejected, since,
	).Scan(&count)
	if err != nil {
		return 0, &novel.PersistenceError{Op: "count user requests", Err: err}
	}
	return count, nil
}

const novelColumns = `id, title, author, slug, original_url, source_domain, created_at, updated_at`

func scanNovel(row pgx.Row) (novel.Novel, error) {
	var n novel.Novel
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Author,
		&n.Slug,
		&n.OriginalURL,
		&n.SourceDomain,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return n, err
}

// UpsertNovel inserts a novel or refreshes an existing one keyed by
// title, so re-ingesting a book updates it in place.
func (s *Store) UpsertNovel(ctx context.Context, n novel.Novel) (novel.Novel, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO novels (title, author, slug, original_url, source_domain)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (title) DO UPDATE
		SET author = EXCLUDED.author,
			slug = EXCLUDED.slug,
			original_url = EXCLUDED.original_url,
			source_domain = EXCLUDED.source_domain,
			updated_at = NOW()
		RETURNING `+novelColumns,
		n.Title, n.Author, n.Slug, n.OriginalURL, n.SourceDomain,
	)
	stored, err := scanNovel(row)
	if err != nil {
		return novel.Novel{}, &novel.PersistenceError{Op: "upsert novel", Err: err}
	}
	return stored, nil
}

// InsertChapters writes a book's chapters in one transaction, idempotent
// on (novel_id, chapter_number).
func (s *Store) InsertChapters(ctx context.Context, novelID string, chapters []novel.Chapter) error {
	if len(chapters) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &novel.PersistenceError{Op: "begin chapter insert", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, ch := range chapters {
		_, err := tx.Exec(ctx, `
			INSERT INTO chapters (novel_id, chapter_number, title, content, word_count)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (novel_id, chapter_number) DO UPDATE
			SET title = EXCLUDED.title,
				content = EXCLUDED.content,
				word_count = EXCLUDED.word_count,
				updated_at = NOW()`,
			novelID, ch.Number, ch.Title, ch.Content, ch.WordCount,
		)
		if err != nil {
			return &novel.PersistenceError{
				Op:  fmt.Sprintf("insert chapter %d", ch.Number),
				Err: err,
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return &novel.PersistenceError{Op: "commit chapter insert", Err: err}
	}
	return nil
}

// NovelBySlug fetches a novel addressed by its slug.
func (s *Store) NovelBySlug(ctx context.Context, slug string) (novel.Novel, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+novelColumns+`
		FROM novels
		WHERE slug = $1`,
		slug,
	)
	n, err := scanNovel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return novel.Novel{}, novel.ErrNotFound
	}
	if err != nil {
		return novel.Novel{}, &novel.PersistenceError{Op: "get novel by slug", Err: err}
	}
	return n, nil
}

// ChaptersByNovel returns all chapters for a novel ordered by number.
func (s *Store) ChaptersByNovel(ctx context.Context, novelID string) ([]novel.Chapter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, novel_id, chapter_number, title, content, word_count, created_at, updated_at
		FROM chapters
		WHERE novel_id = $1
		ORDER BY chapter_number ASC`,
		novelID,
	)
	if err != nil {
		return nil, &novel.PersistenceError{Op: "list chapters", Err: err}
	}
	defer rows.Close()

	var out []novel.Chapter
	for rows.Next() {
		var ch novel.Chapter
		err := rows.Scan(
			&ch.ID,
			&ch.NovelID,
			&ch.Number,
			&ch.Title,
			&ch.Content,
			&ch.WordCount,
			&ch.CreatedAt,
			&ch.UpdatedAt,
		)
		if err != nil {
			return nil, &novel.PersistenceError{Op: "scan chapter", Err: err}
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, &novel.PersistenceError{Op: "list chapters", Err: err}
	}
	return out, nil
}
