package novel

import (
	"context"
	"time"
)

// Store persists requests, novels and chapters.
type Store interface {
	// CreateRequest inserts a new pending request and returns it with
	// identifiers and timestamps filled in.
	CreateRequest(ctx context.Context, req Request) (Request, error)

	// PendingRequests returns up to limit requests in pending status,
	// oldest first.
	PendingRequests(ctx context.Context, limit int) ([]Request, error)

	// GetRequest fetches a request by ID.
	GetRequest(ctx context.Context, id string) (Request, error)

	// ClaimRequest atomically moves a request from pending to processing.
	// It returns false when the request is no longer pending, which means
	// another orchestrator instance already claimed it.
	ClaimRequest(ctx context.Context, id string) (bool, error)

	// UpdateRequestStatus finalizes or annotates a request. Title and notes
	// are only written when non-empty.
	UpdateRequestStatus(ctx context.Context, id string, status RequestStatus, title, notes string) error

	// RecentRequests returns the most recent requests, newest first.
	RecentRequests(ctx context.Context, limit int) ([]Request, error)

	// CountUserRequestsSince counts a user's requests created at or after
	// since, excluding rejected ones. Used for ticket pricing.
	CountUserRequestsSince(ctx context.Context, userID string, since time.Time) (int, error)

	// UpsertNovel inserts or updates a novel keyed by title and returns the
	// stored row.
	UpsertNovel(ctx context.Context, n Novel) (Novel, error)

	// InsertChapters writes a book's chapters in one transaction,
	// idempotent on (novel_id, chapter_number).
	InsertChapters(ctx context.Context, novelID string, chapters []Chapter) error

	// NovelBySlug fetches a novel addressed by its slug.
	NovelBySlug(ctx context.Context, slug string) (Novel, error)

	// ChaptersByNovel returns all chapters for a novel ordered by number.
	ChaptersByNovel(ctx context.Context, novelID string) ([]Chapter, error)

	// Close releases underlying resources.
	Close()
}

// Fetcher retrieves raw HTML for an absolute URL. Implementations apply a
// bounded timeout but no retries; retry policy belongs to the orchestrator.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Renderer produces a DOM snapshot of a page with JavaScript executed.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
	Close(ctx context.Context) error
}

// Extractor is site-specific logic translating a source book page into
// metadata plus chapter content.
type Extractor interface {
	// Site names the source this extractor handles, for logs and errors.
	Site() string

	// Extract fetches the book landing page, parses metadata and the
	// chapter list, then fetches every chapter body sequentially.
	// Individual chapter failures degrade to sentinel content and are
	// reflected in the stats; only page-level failures return an error.
	Extract(ctx context.Context, bookURL string) (ExtractionResult, ChapterStats, error)
}

// BlobStore archives raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes ingest-completion events downstream.
type Publisher interface {
	Publish(ctx context.Context, event IngestEvent) error
	Close() error
}

// IngestEvent is emitted once per finalized request.
type IngestEvent struct {
	RequestID string        `json:"request_id"`
	Status    RequestStatus `json:"status"`
	Slug      string        `json:"slug,omitempty"`
	Title     string        `json:"title,omitempty"`
	Chapters  int           `json:"chapters"`
	Failed    int           `json:"failed_chapters"`
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock is the real Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
