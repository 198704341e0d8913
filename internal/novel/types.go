// Package novel defines core types shared across subsystems.
package novel

import (
	"strings"
	"time"
)

// RequestStatus represents the lifecycle state of an ingestion request.
type RequestStatus string

// Request status values persisted in the request store. Transitions are
// forward-only: pending -> processing -> {completed, error, rejected}.
// approved/rejected may also be set by moderation before processing.
const (
	StatusPending    RequestStatus = "pending"
	StatusProcessing RequestStatus = "processing"
	StatusApproved   RequestStatus = "approved"
	StatusRejected   RequestStatus = "rejected"
	StatusCompleted  RequestStatus = "completed"
	StatusError      RequestStatus = "error"
)

// Terminal reports whether the status ends the request lifecycle.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusError, StatusRejected:
		return true
	default:
		return false
	}
}

// Request is a user-submitted URL awaiting or having undergone ingestion.
type Request struct {
	ID            string        `json:"id"`
	URL           string        `json:"url"`
	UserID        string        `json:"user_id,omitempty"`
	Status        RequestStatus `json:"status"`
	TicketCost    int           `json:"ticket_cost"`
	ResolvedTitle string        `json:"title,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Novel is the persisted book record. One Novel owns many Chapters.
type Novel struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Slug         string    `json:"slug"`
	OriginalURL  string    `json:"original_url"`
	SourceDomain string    `json:"source_domain"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sentinel content values substituted when a chapter body cannot be
// obtained. They allow a multi-hundred-chapter ingestion to succeed
// partially instead of failing outright.
const (
	SentinelNoContent  = "[No content found]"
	SentinelFetchError = "[Error fetching content]"
)

// Chapter is a persisted chapter row. Content is either real extracted
// text or one of the sentinel values.
type Chapter struct {
	ID        string    `json:"id,omitempty"`
	NovelID   string    `json:"novel_id,omitempty"`
	Number    int       `json:"chapter_number"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IsSentinel reports whether the chapter carries placeholder content
// instead of real text.
func (c Chapter) IsSentinel() bool {
	return c.Content == SentinelNoContent || c.Content == SentinelFetchError
}

// CountWords returns the whitespace-separated token count of content.
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// ChapterRef is a (title, url) entry parsed from a book's chapter list,
// before the chapter body has been fetched.
type ChapterRef struct {
	Title string
	URL   string
}

// ExtractedChapter is one chapter produced by an extractor. Transient;
// persisted as a Chapter once the whole book succeeds.
type ExtractedChapter struct {
	Title   string
	Content string
}

// IsSentinel reports whether extraction fell back to placeholder content.
func (c ExtractedChapter) IsSentinel() bool {
	return c.Content == SentinelNoContent || c.Content == SentinelFetchError
}

// ExtractionResult is the in-memory output of one extraction run. It lives
// only until persistence and is discarded on failure.
type ExtractionResult struct {
	Title    string
	Author   string
	Chapters []ExtractedChapter
}

// ChapterStats summarizes one extraction run for observability.
type ChapterStats struct {
	TotalChapters      int `json:"total_chapters"`
	SuccessfulChapters int `json:"successful_chapters"`
	FailedChapters     int `json:"failed_chapters"`
}

// IngestReport is returned by the orchestrator for a single request.
type IngestReport struct {
	RequestID string        `json:"request_id"`
	Status    RequestStatus `json:"status"`
	Title     string        `json:"title,omitempty"`
	Slug      string        `json:"slug,omitempty"`
	Stats     ChapterStats  `json:"stats"`
	Flagged   int           `json:"flagged_chapters"`
	Notes     string        `json:"notes,omitempty"`
}
