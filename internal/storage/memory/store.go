// Package memory provides an in-memory novel.Store for development and
// tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillworks/novelforge/internal/novel"
)

// Store keeps all rows in process memory. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	requests map[string]novel.Request
	novels   map[string]novel.Novel
	chapters map[string][]novel.Chapter
	clock    novel.Clock
}

var _ novel.Store = (*Store)(nil)

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return NewStoreWithClock(novel.SystemClock{})
}

// NewStoreWithClock allows tests to control timestamps.
func NewStoreWithClock(clock novel.Clock) *Store {
	return &Store{
		requests: make(map[string]novel.Request),
		novels:   make(map[string]novel.Novel),
		chapters: make(map[string][]novel.Chapter),
		clock:    clock,
	}
}

// Close is a no-op.
func (s *Store) Close() {}

// CreateRequest stores a new request with a generated ID.
func (s *Store) CreateRequest(_ context.Context, req novel.Request) (novel.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	req.ID = uuid.NewString()
	if req.Status == "" {
		req.Status = novel.StatusPending
	}
	req.CreatedAt = now
	req.UpdatedAt = now
	s.requests[req.ID] = req
	return req, nil
}

// PendingRequests returns up to limit pending requests, oldest first.
func (s *Store) PendingRequests(_ context.Context, limit int) ([]novel.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []novel.Request
	for _, req := range s.requests {
		if req.Status == novel.StatusPending {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetRequest fetches a request by ID.
func (s *Store) GetRequest(_ context.Context, id string) (novel.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return novel.Request{}, novel.ErrNotFound
	}
	return req, nil
}

// ClaimRequest atomically moves a pending request to processing.
func (s *Store) ClaimRequest(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status != novel.StatusPending {
		return false, nil
	}
	req.Status = novel.StatusProcessing
	req.UpdatedAt = s.clock.Now()
	s.requests[id] = req
	return true, nil
}

// UpdateRequestStatus finalizes or annotates a request. Empty title and
// notes keep the stored values.
func (s *Store) UpdateRequestStatus(_ context.Context, id string, status novel.RequestStatus, title, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return novel.ErrNotFound
	}
	req.Status = status
	if title != "" {
		req.ResolvedTitle = title
	}
	if notes != "" {
		req.Notes = notes
	}
	req.UpdatedAt = s.clock.Now()
	s.requests[id] = req
	return nil
}

// RecentRequests returns the most recent requests, newest first.
func (s *Store) RecentRequests(_ context.Context, limit int) ([]novel.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]novel.Request, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountUserRequestsSince counts a user's non-rejected requests created at
// or after since.
func (s *Store) CountUserRequestsSince(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, req := range s.requests {
		if req.UserID == userID && req.Status != novel.StatusRejected && !req.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// UpsertNovel inserts or updates a novel keyed by title.
func (s *Store) UpsertNovel(_ context.Context, n novel.Novel) (novel.Novel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for id, existing := range s.novels {
		if existing.Title == n.Title {
			existing.Author = n.Author
			existing.Slug = n.Slug
			existing.OriginalURL = n.OriginalURL
			existing.SourceDomain = n.SourceDomain
			existing.UpdatedAt = now
			s.novels[id] = existing
			return existing, nil
		}
	}
	n.ID = uuid.NewString()
	n.CreatedAt = now
	n.UpdatedAt = now
	s.novels[n.ID] = n
	return n, nil
}

// InsertChapters stores chapters, replacing rows that share a chapter
// number.
func (s *Store) InsertChapters(_ context.Context, novelID string, chapters []novel.Chapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	byNumber := make(map[int]novel.Chapter, len(s.chapters[novelID]))
	for _, ch := range s.chapters[novelID] {
		byNumber[ch.Number] = ch
	}
	for _, ch := range chapters {
		existing, ok := byNumber[ch.Number]
		if ok {
			ch.ID = existing.ID
			ch.CreatedAt = existing.CreatedAt
		} else {
			ch.ID = uuid.NewString()
			ch.CreatedAt = now
		}
		ch.NovelID = novelID
		ch.UpdatedAt = now
		byNumber[ch.Number] = ch
	}

	merged := make([]novel.Chapter, 0, len(byNumber))
	for _, ch := range byNumber {
		merged = append(merged, ch)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Number < merged[j].Number })
	s.chapters[novelID] = merged
	return nil
}

// NovelBySlug fetches a novel addressed by its slug.
func (s *Store) NovelBySlug(_ context.Context, slug string) (novel.Novel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.novels {
		if n.Slug == slug {
			return n, nil
		}
	}
	return novel.Novel{}, novel.ErrNotFound
}

// ChaptersByNovel returns all chapters for a novel ordered by number.
func (s *Store) ChaptersByNovel(_ context.Context, novelID string) ([]novel.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.chapters[novelID]
	out := make([]novel.Chapter, len(stored))
	copy(out, stored)
	return out, nil
}
