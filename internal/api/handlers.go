package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/novel"
)

type submitRequestBody struct {
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

type submitRequestResponse struct {
	Request novel.Request `json:"request"`
}

// submitRequest accepts a book URL for ingestion. Unsupported domains are
// recorded as rejected so the moderation log keeps the full submission
// history, and the user is never charged for them.
func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	var body submitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	body.URL = strings.TrimSpace(body.URL)
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	u, err := url.Parse(body.URL)
	if err != nil || u.Hostname() == "" || (u.Scheme != "http" && u.Scheme != "https") {
		writeError(w, http.StatusBadRequest, "url must be absolute http(s)")
		return
	}

	req := novel.Request{URL: body.URL, UserID: body.UserID}
	if !s.domainAllowed(u.Hostname()) {
		req.Status = novel.StatusRejected
		req.Notes = fmt.Sprintf("unsupported domain: %s", u.Hostname())
	} else if body.UserID != "" {
		cost, err := s.ticketCost(r.Context(), body.UserID)
		if err != nil {
			s.logger.Error("ticket cost lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to price request")
			return
		}
		req.TicketCost = cost
	}

	created, err := s.store.CreateRequest(r.Context(), req)
	if err != nil {
		s.logger.Error("request create failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create request")
		return
	}

	status := http.StatusAccepted
	if created.Status == novel.StatusRejected {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, submitRequestResponse{Request: created})
}

func (s *Server) domainAllowed(hostname string) bool {
	hostname = strings.ToLower(hostname)
	for _, domain := range s.cfg.Ingest.AllowedDomains {
		if strings.Contains(hostname, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "request_id")
	req, err := s.store.GetRequest(r.Context(), id)
	if errors.Is(err, novel.ErrNotFound) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		s.logger.Error("request lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": req})
}

// processRequest synchronously runs the pipeline for one request.
func (s *Server) processRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "request_id")
	report, err := s.orch.ProcessRequestByID(r.Context(), id)
	if errors.Is(err, novel.ErrNotFound) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		s.logger.Error("request processing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process request")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

// runBatch processes one batch of pending requests.
func (s *Server) runBatch(w http.ResponseWriter, r *http.Request) {
	reports, err := s.orch.RunOnce(r.Context())
	if err != nil {
		s.logger.Error("batch run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "batch run failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"processed": len(reports),
		"reports":   reports,
	})
}

func (s *Server) recentRequests(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	requests, err := s.store.RecentRequests(r.Context(), limit)
	if err != nil {
		s.logger.Error("recent requests lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch requests")
		return
	}
	if requests == nil {
		requests = []novel.Request{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

type chaptersResponse struct {
	Novel    novel.Novel     `json:"novel"`
	Chapters []novel.Chapter `json:"chapters"`
}

// chaptersBySlug returns a book and its full ordered chapter list.
func (s *Server) chaptersBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	n, err := s.store.NovelBySlug(r.Context(), slug)
	if errors.Is(err, novel.ErrNotFound) {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	if err != nil {
		s.logger.Error("novel lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch book")
		return
	}
	chapters, err := s.store.ChaptersByNovel(r.Context(), n.ID)
	if err != nil {
		s.logger.Error("chapter lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch chapters")
		return
	}
	if chapters == nil {
		chapters = []novel.Chapter{}
	}
	writeJSON(w, http.StatusOK, chaptersResponse{Novel: n, Chapters: chapters})
}
