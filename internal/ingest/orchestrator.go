// Package ingest drives a request through the full pipeline: claim,
// extract, validate, persist, finalize.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/config"
	"github.com/quillworks/novelforge/internal/metrics"
	"github.com/quillworks/novelforge/internal/novel"
	"github.com/quillworks/novelforge/internal/validate"
)

// Resolver maps a request URL to its site extractor.
type Resolver interface {
	Resolve(rawURL string) (novel.Extractor, error)
}

// Orchestrator coordinates the ingestion pipeline for one request at a
// time. Batch isolation happens in RunOnce.
type Orchestrator struct {
	store     novel.Store
	registry  Resolver
	fetcher   novel.Fetcher
	blobs     novel.BlobStore
	publisher novel.Publisher
	logger    *zap.Logger
	cfg       config.IngestConfig
}

// Options carries the orchestrator's dependencies. Fetcher, Blobs and
// Publisher are optional.
type Options struct {
	Store     novel.Store
	Registry  Resolver
	Fetcher   novel.Fetcher
	Blobs     novel.BlobStore
	Publisher novel.Publisher
	Logger    *zap.Logger
	Config    config.IngestConfig
}

// New wires an Orchestrator from its dependencies.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Config.BatchSize <= 0 {
		opts.Config.BatchSize = 10
	}
	if opts.Config.FetchRetries <= 0 {
		opts.Config.FetchRetries = 1
	}
	return &Orchestrator{
		store:     opts.Store,
		registry:  opts.Registry,
		fetcher:   opts.Fetcher,
		blobs:     opts.Blobs,
		publisher: opts.Publisher,
		logger:    opts.Logger.Named("ingest"),
		cfg:       opts.Config,
	}, nil
}

// RunOnce claims and processes one batch of pending requests. A failure
// in one request never stops the rest of the batch.
func (o *Orchestrator) RunOnce(ctx context.Context) ([]novel.IngestReport, error) {
	pending, err := o.store.PendingRequests(ctx, o.cfg.BatchSize)
	if err != nil {
		return nil, err
	}
	reports := make([]novel.IngestReport, 0, len(pending))
	for _, req := range pending {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		reports = append(reports, o.ProcessRequest(ctx, req))
	}
	return reports, nil
}

// Run processes batches on the configured poll interval until ctx is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	interval := o.cfg.PollInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := o.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			o.logger.Error("batch run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SubmitAndProcess creates a pending request for rawURL and runs the
// pipeline on it in the same call. One-shot commands use this to skip
// the poll loop.
func (o *Orchestrator) SubmitAndProcess(ctx context.Context, rawURL, userID string) (novel.IngestReport, error) {
	req, err := o.store.CreateRequest(ctx, novel.Request{URL: rawURL, UserID: userID})
	if err != nil {
		return novel.IngestReport{}, err
	}
	return o.ProcessRequest(ctx, req), nil
}

// ProcessRequestByID loads a request and processes it.
func (o *Orchestrator) ProcessRequestByID(ctx context.Context, id string) (novel.IngestReport, error) {
	req, err := o.store.GetRequest(ctx, id)
	if err != nil {
		return novel.IngestReport{}, err
	}
	return o.ProcessRequest(ctx, req), nil
}

// ProcessRequest runs the pipeline for a single request. The claim is a
// compare-and-set on pending status, so concurrent orchestrators never
// double-process a request. All post-claim failures finalize as error.
func (o *Orchestrator) ProcessRequest(ctx context.Context, req novel.Request) novel.IngestReport {
	report := novel.IngestReport{RequestID: req.ID, Status: req.Status}
	logger := o.logger.With(zap.String("request_id", req.ID), zap.String("url", req.URL))

	claimed, err := o.store.ClaimRequest(ctx, req.ID)
	if err != nil {
		logger.Error("claim failed", zap.Error(err))
		return report
	}
	if !claimed {
		logger.Debug("request no longer pending, skipping")
		return report
	}

	metrics.IncActiveIngests()
	defer metrics.DecActiveIngests()

	extractor, err := o.registry.Resolve(req.URL)
	if err != nil {
		logger.Warn("no site adapter for request", zap.Error(err))
		return o.finalize(ctx, report, novel.StatusError, "", err.Error(), logger)
	}
	logger = logger.With(zap.String("site", extractor.Site()))

	o.archiveLanding(ctx, req, logger)

	var (
		result novel.ExtractionResult
		stats  novel.ChapterStats
	)
	err = retry.Do(
		func() error {
			var extractErr error
			result, stats, extractErr = extractor.Extract(ctx, req.URL)
			return extractErr
		},
		retry.Attempts(uint(o.cfg.FetchRetries)),
		retry.RetryIf(novel.IsRetryable),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("extraction retry", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		logger.Error("extraction failed", zap.Error(err))
		return o.finalize(ctx, report, novel.StatusError, "", err.Error(), logger)
	}
	report.Stats = stats

	flagged, note := o.reviewChapters(result.Chapters)
	report.Flagged = flagged

	slug, err := o.persist(ctx, req, result)
	if err != nil {
		logger.Error("persistence failed", zap.Error(err))
		return o.finalize(ctx, report, novel.StatusError, result.Title, err.Error(), logger)
	}
	report.Slug = slug
	report.Title = result.Title

	status := novel.StatusCompleted
	if stats.SuccessfulChapters == 0 {
		// The novel row and sentinel chapters stay behind so a later
		// re-ingest can fill them in.
		status = novel.StatusError
		note = joinNotes("no chapters could be fetched", note)
	}
	report.Notes = note

	logger.Info("request processed",
		zap.String("status", string(status)),
		zap.String("slug", slug),
		zap.Int("chapters", stats.TotalChapters),
		zap.Int("failed_chapters", stats.FailedChapters),
		zap.Int("flagged_chapters", flagged),
	)
	return o.finalize(ctx, report, status, result.Title, note, logger)
}

// archiveLanding stores the raw landing page HTML for replay. Archive
// failures never fail the request.
func (o *Orchestrator) archiveLanding(ctx context.Context, req novel.Request, logger *zap.Logger) {
	if o.blobs == nil || o.fetcher == nil {
		return
	}
	html, err := o.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		logger.Warn("landing page archive fetch failed", zap.Error(err))
		return
	}
	path := fmt.Sprintf("requests/%s/landing.html", req.ID)
	uri, err := o.blobs.PutObject(ctx, path, "text/html", []byte(html))
	if err != nil {
		logger.Warn("landing page archive failed", zap.Error(err))
		return
	}
	if uri != "" {
		logger.Debug("landing page archived", zap.String("uri", uri))
	}
}

// reviewChapters runs content validation over every extracted chapter.
// Validation is advisory: issues are counted and summarized in the
// request notes, never rejected.
func (o *Orchestrator) reviewChapters(chapters []novel.ExtractedChapter) (int, string) {
	flagged := 0
	byIssue := make(map[string]int)
	for _, ch := range chapters {
		issues := validate.Content(ch.Content)
		if len(issues) == 0 {
			continue
		}
		flagged++
		for _, issue := range issues {
			byIssue[issue]++
			metrics.ObserveValidatorIssue(issue)
		}
	}
	if flagged == 0 {
		return 0, ""
	}

	issues := make([]string, 0, len(byIssue))
	for issue := range byIssue {
		issues = append(issues, issue)
	}
	sort.Strings(issues)
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, fmt.Sprintf("%s x%d", issue, byIssue[issue]))
	}
	return flagged, fmt.Sprintf("%d chapters flagged (%s)", flagged, strings.Join(parts, ", "))
}

// persist upserts the novel and writes its chapters, returning the slug
// readers use to address the book.
func (o *Orchestrator) persist(ctx context.Context, req novel.Request, result novel.ExtractionResult) (string, error) {
	stored, err := o.store.UpsertNovel(ctx, novel.Novel{
		Title:        result.Title,
		Author:       result.Author,
		Slug:         novel.Slugify(req.URL),
		OriginalURL:  req.URL,
		SourceDomain: hostOf(req.URL),
	})
	if err != nil {
		return "", err
	}

	chapters := make([]novel.Chapter, 0, len(result.Chapters))
	for i, ch := range result.Chapters {
		words := 0
		if !ch.IsSentinel() {
			words = novel.CountWords(ch.Content)
		}
		chapters = append(chapters, novel.Chapter{
			Number:    i + 1,
			Title:     ch.Title,
			Content:   ch.Content,
			WordCount: words,
		})
	}
	if err := o.store.InsertChapters(ctx, stored.ID, chapters); err != nil {
		return "", err
	}
	return stored.Slug, nil
}

// finalize writes the terminal status, records metrics and publishes the
// completion event.
func (o *Orchestrator) finalize(
	ctx context.Context,
	report novel.IngestReport,
	status novel.RequestStatus,
	title, notes string,
	logger *zap.Logger,
) novel.IngestReport {
	report.Status = status
	report.Notes = notes
	if title != "" {
		report.Title = title
	}

	if err := o.store.UpdateRequestStatus(ctx, report.RequestID, status, title, notes); err != nil {
		logger.Error("status update failed", zap.Error(err))
	}
	metrics.ObserveIngest(string(status))

	if o.publisher != nil {
		event := novel.IngestEvent{
			RequestID: report.RequestID,
			Status:    status,
			Slug:      report.Slug,
			Title:     report.Title,
			Chapters:  report.Stats.TotalChapters,
			Failed:    report.Stats.FailedChapters,
		}
		if err := o.publisher.Publish(ctx, event); err != nil {
			logger.Warn("event publish failed", zap.Error(err))
		}
	}
	return report
}

func joinNotes(parts ...string) string {
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "; ")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
