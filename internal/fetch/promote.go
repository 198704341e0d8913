package fetch

import (
	"context"

	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/novel"
)

// PromotingFetcher fetches via the fast path first and escalates to the
// headless renderer when the detector flags a JavaScript shell. With a nil
// renderer or detector it degrades to the plain fetcher.
type PromotingFetcher struct {
	base     novel.Fetcher
	renderer novel.Renderer
	detector *ShellDetector
	logger   *zap.Logger
}

// NewPromotingFetcher wraps base with shell detection and rendering.
func NewPromotingFetcher(base novel.Fetcher, renderer novel.Renderer, detector *ShellDetector, logger *zap.Logger) *PromotingFetcher {
	return &PromotingFetcher{
		base:     base,
		renderer: renderer,
		detector: detector,
		logger:   logger,
	}
}

// Fetch retrieves the page, promoting to a rendered snapshot when needed.
// A render failure falls back to the plain body rather than failing the
// fetch; the selector chains downstream decide whether it is usable.
func (f *PromotingFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	body, err := f.base.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if f.renderer == nil || f.detector == nil || !f.detector.NeedsJS(body) {
		return body, nil
	}

	rendered, renderErr := f.renderer.Render(ctx, rawURL)
	if renderErr != nil {
		f.logger.Warn("headless promotion failed; using fast-path body",
			zap.String("url", rawURL),
			zap.Error(renderErr),
		)
		return body, nil
	}
	f.logger.Debug("promoted to headless render", zap.String("url", rawURL))
	return rendered, nil
}

// PacedFetcher applies the per-domain rate policy before delegating.
type PacedFetcher struct {
	delegate novel.Fetcher
	limiter  Waiter
}

// Waiter blocks until the URL's domain may be hit again.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// NewPacedFetcher wraps delegate with the limiter.
func NewPacedFetcher(delegate novel.Fetcher, limiter Waiter) *PacedFetcher {
	return &PacedFetcher{delegate: delegate, limiter: limiter}
}

// Fetch waits for the domain's rate allowance, then delegates.
func (f *PacedFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return "", &novel.FetchError{URL: rawURL, Err: err}
		}
	}
	return f.delegate.Fetch(ctx, rawURL)
}
