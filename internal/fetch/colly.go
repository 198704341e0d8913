// Package fetch provides HTML retrieval for the ingestion pipeline.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/config"
	"github.com/quillworks/novelforge/internal/metrics"
	"github.com/quillworks/novelforge/internal/novel"
)

// CollyFetcher implements novel.Fetcher using the Colly collector.
type CollyFetcher struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based fetcher.
func NewCollyFetcher(cfg config.FetchConfig, logger *zap.Logger) (*CollyFetcher, error) {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	return &CollyFetcher{
		baseCollector: base,
		logger:        logger,
	}, nil
}

// Fetch retrieves a page and returns its body as text. Non-2xx responses
// and transport failures surface as *novel.FetchError; there are no
// retries at this layer.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	collector := f.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{body: string(r.Body), status: r.StatusCode})
	})

	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{status: status, err: err})
	})

	start := time.Now()
	if err := collector.Visit(rawURL); err != nil {
		return "", &novel.FetchError{URL: rawURL, Err: err}
	}
	collector.Wait()
	metrics.ObserveFetch(rawURL, time.Since(start))

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return "", &novel.FetchError{URL: rawURL, Err: err}
		}
		if res.err != nil {
			f.logger.Debug("fetch failed",
				zap.String("url", rawURL),
				zap.Int("status_code", res.status),
				zap.Error(res.err),
			)
			return "", &novel.FetchError{URL: rawURL, StatusCode: res.status, Err: res.err}
		}
		if res.status < 200 || res.status >= 300 {
			return "", &novel.FetchError{URL: rawURL, StatusCode: res.status}
		}
		return res.body, nil
	default:
		return "", &novel.FetchError{URL: rawURL, Err: errors.New("fetch produced no result")}
	}
}

type fetchResult struct {
	body   string
	status int
	err    error
}
