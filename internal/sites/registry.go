// Package sites maps source domains to site-specific extraction
// strategies and implements the per-site extractors.
package sites

import (
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/novel"
)

// Options carries the dependencies shared by all extractors.
type Options struct {
	Fetcher novel.Fetcher
	Logger  *zap.Logger
	// MinContentLength is the substantial-content threshold for a chapter
	// body; shorter matches fall through to the next selector.
	MinContentLength int
}

// entry pairs a domain substring with an extractor factory. Declaration
// order is match order.
type entry struct {
	match string
	build func(Options) novel.Extractor
}

// Registry resolves a URL's domain to an extractor.
type Registry struct {
	entries []entry
	opts    Options
}

// NewRegistry builds the registry with the full adapter table.
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MinContentLength <= 0 {
		opts.MinContentLength = defaultMinContentLength
	}
	return &Registry{
		opts: opts,
		entries: []entry{
			{match: "twkan.com", build: newTwkan},
			{match: "piaotia.com", build: newPiaotia},
			{match: "ixdzs", build: newIxdzs},
		},
	}
}

// Resolve parses the URL's hostname and returns the first matching
// extractor. Unknown domains fail closed with UnsupportedDomainError.
func (r *Registry) Resolve(rawURL string) (novel.Extractor, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, &novel.UnsupportedDomainError{Domain: rawURL}
	}
	host := strings.ToLower(u.Hostname())
	for _, e := range r.entries {
		if strings.Contains(host, e.match) {
			return e.build(r.opts), nil
		}
	}
	return nil, &novel.UnsupportedDomainError{Domain: host}
}

// Supported returns the domain substrings the registry matches, in
// declaration order.
func (r *Registry) Supported() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.match
	}
	return out
}
