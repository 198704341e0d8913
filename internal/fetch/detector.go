package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ShellDetector decides whether a fetched page is a JavaScript shell that
// needs headless rendering before it can be parsed.
type ShellDetector struct {
	minHTMLBytes  int
	mustSelectors []string
	keywords      []string
}

// NewShellDetector constructs a detector with the configured thresholds.
func NewShellDetector(minBytes int, mustSelectors, keywords []string) *ShellDetector {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		cleaned = append(cleaned, strings.ToLower(kw))
	}
	return &ShellDetector{
		minHTMLBytes:  minBytes,
		mustSelectors: mustSelectors,
		keywords:      cleaned,
	}
}

// NeedsJS inspects the HTML for signals that rendering is required: a
// body below the size threshold, known framework bootstrap markers, or
// the absence of selectors the site adapter depends on.
func (d *ShellDetector) NeedsJS(html string) bool {
	if d == nil {
		return false
	}
	switch {
	case d.minHTMLBytes > 0 && len(html) < d.minHTMLBytes:
		return true
	case d.containsKeywords(html):
		return true
	default:
		return d.missingSelectors(html)
	}
}

func (d *ShellDetector) containsKeywords(html string) bool {
	if html == "" || len(d.keywords) == 0 {
		return false
	}
	lower := strings.ToLower(html)
	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (d *ShellDetector) missingSelectors(html string) bool {
	if len(d.mustSelectors) == 0 || html == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return true
	}
	for _, sel := range d.mustSelectors {
		if sel == "" {
			continue
		}
		if doc.Find(sel).Length() == 0 {
			return true
		}
	}
	return false
}
