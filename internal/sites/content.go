package sites

import (
	"context"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/metrics"
	"github.com/quillworks/novelforge/internal/novel"
)

const defaultMinContentLength = 50

// noiseSelectors are stripped from a content container before its text is
// taken; they contribute nothing to chapter prose.
var noiseSelectors = []string{
	"script", "style", "noscript", "iframe",
	".ad", ".ads", ".advertisement",
}

// linkStrategy is one ordered attempt at locating the chapter list.
// More specific, structured selectors come first; generic href-pattern
// matches last.
type linkStrategy struct {
	name     string
	selector string
}

// chapterRefs tries each strategy in order and returns the first
// non-empty chapter list, deduplicated by target URL. Relative hrefs are
// resolved against base.
func chapterRefs(doc *goquery.Document, strategies []linkStrategy, base *url.URL, logger *zap.Logger) []novel.ChapterRef {
	for _, strat := range strategies {
		var refs []novel.ChapterRef
		seen := make(map[string]struct{})
		doc.Find(strat.selector).Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			href = strings.TrimSpace(href)
			if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
				return
			}
			abs := resolveURL(base, href)
			if _, dup := seen[abs]; dup {
				return
			}
			seen[abs] = struct{}{}
			refs = append(refs, novel.ChapterRef{
				Title: strings.TrimSpace(sel.Text()),
				URL:   abs,
			})
		})
		if len(refs) > 0 {
			logger.Debug("chapter list strategy matched",
				zap.String("strategy", strat.name),
				zap.Int("chapters", len(refs)),
			)
			return refs
		}
	}
	return nil
}

// resolveURL resolves href against base, returning href unchanged when it
// is already absolute or base is nil.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// firstText returns the trimmed text of the first selector that matches a
// non-empty element.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// authorProbe pairs a candidate selector with the label text that marks
// an author field on the page.
type authorProbe struct {
	selector string
	label    string
}

// authorByProbes walks the probes in order and returns the first
// non-empty author candidate: the adjacent sibling's text, or the text
// after the label and a colon inside the same element. Probing stops at
// the first hit; candidates are never merged.
func authorByProbes(doc *goquery.Document, probes []authorProbe) string {
	for _, probe := range probes {
		author := ""
		doc.Find(probe.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			own := strings.TrimSpace(sel.Text())
			if !strings.Contains(own, probe.label) {
				return true
			}
			if sibling := strings.TrimSpace(sel.Next().Text()); sibling != "" {
				author = sibling
				return false
			}
			if inline := textAfterLabel(own, probe.label); inline != "" {
				author = inline
				return false
			}
			return true
		})
		if author != "" {
			return author
		}
	}
	return "Unknown"
}

func textAfterLabel(text, label string) string {
	idx := strings.Index(text, label)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(label):]
	rest = strings.TrimLeft(rest, " \t:：")
	if nl := strings.IndexAny(rest, "\n\r"); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}

// containerText strips noise from the container and normalizes its HTML
// to markdown-ish plain text; when conversion fails it falls back to the
// raw DOM text.
func containerText(sel *goquery.Selection) string {
	clone := sel.Clone()
	for _, noise := range noiseSelectors {
		clone.Find(noise).Remove()
	}
	if html, err := goquery.OuterHtml(clone); err == nil {
		if md, err := htmltomarkdown.ConvertString(html); err == nil {
			if text := strings.TrimSpace(md); text != "" {
				return text
			}
		}
	}
	return strings.TrimSpace(clone.Text())
}

// bodyFromSelectors probes the ordered content-container selectors and
// accepts the first whose text clears the substantial-content threshold.
func bodyFromSelectors(doc *goquery.Document, selectors []string, minLen int) (string, bool) {
	for _, sel := range selectors {
		found := doc.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if text := containerText(found); len(text) > minLen {
			return text, true
		}
	}
	return "", false
}

// bodyFn extracts a chapter body from a parsed chapter page, reporting
// whether substantial content was found.
type bodyFn func(doc *goquery.Document) (string, bool)

// fetchChapters drives the sequential per-chapter loop shared by all
// extractors: fetch each referenced page in list order, extract its body,
// and degrade failures to sentinel content instead of aborting. Chapter
// numbering downstream follows this order.
func fetchChapters(
	ctx context.Context,
	fetcher novel.Fetcher,
	refs []novel.ChapterRef,
	site string,
	extractBody bodyFn,
	logger *zap.Logger,
) ([]novel.ExtractedChapter, novel.ChapterStats) {
	chapters := make([]novel.ExtractedChapter, 0, len(refs))
	stats := novel.ChapterStats{TotalChapters: len(refs)}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			// Remaining chapters degrade to fetch-error sentinels so the
			// partial result keeps its full, ordered shape.
			chapters = append(chapters, novel.ExtractedChapter{
				Title:   ref.Title,
				Content: novel.SentinelFetchError,
			})
			stats.FailedChapters++
			metrics.ObserveChapter(site, "failed")
			continue
		}

		content := chapterBody(ctx, fetcher, ref, site, extractBody, logger)
		chapters = append(chapters, novel.ExtractedChapter{
			Title:   ref.Title,
			Content: content,
		})
		if content == novel.SentinelFetchError || content == novel.SentinelNoContent {
			stats.FailedChapters++
			metrics.ObserveChapter(site, "failed")
		} else {
			stats.SuccessfulChapters++
			metrics.ObserveChapter(site, "ok")
		}
	}
	return chapters, stats
}

func chapterBody(
	ctx context.Context,
	fetcher novel.Fetcher,
	ref novel.ChapterRef,
	site string,
	extractBody bodyFn,
	logger *zap.Logger,
) string {
	html, err := fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		logger.Warn("chapter fetch failed",
			zap.String("site", site),
			zap.String("url", ref.URL),
			zap.Error(err),
		)
		return novel.SentinelFetchError
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("chapter parse failed",
			zap.String("site", site),
			zap.String("url", ref.URL),
			zap.Error(err),
		)
		return novel.SentinelNoContent
	}
	body, ok := extractBody(doc)
	if !ok {
		return novel.SentinelNoContent
	}
	return body
}
