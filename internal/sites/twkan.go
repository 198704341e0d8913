package sites

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/novel"
)

// twkanChapterStrategies is ordered most-structured first; the generic
// href-pattern match is the last resort. Order is significant.
var twkanChapterStrategies = []linkStrategy{
	{name: "chapter-list", selector: "ul.chapter-list li a"},
	{name: "chapter-list-generic", selector: ".chapter-list a"},
	{name: "catalog", selector: "#catalog a, .catalog a"},
	{name: "volume-list", selector: ".volume-wrap ul li a"},
	{name: "href-pattern", selector: `a[href*="chapter"]`},
}

var twkanContentSelectors = []string{
	".chapter-content",
	"#chapter-content",
	".read-content",
	"#content",
	"#booktxt",
}

var twkanAuthorProbes = []authorProbe{
	{selector: ".book-info .author", label: "Author"},
	{selector: ".book-info span", label: "作者"},
	{selector: "p, span, td", label: "Author"},
	{selector: "p, span, td", label: "作者"},
}

// twkan is the reference site adapter.
type twkan struct {
	fetcher novel.Fetcher
	logger  *zap.Logger
	minLen  int
}

func newTwkan(opts Options) novel.Extractor {
	return &twkan{
		fetcher: opts.Fetcher,
		logger:  opts.Logger.Named("twkan"),
		minLen:  opts.MinContentLength,
	}
}

// Site names the source this extractor handles.
func (t *twkan) Site() string { return "twkan.com" }

// Extract fetches the book landing page, parses metadata and the chapter
// list, then fetches every chapter sequentially. Per-chapter failures
// degrade to sentinel content; only page-level failures return an error.
func (t *twkan) Extract(ctx context.Context, bookURL string) (novel.ExtractionResult, novel.ChapterStats, error) {
	html, err := t.fetcher.Fetch(ctx, bookURL)
	if err != nil {
		return novel.ExtractionResult{}, novel.ChapterStats{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return novel.ExtractionResult{}, novel.ChapterStats{}, &novel.NoChaptersFoundError{Site: t.Site(), URL: bookURL}
	}

	title := firstText(doc, "h1.title", "h1", ".book-title")
	if title == "" {
		title = "Untitled"
	}
	author := authorByProbes(doc, twkanAuthorProbes)

	base, _ := url.Parse(bookURL)
	refs := chapterRefs(doc, twkanChapterStrategies, base, t.logger)
	if len(refs) == 0 {
		return novel.ExtractionResult{}, novel.ChapterStats{}, &novel.NoChaptersFoundError{Site: t.Site(), URL: bookURL}
	}

	t.logger.Info("parsed book page",
		zap.String("title", title),
		zap.String("author", author),
		zap.Int("chapters", len(refs)),
	)

	chapters, stats := fetchChapters(ctx, t.fetcher, refs, t.Site(), func(doc *goquery.Document) (string, bool) {
		return bodyFromSelectors(doc, twkanContentSelectors, t.minLen)
	}, t.logger)

	return novel.ExtractionResult{
		Title:    title,
		Author:   author,
		Chapters: chapters,
	}, stats, nil
}
