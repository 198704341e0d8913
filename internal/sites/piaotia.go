package sites

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/novel"
)

var piaotiaChapterStrategies = []linkStrategy{
	{name: "centent-list", selector: ".centent li a"},
	{name: "mulu", selector: ".mulu li a, #mulu li a"},
	{name: "list-items", selector: "ul li a[href$='.html']"},
	{name: "href-pattern", selector: `a[href*="chapter"], a[href$=".html"]`},
}

var piaotiaContentSelectors = []string{
	"#content",
	".content",
	"#booktext",
	"td#content",
}

var piaotiaAuthorProbes = []authorProbe{
	{selector: "td, span", label: "作 者"},
	{selector: "td, span, p", label: "作者"},
	{selector: "td, span, p", label: "Author"},
}

type piaotia struct {
	fetcher novel.Fetcher
	logger  *zap.Logger
	minLen  int
}

func newPiaotia(opts Options) novel.Extractor {
	return &piaotia{
		fetcher: opts.Fetcher,
		logger:  opts.Logger.Named("piaotia"),
		minLen:  opts.MinContentLength,
	}
}

func (p *piaotia) Site() string { return "piaotia.com" }

func (p *piaotia) Extract(ctx context.Context, bookURL string) (novel.ExtractionResult, novel.ChapterStats, error) {
	html, err := p.fetcher.Fetch(ctx, bookURL)
	if err != nil {
		return novel.ExtractionResult{}, novel.ChapterStats{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return novel.ExtractionResult{}, novel.ChapterStats{}, &novel.NoChaptersFoundError{Site: p.Site(), URL: bookURL}
	}

	title := firstText(doc, "h1", ".title h1", "h2")
	if title == "" {
		title = "Untitled"
	}
	author := authorByProbes(doc, piaotiaAuthorProbes)

	base, _ := url.Parse(bookURL)
	refs := chapterRefs(doc, piaotiaChapterStrategies, base, p.logger)
	if len(refs) == 0 {
		return novel.ExtractionResult{}, novel.ChapterStats{}, &novel.NoChaptersFoundError{Site: p.Site(), URL: bookURL}
	}

	p.logger.Info("parsed book page",
		zap.String("title", title),
		zap.Int("chapters", len(refs)),
	)

	chapters, stats := fetchChapters(ctx, p.fetcher, refs, p.Site(), func(doc *goquery.Document) (string, bool) {
		return bodyFromSelectors(doc, piaotiaContentSelectors, p.minLen)
	}, p.logger)

	return novel.ExtractionResult{
		Title:    title,
		Author:   author,
		Chapters: chapters,
	}, stats, nil
}
