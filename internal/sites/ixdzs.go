package sites

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/novel"
)

var ixdzsChapterStrategies = []linkStrategy{
	{name: "chapter-list", selector: "ul.chapter li a"},
	{name: "catalog", selector: ".catalog a, #catalog a"},
	{name: "href-pattern", selector: `a[href*="/p"]`},
}

// ixdzs pages wrap the chapter body in div#page and interleave ad lines.
var (
	ixdzsChapterCountRe = regexp.MustCompile(`章節[：:]\s*(\d+)`)
	ixdzsTitleSuffixRe  = regexp.MustCompile(`[-|]爱下电子书.*$`)
	ixdzsAdMarkers      = []string{"广告", "ADVERTISEMENT", "推广", "SPONSORED"}
)

// ixdzsMaxSynthesized caps how many chapter URLs are synthesized from the
// advertised count when the landing page lists none.
const ixdzsMaxSynthesized = 2000

type ixdzs struct {
	fetcher novel.Fetcher
	logger  *zap.Logger
	minLen  int
}

func newIxdzs(opts Options) novel.Extractor {
	return &ixdzs{
		fetcher: opts.Fetcher,
		logger:  opts.Logger.Named("ixdzs"),
		minLen:  opts.MinContentLength,
	}
}

func (x *ixdzs) Site() string { return "ixdzs.tw" }

func (x *ixdzs) Extract(ctx context.Context, bookURL string) (novel.ExtractionResult, novel.ChapterStats, error) {
	html, err := x.fetcher.Fetch(ctx, bookURL)
	if err != nil {
		return novel.ExtractionResult{}, novel.ChapterStats{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return novel.ExtractionResult{}, novel.ChapterStats{}, &novel.NoChaptersFoundError{Site: x.Site(), URL: bookURL}
	}

	title := metaProperty(doc, "og:novel:book_name")
	if title == "" {
		title = strings.TrimSpace(ixdzsTitleSuffixRe.ReplaceAllString(firstText(doc, "h1", ".book-title"), ""))
	}
	if title == "" {
		title = "Untitled"
	}
	author := metaProperty(doc, "og:novel:author")
	if author == "" {
		author = "Unknown"
	}

	base, _ := url.Parse(bookURL)
	refs := chapterRefs(doc, ixdzsChapterStrategies, base, x.logger)
	if len(refs) == 0 {
		refs = x.synthesizeRefs(doc, bookURL)
	}
	if len(refs) == 0 {
		return novel.ExtractionResult{}, novel.ChapterStats{}, &novel.NoChaptersFoundError{Site: x.Site(), URL: bookURL}
	}

	x.logger.Info("parsed book page",
		zap.String("title", title),
		zap.String("author", author),
		zap.Int("chapters", len(refs)),
	)

	chapters, stats := fetchChapters(ctx, x.fetcher, refs, x.Site(), x.chapterBody, x.logger)

	return novel.ExtractionResult{
		Title:    title,
		Author:   author,
		Chapters: chapters,
	}, stats, nil
}

// synthesizeRefs builds p{n}.html chapter URLs from the chapter count the
// site advertises in its description meta, for listings rendered
// client-side.
func (x *ixdzs) synthesizeRefs(doc *goquery.Document, bookURL string) []novel.ChapterRef {
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	m := ixdzsChapterCountRe.FindStringSubmatch(desc)
	if m == nil {
		return nil
	}
	total, err := strconv.Atoi(m[1])
	if err != nil || total <= 0 {
		return nil
	}
	if total > ixdzsMaxSynthesized {
		total = ixdzsMaxSynthesized
	}

	trimmed := strings.TrimRight(bookURL, "/")
	refs := make([]novel.ChapterRef, 0, total)
	for i := 1; i <= total; i++ {
		refs = append(refs, novel.ChapterRef{
			Title: fmt.Sprintf("Chapter %d", i),
			URL:   fmt.Sprintf("%s/p%d.html", trimmed, i),
		})
	}
	return refs
}

// chapterBody extracts prose from div#page, dropping ad lines and
// fragments too short to be narrative.
func (x *ixdzs) chapterBody(doc *goquery.Document) (string, bool) {
	page := doc.Find("div#page").First()
	if page.Length() == 0 {
		return bodyFromSelectors(doc, []string{".chapter-content", "#content"}, x.minLen)
	}

	clone := page.Clone()
	for _, noise := range noiseSelectors {
		clone.Find(noise).Remove()
	}

	var lines []string
	for _, line := range strings.Split(clone.Text(), "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) <= 10 || containsAny(line, ixdzsAdMarkers) {
			continue
		}
		lines = append(lines, line)
	}
	content := strings.Join(lines, "\n")
	if len(content) <= x.minLen {
		return "", false
	}
	return content, true
}

func metaProperty(doc *goquery.Document, property string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).Attr("content")
	return strings.TrimSpace(content)
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
