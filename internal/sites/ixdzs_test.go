package sites

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/novel"
)

func newIxdzsForTest(fetcher novel.Fetcher) novel.Extractor {
	return newIxdzs(Options{
		Fetcher:          fetcher,
		Logger:           zap.NewNop(),
		MinContentLength: defaultMinContentLength,
	})
}

func ixdzsChapterPage(lines ...string) string {
	return `<div id="page">` + strings.Join(lines, "\n") + `</div>`
}

func TestIxdzsExtractMetadataFromOGTags(t *testing.T) {
	t.Parallel()

	fetcher := &mapFetcher{pages: map[string]string{
		"https://ixdzs.tw/read/548478/": `<head>
				<meta property="og:novel:book_name" content="修真聊天群"/>
				<meta property="og:novel:author" content="圣骑士的传说"/>
			</head>
			<ul class="chapter">
				<li><a href="/read/548478/p1.html">第一章</a></li>
			</ul>`,
		"https://ixdzs.tw/read/548478/p1.html": ixdzsChapterPage(longBody("opening scene")),
	}}

	result, stats, err := newIxdzsForTest(fetcher).Extract(context.Background(), "https://ixdzs.tw/read/548478/")
	require.NoError(t, err)
	require.Equal(t, "修真聊天群", result.Title)
	require.Equal(t, "圣骑士的传说", result.Author)
	require.Equal(t, 1, stats.SuccessfulChapters)
	require.Contains(t, result.Chapters[0].Content, "opening scene")
}

func TestIxdzsSynthesizesChapterURLsFromDescription(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"https://ixdzs.tw/read/548478": `<head>
			<meta property="og:novel:book_name" content="Test Book"/>
			<meta name="description" content="全文免費閱讀，章節：3，最新更新"/>
		</head><h1>Test Book</h1>`,
	}
	for i := 1; i <= 3; i++ {
		pages[fmt.Sprintf("https://ixdzs.tw/read/548478/p%d.html", i)] =
			ixdzsChapterPage(longBody(fmt.Sprintf("part %d", i)))
	}
	fetcher := &mapFetcher{pages: pages}

	result, stats, err := newIxdzsForTest(fetcher).Extract(context.Background(), "https://ixdzs.tw/read/548478")
	require.NoError(t, err)
	require.Len(t, result.Chapters, 3)
	require.Equal(t, "Chapter 1", result.Chapters[0].Title)
	require.Equal(t, 3, stats.SuccessfulChapters)
	require.Contains(t, result.Chapters[2].Content, "part 3")
}

func TestIxdzsChapterBodyFiltersAdLines(t *testing.T) {
	t.Parallel()

	fetcher := &mapFetcher{pages: map[string]string{
		"https://ixdzs.tw/read/1/": `<meta property="og:novel:book_name" content="B"/>
			<ul class="chapter"><li><a href="/read/1/p1.html">C1</a></li></ul>`,
		"https://ixdzs.tw/read/1/p1.html": ixdzsChapterPage(
			longBody("the story continues here"),
			"广告：點擊下載最新APP立即免費閱讀全部章節內容",
			"ADVERTISEMENT please support our sponsors today",
			"short",
			"點擊下載免費閱讀",
			longBody("and then it ends here"),
		),
	}}

	result, _, err := newIxdzsForTest(fetcher).Extract(context.Background(), "https://ixdzs.tw/read/1/")
	require.NoError(t, err)

	content := result.Chapters[0].Content
	require.Contains(t, content, "the story continues here")
	require.Contains(t, content, "and then it ends here")
	require.NotContains(t, content, "广告")
	require.NotContains(t, content, "ADVERTISEMENT")
	require.NotContains(t, content, "short")
	// 8 characters but 24 bytes; the short-line filter counts characters.
	require.NotContains(t, content, "點擊下載免費閱讀")
}

func TestIxdzsNoChaptersAndNoCount(t *testing.T) {
	t.Parallel()

	fetcher := &mapFetcher{pages: map[string]string{
		"https://ixdzs.tw/read/2/": `<meta property="og:novel:book_name" content="Empty"/>
			<meta name="description" content="no count advertised"/>`,
	}}

	_, _, err := newIxdzsForTest(fetcher).Extract(context.Background(), "https://ixdzs.tw/read/2/")

	var noChapters *novel.NoChaptersFoundError
	require.ErrorAs(t, err, &noChapters)
	require.Equal(t, "ixdzs.tw", noChapters.Site)
}

func TestIxdzsMissingMetadataFallsBack(t *testing.T) {
	t.Parallel()

	fetcher := &mapFetcher{pages: map[string]string{
		"https://ixdzs.tw/read/3/": `<h1>白金之书-爱下电子书</h1>
			<ul class="chapter"><li><a href="/read/3/p1.html">C1</a></li></ul>`,
		"https://ixdzs.tw/read/3/p1.html": ixdzsChapterPage(longBody("body")),
	}}

	result, _, err := newIxdzsForTest(fetcher).Extract(context.Background(), "https://ixdzs.tw/read/3/")
	require.NoError(t, err)
	require.Equal(t, "白金之书", result.Title)
	require.Equal(t, "Unknown", result.Author)
}
