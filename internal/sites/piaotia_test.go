package sites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quillworks/novelforge/internal/novel"
)

func TestPiaotiaExtract(t *testing.T) {
	t.Parallel()

	fetcher := &mapFetcher{pages: map[string]string{
		"https://www.piaotia.com/bookinfo/9/9343.html": `<h1>斗罗大陆</h1>
			<table><tr><td>作 者：唐家三少</td></tr></table>
			<div class="centent">
				<ul>
					<li><a href="/html/9/9343/1.html">第一章</a></li>
					<li><a href="/html/9/9343/2.html">第二章</a></li>
				</ul>
			</div>`,
		"https://www.piaotia.com/html/9/9343/1.html": `<div id="content">` + longBody("chapter one") + `</div>`,
		"https://www.piaotia.com/html/9/9343/2.html": `<div id="content">` + longBody("chapter two") + `</div>`,
	}}
	ex := newPiaotia(Options{Fetcher: fetcher, Logger: zap.NewNop(), MinContentLength: defaultMinContentLength})

	result, stats, err := ex.Extract(context.Background(), "https://www.piaotia.com/bookinfo/9/9343.html")
	require.NoError(t, err)
	require.Equal(t, "斗罗大陆", result.Title)
	require.Equal(t, "唐家三少", result.Author)
	require.Len(t, result.Chapters, 2)
	require.Equal(t, "第一章", result.Chapters[0].Title)
	require.Contains(t, result.Chapters[1].Content, "chapter two")
	require.Equal(t, novel.ChapterStats{TotalChapters: 2, SuccessfulChapters: 2}, stats)
}

func TestPiaotiaExtractNoChapters(t *testing.T) {
	t.Parallel()

	fetcher := &mapFetcher{pages: map[string]string{
		"https://www.piaotia.com/bookinfo/9/1.html": `<h1>Listing Only</h1>`,
	}}
	ex := newPiaotia(Options{Fetcher: fetcher, Logger: zap.NewNop()})

	_, _, err := ex.Extract(context.Background(), "https://www.piaotia.com/bookinfo/9/1.html")

	var noChapters *novel.NoChaptersFoundError
	require.ErrorAs(t, err, &noChapters)
	require.Equal(t, "piaotia.com", noChapters.Site)
}
