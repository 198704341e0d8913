package novel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://twkan.com/book/76943.html":       "twkan-76943",
		"https://www.piaotia.com/bookinfo/12/345": "piaotia-345",
		"https://ixdzs.tw/read/548478/":           "ixdzs-548478",
		"https://example.com":                     "example",
		"not a url at all":                        "not-a-url-at-all",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	require.True(t, StatusCompleted.Terminal())
	require.True(t, StatusError.Terminal())
	require.True(t, StatusRejected.Terminal())
	require.False(t, StatusPending.Terminal())
	require.False(t, StatusProcessing.Terminal())
}

func TestChapterIsSentinel(t *testing.T) {
	t.Parallel()

	require.True(t, Chapter{Content: SentinelNoContent}.IsSentinel())
	require.True(t, Chapter{Content: SentinelFetchError}.IsSentinel())
	require.False(t, Chapter{Content: "real prose"}.IsSentinel())
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	fetchErr := &FetchError{URL: "https://twkan.com/x", StatusCode: 503}
	require.True(t, IsRetryable(fetchErr))
	require.True(t, IsRetryable(fmt.Errorf("extract: %w", fetchErr)))

	require.False(t, IsRetryable(&UnsupportedDomainError{Domain: "example.com"}))
	require.False(t, IsRetryable(&NoChaptersFoundError{Site: "twkan", URL: "u"}))
	require.False(t, IsRetryable(errors.New("plain")))
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	require.Contains(t, (&UnsupportedDomainError{Domain: "example.com"}).Error(), "example.com")

	nce := &NoChaptersFoundError{Site: "twkan", URL: "https://twkan.com/book/1.html"}
	require.Contains(t, nce.Error(), "twkan")
	require.Contains(t, nce.Error(), "https://twkan.com/book/1.html")

	fe := &FetchError{URL: "https://twkan.com/c1", StatusCode: 404}
	require.Contains(t, fe.Error(), "404")
}

func TestCountWords(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, CountWords(""))
	require.Equal(t, 3, CountWords("one two three"))
	require.Equal(t, 2, CountWords("  padded \n words \t"))
}
