package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodePageDefaultsMissingFields(t *testing.T) {
	t.Parallel()

	page, err := DecodePage([]byte(`{"location":"https://a.example/x"}`))
	require.NoError(t, err)

	require.Equal(t, "https://a.example/x", page.Location)
	require.Empty(t, page.Title)
	require.NotNil(t, page.Keywords)
	require.NotNil(t, page.Headings)
	require.NotNil(t, page.Content)
	require.NotNil(t, page.Links)
	require.NotNil(t, page.ScriptLinks)
	require.NotNil(t, page.ScriptContent)
	require.Zero(t, page.CreatedAt)
}

func TestDecodePageRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := DecodePage([]byte(`{"location": `))
	require.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	in := PageRecord{
		Title:    "A Title",
		Content:  []string{"first block", "second block"},
		Links:    []string{"https://b.example/"},
		Location: "https://a.example/x",
	}
	data, err := EncodePage(in)
	require.NoError(t, err)

	out, err := DecodePage(data)
	require.NoError(t, err)
	require.Equal(t, in.Title, out.Title)
	require.Equal(t, in.Content, out.Content)
	require.Equal(t, in.Links, out.Links)
	require.Equal(t, in.Location, out.Location)
}

func TestValidateLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		location string
		valid    bool
	}{
		{"https", "https://a.example/x", true},
		{"http", "http://a.example", true},
		{"with port", "https://a.example:8443/x", true},
		{"empty", "", false},
		{"relative", "/just/a/path", false},
		{"ftp scheme", "ftp://a.example/file", false},
		{"scheme only", "https://", false},
		{"garbage", "not a url", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := PageRecord{Location: tc.location}.ValidateLocation()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestDomainIncludesPort(t *testing.T) {
	t.Parallel()

	domain, err := PageRecord{Location: "https://a.example:8443/x?q=1"}.Domain()
	require.NoError(t, err)
	require.Equal(t, "a.example:8443", domain)

	domain, err = PageRecord{Location: "https://a.example/x"}.Domain()
	require.NoError(t, err)
	require.Equal(t, "a.example", domain)
}

func TestTokenizeIsDeterministic(t *testing.T) {
	t.Parallel()

	page := PageRecord{
		Title:    "Going Deeper with Goroutines",
		Content:  []string{"Channels carry values between goroutines safely."},
		Location: "https://blog.example/goroutines",
	}
	first := page.Tokenize()
	second := page.Tokenize()
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestTokenizeFiltersShortAndNonASCII(t *testing.T) {
	t.Parallel()

	page := PageRecord{
		Title: "Go is fun 2024 naïve testing_underscores VERYLONGWORD",
	}
	tokens := page.Tokenize()

	// Short tokens, digits, underscores and non-ASCII words are all dropped;
	// survivors are lower-case ASCII-alphabetic and longer than 3 chars.
	require.Equal(t, "verylongword", tokens)
}

func TestTokenizeFieldOrderIsFixed(t *testing.T) {
	t.Parallel()

	page := PageRecord{
		Title:    "alpha words",
		Keywords: []string{"bravo words"},
		Content:  []string{"charlie words"},
		Links:    []string{"https://delta.example/path"},
		Location: "https://echo.example/page",
	}
	require.Equal(t,
		"alpha words bravo words charlie words https delta example path https echo example page",
		page.Tokenize(),
	)
}

func TestTokenizeEmptyPage(t *testing.T) {
	t.Parallel()

	require.Empty(t, PageRecord{}.Tokenize())
}

func TestContentTextJoinsFragments(t *testing.T) {
	t.Parallel()

	page := PageRecord{Content: []string{"one", "two", "three"}}
	require.Equal(t, "one two three", page.ContentText())
	require.Empty(t, PageRecord{}.ContentText())
}

func TestEncodeOutlinkShape(t *testing.T) {
	t.Parallel()

	data, err := EncodeOutlink(Outlink{Location: "https://a.example/next", Retries: 0})
	require.NoError(t, err)
	require.JSONEq(t, `{"location":"https://a.example/next","retries":0}`, string(data))
}
