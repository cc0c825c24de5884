package fetch

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<html><head><title> Acme HVAC | Atlanta </title>
<meta name="description" content=" Heating and cooling. ">
<meta property="og:image" content="https://acme.test/og.png">
<meta property="og:site_name" content="Acme">
<link rel="shortcut icon" href="/favicon.ico">
<script type="application/ld+json">{"@type": "Organization", "name": "Acme"}</script>
<script type="application/ld+json">not json</script>
</head><body><nav><a href="/about/">About</a></nav>
<main><h1>Acme HVAC</h1><p>We fix <b>heat</b> pumps.</p><script>var x = 1;</script>
<h2>Our Services</h2>
<a href="tel:+14045551234">Call</a> <a href="tel:+14045551234">Call again</a>
<a href="mailto:info@acme.test?subject=hi">Mail</a>
<a href="https://www.facebook.com/acme">FB</a> <a href="https://example.com/x">ext</a>
<a href="https://acme.test/contact/">Contact</a>
</main></body></html>`

func TestParse(t *testing.T) {
	p, err := Parse("https://acme.test/services/", strings.NewReader(fixture))
	require.NoError(t, err)

	assert.Equal(t, "Acme HVAC | Atlanta", p.Title)
	assert.Equal(t, "Acme HVAC", p.H1)
	assert.Equal(t, "Heating and cooling.", p.MetaDescription)
	assert.Equal(t, "https://acme.test/og.png", p.OGImage)
	assert.Equal(t, "Acme", p.OGSiteName)
	assert.Equal(t, "https://acme.test/favicon.ico", p.LogoURL)
	assert.Equal(t, []string{"+14045551234"}, p.Phones)
	assert.Equal(t, []string{"info@acme.test"}, p.Emails)
	assert.Equal(t, []string{"https://www.facebook.com/acme"}, p.SocialLinks)
	assert.Equal(t, []string{"https://acme.test/about/", "https://acme.test/contact/"}, p.InternalLinks)
	require.Len(t, p.ExistingJSONLD, 1)
	assert.Equal(t, "Acme", p.ExistingJSONLD[0].AsObject().GetString("name"))

	assert.True(t, strings.HasPrefix(p.BodyText, "Acme HVAC We fix heat pumps. Our Services"), p.BodyText)
	assert.NotContains(t, p.BodyText, "var x")
	assert.NotContains(t, p.BodyText, "About")
	assert.Contains(t, p.Markdown, "Our Services")
	assert.NotContains(t, p.Markdown, "var x")
}

func TestParseBodyFallbackAndWordLimit(t *testing.T) {
	body := "<html><body><p>" + strings.Repeat("word ", 600) + "</p></body></html>"
	p, err := Parse("https://acme.test/", strings.NewReader(body))
	require.NoError(t, err)
	assert.Len(t, strings.Fields(p.BodyText), maxBodyWords)
}

func TestPromptText(t *testing.T) {
	p, err := Parse("https://acme.test/services/", strings.NewReader(fixture))
	require.NoError(t, err)

	text := p.PromptText()
	assert.True(t, strings.HasPrefix(text, "URL: https://acme.test/services/\nTitle: Acme HVAC | Atlanta\nH1: Acme HVAC\n"), text)
	assert.Contains(t, text, "Phone: +14045551234")
	assert.Contains(t, text, "Email: info@acme.test")
	assert.Contains(t, text, "Social Links: https://www.facebook.com/acme")
	assert.Contains(t, text, "Existing JSON-LD found: 1 block(s)")

	failed := &Page{URL: "https://acme.test/", Err: "boom"}
	assert.True(t, failed.Failed())
	assert.Equal(t, "[Page fetch failed: boom]", failed.PromptText())

	var missing *Page
	assert.Equal(t, "[Page fetch failed: unknown error]", missing.PromptText())
}

func TestPromptTextLimits(t *testing.T) {
	p := &Page{URL: "u", BodyText: strings.Repeat("é", 3000)}
	for i := 0; i < 12; i++ {
		p.SocialLinks = append(p.SocialLinks, "https://x.com/"+string(rune('a'+i)))
	}
	text := p.PromptText()
	assert.Contains(t, text, "https://x.com/j")
	assert.NotContains(t, text, "https://x.com/k")
	assert.Contains(t, text, "Body Text (excerpt): "+strings.Repeat("é", maxPromptBodyChars))
	assert.NotContains(t, text, strings.Repeat("é", maxPromptBodyChars+1))
}

func TestOutline(t *testing.T) {
	p := &Page{Markdown: "# One\ntext\n## Two\n### Three"}
	assert.Equal(t, []string{"# One", "## Two"}, p.Outline(2))
}

func TestBusinessName(t *testing.T) {
	assert.Equal(t, "H", (&Page{H1: "H", Title: "T"}).BusinessName())
	assert.Equal(t, "T", (&Page{Title: "T"}).BusinessName())
}

func testFetcher() *Fetcher {
	return New(Options{Timeout: 5 * time.Second, AllowHTTP: true, AllowPrivate: true})
}

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	f := testFetcher()
	p := f.Fetch(context.Background(), srv.URL+"/services/")
	require.False(t, p.Failed(), p.Err)
	assert.Equal(t, http.StatusOK, p.Status)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, srv.URL+"/favicon.ico", p.LogoURL)

	p = f.Fetch(context.Background(), srv.URL+"/missing/")
	assert.True(t, p.Failed())
	assert.Contains(t, p.Err, "404")
}

func TestFetchRejectsUnsafeURL(t *testing.T) {
	p := New(Options{}).Fetch(context.Background(), "http://127.0.0.1/")
	assert.Equal(t, "only HTTPS URLs are allowed", p.Err)
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>" + r.URL.Path + "</title></head></html>"))
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/a/", srv.URL + "/b/"}
	pages := testFetcher().FetchAll(context.Background(), urls, time.Millisecond)
	require.Len(t, pages, 2)
	assert.Equal(t, "/b/", pages[srv.URL+"/b/"].Title)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, testFetcher().FetchAll(ctx, urls, 0))
}

func TestDiscoverOrganization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(fixture))
	}))
	defer srv.Close()

	text, p := testFetcher().DiscoverOrganization(context.Background(), srv.URL)
	require.False(t, p.Failed())
	assert.True(t, strings.HasPrefix(text, "URL: "+srv.URL+"/\n"), text)

	srv.Close()
	text, p = testFetcher().DiscoverOrganization(context.Background(), srv.URL)
	assert.True(t, p.Failed())
	assert.Equal(t, NoOrganizationData, text)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url          string
		allowHTTP    bool
		allowPrivate bool
		wantErr      string
	}{
		{"https://acme.test/", false, false, ""},
		{"http://acme.test/", false, false, "only HTTPS URLs are allowed"},
		{"http://acme.test/", true, false, ""},
		{"ftp://acme.test/", true, false, `unsupported URL scheme "ftp"`},
		{"https:///path", false, false, "URL has no host"},
		{"https://localhost/", false, false, "localhost URLs are not allowed"},
		{"https://printer.local/", false, false, "local domain URLs are not allowed"},
		{"https://10.0.0.5/", false, false, "private IP addresses are not allowed"},
		{"https://[::1]/", false, false, "private IP addresses are not allowed"},
		{"https://10.0.0.5/", false, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url, tt.allowHTTP, tt.allowPrivate)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	for _, s := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.1", "169.254.1.1", "100.64.0.1", "::ffff:10.0.0.1", "fd00::1", "fe80::1", "0.0.0.0"} {
		assert.True(t, IsPrivateIP(net.ParseIP(s)), s)
	}
	for _, s := range []string{"8.8.8.8", "2606:4700::1111"} {
		assert.False(t, IsPrivateIP(net.ParseIP(s)), s)
	}
}
