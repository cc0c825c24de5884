// Package fetch scrapes the pages a batch is generated for, and the site
// homepage, into prompt-ready context.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const DefaultUserAgent = "Mozilla/5.0 (compatible; StructuredDataBot/1.0)"

// Options configures a Fetcher. Zero values take the defaults.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBytes     int64
	AllowHTTP    bool
	AllowPrivate bool
}

// Fetcher downloads and parses pages. It is safe for concurrent use.
type Fetcher struct {
	opts   Options
	client *http.Client
}

func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 5 << 20
	}
	return &Fetcher{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Fetch downloads pageURL and extracts a Page. It never returns nil:
// failures are recorded in Page.Err.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) *Page {
	start := time.Now()
	p, err := f.fetch(ctx, pageURL)
	if err != nil {
		slog.Warn("fetch: page failed", "url", pageURL, "error", err)
		return &Page{URL: pageURL, Err: err.Error()}
	}
	slog.Debug("fetch: page fetched",
		"url", pageURL,
		"status", p.Status,
		"jsonld_blocks", len(p.ExistingJSONLD),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return p
}

func (f *Fetcher) fetch(ctx context.Context, pageURL string) (*Page, error) {
	if err := ValidateURL(pageURL, f.opts.AllowHTTP, f.opts.AllowPrivate); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), pageURL)
	}

	p, err := Parse(pageURL, io.LimitReader(resp.Body, f.opts.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	p.Status = resp.StatusCode
	return p, nil
}

// FetchAll fetches every URL in order, waiting delay between requests,
// and returns the pages keyed by URL. It stops early when ctx is done.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, delay time.Duration) map[string]*Page {
	pages := make(map[string]*Page, len(urls))
	for i, u := range urls {
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return pages
			}
		}
		if ctx.Err() != nil {
			return pages
		}
		slog.Info("fetch: fetching page", "index", i+1, "total", len(urls), "url", u)
		pages[u] = f.Fetch(ctx, u)
	}
	return pages
}

// DiscoverOrganization fetches the homepage of domain (scheme and host)
// and returns its prompt text as organization context. A failed fetch
// yields NoOrganizationData and the failed page.
func (f *Fetcher) DiscoverOrganization(ctx context.Context, domain string) (string, *Page) {
	home := strings.TrimSuffix(domain, "/") + "/"
	p := f.Fetch(ctx, home)
	if p.Failed() {
		slog.Warn("fetch: homepage discovery failed, using row data only", "url", home)
		return NoOrganizationData, p
	}
	slog.Info("fetch: homepage discovered",
		"url", home,
		"business_name", p.BusinessName(),
		"phones", len(p.Phones),
		"social_links", len(p.SocialLinks),
	)
	return p.PromptText(), p
}
