package fetch

import (
	"io"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"

	"github.com/brunobiangulo/schemagen/jsonld"
)

const (
	maxBodyWords     = 500
	maxMarkdownChars = 4000
)

// SocialHosts are the link targets recorded as social profiles.
var SocialHosts = []string{
	"facebook.com", "linkedin.com", "twitter.com", "x.com",
	"youtube.com", "instagram.com", "nextdoor.com", "bbb.org",
	"yelp.com", "mapquest.com",
}

// Parse extracts a Page from the HTML in r, resolving relative links
// against pageURL.
func Parse(pageURL string, r io.Reader) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)
	base, _ := url.Parse(pageURL)

	p := &Page{URL: pageURL}
	p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	p.H1 = strings.TrimSpace(doc.Find("h1").First().Text())
	p.MetaDescription = strings.TrimSpace(attr(doc.Find(`meta[name="description"]`), "content"))
	p.OGImage = attr(doc.Find(`meta[property="og:image"]`), "content")
	p.OGSiteName = attr(doc.Find(`meta[property="og:site_name"]`), "content")

	main := mainContent(doc)
	p.BodyText = firstWords(visibleText(main.Nodes), maxBodyWords)
	p.Markdown = truncateRunes(markdown(pageURL, main), maxMarkdownChars)

	if href := attr(doc.Find(`link[rel~="icon"]`), "href"); href != "" {
		p.LogoURL = resolve(base, href)
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if v, err := jsonld.Parse([]byte(strings.TrimSpace(s.Text()))); err == nil {
			p.ExistingJSONLD = append(p.ExistingJSONLD, v)
		}
	})

	origin := ""
	if base != nil && base.Host != "" {
		origin = base.Scheme + "://" + base.Host
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(attr(s, "href"))
		switch {
		case strings.HasPrefix(href, "tel:"):
			p.Phones = appendUnique(p.Phones, strings.TrimSpace(strings.TrimPrefix(href, "tel:")))
		case strings.HasPrefix(href, "mailto:"):
			email, _, _ := strings.Cut(strings.TrimPrefix(href, "mailto:"), "?")
			p.Emails = appendUnique(p.Emails, strings.TrimSpace(email))
		default:
			if isSocial(href) {
				p.SocialLinks = appendUnique(p.SocialLinks, href)
			}
			if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") && origin != "" {
				p.InternalLinks = appendUnique(p.InternalLinks, origin+href)
			} else if origin != "" && strings.HasPrefix(href, origin) {
				p.InternalLinks = appendUnique(p.InternalLinks, href)
			}
		}
	})
	return p, nil
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.First().Attr(name)
	return v
}

// mainContent picks main, then article, then body.
func mainContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

// visibleText joins the text nodes under nodes with single spaces,
// skipping script and style content.
func visibleText(nodes []*html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return b.String()
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func markdown(pageURL string, sel *goquery.Selection) string {
	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Host
	}
	conv := md.NewConverter(domain, true, nil)
	conv.Use(plugin.GitHubFlavored())
	conv.Remove("script", "style", "noscript", "nav", "footer", "form")
	return strings.TrimSpace(conv.Convert(sel))
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func isSocial(href string) bool {
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, h := range SocialHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	if v == "" || slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
