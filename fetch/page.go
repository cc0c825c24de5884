package fetch

import (
	"fmt"
	"strings"

	"github.com/brunobiangulo/schemagen/jsonld"
)

// NoOrganizationData is the organization context used when homepage
// discovery is skipped or fails.
const NoOrganizationData = "No organization data discovered."

// Page is what was scraped from one URL. A failed fetch has Err set and
// nothing else but URL.
type Page struct {
	URL             string          `json:"url"`
	Status          int             `json:"status,omitempty"`
	Err             string          `json:"error,omitempty"`
	Title           string          `json:"title,omitempty"`
	H1              string          `json:"h1,omitempty"`
	MetaDescription string          `json:"meta_description,omitempty"`
	OGImage         string          `json:"og_image,omitempty"`
	OGSiteName      string          `json:"og_site_name,omitempty"`
	BodyText        string          `json:"body_text,omitempty"`
	Markdown        string          `json:"markdown,omitempty"`
	Phones          []string        `json:"phone_numbers,omitempty"`
	Emails          []string        `json:"email_addresses,omitempty"`
	SocialLinks     []string        `json:"social_links,omitempty"`
	LogoURL         string          `json:"logo_url,omitempty"`
	ExistingJSONLD  []*jsonld.Value `json:"-"`
	InternalLinks   []string        `json:"internal_links,omitempty"`
}

func (p *Page) Failed() bool { return p == nil || p.Err != "" }

// BusinessName is the best guess at the site's name: h1, then title.
func (p *Page) BusinessName() string {
	if p.H1 != "" {
		return p.H1
	}
	return p.Title
}

const (
	maxPromptSocialLinks = 10
	maxPromptBodyChars   = 2000
	maxPromptOutline     = 15
)

// PromptText renders the page as the labelled plain text that goes into
// a generation prompt.
func (p *Page) PromptText() string {
	if p == nil {
		return "[Page fetch failed: unknown error]"
	}
	if p.Err != "" {
		return fmt.Sprintf("[Page fetch failed: %s]", p.Err)
	}

	parts := []string{"URL: " + p.URL}
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Title", p.Title)
	add("H1", p.H1)
	add("Meta Description", p.MetaDescription)
	add("Site Name", p.OGSiteName)
	add("OG Image", p.OGImage)
	add("Logo", p.LogoURL)
	add("Phone", strings.Join(p.Phones, ", "))
	add("Email", strings.Join(p.Emails, ", "))
	social := p.SocialLinks
	if len(social) > maxPromptSocialLinks {
		social = social[:maxPromptSocialLinks]
	}
	add("Social Links", strings.Join(social, ", "))
	add("Body Text (excerpt)", truncateRunes(p.BodyText, maxPromptBodyChars))
	if outline := p.Outline(maxPromptOutline); len(outline) > 0 {
		parts = append(parts, "Page Outline:\n"+strings.Join(outline, "\n"))
	}
	if n := len(p.ExistingJSONLD); n > 0 {
		parts = append(parts, fmt.Sprintf("Existing JSON-LD found: %d block(s)", n))
	}
	return strings.Join(parts, "\n")
}

// Outline returns up to limit markdown heading lines of the page content.
func (p *Page) Outline(limit int) []string {
	var out []string
	for _, line := range strings.Split(p.Markdown, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
