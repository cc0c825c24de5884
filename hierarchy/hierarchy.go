// Package hierarchy derives the relationships the generator is asked to
// wire and the batch audit later checks: parent, child and sibling links
// between service pages, and the organization that owns each location.
package hierarchy

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/brunobiangulo/schemagen/ingest"
	"github.com/brunobiangulo/schemagen/schema"
)

// Node is one service URL's place in the hierarchy.
type Node struct {
	URL      string   `json:"url"`
	Segments []string `json:"segments"`
	Depth    int      `json:"depth"`
	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children"`
	Siblings []string `json:"siblings"`
}

// ServiceHierarchy holds the nodes of every service row in input order.
type ServiceHierarchy struct {
	order []string
	nodes map[string]*Node
}

// Get returns the node for url.
func (h *ServiceHierarchy) Get(url string) (*Node, bool) {
	if h == nil {
		return nil, false
	}
	n, ok := h.nodes[url]
	return n, ok
}

// URLs returns the service URLs in input order.
func (h *ServiceHierarchy) URLs() []string {
	if h == nil {
		return nil
	}
	return h.order
}

// Len returns the number of service URLs.
func (h *ServiceHierarchy) Len() int {
	if h == nil {
		return 0
	}
	return len(h.order)
}

// BuildServiceHierarchy links every row whose primary type is Service.
//
// A URL's parent is the first other service URL, in input order, whose
// path segments are a prefix of its own and exactly one shorter. Siblings
// share a non-empty parent and depth, so top-level services without a
// common parent are never siblings of each other.
func BuildServiceHierarchy(rows []ingest.Row) *ServiceHierarchy {
	h := &ServiceHierarchy{nodes: make(map[string]*Node)}
	for _, r := range rows {
		if r.PrimaryType() != schema.Service {
			continue
		}
		if _, dup := h.nodes[r.URL]; dup {
			continue
		}
		segs := pathSegments(r.URL)
		h.order = append(h.order, r.URL)
		h.nodes[r.URL] = &Node{
			URL:      r.URL,
			Segments: segs,
			Depth:    len(segs),
			Children: []string{},
			Siblings: []string{},
		}
	}

	for _, u := range h.order {
		node := h.nodes[u]
		for _, other := range h.order {
			if other == u {
				continue
			}
			cand := h.nodes[other]
			if cand.Depth != node.Depth-1 || !hasPrefix(node.Segments, cand.Segments) {
				continue
			}
			if node.Parent != "" {
				slog.Debug("hierarchy: ambiguous parent", "url", u, "kept", node.Parent, "ignored", other)
				continue
			}
			node.Parent = other
			cand.Children = append(cand.Children, u)
		}
	}

	for _, u := range h.order {
		node := h.nodes[u]
		if node.Parent == "" {
			continue
		}
		for _, other := range h.order {
			if other == u {
				continue
			}
			cand := h.nodes[other]
			if cand.Parent == node.Parent && cand.Depth == node.Depth {
				node.Siblings = append(node.Siblings, other)
			}
		}
	}
	return h
}

// Locations pairs the organization row with its location rows.
type Locations struct {
	OrgURL       string   `json:"org_url,omitempty"`
	LocationURLs []string `json:"location_urls"`
}

// BuildLocationRelationships finds the Organization row and every row
// whose primary type is LocalBusiness. When several rows are tagged
// Organization the first one is used.
func BuildLocationRelationships(rows []ingest.Row) Locations {
	loc := Locations{LocationURLs: []string{}}
	for _, r := range rows {
		switch {
		case r.InferredType == schema.Organization:
			if loc.OrgURL != "" {
				slog.Debug("hierarchy: extra organization row ignored", "url", r.URL, "kept", loc.OrgURL)
				continue
			}
			loc.OrgURL = r.URL
		case r.PrimaryType() == schema.LocalBusiness:
			loc.LocationURLs = append(loc.LocationURLs, r.URL)
		}
	}
	return loc
}

// ContextText renders the relationships of one URL for the generator.
func (h *ServiceHierarchy) ContextText(url string) string {
	n, ok := h.Get(url)
	if !ok {
		return "No service hierarchy relationships."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "This service is at depth %d.", n.Depth)
	if n.Parent != "" {
		b.WriteString("\nParent service: " + n.Parent)
	}
	if len(n.Children) > 0 {
		b.WriteString("\nChild services: " + strings.Join(n.Children, ", "))
	}
	if len(n.Siblings) > 0 {
		b.WriteString("\nSibling services: " + strings.Join(n.Siblings, ", "))
	}
	b.WriteString("\n\nWire isRelatedTo for parent↔child connections.")
	b.WriteString("\nWire isSimilarTo for sibling connections.")
	b.WriteString("\nOnly reference URLs that exist in this batch.")
	return b.String()
}

// ContextText renders the organization/location pairing for one URL.
func (l Locations) ContextText(url string) string {
	if l.OrgURL == "" || len(l.LocationURLs) == 0 {
		return ""
	}
	if url == l.OrgURL {
		return "Locations of this organization (list in subOrganization): " + strings.Join(l.LocationURLs, ", ")
	}
	for _, u := range l.LocationURLs {
		if u == url {
			return "Parent organization page: " + l.OrgURL
		}
	}
	return ""
}

func pathSegments(rawURL string) []string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func hasPrefix(segs, prefix []string) bool {
	if len(prefix) > len(segs) {
		return false
	}
	for i := range prefix {
		if segs[i] != prefix[i] {
			return false
		}
	}
	return true
}
