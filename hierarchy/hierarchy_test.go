package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/schemagen/classify"
	"github.com/brunobiangulo/schemagen/ingest"
)

func rowsFor(urls ...string) []ingest.Row {
	rows := make([]ingest.Row, len(urls))
	for i, u := range urls {
		rows[i] = ingest.Row{URL: u}
	}
	classify.Assign(rows)
	return rows
}

func TestBuildServiceHierarchyChain(t *testing.T) {
	h := BuildServiceHierarchy(rowsFor(
		"https://x.com/services/",
		"https://x.com/services/ac/",
		"https://x.com/services/ac/repair/",
	))
	require.Equal(t, 3, h.Len())

	root, ok := h.Get("https://x.com/services/")
	require.True(t, ok)
	assert.Equal(t, 1, root.Depth)
	assert.Empty(t, root.Parent)
	assert.Equal(t, []string{"https://x.com/services/ac/"}, root.Children)
	assert.Empty(t, root.Siblings)

	mid, _ := h.Get("https://x.com/services/ac/")
	assert.Equal(t, 2, mid.Depth)
	assert.Equal(t, "https://x.com/services/", mid.Parent)
	assert.Equal(t, []string{"https://x.com/services/ac/repair/"}, mid.Children)

	leaf, _ := h.Get("https://x.com/services/ac/repair/")
	assert.Equal(t, 3, leaf.Depth)
	assert.Equal(t, "https://x.com/services/ac/", leaf.Parent)
	assert.Empty(t, leaf.Children)
}

func TestBuildServiceHierarchySiblings(t *testing.T) {
	h := BuildServiceHierarchy(rowsFor(
		"https://x.com/services/",
		"https://x.com/services/ac/",
		"https://x.com/services/heating/",
		"https://x.com/services/plumbing/",
	))

	ac, _ := h.Get("https://x.com/services/ac/")
	assert.Equal(t, []string{"https://x.com/services/heating/", "https://x.com/services/plumbing/"}, ac.Siblings)

	root, _ := h.Get("https://x.com/services/")
	assert.Len(t, root.Children, 3)
}

// Top-level services with no shared parent row are not linked as siblings.
func TestBuildServiceHierarchyTopLevelNotSiblings(t *testing.T) {
	h := BuildServiceHierarchy(rowsFor(
		"https://x.com/solutions/cloud/",
		"https://x.com/solutions/edge/",
	))

	cloud, _ := h.Get("https://x.com/solutions/cloud/")
	assert.Equal(t, 2, cloud.Depth)
	assert.Empty(t, cloud.Parent)
	assert.Empty(t, cloud.Siblings)
}

func TestBuildServiceHierarchySegmentPrefix(t *testing.T) {
	h := BuildServiceHierarchy(rowsFor(
		"https://x.com/services/ac/",
		"https://x.com/services/acx/",
		"https://x.com/services/acx/repair/",
	))
	leaf, _ := h.Get("https://x.com/services/acx/repair/")
	assert.Equal(t, "https://x.com/services/acx/", leaf.Parent)

	ac, _ := h.Get("https://x.com/services/ac/")
	assert.Empty(t, ac.Children)
}

func TestBuildServiceHierarchyUsesPrimaryType(t *testing.T) {
	rows := rowsFor("https://x.com/services/", "https://x.com/pricing/")
	rows[1].SchemaType = "WebContent|Service"
	classify.Assign(rows)

	h := BuildServiceHierarchy(rows)
	assert.Equal(t, []string{"https://x.com/services/", "https://x.com/pricing/"}, h.URLs())

	// Non-service rows are excluded.
	h = BuildServiceHierarchy(rowsFor("https://x.com/", "https://x.com/blog/post/"))
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, "No service hierarchy relationships.", h.ContextText("https://x.com/"))
}

func TestContextText(t *testing.T) {
	h := BuildServiceHierarchy(rowsFor(
		"https://x.com/services/",
		"https://x.com/services/ac/",
		"https://x.com/services/heating/",
	))
	got := h.ContextText("https://x.com/services/ac/")
	want := "This service is at depth 2.\n" +
		"Parent service: https://x.com/services/\n" +
		"Sibling services: https://x.com/services/heating/\n\n" +
		"Wire isRelatedTo for parent↔child connections.\n" +
		"Wire isSimilarTo for sibling connections.\n" +
		"Only reference URLs that exist in this batch."
	assert.Equal(t, want, got)
}

func TestBuildLocationRelationships(t *testing.T) {
	rows := rowsFor(
		"https://x.com/",
		"https://x.com/locations/atlanta/",
		"https://x.com/services/ac/",
		"https://x.com/contact/marietta/",
		"https://x.com/stores/decatur/",
	)
	rows[4].SchemaType = "WebContent|LocalBusiness"
	classify.Assign(rows)

	loc := BuildLocationRelationships(rows)
	assert.Equal(t, "https://x.com/", loc.OrgURL)
	assert.Equal(t, []string{
		"https://x.com/locations/atlanta/",
		"https://x.com/contact/marietta/",
		"https://x.com/stores/decatur/",
	}, loc.LocationURLs)

	assert.Contains(t, loc.ContextText("https://x.com/"), "https://x.com/contact/marietta/")
	assert.Equal(t, "Parent organization page: https://x.com/", loc.ContextText("https://x.com/locations/atlanta/"))
	assert.Empty(t, loc.ContextText("https://x.com/services/ac/"))
}

func TestBuildLocationRelationshipsFirstOrganizationWins(t *testing.T) {
	rows := rowsFor(
		"https://x.com/",
		"https://x.com/locations/atlanta/",
		"https://x.com/company/",
	)
	rows[2].SchemaType = "Organization"
	classify.Assign(rows)

	loc := BuildLocationRelationships(rows)
	assert.Equal(t, "https://x.com/", loc.OrgURL)
	assert.Equal(t, []string{"https://x.com/locations/atlanta/"}, loc.LocationURLs)
	assert.Empty(t, loc.ContextText("https://x.com/company/"))
}

func TestBuildLocationRelationshipsNoOrg(t *testing.T) {
	loc := BuildLocationRelationships(rowsFor("https://x.com/locations/a/"))
	assert.Empty(t, loc.OrgURL)
	assert.Len(t, loc.LocationURLs, 1)
	assert.Empty(t, loc.ContextText("https://x.com/locations/a/"))
}
