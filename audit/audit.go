package audit

import (
	"fmt"
	"slices"

	"github.com/brunobiangulo/schemagen/jsonld"
	"github.com/brunobiangulo/schemagen/schema"
	"github.com/brunobiangulo/schemagen/validator"
)

// Document is one accepted document of the batch and the URL it was
// generated for.
type Document struct {
	URL string
	Doc *jsonld.Value
}

// Finding is a batch-level issue attributed to one document.
type Finding struct {
	URL   string          `json:"url"`
	Issue validator.Issue `json:"issue"`
}

func (f Finding) String() string { return f.URL + ": " + f.Issue.String() }

// Pairs of properties that must mirror each other. A link from A to B
// under the first property requires B to link back to A under the second.
var reciprocal = []struct {
	prop, back string
	onlyType   string
}{
	{prop: "isRelatedTo", back: "isRelatedTo"},
	{prop: "isSimilarTo", back: "isSimilarTo"},
	{prop: "subOrganization", back: "parentOrganization"},
	{prop: "parentOrganization", back: "subOrganization"},
	{prop: "mainEntity", back: "subjectOf", onlyType: schema.WebContent},
	{prop: "subjectOf", back: "mainEntity"},
}

// ConnectingProperties link an entity towards its organization.
var ConnectingProperties = []string{
	"provider", "parentOrganization", "about", "worksFor", "mainEntity", "brand", "creator",
}

type node struct {
	url    string
	entity jsonld.Entity
}

// index maps every id defined anywhere in the batch to its entity. The
// first definition wins.
func index(docs []Document) (map[string]node, []node) {
	byID := make(map[string]node)
	var all []node
	for _, d := range docs {
		for _, e := range jsonld.ExtractEntities(d.Doc) {
			n := node{url: d.URL, entity: e}
			all = append(all, n)
			if e.ID == "" {
				continue
			}
			if _, ok := byID[e.ID]; !ok {
				byID[e.ID] = n
			}
		}
	}
	return byID, all
}

// Check runs the batch-level rules over docs in order: areaServed
// completeness (rule 8), reciprocal links (rule 14) and organization
// reachability (rule 15). Every finding is a warning.
func Check(docs []Document) []Finding {
	byID, all := index(docs)
	var out []Finding
	out = append(out, checkAreaServed(all)...)
	out = append(out, checkReciprocal(byID, all)...)
	out = append(out, checkConnectivity(byID, all)...)
	return out
}

func warn(url string, rule int, format string, args ...any) Finding {
	return Finding{URL: url, Issue: validator.Issue{
		Rule:     rule,
		Severity: validator.SeverityWarn,
		Message:  fmt.Sprintf(format, args...),
	}}
}

// checkAreaServed requires the first appearance of each place in an
// areaServed value to carry @type and name.
func checkAreaServed(all []node) []Finding {
	var out []Finding
	seen := make(map[string]bool)
	for _, n := range all {
		v, ok := n.entity.Get("areaServed")
		if !ok {
			continue
		}
		places := v.AsArray()
		if v.IsObject() {
			places = []*jsonld.Value{v}
		}
		for _, p := range places {
			obj := p.AsObject()
			id := obj.GetString(jsonld.KeyID)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			if !obj.Has(jsonld.KeyType) || obj.GetString("name") == "" {
				out = append(out, warn(n.url, 8, "areaServed place %s first appears without @type and name", id))
			}
		}
	}
	return out
}

func checkReciprocal(byID map[string]node, all []node) []Finding {
	var out []Finding
	for _, n := range all {
		e := n.entity
		if e.ID == "" {
			continue
		}
		for _, rc := range reciprocal {
			if rc.onlyType != "" && !slices.Contains(e.Types, rc.onlyType) {
				continue
			}
			v, ok := e.Get(rc.prop)
			if !ok {
				continue
			}
			for _, target := range jsonld.ReferenceIDs(v) {
				t, defined := byID[target]
				if !defined || target == e.ID {
					continue
				}
				back, _ := t.entity.Get(rc.back)
				if slices.Contains(jsonld.ReferenceIDs(back), e.ID) {
					continue
				}
				out = append(out, warn(n.url, 14, "%s %s %s but %s has no %s pointing back",
					e.ID, rc.prop, target, target, rc.back))
			}
		}
	}
	return out
}

// checkConnectivity requires every top-level major entity other than an
// Organization to reach an Organization through ConnectingProperties.
func checkConnectivity(byID map[string]node, all []node) []Finding {
	hasOrg := false
	for _, n := range all {
		if slices.Contains(n.entity.Types, schema.Organization) {
			hasOrg = true
			break
		}
	}

	var out []Finding
	for _, n := range all {
		e := n.entity
		if e.Nested || !slices.ContainsFunc(e.Types, schema.IsMajorType) ||
			slices.Contains(e.Types, schema.Organization) {
			continue
		}
		if !hasOrg {
			out = append(out, warn(n.url, 15, "%s %s cannot reach an Organization: none is defined in the batch", e.Type, label(e)))
			continue
		}
		if !reachesOrganization(e, byID) {
			out = append(out, warn(n.url, 15, "%s %s is not connected to an Organization", e.Type, label(e)))
		}
	}
	return out
}

func reachesOrganization(start jsonld.Entity, byID map[string]node) bool {
	visited := map[string]bool{start.ID: true}
	queue := []jsonld.Entity{start}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		for _, prop := range ConnectingProperties {
			v, ok := e.Get(prop)
			if !ok {
				continue
			}
			// Inline typed values count as well as references.
			for _, item := range inlineObjects(v) {
				if slices.Contains(jsonld.TypesOf(item), schema.Organization) {
					return true
				}
			}
			for _, id := range jsonld.ReferenceIDs(v) {
				if visited[id] {
					continue
				}
				visited[id] = true
				t, ok := byID[id]
				if !ok {
					continue
				}
				if slices.Contains(t.entity.Types, schema.Organization) {
					return true
				}
				queue = append(queue, t.entity)
			}
		}
	}
	return false
}

func inlineObjects(v *jsonld.Value) []*jsonld.Object {
	if obj := v.AsObject(); obj != nil {
		return []*jsonld.Object{obj}
	}
	var out []*jsonld.Object
	for _, item := range v.AsArray() {
		if obj := item.AsObject(); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

func label(e jsonld.Entity) string {
	if e.ID != "" {
		return e.ID
	}
	return "(no @id)"
}
