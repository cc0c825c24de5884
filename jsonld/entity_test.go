package jsonld

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) *Value {
	t.Helper()
	v, err := Parse([]byte(s))
	require.NoError(t, err)
	return v
}

func TestExtractEntitiesRoot(t *testing.T) {
	doc := mustParse(t, `{
		"@context": "https://schema.org",
		"@type": "Organization",
		"@id": "https://x.com/#Organization",
		"address": {"@type": "PostalAddress", "streetAddress": "1 Main"},
		"sameAs": ["https://facebook.com/x"]
	}`)

	ents := ExtractEntities(doc)
	require.Len(t, ents, 2)
	assert.Equal(t, "Organization", ents[0].Type)
	assert.Equal(t, "https://x.com/#Organization", ents[0].ID)
	assert.False(t, ents[0].Nested)
	assert.Equal(t, "PostalAddress", ents[1].Type)
	assert.True(t, ents[1].Nested)
}

func TestExtractEntitiesGraph(t *testing.T) {
	doc := mustParse(t, `{
		"@context": "https://schema.org",
		"@graph": [
			{"@type": "WebContent", "@id": "https://x.com/s/#WebContent"},
			"not an object",
			{"@type": ["Service", "Thing"], "@id": "https://x.com/s/#Service",
			 "provider": {"@id": "https://x.com/#Organization"}}
		]
	}`)

	ents := ExtractEntities(doc)
	require.Len(t, ents, 2)
	assert.Equal(t, "WebContent", ents[0].Type)
	assert.Equal(t, "Service", ents[1].Type)
	assert.Equal(t, []string{"Service", "Thing"}, ents[1].Types)
}

// Typed objects two levels below a top-level entity are not collected.
func TestExtractEntitiesSinglePass(t *testing.T) {
	doc := mustParse(t, `{
		"@type": "LocalBusiness",
		"@id": "https://x.com/loc/#LocalBusiness",
		"address": {
			"@type": "PostalAddress",
			"addressCountry": {"@type": "Country", "name": "United States"}
		}
	}`)

	ents := ExtractEntities(doc)
	require.Len(t, ents, 2)
	for _, e := range ents {
		assert.NotEqual(t, "Country", e.Type)
	}
}

func TestExtractEntitiesSharesNodes(t *testing.T) {
	doc := mustParse(t, `{"@type": "Organization", "telephone": "404"}`)
	ents := ExtractEntities(doc)
	require.Len(t, ents, 1)

	ents[0].Object.Set("telephone", String("+14045551234"))
	assert.Equal(t, "+14045551234", doc.AsObject().GetString("telephone"))
}

func TestTopLevelNonObject(t *testing.T) {
	assert.Nil(t, TopLevel(mustParse(t, `[1,2]`)))
	assert.Empty(t, ExtractEntities(mustParse(t, `"x"`)))
}

func TestIsBareReference(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{`{"@id": "https://x.com/#Organization"}`, true},
		{`{"@id": "https://x.com/#Organization", "name": "X"}`, true},
		{`{"@id": "https://x.com/#Organization", "@type": "Organization"}`, false},
		{`{"@id": ""}`, false},
		{`"https://x.com"`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsBareReference(mustParse(t, tt.input)), tt.input)
	}
}

func TestReferenceIDs(t *testing.T) {
	assert.Equal(t, []string{"a"}, ReferenceIDs(mustParse(t, `{"@id":"a"}`)))
	assert.Equal(t, []string{"a", "b"}, ReferenceIDs(mustParse(t, `[{"@id":"a"},{"name":"x"},{"@id":"b"}]`)))
	assert.Equal(t, []string{"c"}, ReferenceIDs(mustParse(t, `"c"`)))
	assert.Nil(t, ReferenceIDs(mustParse(t, `3`)))
}

func TestWalkVisitsInOrder(t *testing.T) {
	doc := mustParse(t, `{"a":"1","b":{"c":"2"},"d":["3"]}`)
	var got []string
	Walk(doc, func(v *Value) bool {
		if s, ok := v.AsString(); ok {
			got = append(got, s)
		}
		return true
	})
	assert.Equal(t, []string{"1", "2", "3"}, got)
}
