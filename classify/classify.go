// Package classify infers the schema.org type of each input URL.
package classify

import (
	"net/url"
	"strings"

	"github.com/brunobiangulo/schemagen/ingest"
	"github.com/brunobiangulo/schemagen/schema"
)

// Infer maps a URL to a type string and a confidence level using the URL
// path alone. The site root is always an Organization; a path no pattern
// recognises falls back to WebContent with Low confidence.
func Infer(rawURL string) (string, string) {
	path := strings.TrimRight(urlPath(rawURL), "/") + "/"
	if path == "/" {
		return schema.Organization, schema.ConfidenceHigh
	}
	for _, p := range schema.URLPatterns {
		if p.Pattern.MatchString(path) {
			return p.Type, p.Confidence
		}
	}
	return schema.WebContent, schema.ConfidenceLow
}

// ValidateDual checks a container|nested type string. Single types are
// always valid. The reason is empty when ok is true.
func ValidateDual(t string) (ok bool, reason string) {
	if !schema.IsDual(t) {
		return true, ""
	}
	if schema.ValidDualTypes[t] {
		return true, ""
	}
	if r, bad := schema.InvalidDualTypes[t]; bad {
		return false, r
	}
	container, nested := schema.SplitDual(t)
	if container == nested {
		return false, "Same type twice"
	}
	if container != schema.ContainerType {
		return false, "Container type must be WebContent for dual-type"
	}
	return true, ""
}

// Assign fills the type fields of every row. A SchemaType override always
// wins over inference; an override that fails dual-type validation is
// still used but its confidence records the reason.
func Assign(rows []ingest.Row) {
	for i := range rows {
		r := &rows[i]
		if r.SchemaType != "" {
			r.InferredType = r.SchemaType
			if ok, reason := ValidateDual(r.SchemaType); ok {
				r.Confidence = schema.ConfidenceOverride
			} else {
				r.Confidence = "Override (INVALID: " + reason + ")"
			}
		} else {
			r.InferredType, r.Confidence = Infer(r.URL)
		}

		container, nested := schema.SplitDual(r.InferredType)
		r.ContainerType = container
		r.NestedType = nested
		r.IsDual = nested != ""
	}
}

// IsOverride reports whether a confidence value came from a manual
// override, valid or not.
func IsOverride(confidence string) bool {
	return strings.HasPrefix(confidence, schema.ConfidenceOverride)
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

// Domain returns scheme://host for a URL.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
