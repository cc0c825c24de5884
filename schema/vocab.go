// Package schema holds the schema.org vocabulary knowledge the generator
// and validator share: which types exist, which need identifiers, which
// terms are deprecated and which properties belong on which type.
package schema

import "strings"

const (
	// Context is the only accepted @context value.
	Context = "https://schema.org"

	// DualSeparator joins the container and nested halves of a dual type.
	DualSeparator = "|"

	// ContainerType is the only type allowed as the container of a dual type.
	ContainerType = "WebContent"
)

// Type tags referenced by name in the pipeline.
const (
	Organization  = "Organization"
	LocalBusiness = "LocalBusiness"
	Service       = "Service"
	WebContent    = "WebContent"
	AboutPage     = "AboutPage"
	Person        = "Person"
	Country       = "Country"
)

// LegacyContexts are @context values rewritten to Context.
var LegacyContexts = map[string]bool{
	"http://schema.org":       true,
	"http://www.schema.org":   true,
	"https://www.schema.org":  true,
	"http://schema.org/":      true,
	"http://www.schema.org/":  true,
	"https://www.schema.org/": true,
	"https://schema.org/":     true,
}

var validTypes = map[string]bool{
	"Organization":              true,
	"LocalBusiness":             true,
	"Service":                   true,
	"WebContent":                true,
	"AboutPage":                 true,
	"Person":                    true,
	"PostalAddress":             true,
	"GeoCoordinates":            true,
	"OpeningHoursSpecification": true,
	"City":                      true,
	"Place":                     true,
	"AdministrativeArea":        true,
	"Country":                   true,
	"State":                     true,
	"OfferCatalog":              true,
	"Offer":                     true,
	"ImageObject":               true,
	"Thing":                     true,
	"CollegeOrUniversity":       true,
	"EducationalOrganization":   true,

	// LocalBusiness subtypes
	"Dentist":                     true,
	"LegalService":                true,
	"MedicalBusiness":             true,
	"ProfessionalService":         true,
	"AutoRepair":                  true,
	"HomeAndConstructionBusiness": true,
}

var localBusinessSubtypes = map[string]bool{
	"Dentist":                     true,
	"LegalService":                true,
	"MedicalBusiness":             true,
	"ProfessionalService":         true,
	"AutoRepair":                  true,
	"HomeAndConstructionBusiness": true,
}

var majorTypes = map[string]bool{
	Organization:  true,
	LocalBusiness: true,
	Service:       true,
	WebContent:    true,
	AboutPage:     true,
	Person:        true,
}

// DeprecatedTypes maps a retired type to replacement advice.
var DeprecatedTypes = map[string]string{
	"WebPage": "Do not use - implied by URL. Use WebContent for content pages",
	"WebSite": "Do not use - implied by domain",
}

// DeprecatedProperties maps a retired property to its replacement.
var DeprecatedProperties = map[string]string{
	"serviceArea":      "areaServed",
	"significantLink":  "relatedLink or remove",
	"significantLinks": "relatedLink or remove",
	"isBasedOnUrl":     "isBasedOn",
}

// InvalidProperties lists properties that must not appear on a type.
var InvalidProperties = map[string][]string{
	Service: {"keywords", "email", "telephone", "address", "foundingDate"},
	Person:  {"keywords", "logo"},
}

// ValidProperties lists the properties each major type is generated with.
var ValidProperties = map[string][]string{
	Service: {
		"name", "description", "disambiguatingDescription", "url", "sameAs",
		"image", "logo", "provider", "brand", "areaServed", "isRelatedTo",
		"isSimilarTo", "serviceType", "hasOfferCatalog", "offers",
	},
	Organization: {
		"name", "legalName", "description", "disambiguatingDescription", "url",
		"logo", "image", "telephone", "email", "sameAs", "keywords",
		"foundingDate", "foundingLocation", "numberOfEmployees", "address",
		"location", "areaServed", "subOrganization", "alternateName",
	},
	LocalBusiness: {
		"name", "legalName", "description", "disambiguatingDescription", "url",
		"logo", "image", "telephone", "email", "sameAs", "keywords",
		"foundingDate", "foundingLocation", "numberOfEmployees", "address",
		"location", "areaServed", "parentOrganization", "geo", "hasMap",
		"openingHoursSpecification", "priceRange", "alternateName",
	},
	WebContent: {
		"headline", "description", "disambiguatingDescription", "url", "image",
		"dateCreated", "dateModified", "datePublished", "about", "creator",
		"contributor", "maintainer", "contentLocation", "locationCreated",
		"countryOfOrigin", "mentions", "keywords", "sameAs",
	},
	AboutPage: {"name", "description", "url", "about", "mainEntity"},
	Person: {
		"name", "givenName", "familyName", "jobTitle", "description", "url",
		"image", "worksFor", "sameAs", "alumniOf", "knowsAbout",
	},
}

// DateProperties hold ISO 8601 dates or date-times.
var DateProperties = []string{"foundingDate", "dateCreated", "dateModified", "datePublished"}

// ContainerOnlyProperties belong on the WebContent half of a dual-type
// document and are flagged when found on the nested entity.
var ContainerOnlyProperties = []string{
	"keywords", "dateCreated", "dateModified", "datePublished",
	"creator", "contributor", "maintainer", "author", "headline",
	"locationCreated", "contentLocation",
}

// NestedOnlyProperties belong on the nested half of a dual-type document
// and are flagged when found on the WebContent container.
var NestedOnlyProperties = []string{
	"provider", "brand", "areaServed", "serviceType", "hasOfferCatalog",
	"isRelatedTo", "isSimilarTo",
	"jobTitle", "worksFor", "givenName", "familyName", "alumniOf", "knowsAbout",
	"geo", "openingHoursSpecification", "priceRange", "hasMap", "parentOrganization",
}

// ExternalIDPrefixes are @id prefixes that resolve outside the batch.
var ExternalIDPrefixes = []string{
	"http://www.wikidata.org",
	"https://www.wikidata.org",
	"https://g.co",
	"https://www.google.com/maps",
	"https://maps.google.com",
}

// IsValidType reports whether t is an accepted schema.org type.
func IsValidType(t string) bool { return validTypes[t] }

// IsMajorType reports whether entities of type t must carry an @id.
func IsMajorType(t string) bool { return majorTypes[t] }

// IsBusinessType reports whether t is Organization, LocalBusiness or one
// of the LocalBusiness subtypes.
func IsBusinessType(t string) bool {
	return t == Organization || t == LocalBusiness || localBusinessSubtypes[t]
}

// IsLocalBusinessType reports whether t is LocalBusiness or a subtype.
func IsLocalBusinessType(t string) bool {
	return t == LocalBusiness || localBusinessSubtypes[t]
}

// IsExternalID reports whether id points outside the batch.
func IsExternalID(id string) bool {
	for _, p := range ExternalIDPrefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// ValidTypes returns the accepted types in no particular order.
func ValidTypes() []string {
	out := make([]string, 0, len(validTypes))
	for t := range validTypes {
		out = append(out, t)
	}
	return out
}
