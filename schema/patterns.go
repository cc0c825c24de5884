package schema

import "regexp"

// Confidence levels attached to an inferred type.
const (
	ConfidenceHigh     = "High"
	ConfidenceMedium   = "Medium"
	ConfidenceLow      = "Low"
	ConfidenceOverride = "Override"
)

// URLPattern maps a normalised URL path (always ending in "/") to a type.
type URLPattern struct {
	Pattern    *regexp.Regexp
	Type       string
	Confidence string
}

// URLPatterns are matched top to bottom; the first match wins.
var URLPatterns = []URLPattern{
	{regexp.MustCompile(`^/$`), Organization, ConfidenceHigh},
	{regexp.MustCompile(`^/about/?$`), AboutPage, ConfidenceHigh},
	{regexp.MustCompile(`^/about-us/?$`), AboutPage, ConfidenceHigh},
	{regexp.MustCompile(`^/about/team/[^/]+/?$`), "WebContent|Person", ConfidenceHigh},
	{regexp.MustCompile(`^/team/[^/]+/?$`), "WebContent|Person", ConfidenceHigh},
	{regexp.MustCompile(`^/locations/[^/]+/?$`), LocalBusiness, ConfidenceHigh},
	{regexp.MustCompile(`^/contact/[^/]+/?$`), LocalBusiness, ConfidenceHigh},
	{regexp.MustCompile(`^/services/?$`), Service, ConfidenceHigh},
	{regexp.MustCompile(`^/services/.+/?$`), Service, ConfidenceHigh},
	{regexp.MustCompile(`^/solutions/.+/?$`), Service, ConfidenceHigh},
	{regexp.MustCompile(`^/blog/.+/?$`), WebContent, ConfidenceMedium},
	{regexp.MustCompile(`^/news/.+/?$`), WebContent, ConfidenceMedium},
	{regexp.MustCompile(`^/industries/.+/?$`), WebContent, ConfidenceMedium},
	{regexp.MustCompile(`^/areas-we-serve/.+/?$`), WebContent, ConfidenceMedium},
}
