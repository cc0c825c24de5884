package schema

import "strings"

// ValidDualTypes are container|nested combinations known to be correct.
var ValidDualTypes = map[string]bool{
	"WebContent|Service":       true,
	"WebContent|Person":        true,
	"WebContent|LocalBusiness": true,
	"WebContent|Organization":  true,
}

// InvalidDualTypes are combinations known to be wrong, with the reason.
var InvalidDualTypes = map[string]string{
	"Service|WebContent":       "Reversed order: container must come first (WebContent|Service)",
	"Person|WebContent":        "Reversed order: container must come first (WebContent|Person)",
	"LocalBusiness|WebContent": "Reversed order: container must come first (WebContent|LocalBusiness)",
	"Organization|WebContent":  "Reversed order: container must come first (WebContent|Organization)",
	"WebContent|WebContent":    "Same type twice",
	"Service|Service":          "Same type twice",
	"AboutPage|Organization":   "Use AboutPage alone with mainEntity pointing to the Organization @id",
	"WebContent|AboutPage":     "AboutPage is already a content type; use it alone",
	"Service|LocalBusiness":    "Link the Service to the LocalBusiness via provider instead",
}

// IsDual reports whether t names a container|nested pair.
func IsDual(t string) bool { return strings.Contains(t, DualSeparator) }

// SplitDual returns the container and nested halves of t. For a single
// type the nested half is empty.
func SplitDual(t string) (container, nested string) {
	c, n, ok := strings.Cut(t, DualSeparator)
	if !ok {
		return t, ""
	}
	return strings.TrimSpace(c), strings.TrimSpace(n)
}
