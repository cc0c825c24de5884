package validator

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/brunobiangulo/schemagen/jsonld"
	"github.com/brunobiangulo/schemagen/schema"
)

// IDSet is the read side of the run's id registry.
type IDSet interface {
	Has(id string) bool
}

// Options tune a validation call.
type Options struct {
	// KnownIDs are ids defined by documents validated earlier in the run.
	// When nil, reference resolution (rule 13) is skipped.
	KnownIDs IDSet
}

var (
	e164Re     = regexp.MustCompile(`^\+\d{10,15}$`)
	nonDigitRe = regexp.MustCompile(`\D`)
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)
	wrapperRe  = regexp.MustCompile(`(?is)^\s*<script[^>]*>(.*?)</script>\s*$`)
)

// check is the state shared by the rules of one validation call.
type check struct {
	raw      string
	wrapped  bool
	doc      *jsonld.Value
	root     *jsonld.Object
	entities []jsonld.Entity
	known    IDSet

	issues []Issue
	fixes  []string
}

func (c *check) fail(rule int, format string, args ...any) {
	c.issues = append(c.issues, Issue{Rule: rule, Severity: SeverityFail, Message: fmt.Sprintf(format, args...)})
}

func (c *check) warn(rule int, format string, args ...any) {
	c.issues = append(c.issues, Issue{Rule: rule, Severity: SeverityWarn, Message: fmt.Sprintf(format, args...)})
}

func (c *check) fix(format string, args ...any) {
	c.fixes = append(c.fixes, fmt.Sprintf(format, args...))
}

type rule struct {
	num int
	run func(*check)
}

// rules run in this order after the document parses. Rules 8, 14 and 15
// concern the whole batch and live in the audit package.
var rules = []rule{
	{2, checkContext},
	{3, checkTypes},
	{4, checkMajorIDs},
	{5, checkDeprecatedTypes},
	{6, checkDeprecatedProperties},
	{7, checkInvalidProperties},
	{9, checkCountry},
	{10, checkTelephone},
	{11, checkDates},
	{12, checkScriptTags},
	{13, checkReferences},
	{16, checkDualType},
}

// Validate parses raw and runs every rule against it. A parse failure is
// reported alone. Corrections are applied to the returned document only.
func Validate(raw string, opts Options) Result {
	c := &check{raw: raw, known: opts.KnownIDs}

	text, wrapped := Unwrap(raw)
	c.wrapped = wrapped

	doc, err := jsonld.Parse([]byte(text))
	if err != nil {
		return newResult([]Issue{{Rule: 1, Severity: SeverityFail, Message: "Invalid JSON syntax: " + err.Error()}}, nil, nil)
	}
	if !doc.IsObject() {
		return newResult([]Issue{{Rule: 1, Severity: SeverityFail,
			Message: fmt.Sprintf("Top-level JSON value is %s, expected an object", doc.Kind())}}, nil, nil)
	}

	c.doc = doc
	c.root = doc.AsObject()
	c.entities = jsonld.ExtractEntities(doc)

	for _, r := range rules {
		runRule(c, r)
	}
	return newResult(c.issues, c.fixes, c.doc)
}

// ValidateDocument validates an already parsed document. The caller's
// tree is not modified.
func ValidateDocument(doc *jsonld.Value, opts Options) Result {
	raw, err := doc.MarshalJSON()
	if err != nil {
		return newResult([]Issue{{Rule: 1, Severity: SeverityFail, Message: "Invalid JSON syntax: " + err.Error()}}, nil, nil)
	}
	return Validate(string(raw), opts)
}

// Unwrap strips a <script> element enclosing the whole of raw and
// reports whether one was found.
func Unwrap(raw string) (string, bool) {
	if m := wrapperRe.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	return raw, false
}

func runRule(c *check, r rule) {
	defer func() {
		if p := recover(); p != nil {
			c.fail(r.num, "rule %d could not be evaluated: %v", r.num, p)
		}
	}()
	r.run(c)
}

// ---------------------------------------------------------------------------
// Rules
// ---------------------------------------------------------------------------

func checkContext(c *check) {
	v, ok := c.root.Get(jsonld.KeyContext)
	if !ok {
		c.fail(2, "@context is missing")
		return
	}
	ctx, isString := v.AsString()
	switch {
	case !isString:
		c.fail(2, "@context is %s, expected 'https://schema.org'", v.Kind())
	case ctx == "":
		c.fail(2, "@context is missing")
	case ctx == schema.Context:
	case schema.LegacyContexts[ctx]:
		c.root.Set(jsonld.KeyContext, jsonld.String(schema.Context))
		c.fix("Fixed @context to %s", schema.Context)
	default:
		c.fail(2, "@context is '%s', expected '%s'", ctx, schema.Context)
	}
}

func checkTypes(c *check) {
	for _, e := range c.entities {
		for _, t := range e.Types {
			if t != "" && !schema.IsValidType(t) {
				c.fail(3, "Fabricated @type: '%s'", t)
			}
		}
	}
}

func checkMajorIDs(c *check) {
	for _, e := range c.entities {
		if e.ID != "" {
			continue
		}
		for _, t := range e.Types {
			if schema.IsMajorType(t) {
				c.fail(4, "%s is missing @id", t)
				break
			}
		}
	}
}

func checkDeprecatedTypes(c *check) {
	for _, e := range c.entities {
		for _, t := range e.Types {
			if advice, ok := schema.DeprecatedTypes[t]; ok {
				c.fail(5, "Deprecated type '%s': %s", t, advice)
			}
		}
	}
}

func checkDeprecatedProperties(c *check) {
	for _, e := range c.entities {
		for _, prop := range e.Object.Keys() {
			if repl, ok := schema.DeprecatedProperties[prop]; ok {
				c.fail(6, "Deprecated property '%s' on %s: use '%s' instead", prop, typeLabel(e), repl)
			}
		}
	}
}

func checkInvalidProperties(c *check) {
	for _, e := range c.entities {
		for _, t := range e.Types {
			invalid := schema.InvalidProperties[t]
			for _, prop := range e.Object.Keys() {
				if slices.Contains(invalid, prop) {
					c.warn(7, "Property '%s' is not valid on @type '%s'", prop, t)
				}
			}
		}
	}
}

func checkCountry(c *check) {
	hasBusiness := false
	for _, e := range c.entities {
		if !slices.ContainsFunc(e.Types, schema.IsBusinessType) {
			continue
		}
		hasBusiness = true
		if definesCountry(e) {
			return
		}
	}
	if hasBusiness {
		c.warn(9, "Country entity not fully defined in any PostalAddress")
	}
}

// definesCountry reports whether one of the entity's addresses carries an
// addressCountry with @type Country, a name and an @id.
func definesCountry(e jsonld.Entity) bool {
	addr, ok := e.Get("address")
	if !ok {
		return false
	}
	addresses := addr.AsArray()
	if addr.IsObject() {
		addresses = []*jsonld.Value{addr}
	}
	for _, a := range addresses {
		country := a.AsObject().GetObject("addressCountry")
		if country == nil {
			continue
		}
		if slices.Contains(jsonld.TypesOf(country), schema.Country) &&
			country.GetString("name") != "" && country.GetString(jsonld.KeyID) != "" {
			return true
		}
	}
	return false
}

func checkTelephone(c *check) {
	for _, e := range c.entities {
		v, ok := e.Get("telephone")
		if !ok {
			continue
		}
		if items := v.AsArray(); items != nil {
			for i, item := range items {
				if fixed, ok := c.normalisePhone(item); ok {
					items[i] = jsonld.String(fixed)
				}
			}
			continue
		}
		if fixed, ok := c.normalisePhone(v); ok {
			e.Object.Set("telephone", jsonld.String(fixed))
		}
	}
}

// normalisePhone returns a rewritten E.164 number when v needed and
// allowed a fix. Numbers are read as their digits. Values that cannot be
// fixed are reported.
func (c *check) normalisePhone(v *jsonld.Value) (string, bool) {
	var phone string
	switch v.Kind() {
	case jsonld.KindNull:
		return "", false
	case jsonld.KindString:
		phone, _ = v.AsString()
		if phone == "" || e164Re.MatchString(phone) {
			return "", false
		}
	case jsonld.KindNumber:
		n, _ := v.AsNumber()
		phone = n.String()
	default:
		c.warn(10, "Phone for 'telephone' is a %s, not an E.164 string", v.Kind())
		return "", false
	}

	digits := nonDigitRe.ReplaceAllString(phone, "")
	var fixed string
	switch {
	case len(digits) == 10:
		fixed = "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		fixed = "+" + digits
	default:
		c.warn(10, "Phone '%s' is not E.164 format", phone)
		return "", false
	}
	c.fix("Auto-fixed phone to E.164: %s", fixed)
	return fixed, true
}

func checkDates(c *check) {
	for _, e := range c.entities {
		for _, prop := range schema.DateProperties {
			v, ok := e.Get(prop)
			if !ok {
				continue
			}
			s, isString := v.AsString()
			if !isString {
				if v.Kind() != jsonld.KindNull {
					c.warn(11, "Date for '%s' is a %s, not an ISO 8601 string", prop, v.Kind())
				}
				continue
			}
			if s != "" && !dateRe.MatchString(s) && !dateTimeRe.MatchString(s) {
				c.warn(11, "Date '%s' for '%s' is not ISO 8601", s, prop)
			}
		}
	}
}

func checkScriptTags(c *check) {
	if c.wrapped {
		c.fix("Stripped <script> tags from output")
		c.warn(12, "Output contained <script> tags (auto-removed)")
		return
	}
	if strings.Contains(strings.ToLower(c.raw), "<script") {
		c.warn(12, "Output contains a <script> tag inside a value")
	}
}

func checkReferences(c *check) {
	if c.known == nil {
		return
	}
	local := make(map[string]bool, len(c.entities))
	for _, e := range c.entities {
		if e.ID != "" {
			local[e.ID] = true
		}
	}

	reported := make(map[string]bool)
	for _, obj := range jsonld.TopLevel(c.doc) {
		for _, key := range obj.Keys() {
			if key == jsonld.KeyID {
				continue
			}
			v, _ := obj.Get(key)
			jsonld.Walk(v, func(n *jsonld.Value) bool {
				if !jsonld.IsBareReference(n) {
					return true
				}
				ref := n.AsObject().GetString(jsonld.KeyID)
				if local[ref] || c.known.Has(ref) || schema.IsExternalID(ref) || reported[ref] {
					return true
				}
				reported[ref] = true
				c.warn(13, "Unresolved @id reference: %s", ref)
				return true
			})
		}
	}
}

var nestedKinds = []string{schema.Service, schema.Person, schema.LocalBusiness, schema.Organization}

func isNestedKind(t string) bool {
	return slices.Contains(nestedKinds, t) || schema.IsLocalBusinessType(t)
}

// checkDualType applies to documents whose top level holds exactly one
// WebContent container and exactly one other major entity.
func checkDualType(c *check) {
	var containers, nested []jsonld.Entity
	majors := 0
	for _, e := range c.entities {
		if e.Nested || !slices.ContainsFunc(e.Types, schema.IsMajorType) {
			continue
		}
		majors++
		switch {
		case slices.Contains(e.Types, schema.WebContent):
			containers = append(containers, e)
		case slices.ContainsFunc(e.Types, isNestedKind):
			nested = append(nested, e)
		}
	}
	if majors < 2 || len(containers) != 1 || len(nested) != 1 {
		return
	}
	container, inner := containers[0], nested[0]
	innerType := inner.Type

	if link, ok := container.Get("mainEntity"); !ok {
		c.warn(16, "WebContent container has no mainEntity link to the %s", innerType)
	} else if ids := jsonld.ReferenceIDs(link); !slices.Contains(ids, inner.ID) {
		c.warn(16, "WebContent mainEntity @id '%s' does not match %s @id '%s'", strings.Join(ids, ", "), innerType, inner.ID)
	}

	if link, ok := inner.Get("subjectOf"); !ok {
		c.warn(16, "%s has no subjectOf back-link to the WebContent container", innerType)
	} else if ids := jsonld.ReferenceIDs(link); !slices.Contains(ids, container.ID) {
		c.warn(16, "%s subjectOf @id '%s' does not match WebContent @id '%s'", innerType, strings.Join(ids, ", "), container.ID)
	}

	for _, prop := range schema.ContainerOnlyProperties {
		if inner.Has(prop) {
			c.warn(16, "Property '%s' belongs on the WebContent container, not the %s", prop, innerType)
		}
	}
	for _, prop := range schema.NestedOnlyProperties {
		if container.Has(prop) {
			c.warn(16, "Property '%s' belongs on the %s, not the WebContent container", prop, innerType)
		}
	}
}

func typeLabel(e jsonld.Entity) string {
	if e.Type == "" {
		return "?"
	}
	return e.Type
}
