package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brunobiangulo/schemagen/audit"
	"github.com/brunobiangulo/schemagen/jsonld"
	"github.com/brunobiangulo/schemagen/schema"
)

// SystemPrompt carries the generation rules shared by every call.
const SystemPrompt = `You are an expert Technical SEO and Semantic Web Engineer specializing in JSON-LD structured data generation.

Your job is to generate a single, valid JSON-LD block for a given URL based on the provided context.

## CRITICAL RULES

1. **@context**: Always "https://schema.org" (HTTPS, no www)
2. **@type**: MUST be a real schema.org type. NEVER fabricate types (no "HVACBusiness", "PlumbingService", etc.)
3. **@id**: Every major entity gets {URL}#{Type} format
4. **No script tags**: Output RAW JSON only, no <script> wrappers
5. **Property-type matching**: Only use properties valid for the declared @type
6. **Telephone**: E.164 format: "+14045551234"
7. **Dates**: ISO 8601: "2008-03-15"
8. **Don't fabricate data**: If information isn't available, OMIT the property entirely

## TYPE-SPECIFIC PROPERTY RULES

### Service
- CAN use: name, description, disambiguatingDescription, url, sameAs, image, logo, provider, brand, areaServed, isRelatedTo, isSimilarTo, serviceType, hasOfferCatalog
- CANNOT use: keywords, telephone, email, address, foundingDate

### Organization
- CAN use: name, legalName, description, disambiguatingDescription, url, logo, image, telephone, email, sameAs, keywords, foundingDate, foundingLocation, numberOfEmployees, address, location, areaServed, subOrganization

### LocalBusiness
- Uses @graph array with GeoCoordinates as separate entity
- CAN use keywords (inherits from Organization)
- Must include parentOrganization pointing to Organization @id

### WebContent
- CAN use: keywords, about, creator, mentions, datePublished, headline
- about/creator/contributor/maintainer all point to Organization @id

### AboutPage
- Minimal schema. mainEntity + about point to Organization @id

### Person
- CANNOT use: keywords, logo
- worksFor points to Organization @id

## DUAL TYPES (Container|Nested)
- Emit an @graph with the container first and the nested entity second
- Container mainEntity and nested subjectOf must reference each other's @id
- Page-level properties (headline, datePublished, keywords) stay on the container

## DEPRECATED, NEVER USE
- Types: WebPage, WebSite
- Properties: serviceArea (use areaServed), significantLink, significantLinks, isBasedOnUrl
- Context: Never use http://schema.org, http://www.schema.org, or https://www.schema.org

## COUNTRY ENTITY RULE
On Organization's PostalAddress, always FULLY define the country:
"addressCountry": {"@type": "Country", "name": "United States", "@id": "http://www.wikidata.org/entity/Q30"}
Other entities can use a bare @id reference: "addressCountry": {"@id": "http://www.wikidata.org/entity/Q30"}

## areaServed RULE
First occurrence of each geographic entity must include @type + name + @id.
Subsequent references can use bare @id.

## OUTPUT FORMAT
Return ONLY the raw JSON-LD. No markdown code fences. No explanation. No commentary.
Just valid JSON starting with { and ending with }.`

// Request is the context gathered for one row.
type Request struct {
	URL           string
	SchemaType    string
	Domain        string
	PageText      string
	OrgText       string
	OverridesText string
	HierarchyText string
	LocationText  string
}

// UserPrompt renders the per-row prompt.
func (r Request) UserPrompt() string {
	var b strings.Builder
	section := func(title, body string) {
		fmt.Fprintf(&b, "## %s\n%s\n\n", title, body)
	}

	b.WriteString("Generate JSON-LD structured data for this URL.\n\n")
	section("Target URL", r.URL)
	section("Schema Type", r.SchemaType)
	section("Domain", r.Domain)
	section("Template (fill in discovered values, remove properties with no data)", schema.TemplateFor(r.SchemaType))
	section("Organization Data (shared across all entities)", r.OrgText)
	section("Page Data (scraped from target URL)", r.PageText)
	section("CSV Overrides (highest priority, use these over discovered values)", r.OverridesText)
	section("Service Hierarchy (for Service type, wire isRelatedTo and isSimilarTo)", r.HierarchyText)
	if r.LocationText != "" {
		section("Organization Locations", r.LocationText)
	}
	b.WriteString(schema.WikidataReference(r.OrgText + "\n" + r.PageText + "\n" + r.OverridesText))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, `## Instructions
1. Fill the template using: CSV overrides > page data > org data > omit
2. Remove any property where no data is available, do NOT use placeholder text
3. Remove empty arrays []
4. For areaServed, include @type + name + @id on first occurrence
5. Wire @id references correctly: %s/#Organization, %s#{Type}
6. Ensure telephone is E.164 format
7. Ensure dates are ISO 8601
8. Return ONLY raw JSON, no markdown, no explanation`, r.Domain, r.URL)
	return b.String()
}

// repairPrompt asks for the whole batch back with its links fixed.
func repairPrompt(docs []*jsonld.Value, findings []audit.Finding) (string, error) {
	blocks, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Review these JSON-LD blocks for graph integrity and fix any issues.\n\n")
	b.WriteString("## All Generated JSON-LD Blocks\n")
	b.Write(blocks)
	b.WriteString("\n\n")

	if len(findings) > 0 {
		b.WriteString("## Problems Found\n")
		for _, f := range findings {
			b.WriteString("- " + f.String() + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(`## Checks to Perform
1. Every @id reference must point to a defined entity (in same block or another block) or be an external URI (Wikidata, Google Maps, etc.)
2. Bidirectional relationships must be complete:
   - If Service A has isRelatedTo B, B must have isRelatedTo A
   - If Organization has subOrganization B, B must have parentOrganization pointing back
   - If Service A has isSimilarTo B, B must have isSimilarTo A
3. Every non-Organization entity must connect back to Organization via provider, parentOrganization, about, worksFor, or mainEntity
4. Organization should list all LocalBusiness entities in subOrganization
5. Service CANNOT have keywords property
6. No fabricated @types

## Output Format
Return a JSON array of the corrected blocks, in the same order. ONLY raw JSON array, no markdown, no explanation.
If no changes needed, return the blocks unchanged.`)
	return b.String(), nil
}
