package schema

import (
	"fmt"
	"strings"
)

// WikidataEntry names a Wikidata entity URI.
type WikidataEntry struct {
	Name string
	URI  string
}

func wd(name, q string) WikidataEntry {
	return WikidataEntry{Name: name, URI: "http://www.wikidata.org/entity/" + q}
}

var WikidataCountries = []WikidataEntry{
	wd("United States", "Q30"),
	wd("Canada", "Q16"),
	wd("United Kingdom", "Q145"),
	wd("Mexico", "Q96"),
}

var WikidataStates = []WikidataEntry{
	wd("Alabama", "Q173"), wd("Alaska", "Q797"), wd("Arizona", "Q816"),
	wd("Arkansas", "Q1612"), wd("California", "Q99"), wd("Colorado", "Q1261"),
	wd("Connecticut", "Q779"), wd("Delaware", "Q1393"), wd("Florida", "Q812"),
	wd("Georgia", "Q1428"), wd("Hawaii", "Q782"), wd("Idaho", "Q1221"),
	wd("Illinois", "Q1204"), wd("Indiana", "Q1415"), wd("Iowa", "Q1546"),
	wd("Kansas", "Q1558"), wd("Kentucky", "Q1603"), wd("Louisiana", "Q1588"),
	wd("Maine", "Q724"), wd("Maryland", "Q1391"), wd("Massachusetts", "Q771"),
	wd("Michigan", "Q1166"), wd("Minnesota", "Q1527"), wd("Mississippi", "Q1494"),
	wd("Missouri", "Q1581"), wd("Montana", "Q1212"), wd("Nebraska", "Q1553"),
	wd("Nevada", "Q1227"), wd("New Hampshire", "Q759"), wd("New Jersey", "Q1408"),
	wd("New Mexico", "Q1522"), wd("New York", "Q1384"), wd("North Carolina", "Q1454"),
	wd("North Dakota", "Q1207"), wd("Ohio", "Q1397"), wd("Oklahoma", "Q1649"),
	wd("Oregon", "Q824"), wd("Pennsylvania", "Q1400"), wd("Rhode Island", "Q1387"),
	wd("South Carolina", "Q1456"), wd("South Dakota", "Q1211"), wd("Tennessee", "Q1509"),
	wd("Texas", "Q1439"), wd("Utah", "Q829"), wd("Vermont", "Q16551"),
	wd("Virginia", "Q1370"), wd("Washington", "Q1223"), wd("West Virginia", "Q1371"),
	wd("Wisconsin", "Q1537"), wd("Wyoming", "Q1214"),
}

var WikidataCities = []WikidataEntry{
	wd("New York City, NY", "Q60"),
	wd("Los Angeles, CA", "Q65"),
	wd("Chicago, IL", "Q1297"),
	wd("Houston, TX", "Q16555"),
	wd("Phoenix, AZ", "Q16556"),
	wd("Philadelphia, PA", "Q1345"),
	wd("San Antonio, TX", "Q975"),
	wd("San Diego, CA", "Q16552"),
	wd("Dallas, TX", "Q16557"),
	wd("San Jose, CA", "Q16553"),
	wd("Austin, TX", "Q16559"),
	wd("Jacksonville, FL", "Q16568"),
	wd("San Francisco, CA", "Q62"),
	wd("Seattle, WA", "Q5083"),
	wd("Denver, CO", "Q16554"),
	wd("Boston, MA", "Q100"),
	wd("Detroit, MI", "Q12439"),
	wd("Miami, FL", "Q8652"),
	wd("Atlanta, GA", "Q23556"),
	wd("Minneapolis, MN", "Q36091"),
}

var WikidataServiceConcepts = []WikidataEntry{
	wd("Water damage", "Q929023"),
	wd("Fire", "Q3196"),
	wd("Mold", "Q37212"),
	wd("Plumbing", "Q165029"),
	wd("HVAC", "Q166111"),
	wd("Roofing", "Q190928"),
	wd("Kitchen remodeling", "Q11406"),
	wd("Construction", "Q385378"),
	wd("Restoration", "Q217845"),
	wd("Cleaning", "Q507166"),
}

// StatesMentioned returns the states whose name appears in text, in
// alphabetical order.
func StatesMentioned(text string) []WikidataEntry {
	var out []WikidataEntry
	for _, s := range WikidataStates {
		if strings.Contains(text, s.Name) {
			out = append(out, s)
		}
	}
	return out
}

// WikidataReference renders the quick-reference block handed to the
// generator. States are listed only when extra names them.
func WikidataReference(extra string) string {
	var b strings.Builder
	b.WriteString("## Known Wikidata URIs (use these when applicable)\n\n")

	section := func(title string, entries []WikidataEntry) {
		fmt.Fprintf(&b, "### %s\n", title)
		for _, e := range entries {
			fmt.Fprintf(&b, "- %s: %s\n", e.Name, e.URI)
		}
	}

	section("Countries", WikidataCountries)
	if states := StatesMentioned(extra); len(states) > 0 {
		b.WriteString("\n")
		section("States", states)
	}
	b.WriteString("\n")
	section("Cities", WikidataCities)
	b.WriteString("\n")
	section("Service Concepts", WikidataServiceConcepts)
	return strings.TrimRight(b.String(), "\n")
}
