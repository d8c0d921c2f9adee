// query.go: fallback search query construction with scientific/common priority.
package imagefinder

import (
	"net/url"
	"strings"
)

const mediaSearchPath = "/w/index.php?search="

// ScientificQueries builds the scientific-tier search query for each entry:
// genus and species, lower-cased and space-joined. Entries without both names
// produce no query.
func ScientificQueries(host string, entries []CatalogEntry) []FallbackQuery {
	queries := make([]FallbackQuery, 0, len(entries))
	for i := range entries {
		en := &entries[i]
		name := strings.TrimSpace(en.Genus + " " + en.Species)
		if name == "" {
			continue
		}
		queries = append(queries, FallbackQuery{
			ID:   en.ID,
			URL:  searchURL(host, strings.ToLower(name)),
			Tier: TierScientific,
		})
	}
	return queries
}

// CommonQueries builds the common-tier search query for each entry that has a
// common name: the first comma-delimited name, lower-cased. Entries lacking
// any common name produce no query.
func CommonQueries(host string, entries []CatalogEntry) []FallbackQuery {
	queries := make([]FallbackQuery, 0, len(entries))
	for i := range entries {
		en := &entries[i]
		first, _, _ := strings.Cut(en.CommonNames, ",")
		name := strings.Join(strings.Fields(first), " ")
		if name == "" {
			continue
		}
		queries = append(queries, FallbackQuery{
			ID:   en.ID,
			URL:  searchURL(host, strings.ToLower(name)),
			Tier: TierCommon,
		})
	}
	return queries
}

func searchURL(host, query string) string {
	return strings.TrimSuffix(host, "/") + mediaSearchPath + url.QueryEscape(query)
}
