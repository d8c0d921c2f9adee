package imagefinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMediaHost = "https://commons.wikimedia.org"

func TestScientificQueries(t *testing.T) {
	t.Parallel()

	entries := []CatalogEntry{
		{ID: "A1", Genus: "Achillea", Species: "millefolium"},
		{ID: "A2", Genus: "Salvia", Species: ""},
		{ID: "A3", Genus: "", Species: ""},
	}

	queries := ScientificQueries(testMediaHost, entries)
	require.Len(t, queries, 2)

	assert.Equal(t, FallbackQuery{
		ID:   "A1",
		URL:  "https://commons.wikimedia.org/w/index.php?search=achillea+millefolium",
		Tier: TierScientific,
	}, queries[0])

	// Genus alone still makes a usable query.
	assert.Equal(t, "A2", queries[1].ID)
	assert.Equal(t, "https://commons.wikimedia.org/w/index.php?search=salvia", queries[1].URL)
}

func TestCommonQueries(t *testing.T) {
	t.Parallel()

	entries := []CatalogEntry{
		{ID: "A1", CommonNames: "Yarrow, Milfoil"},
		{ID: "A2", CommonNames: "Meadow  Clary"},
		{ID: "A3", CommonNames: ""},
		{ID: "A4", CommonNames: " , Sage"},
	}

	queries := CommonQueries(testMediaHost, entries)
	require.Len(t, queries, 2)

	// Only the first comma-delimited name is used.
	assert.Equal(t, FallbackQuery{
		ID:   "A1",
		URL:  "https://commons.wikimedia.org/w/index.php?search=yarrow",
		Tier: TierCommon,
	}, queries[0])

	// Interior whitespace collapses before encoding.
	assert.Equal(t, "https://commons.wikimedia.org/w/index.php?search=meadow+clary", queries[1].URL)
}

func TestQueryTierString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "scientific", TierScientific.String())
	assert.Equal(t, "common", TierCommon.String())
	assert.Equal(t, "unknown", QueryTier(99).String())
}
