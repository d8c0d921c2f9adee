package imagefinder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	searchPageWithBoth = `<html><body>
<ul class="mw-search-results">
  <li class="mw-search-result">
    <a href="/wiki/File:Achillea_millefolium.jpg">Achillea millefolium</a>
  </li>
  <li class="mw-search-result">
    <a href="/wiki/File:Second_hit.jpg">Second hit</a>
  </li>
</ul>
<ul class="gallery">
  <li><img src="/images/thumb/gallery_first.png"></li>
</ul>
</body></html>`

	searchPageGalleryOnly = `<html><body>
<ul class="gallery">
  <li><img src="/images/thumb/gallery_first.png"></li>
  <li><img src="/images/thumb/gallery_second.jpg"></li>
</ul>
</body></html>`

	searchPageSVGOnly = `<html><body>
<ul class="mw-search-results">
  <li class="mw-search-result"><a href="/wiki/File:Diagram.svg">Diagram</a></li>
</ul>
</body></html>`

	searchPageEmpty = `<html><body><p>There were no results matching the query.</p></body></html>`
)

func newTestScrapeEngine(t *testing.T, client *http.Client) *ScrapeEngine {
	t.Helper()
	engine, err := NewScrapeEngine(client, ScrapeConfig{
		Host:        testMediaHost,
		Concurrency: 4,
	})
	require.NoError(t, err)
	return engine
}

func scrapeSingle(t *testing.T, engine *ScrapeEngine, query FallbackQuery) FallbackResult {
	t.Helper()
	results := engine.Scrape(context.Background(), []FallbackQuery{query})
	require.Len(t, results, 1)
	return results[0]
}

func TestScrapePrefersSearchResultLink(t *testing.T) {
	client := setupHTTPMock(t)
	engine := newTestScrapeEngine(t, client)

	url := testMediaHost + "/w/index.php?search=achillea+millefolium"
	httpmock.RegisterResponder(http.MethodGet, url,
		httpmock.NewStringResponder(http.StatusOK, searchPageWithBoth))

	result := scrapeSingle(t, engine, FallbackQuery{ID: "A1", URL: url, Tier: TierScientific})
	assert.True(t, result.Found)
	assert.Equal(t, testMediaHost+"/wiki/File:Achillea_millefolium.jpg", result.URL)
	assert.Equal(t, TierScientific, result.Tier)
}

func TestScrapeFallsBackToGalleryImage(t *testing.T) {
	client := setupHTTPMock(t)
	engine := newTestScrapeEngine(t, client)

	url := testMediaHost + "/w/index.php?search=yarrow"
	httpmock.RegisterResponder(http.MethodGet, url,
		httpmock.NewStringResponder(http.StatusOK, searchPageGalleryOnly))

	result := scrapeSingle(t, engine, FallbackQuery{ID: "A1", URL: url, Tier: TierCommon})
	assert.True(t, result.Found)
	assert.Equal(t, testMediaHost+"/images/thumb/gallery_first.png", result.URL)
}

func TestScrapeRejectsUnsupportedSuffix(t *testing.T) {
	client := setupHTTPMock(t)
	engine := newTestScrapeEngine(t, client)

	url := testMediaHost + "/w/index.php?search=diagram"
	httpmock.RegisterResponder(http.MethodGet, url,
		httpmock.NewStringResponder(http.StatusOK, searchPageSVGOnly))

	result := scrapeSingle(t, engine, FallbackQuery{ID: "A1", URL: url, Tier: TierScientific})
	assert.False(t, result.Found)
	assert.Empty(t, result.URL)
}

func TestScrapeKeepsAbsoluteReference(t *testing.T) {
	client := setupHTTPMock(t)
	engine := newTestScrapeEngine(t, client)

	page := `<html><body><ul class="mw-search-results">
<li class="mw-search-result"><a href="https://upload.wikimedia.org/commons/a/ab/Achillea.JPG">hit</a></li>
</ul></body></html>`
	url := testMediaHost + "/w/index.php?search=achillea"
	httpmock.RegisterResponder(http.MethodGet, url,
		httpmock.NewStringResponder(http.StatusOK, page))

	result := scrapeSingle(t, engine, FallbackQuery{ID: "A1", URL: url, Tier: TierScientific})
	assert.True(t, result.Found)
	// Suffix matching is case-insensitive and absolute references keep their host.
	assert.Equal(t, "https://upload.wikimedia.org/commons/a/ab/Achillea.JPG", result.URL)
}

func TestScrapeNoResultsPage(t *testing.T) {
	client := setupHTTPMock(t)
	engine := newTestScrapeEngine(t, client)

	url := testMediaHost + "/w/index.php?search=nothing"
	httpmock.RegisterResponder(http.MethodGet, url,
		httpmock.NewStringResponder(http.StatusOK, searchPageEmpty))

	result := scrapeSingle(t, engine, FallbackQuery{ID: "A1", URL: url, Tier: TierCommon})
	assert.False(t, result.Found)
}

func TestScrapeFailuresAreNotFound(t *testing.T) {
	client := setupHTTPMock(t)
	engine := newTestScrapeEngine(t, client)

	okButMissing := testMediaHost + "/w/index.php?search=missing"
	httpmock.RegisterResponder(http.MethodGet, okButMissing,
		httpmock.NewStringResponder(http.StatusNotFound, ""))

	failing := testMediaHost + "/w/index.php?search=failing"
	httpmock.RegisterResponder(http.MethodGet, failing,
		httpmock.NewErrorResponder(errors.New("connection reset")))

	results := engine.Scrape(context.Background(), []FallbackQuery{
		{ID: "A1", URL: okButMissing, Tier: TierScientific},
		{ID: "A2", URL: failing, Tier: TierScientific},
	})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Found)
	}
}

func TestScrapeAtMostOncePerIdentifierAndTier(t *testing.T) {
	client := setupHTTPMock(t)
	engine := newTestScrapeEngine(t, client)

	url := testMediaHost + "/w/index.php?search=yarrow"
	httpmock.RegisterResponder(http.MethodGet, url,
		httpmock.NewStringResponder(http.StatusOK, searchPageGalleryOnly))

	results := engine.Scrape(context.Background(), []FallbackQuery{
		{ID: "A1", URL: url, Tier: TierScientific},
		{ID: "A1", URL: url, Tier: TierScientific},
		{ID: "A1", URL: url, Tier: TierCommon},
	})
	// Duplicate (identifier, tier) pairs collapse; distinct tiers do not.
	assert.Len(t, results, 2)
}

func TestScrapeSendsUserAgent(t *testing.T) {
	client := setupHTTPMock(t)
	engine := newTestScrapeEngine(t, client)

	var gotUA string
	url := testMediaHost + "/w/index.php?search=yarrow"
	httpmock.RegisterResponder(http.MethodGet, url,
		func(req *http.Request) (*http.Response, error) {
			gotUA = req.Header.Get("User-Agent")
			return httpmock.NewStringResponse(http.StatusOK, searchPageEmpty), nil
		})

	scrapeSingle(t, engine, FallbackQuery{ID: "A1", URL: url, Tier: TierCommon})
	assert.True(t, strings.HasPrefix(gotUA, "seedpix/1.0 ("), "got user agent %q", gotUA)
}

func TestScrapeConcurrencyCeiling(t *testing.T) {
	client := setupHTTPMock(t)

	const ceiling = 3
	const queryCount = 20

	var inFlight, peak atomic.Int32
	responder := func(req *http.Request) (*http.Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return httpmock.NewStringResponse(http.StatusOK, searchPageGalleryOnly), nil
	}

	engine, err := NewScrapeEngine(client, ScrapeConfig{
		Host:        testMediaHost,
		Concurrency: ceiling,
	})
	require.NoError(t, err)

	queries := make([]FallbackQuery, 0, queryCount)
	for i := 0; i < queryCount; i++ {
		url := fmt.Sprintf("%s/w/index.php?search=query%02d", testMediaHost, i)
		httpmock.RegisterResponder(http.MethodGet, url, responder)
		queries = append(queries, FallbackQuery{ID: fmt.Sprintf("id%02d", i), URL: url, Tier: TierScientific})
	}

	results := engine.Scrape(context.Background(), queries)

	require.Len(t, results, queryCount)
	for _, r := range results {
		assert.True(t, r.Found)
	}
	assert.LessOrEqual(t, peak.Load(), int32(ceiling), "in-flight searches exceeded the pool ceiling")
}

func TestNewScrapeEngineInvalidHost(t *testing.T) {
	t.Parallel()

	for _, host := range []string{"", "://nope", "not-a-url"} {
		_, err := NewScrapeEngine(&http.Client{}, ScrapeConfig{Host: host})
		assert.Error(t, err, "host %q", host)
	}
}
