// scrape.go: tier-two fallback scrape engine against the media repository.
package imagefinder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/seedpix/seedpix-go/internal/errors"
)

const (
	defaultScrapeConcurrency = 50

	// User-Agent constants following Wikimedia robot policy
	// https://foundation.wikimedia.org/wiki/Policy:Wikimedia_Foundation_User-Agent_Policy
	userAgentName    = "seedpix"
	userAgentContact = "https://github.com/seedpix/seedpix-go"
	userAgentLibrary = "Go-HTTP-Client"
)

// Accepted media reference suffixes, checked case-insensitively against the
// reference path.
var allowedMediaSuffixes = []string{".png", ".jpg", ".jpeg", ".pdf"}

// ScrapeConfig configures a ScrapeEngine.
type ScrapeConfig struct {
	Host              string  // base URL of the media repository
	Concurrency       int     // pool ceiling
	RequestsPerSecond float64 // shared politeness limit, <= 0 disables limiting
	UserAgent         string  // empty selects the policy-compliant default
}

// ScrapeEngine fetches search-result pages and extracts the first qualifying
// media reference. One failed attempt is final for a query within the run.
type ScrapeEngine struct {
	client      *http.Client
	base        *url.URL
	concurrency int
	limiter     *rate.Limiter
	userAgent   string
	logger      *slog.Logger
}

// buildUserAgent constructs a user-agent string that complies with Wikimedia's robot policy.
// Format: <client name>/<version> (<contact information>) <library/framework name>/<version>
func buildUserAgent() string {
	return fmt.Sprintf("%s/1.0 (%s) %s/%s",
		userAgentName, userAgentContact, userAgentLibrary, runtime.Version())
}

// NewScrapeEngine creates a scrape engine for the given media host.
func NewScrapeEngine(client *http.Client, cfg ScrapeConfig) (*ScrapeEngine, error) {
	base, err := url.Parse(cfg.Host)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Newf("invalid media host %q", cfg.Host).
			Component("imagefinder").
			Category(errors.CategoryConfiguration).
			Context("host", cfg.Host).
			Build()
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = defaultScrapeConcurrency
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), concurrency)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = buildUserAgent()
	}

	return &ScrapeEngine{
		client:      client,
		base:        base,
		concurrency: concurrency,
		limiter:     limiter,
		userAgent:   userAgent,
		logger:      serviceLogger().With("engine", "scrape"),
	}, nil
}

// Scrape fetches every query URL and classifies the outcome as Found or
// NotFound. At most one result is produced per (identifier, tier) pair, in
// completion order.
func (e *ScrapeEngine) Scrape(ctx context.Context, queries []FallbackQuery) []FallbackResult {
	if len(queries) == 0 {
		return nil
	}

	runID := uuid.New().String()
	results := make(chan FallbackResult)

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.concurrency)

	for i := range queries {
		query := queries[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{} // Acquire semaphore
			defer func() { <-sem }()
			results <- e.scrapeOne(ctx, runID, query)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	type slot struct {
		id   string
		tier QueryTier
	}
	collected := make([]FallbackResult, 0, len(queries))
	seen := make(map[slot]struct{}, len(queries))
	for r := range results {
		key := slot{id: r.ID, tier: r.Tier}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		collected = append(collected, r)
	}
	return collected
}

func (e *ScrapeEngine) scrapeOne(ctx context.Context, runID string, query FallbackQuery) FallbackResult {
	notFound := FallbackResult{ID: query.ID, Tier: query.Tier}
	log := e.logger.With(
		"request_id", runID,
		"identifier", query.ID,
		"tier", query.Tier.String())

	if err := e.limiter.Wait(ctx); err != nil {
		log.Debug("rate limiter wait aborted", "error", err)
		return notFound
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, query.URL, http.NoBody)
	if err != nil {
		log.Debug("failed to create search request", "url", query.URL, "error", err)
		return notFound
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		log.Debug("search request failed", "url", query.URL, "error", err)
		return notFound
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Debug("failed to close search response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		log.Debug("search returned non-OK response", "url", query.URL, "status_code", resp.StatusCode)
		return notFound
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Debug("failed to parse search result markup", "url", query.URL, "error", err)
		return notFound
	}

	ref, ok := extractMediaRef(doc)
	if !ok {
		log.Debug("no media reference in search results", "url", query.URL)
		return notFound
	}

	resolved, ok := e.resolveMediaRef(ref)
	if !ok {
		log.Debug("media reference has unsupported suffix", "reference", ref)
		return notFound
	}

	log.Debug("media reference found", "media_url", resolved)
	return FallbackResult{ID: query.ID, URL: resolved, Tier: query.Tier, Found: true}
}

// extractMediaRef returns the first qualifying media reference in the parsed
// search page: search-result outbound links are preferred in document order,
// then gallery image sources.
func extractMediaRef(doc *goquery.Document) (string, bool) {
	if href, ok := doc.Find("li.mw-search-result a[href]").First().Attr("href"); ok {
		return href, true
	}
	if src, ok := doc.Find("ul.gallery img[src]").First().Attr("src"); ok {
		return src, true
	}
	return "", false
}

// resolveMediaRef validates the reference suffix and resolves it to an
// absolute URL against the media host.
func (e *ScrapeEngine) resolveMediaRef(ref string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", false
	}
	if !hasAllowedSuffix(u.Path) {
		return "", false
	}
	return e.base.ResolveReference(u).String(), true
}

func hasAllowedSuffix(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range allowedMediaSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
