// imagefinder.go: Package imagefinder resolves catalog entries to product image URLs
// using a two-tier strategy: a direct-pattern probe against the catalog image host,
// then a fallback search against Wikimedia Commons for entries the probe could not
// confirm.
package imagefinder

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/seedpix/seedpix-go/internal/conf"
	"github.com/seedpix/seedpix-go/internal/errors"
	"github.com/seedpix/seedpix-go/internal/logging"
)

// CatalogEntry is the in-memory view of one catalog row the resolver consumes.
// The resolver never mutates entries; it produces a separate ResolutionMap.
type CatalogEntry struct {
	ID          string // unique catalog key, e.g. item code
	Genus       string
	Species     string
	CommonNames string // comma-separated, may be empty
	ImageURL    string // already-resolved URL, empty if unset
}

// ProbeTarget pairs an identifier with its candidate direct image URL.
type ProbeTarget struct {
	ID  string
	URL string
}

// ProbeResult is the classified outcome of one direct probe.
// Confirmed carries the candidate URL; otherwise the target is Absent.
type ProbeResult struct {
	ID        string
	URL       string
	Confirmed bool
}

// QueryTier orders fallback queries; lower values outrank higher ones.
type QueryTier int

const (
	TierScientific QueryTier = iota
	TierCommon
)

func (t QueryTier) String() string {
	switch t {
	case TierScientific:
		return "scientific"
	case TierCommon:
		return "common"
	default:
		return "unknown"
	}
}

// FallbackQuery is one search-page request for an unresolved identifier.
type FallbackQuery struct {
	ID   string
	URL  string
	Tier QueryTier
}

// FallbackResult is the classified outcome of one fallback scrape.
// Found carries the extracted media URL resolved against the media host.
type FallbackResult struct {
	ID    string
	URL   string
	Tier  QueryTier
	Found bool
}

// Resolution is one (identifier, URL) pair of the final result set.
// An empty URL means the identifier could not be resolved.
type Resolution struct {
	ID  string
	URL string
}

// ResolutionMap holds exactly one Resolution per distinct input identifier,
// sorted by identifier.
type ResolutionMap []Resolution

// ErrInvalidIdentifier signals a catalog entry whose identifier is empty.
// It fails that single entry, never the run.
var ErrInvalidIdentifier = errors.Newf("catalog identifier is empty").
	Component("imagefinder").
	Category(errors.CategoryValidation).
	Build()

func serviceLogger() *slog.Logger {
	if l := logging.ForService("imagefinder"); l != nil {
		return l
	}
	return slog.Default().With("service", "imagefinder")
}

// Prober performs the tier-one existence checks.
type Prober interface {
	Probe(ctx context.Context, targets []ProbeTarget) []ProbeResult
}

// Scraper performs the tier-two fallback searches.
type Scraper interface {
	Scrape(ctx context.Context, queries []FallbackQuery) []FallbackResult
}

// Resolver runs the full two-tier resolution pipeline.
type Resolver struct {
	prober    Prober
	scraper   Scraper
	probeHost string
	mediaHost string
	logger    *slog.Logger
}

// New creates a Resolver wired from settings, with real HTTP engines.
func New(settings *conf.Settings) (*Resolver, error) {
	probeClient := &http.Client{Timeout: settings.Probe.Timeout}
	scrapeClient := &http.Client{Timeout: settings.Scrape.Timeout}

	scrapeEngine, err := NewScrapeEngine(scrapeClient, ScrapeConfig{
		Host:              settings.Scrape.Host,
		Concurrency:       settings.Scrape.Concurrency,
		RequestsPerSecond: settings.Scrape.RequestsPerSecond,
		UserAgent:         settings.Scrape.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	return &Resolver{
		prober:    NewProbeEngine(probeClient, settings.Probe.Concurrency),
		scraper:   scrapeEngine,
		probeHost: settings.Probe.Host,
		mediaHost: settings.Scrape.Host,
		logger:    serviceLogger(),
	}, nil
}

// NewWithEngines creates a Resolver with caller-supplied engines.
func NewWithEngines(prober Prober, scraper Scraper, probeHost, mediaHost string) *Resolver {
	return &Resolver{
		prober:    prober,
		scraper:   scraper,
		probeHost: probeHost,
		mediaHost: mediaHost,
		logger:    serviceLogger(),
	}
}

// Run resolves every entry and returns one Resolution per distinct identifier.
// Tier two never starts for an identifier before its tier-one outcome is known,
// and a successful scientific-tier result suppresses the common-tier attempt.
func (r *Resolver) Run(ctx context.Context, entries []CatalogEntry) (ResolutionMap, error) {
	targets := make([]ProbeTarget, 0, len(entries))
	for i := range entries {
		en := &entries[i]
		if en.ImageURL != "" {
			// Resolved upstream, probe never attempted.
			continue
		}
		candidate, err := CandidateURL(r.probeHost, en.ID)
		if err != nil {
			r.logger.Warn("skipping entry with invalid identifier",
				"genus", en.Genus,
				"species", en.Species,
				"error", err)
			continue
		}
		// Outcomes carry the trimmed identifier so the merger can match
		// them against the input set.
		targets = append(targets, ProbeTarget{ID: strings.TrimSpace(en.ID), URL: candidate})
	}

	probeResults := r.prober.Probe(ctx, targets)

	confirmed := make(map[string]bool, len(probeResults))
	for i := range probeResults {
		if probeResults[i].Confirmed {
			confirmed[probeResults[i].ID] = true
		}
	}
	r.logger.Info("direct probe finished",
		"targets", len(targets),
		"confirmed", len(confirmed),
		"absent", len(targets)-len(confirmed))

	unresolved := make([]CatalogEntry, 0, len(entries))
	for i := range entries {
		en := &entries[i]
		id := strings.TrimSpace(en.ID)
		if en.ImageURL != "" || id == "" || confirmed[id] {
			continue
		}
		cp := *en
		cp.ID = id
		unresolved = append(unresolved, cp)
	}

	sciResults := r.runFallbackPass(ctx, ScientificQueries(r.mediaHost, unresolved), TierScientific)

	foundSci := make(map[string]bool, len(sciResults))
	for i := range sciResults {
		if sciResults[i].Found {
			foundSci[sciResults[i].ID] = true
		}
	}

	still := make([]CatalogEntry, 0, len(unresolved))
	for i := range unresolved {
		if !foundSci[unresolved[i].ID] {
			still = append(still, unresolved[i])
		}
	}

	commonResults := r.runFallbackPass(ctx, CommonQueries(r.mediaHost, still), TierCommon)

	fallbacks := make([]FallbackResult, 0, len(sciResults)+len(commonResults))
	fallbacks = append(fallbacks, sciResults...)
	fallbacks = append(fallbacks, commonResults...)

	return Merge(entries, probeResults, fallbacks)
}

func (r *Resolver) runFallbackPass(ctx context.Context, queries []FallbackQuery, tier QueryTier) []FallbackResult {
	if len(queries) == 0 {
		return nil
	}
	results := r.scraper.Scrape(ctx, queries)

	found := 0
	for i := range results {
		if results[i].Found {
			found++
		}
	}
	r.logger.Info("fallback pass finished",
		"tier", tier.String(),
		"queries", len(queries),
		"found", found)
	return results
}
