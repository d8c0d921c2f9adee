// probe.go: tier-one direct probe engine with bounded concurrency.
package imagefinder

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const defaultProbeConcurrency = 25

// ProbeEngine performs existence checks against candidate image URLs.
// A single failed attempt is final for a target within the run.
type ProbeEngine struct {
	client      *http.Client
	concurrency int
	logger      *slog.Logger
}

// NewProbeEngine creates a probe engine with the given concurrency ceiling.
func NewProbeEngine(client *http.Client, concurrency int) *ProbeEngine {
	if concurrency < 1 {
		concurrency = defaultProbeConcurrency
	}
	return &ProbeEngine{
		client:      client,
		concurrency: concurrency,
		logger:      serviceLogger().With("engine", "probe"),
	}
}

// Probe checks every target and classifies it as Confirmed or Absent.
// At most one result is produced per identifier, in completion order.
func (e *ProbeEngine) Probe(ctx context.Context, targets []ProbeTarget) []ProbeResult {
	if len(targets) == 0 {
		return nil
	}

	runID := uuid.New().String()
	results := make(chan ProbeResult)

	// Use a semaphore to limit concurrent requests
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.concurrency)

	for i := range targets {
		target := targets[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{} // Acquire semaphore
			defer func() { <-sem }()
			results <- e.probeOne(ctx, runID, target)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single collector goroutine owns the result set, so completions in any
	// order write at most once per identifier.
	collected := make([]ProbeResult, 0, len(targets))
	seen := make(map[string]struct{}, len(targets))
	for r := range results {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		collected = append(collected, r)
	}
	return collected
}

func (e *ProbeEngine) probeOne(ctx context.Context, runID string, target ProbeTarget) ProbeResult {
	absent := ProbeResult{ID: target.ID}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.URL, http.NoBody)
	if err != nil {
		e.logger.Debug("failed to create probe request",
			"request_id", runID,
			"identifier", target.ID,
			"url", target.URL,
			"error", err)
		return absent
	}

	resp, err := e.client.Do(req)
	if err != nil {
		// Network errors and timeouts classify as Absent, never fatal.
		e.logger.Debug("probe request failed",
			"request_id", runID,
			"identifier", target.ID,
			"url", target.URL,
			"error", err)
		return absent
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			e.logger.Debug("failed to close probe response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		e.logger.Debug("no catalog image",
			"request_id", runID,
			"identifier", target.ID,
			"url", target.URL,
			"status_code", resp.StatusCode)
		return absent
	}

	return ProbeResult{ID: target.ID, URL: target.URL, Confirmed: true}
}
