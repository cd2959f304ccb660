// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.

// Package traffic estimates monthly pageviews and ad impressions from a
// domain's position in a public popularity ranking. Rank is a coarse signal,
// so everything here is best-effort: a provider outage or an unranked domain
// yields an empty estimate, never an error that fails a scan.
package traffic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/krishanraja/adfixus-sales-sub000/internal/models"
	"github.com/krishanraja/adfixus-sales-sub000/internal/telemetry"
)

const (
	// Power-law fit of monthly visits against list rank, calibrated from
	// published web-traffic research. Yields annual pageviews; divide by 12.
	powerLawC = 4.61e11
	powerLawE = -1.21

	impressionsPerPageview = 3.0

	// Rank tiers for the confidence label on the extrapolation.
	highConfidenceRank   = 100_000
	mediumConfidenceRank = 1_000_000

	// Absolute rank movement between the oldest and newest sample required
	// before the trend leaves "stable".
	trendThreshold = 5000

	lookupTimeout = 10 * time.Second
	cacheTTL      = 6 * time.Hour
	cacheSize     = 2048

	depRankProvider = "rank_provider"
)

// rankResponse mirrors the provider's JSON: a domain and its daily rank
// samples, newest first.
type rankResponse struct {
	Domain string `json:"domain"`
	Ranks  []struct {
		Date string `json:"date"`
		Rank int64  `json:"rank"`
	} `json:"ranks"`
}

// Estimator looks up ranks over HTTP and caches results per domain.
type Estimator struct {
	baseURL  string
	client   *http.Client
	cache    *telemetry.TTLCache[models.TrafficEstimate]
	registry *telemetry.Registry
}

func NewEstimator(baseURL string, registry *telemetry.Registry) *Estimator {
	return &Estimator{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: lookupTimeout},
		cache:    telemetry.NewTTLCache[models.TrafficEstimate]("rank_lookups", cacheSize, cacheTTL),
		registry: registry,
	}
}

// Configured reports whether a rank provider endpoint was supplied.
func (e *Estimator) Configured() bool {
	return e.baseURL != ""
}

// Estimate returns the traffic estimate for a canonical domain. Any provider
// problem is logged and swallowed; callers always get a usable (possibly
// empty) estimate.
func (e *Estimator) Estimate(ctx context.Context, domain string) models.TrafficEstimate {
	if !e.Configured() {
		return models.TrafficEstimate{}
	}
	if cached, ok := e.cache.Get(domain); ok {
		return cached
	}

	start := time.Now()
	resp, err := e.lookup(ctx, domain)
	if err != nil {
		e.registry.RecordFailure(depRankProvider, err.Error())
		slog.Warn("rank lookup failed", "domain", domain, "error", err)
		return models.TrafficEstimate{}
	}
	e.registry.RecordSuccess(depRankProvider, time.Since(start))

	estimate := buildEstimate(resp)
	e.cache.Set(domain, estimate)
	return estimate
}

func (e *Estimator) lookup(ctx context.Context, domain string) (*rankResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/ranks/domain/%s", e.baseURL, url.PathEscape(domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building rank request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rank provider request: %w", err)
	}
	defer resp.Body.Close()

	// Unranked domains are a normal outcome, not a provider failure.
	if resp.StatusCode == http.StatusNotFound {
		return &rankResponse{Domain: domain}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rank provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading rank response: %w", err)
	}
	var parsed rankResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding rank response: %w", err)
	}
	return &parsed, nil
}

// buildEstimate extrapolates traffic from the latest rank sample. Sample
// history arrives newest first and is kept in that order.
func buildEstimate(resp *rankResponse) models.TrafficEstimate {
	if resp == nil || len(resp.Ranks) == 0 {
		return models.TrafficEstimate{}
	}

	history := make([]models.RankSample, 0, len(resp.Ranks))
	for _, s := range resp.Ranks {
		if s.Rank > 0 {
			history = append(history, models.RankSample{Date: s.Date, Rank: s.Rank})
		}
	}
	if len(history) == 0 {
		return models.TrafficEstimate{}
	}

	latest := history[0].Rank
	pageviews := MonthlyPageviews(latest)
	impressions := int64(math.Round(float64(pageviews) * impressionsPerPageview))

	return models.TrafficEstimate{
		Rank:               &latest,
		MonthlyPageviews:   &pageviews,
		MonthlyImpressions: &impressions,
		Confidence:         confidence(latest),
		RankHistory:        history,
		Trend:              trend(history),
	}
}

// MonthlyPageviews applies the power-law fit to a list rank. The outer
// rounding happens on the annual figure first to match how the coefficients
// were calibrated.
func MonthlyPageviews(rank int64) int64 {
	annual := math.Round(powerLawC * math.Pow(float64(rank), powerLawE))
	return int64(math.Round(annual / 12))
}

func confidence(rank int64) models.ConfidenceTier {
	switch {
	case rank <= highConfidenceRank:
		return models.ConfidenceHigh
	case rank <= mediumConfidenceRank:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// trend compares the newest sample against the oldest. Lower rank is better,
// so a large negative delta means the domain is growing.
func trend(history []models.RankSample) models.RankTrend {
	if len(history) < 2 {
		return models.TrendStable
	}
	delta := history[0].Rank - history[len(history)-1].Rank
	switch {
	case delta < -trendThreshold:
		return models.TrendGrowing
	case delta > trendThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

// CacheStats exposes lookup-cache health for the ops endpoint.
func (e *Estimator) CacheStats() telemetry.CacheStats {
	return e.cache.Stats()
}
