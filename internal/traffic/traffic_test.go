// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package traffic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/krishanraja/adfixus-sales-sub000/internal/models"
	"github.com/krishanraja/adfixus-sales-sub000/internal/telemetry"
)

func newTestEstimator(t *testing.T, handler http.HandlerFunc) *Estimator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewEstimator(srv.URL, telemetry.NewRegistry())
}

func rankJSON(domain string, ranks ...[2]any) string {
	out := fmt.Sprintf(`{"domain":%q,"ranks":[`, domain)
	for i, r := range ranks {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"date":%q,"rank":%d}`, r[0], r[1])
	}
	return out + "]}"
}

func TestEstimate_RankedDomain(t *testing.T) {
	e := newTestEstimator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ranks/domain/example.com" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// Provider returns samples newest first.
		fmt.Fprint(w, rankJSON("example.com",
			[2]any{"2026-03-01", 50000},
			[2]any{"2026-02-01", 80000},
		))
	})

	est := e.Estimate(context.Background(), "example.com")

	if est.Empty() {
		t.Fatal("expected a populated estimate")
	}
	if *est.Rank != 50000 {
		t.Errorf("rank = %d, want 50000 (newest sample, first in history)", *est.Rank)
	}
	if *est.MonthlyPageviews != MonthlyPageviews(50000) {
		t.Errorf("pageviews = %d, want power-law value", *est.MonthlyPageviews)
	}
	wantImpr := int64(float64(MonthlyPageviews(50000)) * impressionsPerPageview)
	if *est.MonthlyImpressions != wantImpr {
		t.Errorf("impressions = %d, want %d", *est.MonthlyImpressions, wantImpr)
	}
	if est.Confidence != models.ConfidenceHigh {
		t.Errorf("confidence = %s, want high at rank 50k", est.Confidence)
	}
	if len(est.RankHistory) != 2 {
		t.Errorf("history length = %d, want 2", len(est.RankHistory))
	}
	if est.RankHistory[0].Rank != 50000 {
		t.Errorf("history[0] = %d, want the newest sample preserved first", est.RankHistory[0].Rank)
	}
	// Rank moved from 80000 down to 50000, well past the trend threshold.
	if est.Trend != models.TrendGrowing {
		t.Errorf("trend = %s, want growing", est.Trend)
	}
}

func TestMonthlyPageviews(t *testing.T) {
	// Rank 1000 sits well above rank 1_000_000 on the power law, and both
	// round to stable integers.
	if MonthlyPageviews(1000) <= MonthlyPageviews(1_000_000) {
		t.Error("pageviews must decrease with worsening rank")
	}
	if MonthlyPageviews(1) <= 0 {
		t.Error("rank 1 must yield positive pageviews")
	}
}

func TestConfidenceTiers(t *testing.T) {
	tests := []struct {
		rank int64
		want models.ConfidenceTier
	}{
		{1, models.ConfidenceHigh},
		{100_000, models.ConfidenceHigh},
		{100_001, models.ConfidenceMedium},
		{1_000_000, models.ConfidenceMedium},
		{1_000_001, models.ConfidenceLow},
	}
	for _, tt := range tests {
		if got := confidence(tt.rank); got != tt.want {
			t.Errorf("confidence(%d) = %s, want %s", tt.rank, got, tt.want)
		}
	}
}

func TestTrend(t *testing.T) {
	// History is newest first; a lower rank is a better rank.
	tests := []struct {
		name    string
		history []models.RankSample
		want    models.RankTrend
	}{
		{"single sample", []models.RankSample{{Rank: 100}}, models.TrendStable},
		{"rank improved past threshold", []models.RankSample{{Rank: 50000}, {Rank: 60000}}, models.TrendGrowing},
		{"rank worsened past threshold", []models.RankSample{{Rank: 60000}, {Rank: 50000}}, models.TrendDeclining},
		{"movement within threshold", []models.RankSample{{Rank: 50000}, {Rank: 54000}}, models.TrendStable},
		{"exactly at threshold is stable", []models.RankSample{{Rank: 50000}, {Rank: 55000}}, models.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trend(tt.history); got != tt.want {
				t.Errorf("trend = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEstimate_UnrankedDomainIsEmpty(t *testing.T) {
	e := newTestEstimator(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	est := e.Estimate(context.Background(), "obscure-blog.example")
	if !est.Empty() {
		t.Errorf("expected empty estimate for unranked domain, got %+v", est)
	}
}

func TestEstimate_ProviderErrorIsEmpty(t *testing.T) {
	e := newTestEstimator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	est := e.Estimate(context.Background(), "example.com")
	if !est.Empty() {
		t.Errorf("expected empty estimate on provider error, got %+v", est)
	}

	stats := e.registry.Stats(depRankProvider)
	if stats.ConsecFailures == 0 {
		t.Error("provider failure must be recorded in telemetry")
	}
}

func TestEstimate_Unconfigured(t *testing.T) {
	e := NewEstimator("", telemetry.NewRegistry())
	if est := e.Estimate(context.Background(), "example.com"); !est.Empty() {
		t.Errorf("unconfigured estimator must return empty, got %+v", est)
	}
}

func TestEstimate_CachesLookups(t *testing.T) {
	var calls atomic.Int64
	e := newTestEstimator(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, rankJSON("example.com", [2]any{"2026-03-01", 1234}))
	})

	e.Estimate(context.Background(), "example.com")
	e.Estimate(context.Background(), "example.com")

	if got := calls.Load(); got != 1 {
		t.Errorf("provider called %d times, want 1 (second hit cached)", got)
	}
}

func TestEstimate_ZeroRanksFilteredOut(t *testing.T) {
	e := newTestEstimator(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rankJSON("example.com", [2]any{"2026-03-01", 0}))
	})

	est := e.Estimate(context.Background(), "example.com")
	if !est.Empty() {
		t.Errorf("all-zero rank history must yield empty estimate, got %+v", est)
	}
}
