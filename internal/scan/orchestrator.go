// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.

// Package scan owns the batch job lifecycle: validate the domain list,
// create the job record, then walk the domains sequentially in a background
// goroutine, persisting one result row per domain no matter what happens to
// any individual domain.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/krishanraja/adfixus-sales-sub000/internal/analyzer"
	"github.com/krishanraja/adfixus-sales-sub000/internal/capture"
	"github.com/krishanraja/adfixus-sales-sub000/internal/catalog"
	"github.com/krishanraja/adfixus-sales-sub000/internal/models"
	"github.com/krishanraja/adfixus-sales-sub000/internal/scoring"
	"github.com/krishanraja/adfixus-sales-sub000/internal/webclient"
)

const (
	maxDomainsPerJob = 20

	// One rank-provider query per ~1.1s, per job. The limiter is per-job by
	// design: jobs are independent sequential loops.
	interDomainInterval = 1100 * time.Millisecond
)

var (
	ErrNoDomains      = errors.New("no valid domains supplied")
	ErrTooManyDomains = fmt.Errorf("more than %d domains in one scan", maxDomainsPerJob)
)

// Store is the persistence surface the orchestrator needs. *db.Store
// satisfies it; tests substitute a fake.
type Store interface {
	CreateScanJob(ctx context.Context, job *models.ScanJob) error
	InsertDomainResult(ctx context.Context, r *models.DomainResult) error
	IncrementCompleted(ctx context.Context, id uuid.UUID) error
	FinalizeJob(ctx context.Context, id uuid.UUID, status models.JobStatus) error
}

// Capturer matches capture.Adapter.
type Capturer interface {
	Capture(ctx context.Context, domain string) (*capture.Result, error)
}

// TrafficEstimator matches traffic.Estimator.
type TrafficEstimator interface {
	Estimate(ctx context.Context, domain string) models.TrafficEstimate
}

type Orchestrator struct {
	store    Store
	capturer Capturer
	traffic  TrafficEstimator
	engine   *scoring.Engine
	catalog  *catalog.Catalog

	// lifetime bounds background loops so shutdown doesn't strand them.
	lifetime context.Context
}

func NewOrchestrator(lifetime context.Context, store Store, capturer Capturer, estimator TrafficEstimator, engine *scoring.Engine, cat *catalog.Catalog) *Orchestrator {
	if lifetime == nil {
		lifetime = context.Background()
	}
	return &Orchestrator{
		store:    store,
		capturer: capturer,
		traffic:  estimator,
		engine:   engine,
		catalog:  cat,
		lifetime: lifetime,
	}
}

// StartScan validates and canonicalizes the domain list, creates the job
// record, kicks off the background loop, and returns the job id. Validation
// problems are the only errors a caller sees synchronously.
func (o *Orchestrator) StartScan(ctx context.Context, domains []string, scanCtx *models.ScanContext) (uuid.UUID, error) {
	cleaned, err := CanonicalizeList(domains)
	if err != nil {
		return uuid.Nil, err
	}

	job := &models.ScanJob{
		ID:           uuid.New(),
		Status:       models.JobProcessing,
		TotalDomains: len(cleaned),
		Context:      scanCtx,
	}
	if err := o.store.CreateScanJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("creating scan job: %w", err)
	}

	slog.Info("Scan job started", "job_id", job.ID, "domains", len(cleaned))
	go o.run(job.ID, cleaned)
	return job.ID, nil
}

// CanonicalizeList normalizes, validates, and de-duplicates the submitted
// domains, preserving first-seen order.
func CanonicalizeList(domains []string) ([]string, error) {
	seen := make(map[string]struct{}, len(domains))
	cleaned := make([]string, 0, len(domains))
	for _, raw := range domains {
		domain, err := webclient.Canonicalize(raw)
		if err != nil {
			slog.Debug("Invalid domain rejected", "input", raw, "error", err)
			continue
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		cleaned = append(cleaned, domain)
	}

	if len(cleaned) == 0 {
		return nil, ErrNoDomains
	}
	if len(cleaned) > maxDomainsPerJob {
		return nil, ErrTooManyDomains
	}
	return cleaned, nil
}

// run is the per-job background loop. It must account for every domain: a
// row is written and the progress counter bumped whether the domain scanned
// cleanly or blew up.
func (o *Orchestrator) run(jobID uuid.UUID, domains []string) {
	ctx := o.lifetime
	limiter := rate.NewLimiter(rate.Every(interDomainInterval), 1)

	for i, domain := range domains {
		seq := i + 1

		if err := limiter.Wait(ctx); err != nil {
			// Service shutting down. Leave the job processing; remaining
			// domains simply never produce rows.
			slog.Warn("Scan loop interrupted", "job_id", jobID, "domain", domain, "error", err)
			return
		}

		result := o.scanDomain(ctx, jobID, seq, domain)
		if err := o.store.InsertDomainResult(ctx, result); err != nil {
			slog.Error("Failed to persist domain result", "job_id", jobID, "domain", domain, "error", err)
		}
		if err := o.store.IncrementCompleted(ctx, jobID); err != nil {
			slog.Error("Failed to bump job progress", "job_id", jobID, "error", err)
		}
	}

	if err := o.store.FinalizeJob(ctx, jobID, models.JobCompleted); err != nil {
		slog.Error("Failed to finalize job", "job_id", jobID, "error", err)
		return
	}
	slog.Info("Scan job completed", "job_id", jobID, "domains", len(domains))
}

// scanDomain runs the full pipeline for one domain. It never returns an
// error: any failure becomes a failed row with neutral values so the batch
// carries on.
func (o *Orchestrator) scanDomain(ctx context.Context, jobID uuid.UUID, seq int, domain string) *models.DomainResult {
	estimate := o.traffic.Estimate(ctx, domain)

	captured, err := o.capturer.Capture(ctx, domain)
	if err != nil {
		slog.Warn("Domain capture failed", "job_id", jobID, "domain", domain, "error", err)
		failed := models.NewFailedResult(jobID, seq, domain, err)
		failed.Traffic = estimate
		return failed
	}

	analysis := analyzer.ForStrategy(captured.Strategy, o.catalog).Analyze(captured)
	scores := o.engine.Score(analysis)

	result := &models.DomainResult{
		JobID:  jobID,
		Seq:    seq,
		Domain: domain,
		Status: models.ResultSuccess,

		Cookies: analysis.Cookies,
		Vendors: analysis.Vendors,

		DetectedSSPs:         analysis.SSPs,
		DetectedDSPs:         analysis.DSPs,
		DetectedUniversalIDs: analysis.UniversalIDs,

		AddressabilityGapPct:   &scores.AddressabilityGapPct,
		EstimatedSafariLossPct: &scores.EstimatedSafariLossPct,
		IDBloatSeverity:        scores.IDBloatSeverity,
		PrivacyRiskLevel:       scores.PrivacyRiskLevel,
		CompetitivePositioning: scores.CompetitivePositioning,

		Traffic: estimate,
	}

	if analysis.Note != "" {
		result.Note = &analysis.Note
	}
	if raw, err := json.Marshal(captured.Cookies); err == nil {
		result.RawCookies = raw
	}
	return result
}
