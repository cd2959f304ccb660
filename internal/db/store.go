// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/krishanraja/adfixus-sales-sub000/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store persists scan jobs and their per-domain results.
type Store struct {
	db *Database
}

func NewStore(database *Database) *Store {
	return &Store{db: database}
}

func (s *Store) CreateScanJob(ctx context.Context, job *models.ScanJob) error {
	contextJSON, err := json.Marshal(job.Context)
	if err != nil {
		return fmt.Errorf("encoding job context: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO scan_jobs (id, status, total_domains, completed_domains, context)
		VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.Status, job.TotalDomains, job.CompletedDomains, contextJSON,
	)
	if err != nil {
		return fmt.Errorf("creating scan job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*models.ScanJob, error) {
	var (
		job         models.ScanJob
		contextJSON []byte
	)
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, status, total_domains, completed_domains, context, created_at, updated_at
		FROM scan_jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.Status, &job.TotalDomains, &job.CompletedDomains,
		&contextJSON, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching scan job: %w", err)
	}

	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &job.Context); err != nil {
			return nil, fmt.Errorf("decoding job context: %w", err)
		}
	}
	return &job, nil
}

// IncrementCompleted bumps the progress counter after each domain, success
// or failure. The counter only moves forward.
func (s *Store) IncrementCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE scan_jobs
		SET completed_domains = completed_domains + 1, updated_at = now()
		WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("incrementing job progress: %w", err)
	}
	return nil
}

func (s *Store) FinalizeJob(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE scan_jobs SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("finalizing job: %w", err)
	}
	return nil
}

// InsertDomainResult writes one result row. If the full-width insert fails,
// it retries once with the minimal column set so every scanned domain leaves
// a record even when a payload column misbehaves.
func (s *Store) InsertDomainResult(ctx context.Context, r *models.DomainResult) error {
	if err := s.insertFull(ctx, r); err != nil {
		slog.Warn("Full result insert failed, retrying with reduced columns",
			"job_id", r.JobID, "domain", r.Domain, "error", err)
		if fallbackErr := s.insertReduced(ctx, r); fallbackErr != nil {
			return fmt.Errorf("inserting domain result (fallback also failed: %v): %w", fallbackErr, err)
		}
	}
	return nil
}

func (s *Store) insertFull(ctx context.Context, r *models.DomainResult) error {
	vendorJSON, err := json.Marshal(r.Vendors)
	if err != nil {
		return fmt.Errorf("encoding vendor flags: %w", err)
	}
	historyJSON, err := json.Marshal(r.Traffic.RankHistory)
	if err != nil {
		return fmt.Errorf("encoding rank history: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO domain_results (
			job_id, seq, domain, status,
			total_cookies, first_party_cookies, third_party_cookies,
			session_cookies, persistent_cookies, max_duration_days, safari_blocked_estimate,
			vendor_flags, detected_ssps, detected_dsps, detected_universal_ids,
			addressability_gap_pct, estimated_safari_loss_pct,
			id_bloat_severity, privacy_risk_level, competitive_positioning,
			rank, monthly_pageviews, monthly_impressions, traffic_confidence, rank_trend, rank_history,
			raw_cookies, note, error_message
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29
		)`,
		r.JobID, r.Seq, r.Domain, r.Status,
		r.Cookies.Total, r.Cookies.FirstParty, r.Cookies.ThirdParty,
		r.Cookies.Session, r.Cookies.Persistent, r.Cookies.MaxDurationDays, r.Cookies.SafariBlockedEstimate,
		vendorJSON, r.DetectedSSPs, r.DetectedDSPs, r.DetectedUniversalIDs,
		r.AddressabilityGapPct, r.EstimatedSafariLossPct,
		r.IDBloatSeverity, r.PrivacyRiskLevel, r.CompetitivePositioning,
		r.Traffic.Rank, r.Traffic.MonthlyPageviews, r.Traffic.MonthlyImpressions,
		nullString(string(r.Traffic.Confidence)), nullString(string(r.Traffic.Trend)), historyJSON,
		rawOrNil(r.RawCookies), r.Note, r.ErrorMessage,
	)
	return err
}

func (s *Store) insertReduced(ctx context.Context, r *models.DomainResult) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO domain_results (
			job_id, seq, domain, status,
			id_bloat_severity, privacy_risk_level, competitive_positioning, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.JobID, r.Seq, r.Domain, r.Status,
		r.IDBloatSeverity, r.PrivacyRiskLevel, r.CompetitivePositioning, r.ErrorMessage,
	)
	return err
}

// ListResults returns a job's rows with seq greater than after, in scan
// order. Pollers pass the last seq they saw; zero returns everything.
func (s *Store) ListResults(ctx context.Context, jobID uuid.UUID, after int) ([]models.DomainResult, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, job_id, seq, domain, status,
			total_cookies, first_party_cookies, third_party_cookies,
			session_cookies, persistent_cookies, max_duration_days, safari_blocked_estimate,
			vendor_flags, detected_ssps, detected_dsps, detected_universal_ids,
			addressability_gap_pct, estimated_safari_loss_pct,
			id_bloat_severity, privacy_risk_level, competitive_positioning,
			rank, monthly_pageviews, monthly_impressions, traffic_confidence, rank_trend, rank_history,
			note, error_message, created_at
		FROM domain_results
		WHERE job_id = $1 AND seq > $2
		ORDER BY seq`, jobID, after,
	)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	var results []models.DomainResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

func scanResult(row pgx.Row) (*models.DomainResult, error) {
	var (
		r           models.DomainResult
		vendorJSON  []byte
		historyJSON []byte
		confidence  *string
		trend       *string
	)
	err := row.Scan(
		&r.ID, &r.JobID, &r.Seq, &r.Domain, &r.Status,
		&r.Cookies.Total, &r.Cookies.FirstParty, &r.Cookies.ThirdParty,
		&r.Cookies.Session, &r.Cookies.Persistent, &r.Cookies.MaxDurationDays, &r.Cookies.SafariBlockedEstimate,
		&vendorJSON, &r.DetectedSSPs, &r.DetectedDSPs, &r.DetectedUniversalIDs,
		&r.AddressabilityGapPct, &r.EstimatedSafariLossPct,
		&r.IDBloatSeverity, &r.PrivacyRiskLevel, &r.CompetitivePositioning,
		&r.Traffic.Rank, &r.Traffic.MonthlyPageviews, &r.Traffic.MonthlyImpressions,
		&confidence, &trend, &historyJSON,
		&r.Note, &r.ErrorMessage, &r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning result row: %w", err)
	}

	if len(vendorJSON) > 0 {
		if err := json.Unmarshal(vendorJSON, &r.Vendors); err != nil {
			return nil, fmt.Errorf("decoding vendor flags: %w", err)
		}
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &r.Traffic.RankHistory); err != nil {
			return nil, fmt.Errorf("decoding rank history: %w", err)
		}
	}
	if confidence != nil {
		r.Traffic.Confidence = models.ConfidenceTier(*confidence)
	}
	if trend != nil {
		r.Traffic.Trend = models.RankTrend(*trend)
	}
	return &r, nil
}

// JobSummary aggregates a job's successful rows. Failed rows are excluded so
// their neutral placeholder values never skew the averages.
type JobSummary struct {
	JobID                  uuid.UUID `json:"job_id"`
	SuccessfulDomains      int       `json:"successful_domains"`
	FailedDomains          int       `json:"failed_domains"`
	AvgAddressabilityGap   *float64  `json:"avg_addressability_gap_pct"`
	AvgEstimatedSafariLoss *float64  `json:"avg_estimated_safari_loss_pct"`
	CriticalIDBloat        int       `json:"critical_id_bloat_domains"`
	HighPrivacyRisk        int       `json:"high_privacy_risk_domains"`
	TotalMonthlyPageviews  *int64    `json:"total_monthly_pageviews"`
}

func (s *Store) Summary(ctx context.Context, jobID uuid.UUID) (*JobSummary, error) {
	summary := JobSummary{JobID: jobID}
	err := s.db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			AVG(addressability_gap_pct) FILTER (WHERE status = 'success'),
			AVG(estimated_safari_loss_pct) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'success' AND id_bloat_severity = 'critical'),
			COUNT(*) FILTER (WHERE status = 'success' AND privacy_risk_level IN ('high', 'critical')),
			SUM(monthly_pageviews) FILTER (WHERE status = 'success')
		FROM domain_results WHERE job_id = $1`, jobID,
	).Scan(&summary.SuccessfulDomains, &summary.FailedDomains,
		&summary.AvgAddressabilityGap, &summary.AvgEstimatedSafariLoss,
		&summary.CriticalIDBloat, &summary.HighPrivacyRisk,
		&summary.TotalMonthlyPageviews)
	if err != nil {
		return nil, fmt.Errorf("aggregating job summary: %w", err)
	}
	return &summary, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func rawOrNil(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
