// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
)

// The ordinal and positioning string values below are part of the stored
// schema and consumed downstream; they must not be renamed casually.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type Positioning string

const (
	PositioningWalledGardenParity Positioning = "walled-garden-parity"
	PositioningMiddlePack         Positioning = "middle-pack"
	PositioningAtRisk             Positioning = "at-risk"
	PositioningCommoditized       Positioning = "commoditized"
)

type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

type RankTrend string

const (
	TrendGrowing   RankTrend = "growing"
	TrendDeclining RankTrend = "declining"
	TrendStable    RankTrend = "stable"
)

// ScanContext is optional publisher metadata supplied at job submission.
// It annotates the job record and never feeds into scoring.
type ScanContext struct {
	MonthlyImpressions *int64  `json:"monthly_impressions,omitempty"`
	PublisherVertical  *string `json:"publisher_vertical,omitempty"`
	OwnedDomainsCount  *int    `json:"owned_domains_count,omitempty"`
}

type ScanJob struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	Status           JobStatus    `json:"status" db:"status"`
	TotalDomains     int          `json:"total_domains" db:"total_domains"`
	CompletedDomains int          `json:"completed_domains" db:"completed_domains"`
	Context          *ScanContext `json:"context,omitempty" db:"context"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        *time.Time   `json:"updated_at,omitempty" db:"updated_at"`
}

func (j *ScanJob) Done() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// CookieMetrics summarizes the captured cookie set for one domain.
// SafariBlockedEstimate counts third-party cookies (blocked outright by ITP)
// plus first-party cookies with more than seven days of remaining lifetime
// (age-capped by ITP).
type CookieMetrics struct {
	Total                 int     `json:"total"`
	FirstParty            int     `json:"first_party"`
	ThirdParty            int     `json:"third_party"`
	Session               int     `json:"session"`
	Persistent            int     `json:"persistent"`
	MaxDurationDays       float64 `json:"max_duration_days"`
	SafariBlockedEstimate int     `json:"safari_blocked_estimate"`
}

// VendorFlags is the boolean fingerprint surface consumed by the scoring
// engine and stored alongside each result.
type VendorFlags struct {
	GoogleAnalytics   bool `json:"google_analytics"`
	MetaPixel         bool `json:"meta_pixel"`
	ConversionAPI     bool `json:"conversion_api"`
	LiveRamp          bool `json:"liveramp"`
	ID5               bool `json:"id5"`
	Criteo            bool `json:"criteo"`
	TradeDesk         bool `json:"tradedesk"`
	HeaderBidding     bool `json:"header_bidding"`
	OwnedFirstPartyID bool `json:"owned_first_party_id"`
	HasCMP            bool `json:"has_cmp"`
	HasTCF            bool `json:"has_tcf"`
	HasGPP            bool `json:"has_gpp"`
	LoadsPreConsent   bool `json:"loads_pre_consent"`
}

// RankSample is one daily list-rank observation. Histories are ordered
// newest first.
type RankSample struct {
	Date string `json:"date"`
	Rank int64  `json:"rank"`
}

type TrafficEstimate struct {
	Rank               *int64         `json:"rank,omitempty"`
	MonthlyPageviews   *int64         `json:"monthly_pageviews,omitempty"`
	MonthlyImpressions *int64         `json:"monthly_impressions,omitempty"`
	Confidence         ConfidenceTier `json:"confidence,omitempty"`
	RankHistory        []RankSample   `json:"rank_history,omitempty"`
	Trend              RankTrend      `json:"trend,omitempty"`
}

// Empty reports whether the provider returned nothing usable. Empty estimates
// are stored as NULLs and never fail a scan.
func (t *TrafficEstimate) Empty() bool {
	return t == nil || t.Rank == nil
}

type DomainResult struct {
	ID     int64        `json:"id" db:"id"`
	JobID  uuid.UUID    `json:"job_id" db:"job_id"`
	Seq    int          `json:"seq" db:"seq"`
	Domain string       `json:"domain" db:"domain"`
	Status ResultStatus `json:"status" db:"status"`

	Cookies CookieMetrics `json:"cookie_metrics"`
	Vendors VendorFlags   `json:"vendor_flags"`

	DetectedSSPs         []string `json:"detected_ssps"`
	DetectedDSPs         []string `json:"detected_dsps"`
	DetectedUniversalIDs []string `json:"detected_universal_ids"`

	AddressabilityGapPct   *float64    `json:"addressability_gap_pct"`
	EstimatedSafariLossPct *float64    `json:"estimated_safari_loss_pct"`
	IDBloatSeverity        Severity    `json:"id_bloat_severity"`
	PrivacyRiskLevel       RiskLevel   `json:"privacy_risk_level"`
	CompetitivePositioning Positioning `json:"competitive_positioning"`

	Traffic TrafficEstimate `json:"traffic"`

	// Raw capture artifacts, retained for audit and debugging.
	RawCookies json.RawMessage `json:"raw_cookies,omitempty"`

	Note         *string   `json:"note,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewFailedResult builds the row persisted when a domain's capture or
// analysis fails. Percentage scores stay NULL and the ordinal fields hold
// their neutral values so portfolio aggregation is never skewed by failures.
func NewFailedResult(jobID uuid.UUID, seq int, domain string, cause error) *DomainResult {
	msg := cause.Error()
	return &DomainResult{
		JobID:                  jobID,
		Seq:                    seq,
		Domain:                 domain,
		Status:                 ResultFailed,
		DetectedSSPs:           []string{},
		DetectedDSPs:           []string{},
		DetectedUniversalIDs:   []string{},
		IDBloatSeverity:        SeverityLow,
		PrivacyRiskLevel:       RiskLow,
		CompetitivePositioning: PositioningMiddlePack,
		ErrorMessage:           &msg,
	}
}
