// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.

// Package scoring turns analyzer output into addressability and risk scores.
// Every function here is pure: no I/O, no clocks, no randomness, so a given
// analysis always produces the same scores.
package scoring

import (
	"github.com/krishanraja/adfixus-sales-sub000/internal/analyzer"
	"github.com/krishanraja/adfixus-sales-sub000/internal/models"
)

// Scores is the full scoring output for one analyzed domain.
type Scores struct {
	AddressabilityGapPct   float64
	EstimatedSafariLossPct float64
	IDBloatSeverity        models.Severity
	PrivacyRiskLevel       models.RiskLevel
	CompetitivePositioning models.Positioning
}

// Engine applies one frozen Policy to analyses.
type Engine struct {
	policy Policy
}

func NewEngine(p Policy) *Engine {
	return &Engine{policy: p}
}

// Score computes all five scores for one analysis.
func (e *Engine) Score(a *analyzer.Analysis) Scores {
	gap := e.AddressabilityGap(a.Cookies)
	return Scores{
		AddressabilityGapPct:   gap,
		EstimatedSafariLossPct: e.SafariLoss(a.Cookies),
		IDBloatSeverity:        e.IDBloat(a.Vendors, a.Cookies.ThirdParty),
		PrivacyRiskLevel:       e.PrivacyRisk(a.Vendors, a.Cookies),
		CompetitivePositioning: e.Positioning(a.Vendors, len(a.SSPs), gap),
	}
}

// AddressabilityGap estimates the percentage of inventory that cannot be
// matched to a known identity: the blocked-cookie ratio scaled by Safari's
// market share. A domain with no observed cookies gets the market-share
// baseline rather than a fabricated zero.
func (e *Engine) AddressabilityGap(m models.CookieMetrics) float64 {
	p := e.policy
	gap := p.SafariMarketShare * 100
	if m.Total > 0 {
		ratio := float64(m.SafariBlockedEstimate) / float64(m.Total)
		gap = ratio * p.SafariMarketShare * 100
	}
	return clamp(gap, p.GapFloorPct, p.GapCeilingPct)
}

// SafariLoss estimates the share of total traffic lost to ITP. Same ratio as
// the gap, but bounded by the Safari market share itself since a publisher
// cannot lose more Safari traffic than it has.
func (e *Engine) SafariLoss(m models.CookieMetrics) float64 {
	p := e.policy
	loss := p.SafariMarketShare * 100
	if m.Total > 0 {
		ratio := float64(m.SafariBlockedEstimate) / float64(m.Total)
		loss = ratio * p.SafariMarketShare * 100
	}
	return clamp(loss, 0, p.SafariMarketShare*100)
}

// IDBloat grades identifier fragmentation: how many competing identity
// vendors are writing IDs for the same users.
func (e *Engine) IDBloat(v models.VendorFlags, thirdPartyCookies int) models.Severity {
	p := e.policy
	points := 0
	for _, present := range []bool{v.LiveRamp, v.ID5, v.Criteo, v.TradeDesk} {
		if present {
			points += p.IdentityVendorPoints
		}
	}
	switch {
	case thirdPartyCookies > p.BloatCookiesTier3:
		points += 3
	case thirdPartyCookies > p.BloatCookiesTier2:
		points += 2
	case thirdPartyCookies > p.BloatCookiesTier1:
		points++
	}

	switch {
	case points >= p.BloatCriticalThreshold:
		return models.SeverityCritical
	case points >= p.BloatHighThreshold:
		return models.SeverityHigh
	case points >= p.BloatMediumThreshold:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// PrivacyRisk grades regulatory exposure from consent posture and cookie
// hygiene.
func (e *Engine) PrivacyRisk(v models.VendorFlags, m models.CookieMetrics) models.RiskLevel {
	p := e.policy
	points := 0
	if v.LoadsPreConsent {
		points += p.PreConsentPoints
	}
	if !v.HasTCF && !v.HasGPP {
		points += p.MissingFrameworkPoints
	}
	if m.ThirdParty > p.ExcessThirdPartyCount {
		points += p.ExcessThirdPartyPoints
	}
	switch {
	case m.MaxDurationDays > p.DurationVeryLongDays:
		points += p.DurationVeryLongPoints
	case m.MaxDurationDays > p.DurationLongDays:
		points += p.DurationLongPoints
	}

	switch {
	case points >= p.PrivacyCriticalThreshold:
		return models.RiskCritical
	case points >= p.PrivacyHighThreshold:
		return models.RiskHigh
	case points >= p.PrivacyModerateThreshold:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// Positioning grades how a publisher's identity stack compares to the walled
// gardens: first-party identity assets score up, a wide addressability gap
// scores down.
func (e *Engine) Positioning(v models.VendorFlags, sspCount int, gapPct float64) models.Positioning {
	p := e.policy
	points := 0
	if v.ConversionAPI {
		points += p.ConversionAPIPoints
	}
	if v.OwnedFirstPartyID {
		points += p.OwnedIDPoints
	}
	if sspCount > 0 || v.HeaderBidding {
		points += p.SupplyPathPoints
	}
	if gapPct < p.LowGapPct {
		points += p.LowGapPoints
	}
	if gapPct > p.HighGapPct {
		points -= p.HighGapPenalty
	}

	switch {
	case points >= p.WalledGardenThreshold:
		return models.PositioningWalledGardenParity
	case points >= p.MiddlePackThreshold:
		return models.PositioningMiddlePack
	case points >= p.AtRiskThreshold:
		return models.PositioningAtRisk
	default:
		return models.PositioningCommoditized
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
