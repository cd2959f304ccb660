// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import (
	"sort"
	"strings"
	"time"

	"github.com/krishanraja/adfixus-sales-sub000/internal/capture"
	"github.com/krishanraja/adfixus-sales-sub000/internal/catalog"
	"github.com/krishanraja/adfixus-sales-sub000/internal/models"
)

// itpCapWindow is Safari's first-party storage age cap. First-party cookies
// living longer than this are counted into the blocked estimate.
const itpCapWindow = 7 * 24 * time.Hour

// Analysis is the fingerprinting output handed to the scoring engine and
// persisted on the result row.
type Analysis struct {
	Cookies models.CookieMetrics
	Vendors models.VendorFlags

	SSPs         []string
	DSPs         []string
	UniversalIDs []string

	// Incomplete marks heuristic (static-capture) output whose cookie counts
	// are estimates rather than measurements.
	Incomplete bool
	Note       string
}

// PageAnalyzer turns one capture into an Analysis. Implementations are pure:
// same capture in, same analysis out.
type PageAnalyzer interface {
	Analyze(result *capture.Result) *Analysis
}

// ForStrategy returns the analyzer matching how the page was captured.
// Measured and heuristic data are never blended.
func ForStrategy(strategy capture.Strategy, cat *catalog.Catalog) PageAnalyzer {
	if strategy == capture.StrategyStatic {
		return NewHeuristicAnalyzer(cat)
	}
	return NewMeasuredAnalyzer(cat)
}

// MeasuredAnalyzer works on real cookies and the intercepted request log from
// a dynamic capture.
type MeasuredAnalyzer struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

func NewMeasuredAnalyzer(cat *catalog.Catalog) *MeasuredAnalyzer {
	return &MeasuredAnalyzer{catalog: cat, now: time.Now}
}

func (m *MeasuredAnalyzer) Analyze(result *capture.Result) *Analysis {
	a := &Analysis{}
	now := m.now()

	firstParty := make([]bool, len(result.Cookies))
	for i, ck := range result.Cookies {
		firstParty[i] = IsFirstParty(ck.Domain, result.Domain)
	}

	a.Cookies = m.cookieMetrics(result.Cookies, firstParty, now)
	m.fingerprint(a, result, firstParty)
	detectConsent(a, result.HTML, m.catalog)
	return a
}

func (m *MeasuredAnalyzer) cookieMetrics(cookies []capture.Cookie, firstParty []bool, now time.Time) models.CookieMetrics {
	metrics := models.CookieMetrics{Total: len(cookies)}

	for i, ck := range cookies {
		if firstParty[i] {
			metrics.FirstParty++
		} else {
			metrics.ThirdParty++
		}

		if ck.Session() {
			metrics.Session++
			continue
		}
		metrics.Persistent++

		remaining := time.Unix(int64(ck.Expires), 0).Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		days := remaining.Hours() / 24
		if days > metrics.MaxDurationDays {
			metrics.MaxDurationDays = days
		}
		if firstParty[i] && remaining > itpCapWindow {
			metrics.SafariBlockedEstimate++
		}
	}

	// Every third-party cookie is blocked outright under ITP.
	metrics.SafariBlockedEstimate += metrics.ThirdParty
	return metrics
}

func (m *MeasuredAnalyzer) fingerprint(a *Analysis, result *capture.Result, firstParty []bool) {
	ssps := newVendorSet()
	dsps := newVendorSet()
	uids := newVendorSet()

	match := func(set *vendorSet, patterns []catalog.VendorPattern, test func(catalog.VendorPattern) bool) {
		for _, p := range patterns {
			if test(p) {
				set.add(p.DisplayName)
			}
		}
	}

	for i, ck := range result.Cookies {
		name := ck.Name
		match(ssps, m.catalog.SSPs, func(p catalog.VendorPattern) bool { return p.MatchesCookie(name) })
		match(dsps, m.catalog.DSPs, func(p catalog.VendorPattern) bool { return p.MatchesCookie(name) })
		match(uids, m.catalog.UniversalIDs, func(p catalog.VendorPattern) bool { return p.MatchesCookie(name) })

		if m.catalog.Analytics.MatchesCookie(name) {
			a.Vendors.GoogleAnalytics = true
		}
		if m.catalog.Pixel.MatchesCookie(name) {
			a.Vendors.MetaPixel = true
		}
		if m.catalog.HeaderBidding.MatchesCookie(name) {
			a.Vendors.HeaderBidding = true
		}

		if firstParty[i] {
			for _, p := range m.catalog.UniversalIDs {
				if p.MatchesCookie(name) {
					a.Vendors.OwnedFirstPartyID = true
				}
			}
		}
	}

	for _, req := range result.Requests {
		host := req.Host
		match(ssps, m.catalog.SSPs, func(p catalog.VendorPattern) bool { return p.MatchesHost(host) })
		match(dsps, m.catalog.DSPs, func(p catalog.VendorPattern) bool { return p.MatchesHost(host) })
		match(uids, m.catalog.UniversalIDs, func(p catalog.VendorPattern) bool { return p.MatchesHost(host) })

		url := strings.ToLower(req.URL)
		if m.catalog.Analytics.MatchesHost(host) {
			a.Vendors.GoogleAnalytics = true
		}
		if m.catalog.Pixel.MatchesHost(url) {
			a.Vendors.MetaPixel = true
		}
		if m.catalog.ConversionAPI.MatchesHost(url) {
			a.Vendors.ConversionAPI = true
		}
		if m.catalog.HeaderBidding.MatchesHost(url) {
			a.Vendors.HeaderBidding = true
		}
	}

	a.SSPs = ssps.sorted()
	a.DSPs = dsps.sorted()
	a.UniversalIDs = uids.sorted()
	setIdentityFlags(a)
}

// setIdentityFlags mirrors catalog hits into the dedicated booleans the
// scoring engine reads.
func setIdentityFlags(a *Analysis) {
	for _, name := range a.UniversalIDs {
		switch name {
		case "LiveRamp RampID":
			a.Vendors.LiveRamp = true
		case "ID5 Universal ID":
			a.Vendors.ID5 = true
		}
	}
	for _, name := range a.DSPs {
		switch name {
		case "Criteo":
			a.Vendors.Criteo = true
		case "The Trade Desk":
			a.Vendors.TradeDesk = true
		}
	}
}

// IsFirstParty classifies a cookie domain against the scanned domain using
// suffix matching on whole labels. A bare public suffix like ".com" never
// counts as first-party.
func IsFirstParty(cookieDomain, target string) bool {
	cd := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cookieDomain), "."))
	target = strings.ToLower(target)
	if cd == "" || target == "" {
		return false
	}

	if cd == target {
		return true
	}
	// Cookie scoped to a subdomain of the target.
	if strings.HasSuffix(cd, "."+target) {
		return true
	}
	// Cookie scoped to a parent domain of the target, e.g. ".example.com"
	// seen while scanning news.example.com. Single-label parents are TLDs.
	if strings.HasSuffix(target, "."+cd) && strings.Contains(cd, ".") {
		return true
	}
	return false
}

type vendorSet struct {
	seen map[string]struct{}
}

func newVendorSet() *vendorSet {
	return &vendorSet{seen: make(map[string]struct{})}
}

func (s *vendorSet) add(name string) {
	s.seen[name] = struct{}{}
}

func (s *vendorSet) sorted() []string {
	out := make([]string, 0, len(s.seen))
	for name := range s.seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
