// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/krishanraja/adfixus-sales-sub000/internal/capture"
	"github.com/krishanraja/adfixus-sales-sub000/internal/catalog"
	"github.com/krishanraja/adfixus-sales-sub000/internal/models"
)

// StaticCaptureNote is attached to every result produced by the heuristic
// path so consumers know the cookie figures are estimates.
const StaticCaptureNote = "static capture: cookie counts estimated from detected vendor scripts; cookie data may be incomplete"

// Cookie-count estimates per detected vendor class. Chosen to track what the
// same vendors typically set when measured dynamically.
const (
	estCookiesAnalytics = 3
	estCookiesPixel     = 2
	estCookiesPerSSP    = 2
	estCookiesPerDSP    = 2
	estCookiesPerUID    = 1

	estMaxDurationAnalytics = 730
	estMaxDurationVendor    = 390
)

// HeuristicAnalyzer handles static captures, where no cookies or network
// requests were observed. It infers vendor presence from script, img and
// iframe tags and estimates cookie counts from what those vendors set in
// practice. Its output is always marked Incomplete.
type HeuristicAnalyzer struct {
	catalog *catalog.Catalog
}

func NewHeuristicAnalyzer(cat *catalog.Catalog) *HeuristicAnalyzer {
	return &HeuristicAnalyzer{catalog: cat}
}

func (h *HeuristicAnalyzer) Analyze(result *capture.Result) *Analysis {
	a := &Analysis{
		Incomplete: true,
		Note:       StaticCaptureNote,
	}

	refs := extractTagReferences(result.HTML)
	h.fingerprintReferences(a, refs)
	detectConsent(a, result.HTML, h.catalog)
	a.Cookies = h.estimateCookies(a)
	return a
}

// extractTagReferences collects lowercased external references and inline
// script bodies from the page.
func extractTagReferences(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Unparseable markup still allows raw substring scanning.
		return []string{strings.ToLower(html)}
	}

	var refs []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			refs = append(refs, strings.ToLower(src))
			return
		}
		if text := s.Text(); text != "" {
			refs = append(refs, strings.ToLower(text))
		}
	})
	doc.Find("img, iframe").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			refs = append(refs, strings.ToLower(src))
		}
	})
	return refs
}

func (h *HeuristicAnalyzer) fingerprintReferences(a *Analysis, refs []string) {
	ssps := newVendorSet()
	dsps := newVendorSet()
	uids := newVendorSet()

	for _, ref := range refs {
		for _, p := range h.catalog.SSPs {
			if p.MatchesHost(ref) {
				ssps.add(p.DisplayName)
			}
		}
		for _, p := range h.catalog.DSPs {
			if p.MatchesHost(ref) {
				dsps.add(p.DisplayName)
			}
		}
		for _, p := range h.catalog.UniversalIDs {
			if p.MatchesHost(ref) {
				uids.add(p.DisplayName)
			}
		}

		if h.catalog.Analytics.MatchesHost(ref) {
			a.Vendors.GoogleAnalytics = true
		}
		if h.catalog.Pixel.MatchesHost(ref) {
			a.Vendors.MetaPixel = true
		}
		if h.catalog.ConversionAPI.MatchesHost(ref) {
			a.Vendors.ConversionAPI = true
		}
		if h.catalog.HeaderBidding.MatchesHost(ref) {
			a.Vendors.HeaderBidding = true
		}
	}

	a.SSPs = ssps.sorted()
	a.DSPs = dsps.sorted()
	a.UniversalIDs = uids.sorted()
	setIdentityFlags(a)
}

func (h *HeuristicAnalyzer) estimateCookies(a *Analysis) models.CookieMetrics {
	var metrics models.CookieMetrics

	if a.Vendors.GoogleAnalytics {
		metrics.FirstParty += estCookiesAnalytics
		metrics.MaxDurationDays = estMaxDurationAnalytics
	}
	if a.Vendors.MetaPixel {
		metrics.FirstParty += estCookiesPixel
	}
	metrics.ThirdParty += len(a.SSPs) * estCookiesPerSSP
	metrics.ThirdParty += len(a.DSPs) * estCookiesPerDSP
	metrics.FirstParty += len(a.UniversalIDs) * estCookiesPerUID

	if metrics.MaxDurationDays == 0 && (metrics.FirstParty > 0 || metrics.ThirdParty > 0) {
		metrics.MaxDurationDays = estMaxDurationVendor
	}

	metrics.Total = metrics.FirstParty + metrics.ThirdParty
	metrics.Persistent = metrics.Total

	// The vendors estimated here set long-lived cookies, so every estimated
	// first-party cookie lands in the ITP age-cap bucket.
	metrics.SafariBlockedEstimate = metrics.ThirdParty + metrics.FirstParty
	return metrics
}
