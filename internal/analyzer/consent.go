// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package analyzer

import (
	"strings"

	"github.com/krishanraja/adfixus-sales-sub000/internal/catalog"
)

// detectConsent fills the compliance flags from page HTML. Pre-consent
// loading is flagged when trackers are present with no CMP to gate them.
func detectConsent(a *Analysis, html string, cat *catalog.Catalog) {
	lower := strings.ToLower(html)

	a.Vendors.HasCMP = cat.HasCMPLoader(lower)
	a.Vendors.HasTCF = strings.Contains(lower, "__tcfapi")
	a.Vendors.HasGPP = strings.Contains(lower, "__gpp")

	trackers := a.Vendors.GoogleAnalytics || a.Vendors.MetaPixel ||
		len(a.SSPs) > 0 || len(a.DSPs) > 0
	a.Vendors.LoadsPreConsent = !a.Vendors.HasCMP && trackers
}
