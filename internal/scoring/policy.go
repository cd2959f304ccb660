// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package scoring

// Policy holds every scoring constant in one place. The values are business
// policy, not derived quantities; changing any of them changes what the
// scores mean, so revisions should bump Version rather than edit in place.
type Policy struct {
	Version string

	// SafariMarketShare is the assumed share of traffic subject to ITP.
	SafariMarketShare float64

	// Addressability gap clamp bounds, in percent.
	GapFloorPct   float64
	GapCeilingPct float64

	// ID bloat point schedule.
	IdentityVendorPoints   int // per LiveRamp/ID5/Criteo/TradeDesk hit
	BloatCookiesTier1      int // third-party count threshold, +1
	BloatCookiesTier2      int // +2
	BloatCookiesTier3      int // +3
	BloatMediumThreshold   int
	BloatHighThreshold     int
	BloatCriticalThreshold int

	// Privacy risk point schedule.
	PreConsentPoints         int
	MissingFrameworkPoints   int // no TCF and no GPP API
	ExcessThirdPartyCount    int
	ExcessThirdPartyPoints   int
	DurationLongDays         float64
	DurationLongPoints       int
	DurationVeryLongDays     float64
	DurationVeryLongPoints   int
	PrivacyModerateThreshold int
	PrivacyHighThreshold     int
	PrivacyCriticalThreshold int

	// Competitive positioning point schedule.
	ConversionAPIPoints   int
	OwnedIDPoints         int
	SupplyPathPoints      int // SSP or header-bidding presence
	LowGapPct             float64
	LowGapPoints          int
	HighGapPct            float64
	HighGapPenalty        int
	AtRiskThreshold       int
	MiddlePackThreshold   int
	WalledGardenThreshold int
}

// DefaultPolicy returns the scoring policy currently in production use.
func DefaultPolicy() Policy {
	return Policy{
		Version: "2026.1",

		SafariMarketShare: 0.30,
		GapFloorPct:       10,
		GapCeilingPct:     80,

		IdentityVendorPoints:   2,
		BloatCookiesTier1:      5,
		BloatCookiesTier2:      15,
		BloatCookiesTier3:      30,
		BloatMediumThreshold:   2,
		BloatHighThreshold:     5,
		BloatCriticalThreshold: 8,

		PreConsentPoints:         3,
		MissingFrameworkPoints:   2,
		ExcessThirdPartyCount:    20,
		ExcessThirdPartyPoints:   2,
		DurationLongDays:         180,
		DurationLongPoints:       1,
		DurationVeryLongDays:     365,
		DurationVeryLongPoints:   2,
		PrivacyModerateThreshold: 2,
		PrivacyHighThreshold:     4,
		PrivacyCriticalThreshold: 6,

		ConversionAPIPoints:   3,
		OwnedIDPoints:         3,
		SupplyPathPoints:      2,
		LowGapPct:             30,
		LowGapPoints:          2,
		HighGapPct:            50,
		HighGapPenalty:        2,
		AtRiskThreshold:       1,
		MiddlePackThreshold:   4,
		WalledGardenThreshold: 7,
	}
}
