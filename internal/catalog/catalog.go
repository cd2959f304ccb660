// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package catalog

import "strings"

// VendorPattern is one immutable signature in the ad-tech knowledge base.
// Matching is case-insensitive substring containment; a single cookie or
// request host may match several entries across catalogs.
type VendorPattern struct {
	Key              string
	DisplayName      string
	CookieSubstrings []string
	DomainSubstrings []string
}

func (p VendorPattern) MatchesCookie(name string) bool {
	return matchAny(name, p.CookieSubstrings)
}

func (p VendorPattern) MatchesHost(host string) bool {
	return matchAny(host, p.DomainSubstrings)
}

func matchAny(s string, patterns []string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, pat := range patterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}

// Catalog bundles every signature table the analyzer needs. Construct it once
// at process start with Default() and share it read-only across jobs.
type Catalog struct {
	SSPs         []VendorPattern
	DSPs         []VendorPattern
	UniversalIDs []VendorPattern

	// AdTechHosts tags intercepted network requests during dynamic capture.
	AdTechHosts []string

	// CMPLoaders are script-loader substrings of known consent platforms.
	CMPLoaders []string

	// Analytics/pixel/conversion signatures back the dedicated vendor flags.
	Analytics     VendorPattern
	Pixel         VendorPattern
	ConversionAPI VendorPattern
	HeaderBidding VendorPattern
}

var defaultCatalog = Catalog{
	SSPs: []VendorPattern{
		{Key: "magnite", DisplayName: "Magnite", CookieSubstrings: []string{"rubicon", "rpb", "khaos"}, DomainSubstrings: []string{"rubiconproject.com", "magnite.com"}},
		{Key: "pubmatic", DisplayName: "PubMatic", CookieSubstrings: []string{"pubmatic", "kadusercookie", "pugt"}, DomainSubstrings: []string{"pubmatic.com"}},
		{Key: "index_exchange", DisplayName: "Index Exchange", CookieSubstrings: []string{"cygnus", "indexexchange"}, DomainSubstrings: []string{"casalemedia.com", "indexww.com"}},
		{Key: "openx", DisplayName: "OpenX", CookieSubstrings: []string{"openx", "i_openx"}, DomainSubstrings: []string{"openx.net"}},
		{Key: "xandr", DisplayName: "Xandr", CookieSubstrings: []string{"uuid2", "anj"}, DomainSubstrings: []string{"adnxs.com", "xandr.com"}},
		{Key: "sovrn", DisplayName: "Sovrn", CookieSubstrings: []string{"ljt_reader"}, DomainSubstrings: []string{"lijit.com", "sovrn.com"}},
		{Key: "gam", DisplayName: "Google Ad Manager", CookieSubstrings: []string{"__gads", "__gpi"}, DomainSubstrings: []string{"doubleclick.net", "googlesyndication.com"}},
		{Key: "triplelift", DisplayName: "TripleLift", CookieSubstrings: []string{"tluid"}, DomainSubstrings: []string{"3lift.com", "triplelift.com"}},
		{Key: "sharethrough", DisplayName: "Sharethrough", CookieSubstrings: []string{"stx_user_id"}, DomainSubstrings: []string{"sharethrough.com", "btlr.sharethrough"}},
		{Key: "medianet", DisplayName: "Media.net", CookieSubstrings: []string{"visitor-id"}, DomainSubstrings: []string{"media.net"}},
	},
	DSPs: []VendorPattern{
		{Key: "tradedesk", DisplayName: "The Trade Desk", CookieSubstrings: []string{"tdid", "tdcpm", "ttd_"}, DomainSubstrings: []string{"adsrvr.org", "thetradedesk.com"}},
		{Key: "criteo", DisplayName: "Criteo", CookieSubstrings: []string{"cto_", "criteo"}, DomainSubstrings: []string{"criteo.com", "criteo.net"}},
		{Key: "mediamath", DisplayName: "MediaMath", CookieSubstrings: []string{"uuidc", "mt_mop"}, DomainSubstrings: []string{"mathtag.com", "mediamath.com"}},
		{Key: "amazon_dsp", DisplayName: "Amazon DSP", CookieSubstrings: []string{"ad-id", "ad-privacy"}, DomainSubstrings: []string{"amazon-adsystem.com"}},
		{Key: "dv360", DisplayName: "Display & Video 360", CookieSubstrings: []string{"ide", "dsid"}, DomainSubstrings: []string{"doubleclick.net"}},
		{Key: "quantcast", DisplayName: "Quantcast", CookieSubstrings: []string{"__qca", "mc"}, DomainSubstrings: []string{"quantserve.com", "quantcount.com"}},
		{Key: "adobe_ads", DisplayName: "Adobe Advertising", CookieSubstrings: []string{"everest_g_v2", "demdex"}, DomainSubstrings: []string{"everesttech.net", "demdex.net"}},
	},
	UniversalIDs: []VendorPattern{
		{Key: "liveramp", DisplayName: "LiveRamp RampID", CookieSubstrings: []string{"_lr_env", "_lr_retry_request", "pxrc", "rlas3"}, DomainSubstrings: []string{"rlcdn.com", "liveramp.com", "ats.rlcdn"}},
		{Key: "id5", DisplayName: "ID5 Universal ID", CookieSubstrings: []string{"id5id", "_id5_"}, DomainSubstrings: []string{"id5-sync.com"}},
		{Key: "uid2", DisplayName: "Unified ID 2.0", CookieSubstrings: []string{"__uid2_advertising_token", "uid2"}, DomainSubstrings: []string{"uidapi.com", "unifiedid.com"}},
		{Key: "sharedid", DisplayName: "SharedID", CookieSubstrings: []string{"_pubcid", "sharedid"}, DomainSubstrings: []string{"sharedid.org"}},
		{Key: "lotame", DisplayName: "Lotame Panorama ID", CookieSubstrings: []string{"_cc_id", "panoramaid"}, DomainSubstrings: []string{"crwdcntrl.net", "lotame.com"}},
		{Key: "liveintent", DisplayName: "LiveIntent nonID", CookieSubstrings: []string{"_lc2_fpi", "_li_ss"}, DomainSubstrings: []string{"liadm.com", "liveintent.com"}},
		{Key: "yahoo_connectid", DisplayName: "Yahoo ConnectID", CookieSubstrings: []string{"connectid", "_cid"}, DomainSubstrings: []string{"ups.analytics.yahoo.com"}},
	},
	AdTechHosts: []string{
		"doubleclick.net", "googlesyndication.com", "googletagmanager.com",
		"google-analytics.com", "adnxs.com", "rubiconproject.com",
		"pubmatic.com", "casalemedia.com", "openx.net", "criteo",
		"adsrvr.org", "amazon-adsystem.com", "facebook.net", "facebook.com/tr",
		"rlcdn.com", "id5-sync.com", "everesttech.net", "demdex.net",
		"bluekai.com", "mathtag.com", "lijit.com", "quantserve.com",
		"taboola.com", "outbrain.com", "3lift.com", "crwdcntrl.net",
		"liadm.com", "uidapi.com",
	},
	CMPLoaders: []string{
		"cdn.cookielaw.org", "otsdkstub", "onetrust",
		"consent.cookiebot.com", "cookiebot",
		"consent.trustarc.com", "trustarc",
		"sourcepoint", "sp-prod.net",
		"quantcast.mgr.consensu.org", "cmp.quantcast.com",
		"sdk.privacy-center.org", "didomi",
		"usercentrics",
	},
	Analytics: VendorPattern{
		Key:              "google_analytics",
		DisplayName:      "Google Analytics",
		CookieSubstrings: []string{"_ga", "_gid", "_gat"},
		DomainSubstrings: []string{"google-analytics.com", "googletagmanager.com", "analytics.google.com"},
	},
	Pixel: VendorPattern{
		Key:              "meta_pixel",
		DisplayName:      "Meta Pixel",
		CookieSubstrings: []string{"_fbp", "_fbc"},
		DomainSubstrings: []string{"connect.facebook.net", "facebook.com/tr"},
	},
	ConversionAPI: VendorPattern{
		Key:              "conversion_api",
		DisplayName:      "Conversions API",
		CookieSubstrings: []string{"_fbp"},
		DomainSubstrings: []string{"capig.", "connect.facebook.net/signals", "graph.facebook.com"},
	},
	HeaderBidding: VendorPattern{
		Key:              "header_bidding",
		DisplayName:      "Prebid",
		CookieSubstrings: []string{"_pbjs"},
		DomainSubstrings: []string{"prebid", "/hb/", "headerbid"},
	},
}

// Default returns the built-in signature catalog. The returned value is
// shared; callers must treat it as read-only.
func Default() *Catalog {
	return &defaultCatalog
}

// IsAdTechHost reports whether a request host belongs to a known ad-tech
// intermediary.
func (c *Catalog) IsAdTechHost(host string) bool {
	return matchAny(host, c.AdTechHosts)
}

// HasCMPLoader reports whether page HTML references a known consent
// management platform loader.
func (c *Catalog) HasCMPLoader(html string) bool {
	return matchAny(html, c.CMPLoaders)
}
