// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/krishanraja/adfixus-sales-sub000/internal/catalog"
	"github.com/krishanraja/adfixus-sales-sub000/internal/telemetry"
	"github.com/krishanraja/adfixus-sales-sub000/internal/webclient"
)

type Strategy string

const (
	StrategyDynamic Strategy = "dynamic"
	StrategyStatic  Strategy = "static"
)

const (
	dynamicTimeout = 45 * time.Second
	staticTimeout  = 30 * time.Second

	// Payload caps so a tag-heavy page cannot blow up result rows.
	maxRequests = 200
	maxCookies  = 50

	depHeadless = "headless_backend"
	depStatic   = "static_fetch"
)

// Cookie is one browser cookie as reported by the automation backend.
// Expires is unix seconds; zero or negative means a session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

func (c Cookie) Session() bool {
	return c.Expires <= 0
}

type NetworkRequest struct {
	URL        string `json:"url"`
	Host       string `json:"host"`
	ThirdParty bool   `json:"third_party"`
	AdTech     bool   `json:"ad_tech"`
}

// Result is what one capture of one domain observed. A static-strategy result
// carries HTML only; its cookie and request slices are empty and the
// downstream analyzer must estimate instead of measure.
type Result struct {
	Domain   string
	Strategy Strategy
	HTML     string
	Cookies  []Cookie
	Requests []NetworkRequest
}

// domainChecker answers whether a domain resolves at all.
type domainChecker interface {
	Exists(ctx context.Context, domain string) bool
}

// staticFetcher is the plain-GET strategy's HTTP surface, satisfied by
// webclient.SafeHTTPClient.
type staticFetcher interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
	ReadBody(resp *http.Response, maxBytes int64) ([]byte, error)
}

// Adapter fetches a single domain's rendered page. It prefers the headless
// automation backend when one is configured and falls back to a plain GET.
type Adapter struct {
	browser  *BrowserClient
	static   staticFetcher
	resolver domainChecker
	catalog  *catalog.Catalog
	registry *telemetry.Registry
}

func NewAdapter(browserURL string, cat *catalog.Catalog, registry *telemetry.Registry) *Adapter {
	a := &Adapter{
		static:   webclient.NewSafeHTTPClient(staticTimeout, webclient.BrowserUserAgent),
		resolver: webclient.NewResolver(),
		catalog:  cat,
		registry: registry,
	}
	if browserURL != "" {
		a.browser = NewBrowserClient(browserURL)
	}
	return a
}

// DynamicEnabled reports whether a headless backend is configured at all.
func (a *Adapter) DynamicEnabled() bool {
	return a.browser != nil
}

// Capture runs the dynamic strategy when available, falling back to static.
// Static failure is terminal for the domain.
func (a *Adapter) Capture(ctx context.Context, domain string) (*Result, error) {
	if !a.resolver.Exists(ctx, domain) {
		return nil, fmt.Errorf("domain %s does not resolve", domain)
	}

	if a.browser != nil && !a.registry.InCooldown(depHeadless) {
		result, err := a.captureDynamic(ctx, domain)
		if err == nil {
			return result, nil
		}
		slog.Warn("Dynamic capture failed, falling back to static", "domain", domain, "error", err)
	}

	return a.captureStatic(ctx, domain)
}

func (a *Adapter) captureDynamic(ctx context.Context, domain string) (*Result, error) {
	start := time.Now()
	raw, err := a.browser.Render(ctx, "https://"+domain)
	if err != nil {
		a.registry.RecordFailure(depHeadless, err.Error())
		return nil, err
	}
	a.registry.RecordSuccess(depHeadless, time.Since(start))

	cookies := raw.Cookies
	if len(cookies) > maxCookies {
		cookies = cookies[:maxCookies]
	}

	requests := make([]NetworkRequest, 0, len(raw.Requests))
	for _, r := range raw.Requests {
		if len(requests) >= maxRequests {
			break
		}
		host := hostOf(r.URL)
		if host == "" {
			continue
		}
		requests = append(requests, NetworkRequest{
			URL:        r.URL,
			Host:       host,
			ThirdParty: !sameSite(host, domain),
			AdTech:     a.catalog.IsAdTechHost(host),
		})
	}

	return &Result{
		Domain:   domain,
		Strategy: StrategyDynamic,
		HTML:     raw.HTML,
		Cookies:  cookies,
		Requests: requests,
	}, nil
}

const maxHTMLBytes = 2 << 20

func (a *Adapter) captureStatic(ctx context.Context, domain string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, staticTimeout)
	defer cancel()

	start := time.Now()
	resp, err := a.static.Get(ctx, "https://"+domain)
	if err != nil {
		a.registry.RecordFailure(depStatic, err.Error())
		return nil, fmt.Errorf("static fetch of %s: %w", domain, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		a.registry.RecordFailure(depStatic, fmt.Sprintf("status %d", resp.StatusCode))
		return nil, fmt.Errorf("static fetch of %s: status %d", domain, resp.StatusCode)
	}

	body, err := a.static.ReadBody(resp, maxHTMLBytes)
	if err != nil {
		a.registry.RecordFailure(depStatic, err.Error())
		return nil, fmt.Errorf("static fetch of %s: read body: %w", domain, err)
	}
	a.registry.RecordSuccess(depStatic, time.Since(start))

	return &Result{
		Domain:   domain,
		Strategy: StrategyStatic,
		HTML:     string(body),
	}, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// sameSite compares registrable domains (eTLD+1) so cdn.example.com counts
// as first-party to example.com while example.cdn.net does not.
func sameSite(host, target string) bool {
	hostReg, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		hostReg = host
	}
	targetReg, err := publicsuffix.EffectiveTLDPlusOne(target)
	if err != nil {
		targetReg = target
	}
	return hostReg == targetReg
}
