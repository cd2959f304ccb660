// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/krishanraja/adfixus-sales-sub000/internal/catalog"
	"github.com/krishanraja/adfixus-sales-sub000/internal/telemetry"
)

type stubResolver struct{ exists bool }

func (s stubResolver) Exists(ctx context.Context, domain string) bool { return s.exists }

type stubFetcher struct {
	html   string
	status int
	err    error
}

func (s stubFetcher) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &http.Response{
		StatusCode: s.status,
		Body:       io.NopCloser(strings.NewReader(s.html)),
	}, nil
}

func (s stubFetcher) ReadBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxBytes))
}

func testAdapter(browserURL string) *Adapter {
	a := NewAdapter(browserURL, catalog.Default(), telemetry.NewRegistry())
	a.resolver = stubResolver{exists: true}
	return a
}

func backendResponse(t *testing.T, nRequests int) string {
	t.Helper()
	result := RenderResult{
		HTML:    "<html><body>rendered</body></html>",
		Cookies: []Cookie{{Name: "_ga", Domain: ".example.com", Expires: 2e9}},
	}
	for i := 0; i < nRequests; i++ {
		result.Requests = append(result.Requests, rawRequest{URL: fmt.Sprintf("https://tag%d.doubleclick.net/x", i)})
	}
	payload, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal backend response: %v", err)
	}
	return string(payload)
}

func TestCapture_DynamicStrategy(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req renderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode render request: %v", err)
		}
		if req.URL != "https://example.com" {
			t.Errorf("expected target https://example.com, got %s", req.URL)
		}
		fmt.Fprint(w, backendResponse(t, 3))
	}))
	defer backend.Close()

	a := testAdapter(backend.URL)
	result, err := a.Capture(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Strategy != StrategyDynamic {
		t.Errorf("expected dynamic strategy, got %s", result.Strategy)
	}
	if len(result.Cookies) != 1 || result.Cookies[0].Name != "_ga" {
		t.Errorf("unexpected cookies: %+v", result.Cookies)
	}
	if len(result.Requests) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(result.Requests))
	}
	req := result.Requests[0]
	if !req.ThirdParty {
		t.Error("doubleclick request should be third-party to example.com")
	}
	if !req.AdTech {
		t.Error("doubleclick request should be tagged ad-tech")
	}
}

func TestCapture_RequestCapApplied(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, backendResponse(t, maxRequests+50))
	}))
	defer backend.Close()

	a := testAdapter(backend.URL)
	result, err := a.Capture(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Requests) != maxRequests {
		t.Errorf("expected request log capped at %d, got %d", maxRequests, len(result.Requests))
	}
}

func TestCapture_FallsBackToStatic(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "browser pool exhausted", http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	a := testAdapter(backend.URL)
	a.static = stubFetcher{html: "<html><script src='https://www.googletagmanager.com/gtag/js'></script></html>", status: 200}

	result, err := a.Capture(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if result.Strategy != StrategyStatic {
		t.Errorf("expected static strategy after dynamic failure, got %s", result.Strategy)
	}
	if len(result.Cookies) != 0 {
		t.Error("static capture cannot observe cookies")
	}
}

func TestCapture_StaticOnlyWhenUnconfigured(t *testing.T) {
	a := testAdapter("")
	a.static = stubFetcher{html: "<html></html>", status: 200}

	if a.DynamicEnabled() {
		t.Fatal("expected dynamic strategy to be disabled")
	}
	result, err := a.Capture(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Strategy != StrategyStatic {
		t.Errorf("expected static strategy, got %s", result.Strategy)
	}
}

func TestCapture_StaticFailureIsTerminal(t *testing.T) {
	a := testAdapter("")
	a.static = stubFetcher{status: 503, html: "unavailable"}

	if _, err := a.Capture(context.Background(), "example.com"); err == nil {
		t.Fatal("expected terminal error when static fetch fails")
	}
}

func TestCapture_NonResolvingDomain(t *testing.T) {
	a := testAdapter("")
	a.resolver = stubResolver{exists: false}

	if _, err := a.Capture(context.Background(), "doesnotexist.invalid"); err == nil {
		t.Fatal("expected error for non-resolving domain")
	}
}

func TestSameSite(t *testing.T) {
	tests := []struct {
		host   string
		target string
		want   bool
	}{
		{"example.com", "example.com", true},
		{"cdn.example.com", "example.com", true},
		{"example.com", "sub.example.com", true},
		{"tags.example.co.uk", "example.co.uk", true},
		{"other.co.uk", "example.co.uk", false},
		{"doubleclick.net", "example.com", false},
	}
	for _, tt := range tests {
		if got := sameSite(tt.host, tt.target); got != tt.want {
			t.Errorf("sameSite(%q, %q) = %v, want %v", tt.host, tt.target, got, tt.want)
		}
	}
}

func TestCookieSession(t *testing.T) {
	if !(Cookie{Expires: -1}).Session() {
		t.Error("expires -1 should be a session cookie")
	}
	if (Cookie{Expires: 2e9}).Session() {
		t.Error("future expiry should not be a session cookie")
	}
}
