// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// settleDelayMs gives late-loading tag managers and bidders time to fire
// after network idle before cookies are read.
const settleDelayMs = 2500

// BrowserClient drives the external headless automation backend. The backend
// navigates to a URL, intercepts every outgoing request, waits for network
// idle plus a settle delay, then returns rendered HTML, cookies and the
// request log.
type BrowserClient struct {
	baseURL string
	client  *http.Client
}

func NewBrowserClient(baseURL string) *BrowserClient {
	return &BrowserClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: dynamicTimeout,
		},
	}
}

type renderRequest struct {
	URL         string `json:"url"`
	WaitUntil   string `json:"waitUntil"`
	SettleMs    int    `json:"settleMs"`
	MaxRequests int    `json:"maxRequests"`
	MaxCookies  int    `json:"maxCookies"`
}

type rawRequest struct {
	URL          string `json:"url"`
	ResourceType string `json:"resourceType,omitempty"`
}

// RenderResult is the backend's raw payload, before first/third-party
// classification.
type RenderResult struct {
	HTML     string       `json:"html"`
	Cookies  []Cookie     `json:"cookies"`
	Requests []rawRequest `json:"requests"`
}

func (b *BrowserClient) Render(ctx context.Context, targetURL string) (*RenderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, dynamicTimeout)
	defer cancel()

	payload, err := json.Marshal(renderRequest{
		URL:         targetURL,
		WaitUntil:   "networkidle",
		SettleMs:    settleDelayMs,
		MaxRequests: maxRequests,
		MaxCookies:  maxCookies,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/render", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("headless backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("headless backend: status %d after %s", resp.StatusCode, time.Since(start).Round(time.Millisecond))
	}

	var result RenderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("headless backend: decode response: %w", err)
	}
	if result.HTML == "" {
		return nil, fmt.Errorf("headless backend: empty render for %s", targetURL)
	}
	return &result, nil
}
