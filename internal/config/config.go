// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	DatabaseURL    string
	Port           string
	AppVersion     string
	BrowserlessURL string
	RankAPIURL     string
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	// Both backends are optional: without a browser endpoint every capture
	// falls back to static fetch, without a rank endpoint traffic estimates
	// come back empty.
	browserlessURL := strings.TrimRight(os.Getenv("BROWSERLESS_URL"), "/")
	rankAPIURL := strings.TrimRight(os.Getenv("RANK_API_URL"), "/")

	return &Config{
		DatabaseURL:    dbURL,
		Port:           port,
		AppVersion:     "26.8.2",
		BrowserlessURL: browserlessURL,
		RankAPIURL:     rankAPIURL,
	}, nil
}
