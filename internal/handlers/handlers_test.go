// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/krishanraja/adfixus-sales-sub000/internal/db"
	"github.com/krishanraja/adfixus-sales-sub000/internal/handlers"
	"github.com/krishanraja/adfixus-sales-sub000/internal/telemetry"
)

const testHealthEndpoint = "/api/health"

func init() {
	gin.SetMode(gin.TestMode)
}

func assertStatusOK(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}
	return response
}

func getTestDB(t *testing.T) *db.Database {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping database integration test")
	}
	database, err := db.Connect(dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestHealthCheckEndpoint(t *testing.T) {
	database := getTestDB(t)

	registry := telemetry.NewRegistry()
	router := gin.New()
	handler := handlers.NewHealthHandler(database, registry, nil)
	router.GET(testHealthEndpoint, handler.HealthCheck)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", testHealthEndpoint, nil)
	router.ServeHTTP(w, req)

	assertStatusOK(t, w)

	response := parseJSONResponse(t, w)
	if status, ok := response["status"].(string); !ok || status != "ok" {
		t.Errorf("expected status 'ok', got %v", response["status"])
	}
	if _, ok := response["database"].(map[string]interface{}); !ok {
		t.Errorf("expected database field as object")
	}
	if _, ok := response["memory"].(map[string]interface{}); !ok {
		t.Errorf("expected memory field as object")
	}
	if _, ok := response["overall_provider_health"].(string); !ok {
		t.Errorf("expected overall provider health field")
	}
}

func TestSubmitRejectsMalformedBody(t *testing.T) {
	router := gin.New()
	handler := handlers.NewScanHandler(nil, nil)
	router.POST("/api/scan", handler.Submit)

	for _, body := range []string{"", "{}", `{"domains":"example.com"}`, "not json"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/scan", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestJobEndpointsRejectBadID(t *testing.T) {
	router := gin.New()
	handler := handlers.NewScanHandler(nil, nil)
	router.GET("/api/scan/:id", handler.Status)
	router.GET("/api/scan/:id/results", handler.Results)
	router.GET("/api/scan/:id/summary", handler.Summary)

	for _, path := range []string{
		"/api/scan/not-a-uuid",
		"/api/scan/12345/results",
		"/api/scan/xyz/summary",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", path, nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, w.Code)
		}
	}
}

func TestResultsRejectsBadAfterParam(t *testing.T) {
	router := gin.New()
	handler := handlers.NewScanHandler(nil, nil)
	router.GET("/api/scan/:id/results", handler.Results)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/scan/6e1f1e1e-0000-4000-8000-000000000000/results?after=-3", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for negative after", w.Code)
	}
}
