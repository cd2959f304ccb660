// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/krishanraja/adfixus-sales-sub000/internal/analyzer"
	"github.com/krishanraja/adfixus-sales-sub000/internal/capture"
	"github.com/krishanraja/adfixus-sales-sub000/internal/catalog"
	"github.com/krishanraja/adfixus-sales-sub000/internal/models"
	"github.com/krishanraja/adfixus-sales-sub000/internal/scoring"
)

type fakeStore struct {
	mu         sync.Mutex
	jobs       []*models.ScanJob
	results    []*models.DomainResult
	increments int
	finalized  chan models.JobStatus

	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{finalized: make(chan models.JobStatus, 1)}
}

func (f *fakeStore) CreateScanJob(_ context.Context, job *models.ScanJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeStore) InsertDomainResult(_ context.Context, r *models.DomainResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, r)
	return nil
}

func (f *fakeStore) IncrementCompleted(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments++
	return nil
}

func (f *fakeStore) FinalizeJob(_ context.Context, _ uuid.UUID, status models.JobStatus) error {
	f.finalized <- status
	return nil
}

func (f *fakeStore) snapshot() []*models.DomainResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.DomainResult(nil), f.results...)
}

type fakeCapturer struct {
	failOn map[string]error
	static bool
}

func (c *fakeCapturer) Capture(_ context.Context, domain string) (*capture.Result, error) {
	if err, ok := c.failOn[domain]; ok {
		return nil, err
	}
	if c.static {
		return &capture.Result{
			Domain:   domain,
			Strategy: capture.StrategyStatic,
			HTML:     "<html><head></head><body></body></html>",
		}, nil
	}
	return &capture.Result{
		Domain:   domain,
		Strategy: capture.StrategyDynamic,
		Cookies: []capture.Cookie{
			{Name: "_ga", Domain: "." + domain, Expires: float64(time.Now().Add(400 * 24 * time.Hour).Unix())},
		},
	}, nil
}

type fakeTraffic struct {
	unranked bool
}

func (f fakeTraffic) Estimate(_ context.Context, _ string) models.TrafficEstimate {
	if f.unranked {
		return models.TrafficEstimate{}
	}
	rank := int64(5000)
	return models.TrafficEstimate{Rank: &rank}
}

func newTestOrchestrator(store Store, capturer Capturer) *Orchestrator {
	return newTestOrchestratorWithTraffic(store, capturer, fakeTraffic{})
}

func newTestOrchestratorWithTraffic(store Store, capturer Capturer, traffic TrafficEstimator) *Orchestrator {
	return NewOrchestrator(context.Background(), store, capturer, traffic,
		scoring.NewEngine(scoring.DefaultPolicy()), catalog.Default())
}

func waitFinalized(t *testing.T, f *fakeStore) models.JobStatus {
	t.Helper()
	select {
	case status := <-f.finalized:
		return status
	case <-time.After(30 * time.Second):
		t.Fatal("job never finalized")
		return ""
	}
}

func TestStartScan_Validation(t *testing.T) {
	o := newTestOrchestrator(newFakeStore(), &fakeCapturer{})

	t.Run("empty list rejected", func(t *testing.T) {
		if _, err := o.StartScan(context.Background(), nil, nil); !errors.Is(err, ErrNoDomains) {
			t.Errorf("err = %v, want ErrNoDomains", err)
		}
	})

	t.Run("all-invalid list rejected", func(t *testing.T) {
		if _, err := o.StartScan(context.Background(), []string{"...", "not a domain"}, nil); !errors.Is(err, ErrNoDomains) {
			t.Errorf("err = %v, want ErrNoDomains", err)
		}
	})

	t.Run("over limit rejected", func(t *testing.T) {
		domains := make([]string, 21)
		for i := range domains {
			domains[i] = uuid.NewString()[:8] + ".example.com"
		}
		if _, err := o.StartScan(context.Background(), domains, nil); !errors.Is(err, ErrTooManyDomains) {
			t.Errorf("err = %v, want ErrTooManyDomains", err)
		}
	})
}

func TestCanonicalizeList_Dedup(t *testing.T) {
	got, err := CanonicalizeList([]string{
		"https://www.Example.com/path",
		"example.com",
		"EXAMPLE.COM.",
		"other.example",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"example.com", "other.example"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("cleaned = %v, want %v", got, want)
	}
}

func TestStartScan_CompletesJob(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(store, &fakeCapturer{})

	jobID, err := o.StartScan(context.Background(), []string{"example.com"}, nil)
	if err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	if jobID == uuid.Nil {
		t.Fatal("expected a job id")
	}

	if status := waitFinalized(t, store); status != models.JobCompleted {
		t.Errorf("final status = %s, want completed", status)
	}

	results := store.snapshot()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Status != models.ResultSuccess || r.Seq != 1 || r.Domain != "example.com" {
		t.Errorf("unexpected result row: %+v", r)
	}
	if r.AddressabilityGapPct == nil {
		t.Error("successful row must carry a gap percentage")
	}
	if r.Traffic.Empty() {
		t.Error("traffic estimate lost on the way to the row")
	}
	if store.increments != 1 {
		t.Errorf("progress bumped %d times, want 1", store.increments)
	}
}

func TestScan_DomainFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	capturer := &fakeCapturer{failOn: map[string]error{
		"broken.example": errors.New("navigation timeout"),
	}}
	o := newTestOrchestrator(store, capturer)

	_, err := o.StartScan(context.Background(), []string{"broken.example", "healthy.example"}, nil)
	if err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	if status := waitFinalized(t, store); status != models.JobCompleted {
		t.Errorf("final status = %s, want completed despite one failure", status)
	}

	results := store.snapshot()
	if len(results) != 2 {
		t.Fatalf("got %d results, want one row per domain", len(results))
	}

	failed, ok := results[0], results[1]
	if failed.Status != models.ResultFailed {
		t.Fatalf("first row status = %s, want failed", failed.Status)
	}
	if failed.AddressabilityGapPct != nil || failed.EstimatedSafariLossPct != nil {
		t.Error("failed row must not carry percentage scores")
	}
	if failed.IDBloatSeverity != models.SeverityLow ||
		failed.PrivacyRiskLevel != models.RiskLow ||
		failed.CompetitivePositioning != models.PositioningMiddlePack {
		t.Errorf("failed row ordinals not neutral: %+v", failed)
	}
	if failed.Traffic.Empty() {
		t.Error("best-effort traffic estimate should survive a capture failure")
	}
	if ok.Status != models.ResultSuccess || ok.Seq != 2 {
		t.Errorf("second domain should have scanned cleanly, got %+v", ok)
	}
}

func TestScan_StaticCaptureRowCarriesNote(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(store, &fakeCapturer{static: true})

	if _, err := o.StartScan(context.Background(), []string{"example.com"}, nil); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	if status := waitFinalized(t, store); status != models.JobCompleted {
		t.Errorf("final status = %s, want completed", status)
	}

	results := store.snapshot()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Status != models.ResultSuccess {
		t.Fatalf("static capture should still score, got status %s", r.Status)
	}
	if r.Note == nil || *r.Note != analyzer.StaticCaptureNote {
		t.Errorf("persisted row missing the static-capture note, got %v", r.Note)
	}
}

func TestScan_UnrankedDomainStillSucceeds(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestratorWithTraffic(store, &fakeCapturer{}, fakeTraffic{unranked: true})

	if _, err := o.StartScan(context.Background(), []string{"example.com"}, nil); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	if status := waitFinalized(t, store); status != models.JobCompleted {
		t.Errorf("final status = %s, want completed", status)
	}

	results := store.snapshot()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Status != models.ResultSuccess {
		t.Fatalf("missing rank data must not fail the domain, got status %s", r.Status)
	}
	if !r.Traffic.Empty() {
		t.Errorf("unranked domain should persist an empty estimate, got %+v", r.Traffic)
	}
	if r.AddressabilityGapPct == nil {
		t.Error("row should still carry scores without traffic data")
	}
}

func TestStartScan_StoreDownFailsSynchronously(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("connection refused")
	o := newTestOrchestrator(store, &fakeCapturer{})

	if _, err := o.StartScan(context.Background(), []string{"example.com"}, nil); err == nil {
		t.Fatal("expected synchronous error when the job row cannot be created")
	}
	if len(store.snapshot()) != 0 {
		t.Error("no results should be written when job creation fails")
	}
}
