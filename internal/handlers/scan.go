// Copyright (c) 2024-2026 IT Help San Diego Inc.
// Licensed under BUSL-1.1 — See LICENSE for terms.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/krishanraja/adfixus-sales-sub000/internal/db"
	"github.com/krishanraja/adfixus-sales-sub000/internal/models"
	"github.com/krishanraja/adfixus-sales-sub000/internal/scan"
)

// ScanHandler exposes the scan pipeline over JSON: submit a batch, poll
// status, pull incremental rows, and fetch the portfolio summary.
type ScanHandler struct {
	Orchestrator *scan.Orchestrator
	Store        *db.Store
}

func NewScanHandler(orchestrator *scan.Orchestrator, store *db.Store) *ScanHandler {
	return &ScanHandler{Orchestrator: orchestrator, Store: store}
}

type scanRequest struct {
	Domains []string            `json:"domains" binding:"required"`
	Context *models.ScanContext `json:"context"`
}

// Submit handles POST /api/scan. Validation failures are the caller's only
// synchronous errors; everything else surfaces through polling.
func (h *ScanHandler) Submit(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must include a domains array")
		return
	}

	jobID, err := h.Orchestrator.StartScan(c.Request.Context(), req.Domains, req.Context)
	switch {
	case errors.Is(err, scan.ErrNoDomains):
		badRequest(c, "no valid domains in request")
		return
	case errors.Is(err, scan.ErrTooManyDomains):
		badRequest(c, err.Error())
		return
	case err != nil:
		traceID, _ := c.Get("trace_id")
		slog.Error("Scan submission failed", "trace_id", traceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start scan"})
		return
	}

	job, err := h.Store.GetJob(c.Request.Context(), jobID)
	if err != nil {
		// The job exists; report what we know.
		c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job_id":        job.ID,
		"status":        job.Status,
		"total_domains": job.TotalDomains,
	})
}

// Status handles GET /api/scan/:id.
func (h *ScanHandler) Status(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	job, err := h.Store.GetJob(c.Request.Context(), jobID)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load scan job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// Results handles GET /api/scan/:id/results?after=<seq>. Pollers pass the
// highest seq they have seen; omitting it returns every row so far.
func (h *ScanHandler) Results(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	after := 0
	if raw := c.Query("after"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			badRequest(c, "after must be a non-negative integer")
			return
		}
		after = parsed
	}

	job, err := h.Store.GetJob(c.Request.Context(), jobID)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load scan job"})
		return
	}

	results, err := h.Store.ListResults(c.Request.Context(), jobID, after)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load results"})
		return
	}
	if results == nil {
		results = []models.DomainResult{}
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":            job.ID,
		"status":            job.Status,
		"total_domains":     job.TotalDomains,
		"completed_domains": job.CompletedDomains,
		"results":           results,
	})
}

// Summary handles GET /api/scan/:id/summary: portfolio averages over the
// successful rows only, so failed rows never skew the aggregate.
func (h *ScanHandler) Summary(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	if _, err := h.Store.GetJob(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "scan job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load scan job"})
		return
	}

	summary, err := h.Store.Summary(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func jobIDParam(c *gin.Context) (uuid.UUID, bool) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid job id")
		return uuid.Nil, false
	}
	return jobID, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
