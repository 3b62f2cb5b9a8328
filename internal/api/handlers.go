package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/firefly-kresus-sync/internal/infrastructure/storage"
)

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status string `json:"status"`
}

// CandidateResponse is one pending discrepancy.
type CandidateResponse struct {
	Fingerprint string  `json:"fingerprint"`
	Date        string  `json:"date"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
}

// PendingResponse is the pending-discrepancy list of the latest cycle.
type PendingResponse struct {
	CycleID    string              `json:"cycle_id,omitempty"`
	TakenAt    string              `json:"taken_at,omitempty"`
	Count      int                 `json:"count"`
	Candidates []CandidateResponse `json:"candidates"`
}

// RunListResponse is the run-history page.
type RunListResponse struct {
	Runs  []storage.SyncRun `json:"runs"`
	Count int               `json:"count"`
}

// StatsResponse is the aggregate statistics payload.
type StatsResponse struct {
	storage.Stats
	PendingCount int `json:"pending_count"`
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) getPending(c *gin.Context) {
	snap := s.pending.Snapshot()
	if snap == nil {
		c.JSON(http.StatusOK, PendingResponse{Candidates: []CandidateResponse{}})
		return
	}

	response := PendingResponse{
		CycleID:    snap.CycleID,
		TakenAt:    snap.TakenAt.Format(time.RFC3339),
		Count:      len(snap.Pending),
		Candidates: make([]CandidateResponse, 0, len(snap.Pending)),
	}
	for _, fp := range snap.Fingerprints() {
		tx := snap.Pending[fp]
		response.Candidates = append(response.Candidates, CandidateResponse{
			Fingerprint: fp,
			Date:        tx.DateString(),
			Amount:      tx.Amount,
			Type:        string(tx.Type),
			Description: tx.Description,
			Source:      tx.SourceName,
			Destination: tx.DestinationName,
		})
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) getRuns(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, _ := strconv.Atoi(limitStr)
	if limit <= 0 {
		limit = 20
	}

	runs, err := s.repo.ListSyncRuns(limit)
	if err != nil {
		s.logger.Error("Failed to list sync runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs"})
		return
	}

	c.JSON(http.StatusOK, RunListResponse{Runs: runs, Count: len(runs)})
}

func (s *Server) getRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run id"})
		return
	}

	run, err := s.repo.GetSyncRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.repo.GetStats()
	if err != nil {
		s.logger.Error("Failed to fetch stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	response := StatsResponse{Stats: *stats}
	if s.pending != nil {
		if snap := s.pending.Snapshot(); snap != nil {
			response.PendingCount = len(snap.Pending)
		}
	}

	c.JSON(http.StatusOK, response)
}
