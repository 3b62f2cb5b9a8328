package api_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/firefly-kresus-sync/internal/api"
	"github.com/example/firefly-kresus-sync/internal/application/sync"
	"github.com/example/firefly-kresus-sync/internal/domain/ledger"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/storage"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakePending serves a fixed snapshot.
type fakePending struct {
	snap *sync.Snapshot
}

func (f *fakePending) Snapshot() *sync.Snapshot { return f.snap }

func newTestServer(t *testing.T, pending api.PendingSource) (*api.Server, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return api.NewServer(api.DefaultConfig(), repo, pending, logger), repo
}

func get(t *testing.T, server *api.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil)

	rec := get(t, server, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)

	var response api.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
}

func TestServer_PendingEndpoint(t *testing.T) {
	t.Run("returns candidates in date order", func(t *testing.T) {
		snap := &sync.Snapshot{
			CycleID: "cycle-1",
			TakenAt: time.Now(),
			Pending: map[string]ledger.Transaction{
				"fp-late": {
					Date:            time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
					Amount:          30.00,
					Type:            ledger.TypeWithdrawal,
					Description:     "later",
					SourceName:      "Checking",
					DestinationName: ledger.CounterpartyPlaceholder,
				},
				"fp-early": {
					Date:            time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
					Amount:          10.00,
					Type:            ledger.TypeWithdrawal,
					Description:     "earlier",
					SourceName:      "Checking",
					DestinationName: ledger.CounterpartyPlaceholder,
				},
			},
		}
		server, _ := newTestServer(t, &fakePending{snap: snap})

		rec := get(t, server, "/api/v1/pending")

		assert.Equal(t, http.StatusOK, rec.Code)

		var response api.PendingResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "cycle-1", response.CycleID)
		assert.Equal(t, 2, response.Count)
		require.Len(t, response.Candidates, 2)
		assert.Equal(t, "fp-early", response.Candidates[0].Fingerprint)
		assert.Equal(t, "2024-01-03", response.Candidates[0].Date)
		assert.Equal(t, "withdrawal", response.Candidates[0].Type)
		assert.Equal(t, "fp-late", response.Candidates[1].Fingerprint)
	})

	t.Run("empty before the first cycle", func(t *testing.T) {
		server, _ := newTestServer(t, &fakePending{})

		rec := get(t, server, "/api/v1/pending")

		assert.Equal(t, http.StatusOK, rec.Code)

		var response api.PendingResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 0, response.Count)
		assert.NotNil(t, response.Candidates)
	})
}

func TestServer_RunsEndpoints(t *testing.T) {
	t.Run("GET /api/v1/runs returns runs", func(t *testing.T) {
		server, repo := newTestServer(t, nil)
		runID, _ := repo.StartSyncRun("cycle-a")
		_ = repo.CompleteSyncRun(runID, storage.RunCounts{LocalCount: 10, MissingFound: 2})

		rec := get(t, server, "/api/v1/runs")

		assert.Equal(t, http.StatusOK, rec.Code)

		var response api.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Equal(t, 1, response.Count)
		assert.Equal(t, "cycle-a", response.Runs[0].CycleID)
		assert.Equal(t, "completed", response.Runs[0].Status)
	})

	t.Run("GET /api/v1/runs honors limit", func(t *testing.T) {
		server, repo := newTestServer(t, nil)
		_, _ = repo.StartSyncRun("cycle-a")
		_, _ = repo.StartSyncRun("cycle-b")

		rec := get(t, server, "/api/v1/runs?limit=1")

		var response api.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 1, response.Count)
	})

	t.Run("GET /api/v1/runs/:id returns single run", func(t *testing.T) {
		server, repo := newTestServer(t, nil)
		runID, _ := repo.StartSyncRun("cycle-a")

		rec := get(t, server, "/api/v1/runs/1")

		assert.Equal(t, http.StatusOK, rec.Code)

		var response storage.SyncRun
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, runID, response.ID)
		assert.Equal(t, "running", response.Status)
	})

	t.Run("GET /api/v1/runs/:id returns 404 for missing run", func(t *testing.T) {
		server, _ := newTestServer(t, nil)

		rec := get(t, server, "/api/v1/runs/999")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("GET /api/v1/runs/:id rejects non-numeric id", func(t *testing.T) {
		server, _ := newTestServer(t, nil)

		rec := get(t, server, "/api/v1/runs/latest")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_StatsEndpoint(t *testing.T) {
	snap := &sync.Snapshot{
		TakenAt: time.Now(),
		Pending: map[string]ledger.Transaction{
			"fp-1": {Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Amount: 10},
		},
	}
	server, repo := newTestServer(t, &fakePending{snap: snap})

	runID, _ := repo.StartSyncRun("cycle-a")
	_ = repo.CompleteSyncRun(runID, storage.RunCounts{LocalCount: 5})
	_ = repo.RecordCommitted(&storage.CommittedTransaction{Fingerprint: "fp-0", Amount: 12.5, Date: "2024-01-02"})

	rec := get(t, server, "/api/v1/stats")

	assert.Equal(t, http.StatusOK, rec.Code)

	var response api.StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, 1, response.TotalRuns)
	assert.Equal(t, 1, response.TotalCommitted)
	assert.Equal(t, 1, response.PendingCount)
}

func TestServer_OmitsRoutesWithoutBackends(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	server := api.NewServer(api.DefaultConfig(), nil, nil, logger)

	assert.Equal(t, http.StatusNotFound, get(t, server, "/api/v1/runs").Code)
	assert.Equal(t, http.StatusNotFound, get(t, server, "/api/v1/pending").Code)
	assert.Equal(t, http.StatusOK, get(t, server, "/health").Code)
}

func TestServer_CORS(t *testing.T) {
	server, _ := newTestServer(t, nil)

	t.Run("sets CORS headers for allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("handles OPTIONS preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/runs", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "GET")
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
