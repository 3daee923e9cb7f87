package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skinbet-backend/internal/config"
	"skinbet-backend/internal/handlers"
	"skinbet-backend/internal/models"
	"skinbet-backend/internal/services"
	"skinbet-backend/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (*gin.Engine, *testkit.MemStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		CoinflipMinStake:  1,
		CoinflipMaxStake:  10000,
		JackpotMinStake:   1,
		JackpotMaxStake:   10000,
		CoinflipStakeBand: 0.10,
		JackpotMaxPlayers: 20,
		TicketsPerUnit:    1,
		PayoutMaxAttempts: 3,
		PayoutBackoff:     time.Millisecond,
	}

	store := testkit.NewMemStore()
	logger := zap.NewNop()
	pool := services.NewHashPool(store, logger)
	settler := services.NewSettlementEngine(store, &testkit.FakeExecutor{}, logger,
		cfg.PayoutMaxAttempts, cfg.PayoutBackoff)
	stats := services.NewStatsService(store, logger)
	engine := services.NewGameEngine(store, pool, settler, stats,
		services.NopBroadcaster{}, cfg, logger)

	handler := handlers.NewGameHandler(engine, pool, store)

	router := gin.New()
	router.POST("/verify", handler.Verify)
	router.GET("/games/:id", handler.GetGame)
	router.GET("/games/:id/audit", handler.Audit)
	return router, store
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVerifyEndpoint(t *testing.T) {
	router, _ := newRouter(t)

	audit := models.RoundAudit{
		GameID:         "game_1",
		Hash:           models.DigestSecret("s3cr3t"),
		Secret:         "s3cr3t",
		Percentage:     0.42,
		TotalTickets:   6,
		WinTicket:      2,
		WinnerPlayerID: "p2",
		WinnerBegin:    1,
		WinnerEnd:      3,
	}

	w := postJSON(router, "/verify", audit)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)

	// A tampered secret must fail verification, not error.
	audit.Secret = "forged"
	w = postJSON(router, "/verify", audit)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
}

func TestVerifyEndpointRejectsBadPayload(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetGameNotFound(t *testing.T) {
	router, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/games/game_missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetGameHidesSecretBeforeReveal(t *testing.T) {
	router, store := newRouter(t)

	game := &models.Game{
		ID:         "game_sealed",
		Kind:       models.GameKindJackpot,
		Status:     models.GameStatusJoinable,
		Hash:       models.DigestSecret("sealed-secret"),
		Secret:     "sealed-secret",
		Percentage: 0.42,
		WinTicket:  -1,
	}
	require.NoError(t, store.SaveGame(game))

	req := httptest.NewRequest(http.MethodGet, "/games/game_sealed", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sealed-secret")
	assert.Contains(t, w.Body.String(), game.Hash)
}

func TestAuditRequiresFinishedGame(t *testing.T) {
	router, store := newRouter(t)

	game := &models.Game{
		ID:     "game_open",
		Kind:   models.GameKindJackpot,
		Status: models.GameStatusJoinable,
		Secret: "still-sealed",
	}
	require.NoError(t, store.SaveGame(game))

	req := httptest.NewRequest(http.MethodGet, "/games/game_open/audit", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NotEqual(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "still-sealed")
}
