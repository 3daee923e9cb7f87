package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skinbet-backend/internal/models"
	"skinbet-backend/internal/services"
)

type GameHandler struct {
	engine *services.GameEngine
	pool   *services.HashPool
	store  services.Store
}

func NewGameHandler(engine *services.GameEngine, pool *services.HashPool, store services.Store) *GameHandler {
	return &GameHandler{
		engine: engine,
		pool:   pool,
		store:  store,
	}
}

type openGameRequest struct {
	Kind   models.GameKind `json:"kind" binding:"required"`
	Amount float64         `json:"amount" binding:"required,gt=0"`
}

func (h *GameHandler) OpenGame(c *gin.Context) {
	playerID := c.GetString("player_id")

	var req openGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	game, deposit, err := h.engine.OpenGame(req.Kind, playerID, req.Amount)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game":    game,
		"deposit": deposit,
	})
}

type joinGameRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

func (h *GameHandler) JoinGame(c *gin.Context) {
	playerID := c.GetString("player_id")
	gameID := c.Param("id")

	var req joinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	deposit, err := h.engine.JoinGame(gameID, playerID, req.Amount)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deposit": deposit,
	})
}

func (h *GameHandler) CloseGame(c *gin.Context) {
	gameID := c.Param("id")

	game, err := h.engine.CloseAndReveal(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game":    game,
	})
}

type cancelGameRequest struct {
	Reason string `json:"reason"`
}

func (h *GameHandler) CancelGame(c *gin.Context) {
	gameID := c.Param("id")

	var req cancelGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Reason = "cancelled by operator"
	}

	if err := h.engine.CancelGame(gameID, req.Reason); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *GameHandler) GetGame(c *gin.Context) {
	gameID := c.Param("id")

	game, err := h.store.GetGame(gameID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	deposits, err := h.store.GetGameDeposits(gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game":     game,
		"deposits": deposits,
	})
}

func (h *GameHandler) ListOpenGames(c *gin.Context) {
	games, err := h.store.ListOpenGames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": games})
}

func (h *GameHandler) History(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	games, err := h.store.GetGameHistory(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": games})
}

// Audit publishes the round record for independent verification. Finished
// rounds only; the secret stays sealed before that.
func (h *GameHandler) Audit(c *gin.Context) {
	gameID := c.Param("id")

	audit, err := h.engine.Audit(gameID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, audit)
}

// Verify recomputes a round outcome from caller-supplied data. Public and
// stateless, so third parties can audit rounds without trusting us.
func (h *GameHandler) Verify(c *gin.Context) {
	var audit models.RoundAudit
	if err := c.ShouldBindJSON(&audit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": services.VerifyRound(audit)})
}

type refillRequest struct {
	Count int `json:"count" binding:"required,gt=0"`
}

func (h *GameHandler) RefillHashes(c *gin.Context) {
	var req refillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	added, err := h.pool.GenerateBatch(req.Count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	unused, _ := h.pool.Unused()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"added":   added,
		"unused":  unused,
	})
}

// statusForError maps the service error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrStakeOutOfRange),
		errors.Is(err, services.ErrDuplicateJoin):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrGameNotJoinable),
		errors.Is(err, services.ErrGameFull),
		errors.Is(err, services.ErrGameClosed):
		return http.StatusConflict
	case errors.Is(err, services.ErrPoolExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrTicketRangeCorruption):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
