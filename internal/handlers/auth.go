package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skinbet-backend/internal/models"
	"skinbet-backend/internal/services"
)

// AuthHandler issues session tokens. A real deployment fronts this with
// Steam OpenID; here the boundary is a plain login that mints a JWT for a
// player id.
type AuthHandler struct {
	jwtService *services.JWTService
	stats      *services.StatsService
}

func NewAuthHandler(jwtService *services.JWTService, stats *services.StatsService) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
		stats:      stats,
	}
}

type loginRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if req.PlayerID == "" {
		req.PlayerID = models.GeneratePlayerID()
	}

	player, err := h.stats.GetOrCreatePlayer(req.PlayerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if req.Name != "" && player.Name != req.Name {
		if player, err = h.stats.UpdateName(player.ID, req.Name); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	token, err := h.jwtService.GenerateToken(player.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"player": player,
	})
}
