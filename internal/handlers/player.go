package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skinbet-backend/internal/services"
)

type PlayerHandler struct {
	stats *services.StatsService
}

func NewPlayerHandler(stats *services.StatsService) *PlayerHandler {
	return &PlayerHandler{
		stats: stats,
	}
}

func (h *PlayerHandler) GetCurrentPlayer(c *gin.Context) {
	playerID := c.GetString("player_id")

	player, err := h.stats.GetOrCreatePlayer(playerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"player":     player,
		"net_profit": player.NetProfit(),
		"win_rate":   player.WinRate(),
	})
}

type tradeURLRequest struct {
	TradeURL string `json:"trade_url" binding:"required,url"`
}

func (h *PlayerHandler) UpdateTradeURL(c *gin.Context) {
	playerID := c.GetString("player_id")

	var req tradeURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	player, err := h.stats.UpdateTradeURL(playerID, req.TradeURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"player":  player,
	})
}

func (h *PlayerHandler) Ranks(c *gin.Context) {
	kind := c.DefaultQuery("type", "win")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	ranks, err := h.stats.Ranks(kind, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ranks": ranks})
}
