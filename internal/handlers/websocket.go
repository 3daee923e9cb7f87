package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"skinbet-backend/internal/models"
	"skinbet-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes the public round feed to connected clients. It
// implements services.Broadcaster.
type WebSocketHandler struct {
	hub    *WebSocketHub
	logger *zap.Logger
}

type WebSocketHub struct {
	clients    map[*websocket.Conn]string
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	PlayerID string
	Conn     *websocket.Conn
}

type Message struct {
	Type   string      `json:"type"`
	GameID string      `json:"game_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(logger *zap.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[*websocket.Conn]string),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	playerID := c.GetString("player_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		PlayerID: playerID,
		Conn:     conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", zap.Error(err))
			}
			break
		}

		if msg.Type == "PING" {
			conn.WriteJSON(Message{
				Type: "PONG",
				Data: gin.H{"timestamp": time.Now().Unix()},
			})
		}
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.Conn] = client.PlayerID

		case client := <-hub.unregister:
			delete(hub.clients, client.Conn)

		case message := <-hub.broadcast:
			for conn := range hub.clients {
				conn.WriteJSON(message)
			}
		}
	}
}

func (h *WebSocketHandler) GameOpened(game *models.Game) {
	h.hub.broadcast <- &Message{
		Type:   "GAME_OPENED",
		GameID: game.ID,
		Data: gin.H{
			"game":      game,
			"timestamp": time.Now().Unix(),
		},
	}
}

func (h *WebSocketHandler) DepositAccepted(game *models.Game, deposit *models.Deposit) {
	h.hub.broadcast <- &Message{
		Type:   "DEPOSIT_ACCEPTED",
		GameID: game.ID,
		Data: gin.H{
			"deposit":       deposit,
			"total_stake":   game.TotalStake,
			"total_tickets": game.TotalTickets,
			"status":        game.Status,
			"timestamp":     time.Now().Unix(),
		},
	}
}

func (h *WebSocketHandler) GameFull(game *models.Game) {
	h.hub.broadcast <- &Message{
		Type:   "GAME_FULL",
		GameID: game.ID,
		Data: gin.H{
			"status":    game.Status,
			"timestamp": time.Now().Unix(),
		},
	}
}

func (h *WebSocketHandler) GameEnded(game *models.Game, audit models.RoundAudit) {
	h.hub.broadcast <- &Message{
		Type:   "GAME_ENDED",
		GameID: game.ID,
		Data: gin.H{
			"audit":     audit,
			"timestamp": time.Now().Unix(),
		},
	}
}

func (h *WebSocketHandler) GameCanceled(game *models.Game, reason string) {
	h.hub.broadcast <- &Message{
		Type:   "GAME_CANCELED",
		GameID: game.ID,
		Data: gin.H{
			"reason":    reason,
			"timestamp": time.Now().Unix(),
		},
	}
}

var _ services.Broadcaster = (*WebSocketHandler)(nil)
