package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BotExecutor talks to the external trade bot over HTTP. The bot owns the
// trading-platform session; this side only requests transfers and reads
// back a trade reference.
type BotExecutor struct {
	baseURL string
	client  *http.Client
}

func NewBotExecutor(baseURL string, timeout time.Duration) *BotExecutor {
	return &BotExecutor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type transferRequest struct {
	PlayerID string  `json:"player_id"`
	Amount   float64 `json:"amount"`
	GameID   string  `json:"game_id"`
}

type transferResponse struct {
	TradeRef string `json:"trade_ref"`
	Error    string `json:"error,omitempty"`
}

func (b *BotExecutor) TransferPot(ctx context.Context, playerID string, amount float64, gameID string) (string, error) {
	body, err := json.Marshal(transferRequest{
		PlayerID: playerID,
		Amount:   amount,
		GameID:   gameID,
	})
	if err != nil {
		return "", &TradeError{Msg: fmt.Sprintf("marshal transfer request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return "", &TradeError{Msg: fmt.Sprintf("build transfer request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		// Network errors are worth retrying.
		return "", &TradeError{Transient: true, Msg: fmt.Sprintf("trade bot unreachable: %v", err)}
	}
	defer resp.Body.Close()

	var out transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TradeError{Transient: true, Msg: fmt.Sprintf("decode trade bot response: %v", err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return out.TradeRef, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", &TradeError{Transient: true, Msg: fmt.Sprintf("trade bot error %d: %s", resp.StatusCode, out.Error)}
	default:
		return "", &TradeError{Msg: fmt.Sprintf("trade rejected %d: %s", resp.StatusCode, out.Error)}
	}
}
