package models

import "time"

type GameKind string

const (
	GameKindCoinflip GameKind = "coinflip"
	GameKindJackpot  GameKind = "jackpot"
)

func (k GameKind) Valid() bool {
	return k == GameKindCoinflip || k == GameKindJackpot
}

type GameStatus string

const (
	GameStatusInitial  GameStatus = "initial"
	GameStatusJoinable GameStatus = "joinable"
	GameStatusJoining  GameStatus = "joining"
	GameStatusFull     GameStatus = "full"
	GameStatusRunning  GameStatus = "running"
	GameStatusCanceled GameStatus = "canceled"
	GameStatusEnd      GameStatus = "end"
)

// Game is a single wagering round. Secret and Percentage stay sealed until
// the round reaches End; they are only published through the audit payload.
type Game struct {
	ID   string   `json:"id" redis:"id"`
	Kind GameKind `json:"kind" redis:"kind"`

	Hash       string  `json:"hash" redis:"hash"`
	Secret     string  `json:"-" redis:"secret"`
	Percentage float64 `json:"-" redis:"percentage"`

	Status GameStatus `json:"status" redis:"status"`

	CreatorID string `json:"creator_id" redis:"creator_id"`

	TotalStake   float64 `json:"total_stake" redis:"total_stake"`
	TotalTickets int64   `json:"total_tickets" redis:"total_tickets"`

	// WinTicket is -1 until the round is revealed.
	WinTicket       int64  `json:"win_ticket" redis:"win_ticket"`
	WinnerDepositID string `json:"winner_deposit_id,omitempty" redis:"winner_deposit_id"`
	WinnerPlayerID  string `json:"winner_player_id,omitempty" redis:"winner_player_id"`

	CancelReason string `json:"cancel_reason,omitempty" redis:"cancel_reason"`

	OpenedAt  time.Time `json:"opened_at" redis:"opened_at"`
	ClosedAt  time.Time `json:"closed_at,omitempty" redis:"closed_at"`
	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	UpdatedAt time.Time `json:"updated_at" redis:"updated_at"`
}

// Joinable reports whether the round still accepts deposits.
func (g *Game) Joinable() bool {
	return g.Status == GameStatusJoinable || g.Status == GameStatusJoining
}

// Terminal reports whether the round reached a final state.
func (g *Game) Terminal() bool {
	return g.Status == GameStatusEnd || g.Status == GameStatusCanceled
}

// MaxPlayers is the deposit capacity for the round's kind.
func (g *Game) MaxPlayers(jackpotMax int) int {
	if g.Kind == GameKindCoinflip {
		return 2
	}
	return jackpotMax
}

// RoundAudit is the published record of a finished round. Any third party
// can feed it to the fairness verifier.
type RoundAudit struct {
	GameID         string  `json:"game_id"`
	Hash           string  `json:"hash"`
	Secret         string  `json:"secret"`
	Percentage     float64 `json:"percentage"`
	TotalTickets   int64   `json:"total_tickets"`
	WinTicket      int64   `json:"win_ticket"`
	WinnerPlayerID string  `json:"winner_player_id"`
	WinnerBegin    int64   `json:"winner_tickets_begin"`
	WinnerEnd      int64   `json:"winner_tickets_end"`
}
