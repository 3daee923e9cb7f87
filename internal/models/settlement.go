package models

import "time"

type PayoutStatus string

const (
	PayoutStatusInitialed PayoutStatus = "initialed"
	PayoutStatusAccepted  PayoutStatus = "accepted"
	PayoutStatusCancelled PayoutStatus = "cancelled"
)

// SettlementRecord tracks the payout of a finished round. At most one exists
// per game, and at most one successful transfer ever happens for it.
type SettlementRecord struct {
	GameID          string `json:"game_id" redis:"game_id"`
	WinnerDepositID string `json:"winner_deposit_id" redis:"winner_deposit_id"`
	WinnerPlayerID  string `json:"winner_player_id" redis:"winner_player_id"`

	// Amount is the full pot, in cents.
	Amount float64 `json:"amount" redis:"amount"`

	PayoutStatus PayoutStatus `json:"payout_status" redis:"payout_status"`
	TradeRef     string       `json:"trade_ref,omitempty" redis:"trade_ref"`
	Attempts     uint64       `json:"attempts" redis:"attempts"`
	LastError    string       `json:"last_error,omitempty" redis:"last_error"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	UpdatedAt time.Time `json:"updated_at" redis:"updated_at"`
}

// Pending reports whether the payout still needs to be driven.
func (r *SettlementRecord) Pending() bool {
	return r.PayoutStatus == PayoutStatusInitialed
}
