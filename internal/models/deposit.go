package models

import "time"

type JoinStatus string

const (
	JoinStatusInitialed JoinStatus = "initialed"
	JoinStatusAccepted  JoinStatus = "accepted"
	JoinStatusCancelled JoinStatus = "cancelled"
)

// Deposit is one player's stake in a round. The ticket range is assigned
// atomically at acceptance and never changes afterwards.
type Deposit struct {
	ID       string `json:"id" redis:"id"`
	GameID   string `json:"game_id" redis:"game_id"`
	PlayerID string `json:"player_id" redis:"player_id"`

	Amount float64 `json:"amount" redis:"amount"`

	// Half-open range [TicketsBegin, TicketsEnd); -1 until accepted.
	TicketsBegin int64 `json:"tickets_begin" redis:"tickets_begin"`
	TicketsEnd   int64 `json:"tickets_end" redis:"tickets_end"`

	JoinStatus JoinStatus `json:"join_status" redis:"join_status"`
	IsCreator  bool       `json:"is_creator" redis:"is_creator"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	UpdatedAt time.Time `json:"updated_at" redis:"updated_at"`
}

// Tickets is the number of tickets this deposit holds.
func (d *Deposit) Tickets() int64 {
	if d.TicketsBegin < 0 || d.TicketsEnd < 0 {
		return 0
	}
	return d.TicketsEnd - d.TicketsBegin
}

// Contains reports whether the deposit's range holds the given ticket.
func (d *Deposit) Contains(ticket int64) bool {
	return ticket >= d.TicketsBegin && ticket < d.TicketsEnd
}
