package models

import "time"

// Player is a participant profile. TradeURL is where the trade bot sends
// winnings; without one the player cannot be paid out automatically.
type Player struct {
	ID       string `json:"id" redis:"id"`
	Name     string `json:"name" redis:"name"`
	TradeURL string `json:"trade_url" redis:"trade_url"`

	GamesPlayed  int64   `json:"games_played" redis:"games_played"`
	GamesWon     int64   `json:"games_won" redis:"games_won"`
	TotalWagered float64 `json:"total_wagered" redis:"total_wagered"`
	TotalWon     float64 `json:"total_won" redis:"total_won"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	UpdatedAt time.Time `json:"updated_at" redis:"updated_at"`
}

// NetProfit is winnings minus wagers over the player's lifetime.
func (p *Player) NetProfit() float64 {
	return p.TotalWon - p.TotalWagered
}

// WinRate is the fraction of finished games the player won.
func (p *Player) WinRate() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.GamesWon) / float64(p.GamesPlayed)
}

// RankEntry is one row of the win/loss leaderboard.
type RankEntry struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Income   float64 `json:"income"`
	WinRate  float64 `json:"win_rate"`
}
