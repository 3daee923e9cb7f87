package services

import (
	"sort"
	"time"

	"skinbet-backend/internal/models"

	"go.uber.org/zap"
)

// StatsService keeps per-player aggregates and builds the leaderboard.
// Aggregates are written once per finished round; rankings are a pure sort
// over a materialized snapshot, never incremental state.
type StatsService struct {
	store  Store
	logger *zap.Logger
}

func NewStatsService(store Store, logger *zap.Logger) *StatsService {
	return &StatsService{
		store:  store,
		logger: logger,
	}
}

// GetOrCreatePlayer loads a profile, creating a blank one on first sight.
func (ss *StatsService) GetOrCreatePlayer(playerID string) (*models.Player, error) {
	player, err := ss.store.GetPlayer(playerID)
	if err != nil {
		return nil, err
	}
	if player != nil {
		return player, nil
	}

	player = &models.Player{
		ID:        playerID,
		CreatedAt: time.Now(),
	}
	if err := ss.store.SavePlayer(player); err != nil {
		return nil, err
	}
	return player, nil
}

// RecordRoundEnd folds a finished round into each participant's
// aggregates. Cancelled rounds never reach here.
func (ss *StatsService) RecordRoundEnd(game *models.Game, deposits []*models.Deposit, winnerPlayerID string) {
	wagered := make(map[string]float64)
	for _, d := range deposits {
		if d.JoinStatus == models.JoinStatusAccepted {
			wagered[d.PlayerID] += d.Amount
		}
	}

	for playerID, amount := range wagered {
		player, err := ss.GetOrCreatePlayer(playerID)
		if err != nil {
			ss.logger.Error("failed to load player for stats",
				zap.String("player_id", playerID), zap.Error(err))
			continue
		}

		player.GamesPlayed++
		player.TotalWagered += amount
		if playerID == winnerPlayerID {
			player.GamesWon++
			player.TotalWon += game.TotalStake
		}

		if err := ss.store.SavePlayer(player); err != nil {
			ss.logger.Error("failed to save player stats",
				zap.String("player_id", playerID), zap.Error(err))
		}
	}
}

// Ranks returns the top winners (positive income) or losers (negative
// income), at most limit entries.
func (ss *StatsService) Ranks(kind string, limit int) ([]models.RankEntry, error) {
	players, err := ss.store.ListPlayers()
	if err != nil {
		return nil, err
	}

	entries := make([]models.RankEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, models.RankEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Income:   p.NetProfit(),
			WinRate:  p.WinRate(),
		})
	}

	switch kind {
	case "lose":
		filtered := entries[:0]
		for _, e := range entries {
			if e.Income < 0 {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Income != entries[j].Income {
				return entries[i].Income < entries[j].Income
			}
			return entries[i].WinRate < entries[j].WinRate
		})
	default: // "win"
		filtered := entries[:0]
		for _, e := range entries {
			if e.Income > 0 {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Income != entries[j].Income {
				return entries[i].Income > entries[j].Income
			}
			return entries[i].WinRate > entries[j].WinRate
		})
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// UpdateName stores the display name shown on the leaderboard.
func (ss *StatsService) UpdateName(playerID, name string) (*models.Player, error) {
	player, err := ss.GetOrCreatePlayer(playerID)
	if err != nil {
		return nil, err
	}
	player.Name = name
	if err := ss.store.SavePlayer(player); err != nil {
		return nil, err
	}
	return player, nil
}

// UpdateTradeURL stores the trade URL the bot pays out to.
func (ss *StatsService) UpdateTradeURL(playerID, tradeURL string) (*models.Player, error) {
	player, err := ss.GetOrCreatePlayer(playerID)
	if err != nil {
		return nil, err
	}
	player.TradeURL = tradeURL
	if err := ss.store.SavePlayer(player); err != nil {
		return nil, err
	}
	return player, nil
}
