package services

import "skinbet-backend/internal/models"

// Store is the persistence contract the engine, pool and settlement layers
// depend on. RedisService is the production implementation; tests use the
// in-memory store from internal/testkit.
type Store interface {
	// SaveGame persists a new game and indexes it as open.
	SaveGame(game *models.Game) error
	// GetGame returns ErrGameNotFound for unknown ids.
	GetGame(id string) (*models.Game, error)
	// UpdateGame persists game mutations and moves terminal games from the
	// open index into history.
	UpdateGame(game *models.Game) error
	ListOpenGames() ([]*models.Game, error)
	GetGameHistory(limit int64) ([]*models.Game, error)

	SaveDeposit(deposit *models.Deposit) error
	GetDeposit(id string) (*models.Deposit, error)
	UpdateDeposit(deposit *models.Deposit) error
	// GetGameDeposits returns a game's deposits in acceptance order.
	GetGameDeposits(gameID string) ([]*models.Deposit, error)

	// AddCommitments inserts fresh commitments, never touching existing
	// unused ones. Returns how many were actually added.
	AddCommitments(commitments []*models.Commitment) (int64, error)
	// ReserveCommitment atomically pops one unused commitment and marks it
	// used. Returns ErrPoolExhausted when none remain.
	ReserveCommitment() (*models.Commitment, error)
	UnusedCommitments() (int64, error)

	// CreateSettlement creates the record if absent. When a record already
	// exists it is returned unchanged with created=false.
	CreateSettlement(record *models.SettlementRecord) (*models.SettlementRecord, bool, error)
	UpdateSettlement(record *models.SettlementRecord) error
	GetSettlement(gameID string) (*models.SettlementRecord, error)
	// ListPendingSettlements returns records whose payout is still initialed.
	ListPendingSettlements() ([]*models.SettlementRecord, error)

	// GetPlayer returns (nil, nil) for unknown players.
	GetPlayer(id string) (*models.Player, error)
	SavePlayer(player *models.Player) error
	ListPlayers() ([]*models.Player, error)
}
