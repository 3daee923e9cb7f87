// Package testkit holds in-memory fakes for exercising the engine without
// external services.
package testkit

import (
	"fmt"
	"sync"
	"time"

	"skinbet-backend/internal/models"
	"skinbet-backend/internal/services"
)

// MemStore is an in-memory services.Store. Entities are copied on the way
// in and out, mirroring a real store's value semantics.
type MemStore struct {
	mu sync.Mutex

	games        map[string]models.Game
	openGames    map[string]struct{}
	history      []string
	deposits     map[string]models.Deposit
	gameDeposits map[string][]string
	commitments  map[string]models.Commitment
	unused       []string
	settlements  map[string]models.SettlementRecord
	players      map[string]models.Player
}

var _ services.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		games:        make(map[string]models.Game),
		openGames:    make(map[string]struct{}),
		deposits:     make(map[string]models.Deposit),
		gameDeposits: make(map[string][]string),
		commitments:  make(map[string]models.Commitment),
		settlements:  make(map[string]models.SettlementRecord),
		players:      make(map[string]models.Player),
	}
}

func (s *MemStore) SaveGame(game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = *game
	s.openGames[game.ID] = struct{}{}
	return nil
}

func (s *MemStore) GetGame(id string) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return nil, services.ErrGameNotFound
	}
	copied := game
	return &copied, nil
}

func (s *MemStore) UpdateGame(game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	game.UpdatedAt = time.Now()
	s.games[game.ID] = *game
	if game.Terminal() {
		delete(s.openGames, game.ID)
		s.history = append(s.history, game.ID)
	}
	return nil
}

func (s *MemStore) ListOpenGames() ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	games := make([]*models.Game, 0, len(s.openGames))
	for id := range s.openGames {
		game := s.games[id]
		copied := game
		games = append(games, &copied)
	}
	return games, nil
}

func (s *MemStore) GetGameHistory(limit int64) ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var games []*models.Game
	for i := len(s.history) - 1; i >= 0 && int64(len(games)) < limit; i-- {
		game := s.games[s.history[i]]
		copied := game
		games = append(games, &copied)
	}
	return games, nil
}

func (s *MemStore) SaveDeposit(deposit *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deposits[deposit.ID] = *deposit
	s.gameDeposits[deposit.GameID] = append(s.gameDeposits[deposit.GameID], deposit.ID)
	return nil
}

func (s *MemStore) GetDeposit(id string) (*models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposit, ok := s.deposits[id]
	if !ok {
		return nil, fmt.Errorf("deposit not found: %s", id)
	}
	copied := deposit
	return &copied, nil
}

func (s *MemStore) UpdateDeposit(deposit *models.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	deposit.UpdatedAt = time.Now()
	s.deposits[deposit.ID] = *deposit
	return nil
}

func (s *MemStore) GetGameDeposits(gameID string) ([]*models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.gameDeposits[gameID]
	deposits := make([]*models.Deposit, 0, len(ids))
	for _, id := range ids {
		deposit := s.deposits[id]
		copied := deposit
		deposits = append(deposits, &copied)
	}
	return deposits, nil
}

func (s *MemStore) AddCommitments(commitments []*models.Commitment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var added int64
	for _, c := range commitments {
		if _, exists := s.commitments[c.Hash]; exists {
			continue
		}
		s.commitments[c.Hash] = *c
		s.unused = append(s.unused, c.Hash)
		added++
	}
	return added, nil
}

func (s *MemStore) ReserveCommitment() (*models.Commitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.unused) == 0 {
		return nil, services.ErrPoolExhausted
	}
	hash := s.unused[len(s.unused)-1]
	s.unused = s.unused[:len(s.unused)-1]

	commitment := s.commitments[hash]
	commitment.Used = true
	s.commitments[hash] = commitment

	copied := commitment
	return &copied, nil
}

func (s *MemStore) UnusedCommitments() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.unused)), nil
}

func (s *MemStore) CreateSettlement(record *models.SettlementRecord) (*models.SettlementRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.settlements[record.GameID]; ok {
		copied := existing
		return &copied, false, nil
	}
	s.settlements[record.GameID] = *record
	copied := *record
	return &copied, true, nil
}

func (s *MemStore) UpdateSettlement(record *models.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.UpdatedAt = time.Now()
	s.settlements[record.GameID] = *record
	return nil
}

func (s *MemStore) GetSettlement(gameID string) (*models.SettlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.settlements[gameID]
	if !ok {
		return nil, nil
	}
	copied := record
	return &copied, nil
}

func (s *MemStore) ListPendingSettlements() ([]*models.SettlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []*models.SettlementRecord
	for _, record := range s.settlements {
		if record.Pending() {
			copied := record
			records = append(records, &copied)
		}
	}
	return records, nil
}

func (s *MemStore) GetPlayer(id string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok {
		return nil, nil
	}
	copied := player
	return &copied, nil
}

func (s *MemStore) SavePlayer(player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	player.UpdatedAt = time.Now()
	s.players[player.ID] = *player
	return nil
}

func (s *MemStore) ListPlayers() ([]*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	players := make([]*models.Player, 0, len(s.players))
	for _, player := range s.players {
		copied := player
		players = append(players, &copied)
	}
	return players, nil
}
