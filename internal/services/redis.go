package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skinbet-backend/internal/config"
	"skinbet-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{
		client: client,
		ctx:    ctx,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// storedGame re-exposes the fields the API serializer hides so the secret
// and percentage survive persistence.
type storedGame struct {
	models.Game
	Secret     string  `json:"secret"`
	Percentage float64 `json:"percentage"`
}

func marshalGame(game *models.Game) ([]byte, error) {
	return json.Marshal(storedGame{
		Game:       *game,
		Secret:     game.Secret,
		Percentage: game.Percentage,
	})
}

func unmarshalGame(data []byte) (*models.Game, error) {
	var sg storedGame
	if err := json.Unmarshal(data, &sg); err != nil {
		return nil, err
	}
	game := sg.Game
	game.Secret = sg.Secret
	game.Percentage = sg.Percentage
	return &game, nil
}

func (s *RedisService) SaveGame(game *models.Game) error {
	data, err := marshalGame(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %v", err)
	}

	key := fmt.Sprintf(KeyGame, game.ID)
	if err := s.client.Set(s.ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save game: %v", err)
	}

	return s.client.SAdd(s.ctx, KeyOpenGames, game.ID).Err()
}

func (s *RedisService) GetGame(id string) (*models.Game, error) {
	key := fmt.Sprintf(KeyGame, id)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %v", err)
	}

	return unmarshalGame([]byte(data))
}

func (s *RedisService) UpdateGame(game *models.Game) error {
	game.UpdatedAt = time.Now()

	data, err := marshalGame(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %v", err)
	}

	key := fmt.Sprintf(KeyGame, game.ID)
	if err := s.client.Set(s.ctx, key, data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("failed to update game: %v", err)
	}

	if game.Terminal() {
		pipe := s.client.Pipeline()
		pipe.SRem(s.ctx, KeyOpenGames, game.ID)
		pipe.ZAdd(s.ctx, KeyGameHistory, redis.Z{
			Score:  float64(time.Now().Unix()),
			Member: game.ID,
		})
		pipe.ZRemRangeByRank(s.ctx, KeyGameHistory, 0, -(HistoryKeep + 1))
		pipe.Expire(s.ctx, key, TTLFinishedGame)
		pipe.Expire(s.ctx, fmt.Sprintf(KeyGameDeposits, game.ID), TTLFinishedGame)
		if _, err := pipe.Exec(s.ctx); err != nil {
			return fmt.Errorf("failed to index terminal game: %v", err)
		}
	}

	return nil
}

func (s *RedisService) ListOpenGames() ([]*models.Game, error) {
	ids, err := s.client.SMembers(s.ctx, KeyOpenGames).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list open games: %v", err)
	}
	return s.bulkGetGames(ids)
}

func (s *RedisService) GetGameHistory(limit int64) ([]*models.Game, error) {
	if limit <= 0 || limit > HistoryKeep {
		limit = 50
	}

	ids, err := s.client.ZRevRange(s.ctx, KeyGameHistory, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get game history: %v", err)
	}
	return s.bulkGetGames(ids)
}

func (s *RedisService) bulkGetGames(ids []string) ([]*models.Game, error) {
	if len(ids) == 0 {
		return []*models.Game{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(s.ctx, fmt.Sprintf(KeyGame, id))
	}

	_, err := pipe.Exec(s.ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %v", err)
	}

	var games []*models.Game
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		game, err := unmarshalGame([]byte(data))
		if err != nil {
			continue
		}
		games = append(games, game)
	}

	return games, nil
}

func (s *RedisService) SaveDeposit(deposit *models.Deposit) error {
	data, err := json.Marshal(deposit)
	if err != nil {
		return fmt.Errorf("failed to marshal deposit: %v", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(s.ctx, fmt.Sprintf(KeyDeposit, deposit.ID), data, 0)
	// RPush keeps deposits in acceptance order.
	pipe.RPush(s.ctx, fmt.Sprintf(KeyGameDeposits, deposit.GameID), deposit.ID)
	if _, err := pipe.Exec(s.ctx); err != nil {
		return fmt.Errorf("failed to save deposit: %v", err)
	}

	return nil
}

func (s *RedisService) GetDeposit(id string) (*models.Deposit, error) {
	data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyDeposit, id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("deposit not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit: %v", err)
	}

	var deposit models.Deposit
	if err := json.Unmarshal([]byte(data), &deposit); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deposit: %v", err)
	}
	return &deposit, nil
}

func (s *RedisService) UpdateDeposit(deposit *models.Deposit) error {
	deposit.UpdatedAt = time.Now()

	data, err := json.Marshal(deposit)
	if err != nil {
		return fmt.Errorf("failed to marshal deposit: %v", err)
	}
	return s.client.Set(s.ctx, fmt.Sprintf(KeyDeposit, deposit.ID), data, redis.KeepTTL).Err()
}

func (s *RedisService) GetGameDeposits(gameID string) ([]*models.Deposit, error) {
	ids, err := s.client.LRange(s.ctx, fmt.Sprintf(KeyGameDeposits, gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list game deposits: %v", err)
	}
	if len(ids) == 0 {
		return []*models.Deposit{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(s.ctx, fmt.Sprintf(KeyDeposit, id))
	}

	_, err = pipe.Exec(s.ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %v", err)
	}

	var deposits []*models.Deposit
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		var deposit models.Deposit
		if err := json.Unmarshal([]byte(data), &deposit); err != nil {
			continue
		}
		deposits = append(deposits, &deposit)
	}

	return deposits, nil
}

// storedCommitment keeps the sealed fields in persistence.
type storedCommitment struct {
	models.Commitment
	Secret     string  `json:"secret"`
	Percentage float64 `json:"percentage"`
}

func unmarshalCommitment(data []byte) (*models.Commitment, error) {
	var sc storedCommitment
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	commitment := sc.Commitment
	commitment.Secret = sc.Secret
	commitment.Percentage = sc.Percentage
	return &commitment, nil
}

func (s *RedisService) AddCommitments(commitments []*models.Commitment) (int64, error) {
	var added int64
	for _, c := range commitments {
		data, err := json.Marshal(storedCommitment{
			Commitment: *c,
			Secret:     c.Secret,
			Percentage: c.Percentage,
		})
		if err != nil {
			return added, fmt.Errorf("failed to marshal commitment: %v", err)
		}

		// SetNX so an existing commitment (used or not) is never overwritten.
		ok, err := s.client.SetNX(s.ctx, fmt.Sprintf(KeyCommitment, c.Hash), data, 0).Result()
		if err != nil {
			return added, fmt.Errorf("failed to store commitment: %v", err)
		}
		if !ok {
			continue
		}
		if err := s.client.SAdd(s.ctx, KeyUnusedHashes, c.Hash).Err(); err != nil {
			return added, fmt.Errorf("failed to index commitment: %v", err)
		}
		added++
	}
	return added, nil
}

// reserveCommitmentScript pops one unused hash, flips its used flag and
// moves it to the used set in a single server-side step, so two concurrent
// game opens can never draw the same commitment.
var reserveCommitmentScript = redis.NewScript(`
	local hash = redis.call("SPOP", KEYS[1])
	if not hash then
		return false
	end

	local key = "commitment:" .. hash
	local data = redis.call("GET", key)
	if not data then
		return redis.error_reply("commitment record missing: " .. hash)
	end

	local c = cjson.decode(data)
	c.used = true
	local updated = cjson.encode(c)
	redis.call("SET", key, updated)
	redis.call("SADD", KEYS[2], hash)

	return updated
`)

func (s *RedisService) ReserveCommitment() (*models.Commitment, error) {
	res, err := reserveCommitmentScript.Run(s.ctx, s.client,
		[]string{KeyUnusedHashes, KeyUsedHashes}).Result()
	if err == redis.Nil {
		return nil, ErrPoolExhausted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reserve commitment: %v", err)
	}

	data, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected reserve result type %T", res)
	}
	return unmarshalCommitment([]byte(data))
}

func (s *RedisService) UnusedCommitments() (int64, error) {
	count, err := s.client.SCard(s.ctx, KeyUnusedHashes).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count commitments: %v", err)
	}
	return count, nil
}

func (s *RedisService) CreateSettlement(record *models.SettlementRecord) (*models.SettlementRecord, bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal settlement: %v", err)
	}

	key := fmt.Sprintf(KeySettlement, record.GameID)
	created, err := s.client.SetNX(s.ctx, key, data, 0).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to create settlement: %v", err)
	}

	if !created {
		existing, err := s.GetSettlement(record.GameID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	if err := s.client.SAdd(s.ctx, KeyPendingSettlements, record.GameID).Err(); err != nil {
		return nil, false, fmt.Errorf("failed to index settlement: %v", err)
	}
	return record, true, nil
}

func (s *RedisService) UpdateSettlement(record *models.SettlementRecord) error {
	record.UpdatedAt = time.Now()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement: %v", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(s.ctx, fmt.Sprintf(KeySettlement, record.GameID), data, 0)
	if !record.Pending() {
		pipe.SRem(s.ctx, KeyPendingSettlements, record.GameID)
	}
	if _, err := pipe.Exec(s.ctx); err != nil {
		return fmt.Errorf("failed to update settlement: %v", err)
	}
	return nil
}

func (s *RedisService) GetSettlement(gameID string) (*models.SettlementRecord, error) {
	data, err := s.client.Get(s.ctx, fmt.Sprintf(KeySettlement, gameID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %v", err)
	}

	var record models.SettlementRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settlement: %v", err)
	}
	return &record, nil
}

func (s *RedisService) ListPendingSettlements() ([]*models.SettlementRecord, error) {
	ids, err := s.client.SMembers(s.ctx, KeyPendingSettlements).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending settlements: %v", err)
	}

	var records []*models.SettlementRecord
	for _, id := range ids {
		record, err := s.GetSettlement(id)
		if err != nil || record == nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *RedisService) GetPlayer(id string) (*models.Player, error) {
	data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyPlayer, id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %v", err)
	}

	var player models.Player
	if err := json.Unmarshal([]byte(data), &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %v", err)
	}
	return &player, nil
}

func (s *RedisService) SavePlayer(player *models.Player) error {
	player.UpdatedAt = time.Now()

	data, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %v", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(s.ctx, fmt.Sprintf(KeyPlayer, player.ID), data, 0)
	pipe.SAdd(s.ctx, KeyPlayers, player.ID)
	if _, err := pipe.Exec(s.ctx); err != nil {
		return fmt.Errorf("failed to save player: %v", err)
	}
	return nil
}

func (s *RedisService) ListPlayers() ([]*models.Player, error) {
	ids, err := s.client.SMembers(s.ctx, KeyPlayers).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %v", err)
	}

	var players []*models.Player
	for _, id := range ids {
		player, err := s.GetPlayer(id)
		if err != nil || player == nil {
			continue
		}
		players = append(players, player)
	}
	return players, nil
}

func (s *RedisService) CheckRateLimit(playerID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}
	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}
	return count <= int64(limit), nil
}
