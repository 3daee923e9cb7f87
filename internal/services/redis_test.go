package services_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"skinbet-backend/internal/config"
	"skinbet-backend/internal/models"
	"skinbet-backend/internal/services"
)

func newRedisService(t *testing.T) *services.RedisService {
	t.Helper()

	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { redisService.Close() })
	return redisService
}

func TestRedisGameRoundTrip(t *testing.T) {
	redisService := newRedisService(t)

	gameID := fmt.Sprintf("game_test_%d", time.Now().UnixNano())
	game := &models.Game{
		ID:         gameID,
		Kind:       models.GameKindJackpot,
		Status:     models.GameStatusJoinable,
		CreatorID:  "player_test",
		Hash:       models.DigestSecret("redis-test-secret"),
		Secret:     "redis-test-secret",
		Percentage: 0.42,
		WinTicket:  -1,
		OpenedAt:   time.Now(),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := redisService.SaveGame(game); err != nil {
		t.Fatalf("Failed to save game: %v", err)
	}

	retrieved, err := redisService.GetGame(gameID)
	if err != nil {
		t.Fatalf("Failed to get game: %v", err)
	}

	// The sealed fields must survive persistence.
	if retrieved.Secret != game.Secret {
		t.Errorf("Expected secret %s, got %s", game.Secret, retrieved.Secret)
	}
	if retrieved.Percentage != game.Percentage {
		t.Errorf("Expected percentage %f, got %f", game.Percentage, retrieved.Percentage)
	}
	if retrieved.Status != models.GameStatusJoinable {
		t.Errorf("Expected status %s, got %s", models.GameStatusJoinable, retrieved.Status)
	}

	open, err := redisService.ListOpenGames()
	if err != nil {
		t.Fatalf("Failed to list open games: %v", err)
	}
	found := false
	for _, g := range open {
		if g.ID == gameID {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected game %s in the open set", gameID)
	}

	// Moving the game to a terminal state removes it from the open set and
	// indexes it in history.
	game.Status = models.GameStatusEnd
	if err := redisService.UpdateGame(game); err != nil {
		t.Fatalf("Failed to update game: %v", err)
	}

	open, err = redisService.ListOpenGames()
	if err != nil {
		t.Fatalf("Failed to list open games: %v", err)
	}
	for _, g := range open {
		if g.ID == gameID {
			t.Errorf("Terminal game %s still listed as open", gameID)
		}
	}

	history, err := redisService.GetGameHistory(10)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	found = false
	for _, g := range history {
		if g.ID == gameID {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected game %s in history", gameID)
	}
}

func TestRedisGetGameNotFound(t *testing.T) {
	redisService := newRedisService(t)

	_, err := redisService.GetGame("game_does_not_exist")
	if err != services.ErrGameNotFound {
		t.Errorf("Expected ErrGameNotFound, got %v", err)
	}
}

func TestRedisDepositOrder(t *testing.T) {
	redisService := newRedisService(t)

	gameID := fmt.Sprintf("game_test_%d", time.Now().UnixNano())
	for i := 0; i < 3; i++ {
		deposit := &models.Deposit{
			ID:           fmt.Sprintf("%s_deposit_%d", gameID, i),
			GameID:       gameID,
			PlayerID:     fmt.Sprintf("player_%d", i),
			Amount:       float64(i + 1),
			TicketsBegin: int64(i),
			TicketsEnd:   int64(i + 1),
			JoinStatus:   models.JoinStatusAccepted,
			CreatedAt:    time.Now(),
		}
		if err := redisService.SaveDeposit(deposit); err != nil {
			t.Fatalf("Failed to save deposit %d: %v", i, err)
		}
	}

	deposits, err := redisService.GetGameDeposits(gameID)
	if err != nil {
		t.Fatalf("Failed to get game deposits: %v", err)
	}
	if len(deposits) != 3 {
		t.Fatalf("Expected 3 deposits, got %d", len(deposits))
	}
	for i, d := range deposits {
		if d.PlayerID != fmt.Sprintf("player_%d", i) {
			t.Errorf("Deposit %d out of acceptance order: got %s", i, d.PlayerID)
		}
	}
}

func TestRedisReserveCommitmentAtomicity(t *testing.T) {
	redisService := newRedisService(t)

	const n = 10
	commitments := make([]*models.Commitment, 0, n)
	for i := 0; i < n; i++ {
		secret := fmt.Sprintf("atomic-test-%d-%d", time.Now().UnixNano(), i)
		commitments = append(commitments, &models.Commitment{
			Hash:       models.DigestSecret(secret),
			Secret:     secret,
			Percentage: 0.5,
			CreatedAt:  time.Now(),
		})
	}

	added, err := redisService.AddCommitments(commitments)
	if err != nil {
		t.Fatalf("Failed to add commitments: %v", err)
	}
	if added != n {
		t.Fatalf("Expected %d commitments added, got %d", n, added)
	}

	// Re-adding must not overwrite or re-index.
	added, err = redisService.AddCommitments(commitments)
	if err != nil {
		t.Fatalf("Failed to re-add commitments: %v", err)
	}
	if added != 0 {
		t.Errorf("Expected 0 commitments re-added, got %d", added)
	}

	var mu sync.Mutex
	seen := make(map[string]int)

	var wg sync.WaitGroup
	for i := 0; i < n*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := redisService.ReserveCommitment()
			if err != nil {
				return
			}
			mu.Lock()
			seen[c.Hash]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for hash, count := range seen {
		if count != 1 {
			t.Errorf("Commitment %s reserved %d times", hash, count)
		}
	}
	reservedOurs := 0
	for _, c := range commitments {
		if seen[c.Hash] > 0 {
			reservedOurs++
		}
	}
	if reservedOurs != n {
		t.Errorf("Expected all %d commitments reserved, got %d", n, reservedOurs)
	}
}

func TestRedisSettlementCreateOnce(t *testing.T) {
	redisService := newRedisService(t)

	gameID := fmt.Sprintf("game_test_%d", time.Now().UnixNano())
	record := &models.SettlementRecord{
		GameID:          gameID,
		WinnerDepositID: "deposit_1",
		WinnerPlayerID:  "winner",
		Amount:          100,
		PayoutStatus:    models.PayoutStatusInitialed,
		CreatedAt:       time.Now(),
	}

	_, created, err := redisService.CreateSettlement(record)
	if err != nil {
		t.Fatalf("Failed to create settlement: %v", err)
	}
	if !created {
		t.Fatal("Expected settlement to be created")
	}

	dup := *record
	dup.Amount = 999
	existing, created, err := redisService.CreateSettlement(&dup)
	if err != nil {
		t.Fatalf("Failed on duplicate create: %v", err)
	}
	if created {
		t.Error("Expected duplicate create to be rejected")
	}
	if existing.Amount != 100 {
		t.Errorf("Expected original amount 100, got %f", existing.Amount)
	}

	pending, err := redisService.ListPendingSettlements()
	if err != nil {
		t.Fatalf("Failed to list pending settlements: %v", err)
	}
	found := false
	for _, r := range pending {
		if r.GameID == gameID {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected settlement %s in the pending set", gameID)
	}

	record.PayoutStatus = models.PayoutStatusAccepted
	record.TradeRef = "trade_1"
	if err := redisService.UpdateSettlement(record); err != nil {
		t.Fatalf("Failed to update settlement: %v", err)
	}

	pending, err = redisService.ListPendingSettlements()
	if err != nil {
		t.Fatalf("Failed to list pending settlements: %v", err)
	}
	for _, r := range pending {
		if r.GameID == gameID {
			t.Errorf("Settled game %s still pending", gameID)
		}
	}
}

func TestRedisRateLimit(t *testing.T) {
	redisService := newRedisService(t)

	playerID := fmt.Sprintf("player_test_%d", time.Now().UnixNano())
	for i := 0; i < 3; i++ {
		allowed, err := redisService.CheckRateLimit(playerID, "join", 3, time.Minute)
		if err != nil {
			t.Fatalf("Failed to check rate limit: %v", err)
		}
		if !allowed {
			t.Errorf("Expected call %d to be allowed", i+1)
		}
	}

	allowed, err := redisService.CheckRateLimit(playerID, "join", 3, time.Minute)
	if err != nil {
		t.Fatalf("Failed to check rate limit: %v", err)
	}
	if allowed {
		t.Error("Expected call over the limit to be denied")
	}
}
