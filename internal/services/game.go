package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"skinbet-backend/internal/config"
	"skinbet-backend/internal/models"

	"go.uber.org/zap"
)

// GameEngine owns round lifecycles and deposit acceptance. Every state
// transition and deposit for a given game runs under that game's mutex;
// different games proceed in parallel. Payouts never run under the lock.
type GameEngine struct {
	store       Store
	pool        *HashPool
	settler     *SettlementEngine
	stats       *StatsService
	broadcaster Broadcaster
	cfg         *config.Config
	logger      *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGameEngine(store Store, pool *HashPool, settler *SettlementEngine, stats *StatsService, broadcaster Broadcaster, cfg *config.Config, logger *zap.Logger) *GameEngine {
	return &GameEngine{
		store:       store,
		pool:        pool,
		settler:     settler,
		stats:       stats,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (ge *GameEngine) gameLock(gameID string) *sync.Mutex {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	lock, ok := ge.locks[gameID]
	if !ok {
		lock = &sync.Mutex{}
		ge.locks[gameID] = lock
	}
	return lock
}

func (ge *GameEngine) dropLock(gameID string) {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	delete(ge.locks, gameID)
}

// OpenGame reserves a commitment, opens a round seeded with its hash and
// accepts the creator's opening deposit.
func (ge *GameEngine) OpenGame(kind models.GameKind, creatorID string, stake float64) (*models.Game, *models.Deposit, error) {
	if !kind.Valid() {
		return nil, nil, fmt.Errorf("invalid game kind: %s", kind)
	}
	if err := ge.checkStake(kind, stake); err != nil {
		return nil, nil, err
	}

	commitment, err := ge.pool.Reserve()
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	game := &models.Game{
		ID:        models.GenerateGameID(),
		Kind:      kind,
		Status:    models.GameStatusInitial,
		CreatorID: creatorID,
		WinTicket: -1,
		OpenedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// open(): copy the commitment's triple; only the hash is ever shown
	// before reveal.
	game.Hash = commitment.Hash
	game.Secret = commitment.Secret
	game.Percentage = commitment.Percentage
	game.Status = models.GameStatusJoinable

	if err := ge.store.SaveGame(game); err != nil {
		return nil, nil, err
	}

	deposit, err := ge.acceptDeposit(game.ID, creatorID, stake, true)
	if err != nil {
		return nil, nil, err
	}

	ge.logger.Info("game opened",
		zap.String("game_id", game.ID),
		zap.String("kind", string(kind)),
		zap.String("hash", game.Hash))
	ge.broadcaster.GameOpened(game)

	return game, deposit, nil
}

// JoinGame accepts a deposit into a joinable round.
func (ge *GameEngine) JoinGame(gameID, playerID string, stake float64) (*models.Deposit, error) {
	return ge.acceptDeposit(gameID, playerID, stake, false)
}

// acceptDeposit performs the atomic ticket-range assignment. Range
// assignment and totalTickets increment happen under the game lock and are
// persisted before the lock is released, so concurrent joins can never
// receive overlapping ranges.
func (ge *GameEngine) acceptDeposit(gameID, playerID string, stake float64, isCreator bool) (*models.Deposit, error) {
	lock := ge.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, err := ge.store.GetGame(gameID)
	if err != nil {
		return nil, err
	}

	if game.Terminal() || game.Status == models.GameStatusRunning {
		return nil, ErrGameClosed
	}
	if game.Status == models.GameStatusFull {
		return nil, ErrGameFull
	}
	if !game.Joinable() {
		return nil, ErrGameNotJoinable
	}

	if err := ge.checkStake(game.Kind, stake); err != nil {
		return nil, err
	}

	deposits, err := ge.store.GetGameDeposits(gameID)
	if err != nil {
		return nil, err
	}

	if err := ge.checkJoinRules(game, deposits, playerID, stake, isCreator); err != nil {
		return nil, err
	}

	tickets := StakeTickets(stake, ge.cfg.TicketsPerUnit)
	if tickets <= 0 {
		return nil, ErrStakeOutOfRange
	}

	now := time.Now()
	deposit := &models.Deposit{
		ID:           models.GenerateDepositID(),
		GameID:       gameID,
		PlayerID:     playerID,
		Amount:       stake,
		TicketsBegin: game.TotalTickets,
		TicketsEnd:   game.TotalTickets + tickets,
		JoinStatus:   models.JoinStatusAccepted,
		IsCreator:    isCreator,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	game.TotalTickets += tickets
	game.TotalStake += stake

	players := distinctPlayers(deposits)
	if _, ok := players[playerID]; !ok {
		players[playerID] = struct{}{}
	}
	if len(players) >= game.MaxPlayers(ge.cfg.JackpotMaxPlayers) {
		game.Status = models.GameStatusFull
	} else if !isCreator {
		game.Status = models.GameStatusJoining
	}

	if err := ge.store.SaveDeposit(deposit); err != nil {
		return nil, err
	}
	if err := ge.store.UpdateGame(game); err != nil {
		return nil, err
	}

	ge.logger.Info("deposit accepted",
		zap.String("game_id", gameID),
		zap.String("deposit_id", deposit.ID),
		zap.String("player_id", playerID),
		zap.Float64("amount", stake),
		zap.Int64("tickets_begin", deposit.TicketsBegin),
		zap.Int64("tickets_end", deposit.TicketsEnd))

	ge.broadcaster.DepositAccepted(game, deposit)
	if game.Status == models.GameStatusFull {
		ge.broadcaster.GameFull(game)
	}

	return deposit, nil
}

func (ge *GameEngine) checkStake(kind models.GameKind, stake float64) error {
	min, max := ge.cfg.JackpotMinStake, ge.cfg.JackpotMaxStake
	if kind == models.GameKindCoinflip {
		min, max = ge.cfg.CoinflipMinStake, ge.cfg.CoinflipMaxStake
	}
	if stake < min || stake > max {
		return ErrStakeOutOfRange
	}
	return nil
}

func (ge *GameEngine) checkJoinRules(game *models.Game, deposits []*models.Deposit, playerID string, stake float64, isCreator bool) error {
	if isCreator {
		return nil
	}

	switch game.Kind {
	case models.GameKindCoinflip:
		for _, d := range deposits {
			if d.JoinStatus == models.JoinStatusAccepted && d.PlayerID == playerID {
				return ErrDuplicateJoin
			}
		}
		// Joiner must roughly match the creator's stake.
		band := ge.cfg.CoinflipStakeBand
		creatorStake := game.TotalStake
		if creatorStake > 0 && (stake < creatorStake*(1-band) || stake > creatorStake*(1+band)) {
			return ErrStakeOutOfRange
		}
	case models.GameKindJackpot:
		var aggregate float64
		for _, d := range deposits {
			if d.JoinStatus == models.JoinStatusAccepted && d.PlayerID == playerID {
				aggregate += d.Amount
			}
		}
		if aggregate+stake > ge.cfg.JackpotMaxStake {
			return ErrStakeOutOfRange
		}
	}
	return nil
}

func distinctPlayers(deposits []*models.Deposit) map[string]struct{} {
	players := make(map[string]struct{})
	for _, d := range deposits {
		if d.JoinStatus == models.JoinStatusAccepted {
			players[d.PlayerID] = struct{}{}
		}
	}
	return players
}

// CloseAndReveal runs the round: Full (or a multi-player Joining round hit
// by a timeout trigger) moves through Running to End, the secret is
// disclosed, the winning ticket computed and the settlement record created.
// The actual payout runs after the game lock is released.
func (ge *GameEngine) CloseAndReveal(ctx context.Context, gameID string) (*models.Game, error) {
	lock := ge.gameLock(gameID)
	lock.Lock()

	game, err := ge.store.GetGame(gameID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	switch game.Status {
	case models.GameStatusFull, models.GameStatusRunning:
		// start() already allowed
	case models.GameStatusJoining:
		// timeout trigger: a jackpot may run before capacity is reached,
		// but never with a single participant.
	default:
		lock.Unlock()
		if game.Terminal() {
			return nil, ErrGameClosed
		}
		return nil, ErrGameNotJoinable
	}

	deposits, err := ge.store.GetGameDeposits(gameID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if len(distinctPlayers(deposits)) < 2 {
		lock.Unlock()
		return nil, fmt.Errorf("cannot run game %s with fewer than two players", gameID)
	}

	// start(): no deposit is accepted past this point.
	game.Status = models.GameStatusRunning
	game.ClosedAt = time.Now()
	if err := ge.store.UpdateGame(game); err != nil {
		lock.Unlock()
		return nil, err
	}

	// reveal(): disclose the secret, fix the winning ticket and resolve
	// the owning deposit.
	game.WinTicket = WinTicket(game.Percentage, game.TotalTickets)

	winner, err := ge.settler.ResolveWinner(game, deposits)
	if err != nil {
		lock.Unlock()
		ge.logger.Error("winner resolution failed, game halted",
			zap.String("game_id", gameID),
			zap.Int64("win_ticket", game.WinTicket),
			zap.Int64("total_tickets", game.TotalTickets),
			zap.Error(err))
		return nil, err
	}

	game.Status = models.GameStatusEnd
	game.WinnerDepositID = winner.ID
	game.WinnerPlayerID = winner.PlayerID
	if err := ge.store.UpdateGame(game); err != nil {
		lock.Unlock()
		return nil, err
	}

	record, err := ge.settler.CreateRecord(game, winner)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	lock.Unlock()
	ge.dropLock(gameID)

	ge.logger.Info("game revealed",
		zap.String("game_id", gameID),
		zap.Int64("win_ticket", game.WinTicket),
		zap.String("winner_deposit_id", winner.ID),
		zap.String("winner_player_id", winner.PlayerID))

	ge.stats.RecordRoundEnd(game, deposits, winner.PlayerID)

	audit := buildAudit(game, winner)
	ge.broadcaster.GameEnded(game, audit)

	// Payout runs against the durable settlement record, outside any
	// game-level exclusivity.
	go func() {
		if _, err := ge.settler.Settle(context.WithoutCancel(ctx), record.GameID); err != nil {
			ge.logger.Error("settlement failed",
				zap.String("game_id", record.GameID),
				zap.Error(err))
		}
	}()

	return game, nil
}

// CancelGame moves a non-terminal round to Canceled and refunds every
// accepted deposit. No winner computation happens.
func (ge *GameEngine) CancelGame(gameID, reason string) error {
	lock := ge.gameLock(gameID)
	lock.Lock()

	game, err := ge.store.GetGame(gameID)
	if err != nil {
		lock.Unlock()
		return err
	}
	if game.Terminal() {
		lock.Unlock()
		return ErrGameClosed
	}

	deposits, err := ge.store.GetGameDeposits(gameID)
	if err != nil {
		lock.Unlock()
		return err
	}

	game.Status = models.GameStatusCanceled
	game.CancelReason = reason
	game.ClosedAt = time.Now()
	if err := ge.store.UpdateGame(game); err != nil {
		lock.Unlock()
		return err
	}

	var refunds []*models.Deposit
	for _, d := range deposits {
		if d.JoinStatus != models.JoinStatusAccepted {
			continue
		}
		d.JoinStatus = models.JoinStatusCancelled
		if err := ge.store.UpdateDeposit(d); err != nil {
			ge.logger.Error("failed to mark deposit cancelled",
				zap.String("deposit_id", d.ID), zap.Error(err))
			continue
		}
		refunds = append(refunds, d)
	}

	lock.Unlock()
	ge.dropLock(gameID)

	ge.logger.Info("game cancelled",
		zap.String("game_id", gameID),
		zap.String("reason", reason),
		zap.Int("refunds", len(refunds)))
	ge.broadcaster.GameCanceled(game, reason)

	// Refunds are best-effort through the trade bot; failures are logged
	// for manual remediation, not retried.
	go ge.settler.RefundDeposits(context.Background(), refunds)

	return nil
}

// Audit returns the published round record. Only finished rounds are
// auditable; the secret stays sealed for everything else.
func (ge *GameEngine) Audit(gameID string) (*models.RoundAudit, error) {
	game, err := ge.store.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != models.GameStatusEnd {
		return nil, fmt.Errorf("game %s is not finished", gameID)
	}

	winner, err := ge.store.GetDeposit(game.WinnerDepositID)
	if err != nil {
		return nil, err
	}

	audit := buildAudit(game, winner)
	return &audit, nil
}

func buildAudit(game *models.Game, winner *models.Deposit) models.RoundAudit {
	return models.RoundAudit{
		GameID:         game.ID,
		Hash:           game.Hash,
		Secret:         game.Secret,
		Percentage:     game.Percentage,
		TotalTickets:   game.TotalTickets,
		WinTicket:      game.WinTicket,
		WinnerPlayerID: winner.PlayerID,
		WinnerBegin:    winner.TicketsBegin,
		WinnerEnd:      winner.TicketsEnd,
	}
}

// ReapStaleGames cancels rounds stuck waiting for players past the join
// timeout. Called by the maintenance worker.
func (ge *GameEngine) ReapStaleGames(maxAge time.Duration) {
	games, err := ge.store.ListOpenGames()
	if err != nil {
		ge.logger.Error("failed to list open games", zap.Error(err))
		return
	}

	for _, game := range games {
		if !game.Joinable() || time.Since(game.OpenedAt) < maxAge {
			continue
		}
		if err := ge.CancelGame(game.ID, "join timeout"); err != nil && err != ErrGameClosed {
			ge.logger.Error("failed to reap stale game",
				zap.String("game_id", game.ID), zap.Error(err))
		}
	}
}
