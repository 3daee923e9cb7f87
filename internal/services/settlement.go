package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"skinbet-backend/internal/models"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// TradeError classifies trade executor failures. Transient errors are
// retried with backoff; permanent ones escalate immediately.
type TradeError struct {
	Transient bool
	Msg       string
}

func (e *TradeError) Error() string {
	return e.Msg
}

// IsTransientTradeError reports whether err is worth retrying.
func IsTransientTradeError(err error) bool {
	var te *TradeError
	return errors.As(err, &te) && te.Transient
}

// TradeExecutor is the external trading channel that moves the pot. The
// engine treats it as a black box returning success, transient failure or
// permanent failure.
type TradeExecutor interface {
	TransferPot(ctx context.Context, playerID string, amount float64, gameID string) (tradeRef string, err error)
}

// SettlementEngine resolves winners and drives payouts. Payouts are
// idempotent: one settlement record per game, at most one successful
// transfer, ever.
type SettlementEngine struct {
	store    Store
	executor TradeExecutor
	logger   *zap.Logger

	maxAttempts uint64
	backoffBase time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSettlementEngine(store Store, executor TradeExecutor, logger *zap.Logger, maxAttempts uint64, backoffBase time.Duration) *SettlementEngine {
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	return &SettlementEngine{
		store:       store,
		executor:    executor,
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (se *SettlementEngine) settleLock(gameID string) *sync.Mutex {
	se.mu.Lock()
	defer se.mu.Unlock()
	lock, ok := se.locks[gameID]
	if !ok {
		lock = &sync.Mutex{}
		se.locks[gameID] = lock
	}
	return lock
}

// ResolveWinner finds the accepted deposit owning the winning ticket.
// Exactly one must match; anything else is a consistency violation.
func (se *SettlementEngine) ResolveWinner(game *models.Game, deposits []*models.Deposit) (*models.Deposit, error) {
	return FindWinningDeposit(deposits, game.WinTicket, game.TotalTickets)
}

// CreateRecord creates the settlement record for a finished round if it
// does not exist yet. Re-entrant calls return the existing record.
func (se *SettlementEngine) CreateRecord(game *models.Game, winner *models.Deposit) (*models.SettlementRecord, error) {
	now := time.Now()
	record := &models.SettlementRecord{
		GameID:          game.ID,
		WinnerDepositID: winner.ID,
		WinnerPlayerID:  winner.PlayerID,
		Amount:          game.TotalStake,
		PayoutStatus:    models.PayoutStatusInitialed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	existing, created, err := se.store.CreateSettlement(record)
	if err != nil {
		return nil, err
	}
	if !created {
		return existing, nil
	}
	return record, nil
}

// Settle drives the payout for a finished round. Calling it again for an
// already-settled game is a no-op returning the existing record. On retry
// exhaustion the payout is marked Cancelled and ErrPayoutFailed surfaces;
// the round stays End with its winner recorded.
func (se *SettlementEngine) Settle(ctx context.Context, gameID string) (*models.SettlementRecord, error) {
	lock := se.settleLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	record, err := se.store.GetSettlement(gameID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("no settlement record for game %s", gameID)
	}
	if !record.Pending() {
		return record, nil
	}

	operation := func() error {
		record.Attempts++
		if err := se.store.UpdateSettlement(record); err != nil {
			return backoff.Permanent(err)
		}

		tradeRef, err := se.executor.TransferPot(ctx, record.WinnerPlayerID, record.Amount, record.GameID)
		if err != nil {
			record.LastError = err.Error()
			if IsTransientTradeError(err) {
				se.logger.Warn("payout attempt failed, retrying",
					zap.String("game_id", record.GameID),
					zap.Uint64("attempt", record.Attempts),
					zap.Error(err))
				return err
			}
			return backoff.Permanent(err)
		}

		record.TradeRef = tradeRef
		record.LastError = ""
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = se.backoffBase
	err = backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, se.maxAttempts-1), ctx))

	if err != nil {
		record.PayoutStatus = models.PayoutStatusCancelled
		if updateErr := se.store.UpdateSettlement(record); updateErr != nil {
			se.logger.Error("failed to persist payout failure",
				zap.String("game_id", record.GameID), zap.Error(updateErr))
		}
		se.logger.Error("payout exhausted, manual intervention required",
			zap.String("game_id", record.GameID),
			zap.String("winner_player_id", record.WinnerPlayerID),
			zap.Float64("amount", record.Amount),
			zap.Uint64("attempts", record.Attempts),
			zap.Error(err))
		return record, fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}

	record.PayoutStatus = models.PayoutStatusAccepted
	if err := se.store.UpdateSettlement(record); err != nil {
		return nil, err
	}

	se.logger.Info("payout completed",
		zap.String("game_id", record.GameID),
		zap.String("winner_player_id", record.WinnerPlayerID),
		zap.String("trade_ref", record.TradeRef),
		zap.Uint64("attempts", record.Attempts))

	return record, nil
}

// SettlePending retries every payout still marked initialed. Run by the
// background worker; never re-acquires game-level locks.
func (se *SettlementEngine) SettlePending(ctx context.Context) {
	records, err := se.store.ListPendingSettlements()
	if err != nil {
		se.logger.Error("failed to list pending settlements", zap.Error(err))
		return
	}

	for _, record := range records {
		if _, err := se.Settle(ctx, record.GameID); err != nil {
			se.logger.Error("pending settlement retry failed",
				zap.String("game_id", record.GameID), zap.Error(err))
		}
	}
}

// RefundDeposits returns cancelled stakes to their owners. Best effort:
// failures are logged for manual remediation.
func (se *SettlementEngine) RefundDeposits(ctx context.Context, deposits []*models.Deposit) {
	for _, d := range deposits {
		if _, err := se.executor.TransferPot(ctx, d.PlayerID, d.Amount, d.GameID); err != nil {
			se.logger.Error("refund failed",
				zap.String("game_id", d.GameID),
				zap.String("deposit_id", d.ID),
				zap.String("player_id", d.PlayerID),
				zap.Float64("amount", d.Amount),
				zap.Error(err))
		}
	}
}
