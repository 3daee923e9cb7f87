package services_test

import (
	"context"
	"testing"
	"time"

	"skinbet-backend/internal/models"
	"skinbet-backend/internal/services"
	"skinbet-backend/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSettler(executor *testkit.FakeExecutor, maxAttempts uint64) (*services.SettlementEngine, *testkit.MemStore) {
	store := testkit.NewMemStore()
	settler := services.NewSettlementEngine(store, executor, zap.NewNop(),
		maxAttempts, time.Millisecond)
	return settler, store
}

func seedRecord(t *testing.T, store *testkit.MemStore, gameID string, amount float64) {
	t.Helper()
	now := time.Now()
	_, created, err := store.CreateSettlement(&models.SettlementRecord{
		GameID:          gameID,
		WinnerDepositID: "deposit_1",
		WinnerPlayerID:  "winner",
		Amount:          amount,
		PayoutStatus:    models.PayoutStatusInitialed,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestSettleHappyPath(t *testing.T) {
	executor := &testkit.FakeExecutor{}
	settler, store := newSettler(executor, 5)
	seedRecord(t, store, "game_1", 42.5)

	record, err := settler.Settle(context.Background(), "game_1")
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusAccepted, record.PayoutStatus)
	assert.Equal(t, uint64(1), record.Attempts)
	assert.NotEmpty(t, record.TradeRef)

	transfers := executor.SuccessfulTransfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, "winner", transfers[0].PlayerID)
	assert.Equal(t, 42.5, transfers[0].Amount)
	assert.Equal(t, "game_1", transfers[0].GameID)
}

func TestSettleIsIdempotent(t *testing.T) {
	executor := &testkit.FakeExecutor{}
	settler, store := newSettler(executor, 5)
	seedRecord(t, store, "game_1", 10)

	first, err := settler.Settle(context.Background(), "game_1")
	require.NoError(t, err)
	second, err := settler.Settle(context.Background(), "game_1")
	require.NoError(t, err)

	assert.Equal(t, first.TradeRef, second.TradeRef)
	assert.Equal(t, 1, executor.Calls)
	assert.Len(t, executor.SuccessfulTransfers(), 1)
}

func TestSettleRetriesTransientFailures(t *testing.T) {
	executor := &testkit.FakeExecutor{FailBeforeSuccess: 3}
	settler, store := newSettler(executor, 5)
	seedRecord(t, store, "game_1", 10)

	record, err := settler.Settle(context.Background(), "game_1")
	require.NoError(t, err)

	assert.Equal(t, models.PayoutStatusAccepted, record.PayoutStatus)
	assert.Equal(t, uint64(4), record.Attempts)
	assert.Empty(t, record.LastError)
	assert.Len(t, executor.SuccessfulTransfers(), 1)
}

func TestSettlePermanentFailureDoesNotRetry(t *testing.T) {
	executor := &testkit.FakeExecutor{Permanent: true}
	settler, store := newSettler(executor, 5)
	seedRecord(t, store, "game_1", 10)

	record, err := settler.Settle(context.Background(), "game_1")
	assert.ErrorIs(t, err, services.ErrPayoutFailed)

	assert.Equal(t, models.PayoutStatusCancelled, record.PayoutStatus)
	assert.Equal(t, uint64(1), record.Attempts)
	assert.Equal(t, 1, executor.Calls)
	assert.NotEmpty(t, record.LastError)
}

func TestSettleExhaustsRetries(t *testing.T) {
	executor := &testkit.FakeExecutor{FailBeforeSuccess: 100}
	settler, store := newSettler(executor, 3)
	seedRecord(t, store, "game_1", 10)

	record, err := settler.Settle(context.Background(), "game_1")
	assert.ErrorIs(t, err, services.ErrPayoutFailed)

	assert.Equal(t, models.PayoutStatusCancelled, record.PayoutStatus)
	assert.Equal(t, uint64(3), record.Attempts)
	assert.Equal(t, 3, executor.Calls)
	assert.Empty(t, executor.SuccessfulTransfers())

	stored, err := store.GetSettlement("game_1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCancelled, stored.PayoutStatus)

	// An exhausted payout is closed; later calls do not re-drive it.
	again, err := settler.Settle(context.Background(), "game_1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCancelled, again.PayoutStatus)
	assert.Equal(t, 3, executor.Calls)
}

func TestSettleUnknownGame(t *testing.T) {
	executor := &testkit.FakeExecutor{}
	settler, _ := newSettler(executor, 5)

	_, err := settler.Settle(context.Background(), "game_missing")
	assert.Error(t, err)
	assert.Equal(t, 0, executor.Calls)
}

func TestSettlePendingDrainsBacklog(t *testing.T) {
	executor := &testkit.FakeExecutor{}
	settler, store := newSettler(executor, 5)
	seedRecord(t, store, "game_1", 10)
	seedRecord(t, store, "game_2", 20)

	settler.SettlePending(context.Background())

	pending, err := store.ListPendingSettlements()
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Len(t, executor.SuccessfulTransfers(), 2)
}

func TestCreateRecordReentrant(t *testing.T) {
	executor := &testkit.FakeExecutor{}
	settler, _ := newSettler(executor, 5)

	game := &models.Game{ID: "game_1", TotalStake: 30}
	winner := &models.Deposit{ID: "deposit_1", PlayerID: "winner"}

	first, err := settler.CreateRecord(game, winner)
	require.NoError(t, err)
	second, err := settler.CreateRecord(game, winner)
	require.NoError(t, err)

	assert.Equal(t, first.GameID, second.GameID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 30.0, second.Amount)
}
