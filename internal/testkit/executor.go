package testkit

import (
	"context"
	"fmt"
	"sync"

	"skinbet-backend/internal/services"
)

// Transfer records one successful pot movement through the fake executor.
type Transfer struct {
	PlayerID string
	Amount   float64
	GameID   string
}

// FakeExecutor is a scripted services.TradeExecutor. It fails the first
// FailBeforeSuccess calls with transient errors (or every call permanently
// when Permanent is set) and records successful transfers.
type FakeExecutor struct {
	mu sync.Mutex

	FailBeforeSuccess int
	Permanent         bool

	Calls     int
	Transfers []Transfer
}

var _ services.TradeExecutor = (*FakeExecutor)(nil)

func (f *FakeExecutor) TransferPot(_ context.Context, playerID string, amount float64, gameID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls++
	if f.Permanent {
		return "", &services.TradeError{Msg: "trade rejected"}
	}
	if f.Calls <= f.FailBeforeSuccess {
		return "", &services.TradeError{Transient: true, Msg: "trade bot unavailable"}
	}

	f.Transfers = append(f.Transfers, Transfer{PlayerID: playerID, Amount: amount, GameID: gameID})
	return fmt.Sprintf("trade_%d", f.Calls), nil
}

// SuccessfulTransfers returns a copy of the recorded transfers.
func (f *FakeExecutor) SuccessfulTransfers() []Transfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Transfer, len(f.Transfers))
	copy(out, f.Transfers)
	return out
}
