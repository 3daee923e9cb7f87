package services

import "errors"

// Validation errors: rejected synchronously, no state touched, caller may
// retry with corrected input.
var (
	ErrStakeOutOfRange = errors.New("stake out of range")
	ErrDuplicateJoin   = errors.New("player already joined this game")
)

// State-conflict errors: normal outcomes of races between concurrent
// callers, not system faults.
var (
	ErrGameNotJoinable = errors.New("game is not joinable")
	ErrGameFull        = errors.New("game is full")
	ErrGameClosed      = errors.New("game is closed")
)

// ErrPoolExhausted means the commitment pool ran dry and needs a refill.
var ErrPoolExhausted = errors.New("commitment pool exhausted")

// ErrTicketRangeCorruption means the accepted deposits no longer partition
// the ticket space. It indicates a bug in atomic ticket assignment; the
// game must halt and alert, never pick an approximate winner.
var ErrTicketRangeCorruption = errors.New("ticket range corruption")

// ErrPayoutFailed means the trade executor exhausted its retry budget. The
// round stays End with the winner recorded; the payout needs manual
// remediation.
var ErrPayoutFailed = errors.New("payout failed after retries")

var ErrGameNotFound = errors.New("game not found")
