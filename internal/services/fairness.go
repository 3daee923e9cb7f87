package services

import "skinbet-backend/internal/models"

// VerifyRound recomputes a finished round's outcome from published data.
// It is pure: no clock, no store, no engine state. Anyone can run it
// against the audit record of a round.
//
// It confirms that the pre-published hash commits to the secret, that the
// winning ticket follows from the percentage, and that the claimed winner
// range contains that ticket.
func VerifyRound(audit models.RoundAudit) bool {
	if models.DigestSecret(audit.Secret) != audit.Hash {
		return false
	}
	if audit.Percentage < 0 || audit.Percentage >= 1 {
		return false
	}
	if audit.TotalTickets <= 0 {
		return false
	}
	if WinTicket(audit.Percentage, audit.TotalTickets) != audit.WinTicket {
		return false
	}
	return audit.WinTicket >= audit.WinnerBegin && audit.WinTicket < audit.WinnerEnd
}
