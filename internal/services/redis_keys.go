package services

import "time"

const (
	KeyGame         = "game:%s"
	KeyGameDeposits = "game:%s:deposits"
	KeyOpenGames    = "games:open"
	KeyGameHistory  = "games:history"

	KeyDeposit = "deposit:%s"

	KeyCommitment   = "commitment:%s"
	KeyUnusedHashes = "commitments:unused"
	KeyUsedHashes   = "commitments:used"

	KeySettlement         = "settlement:%s"
	KeyPendingSettlements = "settlements:pending"

	KeyPlayer  = "player:%s"
	KeyPlayers = "players"

	KeyRateLimit = "ratelimit:%s:%s"

	TTLFinishedGame = 90 * 24 * time.Hour // finished rounds stay auditable for 90 days
	TTLDeposit      = 90 * 24 * time.Hour

	HistoryKeep = 500 // finished rounds kept in the history index
)
