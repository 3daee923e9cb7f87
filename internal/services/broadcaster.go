package services

import "skinbet-backend/internal/models"

// Broadcaster pushes round events to connected spectators. The websocket
// hub implements it; tests use NopBroadcaster.
type Broadcaster interface {
	GameOpened(game *models.Game)
	DepositAccepted(game *models.Game, deposit *models.Deposit)
	GameFull(game *models.Game)
	GameEnded(game *models.Game, audit models.RoundAudit)
	GameCanceled(game *models.Game, reason string)
}

type NopBroadcaster struct{}

func (NopBroadcaster) GameOpened(*models.Game)                        {}
func (NopBroadcaster) DepositAccepted(*models.Game, *models.Deposit)  {}
func (NopBroadcaster) GameFull(*models.Game)                          {}
func (NopBroadcaster) GameEnded(*models.Game, models.RoundAudit)      {}
func (NopBroadcaster) GameCanceled(*models.Game, string)              {}
