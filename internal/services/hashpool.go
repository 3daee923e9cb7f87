package services

import (
	"fmt"

	"skinbet-backend/internal/models"

	"go.uber.org/zap"
)

// HashPool manages the pre-committed (hash, secret, percentage) triples
// that seed future rounds. Reservation is atomic in the store, so two
// concurrent game opens never draw the same commitment.
type HashPool struct {
	store  Store
	logger *zap.Logger
}

func NewHashPool(store Store, logger *zap.Logger) *HashPool {
	return &HashPool{
		store:  store,
		logger: logger,
	}
}

// GenerateBatch creates n fresh commitments. Existing unused commitments
// are never overwritten.
func (p *HashPool) GenerateBatch(n int) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("batch size must be positive, got %d", n)
	}

	commitments := make([]*models.Commitment, 0, n)
	for i := 0; i < n; i++ {
		c, err := models.NewCommitment()
		if err != nil {
			return 0, fmt.Errorf("failed to generate commitment: %w", err)
		}
		commitments = append(commitments, c)
	}

	added, err := p.store.AddCommitments(commitments)
	if err != nil {
		return added, fmt.Errorf("failed to store commitments: %w", err)
	}

	p.logger.Info("generated commitment batch",
		zap.Int("requested", n),
		zap.Int64("added", added))
	return added, nil
}

// Reserve pops one unused commitment and marks it used, atomically.
// Returns ErrPoolExhausted when the pool is dry.
func (p *HashPool) Reserve() (*models.Commitment, error) {
	commitment, err := p.store.ReserveCommitment()
	if err != nil {
		return nil, err
	}
	return commitment, nil
}

// Unused reports how many commitments remain available.
func (p *HashPool) Unused() (int64, error) {
	return p.store.UnusedCommitments()
}

// Refill tops the pool up to at least lowWater by generating batchSize
// commitments when it runs low. Called by the maintenance worker.
func (p *HashPool) Refill(lowWater int64, batchSize int) error {
	count, err := p.store.UnusedCommitments()
	if err != nil {
		return err
	}
	if count >= lowWater {
		return nil
	}

	p.logger.Warn("commitment pool below low-water mark",
		zap.Int64("unused", count),
		zap.Int64("low_water", lowWater))
	_, err = p.GenerateBatch(batchSize)
	return err
}
