package services_test

import (
	"sync"
	"testing"

	"skinbet-backend/internal/models"
	"skinbet-backend/internal/services"
	"skinbet-backend/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPool() (*services.HashPool, *testkit.MemStore) {
	store := testkit.NewMemStore()
	return services.NewHashPool(store, zap.NewNop()), store
}

func TestGenerateBatch(t *testing.T) {
	pool, _ := newPool()

	added, err := pool.GenerateBatch(25)
	require.NoError(t, err)
	assert.Equal(t, int64(25), added)

	unused, err := pool.Unused()
	require.NoError(t, err)
	assert.Equal(t, int64(25), unused)
}

func TestGenerateBatchRejectsNonPositive(t *testing.T) {
	pool, _ := newPool()

	_, err := pool.GenerateBatch(0)
	assert.Error(t, err)
	_, err = pool.GenerateBatch(-5)
	assert.Error(t, err)
}

func TestGenerateBatchNeverOverwrites(t *testing.T) {
	pool, store := newPool()

	seeded := &models.Commitment{
		Hash:       models.DigestSecret("pinned"),
		Secret:     "pinned",
		Percentage: 0.5,
	}
	_, err := store.AddCommitments([]*models.Commitment{seeded})
	require.NoError(t, err)

	// Re-adding the same hash with different contents must be a no-op.
	added, err := store.AddCommitments([]*models.Commitment{{
		Hash:       seeded.Hash,
		Secret:     "impostor",
		Percentage: 0.99,
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), added)

	reserved, err := pool.Reserve()
	require.NoError(t, err)
	assert.Equal(t, "pinned", reserved.Secret)
	assert.Equal(t, 0.5, reserved.Percentage)
}

func TestReserveUntilExhausted(t *testing.T) {
	pool, _ := newPool()

	_, err := pool.GenerateBatch(3)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		c, err := pool.Reserve()
		require.NoError(t, err)
		assert.True(t, c.Used)
		assert.False(t, seen[c.Hash], "commitment %s reserved twice", c.Hash)
		seen[c.Hash] = true

		// The reserved triple must be internally consistent.
		assert.Equal(t, models.DigestSecret(c.Secret), c.Hash)
		assert.GreaterOrEqual(t, c.Percentage, 0.0)
		assert.Less(t, c.Percentage, 1.0)
	}

	_, err = pool.Reserve()
	assert.ErrorIs(t, err, services.ErrPoolExhausted)
}

// Concurrent reservations must hand out each commitment at most once.
func TestConcurrentReserve(t *testing.T) {
	pool, _ := newPool()

	const n = 50
	_, err := pool.GenerateBatch(n)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := make(map[string]int)

	var wg sync.WaitGroup
	for i := 0; i < n*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := pool.Reserve()
			if err != nil {
				return
			}
			mu.Lock()
			seen[c.Hash]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for hash, count := range seen {
		assert.Equal(t, 1, count, "commitment %s reserved %d times", hash, count)
	}

	unused, err := pool.Unused()
	require.NoError(t, err)
	assert.Equal(t, int64(0), unused)
}

func TestRefill(t *testing.T) {
	pool, _ := newPool()

	require.NoError(t, pool.Refill(10, 20))
	unused, err := pool.Unused()
	require.NoError(t, err)
	assert.Equal(t, int64(20), unused)

	// Above the low-water mark nothing is generated.
	require.NoError(t, pool.Refill(10, 20))
	unused, err = pool.Unused()
	require.NoError(t, err)
	assert.Equal(t, int64(20), unused)
}
