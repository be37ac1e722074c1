package repositories_test

import (
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	ledger repositories.StockLedger
	// seed creates a product with the given stock and returns its id.
	seed func(t *testing.T, stock int) string
}

func gormLedger(t *testing.T) ledgerFixture {
	db := newTestDB(t)
	products := repositories.NewGORMProductRepository(db)
	return ledgerFixture{
		ledger: repositories.NewGORMStockLedger(db),
		seed: func(t *testing.T, stock int) string {
			p := &models.Product{Name: "Sneaker", Price: 100, Stock: stock}
			require.NoError(t, products.Create(ctx, p))
			return p.ID
		},
	}
}

func mockLedger(t *testing.T) ledgerFixture {
	products := repositories.NewMockProductRepository()
	return ledgerFixture{
		ledger: repositories.NewMockStockLedger(products),
		seed: func(t *testing.T, stock int) string {
			p := &models.Product{Name: "Sneaker", Price: 100, Stock: stock}
			require.NoError(t, products.Create(ctx, p))
			return p.ID
		},
	}
}

func forEachLedger(t *testing.T, fn func(t *testing.T, f ledgerFixture)) {
	t.Run("gorm", func(t *testing.T) { fn(t, gormLedger(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, mockLedger(t)) })
}

func TestStockLedger_ReserveAndRelease(t *testing.T) {
	forEachLedger(t, func(t *testing.T, f ledgerFixture) {
		id := f.seed(t, 10)

		require.NoError(t, f.ledger.Reserve(ctx, id, 4))
		stock, err := f.ledger.Available(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 6, stock)

		require.NoError(t, f.ledger.Release(ctx, id, 4))
		stock, err = f.ledger.Available(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 10, stock)
	})
}

func TestStockLedger_InsufficientStockLeavesStockUnchanged(t *testing.T) {
	forEachLedger(t, func(t *testing.T, f ledgerFixture) {
		id := f.seed(t, 5)

		err := f.ledger.Reserve(ctx, id, 6)
		assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

		stock, err := f.ledger.Available(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 5, stock)
	})
}

func TestStockLedger_UnknownProductAndBadQuantity(t *testing.T) {
	forEachLedger(t, func(t *testing.T, f ledgerFixture) {
		id := f.seed(t, 5)

		assert.ErrorIs(t, f.ledger.Reserve(ctx, "missing", 1), apperrors.ErrNotFound)
		assert.ErrorIs(t, f.ledger.Release(ctx, "missing", 1), apperrors.ErrNotFound)
		assert.ErrorIs(t, f.ledger.Reserve(ctx, id, 0), apperrors.ErrValidation)
		assert.ErrorIs(t, f.ledger.Release(ctx, id, -2), apperrors.ErrValidation)
	})
}

func TestStockLedger_ConcurrentReservationsNeverOversell(t *testing.T) {
	forEachLedger(t, func(t *testing.T, f ledgerFixture) {
		id := f.seed(t, 5)

		var successCount atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := f.ledger.Reserve(ctx, id, 3); err == nil {
					successCount.Add(1)
				} else {
					assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), successCount.Load())
		stock, err := f.ledger.Available(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, stock)
	})
}

func TestStockLedger_InterleavedReservationsSumUp(t *testing.T) {
	forEachLedger(t, func(t *testing.T, f ledgerFixture) {
		initial := 100
		id := f.seed(t, initial)

		var reserved atomic.Int32
		var wg sync.WaitGroup
		for i := 1; i <= 30; i++ {
			wg.Add(1)
			go func(qty int) {
				defer wg.Done()
				if err := f.ledger.Reserve(ctx, id, qty%7+1); err == nil {
					reserved.Add(int32(qty%7 + 1))
				}
			}(i)
		}
		wg.Wait()

		stock, err := f.ledger.Available(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, initial-int(reserved.Load()), stock)
		assert.GreaterOrEqual(t, stock, 0)
	})
}

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisStockLedger(t *testing.T) {
	client := getRedisClient(t)
	ledger := repositories.NewRedisStockLedger(client)
	client.Del(ctx, "stock:redis-test-item")
	created, err := ledger.PrimeStock(ctx, "redis-test-item", 5)
	require.NoError(t, err)
	require.True(t, created)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Reserve(ctx, "redis-test-item", 3); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), successCount.Load())

	stock, err := ledger.Available(ctx, "redis-test-item")
	require.NoError(t, err)
	assert.Equal(t, 2, stock)

	require.NoError(t, ledger.Release(ctx, "redis-test-item", 3))
	stock, err = ledger.Available(ctx, "redis-test-item")
	require.NoError(t, err)
	assert.Equal(t, 5, stock)

	client.Del(ctx, "stock:redis-missing")
	assert.ErrorIs(t, ledger.Reserve(ctx, "redis-missing", 1), apperrors.ErrNotFound)
	assert.ErrorIs(t, ledger.Release(ctx, "redis-missing", 1), apperrors.ErrNotFound)

	created, err = ledger.PrimeStock(ctx, "redis-test-item", 99)
	require.NoError(t, err)
	assert.False(t, created, "existing counters are kept")
	created, err = ledger.PrimeStock(ctx, "redis-missing", 4)
	require.NoError(t, err)
	assert.True(t, created)
	stock, err = ledger.Available(ctx, "redis-missing")
	require.NoError(t, err)
	assert.Equal(t, 4, stock)
	client.Del(ctx, "stock:redis-missing", "stock:redis-test-item")
}
