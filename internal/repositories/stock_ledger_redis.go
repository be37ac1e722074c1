package repositories

import (
	"context"
	"errors"
	"fmt"

	"toko-checkout/internal/apperrors"

	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "stock:"

// Returns -1 when the key is missing, 0 when stock is short, 1 on success.
var reserveStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return -1
end

current = tonumber(current)
if current >= quantity then
	redis.call('DECRBY', key, quantity)
	return 1
end

return 0
`)

// Increments only when the key exists, so releases never invent stock for
// unknown products.
var releaseStockScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('INCRBY', KEYS[1], ARGV[1])
`)

// RedisStockLedger keeps stock counters in Redis. The counters must be primed
// from the catalog with PrimeStock before use.
type RedisStockLedger struct {
	client *redis.Client
}

// NewRedisStockLedger creates a new instance of RedisStockLedger.
func NewRedisStockLedger(client *redis.Client) *RedisStockLedger {
	return &RedisStockLedger{client: client}
}

func (l *RedisStockLedger) Reserve(ctx context.Context, productID string, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	result, err := reserveStockScript.Run(ctx, l.client, []string{stockKeyPrefix + productID}, quantity).Int()
	if err != nil {
		return fmt.Errorf("failed to reserve stock for product %s: %w", productID, err)
	}
	switch result {
	case 1:
		return nil
	case -1:
		return apperrors.NotFound("product with ID %s not found", productID)
	}
	available, err := l.Available(ctx, productID)
	if err != nil {
		return err
	}
	return apperrors.InsufficientStock(productID, quantity, available)
}

func (l *RedisStockLedger) Release(ctx context.Context, productID string, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	result, err := releaseStockScript.Run(ctx, l.client, []string{stockKeyPrefix + productID}, quantity).Int()
	if err != nil {
		return fmt.Errorf("failed to release stock for product %s: %w", productID, err)
	}
	if result < 0 {
		return apperrors.NotFound("product with ID %s not found", productID)
	}
	return nil
}

func (l *RedisStockLedger) Available(ctx context.Context, productID string) (int, error) {
	stock, err := l.client.Get(ctx, stockKeyPrefix+productID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, apperrors.NotFound("product with ID %s not found", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock for product %s: %w", productID, err)
	}
	return stock, nil
}

// PrimeStock sets the counter only if it does not exist yet, so restarts keep
// the live counters. It reports whether the counter was created.
func (l *RedisStockLedger) PrimeStock(ctx context.Context, productID string, quantity int) (bool, error) {
	created, err := l.client.SetNX(ctx, stockKeyPrefix+productID, quantity, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to prime stock for product %s: %w", productID, err)
	}
	return created, nil
}
