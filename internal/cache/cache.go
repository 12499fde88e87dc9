package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const balanceTTL = 5 * time.Minute

// BalanceCache is a read-through cache for point-in-time account balances.
// Each account carries a generation counter; any write touching the account
// bumps the counter, which orphans every cached balance for it without a
// scan-and-delete. A nil *BalanceCache is valid and disables caching.
type BalanceCache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewBalanceCache(rdb *redis.Client, logger *zap.Logger) *BalanceCache {
	if rdb == nil {
		return nil
	}
	return &BalanceCache{rdb: rdb, logger: logger}
}

func (c *BalanceCache) GetBalance(ctx context.Context, accountID int64, date time.Time) (decimal.Decimal, bool) {
	if c == nil {
		return decimal.Zero, false
	}
	key, err := c.balanceKey(ctx, accountID, date)
	if err != nil {
		return decimal.Zero, false
	}
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("balance cache read", zap.Error(err), zap.Int64("account_id", accountID))
		}
		return decimal.Zero, false
	}
	bal, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return bal, true
}

func (c *BalanceCache) SetBalance(ctx context.Context, accountID int64, date time.Time, balance decimal.Decimal) {
	if c == nil {
		return
	}
	key, err := c.balanceKey(ctx, accountID, date)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, balance.String(), balanceTTL).Err(); err != nil {
		c.logger.Warn("balance cache write", zap.Error(err), zap.Int64("account_id", accountID))
	}
}

// Bump invalidates all cached balances for the given accounts.
func (c *BalanceCache) Bump(ctx context.Context, accountIDs ...int64) {
	if c == nil {
		return
	}
	pipe := c.rdb.Pipeline()
	for _, id := range accountIDs {
		pipe.Incr(ctx, genKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("balance cache invalidation", zap.Error(err))
	}
}

func (c *BalanceCache) balanceKey(ctx context.Context, accountID int64, date time.Time) (string, error) {
	gen, err := c.rdb.Get(ctx, genKey(accountID)).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("ledger:balance:%d:%d:%s", accountID, gen, date.Format("2006-01-02")), nil
}

func genKey(accountID int64) string {
	return fmt.Sprintf("ledger:balance:gen:%d", accountID)
}
