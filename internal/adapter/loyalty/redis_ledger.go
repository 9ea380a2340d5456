package loyalty

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const pointsKeyPrefix = "loyalty:points:"

// redeemScript deducts a reward's cost only if the balance still covers it,
// atomically on the Redis side.
var redeemScript = redis.NewScript(`
local key = KEYS[1]
local cost = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return 0
end

current = tonumber(current)
if current >= cost then
	redis.call('DECRBY', key, cost)
	return 1
end

return 0
`)

// RedisLedger keeps customer loyalty balances in Redis. Accrual is
// best-effort bookkeeping after a sale commit; it never participates in the
// sale's transaction.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (r *RedisLedger) AccruePoints(ctx context.Context, customerRef string, points int64) error {
	return r.client.IncrBy(ctx, pointsKeyPrefix+customerRef, points).Err()
}

func (r *RedisLedger) Points(ctx context.Context, customerRef string) (int64, error) {
	points, err := r.client.Get(ctx, pointsKeyPrefix+customerRef).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return points, nil
}

func (r *RedisLedger) RedeemReward(ctx context.Context, customerRef string, cost int64) (bool, error) {
	result, err := redeemScript.Run(ctx, r.client, []string{pointsKeyPrefix + customerRef}, cost).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
