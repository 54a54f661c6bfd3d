package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farxc/envelopa-rreo/internal/fiscal"
)

const redisKeyPrefix = "rreo:dataset:"

// RedisTier stores whole datasets as JSON under the scope fingerprint with
// a key expiry equal to the TTL.
type RedisTier struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisTier(client *redis.Client, ttl time.Duration) *RedisTier {
	return &RedisTier{client: client, ttl: ttl, now: time.Now}
}

func redisKey(f fiscal.Filter) string {
	return redisKeyPrefix + f.Fingerprint()
}

func (r *RedisTier) Get(ctx context.Context, f fiscal.Filter, maxAge time.Duration) (*fiscal.Dataset, bool, error) {
	payload, err := r.client.Get(ctx, redisKey(f)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var ds fiscal.Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return nil, false, err
	}
	if maxAge > 0 && r.now().Sub(ds.FetchedAt) > maxAge {
		return nil, false, nil
	}
	return &ds, true, nil
}

func (r *RedisTier) Put(ctx context.Context, ds *fiscal.Dataset) error {
	raw, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(ds.Filter), raw, r.ttl).Err()
}

func (r *RedisTier) Delete(ctx context.Context, f fiscal.Filter) error {
	return r.client.Del(ctx, redisKey(f)).Err()
}
