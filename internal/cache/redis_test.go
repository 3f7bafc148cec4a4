package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCmdable()
	c := &Client{store: fake}

	allowed, count, err := c.FixedWindowAllow(ctx, "redeem:7", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), count)
	require.Len(t, fake.expireCalls, 1)
	assert.Equal(t, "marketshop:rate_limit:redeem:7", fake.expireCalls[0].key)
	assert.Equal(t, time.Minute, fake.expireCalls[0].ttl)

	allowed, count, err = c.FixedWindowAllow(ctx, "redeem:7", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(2), count)
	assert.Len(t, fake.expireCalls, 1, "ttl is set only on first increment")

	allowed, _, err = c.FixedWindowAllow(ctx, "redeem:7", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, err = c.FixedWindowAllow(ctx, "redeem:8", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "scopes are independent")
}

func TestSetNXAndGet(t *testing.T) {
	ctx := context.Background()
	c := &Client{store: newFakeCmdable()}

	_, err := c.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrMiss))

	ok, err := c.SetNX(ctx, "k", "v1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "k", "v2", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	require.NoError(t, c.Set(ctx, "k", "v3", time.Hour))
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v3", v)

	require.NoError(t, c.Del(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestKeyBuilders(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "marketshop:idempotency:42|POST|/api/orders:abc", c.IdempotencyKey("42|POST|/api/orders", "abc"))
	assert.Equal(t, "marketshop:rate_limit:redeem", c.RateLimitKey(" redeem "))
}

func TestUninitialized(t *testing.T) {
	c := &Client{}
	ctx := context.Background()

	assert.ErrorIs(t, c.Ping(ctx), ErrNotInitialized)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, _, err = c.FixedWindowAllow(ctx, "s", 1, time.Second)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, c.Close())
}

// fakeCmdable хранит данные в памяти и повторяет поведение нужных команд Redis.
type fakeCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (f *fakeCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	f.incr[key]++
	return redis.NewIntResult(f.incr[key], nil)
}

func (f *fakeCmdable) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expireCalls = append(f.expireCalls, expireCall{key: key, ttl: ttl})
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
