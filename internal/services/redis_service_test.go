package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chat-realtime/internal/database"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestService connects to a local Redis and skips when none is running.
func newTestService(t *testing.T) *RedisService {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skip("Redis not available, skipping")
	}
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return NewRedisService(database.NewRedisClientFrom(rdb))
}

func TestPresenceMirror(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetUserOnline(ctx, 1))
	require.NoError(t, svc.SetUserOnline(ctx, 2))

	online, err := svc.IsUserOnline(ctx, 1)
	require.NoError(t, err)
	assert.True(t, online)

	require.NoError(t, svc.SetUserOffline(ctx, 1))
	online, err = svc.IsUserOnline(ctx, 1)
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, svc.ClearOnlineUsers(ctx))
	online, err = svc.IsUserOnline(ctx, 2)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestCheckRateLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := fmt.Sprintf("rate_limit:test:%d", time.Now().UnixNano())

	for i := 0; i < 3; i++ {
		allowed, err := svc.CheckRateLimit(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}
	allowed, err := svc.CheckRateLimit(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}
