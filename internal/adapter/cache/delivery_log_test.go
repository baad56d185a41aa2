package cache

import (
	"context"
	"testing"
	"time"

	mrd "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniClient(t *testing.T) (*redis.Client, *mrd.Miniredis) {
	t.Helper()
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, s
}

func TestDeliveryLogMarkSeen(t *testing.T) {
	rdb, s := newMiniClient(t)
	log := NewDeliveryLog(rdb, time.Hour)
	ctx := context.Background()

	fresh, err := log.MarkSeen(ctx, "abc")
	require.NoError(t, err)
	require.True(t, fresh)

	fresh, err = log.MarkSeen(ctx, "abc")
	require.NoError(t, err)
	require.False(t, fresh)

	require.True(t, s.Exists(deliveryKeyPrefix+"abc"))
	require.Equal(t, time.Hour, s.TTL(deliveryKeyPrefix+"abc"))
}

func TestDeliveryLogExpires(t *testing.T) {
	rdb, s := newMiniClient(t)
	log := NewDeliveryLog(rdb, time.Minute)
	ctx := context.Background()

	_, err := log.MarkSeen(ctx, "abc")
	require.NoError(t, err)
	s.FastForward(2 * time.Minute)

	fresh, err := log.MarkSeen(ctx, "abc")
	require.NoError(t, err)
	require.True(t, fresh)
}

func TestDeliveryLogForget(t *testing.T) {
	rdb, _ := newMiniClient(t)
	log := NewDeliveryLog(rdb, 0)
	ctx := context.Background()

	_, err := log.MarkSeen(ctx, "abc")
	require.NoError(t, err)
	require.NoError(t, log.Forget(ctx, "abc"))

	fresh, err := log.MarkSeen(ctx, "abc")
	require.NoError(t, err)
	require.True(t, fresh)
}

func TestDeliveryLogUnavailable(t *testing.T) {
	rdb, s := newMiniClient(t)
	log := NewDeliveryLog(rdb, time.Minute)
	s.Close()

	_, err := log.MarkSeen(context.Background(), "abc")
	require.Error(t, err)
}
