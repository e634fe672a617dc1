package passlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis, *observer.ObservedLogs) {
	t.Helper()
	mr := miniredis.RunT(t)
	core, logs := observer.New(zapcore.WarnLevel)
	l := NewRedisLocker(&redis.Options{Addr: mr.Addr()}, ttl, zap.New(core))
	t.Cleanup(func() { _ = l.Close() })
	return l, mr, logs
}

func TestRedisLockerExclusive(t *testing.T) {
	l, mr, _ := newRedisLocker(t, time.Minute)
	ctx := context.Background()

	release, err := l.TryLock(ctx, "sync:github")
	require.NoError(t, err)
	require.True(t, mr.Exists("syncer:lock:sync:github"))
	require.Equal(t, time.Minute, mr.TTL("syncer:lock:sync:github"))

	_, err = l.TryLock(ctx, "sync:github")
	require.ErrorIs(t, err, ErrHeld)

	other, err := l.TryLock(ctx, "sync:jira")
	require.NoError(t, err)
	other()

	release()
	release()
	require.False(t, mr.Exists("syncer:lock:sync:github"))

	again, err := l.TryLock(ctx, "sync:github")
	require.NoError(t, err)
	again()
}

func TestRedisLockerReleaseLeavesForeignHolder(t *testing.T) {
	l, mr, _ := newRedisLocker(t, time.Minute)

	release, err := l.TryLock(context.Background(), "sync:jira")
	require.NoError(t, err)
	require.NoError(t, mr.Set("syncer:lock:sync:jira", "someone-else"))

	release()
	got, err := mr.Get("syncer:lock:sync:jira")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestRedisLockerExtendsUntilLost(t *testing.T) {
	ttl := 150 * time.Millisecond
	l, mr, logs := newRedisLocker(t, ttl)
	key := "syncer:lock:sync:github"

	release, err := l.TryLock(context.Background(), "sync:github")
	require.NoError(t, err)
	defer release()

	mr.SetTTL(key, time.Hour)
	require.Eventually(t, func() bool {
		return mr.TTL(key) == ttl
	}, 2*time.Second, 10*time.Millisecond, "held lock is extended")

	require.NoError(t, mr.Set(key, "someone-else"))
	require.Eventually(t, func() bool {
		return logs.FilterMessage("pass lock lost").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, mr.TTL(key), "a lost lock is not extended")
}
