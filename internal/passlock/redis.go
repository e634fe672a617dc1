package passlock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisTTL = 30 * time.Minute

var (
	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)
	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisLocker shares pass locks between processes. A held lock is extended
// every TTL/3 until released, so long passes keep it; a crashed holder loses
// it after TTL.
type RedisLocker struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
	Logger *zap.Logger
}

func NewRedisLocker(opt *redis.Options, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		Client: redis.NewClient(opt),
		Prefix: "syncer:lock:",
		TTL:    ttl,
		Logger: logger,
	}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	fullKey := l.Prefix + key
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}

	stop := make(chan struct{})
	go l.keepAlive(fullKey, token, ttl, stop)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.Client, []string{fullKey}, token).Err(); err != nil {
				l.warn("release pass lock failed", zap.String("key", fullKey), zap.Error(err))
			}
		})
	}, nil
}

func (l *RedisLocker) keepAlive(key, token string, ttl time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			extended, err := extendScript.Run(ctx, l.Client, []string{key}, token, ttl.Milliseconds()).Int64()
			cancel()
			if err != nil {
				l.warn("extend pass lock failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if extended == 0 {
				// Expired or taken over; another process may be running this pass.
				l.warn("pass lock lost", zap.String("key", key))
				return
			}
		}
	}
}

func (l *RedisLocker) warn(msg string, fields ...zap.Field) {
	if l.Logger != nil {
		l.Logger.Warn(msg, fields...)
	}
}

func (l *RedisLocker) Close() error {
	return l.Client.Close()
}
