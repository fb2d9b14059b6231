package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/rueidis"

	"intihelp/internal/logging"
)

var releaseScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance talking to the same Redis.
// The key expires after ttl so a crashed holder cannot block a task forever.
type RedisLocker struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client rueidis.Client, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, retry: 50 * time.Millisecond}
}

// NewRedisClient connects to addr; callers close the client on shutdown.
func NewRedisClient(addr, password string, db int) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{addr},
		Password:     password,
		SelectDB:     db,
		DisableCache: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect redis")
	}
	return client, nil
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token := uuid.NewString()

	for {
		cmd := r.client.B().Set().Key(fullKey).Value(token).Nx().PxMilliseconds(r.ttl.Milliseconds()).Build()
		err := r.client.Do(ctx, cmd).Error()
		if err == nil {
			break
		}
		if !rueidis.IsRedisNil(err) {
			return nil, errors.Wrapf(err, "acquire lock %s", fullKey)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	return func() {
		// release must outlive a cancelled request context
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Exec(ctx, r.client, []string{fullKey}, []string{token}).Error(); err != nil {
			logging.Warn("[lock][release] failed", "key", fullKey, "error", err)
		}
	}, nil
}
