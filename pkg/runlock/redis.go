package runlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed holder can block a floor plan.
const DefaultTTL = 2 * time.Minute

// releaseScript deletes the lock only if it still carries the holder's
// token, so an expired holder cannot release a lock someone else now owns.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared between service replicas. Locks expire after
// ttl so a crashed replica cannot hold a floor plan forever.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedis returns a locker on client. A non-positive ttl means DefaultTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl, prefix: "boothplan:lock:"}
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, lockedErr(key)
	}

	var (
		once sync.Once
		rerr error
	)
	return func(ctx context.Context) error {
		once.Do(func() {
			rerr = releaseScript.Run(ctx, r.client, []string{r.prefix + key}, token).Err()
		})
		return rerr
	}, nil
}

var _ Locker = (*Redis)(nil)
