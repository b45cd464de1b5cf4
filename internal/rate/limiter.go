package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds sign-in throttle tuning parameters.
type Config struct {
	EnableIPThrottle bool
	MaxAttempts      int
	Window           time.Duration
}

// countFailure increments every key and starts its window on the first hit,
// in one round trip.
var countFailure = redis.NewScript(`
for _, key in ipairs(KEYS) do
  if redis.call('INCR', key) == 1 then
    redis.call('PEXPIRE', key, ARGV[1])
  end
end
return #KEYS
`)

// Limiter counts failed sign-ins per e-mail address, and optionally per
// client IP, in Redis.
type Limiter struct {
	rdb redis.UniversalClient
	cfg Config
}

// New creates a [Limiter] backed by rdb.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{rdb: rdb, cfg: cfg}
}

func (l *Limiter) keys(scope, email, ip string) []string {
	keys := []string{signInEmailKey(scope, email)}
	if l.cfg.EnableIPThrottle && ip != "" {
		keys = append(keys, signInIPKey(scope, ip))
	}
	return keys
}

// CheckSignIn returns ErrRateLimited when the e-mail or IP counter has used
// up its budget in the current window. It does not count the attempt.
func (l *Limiter) CheckSignIn(ctx context.Context, scope, email, ip string) error {
	vals, err := l.rdb.MGet(ctx, l.keys(scope, email, ip)...).Result()
	if err != nil {
		return unavailable(err)
	}
	for _, v := range vals {
		if count(v) >= int64(l.cfg.MaxAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// RecordFailure counts one failed sign-in against the e-mail and IP.
func (l *Limiter) RecordFailure(ctx context.Context, scope, email, ip string) error {
	window := max(l.cfg.Window, time.Millisecond)
	if err := countFailure.Run(ctx, l.rdb, l.keys(scope, email, ip), window.Milliseconds()).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Reset clears the e-mail counter after a successful sign-in. The IP counter
// stays, so one valid account cannot wipe guessing against others from the
// same address.
func (l *Limiter) Reset(ctx context.Context, scope, email string) error {
	if err := l.rdb.Del(ctx, signInEmailKey(scope, email)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Attempts returns the failed-attempt count for an e-mail address in the
// current window.
func (l *Limiter) Attempts(ctx context.Context, scope, email string) (int, error) {
	n, err := l.rdb.Get(ctx, signInEmailKey(scope, email)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, unavailable(err)
	}
	return int(max(n, 0)), nil
}

// count reads one MGET slot; missing or garbled counters are zero.
func count(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
}
