package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter enforces a per-IP limit of burst requests per one-second
// fixed window (rps is stored but not used), keeping the counters in Redis
// so a fleet of gate API replicas shares one limit per visitor instead of
// one per process.
type RedisRateLimiter struct {
	client *redis.Client
	rps    int
	burst  int
	window time.Duration
}

// NewRedisRateLimiter parses redisURL and builds a client for it (no
// connection is made until the first request) and a limiter allowing
// rps requests per second with the given burst, approximated as a fixed
// window counter of size burst requests per second.
func NewRedisRateLimiter(redisURL string, rps, burst int) (*RedisRateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisRateLimiter{
		client: redis.NewClient(opts),
		rps:    rps,
		burst:  burst,
		window: time.Second,
	}, nil
}

// Close releases the underlying Redis connection pool.
func (rl *RedisRateLimiter) Close() error {
	return rl.client.Close()
}

// allow increments the visitor's counter for the current window and
// reports whether it stayed within burst.
func (rl *RedisRateLimiter) allow(ctx context.Context, ip string) (bool, error) {
	key := "skillvault:ratelimit:" + ip
	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		rl.client.Expire(ctx, key, rl.window)
	}
	return count <= int64(rl.burst), nil
}

// Middleware enforces the shared per-IP rate limit on every request. A
// Redis error fails open: a degraded rate limiter should not itself take
// the gate API down.
func (rl *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = strings.TrimSuffix(strings.TrimPrefix(r.RemoteAddr, "["), "]")
		}

		ok, err := rl.allow(r.Context(), ip)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			WriteTooManyRequests(w, 1)
			return
		}
		next.ServeHTTP(w, r)
	})
}
