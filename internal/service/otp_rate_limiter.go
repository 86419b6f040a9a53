package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPRateLimiter limita cuantos codigos de recuperacion se piden por email dentro de una ventana.
type OTPRateLimiter interface {
	Allow(ctx context.Context, email string) bool
}

type memoryOTPLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	now    func() time.Time
	hits   map[string][]time.Time
}

// NewOTPRateLimiter crea un limitador de ventana deslizante en memoria.
func NewOTPRateLimiter(window time.Duration, max int) OTPRateLimiter {
	window, max = limiterDefaults(window, max)
	return &memoryOTPLimiter{
		window: window,
		max:    max,
		now:    func() time.Time { return time.Now().UTC() },
		hits:   make(map[string][]time.Time),
	}
}

func (l *memoryOTPLimiter) Allow(_ context.Context, email string) bool {
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	recent := l.hits[email][:0]
	for _, at := range l.hits[email] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	if len(recent) >= l.max {
		l.hits[email] = recent
		return false
	}
	l.hits[email] = append(recent, now)
	return true
}

// incrWithTTLScript incrementa el contador y fija el vencimiento solo en el primer hit,
// en un unico paso atomico.
const incrWithTTLScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

func incrWithTTL(ctx context.Context, client redisEvaler, key string, ttl time.Duration) (int64, error) {
	seconds := int(ttl.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return client.Eval(ctx, incrWithTTLScript, []string{key}, seconds).Int64()
}

type redisOTPLimiter struct {
	client  redisEvaler
	window  time.Duration
	max     int
	prefix  string
	timeout time.Duration
}

// NewRedisOTPRateLimiter usa una ventana fija compartida entre replicas.
// Si redis no responde la solicitud pasa.
func NewRedisOTPRateLimiter(client *redis.Client, window time.Duration, max int) OTPRateLimiter {
	if client == nil {
		return nil
	}
	window, max = limiterDefaults(window, max)
	return &redisOTPLimiter{
		client:  client,
		window:  window,
		max:     max,
		prefix:  "otp:forgot:rl:",
		timeout: 500 * time.Millisecond,
	}
}

func (l *redisOTPLimiter) Allow(ctx context.Context, email string) bool {
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	count, err := incrWithTTL(ctx, l.client, l.prefix+email, l.window)
	if err != nil {
		return true
	}
	return count <= int64(l.max)
}

func limiterDefaults(window time.Duration, max int) (time.Duration, int) {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return window, max
}
