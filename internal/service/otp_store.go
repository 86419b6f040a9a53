package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultOTPTTL = 300 * time.Second

// ErrOTPNotFound indica que no hay codigo vigente para el email.
var ErrOTPNotFound = errors.New("otp not found")

// OTPRecord es el codigo de recuperacion pendiente de un email.
type OTPRecord struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"codeHash"`
	CreatedAt time.Time `json:"createdAt"`
}

// OTPStore guarda codigos con TTL absoluto. Vencido el TTL el registro deja de existir.
// Attempt cuenta los intentos de verificacion del codigo vigente; Save reinicia la cuenta.
type OTPStore interface {
	Save(ctx context.Context, rec OTPRecord) error
	Get(ctx context.Context, email string) (OTPRecord, error)
	Attempt(ctx context.Context, email string) (int, error)
	Delete(ctx context.Context, email string) error
}

type memoryOTPStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	records  map[string]OTPRecord
	attempts map[string]int
}

// NewMemoryOTPStore crea un store en memoria para un solo proceso.
func NewMemoryOTPStore(ttl time.Duration) OTPStore {
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &memoryOTPStore{
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		records:  make(map[string]OTPRecord),
		attempts: make(map[string]int),
	}
}

func (s *memoryOTPStore) Save(_ context.Context, rec OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	key := normalizeEmail(rec.Email)
	s.records[key] = rec
	delete(s.attempts, key)
	return nil
}

func (s *memoryOTPStore) Get(_ context.Context, email string) (OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(normalizeEmail(email))
}

func (s *memoryOTPStore) Attempt(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeEmail(email)
	if _, err := s.current(key); err != nil {
		return 0, err
	}
	s.attempts[key]++
	return s.attempts[key], nil
}

func (s *memoryOTPStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeEmail(email)
	delete(s.records, key)
	delete(s.attempts, key)
	return nil
}

// current requiere s.mu tomado.
func (s *memoryOTPStore) current(key string) (OTPRecord, error) {
	rec, ok := s.records[key]
	if !ok {
		return OTPRecord{}, ErrOTPNotFound
	}
	if !s.now().Before(rec.CreatedAt.Add(s.ttl)) {
		delete(s.records, key)
		delete(s.attempts, key)
		return OTPRecord{}, ErrOTPNotFound
	}
	return rec, nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	redisEvaler
}

type redisOTPStore struct {
	client         redisKV
	ttl            time.Duration
	prefix         string
	attemptsPrefix string
}

// NewRedisOTPStore guarda los codigos con SET EX; redis se encarga del vencimiento.
func NewRedisOTPStore(client *redis.Client, ttl time.Duration) OTPStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &redisOTPStore{client: client, ttl: ttl, prefix: "otp:code:", attemptsPrefix: "otp:attempts:"}
}

func (s *redisOTPStore) key(email string) string {
	return s.prefix + normalizeEmail(email)
}

func (s *redisOTPStore) attemptsKey(email string) string {
	return s.attemptsPrefix + normalizeEmail(email)
}

func (s *redisOTPStore) Save(ctx context.Context, rec OTPRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(rec.Email), payload, s.ttl).Err(); err != nil {
		return err
	}
	return s.client.Del(ctx, s.attemptsKey(rec.Email)).Err()
}

func (s *redisOTPStore) Get(ctx context.Context, email string) (OTPRecord, error) {
	raw, err := s.client.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return OTPRecord{}, ErrOTPNotFound
		}
		return OTPRecord{}, err
	}
	var rec OTPRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return OTPRecord{}, err
	}
	return rec, nil
}

func (s *redisOTPStore) Delete(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(email), s.attemptsKey(email)).Err()
}

// Attempt vence junto con el TTL del codigo, contado desde el primer intento.
func (s *redisOTPStore) Attempt(ctx context.Context, email string) (int, error) {
	n, err := incrWithTTL(ctx, s.client, s.attemptsKey(email), s.ttl)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
