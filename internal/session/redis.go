package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillsmapper/skillsmapper/internal/domain"
)

const redisKeyPrefix = "sms:session:"

// RedisStore implements Store on Redis. Expiry is delegated to Redis key
// TTLs; updates use KEEPTTL so the 30-minute window set at creation is
// never extended.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(phone string) string {
	return redisKeyPrefix + phone
}

// Get retrieves the live session, failing open on Redis errors.
func (s *RedisStore) Get(ctx context.Context, phone string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, redisKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		slog.Error("Get session failed, treating as absent", "phone", phone, "error", err)
		return nil, nil
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		slog.Warn("Discarding unreadable session data", "phone", phone, "error", err)
		return nil, nil
	}
	return &sess, nil
}

// Create starts a fresh session at the welcome step with a new TTL window.
func (s *RedisStore) Create(ctx context.Context, phone string, data domain.SessionData) (*domain.Session, error) {
	now := time.Now()
	sess := &domain.Session{
		PhoneNumber: phone,
		CurrentStep: domain.StepWelcome,
		Data:        data,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	val, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(phone), val, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Update merges the updates into the existing session, keeping its TTL.
func (s *RedisStore) Update(ctx context.Context, phone string, u Updates) (*domain.Session, error) {
	sess, err := s.Get(ctx, phone)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		var data domain.SessionData
		if u.Data != nil {
			data = *u.Data
		}
		created, err := s.Create(ctx, phone, data)
		if err != nil {
			return nil, err
		}
		if u.Step != "" {
			created.CurrentStep = u.Step
			if err := s.put(ctx, created); err != nil {
				return nil, err
			}
		}
		return created, nil
	}

	if u.Step != "" {
		sess.CurrentStep = u.Step
	}
	if u.Data != nil {
		sess.Data = sess.Data.Merge(*u.Data)
	}
	if err := s.put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) put(ctx context.Context, sess *domain.Session) error {
	val, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	err = s.client.Set(ctx, redisKey(sess.PhoneNumber), val, redis.KeepTTL).Err()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// Clear deletes the session key.
func (s *RedisStore) Clear(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, redisKey(phone)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SweepExpired is a no-op: Redis expires session keys natively.
func (s *RedisStore) SweepExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
