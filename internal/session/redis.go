package session

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"restopos/backend/internal/domain"
)

const (
	daySessionKey   = "restopos:day-session"
	revokedKeyspace = "restopos:revoked:"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string, password string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStore{client: client}
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) GetDaySession(ctx context.Context) (*domain.DaySession, error) {
	val, err := r.client.Get(ctx, daySessionKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var day domain.DaySession
	if err := json.Unmarshal([]byte(val), &day); err != nil {
		return nil, err
	}
	return &day, nil
}

func (r *RedisStore) StartDaySession(ctx context.Context, candidate domain.DaySession) (domain.DaySession, bool, error) {
	payload, err := json.Marshal(candidate)
	if err != nil {
		return domain.DaySession{}, false, err
	}
	stored, err := r.client.SetNX(ctx, daySessionKey, payload, 0).Result()
	if err != nil {
		return domain.DaySession{}, false, err
	}
	if stored {
		return candidate, true, nil
	}
	existing, err := r.GetDaySession(ctx)
	if err != nil {
		return domain.DaySession{}, false, err
	}
	if existing == nil {
		// Cleared between SETNX and GET; try once more.
		return r.StartDaySession(ctx, candidate)
	}
	return *existing, false, nil
}

func (r *RedisStore) ClearDaySession(ctx context.Context) error {
	return r.client.Del(ctx, daySessionKey).Err()
}

func (r *RedisStore) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyspace+tokenID, "1", ttl).Err()
}

func (r *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyspace+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
