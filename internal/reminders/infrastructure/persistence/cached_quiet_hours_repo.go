package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jurzon/backy/internal/reminders/domain"
	"github.com/redis/go-redis/v9"
)

const (
	quietHoursKeyPrefix = "backy:quiet_hours:"

	// DefaultQuietHoursTTL bounds how stale a cached window can be.
	DefaultQuietHoursTTL = 10 * time.Minute
)

// cachedQuietHours is the Redis value. Missing marks a user known to have
// no window of their own.
type cachedQuietHours struct {
	Missing   bool      `json:"missing,omitempty"`
	StartHour int       `json:"start_hour"`
	EndHour   int       `json:"end_hour"`
	Timezone  string    `json:"timezone"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CachedQuietHoursRepository is a read-through Redis cache in front of
// another QuietHoursRepository. Redis failures are logged and the inner
// repository answers instead.
type CachedQuietHoursRepository struct {
	inner  domain.QuietHoursRepository
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedQuietHoursRepository wraps inner with a Redis cache.
func NewCachedQuietHoursRepository(inner domain.QuietHoursRepository, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedQuietHoursRepository {
	if ttl <= 0 {
		ttl = DefaultQuietHoursTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedQuietHoursRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func quietHoursKey(userID uuid.UUID) string {
	return quietHoursKeyPrefix + userID.String()
}

func (r *CachedQuietHoursRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.QuietHours, error) {
	key := quietHoursKey(userID)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v cachedQuietHours
		if jsonErr := json.Unmarshal(raw, &v); jsonErr == nil {
			if v.Missing {
				return nil, domain.ErrQuietHoursNotFound
			}
			return domain.RehydrateQuietHours(userID, v.StartHour, v.EndHour, v.Timezone, v.UpdatedAt), nil
		}
		r.logger.Warn("discarding unreadable quiet hours cache entry", "user_id", userID)
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("quiet hours cache read failed", "user_id", userID, "error", err)
	}

	q, err := r.inner.FindByUser(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrQuietHoursNotFound):
		r.store(ctx, key, cachedQuietHours{Missing: true})
		return nil, err
	case err != nil:
		return nil, err
	}
	r.store(ctx, key, cachedQuietHours{
		StartHour: q.StartHour(),
		EndHour:   q.EndHour(),
		Timezone:  q.Timezone(),
		UpdatedAt: q.UpdatedAt(),
	})
	return q, nil
}

func (r *CachedQuietHoursRepository) Save(ctx context.Context, q *domain.QuietHours) error {
	if err := r.inner.Save(ctx, q); err != nil {
		return err
	}
	r.evict(ctx, q.UserID())
	return nil
}

func (r *CachedQuietHoursRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := r.inner.Delete(ctx, userID); err != nil {
		return err
	}
	r.evict(ctx, userID)
	return nil
}

func (r *CachedQuietHoursRepository) store(ctx context.Context, key string, v cachedQuietHours) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("quiet hours cache write failed", "key", key, "error", err)
	}
}

func (r *CachedQuietHoursRepository) evict(ctx context.Context, userID uuid.UUID) {
	if err := r.client.Del(ctx, quietHoursKey(userID)).Err(); err != nil {
		r.logger.Warn("quiet hours cache evict failed", "user_id", userID, "error", err)
	}
}
