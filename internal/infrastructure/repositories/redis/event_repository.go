package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vigilcam/internal/core/domain"
	"vigilcam/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisEventRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisEventRepository(client *redis.Client) ports.EventRepository {
	return &RedisEventRepository{
		client: client,
		prefix: "vigilcam:event:",
	}
}

func (r *RedisEventRepository) eventKey(id domain.EventID) string {
	return r.prefix + string(id)
}

// recentKey is the sorted set indexing events by creation time.
func (r *RedisEventRepository) recentKey() string {
	return r.prefix + "recent"
}

func (r *RedisEventRepository) Save(ctx context.Context, event *domain.CameraEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := r.eventKey(event.ID)
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set event in Redis: %w", err)
	}

	// Index by creation time for recency queries
	if err := r.client.ZAdd(ctx, r.recentKey(), redis.Z{
		Score:  float64(event.CreatedAt.UnixNano()),
		Member: string(event.ID),
	}).Err(); err != nil {
		return fmt.Errorf("failed to index event in Redis: %w", err)
	}

	return nil
}

func (r *RedisEventRepository) GetByID(ctx context.Context, id domain.EventID) (*domain.CameraEvent, error) {
	data, err := r.client.Get(ctx, r.eventKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event from Redis: %w", err)
	}

	var event domain.CameraEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}

func (r *RedisEventRepository) ListRecent(ctx context.Context, limit int) ([]*domain.CameraEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	ids, err := r.client.ZRevRange(ctx, r.recentKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent events from Redis: %w", err)
	}

	events := make([]*domain.CameraEvent, 0, len(ids))
	for _, id := range ids {
		event, err := r.GetByID(ctx, domain.EventID(id))
		if err == domain.ErrEventNotFound {
			// Index entry outlived the event; drop it lazily.
			r.client.ZRem(ctx, r.recentKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, nil
}

func (r *RedisEventRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	max := fmt.Sprintf("%d", cutoff.UnixNano())
	ids, err := r.client.ZRangeByScore(ctx, r.recentKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + max,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to query stale events from Redis: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, r.eventKey(domain.EventID(id)))
		pipe.ZRem(ctx, r.recentKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to prune events from Redis: %w", err)
	}

	return len(ids), nil
}
