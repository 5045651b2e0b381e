package reactdrop

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vrsc-tipbot/tipbot/internal/models"
)

const (
	sessionsKey     = "tipbot:reactdrops"
	cancelKeyPrefix = "tipbot:reactdrop:cancel:"
	// cancelTTL outlives the longest allowed drop.
	cancelTTL = 8 * 24 * time.Hour
)

// RedisRegistry shares reactdrop sessions between bot instances.
type RedisRegistry struct {
	client redis.Cmdable
}

func NewRedisRegistry(client redis.Cmdable) *RedisRegistry {
	return &RedisRegistry{client: client}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func cancelKey(id string) string {
	return cancelKeyPrefix + id
}

func (r *RedisRegistry) Register(ctx context.Context, info *SessionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", info.ID, err)
	}
	if err := r.client.HSet(ctx, sessionsKey, info.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to register session %s: %w", info.ID, err)
	}
	return nil
}

func (r *RedisRegistry) Cancel(ctx context.Context, id string) error {
	exists, err := r.client.HExists(ctx, sessionsKey, id).Result()
	if err != nil {
		return fmt.Errorf("failed to look up session %s: %w", id, err)
	}
	if !exists {
		return models.ErrNotFound
	}
	if err := r.client.Set(ctx, cancelKey(id), "1", cancelTTL).Err(); err != nil {
		return fmt.Errorf("failed to cancel session %s: %w", id, err)
	}
	return nil
}

func (r *RedisRegistry) IsCancelled(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, cancelKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *RedisRegistry) Remove(ctx context.Context, id string) error {
	if err := r.client.HDel(ctx, sessionsKey, id).Err(); err != nil {
		return fmt.Errorf("failed to remove session %s: %w", id, err)
	}
	if err := r.client.Del(ctx, cancelKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to clear cancel flag of %s: %w", id, err)
	}
	return nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]*SessionInfo, error) {
	entries, err := r.client.HGetAll(ctx, sessionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	out := make([]*SessionInfo, 0, len(entries))
	for id, raw := range entries {
		var info SessionInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			return nil, fmt.Errorf("corrupt session %s: %w", id, err)
		}
		out = append(out, &info)
	}
	sortByDeadline(out)
	return out, nil
}
