package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each room document in a redis hash under doc:<roomID>.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to redis and verifies the server is reachable.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{rdb: rdb}, nil
}

func docKey(roomID string) string { return "doc:" + roomID }

func (s *RedisStore) Load(ctx context.Context, roomID string) (*Document, error) {
	data, err := s.rdb.HGetAll(ctx, docKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	doc := &Document{RoomID: roomID, Content: data["content"]}
	if raw, ok := data["last_updated"]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			doc.LastUpdated = ts
		}
	}
	return doc, nil
}

func (s *RedisStore) Save(ctx context.Context, roomID, content string, ts time.Time) error {
	return s.rdb.HSet(ctx, docKey(roomID),
		"content", content,
		"last_updated", ts.UTC().Format(time.RFC3339Nano),
	).Err()
}
