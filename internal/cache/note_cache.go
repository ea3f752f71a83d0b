package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"notemind/internal/model"
)

// NoteCache keeps a short-lived copy of each user's note listing in Redis.
// Every note mutation invalidates the owner's entry.
type NoteCache struct {
	client  *redisv9.Client
	listTTL time.Duration
}

func NewNoteCache(client *redisv9.Client, listTTL time.Duration) *NoteCache {
	if listTTL <= 0 {
		listTTL = 60 * time.Second
	}
	return &NoteCache{
		client:  client,
		listTTL: listTTL,
	}
}

func (c *NoteCache) GetList(ctx context.Context, userID uint) ([]model.Note, bool, error) {
	key := c.listKey(userID)
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get note list failed: %w", err)
	}

	var notes []model.Note
	if err := json.Unmarshal([]byte(raw), &notes); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached note list failed: %w", err)
	}
	return notes, true, nil
}

func (c *NoteCache) SetList(ctx context.Context, userID uint, notes []model.Note) error {
	key := c.listKey(userID)
	payload, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("marshal note list cache failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.listTTL).Err(); err != nil {
		return fmt.Errorf("redis set note list failed: %w", err)
	}
	return nil
}

func (c *NoteCache) Invalidate(ctx context.Context, userID uint) error {
	key := c.listKey(userID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete note list failed: %w", err)
	}
	return nil
}

func (c *NoteCache) listKey(userID uint) string {
	return fmt.Sprintf("notes:list:%d", userID)
}
