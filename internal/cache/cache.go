// Package cache publishes per-room action history to Redis. Everything here
// is optional: a nil Publisher silently drops records so rooms never need to
// know whether Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// historyCap bounds the per-room action list so abandoned rooms cannot grow
// without limit.
const historyCap = 512

// ActionRecord is one applied room action, as stored in the room's history
// list.
type ActionRecord struct {
	ID         string `json:"id"`
	RoomID     string `json:"roomId"`
	ActorID    string `json:"actorId,omitempty"`
	ActionType string `json:"actionType"`
	Timestamp  int64  `json:"timestamp"`
}

// Publisher writes action records to Redis lists, newest first.
type Publisher struct {
	rdb *redis.Client
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func NewPublisher(rdb *redis.Client) *Publisher {
	if rdb == nil {
		return nil
	}
	return &Publisher{rdb: rdb}
}

func historyKey(roomID string) string {
	return "room:" + roomID + ":actions"
}

// Publish prepends the record to the room's history list and trims the list
// to its cap. A nil receiver is a no-op.
func (p *Publisher) Publish(ctx context.Context, rec ActionRecord) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding action record: %w", err)
	}
	pipe := p.rdb.Pipeline()
	pipe.LPush(ctx, historyKey(rec.RoomID), payload)
	pipe.LTrim(ctx, historyKey(rec.RoomID), 0, historyCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing action record: %w", err)
	}
	return nil
}

// Recent returns up to n of the room's most recent action records, newest
// first. A nil receiver returns an empty slice.
func (p *Publisher) Recent(ctx context.Context, roomID string, n int64) ([]ActionRecord, error) {
	if p == nil || p.rdb == nil {
		return nil, nil
	}
	raw, err := p.rdb.LRange(ctx, historyKey(roomID), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading action history: %w", err)
	}
	out := make([]ActionRecord, 0, len(raw))
	for _, item := range raw {
		var rec ActionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
