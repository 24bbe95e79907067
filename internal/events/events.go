// Package events publishes profile-service notifications on Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Channel names.
const (
	ImportCompleted = "EVENT_IMPORT_COMPLETED"
	ProfilesMerged  = "EVENT_PROFILES_MERGED"
	ProfileImported = "EVENT_PROFILE_IMPORTED"
)

// Publisher sends a JSON-encodable payload to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// RedisPublisher publishes on Redis pub/sub.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", channel, err)
	}
	if err := p.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// LogPublisher only logs events. Used when REDIS_URL is unset.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, channel string, payload any) error {
	slog.Info("event", "channel", channel, "payload", payload)
	return nil
}

// Emit publishes and downgrades any failure to a warning. Event delivery
// never fails the operation that triggered it.
func Emit(ctx context.Context, pub Publisher, channel string, payload any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, channel, payload); err != nil {
		slog.Warn("publish "+channel+" failed", "err", err)
	}
}

// ImportCompletedEvent is the payload of EVENT_IMPORT_COMPLETED.
type ImportCompletedEvent struct {
	RunID     string `json:"runId"`
	Actor     string `json:"actor,omitempty"`
	MatchMode string `json:"matchMode"`
	Mode      string `json:"mode"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	Errors    int    `json:"errors"`
}

// ProfileImportedEvent is the payload of EVENT_PROFILE_IMPORTED, sent per
// created or updated row.
type ProfileImportedEvent struct {
	RunID     string `json:"runId"`
	ProfileID int64  `json:"profileId"`
	Action    string `json:"action"`
}

// ProfilesMergedEvent is the payload of EVENT_PROFILES_MERGED.
type ProfilesMergedEvent struct {
	PrimaryID   int64  `json:"primaryId"`
	SecondaryID int64  `json:"secondaryId"`
	Actor       string `json:"actor,omitempty"`
}
