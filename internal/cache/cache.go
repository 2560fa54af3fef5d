// Package cache provides the Redis connection and the session action
// journal consumed by the historian worker.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the shared Redis client. Nil when Redis is not configured; all
// journal operations are no-ops in that case.
var Rdb *redis.Client

// journalKey is the list the historian drains.
const journalKey = "session:journal"

// InitRedis connects the shared client and verifies the connection.
func InitRedis(ctx context.Context, addr, password string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", addr, err)
	}
	Rdb = client
	logrus.WithField("addr", addr).Info("redis connected")
	return nil
}

// Close releases the shared client.
func Close() error {
	if Rdb == nil {
		return nil
	}
	err := Rdb.Close()
	Rdb = nil
	return err
}

// SessionActionRecord is one journal entry: a decision, an event, or a
// lifecycle transition, ordered per session by ActionIndex.
type SessionActionRecord struct {
	SessionCode string                 `json:"session_code"`
	ActionIndex int64                  `json:"action_index"`
	ActorID     uuid.UUID              `json:"actor_id"` // Nil for session-level events
	ActionType  string                 `json:"action_type"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   int64                  `json:"timestamp"` // unix millis
}

// PublishSessionAction pushes one record onto the journal list.
func PublishSessionAction(ctx context.Context, rec SessionActionRecord) error {
	if Rdb == nil {
		return nil
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}
	if err := Rdb.LPush(ctx, journalKey, raw).Err(); err != nil {
		return fmt.Errorf("push journal record: %w", err)
	}
	return nil
}
