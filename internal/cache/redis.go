// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for turn action logs.
var DefaultQueueName = "tycoon_actions"

// GameActionRecord holds the minimal info needed by the historian.
type GameActionRecord struct {
	ID            uuid.UUID              `json:"id"`
	GameID        int                    `json:"game_id"`
	GameCode      string                 `json:"game_code"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   int                    `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Connect creates a Redis client from environment variables and pings it:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func Connect(ctx context.Context) (*redis.Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   getEnvInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// QueueName returns the configured historian queue.
func QueueName() string {
	return getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
}

// Lister is the subset of the Redis client used for the action queue.
type Lister interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Publisher pushes action records onto the historian queue.
type Publisher struct {
	rdb   Lister
	queue string
}

// NewPublisher wraps a Redis client.
func NewPublisher(rdb Lister, queue string) *Publisher {
	return &Publisher{rdb: rdb, queue: queue}
}

// PublishGameAction serializes the record to JSON and pushes it to the queue.
func (p *Publisher) PublishGameAction(ctx context.Context, record GameActionRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// Queue pops action records for the historian.
type Queue struct {
	rdb   Lister
	queue string
}

// NewQueue wraps a Redis client.
func NewQueue(rdb Lister, queue string) *Queue {
	return &Queue{rdb: rdb, queue: queue}
}

// Pop blocks up to timeout for one record. It returns (nil, nil) when the queue stayed empty.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*GameActionRecord, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.queue, err)
	}
	if len(res) < 2 {
		return nil, nil
	}
	var rec GameActionRecord
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	return &rec, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
