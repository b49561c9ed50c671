// internal/journal/redis.go

// Package journal pushes event metadata to a Redis queue for offline
// analysis. Only envelope fields are recorded, never payloads, so mission
// choices stay anonymous even in the journal.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list the journal pushes to.
var DefaultQueueName = "resistance_events"

// Entry is one journaled event envelope.
type Entry struct {
	RoomCode  string `json:"room_code"`
	Type      string `json:"type"`
	SenderID  string `json:"sender_id"`
	Timestamp int64  `json:"timestamp"`
}

// Journal is a Redis-backed event journal. A nil Journal is valid and
// records nothing.
type Journal struct {
	rdb   *redis.Client
	log   *logrus.Logger
	queue string
}

// Connect initializes a journal from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
//   - JOURNAL_QUEUE_NAME (optional)
func Connect(logger *logrus.Logger) (*Journal, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Journal{
		rdb:   rdb,
		log:   logger,
		queue: getEnv("JOURNAL_QUEUE_NAME", DefaultQueueName),
	}, nil
}

// Record pushes one entry to the journal queue. Failures are logged, not
// surfaced: the journal is an observer, never a gate on the broadcast path.
func (j *Journal) Record(ctx context.Context, e Entry) {
	if j == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		j.log.Warnf("journal: marshal entry: %v", err)
		return
	}
	if err := j.rdb.RPush(ctx, j.queue, data).Err(); err != nil {
		j.log.Warnf("journal: RPush to '%s': %v", j.queue, err)
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

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
