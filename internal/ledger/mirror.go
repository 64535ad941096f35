package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const workflowStream = "agora:workflows"

// RedisMirror copies ledger records onto a Redis Stream so that other
// services can tail the workflow history.
type RedisMirror struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisMirror connects to Redis and verifies the connection.
func NewRedisMirror(redisURL string, logger *zap.Logger) (*RedisMirror, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisMirror{rdb: rdb, logger: logger}, nil
}

// Append publishes one record to the workflow stream.
func (m *RedisMirror) Append(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = m.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: workflowStream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		m.logger.Warn("workflow mirror append failed",
			zap.String("workflow", rec.ID), zap.Error(err))
		return fmt.Errorf("append to %s: %w", workflowStream, err)
	}
	return nil
}

// Tail reads workflow records from the stream, starting after lastID
// ("$" for new entries only). Cancel the context to stop.
func (m *RedisMirror) Tail(ctx context.Context, lastID string) <-chan Record {
	ch := make(chan Record, 16)
	if lastID == "" {
		lastID = "$"
	}

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := m.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{workflowStream, lastID},
				Count:   10,
				Block:   time.Second * 2,
			}).Result()
			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var rec Record
					if json.Unmarshal([]byte(data), &rec) == nil {
						ch <- rec
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (m *RedisMirror) Close() error {
	return m.rdb.Close()
}
