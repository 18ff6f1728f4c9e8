package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink pushes audit events onto a capped Redis list so an external
// collector can drain them.
type RedisSink struct {
	client     *redis.Client
	key        string
	maxEntries int64
}

func NewRedisSink(addr, password, key string, maxEntries int64, timeout time.Duration) (*RedisSink, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is empty")
	}
	if key == "" {
		key = "ragfence:incidents"
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	return &RedisSink{
		client:     client,
		key:        key,
		maxEntries: maxEntries,
	}, nil
}

func (s *RedisSink) Name() string { return "redis:" + s.key }

func (s *RedisSink) Deliver(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, payload)
	pipe.LTrim(ctx, s.key, 0, s.maxEntries-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push event: %w", err)
	}
	return nil
}

func (s *RedisSink) Close(context.Context) error {
	return s.client.Close()
}
