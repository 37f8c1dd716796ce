// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/mantisfury/arkham-core/internal/logger"
)

// NewRedisClient dials addr/db/password (typically sourced from Config or
// its ARKHAM_REDIS_* env overrides) and verifies the connection with a
// Ping before returning, so the Frame can fall back to an in-process
// queue rather than hand back a client that will fail on first use.
func NewRedisClient(ctx context.Context, addr string, db int, password string) (*redis.Client, error) {
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	if password == "" {
		password = os.Getenv("REDIS_PASSWORD")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       db,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("redis ping to %s failed: %v", addr, err)
		return nil, err
	}

	logger.Printf("connected to redis at %s (db=%d)", addr, db)
	return client, nil
}
