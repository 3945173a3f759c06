// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/greenops/carbon-assistant/pkg/api"
	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the Redis connection used by RedisStore.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore appends each record to a list keyed by conversation id.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address must not be empty")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultTableName
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Address, err)
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func redisKey(prefix, conversationID string) string {
	return prefix + ":conversation:" + conversationID
}

func (s *RedisStore) PutRecord(ctx context.Context, record *api.ConversationRecord) error {
	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling conversation record: %w", err)
	}
	if err := s.client.RPush(ctx, redisKey(s.prefix, record.ConversationID), b).Err(); err != nil {
		return fmt.Errorf("redis append conversation record: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
