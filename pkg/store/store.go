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

// Package store persists conversation records. Every write is an insert.
package store

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/greenops/carbon-assistant/pkg/api"
	"k8s.io/klog/v2"
)

// DefaultTableName is the table (or key prefix) conversation records are written to.
const DefaultTableName = "carbon-assistant-data"

// Backend inserts conversation records into a durable store.
type Backend interface {
	io.Closer

	// PutRecord inserts the record. It returns nil only once the store acknowledged the write.
	PutRecord(ctx context.Context, record *api.ConversationRecord) error
}

// NewRecord builds the record for one exchange, stamped with now in milliseconds.
func NewRecord(conversationID, userInput, response string, now time.Time) *api.ConversationRecord {
	return &api.ConversationRecord{
		ConversationID: conversationID,
		Timestamp:      strconv.FormatInt(now.UnixMilli(), 10),
		UserInput:      userInput,
		Response:       response,
		Type:           api.RecordTypeConversation,
	}
}

// ConversationWriter turns an exchange into a record and inserts it into a Backend.
type ConversationWriter struct {
	backend Backend
	now     func() time.Time
}

func NewConversationWriter(backend Backend) *ConversationWriter {
	return &ConversationWriter{
		backend: backend,
		now:     time.Now,
	}
}

// StoreConversation inserts a new record for the exchange.
func (w *ConversationWriter) StoreConversation(ctx context.Context, conversationID, userInput, response string) error {
	log := klog.FromContext(ctx)

	record := NewRecord(conversationID, userInput, response, w.now())
	if err := w.backend.PutRecord(ctx, record); err != nil {
		log.Error(err, "Storing conversation failed", "conversationId", conversationID)
		return fmt.Errorf("storing conversation %s: %w", conversationID, err)
	}

	log.V(1).Info("Stored conversation", "conversationId", conversationID, "timestamp", record.Timestamp)
	return nil
}

// Close closes the underlying backend.
func (w *ConversationWriter) Close() error {
	return w.backend.Close()
}

// Config selects and configures a Backend.
type Config struct {
	// Driver is one of dynamodb, redis, mysql, file, memory.
	Driver    string `json:"driver,omitempty"`
	TableName string `json:"tableName,omitempty"`

	RedisAddress  string `json:"redisAddress,omitempty"`
	RedisPassword string `json:"redisPassword,omitempty"`
	RedisDB       int    `json:"redisDB,omitempty"`

	MySQLDSN string `json:"mysqlDSN,omitempty"`

	FilePath string `json:"filePath,omitempty"`
}

// New builds the Backend named by cfg.Driver. awsCfg is only used by the dynamodb driver.
func New(ctx context.Context, cfg Config, awsCfg aws.Config) (Backend, error) {
	table := cfg.TableName
	if table == "" {
		table = DefaultTableName
	}

	switch cfg.Driver {
	case "", "dynamodb":
		return NewDynamoDBStoreFromConfig(awsCfg, table), nil
	case "redis":
		return NewRedisStore(ctx, RedisConfig{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: table,
		})
	case "mysql":
		return NewMySQLStore(ctx, MySQLConfig{DSN: cfg.MySQLDSN, Table: mysqlTableName(table)})
	case "file":
		return NewFileStore(cfg.FilePath)
	case "memory":
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
