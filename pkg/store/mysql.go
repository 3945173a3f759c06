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
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/greenops/carbon-assistant/pkg/api"
)

// MySQLConfig describes the MySQL connection used by MySQLStore.
type MySQLConfig struct {
	DSN             string
	Table           string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MySQLStore inserts records into a table with a non-unique (conversation_id, timestamp_ms) index.
type MySQLStore struct {
	db        *sql.DB
	insertSQL string
}

// NewMySQLStore opens the database, verifies the connection and creates the table if missing.
func NewMySQLStore(ctx context.Context, cfg MySQLConfig) (*MySQLStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("mysql DSN must not be empty")
	}
	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing mysql DSN: %w", err)
	}
	table := cfg.Table
	if table == "" {
		table = mysqlTableName(DefaultTableName)
	}

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("opening mysql: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(5)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to mysql: %w", err)
	}

	if _, err := db.ExecContext(ctx, mysqlSchema(table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table %s: %w", table, err)
	}

	return &MySQLStore{
		db:        db,
		insertSQL: mysqlInsert(table),
	}, nil
}

func mysqlSchema(table string) string {
	return "CREATE TABLE IF NOT EXISTS `" + table + "` (" +
		"id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY," +
		"conversation_id VARCHAR(255) NOT NULL," +
		"timestamp_ms VARCHAR(20) NOT NULL," +
		"user_input MEDIUMTEXT NOT NULL," +
		"response MEDIUMTEXT NOT NULL," +
		"record_type VARCHAR(32) NOT NULL," +
		"KEY idx_conversation (conversation_id, timestamp_ms)" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
}

func mysqlInsert(table string) string {
	return "INSERT INTO `" + table + "` (conversation_id, timestamp_ms, user_input, response, record_type) VALUES (?, ?, ?, ?, ?)"
}

// mysqlTableName maps a table name onto a safe MySQL identifier.
func mysqlTableName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func (s *MySQLStore) PutRecord(ctx context.Context, record *api.ConversationRecord) error {
	if _, err := s.db.ExecContext(ctx, s.insertSQL,
		record.ConversationID,
		record.Timestamp,
		record.UserInput,
		record.Response,
		record.Type,
	); err != nil {
		return fmt.Errorf("mysql insert conversation record: %w", err)
	}
	return nil
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}
