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
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/greenops/carbon-assistant/pkg/api"
)

// FileStore appends records to a JSON lines file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates the parent directory of path if needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "carbon-assistant", "conversations.jsonl")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the file records are appended to.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) PutRecord(ctx context.Context, record *api.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling conversation record: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if _, err := f.Write(append(b, '\n')); err != nil {
		f.Close()
		return err
	}
	// The write is only acknowledged once the file is closed cleanly.
	return f.Close()
}

// ReadRecords returns the records in the file. A malformed line is an error.
func (s *FileStore) ReadRecords() ([]*api.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []*api.ConversationRecord
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var record api.ConversationRecord
		if err := decoder.Decode(&record); err != nil {
			return nil, fmt.Errorf("decoding record %d in %s: %w", len(records)+1, s.path, err)
		}
		records = append(records, &record)
	}
	return records, nil
}

func (s *FileStore) Close() error {
	return nil
}
