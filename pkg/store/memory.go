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
	"sync"

	"github.com/greenops/carbon-assistant/pkg/api"
)

// InMemoryStore keeps records in a slice and is safe for concurrent use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []*api.ConversationRecord
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make([]*api.ConversationRecord, 0),
	}
}

// PutRecord appends a copy of the record.
func (s *InMemoryStore) PutRecord(ctx context.Context, record *api.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *record
	s.records = append(s.records, &stored)
	return nil
}

// Records returns all records in insertion order.
func (s *InMemoryStore) Records() []*api.ConversationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Return a copy to prevent race conditions on the slice.
	recordsCopy := make([]*api.ConversationRecord, len(s.records))
	copy(recordsCopy, s.records)
	return recordsCopy
}

func (s *InMemoryStore) Close() error {
	return nil
}
