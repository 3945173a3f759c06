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

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/greenops/carbon-assistant/pkg/journal"
)

func TestPrintTraceFiltersConversation(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	events := []*journal.Event{
		{Timestamp: ts, Action: journal.ActionRouteSelected, ConversationID: "a", Payload: map[string]any{"route": "chat"}},
		{Timestamp: ts, Action: journal.ActionConversationStored, ConversationID: "b"},
	}

	var out bytes.Buffer
	if err := printTrace(&out, events, "a"); err != nil {
		t.Fatalf("printTrace: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, journal.ActionRouteSelected) || !strings.Contains(got, "  route: chat") {
		t.Errorf("expected route event with indented payload, got:\n%s", got)
	}
	if strings.Contains(got, journal.ActionConversationStored) {
		t.Errorf("events of other conversations should be skipped, got:\n%s", got)
	}
}
