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

package journal

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.yaml")

	recorder, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	ctx := ContextWithRecorder(context.Background(), recorder)

	Record(ctx, ActionRouteSelected, "abc", map[string]any{"route": "calculation"})
	Record(ctx, ActionModelPrompt, "abc", "Explain these carbon emission calculation results in detail: {}")
	Record(ctx, ActionConversationStored, "abc", nil)

	if err := recorder.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events, err := ParseEventsFromFile(path)
	if err != nil {
		t.Fatalf("ParseEventsFromFile: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	wantActions := []string{ActionRouteSelected, ActionModelPrompt, ActionConversationStored}
	for i, want := range wantActions {
		if events[i].Action != want {
			t.Errorf("event %d: expected action %q, got %q", i, want, events[i].Action)
		}
		if events[i].ConversationID != "abc" {
			t.Errorf("event %d: expected conversation id %q, got %q", i, "abc", events[i].ConversationID)
		}
		if events[i].Timestamp.IsZero() {
			t.Errorf("event %d: missing timestamp", i)
		}
	}

	prompt, ok := events[1].Payload.(string)
	if !ok || !strings.HasPrefix(prompt, "Explain these carbon emission") {
		t.Errorf("unexpected prompt payload %#v", events[1].Payload)
	}
}

func TestRecorderFromContextDefaultsToLog(t *testing.T) {
	if _, ok := RecorderFromContext(context.Background()).(*LogRecorder); !ok {
		t.Fatal("expected LogRecorder when no recorder is set")
	}
}

func TestParseEventsSkipsEmptyDocuments(t *testing.T) {
	input := "action: a\n---\n\n---\naction: b\n"
	events, err := ParseEvents(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	if len(events) != 2 || events[0].Action != "a" || events[1].Action != "b" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
