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
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

// Actions recorded while handling a request.
const (
	ActionRouteSelected      = "route-selected"
	ActionCalculationDone    = "calculation-done"
	ActionCalculationFailed  = "calculation-failed"
	ActionModelPrompt        = "model-prompt"
	ActionModelResponse      = "model-response"
	ActionConversationStored = "conversation-stored"
	ActionRequestFailed      = "request-failed"
)

// Recorder is an interface for recording a structured trace of how requests were handled.
type Recorder interface {
	io.Closer

	// Write will add an event to the recorder.
	Write(ctx context.Context, event *Event) error
}

type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Action         string    `json:"action"`
	ConversationID string    `json:"conversationId,omitempty"`
	Payload        any       `json:"payload,omitempty"`
}

// Record writes an event to the recorder carried by ctx.
// Trace failures are logged and never interrupt request handling.
func Record(ctx context.Context, action, conversationID string, payload any) {
	event := &Event{
		Timestamp:      time.Now(),
		Action:         action,
		ConversationID: conversationID,
		Payload:        payload,
	}
	if err := RecorderFromContext(ctx).Write(ctx, event); err != nil {
		klog.FromContext(ctx).Error(err, "writing trace event", "action", action)
	}
}

// FileRecorder appends events to a file as a multi-document YAML stream.
type FileRecorder struct {
	mu sync.Mutex
	f  *os.File
}

// NewFileRecorder creates a new FileRecorder that appends to the given file.
func NewFileRecorder(path string) (*FileRecorder, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	return &FileRecorder{
		f: file,
	}, nil
}

// Close closes the file.
func (r *FileRecorder) Close() error {
	return r.f.Close()
}

func (r *FileRecorder) Write(ctx context.Context, event *Event) error {
	yamlBytes, err := yaml.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	var b bytes.Buffer
	b.Write(yamlBytes)
	b.Write([]byte("\n---\n"))

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.f.Write(b.Bytes())
	return err
}
