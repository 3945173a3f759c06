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
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/greenops/carbon-assistant/pkg/api"
	"github.com/greenops/carbon-assistant/pkg/journal"
	"github.com/mark3labs/mcp-go/mcp"
)

type stubHandler struct {
	got      *api.ChatRequest
	recorder journal.Recorder
	result   api.Result
}

func (h *stubHandler) Handle(ctx context.Context, req *api.ChatRequest) api.Result {
	h.got = req
	h.recorder = journal.RecorderFromContext(ctx)
	return h.result
}

func callTool(t *testing.T, h *stubHandler, recorder journal.Recorder, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := newCarbonMCPServer(h, recorder)

	var request mcp.CallToolRequest
	request.Params.Name = askToolName
	request.Params.Arguments = args

	result, err := s.handleToolCall(context.Background(), request)
	if err != nil {
		t.Fatalf("handleToolCall: %v", err)
	}
	return result
}

func firstText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return text.Text
}

func TestMCPToolCall(t *testing.T) {
	h := &stubHandler{result: api.Success(&api.ChatResponse{Response: "Trains emit less.", ConversationID: "conv-9"})}

	result := callTool(t, h, nil, map[string]any{"input": "carbon of a train ride", "conversationId": "conv-9"})
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}
	if h.got.Input != "carbon of a train ride" || h.got.ConversationID != "conv-9" {
		t.Errorf("unexpected request %+v", h.got)
	}
	if got := firstText(t, result); got != "Trains emit less." {
		t.Errorf("unexpected text %q", got)
	}
	if len(result.Content) != 2 {
		t.Errorf("expected the conversation id as second content block, got %d blocks", len(result.Content))
	}
}

func TestMCPToolCallFailure(t *testing.T) {
	h := &stubHandler{result: api.Failure(errors.New("table not found"))}

	result := callTool(t, h, nil, map[string]any{"input": "hello"})
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if got := firstText(t, result); got != "Error: table not found" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestMCPToolCallUsesTraceRecorder(t *testing.T) {
	h := &stubHandler{result: api.Success(&api.ChatResponse{Response: "ok", ConversationID: "conv-1"})}
	recorder, err := journal.NewFileRecorder(filepath.Join(t.TempDir(), "trace.yaml"))
	if err != nil {
		t.Fatalf("NewFileRecorder: %v", err)
	}
	defer recorder.Close()

	callTool(t, h, recorder, map[string]any{"input": "hello"})
	if h.recorder != journal.Recorder(recorder) {
		t.Errorf("expected the tool call to carry the trace recorder, got %T", h.recorder)
	}
}
