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

package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/google/uuid"
	"github.com/greenops/carbon-assistant/gollm"
	"github.com/greenops/carbon-assistant/internal/mocks"
	"github.com/greenops/carbon-assistant/pkg/api"
	"github.com/greenops/carbon-assistant/pkg/journal"
	"go.uber.org/mock/gomock"
)

const calculationResult = `{"emissions_kg": 12.5, "activity": "driving 50km"}`

// promptMatcher matches a CompletionRequest by its prompt.
type promptMatcher struct {
	prompt string
}

func promptIs(prompt string) gomock.Matcher {
	return promptMatcher{prompt: prompt}
}

func (m promptMatcher) Matches(x any) bool {
	req, ok := x.(*gollm.CompletionRequest)
	return ok && req.Prompt == m.prompt
}

func (m promptMatcher) String() string {
	return fmt.Sprintf("has prompt %q", m.prompt)
}

func textResponse(ctrl *gomock.Controller, text string) gollm.CompletionResponse {
	resp := mocks.NewMockCompletionResponse(ctrl)
	resp.EXPECT().Response().Return(text).AnyTimes()
	resp.EXPECT().UsageMetadata().Return(nil).AnyTimes()
	return resp
}

type fixture struct {
	llm   *mocks.MockClient
	calc  *mocks.MockCalculator
	store *mocks.MockConversationStore
	a     *Assistant
}

func newFixture(t *testing.T) (*gomock.Controller, *fixture) {
	ctrl := gomock.NewController(t)
	f := &fixture{
		llm:   mocks.NewMockClient(ctrl),
		calc:  mocks.NewMockCalculator(ctrl),
		store: mocks.NewMockConversationStore(ctrl),
	}
	f.a = &Assistant{
		LLM:        f.llm,
		Calculator: f.calc,
		Store:      f.store,
		NewID:      func() string { return "generated-id" },
	}
	return ctrl, f
}

func parseRequest(t *testing.T, body string) *api.ChatRequest {
	t.Helper()
	req, err := api.ParseChatRequest(body)
	if err != nil {
		t.Fatalf("ParseChatRequest(%q): %v", body, err)
	}
	return req
}

func TestHandle(t *testing.T) {
	calcErr := errors.New("calculation function timed out")

	tests := []struct {
		name   string
		req    *api.ChatRequest
		setup  func(ctrl *gomock.Controller, f *fixture)
		wantID string
		want   string
	}{
		{
			name: "chat path sends input verbatim",
			req:  &api.ChatRequest{Input: "What is solar power?", ConversationID: "conv-1"},
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs("What is solar power?")).
					Return(textResponse(ctrl, "Solar power is..."), nil)
				f.store.EXPECT().StoreConversation(gomock.Any(), "conv-1", "What is solar power?", "Solar power is...").
					Return(nil)
			},
			wantID: "conv-1",
			want:   "Solar power is...",
		},
		{
			name: "calculation path explains the result",
			req:  &api.ChatRequest{Input: "What are the carbon emissions of driving 50km?", ConversationID: "conv-2"},
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.calc.EXPECT().Calculate(gomock.Any(), "What are the carbon emissions of driving 50km?").
					Return(api.CalculationResult(calculationResult), nil)
				f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs(
					`Explain these carbon emission calculation results in detail: {"emissions_kg":12.5,"activity":"driving 50km"}`)).
					Return(textResponse(ctrl, "Driving 50km emits 12.5kg."), nil)
				f.store.EXPECT().StoreConversation(gomock.Any(), "conv-2", "What are the carbon emissions of driving 50km?", "Driving 50km emits 12.5kg.").
					Return(nil)
			},
			wantID: "conv-2",
			want:   "Driving 50km emits 12.5kg.",
		},
		{
			name: "calculation failure falls back to general guidance",
			req:  &api.ChatRequest{Input: "Emissions for a flight to Paris", ConversationID: "conv-3"},
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.calc.EXPECT().Calculate(gomock.Any(), "Emissions for a flight to Paris").Return(nil, calcErr)
				f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs(
					"I apologize, but I encountered an error calculating the exact emissions. However, I can provide general guidance about carbon emissions and energy efficiency. Please explain what someone should know about carbon emissions for Emissions for a flight to Paris")).
					Return(textResponse(ctrl, "Flights emit..."), nil)
				f.store.EXPECT().StoreConversation(gomock.Any(), "conv-3", "Emissions for a flight to Paris", "Flights emit...").
					Return(nil)
			},
			wantID: "conv-3",
			want:   "Flights emit...",
		},
		{
			name: "failed explanation also falls back",
			req:  &api.ChatRequest{Input: "carbon of a burger", ConversationID: "conv-4"},
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.calc.EXPECT().Calculate(gomock.Any(), "carbon of a burger").
					Return(api.CalculationResult(`{"kg":3}`), nil)
				gomock.InOrder(
					f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs(CalculationPrompt(api.CalculationResult(`{"kg":3}`)))).
						Return(nil, errors.New("model rejected the request")),
					f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs(FallbackPrompt("carbon of a burger"))).
						Return(textResponse(ctrl, "Beef is carbon intensive."), nil),
				)
				f.store.EXPECT().StoreConversation(gomock.Any(), "conv-4", "carbon of a burger", "Beef is carbon intensive.").
					Return(nil)
			},
			wantID: "conv-4",
			want:   "Beef is carbon intensive.",
		},
		{
			name: "missing conversation id is generated",
			req:  &api.ChatRequest{Input: "hello"},
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs("hello")).
					Return(textResponse(ctrl, "Hi!"), nil)
				f.store.EXPECT().StoreConversation(gomock.Any(), "generated-id", "hello", "Hi!").Return(nil)
			},
			wantID: "generated-id",
			want:   "Hi!",
		},
		{
			name: "explicit empty conversation id is kept",
			req:  parseRequest(t, `{"input":"hello","conversationId":""}`),
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs("hello")).
					Return(textResponse(ctrl, "Hi!"), nil)
				f.store.EXPECT().StoreConversation(gomock.Any(), "", "hello", "Hi!").Return(nil)
			},
			wantID: "",
			want:   "Hi!",
		},
		{
			name: "null conversation id is generated",
			req:  parseRequest(t, `{"input":"hello","conversationId":null}`),
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs("hello")).
					Return(textResponse(ctrl, "Hi!"), nil)
				f.store.EXPECT().StoreConversation(gomock.Any(), "generated-id", "hello", "Hi!").Return(nil)
			},
			wantID: "generated-id",
			want:   "Hi!",
		},
		{
			name: "empty input takes the chat path",
			req:  &api.ChatRequest{ConversationID: "conv-5"},
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs("")).
					Return(textResponse(ctrl, "How can I help?"), nil)
				f.store.EXPECT().StoreConversation(gomock.Any(), "conv-5", "", "How can I help?").Return(nil)
			},
			wantID: "conv-5",
			want:   "How can I help?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, f := newFixture(t)
			tt.setup(ctrl, f)

			result := f.a.Handle(context.Background(), tt.req)
			if result.Err != nil {
				t.Fatalf("unexpected error: %v", result.Err)
			}
			if result.StatusCode() != 200 {
				t.Errorf("expected status 200, got %d", result.StatusCode())
			}
			if result.Response.ConversationID != tt.wantID {
				t.Errorf("expected conversation id %q, got %q", tt.wantID, result.Response.ConversationID)
			}
			if result.Response.Response != tt.want {
				t.Errorf("expected response %q, got %q", tt.want, result.Response.Response)
			}
		})
	}
}

func TestHandleFailures(t *testing.T) {
	tests := []struct {
		name  string
		req   *api.ChatRequest
		setup func(ctrl *gomock.Controller, f *fixture)
	}{
		{
			name: "store failure is a failure",
			req:  &api.ChatRequest{Input: "hello", ConversationID: "conv-1"},
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs("hello")).
					Return(textResponse(ctrl, "Hi!"), nil)
				f.store.EXPECT().StoreConversation(gomock.Any(), "conv-1", "hello", "Hi!").
					Return(errors.New("ResourceNotFoundException: table not found"))
			},
		},
		{
			name: "model failure on chat path is not stored",
			req:  &api.ChatRequest{Input: "hello", ConversationID: "conv-1"},
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs("hello")).
					Return(nil, errors.New("AccessDeniedException"))
			},
		},
		{
			name: "fallback failure is a failure",
			req:  &api.ChatRequest{Input: "carbon", ConversationID: "conv-1"},
			setup: func(ctrl *gomock.Controller, f *fixture) {
				f.calc.EXPECT().Calculate(gomock.Any(), "carbon").Return(nil, errors.New("boom"))
				f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs(FallbackPrompt("carbon"))).
					Return(nil, errors.New("AccessDeniedException"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, f := newFixture(t)
			tt.setup(ctrl, f)

			result := f.a.Handle(context.Background(), tt.req)
			if result.Err == nil {
				t.Fatalf("expected failure, got %+v", result.Response)
			}
			if result.StatusCode() != 500 {
				t.Errorf("expected status 500, got %d", result.StatusCode())
			}
			body, ok := result.Body().(*api.ErrorResponse)
			if !ok || body.Error == "" {
				t.Errorf("expected an error body, got %#v", result.Body())
			}
		})
	}
}

func TestHandlePersistentThrottling(t *testing.T) {
	_, f := newFixture(t)

	throttled := &types.ThrottlingException{Message: aws.String("Too many requests")}
	f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs("hello")).Return(nil, throttled).Times(3)

	f.a.LLM = gollm.NewRetryClient(f.llm, gollm.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		BackoffFactor:  2,
	})

	result := f.a.Handle(context.Background(), &api.ChatRequest{Input: "hello", ConversationID: "conv-1"})
	if result.StatusCode() != 500 {
		t.Fatalf("expected status 500, got %d", result.StatusCode())
	}
	if !gollm.IsThrottlingError(result.Err) {
		t.Errorf("expected the throttling error to be surfaced, got %v", result.Err)
	}
}

func TestHandleMissingDependencies(t *testing.T) {
	a := &Assistant{}
	result := a.Handle(context.Background(), &api.ChatRequest{Input: "hello"})
	if result.StatusCode() != 500 {
		t.Fatalf("expected status 500, got %d", result.StatusCode())
	}
}

func TestDefaultIDIsUUID(t *testing.T) {
	a := &Assistant{}
	first, second := a.newID(), a.newID()
	if _, err := uuid.Parse(first); err != nil {
		t.Errorf("expected a uuid, got %q: %v", first, err)
	}
	if first == second {
		t.Errorf("expected distinct ids, got %q twice", first)
	}
}

// memoryRecorder keeps trace events in memory.
type memoryRecorder struct {
	mu     sync.Mutex
	events []*journal.Event
}

func (r *memoryRecorder) Write(ctx context.Context, event *journal.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *memoryRecorder) Close() error { return nil }

func (r *memoryRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var actions []string
	for _, e := range r.events {
		actions = append(actions, e.Action)
	}
	return actions
}

func TestHandleRecordsTrace(t *testing.T) {
	ctrl, f := newFixture(t)

	f.calc.EXPECT().Calculate(gomock.Any(), "carbon").Return(nil, errors.New("boom"))
	f.llm.EXPECT().GenerateCompletion(gomock.Any(), promptIs(FallbackPrompt("carbon"))).
		Return(textResponse(ctrl, "ok"), nil)
	f.store.EXPECT().StoreConversation(gomock.Any(), "conv-1", "carbon", "ok").Return(nil)

	recorder := &memoryRecorder{}
	ctx := journal.ContextWithRecorder(context.Background(), recorder)
	if result := f.a.Handle(ctx, &api.ChatRequest{Input: "carbon", ConversationID: "conv-1"}); result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}

	want := []string{
		journal.ActionRouteSelected,
		journal.ActionCalculationFailed,
		journal.ActionModelPrompt,
		journal.ActionModelResponse,
		journal.ActionConversationStored,
	}
	got := recorder.actions()
	if len(got) != len(want) {
		t.Fatalf("expected actions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	for _, e := range recorder.events {
		if e.ConversationID != "conv-1" {
			t.Errorf("event %q has conversation id %q", e.Action, e.ConversationID)
		}
	}
}
