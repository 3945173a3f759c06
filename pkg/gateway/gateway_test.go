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

package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/greenops/carbon-assistant/pkg/api"
)

// echoHandler records the request and answers with a fixed result.
type echoHandler struct {
	got    *api.ChatRequest
	result api.Result
}

func (h *echoHandler) Handle(ctx context.Context, req *api.ChatRequest) api.Result {
	h.got = req
	return h.result
}

func success() api.Result {
	return api.Success(&api.ChatResponse{Response: "Hi!", ConversationID: "conv-1"})
}

func TestHandleAPIGateway(t *testing.T) {
	tests := []struct {
		name       string
		event      events.APIGatewayProxyRequest
		result     api.Result
		wantStatus int
		wantInput  string
		wantCalled bool
		wantBody   string
	}{
		{
			name:       "success",
			event:      events.APIGatewayProxyRequest{Body: `{"input":"hello","conversationId":"conv-1"}`},
			result:     success(),
			wantStatus: 200,
			wantInput:  "hello",
			wantCalled: true,
			wantBody:   `{"response":"Hi!","conversationId":"conv-1"}`,
		},
		{
			name:       "empty body is an empty request",
			event:      events.APIGatewayProxyRequest{},
			result:     success(),
			wantStatus: 200,
			wantCalled: true,
		},
		{
			name: "base64 body is decoded",
			event: events.APIGatewayProxyRequest{
				Body:            base64.StdEncoding.EncodeToString([]byte(`{"input":"encoded"}`)),
				IsBase64Encoded: true,
			},
			result:     success(),
			wantStatus: 200,
			wantInput:  "encoded",
			wantCalled: true,
		},
		{
			name:       "malformed body is a 500",
			event:      events.APIGatewayProxyRequest{Body: `{"input":`},
			wantStatus: 500,
		},
		{
			name:       "handler failure is a 500",
			event:      events.APIGatewayProxyRequest{Body: `{"input":"hello"}`},
			result:     api.Failure(errors.New("storing conversation conv-1: table not found")),
			wantStatus: 500,
			wantInput:  "hello",
			wantCalled: true,
			wantBody:   `{"error":"storing conversation conv-1: table not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &echoHandler{result: tt.result}
			resp, err := New(h).HandleAPIGateway(context.Background(), tt.event)
			if err != nil {
				t.Fatalf("HandleAPIGateway returned error: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d (body %s)", tt.wantStatus, resp.StatusCode, resp.Body)
			}
			if resp.Headers["Access-Control-Allow-Origin"] != "*" {
				t.Errorf("missing CORS header: %v", resp.Headers)
			}
			if resp.Headers["Content-Type"] != "application/json" {
				t.Errorf("missing content type header: %v", resp.Headers)
			}
			if (h.got != nil) != tt.wantCalled {
				t.Fatalf("handler called = %v, want %v", h.got != nil, tt.wantCalled)
			}
			if h.got != nil && h.got.Input != tt.wantInput {
				t.Errorf("expected input %q, got %q", tt.wantInput, h.got.Input)
			}
			if tt.wantBody != "" && resp.Body != tt.wantBody {
				t.Errorf("expected body %s, got %s", tt.wantBody, resp.Body)
			}
			if tt.wantStatus == 500 {
				var body api.ErrorResponse
				if err := json.Unmarshal([]byte(resp.Body), &body); err != nil || body.Error == "" {
					t.Errorf("expected error body, got %s", resp.Body)
				}
			}
		})
	}
}

func TestServeHTTP(t *testing.T) {
	h := &echoHandler{result: success()}
	srv := httptest.NewServer(New(h))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json", strings.NewReader(`{"input":"hello","conversationId":"conv-1"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected CORS header, got %q", got)
	}
	var body api.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Response != "Hi!" || body.ConversationID != "conv-1" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestServeHTTPMethods(t *testing.T) {
	tests := []struct {
		method     string
		wantStatus int
	}{
		{method: http.MethodOptions, wantStatus: http.StatusNoContent},
		{method: http.MethodGet, wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			h := &echoHandler{result: success()}
			rec := httptest.NewRecorder()
			New(h).ServeHTTP(rec, httptest.NewRequest(tt.method, "/", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Errorf("missing CORS header")
			}
			if h.got != nil {
				t.Errorf("handler should not be called for %s", tt.method)
			}
		})
	}
}
