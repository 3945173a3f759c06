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

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// RecordTypeConversation is the type tag stored on every conversation record.
const RecordTypeConversation = "conversation"

// ConversationRecord is a single persisted exchange. Records are only ever inserted.
type ConversationRecord struct {
	ConversationID string `json:"conversationId" dynamodbav:"conversationId"`
	// Timestamp is milliseconds since the epoch, encoded as a decimal string.
	Timestamp string `json:"timestamp" dynamodbav:"timestamp"`
	UserInput string `json:"userInput" dynamodbav:"userInput"`
	Response  string `json:"response" dynamodbav:"response"`
	Type      string `json:"type" dynamodbav:"type"`
}

// ChatRequest is the decoded request body.
type ChatRequest struct {
	Input          string `json:"input"`
	ConversationID string `json:"conversationId,omitempty"`

	// conversationIDSet records a non-null conversationId in the decoded body, even an empty one.
	conversationIDSet bool
}

func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	type plain ChatRequest
	var decoded struct {
		plain
		ConversationID *string `json:"conversationId"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = ChatRequest(decoded.plain)
	if decoded.ConversationID != nil {
		r.ConversationID = *decoded.ConversationID
		r.conversationIDSet = true
	}
	return nil
}

// HasConversationID reports whether the caller supplied a conversation id.
// An explicit empty string counts; an absent or null field does not.
func (r *ChatRequest) HasConversationID() bool {
	return r.ConversationID != "" || r.conversationIDSet
}

// ParseChatRequest decodes a request body. An empty body is treated as "{}".
func ParseChatRequest(body string) (*ChatRequest, error) {
	req := &ChatRequest{}
	if strings.TrimSpace(body) == "" {
		return req, nil
	}
	if err := json.Unmarshal([]byte(body), req); err != nil {
		return nil, fmt.Errorf("parsing request body: %w", err)
	}
	return req, nil
}

// ChatResponse is the success body.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

// ErrorResponse is the failure body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CalculationResult is the opaque payload returned by the calculation service.
type CalculationResult json.RawMessage

// String renders the payload as compact JSON text for embedding into a prompt.
func (r CalculationResult) String() string {
	var b bytes.Buffer
	if err := json.Compact(&b, r); err != nil {
		return string(r)
	}
	return b.String()
}

// Result is the outcome of handling one request: either a ChatResponse or an error.
type Result struct {
	Response *ChatResponse
	Err      error
}

func Success(resp *ChatResponse) Result {
	return Result{Response: resp}
}

func Failure(err error) Result {
	return Result{Err: err}
}

// StatusCode is 200 for a success and 500 for any failure.
func (r Result) StatusCode() int {
	if r.Err != nil || r.Response == nil {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

// Body returns the value to serialize as the response body.
func (r Result) Body() any {
	if r.Err != nil {
		return &ErrorResponse{Error: r.Err.Error()}
	}
	if r.Response == nil {
		return &ErrorResponse{Error: "no response produced"}
	}
	return r.Response
}

// ResponseHeaders returns the headers sent with every response.
func ResponseHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
}
