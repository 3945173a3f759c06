// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gollm

import (
	"context"
	"io"
)

// Client is a client for a language model.
type Client interface {
	io.Closer

	// GenerateCompletion generates a single completion for a given prompt.
	// Each call is independent; no conversation history is carried between calls.
	GenerateCompletion(ctx context.Context, req *CompletionRequest) (CompletionResponse, error)

	// ListModels lists the models available in the LLM.
	ListModels(ctx context.Context) ([]string, error)
}

// CompletionRequest is a request to generate a completion for a given prompt.
type CompletionRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	// MaxTokens caps the completion length. Zero means the client default.
	MaxTokens int `json:"maxTokens,omitempty"`
}

// CompletionResponse is a response from the GenerateCompletion method.
type CompletionResponse interface {
	Response() string
	UsageMetadata() any
}

// simpleCompletionResponse is a CompletionResponse backed by plain values.
type simpleCompletionResponse struct {
	content string
	usage   any
}

var _ CompletionResponse = (*simpleCompletionResponse)(nil)

func (r *simpleCompletionResponse) Response() string {
	return r.content
}

func (r *simpleCompletionResponse) UsageMetadata() any {
	return r.usage
}
