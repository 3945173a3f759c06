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
	"errors"
	"fmt"
	"os"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"k8s.io/klog/v2"
)

// Package-level env var storage (OpenAI env)
var (
	openAIAPIKey   string
	openAIEndpoint string
	openAIAPIBase  string
	openAIModel    string
)

// init reads and caches OpenAI environment variables:
//   - OPENAI_API_KEY, OPENAI_ENDPOINT, OPENAI_API_BASE, OPENAI_MODEL
//
// After loading env values, it registers the OpenAI provider factory.
func init() {
	openAIAPIKey = os.Getenv("OPENAI_API_KEY")
	openAIEndpoint = os.Getenv("OPENAI_ENDPOINT")
	openAIAPIBase = os.Getenv("OPENAI_API_BASE")
	openAIModel = os.Getenv("OPENAI_MODEL")

	if err := RegisterProvider("openai", newOpenAIClientFactory); err != nil {
		klog.Fatalf("Failed to register openai provider: %v", err)
	}
}

func newOpenAIClientFactory(ctx context.Context, opts ClientOptions) (Client, error) {
	return NewOpenAIClient(ctx, opts)
}

// OpenAIClient implements the gollm.Client interface for OpenAI models.
type OpenAIClient struct {
	client    openai.Client
	model     string
	maxTokens int
}

var _ Client = &OpenAIClient{}

// NewOpenAIClient creates a new client for interacting with OpenAI or an OpenAI-compatible endpoint.
func NewOpenAIClient(ctx context.Context, opts ClientOptions) (*OpenAIClient, error) {
	apiKey := openAIAPIKey
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not found. Set via OPENAI_API_KEY env var")
	}

	// Throttling is retried by NewRetryClient, not by the SDK.
	options := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}

	baseURL := openAIEndpoint
	if baseURL == "" {
		baseURL = openAIAPIBase
	}
	if baseURL != "" {
		klog.Infof("Using custom OpenAI base URL: %s", baseURL)
		options = append(options, option.WithBaseURL(baseURL))
	}

	options = append(options, option.WithHTTPClient(createCustomHTTPClient(opts.SkipVerifySSL)))

	return &OpenAIClient{
		client:    openai.NewClient(options...),
		model:     getOpenAIModel(opts.Model),
		maxTokens: opts.MaxTokens,
	}, nil
}

// Close cleans up any resources used by the client.
func (c *OpenAIClient) Close() error {
	return nil
}

// GenerateCompletion sends a completion request to the OpenAI API.
func (c *OpenAIClient) GenerateCompletion(ctx context.Context, req *CompletionRequest) (CompletionResponse, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	klog.V(1).Infof("OpenAI GenerateCompletion called with model: %s", model)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, convertOpenAIError(err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, errors.New("received an empty response from OpenAI")
	}

	return &simpleCompletionResponse{
		content: completion.Choices[0].Message.Content,
		usage:   completion.Usage,
	}, nil
}

// ListModels returns a slice of strings with model IDs.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	res, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing models from OpenAI: %w", err)
	}

	modelIDs := make([]string, 0, len(res.Data))
	for _, model := range res.Data {
		modelIDs = append(modelIDs, model.ID)
	}
	return modelIDs, nil
}

// convertOpenAIError maps SDK errors onto APIError so that throttling is classified uniformly.
func convertOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	return fmt.Errorf("failed to generate OpenAI completion: %w", err)
}

func getOpenAIModel(model string) string {
	if model != "" {
		klog.V(2).Infof("Using explicitly provided model: %s", model)
		return model
	}

	if openAIModel != "" {
		klog.V(1).Infof("Using model from config: %s", openAIModel)
		return openAIModel
	}

	klog.V(2).Info("No model specified, defaulting to gpt-4.1")
	return "gpt-4.1"
}
