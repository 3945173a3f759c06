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

package gollm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"k8s.io/klog/v2"
)

const (
	bedrockDefaultModel     = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	bedrockDefaultRegion    = "us-east-1"
	bedrockDefaultMaxTokens = 1000
	bedrockAnthropicVersion = "bedrock-2023-05-31"
)

// Register the Bedrock provider factory on package initialization
func init() {
	if err := RegisterProvider("bedrock", newBedrockClientFactory); err != nil {
		klog.Fatalf("Failed to register bedrock provider: %v", err)
	}
}

func newBedrockClientFactory(ctx context.Context, opts ClientOptions) (Client, error) {
	return NewBedrockClient(ctx, opts)
}

// InvokeModelAPI is the subset of the Bedrock runtime API used by BedrockClient.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient implements the gollm.Client interface for Anthropic models hosted on AWS Bedrock.
type BedrockClient struct {
	client    InvokeModelAPI
	model     string
	maxTokens int
}

var _ Client = &BedrockClient{}

// NewBedrockClient creates a new client for interacting with AWS Bedrock models
func NewBedrockClient(ctx context.Context, opts ClientOptions) (*BedrockClient, error) {
	// Load AWS config with timeout protection
	configCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(configCtx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.Region == "" {
		cfg.Region = bedrockDefaultRegion
	}

	runtime := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		// Throttling is retried by NewRetryClient; every other failure is returned as is.
		o.Retryer = aws.NopRetryer{}
	})
	return NewBedrockClientFromAPI(runtime, opts), nil
}

// NewBedrockClientFromAPI builds a BedrockClient on top of an existing runtime API.
func NewBedrockClientFromAPI(api InvokeModelAPI, opts ClientOptions) *BedrockClient {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = bedrockDefaultMaxTokens
	}
	return &BedrockClient{
		client:    api,
		model:     getBedrockModel(opts.Model),
		maxTokens: maxTokens,
	}
}

// Close cleans up any resources used by the client
func (c *BedrockClient) Close() error {
	return nil
}

// anthropicRequest is the versioned messages envelope Bedrock expects for Anthropic models.
type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	ID         string             `json:"id,omitempty"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason,omitempty"`
	Usage      *anthropicUsage    `json:"usage,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// GenerateCompletion sends the prompt as a single user message and returns the first content block.
func (c *BedrockClient) GenerateCompletion(ctx context.Context, req *CompletionRequest) (CompletionResponse, error) {
	log := klog.FromContext(ctx)

	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        maxTokens,
		Messages: []anthropicMessage{
			{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: req.Prompt}},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling bedrock request: %w", err)
	}

	log.V(2).Info("Invoking bedrock model", "model", model, "maxTokens", maxTokens)

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke model error: %w", err)
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(output.Body, &decoded); err != nil {
		return nil, fmt.Errorf("parsing bedrock response: %w", err)
	}
	if len(decoded.Content) == 0 {
		return nil, errors.New("bedrock response contained no content blocks")
	}

	var usage any
	if decoded.Usage != nil {
		usage = decoded.Usage
	}
	return &simpleCompletionResponse{
		content: decoded.Content[0].Text,
		usage:   usage,
	}, nil
}

// ListModels returns the list of supported Bedrock models
func (c *BedrockClient) ListModels(ctx context.Context) ([]string, error) {
	return []string{
		bedrockDefaultModel,
		"anthropic.claude-3-5-sonnet-20241022-v2:0",
		"anthropic.claude-3-haiku-20240307-v1:0",
	}, nil
}

// getBedrockModel returns the model to use, checking in order:
// 1. Explicitly provided model
// 2. Environment variable BEDROCK_MODEL
// 3. Default model
func getBedrockModel(model string) string {
	if model != "" {
		klog.V(2).Infof("Using explicitly provided model: %s", model)
		return model
	}

	if envModel := os.Getenv("BEDROCK_MODEL"); envModel != "" {
		klog.V(1).Infof("Using model from environment variable: %s", envModel)
		return envModel
	}

	klog.V(1).Infof("Using default model: %s", bedrockDefaultModel)
	return bedrockDefaultModel
}
