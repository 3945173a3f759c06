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
	"crypto/tls"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/smithy-go"
	"k8s.io/klog/v2"
)

var globalRegistry registry

type registry struct {
	mutex     sync.Mutex
	providers map[string]FactoryFunc
}

// ClientOptions carries provider-independent settings for building a Client.
type ClientOptions struct {
	// Model is the default model used when a request does not name one.
	Model string
	// Region is used by cloud-hosted providers (Bedrock).
	Region string
	// MaxTokens is the default completion token limit.
	MaxTokens int
	// SkipVerifySSL disables TLS verification for HTTP based providers.
	SkipVerifySSL bool
}

// Option mutates ClientOptions.
type Option func(*ClientOptions)

func WithModel(model string) Option {
	return func(o *ClientOptions) { o.Model = model }
}

func WithRegion(region string) Option {
	return func(o *ClientOptions) { o.Region = region }
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *ClientOptions) { o.MaxTokens = maxTokens }
}

func WithSkipVerifySSL() Option {
	return func(o *ClientOptions) { o.SkipVerifySSL = true }
}

type FactoryFunc func(ctx context.Context, opts ClientOptions) (Client, error)

func RegisterProvider(id string, factoryFunc FactoryFunc) error {
	return globalRegistry.RegisterProvider(id, factoryFunc)
}

func (r *registry) RegisterProvider(id string, factoryFunc FactoryFunc) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.providers == nil {
		r.providers = make(map[string]FactoryFunc)
	}
	_, exists := r.providers[id]
	if exists {
		return fmt.Errorf("provider %q is already registered", id)
	}
	r.providers[id] = factoryFunc
	return nil
}

func (r *registry) NewClient(ctx context.Context, providerID string, opts ClientOptions) (Client, error) {
	// providerID may be given as "bedrock://" as well as "bedrock"
	providerID = strings.TrimSuffix(providerID, "://")

	r.mutex.Lock()
	factoryFunc := r.providers[providerID]
	r.mutex.Unlock()
	if factoryFunc == nil {
		return nil, fmt.Errorf("provider %q not registered", providerID)
	}

	return factoryFunc(ctx, opts)
}

// NewClient builds a Client based on the LLM_CLIENT env var or the provided providerID.
// ProviderID (if not empty) overrides the provider from LLM_CLIENT env var.
func NewClient(ctx context.Context, providerID string, opts ...Option) (Client, error) {
	if providerID == "" {
		s := os.Getenv("LLM_CLIENT")
		if s == "" {
			return nil, fmt.Errorf("LLM_CLIENT is not set")
		}
		providerID = s
	}

	var clientOpts ClientOptions
	for _, opt := range opts {
		opt(&clientOpts)
	}
	return globalRegistry.NewClient(ctx, providerID, clientOpts)
}

// APIError represents an error returned by the LLM client.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API Error: Status=%d, Message='%s', OriginalErr=%v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API Error: Status=%d, Message='%s'", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsRetryableFunc defines the signature for functions that check if an error is retryable.
type IsRetryableFunc func(error) bool

// throttlingErrorCode is the error code AWS services use for rate-limit rejections.
const throttlingErrorCode = "ThrottlingException"

// IsThrottlingError reports whether err is a rate-limit rejection from the model service.
// Only throttling is retried; every other failure is returned to the caller as is.
func IsThrottlingError(err error) bool {
	if err == nil {
		return false
	}

	var awsErr smithy.APIError
	if errors.As(err, &awsErr) && awsErr.ErrorCode() == throttlingErrorCode {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	return false
}

// RetryConfig holds the configuration for the retry mechanism.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts    int
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between attempts. Zero means no cap.
	MaxBackoff    time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultRetryConfig waits 1s, then 2s, across three attempts.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         false,
}

// wait blocks for d or until ctx is done. Tests replace it to observe the backoff schedule.
var wait = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry executes the provided operation with retries, returning the result and error.
func Retry[T any](
	ctx context.Context,
	config RetryConfig,
	isRetryable IsRetryableFunc,
	operation func(ctx context.Context) (T, error),
) (T, error) {
	var lastErr error
	var zero T

	log := klog.FromContext(ctx)

	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.BackoffFactor <= 0 {
		config.BackoffFactor = 2.0
	}

	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result, err := operation(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Check if context was cancelled *after* the operation
		select {
		case <-ctx.Done():
			log.Info("Context cancelled after failed attempt", "attempt", attempt)
			return zero, ctx.Err()
		default:
		}

		if !isRetryable(lastErr) {
			log.Info("Attempt failed with non-retryable error", "attempt", attempt, "error", lastErr)
			return zero, lastErr
		}

		log.Info("Attempt failed with retryable error", "attempt", attempt, "error", lastErr)

		if attempt == config.MaxAttempts {
			break
		}

		waitTime := backoff
		if config.Jitter {
			waitTime += time.Duration(rand.Float64() * float64(backoff) / 2)
		}

		log.Info("Waiting before next attempt", "waitTime", waitTime, "attempt", attempt+1, "maxAttempts", config.MaxAttempts)

		if err := wait(ctx, waitTime); err != nil {
			log.Info("Context cancelled while waiting for retry", "attempt", attempt)
			return zero, err
		}

		backoff = time.Duration(float64(backoff) * config.BackoffFactor)
		if config.MaxBackoff > 0 && backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	return zero, fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// retryClient is a decorator that adds retry logic to any Client implementation.
type retryClient struct {
	Client

	config      RetryConfig
	isRetryable IsRetryableFunc
}

// NewRetryClient wraps underlying so that GenerateCompletion is retried on throttling.
func NewRetryClient(underlying Client, config RetryConfig) Client {
	return &retryClient{
		Client:      underlying,
		config:      config,
		isRetryable: IsThrottlingError,
	}
}

func (rc *retryClient) GenerateCompletion(ctx context.Context, req *CompletionRequest) (CompletionResponse, error) {
	operation := func(ctx context.Context) (CompletionResponse, error) {
		return rc.Client.GenerateCompletion(ctx, req)
	}
	return Retry[CompletionResponse](ctx, rc.config, rc.isRetryable, operation)
}

// createCustomHTTPClient returns an HTTP client, optionally skipping TLS verification.
func createCustomHTTPClient(skipVerify bool) *http.Client {
	if !skipVerify {
		return http.DefaultClient
	}
	klog.Warning("TLS certificate verification is disabled for the LLM provider")
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	return &http.Client{Transport: transport}
}
