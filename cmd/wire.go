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
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/greenops/carbon-assistant/gollm"
	"github.com/greenops/carbon-assistant/pkg/assistant"
	"github.com/greenops/carbon-assistant/pkg/calculator"
	"github.com/greenops/carbon-assistant/pkg/gateway"
	"github.com/greenops/carbon-assistant/pkg/journal"
	"github.com/greenops/carbon-assistant/pkg/store"
	"k8s.io/klog/v2"
)

// app holds the clients built once per process and shared by every request.
type app struct {
	assistant *assistant.Assistant
	gateway   *gateway.Gateway
	recorder  journal.Recorder

	closers []io.Closer
}

func newApp(ctx context.Context, opt Options) (*app, error) {
	log := klog.FromContext(ctx)
	a := &app{}

	// Load AWS config with timeout protection
	configCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	var loadOpts []func(*config.LoadOptions) error
	if opt.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opt.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(configCtx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	llm, err := newLLMClient(ctx, opt, awsCfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, llm)

	backend, err := store.New(ctx, opt.Store, awsCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating conversation store: %w", err)
	}
	if fs, ok := backend.(*store.FileStore); ok {
		log.Info("Storing conversations in file", "path", fs.Path())
	}
	writer := store.NewConversationWriter(backend)
	a.closers = append(a.closers, writer)

	if opt.TracePath != "" {
		fileRecorder, err := journal.NewFileRecorder(opt.TracePath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating trace recorder: %w", err)
		}
		a.recorder = fileRecorder
	} else {
		// Ensure we always have a recorder, to avoid nil checks
		a.recorder = &journal.LogRecorder{}
	}
	a.closers = append(a.closers, a.recorder)

	a.assistant = &assistant.Assistant{
		LLM:        llm,
		Calculator: calculator.NewLambdaCalculatorFromConfig(awsCfg, opt.CalculationFunction),
		Store:      writer,
		Model:      opt.ModelID,
		MaxTokens:  opt.MaxTokens,
	}
	a.gateway = gateway.New(a.assistant, gateway.WithRecorder(a.recorder))

	log.Info("Assistant ready",
		"provider", opt.ProviderID,
		"region", awsCfg.Region,
		"calculationFunction", opt.CalculationFunction,
		"store", opt.Store.Driver,
	)
	return a, nil
}

func newLLMClient(ctx context.Context, opt Options, awsCfg aws.Config) (gollm.Client, error) {
	region := opt.Region
	if region == "" {
		region = awsCfg.Region
	}
	clientOpts := []gollm.Option{
		gollm.WithModel(opt.ModelID),
		gollm.WithRegion(region),
		gollm.WithMaxTokens(opt.MaxTokens),
	}
	if opt.SkipVerifySSL {
		clientOpts = append(clientOpts, gollm.WithSkipVerifySSL())
	}

	llm, err := gollm.NewClient(ctx, opt.ProviderID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	return gollm.NewRetryClient(llm, opt.retryConfig()), nil
}

// withRecorder returns ctx carrying the app's trace recorder.
func (a *app) withRecorder(ctx context.Context) context.Context {
	return journal.ContextWithRecorder(ctx, a.recorder)
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
