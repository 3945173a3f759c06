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

// Package assistant routes a chat message to the model, optionally through the
// carbon calculator, and records the exchange.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/greenops/carbon-assistant/gollm"
	"github.com/greenops/carbon-assistant/pkg/api"
	"github.com/greenops/carbon-assistant/pkg/journal"
	"k8s.io/klog/v2"
)

// Assistant handles one chat request at a time. It holds no per-request state and
// may be shared between concurrent requests.
type Assistant struct {
	// LLM is expected to already retry on throttling (see gollm.NewRetryClient).
	LLM        gollm.Client
	Calculator Calculator
	Store      ConversationStore

	// Model overrides the client's default model when set.
	Model     string
	MaxTokens int

	// NewID generates conversation ids. Defaults to random UUIDs.
	NewID func() string
}

func (a *Assistant) validate() error {
	var errs []error
	if a.LLM == nil {
		errs = append(errs, errors.New("language model client is not configured"))
	}
	if a.Calculator == nil {
		errs = append(errs, errors.New("calculator is not configured"))
	}
	if a.Store == nil {
		errs = append(errs, errors.New("conversation store is not configured"))
	}
	return errors.Join(errs...)
}

func (a *Assistant) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.NewString()
}

// Handle answers req and persists the exchange. A success is only returned once the
// record has been stored; every other outcome is a failure.
func (a *Assistant) Handle(ctx context.Context, req *api.ChatRequest) api.Result {
	if req == nil {
		req = &api.ChatRequest{}
	}

	conversationID := req.ConversationID
	if !req.HasConversationID() {
		conversationID = a.newID()
	}

	log := klog.FromContext(ctx).WithValues("conversationId", conversationID)
	ctx = klog.NewContext(ctx, log)

	if err := a.validate(); err != nil {
		return a.fail(ctx, conversationID, err)
	}

	route := SelectRoute(req.Input)
	log.V(1).Info("Selected route", "route", route)
	journal.Record(ctx, journal.ActionRouteSelected, conversationID, map[string]any{"route": route})

	var response string
	var err error
	switch route {
	case RouteCalculation:
		response, err = a.answerWithCalculation(ctx, conversationID, req.Input)
	default:
		response, err = a.complete(ctx, conversationID, req.Input)
	}
	if err != nil {
		return a.fail(ctx, conversationID, err)
	}

	if err := a.Store.StoreConversation(ctx, conversationID, req.Input, response); err != nil {
		return a.fail(ctx, conversationID, err)
	}
	journal.Record(ctx, journal.ActionConversationStored, conversationID, nil)

	return api.Success(&api.ChatResponse{
		Response:       response,
		ConversationID: conversationID,
	})
}

// answerWithCalculation explains the calculator's result. If either the calculation or
// its explanation fails, the model is asked for general guidance instead.
func (a *Assistant) answerWithCalculation(ctx context.Context, conversationID, input string) (string, error) {
	log := klog.FromContext(ctx)

	response, err := a.explainCalculation(ctx, conversationID, input)
	if err == nil {
		return response, nil
	}

	log.Info("Calculation branch failed, falling back to general guidance", "error", err)
	journal.Record(ctx, journal.ActionCalculationFailed, conversationID, map[string]any{"error": err.Error()})

	return a.complete(ctx, conversationID, FallbackPrompt(input))
}

func (a *Assistant) explainCalculation(ctx context.Context, conversationID, input string) (string, error) {
	result, err := a.Calculator.Calculate(ctx, input)
	if err != nil {
		return "", fmt.Errorf("calculating emissions: %w", err)
	}
	journal.Record(ctx, journal.ActionCalculationDone, conversationID, map[string]any{"result": result.String()})

	return a.complete(ctx, conversationID, CalculationPrompt(result))
}

func (a *Assistant) complete(ctx context.Context, conversationID, prompt string) (string, error) {
	journal.Record(ctx, journal.ActionModelPrompt, conversationID, map[string]any{"prompt": prompt})

	resp, err := a.LLM.GenerateCompletion(ctx, &gollm.CompletionRequest{
		Model:     a.Model,
		Prompt:    prompt,
		MaxTokens: a.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}

	text := resp.Response()
	journal.Record(ctx, journal.ActionModelResponse, conversationID, map[string]any{"response": text})
	return text, nil
}

func (a *Assistant) fail(ctx context.Context, conversationID string, err error) api.Result {
	klog.FromContext(ctx).Error(err, "Request failed")
	journal.Record(ctx, journal.ActionRequestFailed, conversationID, map[string]any{"error": err.Error()})
	return api.Failure(err)
}
