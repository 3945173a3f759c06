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

// Package gateway adapts the assistant to API Gateway proxy events and to net/http.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/greenops/carbon-assistant/pkg/api"
	"github.com/greenops/carbon-assistant/pkg/journal"
	"k8s.io/klog/v2"
)

// maxBodyBytes bounds request bodies read by the HTTP handler.
const maxBodyBytes = 1 << 20

// ChatHandler answers a single decoded chat request.
type ChatHandler interface {
	Handle(ctx context.Context, req *api.ChatRequest) api.Result
}

// Gateway converts transport requests into chat requests and results back into responses.
type Gateway struct {
	handler  ChatHandler
	recorder journal.Recorder
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRecorder attaches recorder to the context of every request.
func WithRecorder(recorder journal.Recorder) Option {
	return func(g *Gateway) { g.recorder = recorder }
}

func New(handler ChatHandler, opts ...Option) *Gateway {
	g := &Gateway{handler: handler}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) handle(ctx context.Context, body string) api.Result {
	if g.recorder != nil {
		ctx = journal.ContextWithRecorder(ctx, g.recorder)
	}

	req, err := api.ParseChatRequest(body)
	if err != nil {
		klog.FromContext(ctx).Error(err, "Rejecting malformed request body")
		return api.Failure(err)
	}
	return g.handler.Handle(ctx, req)
}

// HandleAPIGateway is the Lambda entrypoint for API Gateway proxy integrations.
// Failures are reported in the response; the returned error is always nil.
func (g *Gateway) HandleAPIGateway(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := klog.FromContext(ctx)
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.WithValues("requestId", lc.AwsRequestID)
		ctx = klog.NewContext(ctx, log)
	}

	body := event.Body
	var result api.Result
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			result = api.Failure(fmt.Errorf("decoding base64 body: %w", err))
		} else {
			result = g.handle(ctx, string(decoded))
		}
	} else {
		result = g.handle(ctx, body)
	}

	return ToProxyResponse(result), nil
}

// ToProxyResponse renders result as an API Gateway proxy response.
func ToProxyResponse(result api.Result) events.APIGatewayProxyResponse {
	status := result.StatusCode()
	b, err := json.Marshal(result.Body())
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"encoding response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    api.ResponseHeaders(),
		Body:       string(b),
	}
}

// ServeHTTP serves the same contract over plain HTTP. OPTIONS answers CORS preflight.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodOptions:
		setHeaders(w)
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		writeResult(w, http.StatusMethodNotAllowed, &api.ErrorResponse{Error: fmt.Sprintf("method %s not allowed", req.Method)})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		result := api.Failure(fmt.Errorf("reading request body: %w", err))
		writeResult(w, result.StatusCode(), result.Body())
		return
	}

	result := g.handle(req.Context(), string(body))
	writeResult(w, result.StatusCode(), result.Body())
}

func setHeaders(w http.ResponseWriter) {
	for k, v := range api.ResponseHeaders() {
		w.Header().Set(k, v)
	}
}

func writeResult(w http.ResponseWriter, status int, body any) {
	setHeaders(w)
	b, err := json.Marshal(body)
	if err != nil {
		klog.Errorf("Error marshaling response: %v", err)
		status = http.StatusInternalServerError
		b = []byte(`{"error":"encoding response"}`)
	}
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		klog.V(2).Infof("Error writing response: %v", err)
	}
}
