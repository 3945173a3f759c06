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
	"encoding/json"
	"fmt"

	"github.com/greenops/carbon-assistant/pkg/api"
	"github.com/greenops/carbon-assistant/pkg/gateway"
	"github.com/greenops/carbon-assistant/pkg/journal"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

const askToolName = "ask_carbon_assistant"

func buildMCPServerCommand(opt *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Expose the assistant as an MCP tool over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCPServer(cmd.Context(), *opt)
		},
	}
}

func runMCPServer(ctx context.Context, opt Options) error {
	a, err := newApp(ctx, opt)
	if err != nil {
		return err
	}
	defer a.Close()

	return newCarbonMCPServer(a.assistant, a.recorder).Serve(ctx)
}

type carbonMCPServer struct {
	server   *server.MCPServer
	handler  gateway.ChatHandler
	recorder journal.Recorder
}

// newCarbonMCPServer serves handler as a tool. recorder, if set, receives the trace of every call.
func newCarbonMCPServer(handler gateway.ChatHandler, recorder journal.Recorder) *carbonMCPServer {
	s := &carbonMCPServer{
		handler:  handler,
		recorder: recorder,
		server: server.NewMCPServer(
			"carbon-assistant",
			version,
			server.WithToolCapabilities(true),
		),
	}
	s.server.AddTool(mcp.NewTool(askToolName,
		mcp.WithDescription("Ask the carbon assistant a question. Questions about carbon or emissions are answered from the carbon calculation service."),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("The message to send"),
		),
		mcp.WithString("conversationId",
			mcp.Description("Conversation to continue; a new one is started when omitted"),
		),
	), s.handleToolCall)
	return s
}

func (s *carbonMCPServer) Serve(ctx context.Context) error {
	return server.ServeStdio(s.server)
}

func (s *carbonMCPServer) handleToolCall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.recorder != nil {
		ctx = journal.ContextWithRecorder(ctx, s.recorder)
	}
	log := klog.FromContext(ctx)

	req, err := chatRequestFromArguments(request.Params.Arguments)
	if err != nil {
		return errorResult(err), nil
	}
	log.Info("Received tool call", "tool", request.Params.Name, "conversationId", req.ConversationID)

	result := s.handler.Handle(ctx, req)
	if result.Err != nil {
		log.Error(result.Err, "Error running tool call")
		return errorResult(result.Err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: result.Response.Response,
			},
			mcp.TextContent{
				Type: "text",
				Text: fmt.Sprintf("conversationId: %s", result.Response.ConversationID),
			},
		},
	}, nil
}

// chatRequestFromArguments decodes tool arguments using the same field names as the HTTP body.
func chatRequestFromArguments(arguments any) (*api.ChatRequest, error) {
	b, err := json.Marshal(arguments)
	if err != nil {
		return nil, fmt.Errorf("encoding tool arguments: %w", err)
	}
	req := &api.ChatRequest{}
	if err := json.Unmarshal(b, req); err != nil {
		return nil, fmt.Errorf("decoding tool arguments: %w", err)
	}
	return req, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: fmt.Sprintf("Error: %v", err),
			},
		},
		IsError: true,
	}
}
