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
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/greenops/carbon-assistant/pkg/api"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"k8s.io/klog/v2"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	metaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func buildAskCommand(opt *Options) *cobra.Command {
	var conversationID string
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send a single message and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), *opt, conversationID, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "continue an existing conversation")
	return cmd
}

func buildChatCommand(opt *Options) *cobra.Command {
	var conversationID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively; all turns share one conversation id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), *opt, conversationID)
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "continue an existing conversation")
	return cmd
}

func runAsk(ctx context.Context, opt Options, conversationID, message string) error {
	a, err := newApp(ctx, opt)
	if err != nil {
		return err
	}
	defer a.Close()

	printer, err := newResponsePrinter(os.Stdout)
	if err != nil {
		return err
	}

	result := a.assistant.Handle(a.withRecorder(ctx), &api.ChatRequest{Input: message, ConversationID: conversationID})
	if result.Err != nil {
		return result.Err
	}
	printer.Print(result.Response)
	return nil
}

func runChat(ctx context.Context, opt Options, conversationID string) error {
	a, err := newApp(ctx, opt)
	if err != nil {
		return err
	}
	defer a.Close()

	printer, err := newResponsePrinter(os.Stdout)
	if err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      ">>> ",
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		HistoryFile: filepath.Join(os.TempDir(), "carbon-assistant-history"),
	})
	if err != nil {
		return fmt.Errorf("creating readline instance: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(os.Stdout, metaStyle.Render("Ask about carbon emissions or anything else. Type exit or press Ctrl+D to quit."))

	ctx = a.withRecorder(ctx)
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		query := strings.TrimSpace(line)
		switch query {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		result := a.assistant.Handle(ctx, &api.ChatRequest{Input: query, ConversationID: conversationID})
		if result.Err != nil {
			fmt.Fprintln(os.Stdout, errorStyle.Render(fmt.Sprintf("Error: %v", result.Err)))
			continue
		}
		// later turns reuse the id the first turn generated
		conversationID = result.Response.ConversationID
		printer.Print(result.Response)
	}
}

// responsePrinter renders answers as markdown on a terminal and as plain text otherwise.
type responsePrinter struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

func newResponsePrinter(out *os.File) (*responsePrinter, error) {
	p := &responsePrinter{out: out}

	fd := int(out.Fd())
	if !term.IsTerminal(fd) {
		return p, nil
	}

	options := []glamour.TermRendererOption{
		glamour.WithAutoStyle(),
		glamour.WithPreservedNewLines(),
		glamour.WithEmoji(),
	}
	if width, _, err := term.GetSize(fd); err == nil && width > 0 {
		options = append(options, glamour.WithWordWrap(width))
	}
	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return nil, fmt.Errorf("error initializing the markdown renderer: %w", err)
	}
	p.renderer = renderer
	return p, nil
}

func (p *responsePrinter) Print(resp *api.ChatResponse) {
	text := resp.Response
	if p.renderer != nil {
		rendered, err := p.renderer.Render(text)
		if err != nil {
			klog.Warningf("Failed to render markdown: %v", err)
		} else {
			text = rendered
		}
	}
	fmt.Fprintln(p.out, text)
	fmt.Fprintln(p.out, metaStyle.Render("conversation: "+resp.ConversationID))
}
