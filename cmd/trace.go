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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/greenops/carbon-assistant/pkg/journal"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var actionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

func buildTraceCommand(opt *Options) *cobra.Command {
	var conversationID string
	cmd := &cobra.Command{
		Use:   "trace [trace-file]",
		Short: "Print the events recorded in a trace file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := opt.TracePath
			if len(args) == 1 {
				p = args[0]
			}
			if p == "" {
				return fmt.Errorf("no trace file given; pass one or set --trace-path")
			}
			events, err := journal.ParseEventsFromFile(p)
			if err != nil {
				return err
			}
			return printTrace(os.Stdout, events, conversationID)
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "only print events of this conversation")
	return cmd
}

func printTrace(w io.Writer, events []*journal.Event, conversationID string) error {
	for _, event := range events {
		if conversationID != "" && event.ConversationID != conversationID {
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n",
			event.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			actionStyle.Render(event.Action),
			event.ConversationID,
		)
		if event.Payload == nil {
			continue
		}
		payload, err := yaml.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("formatting payload of %s event: %w", event.Action, err)
		}
		fmt.Fprintf(w, "%s\n", indent(string(payload)))
	}
	return nil
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}
