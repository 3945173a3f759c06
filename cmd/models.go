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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"
)

func buildModelsCommand(opt *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models offered by the configured provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			llm, err := newLLMClient(ctx, *opt, aws.Config{Region: opt.Region})
			if err != nil {
				return err
			}
			defer llm.Close()

			models, err := llm.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("listing models: %w", err)
			}
			for _, model := range models {
				fmt.Println(model)
			}
			return nil
		},
	}
}
