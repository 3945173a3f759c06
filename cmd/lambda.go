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

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/greenops/carbon-assistant/pkg/api"
	"github.com/greenops/carbon-assistant/pkg/gateway"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func buildLambdaCommand(opt *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Serve API Gateway proxy events from the Lambda runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLambda(cmd.Context(), *opt)
		},
	}
}

// runLambda hands control to the Lambda runtime. It only returns if the runtime does.
func runLambda(ctx context.Context, opt Options) error {
	a, err := newApp(ctx, opt)
	if err != nil {
		// Construction failures are reported per request rather than failing the init phase.
		klog.Errorf("Failed to initialize assistant: %v", err)
		lambda.StartWithOptions(initFailureHandler(err), lambda.WithContext(ctx))
		return nil
	}
	defer a.Close()

	lambda.StartWithOptions(a.gateway.HandleAPIGateway, lambda.WithContext(ctx))
	return nil
}

func initFailureHandler(initErr error) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, _ events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return gateway.ToProxyResponse(api.Failure(initErr)), nil
	}
}
