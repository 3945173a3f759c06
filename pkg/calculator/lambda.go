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

// Package calculator invokes the carbon calculation function.
package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/greenops/carbon-assistant/pkg/api"
	"k8s.io/klog/v2"
)

// DefaultFunctionName is the name of the deployed calculation function.
const DefaultFunctionName = "carbon-calculation-agent"

// InvokeAPI is the subset of the Lambda API used by LambdaCalculator.
type InvokeAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaCalculator calls the calculation function synchronously. It makes a single attempt.
type LambdaCalculator struct {
	client       InvokeAPI
	functionName string
}

// NewLambdaCalculator returns a calculator invoking functionName through client.
func NewLambdaCalculator(client InvokeAPI, functionName string) *LambdaCalculator {
	if functionName == "" {
		functionName = DefaultFunctionName
	}
	return &LambdaCalculator{
		client:       client,
		functionName: functionName,
	}
}

// NewLambdaCalculatorFromConfig builds the Lambda client from an AWS config.
// The client makes a single attempt per invocation.
func NewLambdaCalculatorFromConfig(cfg aws.Config, functionName string) *LambdaCalculator {
	client := lambda.NewFromConfig(cfg, func(o *lambda.Options) {
		o.Retryer = aws.NopRetryer{}
	})
	return NewLambdaCalculator(client, functionName)
}

type calculationRequest struct {
	Query string `json:"query"`
}

// Calculate sends {"query": query} and returns the function's JSON payload.
func (c *LambdaCalculator) Calculate(ctx context.Context, query string) (api.CalculationResult, error) {
	log := klog.FromContext(ctx)

	payload, err := json.Marshal(calculationRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshalling calculation request: %w", err)
	}

	output, err := c.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(c.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		log.Error(err, "Calculation function invocation failed", "function", c.functionName)
		return nil, fmt.Errorf("invoking %s: %w", c.functionName, err)
	}

	if output.FunctionError != nil {
		return nil, &FunctionError{
			Function: c.functionName,
			Kind:     aws.ToString(output.FunctionError),
			Payload:  string(output.Payload),
		}
	}

	if !json.Valid(output.Payload) {
		return nil, fmt.Errorf("calculation function %s returned malformed payload", c.functionName)
	}

	log.V(2).Info("Calculation function returned", "function", c.functionName, "bytes", len(output.Payload))
	return api.CalculationResult(output.Payload), nil
}

// FunctionError is returned when the calculation function itself raised an error.
type FunctionError struct {
	Function string
	Kind     string
	Payload  string
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("calculation function %s failed (%s): %s", e.Function, e.Kind, e.Payload)
}

// IsFunctionError reports whether err was raised inside the calculation function.
func IsFunctionError(err error) bool {
	var fnErr *FunctionError
	return errors.As(err, &fnErr)
}
