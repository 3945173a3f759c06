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

package assistant

import (
	"fmt"
	"strings"

	"github.com/greenops/carbon-assistant/pkg/api"
)

// Route is the branch a request is handled by.
type Route string

const (
	RouteCalculation Route = "calculation"
	RouteChat        Route = "chat"
)

var calculationKeywords = []string{"carbon", "emission"}

// SelectRoute picks the calculation branch when the input mentions carbon or emissions.
func SelectRoute(input string) Route {
	lower := strings.ToLower(input)
	for _, kw := range calculationKeywords {
		if strings.Contains(lower, kw) {
			return RouteCalculation
		}
	}
	return RouteChat
}

const (
	calculationPromptTemplate = "Explain these carbon emission calculation results in detail: %s"

	fallbackPromptTemplate = "I apologize, but I encountered an error calculating the exact emissions. " +
		"However, I can provide general guidance about carbon emissions and energy efficiency. " +
		"Please explain what someone should know about carbon emissions for %s"
)

// CalculationPrompt asks the model to explain a calculation result.
func CalculationPrompt(result api.CalculationResult) string {
	return fmt.Sprintf(calculationPromptTemplate, result.String())
}

// FallbackPrompt asks for general guidance when no calculation result is available.
func FallbackPrompt(input string) string {
	return fmt.Sprintf(fallbackPromptTemplate, input)
}
