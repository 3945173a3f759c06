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
	"context"

	"github.com/greenops/carbon-assistant/pkg/api"
)

// Calculator computes emissions for a free-text query.
type Calculator interface {
	Calculate(ctx context.Context, query string) (api.CalculationResult, error)
}

// ConversationStore persists one exchange per call.
type ConversationStore interface {
	StoreConversation(ctx context.Context, conversationID, userInput, response string) error
}
