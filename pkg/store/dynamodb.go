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

package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/greenops/carbon-assistant/pkg/api"
)

// PutItemAPI is the subset of the DynamoDB API used by DynamoDBStore.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoDBStore writes records to a table keyed by (conversationId, timestamp).
type DynamoDBStore struct {
	client PutItemAPI
	table  string
}

func NewDynamoDBStore(client PutItemAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{client: client, table: table}
}

func NewDynamoDBStoreFromConfig(cfg aws.Config, table string) *DynamoDBStore {
	return NewDynamoDBStore(dynamodb.NewFromConfig(cfg), table)
}

func (s *DynamoDBStore) PutRecord(ctx context.Context, record *api.ConversationRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshalling conversation record: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("dynamodb put item into %s: %w", s.table, err)
	}
	return nil
}

func (s *DynamoDBStore) Close() error {
	return nil
}
