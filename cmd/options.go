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
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/greenops/carbon-assistant/gollm"
	"github.com/greenops/carbon-assistant/pkg/calculator"
	"github.com/greenops/carbon-assistant/pkg/store"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

type Options struct {
	ProviderID string `json:"llmProvider,omitempty"`
	// ModelID overrides the provider's default model.
	ModelID   string `json:"model,omitempty"`
	MaxTokens int    `json:"maxTokens,omitempty"`
	// Region is the AWS region for Bedrock, Lambda and DynamoDB. Empty means the SDK default chain.
	Region string `json:"region,omitempty"`

	// SkipVerifySSL is a flag to skip verifying the SSL certificate of the LLM provider.
	SkipVerifySSL bool `json:"skipVerifySSL,omitempty"`

	// RetryMaxAttempts is the total number of model calls made when the model keeps throttling.
	RetryMaxAttempts    int           `json:"retryMaxAttempts,omitempty"`
	RetryInitialBackoff time.Duration `json:"-"`

	CalculationFunction string `json:"calculationFunction,omitempty"`

	Store store.Config `json:"store,omitempty"`

	TracePath string `json:"tracePath,omitempty"`

	// ListenAddress is used by the serve command.
	ListenAddress string `json:"listenAddress,omitempty"`
}

var defaultConfigPaths = []string{
	filepath.Join("{CONFIG}", "carbon-assistant", "config.yaml"),
	filepath.Join("{HOME}", ".config", "carbon-assistant", "config.yaml"),
}

func (o *Options) InitDefaults() {
	o.ProviderID = "bedrock"
	// empty lets the provider pick (BEDROCK_MODEL or its built-in default)
	o.ModelID = ""
	o.MaxTokens = 1000
	o.Region = ""
	o.SkipVerifySSL = false

	o.RetryMaxAttempts = gollm.DefaultRetryConfig.MaxAttempts
	o.RetryInitialBackoff = gollm.DefaultRetryConfig.InitialBackoff

	o.CalculationFunction = calculator.DefaultFunctionName

	o.Store = store.Config{
		Driver:       "dynamodb",
		TableName:    store.DefaultTableName,
		RedisAddress: "localhost:6379",
		FilePath:     filepath.Join(os.TempDir(), "carbon-assistant-conversations.jsonl"),
	}

	// No trace file by default; events go to the verbose log.
	o.TracePath = ""

	o.ListenAddress = "localhost:8080"
}

func (o *Options) LoadConfiguration(b []byte) error {
	if err := yaml.Unmarshal(b, &o); err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}
	return nil
}

func (o *Options) LoadConfigurationFile() error {
	configPaths := defaultConfigPaths
	for _, configPath := range configPaths {
		pathWithPlaceholdersExpanded := configPath

		if strings.Contains(pathWithPlaceholdersExpanded, "{CONFIG}") {
			configDir, err := os.UserConfigDir()
			if err != nil {
				// The Lambda sandbox has no HOME; config files are optional.
				continue
			}
			pathWithPlaceholdersExpanded = strings.ReplaceAll(pathWithPlaceholdersExpanded, "{CONFIG}", configDir)
		}

		if strings.Contains(pathWithPlaceholdersExpanded, "{HOME}") {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				continue
			}
			pathWithPlaceholdersExpanded = strings.ReplaceAll(pathWithPlaceholdersExpanded, "{HOME}", homeDir)
		}

		configPath = filepath.Clean(pathWithPlaceholdersExpanded)
		configBytes, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				// ignore missing config files, they are optional
			} else {
				fmt.Fprintf(os.Stderr, "warning: could not load defaults from %q: %v\n", configPath, err)
			}
		} else if len(configBytes) > 0 {
			if err := o.LoadConfiguration(configBytes); err != nil {
				fmt.Fprintf(os.Stderr, "warning: error loading configuration from %q: %v\n", configPath, err)
			}
		}
	}
	return nil
}

// ApplyEnvironment overlays the deployment environment variables onto o.
func (o *Options) ApplyEnvironment(lookup func(string) (string, bool)) {
	set := func(target *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*target = v
		}
	}
	set(&o.ProviderID, "LLM_CLIENT")
	set(&o.ModelID, "BEDROCK_MODEL")
	set(&o.Region, "AWS_REGION")
	set(&o.CalculationFunction, "CALCULATION_FUNCTION_NAME")
	set(&o.Store.TableName, "TABLE_NAME")
	set(&o.Store.Driver, "STORE_DRIVER")
	set(&o.Store.RedisAddress, "REDIS_ADDRESS")
	set(&o.Store.MySQLDSN, "MYSQL_DSN")
	set(&o.TracePath, "TRACE_PATH")
}

func (o *Options) retryConfig() gollm.RetryConfig {
	cfg := gollm.DefaultRetryConfig
	if o.RetryMaxAttempts > 0 {
		cfg.MaxAttempts = o.RetryMaxAttempts
	}
	if o.RetryInitialBackoff > 0 {
		cfg.InitialBackoff = o.RetryInitialBackoff
	}
	return cfg
}

func (opt *Options) bindCLIFlags(f *pflag.FlagSet) error {
	f.StringVar(&opt.ProviderID, "llm-provider", opt.ProviderID, "language model provider. Supported values: bedrock, openai")
	f.StringVar(&opt.ModelID, "model", opt.ModelID, "language model e.g. anthropic.claude-3-5-sonnet-20240620-v1:0")
	f.IntVar(&opt.MaxTokens, "max-tokens", opt.MaxTokens, "maximum number of tokens in a completion")
	f.StringVar(&opt.Region, "region", opt.Region, "AWS region")
	f.BoolVar(&opt.SkipVerifySSL, "skip-verify-ssl", opt.SkipVerifySSL, "skip verifying the SSL certificate of the LLM provider")

	f.IntVar(&opt.RetryMaxAttempts, "retry-max-attempts", opt.RetryMaxAttempts, "total number of model calls when the model is throttled")
	f.DurationVar(&opt.RetryInitialBackoff, "retry-initial-backoff", opt.RetryInitialBackoff, "wait before the first retry; doubles for each further retry")

	f.StringVar(&opt.CalculationFunction, "calculation-function", opt.CalculationFunction, "name of the carbon calculation function")

	f.StringVar(&opt.Store.Driver, "store", opt.Store.Driver, "conversation store. Supported values: dynamodb, redis, mysql, file, memory")
	f.StringVar(&opt.Store.TableName, "table-name", opt.Store.TableName, "table (or key prefix) conversations are stored in")
	f.StringVar(&opt.Store.RedisAddress, "redis-address", opt.Store.RedisAddress, "redis address for --store=redis")
	f.IntVar(&opt.Store.RedisDB, "redis-db", opt.Store.RedisDB, "redis database for --store=redis")
	f.StringVar(&opt.Store.MySQLDSN, "mysql-dsn", opt.Store.MySQLDSN, "MySQL DSN for --store=mysql")
	f.StringVar(&opt.Store.FilePath, "store-file", opt.Store.FilePath, "JSON lines file for --store=file")

	f.StringVar(&opt.TracePath, "trace-path", opt.TracePath, "path to the trace file")

	return nil
}
