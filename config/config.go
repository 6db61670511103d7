/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads docstore settings and opens the configured backend.
package config

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/datastore/couchbase"
	"github.com/suparena/docstore/datastore/ddb"
	"github.com/suparena/docstore/datastore/mock"
	"github.com/suparena/docstore/datastore/surreal"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/logging"
)

// EnvPrefix prefixes every environment override, e.g. DOCSTORE_BUCKET.
const EnvPrefix = "DOCSTORE"

// Supported backends
const (
	BackendCouchbase = "couchbase"
	BackendSurreal   = "surreal"
	BackendDynamoDB  = "dynamodb"
	BackendMemory    = "memory"
)

// Config is everything needed to reach a backend and build templates on it.
type Config struct {
	Backend          string        `mapstructure:"backend"`
	ConnectionString string        `mapstructure:"connection_string"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	Bucket           string        `mapstructure:"bucket"`
	Scope            string        `mapstructure:"scope"`
	TypeKey          string        `mapstructure:"type_key"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout     time.Duration `mapstructure:"query_timeout"`

	// DynamoDB only. ConnectionString, when set, is the endpoint override.
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`

	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

var defaults = map[string]any{
	"backend":           BackendMemory,
	"connection_string": "",
	"username":          "",
	"password":          "",
	"bucket":            "default",
	"scope":             "",
	"type_key":          "_class",
	"connect_timeout":   "10s",
	"query_timeout":     "75s",
	"region":            "",
	"access_key":        "",
	"secret_key":        "",
	"log_level":         "info",
	"log_format":        "text",
	"metrics_enabled":   false,
}

// Load reads .env from the working directory when present, then the config
// file at path (skipped when empty), then DOCSTORE_* environment variables.
// Unset keys take their defaults. The result is validated.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, value := range defaults {
		v.SetDefault(key, value)
		// explicit binding so Unmarshal sees env-only keys
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills defaults for zero fields and rejects settings no backend
// can use.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.Bucket == "" {
		c.Bucket = "default"
	}
	if c.TypeKey == "" {
		c.TypeKey = "_class"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 75 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}

	switch c.Backend {
	case BackendCouchbase, BackendSurreal:
		if c.ConnectionString == "" {
			return errors.NewValidationError("connection_string", "required for the "+c.Backend+" backend")
		}
	case BackendDynamoDB:
		if c.Region == "" {
			return errors.NewValidationError("region", "required for the dynamodb backend")
		}
	case BackendMemory:
	default:
		return errors.NewValidationError("backend", fmt.Sprintf("unknown backend %q", c.Backend))
	}
	return nil
}

// Logger builds a logger at the configured level and format.
func (c *Config) Logger(w io.Writer) logging.Logger {
	return logging.New(w, c.LogFormat, logging.ParseLevel(c.LogLevel))
}

// Open connects to the configured backend. The memory backend starts empty
// with the configured bucket.
func Open(ctx context.Context, cfg *Config) (datastore.Cluster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendCouchbase:
		cluster, err := couchbase.Connect(couchbase.Config{
			ConnectionString: cfg.ConnectionString,
			Username:         cfg.Username,
			Password:         cfg.Password,
			ConnectTimeout:   cfg.ConnectTimeout,
			QueryTimeout:     cfg.QueryTimeout,
		})
		if err != nil {
			return nil, err
		}
		return cluster, nil

	case BackendSurreal:
		cluster, err := surreal.New(surreal.Config{
			Endpoint: cfg.ConnectionString,
			Username: cfg.Username,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, err
		}
		return cluster, nil

	case BackendDynamoDB:
		client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientConfig{
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Region:    cfg.Region,
			Endpoint:  cfg.ConnectionString,
		})
		if err != nil {
			return nil, err
		}
		return ddb.NewCluster(client), nil

	default:
		return mock.NewCluster(cfg.Bucket), nil
	}
}
