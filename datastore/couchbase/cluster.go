/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package couchbase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"

	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/logging"
	"github.com/suparena/docstore/n1ql"
	"github.com/suparena/docstore/storagemodels"
)

// Config holds the connection settings for a Couchbase cluster
type Config struct {
	ConnectionString string
	Username         string
	Password         string
	ConnectTimeout   time.Duration
	QueryTimeout     time.Duration
}

// Cluster is a datastore.Cluster backed by gocb
type Cluster struct {
	cluster        *gocb.Cluster
	connectTimeout time.Duration
	logger         logging.Logger
}

var _ datastore.Cluster = (*Cluster)(nil)

// Connect opens a cluster connection. gocb connects lazily, so failures
// usually surface on the first OpenBucket.
func Connect(cfg Config) (*Cluster, error) {
	if cfg.ConnectionString == "" {
		return nil, errors.NewValidationError("connectionString", "must not be empty")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	opts := gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		},
		TimeoutsConfig: gocb.TimeoutsConfig{
			ConnectTimeout: cfg.ConnectTimeout,
			QueryTimeout:   cfg.QueryTimeout,
		},
	}

	c, err := gocb.Connect(cfg.ConnectionString, opts)
	if err != nil {
		return nil, errors.NewConnectionError("", "", err)
	}

	logger := logging.GetLogger()
	logger.Info("couchbase cluster connected", "connectionString", cfg.ConnectionString)
	return &Cluster{cluster: c, connectTimeout: cfg.ConnectTimeout, logger: logger}, nil
}

func (c *Cluster) Name() string { return "couchbase" }

// OpenBucket waits until the bucket is ready.
func (c *Cluster) OpenBucket(ctx context.Context, name string) (datastore.Bucket, error) {
	b := c.cluster.Bucket(name)
	err := b.WaitUntilReady(c.connectTimeout, &gocb.WaitUntilReadyOptions{
		Context:      ctx,
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue},
	})
	if err != nil {
		return nil, fmt.Errorf("open bucket %q: %w", name, err)
	}
	return &Bucket{bucket: b}, nil
}

// Capabilities pings every service and reports those with a healthy endpoint.
func (c *Cluster) Capabilities(ctx context.Context) (storagemodels.CapabilitySet, error) {
	res, err := c.cluster.Ping(&gocb.PingOptions{
		ServiceTypes: []gocb.ServiceType{
			gocb.ServiceTypeKeyValue,
			gocb.ServiceTypeQuery,
			gocb.ServiceTypeViews,
			gocb.ServiceTypeSearch,
			gocb.ServiceTypeAnalytics,
		},
		Context: ctx,
	})
	if err != nil {
		return storagemodels.CapabilitySet{}, err
	}
	return capabilitiesFromPing(res.Services), nil
}

func capabilitiesFromPing(services map[gocb.ServiceType][]gocb.EndpointPingReport) storagemodels.CapabilitySet {
	var caps []storagemodels.Capability
	for svc, reports := range services {
		capability, ok := serviceCapability(svc)
		if !ok {
			continue
		}
		for _, r := range reports {
			if r.State == gocb.PingStateOk {
				caps = append(caps, capability)
				break
			}
		}
	}
	set := storagemodels.NewCapabilitySet(caps...)
	// gocb v2.9 only speaks to servers with scopes and collections
	if set.Has(storagemodels.CapabilityKeyValue) {
		set = set.With(storagemodels.CapabilityCollections)
	}
	return set
}

func serviceCapability(svc gocb.ServiceType) (storagemodels.Capability, bool) {
	switch svc {
	case gocb.ServiceTypeKeyValue:
		return storagemodels.CapabilityKeyValue, true
	case gocb.ServiceTypeQuery:
		return storagemodels.CapabilityQuery, true
	case gocb.ServiceTypeViews:
		return storagemodels.CapabilityViews, true
	case gocb.ServiceTypeSearch:
		return storagemodels.CapabilitySearch, true
	case gocb.ServiceTypeAnalytics:
		return storagemodels.CapabilityAnalytics, true
	}
	return "", false
}

// Execute renders stmt as N1QL and runs it on the query service.
func (c *Cluster) Execute(ctx context.Context, stmt *storagemodels.Statement) (datastore.Rows, error) {
	query, err := n1ql.Render(stmt)
	if err != nil {
		return nil, err
	}

	res, err := c.cluster.Query(query, &gocb.QueryOptions{
		ScanConsistency: scanConsistency(stmt.Consistency),
		Readonly:        stmt.Kind != storagemodels.StatementDelete,
		Context:         ctx,
	})
	if err != nil {
		return nil, err
	}
	return &queryRows{result: res, decode: n1ql.DecodeRow}, nil
}

// ExecuteRaw runs a caller-written N1QL statement with named parameters.
func (c *Cluster) ExecuteRaw(ctx context.Context, statement string, params map[string]any) (datastore.Rows, error) {
	res, err := c.cluster.Query(statement, &gocb.QueryOptions{
		NamedParameters: params,
		Context:         ctx,
	})
	if err != nil {
		return nil, err
	}
	return &queryRows{result: res, decode: func(raw json.RawMessage) (storagemodels.Row, error) {
		return storagemodels.Row{Content: raw}, nil
	}}, nil
}

func scanConsistency(c storagemodels.ScanConsistency) gocb.QueryScanConsistency {
	if c == storagemodels.ConsistencyRequestPlus {
		return gocb.QueryScanConsistencyRequestPlus
	}
	return gocb.QueryScanConsistencyNotBounded
}

func (c *Cluster) Classify(err error) (errors.Category, bool) {
	return Classify(err)
}

func (c *Cluster) Close(ctx context.Context) error {
	c.logger.Info("couchbase cluster closing")
	return c.cluster.Close(nil)
}

// queryRows streams a gocb query result
type queryRows struct {
	result *gocb.QueryResult
	decode func(json.RawMessage) (storagemodels.Row, error)
	row    storagemodels.Row
	err    error
	closed bool
}

func (r *queryRows) Next(ctx context.Context) bool {
	if r.closed || r.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		r.err = err
		return false
	}
	if !r.result.Next() {
		return false
	}

	var raw json.RawMessage
	if err := r.result.Row(&raw); err != nil {
		r.err = err
		return false
	}
	row, err := r.decode(raw)
	if err != nil {
		r.err = err
		return false
	}
	r.row = row
	return true
}

func (r *queryRows) Row() storagemodels.Row { return r.row }

func (r *queryRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.result.Err()
}

func (r *queryRows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.result.Close()
}
