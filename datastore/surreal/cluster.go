/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package surreal

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/logging"
	"github.com/suparena/docstore/storagemodels"
)

// ErrQuery is returned when a statement comes back with a non-OK status.
var ErrQuery = stderrors.New("surreal: query failed")

// Config holds connection settings. Buckets map to namespaces and scopes to
// databases; the default scope uses DefaultDatabase.
type Config struct {
	Endpoint        string
	Username        string
	Password        string
	DefaultDatabase string
}

type connKey struct {
	namespace string
	database  string
}

// Cluster is a datastore.Cluster backed by SurrealDB. It keeps one
// connection per namespace and database, opened on first use, so USE never
// switches a connection another statement is running on.
type Cluster struct {
	cfg    Config
	logger logging.Logger

	mu     sync.Mutex
	conns  map[connKey]*surrealdb.DB
	closed bool
}

var _ datastore.Cluster = (*Cluster)(nil)

// New creates a cluster. No connection is opened until a bucket is.
func New(cfg Config) (*Cluster, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewValidationError("endpoint", "must not be empty")
	}
	if cfg.DefaultDatabase == "" {
		cfg.DefaultDatabase = "main"
	}
	return &Cluster{
		cfg:    cfg,
		logger: logging.GetLogger(),
		conns:  make(map[connKey]*surrealdb.DB),
	}, nil
}

func (c *Cluster) Name() string { return "surreal" }

func (c *Cluster) database(scope string) string {
	if scope == "" || scope == storagemodels.DefaultScope {
		return c.cfg.DefaultDatabase
	}
	return scope
}

// conn returns the connection for a namespace and database, dialing it when
// needed.
func (c *Cluster) conn(ctx context.Context, namespace, scope string) (*surrealdb.DB, error) {
	key := connKey{namespace: namespace, database: c.database(scope)}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("surreal: cluster closed")
	}
	if db, ok := c.conns[key]; ok {
		return db, nil
	}

	db, err := surrealdb.FromEndpointURLString(ctx, c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.cfg.Endpoint, err)
	}
	if c.cfg.Username != "" {
		if _, err := db.SignIn(ctx, &surrealdb.Auth{
			Username: c.cfg.Username,
			Password: c.cfg.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("signin failed: %w", err)
		}
	}
	if err := db.Use(ctx, key.namespace, key.database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("use %s/%s failed: %w", key.namespace, key.database, err)
	}

	c.logger.Info("surreal connection opened", "namespace", key.namespace, "database", key.database)
	c.conns[key] = db
	return db, nil
}

// OpenBucket connects to the bucket's namespace and checks the server answers.
func (c *Cluster) OpenBucket(ctx context.Context, name string) (datastore.Bucket, error) {
	db, err := c.conn(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if _, err := db.Version(ctx); err != nil {
		return nil, fmt.Errorf("open namespace %q: %w", name, err)
	}
	return &Bucket{cluster: c, name: name}, nil
}

// Capabilities reports query and key-value once the server answers.
func (c *Cluster) Capabilities(ctx context.Context) (storagemodels.CapabilitySet, error) {
	c.mu.Lock()
	var db *surrealdb.DB
	for _, conn := range c.conns {
		db = conn
		break
	}
	c.mu.Unlock()

	if db == nil {
		return storagemodels.CapabilitySet{}, fmt.Errorf("surreal: no open namespace to probe")
	}
	if _, err := db.Version(ctx); err != nil {
		return storagemodels.CapabilitySet{}, err
	}
	return storagemodels.NewCapabilitySet(storagemodels.CapabilityQuery, storagemodels.CapabilityKeyValue), nil
}

// Execute renders stmt as SurrealQL and runs it in the keyspace's namespace
// and database.
func (c *Cluster) Execute(ctx context.Context, stmt *storagemodels.Statement) (datastore.Rows, error) {
	sql, vars, err := render(stmt)
	if err != nil {
		return nil, err
	}
	db, err := c.conn(ctx, stmt.Keyspace.Bucket, stmt.Keyspace.Scope)
	if err != nil {
		return nil, err
	}

	records, err := query(ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}

	rows := make([]storagemodels.Row, 0, len(records))
	for _, rec := range records {
		if stmt.Kind == storagemodels.StatementCount {
			rows = append(rows, storagemodels.Row{Count: toInt64(rec["__count"])})
			continue
		}
		row, err := recordRow(rec)
		if err != nil {
			return nil, err
		}
		if stmt.Kind == storagemodels.StatementDelete && stmt.Returning != storagemodels.ReturningDocument {
			row.Content = nil
		}
		rows = append(rows, row)
	}
	if stmt.Kind == storagemodels.StatementCount && len(rows) == 0 {
		// GROUP ALL over an empty table yields no row
		rows = append(rows, storagemodels.Row{Count: 0})
	}
	return datastore.NewSliceRows(rows), nil
}

// ExecuteRaw runs caller-written SurrealQL against the default database of
// the first namespace opened. Params are bound as variables.
func (c *Cluster) ExecuteRaw(ctx context.Context, statement string, params map[string]any) (datastore.Rows, error) {
	c.mu.Lock()
	var db *surrealdb.DB
	for _, conn := range c.conns {
		db = conn
		break
	}
	c.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("surreal: no open namespace")
	}

	records, err := query(ctx, db, statement, params)
	if err != nil {
		return nil, err
	}
	rows := make([]storagemodels.Row, 0, len(records))
	for _, rec := range records {
		content, err := json.Marshal(normalize(rec))
		if err != nil {
			return nil, err
		}
		rows = append(rows, storagemodels.Row{Content: content})
	}
	return datastore.NewSliceRows(rows), nil
}

func (c *Cluster) Classify(err error) (errors.Category, bool) {
	return Classify(err)
}

// Close closes every open connection.
func (c *Cluster) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, db := range c.conns {
		if err := db.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		delete(c.conns, key)
	}
	c.closed = true
	c.logger.Info("surreal cluster closed")
	return stderrors.Join(errs...)
}

// query runs a single statement and returns the records of its last result.
func query(ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) ([]map[string]any, error) {
	results, err := surrealdb.Query[[]map[string]any](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}

	var records []map[string]any
	for _, r := range *results {
		if r.Status != "OK" {
			if r.Error != nil {
				return nil, fmt.Errorf("%w: %s", ErrQuery, r.Error.Message)
			}
			return nil, ErrQuery
		}
		records = r.Result
	}
	return records, nil
}

// recordRow splits a record into id, CAS and the remaining document body.
func recordRow(rec map[string]any) (storagemodels.Row, error) {
	body := make(map[string]any, len(rec))
	var row storagemodels.Row
	for k, v := range rec {
		switch k {
		case idField:
			row.ID = recordKey(v)
		case casField:
			row.Cas = uint64(toInt64(v))
		default:
			body[k] = normalize(v)
		}
	}
	content, err := json.Marshal(body)
	if err != nil {
		return storagemodels.Row{}, err
	}
	row.Content = content
	return row, nil
}

// recordKey returns the key part of a record id.
func recordKey(v any) string {
	switch id := v.(type) {
	case models.RecordID:
		return fmt.Sprint(id.ID)
	case *models.RecordID:
		if id != nil {
			return fmt.Sprint(id.ID)
		}
	case string:
		if _, key, ok := strings.Cut(id, ":"); ok {
			return strings.Trim(key, "⟨⟩`")
		}
		return id
	}
	return fmt.Sprint(v)
}

// normalize converts driver types into values encoding/json renders.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case models.RecordID:
		return t.String()
	case *models.RecordID:
		if t == nil {
			return nil
		}
		return t.String()
	case models.CustomDateTime:
		return t.Time.Format(time.RFC3339Nano)
	case *models.CustomDateTime:
		if t == nil {
			return nil
		}
		return t.Time.Format(time.RFC3339Nano)
	}
	return v
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case uint64:
		return int64(n)
	case int32:
		return int64(n)
	case uint32:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	}
	return 0
}
