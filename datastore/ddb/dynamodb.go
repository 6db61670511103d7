/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/logging"
	"github.com/suparena/docstore/storagemodels"
)

// API is the subset of the DynamoDB client the cluster uses. *sdk.Client
// satisfies it.
type API interface {
	ExecuteStatement(ctx context.Context, in *sdk.ExecuteStatementInput, optFns ...func(*sdk.Options)) (*sdk.ExecuteStatementOutput, error)
	GetItem(ctx context.Context, in *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, in *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, in *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	ListTables(ctx context.Context, in *sdk.ListTablesInput, optFns ...func(*sdk.Options)) (*sdk.ListTablesOutput, error)
}

// ClientConfig holds what NewDynamoDBClient needs. Empty keys fall back to
// the default credential chain; Endpoint targets DynamoDB Local and the like.
type ClientConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
}

// NewDynamoDBClient initializes a DynamoDB client.
func NewDynamoDBClient(ctx context.Context, cfg ClientConfig) (*sdk.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logging.GetLogger().Info("DynamoDB client initialized", "region", cfg.Region)
	return client, nil
}

// Cluster is a datastore.Cluster on DynamoDB. Buckets are tables in the
// single-table layout; scope and collection share the partition key.
type Cluster struct {
	client API
	retry  RetryOptions
	logger logging.Logger
}

var _ datastore.Cluster = (*Cluster)(nil)

// NewCluster wraps a DynamoDB client.
func NewCluster(client API, opts ...RetryOption) *Cluster {
	retry := DefaultRetryOptions()
	for _, opt := range opts {
		opt(&retry)
	}
	return &Cluster{client: client, retry: retry, logger: logging.GetLogger()}
}

func (c *Cluster) Name() string { return "dynamodb" }

// OpenBucket checks that the table exists and is usable.
func (c *Cluster) OpenBucket(ctx context.Context, name string) (datastore.Bucket, error) {
	out, err := c.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", name, err)
	}
	if out.Table != nil && out.Table.TableStatus == types.TableStatusDeleting {
		return nil, fmt.Errorf("table %q is being deleted", name)
	}
	return &Bucket{cluster: c, name: name}, nil
}

// Capabilities reports query (PartiQL) and key-value once the service answers.
func (c *Cluster) Capabilities(ctx context.Context) (storagemodels.CapabilitySet, error) {
	if _, err := c.client.ListTables(ctx, &sdk.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		return storagemodels.CapabilitySet{}, err
	}
	return storagemodels.NewCapabilitySet(storagemodels.CapabilityQuery, storagemodels.CapabilityKeyValue), nil
}

// Execute runs the PartiQL SELECT for stmt and completes counting and
// removal client-side.
func (c *Cluster) Execute(ctx context.Context, stmt *storagemodels.Statement) (datastore.Rows, error) {
	query, params, err := renderSelect(stmt)
	if err != nil {
		return nil, err
	}

	in := &sdk.ExecuteStatementInput{
		Statement:      aws.String(query),
		Parameters:     params,
		ConsistentRead: aws.Bool(stmt.Consistency == storagemodels.ConsistencyRequestPlus),
	}

	var rows []storagemodels.Row
	var count int64
	err = c.pages(ctx, in, func(item map[string]types.AttributeValue) (bool, error) {
		switch stmt.Kind {
		case storagemodels.StatementCount:
			count++
			return true, nil

		case storagemodels.StatementDelete:
			row, removed, err := c.removeItem(ctx, stmt, item)
			if err != nil {
				return false, err
			}
			if removed {
				rows = append(rows, row)
			}
			return true, nil

		default:
			row, err := decodeItem(item)
			if err != nil {
				return false, err
			}
			rows = append(rows, row)
			return stmt.Limit == 0 || len(rows) < stmt.Limit, nil
		}
	})
	if err != nil {
		return nil, err
	}

	if stmt.Kind == storagemodels.StatementCount {
		rows = []storagemodels.Row{{Count: count}}
	}
	return datastore.NewSliceRows(rows), nil
}

// removeItem deletes one selected item if its version is unchanged. An item
// modified since the select is left in place.
func (c *Cluster) removeItem(ctx context.Context, stmt *storagemodels.Statement, item map[string]types.AttributeValue) (storagemodels.Row, bool, error) {
	id, cas, err := itemIdentity(item)
	if err != nil {
		return storagemodels.Row{}, false, err
	}

	in := &sdk.DeleteItemInput{
		TableName:    aws.String(stmt.Keyspace.Bucket),
		Key:          itemKey(partitionKey(stmt.Keyspace), id),
		ReturnValues: types.ReturnValueAllOld,
	}
	if cas != 0 {
		in.ConditionExpression = aws.String("#cas = :cas")
		in.ExpressionAttributeNames = map[string]string{"#cas": attrCas}
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":cas": &types.AttributeValueMemberN{Value: strconv.FormatUint(cas, 10)},
		}
	}

	out, err := c.client.DeleteItem(ctx, in)
	if err != nil {
		if isConditionalCheckFailed(err) {
			c.logger.Debug("skipping concurrently modified item", "table", stmt.Keyspace.Bucket, "id", id)
			return storagemodels.Row{}, false, nil
		}
		return storagemodels.Row{}, false, err
	}
	if len(out.Attributes) == 0 {
		return storagemodels.Row{}, false, nil
	}

	row := storagemodels.Row{ID: id, Cas: cas}
	if stmt.Returning == storagemodels.ReturningDocument {
		full, err := decodeItem(out.Attributes)
		if err != nil {
			return storagemodels.Row{}, false, err
		}
		row.Content = full.Content
	}
	return row, true, nil
}

// ExecuteRaw runs a caller-written PartiQL statement. $name placeholders are
// bound from params in order of appearance.
func (c *Cluster) ExecuteRaw(ctx context.Context, statement string, params map[string]any) (datastore.Rows, error) {
	query, bound, err := bindNamed(statement, params)
	if err != nil {
		return nil, err
	}

	in := &sdk.ExecuteStatementInput{Statement: aws.String(query), Parameters: bound}
	var rows []storagemodels.Row
	err = c.pages(ctx, in, func(item map[string]types.AttributeValue) (bool, error) {
		var doc map[string]any
		if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
			return false, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		content, err := json.Marshal(doc)
		if err != nil {
			return false, err
		}
		rows = append(rows, storagemodels.Row{Content: content})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return datastore.NewSliceRows(rows), nil
}

// pages runs in page by page, following NextToken, until fn returns false or
// the results are exhausted.
func (c *Cluster) pages(ctx context.Context, in *sdk.ExecuteStatementInput, fn func(map[string]types.AttributeValue) (bool, error)) error {
	var pageNumber int
	started := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := c.executeWithRetry(ctx, in)
		if err != nil {
			return err
		}
		pageNumber++

		for _, item := range out.Items {
			if err := ctx.Err(); err != nil {
				return err
			}
			more, err := fn(item)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}

		if out.NextToken == nil || *out.NextToken == "" {
			c.logger.Debug("partiql statement complete", "pages", pageNumber, "elapsed", time.Since(started).String())
			return nil
		}
		in.NextToken = out.NextToken
	}
}

func (c *Cluster) Classify(err error) (errors.Category, bool) {
	return Classify(err)
}

// Close is a no-op; the SDK client holds no connections that need closing.
func (c *Cluster) Close(ctx context.Context) error {
	return nil
}

func itemKey(pk, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: pk},
		attrSK: &types.AttributeValueMemberS{Value: id},
	}
}

// itemIdentity reads the id and version of an item. The version is parsed
// from its decimal text so large tokens keep every digit.
func itemIdentity(item map[string]types.AttributeValue) (string, uint64, error) {
	sk, ok := item[attrSK].(*types.AttributeValueMemberS)
	if !ok {
		return "", 0, fmt.Errorf("ddb: item without %s", attrSK)
	}
	var cas uint64
	if n, ok := item[attrCas].(*types.AttributeValueMemberN); ok {
		v, err := strconv.ParseUint(n.Value, 10, 64)
		if err != nil {
			return "", 0, fmt.Errorf("ddb: bad %s %q: %w", attrCas, n.Value, err)
		}
		cas = v
	}
	return sk.Value, cas, nil
}

// decodeItem converts an item into a row, stripping the bookkeeping
// attributes from the content.
func decodeItem(item map[string]types.AttributeValue) (storagemodels.Row, error) {
	id, cas, err := itemIdentity(item)
	if err != nil {
		return storagemodels.Row{}, err
	}

	body := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		if k == attrPK || k == attrSK || k == attrCas {
			continue
		}
		body[k] = v
	}

	var doc map[string]any
	if err := attributevalue.UnmarshalMap(body, &doc); err != nil {
		return storagemodels.Row{}, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	content, err := json.Marshal(doc)
	if err != nil {
		return storagemodels.Row{}, err
	}
	return storagemodels.Row{ID: id, Cas: cas, Content: content}, nil
}
