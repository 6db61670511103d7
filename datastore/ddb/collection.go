/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

// Bucket is a DynamoDB table
type Bucket struct {
	cluster *Cluster
	name    string
}

func (b *Bucket) Name() string { return b.name }

func (b *Bucket) DefaultScope() datastore.Scope {
	return &Scope{bucket: b.name, name: storagemodels.DefaultScope}
}

// Scope is a partition key prefix, so it needs no lookup.
func (b *Bucket) Scope(name string) (datastore.Scope, error) {
	if name == "" {
		return b.DefaultScope(), nil
	}
	return &Scope{bucket: b.name, name: name}, nil
}

func (b *Bucket) Collection(scope datastore.Scope, name string) datastore.DataStore {
	ks := storagemodels.Keyspace{Bucket: b.name, Scope: scope.Name(), Collection: name}
	return &Collection{
		client: b.cluster.client,
		table:  b.name,
		pk:     partitionKey(ks),
		name:   ks.CollectionName(),
	}
}

// Scope is a logical partition inside a table
type Scope struct {
	bucket string
	name   string
}

func (s *Scope) Name() string       { return s.name }
func (s *Scope) BucketName() string { return s.bucket }

// Collection is key-value access to the items under one partition key
type Collection struct {
	client API
	table  string
	pk     string
	name   string
}

var _ datastore.DataStore = (*Collection)(nil)

var versionSeq atomic.Uint64

// nextVersion returns a version token that increases across the process.
func nextVersion() uint64 {
	now := uint64(time.Now().UnixNano())
	for {
		prev := versionSeq.Load()
		next := max(now, prev+1)
		if versionSeq.CompareAndSwap(prev, next) {
			return next
		}
	}
}

func (c *Collection) Get(ctx context.Context, id string) (*storagemodels.Document, error) {
	out, err := c.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      aws.String(c.table),
		Key:            itemKey(c.pk, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, errors.NewNotFoundError(c.name, id)
	}
	row, err := decodeItem(out.Item)
	if err != nil {
		return nil, err
	}
	return &storagemodels.Document{ID: id, Cas: row.Cas, Content: row.Content}, nil
}

func (c *Collection) Exists(ctx context.Context, id string) (bool, error) {
	out, err := c.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:            aws.String(c.table),
		Key:                  itemKey(c.pk, id),
		ProjectionExpression: aws.String("#sk"),
		ExpressionAttributeNames: map[string]string{
			"#sk": attrSK,
		},
	})
	if err != nil {
		return false, fmt.Errorf("GetItem error: %w", err)
	}
	return out.Item != nil, nil
}

func (c *Collection) Insert(ctx context.Context, id string, body json.RawMessage) (*storagemodels.Document, error) {
	doc, err := c.put(ctx, id, body, "attribute_not_exists(#pk)", nil)
	if isConditionalCheckFailed(err) {
		return nil, errors.NewAlreadyExistsError(c.name, id)
	}
	return doc, err
}

func (c *Collection) Upsert(ctx context.Context, id string, body json.RawMessage) (*storagemodels.Document, error) {
	return c.put(ctx, id, body, "", nil)
}

func (c *Collection) Replace(ctx context.Context, id string, cas uint64, body json.RawMessage) (*storagemodels.Document, error) {
	cond, values := casCondition(cas)
	doc, err := c.put(ctx, id, body, cond, values)
	if isConditionalCheckFailed(err) {
		return nil, c.missOrConflict(ctx, id, cas, "replace")
	}
	return doc, err
}

func (c *Collection) Remove(ctx context.Context, id string, cas uint64) (storagemodels.RemoveResult, error) {
	cond, values := casCondition(cas)
	out, err := c.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:                 aws.String(c.table),
		Key:                       itemKey(c.pk, id),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  casNames(cas),
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllOld,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return storagemodels.RemoveResult{}, c.missOrConflict(ctx, id, cas, "remove")
		}
		return storagemodels.RemoveResult{}, fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	_, removed, err := itemIdentity(out.Attributes)
	if err != nil {
		return storagemodels.RemoveResult{}, err
	}
	return storagemodels.RemoveResult{ID: id, Cas: removed}, nil
}

// put writes body under id with a fresh version, guarded by cond when set.
func (c *Collection) put(ctx context.Context, id string, body json.RawMessage, cond string, values map[string]types.AttributeValue) (*storagemodels.Document, error) {
	if id == "" {
		return nil, errors.NewValidationError("id", "document id must not be empty")
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.NewValidationError("body", "document must be a JSON object")
	}
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	version := nextVersion()
	item[attrPK] = &types.AttributeValueMemberS{Value: c.pk}
	item[attrSK] = &types.AttributeValueMemberS{Value: id}
	item[attrCas] = &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)}

	in := &sdk.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	}
	if cond != "" {
		in.ConditionExpression = aws.String(cond)
		in.ExpressionAttributeNames = map[string]string{"#pk": attrPK}
		if len(values) > 0 {
			in.ExpressionAttributeNames["#cas"] = attrCas
			in.ExpressionAttributeValues = values
		}
	}

	if _, err := c.client.PutItem(ctx, in); err != nil {
		return nil, fmt.Errorf("PutItem failed: %w", err)
	}
	return &storagemodels.Document{ID: id, Cas: version, Content: body}, nil
}

// missOrConflict explains a failed condition: the item is gone, or its
// version moved.
func (c *Collection) missOrConflict(ctx context.Context, id string, cas uint64, op string) error {
	if cas == 0 {
		return errors.NewNotFoundError(c.name, id)
	}
	ok, err := c.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewNotFoundError(c.name, id)
	}
	return errors.NewConditionFailedError(op, "cas mismatch")
}

// casCondition requires the item to exist and, for a non-zero cas, to still
// carry that version.
func casCondition(cas uint64) (string, map[string]types.AttributeValue) {
	if cas == 0 {
		return "attribute_exists(#pk)", nil
	}
	return "attribute_exists(#pk) AND #cas = :cas", map[string]types.AttributeValue{
		":cas": &types.AttributeValueMemberN{Value: strconv.FormatUint(cas, 10)},
	}
}

func casNames(cas uint64) map[string]string {
	names := map[string]string{"#pk": attrPK}
	if cas != 0 {
		names["#cas"] = attrCas
	}
	return names
}
