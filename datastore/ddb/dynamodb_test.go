/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

// fakeAPI serves canned statement pages and keeps items in memory for the
// key-value calls.
type fakeAPI struct {
	mu          sync.Mutex
	pages       []*sdk.ExecuteStatementOutput
	executeErrs []error
	statements  []sdk.ExecuteStatementInput
	items       map[string]map[string]types.AttributeValue
	deleteFail  map[string]bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		items:      make(map[string]map[string]types.AttributeValue),
		deleteFail: make(map[string]bool),
	}
}

func keyOf(key map[string]types.AttributeValue) string {
	return key[attrPK].(*types.AttributeValueMemberS).Value + "|" + key[attrSK].(*types.AttributeValueMemberS).Value
}

func (f *fakeAPI) seed(pk, sk string, cas uint64, attrs map[string]types.AttributeValue) {
	item := map[string]types.AttributeValue{
		attrPK:  &types.AttributeValueMemberS{Value: pk},
		attrSK:  &types.AttributeValueMemberS{Value: sk},
		attrCas: &types.AttributeValueMemberN{Value: fmt.Sprint(cas)},
	}
	for k, v := range attrs {
		item[k] = v
	}
	f.items[pk+"|"+sk] = item
}

func (f *fakeAPI) ExecuteStatement(ctx context.Context, in *sdk.ExecuteStatementInput, _ ...func(*sdk.Options)) (*sdk.ExecuteStatementOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.executeErrs) > 0 {
		err := f.executeErrs[0]
		f.executeErrs = f.executeErrs[1:]
		return nil, err
	}
	f.statements = append(f.statements, *in)
	if len(f.pages) == 0 {
		return &sdk.ExecuteStatementOutput{}, nil
	}
	out := f.pages[0]
	f.pages = f.pages[1:]
	return out, nil
}

// condition evaluates the few condition shapes the collection emits.
func (f *fakeAPI) condition(existing map[string]types.AttributeValue, cond *string, values map[string]types.AttributeValue) bool {
	if cond == nil {
		return true
	}
	c := *cond
	if strings.Contains(c, "attribute_not_exists") && existing != nil {
		return false
	}
	if strings.Contains(c, "attribute_exists") && existing == nil {
		return false
	}
	if strings.Contains(c, "#cas = :cas") {
		if existing == nil {
			return false
		}
		got := existing[attrCas].(*types.AttributeValueMemberN).Value
		want := values[":cas"].(*types.AttributeValueMemberN).Value
		return got == want
	}
	return true
}

func (f *fakeAPI) GetItem(ctx context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &sdk.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(ctx context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Item)
	if !f.condition(f.items[k], in.ConditionExpression, in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	f.items[k] = in.Item
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeAPI) DeleteItem(ctx context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := keyOf(in.Key)
	if f.deleteFail[k] || !f.condition(f.items[k], in.ConditionExpression, in.ExpressionAttributeValues) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
	}
	old := f.items[k]
	delete(f.items, k)
	return &sdk.DeleteItemOutput{Attributes: old}, nil
}

func (f *fakeAPI) DescribeTable(ctx context.Context, in *sdk.DescribeTableInput, _ ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	if aws.ToString(in.TableName) == "missing" {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &sdk.DescribeTableOutput{Table: &types.TableDescription{TableStatus: types.TableStatusActive}}, nil
}

func (f *fakeAPI) ListTables(ctx context.Context, in *sdk.ListTablesInput, _ ...func(*sdk.Options)) (*sdk.ListTablesOutput, error) {
	return &sdk.ListTablesOutput{TableNames: []string{"docs"}}, nil
}

func selected(sk string, cas string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrSK:  &types.AttributeValueMemberS{Value: sk},
		attrCas: &types.AttributeValueMemberN{Value: cas},
	}
}

func TestRenderSelectForRemoval(t *testing.T) {
	stmt := &storagemodels.Statement{
		Kind:     storagemodels.StatementDelete,
		Keyspace: storagemodels.Keyspace{Bucket: "docs"},
		Predicate: storagemodels.And(
			storagemodels.Where("_class").Eq("User"),
			storagemodels.Where("name").Like("Ad%"),
		),
	}

	query, params, err := renderSelect(stmt)
	if err != nil {
		t.Fatalf("renderSelect() error = %v", err)
	}
	want := `SELECT "SK", "_cas" FROM "docs" WHERE "PK" = ? AND ("_class" = ? AND begins_with("name", ?))`
	if query != want {
		t.Errorf("renderSelect() = %q, want %q", query, want)
	}
	if len(params) != 3 {
		t.Fatalf("expected 3 parameters, got %d", len(params))
	}
	if pk := params[0].(*types.AttributeValueMemberS).Value; pk != "_default#_default" {
		t.Errorf("partition key = %q", pk)
	}
	if prefix := params[2].(*types.AttributeValueMemberS).Value; prefix != "Ad" {
		t.Errorf("like prefix = %q, want Ad", prefix)
	}
}

func TestRenderPredicateEdgeCases(t *testing.T) {
	t.Run("empty IN never matches", func(t *testing.T) {
		got, err := (&partiqlBuilder{}).predicate(storagemodels.Where("x").In())
		if err != nil || got != `"PK" IS MISSING` {
			t.Errorf("got %q, %v", got, err)
		}
	})

	t.Run("not equal", func(t *testing.T) {
		got, _ := (&partiqlBuilder{}).predicate(storagemodels.Where("a.b").Ne(1))
		if got != `"a"."b" <> ?` {
			t.Errorf("got %q", got)
		}
	})

	t.Run("infix LIKE is rejected", func(t *testing.T) {
		_, err := (&partiqlBuilder{}).predicate(storagemodels.Where("name").Like("%da"))
		if !errors.IsValidationError(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("quoted identifier", func(t *testing.T) {
		if got := quoteIdent(`we"ird`); got != `"we""ird"` {
			t.Errorf("quoteIdent() = %q", got)
		}
	})
}

func TestPartitionKey(t *testing.T) {
	tests := []struct {
		name string
		ks   storagemodels.Keyspace
		want string
	}{
		{"default scope and collection", storagemodels.Keyspace{Bucket: "docs"}, "_default#_default"},
		{"named", storagemodels.Keyspace{Bucket: "docs", Scope: "tenant", Collection: "users"}, "tenant#users"},
		{"separator in scope", storagemodels.Keyspace{Bucket: "docs", Scope: "a#b", Collection: "c"}, "a%23b#c"},
		{"separator in collection", storagemodels.Keyspace{Bucket: "docs", Scope: "a", Collection: "b#c"}, "a#b%23c"},
		{"percent", storagemodels.Keyspace{Bucket: "docs", Scope: "a%23b", Collection: "c"}, "a%2523b#c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := partitionKey(tt.ks); got != tt.want {
				t.Errorf("partitionKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBindNamed(t *testing.T) {
	query, params, err := bindNamed(`SELECT * FROM "docs" WHERE "city" = $city AND note = '$literal'`, map[string]any{"city": "Lisbon"})
	if err != nil {
		t.Fatalf("bindNamed() error = %v", err)
	}
	if query != `SELECT * FROM "docs" WHERE "city" = ? AND note = '$literal'` {
		t.Errorf("bindNamed() = %q", query)
	}
	if len(params) != 1 {
		t.Errorf("expected 1 parameter, got %d", len(params))
	}

	if _, _, err := bindNamed(`SELECT * FROM "docs" WHERE "x" = $missing`, nil); !errors.IsValidationError(err) {
		t.Errorf("expected validation error for unbound name, got %v", err)
	}
}

func TestExecuteRemovalFollowsPagesAndSkipsModified(t *testing.T) {
	api := newFakeAPI()
	api.pages = []*sdk.ExecuteStatementOutput{
		{Items: []map[string]types.AttributeValue{selected("u1", "18446744073709551615"), selected("u2", "7")}, NextToken: aws.String("t1")},
		{Items: []map[string]types.AttributeValue{selected("u3", "9")}},
	}
	api.seed("_default#_default", "u1", 18446744073709551615, nil)
	api.seed("_default#_default", "u2", 7, nil)
	api.seed("_default#_default", "u3", 9, nil)
	api.deleteFail["_default#_default|u2"] = true

	c := NewCluster(api)
	stmt := &storagemodels.Statement{
		Kind:      storagemodels.StatementDelete,
		Keyspace:  storagemodels.Keyspace{Bucket: "docs"},
		Predicate: storagemodels.Where("_class").Eq("User"),
	}
	rows, err := c.Execute(context.Background(), stmt)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	defer rows.Close()

	var got []storagemodels.Row
	for rows.Next(context.Background()) {
		got = append(got, rows.Row())
	}
	if len(got) != 2 || got[0].ID != "u1" || got[1].ID != "u3" {
		t.Fatalf("unexpected removal rows: %+v", got)
	}
	if got[0].Cas != 18446744073709551615 {
		t.Errorf("cas lost precision: %d", got[0].Cas)
	}
	if got[0].Content != nil {
		t.Errorf("content must be empty without ReturningDocument")
	}
	if len(api.statements) != 2 || aws.ToString(api.statements[1].NextToken) != "t1" {
		t.Errorf("second page was not requested with the continuation token")
	}
	if _, ok := api.items["_default#_default|u2"]; !ok {
		t.Errorf("modified item must be kept")
	}
}

func TestExecuteSelectAndCount(t *testing.T) {
	api := newFakeAPI()
	page := func(ids ...string) *sdk.ExecuteStatementOutput {
		out := &sdk.ExecuteStatementOutput{}
		for _, id := range ids {
			item := selected(id, "1")
			item["name"] = &types.AttributeValueMemberS{Value: "n-" + id}
			item[attrPK] = &types.AttributeValueMemberS{Value: "_default#_default"}
			out.Items = append(out.Items, item)
		}
		return out
	}
	api.pages = []*sdk.ExecuteStatementOutput{page("a", "b"), page("c")}
	api.pages[0].NextToken = aws.String("next")

	c := NewCluster(api)
	rows, err := c.Execute(context.Background(), &storagemodels.Statement{
		Kind:        storagemodels.StatementSelect,
		Keyspace:    storagemodels.Keyspace{Bucket: "docs"},
		Consistency: storagemodels.ConsistencyRequestPlus,
		Limit:       2,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var ids []string
	for rows.Next(context.Background()) {
		row := rows.Row()
		ids = append(ids, row.ID)
		var doc map[string]any
		if err := json.Unmarshal(row.Content, &doc); err != nil {
			t.Fatalf("content is not JSON: %v", err)
		}
		if _, leaked := doc[attrPK]; leaked {
			t.Errorf("key attributes must not leak into content")
		}
	}
	if strings.Join(ids, ",") != "a,b" {
		t.Errorf("limit not applied: %v", ids)
	}
	if !aws.ToBool(api.statements[0].ConsistentRead) {
		t.Errorf("request-plus must read consistently")
	}

	api.pages = []*sdk.ExecuteStatementOutput{page("a", "b"), page("c")}
	api.pages[0].NextToken = aws.String("next")
	rows, err = c.Execute(context.Background(), &storagemodels.Statement{
		Kind:     storagemodels.StatementCount,
		Keyspace: storagemodels.Keyspace{Bucket: "docs"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !rows.Next(context.Background()) || rows.Row().Count != 3 {
		t.Errorf("expected count 3")
	}
}

func TestExecuteRetriesThrottling(t *testing.T) {
	api := newFakeAPI()
	api.executeErrs = []error{&types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}}

	c := NewCluster(api, WithRetryBackoff(time.Millisecond))
	if _, err := c.Execute(context.Background(), &storagemodels.Statement{
		Kind:     storagemodels.StatementCount,
		Keyspace: storagemodels.Keyspace{Bucket: "docs"},
	}); err != nil {
		t.Fatalf("throttled statement should have been retried: %v", err)
	}

	api.executeErrs = []error{stderrors.New("ValidationException: bad statement")}
	if _, err := c.Execute(context.Background(), &storagemodels.Statement{
		Kind:     storagemodels.StatementCount,
		Keyspace: storagemodels.Keyspace{Bucket: "docs"},
	}); err == nil {
		t.Fatalf("non-retryable error must surface")
	}

	api.executeErrs = []error{
		&types.RequestLimitExceeded{}, &types.RequestLimitExceeded{},
	}
	c = NewCluster(api, WithMaxRetries(1), WithRetryBackoff(time.Millisecond))
	_, err := c.Execute(context.Background(), &storagemodels.Statement{
		Kind:     storagemodels.StatementCount,
		Keyspace: storagemodels.Keyspace{Bucket: "docs"},
	})
	if category, ok := Classify(err); !ok || category != errors.CategoryTimeout {
		t.Errorf("exhausted retries should classify as timeout, got %v %v", category, ok)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category errors.Category
		ok       bool
	}{
		{"conditional check", &types.ConditionalCheckFailedException{}, errors.CategoryConstraintViolation, true},
		{"missing table", fmt.Errorf("describe: %w", &types.ResourceNotFoundException{}), errors.CategoryNotFound, true},
		{"throttled", &types.ProvisionedThroughputExceededException{}, errors.CategoryTimeout, true},
		{"deadline", fmt.Errorf("op: %w", context.DeadlineExceeded), errors.CategoryTimeout, true},
		{"bad credentials", &smithy.GenericAPIError{Code: "UnrecognizedClientException"}, errors.CategoryConnectivity, true},
		{"no response", &smithy.OperationError{ServiceID: "DynamoDB", OperationName: "ExecuteStatement", Err: stderrors.New("dial tcp: no such host")}, errors.CategoryConnectivity, true},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException"}, errors.CategoryUnknown, false},
		{"canceled", context.Canceled, errors.CategoryUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, ok := Classify(tt.err)
			if ok != tt.ok || category != tt.category {
				t.Errorf("Classify() = %v, %v; want %v, %v", category, ok, tt.category, tt.ok)
			}
		})
	}
}

func TestCollectionKeyValue(t *testing.T) {
	api := newFakeAPI()
	c := NewCluster(api)
	ctx := context.Background()

	if _, err := c.OpenBucket(ctx, "missing"); err == nil {
		t.Fatalf("expected error for missing table")
	}
	b, err := c.OpenBucket(ctx, "docs")
	if err != nil {
		t.Fatalf("OpenBucket() error = %v", err)
	}
	scope, _ := b.Scope("tenant")
	col := b.Collection(scope, "users")

	doc, err := col.Insert(ctx, "u1", json.RawMessage(`{"name":"Ada"}`))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, ok := api.items["tenant#users|u1"]; !ok {
		t.Fatalf("item stored under wrong key: %v", api.items)
	}
	if _, err := col.Insert(ctx, "u1", json.RawMessage(`{"name":"Ada"}`)); !errors.IsAlreadyExists(err) {
		t.Errorf("expected AlreadyExists, got %v", err)
	}

	if _, err := col.Replace(ctx, "u1", doc.Cas+1, json.RawMessage(`{"name":"Ada L"}`)); !errors.IsConditionFailed(err) {
		t.Errorf("expected ConditionFailed, got %v", err)
	}
	updated, err := col.Replace(ctx, "u1", doc.Cas, json.RawMessage(`{"name":"Ada L"}`))
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got, err := col.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Cas != updated.Cas || !strings.Contains(string(got.Content), "Ada L") {
		t.Errorf("unexpected document %+v", got)
	}

	res, err := col.Remove(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if res.Cas != updated.Cas {
		t.Errorf("Remove() cas = %d, want %d", res.Cas, updated.Cas)
	}
	if _, err := col.Get(ctx, "u1"); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}
	if _, err := col.Remove(ctx, "u1", 0); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound on second remove, got %v", err)
	}
}
