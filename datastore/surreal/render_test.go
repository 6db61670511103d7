/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package surreal

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

func keyspace() storagemodels.Keyspace {
	return storagemodels.Keyspace{Bucket: "bucket1", Collection: "users"}
}

func TestRenderDelete(t *testing.T) {
	stmt := &storagemodels.Statement{
		Kind:      storagemodels.StatementDelete,
		Keyspace:  keyspace(),
		Predicate: storagemodels.And(storagemodels.Where("_class").Eq("User"), storagemodels.Where("age").Gte(18)),
	}

	sql, vars, err := render(stmt)
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM type::table($p0) WHERE (`_class` = $p1 AND `age` >= $p2) RETURN BEFORE", sql)
	assert.Equal(t, map[string]any{"p0": "users", "p1": "User", "p2": 18}, vars)
}

// readIdent reads a backtick identifier at the start of s the way the
// SurrealQL lexer does and returns its name and the remaining text.
func readIdent(t *testing.T, s string) (string, string) {
	t.Helper()
	require.True(t, strings.HasPrefix(s, "`"), "no identifier at %q", s)
	var name strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
			require.Less(t, i, len(s), "dangling escape in %q", s)
			name.WriteByte(s[i])
		case '`':
			return name.String(), s[i+1:]
		default:
			name.WriteByte(s[i])
		}
	}
	t.Fatalf("unterminated identifier %q", s)
	return "", ""
}

func TestQuoteIdentKeepsFieldNameInside(t *testing.T) {
	for _, field := range []string{
		"plain",
		"with`tick",
		"x\\` = 0 OR true OR `y",
		"trailing\\",
		"\\\\`",
	} {
		name, rest := readIdent(t, quoteIdent(field))
		assert.Equal(t, field, name)
		assert.Empty(t, rest)
	}
}

func TestRenderDeleteEscapesFieldNames(t *testing.T) {
	field := "x\\` = 0 OR true OR `y"
	stmt := &storagemodels.Statement{
		Kind:      storagemodels.StatementDelete,
		Keyspace:  keyspace(),
		Predicate: storagemodels.And(storagemodels.Where("_class").Eq("User"), storagemodels.Where(field).Eq(1)),
	}

	sql, vars, err := render(stmt)
	require.NoError(t, err)

	prefix := "DELETE FROM type::table($p0) WHERE (`_class` = $p1 AND "
	require.True(t, strings.HasPrefix(sql, prefix), sql)
	name, rest := readIdent(t, strings.TrimPrefix(sql, prefix))
	assert.Equal(t, field, name)
	assert.Equal(t, " = $p2) RETURN BEFORE", rest)
	assert.Equal(t, map[string]any{"p0": "users", "p1": "User", "p2": 1}, vars)
}

func TestRenderSelectAndCount(t *testing.T) {
	stmt := &storagemodels.Statement{
		Kind:       storagemodels.StatementSelect,
		Keyspace:   storagemodels.Keyspace{Bucket: "bucket1"},
		Predicate:  storagemodels.Where("address.city").In("Lisbon", "Porto"),
		Projection: []string{"name"},
		Limit:      5,
	}
	sql, vars, err := render(stmt)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, _cas, `name` FROM type::table($p0) WHERE `address`.`city` IN $p1 ORDER BY id LIMIT 5", sql)
	assert.Equal(t, storagemodels.DefaultCollection, vars["p0"])

	stmt = &storagemodels.Statement{Kind: storagemodels.StatementCount, Keyspace: keyspace()}
	sql, _, err = render(stmt)
	require.NoError(t, err)
	assert.Equal(t, "SELECT count() AS __count FROM type::table($p0) GROUP ALL", sql)
}

func TestRenderPredicates(t *testing.T) {
	tests := []struct {
		name string
		p    storagemodels.Predicate
		want string
	}{
		{"empty in", storagemodels.Where("x").In(), "false"},
		{"missing", storagemodels.Where("x").IsMissing(), "`x` IS NONE"},
		{"null", storagemodels.Where("x").IsNull(), "`x` IS NULL"},
		{"not null", storagemodels.Where("x").IsNotNull(), "(`x` IS NOT NONE AND `x` IS NOT NULL)"},
		{"not", storagemodels.Not(storagemodels.Where("x").Eq(1)), "!(`x` = $p0)"},
		{"or", storagemodels.Or(storagemodels.Where("a").Eq(1), storagemodels.Where("b").Eq(2)), "(`a` = $p0 OR `b` = $p1)"},
		{"like", storagemodels.Where("name").Like("Ad%"), "string::matches(`name`, $p0)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newStatementBuilder().predicate(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLikeToRegexp(t *testing.T) {
	re := regexp.MustCompile(likeToRegexp("A_a.%"))
	assert.True(t, re.MatchString("Ada.Lovelace"))
	assert.False(t, re.MatchString("Adax"))
}

func TestRenderLikeNeedsString(t *testing.T) {
	_, err := newStatementBuilder().predicate(storagemodels.Comparison{Field: "n", Op: storagemodels.OpLike, Value: 3})
	assert.Error(t, err)
}

func TestRecordRow(t *testing.T) {
	row, err := recordRow(map[string]any{
		"id":     models.RecordID{Table: "users", ID: "u1"},
		"_cas":   uint64(42),
		"_class": "User",
		"name":   "Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", row.ID)
	assert.Equal(t, uint64(42), row.Cas)
	assert.JSONEq(t, `{"_class":"User","name":"Ada"}`, string(row.Content))

	assert.Equal(t, "u2", recordKey("users:⟨u2⟩"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err      error
		category errors.Category
		ok       bool
	}{
		{stderrors.New("query timed out"), errors.CategoryTimeout, true},
		{fmt.Errorf("connect ws://db: %w", stderrors.New("dial tcp: connection refused")), errors.CategoryConnectivity, true},
		{stderrors.New("Database record `users:u1` already exists"), errors.CategoryConstraintViolation, true},
		{stderrors.New("The table 'users' does not exist"), errors.CategoryNotFound, true},
		{stderrors.New("Parse error: unexpected token"), errors.CategoryUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			category, ok := Classify(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.category, category)
		})
	}
}

func TestNextCasIncreases(t *testing.T) {
	a, b := nextCas(), nextCas()
	assert.Greater(t, b, a)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, errors.IsValidationError(err))
}
