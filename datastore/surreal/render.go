/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package surreal

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/suparena/docstore/storagemodels"
)

// Reserved record fields. The CAS token is kept on the record itself.
const (
	casField = "_cas"
	idField  = "id"
)

// statementBuilder renders SurrealQL with every value bound as a variable.
type statementBuilder struct {
	vars map[string]any
	n    int
}

func newStatementBuilder() *statementBuilder {
	return &statementBuilder{vars: make(map[string]any)}
}

func (b *statementBuilder) bind(v any) string {
	name := fmt.Sprintf("p%d", b.n)
	b.n++
	b.vars[name] = v
	return "$" + name
}

var identEscaper = strings.NewReplacer(`\`, `\\`, "`", "\\`")

// quoteIdent wraps a field segment in backticks, escaping backslashes and
// backticks inside it.
func quoteIdent(name string) string {
	return "`" + identEscaper.Replace(name) + "`"
}

func quotePath(path string) string {
	segs := strings.Split(path, ".")
	for i, s := range segs {
		segs[i] = quoteIdent(s)
	}
	return strings.Join(segs, ".")
}

// render turns stmt into SurrealQL. The keyspace collection is the table;
// bucket and scope select the namespace and database on the connection.
func render(stmt *storagemodels.Statement) (string, map[string]any, error) {
	b := newStatementBuilder()
	table := b.bind(stmt.Keyspace.CollectionName())

	where, err := b.predicate(stmt.Predicate)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		where = " WHERE " + where
	}

	var q string
	switch stmt.Kind {
	case storagemodels.StatementDelete:
		q = "DELETE FROM type::table(" + table + ")" + where + " RETURN BEFORE"

	case storagemodels.StatementCount:
		q = "SELECT count() AS __count FROM type::table(" + table + ")" + where + " GROUP ALL"

	case storagemodels.StatementSelect:
		fields := "*"
		if len(stmt.Projection) > 0 {
			cols := []string{idField, casField}
			for _, p := range stmt.Projection {
				cols = append(cols, quotePath(p))
			}
			fields = strings.Join(cols, ", ")
		}
		q = "SELECT " + fields + " FROM type::table(" + table + ")" + where + " ORDER BY id"
		if stmt.Limit > 0 {
			q += fmt.Sprintf(" LIMIT %d", stmt.Limit)
		}

	default:
		return "", nil, fmt.Errorf("surreal: unsupported statement kind %s", stmt.Kind)
	}
	return q, b.vars, nil
}

func (b *statementBuilder) predicate(p storagemodels.Predicate) (string, error) {
	switch t := p.(type) {
	case nil:
		return "", nil

	case storagemodels.Comparison:
		if t.Op == storagemodels.OpLike {
			pattern, ok := t.Value.(string)
			if !ok {
				return "", fmt.Errorf("surreal: LIKE needs a string pattern, got %T", t.Value)
			}
			return "string::matches(" + quotePath(t.Field) + ", " + b.bind(likeToRegexp(pattern)) + ")", nil
		}
		return quotePath(t.Field) + " " + string(t.Op) + " " + b.bind(t.Value), nil

	case storagemodels.Membership:
		if len(t.Values) == 0 {
			return "false", nil
		}
		return quotePath(t.Field) + " IN " + b.bind(t.Values), nil

	case storagemodels.Presence:
		f := quotePath(t.Field)
		switch t.Kind {
		case storagemodels.PresenceMissing:
			return f + " IS NONE", nil
		case storagemodels.PresenceNull:
			return f + " IS NULL", nil
		default:
			return "(" + f + " IS NOT NONE AND " + f + " IS NOT NULL)", nil
		}

	case storagemodels.Logical:
		op := " AND "
		if t.Or {
			op = " OR "
		}
		parts := make([]string, 0, len(t.Terms))
		for _, term := range t.Terms {
			s, err := b.predicate(term)
			if err != nil {
				return "", err
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		return "(" + strings.Join(parts, op) + ")", nil

	case storagemodels.Negation:
		s, err := b.predicate(t.Term)
		if err != nil {
			return "", err
		}
		return "!(" + s + ")", nil
	}
	return "", fmt.Errorf("surreal: unsupported predicate %T", p)
}

// likeToRegexp converts a LIKE pattern (% and _ wildcards) to an anchored
// regular expression.
func likeToRegexp(pattern string) string {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	return sb.String()
}
