/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

// Key and bookkeeping attributes of the single-table layout. PK holds
// "<scope>#<collection>", SK the document id and _cas the version token.
const (
	attrPK  = "PK"
	attrSK  = "SK"
	attrCas = "_cas"
)

var keyEscaper = strings.NewReplacer("%", "%25", "#", "%23")

// partitionKey returns the PK value for a keyspace. "#" and "%" in scope and
// collection names are percent-encoded so distinct keyspaces never share a PK.
func partitionKey(ks storagemodels.Keyspace) string {
	return keyEscaper.Replace(ks.ScopeName()) + "#" + keyEscaper.Replace(ks.CollectionName())
}

// quoteIdent double-quotes a PartiQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quotePath(path string) string {
	segs := strings.Split(path, ".")
	for i, s := range segs {
		segs[i] = quoteIdent(s)
	}
	return strings.Join(segs, ".")
}

// partiqlBuilder renders PartiQL with positional parameters.
type partiqlBuilder struct {
	params []types.AttributeValue
}

func (b *partiqlBuilder) bind(v any) (string, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("ddb: marshal parameter: %w", err)
	}
	b.params = append(b.params, av)
	return "?", nil
}

// renderSelect builds the SELECT that every statement kind starts from. Removal
// and counting are completed client-side from its rows.
func renderSelect(stmt *storagemodels.Statement) (string, []types.AttributeValue, error) {
	b := &partiqlBuilder{}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	switch {
	case stmt.Kind == storagemodels.StatementCount:
		sb.WriteString(quoteIdent(attrSK))
	case stmt.Kind == storagemodels.StatementDelete && stmt.Returning != storagemodels.ReturningDocument:
		sb.WriteString(quoteIdent(attrSK) + ", " + quoteIdent(attrCas))
	case stmt.Kind == storagemodels.StatementSelect && len(stmt.Projection) > 0:
		cols := []string{quoteIdent(attrSK), quoteIdent(attrCas)}
		for _, p := range stmt.Projection {
			cols = append(cols, quotePath(p))
		}
		sb.WriteString(strings.Join(cols, ", "))
	default:
		sb.WriteString("*")
	}

	sb.WriteString(" FROM " + quoteIdent(stmt.Keyspace.Bucket))
	pk, _ := b.bind(partitionKey(stmt.Keyspace))
	sb.WriteString(" WHERE " + quoteIdent(attrPK) + " = " + pk)

	where, err := b.predicate(stmt.Predicate)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		sb.WriteString(" AND " + where)
	}
	return sb.String(), b.params, nil
}

func (b *partiqlBuilder) predicate(p storagemodels.Predicate) (string, error) {
	switch t := p.(type) {
	case nil:
		return "", nil

	case storagemodels.Comparison:
		field := quotePath(t.Field)
		if t.Op == storagemodels.OpLike {
			prefix, err := likePrefix(t.Value)
			if err != nil {
				return "", err
			}
			v, err := b.bind(prefix)
			if err != nil {
				return "", err
			}
			return "begins_with(" + field + ", " + v + ")", nil
		}
		v, err := b.bind(t.Value)
		if err != nil {
			return "", err
		}
		op := string(t.Op)
		if t.Op == storagemodels.OpNe {
			op = "<>"
		}
		return field + " " + op + " " + v, nil

	case storagemodels.Membership:
		if len(t.Values) == 0 {
			// PK is always present, so this never matches
			return quoteIdent(attrPK) + " IS MISSING", nil
		}
		marks := make([]string, 0, len(t.Values))
		for _, val := range t.Values {
			v, err := b.bind(val)
			if err != nil {
				return "", err
			}
			marks = append(marks, v)
		}
		return quotePath(t.Field) + " IN [" + strings.Join(marks, ", ") + "]", nil

	case storagemodels.Presence:
		f := quotePath(t.Field)
		switch t.Kind {
		case storagemodels.PresenceMissing:
			return f + " IS MISSING", nil
		case storagemodels.PresenceNull:
			return f + " IS NULL", nil
		default:
			return "(" + f + " IS NOT MISSING AND " + f + " IS NOT NULL)", nil
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
		return "NOT (" + s + ")", nil
	}
	return "", fmt.Errorf("ddb: unsupported predicate %T", p)
}

// likePrefix accepts only "prefix%" patterns, which map onto begins_with.
func likePrefix(v any) (string, error) {
	pattern, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError("like", fmt.Sprintf("pattern must be a string, got %T", v))
	}
	prefix, found := strings.CutSuffix(pattern, "%")
	if !found || strings.ContainsAny(prefix, "%_") {
		return "", errors.NewValidationError("like", fmt.Sprintf("only prefix patterns are supported, got %q", pattern))
	}
	return prefix, nil
}

// bindNamed rewrites $name placeholders outside string literals into
// positional parameters.
func bindNamed(statement string, params map[string]any) (string, []types.AttributeValue, error) {
	b := &partiqlBuilder{}
	var sb strings.Builder
	var quote rune

	runes := []rune(statement)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			sb.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			sb.WriteRune(r)
		case r == '$':
			j := i + 1
			for j < len(runes) && (runes[j] == '_' || isAlnum(runes[j])) {
				j++
			}
			name := string(runes[i+1 : j])
			if name == "" {
				sb.WriteRune(r)
				continue
			}
			val, ok := params[name]
			if !ok {
				return "", nil, errors.NewValidationError("params", fmt.Sprintf("no value for $%s", name))
			}
			mark, err := b.bind(val)
			if err != nil {
				return "", nil, err
			}
			sb.WriteString(mark)
			i = j - 1
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String(), b.params, nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
