/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package n1ql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/suparena/docstore/storagemodels"
)

// Result columns produced by Render.
const (
	ColumnID    = "__id"
	ColumnCas   = "__cas"
	ColumnDoc   = "__doc"
	ColumnCount = "__count"
)

// keyspace alias used in every rendered statement
const docAlias = "d"

// Keyspace renders the FROM target. The default scope and collection render
// as the bare bucket.
func Keyspace(ks storagemodels.Keyspace) string {
	if ks.IsDefault() {
		return QuoteIdentifier(ks.Bucket)
	}
	return QuoteIdentifier(ks.Bucket) + "." + QuoteIdentifier(ks.ScopeName()) + "." + QuoteIdentifier(ks.CollectionName())
}

// Render produces the N1QL text for stmt.
func Render(stmt *storagemodels.Statement) (string, error) {
	if stmt == nil {
		return "", fmt.Errorf("n1ql: nil statement")
	}
	if stmt.Keyspace.Bucket == "" {
		return "", fmt.Errorf("n1ql: statement has no bucket")
	}

	where, err := RenderPredicate(stmt.Predicate)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	from := Keyspace(stmt.Keyspace) + " AS " + docAlias

	switch stmt.Kind {
	case storagemodels.StatementDelete:
		b.WriteString("DELETE FROM ")
		b.WriteString(from)
		writeWhere(&b, where)
		b.WriteString(" RETURNING ")
		b.WriteString(metaColumns())
		if stmt.Returning == storagemodels.ReturningDocument {
			b.WriteString(", ")
			b.WriteString(docAlias + " AS " + ColumnDoc)
		}

	case storagemodels.StatementCount:
		b.WriteString("SELECT COUNT(*) AS " + ColumnCount + " FROM ")
		b.WriteString(from)
		writeWhere(&b, where)

	case storagemodels.StatementSelect:
		doc, err := docColumn(stmt.Projection)
		if err != nil {
			return "", err
		}
		b.WriteString("SELECT ")
		b.WriteString(metaColumns())
		b.WriteString(", ")
		b.WriteString(doc)
		b.WriteString(" FROM ")
		b.WriteString(from)
		writeWhere(&b, where)
		if stmt.Limit > 0 {
			b.WriteString(" LIMIT " + strconv.Itoa(stmt.Limit))
		}

	default:
		return "", fmt.Errorf("n1ql: unsupported statement kind %d", stmt.Kind)
	}

	return b.String(), nil
}

func metaColumns() string {
	return "META(" + docAlias + ").id AS " + ColumnID + ", META(" + docAlias + ").cas AS " + ColumnCas
}

func docColumn(projection []string) (string, error) {
	if len(projection) == 0 {
		return docAlias + " AS " + ColumnDoc, nil
	}
	pairs := make([]string, 0, len(projection))
	for _, field := range projection {
		key, err := Literal(field)
		if err != nil {
			return "", err
		}
		pairs = append(pairs, key+": "+docAlias+"."+QuotePath(field))
	}
	return "{" + strings.Join(pairs, ", ") + "} AS " + ColumnDoc, nil
}

func writeWhere(b *strings.Builder, where string) {
	if where == "" {
		return
	}
	b.WriteString(" WHERE ")
	b.WriteString(where)
}

// RenderPredicate renders p as a boolean expression. A nil predicate renders
// as the empty string.
func RenderPredicate(p storagemodels.Predicate) (string, error) {
	switch t := p.(type) {
	case nil:
		return "", nil

	case storagemodels.Comparison:
		lit, err := Literal(t.Value)
		if err != nil {
			return "", err
		}
		return QuotePath(t.Field) + " " + string(t.Op) + " " + lit, nil

	case storagemodels.Membership:
		if len(t.Values) == 0 {
			return "FALSE", nil
		}
		lits := make([]string, 0, len(t.Values))
		for _, v := range t.Values {
			lit, err := Literal(v)
			if err != nil {
				return "", err
			}
			lits = append(lits, lit)
		}
		return QuotePath(t.Field) + " IN [" + strings.Join(lits, ", ") + "]", nil

	case storagemodels.Presence:
		switch t.Kind {
		case storagemodels.PresenceMissing:
			return QuotePath(t.Field) + " IS MISSING", nil
		case storagemodels.PresenceNull:
			return QuotePath(t.Field) + " IS NULL", nil
		default:
			return QuotePath(t.Field) + " IS NOT NULL", nil
		}

	case storagemodels.Logical:
		op := " AND "
		if t.Or {
			op = " OR "
		}
		parts := make([]string, 0, len(t.Terms))
		for _, term := range t.Terms {
			s, err := RenderPredicate(term)
			if err != nil {
				return "", err
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		return "(" + strings.Join(parts, op) + ")", nil

	case storagemodels.Negation:
		s, err := RenderPredicate(t.Term)
		if err != nil {
			return "", err
		}
		return "NOT (" + s + ")", nil
	}

	return "", fmt.Errorf("n1ql: unsupported predicate %T", p)
}

// DecodeRow converts one result row produced by a rendered statement into a
// storagemodels.Row. CAS values are decoded without passing through float64.
func DecodeRow(raw json.RawMessage) (storagemodels.Row, error) {
	var cols map[string]json.RawMessage
	if err := json.Unmarshal(raw, &cols); err != nil {
		return storagemodels.Row{}, fmt.Errorf("n1ql: decode row: %w", err)
	}

	var row storagemodels.Row
	if v, ok := cols[ColumnID]; ok {
		if err := json.Unmarshal(v, &row.ID); err != nil {
			return row, fmt.Errorf("n1ql: decode %s: %w", ColumnID, err)
		}
	}
	if v, ok := cols[ColumnCas]; ok {
		cas, err := strconv.ParseUint(strings.TrimSpace(string(v)), 10, 64)
		if err != nil {
			return row, fmt.Errorf("n1ql: decode %s: %w", ColumnCas, err)
		}
		row.Cas = cas
	}
	if v, ok := cols[ColumnDoc]; ok && string(v) != "null" {
		row.Content = append(json.RawMessage(nil), v...)
	}
	if v, ok := cols[ColumnCount]; ok {
		if err := json.Unmarshal(v, &row.Count); err != nil {
			return row, fmt.Errorf("n1ql: decode %s: %w", ColumnCount, err)
		}
	}
	return row, nil
}
