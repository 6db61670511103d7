/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package n1ql renders docstore statements as N1QL (SQL++) text.
//
// QuoteIdentifier and Literal are the only places where caller-supplied data
// enters statement text.
package n1ql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

var identifierEscaper = strings.NewReplacer(`\`, `\\`, "`", "``")

// QuoteIdentifier wraps name in backticks, doubling any backtick and
// backslash inside it.
func QuoteIdentifier(name string) string {
	return "`" + identifierEscaper.Replace(name) + "`"
}

// QuotePath quotes each dot-separated segment of a field path.
func QuotePath(path string) string {
	segments := strings.Split(path, ".")
	for i, s := range segments {
		segments[i] = QuoteIdentifier(s)
	}
	return strings.Join(segments, ".")
}

// Literal renders v as a JSON literal. Strings come out double-quoted with
// quotes, backslashes and control characters escaped.
func Literal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("n1ql: cannot render %T as a literal: %w", v, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
