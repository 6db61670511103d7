/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/docstore/errors"
)

const mappingYAML = `
package: models
entities:
  - type: User
    alias: user
    collection: users
  - type: Invoice
    requires: [query, Search]
  - type: Place
`

func TestGenerate(t *testing.T) {
	m, err := Parse([]byte(mappingYAML))
	require.NoError(t, err)
	require.Len(t, m.Entities, 3)

	src, err := Generate(m, "")
	require.NoError(t, err)
	code := string(src)

	_, err = parser.ParseFile(token.NewFileSet(), "zz_generated.go", src, parser.AllErrors)
	require.NoError(t, err, code)

	assert.True(t, strings.HasPrefix(code, "// Code generated by docstore codegen. DO NOT EDIT."))
	assert.Contains(t, code, "package models")
	assert.Contains(t, code, `"github.com/suparena/docstore/storagemodels"`)
	assert.Contains(t, code, "registry.RegisterEntity[User](registry.EntityInfo{")
	assert.Contains(t, code, `"user"`)
	assert.Contains(t, code, `Collection: "users"`)
	assert.Contains(t, code, "storagemodels.CapabilityQuery, storagemodels.CapabilitySearch")
	assert.Contains(t, code, "registry.RegisterEntity[Place](registry.EntityInfo{})")

	invoice := strings.Index(code, "[Invoice]")
	place := strings.Index(code, "[Place]")
	user := strings.Index(code, "[User]")
	assert.True(t, invoice < place && place < user, "registrations are sorted by type")
}

func TestGenerateWithoutCapabilities(t *testing.T) {
	m, err := Parse([]byte("entities:\n  - type: User\n"))
	require.NoError(t, err)

	src, err := Generate(m, "fixtures")
	require.NoError(t, err)
	assert.Contains(t, string(src), "package fixtures")
	assert.NotContains(t, string(src), "storagemodels")

	_, err = Generate(m, "")
	assert.True(t, errors.IsValidationError(err), "a package name is required")
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"duplicate type", "entities:\n  - type: User\n  - type: User\n    alias: other\n"},
		{"duplicate alias", "entities:\n  - type: User\n    alias: person\n  - type: Member\n    alias: person\n"},
		{"alias clashes with type name", "entities:\n  - type: User\n  - type: Member\n    alias: User\n"},
		{"not an identifier", "entities:\n  - type: user-profile\n"},
		{"unknown capability", "entities:\n  - type: User\n    requires: [graph]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.True(t, errors.IsValidationError(err), "got %v", err)
		})
	}

	_, err := Parse([]byte("entities: [oops"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "entities.yaml")
	out := filepath.Join(dir, "zz_generated.go")
	require.NoError(t, os.WriteFile(in, []byte(mappingYAML), 0o600))

	require.NoError(t, Run(in, out, ""))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "package models")

	assert.Error(t, Run(filepath.Join(dir, "missing.yaml"), out, ""))
}
