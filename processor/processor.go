/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"os"
	"sort"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/storagemodels"
)

// Mapping is the YAML document the generator reads.
type Mapping struct {
	Package  string   `yaml:"package"`
	Entities []Entity `yaml:"entities"`
}

// Entity is one registration. Type must name a Go type in the target package.
type Entity struct {
	Type       string   `yaml:"type"`
	Alias      string   `yaml:"alias"`
	Collection string   `yaml:"collection"`
	Requires   []string `yaml:"requires"`
}

var capabilityIdents = map[storagemodels.Capability]string{
	storagemodels.CapabilityQuery:       "CapabilityQuery",
	storagemodels.CapabilityKeyValue:    "CapabilityKeyValue",
	storagemodels.CapabilityViews:       "CapabilityViews",
	storagemodels.CapabilitySearch:      "CapabilitySearch",
	storagemodels.CapabilityAnalytics:   "CapabilityAnalytics",
	storagemodels.CapabilityCollections: "CapabilityCollections",
}

// Parse decodes and validates a mapping document.
func Parse(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse entity mapping: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseFile reads the mapping at path.
func ParseFile(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Validate rejects duplicate types or aliases, non-identifier type names and
// unknown capabilities.
func (m *Mapping) Validate() error {
	types := make(map[string]bool)
	aliases := make(map[string]bool)
	for i, e := range m.Entities {
		if !token.IsIdentifier(e.Type) {
			return errors.NewValidationError(fmt.Sprintf("entities[%d].type", i), fmt.Sprintf("%q is not a Go identifier", e.Type))
		}
		if types[e.Type] {
			return errors.NewValidationError(fmt.Sprintf("entities[%d].type", i), "duplicate type "+e.Type)
		}
		types[e.Type] = true

		alias := e.Alias
		if alias == "" {
			alias = e.Type
		}
		if aliases[alias] {
			return errors.NewValidationError(fmt.Sprintf("entities[%d].alias", i), "duplicate alias "+alias)
		}
		aliases[alias] = true

		for _, r := range e.Requires {
			if _, ok := storagemodels.ParseCapability(r); !ok {
				return errors.NewValidationError(fmt.Sprintf("entities[%d].requires", i), "unknown capability "+r)
			}
		}
	}
	return nil
}

type genEntity struct {
	Type       string
	Alias      string
	Collection string
	Requires   []string
}

var registrationTemplate = template.Must(template.New("registrations").Parse(`// Code generated by docstore codegen. DO NOT EDIT.

package {{ .Package }}

import (
	"github.com/suparena/docstore/registry"
{{- if .NeedsCapabilities }}
	"github.com/suparena/docstore/storagemodels"
{{- end }}
)

func init() {
{{- range .Entities }}
{{- if not (or .Alias .Collection .Requires) }}
	registry.RegisterEntity[{{ .Type }}](registry.EntityInfo{})
{{- else }}
	registry.RegisterEntity[{{ .Type }}](registry.EntityInfo{
{{- if .Alias }}
		Alias: {{ printf "%q" .Alias }},
{{- end }}
{{- if .Collection }}
		Collection: {{ printf "%q" .Collection }},
{{- end }}
{{- if .Requires }}
		Requires: []storagemodels.Capability{ {{- range $i, $r := .Requires }}{{ if $i }}, {{ end }}storagemodels.{{ $r }}{{ end -}} },
{{- end }}
	})
{{- end }}
{{- end }}
}
`))

// Generate renders gofmt'ed registration code. pkg overrides the package
// named in the mapping; one of them must be set.
func Generate(m *Mapping, pkg string) ([]byte, error) {
	if pkg == "" {
		pkg = m.Package
	}
	if !token.IsIdentifier(pkg) {
		return nil, errors.NewValidationError("package", fmt.Sprintf("%q is not a Go package name", pkg))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	entities := make([]genEntity, 0, len(m.Entities))
	needsCaps := false
	for _, e := range m.Entities {
		g := genEntity{Type: e.Type, Alias: e.Alias, Collection: e.Collection}
		for _, r := range e.Requires {
			c, _ := storagemodels.ParseCapability(r)
			g.Requires = append(g.Requires, capabilityIdents[c])
		}
		needsCaps = needsCaps || len(g.Requires) > 0
		entities = append(entities, g)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].Type < entities[j].Type })

	var buf bytes.Buffer
	err := registrationTemplate.Execute(&buf, map[string]any{
		"Package":           pkg,
		"Entities":          entities,
		"NeedsCapabilities": needsCaps,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render registrations: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generated code does not parse: %w", err)
	}
	return src, nil
}

// Run reads the mapping at in and writes the generated file to out.
func Run(in, out, pkg string) error {
	m, err := ParseFile(in)
	if err != nil {
		return err
	}
	src, err := Generate(m, pkg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, src, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	return nil
}
