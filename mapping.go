/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/docstore/registry"
)

// OperationsMapping routes entity aliases to templates. Aliases without an
// explicit mapping use the default template, so entities can live in
// different buckets or scopes.
type OperationsMapping struct {
	mu      sync.RWMutex
	def     *Template
	byAlias map[string]*Template
}

// NewOperationsMapping creates a mapping that falls back to def.
func NewOperationsMapping(def *Template) *OperationsMapping {
	return &OperationsMapping{
		def:     def,
		byAlias: make(map[string]*Template),
	}
}

// Map routes alias to t.
func (m *OperationsMapping) Map(alias string, t *Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byAlias[alias]; exists {
		return fmt.Errorf("template for %q already mapped", alias)
	}
	m.byAlias[alias] = t
	return nil
}

// Unmap removes the route for alias.
func (m *OperationsMapping) Unmap(alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byAlias[alias]; !exists {
		return fmt.Errorf("template for %q not mapped", alias)
	}
	delete(m.byAlias, alias)
	return nil
}

// Default returns the fallback template.
func (m *OperationsMapping) Default() *Template {
	return m.def
}

// TemplateFor returns the template routed to alias, or the default.
func (m *OperationsMapping) TemplateFor(alias string) *Template {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, ok := m.byAlias[alias]; ok {
		return t
	}
	return m.def
}

// Aliases lists the explicitly mapped aliases.
func (m *OperationsMapping) Aliases() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.byAlias))
	for k := range m.byAlias {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TemplateFor returns the template for entity type T.
func TemplateFor[T any](m *OperationsMapping) *Template {
	return m.TemplateFor(registry.Resolve[T]().Alias)
}

// MapEntity routes entity type T to t.
func MapEntity[T any](m *OperationsMapping, t *Template) error {
	return m.Map(registry.Resolve[T]().Alias, t)
}
