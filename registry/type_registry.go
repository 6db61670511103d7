/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/docstore/storagemodels"
)

// EntityInfo describes how an entity type is stored.
type EntityInfo struct {
	// Alias is the discriminator value written under the type key.
	// Defaults to the Go type name.
	Alias string
	// Collection inside the scope. Empty means the default collection.
	Collection string
	// Requires lists capabilities a repository for this entity needs
	// beyond those implied by its operations.
	Requires []storagemodels.Capability

	typ reflect.Type
}

// Type returns the registered Go type.
func (e EntityInfo) Type() reflect.Type { return e.typ }

var (
	mu      sync.RWMutex
	byType  = make(map[reflect.Type]EntityInfo)
	byAlias = make(map[string]EntityInfo)
)

// RegisterEntity records storage metadata for T. It panics when T or the
// alias is already registered, to prevent accidental overrides.
func RegisterEntity[T any](info EntityInfo) {
	t := typeOf[T]()
	if info.Alias == "" {
		info.Alias = t.Name()
	}
	info.Requires = append([]storagemodels.Capability(nil), info.Requires...)
	info.typ = t

	mu.Lock()
	defer mu.Unlock()

	if _, exists := byType[t]; exists {
		panic(fmt.Sprintf("entity registry: type %s already registered", t))
	}
	if existing, exists := byAlias[info.Alias]; exists {
		panic(fmt.Sprintf("entity registry: alias %q already registered for %s", info.Alias, existing.typ))
	}
	byType[t] = info
	byAlias[info.Alias] = info
}

// Lookup returns the metadata registered for T.
func Lookup[T any]() (EntityInfo, bool) {
	mu.RLock()
	defer mu.RUnlock()
	info, ok := byType[typeOf[T]()]
	return info, ok
}

// LookupAlias returns the metadata registered under alias.
func LookupAlias(alias string) (EntityInfo, bool) {
	mu.RLock()
	defer mu.RUnlock()
	info, ok := byAlias[alias]
	return info, ok
}

// Resolve returns the metadata for T, falling back to the type name as alias
// and the default collection when T was never registered.
func Resolve[T any]() EntityInfo {
	if info, ok := Lookup[T](); ok {
		return info
	}
	t := typeOf[T]()
	return EntityInfo{Alias: t.Name(), typ: t}
}

// Aliases lists every registered alias in sorted order.
func Aliases() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(byAlias))
	for a := range byAlias {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Unregister removes T. It exists for tests and hot-reload tooling.
func Unregister[T any]() {
	mu.Lock()
	defer mu.Unlock()
	t := typeOf[T]()
	if info, ok := byType[t]; ok {
		delete(byAlias, info.Alias)
		delete(byType, t)
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
