/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"sort"
	"strings"
)

// Capability names a cluster feature that operations may depend on.
type Capability string

const (
	// CapabilityQuery is the declarative query service (N1QL, SurrealQL, PartiQL).
	CapabilityQuery     Capability = "query"
	CapabilityKeyValue  Capability = "kv"
	CapabilityViews     Capability = "views"
	CapabilitySearch    Capability = "search"
	CapabilityAnalytics Capability = "analytics"
	// CapabilityCollections means scopes and collections can be addressed.
	CapabilityCollections Capability = "collections"
)

// ParseCapability maps a case-insensitive name to a Capability.
func ParseCapability(s string) (Capability, bool) {
	switch c := Capability(strings.ToLower(strings.TrimSpace(s))); c {
	case CapabilityQuery, CapabilityKeyValue, CapabilityViews, CapabilitySearch,
		CapabilityAnalytics, CapabilityCollections:
		return c, true
	case "n1ql":
		return CapabilityQuery, true
	}
	return "", false
}

// CapabilitySet is an immutable set of capabilities advertised by a cluster.
type CapabilitySet struct {
	caps map[Capability]struct{}
}

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	m := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		m[c] = struct{}{}
	}
	return CapabilitySet{caps: m}
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s.caps[c]
	return ok
}

// Missing returns the subset of required that is not in the set, in the
// order given.
func (s CapabilitySet) Missing(required ...Capability) []Capability {
	var missing []Capability
	for _, c := range required {
		if !s.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// With returns a copy of the set including caps.
func (s CapabilitySet) With(caps ...Capability) CapabilitySet {
	all := append(s.List(), caps...)
	return NewCapabilitySet(all...)
}

// List returns the capabilities sorted by name.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s.caps))
	for c := range s.caps {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s CapabilitySet) Len() int {
	return len(s.caps)
}

func (s CapabilitySet) String() string {
	names := make([]string, 0, len(s.caps))
	for _, c := range s.List() {
		names = append(names, string(c))
	}
	return "[" + strings.Join(names, " ") + "]"
}
