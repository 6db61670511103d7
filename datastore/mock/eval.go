/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/suparena/docstore/storagemodels"
)

// Matches evaluates p against a decoded JSON document. A nil predicate
// matches everything.
func Matches(p storagemodels.Predicate, doc map[string]any) (bool, error) {
	switch t := p.(type) {
	case nil:
		return true, nil

	case storagemodels.Comparison:
		got, ok := lookup(doc, t.Field)
		if !ok {
			return false, nil
		}
		want, err := normalize(t.Value)
		if err != nil {
			return false, err
		}
		return compare(t.Op, got, want)

	case storagemodels.Membership:
		got, ok := lookup(doc, t.Field)
		if !ok {
			return false, nil
		}
		for _, v := range t.Values {
			want, err := normalize(v)
			if err != nil {
				return false, err
			}
			if reflect.DeepEqual(got, want) {
				return true, nil
			}
		}
		return false, nil

	case storagemodels.Presence:
		got, ok := lookup(doc, t.Field)
		switch t.Kind {
		case storagemodels.PresenceMissing:
			return !ok, nil
		case storagemodels.PresenceNull:
			return ok && got == nil, nil
		default:
			return ok && got != nil, nil
		}

	case storagemodels.Logical:
		for _, term := range t.Terms {
			ok, err := Matches(term, doc)
			if err != nil {
				return false, err
			}
			if t.Or && ok {
				return true, nil
			}
			if !t.Or && !ok {
				return false, nil
			}
		}
		return !t.Or, nil

	case storagemodels.Negation:
		ok, err := Matches(t.Term, doc)
		return !ok, err
	}

	return false, fmt.Errorf("mock: unsupported predicate %T", p)
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// normalize round-trips v through JSON so it compares like a stored value
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mock: cannot encode value %T: %w", v, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func compare(op storagemodels.Operator, got, want any) (bool, error) {
	switch op {
	case storagemodels.OpEq:
		return reflect.DeepEqual(got, want), nil
	case storagemodels.OpNe:
		return !reflect.DeepEqual(got, want), nil
	case storagemodels.OpLike:
		s, ok1 := got.(string)
		pattern, ok2 := want.(string)
		if !ok1 || !ok2 {
			return false, nil
		}
		return likeRegexp(pattern).MatchString(s), nil
	}

	c, ok := order(got, want)
	if !ok {
		return false, nil
	}
	switch op {
	case storagemodels.OpGt:
		return c > 0, nil
	case storagemodels.OpGte:
		return c >= 0, nil
	case storagemodels.OpLt:
		return c < 0, nil
	case storagemodels.OpLte:
		return c <= 0, nil
	}
	return false, fmt.Errorf("mock: unsupported operator %q", op)
}

func order(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
