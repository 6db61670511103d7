/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
)

var errBackendTimeout = errors.New("backend: operation timed out")
var errBackendDown = errors.New("backend: node unreachable")
var errSyntax = errors.New("backend: syntax error at line 1")

func testClassifier(err error) (Category, bool) {
	switch {
	case errors.Is(err, errBackendTimeout):
		return CategoryTimeout, true
	case errors.Is(err, errBackendDown):
		return CategoryConnectivity, true
	}
	return CategoryUnknown, false
}

func TestTranslatorMapping(t *testing.T) {
	tr := NewTranslator(testClassifier)

	tests := []struct {
		name     string
		in       error
		kind     Kind
		category Category
	}{
		{name: "backend timeout", in: errBackendTimeout, kind: KindBackendExecution, category: CategoryTimeout},
		{name: "wrapped backend timeout", in: fmt.Errorf("query: %w", errBackendTimeout), kind: KindBackendExecution, category: CategoryTimeout},
		{name: "connectivity", in: errBackendDown, kind: KindConnection},
		{name: "deadline exceeded", in: context.DeadlineExceeded, kind: KindBackendExecution, category: CategoryTimeout},
		{name: "connection refused", in: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), kind: KindConnection},
		{name: "not found", in: NewNotFoundError("User", "u1"), kind: KindBackendExecution, category: CategoryNotFound},
		{name: "already exists", in: NewAlreadyExistsError("User", "u1"), kind: KindBackendExecution, category: CategoryConstraintViolation},
		{name: "cas mismatch", in: NewConditionFailedError("replace", "cas"), kind: KindBackendExecution, category: CategoryConstraintViolation},
		{name: "unrecognized", in: errSyntax, kind: KindPassthrough},
		{name: "canceled", in: context.Canceled, kind: KindPassthrough},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tr.Translate(tt.in)
			if got := KindOf(out); got != tt.kind {
				t.Fatalf("KindOf() = %s, want %s (err: %v)", got, tt.kind, out)
			}
			if tt.kind == KindBackendExecution && CategoryOf(out) != tt.category {
				t.Errorf("CategoryOf() = %s, want %s", CategoryOf(out), tt.category)
			}
			if !errors.Is(out, tt.in) {
				t.Errorf("translated error should wrap its cause")
			}
		})
	}
}

func TestTranslatorPassthroughIsIdentity(t *testing.T) {
	tr := NewTranslator(testClassifier)
	if out := tr.Translate(errSyntax); out != errSyntax {
		t.Fatalf("unrecognized error must be returned unchanged, got %v", out)
	}
	if out := tr.Translate(nil); out != nil {
		t.Fatalf("nil must stay nil, got %v", out)
	}
}

func TestTranslatorIdempotent(t *testing.T) {
	tr := NewTranslator(testClassifier)

	once := tr.Translate(errBackendTimeout)
	twice := tr.Translate(once)
	if once != twice {
		t.Fatalf("translating a domain error must return it unchanged")
	}

	unsupported := NewUnsupportedCapabilityError("query", "findByQuery")
	if tr.Translate(unsupported) != unsupported {
		t.Fatalf("UnsupportedCapabilityError must pass through unchanged")
	}

	wrapped := fmt.Errorf("collect: %w", once)
	if tr.Translate(wrapped) != wrapped {
		t.Fatalf("wrapped domain error must pass through unchanged")
	}
}

func TestTranslateStatementRecordsStatement(t *testing.T) {
	tr := NewTranslator(testClassifier)
	out := tr.TranslateStatement(errBackendTimeout, "DELETE FROM `b`")

	var be *BackendExecutionError
	if !errors.As(out, &be) {
		t.Fatalf("expected BackendExecutionError, got %T", out)
	}
	if be.Statement != "DELETE FROM `b`" {
		t.Errorf("Statement = %q", be.Statement)
	}
	if be.Category != CategoryTimeout {
		t.Errorf("Category = %s", be.Category)
	}
}

func TestZeroTranslator(t *testing.T) {
	var tr Translator
	if KindOf(tr.Translate(context.DeadlineExceeded)) != KindBackendExecution {
		t.Fatal("zero translator should still classify deadlines")
	}
	if tr.Translate(errBackendTimeout) != errBackendTimeout {
		t.Fatal("zero translator should not know backend errors")
	}
}

func TestDomainErrorMessages(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{NewConnectionError("travel", "", errBackendDown), `connection to bucket "travel" failed: backend: node unreachable`},
		{NewConnectionError("travel", "inventory", nil), `connection to bucket "travel" scope "inventory" failed`},
		{NewConnectionError("", "", nil), "connection to cluster failed"},
		{NewUnsupportedCapabilityError("query", ""), `capability "query" is not supported by the cluster`},
		{NewUnsupportedCapabilityError("query", "repository User"), `capability "query" is not supported by the cluster (required by repository User)`},
		{&BackendExecutionError{Category: CategoryTimeout, Cause: errBackendTimeout}, "timeout: backend execution failed: backend: operation timed out"},
	}

	for _, tt := range tests {
		if tt.err.Error() != tt.expected {
			t.Errorf("Expected error message %q, got %q", tt.expected, tt.err.Error())
		}
	}
}

func TestCapabilityOf(t *testing.T) {
	err := fmt.Errorf("build repository: %w", NewUnsupportedCapabilityError("query", ""))
	capability, ok := CapabilityOf(err)
	if !ok || capability != "query" {
		t.Fatalf("CapabilityOf() = %q, %v", capability, ok)
	}
	if _, ok := CapabilityOf(errSyntax); ok {
		t.Fatal("CapabilityOf should report false for other errors")
	}
}
