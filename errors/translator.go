/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// Category classifies a backend failure.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryTimeout
	CategoryNotFound
	CategoryConstraintViolation
	CategoryConnectivity
)

func (c Category) String() string {
	switch c {
	case CategoryTimeout:
		return "timeout"
	case CategoryNotFound:
		return "not-found"
	case CategoryConstraintViolation:
		return "constraint-violation"
	case CategoryConnectivity:
		return "connectivity"
	default:
		return "unknown"
	}
}

// Kind is the top-level taxonomy an error falls into after translation.
type Kind int

const (
	KindPassthrough Kind = iota
	KindConnection
	KindUnsupportedCapability
	KindBackendExecution
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindUnsupportedCapability:
		return "unsupported-capability"
	case KindBackendExecution:
		return "backend-execution"
	default:
		return "passthrough"
	}
}

// KindOf reports which domain error kind err belongs to.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindPassthrough
	case IsConnection(err):
		return KindConnection
	case IsUnsupportedCapability(err):
		return KindUnsupportedCapability
	case IsBackendExecution(err):
		return KindBackendExecution
	default:
		return KindPassthrough
	}
}

// Classifier recognizes backend-specific failures. It returns false for
// errors it does not know.
type Classifier func(err error) (Category, bool)

// Translator maps raw backend errors into the domain taxonomy. The zero value
// only applies ContextClassifier.
type Translator struct {
	classifiers []Classifier
}

// NewTranslator builds a translator that consults classifiers in order and
// falls back to ContextClassifier.
func NewTranslator(classifiers ...Classifier) Translator {
	cs := make([]Classifier, 0, len(classifiers))
	for _, c := range classifiers {
		if c != nil {
			cs = append(cs, c)
		}
	}
	return Translator{classifiers: cs}
}

// Translate converts err into a ConnectionError or BackendExecutionError when
// it is recognized. Domain errors and unrecognized errors are returned as is.
func (t Translator) Translate(err error) error {
	return t.TranslateStatement(err, "")
}

// TranslateStatement is Translate with the failing statement recorded on
// BackendExecutionError.
func (t Translator) TranslateStatement(err error, statement string) error {
	if err == nil || isDomain(err) {
		return err
	}

	category, ok := t.classify(err)
	if !ok {
		return err
	}

	if category == CategoryConnectivity {
		return &ConnectionError{Cause: err}
	}
	return &BackendExecutionError{Category: category, Statement: statement, Cause: err}
}

func (t Translator) classify(err error) (Category, bool) {
	for _, c := range t.classifiers {
		if category, ok := c(err); ok && category != CategoryUnknown {
			return category, true
		}
	}
	return ContextClassifier(err)
}

// ContextClassifier recognizes failures that do not depend on a backend:
// deadlines, network timeouts, refused connections and the key-value sentinels.
// context.Canceled is left unclassified.
func ContextClassifier(err error) (Category, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout, true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return CategoryConnectivity, true
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound, true
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConditionFailed):
		return CategoryConstraintViolation, true
	}

	return CategoryUnknown, false
}

func isDomain(err error) bool {
	var (
		ce *ConnectionError
		ue *UnsupportedCapabilityError
		be *BackendExecutionError
	)
	return errors.As(err, &ce) || errors.As(err, &ue) || errors.As(err, &be)
}
