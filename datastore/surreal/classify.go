/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package surreal

import (
	"strings"

	"github.com/suparena/docstore/errors"
)

// The driver reports most failures as text, so classification matches on
// the message.
var (
	timeoutMarkers      = []string{"timeout", "timed out", "deadline"}
	connectivityMarkers = []string{"connection refused", "connection reset", "websocket", "broken pipe", "cluster closed", "signin failed", "use failed"}
	notFoundMarkers     = []string{"does not exist", "not found"}
)

// Classify maps SurrealDB driver failures onto translator categories.
func Classify(err error) (errors.Category, bool) {
	if err == nil {
		return errors.CategoryUnknown, false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, timeoutMarkers):
		return errors.CategoryTimeout, true
	case containsAny(msg, connectivityMarkers):
		return errors.CategoryConnectivity, true
	case isUniqueConstraintError(err):
		return errors.CategoryConstraintViolation, true
	case containsAny(msg, notFoundMarkers):
		return errors.CategoryNotFound, true
	}
	return errors.CategoryUnknown, false
}

// isUniqueConstraintError reports a duplicate record or index entry.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
