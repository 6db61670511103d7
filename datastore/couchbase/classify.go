/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package couchbase

import (
	stderrors "errors"

	"github.com/couchbase/gocb/v2"

	"github.com/suparena/docstore/errors"
)

// Classify maps gocb's sentinel errors onto translator categories.
func Classify(err error) (errors.Category, bool) {
	switch {
	case err == nil:
		return errors.CategoryUnknown, false
	case stderrors.Is(err, gocb.ErrTimeout),
		stderrors.Is(err, gocb.ErrUnambiguousTimeout),
		stderrors.Is(err, gocb.ErrAmbiguousTimeout):
		return errors.CategoryTimeout, true
	case stderrors.Is(err, gocb.ErrDocumentNotFound),
		stderrors.Is(err, gocb.ErrCollectionNotFound),
		stderrors.Is(err, gocb.ErrIndexNotFound):
		return errors.CategoryNotFound, true
	case stderrors.Is(err, gocb.ErrDocumentExists),
		stderrors.Is(err, gocb.ErrCasMismatch):
		return errors.CategoryConstraintViolation, true
	case stderrors.Is(err, gocb.ErrBucketNotFound),
		stderrors.Is(err, gocb.ErrScopeNotFound),
		stderrors.Is(err, gocb.ErrServiceNotAvailable),
		stderrors.Is(err, gocb.ErrAuthenticationFailure):
		return errors.CategoryConnectivity, true
	}
	return errors.CategoryUnknown, false
}
