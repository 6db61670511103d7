/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/suparena/docstore/errors"
)

// Error codes that mean the service could not be used at all.
var connectivityCodes = map[string]bool{
	"UnrecognizedClientException": true,
	"AccessDeniedException":       true,
	"InvalidSignatureException":   true,
	"ExpiredTokenException":       true,
	"MissingAuthenticationToken":  true,
}

// Classify maps DynamoDB service errors onto translator categories.
func Classify(err error) (errors.Category, bool) {
	if err == nil {
		return errors.CategoryUnknown, false
	}

	var (
		notFound   *types.ResourceNotFoundException
		duplicate  *types.DuplicateItemException
		conflict   *types.TransactionConflictException
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
	)
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.CategoryTimeout, true
	case stderrors.Is(err, context.Canceled):
		return errors.CategoryUnknown, false
	case isConditionalCheckFailed(err), stderrors.As(err, &duplicate), stderrors.As(err, &conflict):
		return errors.CategoryConstraintViolation, true
	case stderrors.As(err, &notFound):
		return errors.CategoryNotFound, true
	case stderrors.As(err, &throughput), stderrors.As(err, &limit):
		return errors.CategoryTimeout, true
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) && connectivityCodes[apiErr.ErrorCode()] {
		return errors.CategoryConnectivity, true
	}

	var opErr *smithy.OperationError
	if stderrors.As(err, &opErr) {
		var apiInner smithy.APIError
		if !stderrors.As(opErr.Err, &apiInner) {
			// the request never produced a service response
			return errors.CategoryConnectivity, true
		}
	}
	return errors.CategoryUnknown, false
}

func isConditionalCheckFailed(err error) bool {
	var cfe *types.ConditionalCheckFailedException
	return stderrors.As(err, &cfe)
}
