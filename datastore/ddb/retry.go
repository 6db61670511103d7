/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// RetryOptions controls how throttled statements are retried
type RetryOptions struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultRetryOptions returns 3 retries with a 100ms linear backoff
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// RetryOption configures RetryOptions
type RetryOption func(*RetryOptions)

// WithMaxRetries sets the maximum number of retries
func WithMaxRetries(n int) RetryOption {
	return func(o *RetryOptions) {
		if n >= 0 {
			o.MaxRetries = n
		}
	}
}

// WithRetryBackoff sets the base backoff between retries
func WithRetryBackoff(d time.Duration) RetryOption {
	return func(o *RetryOptions) {
		o.RetryBackoff = d
	}
}

// executeWithRetry executes a statement page with configurable retry logic
func (c *Cluster) executeWithRetry(ctx context.Context, in *sdk.ExecuteStatementInput) (*sdk.ExecuteStatementOutput, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := c.client.ExecuteStatement(ctx, in)
		if err == nil {
			return out, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			return nil, err
		}

		// Don't sleep after last attempt
		if attempt < c.retry.MaxRetries {
			backoff := time.Duration(attempt+1) * c.retry.RetryBackoff
			c.logger.Debug("retrying throttled statement", "attempt", attempt+1, "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("statement failed after %d retries: %w", c.retry.MaxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var (
		throughput *types.ProvisionedThroughputExceededException
		limit      *types.RequestLimitExceeded
		internal   *types.InternalServerError
	)
	if stderrors.As(err, &throughput) || stderrors.As(err, &limit) || stderrors.As(err, &internal) {
		return true
	}

	// Check for AWS SDK retryable errors
	var retryable interface{ IsRetryable() bool }
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return false
}
