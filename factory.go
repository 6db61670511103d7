/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docstore

import (
	"context"
	stderrors "errors"

	"github.com/suparena/docstore/datastore"
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/logging"
)

// SimpleClientFactory binds a cluster to one bucket and one scope. It is
// immutable; WithScope derives a new factory instead of changing this one.
type SimpleClientFactory struct {
	cluster    datastore.Cluster
	bucket     datastore.Bucket
	scope      datastore.Scope
	translator errors.Translator
}

// NewClientFactory opens bucketName on cluster and binds its default scope.
func NewClientFactory(ctx context.Context, cluster datastore.Cluster, bucketName string) (*SimpleClientFactory, error) {
	return NewScopedClientFactory(ctx, cluster, bucketName, "")
}

// NewScopedClientFactory opens bucketName and binds scopeName. An empty
// scopeName binds the default scope. Failures to reach the cluster or resolve
// the bucket are reported as ConnectionError.
func NewScopedClientFactory(ctx context.Context, cluster datastore.Cluster, bucketName, scopeName string) (*SimpleClientFactory, error) {
	if cluster == nil {
		return nil, errors.NewValidationError("cluster", "must not be nil")
	}
	if bucketName == "" {
		return nil, errors.NewValidationError("bucket", "must not be empty")
	}

	translator := errors.NewTranslator(cluster.Classify)

	bucket, err := cluster.OpenBucket(ctx, bucketName)
	if err != nil {
		return nil, connectionError(translator, bucketName, scopeName, err)
	}

	scope, err := resolveScope(bucket, scopeName)
	if err != nil {
		return nil, connectionError(translator, bucketName, scopeName, err)
	}

	logging.GetLogger().Info("client factory opened",
		"backend", cluster.Name(), "bucket", bucket.Name(), "scope", scope.Name())

	return &SimpleClientFactory{
		cluster:    cluster,
		bucket:     bucket,
		scope:      scope,
		translator: translator,
	}, nil
}

// WithScope returns a factory bound to scopeName on the same bucket and the
// same cluster. The bucket is not re-resolved and nothing reconnects.
func (f *SimpleClientFactory) WithScope(scopeName string) (*SimpleClientFactory, error) {
	scope, err := resolveScope(f.bucket, scopeName)
	if err != nil {
		return nil, connectionError(f.translator, f.bucket.Name(), scopeName, err)
	}
	return &SimpleClientFactory{
		cluster:    f.cluster,
		bucket:     f.bucket,
		scope:      scope,
		translator: f.translator,
	}, nil
}

// Cluster returns the shared cluster handle.
func (f *SimpleClientFactory) Cluster() datastore.Cluster { return f.cluster }

// Bucket returns the bound bucket.
func (f *SimpleClientFactory) Bucket() datastore.Bucket { return f.bucket }

// Scope returns the bound scope.
func (f *SimpleClientFactory) Scope() datastore.Scope { return f.scope }

// ExceptionTranslator returns the translator for this factory's backend.
func (f *SimpleClientFactory) ExceptionTranslator() errors.Translator { return f.translator }

// Collection returns key-value access to a collection in the bound scope.
func (f *SimpleClientFactory) Collection(name string) datastore.DataStore {
	return f.bucket.Collection(f.scope, name)
}

// Close closes the cluster. Every factory derived with WithScope shares it.
func (f *SimpleClientFactory) Close(ctx context.Context) error {
	return f.translator.Translate(f.cluster.Close(ctx))
}

func resolveScope(bucket datastore.Bucket, name string) (datastore.Scope, error) {
	if name == "" {
		return bucket.DefaultScope(), nil
	}
	return bucket.Scope(name)
}

func connectionError(tr errors.Translator, bucket, scope string, cause error) error {
	translated := tr.Translate(cause)
	var ce *errors.ConnectionError
	if stderrors.As(translated, &ce) {
		if ce.Bucket == "" {
			ce.Bucket = bucket
			ce.Scope = scope
		}
		return ce
	}
	return errors.NewConnectionError(bucket, scope, cause)
}
