/*
Package datastore defines the backend boundary for docstore.

A backend provides a Cluster, which resolves Buckets and executes structured
Statements:

	type Cluster interface {
	    OpenBucket(ctx context.Context, name string) (Bucket, error)
	    Capabilities(ctx context.Context) (storagemodels.CapabilitySet, error)
	    Execute(ctx context.Context, stmt *storagemodels.Statement) (Rows, error)
	    ...
	}

Key-value access to a single collection goes through DataStore, which works on
raw JSON bodies with CAS tokens.

Implementations:
  - couchbase: Couchbase Server via gocb (N1QL)
  - surreal: SurrealDB, namespaces as buckets and databases as scopes (SurrealQL)
  - ddb: DynamoDB, tables as buckets (PartiQL)
  - mock: in-memory implementation for testing
*/
package datastore
