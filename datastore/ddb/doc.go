/*
Package ddb provides a DynamoDB implementation of the datastore interfaces.

Documents live in a single-table layout:

	PK   = "<scope>#<collection>"   partition key
	SK   = document id              sort key
	_cas = version token (N)        rewritten on every write

A "#" or "%" inside a scope or collection name is percent-encoded in PK.
A bucket is a table and a scope only namespaces the partition key, so opening
a scope never touches the service.

Declarative statements are rendered as PartiQL SELECTs scoped to one partition
key and run page by page with ExecuteStatement, following NextToken.
Counting and removal are completed client-side: every selected item is
deleted with a DeleteItem conditioned on the _cas it was read with, and
items modified in between are left alone.

LIKE supports only prefix patterns ("Ad%"), which render as begins_with.

Throttled pages are retried with a linear backoff:

	cluster := ddb.NewCluster(client,
	    ddb.WithMaxRetries(5),
	    ddb.WithRetryBackoff(50*time.Millisecond),
	)
*/
package ddb
