/*
Package docstore is a data-access layer that binds typed Go entities to a
document database.

A SimpleClientFactory opens a bucket on a datastore.Cluster and binds one
scope; WithScope derives a factory for another scope of the same bucket
without reconnecting. A Template probes the cluster capabilities once and
runs entity operations on the factory's keyspace.

Entities of several types share a collection. Each stored document carries a
discriminator under the template's type key (default "_class") whose value is
the alias registered with the registry package, or the Go type name.

Key Features:
  - Generic remove-by-query and find-by-query builders, with immutable
    refinement through Matching
  - A blocking surface (All) and a cold, cancellable reactive surface
    (Reactive().All()) over the same operation
  - Backend failures translated into the semantic errors of package errors
  - Capability-gated templates and repositories
  - Couchbase, SurrealDB, DynamoDB and in-memory backends

Basic Usage:

	cluster, _ := couchbase.Connect(couchbase.Config{ConnectionString: "couchbase://localhost"})
	factory, _ := docstore.NewClientFactory(ctx, cluster, "travel-sample")
	tpl, _ := docstore.NewTemplate(ctx, factory)

	removed, err := docstore.RemoveByQuery[Airline](tpl).
	    Matching(storagemodels.NewQuery().Matching(storagemodels.Where("country").Eq("France"))).
	    All(ctx)

The same removal as a stream:

	pub := docstore.RemoveByQuery[Airline](tpl).Reactive().All()
	for res := range pub.Subscribe(ctx) {
	    if res.Error != nil {
	        return res.Error
	    }
	    log.Printf("removed %s", res.Item.ID)
	}

Nothing runs until a subscriber arrives, and every subscription runs the
statement again.
*/
package docstore
