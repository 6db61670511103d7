/*
Package registry manages entity metadata for docstore.

Each entity type may register the discriminator alias written under the type
key, the collection it lives in and any extra capabilities its repositories
need:

	registry.RegisterEntity[User](registry.EntityInfo{
	    Alias:      "User",
	    Collection: "users",
	})

Unregistered types resolve to their Go type name and the default collection.
The registry is thread-safe and should be populated during initialization,
typically in init() functions or through code generated by the processor
package.
*/
package registry
