/*
Package processor generates entity registrations for docstore.

It reads a YAML entity mapping and writes Go code that registers each type
with the entity registry, so the discriminator alias, collection and required
capabilities live next to the model definitions instead of in hand-written
init functions.

Mapping:

	package: models
	entities:
	  - type: User
	    alias: user
	    collection: users
	  - type: Invoice
	    requires: [query, search]

Generated Code:

	func init() {
		registry.RegisterEntity[Invoice](registry.EntityInfo{
			Requires: []storagemodels.Capability{storagemodels.CapabilityQuery, storagemodels.CapabilitySearch},
		})
		registry.RegisterEntity[User](registry.EntityInfo{
			Alias:      "user",
			Collection: "users",
		})
	}

An entity without an alias registers under its Go type name. Registrations
are emitted sorted by type so regenerating an unchanged mapping produces an
identical file.

The generator is exposed on the command line as "docstore codegen".
*/
package processor
