/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package repository builds typed repositories over docstore templates.
//
// Construction checks the capabilities a repository needs against what the
// cluster advertises, once, and fails with an UnsupportedCapabilityError
// instead of deferring the failure to the first query:
//
//	f := repository.NewFactory(docstore.NewOperationsMapping(tpl), nil)
//	users, err := repository.NewQueryRepository[User](ctx, f)
//	if errors.IsUnsupportedCapability(err) {
//	    // fall back to key-value access
//	    kv, _ := repository.NewKeyValueRepository[User](ctx, f)
//	}
package repository
