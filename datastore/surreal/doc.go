/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package surreal implements datastore.Cluster on SurrealDB.
//
// Buckets are namespaces, scopes are databases and collections are tables.
// Statements are rendered to SurrealQL with every value bound as a variable,
// and each record carries a _cas field that conditional writes check.
package surreal
