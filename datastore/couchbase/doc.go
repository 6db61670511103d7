/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package couchbase implements datastore.Cluster on top of gocb v2.
//
// Statements are rendered with the n1ql package and run on the query
// service at cluster level, since keyspaces are fully qualified. Key-value
// access goes through gocb collections, and capabilities come from a Ping
// of the KV, query, views, search and analytics services.
//
//	c, err := couchbase.Connect(couchbase.Config{
//	    ConnectionString: "couchbase://localhost",
//	    Username:         "Administrator",
//	    Password:         "password",
//	})
//	factory, err := docstore.NewClientFactory(ctx, c, "travel-sample")
package couchbase
