// Package io imports and exports work-graph snapshots as JSON or YAML.
//
// # Format
//
// A snapshot has two top-level arrays:
//
//	{
//	  "items": [
//	    {"id": "wg-1", "title": "Design", "status": "open", "priority": 1, "issue_type": "task"},
//	    {"id": "wg-2", "title": "Build", "status": "open", "priority": 2, "issue_type": "task"}
//	  ],
//	  "edges": [
//	    {"from": "wg-2", "to": "wg-1", "kind": "blocks"}
//	  ]
//	}
//
// The YAML form uses the same field names. An edge's kind defaults to
// blocks when omitted.
//
// # Import
//
// [Apply] writes a snapshot into a store through the normal insert path,
// so imported edges obey the same cycle check as interactive ones. Edges
// the store refuses are collected in the [Report] rather than aborting
// the import.
//
// # Export
//
// [Dump] reads the whole store into a [Snapshot] in a stable order, and
// [Write] encodes it. Dump followed by Apply into an empty store
// reproduces the same items and edges.
package io
