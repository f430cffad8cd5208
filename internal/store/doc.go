// Package store is the minimal statement-execution surface between the
// core and SQLite: DDL execution, transactional upserts, and column
// introspection. The core never issues ad hoc statements beyond these
// shapes.
//
// Concurrent fetch/import operations against one database file are not a
// supported use case; the connection pool is capped at a single
// connection so writers serialize here.
package store
