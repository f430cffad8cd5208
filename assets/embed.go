// Package assets bundles a schema document covering the core element
// and relationship types, together with the DDL generated from it, so
// that a database can be initialized without fetching anything.
package assets

import _ "embed"

// SchemasJSON is the bundled schema document.
//
//go:embed schemas.json
var SchemasJSON []byte

// SchemaSQL is the DDL generated from SchemasJSON. It is checked in so
// that init works offline; the asset test keeps it in sync with the
// generator.
//
//go:embed schema.sql
var SchemaSQL string
