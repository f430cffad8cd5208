// Package model holds the runtime representation of a fetched or loaded
// engineering model: elements, the directed relations between them, and
// the canonical JSON serialization used when structured values are stored
// into text columns.
//
// Many concrete schema types share the two physical tables, so an Element
// is a tagged variant at this level: an identifier, a type tag selecting
// the concrete definition, and an open property map. Elements are never
// mutated after parsing and are consumed exactly once by the importer.
package model
