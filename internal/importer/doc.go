// Package importer populates the generated relational schema from an
// element collection, whether fetched from a server or loaded from a
// static dump.
//
// An import runs in one transaction: a first pass inserts every element,
// a second pass lowers every reference-valued property into a relation
// row. Insertion is replace-on-conflict keyed on the identifier, so
// re-importing an unchanged document is a no-op in effect and a changed
// document overwrites exactly the changed rows. A mid-import failure
// rolls back to the previous snapshot.
//
// A relation whose target never appears in the element collection is
// recoverable: the row is skipped and the dangling reference reported in
// the summary, because one malformed edge should not discard an
// otherwise valid model. An element without an identifier or type tag
// aborts the import outright.
package importer
