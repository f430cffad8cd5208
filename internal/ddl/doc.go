// Package ddl turns a resolved schema definition set into the relational
// schema: two wide tables, one for all elements and one for all
// relations, whose column sets are the union across every definition of
// that category.
//
// Emission is deterministic. Definitions are traversed in lexicographic
// name order and fields in resolved declaration order, columns accumulate
// in first-seen order, and the same resolved schema always produces
// byte-identical DDL text. The generated text is checked in under
// assets/schema.sql and regenerated only deliberately.
package ddl
