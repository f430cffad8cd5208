// Package schema resolves the raw JSON Schema document published by the
// modeling API into a flat set of named, fully expanded definitions.
//
// The resolver understands exactly the subset of JSON Schema the upstream
// schema uses: direct object definitions, "$ref" references into "$defs",
// and "allOf" combinators expressing inheritance. Anything else fails fast
// with an UnsupportedCombinator error rather than being silently dropped,
// because a dropped field would corrupt the generated relational schema
// without any visible symptom.
//
// Resolution is memoized with an explicit in-progress marker set. Needing
// the expanded field set of a definition that is already being expanded is
// a genuine inheritance cycle and is rejected. A property that merely
// references such a definition by name is recorded as a plain reference
// field; self-referential and mutually recursive definitions are legal in
// the source format and must not cause unbounded recursion.
package schema
