package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DiscriminatorProperty is the property whose constant value names the
// concrete type of an element or relation instance at runtime.
const DiscriminatorProperty = "@type"

// IdentifierProperty is the property carrying an instance's globally
// unique identifier.
const IdentifierProperty = "@id"

// relationRoot is the definition every relation-like type inherits from.
const relationRoot = "Relationship"

// Document is the raw schema document as published by the modeling API.
type Document struct {
	Schema string              `json:"$schema"`
	Defs   map[string]*RawNode `json:"$defs"`
}

// RawNode is one node of the raw schema tree. A node is either a direct
// object definition, a "$ref" reference, an "allOf" combinator, or a
// primitive/array property shape. Exactly one of those interpretations
// applies; the resolver classifies nodes and rejects anything ambiguous.
type RawNode struct {
	ID    string `json:"$id,omitempty"`
	Title string `json:"title,omitempty"`

	Type string   `json:"type,omitempty"`
	Ref  string   `json:"$ref,omitempty"`
	Enum []string `json:"enum,omitempty"`

	Format string `json:"format,omitempty"`
	Const  string `json:"const,omitempty"`

	AllOf []*RawNode `json:"allOf,omitempty"`
	OneOf []*RawNode `json:"oneOf,omitempty"`
	AnyOf []*RawNode `json:"anyOf,omitempty"`

	Properties map[string]*RawNode `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
	Items      *RawNode            `json:"items,omitempty"`
}

// ParseDocument reads a raw schema document from r.
func ParseDocument(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing schema document: %w", err)
	}
	if doc.Defs == nil {
		return nil, fmt.Errorf("schema document has no $defs section")
	}
	return &doc, nil
}

// refName extracts the definition name from a "$ref" value such as
// "#/$defs/PartUsage". Returns "" if the reference does not point into
// the document's $defs.
func refName(ref string) string {
	const prefix = "#/$defs/"
	if !strings.HasPrefix(ref, prefix) {
		return ""
	}
	return strings.TrimPrefix(ref, prefix)
}

// Kind is the primitive kind of a resolved field.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindNumber
	KindBoolean

	// KindStructured covers arrays and objects that are not references;
	// they are stored as canonical JSON text.
	KindStructured

	// KindReference is a field referencing exactly one other element.
	KindReference

	// KindReferenceList is a field referencing any number of other
	// elements.
	KindReferenceList
)

// String returns the source-format name of the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindStructured:
		return "structured"
	case KindReference:
		return "reference"
	case KindReferenceList:
		return "reference-list"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsReference reports whether the kind denotes a reference to other
// elements. Reference fields never become columns; the importer lowers
// them into relation rows.
func (k Kind) IsReference() bool {
	return k == KindReference || k == KindReferenceList
}

// FieldDescriptor describes one resolved field of a definition.
type FieldDescriptor struct {
	Name     string
	Kind     Kind
	Nullable bool

	// Ref holds the declared type name for reference kinds. Only the
	// name is recorded, never an expanded copy of the referenced
	// definition; this is what keeps cyclic references legal.
	Ref string
}

// Definition is a fully resolved named type: its field set is the
// transitive union of its own fields and all ancestor fields.
type Definition struct {
	Name string

	// Discriminator is the value stored under the type-tag property for
	// instances of this definition. Defaults to the definition name.
	Discriminator string

	// Supertypes lists the direct allOf ancestors, in declaration order.
	Supertypes []string

	// Fields holds the merged field set. Merge order is ancestors first,
	// then own fields; within one object node fields are sorted by name
	// (JSON objects carry no order). First definition wins on collision.
	Fields []FieldDescriptor

	// Relation marks definitions whose ancestry reaches the source
	// format's relation root type.
	Relation bool
}

// Field returns the descriptor for the named field, or nil if the
// definition has no such field.
func (d *Definition) Field(name string) *FieldDescriptor {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i]
		}
	}
	return nil
}
