package schema

import (
	"fmt"
	"sort"
)

type visitState int

const (
	stateUnvisited visitState = iota
	stateInProgress
	stateResolved
)

// Resolve expands every definition in the document into a Definition
// whose field set is the union of its own and all ancestor fields.
//
// Resolution proceeds name-by-name with memoization. A definition under
// active expansion is marked in-progress; requiring its expanded field
// set again is a genuine inheritance cycle and is rejected. Definitions
// are visited in lexicographic name order so that resolution (and any
// diagnostics it produces) is deterministic.
func Resolve(doc *Document) (map[string]*Definition, error) {
	r := &resolver{
		doc:   doc,
		out:   make(map[string]*Definition, len(doc.Defs)),
		state: make(map[string]visitState, len(doc.Defs)),
	}

	names := make([]string, 0, len(doc.Defs))
	for name := range doc.Defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := r.resolve(name); err != nil {
			return nil, err
		}
	}

	return r.out, nil
}

type resolver struct {
	doc   *Document
	out   map[string]*Definition
	state map[string]visitState

	// stack is the active expansion path, kept for cycle diagnostics.
	stack []string
}

func (r *resolver) resolve(name string) (*Definition, error) {
	switch r.state[name] {
	case stateResolved:
		return r.out[name], nil
	case stateInProgress:
		path := append(append([]string{}, r.stack...), name)
		return nil, &Error{Kind: ErrCyclicInheritance, Definition: name, Path: path}
	}

	node, ok := r.doc.Defs[name]
	if !ok || node == nil {
		return nil, &Error{
			Kind:       ErrUnresolvedReference,
			Definition: name,
			Message:    fmt.Sprintf("no definition named %q in $defs", name),
		}
	}

	r.state[name] = stateInProgress
	r.stack = append(r.stack, name)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	def := &Definition{Name: name, Discriminator: name}
	seen := make(map[string]bool)
	merge := func(fields []FieldDescriptor) {
		// first definition wins: the source format does not guarantee
		// field uniqueness across combinator members, so the tie-break
		// must be explicit
		for _, f := range fields {
			if seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			def.Fields = append(def.Fields, f)
		}
	}

	mergeParent := func(ref string) error {
		target := refName(ref)
		if target == "" {
			return &Error{
				Kind:       ErrUnresolvedReference,
				Definition: name,
				Message:    fmt.Sprintf("reference %q does not point into $defs", ref),
			}
		}
		parent, err := r.resolve(target)
		if err != nil {
			return err
		}
		def.Supertypes = append(def.Supertypes, target)
		if parent.Relation {
			def.Relation = true
		}
		merge(parent.Fields)
		return nil
	}

	switch {
	case node.Ref != "":
		// a bare alias still needs its target's expanded field set
		if err := mergeParent(node.Ref); err != nil {
			return nil, err
		}

	case len(node.AllOf) > 0:
		for i, member := range node.AllOf {
			switch {
			case member == nil:
				return nil, &Error{
					Kind:       ErrUnsupportedCombinator,
					Definition: name,
					Message:    fmt.Sprintf("allOf member %d is empty", i),
				}
			case member.Ref != "":
				if err := mergeParent(member.Ref); err != nil {
					return nil, err
				}
			case member.isObject():
				fields, disc, err := r.objectFields(name, member)
				if err != nil {
					return nil, err
				}
				if disc != "" {
					def.Discriminator = disc
				}
				merge(fields)
			default:
				return nil, &Error{
					Kind:       ErrUnsupportedCombinator,
					Definition: name,
					Message:    fmt.Sprintf("allOf member %d is neither a reference nor an object", i),
				}
			}
		}

	case node.isObject():
		fields, disc, err := r.objectFields(name, node)
		if err != nil {
			return nil, err
		}
		if disc != "" {
			def.Discriminator = disc
		}
		merge(fields)

	default:
		return nil, &Error{
			Kind:       ErrUnsupportedCombinator,
			Definition: name,
			Message:    "definition is neither an object, a reference, nor an allOf combinator",
		}
	}

	if name == relationRoot {
		def.Relation = true
	}

	r.out[name] = def
	r.state[name] = stateResolved
	return def, nil
}

// isObject reports whether the node is a direct object definition.
func (n *RawNode) isObject() bool {
	return n.Type == "object" || (n.Type == "" && n.Properties != nil)
}

// isNull reports whether the node is the JSON Schema null type.
func (n *RawNode) isNull() bool {
	return n != nil && n.Type == "null" && n.Ref == "" && len(n.Properties) == 0
}

// objectFields converts one object node's properties into field
// descriptors. Property names are iterated in sorted order because JSON
// objects carry no order and emission downstream must be deterministic.
// Returns the discriminator constant if the node declares one.
func (r *resolver) objectFields(defName string, node *RawNode) ([]FieldDescriptor, string, error) {
	required := make(map[string]bool, len(node.Required))
	for _, name := range node.Required {
		required[name] = true
	}

	names := make([]string, 0, len(node.Properties))
	for name := range node.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var discriminator string
	fields := make([]FieldDescriptor, 0, len(names))
	for _, propName := range names {
		prop := node.Properties[propName]
		if propName == DiscriminatorProperty && prop != nil && prop.Const != "" {
			discriminator = prop.Const
		}
		field, err := r.fieldFromProperty(defName, propName, prop, required[propName])
		if err != nil {
			return nil, "", err
		}
		fields = append(fields, field)
	}
	return fields, discriminator, nil
}

// fieldFromProperty classifies one property shape. Reference-shaped
// properties record only the declared type name: they never force
// expansion of the referenced definition, which is what makes
// self-referential schemas resolvable.
func (r *resolver) fieldFromProperty(defName, propName string, node *RawNode, required bool) (FieldDescriptor, error) {
	if node == nil {
		return FieldDescriptor{}, &Error{
			Kind:       ErrUnsupportedCombinator,
			Definition: defName,
			Field:      propName,
			Message:    "property has an empty schema",
		}
	}

	field := FieldDescriptor{Name: propName, Nullable: !required}

	switch {
	case node.Ref != "":
		target := refName(node.Ref)
		if target == "" {
			return FieldDescriptor{}, &Error{
				Kind:       ErrUnresolvedReference,
				Definition: defName,
				Field:      propName,
				Message:    fmt.Sprintf("reference %q does not point into $defs", node.Ref),
			}
		}
		if _, ok := r.doc.Defs[target]; !ok {
			return FieldDescriptor{}, &Error{
				Kind:       ErrUnresolvedReference,
				Definition: defName,
				Field:      propName,
				Message:    fmt.Sprintf("reference to unknown definition %q", target),
			}
		}
		field.Kind = KindReference
		field.Ref = target

	case len(node.OneOf) == 2 && (node.OneOf[0].isNull() != node.OneOf[1].isNull()):
		inner := node.OneOf[0]
		if inner.isNull() {
			inner = node.OneOf[1]
		}
		innerField, err := r.fieldFromProperty(defName, propName, inner, false)
		if err != nil {
			return FieldDescriptor{}, err
		}
		innerField.Nullable = true
		return innerField, nil

	case len(node.OneOf) > 0 || len(node.AnyOf) > 0 || len(node.AllOf) > 0:
		return FieldDescriptor{}, &Error{
			Kind:       ErrUnsupportedCombinator,
			Definition: defName,
			Field:      propName,
			Message:    "property uses a combinator shape the resolver does not support",
		}

	case node.Type == "array":
		if node.Items != nil && node.Items.Ref != "" {
			target := refName(node.Items.Ref)
			if target == "" {
				return FieldDescriptor{}, &Error{
					Kind:       ErrUnresolvedReference,
					Definition: defName,
					Field:      propName,
					Message:    fmt.Sprintf("reference %q does not point into $defs", node.Items.Ref),
				}
			}
			field.Kind = KindReferenceList
			field.Ref = target
		} else {
			field.Kind = KindStructured
		}

	case node.Type == "string", node.Type == "" && (node.Const != "" || len(node.Enum) > 0):
		field.Kind = KindString

	case node.Type == "integer":
		field.Kind = KindInteger

	case node.Type == "number":
		field.Kind = KindNumber

	case node.Type == "boolean":
		field.Kind = KindBoolean

	case node.Type == "object":
		field.Kind = KindStructured

	default:
		return FieldDescriptor{}, &Error{
			Kind:       ErrUnsupportedCombinator,
			Definition: defName,
			Field:      propName,
			Message:    fmt.Sprintf("no representation for property type %q", node.Type),
		}
	}

	return field, nil
}
