package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"

	"github.com/modelware/sysql/internal/schema"
)

// Element is one runtime model object: an opaque identifier, a type tag
// naming a schema definition, and the remaining properties as decoded
// JSON values. Numbers are kept as json.Number so integer-typed columns
// do not round-trip through float64.
type Element struct {
	ID    string
	Type  string
	Props map[string]any
}

// UnmarshalJSON decodes one element record, splitting the identifier and
// type tag out of the open property map. A record without them still
// parses; the importer decides whether that is fatal.
func (e *Element) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	if id, ok := raw[schema.IdentifierProperty].(string); ok {
		e.ID = id
	}
	if tag, ok := raw[schema.DiscriminatorProperty].(string); ok {
		e.Type = tag
	}
	delete(raw, schema.IdentifierProperty)
	delete(raw, schema.DiscriminatorProperty)
	e.Props = raw
	return nil
}

// MarshalJSON re-assembles the record for the raw dump path, with the
// identifier and type tag restored into the property map.
func (e Element) MarshalJSON() ([]byte, error) {
	full := make(map[string]any, len(e.Props)+2)
	for k, v := range e.Props {
		full[k] = v
	}
	full[schema.IdentifierProperty] = e.ID
	full[schema.DiscriminatorProperty] = e.Type
	return json.Marshal(full)
}

// ParseElements reads a JSON array of element records.
func ParseElements(r io.Reader) ([]Element, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var elements []Element
	if err := dec.Decode(&elements); err != nil {
		return nil, fmt.Errorf("parsing element array: %w", err)
	}
	return elements, nil
}

// PropNames returns the element's property names in sorted order, for
// deterministic traversal.
func (e Element) PropNames() []string {
	names := make([]string, 0, len(e.Props))
	for name := range e.Props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Relation is a directed, named edge between two elements. The importer
// lowers each reference-valued property into one Relation and writes it
// as a relations row.
type Relation struct {
	ID       string
	Type     string
	Name     string
	OriginID string
	TargetID string
}

// relationNamespace is the fixed UUIDv5 namespace for relation
// identifiers derived from embedded references.
var relationNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("sysql.relations"))

// RelationID derives a stable identifier for a relation lowered from an
// embedded reference property. The same (origin, role, target) triple
// always yields the same id, which is what makes re-imports idempotent.
func RelationID(originID, role, targetID string) string {
	return uuid.NewSHA1(relationNamespace, []byte(originID+"|"+role+"|"+targetID)).String()
}

// RefTarget reports whether v is a reference object, a JSON object whose
// sole attribute is the identifier property with a string value, and
// returns the referenced id.
func RefTarget(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok || len(obj) != 1 {
		return "", false
	}
	id, ok := obj[schema.IdentifierProperty].(string)
	return id, ok
}

// RefTargets reports whether v is an array consisting entirely of
// reference objects and returns the referenced ids in array order. An
// empty array is not treated as a reference list.
func RefTargets(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	ids := make([]string, 0, len(arr))
	for _, member := range arr {
		id, ok := RefTarget(member)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
