package ddl

import (
	"sort"
	"strings"

	"github.com/modelware/sysql/internal/schema"
)

// Table names of the generated relational schema.
const (
	ElementsTable  = "elements"
	RelationsTable = "relations"
)

// Framework column names shared by both tables.
const (
	IDColumn   = schema.IdentifierProperty
	TypeColumn = schema.DiscriminatorProperty
)

// Framework columns specific to the relations table.
const (
	NameColumn   = "name"
	OriginColumn = "origin_id"
	TargetColumn = "target_id"
)

// Column is one accumulated column: a name plus its SQL primitive type.
type Column struct {
	Name string
	Type string
}

// Tables holds the accumulated column sets for both physical tables, in
// first-seen order. Framework columns are not included; Emit prepends
// them when rendering.
type Tables struct {
	Elements  []Column
	Relations []Column
}

// columnType is the fixed, total mapping from field kind to SQL type.
// Booleans are stored as 0/1 integers, structured values as canonical
// JSON text. Reference kinds have no column type; they are lowered into
// relation rows by the importer and must be filtered out before calling.
func columnType(k schema.Kind) string {
	switch k {
	case schema.KindString, schema.KindStructured:
		return "TEXT"
	case schema.KindInteger, schema.KindBoolean:
		return "INTEGER"
	case schema.KindNumber:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Accumulate unions the fields of every definition into per-table column
// sets. The traversal is fixed (definition names sorted, fields in
// resolved order) so the result is deterministic. The same field name
// resolving to two different column types within one table is an
// irreconcilable schema conflict and is never silently coerced.
func Accumulate(defs map[string]*schema.Definition) (*Tables, error) {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := &Tables{}
	elemTypes := make(map[string]string)
	relTypes := make(map[string]string)

	// The relations table reserves three more framework names than the
	// elements table; an inherited "name" property must not collide with
	// the role column.
	relFramework := map[string]bool{NameColumn: true, OriginColumn: true, TargetColumn: true}

	for _, name := range names {
		def := defs[name]
		columns, types := &tables.Elements, elemTypes
		framework := map[string]bool(nil)
		if def.Relation {
			columns, types = &tables.Relations, relTypes
			framework = relFramework
		}

		for _, field := range def.Fields {
			if field.Kind.IsReference() {
				continue
			}
			if field.Name == IDColumn || field.Name == TypeColumn || framework[field.Name] {
				continue
			}

			colType := columnType(field.Kind)
			if existing, ok := types[field.Name]; ok {
				if existing != colType {
					return nil, &schema.Error{
						Kind:  schema.ErrColumnTypeConflict,
						Field: field.Name,
						TypeA: existing,
						TypeB: colType,
					}
				}
				continue
			}
			types[field.Name] = colType
			*columns = append(*columns, Column{Name: field.Name, Type: colType})
		}
	}

	return tables, nil
}

// Emit renders the complete DDL text for the resolved definition set:
// the two CREATE TABLE statements followed by the lookup indexes. Every
// accumulated column is nullable, because it only applies to the subset
// of concrete types declaring that field; rows of other types leave it
// NULL. The identifier column is the non-null primary key of each table.
func Emit(defs map[string]*schema.Definition) (string, error) {
	tables, err := Accumulate(defs)
	if err != nil {
		return "", err
	}

	var b strings.Builder

	elementDefs := []string{
		escapeIdent(IDColumn) + " TEXT NOT NULL PRIMARY KEY",
		escapeIdent(TypeColumn) + " TEXT",
	}
	for _, col := range tables.Elements {
		elementDefs = append(elementDefs, escapeIdent(col.Name)+" "+col.Type)
	}
	writeCreateTable(&b, ElementsTable, elementDefs)
	b.WriteString("\n")

	fkClause := " TEXT NOT NULL REFERENCES " + escapeIdent(ElementsTable) +
		"(" + escapeIdent(IDColumn) + ") DEFERRABLE INITIALLY DEFERRED"
	relationDefs := []string{
		escapeIdent(IDColumn) + " TEXT NOT NULL PRIMARY KEY",
		escapeIdent(TypeColumn) + " TEXT",
		escapeIdent(NameColumn) + " TEXT NOT NULL",
		escapeIdent(OriginColumn) + fkClause,
		escapeIdent(TargetColumn) + fkClause,
	}
	for _, col := range tables.Relations {
		relationDefs = append(relationDefs, escapeIdent(col.Name)+" "+col.Type)
	}
	writeCreateTable(&b, RelationsTable, relationDefs)
	b.WriteString("\n")

	writeIndex(&b, ElementsTable, TypeColumn)
	writeIndex(&b, RelationsTable, NameColumn)
	writeIndex(&b, RelationsTable, OriginColumn)
	writeIndex(&b, RelationsTable, TargetColumn)

	return b.String(), nil
}

func writeCreateTable(b *strings.Builder, table string, columnDefs []string) {
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(escapeIdent(table))
	b.WriteString(" (\n")
	for i, def := range columnDefs {
		b.WriteString("\t")
		b.WriteString(def)
		if i < len(columnDefs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(") STRICT;\n")
}

func writeIndex(b *strings.Builder, table, column string) {
	b.WriteString("CREATE INDEX IF NOT EXISTS ")
	b.WriteString(escapeIdent(table + "." + column))
	b.WriteString(" ON ")
	b.WriteString(escapeIdent(table))
	b.WriteString("(")
	b.WriteString(escapeIdent(column))
	b.WriteString(");\n")
}

// escapeIdent quotes a string for use as a SQLite identifier. Embedded
// double quotes are doubled per the SQL standard.
func escapeIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
