package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelware/sysql/internal/ddl"
	"github.com/modelware/sysql/internal/model"
	"github.com/modelware/sysql/internal/schema"
	"github.com/modelware/sysql/internal/store"
)

const testSchema = `{
	"$defs": {
		"Element": {
			"type": "object",
			"properties": {
				"@id": {"type": "string"},
				"@type": {"const": "Element"},
				"name": {"oneOf": [{"type": "string"}, {"type": "null"}]},
				"count": {"type": "integer"},
				"active": {"type": "boolean"},
				"tags": {"type": "array"},
				"ownedBy": {"$ref": "#/$defs/Element"},
				"definedBy": {"type": "array", "items": {"$ref": "#/$defs/Element"}}
			},
			"required": ["@id", "@type"]
		}
	}
}`

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	doc, err := schema.ParseDocument(strings.NewReader(testSchema))
	require.NoError(t, err)
	defs, err := schema.Resolve(doc)
	require.NoError(t, err)
	text, err := ddl.Emit(defs)
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.ExecDDL(context.Background(), text))
	return st
}

func parseElements(t *testing.T, text string) []model.Element {
	t.Helper()
	elements, err := model.ParseElements(strings.NewReader(text))
	require.NoError(t, err)
	return elements
}

const vehicleDump = `[
	{"@id": "def1", "@type": "PartDefinition", "name": "Wheel"},
	{"@id": "use1", "@type": "PartUsage", "name": "frontWheel", "count": 2, "active": true,
		"definedBy": [{"@id": "def1"}], "ownedBy": {"@id": "pkg1"}},
	{"@id": "pkg1", "@type": "Package", "name": "Vehicle", "tags": ["demo", "v1"]}
]`

func TestImportElementsAndRelations(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	summary, err := Import(ctx, st, parseElements(t, vehicleDump), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Elements)
	assert.Equal(t, 2, summary.Relations)
	assert.Empty(t, summary.Dangling)
	assert.Zero(t, summary.SkippedValues)

	// typed columns hold converted values
	var count, active int64
	require.NoError(t, st.DB().QueryRow(
		`SELECT "count", "active" FROM "elements" WHERE "@id" = 'use1'`).Scan(&count, &active))
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(1), active)

	// structured values land as canonical JSON text
	var tags string
	require.NoError(t, st.DB().QueryRow(
		`SELECT "tags" FROM "elements" WHERE "@id" = 'pkg1'`).Scan(&tags))
	assert.Equal(t, `["demo","v1"]`, tags)

	// reference properties became rows, under their aliased role names
	var role, target string
	require.NoError(t, st.DB().QueryRow(
		`SELECT "name", "target_id" FROM "relations" WHERE "origin_id" = 'use1' AND "name" = 'owner'`).
		Scan(&role, &target))
	assert.Equal(t, "owner", role)
	assert.Equal(t, "pkg1", target)

	require.NoError(t, st.DB().QueryRow(
		`SELECT "name", "target_id" FROM "relations" WHERE "origin_id" = 'use1' AND "name" = 'definition'`).
		Scan(&role, &target))
	assert.Equal(t, "def1", target)

	// relation rows carry the deterministic identifier derived from
	// origin, role, and target
	var relID string
	require.NoError(t, st.DB().QueryRow(
		`SELECT "@id" FROM "relations" WHERE "origin_id" = 'use1' AND "name" = 'owner'`).Scan(&relID))
	assert.Equal(t, model.RelationID("use1", "owner", "pkg1"), relID)
}

func TestImportIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := Import(ctx, st, parseElements(t, vehicleDump), Options{})
	require.NoError(t, err)
	second, err := Import(ctx, st, parseElements(t, vehicleDump), Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Elements, second.Elements)
	assert.Equal(t, first.Relations, second.Relations)

	var elements, relations int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM "elements"`).Scan(&elements))
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM "relations"`).Scan(&relations))
	assert.Equal(t, 3, elements)
	assert.Equal(t, 2, relations)
}

func TestImportDropsStaleRelations(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := Import(ctx, st, parseElements(t, vehicleDump), Options{})
	require.NoError(t, err)

	// the new document version no longer owns use1
	updated := `[
		{"@id": "def1", "@type": "PartDefinition", "name": "Wheel"},
		{"@id": "use1", "@type": "PartUsage", "name": "frontWheel", "definedBy": [{"@id": "def1"}]},
		{"@id": "pkg1", "@type": "Package", "name": "Vehicle"}
	]`
	summary, err := Import(ctx, st, parseElements(t, updated), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Relations)

	var relations int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM "relations"`).Scan(&relations))
	assert.Equal(t, 1, relations)

	var role string
	require.NoError(t, st.DB().QueryRow(`SELECT "name" FROM "relations"`).Scan(&role))
	assert.Equal(t, "definition", role)
}

func TestImportDanglingReference(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	dump := `[
		{"@id": "use1", "@type": "PartUsage", "ownedBy": {"@id": "missing"}}
	]`
	summary, err := Import(ctx, st, parseElements(t, dump), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Elements)
	assert.Equal(t, 0, summary.Relations)
	require.Len(t, summary.Dangling, 1)

	d := summary.Dangling[0]
	assert.Equal(t, "use1", d.OriginID)
	assert.Equal(t, "owner", d.Role)
	assert.Equal(t, "missing", d.TargetID)
	assert.Contains(t, d.String(), "not in element collection")

	var relations int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM "relations"`).Scan(&relations))
	assert.Equal(t, 0, relations)
}

func TestImportMalformedElementAborts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	dump := `[
		{"@id": "ok1", "@type": "Part"},
		{"name": "no identifier"}
	]`
	_, err := Import(ctx, st, parseElements(t, dump), Options{})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrMalformedElement))

	// the transaction rolled back; the valid element is gone too
	var elements int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM "elements"`).Scan(&elements))
	assert.Equal(t, 0, elements)
}

func TestImportMissingTypeAborts(t *testing.T) {
	st := newTestStore(t)

	dump := `[{"@id": "e1", "name": "untyped"}]`
	_, err := Import(context.Background(), st, parseElements(t, dump), Options{})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrMalformedElement))

	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "e1", ie.ElementID)
}

func TestImportSkipsUnconvertibleValues(t *testing.T) {
	st := newTestStore(t)

	dump := `[{"@id": "e1", "@type": "Part", "count": "not a number"}]`
	summary, err := Import(context.Background(), st, parseElements(t, dump), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedValues)

	var count any
	require.NoError(t, st.DB().QueryRow(`SELECT "count" FROM "elements" WHERE "@id" = 'e1'`).Scan(&count))
	assert.Nil(t, count)
}

func TestImportUnknownPropertyIgnored(t *testing.T) {
	st := newTestStore(t)

	// "vintage" has no column; only live columns are written
	dump := `[{"@id": "e1", "@type": "Part", "name": "axle", "vintage": 1988}]`
	summary, err := Import(context.Background(), st, parseElements(t, dump), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Elements)
}

func TestImportRoleAliasOverride(t *testing.T) {
	st := newTestStore(t)

	opts := Options{RoleAliases: map[string]string{"ownedBy": "parent"}}
	dump := `[
		{"@id": "a", "@type": "Part", "ownedBy": {"@id": "b"}},
		{"@id": "b", "@type": "Package"}
	]`
	_, err := Import(context.Background(), st, parseElements(t, dump), opts)
	require.NoError(t, err)

	var role string
	require.NoError(t, st.DB().QueryRow(`SELECT "name" FROM "relations"`).Scan(&role))
	assert.Equal(t, "parent", role)
}

func TestOwnedElementsQueryDoubleRelationJoin(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// three elements, two edges: B is defined by A, C is owned by B
	dump := `[
		{"@id": "A", "@type": "PartDefinition"},
		{"@id": "B", "@type": "PartUsage", "definedBy": [{"@id": "A"}]},
		{"@id": "C", "@type": "PartUsage", "ownedBy": {"@id": "B"}}
	]`
	summary, err := Import(ctx, st, parseElements(t, dump), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Elements)
	assert.Equal(t, 2, summary.Relations)

	// the shipped example query passes through the relations table twice:
	// the ownership edge, then the owner's definition edge. The owner's
	// type comes from the definition it conforms to, not its own type tag.
	query, err := os.ReadFile(filepath.Join("..", "..", "queries", "owned_elements.sql"))
	require.NoError(t, err)

	rows, err := st.Query(ctx, string(query))
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var ownerID, ownedID, definitionType string
	require.NoError(t, rows.Scan(&ownerID, &ownedID, &definitionType))
	assert.Equal(t, "B", ownerID)
	assert.Equal(t, "C", ownedID)
	assert.Equal(t, "PartDefinition", definitionType)
	assert.False(t, rows.Next())
	require.NoError(t, rows.Err())
}
