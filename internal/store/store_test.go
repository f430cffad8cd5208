package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDDL = `
CREATE TABLE IF NOT EXISTS "elements" (
	"@id" TEXT NOT NULL PRIMARY KEY,
	"@type" TEXT,
	"name" TEXT
) STRICT;
`

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenCreatesDatabase(t *testing.T) {
	st := openTestStore(t)
	require.NotNil(t, st.DB())
}

func TestOpenAppliesPragmas(t *testing.T) {
	st := openTestStore(t)

	var journalMode string
	require.NoError(t, st.DB().QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var foreignKeys int
	require.NoError(t, st.DB().QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestExecDDLIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.ExecDDL(ctx, testDDL))
	require.NoError(t, st.ExecDDL(ctx, testDDL))
}

func TestTableColumns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.ExecDDL(ctx, testDDL))

	columns, err := st.TableColumns(ctx, "elements")
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.Equal(t, Column{Name: "@id", Type: "TEXT"}, columns[0])
	assert.Equal(t, Column{Name: "@type", Type: "TEXT"}, columns[1])
	assert.Equal(t, Column{Name: "name", Type: "TEXT"}, columns[2])
}

func TestTableColumnsMissingTable(t *testing.T) {
	st := openTestStore(t)

	_, err := st.TableColumns(context.Background(), "elements")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialize the schema first")
}

func TestUpsertReplacesOnConflict(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.ExecDDL(ctx, testDDL))

	write := func(name string) {
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		stmt, err := tx.PrepareUpsert(ctx, "elements", []string{"@id", "@type", "name"})
		require.NoError(t, err)
		defer stmt.Close()

		_, err = stmt.ExecContext(ctx, "e1", "Part", name)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
	}

	write("first")
	write("second")

	var count int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM "elements"`).Scan(&count))
	assert.Equal(t, 1, count)

	var name string
	require.NoError(t, st.DB().QueryRow(`SELECT "name" FROM "elements" WHERE "@id" = 'e1'`).Scan(&name))
	assert.Equal(t, "second", name)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.ExecDDL(ctx, testDDL))

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Exec(ctx, `INSERT INTO "elements" ("@id") VALUES ('e1')`))
	require.NoError(t, tx.Rollback())

	var count int
	require.NoError(t, st.DB().QueryRow(`SELECT COUNT(*) FROM "elements"`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestRollbackAfterCommitIsNoOp(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.ExecDDL(ctx, testDDL))

	tx, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"elements"`, QuoteIdent("elements"))
	assert.Equal(t, `"@id"`, QuoteIdent("@id"))
	assert.Equal(t, `"odd""name"`, QuoteIdent(`odd"name`))
}
