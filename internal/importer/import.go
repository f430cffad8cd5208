package importer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelware/sysql/internal/ddl"
	"github.com/modelware/sysql/internal/model"
	"github.com/modelware/sysql/internal/store"
)

// Options tunes one import run.
type Options struct {
	// RoleAliases maps property names to the relation role stored in
	// the name column. Properties without an alias keep their own name.
	RoleAliases map[string]string
}

// DefaultRoleAliases returns the built-in property-to-role mapping of
// the source format.
func DefaultRoleAliases() map[string]string {
	return map[string]string{
		"definedBy": "definition",
		"ownedBy":   "owner",
	}
}

// Summary reports what one import run did.
type Summary struct {
	// Elements and Relations count the rows written.
	Elements  int
	Relations int

	// SkippedValues counts property values that did not fit their
	// column type and were stored as NULL.
	SkippedValues int

	// Dangling holds the accumulated dangling-reference warnings.
	Dangling []DanglingReference
}

// Import populates the elements and relations tables from the given
// collection inside a single transaction. Elements are inserted before
// any relation referencing them, so foreign-key integrity never depends
// on source ordering.
func Import(ctx context.Context, st *store.Store, elements []model.Element, opts Options) (*Summary, error) {
	columns, err := st.TableColumns(ctx, ddl.ElementsTable)
	if err != nil {
		return nil, err
	}

	roles := opts.RoleAliases
	if roles == nil {
		roles = DefaultRoleAliases()
	}

	tx, err := st.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	summary := &Summary{}

	known, err := insertElements(ctx, tx, columns, elements, summary)
	if err != nil {
		return nil, err
	}

	// Relations originating from re-imported elements reflect the
	// previous document version; only edges present in the current
	// document may survive.
	if err := dropStaleRelations(ctx, tx); err != nil {
		return nil, err
	}

	if err := insertRelations(ctx, tx, elements, known, roles, summary); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	return summary, nil
}

const trackingTable = "imported_element_ids"

// insertElements runs the first pass: one row per element, tracked in a
// temporary table for stale-edge deletion. Returns the set of imported
// identifiers for dangling-reference checks in the second pass.
func insertElements(ctx context.Context, tx *store.Tx, columns []store.Column, elements []model.Element, summary *Summary) (map[string]bool, error) {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}

	upsert, err := tx.PrepareUpsert(ctx, ddl.ElementsTable, names)
	if err != nil {
		return nil, err
	}
	defer upsert.Close()

	if err := tx.Exec(ctx, fmt.Sprintf(
		"CREATE TEMPORARY TABLE %s (%s TEXT)",
		store.QuoteIdent(trackingTable), store.QuoteIdent(ddl.IDColumn),
	)); err != nil {
		return nil, fmt.Errorf("creating tracking table: %w", err)
	}
	track, err := tx.PrepareUpsert(ctx, trackingTable, []string{ddl.IDColumn})
	if err != nil {
		return nil, err
	}
	defer track.Close()

	known := make(map[string]bool, len(elements))
	for i, element := range elements {
		if element.ID == "" {
			return nil, &Error{Kind: ErrMalformedElement, Index: i, Message: "missing identifier"}
		}
		if element.Type == "" {
			return nil, &Error{Kind: ErrMalformedElement, Index: i, ElementID: element.ID, Message: "missing type tag"}
		}

		values := make([]any, len(columns))
		for ci, col := range columns {
			switch col.Name {
			case ddl.IDColumn:
				values[ci] = element.ID
			case ddl.TypeColumn:
				values[ci] = element.Type
			default:
				value, ok := columnValue(col.Type, element.Props[col.Name])
				if !ok {
					summary.SkippedValues++
				}
				values[ci] = value
			}
		}

		if _, err := upsert.ExecContext(ctx, values...); err != nil {
			return nil, fmt.Errorf("inserting element %q: %w", element.ID, err)
		}
		if _, err := track.ExecContext(ctx, element.ID); err != nil {
			return nil, fmt.Errorf("tracking element %q: %w", element.ID, err)
		}

		known[element.ID] = true
		summary.Elements++
	}

	return known, nil
}

// dropStaleRelations removes edges originating from elements touched by
// this run, then discards the tracking table.
func dropStaleRelations(ctx context.Context, tx *store.Tx) error {
	if err := tx.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE %s IN (SELECT %s FROM %s)",
		store.QuoteIdent(ddl.RelationsTable), store.QuoteIdent(ddl.OriginColumn),
		store.QuoteIdent(ddl.IDColumn), store.QuoteIdent(trackingTable),
	)); err != nil {
		return fmt.Errorf("removing stale relations: %w", err)
	}
	if err := tx.Exec(ctx, "DROP TABLE "+store.QuoteIdent(trackingTable)); err != nil {
		return fmt.Errorf("dropping tracking table: %w", err)
	}
	return nil
}

// insertRelations runs the second pass: every reference-valued property
// of every element becomes one relations row. Targets missing from the
// collection are skipped and accumulated as dangling references.
func insertRelations(ctx context.Context, tx *store.Tx, elements []model.Element, known map[string]bool, roles map[string]string, summary *Summary) error {
	upsert, err := tx.PrepareUpsert(ctx, ddl.RelationsTable, []string{
		ddl.IDColumn, ddl.TypeColumn, ddl.NameColumn, ddl.OriginColumn, ddl.TargetColumn,
	})
	if err != nil {
		return err
	}
	defer upsert.Close()

	for _, element := range elements {
		for _, prop := range element.PropNames() {
			value := element.Props[prop]

			var targets []string
			if target, ok := model.RefTarget(value); ok {
				targets = []string{target}
			} else if list, ok := model.RefTargets(value); ok {
				targets = list
			} else {
				continue
			}

			role := prop
			if alias, ok := roles[prop]; ok {
				role = alias
			}

			for _, target := range targets {
				rel := model.Relation{
					ID:       model.RelationID(element.ID, role, target),
					Type:     element.Type,
					Name:     role,
					OriginID: element.ID,
					TargetID: target,
				}
				if !known[rel.TargetID] {
					summary.Dangling = append(summary.Dangling, DanglingReference{
						RelationID: rel.ID,
						OriginID:   rel.OriginID,
						Role:       rel.Name,
						TargetID:   rel.TargetID,
					})
					continue
				}

				if _, err := upsert.ExecContext(ctx, rel.ID, rel.Type, rel.Name, rel.OriginID, rel.TargetID); err != nil {
					return fmt.Errorf("inserting relation %s -[%s]-> %s: %w", rel.OriginID, rel.Name, rel.TargetID, err)
				}
				summary.Relations++
			}
		}
	}

	return nil
}

// columnValue converts one decoded property value for its column type.
// Values that cannot fit are stored as NULL and reported via ok=false;
// one odd value should not abort a whole import. Reference shapes are
// always NULL here: the second pass lowers them into relation rows.
func columnValue(colType string, v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	if _, ok := model.RefTarget(v); ok {
		return nil, true
	}
	if _, ok := model.RefTargets(v); ok {
		return nil, true
	}

	switch colType {
	case "INTEGER":
		switch val := v.(type) {
		case bool:
			if val {
				return int64(1), true
			}
			return int64(0), true
		case json.Number:
			if n, err := val.Int64(); err == nil {
				return n, true
			}
		case string:
			// some exporters serialize booleans as strings
			switch val {
			case "true":
				return int64(1), true
			case "false":
				return int64(0), true
			}
		}
	case "REAL":
		if n, ok := v.(json.Number); ok {
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		}
	case "TEXT":
		switch val := v.(type) {
		case string:
			return val, true
		case json.Number:
			return val.String(), true
		case bool, []any, map[string]any:
			text, err := model.MarshalCanonical(val)
			if err == nil {
				return text, true
			}
		}
	}

	return nil, false
}
