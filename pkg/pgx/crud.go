package pgx

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
)

type queryBuilder struct {
	schema    string
	table     string
	values    []any
	nextIndex int
}

func newQueryBuilder(tableName string, schema ...string) *queryBuilder {
	schemaName := "public"
	if len(schema) > 0 && schema[0] != "" {
		schemaName = schema[0]
	}
	return &queryBuilder{
		schema:    schemaName,
		table:     tableName,
		nextIndex: 1,
	}
}

func (qb *queryBuilder) bind(value any) string {
	qb.values = append(qb.values, value)
	placeholder := fmt.Sprintf("$%d", qb.nextIndex)
	qb.nextIndex++
	return placeholder
}

func (qb *queryBuilder) tableIdentifier() string {
	return pgx.Identifier{qb.schema, qb.table}.Sanitize()
}

// sortedKeys keeps generated SQL stable across calls.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// OnConflict turns an insert into an upsert on the unique Columns. Update lists the columns
// overwritten from the proposed row; when empty the existing row is left as is.
type OnConflict struct {
	Columns []string
	Update  []string
}

// UpsertRow inserts a record into the specified table using the provided column/value map,
// resolving a unique conflict as described by conflict.
func UpsertRow(ctx context.Context, conn Conn, tableName string, data map[string]any, conflict OnConflict, schema ...string) error {
	if len(data) == 0 {
		return fmt.Errorf("no columns provided for insert into %s", tableName)
	}
	if len(conflict.Columns) == 0 {
		return fmt.Errorf("no conflict columns provided for upsert into %s", tableName)
	}
	qb := newQueryBuilder(tableName, schema...)

	var columns, placeholders []string
	for _, key := range sortedKeys(data) {
		columns = append(columns, pgx.Identifier{key}.Sanitize())
		placeholders = append(placeholders, qb.bind(data[key]))
	}

	var target []string
	for _, key := range conflict.Columns {
		target = append(target, pgx.Identifier{key}.Sanitize())
	}

	action := "DO NOTHING"
	if len(conflict.Update) > 0 {
		update := slices.Sorted(slices.Values(conflict.Update))
		var setClauses []string
		for _, key := range update {
			if _, ok := data[key]; !ok {
				return fmt.Errorf("update column %s has no value", key)
			}
			col := pgx.Identifier{key}.Sanitize()
			setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
		action = "DO UPDATE SET " + strings.Join(setClauses, ", ")
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		qb.tableIdentifier(),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(target, ", "),
		action,
	)

	if _, err := conn.Exec(ctx, query, qb.values...); err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}
