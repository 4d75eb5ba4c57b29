package recording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
)

// Reader loads recorded rows back into their structs.
type Reader struct {
	*sql.DB
}

// NewReader opens a recorded database file.
func NewReader(filename string) (*Reader, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	return &Reader{DB: db}, nil
}

// NewReaderWithDB creates a Reader on an open database.
func NewReaderWithDB(db *sql.DB) *Reader {
	return &Reader{DB: db}
}

// Runs returns the verdicts of all recorded runs.
func (r *Reader) Runs(ctx context.Context) ([]RunRow, error) {
	return query[RunRow](ctx, r.DB, RunTable, "", nil)
}

// Firings returns the firings of one run in time order.
func (r *Reader) Firings(ctx context.Context, runID string) ([]FiringRow, error) {
	return query[FiringRow](ctx, r.DB, FiringTable, "RunID = ? ORDER BY Time", []any{runID})
}

// Marks returns the marks of one run in time order.
func (r *Reader) Marks(ctx context.Context, runID string) ([]MarkRow, error) {
	return query[MarkRow](ctx, r.DB, MarkTable, "RunID = ? ORDER BY Time", []any{runID})
}

// Alignments returns the clock mappings of one run.
func (r *Reader) Alignments(ctx context.Context, runID string) ([]AlignmentRow, error) {
	return query[AlignmentRow](ctx, r.DB, AlignmentTable, "RunID = ?", []any{runID})
}

func query[T any](
	ctx context.Context,
	db *sql.DB,
	tableName string,
	where string,
	args []any,
) ([]T, error) {
	q := fmt.Sprintf("SELECT * FROM %s", tableName)
	if where != "" {
		q += " WHERE " + where
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	structType := reflect.TypeOf((*T)(nil)).Elem()
	fieldMap := make(map[string]int, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		fieldMap[structType.Field(i).Name] = i
	}

	var results []T
	for rows.Next() {
		var row T
		value := reflect.ValueOf(&row).Elem()

		targets := make([]any, len(columns))
		for i, col := range columns {
			if idx, ok := fieldMap[col]; ok {
				targets[i] = value.Field(idx).Addr().Interface()
			} else {
				var placeholder any
				targets[i] = &placeholder
			}
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, row)
	}

	return results, rows.Err()
}
