package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

// SQLiteSource reads one SQL table per dataset, named after the dataset.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens the database at path.
func OpenSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLiteSource{db: db}, nil
}

// NewSQLiteSource wraps an open database.
func NewSQLiteSource(db *sql.DB) *SQLiteSource {
	return &SQLiteSource{db: db}
}

// DB returns the underlying database handle.
func (s *SQLiteSource) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// LoadTable reads every row of the dataset's table. Column kinds are
// inferred from the values the same way as for csv input.
func (s *SQLiteSource) LoadTable(ctx context.Context, d dataset.Dataset) (*table.Table, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, d.Name()).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite table %s: %w", d.Name(), dataset.ErrDatasetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup sqlite table %s: %w", d.Name(), err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", name, err)
	}
	var records [][]string
	values := make([]any, len(header))
	ptrs := make([]any, len(header))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row %d: %w", name, len(records), err)
		}
		rec := make([]string, len(values))
		for i, v := range values {
			rec[i] = sqlCell(v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return table.FromRecords(d.Name(), header, records)
}

func sqlCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// WriteSQLite replaces one table per view, named after the view, inside a
// single transaction. Float columns are REAL with NaN stored as NULL; bool
// columns are stored as the text True/False so they load back as bools.
func WriteSQLite(ctx context.Context, db *sql.DB, views []table.View) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, v := range views {
		if err := writeTable(ctx, tx, v); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func writeTable(ctx context.Context, tx *sql.Tx, v table.View) error {
	name := quoteIdent(v.Name())
	cols := v.Columns()

	defs := make([]string, len(cols))
	quoted := make([]string, len(cols))
	getters := make([]func(row int) any, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		kind, _ := v.KindOf(c)
		switch kind {
		case table.Float:
			vals, err := v.Float(c)
			if err != nil {
				return err
			}
			defs[i] = quoted[i] + " REAL"
			getters[i] = func(row int) any {
				if math.IsNaN(vals[row]) {
					return nil
				}
				return vals[row]
			}
		default:
			keys, err := v.Keys(c)
			if err != nil {
				return err
			}
			defs[i] = quoted[i] + " TEXT"
			getters[i] = func(row int) any { return keys[row] }
		}
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("drop %s: %w", v.Name(), err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", v.Name(), err)
	}
	if len(cols) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(quoted, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", v.Name(), err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for row := 0; row < v.Len(); row++ {
		for i, get := range getters {
			args[i] = get(row)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", v.Name(), row, err)
		}
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
