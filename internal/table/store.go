package table

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"videotable/internal/services"
	"videotable/internal/tensor"
)

// DefaultTableName is the SQL table holding the data in a table file.
const DefaultTableName = "data"

// Store reads and writes whole tables.
type Store interface {
	Read(ctx context.Context, path string) (*Table, error)
	Write(ctx context.Context, t *Table, path string) error
}

// SQLiteStore persists a Table as one SQLite table.
type SQLiteStore struct {
	TableName string
}

// NewSQLiteStore returns a store using DefaultTableName.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{TableName: DefaultTableName}
}

var _ Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) tableName() string {
	if s == nil || strings.TrimSpace(s.TableName) == "" {
		return DefaultTableName
	}
	return s.TableName
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragma: %w", err)
	}
	return db, nil
}

// Read loads every row of the store's table from path.
func (s *SQLiteStore) Read(ctx context.Context, path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "table", "read", path, err)
		}
		return nil, fmt.Errorf("stat table file: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	name := s.tableName()
	columns, err := describeColumns(ctx, db, name)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "table", "read", fmt.Sprintf("table %q in %s", name, path), nil)
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(quoted, ", "), quoteIdent(name))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query table: %w", err)
	}
	defer rows.Close()

	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, value := range raw {
			v, err := toFloat(value)
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "table", "read", fmt.Sprintf("column %q", columns[i].Name), err)
			}
			columns[i].Values = append(columns[i].Values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	for i := range columns {
		if columns[i].Values == nil {
			columns[i].Values = []float64{}
		}
	}
	return New(columns...)
}

// Write replaces path with a database holding t.
func (s *SQLiteStore) Write(ctx context.Context, t *Table, path string) error {
	if t == nil || len(t.Columns) == 0 {
		return services.Wrap(services.ErrValidation, "table", "write", "table has no columns", nil)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove existing table file: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	name := quoteIdent(s.tableName())
	defs := make([]string, len(t.Columns))
	quoted := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		quoted[i] = quoteIdent(col.Name)
		defs[i] = quoted[i] + " " + sqlType(col.Kind)
		marks[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for r := 0; r < t.Rows(); r++ {
		for c, col := range t.Columns {
			args[c] = toSQL(col.Values[r], col.Kind)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", r, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func describeColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("describe table: %w", err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			cid        int
			name       string
			declared   sql.NullString
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan column info: %w", err)
		}
		columns = append(columns, Column{Name: name, Kind: kindFromDeclared(declared.String)})
	}
	return columns, rows.Err()
}

// kindFromDeclared follows SQLite type affinity: any declared type containing
// "INT" is integer.
func kindFromDeclared(declared string) tensor.Kind {
	if strings.Contains(strings.ToUpper(declared), "INT") {
		return tensor.Int
	}
	return tensor.Float
}

func sqlType(kind tensor.Kind) string {
	if kind == tensor.Int {
		return "INTEGER"
	}
	return "REAL"
}

func toSQL(v float64, kind tensor.Kind) any {
	if math.IsNaN(v) {
		return nil
	}
	if kind == tensor.Int {
		return int64(math.Round(v))
	}
	return v
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return math.NaN(), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseNumeric(string(v))
	case string:
		return parseNumeric(v)
	default:
		return 0, fmt.Errorf("unsupported value type %T", value)
	}
}

func parseNumeric(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric value %q", s)
	}
	return v, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
