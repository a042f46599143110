package export

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLiteWriter writes reports as a SQLite database with one table per
// report table. Column names and table names match the workbook sheets.
type SQLiteWriter struct{}

// Ext implements Writer.
func (SQLiteWriter) Ext() string { return "db" }

// Write implements Writer.
func (SQLiteWriter) Write(path string, r Report) error {
	return replaceFile(path, ".agent_metrics-*.db", func(tmp string) error {
		db, err := sql.Open("sqlite", tmp+"?_pragma=synchronous(normal)")
		if err != nil {
			return fmt.Errorf("opening report db: %w", err)
		}
		defer func() { _ = db.Close() }()

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		for _, t := range r.Tables {
			if _, err := tx.Exec(createTableSQL(t)); err != nil {
				return fmt.Errorf("creating table %s: %w", t.Name, err)
			}

			stmt, err := tx.Prepare(insertSQL(t))
			if err != nil {
				return fmt.Errorf("preparing insert into %s: %w", t.Name, err)
			}
			for _, row := range t.Rows {
				if _, err := stmt.Exec(sqliteArgs(row)...); err != nil {
					_ = stmt.Close()
					return fmt.Errorf("inserting into %s: %w", t.Name, err)
				}
			}
			_ = stmt.Close()
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing report: %w", err)
		}
		return db.Close()
	})
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// createTableSQL derives column affinities from the first row.
func createTableSQL(t Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		typ := "TEXT"
		if len(t.Rows) > 0 && i < len(t.Rows[0]) {
			typ = sqliteType(t.Rows[0][i])
		}
		cols[i] = quoteIdent(c) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", quoteIdent(t.Name), strings.Join(cols, ",\n    "))
}

func insertSQL(t Table) string {
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func sqliteType(v any) string {
	switch v.(type) {
	case int, int64, bool:
		return "INTEGER"
	case float64:
		return "REAL"
	default:
		return "TEXT"
	}
}

func sqliteArgs(row []any) []any {
	args := make([]any, len(row))
	for i, v := range row {
		if b, ok := v.(bool); ok {
			n := 0
			if b {
				n = 1
			}
			args[i] = n
			continue
		}
		args[i] = v
	}
	return args
}

func readSQLite(path string) ([]Sheet, error) {
	// Opening a missing path would create an empty database.
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("opening report db: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		s, err := readSQLiteTable(db, name)
		if err != nil {
			return nil, fmt.Errorf("reading table %s: %w", name, err)
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}

func readSQLiteTable(db *sql.DB, name string) (Sheet, error) {
	rows, err := db.Query("SELECT * FROM " + quoteIdent(name) + " ORDER BY rowid")
	if err != nil {
		return Sheet{}, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return Sheet{}, err
	}

	s := Sheet{Name: name, Header: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Sheet{}, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = sqliteString(v)
		}
		s.Rows = append(s.Rows, row)
	}
	return s, rows.Err()
}

func sqliteString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
