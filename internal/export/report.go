// Package export builds and writes the multi-table metrics report that is
// the durable output of a recording session.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AmarBackInField/proPAL-AI/internal/model"
)

// SummaryName is the name of the always-present summary table.
const SummaryName = "Summary"

// FilePrefix starts every report file name.
const FilePrefix = "agent_metrics_"

// SummaryColumns are the summary table columns, in order.
var SummaryColumns = []string{"Metric Type", "Total Records", "Report Generated", "Configuration Notes"}

// Table is one named table of a report.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Report is the full export content: one table per non-empty category
// followed by the summary table.
type Report struct {
	Tables      []Table
	GeneratedAt time.Time
}

// Notes maps each category to its fixed summary note.
type Notes map[model.Kind]string

// Table returns the table with the given name.
func (r Report) Table(name string) (Table, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// BuildReport assembles the report for the current record logs.
// Empty categories get no table but always get a summary row.
func BuildReport(set model.RecordSet, notes Notes, generatedAt time.Time) Report {
	r := Report{GeneratedAt: generatedAt}

	for _, k := range model.Kinds {
		if set.Len(k) == 0 {
			continue
		}
		r.Tables = append(r.Tables, Table{
			Name:    k.SheetName(),
			Columns: model.Columns(k),
			Rows:    set.Rows(k),
		})
	}

	generated := generatedAt.Local().Format(model.TimestampLayout)
	summary := Table{Name: SummaryName, Columns: append([]string(nil), SummaryColumns...)}
	for _, k := range model.Kinds {
		summary.Rows = append(summary.Rows, []any{k.String(), set.Len(k), generated, notes[k]})
	}
	r.Tables = append(r.Tables, summary)

	return r
}

// Writer persists a report, replacing any previous file at path.
type Writer interface {
	Write(path string, r Report) error
	// Ext is the file extension without the dot.
	Ext() string
}

// NewWriter returns the writer for a report format ("xlsx" or "sqlite").
func NewWriter(format string) (Writer, error) {
	switch format {
	case "", "xlsx":
		return XLSXWriter{}, nil
	case "sqlite":
		return SQLiteWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// TargetPath returns the report path for a recorder started at t.
func TargetPath(dir, ext string, t time.Time) string {
	return filepath.Join(dir, FilePrefix+t.Format("20060102_150405")+"."+ext)
}

// EnsureDir creates the reports directory if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating reports dir: %w", err)
	}
	return nil
}

// replaceFile writes via fn into a temp file next to path, then renames it
// over path so readers never observe a half-written report.
func replaceFile(path, pattern string, fn func(tmp string) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), pattern)
	if err != nil {
		return fmt.Errorf("creating temp report: %w", err)
	}
	tmp := f.Name()
	_ = f.Close()
	defer func() { _ = os.Remove(tmp) }()

	if err := fn(tmp); err != nil {
		return err
	}
	// CreateTemp makes the file 0600.
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("setting report mode: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing report: %w", err)
	}
	return nil
}
