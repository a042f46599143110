package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Sheet is one table read back from a report file, as display strings.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Read loads every table of a report file. The format is chosen by
// extension.
func Read(path string) ([]Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".db", ".sqlite":
		return readSQLite(path)
	default:
		return nil, fmt.Errorf("unsupported report file %s", filepath.Base(path))
	}
}
