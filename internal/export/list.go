package export

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ReportFile describes a report found on disk.
type ReportFile struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// List finds report files in dir, newest first. A missing dir is not an error.
func List(dir string) ([]ReportFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []ReportFile
	for _, e := range entries {
		if e.IsDir() || !isReportName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}
		files = append(files, ReportFile{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Name != files[j].Name {
			return files[i].Name > files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

func isReportName(name string) bool {
	if !strings.HasPrefix(name, FilePrefix) {
		return false
	}
	switch filepath.Ext(name) {
	case ".xlsx", ".db", ".sqlite":
		return true
	}
	return false
}
