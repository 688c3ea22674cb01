package file

import (
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// listFiles returns every file below dir, walking into sub directories.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0)
	for _, entry := range entries {
		fn := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			nested, err := listFiles(fn)
			if err != nil {
				return nil, err
			}
			res = append(res, nested...)
			continue
		}
		if entry.Name() == ".DS_Store" {
			continue
		}
		res = append(res, fn)
	}
	return res, nil
}

// https://www.cockroachlabs.com/docs/v24.1/create-changefeed#general-file-format
// /[date]/[timestamp]-[uniquer]-[topic]-[schema-id]
var exportFileRegex = regexp.MustCompile(`^(\d{33})-\w+-[\w-]+-([a-z0-9_]+)-(\w+)\.ndjson\.gz`)

// YYYYMMDDHHMMSSNNNNNNNNNLLLLLLLLLL
func parsePreciseDate(dateStr string) (time.Time, error) {
	return time.Parse("20060102150405.999999999", dateStr[:14]+"."+dateStr[14:23])
}

// parseExportFile returns the table and the timestamp of a CockroachDB changefeed export file.
func parseExportFile(fn string) (string, time.Time, bool) {
	matches := exportFileRegex.FindStringSubmatch(filepath.Base(fn))
	if matches == nil {
		return "", time.Time{}, false
	}
	ts, err := parsePreciseDate(matches[1])
	if err != nil {
		return "", time.Time{}, false
	}
	return matches[2], ts, true
}
