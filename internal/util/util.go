package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// JSONStringify converts any value to a JSON string.
func JSONStringify(val any) string {
	buf, _ := json.Marshal(val)
	return string(buf)
}

// Exists returns true if the filename or directory specified by fn exists.
func Exists(fn string) bool {
	if _, err := os.Stat(fn); os.IsNotExist(err) {
		return false
	}
	return true
}

var isWindowsDriveLetter = regexp.MustCompile(`^[a-zA-Z]:[/\\]`)

// ToFileURI converts a directory and file to a file URI in a cross-platform way.
func ToFileURI(dir string, file string) string {
	if !filepath.IsAbs(dir) && !isWindowsDriveLetter.MatchString(dir) {
		dir, _ = filepath.Abs(dir)
	}
	absDir := filepath.Clean(dir)
	if os.PathSeparator == '\\' {
		// if windows replace the backslashes
		return fmt.Sprintf("file://%s", path.Join(filepath.ToSlash(absDir), file))
	}
	return fmt.Sprintf("file://%s", path.Join(absDir, file))
}

// ToSnapshotURL returns the URL of a snapshot given on the command line, a plain directory is a file URL.
func ToSnapshotURL(val string) string {
	if strings.Contains(val, "://") {
		return val
	}
	return ToFileURI(val, "")
}
