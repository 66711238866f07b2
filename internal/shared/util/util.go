package util

import (
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// NormalizePatternPath turns a path or glob into the slash-separated,
// cleaned form glob patterns are compiled and matched against. "." becomes
// the empty string.
func NormalizePatternPath(s string) string {
	slashed := strings.TrimSpace(filepath.ToSlash(strings.ReplaceAll(s, `\`, "/")))
	if slashed == "" {
		return ""
	}
	if clean := path.Clean(slashed); clean != "." {
		return strings.TrimPrefix(clean, "./")
	}
	return ""
}

// HasPathPrefix reports whether p is prefix itself or lies below it, e.g.
// a source file under src/main/java.
func HasPathPrefix(p, prefix string) bool {
	p, prefix = NormalizePatternPath(p), NormalizePatternPath(prefix)
	switch {
	case p == prefix:
		return true
	case p == "" || prefix == "":
		return false
	}
	return strings.HasPrefix(p, prefix+"/")
}

func SortedStringKeys[T any](m map[string]T) []string {
	return slices.Sorted(maps.Keys(m))
}

// WriteFileWithDirs writes data to path, creating missing parents.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partial write.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
