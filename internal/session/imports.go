package session

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"
	"codesense/internal/engine/scope"
	"codesense/internal/shared/util"
)

// Commonly used JDK types outside java.lang, by simple name.
var jdkTypes = map[string]string{
	"List":              "java.util.List",
	"ArrayList":         "java.util.ArrayList",
	"LinkedList":        "java.util.LinkedList",
	"Map":               "java.util.Map",
	"HashMap":           "java.util.HashMap",
	"LinkedHashMap":     "java.util.LinkedHashMap",
	"TreeMap":           "java.util.TreeMap",
	"Set":               "java.util.Set",
	"HashSet":           "java.util.HashSet",
	"LinkedHashSet":     "java.util.LinkedHashSet",
	"TreeSet":           "java.util.TreeSet",
	"Collection":        "java.util.Collection",
	"Collections":       "java.util.Collections",
	"Arrays":            "java.util.Arrays",
	"Objects":           "java.util.Objects",
	"Optional":          "java.util.Optional",
	"Iterator":          "java.util.Iterator",
	"Deque":             "java.util.Deque",
	"ArrayDeque":        "java.util.ArrayDeque",
	"Queue":             "java.util.Queue",
	"UUID":              "java.util.UUID",
	"Function":          "java.util.function.Function",
	"Supplier":          "java.util.function.Supplier",
	"Consumer":          "java.util.function.Consumer",
	"Predicate":         "java.util.function.Predicate",
	"BiFunction":        "java.util.function.BiFunction",
	"Stream":            "java.util.stream.Stream",
	"Collectors":        "java.util.stream.Collectors",
	"IOException":       "java.io.IOException",
	"File":              "java.io.File",
	"InputStream":       "java.io.InputStream",
	"OutputStream":      "java.io.OutputStream",
	"Path":              "java.nio.file.Path",
	"Paths":             "java.nio.file.Paths",
	"Files":             "java.nio.file.Files",
	"Duration":          "java.time.Duration",
	"Instant":           "java.time.Instant",
	"LocalDate":         "java.time.LocalDate",
	"LocalDateTime":     "java.time.LocalDateTime",
	"ConcurrentHashMap": "java.util.concurrent.ConcurrentHashMap",
	"ExecutorService":   "java.util.concurrent.ExecutorService",
	"Executors":         "java.util.concurrent.Executors",
	"TimeUnit":          "java.util.concurrent.TimeUnit",
}

type importLine struct {
	name     string
	static   bool
	wildcard bool
}

func (i importLine) target() string {
	s := i.name
	if i.static {
		s = "static " + s
	}
	if i.wildcard {
		s += ".*"
	}
	return s
}

func (i importLine) String() string {
	return "import " + i.target() + ";"
}

// parseImportName accepts "a.b.C", "a.b.*", "static a.B.c" with an optional
// leading "import" and trailing ";".
func parseImportName(raw string) (importLine, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	s = strings.TrimSpace(strings.TrimPrefix(s, "import "))
	var imp importLine
	if rest, ok := strings.CutPrefix(s, "static "); ok {
		imp.static = true
		s = strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutSuffix(s, ".*"); ok {
		imp.wildcard = true
		s = rest
	}
	if s == "" || !strings.Contains(s, ".") {
		return importLine{}, false
	}
	for _, part := range strings.Split(s, ".") {
		if !isJavaIdentifier(part) {
			return importLine{}, false
		}
	}
	imp.name = s
	return imp, true
}

func isJavaIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			if r < 0x80 {
				return false
			}
		}
	}
	return true
}

// AddImport adds importName to the file's imports. The import block is
// rewritten sorted and deduplicated.
func (l *Local) AddImport(ctx context.Context, path, importName string) (ports.ImportEdit, error) {
	imp, ok := parseImportName(importName)
	if !ok {
		err := errors.Newf(errors.CodeInvalidArgument, "invalid import name %q", importName)
		return ports.ImportEdit{}, errors.AddContext(err, errors.CtxPath, path)
	}
	f, err := l.analyze(ctx, path)
	if err != nil {
		return ports.ImportEdit{}, err
	}
	for _, existing := range f.Imports {
		if fromScope(existing) == imp {
			return importEdit(f, nil, false), nil
		}
	}
	return l.rewriteImports(ctx, f, []importLine{imp})
}

// OptimizeImports sorts and deduplicates the import block.
func (l *Local) OptimizeImports(ctx context.Context, path string) (ports.ImportEdit, error) {
	f, err := l.analyze(ctx, path)
	if err != nil {
		return ports.ImportEdit{}, err
	}
	if len(f.Imports) == 0 {
		return importEdit(f, nil, false), nil
	}
	return l.rewriteImports(ctx, f, nil)
}

// ImportAll imports every referenced type that has a single known home:
// a common JDK type or a type declared once in the project. Types from the
// file's own package need no import. The rest are reported unresolved.
func (l *Local) ImportAll(ctx context.Context, path string) (ports.ImportEdit, error) {
	f, err := l.analyze(ctx, path)
	if err != nil {
		return ports.ImportEdit{}, err
	}
	if len(f.UnimportedTypes) == 0 {
		return importEdit(f, nil, false), nil
	}

	projectTypes, err := l.projectTypes()
	if err != nil {
		return ports.ImportEdit{}, err
	}
	var add []importLine
	var unresolved []string
	for _, name := range f.UnimportedTypes {
		if fq, ok := jdkTypes[name]; ok {
			add = append(add, importLine{name: fq})
			continue
		}
		homes := projectTypes[name]
		switch {
		case slices.Contains(homes, f.Package):
		case len(homes) == 1 && homes[0] != "":
			add = append(add, importLine{name: homes[0] + "." + name})
		default:
			unresolved = append(unresolved, name)
		}
	}

	edit := importEdit(f, nil, false)
	if len(add) > 0 {
		if edit, err = l.rewriteImports(ctx, f, add); err != nil {
			return ports.ImportEdit{}, err
		}
	}
	edit.Unresolved = unresolved
	return edit, nil
}

func (l *Local) rewriteImports(ctx context.Context, f *scope.File, add []importLine) (ports.ImportEdit, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return ports.ImportEdit{}, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "stat source file"), errors.CtxPath, f.Path)
	}
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return ports.ImportEdit{}, errors.AddContext(errors.Wrap(err, errors.CodeSessionFailure, "read source file"), errors.CtxPath, f.Path)
	}

	updated := rewriteImportBlock(string(content), f, add)
	if updated == string(content) {
		return importEdit(f, nil, false), nil
	}
	if err := util.WriteFileAtomic(f.Path, []byte(updated), info.Mode().Perm()); err != nil {
		return ports.ImportEdit{}, errors.AddContext(errors.Wrap(err, errors.CodeSessionFailure, "write source file"), errors.CtxPath, f.Path)
	}
	l.logger.Info("imports rewritten", "path", f.Path, "added", len(add))

	fresh, err := l.analyze(ctx, f.Path)
	if err != nil {
		return ports.ImportEdit{}, err
	}
	return importEdit(fresh, add, true), nil
}

func importEdit(f *scope.File, added []importLine, changed bool) ports.ImportEdit {
	edit := ports.ImportEdit{Path: f.Path, Changed: changed, Unresolved: f.UnimportedTypes}
	for _, imp := range f.Imports {
		edit.Imports = append(edit.Imports, fromScope(imp).target())
	}
	for _, imp := range added {
		edit.Added = append(edit.Added, imp.target())
	}
	return edit
}

func fromScope(imp scope.Import) importLine {
	return importLine{name: imp.Name, static: imp.Static, wildcard: imp.Wildcard}
}

// renderImportBlock sorts and deduplicates imports, placing static imports
// in a second group.
func renderImportBlock(imports []importLine) []string {
	var regular, static []string
	seen := make(map[string]bool, len(imports))
	for _, imp := range imports {
		line := imp.String()
		if seen[line] {
			continue
		}
		seen[line] = true
		if imp.static {
			static = append(static, line)
		} else {
			regular = append(regular, line)
		}
	}
	sort.Strings(regular)
	sort.Strings(static)
	if len(regular) > 0 && len(static) > 0 {
		regular = append(regular, "")
	}
	return append(regular, static...)
}

// rewriteImportBlock replaces the lines holding import declarations with a
// normalized block. Comments inside the old block are kept below it. A file
// without imports gets the block after its package declaration.
func rewriteImportBlock(src string, f *scope.File, add []importLine) string {
	lines := strings.Split(src, "\n")
	all := make([]importLine, 0, len(f.Imports)+len(add))
	for _, imp := range f.Imports {
		all = append(all, fromScope(imp))
	}
	all = append(all, add...)
	block := renderImportBlock(all)

	var out []string
	if len(f.Imports) > 0 {
		first, last := f.Imports[0].Range.Begin.Line, f.Imports[0].Range.End.Line
		covered := make(map[int]bool)
		for _, imp := range f.Imports {
			first = min(first, imp.Range.Begin.Line)
			last = max(last, imp.Range.End.Line)
			for ln := imp.Range.Begin.Line; ln <= imp.Range.End.Line; ln++ {
				covered[ln] = true
			}
		}
		var kept []string
		for ln := first; ln <= last && ln <= len(lines); ln++ {
			if !covered[ln] && strings.TrimSpace(lines[ln-1]) != "" {
				kept = append(kept, lines[ln-1])
			}
		}
		out = append(out, lines[:first-1]...)
		out = append(out, block...)
		out = append(out, kept...)
		out = append(out, lines[min(last, len(lines)):]...)
		return strings.Join(out, "\n")
	}

	pkgLine := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "package ") {
			pkgLine = i
			break
		}
	}
	rest := lines[pkgLine+1:]
	out = append(out, lines[:pkgLine+1]...)
	if pkgLine >= 0 {
		out = append(out, "")
	}
	out = append(out, block...)
	if len(rest) == 0 || strings.TrimSpace(rest[0]) != "" {
		out = append(out, "")
	}
	out = append(out, rest...)
	return strings.Join(out, "\n")
}

// projectTypes maps simple type names to the packages of the project files
// declaring them, based on file names.
func (l *Local) projectTypes() (map[string][]string, error) {
	files, err := l.scanProject()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out[name] = append(out[name], packageOf(path))
	}
	return out, nil
}

// packageOf reads the package declaration of a source file without
// analyzing it.
func packageOf(path string) string {
	fh, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer fh.Close()
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if rest, ok := strings.CutPrefix(line, "package "); ok {
			return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ";"))
		}
		if strings.HasPrefix(line, "import ") || strings.Contains(line, "class ") || strings.Contains(line, "interface ") {
			return ""
		}
	}
	return ""
}
