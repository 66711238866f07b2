package parser

import (
	"strings"

	"codesense/internal/engine/scope"
)

var primitiveTypes = map[string]bool{
	"boolean": true, "byte": true, "char": true, "short": true,
	"int": true, "long": true, "float": true, "double": true, "void": true,
}

var javaLangTypes = map[string]bool{
	"Object": true, "String": true, "StringBuilder": true, "StringBuffer": true,
	"CharSequence": true, "Boolean": true, "Byte": true, "Character": true,
	"Short": true, "Integer": true, "Long": true, "Float": true, "Double": true,
	"Number": true, "Void": true, "Math": true, "System": true, "Thread": true,
	"Runnable": true, "Iterable": true, "Comparable": true, "AutoCloseable": true,
	"Class": true, "Enum": true, "Record": true, "Throwable": true, "Exception": true,
	"Error": true, "RuntimeException": true, "IllegalArgumentException": true,
	"IllegalStateException": true, "NullPointerException": true,
	"UnsupportedOperationException": true, "IndexOutOfBoundsException": true,
	"InterruptedException": true, "Override": true, "Deprecated": true,
	"FunctionalInterface": true, "SuppressWarnings": true,
}

// TypeResolver qualifies simple type names using the file's package, its
// imports and the types it declares. It never guesses through wildcard
// imports: such names stay unresolved.
type TypeResolver struct {
	pkg       string
	imports   map[string]string
	local     map[string]string
	typeVars  map[string]bool
	wildcards []string
}

func NewTypeResolver() *TypeResolver {
	return &TypeResolver{
		imports:  make(map[string]string),
		local:    make(map[string]string),
		typeVars: make(map[string]bool),
	}
}

func (r *TypeResolver) SetPackage(pkg string) {
	r.pkg = pkg
}

func (r *TypeResolver) Package() string {
	return r.pkg
}

func (r *TypeResolver) AddImport(imp scope.Import) {
	if imp.Static {
		return
	}
	if imp.Wildcard {
		r.wildcards = append(r.wildcards, imp.Name)
		return
	}
	r.imports[simpleName(imp.Name)] = imp.Name
}

// Declare registers a type declared in the file.
func (r *TypeResolver) Declare(simple, fqcn string) {
	if _, ok := r.local[simple]; !ok {
		r.local[simple] = fqcn
	}
}

func (r *TypeResolver) DeclareTypeVar(name string) {
	r.typeVars[name] = true
}

// Qualify joins the package with a top-level type name.
func (r *TypeResolver) Qualify(simple string) string {
	if r.pkg == "" {
		return simple
	}
	return r.pkg + "." + simple
}

// Resolve returns the fully-qualified name for a type as written in source,
// without type arguments. The empty string means unresolved.
func (r *TypeResolver) Resolve(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "var" {
		return ""
	}
	if primitiveTypes[name] {
		return name
	}
	if i := strings.IndexByte(name, '.'); i > 0 {
		head := name[:i]
		if fq, ok := r.imports[head]; ok {
			return fq + name[i:]
		}
		if fq, ok := r.local[head]; ok {
			return fq + name[i:]
		}
		return name
	}
	if fq, ok := r.imports[name]; ok {
		return fq
	}
	if fq, ok := r.local[name]; ok {
		return fq
	}
	if r.typeVars[name] {
		return name
	}
	if javaLangTypes[name] {
		return "java.lang." + name
	}
	if len(r.wildcards) > 0 {
		return ""
	}
	return r.Qualify(name)
}

// IsKnownType reports whether name resolves without falling back to the
// package, i.e. it is imported, declared, a type variable or java.lang.
func (r *TypeResolver) IsKnownType(name string) bool {
	if primitiveTypes[name] || javaLangTypes[name] || r.typeVars[name] {
		return true
	}
	_, imported := r.imports[name]
	_, local := r.local[name]
	return imported || local
}

func simpleName(fqcn string) string {
	if i := strings.LastIndexByte(fqcn, '.'); i >= 0 {
		return fqcn[i+1:]
	}
	return fqcn
}

// erasure strips type arguments and array brackets.
func erasure(fqcn string) string {
	if i := strings.IndexByte(fqcn, '<'); i >= 0 {
		fqcn = fqcn[:i]
	}
	fqcn = strings.TrimSuffix(fqcn, "...")
	for strings.HasSuffix(fqcn, "[]") {
		fqcn = strings.TrimSuffix(fqcn, "[]")
	}
	return fqcn
}
