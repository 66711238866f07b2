package session

import (
	"context"
	"strings"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"
	"codesense/internal/engine/scope"
)

const (
	kindVariable = "variable"
	kindField    = "field"
	kindMethod   = "method"
	kindClass    = "class"
)

// Autocomplete lists names visible at line that start with prefix: locals
// innermost first, then fields, then methods of the enclosing classes. The
// column is accepted for protocol compatibility; visibility is line based.
func (l *Local) Autocomplete(ctx context.Context, path string, line, column int, prefix string) ([]ports.Candidate, error) {
	f, err := l.file(ctx, path)
	if err != nil {
		return nil, err
	}
	inner := f.Tree.InnerScope(line)
	if inner == nil {
		return nil, nil
	}

	var out []ports.Candidate
	seen := make(map[string]bool)
	for _, v := range f.Tree.VisibleDeclarators(line) {
		if !strings.HasPrefix(v.Name, prefix) {
			continue
		}
		kind, declaring := kindVariable, ""
		if _, s := f.Tree.FindDeclarator(line, v.Name); s != nil && s.Kind() == scope.KindClass {
			kind, declaring = kindField, s.Name
		}
		seen[v.Name] = true
		out = append(out, ports.Candidate{Name: v.Name, Kind: kind, Type: v.FQCN, Declaring: declaring})
	}
	for _, class := range enclosingClasses(f.Tree, inner) {
		for _, m := range f.Tree.Methods(class) {
			if m.IsConstructor || seen[m.Name+"()"] || !strings.HasPrefix(m.Name, prefix) {
				continue
			}
			seen[m.Name+"()"] = true
			out = append(out, ports.Candidate{Name: m.Name, Kind: kindMethod, Type: m.ReturnType, Declaring: class.Name})
		}
	}
	return out, nil
}

func (l *Local) LocalVariables(ctx context.Context, path string, line int) (ports.LocalVariables, error) {
	f, err := l.file(ctx, path)
	if err != nil {
		return ports.LocalVariables{}, err
	}
	result := ports.LocalVariables{Path: f.Path, Line: line}
	inner := f.Tree.InnerScope(line)
	if inner == nil {
		return result, nil
	}
	if class := f.Tree.EnclosingClass(inner); class != nil {
		result.Class = class.Name
	}
	if method := f.Tree.EnclosingMethod(inner); method != nil {
		result.Method = method.Name
	}
	for _, v := range f.Tree.VisibleDeclarators(line) {
		if _, s := f.Tree.FindDeclarator(line, v.Name); s == nil || s.Kind() == scope.KindClass {
			continue
		}
		result.Variables = append(result.Variables, ports.LocalVariable{Name: v.Name, Type: v.FQCN, Line: v.Range.Begin.Line})
	}
	return result, nil
}

// JumpDeclaration resolves symbol at line and records the origin so BackJump
// can return to it.
func (l *Local) JumpDeclaration(ctx context.Context, path string, line, column int, symbol string) (ports.Location, error) {
	decl, err := l.declaration(ctx, path, line, symbol)
	if err != nil {
		return ports.Location{}, err
	}
	l.jumps.Push(ports.Location{Path: l.Project().Resolve(path), Line: line, Column: column})
	return decl.Location, nil
}

func (l *Local) ShowDeclaration(ctx context.Context, path string, line, column int, symbol string) (ports.Declaration, error) {
	return l.declaration(ctx, path, line, symbol)
}

func (l *Local) BackJump(ctx context.Context) (ports.Location, error) {
	loc, ok := l.jumps.Pop()
	if !ok {
		return ports.Location{}, errors.New(errors.CodeNotFound, "jump history is empty")
	}
	return loc, nil
}

// declaration looks symbol up as a variable visible at line, then as a
// method of an enclosing class, then as a type declared in the file.
func (l *Local) declaration(ctx context.Context, path string, line int, symbol string) (ports.Declaration, error) {
	f, err := l.file(ctx, path)
	if err != nil {
		return ports.Declaration{}, err
	}
	symbol = strings.TrimSpace(symbol)
	at := func(r scope.Range) ports.Location {
		return ports.Location{Path: f.Path, Line: r.Begin.Line, Column: r.Begin.Column}
	}

	if inner := f.Tree.InnerScope(line); inner != nil {
		if v, s := f.Tree.FindDeclarator(line, symbol); v != nil {
			decl := ports.Declaration{Symbol: symbol, Kind: kindVariable, Type: v.FQCN, Location: at(v.Range)}
			if s.Kind() == scope.KindClass {
				decl.Kind = kindField
			}
			if class := f.Tree.EnclosingClass(s); class != nil {
				decl.Declaring = class.Name
			}
			return decl, nil
		}
		for _, class := range enclosingClasses(f.Tree, inner) {
			for _, m := range f.Tree.Methods(class) {
				if m.Name == symbol && !m.IsConstructor {
					return ports.Declaration{Symbol: symbol, Kind: kindMethod, Type: m.ReturnType, Declaring: class.Name, Location: at(m.Range)}, nil
				}
			}
		}
	}

	var found *scope.Scope
	f.Tree.Walk(func(s *scope.Scope) bool {
		if found == nil && s.Kind() == scope.KindClass && s.Name == symbol {
			found = s
		}
		return found == nil
	})
	if found != nil {
		decl := ports.Declaration{Symbol: symbol, Kind: kindClass, Type: qualifiedName(f, found), Location: at(found.Range)}
		if outer := found.Parent(); outer != nil {
			if class := f.Tree.EnclosingClass(outer); class != nil {
				decl.Declaring = class.Name
			}
		}
		return decl, nil
	}

	err = errors.Newf(errors.CodeNotFound, "no declaration of %q visible at line %d", symbol, line)
	err = errors.AddContext(err, errors.CtxSymbol, symbol)
	return ports.Declaration{}, errors.AddContext(err, errors.CtxPath, f.Path)
}

// enclosingClasses returns the classes around s, innermost first.
func enclosingClasses(tree *scope.Tree, s *scope.Scope) []*scope.Scope {
	var out []*scope.Scope
	for _, a := range tree.Ancestors(s) {
		if a.Kind() == scope.KindClass {
			out = append(out, a)
		}
	}
	return out
}

func qualifiedName(f *scope.File, class *scope.Scope) string {
	names := []string{}
	for _, c := range enclosingClasses(f.Tree, class) {
		names = append([]string{c.Name}, names...)
	}
	name := strings.Join(names, ".")
	if f.Package == "" {
		return name
	}
	return f.Package + "." + name
}

// SwitchTest returns the test class of a main source file or the class under
// test of a test file.
func (l *Local) SwitchTest(ctx context.Context, path string) (ports.Location, error) {
	project := l.Project()
	target, err := project.counterpart(project.Resolve(path))
	if err != nil {
		return ports.Location{}, err
	}
	if !exists(target) {
		return ports.Location{}, errors.AddContext(errors.New(errors.CodeNotFound, "counterpart file does not exist"), errors.CtxPath, target)
	}
	return ports.Location{Path: target, Line: 1}, nil
}
