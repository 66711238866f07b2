package scope

import (
	"context"
	"log/slog"

	"codesense/internal/shared/observability"
)

// ID indexes a scope inside its Tree.
type ID int

const NoScope ID = -1

type Kind uint8

const (
	KindClass Kind = iota
	KindMethod
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	default:
		return "block"
	}
}

// Scope is one lexical region. Variables are kept in insertion order; the
// position index is derived from that order so lookups are first-wins.
type Scope struct {
	tree     *Tree
	id       ID
	kind     Kind
	parent   ID
	children []ID

	Name          string
	Pos           int
	Range         Range
	IsConstructor bool
	// ReturnType is set on method scopes; constructors carry their class.
	ReturnType    string

	variables     []*Variable
	byPos         map[int]*Variable
	fieldAccesses []*FieldAccess
	methodCalls   []*MethodCall
}

func (s *Scope) ID() ID       { return s.id }
func (s *Scope) Kind() Kind   { return s.kind }
func (s *Scope) Tree() *Tree  { return s.tree }
func (s *Scope) ParentID() ID { return s.parent }

// ScopeType is the display label: Class, Method, Constructor or Block.
func (s *Scope) ScopeType() string {
	switch s.kind {
	case KindClass:
		return "Class"
	case KindMethod:
		if s.IsConstructor {
			return "Constructor"
		}
		return "Method"
	default:
		return "Block"
	}
}

func (s *Scope) Parent() *Scope {
	if s.parent == NoScope {
		return nil
	}
	return s.tree.scopes[s.parent]
}

// Children returns nested scopes in declaration order.
func (s *Scope) Children() []*Scope {
	out := make([]*Scope, 0, len(s.children))
	for _, id := range s.children {
		out = append(out, s.tree.scopes[id])
	}
	return out
}

func (s *Scope) HasChildren() bool {
	return len(s.children) > 0
}

func (s *Scope) Contains(line int) bool {
	return s.Range.ContainsLine(line)
}

// AddVariable records v. A variable equal in name, position and kind to one
// already recorded is not duplicated; the existing record is returned.
func (s *Scope) AddVariable(v *Variable) *Variable {
	for _, existing := range s.variables {
		if existing.Pos == v.Pos && existing.Name == v.Name && existing.Decl == v.Decl {
			return existing
		}
	}
	s.variables = append(s.variables, v)
	if _, ok := s.byPos[v.Pos]; !ok {
		s.byPos[v.Pos] = v
	}
	s.trace("add variable", "variable", v)
	return v
}

func (s *Scope) AddFieldAccess(fa *FieldAccess) *FieldAccess {
	s.fieldAccesses = append(s.fieldAccesses, fa)
	s.trace("add fieldAccess", "fieldAccess", fa)
	return fa
}

func (s *Scope) AddMethodCall(mc *MethodCall) *MethodCall {
	s.methodCalls = append(s.methodCalls, mc)
	s.trace("add methodCall", "methodCall", mc)
	return mc
}

func (s *Scope) trace(msg string, key string, sym Symbol) {
	logger := s.tree.logger
	if !logger.Enabled(context.Background(), observability.LevelTrace) {
		return
	}
	logger.Log(context.Background(), observability.LevelTrace, msg, key, sym, "range", s.Range.String(), "scope", s.ScopeType())
}

// FindVariable returns the first variable recorded at pos.
func (s *Scope) FindVariable(pos int) (*Variable, bool) {
	v, ok := s.byPos[pos]
	return v, ok
}

// Variables returns a copy of the variables in insertion order.
func (s *Scope) Variables() []*Variable {
	out := make([]*Variable, len(s.variables))
	copy(out, s.variables)
	return out
}

func (s *Scope) FieldAccesses() []*FieldAccess {
	out := make([]*FieldAccess, len(s.fieldAccesses))
	copy(out, s.fieldAccesses)
	return out
}

func (s *Scope) MethodCalls() []*MethodCall {
	out := make([]*MethodCall, len(s.methodCalls))
	copy(out, s.methodCalls)
	return out
}

// FieldAccessAt returns accesses whose range begins exactly on line.
func (s *Scope) FieldAccessAt(line int) []*FieldAccess {
	var out []*FieldAccess
	for _, fa := range s.fieldAccesses {
		if fa.Range.Begin.Line == line {
			out = append(out, fa)
		}
	}
	return out
}

// MethodCallAt returns calls whose range begins exactly on line.
func (s *Scope) MethodCallAt(line int) []*MethodCall {
	var out []*MethodCall
	for _, mc := range s.methodCalls {
		if mc.Range.Begin.Line == line {
			out = append(out, mc)
		}
	}
	return out
}

// DeclaratorMap maps names to declaring variables, first declaration wins.
func (s *Scope) DeclaratorMap() map[string]*Variable {
	result := make(map[string]*Variable, len(s.variables))
	for _, v := range s.variables {
		if !v.Decl {
			continue
		}
		if _, ok := result[v.Name]; !ok {
			result[v.Name] = v
		}
	}
	return result
}

// VariableMap maps names to variables. A declaration always replaces a use
// of the same name; otherwise the first record wins.
func (s *Scope) VariableMap() map[string]*Variable {
	result := make(map[string]*Variable, len(s.variables))
	for _, v := range s.variables {
		existing, ok := result[v.Name]
		if !ok || (v.Decl && !existing.Decl) {
			result[v.Name] = v
		}
	}
	return result
}

// Tree is the arena owning every scope of one analyzed file.
type Tree struct {
	scopes []*Scope
	roots  []ID
	logger *slog.Logger
}

func NewTree(logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tree{logger: logger}
}

func (t *Tree) AddClass(parent ID, name string, pos int, r Range) *Scope {
	s := t.add(parent, KindClass, pos, r)
	s.Name = name
	return s
}

func (t *Tree) AddMethod(parent ID, name string, pos int, r Range, isConstructor bool) *Scope {
	s := t.add(parent, KindMethod, pos, r)
	s.Name = name
	s.IsConstructor = isConstructor
	return s
}

func (t *Tree) AddBlock(parent ID, pos int, r Range) *Scope {
	return t.add(parent, KindBlock, pos, r)
}

func (t *Tree) add(parent ID, kind Kind, pos int, r Range) *Scope {
	s := &Scope{
		tree:   t,
		id:     ID(len(t.scopes)),
		kind:   kind,
		parent: NoScope,
		Pos:    pos,
		Range:  r,
		byPos:  make(map[int]*Variable),
	}
	t.scopes = append(t.scopes, s)
	if parent < 0 || parent >= s.id {
		t.roots = append(t.roots, s.id)
		return s
	}
	s.parent = parent
	p := t.scopes[parent]
	p.children = append(p.children, s.id)
	return s
}

func (t *Tree) Scope(id ID) *Scope {
	if id < 0 || int(id) >= len(t.scopes) {
		return nil
	}
	return t.scopes[id]
}

// Roots returns top-level scopes in declaration order.
func (t *Tree) Roots() []*Scope {
	out := make([]*Scope, 0, len(t.roots))
	for _, id := range t.roots {
		out = append(out, t.scopes[id])
	}
	return out
}

func (t *Tree) Len() int {
	return len(t.scopes)
}

// Walk visits scopes in pre-order. Returning false skips the subtree.
func (t *Tree) Walk(fn func(*Scope) bool) {
	var visit func(id ID)
	visit = func(id ID) {
		s := t.scopes[id]
		if !fn(s) {
			return
		}
		for _, child := range s.children {
			visit(child)
		}
	}
	for _, id := range t.roots {
		visit(id)
	}
}

// Ancestors returns s followed by each enclosing scope up to its root.
func (t *Tree) Ancestors(s *Scope) []*Scope {
	var out []*Scope
	for cur := s; cur != nil; cur = cur.Parent() {
		out = append(out, cur)
	}
	return out
}
