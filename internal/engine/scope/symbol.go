package scope

import "fmt"

// NullLiteral names the placeholder variable recorded for a bare `null`.
// It is never expected to carry a resolved type.
const NullLiteral = "NULL_LITERAL"

type SymbolKind uint8

const (
	SymbolVariable SymbolKind = iota
	SymbolFieldAccess
	SymbolMethodCall
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolVariable:
		return "variable"
	case SymbolFieldAccess:
		return "field"
	case SymbolMethodCall:
		return "method"
	default:
		return "unknown"
	}
}

// Symbol is one recorded identifier occurrence.
type Symbol interface {
	Kind() SymbolKind
	Ident() string
	DeclPos() int
	Span() Range
	// ResolvedType is the fully-qualified type, empty while unresolved.
	ResolvedType() string
}

type Variable struct {
	Name  string
	Pos   int
	Range Range
	FQCN  string
	Decl  bool
}

var _ Symbol = (*Variable)(nil)

func NewVariable(name string, pos int, r Range, decl bool) *Variable {
	return &Variable{Name: name, Pos: pos, Range: r, Decl: decl}
}

func (v *Variable) Kind() SymbolKind     { return SymbolVariable }
func (v *Variable) Ident() string        { return v.Name }
func (v *Variable) DeclPos() int         { return v.Pos }
func (v *Variable) Span() Range          { return v.Range }
func (v *Variable) ResolvedType() string { return v.FQCN }
func (v *Variable) IsDecl() bool         { return v.Decl }

func (v *Variable) String() string {
	kind := "use"
	if v.Decl {
		kind = "decl"
	}
	return fmt.Sprintf("Variable{%s %s pos=%d %s fqcn=%q}", kind, v.Name, v.Pos, v.Range, v.FQCN)
}

// AccessSymbol holds the fields shared by member accesses.
type AccessSymbol struct {
	Name       string
	Pos        int
	Range      Range
	Declaring  string
	ReturnType string
}

func (a *AccessSymbol) Ident() string        { return a.Name }
func (a *AccessSymbol) DeclPos() int         { return a.Pos }
func (a *AccessSymbol) Span() Range          { return a.Range }
func (a *AccessSymbol) ResolvedType() string { return a.ReturnType }

func (a *AccessSymbol) ContainsColumn(column int) bool {
	return a.Range.ContainsColumn(column)
}

// Match reports whether (line, column) points at this occurrence.
func (a *AccessSymbol) Match(line, column int) bool {
	return a.Range.Begin.Line == line && a.ContainsColumn(column)
}

type FieldAccess struct {
	AccessSymbol
	IsEnum bool
}

var _ Symbol = (*FieldAccess)(nil)

func NewFieldAccess(name string, pos int, r Range) *FieldAccess {
	return &FieldAccess{AccessSymbol: AccessSymbol{Name: name, Pos: pos, Range: r}}
}

func (f *FieldAccess) Kind() SymbolKind { return SymbolFieldAccess }

func (f *FieldAccess) String() string {
	return fmt.Sprintf("FieldAccess{%s pos=%d %s declaring=%q returnType=%q}", f.Name, f.Pos, f.Range, f.Declaring, f.ReturnType)
}

type MethodCall struct {
	AccessSymbol
	Arguments []string
}

var _ Symbol = (*MethodCall)(nil)

func NewMethodCall(name string, pos int, r Range) *MethodCall {
	return &MethodCall{AccessSymbol: AccessSymbol{Name: name, Pos: pos, Range: r}}
}

func (m *MethodCall) Kind() SymbolKind { return SymbolMethodCall }

func (m *MethodCall) String() string {
	return fmt.Sprintf("MethodCall{%s pos=%d %s declaring=%q returnType=%q}", m.Name, m.Pos, m.Range, m.Declaring, m.ReturnType)
}
