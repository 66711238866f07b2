package scope

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeAt(line, beginCol, endCol int) Range {
	return Range{
		Begin: Position{Line: line, Column: beginCol},
		End:   Position{Line: line, Column: endCol},
	}
}

// buildTree models:
//
//	class A            lines 1-30
//	  method run       lines 3-20
//	    block          lines 5-10
//	      block        lines 6-8
//	    block          lines 12-15
//	  method stop      lines 22-28
func buildTree(t *testing.T) (*Tree, map[string]*Scope) {
	t.Helper()
	tree := NewTree(nil)
	class := tree.AddClass(NoScope, "A", 0, LineRange(1, 30))
	run := tree.AddMethod(class.ID(), "run", 20, LineRange(3, 20), false)
	outer := tree.AddBlock(run.ID(), 50, LineRange(5, 10))
	nested := tree.AddBlock(outer.ID(), 60, LineRange(6, 8))
	second := tree.AddBlock(run.ID(), 120, LineRange(12, 15))
	stop := tree.AddMethod(class.ID(), "stop", 220, LineRange(22, 28), false)
	return tree, map[string]*Scope{
		"class": class, "run": run, "outer": outer, "nested": nested, "second": second, "stop": stop,
	}
}

func TestRange_ContainsLine(t *testing.T) {
	r := LineRange(4, 9)
	for line := 0; line <= 12; line++ {
		want := line >= 4 && line <= 9
		assert.Equal(t, want, r.ContainsLine(line), "line %d", line)
	}
}

func TestNewRange_RejectsInverted(t *testing.T) {
	_, err := NewRange(Position{Line: 5, Column: 1}, Position{Line: 4, Column: 1})
	require.Error(t, err)

	r, err := NewRange(Position{Line: 4, Column: 3}, Position{Line: 4, Column: 3})
	require.NoError(t, err)
	assert.True(t, r.ContainsLine(4))
}

func TestGetScope_FirstMatchWins(t *testing.T) {
	tree := NewTree(nil)
	wide := tree.AddBlock(NoScope, 0, LineRange(1, 100))
	tight := tree.AddBlock(NoScope, 10, LineRange(10, 12))

	assert.Same(t, wide, GetScope(11, []*Scope{wide, tight}))
	assert.Same(t, tight, GetScope(11, []*Scope{tight, wide}))
	assert.Nil(t, GetScope(200, []*Scope{wide, tight}))
}

func TestGetInnerScope(t *testing.T) {
	tree, s := buildTree(t)

	tests := []struct {
		name string
		line int
		want *Scope
	}{
		{"deepest block", 7, s["nested"]},
		{"outer block without matching child", 9, s["outer"]},
		{"second sibling block", 13, s["second"]},
		{"method body outside blocks", 18, s["run"]},
		{"other method", 25, s["stop"]},
		{"class body between methods", 21, s["class"]},
		{"outside everything", 40, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := GetInnerScope(tc.line, tree.Roots())
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want.ID(), got.ID())
		})
	}
}

func TestScope_ScopeType(t *testing.T) {
	tree := NewTree(nil)
	class := tree.AddClass(NoScope, "A", 0, LineRange(1, 10))
	ctor := tree.AddMethod(class.ID(), "A", 1, LineRange(2, 3), true)
	method := tree.AddMethod(class.ID(), "m", 5, LineRange(4, 5), false)
	block := tree.AddBlock(method.ID(), 6, LineRange(5, 5))

	assert.Equal(t, "Class", class.ScopeType())
	assert.Equal(t, "Constructor", ctor.ScopeType())
	assert.Equal(t, "Method", method.ScopeType())
	assert.Equal(t, "Block", block.ScopeType())
	assert.Same(t, class, tree.EnclosingClass(block))
	assert.Same(t, method, tree.EnclosingMethod(block))
	assert.Len(t, tree.Methods(class), 2)
}

func TestScope_FindVariableFirstWins(t *testing.T) {
	tree := NewTree(nil)
	s := tree.AddBlock(NoScope, 0, LineRange(1, 5))
	first := s.AddVariable(NewVariable("a", 10, rangeAt(2, 5, 6), true))
	s.AddVariable(NewVariable("b", 10, rangeAt(2, 8, 9), true))

	got, ok := s.FindVariable(10)
	require.True(t, ok)
	assert.Same(t, first, got)

	_, ok = s.FindVariable(11)
	assert.False(t, ok)
}

func TestScope_AddVariableKeepsSetSemantics(t *testing.T) {
	tree := NewTree(nil)
	s := tree.AddBlock(NoScope, 0, LineRange(1, 5))
	v1 := s.AddVariable(NewVariable("a", 10, rangeAt(2, 5, 6), true))
	v2 := s.AddVariable(NewVariable("a", 10, rangeAt(2, 5, 6), true))

	assert.Same(t, v1, v2)
	assert.Len(t, s.Variables(), 1)
}

func TestScope_AccessesByExactLine(t *testing.T) {
	tree := NewTree(nil)
	s := tree.AddBlock(NoScope, 0, LineRange(1, 10))
	s.AddFieldAccess(NewFieldAccess("out", 30, Range{
		Begin: Position{Line: 3, Column: 10},
		End:   Position{Line: 4, Column: 2},
	}))
	s.AddFieldAccess(NewFieldAccess("err", 50, rangeAt(4, 1, 4)))
	s.AddMethodCall(NewMethodCall("println", 31, rangeAt(3, 14, 21)))

	assert.Len(t, s.FieldAccessAt(3), 1)
	assert.Len(t, s.FieldAccessAt(4), 1, "containment must not count")
	assert.Equal(t, "err", s.FieldAccessAt(4)[0].Name)
	assert.Len(t, s.MethodCallAt(3), 1)
	assert.Empty(t, s.MethodCallAt(4))
}

func TestAccessSymbol_Match(t *testing.T) {
	mc := NewMethodCall("println", 31, rangeAt(3, 14, 21))
	assert.True(t, mc.Match(3, 14))
	assert.True(t, mc.Match(3, 21))
	assert.False(t, mc.Match(3, 22))
	assert.False(t, mc.Match(4, 15))
}

func TestScope_DeclaratorMapOnlyDeclarations(t *testing.T) {
	tree := NewTree(nil)
	s := tree.AddBlock(NoScope, 0, LineRange(1, 10))
	firstDecl := s.AddVariable(NewVariable("x", 10, rangeAt(2, 1, 2), true))
	s.AddVariable(NewVariable("x", 40, rangeAt(5, 1, 2), true))
	s.AddVariable(NewVariable("y", 60, rangeAt(6, 1, 2), false))

	m := s.DeclaratorMap()
	for name, v := range m {
		assert.True(t, v.IsDecl(), "entry %s is not a declaration", name)
	}
	assert.Same(t, firstDecl, m["x"])
	assert.NotContains(t, m, "y")
}

func TestScope_VariableMapPrefersDeclaration(t *testing.T) {
	tree := NewTree(nil)
	s := tree.AddBlock(NoScope, 0, LineRange(1, 10))
	firstUse := s.AddVariable(NewVariable("x", 5, rangeAt(1, 1, 2), false))
	decl := s.AddVariable(NewVariable("x", 10, rangeAt(2, 1, 2), true))
	s.AddVariable(NewVariable("x", 20, rangeAt(3, 1, 2), false))
	s.AddVariable(NewVariable("x", 30, rangeAt(4, 1, 2), true))
	onlyUse := s.AddVariable(NewVariable("y", 40, rangeAt(5, 1, 2), false))
	s.AddVariable(NewVariable("y", 50, rangeAt(6, 1, 2), false))

	m := s.VariableMap()
	assert.Same(t, decl, m["x"])
	assert.NotSame(t, firstUse, m["x"])
	assert.Same(t, onlyUse, m["y"])
}

func TestTree_VisibleDeclarators(t *testing.T) {
	tree, s := buildTree(t)
	s["class"].AddVariable(&Variable{Name: "field", Pos: 2, Range: rangeAt(29, 5, 10), FQCN: "int", Decl: true})
	s["run"].AddVariable(&Variable{Name: "arg", Pos: 21, Range: rangeAt(3, 10, 13), FQCN: "java.lang.String", Decl: true})
	s["outer"].AddVariable(&Variable{Name: "arg", Pos: 51, Range: rangeAt(5, 5, 8), FQCN: "long", Decl: true})
	s["nested"].AddVariable(&Variable{Name: "late", Pos: 62, Range: rangeAt(8, 5, 9), FQCN: "int", Decl: true})

	vars := tree.VisibleDeclarators(7)
	names := make([]string, 0, len(vars))
	for _, v := range vars {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"arg", "field"}, names)
	assert.Equal(t, "long", vars[0].FQCN, "inner declaration shadows parameter")

	v, owner := tree.FindDeclarator(18, "arg")
	require.NotNil(t, v)
	assert.Same(t, s["run"], owner)
}

func TestValidate_ResolvedTreeHasNoWarnings(t *testing.T) {
	tree, s := buildTree(t)
	s["run"].AddVariable(&Variable{Name: "a", Pos: 21, Range: rangeAt(3, 1, 2), FQCN: "int", Decl: true})
	s["nested"].AddVariable(&Variable{Name: NullLiteral, Pos: 61, Range: rangeAt(7, 1, 5)})
	fa := s["outer"].AddFieldAccess(NewFieldAccess("out", 55, rangeAt(5, 1, 4)))
	fa.ReturnType = "java.io.PrintStream"
	mc := s["outer"].AddMethodCall(NewMethodCall("println", 57, rangeAt(5, 5, 12)))
	mc.ReturnType = "void"

	assert.Empty(t, tree.Validate())

	mc.ReturnType = ""
	warnings := tree.Validate()
	require.Len(t, warnings, 1)
	assert.Same(t, mc, warnings[0].Symbol)
	assert.Equal(t, s["outer"].ID(), warnings[0].Scope)
}

func TestDump_LogsOneWarningPerUnresolvedSymbol(t *testing.T) {
	tree, s := buildTree(t)
	v := s["run"].AddVariable(&Variable{Name: "a", Pos: 21, Range: rangeAt(3, 1, 2), FQCN: "int", Decl: true})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	assert.Equal(t, 0, tree.Dump(logger))
	assert.Empty(t, buf.String())

	v.FQCN = ""
	assert.Equal(t, 1, tree.Dump(logger))
	assert.Equal(t, 1, strings.Count(buf.String(), "level=WARN"))
	assert.Contains(t, buf.String(), "missing fqcn")
}

func TestIndex_ReplacesWholesale(t *testing.T) {
	idx := NewIndex()
	first := &File{Path: "A.java", Tree: NewTree(nil)}
	second := &File{Path: "A.java", Tree: NewTree(nil)}

	idx.Put(first)
	idx.Put(second)
	got, ok := idx.Get("A.java")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, idx.Len())

	idx.Put(&File{Path: "B.java"})
	assert.Equal(t, []string{"A.java", "B.java"}, idx.Paths())
	assert.Equal(t, 1, idx.Remove("B.java", "C.java"))
	idx.Clear()
	assert.Equal(t, 0, idx.Len())
}
