package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codesense/internal/core/errors"
	"codesense/internal/engine/scope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greeterSource = `package com.example;

import java.util.List;
import java.util.ArrayList;

public class Greeter {
    private String name;
    private List<String> names = new ArrayList<>();

    public Greeter(String name) {
        this.name = name;
    }

    public String greet(int times) {
        StringBuilder sb = new StringBuilder();
        for (int i = 0; i < times; i++) {
            sb.append(name);
        }
        String result = sb.toString();
        Object o = null;
        return result;
    }

    enum Color { RED, GREEN }

    Color pick() {
        return Color.RED;
    }
}
`

func newTestParser() *Parser {
	return NewParser(NewGrammarLoader(nil), nil)
}

func parseGreeter(t *testing.T) *scope.File {
	t.Helper()
	file, err := newTestParser().Parse(context.Background(), "Greeter.java", []byte(greeterSource))
	require.NoError(t, err)
	require.NotNil(t, file)
	return file
}

func TestParse_PackageAndImports(t *testing.T) {
	file := parseGreeter(t)

	assert.Equal(t, "com.example", file.Package)
	require.Len(t, file.Imports, 2)
	assert.Equal(t, "java.util.List", file.Imports[0].Name)
	assert.False(t, file.Imports[0].Wildcard)
	assert.Empty(t, file.Problems)
	assert.False(t, file.AnalyzedAt.IsZero())
}

func TestParse_ClassScopeAndFields(t *testing.T) {
	file := parseGreeter(t)

	roots := file.Tree.Roots()
	require.Len(t, roots, 1)
	class := roots[0]
	assert.Equal(t, "Class", class.ScopeType())
	assert.Equal(t, "Greeter", class.Name)

	fields := class.DeclaratorMap()
	require.Contains(t, fields, "name")
	assert.Equal(t, "java.lang.String", fields["name"].FQCN)
	require.Contains(t, fields, "names")
	assert.Equal(t, "java.util.List<java.lang.String>", fields["names"].FQCN)
}

func TestParse_InnerScopes(t *testing.T) {
	file := parseGreeter(t)

	ctor := file.InnerScope(11)
	require.NotNil(t, ctor)
	assert.Equal(t, "Constructor", ctor.ScopeType())

	method := file.InnerScope(19)
	require.NotNil(t, method)
	assert.Equal(t, "Method", method.ScopeType())
	assert.Equal(t, "greet", method.Name)

	loop := file.InnerScope(17)
	require.NotNil(t, loop)
	assert.Equal(t, "Block", loop.ScopeType())
	require.Contains(t, loop.DeclaratorMap(), "i")
	assert.Equal(t, "int", loop.DeclaratorMap()["i"].FQCN)
}

func TestParse_FieldAccessOnThis(t *testing.T) {
	file := parseGreeter(t)

	ctor := file.InnerScope(11)
	require.NotNil(t, ctor)
	accesses := ctor.FieldAccessAt(11)
	require.Len(t, accesses, 1)
	assert.Equal(t, "name", accesses[0].Name)
	assert.Equal(t, "com.example.Greeter", accesses[0].Declaring)
	assert.Equal(t, "java.lang.String", accesses[0].ReturnType)
	assert.False(t, accesses[0].IsEnum)
}

func TestParse_MethodCallReceiverType(t *testing.T) {
	file := parseGreeter(t)

	loop := file.InnerScope(17)
	require.NotNil(t, loop)
	calls := loop.MethodCallAt(17)
	require.Len(t, calls, 1)
	assert.Equal(t, "append", calls[0].Name)
	assert.Equal(t, "java.lang.StringBuilder", calls[0].Declaring)
	assert.Equal(t, []string{"name"}, calls[0].Arguments)
}

func TestParse_EnumConstantAccess(t *testing.T) {
	file := parseGreeter(t)

	pick := file.InnerScope(27)
	require.NotNil(t, pick)
	accesses := pick.FieldAccessAt(27)
	require.Len(t, accesses, 1)
	assert.Equal(t, "RED", accesses[0].Name)
	assert.Equal(t, "com.example.Greeter.Color", accesses[0].Declaring)
	assert.Equal(t, "com.example.Greeter.Color", accesses[0].ReturnType)
	assert.True(t, accesses[0].IsEnum)
}

func TestParse_UsesAndNullLiteral(t *testing.T) {
	file := parseGreeter(t)

	method := file.InnerScope(21)
	require.NotNil(t, method)

	vars := method.VariableMap()
	require.Contains(t, vars, "result")
	assert.True(t, vars["result"].IsDecl(), "declaration wins over later uses")

	var uses, nulls int
	for _, v := range method.Variables() {
		if v.Name == "result" && !v.IsDecl() {
			uses++
			assert.Equal(t, "java.lang.String", v.FQCN)
		}
		if v.Name == scope.NullLiteral {
			nulls++
		}
	}
	assert.Equal(t, 1, uses)
	assert.Equal(t, 1, nulls)
}

func TestParse_VarInference(t *testing.T) {
	src := `import java.util.ArrayList;
class A {
    void m() {
        var list = new ArrayList<String>();
        var s = "x";
        var n = 10L;
    }
}
`
	file, err := newTestParser().Parse(context.Background(), "A.java", []byte(src))
	require.NoError(t, err)

	method := file.InnerScope(4)
	require.NotNil(t, method)
	decls := method.DeclaratorMap()
	assert.Equal(t, "java.util.ArrayList<java.lang.String>", decls["list"].FQCN)
	assert.Equal(t, "java.lang.String", decls["s"].FQCN)
	assert.Equal(t, "long", decls["n"].FQCN)
}

func TestParse_LambdaAndCatchScopes(t *testing.T) {
	src := `class B {
    void m(java.util.List<String> xs) {
        xs.forEach(x -> {
            System.out.println(x);
        });
        try {
            run();
        } catch (IllegalStateException e) {
            e.printStackTrace();
        }
    }
    void run() {}
}
`
	file, err := newTestParser().Parse(context.Background(), "B.java", []byte(src))
	require.NoError(t, err)

	lambda := file.InnerScope(4)
	require.NotNil(t, lambda)
	assert.Equal(t, "Block", lambda.ScopeType())
	assert.Contains(t, lambda.DeclaratorMap(), "x")

	catch := file.InnerScope(9)
	require.NotNil(t, catch)
	require.Contains(t, catch.DeclaratorMap(), "e")
	assert.Equal(t, "java.lang.IllegalStateException", catch.DeclaratorMap()["e"].FQCN)

	try := file.InnerScope(7)
	require.NotNil(t, try)
	calls := try.MethodCallAt(7)
	require.Len(t, calls, 1)
	assert.Equal(t, "B", calls[0].Declaring)
	assert.Equal(t, "void", calls[0].ReturnType)
}

func TestParse_SyntaxErrorsAreProblems(t *testing.T) {
	file, err := newTestParser().Parse(context.Background(), "Broken.java", []byte("class Broken { void m( { }\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, file.Problems)
}

func TestParseFile_Errors(t *testing.T) {
	p := newTestParser()

	_, err := p.ParseFile(context.Background(), "notes.txt")
	assert.True(t, errors.IsCode(err, errors.CodeNotSupported))

	_, err = p.ParseFile(context.Background(), filepath.Join(t.TempDir(), "Missing.java"))
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	path := filepath.Join(t.TempDir(), "Ok.java")
	require.NoError(t, os.WriteFile(path, []byte("class Ok {}\n"), 0o644))
	file, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, file.Path)
}

func TestParser_IsTestFile(t *testing.T) {
	p := newTestParser()
	assert.True(t, p.IsTestFile("src/test/java/a/FooTest.java"))
	assert.True(t, p.IsTestFile("FooIT.java"))
	assert.False(t, p.IsTestFile("Foo.java"))
	assert.False(t, p.IsTestFile("Test.java"))
}

func TestResolver_Resolve(t *testing.T) {
	r := NewTypeResolver()
	r.SetPackage("p")
	r.AddImport(scope.Import{Name: "java.util.Map"})
	r.Declare("Local", "p.Local")
	r.DeclareTypeVar("T")

	assert.Equal(t, "int", r.Resolve("int"))
	assert.Equal(t, "java.util.Map", r.Resolve("Map"))
	assert.Equal(t, "java.util.Map.Entry", r.Resolve("Map.Entry"))
	assert.Equal(t, "p.Local", r.Resolve("Local"))
	assert.Equal(t, "T", r.Resolve("T"))
	assert.Equal(t, "java.lang.String", r.Resolve("String"))
	assert.Equal(t, "p.Other", r.Resolve("Other"))
	assert.Equal(t, "", r.Resolve("var"))

	r.AddImport(scope.Import{Name: "java.io", Wildcard: true})
	assert.Equal(t, "", r.Resolve("Other"), "wildcard imports leave unknown names unresolved")
}

func TestErasure(t *testing.T) {
	assert.Equal(t, "java.util.List", erasure("java.util.List<java.lang.String>"))
	assert.Equal(t, "int", erasure("int[][]"))
	assert.Equal(t, "java.lang.String", erasure("java.lang.String..."))
}

func TestParse_MethodReturnTypes(t *testing.T) {
	file := parseGreeter(t)
	class := file.Tree.Roots()[0]

	byName := make(map[string]*scope.Scope)
	for _, m := range file.Tree.Methods(class) {
		byName[m.Name] = m
	}
	require.Contains(t, byName, "greet")
	assert.Equal(t, "java.lang.String", byName["greet"].ReturnType)
	require.Contains(t, byName, "Greeter")
	assert.True(t, byName["Greeter"].IsConstructor)
	assert.Equal(t, "com.example.Greeter", byName["Greeter"].ReturnType)
}

func TestParse_UnimportedTypes(t *testing.T) {
	src := `package com.example;

import java.util.List;

class Holder<T> {
    List<T> items;
    Map<String, T> index = new HashMap<>();
    java.util.Set<Widget> widgets;
    Holder self;
}
`
	file, err := newTestParser().Parse(context.Background(), "Holder.java", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"HashMap", "Map", "Widget"}, file.UnimportedTypes)
}
