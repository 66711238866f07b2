package sexp

import (
	"testing"

	"codesense/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"single atom", "(ping)", []string{"ping"}},
		{"bare atom", "ping", []string{"ping"}},
		{"quoted path", `(p "/src/Foo.java")`, []string{"p", "/src/Foo.java"}},
		{"numbers stay text", `(ap "/src/Foo.java" 12 8 "get")`, []string{"ap", "/src/Foo.java", "12", "8", "get"}},
		{"empty string arg", `(ap "A.java" 1 1 "")`, []string{"ap", "A.java", "1", "1", ""}},
		{"escapes", `(ai "A.java" "a\"b\\c\n")`, []string{"ai", "A.java", "a\"b\\c\n"}},
		{"paren inside string", `(rt "-Dx=(y)")`, []string{"rt", "-Dx=(y)"}},
		{"surrounding space", "  ( q )  \r", []string{"q"}},
		{"unicode", `(p "/src/Größe.java")`, []string{"p", "/src/Größe.java"}},
		{"bare list", "rt clean test", []string{"rt", "clean", "test"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	lines := []string{
		"",
		"()",
		"(ping",
		`(p "unterminated)`,
		"(a (b))",
		"(a) b",
		"ping)",
		`(p "x\`,
	}
	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			_, err := Parse(line)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeMalformedRequest), "got %v", err)
		})
	}
}
