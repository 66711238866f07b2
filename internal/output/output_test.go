package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	assert.Equal(t, FormatSexp, r.Name())

	r, err = New(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, r.Name())

	_, err = New("xml")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	assert.Equal(t, []string{"json", "sexp"}, Formats())
}

func TestSexpRenderer_Render(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   string
	}{
		{"nil", nil, "nil\n"},
		{"empty ack", ports.Ack{}, "t\n"},
		{"ack with message", ports.Ack{Message: `parsed "A.java"`}, `"parsed \"A.java\""` + "\n"},
		{"pong", ports.Pong{Message: "pong"}, "\"pong\"\n"},
		{"location", ports.Location{Path: "/p/A.java", Line: 3, Column: 7}, "(\"/p/A.java\" 3 7)\n"},
		{"no candidates", []ports.Candidate(nil), "nil\n"},
		{
			"candidates",
			[]ports.Candidate{{Name: "count", Kind: "variable", Type: "int"}},
			"((:name \"count\" :kind \"variable\" :type \"int\" :declaring \"\"))\n",
		},
		{
			"diagnostics",
			ports.Diagnostics{Files: 1, Diagnostics: []ports.Diagnostic{{Path: "A.java", Line: 2, Column: 5, Severity: "error", Message: "syntax error"}}},
			"(:files 1 :diagnostics ((\"A.java\" 2 5 \"error\" \"syntax error\")))\n",
		},
		{
			"imports",
			ports.ImportEdit{Path: "A.java", Imports: []string{"java.util.List"}, Changed: true},
			"(:path \"A.java\" :changed t :imports (\"java.util.List\") :added nil :unresolved nil)\n",
		},
		{
			"locals",
			ports.LocalVariables{Class: "A", Method: "m", Line: 4, Variables: []ports.LocalVariable{{Name: "x", Type: "int", Line: 3}}},
			"(:class \"A\" :method \"m\" :line 4 :variables ((\"x\" \"int\" 3)))\n",
		},
		{
			"task",
			ports.TaskResult{Command: []string{"mvn", "test"}, ExitCode: 1, Output: "FAIL\n", Duration: 1500 * time.Millisecond},
			"(:command (\"mvn\" \"test\") :exit 1 :elapsed 1.500 :output \"FAIL\\n\")\n",
		},
	}

	r := NewSexpRenderer()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, r.Render(&buf, tc.result))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestSexpRenderer_UnsupportedType(t *testing.T) {
	var buf bytes.Buffer
	err := NewSexpRenderer().Render(&buf, struct{}{})
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestSexpRenderer_RenderError(t *testing.T) {
	var buf bytes.Buffer
	err := errors.New(errors.CodeUnknownCommand, "unknown command \"zz\"")
	require.NoError(t, NewSexpRenderer().RenderError(&buf, err))
	assert.Equal(t, "(error \"UNKNOWN_COMMAND\" \"unknown command \\\"zz\\\"\")\n", buf.String())

	buf.Reset()
	require.NoError(t, NewSexpRenderer().RenderError(&buf, fmt.Errorf("boom")))
	assert.Equal(t, "(error \"SESSION_FAILURE\" \"boom\")\n", buf.String())
}

func TestJSONRenderer(t *testing.T) {
	r := NewJSONRenderer()

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, ports.Location{Path: "A.java", Line: 1, Column: 2}))
	assert.Equal(t, "{\"ok\":true,\"result\":{\"path\":\"A.java\",\"line\":1,\"column\":2}}\n", buf.String())

	buf.Reset()
	require.NoError(t, r.RenderError(&buf, errors.New(errors.CodeNotFound, "no such file")))
	var resp map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "NOT_FOUND", resp["error"].(map[string]any)["code"])
}
