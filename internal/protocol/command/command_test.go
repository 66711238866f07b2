package command

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"
	"codesense/internal/output"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromArgs(t *testing.T) {
	tests := []struct {
		args []string
		want Command
	}{
		{[]string{"pc", "/proj"}, ChangeProject{Path: "/proj"}},
		{[]string{"p", "A.java"}, Parse{Path: "A.java"}},
		{[]string{"ap", "A.java", "12", "8", "get"}, Autocomplete{Path: "A.java", Line: 12, Column: 8, Prefix: "get"}},
		{[]string{"c", "A.java"}, Compile{Path: "A.java"}},
		{[]string{"cp"}, CompileProject{}},
		{[]string{"fc", "A.java"}, Format{Path: "A.java"}},
		{[]string{"di", "A.java"}, Diagnose{Path: "A.java"}},
		{[]string{"rj"}, RunTest{}},
		{[]string{"rj", "FooTest"}, RunTest{Name: "FooTest"}},
		{[]string{"rt"}, RunTask{}},
		{[]string{"rt", "clean", "install"}, RunTask{Args: []string{"clean", "install"}}},
		{[]string{"ai", "A.java", "java.util.List"}, AddImport{Path: "A.java", Import: "java.util.List"}},
		{[]string{"oi", "A.java"}, OptimizeImports{Path: "A.java"}},
		{[]string{"ia", "A.java"}, ImportAll{Path: "A.java"}},
		{[]string{"st", "A.java"}, SwitchTest{Path: "A.java"}},
		{[]string{"jd", "A.java", "3", "0", "x"}, JumpDeclaration{Path: "A.java", Line: 3, Column: 0, Symbol: "x"}},
		{[]string{"sd", "A.java", "3", "4", "x"}, ShowDeclaration{Path: "A.java", Line: 3, Column: 4, Symbol: "x"}},
		{[]string{"bj"}, BackJump{}},
		{[]string{"cc"}, ClearCache{}},
		{[]string{"lv", "A.java", "9"}, LocalVariables{Path: "A.java", Line: 9}},
		{[]string{"ping"}, Ping{}},
		{[]string{"q"}, Quit{}},
	}
	for _, tc := range tests {
		t.Run(strings.Join(tc.args, " "), func(t *testing.T) {
			got, err := FromArgs(tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.args[0], got.Code())
		})
	}
	assert.Len(t, Codes(), len(tests)-2, "rj and rt are listed twice")
}

func TestFromArgs_Rejects(t *testing.T) {
	tests := []struct {
		args []string
		code errors.ErrorCode
	}{
		{[]string{"zz"}, errors.CodeUnknownCommand},
		{[]string{"PING"}, errors.CodeUnknownCommand},
		{[]string{"q", "now"}, errors.CodeInvalidArgument},
		{[]string{"p"}, errors.CodeInvalidArgument},
		{[]string{"p", "a", "b"}, errors.CodeInvalidArgument},
		{[]string{"rj", "a", "b"}, errors.CodeInvalidArgument},
		{[]string{"ap", "A.java", "x", "1", ""}, errors.CodeInvalidArgument},
		{[]string{"jd", "A.java", "0", "1", "s"}, errors.CodeInvalidArgument},
		{[]string{"lv", "A.java", "-3"}, errors.CodeInvalidArgument},
		{nil, errors.CodeMalformedRequest},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.args), func(t *testing.T) {
			_, err := FromArgs(tc.args)
			require.Error(t, err)
			assert.Equal(t, tc.code, errors.CodeOf(err))
		})
	}
}

type fakeSession struct {
	calls []string
	fail  error
}

func (f *fakeSession) record(op string) error {
	f.calls = append(f.calls, op)
	return f.fail
}

func (f *fakeSession) Start(ctx context.Context) error { return nil }
func (f *fakeSession) Shutdown(ctx context.Context, grace time.Duration) error {
	return nil
}
func (f *fakeSession) ChangeProject(ctx context.Context, root string) (ports.Ack, error) {
	return ports.Ack{}, f.record("pc " + root)
}
func (f *fakeSession) Parse(ctx context.Context, path string) (ports.Ack, error) {
	return ports.Ack{}, f.record("p " + path)
}
func (f *fakeSession) Autocomplete(ctx context.Context, path string, line, column int, prefix string) ([]ports.Candidate, error) {
	return []ports.Candidate{{Name: prefix + "X", Kind: "variable", Type: "int"}}, f.record("ap")
}
func (f *fakeSession) Compile(ctx context.Context, path string) (ports.Diagnostics, error) {
	return ports.Diagnostics{Files: 1}, f.record("c")
}
func (f *fakeSession) CompileProject(ctx context.Context) (ports.Diagnostics, error) {
	return ports.Diagnostics{}, f.record("cp")
}
func (f *fakeSession) Format(ctx context.Context, path string) (ports.Ack, error) {
	return ports.Ack{}, f.record("fc")
}
func (f *fakeSession) Diagnostics(ctx context.Context, path string) (ports.Diagnostics, error) {
	return ports.Diagnostics{}, f.record("di")
}
func (f *fakeSession) RunTest(ctx context.Context, name string) (ports.TaskResult, error) {
	return ports.TaskResult{}, f.record("rj " + name)
}
func (f *fakeSession) RunTask(ctx context.Context, args []string) (ports.TaskResult, error) {
	return ports.TaskResult{}, f.record("rt " + strings.Join(args, " "))
}
func (f *fakeSession) AddImport(ctx context.Context, path, importName string) (ports.ImportEdit, error) {
	return ports.ImportEdit{}, f.record("ai")
}
func (f *fakeSession) OptimizeImports(ctx context.Context, path string) (ports.ImportEdit, error) {
	return ports.ImportEdit{}, f.record("oi")
}
func (f *fakeSession) ImportAll(ctx context.Context, path string) (ports.ImportEdit, error) {
	return ports.ImportEdit{}, f.record("ia")
}
func (f *fakeSession) SwitchTest(ctx context.Context, path string) (ports.Location, error) {
	return ports.Location{}, f.record("st")
}
func (f *fakeSession) JumpDeclaration(ctx context.Context, path string, line, column int, symbol string) (ports.Location, error) {
	return ports.Location{Path: path, Line: line, Column: column}, f.record("jd")
}
func (f *fakeSession) ShowDeclaration(ctx context.Context, path string, line, column int, symbol string) (ports.Declaration, error) {
	return ports.Declaration{Symbol: symbol}, f.record("sd")
}
func (f *fakeSession) BackJump(ctx context.Context) (ports.Location, error) {
	return ports.Location{}, f.record("bj")
}
func (f *fakeSession) ClearCache(ctx context.Context) (ports.Ack, error) {
	return ports.Ack{}, f.record("cc")
}
func (f *fakeSession) LocalVariables(ctx context.Context, path string, line int) (ports.LocalVariables, error) {
	return ports.LocalVariables{}, f.record("lv")
}
func (f *fakeSession) Ping(ctx context.Context) (ports.Pong, error) {
	return ports.Pong{Message: "pong"}, f.record("ping")
}

func newTestDispatcher(s ports.Session) *Dispatcher {
	return NewDispatcher(s, output.NewSexpRenderer(), nil)
}

func TestDispatcher_HandlePing(t *testing.T) {
	s := &fakeSession{}
	var buf bytes.Buffer

	cont := newTestDispatcher(s).Handle(context.Background(), &buf, "(ping)")
	assert.True(t, cont)
	assert.Equal(t, "\"pong\"\n", buf.String())
	assert.Equal(t, []string{"ping"}, s.calls)
}

func TestDispatcher_HandleQuit(t *testing.T) {
	s := &fakeSession{}
	var buf bytes.Buffer

	assert.False(t, newTestDispatcher(s).Handle(context.Background(), &buf, "(q)"))
	assert.Empty(t, buf.String())
	assert.Empty(t, s.calls)
}

func TestDispatcher_QuitWithArgumentsContinues(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, newTestDispatcher(&fakeSession{}).Handle(context.Background(), &buf, "(q now)"))
	assert.True(t, strings.HasPrefix(buf.String(), "(error \"INVALID_ARGUMENT\""))
}

func TestDispatcher_UnknownAndMalformedAreRecoverable(t *testing.T) {
	d := newTestDispatcher(&fakeSession{})

	var buf bytes.Buffer
	assert.True(t, d.Handle(context.Background(), &buf, "(zz 1 2)"))
	assert.Contains(t, buf.String(), "UNKNOWN_COMMAND")

	buf.Reset()
	assert.True(t, d.Handle(context.Background(), &buf, "(p \"open"))
	assert.Contains(t, buf.String(), "MALFORMED_REQUEST")
}

func TestDispatcher_SessionFailureContinues(t *testing.T) {
	s := &fakeSession{fail: errors.New(errors.CodeNotFound, "no such file")}
	var buf bytes.Buffer

	assert.True(t, newTestDispatcher(s).Handle(context.Background(), &buf, `(p "Missing.java")`))
	assert.Equal(t, "(error \"NOT_FOUND\" \"no such file\")\n", buf.String())
	assert.Equal(t, []string{"p Missing.java"}, s.calls)
}

func TestDispatcher_RoutesEveryCommand(t *testing.T) {
	s := &fakeSession{}
	d := newTestDispatcher(s)
	lines := []string{
		`(pc "/proj")`, `(p "A.java")`, `(ap "A.java" 1 1 "ge")`, `(c "A.java")`, `(cp)`,
		`(fc "A.java")`, `(di "A.java")`, `(rj)`, `(rt clean)`, `(rt)`, `(ai "A.java" "x.Y")`,
		`(oi "A.java")`, `(ia "A.java")`, `(st "A.java")`, `(jd "A.java" 1 1 "x")`,
		`(sd "A.java" 1 1 "x")`, `(bj)`, `(cc)`, `(lv "A.java" 1)`, `(ping)`,
	}
	for _, line := range lines {
		var buf bytes.Buffer
		require.True(t, d.Handle(context.Background(), &buf, line), line)
		require.NotContains(t, buf.String(), "(error", line)
	}
	assert.Len(t, s.calls, len(lines))
	assert.Equal(t, "rj ", s.calls[7])
	assert.Equal(t, "rt clean", s.calls[8])
	assert.Equal(t, "rt ", s.calls[9], "rt without arguments runs the default build")
}
