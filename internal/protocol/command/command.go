// Package command maps decoded request tokens to typed editor commands and
// runs them against the shared session.
package command

import (
	"strconv"
	"strings"

	"codesense/internal/core/errors"
	"codesense/internal/shared/util"
)

// Command is one decoded request. The set of implementations is closed.
type Command interface {
	Code() string
	isCommand()
}

type (
	ChangeProject struct{ Path string }
	Parse         struct{ Path string }
	Autocomplete  struct {
		Path   string
		Line   int
		Column int
		Prefix string
	}
	Compile         struct{ Path string }
	CompileProject  struct{}
	Format          struct{ Path string }
	Diagnose        struct{ Path string }
	RunTest         struct{ Name string } // empty runs every test
	RunTask         struct{ Args []string }
	AddImport       struct{ Path, Import string }
	OptimizeImports struct{ Path string }
	ImportAll       struct{ Path string }
	SwitchTest      struct{ Path string }
	JumpDeclaration struct {
		Path   string
		Line   int
		Column int
		Symbol string
	}
	ShowDeclaration struct {
		Path   string
		Line   int
		Column int
		Symbol string
	}
	BackJump       struct{}
	ClearCache     struct{}
	LocalVariables struct {
		Path string
		Line int
	}
	Ping struct{}
	Quit struct{}
)

func (ChangeProject) Code() string { return "pc" }
func (Parse) Code() string { return "p" }
func (Autocomplete) Code() string { return "ap" }
func (Compile) Code() string { return "c" }
func (CompileProject) Code() string { return "cp" }
func (Format) Code() string { return "fc" }
func (Diagnose) Code() string { return "di" }
func (RunTest) Code() string { return "rj" }
func (RunTask) Code() string { return "rt" }
func (AddImport) Code() string { return "ai" }
func (OptimizeImports) Code() string { return "oi" }
func (ImportAll) Code() string { return "ia" }
func (SwitchTest) Code() string { return "st" }
func (JumpDeclaration) Code() string { return "jd" }
func (ShowDeclaration) Code() string { return "sd" }
func (BackJump) Code() string { return "bj" }
func (ClearCache) Code() string { return "cc" }
func (LocalVariables) Code() string { return "lv" }
func (Ping) Code() string { return "ping" }
func (Quit) Code() string { return "q" }

func (ChangeProject) isCommand() {}
func (Parse) isCommand() {}
func (Autocomplete) isCommand() {}
func (Compile) isCommand() {}
func (CompileProject) isCommand() {}
func (Format) isCommand() {}
func (Diagnose) isCommand() {}
func (RunTest) isCommand() {}
func (RunTask) isCommand() {}
func (AddImport) isCommand() {}
func (OptimizeImports) isCommand() {}
func (ImportAll) isCommand() {}
func (SwitchTest) isCommand() {}
func (JumpDeclaration) isCommand() {}
func (ShowDeclaration) isCommand() {}
func (BackJump) isCommand() {}
func (ClearCache) isCommand() {}
func (LocalVariables) isCommand() {}
func (Ping) isCommand() {}
func (Quit) isCommand() {}

// arity bounds the argument count after the code. max < 0 is unbounded.
type arity struct {
	min, max int
	usage    string
}

type builder struct {
	arity
	build func(args []string) (Command, error)
}

var builders = map[string]builder{
	"pc": {arity{1, 1, "pc <path>"}, func(a []string) (Command, error) { return ChangeProject{Path: a[0]}, nil }},
	"p":  {arity{1, 1, "p <path>"}, func(a []string) (Command, error) { return Parse{Path: a[0]}, nil }},
	"ap": {arity{4, 4, "ap <path> <line> <column> <prefix>"}, func(a []string) (Command, error) {
		line, col, err := position(a[1], a[2])
		if err != nil {
			return nil, err
		}
		return Autocomplete{Path: a[0], Line: line, Column: col, Prefix: a[3]}, nil
	}},
	"c":  {arity{1, 1, "c <path>"}, func(a []string) (Command, error) { return Compile{Path: a[0]}, nil }},
	"cp": {arity{0, 0, "cp"}, func(a []string) (Command, error) { return CompileProject{}, nil }},
	"fc": {arity{1, 1, "fc <path>"}, func(a []string) (Command, error) { return Format{Path: a[0]}, nil }},
	"di": {arity{1, 1, "di <path>"}, func(a []string) (Command, error) { return Diagnose{Path: a[0]}, nil }},
	"rj": {arity{0, 1, "rj [test]"}, func(a []string) (Command, error) {
		if len(a) == 0 {
			return RunTest{}, nil
		}
		return RunTest{Name: a[0]}, nil
	}},
	"rt": {arity{0, -1, "rt [arg]..."}, func(a []string) (Command, error) {
		return RunTask{Args: append([]string(nil), a...)}, nil
	}},
	"ai": {arity{2, 2, "ai <path> <import>"}, func(a []string) (Command, error) { return AddImport{Path: a[0], Import: a[1]}, nil }},
	"oi": {arity{1, 1, "oi <path>"}, func(a []string) (Command, error) { return OptimizeImports{Path: a[0]}, nil }},
	"ia": {arity{1, 1, "ia <path>"}, func(a []string) (Command, error) { return ImportAll{Path: a[0]}, nil }},
	"st": {arity{1, 1, "st <path>"}, func(a []string) (Command, error) { return SwitchTest{Path: a[0]}, nil }},
	"jd": {arity{4, 4, "jd <path> <line> <column> <symbol>"}, func(a []string) (Command, error) {
		line, col, err := position(a[1], a[2])
		if err != nil {
			return nil, err
		}
		return JumpDeclaration{Path: a[0], Line: line, Column: col, Symbol: a[3]}, nil
	}},
	"sd": {arity{4, 4, "sd <path> <line> <column> <symbol>"}, func(a []string) (Command, error) {
		line, col, err := position(a[1], a[2])
		if err != nil {
			return nil, err
		}
		return ShowDeclaration{Path: a[0], Line: line, Column: col, Symbol: a[3]}, nil
	}},
	"bj": {arity{0, 0, "bj"}, func(a []string) (Command, error) { return BackJump{}, nil }},
	"cc": {arity{0, 0, "cc"}, func(a []string) (Command, error) { return ClearCache{}, nil }},
	"lv": {arity{2, 2, "lv <path> <line>"}, func(a []string) (Command, error) {
		line, err := number("line", a[1], 1)
		if err != nil {
			return nil, err
		}
		return LocalVariables{Path: a[0], Line: line}, nil
	}},
	"ping": {arity{0, 0, "ping"}, func(a []string) (Command, error) { return Ping{}, nil }},
	"q":    {arity{0, 0, "q"}, func(a []string) (Command, error) { return Quit{}, nil }},
}

// FromArgs builds the command named by args[0]. Unknown codes fail with
// UNKNOWN_COMMAND, arity or type mismatches with INVALID_ARGUMENT.
func FromArgs(args []string) (Command, error) {
	if len(args) == 0 {
		return nil, errors.New(errors.CodeMalformedRequest, "request has no command")
	}
	code, rest := args[0], args[1:]
	b, ok := builders[code]
	if !ok {
		return nil, errors.AddContext(
			errors.Newf(errors.CodeUnknownCommand, "unknown command %q", code),
			errors.CtxCommand, code)
	}
	if len(rest) < b.min || (b.max >= 0 && len(rest) > b.max) {
		return nil, errors.AddContext(
			errors.Newf(errors.CodeInvalidArgument, "%s expects %s, got %d argument(s); usage: %s",
				code, describe(b.arity), len(rest), b.usage),
			errors.CtxCommand, code)
	}
	cmd, err := b.build(rest)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxCommand, code)
	}
	return cmd, nil
}

// Codes lists every recognized command code.
func Codes() []string {
	return util.SortedStringKeys(builders)
}

func describe(a arity) string {
	switch {
	case a.max < 0:
		return "at least " + strconv.Itoa(a.min) + " argument(s)"
	case a.min == a.max:
		return strconv.Itoa(a.min) + " argument(s)"
	default:
		return strconv.Itoa(a.min) + " to " + strconv.Itoa(a.max) + " arguments"
	}
}

func position(lineArg, colArg string) (int, int, error) {
	line, err := number("line", lineArg, 1)
	if err != nil {
		return 0, 0, err
	}
	col, err := number("column", colArg, 0)
	if err != nil {
		return 0, 0, err
	}
	return line, col, nil
}

func number(name, arg string, min int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInvalidArgument, name+" must be an integer, got "+strconv.Quote(arg))
	}
	if n < min {
		return 0, errors.Newf(errors.CodeInvalidArgument, "%s must be >= %d, got %d", name, min, n)
	}
	return n, nil
}
