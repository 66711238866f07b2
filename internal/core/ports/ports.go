package ports

import (
	"context"
	"io"
	"time"
)

// Session is the per-project analysis service every editor command is
// delegated to. One instance is shared by all connections, so
// implementations must be safe for concurrent use.
type Session interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context, grace time.Duration) error

	ChangeProject(ctx context.Context, root string) (Ack, error)
	Parse(ctx context.Context, path string) (Ack, error)
	Autocomplete(ctx context.Context, path string, line, column int, prefix string) ([]Candidate, error)
	Compile(ctx context.Context, path string) (Diagnostics, error)
	CompileProject(ctx context.Context) (Diagnostics, error)
	Format(ctx context.Context, path string) (Ack, error)
	Diagnostics(ctx context.Context, path string) (Diagnostics, error)
	RunTest(ctx context.Context, name string) (TaskResult, error)
	RunTask(ctx context.Context, args []string) (TaskResult, error)
	AddImport(ctx context.Context, path, importName string) (ImportEdit, error)
	OptimizeImports(ctx context.Context, path string) (ImportEdit, error)
	ImportAll(ctx context.Context, path string) (ImportEdit, error)
	SwitchTest(ctx context.Context, path string) (Location, error)
	JumpDeclaration(ctx context.Context, path string, line, column int, symbol string) (Location, error)
	ShowDeclaration(ctx context.Context, path string, line, column int, symbol string) (Declaration, error)
	BackJump(ctx context.Context) (Location, error)
	ClearCache(ctx context.Context) (Ack, error)
	LocalVariables(ctx context.Context, path string, line int) (LocalVariables, error)
	Ping(ctx context.Context) (Pong, error)
}

// SessionFactory creates the shared session bound to a project root.
type SessionFactory func(ctx context.Context, projectRoot string) (Session, error)

// Renderer turns command results into response lines. The connection loop
// writes the end-of-transmission line itself, renderers never do.
type Renderer interface {
	Name() string
	Render(w io.Writer, result any) error
	RenderError(w io.Writer, err error) error
}

// Ack is the result of a command whose only output is success.
type Ack struct {
	Message string `json:"message"`
}

// Pong answers a liveness check.
type Pong struct {
	Message string `json:"message"`
}

// Candidate is one completion proposal.
type Candidate struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"` // variable, field, method or class
	Type      string `json:"type"`
	Declaring string `json:"declaring"`
}

// Location points at a source position, 1-based.
type Location struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Declaration describes a symbol's declaration for display.
type Declaration struct {
	Symbol    string   `json:"symbol"`
	Kind      string   `json:"kind"`
	Type      string   `json:"type"`
	Declaring string   `json:"declaring"`
	Location  Location `json:"location"`
}

type Diagnostic struct {
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Diagnostics lists problems found in one file or in the whole project.
type Diagnostics struct {
	Files       int          `json:"files"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// TaskResult reports an external build tool run.
type TaskResult struct {
	Command  []string      `json:"command"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
}

// ImportEdit describes the import block of a file after an import command.
type ImportEdit struct {
	Path       string   `json:"path"`
	Imports    []string `json:"imports"`
	Added      []string `json:"added"`
	Unresolved []string `json:"unresolved"`
	Changed    bool     `json:"changed"`
}

type LocalVariable struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Line int    `json:"line"`
}

// LocalVariables lists the declarations visible at a line, innermost first.
type LocalVariables struct {
	Path      string          `json:"path"`
	Line      int             `json:"line"`
	Class     string          `json:"class"`
	Method    string          `json:"method"`
	Variables []LocalVariable `json:"variables"`
}
