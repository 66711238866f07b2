package command

import (
	"context"
	"io"
	"log/slog"
	"time"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"
	"codesense/internal/protocol/sexp"
	"codesense/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Dispatcher runs commands against the shared session and renders their
// results. It holds no per-connection state.
type Dispatcher struct {
	session  ports.Session
	renderer ports.Renderer
	logger   *slog.Logger
}

func NewDispatcher(session ports.Session, renderer ports.Renderer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{session: session, renderer: renderer, logger: logger}
}

// Handle decodes one request line, runs it and writes the rendered response
// to w. Every failure is rendered as an error response. It reports false
// only when the client asked to end the connection.
func (d *Dispatcher) Handle(ctx context.Context, w io.Writer, line string) bool {
	start := time.Now()
	label := "invalid"

	args, err := sexp.Parse(line)
	var cmd Command
	if err == nil {
		cmd, err = FromArgs(args)
	}
	if err == nil {
		label = cmd.Code()
	} else if errors.IsCode(err, errors.CodeUnknownCommand) {
		label = "unknown"
	}

	logger := d.logger.With("command", label)
	logger.Info("receive command", "args", args)

	cont := true
	if err == nil {
		cont, err = d.Dispatch(ctx, w, cmd)
	}

	status := "ok"
	if err != nil {
		status = string(errors.CodeOf(err))
		logger.Warn("command failed", "code", status, "error", err)
		if rerr := d.renderer.RenderError(w, err); rerr != nil {
			logger.Error("render error response", "error", rerr)
		}
	}

	elapsed := time.Since(start)
	observability.RequestsTotal.WithLabelValues(label, status).Inc()
	observability.RequestDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	logger.Info("command done", "status", status, "elapsed", elapsed)
	return cont
}

// Dispatch runs cmd and renders a successful result to w. A non-nil error
// has not been rendered.
func (d *Dispatcher) Dispatch(ctx context.Context, w io.Writer, cmd Command) (bool, error) {
	ctx, span := observability.Tracer.Start(ctx, "command."+cmd.Code())
	defer span.End()
	span.SetAttributes(attribute.String("command", cmd.Code()))

	if _, ok := cmd.(Quit); ok {
		return false, nil
	}

	result, err := d.run(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.MessageOf(err))
		return true, err
	}
	if err := d.renderer.Render(w, result); err != nil {
		span.RecordError(err)
		return true, errors.Wrap(err, errors.CodeInternal, "render response")
	}
	return true, nil
}

func (d *Dispatcher) run(ctx context.Context, cmd Command) (any, error) {
	s := d.session
	switch c := cmd.(type) {
	case ChangeProject:
		return s.ChangeProject(ctx, c.Path)
	case Parse:
		return s.Parse(ctx, c.Path)
	case Autocomplete:
		return s.Autocomplete(ctx, c.Path, c.Line, c.Column, c.Prefix)
	case Compile:
		return s.Compile(ctx, c.Path)
	case CompileProject:
		return s.CompileProject(ctx)
	case Format:
		return s.Format(ctx, c.Path)
	case Diagnose:
		return s.Diagnostics(ctx, c.Path)
	case RunTest:
		return s.RunTest(ctx, c.Name)
	case RunTask:
		return s.RunTask(ctx, c.Args)
	case AddImport:
		return s.AddImport(ctx, c.Path, c.Import)
	case OptimizeImports:
		return s.OptimizeImports(ctx, c.Path)
	case ImportAll:
		return s.ImportAll(ctx, c.Path)
	case SwitchTest:
		return s.SwitchTest(ctx, c.Path)
	case JumpDeclaration:
		return s.JumpDeclaration(ctx, c.Path, c.Line, c.Column, c.Symbol)
	case ShowDeclaration:
		return s.ShowDeclaration(ctx, c.Path, c.Line, c.Column, c.Symbol)
	case BackJump:
		return s.BackJump(ctx)
	case ClearCache:
		return s.ClearCache(ctx)
	case LocalVariables:
		return s.LocalVariables(ctx, c.Path, c.Line)
	case Ping:
		return s.Ping(ctx)
	default:
		return nil, errors.Newf(errors.CodeUnknownCommand, "unhandled command %q", cmd.Code())
	}
}
