package session

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"
)

// runner executes name with args in dir and returns the combined output and
// exit code. A non-zero exit is not an error.
type runner func(ctx context.Context, dir, name string, args []string) (string, int, error)

func execRunner(ctx context.Context, dir, name string, args []string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if err == nil {
		return out.String(), 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return out.String(), exitErr.ExitCode(), nil
	}
	return out.String(), -1, err
}

// RunTest runs one test class, or the whole suite when name is empty.
func (l *Local) RunTest(ctx context.Context, name string) (ports.TaskResult, error) {
	project := l.Project()
	return l.runTask(ctx, project, project.TestArgs(strings.TrimSpace(name)))
}

// RunTask runs the build tool with arbitrary arguments, e.g. "clean install".
func (l *Local) RunTask(ctx context.Context, args []string) (ports.TaskResult, error) {
	return l.runTask(ctx, l.Project(), args)
}

func (l *Local) runTask(ctx context.Context, project Project, args []string) (ports.TaskResult, error) {
	name, err := project.Command()
	if err != nil {
		return ports.TaskResult{}, err
	}
	l.tasks.Add(1)
	defer l.tasks.Done()

	ctx, cancel := context.WithTimeout(ctx, l.opts.TaskTimeout)
	defer cancel()
	stop := context.AfterFunc(l.tasksCtx, cancel)
	defer stop()

	command := append([]string{name}, args...)
	l.logger.Info("running build task", "command", command, "dir", project.Root)
	start := time.Now()
	output, code, err := l.run(ctx, project.Root, name, args)
	result := ports.TaskResult{Command: command, ExitCode: code, Output: output, Duration: time.Since(start)}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.Newf(errors.CodeSessionFailure, "build task timed out after %s", l.opts.TaskTimeout)
		} else {
			err = errors.Wrap(err, errors.CodeSessionFailure, "run build task")
		}
		return result, errors.AddContext(err, errors.CtxCommand, strings.Join(command, " "))
	}
	l.logger.Info("build task finished", "command", command, "exit", code, "elapsed", result.Duration)
	return result, nil
}
