package output

import (
	"strings"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"
	"codesense/internal/shared/util"
)

const (
	FormatSexp = "sexp"
	FormatJSON = "json"
)

var renderers = map[string]func() ports.Renderer{
	FormatSexp: func() ports.Renderer { return NewSexpRenderer() },
	FormatJSON: func() ports.Renderer { return NewJSONRenderer() },
}

// New returns the renderer registered under format.
func New(format string) (ports.Renderer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatSexp
	}
	ctor, ok := renderers[format]
	if !ok {
		return nil, errors.AddContext(
			errors.Newf(errors.CodeValidationError, "unknown output format %q (supported: %s)", format, strings.Join(Formats(), ", ")),
			errors.CtxOperation, "output.New")
	}
	return ctor(), nil
}

// Formats lists the registered renderer names.
func Formats() []string {
	return util.SortedStringKeys(renderers)
}
