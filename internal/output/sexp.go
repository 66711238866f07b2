package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"codesense/internal/core/errors"
	"codesense/internal/core/ports"
)

// SexpRenderer writes results as Emacs-readable s-expressions, one per
// response.
type SexpRenderer struct{}

func NewSexpRenderer() *SexpRenderer {
	return &SexpRenderer{}
}

func (r *SexpRenderer) Name() string {
	return FormatSexp
}

func (r *SexpRenderer) Render(w io.Writer, result any) error {
	var buf strings.Builder

	switch v := result.(type) {
	case nil:
		buf.WriteString("nil")
	case ports.Ack:
		if v.Message == "" {
			buf.WriteString("t")
		} else {
			buf.WriteString(quote(v.Message))
		}
	case ports.Pong:
		buf.WriteString(quote(v.Message))
	case []ports.Candidate:
		writeList(&buf, len(v), func(i int) {
			c := v[i]
			buf.WriteString(plist("name", quote(c.Name), "kind", quote(c.Kind), "type", quote(c.Type), "declaring", quote(c.Declaring)))
		})
	case ports.Location:
		buf.WriteString(location(v))
	case ports.Declaration:
		buf.WriteString(plist(
			"symbol", quote(v.Symbol),
			"kind", quote(v.Kind),
			"type", quote(v.Type),
			"declaring", quote(v.Declaring),
			"location", location(v.Location),
		))
	case ports.Diagnostics:
		var diags strings.Builder
		writeList(&diags, len(v.Diagnostics), func(i int) {
			d := v.Diagnostics[i]
			fmt.Fprintf(&diags, "(%s %d %d %s %s)", quote(d.Path), d.Line, d.Column, quote(d.Severity), quote(d.Message))
		})
		buf.WriteString(plist("files", strconv.Itoa(v.Files), "diagnostics", diags.String()))
	case ports.TaskResult:
		buf.WriteString(plist(
			"command", stringList(v.Command),
			"exit", strconv.Itoa(v.ExitCode),
			"elapsed", strconv.FormatFloat(v.Duration.Seconds(), 'f', 3, 64),
			"output", quote(v.Output),
		))
	case ports.ImportEdit:
		buf.WriteString(plist(
			"path", quote(v.Path),
			"changed", boolean(v.Changed),
			"imports", stringList(v.Imports),
			"added", stringList(v.Added),
			"unresolved", stringList(v.Unresolved),
		))
	case ports.LocalVariables:
		var vars strings.Builder
		writeList(&vars, len(v.Variables), func(i int) {
			lv := v.Variables[i]
			fmt.Fprintf(&vars, "(%s %s %d)", quote(lv.Name), quote(lv.Type), lv.Line)
		})
		buf.WriteString(plist(
			"class", quote(v.Class),
			"method", quote(v.Method),
			"line", strconv.Itoa(v.Line),
			"variables", vars.String(),
		))
	default:
		return errors.Newf(errors.CodeInternal, "sexp renderer: unsupported result type %T", result)
	}

	buf.WriteByte('\n')
	_, err := io.WriteString(w, buf.String())
	return err
}

func (r *SexpRenderer) RenderError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "(error %s %s)\n", quote(string(errors.CodeOf(err))), quote(errors.MessageOf(err)))
	return werr
}

func writeList(buf *strings.Builder, n int, item func(i int)) {
	if n == 0 {
		buf.WriteString("nil")
		return
	}
	buf.WriteByte('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(' ')
		}
		item(i)
	}
	buf.WriteByte(')')
}

// plist renders alternating key/value pairs as a property list. Values must
// already be rendered.
func plist(kv ...string) string {
	var buf strings.Builder
	buf.WriteByte('(')
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteByte(':')
		buf.WriteString(kv[i])
		buf.WriteByte(' ')
		buf.WriteString(kv[i+1])
	}
	buf.WriteByte(')')
	return buf.String()
}

func location(l ports.Location) string {
	return fmt.Sprintf("(%s %d %d)", quote(l.Path), l.Line, l.Column)
}

func stringList(items []string) string {
	var buf strings.Builder
	writeList(&buf, len(items), func(i int) {
		buf.WriteString(quote(items[i]))
	})
	return buf.String()
}

func boolean(b bool) string {
	if b {
		return "t"
	}
	return "nil"
}

// quote produces an Emacs Lisp string literal.
func quote(s string) string {
	var buf strings.Builder
	buf.Grow(len(s) + 2)
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
	return buf.String()
}
