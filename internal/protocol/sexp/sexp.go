// Package sexp decodes request lines of the editor protocol.
//
// A request is a single flat list such as
//
//	(ap "/src/Foo.java" 12 8 "get")
//
// Atoms and string literals both decode to plain strings. A bare line
// without parentheses is accepted as a whitespace separated list.
package sexp

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"codesense/internal/core/errors"
)

type lexer struct {
	src  string
	pos  int
	toks []string
}

// Parse decodes line into its ordered tokens. The first token is the
// command code.
func Parse(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, malformed(line, 0, "empty request")
	}
	l := &lexer{src: line}

	var err error
	if line[0] == '(' {
		err = l.list()
	} else {
		err = l.atoms(len(line))
	}
	if err != nil {
		return nil, err
	}
	if len(l.toks) == 0 {
		return nil, malformed(line, 0, "request has no command")
	}
	return l.toks, nil
}

func (l *lexer) list() error {
	l.pos++ // (
	end := l.closing()
	if end < 0 {
		return malformed(l.src, len(l.src), "missing closing parenthesis")
	}
	if err := l.atoms(end); err != nil {
		return err
	}
	l.pos = end + 1
	l.skipSpace(len(l.src))
	if l.pos < len(l.src) {
		return malformed(l.src, l.pos, "unexpected input after request")
	}
	return nil
}

// closing finds the ')' ending the list, skipping string literals.
func (l *lexer) closing() int {
	inString := false
	for i := l.pos; i < len(l.src); i++ {
		switch c := l.src[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case !inString && c == ')':
			return i
		}
	}
	return -1
}

func (l *lexer) atoms(end int) error {
	for {
		l.skipSpace(end)
		if l.pos >= end {
			return nil
		}
		switch l.src[l.pos] {
		case '"':
			tok, err := l.str(end)
			if err != nil {
				return err
			}
			l.toks = append(l.toks, tok)
		case '(':
			return malformed(l.src, l.pos, "nested lists are not supported")
		case ')':
			return malformed(l.src, l.pos, "unbalanced parenthesis")
		default:
			l.toks = append(l.toks, l.atom(end))
		}
	}
}

func (l *lexer) str(end int) (string, error) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < end {
		c := l.src[l.pos]
		switch c {
		case '"':
			l.pos++
			return b.String(), nil
		case '\\':
			if l.pos+1 >= end {
				return "", malformed(l.src, l.pos, "dangling escape")
			}
			l.pos++
			switch e := l.src[l.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(e)
			}
			l.pos++
		default:
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			b.WriteRune(r)
			l.pos += size
		}
	}
	return "", malformed(l.src, start, "unterminated string")
}

func (l *lexer) atom(end int) string {
	start := l.pos
	for l.pos < end {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' {
			break
		}
		l.pos += size
	}
	return l.src[start:l.pos]
}

func (l *lexer) skipSpace(end int) {
	for l.pos < end {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

func malformed(line string, offset int, msg string) error {
	err := errors.Newf(errors.CodeMalformedRequest, "%s at offset %d", msg, offset)
	return errors.AddContext(err, "request", line)
}
