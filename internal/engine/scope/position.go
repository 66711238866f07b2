package scope

import (
	"fmt"

	"codesense/internal/core/errors"
)

// Position is a location in a source file. Line and Column are 1-based,
// Offset is the 0-based byte offset.
type Position struct {
	Offset int
	Line   int
	Column int
}

func NewPosition(offset, line, column int) Position {
	return Position{Offset: offset, Line: line, Column: column}
}

func (p Position) IsValid() bool {
	return p.Line > 0
}

// Compare orders positions by line, then column.
func (p Position) Compare(o Position) int {
	switch {
	case p.Line < o.Line:
		return -1
	case p.Line > o.Line:
		return 1
	case p.Column < o.Column:
		return -1
	case p.Column > o.Column:
		return 1
	}
	return 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is an ordered begin/end pair. Begin never sorts after End.
type Range struct {
	Begin Position
	End   Position
}

func NewRange(begin, end Position) (Range, error) {
	if begin.Compare(end) > 0 {
		return Range{}, errors.Newf(errors.CodeValidationError, "range begin %s after end %s", begin, end)
	}
	return Range{Begin: begin, End: end}, nil
}

// LineRange builds a range spanning whole lines, mostly for tests and
// synthetic scopes.
func LineRange(beginLine, endLine int) Range {
	return Range{
		Begin: Position{Line: beginLine, Column: 1},
		End:   Position{Line: endLine, Column: 1},
	}
}

func (r Range) ContainsLine(line int) bool {
	return r.Begin.Line <= line && line <= r.End.Line
}

// ContainsColumn reports whether column lies inside the range on its first line.
func (r Range) ContainsColumn(column int) bool {
	return r.Begin.Column <= column && column <= r.End.Column
}

func (r Range) String() string {
	return fmt.Sprintf("[%s-%s]", r.Begin, r.End)
}
