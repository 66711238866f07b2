package parser

import (
	"codesense/internal/engine/scope"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for the Java builder.
// Returns true if the handler has processed children and the walker should stop.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries the state of one analysis pass.
type ExtractionContext struct {
	Source   []byte
	File     *scope.File
	Tree     *scope.Tree
	Resolver *TypeResolver

	stack []scope.ID
}

// Current returns the scope new symbols are recorded in, or nil at file level.
func (c *ExtractionContext) Current() *scope.Scope {
	if len(c.stack) == 0 {
		return nil
	}
	return c.Tree.Scope(c.stack[len(c.stack)-1])
}

func (c *ExtractionContext) CurrentID() scope.ID {
	if len(c.stack) == 0 {
		return scope.NoScope
	}
	return c.stack[len(c.stack)-1]
}

// Enter makes s current until the walker leaves the node that entered it.
func (c *ExtractionContext) Enter(s *scope.Scope) {
	c.stack = append(c.stack, s.ID())
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, node *sitter.Node) {
	if node == nil {
		return
	}

	if node.IsError() || node.IsMissing() {
		ctx.recordProblem(node)
	}

	depth := len(ctx.stack)
	stop := false
	if handler, ok := e.handlers[node.Kind()]; ok {
		stop = handler(ctx, node)
	}

	if !stop {
		for i := uint(0); i < node.ChildCount(); i++ {
			e.Walk(ctx, node.Child(i))
		}
	}
	ctx.stack = ctx.stack[:depth]
}

func (c *ExtractionContext) recordProblem(node *sitter.Node) {
	msg := "syntax error"
	if node.IsMissing() {
		msg = "missing " + node.Kind()
	}
	c.File.Problems = append(c.File.Problems, scope.Problem{Range: c.Range(node), Message: msg})
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

func (c *ExtractionContext) Position(node *sitter.Node) scope.Position {
	p := node.StartPosition()
	return scope.Position{
		Offset: int(node.StartByte()),
		Line:   int(p.Row) + 1,
		Column: int(p.Column) + 1,
	}
}

// Range spans node with an inclusive end column.
func (c *ExtractionContext) Range(node *sitter.Node) scope.Range {
	begin := c.Position(node)
	p := node.EndPosition()
	end := scope.Position{
		Offset: int(node.EndByte()),
		Line:   int(p.Row) + 1,
		Column: int(p.Column),
	}
	if end.Compare(begin) < 0 {
		end = begin
	}
	return scope.Range{Begin: begin, End: end}
}

func (c *ExtractionContext) ChildText(node *sitter.Node, kind string) string {
	if child := childOfKind(node, kind); child != nil {
		return c.Text(child)
	}
	return ""
}

func childOfKind(node *sitter.Node, kinds ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		for _, k := range kinds {
			if child.Kind() == k {
				return child
			}
		}
	}
	return nil
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}
