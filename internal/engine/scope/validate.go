package scope

import (
	"context"
	"log/slog"

	"codesense/internal/shared/observability"
)

// Warning describes one symbol left without a resolved type.
type Warning struct {
	Scope  ID
	Symbol Symbol
	Reason string
}

// Validate reports every unresolved symbol in s, skipping null literals.
func (s *Scope) Validate() []Warning {
	var out []Warning
	for _, v := range s.variables {
		if v.Name != NullLiteral && v.FQCN == "" {
			out = append(out, Warning{Scope: s.id, Symbol: v, Reason: "missing fqcn"})
		}
	}
	for _, fa := range s.fieldAccesses {
		if fa.ReturnType == "" {
			out = append(out, Warning{Scope: s.id, Symbol: fa, Reason: "missing returnType"})
		}
	}
	for _, mc := range s.methodCalls {
		if mc.ReturnType == "" {
			out = append(out, Warning{Scope: s.id, Symbol: mc, Reason: "missing returnType"})
		}
	}
	return out
}

// Validate runs Scope.Validate over every scope in pre-order.
func (t *Tree) Validate() []Warning {
	var out []Warning
	t.Walk(func(s *Scope) bool {
		out = append(out, s.Validate()...)
		return true
	})
	return out
}

// Dump logs a warning per unresolved symbol and a trace record per resolved
// one. It returns the number of warnings emitted.
func (s *Scope) Dump(logger *slog.Logger) int {
	if logger == nil {
		logger = s.tree.logger
	}
	warnings := s.Validate()
	for _, w := range warnings {
		logger.Warn(w.Reason, "symbol", w.Symbol, "scope", s.ScopeType(), "range", s.Range.String())
	}
	if logger.Enabled(context.Background(), observability.LevelTrace) {
		for _, sym := range s.symbols() {
			if sym.ResolvedType() != "" {
				logger.Log(context.Background(), observability.LevelTrace, "#", "symbol", sym)
			}
		}
	}
	return len(warnings)
}

func (t *Tree) Dump(logger *slog.Logger) int {
	n := 0
	t.Walk(func(s *Scope) bool {
		n += s.Dump(logger)
		return true
	})
	return n
}

func (s *Scope) symbols() []Symbol {
	out := make([]Symbol, 0, len(s.variables)+len(s.fieldAccesses)+len(s.methodCalls))
	for _, v := range s.variables {
		out = append(out, v)
	}
	for _, fa := range s.fieldAccesses {
		out = append(out, fa)
	}
	for _, mc := range s.methodCalls {
		out = append(out, mc)
	}
	return out
}
