package scope

// GetScope returns the first scope in scopes containing line. Order is the
// caller's precedence; range tightness is not considered.
func GetScope(line int, scopes []*Scope) *Scope {
	for _, s := range scopes {
		if s.Contains(line) {
			return s
		}
	}
	return nil
}

// GetInnerScope returns the innermost scope containing line. For each
// matching scope that owns children the search descends first and falls back
// to the scope itself; a scope without children matches as-is. The first
// matching sibling wins.
func GetInnerScope(line int, scopes []*Scope) *Scope {
	for _, s := range scopes {
		if !s.Contains(line) {
			continue
		}
		if s.HasChildren() {
			if inner := GetInnerScope(line, s.Children()); inner != nil {
				return inner
			}
		}
		return s
	}
	return nil
}

// InnerScope is GetInnerScope over the tree's top-level scopes.
func (t *Tree) InnerScope(line int) *Scope {
	return GetInnerScope(line, t.Roots())
}

// VisibleDeclarators lists declarations visible at line, innermost first.
// Inside method and block scopes only declarations starting on or before
// line count; class members are visible everywhere in the class. A name
// shadowed by an inner declaration is reported once.
func (t *Tree) VisibleDeclarators(line int) []*Variable {
	inner := t.InnerScope(line)
	if inner == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []*Variable
	for _, s := range t.Ancestors(inner) {
		for _, v := range s.variables {
			if !v.Decl || seen[v.Name] {
				continue
			}
			if s.kind != KindClass && v.Range.Begin.Line > line {
				continue
			}
			seen[v.Name] = true
			out = append(out, v)
		}
	}
	return out
}

// FindDeclarator resolves name at line by walking outward from the innermost
// scope.
func (t *Tree) FindDeclarator(line int, name string) (*Variable, *Scope) {
	inner := t.InnerScope(line)
	if inner == nil {
		return nil, nil
	}
	for _, s := range t.Ancestors(inner) {
		if v, ok := s.DeclaratorMap()[name]; ok {
			if s.kind != KindClass && v.Range.Begin.Line > line {
				continue
			}
			return v, s
		}
	}
	return nil, nil
}

// EnclosingClass returns the nearest class scope around s, or nil.
func (t *Tree) EnclosingClass(s *Scope) *Scope {
	for _, a := range t.Ancestors(s) {
		if a.kind == KindClass {
			return a
		}
	}
	return nil
}

// EnclosingMethod returns the nearest method scope around s, or nil.
func (t *Tree) EnclosingMethod(s *Scope) *Scope {
	for _, a := range t.Ancestors(s) {
		if a.kind == KindMethod {
			return a
		}
		if a.kind == KindClass {
			return nil
		}
	}
	return nil
}

// Methods lists method scopes directly owned by class.
func (t *Tree) Methods(class *Scope) []*Scope {
	var out []*Scope
	for _, c := range class.Children() {
		if c.kind == KindMethod {
			out = append(out, c)
		}
	}
	return out
}
