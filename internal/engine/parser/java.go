package parser

import (
	"sort"
	"strings"

	"codesense/internal/engine/scope"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var classKinds = map[string]bool{
	"class_declaration":           true,
	"interface_declaration":       true,
	"enum_declaration":            true,
	"record_declaration":          true,
	"annotation_type_declaration": true,
}

// Nodes whose direct block child belongs to the scope the node opened.
var bodyOwners = map[string]bool{
	"method_declaration":              true,
	"compact_constructor_declaration": true,
	"lambda_expression":               true,
	"catch_clause":                    true,
	"for_statement":                   true,
	"enhanced_for_statement":          true,
	"try_with_resources_statement":    true,
}

type pendingAccess struct {
	field  *scope.FieldAccess
	call   *scope.MethodCall
	access *scope.AccessSymbol
}

// javaBuilder populates one fresh scope tree from a Java syntax tree.
type javaBuilder struct {
	classFQ map[scope.ID]string
	classes map[string]*scope.Scope
	methods map[string]map[string]string
	enums   map[string]bool
	pending []pendingAccess

	// unimported collects referenced simple type names the file neither
	// imports nor declares.
	unimported map[string]bool
}

func newJavaBuilder() *javaBuilder {
	return &javaBuilder{
		classFQ: make(map[scope.ID]string),
		classes: make(map[string]*scope.Scope),
		methods: make(map[string]map[string]string),
		enums:   make(map[string]bool),

		unimported: make(map[string]bool),
	}
}

func (b *javaBuilder) Build(ctx *ExtractionContext, root *sitter.Node) {
	if pkg := childOfKind(root, "package_declaration"); pkg != nil {
		ctx.Resolver.SetPackage(ctx.ChildText(pkg, "scoped_identifier") + ctx.ChildText(pkg, "identifier"))
		ctx.File.Package = ctx.Resolver.Package()
	}
	b.declareTypes(ctx, root, "")

	engine := NewExtractorEngine(map[string]NodeHandler{
		"package_declaration":             b.skip,
		"import_declaration":              b.extractImport,
		"class_declaration":               b.extractClass,
		"interface_declaration":           b.extractClass,
		"enum_declaration":                b.extractClass,
		"record_declaration":              b.extractClass,
		"annotation_type_declaration":     b.extractClass,
		"enum_constant":                   b.extractEnumConstant,
		"method_declaration":              b.extractMethod,
		"constructor_declaration":         b.extractConstructor,
		"compact_constructor_declaration": b.extractConstructor,
		"block":                           b.extractBlock,
		"switch_block":                    b.openBlock,
		"for_statement":                   b.openBlock,
		"catch_clause":                    b.openBlock,
		"try_with_resources_statement":    b.openBlock,
		"enhanced_for_statement":          b.extractEnhancedFor,
		"lambda_expression":               b.extractLambda,
		"field_declaration":               b.extractDeclarators,
		"local_variable_declaration":      b.extractDeclarators,
		"formal_parameter":                b.extractParameter,
		"resource":                        b.extractParameter,
		"catch_formal_parameter":          b.extractCatchParameter,
		"spread_parameter":                b.extractSpreadParameter,
		"method_invocation":               b.extractMethodCall,
		"field_access":                    b.extractFieldAccess,
		"identifier":                      b.extractUse,
		"null_literal":                    b.extractNull,
		"type_identifier":                 b.noteTypeRef,
	})
	engine.Walk(ctx, root)
	b.resolvePending()

	ctx.File.UnimportedTypes = make([]string, 0, len(b.unimported))
	for name := range b.unimported {
		ctx.File.UnimportedTypes = append(ctx.File.UnimportedTypes, name)
	}
	sort.Strings(ctx.File.UnimportedTypes)
}

// noteTypeRef records a type reference that only resolves through the
// package fallback or a wildcard import.
func (b *javaBuilder) noteTypeRef(ctx *ExtractionContext, node *sitter.Node) bool {
	if parent := node.Parent(); parent != nil && parent.Kind() == "scoped_type_identifier" {
		return false
	}
	name := ctx.Text(node)
	if name != "" && name != "var" && !ctx.Resolver.IsKnownType(name) {
		b.unimported[name] = true
	}
	return false
}

// declareTypes registers every type declared in the file before the main
// walk, so members can reference types declared further down.
func (b *javaBuilder) declareTypes(ctx *ExtractionContext, node *sitter.Node, outer string) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		next := outer
		if classKinds[child.Kind()] {
			name := ctx.Text(child.ChildByFieldName("name"))
			if name != "" {
				next = b.nestedName(ctx, outer, name)
				ctx.Resolver.Declare(name, next)
				if child.Kind() == "enum_declaration" {
					b.enums[next] = true
				}
			}
		}
		if child.Kind() == "type_parameter" {
			if id := childOfKind(child, "type_identifier", "identifier"); id != nil {
				ctx.Resolver.DeclareTypeVar(ctx.Text(id))
			}
		}
		b.declareTypes(ctx, child, next)
	}
}

func (b *javaBuilder) nestedName(ctx *ExtractionContext, outer, name string) string {
	if outer == "" {
		return ctx.Resolver.Qualify(name)
	}
	return outer + "." + name
}

func (b *javaBuilder) skip(ctx *ExtractionContext, node *sitter.Node) bool {
	return true
}

func (b *javaBuilder) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	imp := scope.Import{Range: ctx.Range(node)}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "static":
			imp.Static = true
		case "scoped_identifier", "identifier":
			imp.Name = ctx.Text(child)
		case "asterisk":
			imp.Wildcard = true
		}
	}
	if imp.Name != "" {
		ctx.File.Imports = append(ctx.File.Imports, imp)
		ctx.Resolver.AddImport(imp)
	}
	return true
}

func (b *javaBuilder) extractClass(ctx *ExtractionContext, node *sitter.Node) bool {
	nameNode := node.ChildByFieldName("name")
	name := ctx.Text(nameNode)
	outer := ""
	if cur := ctx.Current(); cur != nil {
		if class := ctx.Tree.EnclosingClass(cur); class != nil {
			outer = b.classFQ[class.ID()]
		}
	}
	fq := b.nestedName(ctx, outer, name)

	s := ctx.Tree.AddClass(ctx.CurrentID(), name, int(node.StartByte()), ctx.Range(node))
	b.classFQ[s.ID()] = fq
	if _, ok := b.classes[fq]; !ok {
		b.classes[fq] = s
	}
	ctx.Enter(s)
	return false
}

func (b *javaBuilder) currentClassFQ(ctx *ExtractionContext) string {
	cur := ctx.Current()
	if cur == nil {
		return ""
	}
	class := ctx.Tree.EnclosingClass(cur)
	if class == nil {
		return ""
	}
	return b.classFQ[class.ID()]
}

func (b *javaBuilder) extractEnumConstant(ctx *ExtractionContext, node *sitter.Node) bool {
	nameNode := node.ChildByFieldName("name")
	if cur := ctx.Current(); cur != nil && nameNode != nil {
		v := scope.NewVariable(ctx.Text(nameNode), int(nameNode.StartByte()), ctx.Range(nameNode), true)
		v.FQCN = b.currentClassFQ(ctx)
		cur.AddVariable(v)
	}
	return false
}

func (b *javaBuilder) extractMethod(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Text(node.ChildByFieldName("name"))
	class := b.currentClassFQ(ctx)
	returnType := b.resolveTypeNode(ctx, node.ChildByFieldName("type"))
	b.recordMethod(class, name, returnType)

	s := ctx.Tree.AddMethod(ctx.CurrentID(), name, int(node.StartByte()), ctx.Range(node), false)
	s.ReturnType = returnType
	ctx.Enter(s)
	return false
}

func (b *javaBuilder) extractConstructor(ctx *ExtractionContext, node *sitter.Node) bool {
	name := ctx.Text(node.ChildByFieldName("name"))
	class := b.currentClassFQ(ctx)
	b.recordMethod(class, name, class)

	s := ctx.Tree.AddMethod(ctx.CurrentID(), name, int(node.StartByte()), ctx.Range(node), true)
	s.ReturnType = class
	ctx.Enter(s)
	return false
}

func (b *javaBuilder) recordMethod(class, name, returnType string) {
	if class == "" || name == "" {
		return
	}
	m, ok := b.methods[class]
	if !ok {
		m = make(map[string]string)
		b.methods[class] = m
	}
	if _, exists := m[name]; !exists {
		m[name] = returnType
	}
}

func (b *javaBuilder) extractBlock(ctx *ExtractionContext, node *sitter.Node) bool {
	if parent := node.Parent(); parent != nil && bodyOwners[parent.Kind()] {
		return false
	}
	return b.openBlock(ctx, node)
}

func (b *javaBuilder) openBlock(ctx *ExtractionContext, node *sitter.Node) bool {
	s := ctx.Tree.AddBlock(ctx.CurrentID(), int(node.StartByte()), ctx.Range(node))
	ctx.Enter(s)
	return false
}

func (b *javaBuilder) extractEnhancedFor(ctx *ExtractionContext, node *sitter.Node) bool {
	b.openBlock(ctx, node)
	b.declare(ctx, node.ChildByFieldName("name"), b.resolveTypeNode(ctx, node.ChildByFieldName("type")))
	return false
}

func (b *javaBuilder) extractLambda(ctx *ExtractionContext, node *sitter.Node) bool {
	b.openBlock(ctx, node)
	params := node.ChildByFieldName("parameters")
	if params == nil {
		return false
	}
	switch params.Kind() {
	case "identifier":
		b.declare(ctx, params, "")
	case "inferred_parameters":
		for i := uint(0); i < params.ChildCount(); i++ {
			if child := params.Child(i); child.Kind() == "identifier" {
				b.declare(ctx, child, "")
			}
		}
	}
	return false
}

func (b *javaBuilder) extractDeclarators(ctx *ExtractionContext, node *sitter.Node) bool {
	typeNode := node.ChildByFieldName("type")
	declared := b.resolveTypeNode(ctx, typeNode)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "variable_declarator" {
			continue
		}
		fqcn := declared
		if ctx.Text(typeNode) == "var" {
			fqcn = b.inferType(ctx, child.ChildByFieldName("value"))
		}
		if dims := child.ChildByFieldName("dimensions"); dims != nil && fqcn != "" {
			fqcn += ctx.Text(dims)
		}
		b.declare(ctx, child.ChildByFieldName("name"), fqcn)
	}
	return false
}

func (b *javaBuilder) extractParameter(ctx *ExtractionContext, node *sitter.Node) bool {
	b.declare(ctx, node.ChildByFieldName("name"), b.resolveTypeNode(ctx, node.ChildByFieldName("type")))
	return false
}

func (b *javaBuilder) extractCatchParameter(ctx *ExtractionContext, node *sitter.Node) bool {
	fqcn := ""
	if ct := childOfKind(node, "catch_type"); ct != nil {
		if first := ct.NamedChild(0); first != nil {
			fqcn = b.resolveTypeNode(ctx, first)
		}
	}
	b.declare(ctx, node.ChildByFieldName("name"), fqcn)
	return false
}

func (b *javaBuilder) extractSpreadParameter(ctx *ExtractionContext, node *sitter.Node) bool {
	var typeNode *sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "..." {
			break
		}
		if child.IsNamed() && child.Kind() != "modifiers" {
			typeNode = child
		}
	}
	fqcn := b.resolveTypeNode(ctx, typeNode)
	if fqcn != "" {
		fqcn += "[]"
	}
	if decl := childOfKind(node, "variable_declarator"); decl != nil {
		b.declare(ctx, decl.ChildByFieldName("name"), fqcn)
	}
	return false
}

func (b *javaBuilder) declare(ctx *ExtractionContext, nameNode *sitter.Node, fqcn string) {
	cur := ctx.Current()
	if cur == nil || nameNode == nil {
		return
	}
	v := scope.NewVariable(ctx.Text(nameNode), int(nameNode.StartByte()), ctx.Range(nameNode), true)
	v.FQCN = fqcn
	cur.AddVariable(v)
}

func (b *javaBuilder) extractMethodCall(ctx *ExtractionContext, node *sitter.Node) bool {
	cur := ctx.Current()
	nameNode := node.ChildByFieldName("name")
	if cur == nil || nameNode == nil {
		return false
	}
	mc := scope.NewMethodCall(ctx.Text(nameNode), int(nameNode.StartByte()), ctx.Range(nameNode))
	mc.Declaring = b.receiverType(ctx, node.ChildByFieldName("object"))
	if args := node.ChildByFieldName("arguments"); args != nil {
		for i := uint(0); i < args.NamedChildCount(); i++ {
			mc.Arguments = append(mc.Arguments, ctx.Text(args.NamedChild(i)))
		}
	}
	cur.AddMethodCall(mc)
	b.pending = append(b.pending, pendingAccess{call: mc, access: &mc.AccessSymbol})
	return false
}

func (b *javaBuilder) extractFieldAccess(ctx *ExtractionContext, node *sitter.Node) bool {
	cur := ctx.Current()
	fieldNode := node.ChildByFieldName("field")
	if cur == nil || fieldNode == nil {
		return false
	}
	fa := scope.NewFieldAccess(ctx.Text(fieldNode), int(fieldNode.StartByte()), ctx.Range(fieldNode))
	fa.Declaring = b.receiverType(ctx, node.ChildByFieldName("object"))
	cur.AddFieldAccess(fa)
	b.pending = append(b.pending, pendingAccess{field: fa, access: &fa.AccessSymbol})
	return false
}

// receiverType resolves the static type of a member access receiver. A
// missing receiver or `this` means the enclosing class.
func (b *javaBuilder) receiverType(ctx *ExtractionContext, object *sitter.Node) string {
	if object == nil || object.Kind() == "this" {
		return b.currentClassFQ(ctx)
	}
	if object.Kind() != "identifier" {
		return ""
	}
	name := ctx.Text(object)
	if v := b.lookup(ctx, name); v != nil {
		return erasure(v.FQCN)
	}
	if ctx.Resolver.IsKnownType(name) {
		return ctx.Resolver.Resolve(name)
	}
	return ""
}

func (b *javaBuilder) extractUse(ctx *ExtractionContext, node *sitter.Node) bool {
	cur := ctx.Current()
	parent := node.Parent()
	if cur == nil || parent == nil || isDeclarationSite(node, parent) {
		return true
	}
	name := ctx.Text(node)
	decl := b.lookup(ctx, name)
	if decl == nil {
		return true
	}
	v := scope.NewVariable(name, int(node.StartByte()), ctx.Range(node), false)
	v.FQCN = decl.FQCN
	cur.AddVariable(v)
	return true
}

func isDeclarationSite(node, parent *sitter.Node) bool {
	switch parent.Kind() {
	case "inferred_parameters", "scoped_identifier", "labeled_statement",
		"break_statement", "continue_statement", "method_reference":
		return true
	case "lambda_expression":
		return sameNode(parent.ChildByFieldName("parameters"), node)
	case "field_access":
		return sameNode(parent.ChildByFieldName("field"), node)
	}
	return sameNode(parent.ChildByFieldName("name"), node)
}

func (b *javaBuilder) extractNull(ctx *ExtractionContext, node *sitter.Node) bool {
	if cur := ctx.Current(); cur != nil {
		cur.AddVariable(scope.NewVariable(scope.NullLiteral, int(node.StartByte()), ctx.Range(node), false))
	}
	return true
}

// lookup finds the declaration of name visible from the current scope.
func (b *javaBuilder) lookup(ctx *ExtractionContext, name string) *scope.Variable {
	for i := len(ctx.stack) - 1; i >= 0; i-- {
		if v, ok := ctx.Tree.Scope(ctx.stack[i]).DeclaratorMap()[name]; ok {
			return v
		}
	}
	return nil
}

func (b *javaBuilder) resolveTypeNode(ctx *ExtractionContext, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		return ctx.Text(node)
	case "type_identifier", "scoped_type_identifier":
		return ctx.Resolver.Resolve(ctx.Text(node))
	case "generic_type":
		base := b.resolveTypeNode(ctx, node.NamedChild(0))
		args := childOfKind(node, "type_arguments")
		if base == "" || args == nil {
			return base
		}
		parts := make([]string, 0, args.NamedChildCount())
		for i := uint(0); i < args.NamedChildCount(); i++ {
			arg := b.resolveTypeNode(ctx, args.NamedChild(i))
			if arg == "" {
				arg = ctx.Text(args.NamedChild(i))
			}
			parts = append(parts, arg)
		}
		return base + "<" + strings.Join(parts, ",") + ">"
	case "array_type":
		elem := b.resolveTypeNode(ctx, node.ChildByFieldName("element"))
		if elem == "" {
			return ""
		}
		return elem + ctx.Text(node.ChildByFieldName("dimensions"))
	case "wildcard":
		return ctx.Text(node)
	}
	return ""
}

// inferType handles `var` declarations with an obvious initializer.
func (b *javaBuilder) inferType(ctx *ExtractionContext, value *sitter.Node) string {
	if value == nil {
		return ""
	}
	switch value.Kind() {
	case "object_creation_expression":
		return b.resolveTypeNode(ctx, value.ChildByFieldName("type"))
	case "string_literal", "text_block":
		return "java.lang.String"
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		if strings.HasSuffix(strings.ToLower(ctx.Text(value)), "l") {
			return "long"
		}
		return "int"
	case "decimal_floating_point_literal":
		if strings.HasSuffix(strings.ToLower(ctx.Text(value)), "f") {
			return "float"
		}
		return "double"
	case "true", "false":
		return "boolean"
	case "character_literal":
		return "char"
	case "cast_expression":
		return b.resolveTypeNode(ctx, value.ChildByFieldName("type"))
	case "identifier":
		if v := b.lookup(ctx, ctx.Text(value)); v != nil {
			return v.FQCN
		}
	}
	return ""
}

// resolvePending fills return types of member accesses on types declared in
// this file, once every member is known.
func (b *javaBuilder) resolvePending() {
	for _, p := range b.pending {
		declaring := p.access.Declaring
		if declaring == "" {
			continue
		}
		if p.call != nil {
			if rt, ok := b.methods[declaring][p.call.Name]; ok {
				p.call.ReturnType = rt
			}
			continue
		}
		class, ok := b.classes[declaring]
		if !ok {
			continue
		}
		if v, ok := class.DeclaratorMap()[p.field.Name]; ok {
			p.field.ReturnType = v.FQCN
			p.field.IsEnum = b.enums[declaring] && v.FQCN == declaring
		}
	}
}
