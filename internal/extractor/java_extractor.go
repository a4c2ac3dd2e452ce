package extractor

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// JavaExtractor implements LanguageExtractor for Java.
type JavaExtractor struct{}

func (j *JavaExtractor) GetLanguage() *sitter.Language {
	return java.GetLanguage()
}

var typeDeclarations = map[string]string{
	"class_declaration":           UnitClass,
	"interface_declaration":       UnitInterface,
	"enum_declaration":            UnitEnum,
	"annotation_type_declaration": UnitAnnotation,
	"record_declaration":          UnitRecord,
}

var primitiveTypes = map[string]bool{
	"integral_type":       true,
	"floating_point_type": true,
	"boolean_type":        true,
	"void_type":           true,
}

var primitiveNames = map[string]bool{
	"int": true, "long": true, "short": true, "byte": true, "char": true,
	"boolean": true, "float": true, "double": true, "void": true,
}

func (j *JavaExtractor) Extract(root *sitter.Node, sourceCode []byte, filepath string) *FileUnits {
	fu := &FileUnits{Path: filepath}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "package_declaration":
			fu.Package = packageName(n, sourceCode)
		case "import_declaration":
			fu.Imports = append(fu.Imports, parseImport(n.Content(sourceCode)))
		}
	}

	w := &javaWalker{src: sourceCode, file: fu, anon: make(map[string]int)}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if _, ok := typeDeclarations[n.Type()]; ok {
			w.typeDecl(n, nil)
		}
	}
	return fu
}

func packageName(n *sitter.Node, src []byte) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
			return whitespaceRe.ReplaceAllString(c.Content(src), "")
		}
	}
	return ""
}

func parseImport(text string) Import {
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(strings.TrimPrefix(text, "import"), ";")
	text = strings.TrimSpace(text)

	var imp Import
	if strings.HasPrefix(text, "static ") {
		imp.Static = true
		text = strings.TrimSpace(strings.TrimPrefix(text, "static "))
	}
	text = whitespaceRe.ReplaceAllString(text, "")
	if strings.HasSuffix(text, ".*") {
		imp.Wildcard = true
		text = strings.TrimSuffix(text, ".*")
	}
	imp.Path = text
	return imp
}

// scope tracks what names mean while walking a type or a code unit.
type scope struct {
	typeID     string
	supertypes []string
	vars       map[string]string
	typeParams map[string]bool
	parent     *scope
}

func newScope(parent *scope) *scope {
	s := &scope{parent: parent, vars: map[string]string{}, typeParams: map[string]bool{}}
	if parent != nil {
		s.typeID = parent.typeID
		s.supertypes = parent.supertypes
	}
	return s
}

// lookupVar returns the declared type of a variable, and whether the name is a variable at all.
func (s *scope) lookupVar(name string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, true
		}
	}
	return "", false
}

// allTypeParams lists the generic parameter names visible in s, sorted.
func (s *scope) allTypeParams() []string {
	var out []string
	for cur := s; cur != nil; cur = cur.parent {
		for name := range cur.typeParams {
			if !containsString(out, name) {
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (s *scope) isTypeParam(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.typeParams[name] {
			return true
		}
	}
	return false
}

type javaWalker struct {
	src  []byte
	file *FileUnits
	// anonymous classes seen so far per enclosing type, for Outer$1 style names
	anon map[string]int
}

func (w *javaWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func (w *javaWalker) newUnit(n *sitter.Node, unitType, id, name, owner string) *CodeUnit {
	u := &CodeUnit{
		ID:          id,
		Filepath:    w.file.Path,
		Package:     w.file.Package,
		StartLine:   line(n),
		EndLine:     int(n.EndPoint().Row) + 1,
		UnitType:    unitType,
		Name:        name,
		Owner:       owner,
		Description: w.docComment(n),
	}
	w.file.Units = append(w.file.Units, u)
	return u
}

func (w *javaWalker) typeDecl(n *sitter.Node, outer *scope) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)

	var id, owner string
	inInterface := false
	if outer == nil {
		id = TypeID(w.file.Package, name)
	} else {
		owner = outer.typeID
		id = NestedTypeID(owner, name)
		inInterface = w.isInterfaceUnit(owner)
	}

	u := w.newUnit(n, typeDeclarations[n.Type()], id, name, owner)
	sc := newScope(outer)
	sc.typeID = id
	w.typeParams(n, sc)

	mods, annNodes := w.modifiers(n, u)
	u.Modifiers = mods
	if inInterface {
		u.Modifiers = addModifier(u.Modifiers, "public")
		u.Modifiers = addModifier(u.Modifiers, "static")
	}
	w.annotationRelations(u, annNodes, sc)

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "superclass", "super_interfaces", "extends_interfaces":
			for _, t := range w.directTypes(c) {
				raw := EraseType(w.text(t))
				u.Supertypes = append(u.Supertypes, raw)
				w.typeRelations(u, t, RelationTypeReference, sc)
			}
		}
	}
	sc.supertypes = u.Supertypes

	if n.Type() == "record_declaration" {
		if params := n.ChildByFieldName("parameters"); params != nil {
			for _, p := range w.formalParams(params) {
				f := w.newUnit(p.node, UnitField, FieldID(id, p.name), p.name, id)
				f.Modifiers = []string{"private", "final"}
				f.Details = FieldDetails{Type: EraseType(p.typ)}
				w.typeRelations(f, p.typeNode, RelationTypeReference, sc)
				sc.vars[p.name] = p.typ
			}
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	members := w.bodyMembers(body)

	// fields first, so code units can see fields declared below them
	for _, m := range members {
		if m.Type() == "field_declaration" || m.Type() == "constant_declaration" {
			typ := w.text(m.ChildByFieldName("type"))
			for _, d := range w.declarators(m) {
				sc.vars[w.text(d.ChildByFieldName("name"))] = typ
			}
		}
	}

	isInterface := u.UnitType == UnitInterface || u.UnitType == UnitAnnotation
	for _, m := range members {
		switch m.Type() {
		case "field_declaration", "constant_declaration":
			w.fieldDecl(m, id, sc, isInterface)
		case "method_declaration", "annotation_type_element_declaration":
			w.codeUnit(m, UnitMethod, id, sc, isInterface)
		case "constructor_declaration", "compact_constructor_declaration":
			w.codeUnit(m, UnitConstructor, id, sc, false)
		case "static_initializer", "block", "enum_constant":
			w.walk(m, u, newScope(sc))
		default:
			if _, ok := typeDeclarations[m.Type()]; ok {
				w.typeDecl(m, sc)
			}
		}
	}
}

// anonymousClass declares the body of "new T() { ... }" as its own nested class, so that the
// calls inside its methods belong to those methods and not to the code that instantiates it.
func (w *javaWalker) anonymousClass(body *sitter.Node, super string, outer *scope) {
	owner := outer.typeID
	w.anon[owner]++
	id := NestedTypeID(owner, strconv.Itoa(w.anon[owner]))

	u := w.newUnit(body, UnitClass, id, "", owner)
	sc := newScope(outer)
	sc.typeID = id
	if super != "" && !outer.isTypeParam(super) {
		u.Supertypes = []string{super}
	}
	sc.supertypes = u.Supertypes

	members := w.bodyMembers(body)
	for _, m := range members {
		if m.Type() == "field_declaration" {
			typ := w.text(m.ChildByFieldName("type"))
			for _, d := range w.declarators(m) {
				sc.vars[w.text(d.ChildByFieldName("name"))] = typ
			}
		}
	}
	for _, m := range members {
		switch m.Type() {
		case "field_declaration":
			w.fieldDecl(m, id, sc, false)
		case "method_declaration":
			w.codeUnit(m, UnitMethod, id, sc, false)
		case "block", "static_initializer":
			w.walk(m, u, newScope(sc))
		default:
			if _, ok := typeDeclarations[m.Type()]; ok {
				w.typeDecl(m, sc)
			}
		}
	}
}

func (w *javaWalker) isInterfaceUnit(id string) bool {
	for _, u := range w.file.Units {
		if u.ID == id {
			return u.UnitType == UnitInterface || u.UnitType == UnitAnnotation
		}
	}
	return false
}

// bodyMembers flattens class, interface, enum and annotation bodies into their member declarations.
func (w *javaWalker) bodyMembers(body *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() == "enum_body_declarations" {
			out = append(out, w.bodyMembers(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (w *javaWalker) declarators(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "variable_declarator" {
			out = append(out, c)
		}
	}
	return out
}

func (w *javaWalker) fieldDecl(n *sitter.Node, owner string, sc *scope, inInterface bool) {
	typeNode := n.ChildByFieldName("type")
	for _, d := range w.declarators(n) {
		name := w.text(d.ChildByFieldName("name"))
		if name == "" {
			continue
		}
		u := w.newUnit(n, UnitField, FieldID(owner, name), name, owner)
		mods, annNodes := w.modifiers(n, u)
		u.Modifiers = mods
		if inInterface {
			u.Modifiers = addModifier(addModifier(addModifier(u.Modifiers, "public"), "static"), "final")
		}
		details := FieldDetails{Type: EraseType(w.text(typeNode))}
		if v := d.ChildByFieldName("value"); v != nil {
			details.Value = canonicalize(w.text(v))
		}
		u.Details = details

		local := newScope(sc)
		w.annotationRelations(u, annNodes, local)
		w.typeRelations(u, typeNode, RelationTypeReference, local)
		if v := d.ChildByFieldName("value"); v != nil {
			w.walk(v, u, local)
		}
	}
}

type formalParam struct {
	node     *sitter.Node
	typeNode *sitter.Node
	name     string
	typ      string
}

func (w *javaWalker) formalParams(n *sitter.Node) []formalParam {
	var out []formalParam
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "formal_parameter":
			t := c.ChildByFieldName("type")
			out = append(out, formalParam{node: c, typeNode: t, name: w.text(c.ChildByFieldName("name")), typ: w.text(t)})
		case "spread_parameter":
			p := formalParam{node: c}
			for k := 0; k < int(c.NamedChildCount()); k++ {
				gc := c.NamedChild(k)
				switch gc.Type() {
				case "modifiers":
				case "variable_declarator":
					p.name = w.text(gc.ChildByFieldName("name"))
				default:
					if p.typeNode == nil {
						p.typeNode = gc
						p.typ = w.text(gc) + "..."
					}
				}
			}
			out = append(out, p)
		}
	}
	return out
}

func (w *javaWalker) codeUnit(n *sitter.Node, unitType, owner string, sc *scope, inInterface bool) {
	name := w.text(n.ChildByFieldName("name"))
	if name == "" {
		return
	}

	local := newScope(sc)
	w.typeParams(n, local)

	var params []formalParam
	if p := n.ChildByFieldName("parameters"); p != nil {
		params = w.formalParams(p)
	} else if n.Type() == "compact_constructor_declaration" {
		// the record components are the implicit parameters
		for _, u := range w.file.Units {
			if u.Owner == owner && u.UnitType == UnitField {
				if d, ok := u.Details.(FieldDetails); ok && !containsString(u.Modifiers, "static") {
					params = append(params, formalParam{name: u.Name, typ: d.Type})
				}
			}
		}
	}
	rawTypes := make([]string, len(params))
	for i, p := range params {
		rawTypes[i] = p.typ
	}

	u := w.newUnit(n, unitType, MemberID(owner, name, rawTypes), name, owner)
	u.TypeParams = local.allTypeParams()
	mods, annNodes := w.modifiers(n, u)
	u.Modifiers = mods
	body := n.ChildByFieldName("body")
	if inInterface && !containsString(u.Modifiers, "private") {
		u.Modifiers = addModifier(u.Modifiers, "public")
		if body == nil && !containsString(u.Modifiers, "static") {
			u.Modifiers = addModifier(u.Modifiers, "abstract")
		}
	}

	details := MethodDetails{Parameters: make([]Param, 0, len(params))}
	if t := n.ChildByFieldName("type"); t != nil {
		details.Returns = EraseType(w.text(t))
	}
	if body != nil {
		details.Signature = canonicalize(string(w.src[n.StartByte():body.StartByte()]))
	} else {
		details.Signature = strings.TrimSuffix(canonicalize(w.text(n)), ";")
	}

	w.annotationRelations(u, annNodes, local)
	if t := n.ChildByFieldName("type"); t != nil {
		w.typeRelations(u, t, RelationTypeReference, local)
	}
	for _, p := range params {
		details.Parameters = append(details.Parameters, Param{Name: p.name, Type: EraseType(p.typ)})
		if p.name != "" {
			local.vars[p.name] = p.typ
		}
		if p.node != nil {
			_, pAnns := w.modifiers(p.node, nil)
			w.annotationRelations(u, pAnns, local)
		}
		if p.typeNode != nil {
			w.paramRelations(u, p.typeNode, local)
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "throws" {
			continue
		}
		for _, t := range w.directTypes(c) {
			details.Throws = append(details.Throws, EraseType(w.text(t)))
			w.typeRelations(u, t, RelationThrows, local)
		}
	}
	u.Details = details

	if body != nil {
		w.walk(body, u, local)
	}
}

// paramRelations records the erased parameter type as a parameter-type relation
// and its generic arguments as type references.
func (w *javaWalker) paramRelations(u *CodeUnit, t *sitter.Node, sc *scope) {
	raw := ElementType(EraseType(w.text(t)))
	if raw != "" && !primitiveNames[raw] && !sc.isTypeParam(raw) {
		u.Relations = append(u.Relations, Relation{Target: raw, Kind: RelationParameterType, Line: line(t)})
	}
	if t.Type() == "generic_type" {
		for i := 0; i < int(t.NamedChildCount()); i++ {
			if c := t.NamedChild(i); c.Type() == "type_arguments" {
				w.typeRelations(u, c, RelationTypeReference, sc)
			}
		}
	}
}

func (w *javaWalker) typeParams(n *sitter.Node, sc *scope) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_parameters" {
			continue
		}
		for k := 0; k < int(c.NamedChildCount()); k++ {
			tp := c.NamedChild(k)
			if tp.Type() != "type_parameter" || tp.NamedChildCount() == 0 {
				continue
			}
			for m := 0; m < int(tp.NamedChildCount()); m++ {
				if id := tp.NamedChild(m); id.Type() == "type_identifier" || id.Type() == "identifier" {
					sc.typeParams[w.text(id)] = true
					break
				}
			}
		}
	}
}

// directTypes returns the type nodes listed in a superclass/interfaces/throws clause.
func (w *javaWalker) directTypes(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "type_list" {
			out = append(out, w.directTypes(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// typeNames collects every non-primitive type mentioned in a type node, generic arguments included.
func (w *javaWalker) typeNames(n *sitter.Node, sc *scope) []string {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "type_identifier":
		name := w.text(n)
		if sc.isTypeParam(name) {
			return nil
		}
		return []string{name}
	case "scoped_type_identifier":
		return []string{EraseType(w.text(n))}
	case "marker_annotation", "annotation":
		return nil
	}
	if primitiveTypes[n.Type()] {
		return nil
	}
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, w.typeNames(n.NamedChild(i), sc)...)
	}
	return out
}

func (w *javaWalker) typeRelations(u *CodeUnit, t *sitter.Node, kind string, sc *scope) {
	for _, name := range w.typeNames(t, sc) {
		u.Relations = append(u.Relations, Relation{Target: name, Kind: kind, Line: line(t)})
	}
}

func (w *javaWalker) annotationRelations(u *CodeUnit, annNodes []*sitter.Node, sc *scope) {
	for _, a := range annNodes {
		name := EraseType(w.text(a.ChildByFieldName("name")))
		if name == "" {
			continue
		}
		u.Relations = append(u.Relations, Relation{Target: name, Kind: RelationTypeReference, Line: line(a)})
		if args := a.ChildByFieldName("arguments"); args != nil {
			w.walk(args, u, sc)
		}
	}
}

// modifiers reads the modifier keywords and annotations of a declaration. Annotations are
// recorded on u when it is non-nil; their nodes are returned for relation extraction.
func (w *javaWalker) modifiers(n *sitter.Node, u *CodeUnit) ([]string, []*sitter.Node) {
	var mods []string
	var anns []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() != "modifiers" {
			continue
		}
		for k := 0; k < int(c.ChildCount()); k++ {
			m := c.Child(k)
			switch m.Type() {
			case "marker_annotation", "annotation":
				anns = append(anns, m)
				if u != nil {
					u.Annotations = append(u.Annotations, w.annotationRef(m))
				}
			case "line_comment", "block_comment", "comment":
			default:
				if !m.IsNamed() {
					mods = append(mods, m.Type())
				}
			}
		}
	}
	return mods, anns
}

func (w *javaWalker) annotationRef(n *sitter.Node) AnnotationRef {
	ref := AnnotationRef{Name: EraseType(w.text(n.ChildByFieldName("name")))}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return ref
	}
	ref.Params = map[string]string{}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		c := args.NamedChild(i)
		if c.Type() == "element_value_pair" {
			ref.Params[w.text(c.ChildByFieldName("key"))] = literal(w.text(c.ChildByFieldName("value")))
			continue
		}
		ref.Params["value"] = literal(w.text(c))
	}
	if len(ref.Params) == 0 {
		ref.Params = nil
	}
	return ref
}

func literal(v string) string {
	v = canonicalize(v)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		return v[1 : len(v)-1]
	}
	return v
}

// walk records calls, constructions, field accesses and local type usages below n on u.
func (w *javaWalker) walk(n *sitter.Node, u *CodeUnit, sc *scope) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "method_invocation":
		w.methodInvocation(n, u, sc)
		return

	case "object_creation_expression":
		t := n.ChildByFieldName("type")
		raw := EraseType(w.text(t))
		args := n.ChildByFieldName("arguments")
		if raw != "" && !sc.isTypeParam(raw) {
			u.Relations = append(u.Relations, Relation{
				Target: raw, Kind: RelationConstructorCall, Member: "<init>", CallName: "<init>",
				Args: argCount(args), Line: line(n),
			})
			u.Calls = append(u.Calls, "<init>")
		}
		if t != nil && t.Type() == "generic_type" {
			for i := 0; i < int(t.NamedChildCount()); i++ {
				if c := t.NamedChild(i); c.Type() == "type_arguments" {
					w.typeRelations(u, c, RelationTypeReference, sc)
				}
			}
		}
		w.walk(args, u, sc)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "class_body" {
				w.anonymousClass(c, raw, sc)
			}
		}
		return

	case "field_access":
		obj := n.ChildByFieldName("object")
		field := w.text(n.ChildByFieldName("field"))
		if target, ok := w.receiverType(obj, sc); ok {
			u.Relations = append(u.Relations, Relation{Target: target, Kind: RelationFieldAccess, Member: field, Line: line(n)})
			return
		}
		w.walk(obj, u, sc)
		return

	case "local_variable_declaration", "field_declaration":
		t := n.ChildByFieldName("type")
		w.typeRelations(u, t, RelationTypeReference, sc)
		for _, d := range w.declarators(n) {
			sc.vars[w.text(d.ChildByFieldName("name"))] = w.text(t)
			w.walk(d.ChildByFieldName("value"), u, sc)
		}
		return

	case "enhanced_for_statement":
		t := n.ChildByFieldName("type")
		w.typeRelations(u, t, RelationTypeReference, sc)
		inner := newScope(sc)
		inner.vars[w.text(n.ChildByFieldName("name"))] = w.text(t)
		w.walk(n.ChildByFieldName("value"), u, inner)
		w.walk(n.ChildByFieldName("body"), u, inner)
		return

	case "catch_formal_parameter":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "catch_type" {
				w.typeRelations(u, c, RelationTypeReference, sc)
				sc.vars[w.text(n.ChildByFieldName("name"))] = w.text(c)
			}
		}
		return

	case "lambda_expression":
		inner := newScope(sc)
		if p := n.ChildByFieldName("parameters"); p != nil {
			switch p.Type() {
			case "identifier":
				inner.vars[w.text(p)] = ""
			case "formal_parameters":
				for _, fp := range w.formalParams(p) {
					inner.vars[fp.name] = fp.typ
					w.typeRelations(u, fp.typeNode, RelationTypeReference, inner)
				}
			default:
				for i := 0; i < int(p.NamedChildCount()); i++ {
					inner.vars[w.text(p.NamedChild(i))] = ""
				}
			}
		}
		w.walk(n.ChildByFieldName("body"), u, inner)
		return

	case "cast_expression", "array_creation_expression":
		w.typeRelations(u, n.ChildByFieldName("type"), RelationTypeReference, sc)
		w.walk(n.ChildByFieldName("value"), u, sc)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "dimensions_expr" || c.Type() == "array_initializer" {
				w.walk(c, u, sc)
			}
		}
		return

	case "instanceof_expression":
		w.walk(n.ChildByFieldName("left"), u, sc)
		w.typeRelations(u, n.ChildByFieldName("right"), RelationTypeReference, sc)
		return

	case "class_literal":
		if n.NamedChildCount() > 0 {
			w.typeRelations(u, n.NamedChild(0), RelationTypeReference, sc)
		}
		return

	case "block":
		inner := newScope(sc)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.walk(n.NamedChild(i), u, inner)
		}
		return

	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
		// local type declarations are not part of the enclosing unit
		return
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i), u, sc)
	}
}

func (w *javaWalker) methodInvocation(n *sitter.Node, u *CodeUnit, sc *scope) {
	name := w.text(n.ChildByFieldName("name"))
	obj := n.ChildByFieldName("object")
	args := n.ChildByFieldName("arguments")

	target, known := w.receiverType(obj, sc)
	if !known {
		w.walk(obj, u, sc)
	}
	u.Calls = append(u.Calls, name)
	if known {
		u.Relations = append(u.Relations, Relation{
			Target: target, Kind: RelationMethodCall, Member: name, CallName: name,
			Args: argCount(args), Line: line(n),
		})
	}
	w.walk(args, u, sc)
}

// receiverType works out the raw type an expression refers to when it is a receiver:
// this/super, a variable with a declared type, a type name, or a qualified type name.
func (w *javaWalker) receiverType(obj *sitter.Node, sc *scope) (string, bool) {
	if obj == nil {
		return sc.typeID, sc.typeID != ""
	}
	switch obj.Type() {
	case "this":
		return sc.typeID, sc.typeID != ""
	case "super":
		if len(sc.supertypes) > 0 {
			return sc.supertypes[0], true
		}
		return "", false
	case "identifier":
		name := w.text(obj)
		if t, ok := sc.lookupVar(name); ok {
			t = ElementType(EraseType(t))
			return t, t != "" && t != "var" && !sc.isTypeParam(t)
		}
		// constants such as ORDERS are values, not types
		if startsUpper(name) && strings.ToUpper(name) != name {
			return name, true
		}
	case "field_access":
		if inner := obj.ChildByFieldName("object"); inner != nil && inner.Type() == "this" {
			if t, ok := sc.lookupVar(w.text(obj.ChildByFieldName("field"))); ok {
				t = ElementType(EraseType(t))
				return t, t != ""
			}
			return "", false
		}
		if qualified := whitespaceRe.ReplaceAllString(w.text(obj), ""); looksLikeTypeName(qualified) {
			return qualified, true
		}
	}
	return "", false
}

// looksLikeTypeName accepts "a.b.Type" and "Outer.Inner" but not "a.b.field".
func looksLikeTypeName(s string) bool {
	segs := strings.Split(s, ".")
	last := segs[len(segs)-1]
	if !startsUpper(last) || strings.ToUpper(last) == last {
		return false
	}
	for _, seg := range segs {
		if seg == "" {
			return false
		}
		for _, r := range seg {
			if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$') {
				return false
			}
		}
	}
	return true
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func argCount(args *sitter.Node) int {
	if args == nil {
		return 0
	}
	return int(args.NamedChildCount())
}

func addModifier(mods []string, m string) []string {
	if containsString(mods, m) {
		return mods
	}
	return append(mods, m)
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// docComment returns the cleaned Javadoc directly preceding a declaration.
func (w *javaWalker) docComment(n *sitter.Node) string {
	prev := n.PrevSibling()
	if prev == nil || n.StartPoint().Row-prev.EndPoint().Row > 1 {
		return ""
	}
	switch prev.Type() {
	case "block_comment", "comment":
	default:
		return ""
	}
	raw := w.text(prev)
	if !strings.HasPrefix(raw, "/**") {
		return ""
	}
	return cleanDocComment(raw)
}

func cleanDocComment(rawComment string) string {
	lines := strings.Split(rawComment, "\n")
	var cleaned []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "/**")
		l = strings.TrimSuffix(l, "*/")
		l = strings.TrimPrefix(l, "*")
		if l = strings.TrimSpace(l); l != "" {
			cleaned = append(cleaned, l)
		}
	}
	return strings.Join(cleaned, "\n")
}
