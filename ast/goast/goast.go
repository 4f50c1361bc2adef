// Package goast adapts go/parser + go/ast into the ast.Node contract.
//
// Grounded on _examples/vinodhalaharvi-stencil/matcher/matcher.go's
// reflect.Value-based field walk over *ast.Node (getField/mapFieldName),
// and on the teacher's analysis/go/go_ast_extractor.go use of the same
// go/parser + go/ast stdlib stack. go/parser is the host-language
// parser here, not a replaceable ecosystem dependency, so stdlib is
// the correct choice for this producer (see DESIGN.md).
package goast

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strings"

	grit "github.com/grit-lang/gritql/ast"
)

// Producer parses Go source with go/parser in full-file-plus-comments
// mode.
type Producer struct{}

func NewProducer() *Producer { return &Producer{} }

func (p *Producer) Parse(filename, source string) (*grit.Tree, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, source, parser.ParseComments)
	tree := grit.NewTree("go", source, nil)
	if file != nil {
		root := &node{
			fset: fset,
			src:  source,
			tree: tree,
			v:    reflect.ValueOf(file),
			kind: "source_file",
		}
		tree.SetRoot(root)
	}
	if err != nil {
		tree.Errs = append(tree.Errs, err)
	}
	return tree, err
}

// node wraps a reflect.Value over an *ast.Node (or a slice element) so
// that arbitrary Go AST struct fields are walkable without a bespoke
// visitor per node kind, mirroring stencil's matcher.getField.
type node struct {
	fset         *token.FileSet
	src          string
	tree         *grit.Tree
	v            reflect.Value
	kind         string
	fieldName    string // the Go struct field name this node was reached through, if any
	parent       *node
	prevSibling  *node
	nextSibling  *node
	childrenOnce []grit.Node
}

func kindFor(v reflect.Value) string {
	t := v.Type()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return strings.ToLower(t.String())
	}
	return toSnake(name)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func (n *node) Kind() string {
	if n.kind != "" {
		return n.kind
	}
	return kindFor(n.v)
}

func (n *node) astNode() ast.Node {
	dv := deref(n.v)
	if !dv.IsValid() {
		return nil
	}
	if !dv.CanAddr() {
		if iface, ok := asNode(n.v); ok {
			return iface
		}
		return nil
	}
	if iface, ok := asNode(dv.Addr()); ok {
		return iface
	}
	return nil
}

func asNode(v reflect.Value) (ast.Node, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if v.Type().Implements(reflect.TypeOf((*ast.Node)(nil)).Elem()) {
		if an, ok := v.Interface().(ast.Node); ok && an != nil {
			return an, true
		}
	}
	return nil, false
}

func (n *node) ByteRange() (int, int) {
	an := n.astNode()
	if an == nil {
		return 0, 0
	}
	start := n.fset.Position(an.Pos())
	end := n.fset.Position(an.End())
	return start.Offset, end.Offset
}

func (n *node) Text() string {
	s, e := n.ByteRange()
	if s < 0 || e > len(n.src) || s > e {
		return ""
	}
	return n.src[s:e]
}

func (n *node) Tree() *grit.Tree { return n.tree }
func (n *node) Parent() grit.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}
func (n *node) NextSibling() grit.Node {
	if n.nextSibling == nil {
		return nil
	}
	return n.nextSibling
}
func (n *node) PreviousSibling() grit.Node {
	if n.prevSibling == nil {
		return nil
	}
	return n.prevSibling
}

// NextNamedSibling/PreviousNamedSibling: go/ast carries no trivia
// nodes (comments attached to a file are stored separately), so every
// child reached through struct walking is "named" and these are
// aliases of the plain sibling walk.
func (n *node) NextNamedSibling() grit.Node     { return n.NextSibling() }
func (n *node) PreviousNamedSibling() grit.Node { return n.PreviousSibling() }

func (n *node) Children() []grit.Node {
	if n.childrenOnce != nil {
		return n.childrenOnce
	}
	dv := deref(n.v)
	if !dv.IsValid() {
		return nil
	}
	var kids []*node
	switch dv.Kind() {
	case reflect.Struct:
		t := dv.Type()
		for i := 0; i < dv.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			fv := dv.Field(i)
			kids = append(kids, n.expandField(sf.Name, fv)...)
		}
	case reflect.Slice:
		for i := 0; i < dv.Len(); i++ {
			kids = append(kids, n.expandField(fmt.Sprintf("%d", i), dv.Index(i))...)
		}
	}
	var prev *node
	out := make([]grit.Node, 0, len(kids))
	for _, k := range kids {
		k.parent = n
		if prev != nil {
			prev.nextSibling = k
			k.prevSibling = prev
		}
		prev = k
		out = append(out, k)
	}
	n.childrenOnce = out
	return out
}

// expandField turns one struct field (or slice element) into zero,
// one, or many child *node values, recursing into nested structs that
// are not themselves ast.Node (e.g. token.Pos, ast.ChanDir) by
// skipping them, and into slices of ast.Node by emitting one child per
// element.
func (n *node) expandField(name string, fv reflect.Value) []*node {
	if !fv.IsValid() {
		return nil
	}
	switch fv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if fv.IsNil() {
			return nil
		}
		if _, ok := asNode(fv); ok {
			return []*node{{fset: n.fset, src: n.src, tree: n.tree, v: fv, fieldName: name}}
		}
		return nil
	case reflect.Slice:
		elem := fv.Type().Elem()
		if elem.Kind() == reflect.Ptr || elem.Kind() == reflect.Interface {
			var out []*node
			for i := 0; i < fv.Len(); i++ {
				ev := fv.Index(i)
				if ev.IsNil() {
					continue
				}
				out = append(out, &node{fset: n.fset, src: n.src, tree: n.tree, v: ev, fieldName: name})
			}
			return out
		}
		return nil
	default:
		// token.Pos, string literals, etc: not a navigable node.
		return nil
	}
}

func (n *node) NamedChildren() []grit.Node {
	return n.Children()
}

// Field maps a lowercase spec-style field name (as used in a pattern's
// AstNode{sort, fields}) to the matching Go AST struct field, the way
// stencil's matcher.mapFieldName maps ".lift" field names to Go's
// PascalCase struct fields. A purely-numeric name instead addresses
// NamedChildren() positionally: snippet.Compile's lift() has no way to
// learn a grammar field's name from a parsed fragment, so it assigns
// FieldIDs "0","1",... in NamedChildren order, and this is the other
// half of that contract.
func (n *node) Field(name string) (grit.Node, bool) {
	if idx, ok := positionalIndex(name); ok {
		kids := n.NamedChildren()
		if idx < 0 || idx >= len(kids) {
			return nil, false
		}
		return kids[idx], true
	}

	dv := deref(n.v)
	if !dv.IsValid() || dv.Kind() != reflect.Struct {
		return nil, false
	}
	target := mapFieldName(name)
	fv := dv.FieldByNameFunc(func(s string) bool {
		return strings.EqualFold(s, target)
	})
	if !fv.IsValid() {
		return nil, false
	}
	kids := n.expandField(target, fv)
	if len(kids) == 0 {
		// Present but empty/nil: still surface a zero-range node so
		// mandatory-empty-field patterns can match (spec.md §4.2).
		return &node{fset: n.fset, src: n.src, tree: n.tree, v: fv, fieldName: target, kind: "empty", parent: n}, true
	}
	return kids[0], true
}

// positionalIndex reports whether name is a base-10 non-negative
// integer, and if so its value.
func positionalIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	n := 0
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// mapFieldName mirrors stencil's convention of exposing common Go AST
// field names under lowercase pattern-facing aliases.
func mapFieldName(name string) string {
	switch strings.ToLower(name) {
	case "name":
		return "Name"
	case "recv", "receiver":
		return "Recv"
	case "body":
		return "Body"
	case "params":
		return "Params"
	case "results":
		return "Results"
	case "type":
		return "Type"
	case "value", "values":
		return "Value"
	case "cond", "condition":
		return "Cond"
	case "fun", "function":
		return "Fun"
	case "args", "arguments":
		return "Args"
	case "x":
		return "X"
	case "lhs":
		return "Lhs"
	case "rhs":
		return "Rhs"
	default:
		if len(name) == 0 {
			return name
		}
		return strings.ToUpper(name[:1]) + name[1:]
	}
}
