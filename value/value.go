// Package value implements the runtime "Resolved value" sum type
// (spec.md §3 "Resolved value (C4)"): what a pattern sees and
// produces while matching.
package value

import (
	"strconv"

	"github.com/grit-lang/gritql/ast"
)

// Value is the closed interface-per-variant sum (spec.md §9
// "Polymorphism over the Pattern sum" applies equally here: the
// dispatch table is statically known).
type Value interface {
	isValue()
}

// Binding is a non-empty sequence of AST bindings. Most matches bind
// exactly one BindingItem; list-splice and multi-file matches can
// bind several.
type Binding struct {
	Items []BindingItem
}

func (Binding) isValue() {}

// BindingItem is one of: a node, a list-slice, an empty-field slot, a
// filename, a constant, or a byte range (spec.md §3 "Resolved value").
type BindingItem struct {
	Node     ast.Node // set for Node/EmptySlot kinds
	List     []ast.Node
	Filename string
	Constant *Constant
	RangeLo  int
	RangeHi  int

	Kind BindingItemKind
}

type BindingItemKind int

const (
	BindNode BindingItemKind = iota
	BindList
	BindEmptySlot
	BindFilename
	BindConstant
	BindRange
)

// Text returns the source text this binding item covers, used
// pervasively by the matcher (AstLeafNode, Regex, Variable equality)
// and the linearizer (variable substitution at render time).
func (b BindingItem) Text() string {
	switch b.Kind {
	case BindNode:
		if b.Node != nil {
			return b.Node.Text()
		}
	case BindList:
		if len(b.List) == 0 {
			return ""
		}
		s, _ := b.List[0].ByteRange()
		_, e := b.List[len(b.List)-1].ByteRange()
		tree := b.List[0].Tree()
		if tree != nil {
			src := tree.Source()
			if s >= 0 && e <= len(src) && s <= e {
				return src[s:e]
			}
		}
	case BindFilename:
		return b.Filename
	case BindConstant:
		if b.Constant != nil {
			return b.Constant.String()
		}
	case BindEmptySlot:
		return ""
	case BindRange:
		if len(b.List) > 0 {
			return b.List[0].Text()
		}
	}
	return ""
}

func SingleNode(n ast.Node) Binding {
	return Binding{Items: []BindingItem{{Kind: BindNode, Node: n}}}
}

func SingleList(nodes []ast.Node) Binding {
	return Binding{Items: []BindingItem{{Kind: BindList, List: nodes}}}
}

func SingleFilename(name string) Binding {
	return Binding{Items: []BindingItem{{Kind: BindFilename, Filename: name}}}
}

func SingleConstant(c Constant) Binding {
	return Binding{Items: []BindingItem{{Kind: BindConstant, Constant: &c}}}
}

func EmptySlot(at ast.Node) Binding {
	return Binding{Items: []BindingItem{{Kind: BindEmptySlot, Node: at}}}
}

// Snippets is lazy text: literal parts interleaved with pending
// variable substitutions, resolved at effect-render time by the
// linearizer (spec.md "Dynamic pattern / snippet" in the Glossary).
type Snippets struct {
	Parts []SnippetPart
}

func (Snippets) isValue() {}

type SnippetPart struct {
	Literal string // set when Variable == ""
	// Variable names the referenced metavariable for diagnostics;
	// VarScope/VarIndex address the gritstate slot to resolve at
	// render time (resolved against State, with $program-style
	// globals resolved against the file registry per spec.md §4.8).
	Variable          string
	VarScope, VarIndex int
	HasVar            bool
	Call              *DynamicCall
}

// DynamicCall renders a call-builtin/call-function/list-splice
// dynamic part (spec.md §4.8 step 4).
type DynamicCall struct {
	Name string
	Args []Snippets
}

type List struct {
	Items []Value
}

func (List) isValue() {}

type Map struct {
	Entries map[string]Value
}

func (Map) isValue() {}

type File struct {
	Name     string
	Body     Value // bound lazily; nil until loaded (spec.md §5 "File loading")
	Absolute string
}

func (File) isValue() {}

type Files struct {
	Items []*File
}

func (Files) isValue() {}

// Constant is the tagged scalar leaf: string/int/float/bool.
type Constant struct {
	Kind  ConstantKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

type ConstantKind int

const (
	ConstString ConstantKind = iota
	ConstInt
	ConstFloat
	ConstBool
	ConstUndefined
)

func (Constant) isValue() {}

func (c Constant) String() string {
	switch c.Kind {
	case ConstString:
		return c.Str
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'f', -1, 64)
	case ConstBool:
		if c.Bool {
			return "true"
		}
		return "false"
	default:
		return "undefined"
	}
}

