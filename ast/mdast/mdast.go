// Package mdast adapts github.com/yuin/goldmark's AST into the
// ast.Node contract, the way teacher ships analysis/markdown on top of
// the same goldmark dependency declared in go.mod.
package mdast

import (
	"bytes"

	gm "github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	grit "github.com/grit-lang/gritql/ast"
)

type Producer struct {
	md gm.Markdown
}

func NewProducer() *Producer {
	return &Producer{md: gm.New()}
}

func (p *Producer) Parse(filename, source string) (*grit.Tree, error) {
	src := []byte(source)
	root := p.md.Parser().Parse(gmtext.NewReader(src))
	tree := grit.NewTree("markdown", source, nil)
	tree.SetRoot(wrap(root, src, tree, nil))
	return tree, nil
}

type node struct {
	n      gmast.Node
	src    []byte
	tree   *grit.Tree
	parent *node
}

func wrap(n gmast.Node, src []byte, tree *grit.Tree, parent *node) *node {
	if n == nil {
		return nil
	}
	return &node{n: n, src: src, tree: tree, parent: parent}
}

func (w *node) Kind() string { return w.n.Kind().String() }

func (w *node) ByteRange() (int, int) {
	switch v := w.n.(type) {
	case *gmast.BaseBlock:
		lines := v.Lines()
		if lines.Len() == 0 {
			return 0, 0
		}
		first := lines.At(0)
		last := lines.At(lines.Len() - 1)
		return first.Start, last.Stop
	default:
		if lb, ok := w.n.(interface{ Lines() *gmtext.Segments }); ok {
			lines := lb.Lines()
			if lines.Len() > 0 {
				first := lines.At(0)
				last := lines.At(lines.Len() - 1)
				return first.Start, last.Stop
			}
		}
		if seg, ok := w.n.(*gmast.Text); ok {
			s := seg.Segment
			return s.Start, s.Stop
		}
	}
	if w.parent != nil {
		ps, pe := w.parent.ByteRange()
		return ps, pe
	}
	return 0, len(w.src)
}

func (w *node) Text() string {
	s, e := w.ByteRange()
	if s < 0 || e > len(w.src) || s > e {
		return ""
	}
	return string(w.src[s:e])
}

func (w *node) Tree() *grit.Tree { return w.tree }

func (w *node) Parent() grit.Node {
	if w.parent == nil {
		return nil
	}
	return w.parent
}

func (w *node) Children() []grit.Node {
	var out []grit.Node
	for c := w.n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, wrap(c, w.src, w.tree, w))
	}
	return out
}

// NamedChildren: goldmark's tree has no trivia nodes distinct from
// content nodes (whitespace is folded into text segments), so named
// children are all children.
func (w *node) NamedChildren() []grit.Node { return w.Children() }

func (w *node) NextSibling() grit.Node {
	return wrap(w.n.NextSibling(), w.src, w.tree, w.parent)
}
func (w *node) PreviousSibling() grit.Node {
	return wrap(w.n.PreviousSibling(), w.src, w.tree, w.parent)
}
func (w *node) NextNamedSibling() grit.Node     { return w.NextSibling() }
func (w *node) PreviousNamedSibling() grit.Node { return w.PreviousSibling() }

// Field exposes the common heading/link/image attributes goldmark
// stores as node-specific accessors rather than generic fields, plus a
// numeric positional fallback into NamedChildren order (the same
// contract ast/goast.node.Field supports): snippet.Compile's lift()
// assigns FieldIDs "0","1",... when it has no grammar field name to
// attach to a parsed fragment's children.
func (w *node) Field(name string) (grit.Node, bool) {
	switch v := w.n.(type) {
	case *gmast.Heading:
		if name == "level" {
			return wrap(v, bytes.Repeat([]byte{byte('0' + v.Level)}, 1), w.tree, w), true
		}
	case *gmast.Link:
		if name == "destination" {
			return &node{n: v, src: v.Destination, tree: w.tree, parent: w}, true
		}
	}
	if idx, ok := positionalIndex(name); ok {
		kids := w.NamedChildren()
		if idx < 0 || idx >= len(kids) {
			return nil, false
		}
		return kids[idx], true
	}
	return nil, false
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
