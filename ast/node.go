// Package ast defines the uniform view over a parsed target-language
// tree that the matcher executes against (spec.md §3 "Node", §4.1).
//
// Concrete producers live in sibling packages (ast/goast wraps
// go/parser + go/ast, ast/mdast wraps goldmark) so that two real
// languages are exercisable end to end, the way teacher's
// analysis/interface.go Analyzer/Extractor pair is implemented once
// per language under analysis/go, analysis/markdown, and so on.
package ast

// Node is a borrowed, immutable view into a parsed tree. Per spec.md
// §9 ("Design Notes: Borrowed AST with arena-style state"), a Node is
// conceptually a (tree handle, node id) pair; concrete producers are
// free to implement it as a pointer into their own parse tree so long
// as the contract below holds.
type Node interface {
	// Kind returns the grammar production / tag name for this node,
	// e.g. "call_expression", "identifier".
	Kind() string

	// ByteRange returns [start, end) into Tree().Source(), satisfying
	// start <= end <= len(source).
	ByteRange() (start, end int)

	// Text returns the exact source text covered by ByteRange.
	Text() string

	// Children returns every child, including trivia (whitespace,
	// comments, punctuation depending on the grammar).
	Children() []Node

	// NamedChildren returns only children considered real syntax by
	// the language (spec.md §4.1 "named vs trivia").
	NamedChildren() []Node

	// Field looks up a named child slot (e.g. "condition", "body").
	// ok is false if the language has no such field on this node's
	// kind; a present-but-empty field still returns a Node so
	// patterns can assert emptiness (spec.md §4.2
	// "mandatory_empty_field").
	Field(name string) (Node, bool)

	Parent() Node

	NextSibling() Node
	PreviousSibling() Node
	NextNamedSibling() Node
	PreviousNamedSibling() Node

	// Tree returns the parse tree this node belongs to.
	Tree() *Tree
}

// Tree wraps a full parsed source file: its text, its root Node, and
// language tag. It is the arena referenced by every Node it produced.
type Tree struct {
	Language string
	source   string
	root     Node
	// Errs holds parse diagnostics. Per spec.md §4.1, parse errors are
	// diagnostics, not failures: matching proceeds best-effort on
	// whatever tree was produced, even a partially nil Root.
	Errs []error
}

func NewTree(language, source string, root Node) *Tree {
	return &Tree{Language: language, source: source, root: root}
}

func (t *Tree) Source() string { return t.source }
func (t *Tree) Root() Node     { return t.root }

// SetRoot lets a Producer attach a root after partial-parse recovery
// (e.g. go/parser returning both a non-nil *ast.File and an error).
func (t *Tree) SetRoot(n Node) { t.root = n }

// Producer parses source text into a Tree for one language. Concrete
// implementations (goast.Producer, mdast.Producer) are registered
// against a lang.Language via lang.Registry.
type Producer interface {
	Parse(filename, source string) (*Tree, error)
}
