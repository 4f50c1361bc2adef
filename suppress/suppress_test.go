package suppress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/gritstate"
	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/value"
)

// fakeNode is a minimal, hand-built ast.Node used to pin down
// FilterSuppressed's line-based suppression logic independent of any
// concrete language producer's comment-attachment quirks.
type fakeNode struct {
	kind          string
	start, end    int
	text          string
	children      []*fakeNode
	parent        *fakeNode
	nextSibling   *fakeNode
	prevSibling   *fakeNode
}

func (n *fakeNode) Kind() string             { return n.kind }
func (n *fakeNode) ByteRange() (int, int)    { return n.start, n.end }
func (n *fakeNode) Text() string             { return n.text }
func (n *fakeNode) Children() []ast.Node {
	out := make([]ast.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}
func (n *fakeNode) NamedChildren() []ast.Node { return n.Children() }
func (n *fakeNode) Field(string) (ast.Node, bool) { return nil, false }
func (n *fakeNode) Parent() ast.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}
func (n *fakeNode) NextSibling() ast.Node {
	if n.nextSibling == nil {
		return nil
	}
	return n.nextSibling
}
func (n *fakeNode) PreviousSibling() ast.Node {
	if n.prevSibling == nil {
		return nil
	}
	return n.prevSibling
}
func (n *fakeNode) NextNamedSibling() ast.Node     { return n.NextSibling() }
func (n *fakeNode) PreviousNamedSibling() ast.Node { return n.PreviousSibling() }
func (n *fakeNode) Tree() *ast.Tree                { return nil }

// fakeGoLang is just enough of lang.Language to drive FilterSuppressed:
// it only needs IsComment and CommentText.
type fakeGoLang struct{ lang.Language }

func (fakeGoLang) IsComment(kind string) bool { return kind == "comment" }
func (fakeGoLang) CommentText(n ast.Node) (string, int, int) {
	s, e := n.ByteRange()
	return n.Text(), s, e
}

const src = "line0\n" + // byte 0
	"// grit-ignore\n" + // byte 6, line 1
	"fmt.Println(\"a\")\n" + // byte 21, line 2
	"fmt.Println(\"b\")\n" // byte 38, line 3

func buildSuppressTree() (*fakeNode, *fakeNode, *fakeNode) {
	comment := &fakeNode{kind: "comment", start: 6, end: 20, text: "// grit-ignore"}
	callA := &fakeNode{kind: "call_expr", start: 21, end: 37, text: `fmt.Println("a")`}
	callB := &fakeNode{kind: "call_expr", start: 38, end: 54, text: `fmt.Println("b")`}
	block := &fakeNode{kind: "block", start: 0, end: 55, children: []*fakeNode{comment, callA, callB}}
	comment.parent, callA.parent, callB.parent = block, block, block
	return block, callA, callB
}

func TestFilterSuppressed_DropsOnlyTheLineBelowTheComment(t *testing.T) {
	_, callA, callB := buildSuppressTree()

	effects := []gritstate.Effect{
		{Binding: value.SingleNode(callA), Kind: gritstate.EffectRewrite, PatternName: "anonymous", Order: 0},
		{Binding: value.SingleNode(callB), Kind: gritstate.EffectRewrite, PatternName: "anonymous", Order: 1},
	}

	kept := FilterSuppressed(effects, src, fakeGoLang{})
	require.Len(t, kept, 1, "the grit-ignore comment should suppress only the call on the line right below it")

	start, _ := kept[0].Binding.Items[0].Node.ByteRange()
	wantStart, _ := callB.ByteRange()
	assert.Equal(t, wantStart, start, "the surviving effect should be the second, unignored call")
}

func TestFilterSuppressed_NamedIgnoreOnlyAppliesToThatPattern(t *testing.T) {
	block, callA, _ := buildSuppressTree()
	block.children[0].text = "// grit-ignore: other-pattern"

	effects := []gritstate.Effect{
		{Binding: value.SingleNode(callA), Kind: gritstate.EffectRewrite, PatternName: "anonymous", Order: 0},
	}

	kept := FilterSuppressed(effects, src, fakeGoLang{})
	assert.Len(t, kept, 1, "a named grit-ignore for a different pattern must not suppress this effect")
}

func TestFilterSuppressed_NilLanguagePassesThrough(t *testing.T) {
	effects := []gritstate.Effect{{Kind: gritstate.EffectRewrite}}
	kept := FilterSuppressed(effects, "", nil)
	assert.Equal(t, effects, kept)
}
