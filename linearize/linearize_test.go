package linearize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/diagnostics"
	"github.com/grit-lang/gritql/gritstate"
	"github.com/grit-lang/gritql/value"
)

type fakeNode struct {
	kind       string
	start, end int
	text       string
}

func (n *fakeNode) Kind() string                  { return n.kind }
func (n *fakeNode) ByteRange() (int, int)          { return n.start, n.end }
func (n *fakeNode) Text() string                   { return n.text }
func (n *fakeNode) Children() []ast.Node           { return nil }
func (n *fakeNode) NamedChildren() []ast.Node      { return nil }
func (n *fakeNode) Field(string) (ast.Node, bool)  { return nil, false }
func (n *fakeNode) Parent() ast.Node               { return nil }
func (n *fakeNode) NextSibling() ast.Node          { return nil }
func (n *fakeNode) PreviousSibling() ast.Node      { return nil }
func (n *fakeNode) NextNamedSibling() ast.Node     { return nil }
func (n *fakeNode) PreviousNamedSibling() ast.Node { return nil }
func (n *fakeNode) Tree() *ast.Tree                { return nil }

const twoCallsSrc = `fmt.Println("a")
fmt.Println("b")
`

func TestLinearize_SplicesTwoDisjointEffects(t *testing.T) {
	callA := &fakeNode{kind: "call_expr", start: 0, end: 16, text: `fmt.Println("a")`}
	callB := &fakeNode{kind: "call_expr", start: 17, end: 33, text: `fmt.Println("b")`}

	effects := []gritstate.Effect{
		{
			Binding:     value.SingleNode(callA),
			Replacement: value.Snippets{Parts: []value.SnippetPart{{Literal: `log.Println("a")`}}},
			Kind:        gritstate.EffectRewrite,
			PatternName: "anonymous",
			Order:       0,
		},
		{
			Binding:     value.SingleNode(callB),
			Replacement: value.Snippets{Parts: []value.SnippetPart{{Literal: `log.Println("b")`}}},
			Kind:        gritstate.EffectRewrite,
			PatternName: "anonymous",
			Order:       1,
		},
	}

	st := gritstate.New(1)
	logs := diagnostics.New("f.go")
	res, err := Linearize(twoCallsSrc, effects, st, nil, logs, func(int) string { return "" })
	require.NoError(t, err)
	require.False(t, res.Empty)
	assert.Equal(t, "log.Println(\"a\")\nlog.Println(\"b\")\n", res.NewText)
	require.Len(t, res.Ranges, 2)
}

func TestLinearize_DropsPartiallyOverlappingEffect(t *testing.T) {
	outer := &fakeNode{kind: "call_expr", start: 0, end: 17, text: `fmt.Println("a")`}
	overlapping := &fakeNode{kind: "call_expr", start: 10, end: 25, text: "overlap"}

	effects := []gritstate.Effect{
		{Binding: value.SingleNode(outer), Replacement: value.Snippets{Parts: []value.SnippetPart{{Literal: "OUTER"}}}, Kind: gritstate.EffectRewrite, PatternName: "anonymous", Order: 0},
		{Binding: value.SingleNode(overlapping), Replacement: value.Snippets{Parts: []value.SnippetPart{{Literal: "INNER"}}}, Kind: gritstate.EffectRewrite, PatternName: "anonymous", Order: 1},
	}

	st := gritstate.New(1)
	logs := diagnostics.New("f.go")
	res, err := Linearize(twoCallsSrc, effects, st, nil, logs, func(int) string { return "" })
	require.NoError(t, err)
	require.False(t, res.Empty)
	assert.Len(t, res.Ranges, 1, "the partially-overlapping effect should be dropped, not rendered")
}

func TestLinearize_NoEffectsIsEmpty(t *testing.T) {
	st := gritstate.New(1)
	logs := diagnostics.New("f.go")
	res, err := Linearize(twoCallsSrc, nil, st, nil, logs, func(int) string { return "" })
	require.NoError(t, err)
	assert.True(t, res.Empty)
}
