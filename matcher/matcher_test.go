package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/compiler"
	"github.com/grit-lang/gritql/diagnostics"
	"github.com/grit-lang/gritql/gritstate"
	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/matcher"
	"github.com/grit-lang/gritql/pattern"
	"github.com/grit-lang/gritql/value"
)

func goLang(t *testing.T) lang.Language {
	t.Helper()
	l, ok := lang.Default.Get("go")
	require.True(t, ok, "go language must be registered")
	return l
}

// run compiles source as a full pattern program and executes its Entry
// against v, returning the match result and the state it ran with (so
// callers can inspect bindings/effects).
func run(t *testing.T, patternSrc, fileSrc string, v value.Value) (bool, *gritstate.State) {
	t.Helper()
	l := goLang(t)
	defs, errs, _ := compiler.Compile(patternSrc, l, pattern.Options{})
	require.Empty(t, errs, "pattern %q failed to compile", patternSrc)

	nScopes := len(defs.VariablesByScope)
	if nScopes == 0 {
		nScopes = 1
	}
	st := gritstate.New(nScopes)
	logs := diagnostics.New("test.go")
	ctx := &matcher.Context{Language: l, Definitions: defs, FileName: "test.go"}
	ok, err := matcher.Execute(defs.Entry, v, st, ctx, logs)
	require.NoError(t, err)
	return ok, st
}

// findNode returns the deepest node whose own Text equals want (a child
// is preferred over a parent with the same text, so a call is found
// rather than the expression statement around it), used to locate a
// specific call/decl inside a parsed fixture without hand-indexing the
// tree.
func findNode(n ast.Node, want string) ast.Node {
	for _, c := range n.Children() {
		if found := findNode(c, want); found != nil {
			return found
		}
	}
	if n.Text() == want {
		return n
	}
	return nil
}

func parseGo(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, err := goLang(t).Producer().Parse("test.go", src)
	require.NoError(t, err)
	return tree
}

func TestExecute_LiteralCallMatchesItsCallExpr(t *testing.T) {
	src := "package main\n\nfunc main() {\n\tfmt.Println(\"a\")\n}\n"
	tree := parseGo(t, src)
	call := findNode(tree.Root(), `fmt.Println("a")`)
	require.NotNil(t, call, "fixture must contain the call expression")

	ok, _ := run(t, "`fmt.Println($x)`", src, value.SingleNode(call))
	assert.True(t, ok, "a literal call pattern must match its exact call expression")
}

func TestExecute_NoMatchOnShapeMismatch(t *testing.T) {
	src := "package main\n\nfunc main() {\n\tlog.Println(\"a\")\n}\n"
	tree := parseGo(t, src)
	call := findNode(tree.Root(), `log.Println("a")`)
	require.NotNil(t, call)

	ok, _ := run(t, "`fmt.Println($x)`", src, value.SingleNode(call))
	assert.False(t, ok, "a call to a different function must not match")
}

// TestExecute_WithinMatchesAtBoundaryNode pins down the within.rs-derived
// fix: Pattern must be given a chance to match AT the until-boundary
// ancestor, not merely up to it. Until and Pattern are the same shape
// here (an if-statement), so the only ancestor where either could match
// is the innermost enclosing if — if Pattern is skipped there, Within
// incorrectly reports no match at all.
func TestExecute_WithinMatchesAtBoundaryNode(t *testing.T) {
	src := "package main\n\nfunc outer() {\n\tif true {\n\t\tif false {\n\t\t\tfmt.Println(\"a\")\n\t\t}\n\t}\n}\n"
	tree := parseGo(t, src)
	call := findNode(tree.Root(), `fmt.Println("a")`)
	require.NotNil(t, call, "fixture must contain the call expression")

	ok, _ := run(t,
		"within(`if $_ { $body }`, until `if $_ { $body }`)",
		src, value.SingleNode(call))
	assert.True(t, ok, "Pattern must be tested at the boundary ancestor before Until stops the climb")
}

// TestExecute_WithinStopsClimbingPastBoundary confirms Until still bounds
// the search: a Pattern shape that only matches an ancestor above the
// until-boundary must not be found, because the climb has to stop at
// the boundary before ever reaching it.
func TestExecute_WithinStopsClimbingPastBoundary(t *testing.T) {
	src := "package main\n\nfunc outer() {\n\tif true {\n\t\tif false {\n\t\t\tfmt.Println(\"a\")\n\t\t}\n\t}\n}\n"
	tree := parseGo(t, src)
	call := findNode(tree.Root(), `fmt.Println("a")`)
	require.NotNil(t, call)

	ok, _ := run(t,
		"within(`if true { $body }`, until `if false { $body }`)",
		src, value.SingleNode(call))
	assert.False(t, ok, "the outer if (condition true) is only reachable by climbing past the inner if (condition false), which Until must stop at first")
}
