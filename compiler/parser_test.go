package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/pattern"
)

func goLang(t *testing.T) lang.Language {
	t.Helper()
	l, ok := lang.Default.Get("go")
	require.True(t, ok, "go language must be registered")
	return l
}

func TestCompile_SimpleSnippet(t *testing.T) {
	defs, errs, _ := Compile("`fmt.Println($x)`", goLang(t), pattern.Options{})
	require.Empty(t, errs)
	require.NotNil(t, defs)
	assert.NotNil(t, defs.Entry)
}

func TestCompile_WhereAndRewrite(t *testing.T) {
	src := "`fmt.Println($x)` where $x <: `\"debug\"` => `fmt.Println(\"redacted\")`"
	defs, errs, _ := Compile(src, goLang(t), pattern.Options{})
	require.Empty(t, errs)
	rw, ok := defs.Entry.(*pattern.Rewrite)
	require.True(t, ok, "top-level entry must compile to a Rewrite node, got %T", defs.Entry)
	_, isWhere := rw.Lhs.(*pattern.Where)
	assert.True(t, isWhere, "rewrite lhs must carry the where-clause, got %T", rw.Lhs)
}

func TestCompile_RewriteWithoutWhereClause(t *testing.T) {
	// A bare backtick with an arrow is the normal, valid shape: make
	// sure the arrow doesn't require a where-clause to be present.
	defs, errs, _ := Compile("`fmt.Println($x)` => `log.Println($x)`", goLang(t), pattern.Options{})
	require.Empty(t, errs)
	_, ok := defs.Entry.(*pattern.Rewrite)
	assert.True(t, ok)
}

func TestCompile_UnexpectedTrailingToken(t *testing.T) {
	_, errs, _ := Compile("`fmt.Println($x)` garbage", goLang(t), pattern.Options{})
	require.NotEmpty(t, errs)
}

func TestCompile_OrAlternativesCompileToOr(t *testing.T) {
	defs, errs, _ := Compile("`fmt.Println($x)` or `log.Println($x)`", goLang(t), pattern.Options{})
	require.Empty(t, errs)
	_, ok := defs.Entry.(*pattern.Or)
	assert.True(t, ok, "expected Or node, got %T", defs.Entry)
}

func TestCompile_LimitPattern(t *testing.T) {
	defs, errs, _ := Compile("limit(2, `fmt.Println($x)`)", goLang(t), pattern.Options{})
	require.Empty(t, errs)
	lim, ok := defs.Entry.(*pattern.Limit)
	require.True(t, ok, "expected Limit node, got %T", defs.Entry)
	assert.EqualValues(t, 2, lim.N)
}

func TestCompile_RewriteInsideNotWarns(t *testing.T) {
	_, _, warnings := Compile("not (`fmt.Println($x)` => `log.Println($x)`)", goLang(t), pattern.Options{})
	require.NotEmpty(t, warnings, "a rewrite nested under not should produce a compile warning")
}

func TestCompile_FloatLiteral(t *testing.T) {
	defs, errs, _ := Compile("3.14", goLang(t), pattern.Options{})
	require.Empty(t, errs)
	f, ok := defs.Entry.(*pattern.FloatConstant)
	require.True(t, ok, "expected FloatConstant node, got %T", defs.Entry)
	assert.InDelta(t, 3.14, f.Value, 0.0000001)
}

func TestCompile_IntLiteralStaysInt(t *testing.T) {
	defs, errs, _ := Compile("314", goLang(t), pattern.Options{})
	require.Empty(t, errs)
	n, ok := defs.Entry.(*pattern.IntConstant)
	require.True(t, ok, "expected IntConstant node, got %T", defs.Entry)
	assert.EqualValues(t, 314, n.Value)
}
