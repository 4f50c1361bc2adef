package snippet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/pattern"
)

func resolver(name string) pattern.VariableRef {
	return pattern.VariableRef{Scope: 1, Index: 0, Name: name}
}

func TestCompile_FindsCoveringCallExpr(t *testing.T) {
	goLang, ok := lang.Default.Get("go")
	require.True(t, ok)

	cs, err := Compile("fmt.Println($x)", goLang, resolver)
	require.NoError(t, err)
	require.NotEmpty(t, cs.CandidateSorts, "expected at least one snippet context to parse the fragment")

	var sorts []string
	for _, c := range cs.CandidateSorts {
		sorts = append(sorts, c.Sort)
	}
	assert.Contains(t, sorts, "call_expr")
}

func TestCompile_DynamicPartsSplitOnMetavariable(t *testing.T) {
	goLang, ok := lang.Default.Get("go")
	require.True(t, ok)

	cs, err := Compile("fmt.Println($x)", goLang, resolver)
	require.NoError(t, err)
	require.NotNil(t, cs.DynamicSnippet)

	var sawVariable bool
	for _, part := range cs.DynamicSnippet.Parts {
		if part.Variable != nil {
			sawVariable = true
			assert.Equal(t, "$x", part.Variable.Name)
		}
	}
	assert.True(t, sawVariable, "dynamic snippet should carry a Variable part for $x")
}

func TestCompile_DotsBecomesDotsPattern(t *testing.T) {
	goLang, ok := lang.Default.Get("go")
	require.True(t, ok)

	cs, err := Compile("fmt.Println($...)", goLang, resolver)
	require.NoError(t, err)
	require.NotEmpty(t, cs.CandidateSorts)
}
