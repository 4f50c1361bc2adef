// Package snippet implements the six-step snippet compiler (spec.md
// §4.5 "Snippet compiler (C7)"): turning example code plus a
// metavariable vocabulary into a CodeSnippet pattern with one
// candidate structural pattern per snippet context that parses.
//
// Grounded on _examples/vinodhalaharvi-stencil/grammar/grammar.go's
// $Ident metavariable convention (adapted here to a textual pre-pass
// since the host parsers, go/parser and goldmark, cannot be taught a
// new token kind) and on original_source/crates/core/src/marzano_code_snippet.rs.
package snippet

import (
	"fmt"
	"strings"

	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/pattern"
)

// VariableResolver maps a metavariable name (e.g. "$x") to the
// compiled VariableRef the surrounding compiler allocated for it.
type VariableResolver func(name string) pattern.VariableRef

// Compile implements spec.md §4.5 steps 1-5 (step 6, rejecting raw
// snippets on the LHS, is enforced by the compiler package before
// calling Compile).
func Compile(source string, language lang.Language, resolve VariableResolver) (*pattern.CodeSnippet, error) {
	substituted, placeholders := language.SubstituteMetavariablePrefix(source)

	var candidates []pattern.CandidateSort
	seenSorts := map[string]bool{}

	for _, sctx := range language.SnippetContexts() {
		full := sctx.Prefix + substituted + sctx.Suffix
		tree, err := language.Producer().Parse("snippet.grit", full)
		if err != nil && tree == nil {
			continue
		}
		if tree == nil || tree.Root() == nil {
			continue
		}
		offset := len(sctx.Prefix)
		covering := findCovering(tree.Root(), offset, offset+len(substituted))
		if covering == nil {
			continue
		}
		if covering.Kind() == "bad_decl" || covering.Kind() == "error" {
			continue
		}
		if seenSorts[covering.Kind()] {
			continue
		}
		lifted := lift(covering, placeholders, resolve)
		candidates = append(candidates, pattern.CandidateSort{Sort: covering.Kind(), Pattern: lifted})
		seenSorts[covering.Kind()] = true
	}

	dyn := compileDynamic(source, placeholders, resolve)
	return pattern.NewCodeSnippet(source, candidates, dyn), nil
}

// findCovering returns the smallest node whose byte range fully
// contains [start,end), preferring a named child over its parent when
// both cover the range exactly (spec.md step 3 "take the subtree(s)
// covered by the snippet's byte range").
func findCovering(n ast.Node, start, end int) ast.Node {
	s, e := n.ByteRange()
	if s > start || e < end {
		return nil
	}
	for _, c := range n.Children() {
		if found := findCovering(c, start, end); found != nil {
			return found
		}
	}
	if s == start && e == end {
		return n
	}
	if s <= start && e >= end {
		return n
	}
	return nil
}

// lift recursively turns a matched subtree into Pattern IR: node
// kind/fields become an AstNode pattern, leaves become AstLeafNode,
// and placeholder identifiers become Variable references back to the
// declared metavariable (spec.md step 4).
func lift(n ast.Node, placeholders map[string]string, resolve VariableResolver) pattern.Node {
	if mv, ok := matchesPlaceholder(n.Text(), placeholders); ok {
		if mv == "$..." {
			return pattern.NewDots()
		}
		return pattern.NewVariable(resolve(mv))
	}
	children := n.NamedChildren()
	if len(children) == 0 {
		return pattern.NewAstLeafNode(n.Kind(), n.Text(), n.Kind())
	}
	fields := make([]pattern.FieldPattern, 0, len(children))
	for i, c := range children {
		fields = append(fields, pattern.FieldPattern{
			FieldID: fmt.Sprintf("%d", i),
			Pattern: lift(c, placeholders, resolve),
		})
	}
	return pattern.NewAstNode(n.Kind(), fields)
}

func matchesPlaceholder(text string, placeholders map[string]string) (string, bool) {
	mv, ok := placeholders[strings.TrimSpace(text)]
	return mv, ok
}

// compileDynamic builds the RHS-rendering template by re-running the
// placeholder substitution in reverse: literal runs of source text
// interleaved with Variable references, used when this snippet appears
// as a Rewrite/Accumulate rhs (spec.md Glossary "Dynamic pattern").
func compileDynamic(source string, placeholders map[string]string, resolve VariableResolver) *pattern.DynamicPattern {
	// placeholders maps placeholder -> original "$name" text; invert
	// it so we can scan `source` for the original token text.
	var parts []pattern.DynamicPart
	rest := source
	for rest != "" {
		idx, tok := nextMetavar(rest, placeholders)
		if idx < 0 {
			parts = append(parts, pattern.DynamicPart{Literal: rest})
			break
		}
		if idx > 0 {
			parts = append(parts, pattern.DynamicPart{Literal: rest[:idx]})
		}
		ref := resolve(tok)
		parts = append(parts, pattern.DynamicPart{Variable: &ref})
		rest = rest[idx+len(tok):]
	}
	return &pattern.DynamicPattern{Parts: parts}
}

func nextMetavar(s string, placeholders map[string]string) (int, string) {
	best := -1
	bestTok := ""
	for _, orig := range placeholders {
		if i := strings.Index(s, orig); i >= 0 && (best == -1 || i < best) {
			best = i
			bestTok = orig
		}
	}
	return best, bestTok
}
