package compiler

import (
	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/pattern"
)

// reservedMetavariables mirrors the global-scope slots declared in
// NewParser: assigning to these directly (outside of the matcher's own
// $program/$filename/$absolute_filename bindings) is a compile-time
// error per spec.md §7.1 "assignment to a reserved metavariable".
var reservedMetavariables = map[string]bool{
	"$program":            true,
	"$filename":           true,
	"$absolute_filename": true,
}

// checkTree walks the compiled Pattern IR enforcing the warnings of
// spec.md §7.2: a rewrite inside a `not` never takes effect since Not
// discards its clone; a Sequential with a step that is not
// Contains/File/Where is likely a mistake since nothing anchors that
// step to a traversal. No warning is emitted for `as`-style re-binding.
func (p *Parser) checkTree(n pattern.Node, insideNot bool) {
	if n == nil {
		return
	}
	switch t := n.(type) {
	case *pattern.Not:
		p.checkTree(t.Pattern, true)
		return
	case *pattern.Rewrite:
		if insideNot {
			p.addWarning(p.current, "rewrite %q inside `not` never applies; `not` always discards its clone", t.Name)
		}
		p.checkTree(t.Lhs, insideNot)
	case *pattern.And:
		for _, c := range t.Patterns {
			p.checkTree(c, insideNot)
		}
	case *pattern.Or:
		for _, c := range t.Patterns {
			p.checkTree(c, insideNot)
		}
	case *pattern.Any:
		for _, c := range t.Patterns {
			p.checkTree(c, insideNot)
		}
	case *pattern.Maybe:
		p.checkTree(t.Pattern, insideNot)
	case *pattern.If:
		p.checkTree(t.Then, insideNot)
		p.checkTree(t.Else, insideNot)
	case *pattern.Where:
		p.checkTree(t.Pattern, insideNot)
	case *pattern.Contains:
		p.checkTree(t.Pattern, insideNot)
	case *pattern.Within:
		p.checkTree(t.Pattern, insideNot)
	case *pattern.Some:
		p.checkTree(t.Pattern, insideNot)
	case *pattern.Every:
		p.checkTree(t.Pattern, insideNot)
	case *pattern.Sequential:
		unanchored := false
		for _, step := range t.Steps {
			switch step.Pattern.(type) {
			case *pattern.Contains, *pattern.File, *pattern.Where:
			default:
				unanchored = true
			}
		}
		if !insideNot && unanchored {
			p.addWarning(p.current, "top-level `sequential` steps are not wrapped in contains/file/where; each step runs against the same root node")
		}
	}
}

// checkFields reports AstNode field patterns with an empty field id,
// recursing through AstNode fields and And/Or/List children. Field
// names are not checked against the language's grammar; the language
// argument is only passed down the recursion.
func (p *Parser) checkFields(n pattern.Node, language lang.Language) {
	switch t := n.(type) {
	case *pattern.AstNode:
		for _, f := range t.Fields {
			if f.FieldID == "" {
				p.addError(p.current, "empty field id in pattern for sort %q", t.Sort)
			}
			p.checkFields(f.Pattern, language)
		}
	case *pattern.And:
		for _, c := range t.Patterns {
			p.checkFields(c, language)
		}
	case *pattern.Or:
		for _, c := range t.Patterns {
			p.checkFields(c, language)
		}
	case *pattern.List:
		for _, c := range t.Patterns {
			p.checkFields(c, language)
		}
	}
}

// validateBubbleParams enforces "duplicate bubble parameter" per
// spec.md §7.1: a Bubble's pattern definition must not declare the
// same parameter name twice in its own scope's variable slots.
func validateBubbleParams(defs []pattern.PatternDefinition) []*CompileError {
	var errs []*CompileError
	for _, d := range defs {
		seen := map[string]bool{}
		for _, param := range d.Params {
			if seen[param] {
				errs = append(errs, &CompileError{Message: "duplicate bubble parameter " + param + " in pattern " + d.Name})
			}
			seen[param] = true
		}
	}
	return errs
}
