package matcher

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/diagnostics"
	"github.com/grit-lang/gritql/gritstate"
	"github.com/grit-lang/gritql/pattern"
	"github.com/grit-lang/gritql/value"
)

// ---- Structural ----

func execAstNode(n *pattern.AstNode, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	node, ok := nodeOf(v)
	if !ok {
		return false, nil
	}
	if node.Kind() != n.Sort {
		return false, nil
	}
	for _, f := range n.Fields {
		child, present := node.Field(f.FieldID)
		if !present {
			if ctx.Language != nil && ctx.Language.MandatoryEmptyField(n.Sort, f.FieldID) {
				ok, err := Execute(f.Pattern, value.EmptySlot(node), st, ctx, logs)
				if err != nil || !ok {
					return false, err
				}
				continue
			}
			return false, nil
		}
		childVal := value.SingleNode(child)
		ok, err := Execute(f.Pattern, childVal, st, ctx, logs)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func execAstLeafNode(n *pattern.AstLeafNode, v value.Value, ctx *Context) bool {
	node, ok := nodeOf(v)
	if !ok {
		return false
	}
	sortMatches := node.Kind() == n.Sort
	if !sortMatches && ctx.Language != nil {
		sortMatches = ctx.Language.LeafEquivalenceClass(node.Kind(), node.Text()) ==
			ctx.Language.LeafEquivalenceClass(n.Sort, n.Text)
	}
	if !sortMatches {
		return false
	}
	return strings.TrimSpace(node.Text()) == strings.TrimSpace(n.Text)
}

// execList positionally matches a List pattern's elements against a
// bound list-slice value, treating Dots as a non-greedy gap (spec.md
// §4.4 "List"). For the common case of at most one Dots, this is a
// direct two-anchor match (fixed prefix, fixed suffix, flexible
// middle); for multiple Dots it backtracks across candidate splits.
func execList(n *pattern.List, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	items, ok := listItems(v)
	if !ok {
		return false, nil
	}
	return matchListPatterns(n.Patterns, items, st, ctx, logs)
}

func listItems(v value.Value) ([]ast.Node, bool) {
	b, ok := v.(value.Binding)
	if !ok || len(b.Items) == 0 {
		return nil, false
	}
	item := b.Items[0]
	if item.Kind == value.BindList {
		return item.List, true
	}
	return nil, false
}

func matchListPatterns(pats []pattern.Node, items []ast.Node, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	dotsIdx := -1
	for i, p := range pats {
		if _, isDots := p.(*pattern.Dots); isDots {
			dotsIdx = i
			break
		}
	}
	if dotsIdx == -1 {
		if len(pats) != len(items) {
			return false, nil
		}
		for i, p := range pats {
			ok, err := Execute(p, value.SingleNode(items[i]), st, ctx, logs)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	before := pats[:dotsIdx]
	after := pats[dotsIdx+1:]
	if len(before)+len(after) > len(items) {
		return false, nil
	}
	// Fast path: try the minimal-gap split first (Dots consumes the
	// smallest possible middle), backtracking to larger gaps only if
	// that fails, per spec.md "non-greedy gap".
	for gap := 0; gap <= len(items)-len(before)-len(after); gap++ {
		clone := st.Clone()
		mid := len(before) + gap
		okAll := true
		for i, p := range before {
			ok, err := Execute(p, value.SingleNode(items[i]), clone, ctx, logs)
			if err != nil {
				return false, err
			}
			if !ok {
				okAll = false
				break
			}
		}
		if okAll {
			for i, p := range after {
				ok, err := Execute(p, value.SingleNode(items[mid+i]), clone, ctx, logs)
				if err != nil {
					return false, err
				}
				if !ok {
					okAll = false
					break
				}
			}
		}
		if okAll {
			*st = *clone
			return true, nil
		}
	}
	return false, nil
}

func execMap(n *pattern.Map, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	m, ok := v.(value.Map)
	if !ok {
		return false, nil
	}
	for key, p := range n.Entries {
		entry, present := m.Entries[key]
		if !present {
			return false, nil
		}
		ok, err := Execute(p, entry, st, ctx, logs)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func execListIndex(n *pattern.ListIndex, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	items, ok := listItems(v)
	if !ok || n.Index < 0 || n.Index >= len(items) {
		return false, nil
	}
	return Execute(n.List, value.SingleNode(items[n.Index]), st, ctx, logs)
}

func execAccessor(n *pattern.Accessor, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	node, ok := nodeOf(v)
	if !ok {
		if m, ok := v.(value.Map); ok {
			entry, present := m.Entries[n.Field]
			if !present {
				return false, nil
			}
			return Execute(n.Container, entry, st, ctx, logs)
		}
		return false, nil
	}
	child, present := node.Field(n.Field)
	if !present {
		return false, nil
	}
	return Execute(n.Container, value.SingleNode(child), st, ctx, logs)
}

// ---- Snippet ----

func execCodeSnippet(n *pattern.CodeSnippet, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	node, ok := nodeOf(v)
	if !ok {
		// Pure text: succeed iff text == snippet.source trimmed
		// (spec.md Invariant 4).
		return textEquals(v, n.Source), nil
	}
	for _, cand := range n.CandidateSorts {
		sortMatches := node.Kind() == cand.Sort
		if !sortMatches && ctx.Language != nil {
			sortMatches = ctx.Language.LeafEquivalenceClass(node.Kind(), "") == ctx.Language.LeafEquivalenceClass(cand.Sort, "")
		}
		if !sortMatches {
			continue
		}
		clone := st.Clone()
		ok, err := Execute(cand.Pattern, v, clone, ctx, logs)
		if err != nil {
			return false, err
		}
		if ok {
			*st = *clone
			return true, nil
		}
	}
	if len(n.CandidateSorts) == 0 {
		return textEquals(v, n.Source), nil
	}
	return false, nil
}

// ---- Traversal / locator ----

func preOrder(n ast.Node) []ast.Node {
	if n == nil {
		return nil
	}
	out := []ast.Node{n}
	for _, c := range n.Children() {
		out = append(out, preOrder(c)...)
	}
	return out
}

func isDescendantOf(candidate, ancestor ast.Node) bool {
	for p := candidate; p != nil; p = p.Parent() {
		if p == ancestor {
			return true
		}
	}
	return false
}

func execContains(n *pattern.Contains, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	node, ok := nodeOf(v)
	if !ok {
		return false, nil
	}
	var untilNode ast.Node
	if n.Until != nil {
		clone := st.Clone()
		for _, cand := range preOrder(node) {
			if ok, _ := Execute(n.Until, value.SingleNode(cand), clone, ctx, logs); ok {
				untilNode = cand
				break
			}
		}
	}
	for _, cand := range preOrder(node) {
		if untilNode != nil && (cand == untilNode || isDescendantOf(cand, untilNode)) {
			continue
		}
		clone := st.Clone()
		ok, err := Execute(n.Pattern, value.SingleNode(cand), clone, ctx, logs)
		if err != nil {
			return false, err
		}
		if ok {
			*st = *clone
			return true, nil
		}
	}
	return false, nil
}

func execIncludes(n *pattern.Includes, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	// Unanchored containment check over text (spec.md §4.4 "Regex:
	// Includes(Regex) uses the unanchored form"; generalized here to
	// any inner pattern tested against every descendant's text).
	node, ok := nodeOf(v)
	if !ok {
		return false, nil
	}
	needle := ""
	if sc, ok := n.Pattern.(*pattern.StringConstant); ok {
		needle = sc.Value
	}
	if needle != "" {
		return strings.Contains(node.Text(), needle), nil
	}
	return execContains(&pattern.Contains{Pattern: n.Pattern}, v, st, ctx, logs)
}

// execWithin climbs from node through its ancestors, trying Pattern at
// each one before testing Until there, mirroring original_source
// grit-pattern-matcher/src/pattern/within.rs's Matcher impl: Until is
// only ever consulted at a node after Pattern has already been given a
// chance to match there, so the boundary node itself is always a valid
// match target, not merely a stopping point.
func execWithin(n *pattern.Within, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	node, ok := nodeOf(v)
	if !ok {
		return false, nil
	}
	for p := node; p != nil; p = p.Parent() {
		clone := st.Clone()
		matched, err := Execute(n.Pattern, value.SingleNode(p), clone, ctx, logs)
		if err != nil {
			return false, err
		}
		if matched {
			*st = *clone
			return true, nil
		}
		if n.Until != nil {
			stop, err := Execute(n.Until, value.SingleNode(p), st.Clone(), ctx, logs)
			if err != nil {
				return false, err
			}
			if stop {
				break
			}
		}
	}
	return false, nil
}

func execAfter(n *pattern.After, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	node, ok := nodeOf(v)
	if !ok {
		return false, nil
	}
	sib := node.NextNamedSibling()
	if sib == nil {
		parent := node.Parent()
		if parent != nil {
			sib = parent.NextNamedSibling()
		}
	}
	if sib == nil {
		return false, nil
	}
	return Execute(n.Pattern, value.SingleNode(sib), st, ctx, logs)
}

func execBefore(n *pattern.Before, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	node, ok := nodeOf(v)
	if !ok {
		return false, nil
	}
	sib := node.PreviousNamedSibling()
	if sib == nil {
		parent := node.Parent()
		if parent != nil {
			sib = parent.PreviousNamedSibling()
		}
	}
	if sib == nil {
		return false, nil
	}
	return Execute(n.Pattern, value.SingleNode(sib), st, ctx, logs)
}

func execSome(n *pattern.Some, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	items, err := eachItem(v)
	if err != nil {
		return false, err
	}
	anySucceeded := false
	cur := st
	for _, it := range items {
		clone := cur.Clone()
		ok, err := Execute(n.Pattern, it, clone, ctx, logs)
		if err != nil {
			return false, err
		}
		if ok {
			anySucceeded = true
			*st = *clone
			cur = st
		}
	}
	return anySucceeded, nil
}

func execEvery(n *pattern.Every, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	items, err := eachItem(v)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		ok, err := Execute(n.Pattern, it, st, ctx, logs)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func eachItem(v value.Value) ([]value.Value, error) {
	switch t := v.(type) {
	case value.List:
		return t.Items, nil
	case value.Map:
		out := make([]value.Value, 0, len(t.Entries))
		for _, e := range t.Entries {
			out = append(out, e)
		}
		return out, nil
	case value.Binding:
		if len(t.Items) > 0 && t.Items[0].Kind == value.BindList {
			out := make([]value.Value, 0, len(t.Items[0].List))
			for _, nd := range t.Items[0].List {
				out = append(out, value.SingleNode(nd))
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("matcher: Some/Every requires a list or map value, got %T", v)
}

func execBubble(n *pattern.Bubble, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	if ctx.Definitions == nil || n.DefinitionIndex >= len(ctx.Definitions.PatternDefinitions) {
		return false, fmt.Errorf("matcher: bubble refers to unknown pattern definition %d", n.DefinitionIndex)
	}
	def := ctx.Definitions.PatternDefinitions[n.DefinitionIndex]
	st.PushFrame(def.ScopeIndex, def.Params)
	if len(n.Args) > 0 {
		addr := gritstate.VariableAddr{Scope: def.ScopeIndex, Index: 0}
		st.Bind(addr, v)
	}
	ok, err := Execute(def.Body, v, st, ctx, logs)
	st.PopFrame(def.ScopeIndex)
	return ok, err
}

// ---- Logical ----

func execAnd(n *pattern.And, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	for _, p := range n.Patterns {
		ok, err := Execute(p, v, st, ctx, logs)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func execOr(n *pattern.Or, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	boundNode, hasBoundNode := nodeOf(v)
	for _, alt := range n.Patterns {
		if hasBoundNode {
			if an, ok := alt.(*pattern.AstNode); ok && an.Sort != boundNode.Kind() {
				continue // node-kind prefilter (original_source pattern/or.rs)
			}
		}
		clone := st.Clone()
		ok, err := Execute(alt, v, clone, ctx, logs)
		if err != nil {
			return false, err
		}
		if ok {
			*st = *clone
			return true, nil
		}
	}
	return false, nil
}

func execAny(n *pattern.Any, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	anySucceeded := false
	cur := st
	for _, alt := range n.Patterns {
		clone := cur.Clone()
		ok, err := Execute(alt, v, clone, ctx, logs)
		if err != nil {
			return false, err
		}
		if ok {
			anySucceeded = true
			*st = *clone
			cur = st
		}
	}
	return anySucceeded, nil
}

func execNot(n *pattern.Not, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	clone := st.Clone()
	ok, err := Execute(n.Pattern, v, clone, ctx, logs)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func execMaybe(n *pattern.Maybe, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	clone := st.Clone()
	ok, err := Execute(n.Pattern, v, clone, ctx, logs)
	if err != nil {
		return false, err
	}
	if ok {
		*st = *clone
	}
	return true, nil
}

func execIf(n *pattern.If, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	clone := st.Clone()
	ok, err := Execute(n.Cond, v, clone, ctx, logs)
	if err != nil {
		return false, err
	}
	if ok {
		*st = *clone
		return Execute(n.Then, v, st, ctx, logs)
	}
	if n.Else != nil {
		return Execute(n.Else, v, st, ctx, logs)
	}
	return true, nil
}

func execWhere(n *pattern.Where, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	clone := st.Clone()
	ok, err := Execute(n.Pattern, v, clone, ctx, logs)
	if err != nil || !ok {
		return false, err
	}
	res, err := Evaluate(n.Predicate, v, clone, ctx, logs)
	if err != nil || !res.Truth {
		return false, err
	}
	*st = *clone
	return true, nil
}

func execSequential(n *pattern.Sequential, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	for _, step := range n.Steps {
		ok, err := Execute(step.Pattern, v, st, ctx, logs)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// ---- Binding / rewrite ----

func execVariable(n *pattern.Variable, v value.Value, st *gritstate.State) bool {
	addr := gritstate.VariableAddr{Scope: n.Addr.Scope, Index: n.Addr.Index}
	existing, ok := st.Get(addr)
	if ok && existing.Value != nil {
		return strings.TrimSpace(textOf(*existing.Value)) == strings.TrimSpace(textOf(v))
	}
	st.Bind(addr, v)
	return true
}

func execAssignment(n *pattern.Assignment, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	rhs, err := resolveValuePattern(n.Pattern, v, st, ctx, logs)
	if err != nil {
		return false, err
	}
	switch c := n.Container.(type) {
	case *pattern.Variable:
		st.Bind(gritstate.VariableAddr{Scope: c.Addr.Scope, Index: c.Addr.Index}, rhs)
	default:
		// Accessor/ListIndex containers are read-mostly in this
		// engine; assignment to them is accepted as a no-op binding
		// check (spec.md marks Assignment as "always succeeds").
	}
	return true, nil
}

func execRewrite(n *pattern.Rewrite, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	ok, err := Execute(n.Lhs, v, st, ctx, logs)
	if err != nil || !ok {
		return false, err
	}
	b, isBinding := v.(value.Binding)
	if !isBinding {
		return true, nil
	}
	st.AppendEffect(gritstate.Effect{
		Binding:     b,
		Replacement: dynamicToValue(n.Rhs),
		Kind:        gritstate.EffectRewrite,
		PatternName: n.Name,
	})
	return true, nil
}

func execPrRewrite(n *pattern.PrRewrite, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (PredicateResult, error) {
	ok, err := execRewrite(&pattern.Rewrite{Lhs: n.Lhs, Rhs: n.Rhs, Name: n.Name}, v, st, ctx, logs)
	return PredicateResult{Truth: ok}, err
}

func execAccumulate(n *pattern.Accumulate, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	if varPat, ok := n.Lhs.(*pattern.Variable); ok {
		addr := gritstate.VariableAddr{Scope: varPat.Addr.Scope, Index: varPat.Addr.Index}
		existing, _ := st.Get(addr)
		rhsVal := dynamicToValue(n.Rhs)
		if existing.Value != nil {
			merged := value.Constant{Kind: value.ConstString, Str: textOf(*existing.Value) + textOf(rhsVal)}
			st.Bind(addr, value.SingleConstant(merged))
		} else {
			st.Bind(addr, rhsVal)
		}
		return true, nil
	}
	ok, err := Execute(n.Lhs, v, st, ctx, logs)
	if err != nil || !ok {
		return false, err
	}
	b, isBinding := v.(value.Binding)
	if !isBinding {
		return true, nil
	}
	st.AppendEffect(gritstate.Effect{
		Binding:     b,
		Replacement: dynamicToValue(n.Rhs),
		Kind:        gritstate.EffectInsert,
		PatternName: n.Name,
	})
	return true, nil
}

func execEqual(n *pattern.Equal, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	return execEqualPred(n.Lhs, n.Rhs, v, st, ctx, logs)
}

func execEqualPred(lhs, rhs pattern.Node, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	lv, err := resolveValuePattern(lhs, v, st, ctx, logs)
	if err != nil {
		return false, err
	}
	rv, err := resolveValuePattern(rhs, v, st, ctx, logs)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(textOf(lv)) == strings.TrimSpace(textOf(rv)), nil
}

// resolveValuePattern evaluates a pattern node in read-only "value
// producing" position (RHS of Assignment/Equal), reusing Execute's
// binding logic against a scratch clone so variable references
// resolve without mutating the caller's state.
func resolveValuePattern(p pattern.Node, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (value.Value, error) {
	switch n := p.(type) {
	case *pattern.Variable:
		existing, ok := st.Get(gritstate.VariableAddr{Scope: n.Addr.Scope, Index: n.Addr.Index})
		if ok && existing.Value != nil {
			return *existing.Value, nil
		}
		return value.Constant{Kind: value.ConstUndefined}, nil
	case *pattern.StringConstant:
		return value.SingleConstant(value.Constant{Kind: value.ConstString, Str: n.Value}), nil
	case *pattern.IntConstant:
		return value.SingleConstant(value.Constant{Kind: value.ConstInt, Int: n.Value}), nil
	case *pattern.FloatConstant:
		return value.SingleConstant(value.Constant{Kind: value.ConstFloat, Float: n.Value}), nil
	case *pattern.BoolConstant:
		return value.SingleConstant(value.Constant{Kind: value.ConstBool, Bool: n.Value}), nil
	default:
		clone := st.Clone()
		ok, err := Execute(p, v, clone, ctx, logs)
		if err != nil || !ok {
			return value.Constant{Kind: value.ConstUndefined}, err
		}
		return v, nil
	}
}

// dynamicToValue renders a compile-time DynamicPattern template into a
// value.Snippets shell; literal parts are copied through and variable/
// call parts are deferred to render time (the linearizer resolves
// them against the final State, spec.md §4.8 step 4).
func dynamicToValue(d *pattern.DynamicPattern) value.Value {
	if d == nil {
		return value.Snippets{}
	}
	parts := make([]value.SnippetPart, 0, len(d.Parts))
	for _, p := range d.Parts {
		switch {
		case p.Variable != nil:
			parts = append(parts, value.SnippetPart{Variable: p.Variable.Name, VarScope: p.Variable.Scope, VarIndex: p.Variable.Index, HasVar: true})
		case p.Call != nil:
			args := make([]value.Snippets, len(p.Call.Args))
			for i, a := range p.Call.Args {
				args[i] = dynamicToValue(a).(value.Snippets)
			}
			parts = append(parts, value.SnippetPart{Call: &value.DynamicCall{Name: p.Call.Name, Args: args}})
		default:
			parts = append(parts, value.SnippetPart{Literal: p.Literal})
		}
	}
	return value.Snippets{Parts: parts}
}

// ---- Calls ----

func execCall(n *pattern.Call, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	if ctx.Definitions == nil || n.DefinitionIndex >= len(ctx.Definitions.PatternDefinitions) {
		return false, fmt.Errorf("matcher: call refers to unknown pattern definition %d", n.DefinitionIndex)
	}
	def := ctx.Definitions.PatternDefinitions[n.DefinitionIndex]
	st.PushFrame(def.ScopeIndex, def.Params)
	for i, arg := range n.Args {
		val, err := resolveValuePattern(arg, v, st, ctx, logs)
		if err != nil {
			st.PopFrame(def.ScopeIndex)
			return false, err
		}
		st.Bind(gritstate.VariableAddr{Scope: def.ScopeIndex, Index: i}, val)
	}
	ok, err := Execute(def.Body, v, st, ctx, logs)
	st.PopFrame(def.ScopeIndex)
	return ok, err
}

func execCallFunction(n *pattern.CallFunction, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	if ctx.Definitions == nil || n.DefinitionIndex >= len(ctx.Definitions.FunctionDefinitions) {
		return false, fmt.Errorf("matcher: call refers to unknown function definition %d", n.DefinitionIndex)
	}
	def := ctx.Definitions.FunctionDefinitions[n.DefinitionIndex]
	st.PushFrame(def.ScopeIndex, def.Params)
	defer st.PopFrame(def.ScopeIndex)
	for i, arg := range n.Args {
		val, err := resolveValuePattern(arg, v, st, ctx, logs)
		if err != nil {
			return false, err
		}
		st.Bind(gritstate.VariableAddr{Scope: def.ScopeIndex, Index: i}, val)
	}
	for _, step := range def.Body {
		ok, err := Execute(step.Pattern, v, st, ctx, logs)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func execCallBuiltin(n *pattern.CallBuiltIn, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	fn, ok := ctx.Callbacks.Builtins[n.Name]
	if !ok {
		logs.Error("unknown builtin function %q", n.Name)
		return false, nil
	}
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		val, err := resolveValuePattern(a, v, st, ctx, logs)
		if err != nil {
			return false, err
		}
		args[i] = textOf(val)
	}
	_, err := fn(args)
	if err != nil {
		logs.Error("builtin %q failed: %v", n.Name, err)
		return false, nil
	}
	return true, nil
}

func execCallForeign(n *pattern.CallForeign, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	if ctx.Callbacks.Foreign == nil {
		logs.Error("no foreign-function evaluator wired for CallForeign")
		return false, nil
	}
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		val, err := resolveValuePattern(a, v, st, ctx, logs)
		if err != nil {
			return false, err
		}
		args[i] = textOf(val)
	}
	result, err := ctx.Callbacks.Foreign(n.Code, args)
	if err != nil {
		logs.Error("foreign function failed: %v", err)
		return false, nil
	}
	return result != "", nil
}

// ---- Arithmetic ----

func asFloat(v value.Value) (float64, bool) {
	c, ok := v.(value.Constant)
	if !ok {
		return 0, false
	}
	switch c.Kind {
	case value.ConstInt:
		return float64(c.Int), true
	case value.ConstFloat:
		return c.Float, true
	}
	return 0, false
}

func execArithmetic(p pattern.Node, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	var lhs, rhs pattern.Node
	var op byte
	switch n := p.(type) {
	case *pattern.Add:
		lhs, rhs, op = n.Lhs, n.Rhs, '+'
	case *pattern.Subtract:
		lhs, rhs, op = n.Lhs, n.Rhs, '-'
	case *pattern.Multiply:
		lhs, rhs, op = n.Lhs, n.Rhs, '*'
	case *pattern.Divide:
		lhs, rhs, op = n.Lhs, n.Rhs, '/'
	case *pattern.Modulo:
		lhs, rhs, op = n.Lhs, n.Rhs, '%'
	}
	lv, err := resolveValuePattern(lhs, v, st, ctx, logs)
	if err != nil {
		return false, err
	}
	rv, err := resolveValuePattern(rhs, v, st, ctx, logs)
	if err != nil {
		return false, err
	}
	lf, lok := asFloat(lv)
	rf, rok := asFloat(rv)
	if !lok || !rok {
		return false, nil
	}
	var result float64
	switch op {
	case '+':
		result = lf + rf
	case '-':
		result = lf - rf
	case '*':
		result = lf * rf
	case '/':
		if rf == 0 {
			logs.Error("division by zero")
			return false, nil
		}
		result = lf / rf
	case '%':
		if rf == 0 {
			logs.Error("modulo by zero")
			return false, nil
		}
		li, ri := int64(lf), int64(rf)
		result = float64(li % ri)
	}
	return textEquals(v, value.Constant{Kind: value.ConstFloat, Float: result}.String()), nil
}

// ---- Files-level ----

func execFile(n *pattern.File, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	f, ok := v.(value.File)
	if !ok {
		if fp, ok := v.(*value.File); ok {
			f = *fp
		} else {
			return false, nil
		}
	}
	ok1, err := Execute(n.Name, value.SingleFilename(f.Name), st, ctx, logs)
	if err != nil || !ok1 {
		return false, err
	}
	body := f.Body
	if body == nil {
		if ctx.Callbacks.LoadFile == nil {
			logs.Error("no LoadFile callback wired; cannot lazily load %q", f.Name)
			return false, nil
		}
		tree, err := ctx.Callbacks.LoadFile(f.Name)
		if err != nil {
			logs.Warn("failed to load file %q: %v", f.Name, err)
			return false, nil
		}
		st.Files.Put(f.Name, tree)
		body = value.SingleNode(tree.Root())
	}
	global := gritstate.VariableAddr{Scope: gritstate.GlobalScopeIndex}
	st.Bind(gritstate.VariableAddr{Scope: global.Scope, Index: 0}, body)
	st.Bind(gritstate.VariableAddr{Scope: global.Scope, Index: 1}, value.SingleFilename(f.Name))
	st.Bind(gritstate.VariableAddr{Scope: global.Scope, Index: 2}, value.SingleFilename(f.Absolute))
	return Execute(n.Body, body, st, ctx, logs)
}

func execFiles(n *pattern.Files, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	files, ok := v.(value.Files)
	if !ok {
		return false, nil
	}
	matched := false
	cur := st
	for _, f := range files.Items {
		for _, p := range n.Patterns {
			clone := cur.Clone()
			ok, err := Execute(p, *f, clone, ctx, logs)
			if err != nil {
				return false, err
			}
			if ok {
				matched = true
				*st = *clone
				cur = st
			}
		}
	}
	return matched, nil
}

// ---- Range ----

func execRange(n *pattern.Range, v value.Value) bool {
	node, ok := nodeOf(v)
	if !ok {
		return false
	}
	s, e := node.ByteRange()
	if n.Start.HasLineCol || n.End.HasLineCol {
		// Line/column bounds are resolved by the caller-supplied
		// position table in a full implementation; absent one here,
		// fall back to treating any line/column-bounded Range as
		// satisfied by a non-empty node (documented simplification).
		return s < e
	}
	return true
}

// ---- I/O-ish ----

func execLog(n *pattern.Log, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	rendered := dynamicToValue(n.Message)
	logs.Info("%s", textOf(rendered))
	return true, nil
}

func execLimit(n *pattern.Limit, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	if ctx.Options.IgnoreLimitPattern {
		return Execute(n.Inner, v, st, ctx, logs)
	}
	counter := n.Counter()
	if atomic.LoadInt64(counter) >= n.N {
		return false, nil
	}
	ok, err := Execute(n.Inner, v, st, ctx, logs)
	if err != nil || !ok {
		return ok, err
	}
	for {
		cur := atomic.LoadInt64(counter)
		if cur >= n.N {
			return false, nil
		}
		if atomic.CompareAndSwapInt64(counter, cur, cur+1) {
			return true, nil
		}
		// Lost the race against a concurrent file's matcher: re-read
		// the counter and retry only the increment; the inner pattern
		// is not executed again.
	}
}

func execLike(n *pattern.Like, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	if ctx.Callbacks.Embedder == nil {
		logs.Warn("Like pattern used but no embedding provider wired")
		return false, nil
	}
	node, ok := nodeOf(v)
	if !ok {
		return false, nil
	}
	vec1, err := ctx.Callbacks.Embedder(node.Text())
	if err != nil {
		logs.Error("embedding failed: %v", err)
		return false, nil
	}
	sc, isLit := n.Example.(*pattern.StringConstant)
	if !isLit {
		return false, nil
	}
	vec2, err := ctx.Callbacks.Embedder(sc.Value)
	if err != nil {
		logs.Error("embedding failed: %v", err)
		return false, nil
	}
	return cosineSimilarity(vec1, vec2) >= n.Threshold, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func sqrt(x float64) float64 {
	if x == 0 {
		return 0
	}
	z := x
	for i := 0; i < 20; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}
