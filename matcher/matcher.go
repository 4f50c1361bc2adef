// Package matcher implements the recursive executor for pattern and
// predicate nodes against resolved values (spec.md §4.4 "Matcher
// (core algorithm)"). This is the largest component by design (spec.md
// §2: 22% share) and the one place every other package's contract
// meets: ast.Node traversal, lang.Language per-language rules,
// gritstate.State mutation/cloning, and value.Value production.
//
// Grounded primarily on original_source/crates/core/src/pattern/
// {and,or,not,maybe,if}.rs for the exact clone/commit/short-circuit
// rules, and on _examples/vinodhalaharvi-stencil/matcher/matcher.go
// for the general shape of a Go matcher walking a host AST with
// bindings.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/diagnostics"
	"github.com/grit-lang/gritql/gritstate"
	"github.com/grit-lang/gritql/pattern"
	"github.com/grit-lang/gritql/value"
)

// Execute runs pattern p against resolved value v, mutating st in
// place on success. Callers needing rollback on failure (Any/Or/
// Maybe/Not/Where, and this function's own recursive calls into
// those) must clone st first — Execute itself never clones on behalf
// of its caller.
func Execute(p pattern.Node, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	switch n := p.(type) {
	case *pattern.Top:
		return true, nil
	case *pattern.Bottom:
		return false, nil
	case *pattern.Underscore:
		return true, nil
	case *pattern.Undefined:
		c, ok := v.(value.Constant)
		return ok && c.Kind == value.ConstUndefined, nil
	case *pattern.Dots:
		// Dots is only meaningful inside List's positional matcher;
		// matched directly it is a no-op success.
		return true, nil

	case *pattern.StringConstant:
		return textEquals(v, n.Value), nil
	case *pattern.IntConstant:
		c, ok := v.(value.Constant)
		return ok && c.Kind == value.ConstInt && c.Int == n.Value, nil
	case *pattern.FloatConstant:
		c, ok := v.(value.Constant)
		return ok && c.Kind == value.ConstFloat && c.Float == n.Value, nil
	case *pattern.BoolConstant:
		c, ok := v.(value.Constant)
		return ok && c.Kind == value.ConstBool && c.Bool == n.Value, nil

	case *pattern.Regex:
		return execRegex(n, v, st, ctx, logs)

	case *pattern.AstNode:
		return execAstNode(n, v, st, ctx, logs)
	case *pattern.AstLeafNode:
		return execAstLeafNode(n, v, ctx), nil
	case *pattern.List:
		return execList(n, v, st, ctx, logs)
	case *pattern.Map:
		return execMap(n, v, st, ctx, logs)
	case *pattern.ListIndex:
		return execListIndex(n, v, st, ctx, logs)
	case *pattern.Accessor:
		return execAccessor(n, v, st, ctx, logs)

	case *pattern.CodeSnippet:
		return execCodeSnippet(n, v, st, ctx, logs)

	case *pattern.Contains:
		return execContains(n, v, st, ctx, logs)
	case *pattern.Includes:
		return execIncludes(n, v, st, ctx, logs)
	case *pattern.Within:
		return execWithin(n, v, st, ctx, logs)
	case *pattern.After:
		return execAfter(n, v, st, ctx, logs)
	case *pattern.Before:
		return execBefore(n, v, st, ctx, logs)
	case *pattern.Some:
		return execSome(n, v, st, ctx, logs)
	case *pattern.Every:
		return execEvery(n, v, st, ctx, logs)
	case *pattern.Bubble:
		return execBubble(n, v, st, ctx, logs)

	case *pattern.And:
		return execAnd(n, v, st, ctx, logs)
	case *pattern.Or:
		return execOr(n, v, st, ctx, logs)
	case *pattern.Any:
		return execAny(n, v, st, ctx, logs)
	case *pattern.Not:
		return execNot(n, v, st, ctx, logs)
	case *pattern.Maybe:
		return execMaybe(n, v, st, ctx, logs)
	case *pattern.If:
		return execIf(n, v, st, ctx, logs)
	case *pattern.Where:
		return execWhere(n, v, st, ctx, logs)
	case *pattern.Sequential:
		return execSequential(n, v, st, ctx, logs)

	case *pattern.Variable:
		return execVariable(n, v, st), nil
	case *pattern.Assignment:
		return execAssignment(n, v, st, ctx, logs)
	case *pattern.Rewrite:
		return execRewrite(n, v, st, ctx, logs)
	case *pattern.Accumulate:
		return execAccumulate(n, v, st, ctx, logs)
	case *pattern.Match:
		ok1, err := Execute(n.Lhs, v, st, ctx, logs)
		if err != nil || !ok1 {
			return false, err
		}
		return Execute(n.Rhs, v, st, ctx, logs)
	case *pattern.Equal:
		return execEqual(n, v, st, ctx, logs)

	case *pattern.Call:
		return execCall(n, v, st, ctx, logs)
	case *pattern.CallFunction:
		return execCallFunction(n, v, st, ctx, logs)
	case *pattern.CallBuiltIn:
		return execCallBuiltin(n, v, st, ctx, logs)
	case *pattern.CallForeign:
		return execCallForeign(n, v, st, ctx, logs)

	case *pattern.Add, *pattern.Subtract, *pattern.Multiply, *pattern.Divide, *pattern.Modulo:
		return execArithmetic(n, v, st, ctx, logs)

	case *pattern.File:
		return execFile(n, v, st, ctx, logs)
	case *pattern.Files:
		return execFiles(n, v, st, ctx, logs)

	case *pattern.Range:
		return execRange(n, v), nil

	case *pattern.Log:
		return execLog(n, st, ctx, logs)
	case *pattern.Limit:
		return execLimit(n, v, st, ctx, logs)
	case *pattern.Like:
		return execLike(n, v, st, ctx, logs)
	}
	return false, fmt.Errorf("matcher: unhandled pattern node %T", p)
}

// PredicateResult is {truth, optional return value} (spec.md §3
// "Predicate IR").
type PredicateResult struct {
	Truth  bool
	Return *value.Value
}

// Evaluate implements evaluate(predicate, state, context, logs) per
// spec.md §4.4.
func Evaluate(p pattern.Predicate, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (PredicateResult, error) {
	switch n := p.(type) {
	case *pattern.PrTrue:
		return PredicateResult{Truth: true}, nil
	case *pattern.PrFalse:
		return PredicateResult{Truth: false}, nil

	case *pattern.PrAnd:
		for _, sub := range n.Predicates {
			res, err := Evaluate(sub, v, st, ctx, logs)
			if err != nil || !res.Truth {
				return res, err
			}
			if res.Return != nil {
				return res, nil
			}
		}
		return PredicateResult{Truth: true}, nil

	case *pattern.PrOr:
		for _, sub := range n.Predicates {
			clone := st.Clone()
			res, err := Evaluate(sub, v, clone, ctx, logs)
			if err != nil {
				return PredicateResult{}, err
			}
			if res.Truth || res.Return != nil {
				*st = *clone
				return res, nil
			}
		}
		return PredicateResult{Truth: false}, nil

	case *pattern.PrAny:
		anySucceeded := false
		cur := st
		for _, sub := range n.Predicates {
			clone := cur.Clone()
			res, err := Evaluate(sub, v, clone, ctx, logs)
			if err != nil {
				return PredicateResult{}, err
			}
			if res.Truth {
				anySucceeded = true
				*st = *clone
				cur = st
			}
		}
		return PredicateResult{Truth: anySucceeded}, nil

	case *pattern.PrNot:
		clone := st.Clone()
		res, err := Evaluate(n.Predicate, v, clone, ctx, logs)
		if err != nil {
			return PredicateResult{}, err
		}
		if res.Return != nil {
			return PredicateResult{}, fmt.Errorf("matcher: cannot return from within a not clause")
		}
		return PredicateResult{Truth: !res.Truth}, nil

	case *pattern.PrMaybe:
		clone := st.Clone()
		res, err := Evaluate(n.Predicate, v, clone, ctx, logs)
		if err != nil {
			return PredicateResult{}, err
		}
		if res.Truth {
			*st = *clone
		}
		return PredicateResult{Truth: true, Return: res.Return}, nil

	case *pattern.PrIf:
		clone := st.Clone()
		cond, err := Evaluate(n.Cond, v, clone, ctx, logs)
		if err != nil {
			return PredicateResult{}, err
		}
		if cond.Return != nil {
			return PredicateResult{}, fmt.Errorf("matcher: a predicate condition must not return a value")
		}
		if cond.Truth {
			*st = *clone
			return Evaluate(n.Then, v, st, ctx, logs)
		}
		if n.Else != nil {
			return Evaluate(n.Else, v, st, ctx, logs)
		}
		return PredicateResult{Truth: true}, nil

	case *pattern.PrMatch:
		ok, err := Execute(n.Lhs, v, st, ctx, logs)
		if err != nil || !ok {
			return PredicateResult{Truth: false}, err
		}
		ok2, err := Execute(n.Rhs, v, st, ctx, logs)
		return PredicateResult{Truth: ok2}, err

	case *pattern.PrEqual:
		ok, err := execEqualPred(n.Lhs, n.Rhs, v, st, ctx, logs)
		return PredicateResult{Truth: ok}, err

	case *pattern.PrRewrite:
		return execPrRewrite(n, v, st, ctx, logs)
	case *pattern.PrAssignment:
		ok, err := execAssignment(&pattern.Assignment{Container: n.Container, Pattern: n.Pattern}, v, st, ctx, logs)
		return PredicateResult{Truth: ok}, err
	case *pattern.PrAccumulate:
		ok, err := execAccumulate(&pattern.Accumulate{Lhs: n.Lhs, Rhs: n.Rhs, Name: n.Name}, v, st, ctx, logs)
		return PredicateResult{Truth: ok}, err
	case *pattern.PrCall:
		ok, err := execCall(&pattern.Call{DefinitionIndex: n.DefinitionIndex, Args: n.Args}, v, st, ctx, logs)
		return PredicateResult{Truth: ok}, err
	case *pattern.PrLog:
		ok, err := execLog(&pattern.Log{Message: n.Message}, st, ctx, logs)
		return PredicateResult{Truth: ok}, err
	case *pattern.PrReturn:
		val, err := resolveValuePattern(n.Value, v, st, ctx, logs)
		if err != nil {
			return PredicateResult{}, err
		}
		return PredicateResult{Truth: true, Return: &val}, nil
	}
	return PredicateResult{}, fmt.Errorf("matcher: unhandled predicate node %T", p)
}

// --- helpers ---

func nodeOf(v value.Value) (ast.Node, bool) {
	b, ok := v.(value.Binding)
	if !ok || len(b.Items) == 0 {
		return nil, false
	}
	item := b.Items[0]
	if item.Kind == value.BindNode && item.Node != nil {
		return item.Node, true
	}
	return nil, false
}

func textOf(v value.Value) string {
	switch t := v.(type) {
	case value.Binding:
		if len(t.Items) == 0 {
			return ""
		}
		return t.Items[0].Text()
	case value.Constant:
		return t.String()
	}
	return ""
}

func textEquals(v value.Value, s string) bool {
	return strings.TrimSpace(textOf(v)) == strings.TrimSpace(s)
}

func execRegex(n *pattern.Regex, v value.Value, st *gritstate.State, ctx *Context, logs *diagnostics.Logs) (bool, error) {
	text := textOf(v)
	re, err := regexp.Compile(n.Source)
	if err != nil {
		logs.Error("regex compile failure for %q: %v", n.Source, err)
		return false, nil
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return false, nil
	}
	for i, vref := range n.Variables {
		if i+1 >= len(m) {
			continue
		}
		addr := gritstate.VariableAddr{Scope: vref.Scope, Index: vref.Index}
		existing, ok := st.Get(addr)
		captured := m[i+1]
		if ok && existing.Value != nil {
			if strings.TrimSpace(textOf(*existing.Value)) != strings.TrimSpace(captured) {
				return false, nil
			}
			continue
		}
		st.Bind(addr, value.SingleConstant(value.Constant{Kind: value.ConstString, Str: captured}))
	}
	return true, nil
}
