package compiler

import (
	"github.com/grit-lang/gritql/pattern"
)

// parsePredicateOrExpr parses the predicate grammar that appears after
// `where` and inside `if (...)` conditions (spec.md §3 Predicate IR):
// boolean and/or/not over a set of leaf forms (equality, assignment,
// match, rewrite, accumulate, call, log, return, a bare pattern used
// as a truth test via Match against $match).
func (p *Parser) parsePredicateOrExpr() pattern.Predicate {
	lhs := p.parsePredicateAnd()
	var rest []pattern.Predicate
	for p.current.Kind == TokOr {
		p.nextToken()
		rest = append(rest, p.parsePredicateAnd())
	}
	if len(rest) == 0 {
		return lhs
	}
	return pattern.NewPrOr(append([]pattern.Predicate{lhs}, rest...))
}

func (p *Parser) parsePredicateAnd() pattern.Predicate {
	lhs := p.parsePredicateUnary()
	var rest []pattern.Predicate
	for p.current.Kind == TokAnd {
		p.nextToken()
		rest = append(rest, p.parsePredicateUnary())
	}
	if len(rest) == 0 {
		return lhs
	}
	return pattern.NewPrAnd(append([]pattern.Predicate{lhs}, rest...))
}

func (p *Parser) parsePredicateUnary() pattern.Predicate {
	switch p.current.Kind {
	case TokNot:
		p.nextToken()
		return pattern.NewPrNot(p.parsePredicateUnary())
	case TokMaybe:
		p.nextToken()
		p.expect(TokLParen, "(")
		inner := p.parsePredicateOrExpr()
		p.expect(TokRParen, ")")
		return pattern.NewPrMaybe(inner)
	case TokIf:
		p.nextToken()
		p.expect(TokLParen, "(")
		cond := p.parsePredicateOrExpr()
		p.expect(TokRParen, ")")
		then := p.parsePredicateUnary()
		var els pattern.Predicate = pattern.NewPrTrue()
		if p.current.Kind == TokElse {
			p.nextToken()
			els = p.parsePredicateUnary()
		}
		return pattern.NewPrIf(cond, then, els)
	case TokLParen:
		p.nextToken()
		inner := p.parsePredicateOrExpr()
		p.expect(TokRParen, ")")
		return inner
	}
	return p.parsePredicateLeaf()
}

// parsePredicateLeaf handles `lhs == rhs` (PrEqual), `lhs <: rhs`
// (PrMatch, also doubling as assignment when lhs is a bare metavariable
// per spec.md's "Assignment ... often surfaced via the `=` / `<:`
// binding forms"), and falls back to treating a bare pattern expression
// as an implicit match against $match (index 3 in the global scope).
func (p *Parser) parsePredicateLeaf() pattern.Predicate {
	lhs := p.parseOrExpr()
	switch p.current.Kind {
	case TokEq:
		p.nextToken()
		rhs := p.parseOrExpr()
		return pattern.NewPrEqual(lhs, rhs)
	case TokMatchOp:
		opTok := p.current
		p.nextToken()
		rhs := p.parseOrExpr()
		if v, ok := lhs.(*pattern.Variable); ok {
			p.rejectReservedAssignment(opTok, v.Addr.Name)
			return pattern.NewPrAssignment(pattern.NewVariable(v.Addr), rhs)
		}
		return pattern.NewPrMatch(lhs, rhs)
	case TokArrow:
		arrowTok := p.current
		p.rejectRawSnippetLHS(arrowTok, lhs)
		p.nextToken()
		rhsTok := p.current
		if rhsTok.Kind != TokBacktickSnippet {
			p.addError(rhsTok, "rewrite right-hand side must be a code snippet")
			return pattern.NewPrFalse()
		}
		p.nextToken()
		dyn := compileRewriteRHS(rhsTok.Text, p)
		return pattern.NewPrRewrite(lhs, dyn, "anonymous")
	}
	matchVar := pattern.VariableRef{Scope: 0, Index: 3, Name: "$match"}
	return pattern.NewPrMatch(pattern.NewVariable(matchVar), lhs)
}
