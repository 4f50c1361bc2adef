package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/pattern"
	"github.com/grit-lang/gritql/snippet"
)

// CompileError is a fatal compile-time error carrying source position,
// surfaced the way teacher's parser.Parser.addError accumulates
// "line %d, col %d: %s" strings (spec.md §7.1).
type CompileError struct {
	Line, Column int
	Message      string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("line %d, col %d: %s", e.Line, e.Column, e.Message)
}

// Warning is a non-fatal compile-time diagnostic (spec.md §7.2),
// always emitted at diagnostic level 441.
type Warning struct {
	Line, Column int
	Message      string
}

// Parser is a hand-written recursive-descent parser over the
// pattern-DSL token stream, mirroring teacher's Parser struct shape
// (currentToken/peekToken/errors, NewParser, nextToken, addError,
// expectToken).
type Parser struct {
	lex          *Lexer
	current      Token
	peek         Token
	errors       []*CompileError
	warnings     []*Warning
	lang         lang.Language

	// scopes[0] is the global scope (spec.md §3: $program, $filename,
	// $absolute_filename, $match at indices 0-3).
	scopes    [][]pattern.VariableSlot
	scopeVars []map[string]int // name -> index, one map per scope, mirrors variables.rs's `vars` map
	curScope  int
	scopeStack []int

	patternDefs   []pattern.PatternDefinition
	predicateDefs []pattern.PredicateDefinition
	functionDefs  []pattern.FunctionDefinition
	foreignDefs   []pattern.ForeignFunctionDefinition
}

func NewParser(source string, language lang.Language) *Parser {
	p := &Parser{lex: NewLexer(source), lang: language}
	p.scopes = [][]pattern.VariableSlot{{}}
	p.scopeVars = []map[string]int{{}}
	p.curScope = 0
	for _, name := range []string{"$program", "$filename", "$absolute_filename", "$match"} {
		p.declareVariable(0, name, 0, 0)
	}
	p.current = p.lex.Next()
	p.peek = p.lex.Next()
	return p
}

func (p *Parser) addError(tok Token, format string, args ...any) {
	p.errors = append(p.errors, &CompileError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)})
}

func (p *Parser) addWarning(tok Token, format string, args ...any) {
	p.warnings = append(p.warnings, &Warning{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)})
}

func (p *Parser) nextToken() {
	p.current = p.peek
	p.peek = p.lex.Next()
}

func (p *Parser) expect(kind TokenKind, what string) bool {
	if p.current.Kind != kind {
		p.addError(p.current, "expected %s, got %q", what, p.current.Text)
		return false
	}
	p.nextToken()
	return true
}

// pushScope allocates a fresh scope for a pattern/predicate/function
// definition or Bubble, returning its index (spec.md §4.3 "Compilation
// allocates a fresh scope for every pattern/predicate/function
// definition and every Bubble").
func (p *Parser) pushScope() int {
	p.scopes = append(p.scopes, []pattern.VariableSlot{})
	p.scopeVars = append(p.scopeVars, map[string]int{})
	idx := len(p.scopes) - 1
	p.scopeStack = append(p.scopeStack, p.curScope)
	p.curScope = idx
	return idx
}

func (p *Parser) popScope() {
	n := len(p.scopeStack)
	p.curScope = p.scopeStack[n-1]
	p.scopeStack = p.scopeStack[:n-1]
}

// declareVariable mirrors original_source/crates/core/src/variables.rs
// register_variable_optional_range: reuse an existing slot in the
// given scope by name if present (recording the new occurrence range),
// otherwise allocate a fresh one. Names starting with "$GLOBAL_" are
// forced into the global scope regardless of curScope.
func (p *Parser) declareVariable(scope int, name string, start, end int) pattern.VariableRef {
	if len(name) >= 8 && (name[:8] == "$GLOBAL_" || name[:8] == "^GLOBAL_") {
		scope = 0
	}
	if idx, ok := p.scopeVars[scope][name]; ok {
		p.scopes[scope][idx].Locations = append(p.scopes[scope][idx].Locations, pattern.SourceLocation{Start: start, End: end})
		return pattern.VariableRef{Scope: scope, Index: idx, Name: name}
	}
	idx := len(p.scopes[scope])
	p.scopes[scope] = append(p.scopes[scope], pattern.VariableSlot{
		Name:      name,
		Locations: []pattern.SourceLocation{{Start: start, End: end}},
	})
	p.scopeVars[scope][name] = idx
	return pattern.VariableRef{Scope: scope, Index: idx, Name: name}
}

func (p *Parser) variableRef(tok Token) pattern.VariableRef {
	return p.declareVariable(p.curScope, tok.Text, tok.Start, tok.End)
}

// rejectReservedAssignment enforces spec.md §7.1 "assignment to a
// reserved metavariable": $program/$filename/$absolute_filename are
// bound by the engine (grit.Execute and execFile), never by user
// pattern code.
func (p *Parser) rejectReservedAssignment(tok Token, name string) {
	if reservedMetavariables[name] {
		p.addError(tok, "%s is reserved and cannot be assigned to", name)
	}
}

// rejectRawSnippetLHS enforces spec.md §4.5 step 6: a code snippet with
// no surviving candidate sorts is "raw" (whether or not it contains
// metavariables) and
// produces no usable Pattern IR structure, so it cannot anchor the
// left-hand side of a rewrite.
func (p *Parser) rejectRawSnippetLHS(tok Token, n pattern.Node) {
	cs, ok := n.(*pattern.CodeSnippet)
	if !ok {
		return
	}
	if len(cs.CandidateSorts) == 0 {
		p.addError(tok, "raw snippet (no matched syntax) cannot be the left-hand side of a rewrite")
	}
}

// Compile runs the parser end to end, returning the compiled
// Definitions or the accumulated fatal errors (spec.md §7.1:
// compile-time errors are fatal; no matching is attempted).
func Compile(source string, language lang.Language, opts pattern.Options) (*pattern.Definitions, []*CompileError, []*Warning) {
	p := NewParser(source, language)
	entry := p.parseTopLevel()
	p.checkTree(entry, false)
	p.checkFields(entry, language)
	p.errors = append(p.errors, validateBubbleParams(p.patternDefs)...)
	if len(p.errors) > 0 {
		return nil, p.errors, p.warnings
	}
	return &pattern.Definitions{
		PatternDefinitions:         p.patternDefs,
		PredicateDefinitions:       p.predicateDefs,
		FunctionDefinitions:        p.functionDefs,
		ForeignFunctionDefinitions: p.foreignDefs,
		VariablesByScope:          p.scopes,
		Entry:                     entry,
	}, nil, p.warnings
}

// parseTopLevel parses a single top-level pattern expression, optionally
// followed by `where predicate` and/or `=> snippet` (spec.md concrete
// scenarios 1-6 cover exactly this surface: a pattern, an optional
// where-clause, an optional rewrite arrow).
func (p *Parser) parseTopLevel() pattern.Node {
	lhs := p.parseOrExpr()
	if p.current.Kind == TokWhere {
		p.nextToken()
		pred := p.parsePredicateOrExpr()
		lhs = pattern.NewWhere(lhs, pred)
	}
	if p.current.Kind == TokArrow {
		arrowTok := p.current
		p.rejectRawSnippetLHS(arrowTok, lhs)
		p.nextToken()
		rhsTok := p.current
		if rhsTok.Kind != TokBacktickSnippet {
			p.addError(arrowTok, "rewrite right-hand side must be a code snippet")
			return lhs
		}
		p.nextToken()
		dyn := compileRewriteRHS(rhsTok.Text, p)
		name := "anonymous"
		return pattern.NewRewrite(lhs, dyn, name)
	}
	if p.current.Kind != TokEOF {
		p.addError(p.current, "unexpected trailing token %q", p.current.Text)
	}
	return lhs
}

func compileRewriteRHS(text string, p *Parser) *pattern.DynamicPattern {
	cs, err := snippet.Compile(text, p.lang, func(name string) pattern.VariableRef {
		return p.variableRef(Token{Text: name})
	})
	if err != nil {
		p.addError(p.current, "failed to compile rewrite snippet: %v", err)
		return &pattern.DynamicPattern{Parts: []pattern.DynamicPart{{Literal: text}}}
	}
	return cs.DynamicSnippet
}

// parseOrExpr / parseAndExpr implement the usual precedence climb:
// `or` binds looser than `and`, both looser than a unary `not` or
// primary pattern.
func (p *Parser) parseOrExpr() pattern.Node {
	lhs := p.parseAndExpr()
	var alts []pattern.Node
	for p.current.Kind == TokOr {
		p.nextToken()
		alts = append(alts, p.parseAndExpr())
	}
	if len(alts) == 0 {
		return lhs
	}
	return pattern.NewOr(append([]pattern.Node{lhs}, alts...))
}

func (p *Parser) parseAndExpr() pattern.Node {
	lhs := p.parseUnary()
	var rest []pattern.Node
	for p.current.Kind == TokAnd {
		p.nextToken()
		rest = append(rest, p.parseUnary())
	}
	if len(rest) == 0 {
		return lhs
	}
	return pattern.NewAnd(append([]pattern.Node{lhs}, rest...))
}

func (p *Parser) parseUnary() pattern.Node {
	switch p.current.Kind {
	case TokNot:
		p.nextToken()
		return pattern.NewNot(p.parseUnary())
	case TokMaybe:
		p.nextToken()
		p.expect(TokLParen, "(")
		inner := p.parseOrExpr()
		p.expect(TokRParen, ")")
		return pattern.NewMaybe(inner)
	case TokContains:
		p.nextToken()
		p.expect(TokLParen, "(")
		inner := p.parseOrExpr()
		var until pattern.Node
		if p.current.Kind == TokComma {
			p.nextToken()
			if p.expect(TokUntil, "until") {
				until = p.parseOrExpr()
			}
		}
		p.expect(TokRParen, ")")
		return pattern.NewContains(inner, until)
	case TokWithin:
		p.nextToken()
		p.expect(TokLParen, "(")
		inner := p.parseOrExpr()
		var until pattern.Node
		if p.current.Kind == TokComma {
			p.nextToken()
			if p.expect(TokUntil, "until") {
				until = p.parseOrExpr()
			}
		}
		p.expect(TokRParen, ")")
		return pattern.NewWithin(inner, until)
	case TokIncludes:
		p.nextToken()
		p.expect(TokLParen, "(")
		inner := p.parseOrExpr()
		p.expect(TokRParen, ")")
		return pattern.NewIncludes(inner)
	case TokSome:
		p.nextToken()
		p.expect(TokLParen, "(")
		inner := p.parseOrExpr()
		p.expect(TokRParen, ")")
		return pattern.NewSome(inner)
	case TokEvery:
		p.nextToken()
		p.expect(TokLParen, "(")
		inner := p.parseOrExpr()
		p.expect(TokRParen, ")")
		return pattern.NewEvery(inner)
	case TokFile:
		return p.parseFilePattern()
	case TokAny:
		p.nextToken()
		p.expect(TokLParen, "(")
		var alts []pattern.Node
		alts = append(alts, p.parseOrExpr())
		for p.current.Kind == TokComma {
			p.nextToken()
			alts = append(alts, p.parseOrExpr())
		}
		p.expect(TokRParen, ")")
		return pattern.NewAny(alts)
	case TokIf:
		p.nextToken()
		p.expect(TokLParen, "(")
		cond := p.parsePredicateOrExpr()
		p.expect(TokRParen, ")")
		then := p.parseUnary()
		var els pattern.Node
		if p.current.Kind == TokElse {
			p.nextToken()
			els = p.parseUnary()
		}
		return pattern.NewIf(cond, then, els)
	case TokLimit:
		p.nextToken()
		p.expect(TokLParen, "(")
		nTok := p.current
		p.expect(TokNumber, "number")
		p.expect(TokComma, ",")
		inner := p.parseOrExpr()
		p.expect(TokRParen, ")")
		n := p.parseLimitCount(nTok)
		return pattern.NewLimit(inner, n)
	}
	return p.parsePrimary()
}

func (p *Parser) parseFilePattern() pattern.Node {
	p.nextToken() // consume "file"
	p.expect(TokLParen, "(")
	name := p.parseOrExpr()
	var body pattern.Node = pattern.NewUnderscore()
	if p.current.Kind == TokComma {
		p.nextToken()
		body = p.parseOrExpr()
	}
	p.expect(TokRParen, ")")
	return pattern.NewFile(name, body)
}

func (p *Parser) parsePrimary() pattern.Node {
	switch p.current.Kind {
	case TokBacktickSnippet:
		text := p.current.Text
		p.nextToken()
		cs, err := snippet.Compile(text, p.lang, func(name string) pattern.VariableRef {
			return p.variableRef(Token{Text: name})
		})
		if err != nil {
			p.addError(p.current, "failed to compile snippet: %v", err)
			return pattern.NewBottom()
		}
		return cs
	case TokMetavar:
		tok := p.current
		p.nextToken()
		if tok.Text == "$_" {
			return pattern.NewUnderscore()
		}
		return pattern.NewVariable(p.variableRef(tok))
	case TokString:
		v := p.current.Text
		p.nextToken()
		return pattern.NewStringConstant(v)
	case TokNumber:
		tok := p.current
		p.nextToken()
		return p.parseNumericConstant(tok)
	case TokLParen:
		p.nextToken()
		inner := p.parseOrExpr()
		if p.current.Kind == TokArrow {
			arrowTok := p.current
			p.rejectRawSnippetLHS(arrowTok, inner)
			p.nextToken()
			if p.current.Kind != TokBacktickSnippet {
				p.addError(arrowTok, "rewrite right-hand side must be a code snippet")
			} else {
				rhsText := p.current.Text
				p.nextToken()
				inner = pattern.NewRewrite(inner, compileRewriteRHS(rhsText, p), "anonymous")
			}
		}
		p.expect(TokRParen, ")")
		return inner
	case TokIdent:
		if p.current.Text == "undefined" {
			p.nextToken()
			return pattern.NewUndefined()
		}
		p.addError(p.current, "unexpected identifier %q in pattern position", p.current.Text)
		p.nextToken()
		return pattern.NewBottom()
	default:
		p.addError(p.current, "unexpected token %q", p.current.Text)
		p.nextToken()
		return pattern.NewBottom()
	}
}

// parseNumericConstant turns a TokNumber's lexeme (scanned greedily
// over digits and '.'; a lexeme with more than one '.' fails ParseFloat
// and is reported as an invalid float literal) into an IntConstant or FloatConstant
// (spec.md §3 Constant), the way original_source's literal parsing
// picks the narrower numeric type unless a decimal point is present.
func (p *Parser) parseNumericConstant(tok Token) pattern.Node {
	if strings.Contains(tok.Text, ".") {
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			p.addError(tok, "invalid float literal %q: %v", tok.Text, err)
			return pattern.NewFloatConstant(0)
		}
		return pattern.NewFloatConstant(f)
	}
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		p.addError(tok, "invalid integer literal %q: %v", tok.Text, err)
		return pattern.NewIntConstant(0)
	}
	return pattern.NewIntConstant(n)
}

// parseLimitCount parses limit(...)'s first argument, which must be a
// whole number: a fractional match count has no meaning (spec.md §4.4
// "Limit(n)").
func (p *Parser) parseLimitCount(tok Token) int64 {
	if strings.Contains(tok.Text, ".") {
		p.addError(tok, "limit(...) count must be a whole number, got %q", tok.Text)
		return 0
	}
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		p.addError(tok, "invalid limit count %q: %v", tok.Text, err)
		return 0
	}
	return n
}
