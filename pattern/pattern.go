// Package pattern implements the compiled Pattern IR and Predicate IR
// (spec.md §3 "Pattern IR (C3)"). The IR is a closed tagged union;
// per spec.md §9 "Polymorphism over the Pattern sum" an
// interface-per-variant design is acceptable because the matcher's
// dispatch table (matcher.Execute's type switch) is statically known.
//
// Grounded on original_source/crates/core/src/pattern/*.rs, one
// struct per file in that directory, and on teacher's models/aql.go
// tagged-statement-with-json/yaml-tags style for the definitions
// container below.
package pattern

// Node is the Pattern IR marker interface.
type Node interface {
	isPattern()
	// String names the variant for diagnostics/tests.
	String() string
}

// Predicate is the parallel Predicate IR marker interface (spec.md §3
// "Predicate IR").
type Predicate interface {
	isPredicate()
	String() string
}

type base struct{ name string }

func (b base) isPattern()     {}
func (b base) String() string { return b.name }

type predBase struct{ name string }

func (b predBase) isPredicate()  {}
func (b predBase) String() string { return b.name }

// ---- Literal / atom ----

type Top struct{ base }
type Bottom struct{ base }
type Underscore struct{ base }
type Dots struct{ base }
type Undefined struct{ base }

func NewTop() *Top               { return &Top{base{"Top"}} }
func NewBottom() *Bottom         { return &Bottom{base{"Bottom"}} }
func NewUnderscore() *Underscore { return &Underscore{base{"Underscore"}} }
func NewDots() *Dots             { return &Dots{base{"Dots"}} }
func NewUndefined() *Undefined   { return &Undefined{base{"Undefined"}} }

type StringConstant struct {
	base
	Value string
}

func NewStringConstant(v string) *StringConstant { return &StringConstant{base{"StringConstant"}, v} }

type IntConstant struct {
	base
	Value int64
}

func NewIntConstant(v int64) *IntConstant { return &IntConstant{base{"IntConstant"}, v} }

type FloatConstant struct {
	base
	Value float64
}

func NewFloatConstant(v float64) *FloatConstant { return &FloatConstant{base{"FloatConstant"}, v} }

type BoolConstant struct {
	base
	Value bool
}

func NewBoolConstant(v bool) *BoolConstant { return &BoolConstant{base{"BoolConstant"}, v} }

type Regex struct {
	base
	Source     string
	Variables  []VariableRef // capture-group bindings, positional
}

func NewRegex(source string, vars []VariableRef) *Regex {
	return &Regex{base{"Regex"}, source, vars}
}

// ---- Structural ----

type FieldPattern struct {
	FieldID  string
	Multiple bool
	Pattern  Node
}

type AstNode struct {
	base
	Sort   string
	Fields []FieldPattern
}

func NewAstNode(sort string, fields []FieldPattern) *AstNode {
	return &AstNode{base{"AstNode"}, sort, fields}
}

type AstLeafNode struct {
	base
	Sort             string
	Text             string
	EquivalenceClass string
}

func NewAstLeafNode(sort, text, eq string) *AstLeafNode {
	return &AstLeafNode{base{"AstLeafNode"}, sort, text, eq}
}

type List struct {
	base
	Patterns []Node
}

func NewList(patterns []Node) *List { return &List{base{"List"}, patterns} }

type Map struct {
	base
	Entries map[string]Node
}

func NewMap(entries map[string]Node) *Map { return &Map{base{"Map"}, entries} }

type ListIndex struct {
	base
	List  Node
	Index int
}

func NewListIndex(l Node, idx int) *ListIndex { return &ListIndex{base{"ListIndex"}, l, idx} }

type Accessor struct {
	base
	Container Node
	Field     string
}

func NewAccessor(c Node, field string) *Accessor { return &Accessor{base{"Accessor"}, c, field} }

// ---- Snippet ----

type CandidateSort struct {
	Sort    string
	Pattern Node
}

type CodeSnippet struct {
	base
	Source         string
	CandidateSorts []CandidateSort
	DynamicSnippet *DynamicPattern
}

func NewCodeSnippet(source string, candidates []CandidateSort, dyn *DynamicPattern) *CodeSnippet {
	return &CodeSnippet{base{"CodeSnippet"}, source, candidates, dyn}
}

// ---- Traversal / locator ----

type Contains struct {
	base
	Pattern Node
	Until   Node // nil if absent
}

func NewContains(p, until Node) *Contains { return &Contains{base{"Contains"}, p, until} }

type Includes struct {
	base
	Pattern Node
}

func NewIncludes(p Node) *Includes { return &Includes{base{"Includes"}, p} }

type Within struct {
	base
	Pattern Node
	Until   Node
}

func NewWithin(p, until Node) *Within { return &Within{base{"Within"}, p, until} }

type After struct {
	base
	Pattern Node
}

func NewAfter(p Node) *After { return &After{base{"After"}, p} }

type Before struct {
	base
	Pattern Node
}

func NewBefore(p Node) *Before { return &Before{base{"Before"}, p} }

type Some struct {
	base
	Pattern Node
}

func NewSome(p Node) *Some { return &Some{base{"Some"}, p} }

type Every struct {
	base
	Pattern Node
}

func NewEvery(p Node) *Every { return &Every{base{"Every"}, p} }

// Bubble runs an inner pattern-definition call in a fresh scope
// (spec.md §4.4 "Bubble").
type Bubble struct {
	base
	DefinitionIndex int
	Args            []Node
}

func NewBubble(defIdx int, args []Node) *Bubble { return &Bubble{base{"Bubble"}, defIdx, args} }

// ---- Logical ----

type And struct {
	base
	Patterns []Node
}

func NewAnd(patterns []Node) *And { return &And{base{"And"}, patterns} }

type Or struct {
	base
	Patterns []Node
}

func NewOr(patterns []Node) *Or { return &Or{base{"Or"}, patterns} }

type Any struct {
	base
	Patterns []Node
}

func NewAny(patterns []Node) *Any { return &Any{base{"Any"}, patterns} }

type Not struct {
	base
	Pattern Node
}

func NewNot(p Node) *Not { return &Not{base{"Not"}, p} }

type Maybe struct {
	base
	Pattern Node
}

func NewMaybe(p Node) *Maybe { return &Maybe{base{"Maybe"}, p} }

type If struct {
	base
	Cond Node
	Then Node
	Else Node
}

func NewIf(cond, then, els Node) *If { return &If{base{"If"}, cond, then, els} }

type Where struct {
	base
	Pattern   Node
	Predicate Predicate
}

func NewWhere(p Node, pred Predicate) *Where { return &Where{base{"Where"}, p, pred} }

type Step struct {
	Pattern Node
}

type Sequential struct {
	base
	Steps []Step
}

func NewSequential(steps []Step) *Sequential { return &Sequential{base{"Sequential"}, steps} }

// ---- Binding / rewrite ----

type VariableRef struct {
	Scope, Index int
	Name         string // retained for diagnostics
}

type Variable struct {
	base
	Addr VariableRef
}

func NewVariable(addr VariableRef) *Variable { return &Variable{base{"Variable"}, addr} }

type Assignment struct {
	base
	Container Node // Variable, Accessor, or ListIndex
	Pattern   Node
}

func NewAssignment(container, p Node) *Assignment { return &Assignment{base{"Assignment"}, container, p} }

type Rewrite struct {
	base
	Lhs  Node
	Rhs  *DynamicPattern
	Name string // pattern name, used by suppress for grit-ignore:name
}

func NewRewrite(lhs Node, rhs *DynamicPattern, name string) *Rewrite {
	return &Rewrite{base{"Rewrite"}, lhs, rhs, name}
}

type Accumulate struct {
	base
	Lhs  Node
	Rhs  *DynamicPattern
	Name string
}

func NewAccumulate(lhs Node, rhs *DynamicPattern, name string) *Accumulate {
	return &Accumulate{base{"Accumulate"}, lhs, rhs, name}
}

type Match struct {
	base
	Lhs Node
	Rhs Node
}

func NewMatch(lhs, rhs Node) *Match { return &Match{base{"Match"}, lhs, rhs} }

type Equal struct {
	base
	Lhs Node
	Rhs Node
}

func NewEqual(lhs, rhs Node) *Equal { return &Equal{base{"Equal"}, lhs, rhs} }

// ---- Calls ----

type Call struct {
	base
	DefinitionIndex int
	Args            []Node
}

func NewCall(defIdx int, args []Node) *Call { return &Call{base{"Call"}, defIdx, args} }

type CallFunction struct {
	base
	DefinitionIndex int
	Args            []Node
}

func NewCallFunction(defIdx int, args []Node) *CallFunction {
	return &CallFunction{base{"CallFunction"}, defIdx, args}
}

type CallBuiltIn struct {
	base
	Name string
	Args []Node
}

func NewCallBuiltIn(name string, args []Node) *CallBuiltIn {
	return &CallBuiltIn{base{"CallBuiltIn"}, name, args}
}

// CallForeign invokes a sandboxed evaluator (backed by google/cel-go,
// see builtin.CELForeign) with raw code bytes plus string args.
type CallForeign struct {
	base
	Code string
	Args []Node
}

func NewCallForeign(code string, args []Node) *CallForeign {
	return &CallForeign{base{"CallForeign"}, code, args}
}

// ---- Arithmetic ----

type Add struct {
	base
	Lhs, Rhs Node
}
type Subtract struct {
	base
	Lhs, Rhs Node
}
type Multiply struct {
	base
	Lhs, Rhs Node
}
type Divide struct {
	base
	Lhs, Rhs Node
}
type Modulo struct {
	base
	Lhs, Rhs Node
}

func NewAdd(l, r Node) *Add           { return &Add{base{"Add"}, l, r} }
func NewSubtract(l, r Node) *Subtract { return &Subtract{base{"Subtract"}, l, r} }
func NewMultiply(l, r Node) *Multiply { return &Multiply{base{"Multiply"}, l, r} }
func NewDivide(l, r Node) *Divide     { return &Divide{base{"Divide"}, l, r} }
func NewModulo(l, r Node) *Modulo     { return &Modulo{base{"Modulo"}, l, r} }

// ---- Files-level ----

type File struct {
	base
	Name Node
	Body Node
}

func NewFile(name, body Node) *File { return &File{base{"File"}, name, body} }

type Files struct {
	base
	Patterns []Node
}

func NewFiles(patterns []Node) *Files { return &Files{base{"Files"}, patterns} }

// ---- Range / position ----

type Endpoint struct {
	Line, Column int
	HasLineCol   bool
}

type Range struct {
	base
	Start, End Endpoint
}

func NewRange(start, end Endpoint) *Range { return &Range{base{"Range"}, start, end} }

// ---- I/O-ish ----

type Log struct {
	base
	Message *DynamicPattern
}

func NewLog(msg *DynamicPattern) *Log { return &Log{base{"Log"}, msg} }

// Limit caps the inner pattern to at most N total successes across
// every invocation (spec.md Invariant 5, §5 "Limit's atomic counter").
type Limit struct {
	base
	Inner   Node
	N       int64
	counter *int64
}

func NewLimit(inner Node, n int64) *Limit {
	var c int64
	return &Limit{base{"Limit"}, inner, n, &c}
}

// Counter exposes the shared CAS counter so the matcher can increment
// it; shared across clones of the same Limit node since the node
// itself (not State) is never cloned.
func (l *Limit) Counter() *int64 { return l.counter }

// Like is a supplemented pattern (original_source
// crates/core/src/pattern/like.rs): matches a node whose embedding
// similarity to Example exceeds Threshold. Optional per spec.md §9(c);
// requires grit.Callbacks.Embedder.
type Like struct {
	base
	Example   Node
	Threshold float64
}

func NewLike(example Node, threshold float64) *Like {
	return &Like{base{"Like"}, example, threshold}
}

// ---- Dynamic (rewrite RHS template) ----

// DynamicPattern is the compiled RHS template of a Rewrite/Accumulate
// or Log message: literal text interleaved with variable references
// and calls, rendered to text by the linearizer at effect-render time
// (spec.md §4.8 step 4, Glossary "Dynamic pattern / snippet").
type DynamicPattern struct {
	Parts []DynamicPart
}

type DynamicPart struct {
	Literal  string
	Variable *VariableRef
	Call     *DynamicCallTemplate
}

type DynamicCallKind int

const (
	DynCallBuiltin DynamicCallKind = iota
	DynCallFunction
	DynCallSplice // list splice: render each element, joined
)

type DynamicCallTemplate struct {
	Kind            DynamicCallKind
	Name            string
	DefinitionIndex int
	Args            []*DynamicPattern
	SpliceList      *VariableRef
	SpliceSep       string
}

func (d *DynamicPattern) String() string { return "DynamicPattern" }
