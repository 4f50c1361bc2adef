package pattern

// Predicate IR (spec.md §3 "Predicate IR is a parallel sum type").
// Predicates evaluate to {truth, optional return value}; return
// values propagate only through function definitions (PrReturn).

type PrAnd struct {
	predBase
	Predicates []Predicate
}

func NewPrAnd(ps []Predicate) *PrAnd { return &PrAnd{predBase{"PrAnd"}, ps} }

type PrOr struct {
	predBase
	Predicates []Predicate
}

func NewPrOr(ps []Predicate) *PrOr { return &PrOr{predBase{"PrOr"}, ps} }

type PrNot struct {
	predBase
	Predicate Predicate
}

func NewPrNot(p Predicate) *PrNot { return &PrNot{predBase{"PrNot"}, p} }

type PrMaybe struct {
	predBase
	Predicate Predicate
}

func NewPrMaybe(p Predicate) *PrMaybe { return &PrMaybe{predBase{"PrMaybe"}, p} }

type PrAny struct {
	predBase
	Predicates []Predicate
}

func NewPrAny(ps []Predicate) *PrAny { return &PrAny{predBase{"PrAny"}, ps} }

type PrIf struct {
	predBase
	Cond Predicate
	Then Predicate
	Else Predicate
}

func NewPrIf(cond, then, els Predicate) *PrIf { return &PrIf{predBase{"PrIf"}, cond, then, els} }

type PrCall struct {
	predBase
	DefinitionIndex int
	Args            []Node
}

func NewPrCall(defIdx int, args []Node) *PrCall { return &PrCall{predBase{"PrCall"}, defIdx, args} }

type PrMatch struct {
	predBase
	Lhs Node
	Rhs Node
}

func NewPrMatch(lhs, rhs Node) *PrMatch { return &PrMatch{predBase{"PrMatch"}, lhs, rhs} }

type PrEqual struct {
	predBase
	Lhs, Rhs Node
}

func NewPrEqual(lhs, rhs Node) *PrEqual { return &PrEqual{predBase{"PrEqual"}, lhs, rhs} }

type PrRewrite struct {
	predBase
	Lhs  Node
	Rhs  *DynamicPattern
	Name string
}

func NewPrRewrite(lhs Node, rhs *DynamicPattern, name string) *PrRewrite {
	return &PrRewrite{predBase{"PrRewrite"}, lhs, rhs, name}
}

type PrAssignment struct {
	predBase
	Container Node
	Pattern   Node
}

func NewPrAssignment(c, p Node) *PrAssignment { return &PrAssignment{predBase{"PrAssignment"}, c, p} }

type PrAccumulate struct {
	predBase
	Lhs  Node
	Rhs  *DynamicPattern
	Name string
}

func NewPrAccumulate(lhs Node, rhs *DynamicPattern, name string) *PrAccumulate {
	return &PrAccumulate{predBase{"PrAccumulate"}, lhs, rhs, name}
}

type PrLog struct {
	predBase
	Message *DynamicPattern
}

func NewPrLog(msg *DynamicPattern) *PrLog { return &PrLog{predBase{"PrLog"}, msg} }

// PrReturn evaluates Value and yields it as the predicate's return
// value; PrAnd stops at the first conjunct that returns one. Function
// bodies (FunctionDefinition.Body) are pattern steps, so execCallFunction
// runs every step and never observes a PrReturn.
type PrReturn struct {
	predBase
	Value Node
}

func NewPrReturn(v Node) *PrReturn { return &PrReturn{predBase{"PrReturn"}, v} }

type PrTrue struct{ predBase }
type PrFalse struct{ predBase }

func NewPrTrue() *PrTrue   { return &PrTrue{predBase{"PrTrue"}} }
func NewPrFalse() *PrFalse { return &PrFalse{predBase{"PrFalse"}} }
