package pattern

// PatternDefinition is one named, parameterized pattern invoked via
// Call or Bubble. The DSL parser has no syntax that declares one.
type PatternDefinition struct {
	Name       string
	Params     []string
	ScopeIndex int
	Body       Node
}

type PredicateDefinition struct {
	Name       string
	Params     []string
	ScopeIndex int
	Body       Predicate
}

type FunctionDefinition struct {
	Name       string
	Params     []string
	ScopeIndex int
	Body       []Step // sequential body; every step runs, return values are not observed
}

// ForeignFunctionDefinition names a sandboxed CallForeign body. The
// matcher does not read these definitions: CallForeign carries its code
// inline and builtin.CELForeign compiles it on each invocation.
type ForeignFunctionDefinition struct {
	Name string
	Code string
	Args []string
}

// VariableSlot is the compile-time shadow of a gritstate.VariableContent:
// the compiler allocates one per (scope, index) the first time a name
// is seen in that scope (spec.md §4.3, grounded on original_source
// crates/core/src/variables.rs register_variable_optional_range).
type VariableSlot struct {
	Name      string
	Locations []SourceLocation
}

type SourceLocation struct {
	File       string
	Start, End int
}

// Definitions is the compiled artifact of the pattern-DSL front end
// (spec.md §4.3): a pattern plus every definition and scope it may
// call into.
type Definitions struct {
	PatternDefinitions         []PatternDefinition
	PredicateDefinitions       []PredicateDefinition
	FunctionDefinitions        []FunctionDefinition
	ForeignFunctionDefinitions []ForeignFunctionDefinition

	// VariablesByScope is indexed [scope_index][variable_index],
	// mirroring gritstate.State.Bindings' addressing scheme exactly
	// so compiled VariableRef{Scope,Index} pairs are valid gritstate
	// addresses without translation.
	VariablesByScope [][]VariableSlot

	// Entry is the top-level pattern/predicate being matched.
	Entry Node
}

// Options configures compilation (spec.md §6 "compile(...options)").
type Options struct {
	// MatchLimit caps total successful top-level matches across a
	// single execute() call; 0 means unlimited.
	MatchLimit int

	// Libraries is a set of library Definitions carried with the
	// options; their definitions are not linked into the entry
	// pattern's own definition tables.
	Libraries []Definitions

	// ExposeImplicitBindings, when true, surfaces $match and other
	// implicit global-scope bindings in MatchResult output.
	ExposeImplicitBindings bool

	// IgnoreLimitPattern makes every Limit node behave as transparent
	// (spec.md §4.4 "Limit(n)").
	IgnoreLimitPattern bool
}
