// Package gritstate implements variable storage, the scope stack, the
// effect list, and the file registry (spec.md §3 "Variable (C5)", §4.6
// "State & scopes"). Backtracking is implemented by cloning State at
// every disjunctive matcher branch point, trading a deep copy for
// cheap slice-header sharing the same way
// _examples/gitrdm-gokando/pkg/minikanren/core.go clones its
// substitution map before trying an alternative goal and discards the
// clone on failure.
package gritstate

import (
	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/value"
)

// GlobalScopeIndex is the reserved scope holding $program, $filename,
// $absolute_filename, $match (spec.md §3 "Variable (C5)").
const GlobalScopeIndex = 0

// VariableContent is one variable slot: name, optional constraint,
// current value, history, and mirrors.
type VariableContent struct {
	Name        string
	Constraint  string // optional pattern-time constraint description
	Value       *value.Value
	ValueHistory []value.Value
	Mirrors     []VariableAddr
	Locations   []Location
}

// Location records a source range where a variable name appeared,
// populated at compile time (spec.md §4.3).
type Location struct {
	File       string
	Start, End int
}

// VariableAddr addresses a variable by (scope_index, variable_index).
type VariableAddr struct {
	Scope, Index int
}

// Effect is a pending textual change recorded against a binding.
type Effect struct {
	Binding     value.Binding
	Replacement value.Value
	Kind        EffectKind
	// PatternName names the pattern that produced this effect, used
	// by suppress to match `grit-ignore: name`.
	PatternName string
	// Order records matcher traversal order so the linearizer can
	// break position ties deterministically (spec.md §5 "Ordering
	// guarantees").
	Order int
}

type EffectKind int

const (
	EffectRewrite EffectKind = iota
	EffectInsert
)

// FileRegistry maps a file pointer/name to its parsed Tree. Lazily
// populated the first time a File pattern's body is accessed (spec.md
// §5 "File loading is lazy and cooperative").
type FileRegistry struct {
	byName map[string]*ast.Tree
}

func NewFileRegistry() *FileRegistry {
	return &FileRegistry{byName: map[string]*ast.Tree{}}
}

func (f *FileRegistry) Get(name string) (*ast.Tree, bool) {
	t, ok := f.byName[name]
	return t, ok
}

func (f *FileRegistry) Put(name string, t *ast.Tree) {
	f.byName[name] = t
}

// Clone returns a copy with its own map, so entries added to the copy
// do not appear in the original; the *ast.Tree values themselves are
// shared.
func (f *FileRegistry) Clone() *FileRegistry {
	cp := make(map[string]*ast.Tree, len(f.byName))
	for k, v := range f.byName {
		cp[k] = v
	}
	return &FileRegistry{byName: cp}
}

// scopeStack holds the frames for one named scope: bindings[frame][variable].
type scopeStack [][]VariableContent

// State owns bindings, effects, and the file registry for one
// execution branch (spec.md §4.6).
type State struct {
	// Bindings is indexed [scope_index][frame_index][variable_index].
	Bindings []scopeStack
	Effects  []Effect
	Files    *FileRegistry

	nextOrder *int
}

// New creates a State with nScopes pre-allocated named scopes, each
// starting with one empty frame (the top-level invocation frame).
func New(nScopes int) *State {
	order := 0
	st := &State{
		Bindings:  make([]scopeStack, nScopes),
		Files:     NewFileRegistry(),
		nextOrder: &order,
	}
	for i := range st.Bindings {
		st.Bindings[i] = scopeStack{{}}
	}
	return st
}

// Clone performs the shallow copy-on-write clone Invariant 1 requires:
// cheap enough to call at every Or/Any/Not/Maybe/Where branch point.
// Each scope's frames are copied slot by slot (a shallow copy of each
// VariableContent) and the effect list is copied, so Bind, PushFrame
// and AppendEffect on the clone never mutate the original's slots or
// effects. The file registry is shared, not copied.
func (s *State) Clone() *State {
	cp := &State{
		Bindings:  make([]scopeStack, len(s.Bindings)),
		Effects:   append([]Effect(nil), s.Effects...),
		Files:     s.Files,
		nextOrder: s.nextOrder,
	}
	for i, stack := range s.Bindings {
		frames := make(scopeStack, len(stack))
		for j, frame := range stack {
			frames[j] = append([]VariableContent(nil), frame...)
		}
		cp.Bindings[i] = frames
	}
	return cp
}

// PushFrame enters a fresh frame for scopeIndex with one zeroed slot
// per name in names, used on pattern/predicate/function/Bubble entry.
func (s *State) PushFrame(scopeIndex int, names []string) int {
	frame := make([]VariableContent, len(names))
	for i, n := range names {
		frame[i] = VariableContent{Name: n}
	}
	s.Bindings[scopeIndex] = append(s.Bindings[scopeIndex], frame)
	return len(s.Bindings[scopeIndex]) - 1
}

// PopFrame exits the most recent frame of scopeIndex, merging its
// ValueHistory back into the frame beneath it (spec.md §4.6 "exiting
// pops and merges value_history into the underlying frame") so later
// patterns in the enclosing scope can observe the trace (needed by
// Bubble, spec.md §4.4).
func (s *State) PopFrame(scopeIndex int) {
	stack := s.Bindings[scopeIndex]
	if len(stack) < 2 {
		s.Bindings[scopeIndex] = stack[:0]
		return
	}
	popped := stack[len(stack)-1]
	under := stack[len(stack)-2]
	for i := range popped {
		if i < len(under) {
			under[i].ValueHistory = append(under[i].ValueHistory, popped[i].ValueHistory...)
			if popped[i].Value != nil {
				under[i].ValueHistory = append(under[i].ValueHistory, *popped[i].Value)
			}
		}
	}
	s.Bindings[scopeIndex] = stack[:len(stack)-1]
}

func (s *State) frame(addr VariableAddr) *[]VariableContent {
	stack := s.Bindings[addr.Scope]
	if len(stack) == 0 {
		return nil
	}
	return &stack[len(stack)-1]
}

// Get returns the current VariableContent for addr, or ok=false if
// the scope has no active frame.
func (s *State) Get(addr VariableAddr) (VariableContent, bool) {
	f := s.frame(addr)
	if f == nil || addr.Index >= len(*f) {
		return VariableContent{}, false
	}
	return (*f)[addr.Index], true
}

// Bind sets addr's value (Invariant 1: "a variable's value is Some iff
// it has been bound on the current execution branch"), propagating to
// every registered mirror.
func (s *State) Bind(addr VariableAddr, v value.Value) {
	f := s.frame(addr)
	if f == nil || addr.Index >= len(*f) {
		return
	}
	vc := &(*f)[addr.Index]
	if vc.Value != nil {
		vc.ValueHistory = append(vc.ValueHistory, *vc.Value)
	}
	cp := v
	vc.Value = &cp
	for _, mirror := range vc.Mirrors {
		mf := s.frame(mirror)
		if mf != nil && mirror.Index < len(*mf) {
			(*mf)[mirror.Index].Value = &cp
		}
	}
}

// AddMirror registers target as a mirror of addr: later Bind calls on
// addr also update target (spec.md §3 "a set of mirrors").
func (s *State) AddMirror(addr, target VariableAddr) {
	f := s.frame(addr)
	if f == nil || addr.Index >= len(*f) {
		return
	}
	(*f)[addr.Index].Mirrors = append((*f)[addr.Index].Mirrors, target)
}

// AppendEffect records a rewrite/insert effect in traversal order
// (spec.md §5 "effects are produced in the order bindings are
// encountered").
func (s *State) AppendEffect(e Effect) {
	e.Order = *s.nextOrder
	*s.nextOrder++
	s.Effects = append(s.Effects, e)
}
