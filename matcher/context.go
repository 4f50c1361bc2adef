package matcher

import (
	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/pattern"
)

// BuiltinFunc implements one host-provided function (capitalize,
// length, join, split, file_name_without_extension — spec.md §6).
type BuiltinFunc func(args []string) (string, error)

// ForeignFunc executes sandboxed user code against string arguments
// (spec.md §6 "foreign-function execution"); grit wires this to
// builtin.CELForeign.
type ForeignFunc func(code string, args []string) (string, error)

// EmbedFunc backs the optional Like pattern (spec.md §9(c)).
type EmbedFunc func(text string) ([]float64, error)

// Callbacks bundles the host collaborators the matcher calls out to.
type Callbacks struct {
	LoadFile func(name string) (*ast.Tree, error)
	Builtins map[string]BuiltinFunc
	Foreign  ForeignFunc
	Embedder EmbedFunc
}

// Context carries per-execution, read-only collaborators: the target
// language's traits, host callbacks, and the compiled definitions
// table (for Call/Bubble/CallFunction dispatch).
type Context struct {
	Language    lang.Language
	Callbacks   Callbacks
	Definitions *pattern.Definitions
	FileName    string
	Options     pattern.Options
}
