// Package lang provides the per-language knobs the matcher and
// snippet compiler consult so their core logic stays language
// agnostic (spec.md §3 "Language (C2)", §4.2).
package lang

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/grit-lang/gritql/ast"
)

// SnippetContext is a (prefix, suffix) pair that lets the host parser
// accept an otherwise-incomplete code fragment.
type SnippetContext struct {
	Prefix, Suffix string
}

// Language describes one target language per spec.md §4.2.
type Language interface {
	Name() string

	// Extensions returns the glob-matchable file extensions this
	// language claims, e.g. []string{"*.go"}.
	Extensions() []string

	// Producer returns the ast.Producer that parses source text for
	// this language.
	Producer() ast.Producer

	KindIDFor(name string) int
	IsComment(kind string) bool

	// CommentText returns the trimmed text of a comment node and its
	// byte range, used by suppress.Walk.
	CommentText(n ast.Node) (text string, start, end int)

	SnippetContexts() []SnippetContext
	MetavariableRegex() *regexp.Regexp

	// SubstituteMetavariablePrefix replaces "$x"-shaped metavariable
	// occurrences with a placeholder the host parser accepts as a
	// plain identifier (spec.md §9 "Metavariable placeholder
	// collision": a µ-prefixed convention).
	SubstituteMetavariablePrefix(text string) (substituted string, placeholders map[string]string)

	// LeafEquivalenceClass groups leaf kinds/texts considered
	// interchangeable (e.g. YAML single- vs double-quoted scalars).
	LeafEquivalenceClass(kind, text string) string

	ShouldPadSnippet() bool
	PadSnippet(snippet string, padding string) string

	// MandatoryEmptyField reports whether (sort, field) must be
	// synthesized as an empty binding even when absent from the node.
	MandatoryEmptyField(sort, field string) bool
}

// Registry maps extensions to Language, grounded on teacher's
// languages/registry.go Registry.Register/GetLanguage map-of-
// extensions pattern. Glob matching uses doublestar/v4 the same way
// teacher's filters/parser.go resolves exclusion globs.
type Registry struct {
	byName      map[string]Language
	extToLangs  []Language
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]Language{}}
}

func (r *Registry) Register(l Language) {
	r.byName[l.Name()] = l
	r.extToLangs = append(r.extToLangs, l)
}

func (r *Registry) Get(name string) (Language, bool) {
	l, ok := r.byName[name]
	return l, ok
}

// ForFile resolves the language whose Extensions glob-match filename.
func (r *Registry) ForFile(filename string) (Language, bool) {
	base := filename
	if idx := strings.LastIndexByte(filename, '/'); idx >= 0 {
		base = filename[idx+1:]
	}
	for _, l := range r.extToLangs {
		for _, pattern := range l.Extensions() {
			if ok, _ := doublestar.Match(pattern, base); ok {
				return l, true
			}
		}
	}
	return nil, false
}

// Default is populated by init() in each concrete language file
// (go_lang.go, markdown.go, stubs.go) so callers get a ready-to-use
// registry without manual wiring, mirroring teacher's
// languages.DefaultRegistry.
var Default = NewRegistry()
