package lang

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/grit-lang/gritql/ast"
)

// stub is a language registration that carries only the padding and
// equivalence tables needed by the snippet compiler and matcher, with
// no Producer wired yet — mirroring teacher's languages/languages.go
// rows that register a LanguageConfig with Analyzer: nil until a real
// extractor lands.
type stub struct {
	name       string
	exts       []string
	whitespace bool
}

func (s *stub) Name() string         { return s.name }
func (s *stub) Extensions() []string { return s.exts }

func (s *stub) Producer() ast.Producer {
	return stubProducer{name: s.name}
}

type stubProducer struct{ name string }

func (p stubProducer) Parse(filename, source string) (*ast.Tree, error) {
	return nil, fmt.Errorf("gritql: no parser wired for language %q yet", p.name)
}

func (s *stub) KindIDFor(name string) int { return 0 }
func (s *stub) IsComment(kind string) bool {
	return kind == "comment"
}
func (s *stub) CommentText(n ast.Node) (string, int, int) {
	st, e := n.ByteRange()
	return strings.TrimSpace(n.Text()), st, e
}
func (s *stub) SnippetContexts() []SnippetContext {
	return []SnippetContext{{Prefix: "", Suffix: ""}}
}
func (s *stub) MetavariableRegex() *regexp.Regexp { return metavarRe }
func (s *stub) SubstituteMetavariablePrefix(text string) (string, map[string]string) {
	return text, nil
}
func (s *stub) LeafEquivalenceClass(kind, text string) string { return kind }
func (s *stub) ShouldPadSnippet() bool                        { return s.whitespace }
func (s *stub) PadSnippet(snippet, padding string) string     { return snippet }
func (s *stub) MandatoryEmptyField(sort, field string) bool   { return false }

// YAML carries whitespace-significant padding rules (scenario 6) even
// though its producer is not yet wired.
func YAML() Language { return &stub{name: "yaml", exts: []string{"*.yaml", "*.yml"}, whitespace: true} }
func Python() Language {
	return &stub{name: "python", exts: []string{"*.py"}, whitespace: true}
}
func JavaScript() Language {
	return &stub{name: "javascript", exts: []string{"*.js", "*.jsx"}}
}

func init() {
	Default.Register(YAML())
	Default.Register(Python())
	Default.Register(JavaScript())
}
