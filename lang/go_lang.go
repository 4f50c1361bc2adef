package lang

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/ast/goast"
)

var metavarRe = regexp.MustCompile(`\$\.\.\.|\$\[[A-Za-z_][A-Za-z0-9_]*\]|\$[A-Za-z_][A-Za-z0-9_]*`)

type goLang struct {
	producer *goast.Producer
}

func NewGo() Language {
	return &goLang{producer: goast.NewProducer()}
}

func (g *goLang) Name() string           { return "go" }
func (g *goLang) Extensions() []string   { return []string{"*.go"} }
func (g *goLang) Producer() ast.Producer { return g.producer }

func (g *goLang) KindIDFor(name string) int {
	// Go AST kinds are identified by their snake_case struct name;
	// the matcher compares kinds as strings so an integer id is only
	// needed for the Or node-kind prefilter's fast-skip check, which
	// is satisfied by a stable hash of the name.
	h := 0
	for _, r := range name {
		h = h*31 + int(r)
	}
	return h
}

func (g *goLang) IsComment(kind string) bool {
	return kind == "comment" || kind == "comment_group"
}

func (g *goLang) CommentText(n ast.Node) (string, int, int) {
	s, e := n.ByteRange()
	return strings.TrimSpace(n.Text()), s, e
}

func (g *goLang) SnippetContexts() []SnippetContext {
	return []SnippetContext{
		{Prefix: "", Suffix: ""},                                         // top-level declarations
		{Prefix: "package grit\nfunc µgrit() {\n", Suffix: "\n}"},        // statements
		{Prefix: "package grit\nvar µgrit = ", Suffix: "\n"},             // expressions
		{Prefix: "package grit\ntype µgrit struct {\n", Suffix: "\n}"},   // struct fields
	}
}

func (g *goLang) MetavariableRegex() *regexp.Regexp { return metavarRe }

func (g *goLang) SubstituteMetavariablePrefix(text string) (string, map[string]string) {
	placeholders := map[string]string{}
	i := 0
	out := metavarRe.ReplaceAllStringFunc(text, func(m string) string {
		placeholder := fmt.Sprintf("µgritvar%d", i)
		i++
		placeholders[placeholder] = m
		if m == "$..." {
			return placeholder
		}
		return placeholder
	})
	return out, placeholders
}

func (g *goLang) LeafEquivalenceClass(kind, text string) string {
	if kind == "basic_lit" {
		return kind + ":" + text
	}
	return kind
}

func (g *goLang) ShouldPadSnippet() bool { return false }
func (g *goLang) PadSnippet(snippet, padding string) string { return snippet }

func (g *goLang) MandatoryEmptyField(sort, field string) bool {
	return false
}

func init() {
	Default.Register(NewGo())
}
