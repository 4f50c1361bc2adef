package lang

import (
	"regexp"
	"strings"

	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/ast/mdast"
)

type markdownLang struct {
	producer *mdast.Producer
}

func NewMarkdown() Language {
	return &markdownLang{producer: mdast.NewProducer()}
}

func (m *markdownLang) Name() string           { return "markdown" }
func (m *markdownLang) Extensions() []string   { return []string{"*.md", "*.markdown"} }
func (m *markdownLang) Producer() ast.Producer { return m.producer }

func (m *markdownLang) KindIDFor(name string) int {
	h := 0
	for _, r := range name {
		h = h*31 + int(r)
	}
	return h
}

func (m *markdownLang) IsComment(kind string) bool {
	return kind == "HTMLBlock" && false // markdown has no comment production beyond raw HTML comments
}

func (m *markdownLang) CommentText(n ast.Node) (string, int, int) {
	s, e := n.ByteRange()
	return strings.TrimSpace(n.Text()), s, e
}

func (m *markdownLang) SnippetContexts() []SnippetContext {
	return []SnippetContext{{Prefix: "", Suffix: ""}}
}

func (m *markdownLang) MetavariableRegex() *regexp.Regexp { return metavarRe }

func (m *markdownLang) SubstituteMetavariablePrefix(text string) (string, map[string]string) {
	placeholders := map[string]string{}
	i := 0
	out := metavarRe.ReplaceAllStringFunc(text, func(s string) string {
		placeholder := "gritvar" + itoa(i)
		i++
		placeholders[placeholder] = s
		return placeholder
	})
	return out, placeholders
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

// Markdown is whitespace-significant the way YAML fixtures embedded
// in it are: list items and blockquotes carry an indentation column
// that must be preserved on insertion (spec.md scenario 6 is YAML,
// but Markdown tables/lists share the same padding concern).
func (m *markdownLang) LeafEquivalenceClass(kind, text string) string { return kind }
func (m *markdownLang) ShouldPadSnippet() bool                        { return true }

func (m *markdownLang) PadSnippet(snippet, padding string) string {
	lines := strings.Split(snippet, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = padding + lines[i]
	}
	return strings.Join(lines, "\n")
}

func (m *markdownLang) MandatoryEmptyField(sort, field string) bool { return false }

func init() {
	Default.Register(NewMarkdown())
}
