package grit_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grit-lang/gritql/grit"
	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/pattern"
)

func mustCompile(source string) *grit.CompiledPattern {
	return mustCompileWith(source, pattern.Options{})
}

func mustCompileWith(source string, opts pattern.Options) *grit.CompiledPattern {
	goLang, ok := lang.Default.Get("go")
	Expect(ok).To(BeTrue(), "go language must be registered")
	compiled, err := grit.Compile(source, goLang, nil, opts)
	Expect(err).NotTo(HaveOccurred())
	return compiled
}

func collect(compiled *grit.CompiledPattern, src, name string) []grit.MatchResult {
	var out []grit.MatchResult
	for r := range grit.Execute(compiled, src, name, grit.Callbacks{}) {
		out = append(out, r)
	}
	return out
}

var _ = Describe("Execute", func() {
	It("reports one Match per independent occurrence in a file", func() {
		compiled := mustCompile("`fmt.Println($x)`")
		src := "package main\n\n" +
			"func main() {\n" +
			"\tfmt.Println(\"a\")\n" +
			"\tfmt.Println(\"b\")\n" +
			"}\n"

		results := collect(compiled, src, "two.go")

		var matches int
		for _, r := range results {
			if r.Kind == grit.KindMatch {
				matches++
			}
		}
		Expect(matches).To(Equal(2), "both calls should be reported as separate matches")
		Expect(results[0].Kind).To(Equal(grit.KindInputFile))
		Expect(results[len(results)-1].Kind).To(Equal(grit.KindDoneFile))
	})

	It("rewrites a matched call and splices the new text in place", func() {
		compiled := mustCompile("`fmt.Println($x)` => `log.Println($x)`")
		src := "package main\n\n" +
			"func main() {\n" +
			"\tfmt.Println(\"a\")\n" +
			"}\n"

		results := collect(compiled, src, "one.go")

		var rewrite *grit.MatchResult
		for i := range results {
			if results[i].Kind == grit.KindRewrite {
				rewrite = &results[i]
			}
		}
		Expect(rewrite).NotTo(BeNil(), "expected a Rewrite result")
		Expect(rewrite.RewrittenContent).To(ContainSubstring(`log.Println("a")`))
		Expect(rewrite.RewrittenContent).NotTo(ContainSubstring("fmt.Println"))
	})

	It("yields no Match and no Rewrite when the pattern does not occur", func() {
		compiled := mustCompile("`fmt.Println($x)`")
		src := "package main\n\nfunc main() {}\n"

		results := collect(compiled, src, "none.go")

		for _, r := range results {
			Expect(r.Kind).NotTo(Equal(grit.KindMatch))
			Expect(r.Kind).NotTo(Equal(grit.KindRewrite))
		}
		Expect(results[len(results)-1].Kind).To(Equal(grit.KindDoneFile))
	})

	It("caps the number of Match results at Options.MatchLimit", func() {
		compiled := mustCompileWith("`fmt.Println($x)`", pattern.Options{MatchLimit: 1})
		src := "package main\n\n" +
			"func main() {\n" +
			"\tfmt.Println(\"a\")\n" +
			"\tfmt.Println(\"b\")\n" +
			"\tfmt.Println(\"c\")\n" +
			"}\n"

		results := collect(compiled, src, "limited.go")

		var matches int
		for _, r := range results {
			if r.Kind == grit.KindMatch {
				matches++
			}
		}
		Expect(matches).To(Equal(1), "MatchLimit must stop the walk after the first successful match")
	})

	It("runs limit(...) patterns to their runtime bound across independent attempts", func() {
		compiled := mustCompile("limit(2, `fmt.Println($x)`)")
		src := "package main\n\n" +
			"func main() {\n" +
			"\tfmt.Println(\"a\")\n" +
			"\tfmt.Println(\"b\")\n" +
			"\tfmt.Println(\"c\")\n" +
			"}\n"

		results := collect(compiled, src, "limit.go")

		var matches int
		for _, r := range results {
			if r.Kind == grit.KindMatch {
				matches++
			}
		}
		Expect(matches).To(Equal(2), "limit(2, ...) must allow only its first two independent matches through")
	})

	It("surfaces implicit bindings on MatchResult when ExposeImplicitBindings is set", func() {
		// The bare pattern on the where-clause's right side compiles to
		// an implicit match against $match (compiler/predicate_parser.go
		// parsePredicateLeaf's fallback), which is what actually binds
		// $match's global-scope slot at runtime.
		compiled := mustCompileWith("`fmt.Println($x)` where `fmt.Println($x)`", pattern.Options{ExposeImplicitBindings: true})
		src := "package main\n\nfunc main() {\n\tfmt.Println(\"a\")\n}\n"

		results := collect(compiled, src, "bindings.go")

		var match *grit.MatchResult
		for i := range results {
			if results[i].Kind == grit.KindMatch {
				match = &results[i]
			}
		}
		Expect(match).NotTo(BeNil())
		Expect(match.Bindings).To(HaveKeyWithValue("$filename", "bindings.go"))
		Expect(match.Bindings).To(HaveKey("$match"))
		Expect(match.Bindings["$match"]).To(ContainSubstring(`fmt.Println("a")`))
	})

	It("leaves Bindings nil when ExposeImplicitBindings is not set", func() {
		compiled := mustCompile("`fmt.Println($x)`")
		src := "package main\n\nfunc main() {\n\tfmt.Println(\"a\")\n}\n"

		results := collect(compiled, src, "nobindings.go")

		for _, r := range results {
			if r.Kind == grit.KindMatch {
				Expect(r.Bindings).To(BeNil())
			}
		}
	})
})

var _ = Describe("ExecuteFiles", func() {
	It("fans out across files and ends with AllDone", func() {
		compiled := mustCompile("`fmt.Println($x)`")
		sources := map[string]string{
			"a.go": "package main\nfunc main() { fmt.Println(\"a\") }\n",
			"b.go": "package main\nfunc main() { fmt.Println(\"b\") }\n",
		}
		load := func(name string) (string, error) { return sources[name], nil }

		ch := grit.ExecuteFiles(context.Background(), compiled, []string{"a.go", "b.go"}, load, grit.Callbacks{}, 2, nil)

		seen := map[string]bool{}
		var sawAllDone bool
		for fr := range ch {
			if fr.File == "" {
				for _, r := range fr.Results {
					if r.Kind == grit.KindAllDone {
						sawAllDone = true
					}
				}
				continue
			}
			seen[fr.File] = true
		}
		Expect(seen).To(HaveKey("a.go"))
		Expect(seen).To(HaveKey("b.go"))
		Expect(sawAllDone).To(BeTrue())
	})
})
