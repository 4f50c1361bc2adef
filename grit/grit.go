// Package grit is the one public façade spec.md §6 calls for:
// Compile (pattern source + language + libraries + options) and
// Execute (compiled pattern + file source/name + callbacks), streaming
// MatchResult values. Grounded on teacher's cmd/check.go orchestration
// of Coordinator -> Analyzer -> FileResult, generalized here from a
// parallel-file violation scan into a single-file-at-a-time streaming
// match/rewrite API; the per-file worker-pool fan-out lives in
// ExecuteFiles below.
package grit

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"golang.org/x/time/rate"

	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/compiler"
	"github.com/grit-lang/gritql/diagnostics"
	"github.com/grit-lang/gritql/gritstate"
	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/linearize"
	"github.com/grit-lang/gritql/matcher"
	"github.com/grit-lang/gritql/pattern"
	"github.com/grit-lang/gritql/value"
)

// CompiledPattern bundles the parsed Definitions with the language it
// was compiled against, any non-fatal compile warnings, and the
// Options the caller compiled with (spec.md §6: match limit, library
// set, expose-implicit-bindings flag), so Execute can honor them
// instead of re-deciding defaults of its own.
type CompiledPattern struct {
	Definitions *pattern.Definitions
	Language    lang.Language
	Warnings    []*compiler.Warning
	Options     pattern.Options
}

// Compile implements spec.md §6's `compile(pattern_source, language,
// libraries, options)`.
//
// Libraries is accepted and carried on the returned CompiledPattern's
// Options so a caller can inspect which library set a pattern was
// compiled against, but linking a library pattern's definitions into
// this entry's callable table is not yet performed here: doing so
// correctly requires remapping the library's own scope/definition
// indices onto the host's tables, and the DSL front end (compiler
// package) has no call-by-name surface syntax yet to invoke a linked
// library pattern even once merged (see the `grit` entry in DESIGN.md).
func Compile(source string, language lang.Language, libraries []pattern.Definitions, opts pattern.Options) (*CompiledPattern, error) {
	opts.Libraries = libraries
	defs, errs, warnings := compiler.Compile(source, language, opts)
	if len(errs) > 0 {
		msg := "gritql: compile failed:"
		for _, e := range errs {
			msg += "\n  " + e.Error()
		}
		return nil, fmt.Errorf("%s", msg)
	}
	return &CompiledPattern{Definitions: defs, Language: language, Warnings: warnings, Options: opts}, nil
}

// Callbacks bundles the host collaborators spec.md §6 requires:
// load-file, the built-in function table, and foreign-function
// execution, plus the optional embedding provider for Like.
type Callbacks struct {
	LoadFile func(name string) (*ast.Tree, error)
	Builtins map[string]matcher.BuiltinFunc
	Foreign  matcher.ForeignFunc
	Embedder matcher.EmbedFunc
	// IndentOf returns the indentation prefix in effect at a byte
	// offset, used by the linearizer for whitespace-significant
	// languages (spec.md scenario 6).
	IndentOf func(byteOffset int) string
}

// ResultKind enumerates the MatchResult sum type (spec.md §6).
type ResultKind int

const (
	KindMatch ResultKind = iota
	KindRewrite
	KindCreateFile
	KindRemoveFile
	KindInputFile
	KindDoneFile
	KindAllDone
	KindPatternInfo
	KindAnalysisLog
)

// MatchResult is the single streamed result type, carrying only the
// fields relevant to its Kind (spec.md §6 wire forms: Match, Rewrite,
// CreateFile, RemoveFile, InputFile, DoneFile, AllDone, PatternInfo,
// AnalysisLog).
type MatchResult struct {
	Kind ResultKind

	SourceFile string
	Ranges     []linearize.Range

	OriginalContent  string
	RewrittenContent string
	RenamedFile      string
	Reason           string

	Log *diagnostics.Log

	PatternName string

	// Bindings surfaces $match and the other reserved global-scope
	// variables bound for this result, populated only when the
	// CompiledPattern was compiled with Options.ExposeImplicitBindings
	// (spec.md §6 "a flag to expose or hide implicit bindings").
	Bindings map[string]string
}

func indentOfDefault(byteOffset int) string { return "" }

// Execute implements spec.md §6's `execute(compiled, file_source,
// file_name, callbacks) -> Stream<MatchResult>`, as a Go range-over-func
// iterator: one InputFile, zero or more Match/Rewrite/AnalysisLog, one
// DoneFile.
func Execute(compiled *CompiledPattern, fileSource, fileName string, cb Callbacks) iter.Seq[MatchResult] {
	return func(yield func(MatchResult) bool) {
		if !yield(MatchResult{Kind: KindInputFile, SourceFile: fileName}) {
			return
		}

		indentOf := cb.IndentOf
		if indentOf == nil {
			indentOf = indentOfDefault
		}

		logs := diagnostics.New(fileName)
		for _, w := range compiled.Warnings {
			logs.Warning441("line %d, col %d: %s", w.Line, w.Column, w.Message)
		}
		tree, err := compiled.Language.Producer().Parse(fileName, fileSource)
		if err != nil {
			logs.Error("parse failed: %v", err)
		}
		if tree == nil || tree.Root() == nil {
			for _, l := range flushLogs(logs, fileName) {
				if !yield(l) {
					return
				}
			}
			yield(MatchResult{Kind: KindDoneFile, SourceFile: fileName})
			return
		}

		nScopes := len(compiled.Definitions.VariablesByScope)
		if nScopes == 0 {
			nScopes = 1
		}
		st := gritstate.New(nScopes)
		st.Files.Put(fileName, tree)
		// $program/$filename/$absolute_filename are reserved global-scope
		// slots every compiled pattern declares (spec.md §3 "Variable
		// (C5)"); populate them once per file so ExposeImplicitBindings
		// and any pattern source that reads them sees real values rather
		// than an unbound slot. Execute takes a single fileName with no
		// separate absolute path, so $absolute_filename reuses it.
		st.Bind(gritstate.VariableAddr{Scope: gritstate.GlobalScopeIndex, Index: 0}, value.SingleNode(tree.Root()))
		st.Bind(gritstate.VariableAddr{Scope: gritstate.GlobalScopeIndex, Index: 1}, value.SingleFilename(fileName))
		st.Bind(gritstate.VariableAddr{Scope: gritstate.GlobalScopeIndex, Index: 2}, value.SingleFilename(fileName))

		ctx := &matcher.Context{
			Language: compiled.Language,
			Callbacks: matcher.Callbacks{
				LoadFile: cb.LoadFile,
				Builtins: cb.Builtins,
				Foreign:  cb.Foreign,
				Embedder: cb.Embedder,
			},
			Definitions: compiled.Definitions,
			FileName:    fileName,
			Options:     compiled.Options,
		}

		anyMatch := false
		stopped := false
		matchCount := 0
		limitReached := false
		walkNode(tree.Root(), func(n ast.Node) walkAction {
			if limitReached {
				return walkStop
			}
			clone := st.Clone()
			ok, err := matcher.Execute(compiled.Definitions.Entry, value.SingleNode(n), clone, ctx, logs)
			if err != nil {
				logs.Error("match failed: %v", err)
			}
			if !ok {
				return walkDescend
			}
			*st = *clone
			anyMatch = true
			matchCount++

			for _, l := range flushLogs(logs, fileName) {
				if !yield(l) {
					stopped = true
					return walkStop
				}
			}
			mr := MatchResult{Kind: KindMatch, SourceFile: fileName, Ranges: matchRanges(clone, n)}
			if compiled.Options.ExposeImplicitBindings {
				mr.Bindings = implicitBindings(clone, compiled.Definitions)
			}
			if !yield(mr) {
				stopped = true
				return walkStop
			}
			// MatchLimit caps total successful top-level matches
			// across this one Execute call (spec.md §6 "options
			// include a match limit"); 0 means unlimited.
			if compiled.Options.MatchLimit > 0 && matchCount >= compiled.Options.MatchLimit {
				limitReached = true
				return walkStop
			}
			// A node that matched is spent: its own subtree isn't
			// searched for further independent matches.
			return walkSkip
		})

		for _, l := range flushLogs(logs, fileName) {
			if !yield(l) {
				return
			}
		}

		if stopped {
			return
		}

		if !anyMatch {
			yield(MatchResult{Kind: KindDoneFile, SourceFile: fileName})
			return
		}

		if len(st.Effects) > 0 {
			res, err := linearize.Linearize(fileSource, st.Effects, st, compiled.Language, logs, indentOf)
			if err != nil {
				logs.Error("linearize failed: %v", err)
				for _, l := range flushLogs(logs, fileName) {
					if !yield(l) {
						return
					}
				}
			} else if !res.Empty {
				mr := MatchResult{
					Kind:             KindRewrite,
					SourceFile:       fileName,
					Ranges:           res.Ranges,
					OriginalContent:  fileSource,
					RewrittenContent: res.NewText,
					RenamedFile:      res.RenamedFile,
				}
				if compiled.Options.ExposeImplicitBindings {
					mr.Bindings = implicitBindings(st, compiled.Definitions)
				}
				if !yield(mr) {
					return
				}
			}
		}

		yield(MatchResult{Kind: KindDoneFile, SourceFile: fileName})
	}
}

// matchRanges reports the byte range bound to $match for this attempt,
// falling back to the node the Entry pattern was tried against when
// $match was never assigned.
func matchRanges(st *gritstate.State, fallback ast.Node) []linearize.Range {
	vc, ok := st.Get(gritstate.VariableAddr{Scope: gritstate.GlobalScopeIndex, Index: 3})
	if ok && vc.Value != nil {
		if b, ok := (*vc.Value).(value.Binding); ok && len(b.Items) > 0 && b.Items[0].Node != nil {
			s, e := b.Items[0].Node.ByteRange()
			return []linearize.Range{{Start: s, End: e}}
		}
	}
	s, e := fallback.ByteRange()
	return []linearize.Range{{Start: s, End: e}}
}

// implicitBindings reads the reserved global-scope slots ($program,
// $filename, $absolute_filename, $match) out of st, rendering each
// bound value's text the way linearize.textOf renders a binding into
// replacement text, surfaced only when Options.ExposeImplicitBindings
// asks for it (spec.md §6).
func implicitBindings(st *gritstate.State, defs *pattern.Definitions) map[string]string {
	if len(defs.VariablesByScope) == 0 {
		return nil
	}
	global := defs.VariablesByScope[gritstate.GlobalScopeIndex]
	out := make(map[string]string, len(global))
	for i, slot := range global {
		vc, ok := st.Get(gritstate.VariableAddr{Scope: gritstate.GlobalScopeIndex, Index: i})
		if !ok || vc.Value == nil {
			continue
		}
		out[slot.Name] = bindingText(*vc.Value)
	}
	return out
}

// bindingText renders a resolved Value to display text, mirroring
// linearize.textOf's Binding/Constant/Snippets cases.
func bindingText(v value.Value) string {
	switch t := v.(type) {
	case value.Binding:
		if len(t.Items) == 0 {
			return ""
		}
		return t.Items[0].Text()
	case value.Constant:
		return t.String()
	case value.Snippets:
		var b strings.Builder
		for _, p := range t.Parts {
			b.WriteString(p.Literal)
		}
		return b.String()
	}
	return ""
}

// walkAction tells walkNode whether to descend into a node's children,
// skip them (the node itself was a hit and its subtree is spent), or
// stop the walk entirely (the consumer stopped iterating).
type walkAction int

const (
	walkDescend walkAction = iota
	walkSkip
	walkStop
)

// walkNode is a pre-order traversal used to find every independent,
// non-overlapping match of a pattern within one file: spec.md's
// Concrete Scenario 1 expects two separate Match results for two
// occurrences of the same pattern in one file, not just the first.
func walkNode(n ast.Node, visit func(ast.Node) walkAction) bool {
	switch visit(n) {
	case walkStop:
		return false
	case walkSkip:
		return true
	}
	for _, c := range n.Children() {
		if !walkNode(c, visit) {
			return false
		}
	}
	return true
}

func flushLogs(logs *diagnostics.Logs, fileName string) []MatchResult {
	entries := logs.Entries()
	out := make([]MatchResult, 0, len(entries))
	for i := range entries {
		e := entries[i]
		e.File = fileName
		out = append(out, MatchResult{Kind: KindAnalysisLog, SourceFile: fileName, Log: &e})
	}
	return out
}

// FileResult pairs a file path with the MatchResult stream
// ExecuteFiles produced for it, so callers fanning out across a
// worker pool can tell which file a batch of results belongs to.
type FileResult struct {
	File    string
	Results []MatchResult
}

// ExecuteFiles runs Execute across many files concurrently, bounded by
// a concurrency semaphore and optionally throttled by limiter (spec.md
// §5 "Concurrency & Resource Model": one State/Logs per file, no
// cross-file sharing, an optional global cap on in-flight files and on
// the rate new files are started). limiter may be nil to disable
// throttling.
func ExecuteFiles(ctx context.Context, compiled *CompiledPattern, files []string, loadSource func(string) (string, error), cb Callbacks, concurrency int, limiter *rate.Limiter) <-chan FileResult {
	out := make(chan FileResult)
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	go func() {
		defer close(out)
		done := make(chan FileResult)
		inFlight := 0
		i := 0
		for i < len(files) || inFlight > 0 {
			for i < len(files) && len(sem) < cap(sem) {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				f := files[i]
				i++
				sem <- struct{}{}
				inFlight++
				go func(file string) {
					defer func() { <-sem }()
					src, err := loadSource(file)
					if err != nil {
						done <- FileResult{File: file, Results: []MatchResult{{Kind: KindAnalysisLog, SourceFile: file, Log: &diagnostics.Log{Level: diagnostics.LevelError, Message: err.Error(), File: file}}}}
						return
					}
					var results []MatchResult
					for r := range Execute(compiled, src, file, cb) {
						results = append(results, r)
					}
					done <- FileResult{File: file, Results: results}
				}(f)
			}
			select {
			case fr := <-done:
				inFlight--
				select {
				case out <- fr:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
		yieldAllDone(out)
	}()
	return out
}

func yieldAllDone(out chan<- FileResult) {
	out <- FileResult{Results: []MatchResult{{Kind: KindAllDone}}}
}
