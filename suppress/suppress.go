// Package suppress implements grit-ignore comment detection (spec.md
// §4.7 "Suppression (C9)").
//
// Grounded on teacher's filters/parser.go include/exclude glob
// matching (same "does this line fall in an ignored region" shape,
// generalized here from file-level glob ignores to binding-level
// comment ignores) and cmd/exclusions.go.
package suppress

import (
	"strings"

	"github.com/grit-lang/gritql/ast"
	"github.com/grit-lang/gritql/gritstate"
	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/value"
)

const marker = "grit-ignore"

// FilterSuppressed drops effects whose binding is annotated by an
// in-scope grit-ignore comment, per spec.md §4.7 exactly: the walk
// considers comments among (a) the binding's immediate children, (b)
// any ancestor's children, matching either inline (comment's end line
// within the binding's line span) or pre-applying (comment starting on
// the line immediately above the binding's start line; whether the
// comment is alone on that line is not checked).
func FilterSuppressed(effects []gritstate.Effect, source string, lg lang.Language) []gritstate.Effect {
	if lg == nil {
		return effects
	}
	lineStarts := computeLineStarts(source)
	out := make([]gritstate.Effect, 0, len(effects))
	for _, e := range effects {
		if isSuppressed(e, lineStarts, lg) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func computeLineStarts(source string) []int {
	starts := []int{0}
	for i, r := range source {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func lineOf(starts []int, byteOffset int) int {
	lo, hi := 0, len(starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if starts[mid] <= byteOffset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

func isSuppressed(e gritstate.Effect, lineStarts []int, lg lang.Language) bool {
	if len(e.Binding.Items) == 0 {
		return false
	}
	item := e.Binding.Items[0]
	var node ast.Node
	switch item.Kind {
	case value.BindNode:
		node = item.Node
	case value.BindList:
		if len(item.List) > 0 {
			node = item.List[0]
		}
	}
	if node == nil {
		return false
	}
	bStart, bEnd := node.ByteRange()
	bStartLine := lineOf(lineStarts, bStart)
	bEndLine := lineOf(lineStarts, bEnd)

	check := func(n ast.Node) bool {
		for _, c := range n.Children() {
			if !lg.IsComment(c.Kind()) {
				continue
			}
			text, cs, ce := lg.CommentText(c)
			names, isIgnore := parseIgnoreComment(text)
			if !isIgnore {
				continue
			}
			if !suppressionApplies(names, e.PatternName) {
				continue
			}
			cEndLine := lineOf(lineStarts, ce)
			cStartLine := lineOf(lineStarts, cs)
			if cEndLine >= bStartLine && cStartLine <= bEndLine {
				return true // inline
			}
			if cStartLine == bStartLine-1 {
				return true // pre-applies, sits immediately above
			}
		}
		return false
	}

	for p := node; p != nil; p = p.Parent() {
		if check(p) {
			return true
		}
	}
	return false
}

// parseIgnoreComment recognizes `grit-ignore` and
// `grit-ignore: name1, name2` inside a trimmed comment body.
func parseIgnoreComment(text string) (names []string, ok bool) {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return nil, false
	}
	rest := strings.TrimSpace(text[idx+len(marker):])
	if strings.HasPrefix(rest, ":") {
		rest = strings.TrimSpace(rest[1:])
		for _, n := range strings.Split(rest, ",") {
			n = strings.TrimSpace(n)
			if n != "" {
				names = append(names, n)
			}
		}
	}
	return names, true
}

func suppressionApplies(names []string, patternName string) bool {
	if len(names) == 0 {
		return true // bare grit-ignore suppresses all
	}
	for _, n := range names {
		if n == patternName {
			return true
		}
	}
	return false
}
