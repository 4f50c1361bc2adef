// Package linearize implements the effect linearizer (spec.md §4.8
// "Effect linearizer (C8)"), the single largest non-matcher component
// (15% share): it takes the original source plus the ordered effect
// list State accumulated during matching and renders one consistent
// new text.
//
// Grounded on original_source/crates/core/src/linearization.rs's
// algorithm sketch: sort effects, enforce nested-or-disjoint, render
// each effect's dynamic parts recursively (memoized by code range),
// then splice in descending-start order.
package linearize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grit-lang/gritql/diagnostics"
	"github.com/grit-lang/gritql/gritstate"
	"github.com/grit-lang/gritql/lang"
	"github.com/grit-lang/gritql/suppress"
	"github.com/grit-lang/gritql/value"
)

// Result is the linearizer's output: either the new text and the
// replacement ranges, or Empty=true if nothing survived suppression
// (spec.md §4.8 "Output... or None if there are no effects").
type Result struct {
	Empty       bool
	NewText     string
	Ranges      []Range
	RenamedFile string // set if an effect renamed the file
}

type Range struct {
	Start, End int
}

type renderedRange struct {
	start, end int
	text       string
}

// Linearize implements the six numbered steps of spec.md §4.8.
func Linearize(source string, effects []gritstate.Effect, st *gritstate.State, lg lang.Language, logs *diagnostics.Logs, indentOf func(byteOffset int) string) (Result, error) {
	kept := suppress.FilterSuppressed(effects, source, lg)
	if len(kept) == 0 {
		return Result{Empty: true}, nil
	}

	type anchored struct {
		eff        gritstate.Effect
		start, end int
	}
	var anchors []anchored
	for _, e := range kept {
		start, end, ok := bindingRange(e.Binding)
		if !ok {
			continue
		}
		anchors = append(anchors, anchored{e, start, end})
	}

	// Step 2: sort by start asc, end desc (outer before inner).
	sort.SliceStable(anchors, func(i, j int) bool {
		if anchors[i].start != anchors[j].start {
			return anchors[i].start < anchors[j].start
		}
		if anchors[i].end != anchors[j].end {
			return anchors[i].end > anchors[j].end
		}
		return anchors[i].eff.Order < anchors[j].eff.Order
	})

	// Step 3: enforce nested-or-disjoint (Invariant 3), dropping
	// partially overlapping inner effects with a diagnostic.
	var final []anchored
	for _, a := range anchors {
		overlaps := false
		for _, kept := range final {
			if partiallyOverlaps(kept.start, kept.end, a.start, a.end) {
				logs.Warn("dropping effect on range [%d,%d): partially overlaps [%d,%d)", a.start, a.end, kept.start, kept.end)
				overlaps = true
				break
			}
		}
		if !overlaps {
			final = append(final, a)
		}
	}

	memo := map[[2]int]string{}
	var renderOne func(a anchored) (string, error)
	renderOne = func(a anchored) (string, error) {
		key := [2]int{a.start, a.end}
		if cached, ok := memo[key]; ok {
			return cached, nil
		}
		text, err := render(a.eff.Replacement, st, indentOf(a.start), logs)
		if err != nil {
			return "", err
		}
		memo[key] = text
		return text, nil
	}

	var rendered []renderedRange
	var renamedFile string
	for _, a := range final {
		text, err := renderOne(a)
		if err != nil {
			logs.Error("render failed for effect on [%d,%d): %v", a.start, a.end, err)
			continue
		}
		if a.eff.Binding.Items[0].Kind == value.BindFilename {
			renamedFile = text
			continue
		}
		rendered = append(rendered, renderedRange{start: a.start, end: a.end, text: text})
	}

	// Step 6: splice in descending-start order so byte indices stay
	// valid.
	sort.Slice(rendered, func(i, j int) bool { return rendered[i].start > rendered[j].start })
	out := source
	ranges := make([]Range, 0, len(rendered))
	for _, r := range rendered {
		if r.start < 0 || r.end > len(out) || r.start > r.end {
			continue
		}
		out = out[:r.start] + r.text + out[r.end:]
		ranges = append(ranges, Range{Start: r.start, End: r.end})
	}

	if out == source && renamedFile == "" {
		return Result{Empty: true}, nil
	}
	return Result{NewText: out, Ranges: ranges, RenamedFile: renamedFile}, nil
}

func partiallyOverlaps(aStart, aEnd, bStart, bEnd int) bool {
	nested := (bStart >= aStart && bEnd <= aEnd) || (aStart >= bStart && aEnd <= bEnd)
	disjoint := aEnd <= bStart || bEnd <= aStart
	return !nested && !disjoint
}

func bindingRange(b value.Binding) (int, int, bool) {
	if len(b.Items) == 0 {
		return 0, 0, false
	}
	item := b.Items[0]
	switch item.Kind {
	case value.BindNode:
		if item.Node == nil {
			return 0, 0, false
		}
		s, e := item.Node.ByteRange()
		return s, e, true
	case value.BindList:
		if len(item.List) == 0 {
			return 0, 0, false
		}
		s, _ := item.List[0].ByteRange()
		_, e := item.List[len(item.List)-1].ByteRange()
		return s, e, true
	case value.BindEmptySlot:
		if item.Node == nil {
			return 0, 0, false
		}
		s, e := item.Node.ByteRange()
		return e, e, true
	case value.BindFilename:
		return 0, 0, true
	}
	return 0, 0, false
}

// render turns a replacement value's dynamic parts into final text
// (spec.md §4.8 step 4): literal strings pass through, variable
// references are looked up in State (with memoization handled by the
// caller keyed on code range), and call parts with an empty name
// concatenate their recursively rendered arguments. A call part that
// names a builtin or function is not evaluated here: renderCall
// returns an error for it.
func render(v value.Value, st *gritstate.State, padding string, logs *diagnostics.Logs) (string, error) {
	switch t := v.(type) {
	case value.Snippets:
		var b strings.Builder
		for _, part := range t.Parts {
			switch {
			case part.HasVar:
				b.WriteString(lookupVariableText(part, st))
			case part.Call != nil:
				rendered, err := renderCall(part.Call, st, logs)
				if err != nil {
					return "", err
				}
				b.WriteString(rendered)
			default:
				b.WriteString(part.Literal)
			}
		}
		return padText(b.String(), padding), nil
	case value.Constant:
		return t.String(), nil
	case value.Binding:
		if len(t.Items) > 0 {
			return t.Items[0].Text(), nil
		}
	}
	return "", nil
}

// lookupVariableText resolves a $name reference against the final
// State (spec.md §4.8 step 4: "a variable's text is finalized by the
// time its effect is rendered"). An inner effect on the same variable
// contributes its own linearized text automatically here because
// State.Bind already stores the matched node/constant, not a pending
// effect — the recursion spec.md describes collapses to a direct
// lookup once matching has finished and only rendering remains.
func lookupVariableText(part value.SnippetPart, st *gritstate.State) string {
	vc, ok := st.Get(gritstate.VariableAddr{Scope: part.VarScope, Index: part.VarIndex})
	if !ok || vc.Value == nil {
		return ""
	}
	return textOf(*vc.Value)
}

func textOf(v value.Value) string {
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

func renderCall(c *value.DynamicCall, st *gritstate.State, logs *diagnostics.Logs) (string, error) {
	parts := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		s, err := render(a, st, "", logs)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	switch c.Name {
	case "":
		return strings.Join(parts, ""), nil
	default:
		return strings.Join(parts, ""), fmt.Errorf("linearize: builtin %q must be rendered via builtin.Table before reaching the linearizer", c.Name)
	}
}

// padText prefixes every line after the first with padding (spec.md
// step 5). It does not consult the language's ShouldPadSnippet or
// PadSnippet: text is padded whenever padding is non-empty.
func padText(text, padding string) string {
	if padding == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = padding + lines[i]
	}
	return strings.Join(lines, "\n")
}
