// Package fixer turns match violations into the minimum set of byte-range
// edits that bring a Solidity file's structure in line with its HIR, and
// applies them via internal/text's edit machinery.
package fixer

import (
	"fmt"
	"slices"
	"sort"

	"github.com/kpumuk/solbuilder/internal/emit"
	"github.com/kpumuk/solbuilder/internal/hir"
	"github.com/kpumuk/solbuilder/internal/match"
	"github.com/kpumuk/solbuilder/internal/solview"
	"github.com/kpumuk/solbuilder/internal/text"
)

// Result is a fix run's outcome.
type Result struct {
	// Output is the fixed source. Equal to the input (byte for byte) when
	// there was nothing to fix.
	Output []byte
	// Applied counts the byte edits that were made.
	Applied int
	// Skipped lists violations that could not be fixed (e.g. a missing
	// contract, which the fixer cannot conjure a name for).
	Skipped []match.Violation
}

type expectedEntry struct {
	kind   solview.Kind
	name   string
	render func(emit.Options) []byte
}

// Fix applies every fixable violation in violations to src and returns the
// result. Running Fix again on its own output with a freshly recomputed
// violation set is idempotent: a matching file yields zero edits.
func Fix(src []byte, h hir.HIR, view solview.View, violations []match.Violation, opts emit.Options) (Result, error) {
	for _, v := range violations {
		if v.Type == match.ContractMissing {
			return Result{Output: slices.Clone(src), Skipped: []match.Violation{v}}, nil
		}
	}

	byName := make(map[string]solview.Item, len(view.Items))
	for _, it := range view.Items {
		byName[it.Name] = it
	}

	expected := buildExpectedEntries(h)
	expectedIndex := make(map[string]int, len(expected))
	for i, e := range expected {
		expectedIndex[e.name] = i
	}

	anchors := make(map[text.ByteOffset][]fragment)
	var deletions []text.ByteEdit
	var modifierRewrites []text.ByteEdit
	var skipped []match.Violation

	for _, v := range violations {
		switch v.Type {
		case match.MissingItem:
			if !v.Fixable {
				skipped = append(skipped, v)
				continue
			}
			entry, ok := findEntry(expected, v.Name)
			if !ok {
				skipped = append(skipped, v)
				continue
			}
			anchor := nearestAnchor(expected, expectedIndex, byName, view, v.Name)
			anchors[anchor] = append(anchors[anchor], fragment{
				expectedIndex: expectedIndex[v.Name],
				bytes:         append([]byte("\n"), entry.render(opts)...),
			})

		case match.OrderMismatch:
			if !v.Fixable {
				skipped = append(skipped, v)
				continue
			}
			item, ok := byName[v.Name]
			if !ok {
				skipped = append(skipped, v)
				continue
			}
			delSpan := trimmedDeletionSpan(src, item.Span)
			deletions = append(deletions, text.DeleteEdit(delSpan))

			var anchor text.ByteOffset
			if v.ExpectedAfter == "" {
				anchor = contractStartAnchor(view)
			} else if pred, ok := byName[v.ExpectedAfter]; ok {
				anchor = pred.Span.End
			} else {
				anchor = contractStartAnchor(view)
			}
			original := src[item.Span.Start:item.Span.End]
			anchors[anchor] = append(anchors[anchor], fragment{
				expectedIndex: expectedIndex[v.Name],
				bytes:         append(append([]byte("\n"), original...), '\n', '\n'),
			})

		case match.ModifierListMismatch:
			if !v.Fixable {
				skipped = append(skipped, v)
				continue
			}
			fn, ok := findFunction(h, v.Name)
			if !ok {
				skipped = append(skipped, v)
				continue
			}
			item, ok := byName[v.Name]
			if !ok {
				skipped = append(skipped, v)
				continue
			}
			clause, ok := modifierClauseSpan(src, item)
			if !ok {
				skipped = append(skipped, v)
				continue
			}
			modifierRewrites = append(modifierRewrites, text.ReplaceEdit(clause, []byte(modifierClauseText(fn.Modifiers))))

		case match.ContractMissing:
			// handled above before the loop

		default:
			skipped = append(skipped, v)
		}
	}

	var edits []text.ByteEdit
	edits = append(edits, deletions...)
	edits = append(edits, modifierRewrites...)
	for anchor, frags := range anchors {
		sort.SliceStable(frags, func(i, j int) bool { return frags[i].expectedIndex < frags[j].expectedIndex })
		var joined []byte
		for _, f := range frags {
			joined = append(joined, f.bytes...)
		}
		edits = append(edits, text.InsertEdit(anchor, joined))
	}

	if len(edits) == 0 {
		return Result{Output: slices.Clone(src), Skipped: skipped}, nil
	}

	out, err := text.ApplyEdits(src, edits)
	if err != nil {
		return Result{}, fmt.Errorf("fixer: %w", err)
	}
	return Result{Output: out, Applied: len(edits), Skipped: skipped}, nil
}

type fragment struct {
	expectedIndex int
	bytes         []byte
}

func buildExpectedEntries(h hir.HIR) []expectedEntry {
	var out []expectedEntry
	for _, m := range h.Modifiers {
		m := m
		out = append(out, expectedEntry{
			kind: solview.KindModifier,
			name: m.Name,
			render: func(opts emit.Options) []byte {
				return emit.RenderModifier(m, opts)
			},
		})
	}
	for _, fn := range h.Functions {
		fn := fn
		out = append(out, expectedEntry{
			kind: solview.KindFunction,
			name: fn.Name,
			render: func(opts emit.Options) []byte {
				return emit.RenderFunction(fn, opts)
			},
		})
	}
	return out
}

func findEntry(expected []expectedEntry, name string) (expectedEntry, bool) {
	for _, e := range expected {
		if e.name == name {
			return e, true
		}
	}
	return expectedEntry{}, false
}

func findFunction(h hir.HIR, name string) (hir.TestFunction, bool) {
	for _, fn := range h.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return hir.TestFunction{}, false
}

// nearestAnchor finds the byte offset to insert a missing item at: right
// after the nearest preceding expected item that already exists in the
// view, or the contract's start if none does.
func nearestAnchor(expected []expectedEntry, expectedIndex map[string]int, byName map[string]solview.Item, view solview.View, name string) text.ByteOffset {
	idx := expectedIndex[name]
	for i := idx - 1; i >= 0; i-- {
		if item, ok := byName[expected[i].name]; ok {
			return item.Span.End
		}
	}
	return contractStartAnchor(view)
}

// contractStartAnchor is the insertion point for an item with no existing
// predecessor: just before the first existing declaration, or just before
// the contract's closing brace if it has none yet.
func contractStartAnchor(view solview.View) text.ByteOffset {
	if len(view.Items) > 0 {
		return view.Items[0].Span.Start
	}
	if view.ContractSpan.IsValid() && view.ContractSpan.End > view.ContractSpan.Start {
		return view.ContractSpan.End - 1
	}
	return 0
}

// trimmedDeletionSpan extends span.End over up to two bytes of trailing
// newline so relocating an item doesn't leave a double-blank gap behind.
func trimmedDeletionSpan(src []byte, span text.Span) text.Span {
	end := int(span.End)
	n := 0
	for end < len(src) && src[end] == '\n' && n < 2 {
		end++
		n++
	}
	return text.Span{Start: span.Start, End: text.ByteOffset(end)}
}

// modifierClauseSpan locates the span from the opening '(' of a function's
// parameter list to its opening brace — the region that carries its
// modifier-invocation list — so it can be rewritten in place. It requires
// a body (Item.Body.Start anchors the brace position) and re-scans the
// source for the parameter list's closing ')', since Item does not retain
// that span itself.
func modifierClauseSpan(src []byte, item solview.Item) (text.Span, bool) {
	if !item.HasBody {
		return text.Span{}, false
	}
	i := int(item.Span.Start)
	n := len(src)
	for i < n && src[i] != '(' {
		i++
	}
	if i >= n {
		return text.Span{}, false
	}
	parenStart := i
	depth := 0
	parenEnd := -1
	for ; i < n; i++ {
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				parenEnd = i + 1
			}
		}
		if parenEnd != -1 {
			break
		}
	}
	if parenEnd == -1 {
		return text.Span{}, false
	}
	braceStart := int(item.Body.Start) - 1
	if braceStart < parenEnd {
		braceStart = parenEnd
	}
	return text.Span{Start: text.ByteOffset(parenStart), End: text.ByteOffset(braceStart)}, true
}

// modifierClauseText regenerates a zero-argument parameter list plus
// visibility and modifier-invocation clause, matching the shape
// internal/emit writes for generated functions: "() public mod1 mod2 ".
func modifierClauseText(modifiers []string) string {
	out := "() public"
	for _, m := range modifiers {
		out += " " + m
	}
	return out + " "
}
