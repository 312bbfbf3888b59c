// Package match diffs a file's HIR against its existing Solidity parts
// view and reports what the file needs to match structurally: missing
// declarations, misordered ones, and modifier-list drift on functions
// that already exist.
package match

import (
	"fmt"

	"github.com/kpumuk/solbuilder/internal/hir"
	"github.com/kpumuk/solbuilder/internal/solview"
	"github.com/kpumuk/solbuilder/internal/text"
)

// Type classifies a violation.
type Type string

const (
	ContractMissing      Type = "ContractMissing"
	MissingItem          Type = "MissingItem"
	OrderMismatch        Type = "OrderMismatch"
	ModifierListMismatch Type = "ModifierListMismatch"
)

// Violation is one structural difference between a HIR and a parts view.
type Violation struct {
	Type Type
	Kind solview.Kind // meaningful for MissingItem and ModifierListMismatch
	Name string

	// InsertAfter names the predecessor item (in HIR order) a MissingItem
	// should be spliced after; empty means "contract start".
	InsertAfter string

	// ExpectedAfter/ActualAfter name an OrderMismatch item's predecessor in
	// HIR order and in the file's current order, respectively.
	ExpectedAfter string
	ActualAfter   string

	Fixable bool
	Span    text.Span
	Message string
}

// Options configures matching behavior that mirrors the scaffold options
// used to produce the HIR in the first place.
type Options struct {
	// SkipModifiers must match the emit.Options.SkipModifiers used to
	// generate h; modifier declarations are excluded from the expected
	// sequence entirely; MissingItem is never reported for them.
	SkipModifiers bool
}

type expectedItem struct {
	kind solview.Kind
	name string
}

// Compute diffs h against view and returns every violation, in a stable,
// reviewer-friendly order (see Sort).
func Compute(h hir.HIR, view solview.View, opts Options) []Violation {
	if view.ContractName != h.Contract {
		return []Violation{{
			Type:    ContractMissing,
			Name:    h.Contract,
			Fixable: false,
			Span:    view.ContractSpan,
			Message: fmt.Sprintf("contract %q not found (got %q)", h.Contract, view.ContractName),
		}}
	}

	expected := buildExpected(h, opts)
	expectedNames := make(map[string]bool, len(expected))
	for _, e := range expected {
		expectedNames[e.name] = true
	}

	byName := make(map[string]solview.Item, len(view.Items))
	var filteredView []solview.Item
	for _, it := range view.Items {
		if !expectedNames[it.Name] {
			continue
		}
		if _, ok := byName[it.Name]; ok {
			continue // duplicate declaration name; first occurrence wins
		}
		byName[it.Name] = it
		filteredView = append(filteredView, it)
	}

	var violations []Violation
	violations = append(violations, missingItems(expected, byName, view)...)
	violations = append(violations, orderMismatches(expected, filteredView, byName)...)
	violations = append(violations, modifierListMismatches(h, byName)...)

	Sort(violations)
	return violations
}

func buildExpected(h hir.HIR, opts Options) []expectedItem {
	var expected []expectedItem
	if !opts.SkipModifiers {
		for _, m := range h.Modifiers {
			expected = append(expected, expectedItem{kind: solview.KindModifier, name: m.Name})
		}
	}
	for _, fn := range h.Functions {
		expected = append(expected, expectedItem{kind: solview.KindFunction, name: fn.Name})
	}
	return expected
}

// missingItems reports one violation per expected item absent from byName.
// Span is set to the nearest preceding expected item that already exists in
// the view (the same predecessor fixer.nearestAnchor splices after), or
// view.ContractSpan when no earlier expected item exists yet — so the
// rendered diagnostic underlines the real insertion point instead of the
// zero-value {0,0} span.
func missingItems(expected []expectedItem, byName map[string]solview.Item, view solview.View) []Violation {
	var out []Violation
	for i, e := range expected {
		if _, ok := byName[e.name]; ok {
			continue
		}
		insertAfter := ""
		if i > 0 {
			insertAfter = expected[i-1].name
		}
		out = append(out, Violation{
			Type:        MissingItem,
			Kind:        e.kind,
			Name:        e.name,
			InsertAfter: insertAfter,
			Fixable:     true,
			Span:        nearestPresentSpan(expected, byName, view, i),
			Message:     fmt.Sprintf("%s %q is missing", e.kind, e.name),
		})
	}
	return out
}

// nearestPresentSpan walks backward from index i over expected, returning
// the span of the first item already present in byName, or view.ContractSpan
// once it runs out of predecessors (including the i == 0 case).
func nearestPresentSpan(expected []expectedItem, byName map[string]solview.Item, view solview.View, i int) text.Span {
	for j := i - 1; j >= 0; j-- {
		if item, ok := byName[expected[j].name]; ok {
			return item.Span
		}
	}
	return view.ContractSpan
}

// orderMismatches compares the expected (HIR) order of present items
// against their current order in the file, via a longest-common-subsequence
// alignment: the LCS is the largest set of items that can stay put, and
// everything outside it is reported as out of place. Ties in the LCS are
// broken toward keeping the earlier-in-HIR item in the retained set.
func orderMismatches(expected []expectedItem, filteredView []solview.Item, byName map[string]solview.Item) []Violation {
	var present []expectedItem
	for _, e := range expected {
		if _, ok := byName[e.name]; ok {
			present = append(present, e)
		}
	}

	n, m := len(present), len(filteredView)
	if n == 0 || m == 0 {
		return nil
	}

	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if present[i].name == filteredView[j].Name {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] == dp[i][j+1] {
				dp[i][j] = dp[i][j+1] // tie: prefer keeping present[i] alive for a later match
			} else if dp[i+1][j] > dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	matched := make(map[int]bool, n)
	vi, vj := 0, 0
	for vi < n && vj < m {
		switch {
		case present[vi].name == filteredView[vj].Name:
			matched[vi] = true
			vi++
			vj++
		case dp[vi+1][vj] == dp[vi][vj+1]:
			vj++
		case dp[vi+1][vj] > dp[vi][vj+1]:
			vi++
		default:
			vj++
		}
	}

	viewIndex := make(map[string]int, m)
	for idx, it := range filteredView {
		viewIndex[it.Name] = idx
	}

	var out []Violation
	for i, e := range present {
		if matched[i] {
			continue
		}
		expectedAfter := ""
		if i > 0 {
			expectedAfter = present[i-1].name
		}
		actualAfter := ""
		if idx := viewIndex[e.name]; idx > 0 {
			actualAfter = filteredView[idx-1].Name
		}
		item := byName[e.name]
		out = append(out, Violation{
			Type:          OrderMismatch,
			Kind:          e.kind,
			Name:          e.name,
			ExpectedAfter: expectedAfter,
			ActualAfter:   actualAfter,
			Fixable:       true,
			Span:          item.Span,
			Message:       fmt.Sprintf("%s %q is out of order", e.kind, e.name),
		})
	}
	return out
}

func modifierListMismatches(h hir.HIR, byName map[string]solview.Item) []Violation {
	var out []Violation
	for _, fn := range h.Functions {
		item, ok := byName[fn.Name]
		if !ok || item.Kind != solview.KindFunction {
			continue
		}
		if sameModifierList(fn.Modifiers, item.Modifiers) {
			continue
		}
		out = append(out, Violation{
			Type:    ModifierListMismatch,
			Kind:    solview.KindFunction,
			Name:    fn.Name,
			Fixable: true,
			Span:    item.Span,
			Message: fmt.Sprintf("function %q has modifiers %v, expected %v", fn.Name, item.Modifiers, fn.Modifiers),
		})
	}
	return out
}

func sameModifierList(want, got []string) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if want[i] != got[i] {
			return false
		}
	}
	return true
}
