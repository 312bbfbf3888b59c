package match

import "sort"

// typeOrder fixes a stable display order among violation types that share
// a span: contract-level problems first, then missing declarations, then
// ordering, then in-place rewrites.
var typeOrder = map[Type]int{
	ContractMissing:      0,
	MissingItem:          1,
	OrderMismatch:        2,
	ModifierListMismatch: 3,
}

// Sort orders violations by source span, then by type, then by name —
// mirroring diag.Sort's span-first comparator so callers can render the
// two diagnostic streams consistently.
func Sort(violations []Violation) {
	sort.SliceStable(violations, func(i, j int) bool {
		a, b := violations[i], violations[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End < b.Span.End
		}
		if typeOrder[a.Type] != typeOrder[b.Type] {
			return typeOrder[a.Type] < typeOrder[b.Type]
		}
		return a.Name < b.Name
	})
}
