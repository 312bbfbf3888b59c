package text

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
)

// ByteEdit replaces the bytes in Span with NewText. A zero-width Span
// (Start == End) is an insertion; a nil NewText is a deletion. fixer builds
// these for every match.Violation it can resolve: splicing in a missing
// modifier or function declaration, deleting one that needs to move, or
// rewriting a function's modifier-invocation clause in place.
type ByteEdit struct {
	Span    Span
	NewText []byte
}

// InsertEdit splices text in at offset at without consuming any existing
// bytes, the edit fixer emits for a match.MissingItem violation.
func InsertEdit(at ByteOffset, text []byte) ByteEdit {
	return ByteEdit{Span: Span{Start: at, End: at}, NewText: text}
}

// DeleteEdit removes the bytes covered by span, the edit fixer emits for the
// old location of a match.OrderMismatch violation's relocated declaration.
func DeleteEdit(span Span) ByteEdit {
	return ByteEdit{Span: span}
}

// ReplaceEdit swaps the bytes covered by span for text, the edit fixer emits
// for a match.ModifierListMismatch violation's modifier-invocation clause.
func ReplaceEdit(span Span, text []byte) ByteEdit {
	return ByteEdit{Span: span, NewText: text}
}

// IsInsertion reports whether e adds text without removing any existing
// bytes.
func (e ByteEdit) IsInsertion() bool {
	return e.Span.IsEmpty()
}

// ValidateEdits validates edit spans against a source length and checks for
// overlap between declarations the fixer would otherwise splice on top of
// each other. Touching spans are allowed, since a deletion's span commonly
// ends exactly where the next insertion's anchor begins.
func ValidateEdits(srcLen ByteOffset, edits []ByteEdit) error {
	_, err := validatedSortedEdits(srcLen, edits)
	return err
}

// ApplyEdits applies non-overlapping byte edits to a Solidity source buffer
// and returns the rewritten buffer. Edits may be provided in any order; the
// caller (fixer.Fix) accumulates one edit per violation across an entire
// contract body before a single ApplyEdits call produces the fixed file.
func ApplyEdits(src []byte, edits []ByteEdit) ([]byte, error) {
	if len(edits) == 0 {
		return slices.Clone(src), nil
	}

	sorted, err := validatedSortedEdits(ByteOffset(len(src)), edits)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	cursor := ByteOffset(0)
	for _, e := range sorted {
		out.Write(src[cursor:e.Span.Start])
		out.Write(e.NewText)
		cursor = e.Span.End
	}
	out.Write(src[cursor:])
	return out.Bytes(), nil
}

func validatedSortedEdits(srcLen ByteOffset, edits []ByteEdit) ([]ByteEdit, error) {
	if !srcLen.IsValid() {
		return nil, fmt.Errorf("invalid source length: %d", srcLen)
	}
	for _, e := range edits {
		if err := e.Span.Validate(); err != nil {
			return nil, fmt.Errorf("invalid edit span %s: %w", e.Span, err)
		}
		if e.Span.End > srcLen {
			return nil, fmt.Errorf("edit span %s exceeds source length %d", e.Span, srcLen)
		}
	}

	sorted := sortByteEdits(edits)

	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		cur := sorted[i]
		if cur.Span.Start < prev.Span.End {
			return nil, fmt.Errorf("overlapping edits: %s and %s (two violations touching the same declaration?)", prev.Span, cur.Span)
		}
	}
	return sorted, nil
}

func sortByteEdits(edits []ByteEdit) []ByteEdit {
	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, compareByteEdits)
	return sorted
}

func compareByteEdits(a, b ByteEdit) int {
	if c := cmp.Compare(a.Span.Start, b.Span.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.Span.End, b.Span.End)
}
