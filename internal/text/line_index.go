package text

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// LineIndex maps byte offsets to 1-based line/column positions over a
// UTF-8 source buffer. Columns are counted in Unicode scalar values.
type LineIndex struct {
	src        []byte
	lineStarts []ByteOffset
}

// NewLineIndex builds an index over src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []ByteOffset{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, ByteOffset(i+1))
		}
	}
	return &LineIndex{src: src, lineStarts: starts}
}

// SourceLen returns the source length in bytes.
func (li *LineIndex) SourceLen() ByteOffset {
	if li == nil {
		return 0
	}
	return ByteOffset(len(li.src))
}

// LineCount returns the number of logical lines in the source.
func (li *LineIndex) LineCount() int {
	if li == nil {
		return 0
	}
	return len(li.lineStarts)
}

// Position converts a byte offset to a 1-based line/rune-column position.
func (li *LineIndex) Position(off ByteOffset) (Position, error) {
	if li == nil {
		return Position{}, fmt.Errorf("nil LineIndex")
	}
	if !off.IsValid() || off > ByteOffset(len(li.src)) {
		return Position{}, fmt.Errorf("offset out of range: %d", off)
	}

	line := li.lineForOffset(off)
	start := li.lineStarts[line]
	column := utf8.RuneCount(li.src[start:off]) + 1
	return Position{Offset: off, Line: line + 1, Column: column}, nil
}

// lineForOffset returns the 0-based line index such that
// lineStarts[line] <= off < lineStarts[line+1].
func (li *LineIndex) lineForOffset(off ByteOffset) int {
	i, found := slices.BinarySearch(li.lineStarts, off)
	if found {
		return i
	}
	return i - 1
}

// LineText returns the raw bytes of a 1-based line, excluding its
// terminator.
func (li *LineIndex) LineText(line int) []byte {
	if li == nil || line < 1 || line > li.LineCount() {
		return nil
	}
	idx := line - 1
	start := li.lineStarts[idx]
	var end ByteOffset
	if idx+1 < len(li.lineStarts) {
		end = li.lineStarts[idx+1]
	} else {
		end = ByteOffset(len(li.src))
	}
	for end > start && (li.src[end-1] == '\n' || li.src[end-1] == '\r') {
		end--
	}
	return li.src[start:end]
}
