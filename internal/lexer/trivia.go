package lexer

import (
	"fmt"

	"github.com/kpumuk/solbuilder/internal/text"
)

// TriviaKind identifies non-token source segments attached as leading trivia.
type TriviaKind uint8

// TriviaKind values describe trivia categories.
const (
	TriviaWhitespace TriviaKind = iota
	TriviaLineComment
)

func (k TriviaKind) String() string {
	switch k {
	case TriviaWhitespace:
		return "Whitespace"
	case TriviaLineComment:
		return "LineComment"
	default:
		return fmt.Sprintf("TriviaKind(%d)", k)
	}
}

// Trivia represents a non-token source span: intra-line whitespace, the
// decorative tree-draw filler between bullets (`│`, `─`), or a stripped
// `// ...` comment. Newlines are never trivia; they are folded into Break
// tokens so the parser can see tree-separating blank lines directly in the
// token stream.
type Trivia struct {
	Kind TriviaKind
	Span text.Span
}

// Bytes returns the trivia bytes referenced by Span or nil if Span is invalid for src.
func (t Trivia) Bytes(src []byte) []byte {
	return bytesForSpan(src, t.Span)
}
