package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/kpumuk/solbuilder/internal/text"
)

// DiagnosticCode identifies lexer diagnostic categories.
type DiagnosticCode string

// DiagnosticCode values emitted by the lexer.
const (
	DiagnosticInvalidByte      DiagnosticCode = "LEX_INVALID_BYTE"
	DiagnosticControlChar      DiagnosticCode = "LEX_CONTROL_CHAR"
	DiagnosticGlyphMisplaced   DiagnosticCode = "LEX_GLYPH_MISPLACED"
	DiagnosticEmptyTitle       DiagnosticCode = "LEX_EMPTY_TITLE"
	DiagnosticUnknownCharacter DiagnosticCode = "LEX_UNKNOWN_CHARACTER"
)

// Diagnostic is a lexer-level issue with source location.
type Diagnostic struct {
	Code    DiagnosticCode
	Message string
	Span    text.Span
}

// Result is the output of lexing source bytes.
type Result struct {
	Tokens      []Token
	Diagnostics []Diagnostic
}

// Lex tokenizes src into a lossless token stream. The concatenation of
// token lexemes plus leading trivia recovers the input exactly.
func Lex(src []byte) Result {
	s := &scanner{src: src}
	s.run()
	return Result{Tokens: s.tokens, Diagnostics: s.diagnostics}
}

type lexMode uint8

const (
	modeLineStart lexMode = iota
	modeAfterBullet
	modeTitle
	modeAfterRootWord
)

type scanner struct {
	src         []byte
	i           int
	col         int // rune column since start of current physical line
	mode        lexMode
	tokens      []Token
	diagnostics []Diagnostic

	// pending holds trivia collected by scanBreak when it ran out of input
	// before finding a newline (end of file right after a blank or
	// comment-only line). The next emitted token absorbs it so no source
	// byte is ever dropped from the trivia record.
	pending []Trivia
}

func (s *scanner) run() {
	for {
		switch s.mode {
		case modeLineStart:
			if s.lineStart() {
				return
			}
		case modeAfterBullet:
			s.afterBullet()
		case modeTitle:
			s.title()
		case modeAfterRootWord:
			s.afterRootWord()
		}
	}
}

// lineStart consumes indentation filler and dispatches on the first
// substantive rune of the line. Returns true when EOF has been reached and
// scanning is complete.
func (s *scanner) lineStart() bool {
	leading := s.consumeFiller()

	if s.eof() {
		s.emit(Token{Kind: TokenEOF, Span: s.span(s.i, s.i), Leading: leading})
		return true
	}

	r, size := s.decodeRune()

	switch {
	case isNewlineStart(r):
		s.scanBreak(leading)
		s.mode = modeLineStart
		return false
	case r == '/' && s.peekByte(1) == '/':
		leading = s.consumeLineCommentTrivia(leading)
		s.scanBreak(leading)
		s.mode = modeLineStart
		return false
	case r == '├':
		indent := s.col
		start := s.i
		s.advanceRune(size)
		s.emit(Token{Kind: TokenTee, Span: s.span(start, s.i), Leading: leading, Indent: indent})
		s.mode = modeAfterBullet
		return false
	case r == '└':
		indent := s.col
		start := s.i
		s.advanceRune(size)
		s.emit(Token{Kind: TokenCorner, Span: s.span(start, s.i), Leading: leading, Indent: indent})
		s.mode = modeAfterBullet
		return false
	case containsTreeGlyph(s.src, leading):
		// Indentation filler included a '│' or '─' that was never followed
		// by a bullet: decorative glyphs only belong ahead of ├/└.
		start := s.i
		if isWordStart(r) {
			s.scanWordRun()
		} else {
			s.advanceRune(size)
		}
		s.errorToken(start, s.i, DiagnosticGlyphMisplaced, "tree-draw glyph not followed by a bullet", leading)
		s.mode = modeLineStart
		return false
	case isWordStart(r):
		indent := s.col
		start := s.i
		s.scanWordRun()
		s.emit(Token{Kind: TokenWord, Span: s.span(start, s.i), Leading: leading, Indent: indent})
		s.mode = modeAfterRootWord
		return false
	case r < 0x20 && r != '\t':
		start := s.i
		s.advanceRune(size)
		s.errorToken(start, s.i, DiagnosticControlChar, "control character not allowed outside newline/tab", leading)
		s.mode = modeLineStart
		return false
	default:
		start := s.i
		s.advanceRune(size)
		code := DiagnosticUnknownCharacter
		msg := fmt.Sprintf("unexpected character %q at start of line", r)
		if r == utf8.RuneError && size <= 1 {
			code = DiagnosticInvalidByte
			msg = "invalid UTF-8 byte"
		}
		s.errorToken(start, s.i, code, msg, leading)
		s.mode = modeLineStart
		return false
	}
}

// afterBullet consumes the separator and dashes after a bullet glyph, then
// looks for a when/given/it keyword. A branch whose first word is not one of
// those keywords has no keyword token at all: its entire remainder is
// captured as a single String so free-text action descriptions (e.g.
// "Because we shouldn't allow it.") round-trip as one title, not a split
// keyword+remainder pair.
func (s *scanner) afterBullet() {
	leading := s.consumeFiller()

	if s.eof() || s.atNewline() {
		start := s.i
		s.errorToken(start, start, DiagnosticEmptyTitle, "branch bullet not followed by any text", leading)
		s.mode = modeLineStart
		return
	}

	r, _ := s.decodeRune()
	if !isWordStart(r) {
		s.captureTitle(s.i, leading)
		return
	}

	saveI, saveCol := s.i, s.col
	start := s.i
	s.scanWordRun()
	word := string(s.src[start:s.i])
	if kind, ok := keywordKind(word); ok {
		s.emit(Token{Kind: kind, Span: s.span(start, s.i), Leading: leading})
		s.mode = modeTitle
		return
	}

	// Not a recognized keyword: rewind and let the whole line, starting at
	// this word, become the description's String token.
	s.i, s.col = saveI, saveCol
	s.captureTitle(s.i, leading)
}

// title consumes the remainder of the line as a single String token, after
// the single separating space following a recognized keyword.
func (s *scanner) title() {
	leading := s.consumeHorizontalWhitespace()
	s.captureTitle(s.i, leading)
}

// captureTitle scans from start to end of line into a single String token,
// stripping a trailing inline comment and trimming trailing whitespace.
func (s *scanner) captureTitle(start int, leading []Trivia) {
	contentEnd := start
	commentStart := -1
	for !s.eof() && !s.atNewline() {
		if s.peekByte(0) == '/' && s.peekByte(1) == '/' {
			commentStart = s.i
			break
		}
		_, size := s.decodeRune()
		s.i += size
		contentEnd = s.i
	}

	trimmedEnd := contentEnd
	for trimmedEnd > start && isHorizontalSpaceByte(s.src[trimmedEnd-1]) {
		trimmedEnd--
	}

	s.emit(Token{Kind: TokenString, Span: s.span(start, trimmedEnd), Leading: leading})

	var tail []Trivia
	if trimmedEnd < contentEnd {
		tail = append(tail, Trivia{Kind: TriviaWhitespace, Span: s.span(trimmedEnd, contentEnd)})
	}
	if commentStart >= 0 {
		tail = s.consumeLineCommentTrivia(tail)
	}

	s.scanBreak(tail)
	s.mode = modeLineStart
}

// afterRootWord consumes an optional "::" separator and function
// identifier following a root contract identifier.
func (s *scanner) afterRootWord() {
	leading := s.consumeHorizontalWhitespace()

	if s.peekByte(0) == ':' && s.peekByte(1) == ':' {
		start := s.i
		s.i += 2
		s.col += 2
		s.emit(Token{Kind: TokenColonColon, Span: s.span(start, s.i), Leading: leading})

		fnLeading := s.consumeHorizontalWhitespace()
		if !s.eof() {
			r, _ := s.decodeRune()
			if isWordStart(r) {
				fnStart := s.i
				s.scanWordRun()
				s.emit(Token{Kind: TokenWord, Span: s.span(fnStart, s.i), Leading: fnLeading})
				s.mode = modeLineStart
				return
			}
		}
		s.errorToken(s.i, s.i, DiagnosticUnknownCharacter, "expected function identifier after '::'", fnLeading)
		s.mode = modeLineStart
		return
	}

	// No "::"; whatever whitespace we consumed belongs to the break that
	// must follow a bare root identifier.
	s.scanBreak(leading)
	s.mode = modeLineStart
}

// scanBreak consumes one or more newlines, folding intervening blank and
// comment-only lines into the resulting Break token. preTrivia is trivia
// already consumed on the current line before the first newline.
func (s *scanner) scanBreak(preTrivia []Trivia) {
	start := s.i
	count := 0
	var trivia []Trivia
	trivia = append(trivia, preTrivia...)

	for {
		if s.atNewline() {
			s.consumeNewline()
			count++
			continue
		}

		saveI, saveCol := s.i, s.col
		ws := s.consumeHorizontalWhitespace()

		switch {
		case s.eof():
			trivia = append(trivia, ws...)
			goto done
		case s.atNewline():
			trivia = append(trivia, ws...)
			continue
		case s.peekByte(0) == '/' && s.peekByte(1) == '/':
			trivia = append(trivia, ws...)
			trivia = s.consumeLineCommentTrivia(trivia)
			continue
		default:
			// Real content: undo the whitespace peek so lineStart can
			// measure indentation itself.
			s.i, s.col = saveI, saveCol
			goto done
		}
	}

done:
	if count == 0 {
		// No newline found before EOF; hand the trivia to whichever token
		// is emitted next (the EOF token) instead of dropping it.
		s.pending = append(s.pending, trivia...)
		return
	}
	// preTrivia lies before start; every byte consumed from start on,
	// blank and comment-only lines included, is inside the Break's span.
	s.emit(Token{Kind: TokenBreak, Span: s.span(start, s.i), Leading: preTrivia, BreakCount: count})
}

func (s *scanner) consumeFiller() []Trivia {
	start := s.i
	for !s.eof() {
		r, size := s.decodeRune()
		if !isFiller(r) {
			break
		}
		s.advanceRune(size)
	}
	if s.i == start {
		return nil
	}
	return []Trivia{{Kind: TriviaWhitespace, Span: s.span(start, s.i)}}
}

func (s *scanner) consumeHorizontalWhitespace() []Trivia {
	start := s.i
	for !s.eof() && isHorizontalSpaceByte(s.src[s.i]) {
		s.i++
		s.col++
	}
	if s.i == start {
		return nil
	}
	return []Trivia{{Kind: TriviaWhitespace, Span: s.span(start, s.i)}}
}

func (s *scanner) consumeLineCommentTrivia(into []Trivia) []Trivia {
	start := s.i
	for !s.eof() && !s.atNewline() {
		s.i++
		s.col++
	}
	return append(into, Trivia{Kind: TriviaLineComment, Span: s.span(start, s.i)})
}

func (s *scanner) scanWordRun() {
	for !s.eof() {
		r, size := s.decodeRune()
		if !isWordPart(r) {
			break
		}
		s.advanceRune(size)
	}
}

func (s *scanner) atNewline() bool {
	if s.eof() {
		return false
	}
	b := s.src[s.i]
	return b == '\n' || b == '\r'
}

func (s *scanner) consumeNewline() {
	if s.src[s.i] == '\r' {
		s.i++
		if !s.eof() && s.src[s.i] == '\n' {
			s.i++
		}
	} else {
		s.i++
	}
	s.col = 0
}

func (s *scanner) emit(t Token) {
	if len(s.pending) > 0 {
		t.Leading = append(append([]Trivia{}, s.pending...), t.Leading...)
		s.pending = nil
	}
	s.tokens = append(s.tokens, t)
}

func (s *scanner) errorToken(start, end int, code DiagnosticCode, msg string, leading []Trivia) {
	sp := s.span(start, end)
	s.diagnostics = append(s.diagnostics, Diagnostic{Code: code, Message: msg, Span: sp})
	s.emit(Token{Kind: TokenError, Span: sp, Leading: leading, Flags: TokenFlagMalformed})
}

func (s *scanner) eof() bool {
	return s.i >= len(s.src)
}

func (s *scanner) peekByte(delta int) byte {
	j := s.i + delta
	if j < 0 || j >= len(s.src) {
		return 0
	}
	return s.src[j]
}

func (s *scanner) decodeRune() (rune, int) {
	if s.eof() {
		return utf8.RuneError, 0
	}
	r, size := utf8.DecodeRune(s.src[s.i:])
	return r, size
}

func (s *scanner) advanceRune(size int) {
	if size <= 0 {
		size = 1
	}
	s.i += size
	s.col++
}

func (s *scanner) span(start, end int) text.Span {
	return text.Span{Start: text.ByteOffset(start), End: text.ByteOffset(end)}
}

func isNewlineStart(r rune) bool {
	return r == '\n' || r == '\r'
}

func isFiller(r rune) bool {
	switch r {
	case ' ', '\t', '\v', '\f', '│', '─':
		return true
	default:
		return false
	}
}

func isHorizontalSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\v', '\f':
		return true
	default:
		return false
	}
}

// containsTreeGlyph reports whether any whitespace trivia in the slice
// contains a '│' or '─' tree-draw rune.
func containsTreeGlyph(src []byte, trivia []Trivia) bool {
	for _, tr := range trivia {
		if tr.Kind != TriviaWhitespace {
			continue
		}
		b := tr.Bytes(src)
		for len(b) > 0 {
			r, size := utf8.DecodeRune(b)
			if r == '│' || r == '─' {
				return true
			}
			b = b[size:]
		}
	}
	return false
}

func isWordStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isWordPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
