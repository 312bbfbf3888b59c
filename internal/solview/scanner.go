package solview

import (
	"github.com/kpumuk/solbuilder/internal/diag"
	"github.com/kpumuk/solbuilder/internal/text"
)

// scanner is a hand-written recursive-descent reader over Solidity source.
// It understands just enough grammar to find contract/modifier/function
// declaration boundaries and a function's applied-modifier list; it never
// builds an expression or statement tree.
type scanner struct {
	src []byte
	pos int
}

// specifierWords are function-header tokens that are never modifier
// invocations.
var specifierWords = map[string]bool{
	"public":   true,
	"external": true,
	"internal": true,
	"private":  true,
	"pure":     true,
	"view":     true,
	"payable":  true,
	"virtual":  true,
	"override": true,
	"returns":  true,
}

func (s *scanner) parseFile() (View, []diag.Diagnostic, error) {
	name, nameSpan, bodyStart, ok := s.findContract()
	if !ok {
		return View{}, nil, ErrNoContract
	}
	bodyEnd, ok := s.matchBrace(bodyStart)
	if !ok {
		return View{}, []diag.Diagnostic{{
			Stage:    diag.StageMatcher,
			Code:     "SOLVIEW_UNTERMINATED_CONTRACT",
			Severity: diag.SeverityError,
			Message:  "contract body is missing a closing '}'",
			Span:     text.Span{Start: text.ByteOffset(nameSpan.Start), End: text.ByteOffset(len(s.src))},
		}}, nil
	}

	items, diags := s.parseContractBody(bodyStart, bodyEnd)

	return View{
		ContractName: name,
		ContractSpan: text.Span{Start: nameSpan.Start, End: text.ByteOffset(bodyEnd + 1)},
		Items:        items,
	}, diags, nil
}

// findContract scans for the first top-level "contract" declaration and
// returns its name, the span of the "contract <Name>" header, and the byte
// offset just past its opening '{'.
func (s *scanner) findContract() (name string, nameSpan text.Span, bodyStart int, ok bool) {
	depth := 0
	for s.pos < len(s.src) {
		if s.skipTrivia() {
			continue
		}
		c := s.src[s.pos]
		switch {
		case c == '{':
			depth++
			s.pos++
		case c == '}':
			depth--
			s.pos++
		case isIdentStart(c):
			start := s.pos
			word := s.readWord()
			if depth == 0 && word == "contract" {
				s.skipWhitespaceAndComments()
				identStart := s.pos
				ident := s.readWord()
				if ident == "" {
					continue
				}
				// Skip any inheritance list / spec gap up to '{'.
				for s.pos < len(s.src) && s.src[s.pos] != '{' {
					if s.skipTrivia() {
						continue
					}
					s.pos++
				}
				if s.pos >= len(s.src) {
					return "", text.Span{}, 0, false
				}
				bodyStart = s.pos + 1
				s.pos = bodyStart
				return ident, text.Span{Start: text.ByteOffset(start), End: text.ByteOffset(identStart + len(ident))}, bodyStart, true
			}
		default:
			s.pos++
		}
	}
	return "", text.Span{}, 0, false
}

// parseContractBody scans [bodyStart, bodyEnd) for top-level declarations.
func (s *scanner) parseContractBody(bodyStart, bodyEnd int) ([]Item, []diag.Diagnostic) {
	var items []Item
	var diags []diag.Diagnostic
	s.pos = bodyStart

	for s.pos < bodyEnd {
		if s.skipTrivia() {
			continue
		}
		if s.pos >= bodyEnd {
			break
		}
		c := s.src[s.pos]
		if !isIdentStart(c) {
			// Stray punctuation at declaration scope (shouldn't normally
			// happen); skip it rather than looping forever.
			s.pos++
			continue
		}

		declStart := s.pos
		word := s.readWord()
		switch word {
		case "modifier":
			item, d, next := s.parseModifier(declStart, bodyEnd)
			items = append(items, item)
			diags = append(diags, d...)
			s.pos = next
		case "function":
			item, d, next := s.parseFunction(declStart, bodyEnd)
			items = append(items, item)
			diags = append(diags, d...)
			s.pos = next
		case "constructor", "receive", "fallback":
			item, d, next := s.parseOtherDeclaration(declStart, bodyEnd)
			diags = append(diags, d...)
			items = append(items, item)
			s.pos = next
		default:
			item, d, next := s.parseOtherDeclaration(declStart, bodyEnd)
			diags = append(diags, d...)
			items = append(items, item)
			s.pos = next
		}
	}
	return items, diags
}

// parseModifier parses "modifier name(...) [specifiers] { ... }" or
// "modifier name(...) [specifiers] ;" starting just after the "modifier"
// keyword has been consumed (s.pos == declStart already past it is not
// assumed; declStart is the declaration's own start offset).
func (s *scanner) parseModifier(declStart, bodyEnd int) (Item, []diag.Diagnostic, int) {
	s.skipWhitespaceAndComments()
	name := s.readWord()
	s.skipParamList()
	s.skipSpecifiers(bodyEnd)

	hasBody, bodySpan, end := s.consumeBodyOrSemicolon(bodyEnd)
	return Item{
		Kind:    KindModifier,
		Name:    name,
		Span:    text.Span{Start: text.ByteOffset(declStart), End: text.ByteOffset(end)},
		HasBody: hasBody,
		Body:    bodySpan,
	}, nil, end
}

// parseFunction parses a function declaration, collecting its
// modifier-invocation list from the specifier run between the parameter
// list and the body/semicolon.
func (s *scanner) parseFunction(declStart, bodyEnd int) (Item, []diag.Diagnostic, int) {
	s.skipWhitespaceAndComments()
	name := s.readWord()
	s.skipParamList()
	mods := s.collectModifierInvocations(bodyEnd)

	hasBody, bodySpan, end := s.consumeBodyOrSemicolon(bodyEnd)
	return Item{
		Kind:      KindFunction,
		Name:      name,
		Modifiers: mods,
		Span:      text.Span{Start: text.ByteOffset(declStart), End: text.ByteOffset(end)},
		HasBody:   hasBody,
		Body:      bodySpan,
	}, nil, end
}

// parseOtherDeclaration skips one statement-ish declaration: everything
// from declStart through the first depth-0 ';' or the first balanced
// "{ ... }" block, whichever comes first. This is a deliberately coarse
// catch-all for state variables, events, errors, structs, enums, and
// using-for directives — none of which the matcher inspects.
func (s *scanner) parseOtherDeclaration(declStart, bodyEnd int) (Item, []diag.Diagnostic, int) {
	depth := 0
	for s.pos < bodyEnd {
		if s.skipTriviaBounded(bodyEnd) {
			continue
		}
		c := s.src[s.pos]
		switch c {
		case '(', '[':
			depth++
			s.pos++
		case ')', ']':
			depth--
			s.pos++
		case '{':
			if depth == 0 {
				brace := s.pos
				end, ok := s.matchBrace(brace + 1)
				if !ok {
					end = bodyEnd
				}
				s.pos = end + 1
				return Item{Kind: KindOther, Span: text.Span{Start: text.ByteOffset(declStart), End: text.ByteOffset(s.pos)}}, nil, s.pos
			}
			depth++
			s.pos++
		case '}':
			depth--
			s.pos++
		case ';':
			if depth <= 0 {
				s.pos++
				return Item{Kind: KindOther, Span: text.Span{Start: text.ByteOffset(declStart), End: text.ByteOffset(s.pos)}}, nil, s.pos
			}
			s.pos++
		default:
			s.pos++
		}
	}
	return Item{Kind: KindOther, Span: text.Span{Start: text.ByteOffset(declStart), End: text.ByteOffset(bodyEnd)}}, nil, bodyEnd
}

// skipParamList skips a balanced "(...)" parameter list, assuming the
// cursor is positioned at or before the opening '('.
func (s *scanner) skipParamList() {
	s.skipWhitespaceAndComments()
	if s.pos >= len(s.src) || s.src[s.pos] != '(' {
		return
	}
	depth := 0
	for s.pos < len(s.src) {
		if s.skipTrivia() {
			continue
		}
		switch s.src[s.pos] {
		case '(':
			depth++
			s.pos++
		case ')':
			depth--
			s.pos++
			if depth == 0 {
				return
			}
		default:
			s.pos++
		}
	}
}

// skipSpecifiers advances past a modifier declaration's specifier run
// (e.g. "virtual override") up to its body or semicolon; modifiers never
// take invocation-style modifiers of their own, so nothing is collected.
func (s *scanner) skipSpecifiers(bodyEnd int) {
	for s.pos < bodyEnd {
		if s.skipTriviaBounded(bodyEnd) {
			continue
		}
		c := s.src[s.pos]
		if c == '{' || c == ';' {
			return
		}
		if isIdentStart(c) {
			s.readWord()
			s.skipWhitespaceAndComments()
			if s.pos < bodyEnd && s.src[s.pos] == '(' {
				s.skipParamList()
			}
			continue
		}
		s.pos++
	}
}

// collectModifierInvocations scans a function header's specifier run,
// returning the identifiers that are not recognized visibility/mutability
// keywords, in source order. Each invocation's own "(...)" argument list
// (if present) is skipped and not treated as a nested declaration.
func (s *scanner) collectModifierInvocations(bodyEnd int) []string {
	var mods []string
	for s.pos < bodyEnd {
		if s.skipTriviaBounded(bodyEnd) {
			continue
		}
		c := s.src[s.pos]
		if c == '{' || c == ';' {
			return mods
		}
		if !isIdentStart(c) {
			s.pos++
			continue
		}
		word := s.readWord()
		s.skipWhitespaceAndComments()
		if s.pos < bodyEnd && s.src[s.pos] == '(' {
			s.skipParamList()
		}
		if !specifierWords[word] {
			mods = append(mods, word)
		}
	}
	return mods
}

// consumeBodyOrSemicolon advances past a declaration's trailing "{ ... }"
// body or bare ';', returning whether a body was found, the body's
// interior span, and the offset just past whatever was consumed.
func (s *scanner) consumeBodyOrSemicolon(bodyEnd int) (bool, text.Span, int) {
	s.skipWhitespaceAndComments()
	if s.pos >= len(s.src) {
		return false, text.Span{}, s.pos
	}
	if s.src[s.pos] == ';' {
		s.pos++
		return false, text.Span{}, s.pos
	}
	if s.src[s.pos] != '{' {
		return false, text.Span{}, s.pos
	}
	interiorStart := s.pos + 1
	end, ok := s.matchBrace(interiorStart)
	if !ok {
		end = bodyEnd
	}
	s.pos = end + 1
	return true, text.Span{Start: text.ByteOffset(interiorStart), End: text.ByteOffset(end)}, s.pos
}

// matchBrace returns the offset of the '}' matching the '{' whose interior
// starts at from (from is the position just after the opening brace). It
// leaves s.pos just past the matched '}'; callers reposition s.pos
// explicitly afterward, so this is safe to call mid-scan.
func (s *scanner) matchBrace(from int) (int, bool) {
	s.pos = from
	depth := 1
	for s.pos < len(s.src) {
		if s.skipTrivia() {
			continue
		}
		switch s.src[s.pos] {
		case '{':
			depth++
			s.pos++
		case '}':
			depth--
			s.pos++
			if depth == 0 {
				return s.pos - 1, true
			}
		default:
			s.pos++
		}
	}
	return len(s.src), false
}

func (s *scanner) readWord() string {
	start := s.pos
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	return string(s.src[start:s.pos])
}

// skipTrivia advances past whitespace, line comments, block comments, and
// string/bytes literals starting at the current position. It reports
// whether it consumed anything.
func (s *scanner) skipTrivia() bool {
	return s.skipTriviaBounded(len(s.src))
}

func (s *scanner) skipTriviaBounded(limit int) bool {
	start := s.pos
	for s.pos < limit {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.pos++
		case c == '/' && s.pos+1 < limit && s.src[s.pos+1] == '/':
			for s.pos < limit && s.src[s.pos] != '\n' {
				s.pos++
			}
		case c == '/' && s.pos+1 < limit && s.src[s.pos+1] == '*':
			s.pos += 2
			for s.pos+1 < limit && !(s.src[s.pos] == '*' && s.src[s.pos+1] == '/') {
				s.pos++
			}
			s.pos += 2
			if s.pos > limit {
				s.pos = limit
			}
		case c == '"' || c == '\'':
			quote := c
			s.pos++
			for s.pos < limit && s.src[s.pos] != quote {
				if s.src[s.pos] == '\\' && s.pos+1 < limit {
					s.pos++
				}
				s.pos++
			}
			if s.pos < limit {
				s.pos++
			}
		default:
			return s.pos > start
		}
	}
	return s.pos > start
}

// skipWhitespaceAndComments is skipTrivia restricted to whitespace and
// comments, used where a string literal would never legally appear (e.g.
// between a keyword and the identifier that follows it).
func (s *scanner) skipWhitespaceAndComments() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			s.pos++
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '*':
			s.pos += 2
			for s.pos+1 < len(s.src) && !(s.src[s.pos] == '*' && s.src[s.pos+1] == '/') {
				s.pos++
			}
			s.pos += 2
			if s.pos > len(s.src) {
				s.pos = len(s.src)
			}
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
