package ast

import (
	"fmt"

	"github.com/kpumuk/solbuilder/internal/diag"
	"github.com/kpumuk/solbuilder/internal/lexer"
	"github.com/kpumuk/solbuilder/internal/text"
)

// Diagnostic codes raised while building the tree from a token stream.
const (
	CodeExpectedRootIdentifier  diag.Code = "PARSE_EXPECTED_ROOT_IDENTIFIER"
	CodeExpectedFunctionIdent   diag.Code = "PARSE_EXPECTED_FUNCTION_IDENTIFIER"
	CodeExpectedEndOfLine       diag.Code = "PARSE_EXPECTED_END_OF_LINE"
	CodeExpectedKeyword         diag.Code = "PARSE_EXPECTED_KEYWORD"
	CodeExpectedTitle           diag.Code = "PARSE_EXPECTED_TITLE"
	CodeAmbiguousIndent         diag.Code = "PARSE_AMBIGUOUS_INDENT"
	CodeActionHasConditionChild diag.Code = "PARSE_ACTION_HAS_CONDITION_CHILD"
	CodeUnexpectedToken         diag.Code = "PARSE_UNEXPECTED_TOKEN"
	CodeEmptyRoot               diag.Code = "PARSE_EMPTY_ROOT"
)

// Result is the output of parsing one source file's token stream.
type Result struct {
	Roots       []*Root
	Diagnostics []diag.Diagnostic
}

// Parse builds the roots of a token stream produced by lexer.Lex. Lexer
// diagnostics are carried through unchanged; parse errors are appended.
func Parse(src []byte, lr lexer.Result) Result {
	p := &parser{src: src, tokens: lr.Tokens}
	for _, d := range lr.Diagnostics {
		p.diags = append(p.diags, diag.Diagnostic{
			Stage:    diag.StageTokenizer,
			Code:     diag.Code(d.Code),
			Severity: diag.SeverityError,
			Message:  d.Message,
			Span:     d.Span,
		})
	}

	for p.peek().Kind != lexer.TokenEOF {
		root := p.parseRoot()
		if root != nil {
			p.roots = append(p.roots, root)
		}
	}

	return Result{Roots: p.roots, Diagnostics: p.diags}
}

type parser struct {
	src    []byte
	tokens []lexer.Token
	pos    int
	roots  []*Root
	diags  []diag.Diagnostic
}

func (p *parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() lexer.Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

// lastConsumedEnd returns the end offset of the most recently consumed
// token, used as the fallback span end for a node with no children.
func (p *parser) lastConsumedEnd() text.ByteOffset {
	if p.pos == 0 {
		return 0
	}
	return p.tokens[p.pos-1].Span.End
}

func (p *parser) errorf(span text.Span, code diag.Code, format string, args ...any) {
	p.diags = append(p.diags, diag.Diagnostic{
		Stage:    diag.StageParser,
		Code:     code,
		Severity: diag.SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// skipLine discards tokens through the next Break (or EOF) so parsing can
// resync after an error mid-line.
func (p *parser) skipLine() {
	for {
		tok := p.peek()
		if tok.Kind == lexer.TokenEOF {
			return
		}
		p.advance()
		if tok.Kind == lexer.TokenBreak {
			return
		}
	}
}

// parseRoot parses one "Contract" or "Contract::function" line and its
// full subtree, advancing past the line-ending Break.
func (p *parser) parseRoot() *Root {
	tok := p.peek()
	if tok.Kind != lexer.TokenWord {
		p.errorf(tok.Span, CodeExpectedRootIdentifier, "expected a root contract identifier, found %s", tok.Kind)
		p.skipLine()
		return nil
	}
	p.advance()
	root := &Root{Contract: tok.Lexeme(p.src), ContractSpan: tok.Span}

	if p.peek().Kind == lexer.TokenColonColon {
		p.advance()
		fn := p.peek()
		if fn.Kind != lexer.TokenWord {
			p.errorf(fn.Span, CodeExpectedFunctionIdent, "'::' must be followed by a function identifier")
			p.skipLine()
			return nil
		}
		p.advance()
		root.Function = fn.Lexeme(p.src)
		root.FunctionSpan = fn.Span
	}

	lineEnd := p.lastConsumedEnd()
	p.expectBreak()

	children, end := p.parseChildren(-1, lineEnd)
	root.Children = children
	root.NodeSpan = text.Span{Start: tok.Span.Start, End: end}

	if len(children) == 0 {
		p.errorf(root.NodeSpan, CodeEmptyRoot, "root %q has no children", root.Contract)
	}

	return root
}

// expectBreak consumes a line-ending Break if present; EOF is accepted as
// an implicit break for a file with no trailing newline.
func (p *parser) expectBreak() {
	tok := p.peek()
	switch tok.Kind {
	case lexer.TokenBreak:
		p.advance()
	case lexer.TokenEOF:
		// implicit end of line
	default:
		p.errorf(tok.Span, CodeExpectedEndOfLine, "expected end of line, found %s", tok.Kind)
	}
}

// expectString consumes and returns a TokenString, or records a diagnostic
// and returns nil without advancing.
func (p *parser) expectString(what string) *lexer.Token {
	tok := p.peek()
	if tok.Kind == lexer.TokenString {
		p.advance()
		return &tok
	}
	p.errorf(tok.Span, CodeExpectedTitle, "expected %s, found %s", what, tok.Kind)
	return nil
}

func isBulletStart(k lexer.TokenKind) bool {
	return k == lexer.TokenTee || k == lexer.TokenCorner
}

// parseChildren collects the Condition/Action siblings at the first
// indent level deeper than parentIndent, recursing into each one's own
// subtree. It stops as soon as it sees a token that isn't a bullet at a
// matching or deeper indent, leaving that token for the caller.
func (p *parser) parseChildren(parentIndent int, selfEnd text.ByteOffset) ([]Node, text.ByteOffset) {
	var children []Node
	siblingIndent := -1
	end := selfEnd

	for {
		tok := p.peek()
		if !isBulletStart(tok.Kind) {
			break
		}
		if tok.Indent <= parentIndent {
			break
		}
		if siblingIndent == -1 {
			siblingIndent = tok.Indent
		}
		if tok.Indent > siblingIndent {
			p.errorf(tok.Span, CodeAmbiguousIndent, "child line indented past two possible parents")
			p.skipLine()
			continue
		}
		if tok.Indent < siblingIndent {
			break
		}

		node, nodeEnd := p.parseBranch(tok.Indent)
		if node != nil {
			children = append(children, node)
		}
		end = nodeEnd
	}

	return children, end
}

// parseBranch parses one bullet-introduced Condition or Action, including
// its own nested subtree.
func (p *parser) parseBranch(indent int) (Node, text.ByteOffset) {
	bullet := p.advance()
	next := p.peek()

	switch next.Kind {
	case lexer.TokenWhen, lexer.TokenGiven:
		p.advance()
		title := p.expectString("a condition title")
		lineEnd := p.lastConsumedEnd()
		p.expectBreak()
		children, end := p.parseChildren(indent, lineEnd)
		if title == nil {
			return nil, end
		}
		kw := KeywordWhen
		if next.Kind == lexer.TokenGiven {
			kw = KeywordGiven
		}
		return &Condition{
			Keyword:   kw,
			Title:     title.Lexeme(p.src),
			TitleSpan: title.Span,
			Children:  children,
			NodeSpan:  text.Span{Start: bullet.Span.Start, End: end},
		}, end

	case lexer.TokenIt:
		p.advance()
		title := p.expectString("an action title")
		lineEnd := p.lastConsumedEnd()
		p.expectBreak()
		children, end := p.parseActionChildren(indent, lineEnd)
		if title == nil {
			return nil, end
		}
		return &Action{
			Title:     title.Lexeme(p.src),
			TitleSpan: title.Span,
			Children:  children,
			NodeSpan:  text.Span{Start: bullet.Span.Start, End: end},
		}, end

	case lexer.TokenString:
		// A bare description line directly under a Root or Condition: only
		// valid as a child of an Action, so this placement is an error.
		p.errorf(next.Span, CodeExpectedKeyword, "expected a when/given/it keyword before the title")
		p.advance()
		lineEnd := p.lastConsumedEnd()
		p.expectBreak()
		_, end := p.parseChildren(indent, lineEnd)
		return nil, end

	default:
		p.errorf(next.Span, CodeUnexpectedToken, "unexpected token %s after branch bullet", next.Kind)
		p.advance()
		return nil, next.Span.End
	}
}

// parseActionChildren collects the ActionDescription siblings beneath an
// Action, at the first indent level deeper than parentIndent.
func (p *parser) parseActionChildren(parentIndent int, selfEnd text.ByteOffset) ([]*ActionDescription, text.ByteOffset) {
	var out []*ActionDescription
	siblingIndent := -1
	end := selfEnd

	for {
		tok := p.peek()
		if !isBulletStart(tok.Kind) {
			break
		}
		if tok.Indent <= parentIndent {
			break
		}
		if siblingIndent == -1 {
			siblingIndent = tok.Indent
		}
		if tok.Indent > siblingIndent {
			p.errorf(tok.Span, CodeAmbiguousIndent, "child line indented past two possible parents")
			p.skipLine()
			continue
		}
		if tok.Indent < siblingIndent {
			break
		}

		desc, descEnd := p.parseDescriptionBranch(tok.Indent)
		if desc != nil {
			out = append(out, desc)
		}
		end = descEnd
	}

	return out, end
}

// parseDescriptionBranch parses one bullet-introduced free-text
// description line beneath an Action.
func (p *parser) parseDescriptionBranch(indent int) (*ActionDescription, text.ByteOffset) {
	bullet := p.advance()
	next := p.peek()

	if next.Kind == lexer.TokenWhen || next.Kind == lexer.TokenGiven || next.Kind == lexer.TokenIt {
		p.errorf(next.Span, CodeActionHasConditionChild, "an action's children must be description text, not a when/given/it branch")
		p.advance()
		p.expectString("a title")
		lineEnd := p.lastConsumedEnd()
		p.expectBreak()
		_, end := p.parseChildren(indent, lineEnd)
		return nil, end
	}

	title := p.expectString("a description")
	if title == nil {
		p.expectBreak()
		return nil, next.Span.End
	}
	lineEnd := p.lastConsumedEnd()
	p.expectBreak()
	children, end := p.parseActionChildren(indent, lineEnd)

	return &ActionDescription{
		Text:     title.Lexeme(p.src),
		Children: children,
		NodeSpan: text.Span{Start: bullet.Span.Start, End: end},
	}, end
}
