// Package ast defines the parsed tree for a single `.tree` root and the
// recursive-descent parser that builds it from a lexer.Result token stream.
package ast

import "github.com/kpumuk/solbuilder/internal/text"

// Kind identifies which of the closed set of node variants a Node is.
type Kind uint8

// Kind values for the AST's closed node universe.
const (
	KindCondition Kind = iota + 1
	KindAction
	KindActionDescription
)

func (k Kind) String() string {
	switch k {
	case KindCondition:
		return "Condition"
	case KindAction:
		return "Action"
	case KindActionDescription:
		return "ActionDescription"
	default:
		return "Unknown"
	}
}

// Node is a child of a Root or Condition: either a Condition or an Action.
// Descriptions are not Nodes — they can only appear under an Action, whose
// Children field is typed to that narrower set directly.
type Node interface {
	astNode()
	Kind() Kind
	Span() text.Span
}

// Keyword distinguishes the two condition-introducing keywords.
type Keyword uint8

// Keyword values; the emitted modifier name prefix depends on which was used.
const (
	KeywordWhen Keyword = iota + 1
	KeywordGiven
)

func (k Keyword) String() string {
	switch k {
	case KeywordWhen:
		return "when"
	case KeywordGiven:
		return "given"
	default:
		return "unknown"
	}
}

// Condition is a `when`/`given` branch. Its children are further
// Conditions or Actions.
type Condition struct {
	Keyword   Keyword
	Title     string
	TitleSpan text.Span
	Children  []Node
	NodeSpan  text.Span
}

func (*Condition) astNode()         {}
func (*Condition) Kind() Kind       { return KindCondition }
func (c *Condition) Span() text.Span { return c.NodeSpan }

// Action is an `it` branch. Its children are free-text descriptions.
type Action struct {
	Title     string
	TitleSpan text.Span
	Children  []*ActionDescription
	NodeSpan  text.Span
}

func (*Action) astNode()         {}
func (*Action) Kind() Kind       { return KindAction }
func (a *Action) Span() text.Span { return a.NodeSpan }

// ActionDescription is free-text attached to an action, rendered as a
// comment. It may itself carry further description lines (multi-paragraph
// descriptions); see DESIGN.md for why nesting is permitted here.
type ActionDescription struct {
	Text     string
	Children []*ActionDescription
	NodeSpan text.Span
}

func (*ActionDescription) astNode()         {}
func (*ActionDescription) Kind() Kind       { return KindActionDescription }
func (d *ActionDescription) Span() text.Span { return d.NodeSpan }

// Root is one parsed tree: a contract identifier, optionally qualified by a
// function name, and its top-level Condition/Action children.
type Root struct {
	Contract     string
	ContractSpan text.Span
	Function     string // "" when the root is a bare contract identifier
	FunctionSpan text.Span
	Children     []Node
	NodeSpan     text.Span
}

// HasFunction reports whether the root used the "Contract::function" form.
func (r *Root) HasFunction() bool {
	return r.Function != ""
}
