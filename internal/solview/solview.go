// Package solview reads an existing Solidity source file into a neutral
// "parts" view: an ordered list of contract-scope declarations tagged
// Modifier, Function, or Other, used by internal/match to diff against a
// HIR. Parsing is delegated through a small Backend/Factory seam, the same
// swappable-parser-backend pattern a tree-sitter-based reader would use,
// with one concrete implementation: a hand-written recursive-descent
// skeleton scanner. Full expression/statement parsing is out of scope; the
// scanner only needs to find declaration boundaries and modifier-invocation
// names.
package solview

import (
	"context"
	"errors"
	"fmt"

	"github.com/kpumuk/solbuilder/internal/diag"
	"github.com/kpumuk/solbuilder/internal/text"
)

// Kind classifies one contract-scope declaration.
type Kind uint8

// Kind values the matcher cares about; everything else is Other.
const (
	KindModifier Kind = iota + 1
	KindFunction
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindModifier:
		return "Modifier"
	case KindFunction:
		return "Function"
	case KindOther:
		return "Other"
	default:
		return "Unknown"
	}
}

// Item is one contract-scope declaration.
type Item struct {
	Kind Kind
	Name string
	// Modifiers is the function's modifier-invocation list, in source
	// order. Empty for non-function items.
	Modifiers []string
	// Span covers the whole declaration, from its leading keyword (or
	// first token) through its closing ';' or '}'.
	Span text.Span
	// HasBody reports whether the declaration has a "{ ... }" body, as
	// opposed to a bare ';' (an interface or abstract stub).
	HasBody bool
	// Body is the span of the "{ ... }" body's interior. Meaningful only
	// when HasBody is true.
	Body text.Span
}

// View is the parsed parts-view of one Solidity file's first contract.
type View struct {
	ContractName string
	ContractSpan text.Span
	Items        []Item
}

// Backend parses Solidity source into a View.
type Backend interface {
	Name() string
	Parse(ctx context.Context, src []byte) (View, []diag.Diagnostic, error)
}

// Factory creates Backend instances, the same seam for swappable parser
// implementations a pluggable-backend parser package would expose.
type Factory interface {
	Name() string
	NewBackend() (Backend, error)
}

// ErrNoContract is returned when no contract declaration could be found.
var ErrNoContract = errors.New("solview: no contract declaration found")

// skeletonFactory builds the hand-written recursive-descent backend.
type skeletonFactory struct{}

// NewSkeletonFactory returns the factory for the skeleton scanner backend.
func NewSkeletonFactory() Factory { return skeletonFactory{} }

func (skeletonFactory) Name() string { return "skeleton" }

func (skeletonFactory) NewBackend() (Backend, error) { return skeletonBackend{}, nil }

type skeletonBackend struct{}

func (skeletonBackend) Name() string { return "skeleton" }

func (skeletonBackend) Parse(ctx context.Context, src []byte) (View, []diag.Diagnostic, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return View{}, nil, err
	}
	s := &scanner{src: src}
	return s.parseFile()
}

// Parse parses src with the default (skeleton) backend. Convenience
// wrapper for callers that don't need to select a Factory explicitly.
func Parse(ctx context.Context, src []byte) (View, []diag.Diagnostic, error) {
	b, err := NewSkeletonFactory().NewBackend()
	if err != nil {
		return View{}, nil, fmt.Errorf("solview: %w", err)
	}
	return b.Parse(ctx, src)
}
