// Package sema validates cross-tree invariants on a file's parsed ASTs,
// using the same Rule/Runner shape as a per-field lint-rule runner would.
package sema

import (
	"context"
	"fmt"
	"slices"

	"github.com/kpumuk/solbuilder/internal/ast"
	"github.com/kpumuk/solbuilder/internal/diag"
)

// Diagnostic codes raised by semantic rules.
const (
	CodeInconsistentContract diag.Code = "SEMA_INCONSISTENT_CONTRACT"
	CodeMissingFunctionForm  diag.Code = "SEMA_MISSING_FUNCTION_FORM"
	CodeDuplicateActionTitle diag.Code = "SEMA_DUPLICATE_ACTION_TITLE"
	CodeInvalidConditionIdent diag.Code = "SEMA_INVALID_CONDITION_IDENTIFIER"
	CodeEmptyTree            diag.Code = "SEMA_EMPTY_TREE"
)

// Rule is a cross-tree invariant check over a file's parsed roots.
type Rule interface {
	ID() string
	Description() string
	Run(ctx context.Context, roots []*ast.Root) ([]diag.Diagnostic, error)
}

// Runner executes semantic rules and returns aggregated, sorted diagnostics.
type Runner struct {
	rules []Rule
}

// NewRunner builds a semantic runner from a rule set.
func NewRunner(rules ...Rule) *Runner {
	return &Runner{rules: slices.Clone(rules)}
}

// NewDefaultRunner builds the default semantic rule set.
func NewDefaultRunner() *Runner {
	return NewRunner(
		ConsistentContractRule{},
		UniqueTopLevelActionTitleRule{},
		ValidConditionIdentifierRule{},
		NonEmptyTreeRule{},
	)
}

// Run executes all configured rules against roots and returns a
// deterministically sorted diagnostic list.
func (r *Runner) Run(ctx context.Context, roots []*ast.Root) ([]diag.Diagnostic, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r == nil || len(r.rules) == 0 {
		return []diag.Diagnostic{}, nil
	}

	out := make([]diag.Diagnostic, 0, 8)
	for _, rule := range r.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		diags, err := rule.Run(ctx, roots)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID(), err)
		}
		for i := range diags {
			diags[i].Stage = diag.StageSemantic
		}
		out = append(out, diags...)
	}

	diag.Sort(out)
	return out, nil
}

// ConsistentContractRule enforces that a multi-tree file uses the
// Contract::function form on every root and shares one Contract identifier.
type ConsistentContractRule struct{}

func (ConsistentContractRule) ID() string { return "consistent-contract" }
func (ConsistentContractRule) Description() string {
	return "a file with more than one tree must give every root the Contract::function form, all sharing one contract"
}

func (ConsistentContractRule) Run(_ context.Context, roots []*ast.Root) ([]diag.Diagnostic, error) {
	if len(roots) < 2 {
		return nil, nil
	}

	var out []diag.Diagnostic
	contract := roots[0].Contract
	for _, r := range roots {
		if !r.HasFunction() {
			out = append(out, diag.Diagnostic{
				Code:     CodeMissingFunctionForm,
				Severity: diag.SeverityError,
				Message:  fmt.Sprintf("root %q must use the Contract::function form in a multi-tree file", r.Contract),
				Span:     r.ContractSpan,
			})
			continue
		}
		if r.Contract != contract {
			out = append(out, diag.Diagnostic{
				Code:     CodeInconsistentContract,
				Severity: diag.SeverityError,
				Message:  fmt.Sprintf("root contract %q does not match the file's contract %q", r.Contract, contract),
				Span:     r.ContractSpan,
			})
		}
	}
	return out, nil
}

// UniqueTopLevelActionTitleRule enforces that top-level actions (those
// directly under a root) have unique titles across the whole file, since
// their generated function names cannot otherwise be disambiguated.
type UniqueTopLevelActionTitleRule struct{}

func (UniqueTopLevelActionTitleRule) ID() string { return "unique-top-level-action-title" }
func (UniqueTopLevelActionTitleRule) Description() string {
	return "top-level action titles must be unique across the file"
}

func (UniqueTopLevelActionTitleRule) Run(_ context.Context, roots []*ast.Root) ([]diag.Diagnostic, error) {
	seen := make(map[string]ast.Node)
	var out []diag.Diagnostic

	for _, root := range roots {
		for _, child := range root.Children {
			action, ok := child.(*ast.Action)
			if !ok {
				continue
			}
			if prior, dup := seen[action.Title]; dup {
				out = append(out, diag.Diagnostic{
					Code:     CodeDuplicateActionTitle,
					Severity: diag.SeverityError,
					Message:  fmt.Sprintf("duplicate top-level action title %q (first used at %s)", action.Title, prior.Span()),
					Span:     action.Span(),
				})
				continue
			}
			seen[action.Title] = action
		}
	}
	return out, nil
}

// ValidConditionIdentifierRule enforces that every condition title folds to
// a non-empty PascalCase identifier.
type ValidConditionIdentifierRule struct{}

func (ValidConditionIdentifierRule) ID() string { return "valid-condition-identifier" }
func (ValidConditionIdentifierRule) Description() string {
	return "condition titles must yield a non-empty PascalCase identifier"
}

func (ValidConditionIdentifierRule) Run(_ context.Context, roots []*ast.Root) ([]diag.Diagnostic, error) {
	var out []diag.Diagnostic
	var walk func(nodes []ast.Node)
	walk = func(nodes []ast.Node) {
		for _, n := range nodes {
			cond, ok := n.(*ast.Condition)
			if !ok {
				continue
			}
			if _, valid := ast.ToPascalCase(cond.Title); !valid {
				out = append(out, diag.Diagnostic{
					Code:     CodeInvalidConditionIdent,
					Severity: diag.SeverityError,
					Message:  fmt.Sprintf("condition title %q does not yield a usable identifier", cond.Title),
					Span:     cond.TitleSpan,
				})
			}
			walk(cond.Children)
		}
	}
	for _, root := range roots {
		walk(root.Children)
	}
	return out, nil
}

// NonEmptyTreeRule enforces that every root has at least one child. The
// parser already reports malformed empty roots as a parse error; this rule
// re-asserts the invariant at the semantic layer so it is visible even when
// roots are constructed by other means (e.g. future programmatic callers).
type NonEmptyTreeRule struct{}

func (NonEmptyTreeRule) ID() string               { return "non-empty-tree" }
func (NonEmptyTreeRule) Description() string      { return "every root must have at least one child" }
func (NonEmptyTreeRule) Run(_ context.Context, roots []*ast.Root) ([]diag.Diagnostic, error) {
	var out []diag.Diagnostic
	for _, root := range roots {
		if len(root.Children) == 0 {
			out = append(out, diag.Diagnostic{
				Code:     CodeEmptyTree,
				Severity: diag.SeverityError,
				Message:  fmt.Sprintf("root %q has no children", root.Contract),
				Span:     root.NodeSpan,
			})
		}
	}
	return out, nil
}
