package sema

import (
	"context"
	"testing"

	"github.com/kpumuk/solbuilder/internal/ast"
	"github.com/kpumuk/solbuilder/internal/diag"
	"github.com/kpumuk/solbuilder/internal/lexer"
)

func parseRoots(t *testing.T, src string) []*ast.Root {
	t.Helper()
	b := []byte(src)
	res := ast.Parse(b, lexer.Lex(b))
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected parse diagnostics for %q: %+v", src, res.Diagnostics)
	}
	return res.Roots
}

func TestRunnerReportsNoDiagnosticsForWellFormedFile(t *testing.T) {
	t.Parallel()

	roots := parseRoots(t, "Foo\n└── it works\n")
	diags, err := NewDefaultRunner().Run(context.Background(), roots)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", diags)
	}
}

func TestConsistentContractRuleRequiresFunctionFormAcrossMultipleTrees(t *testing.T) {
	t.Parallel()

	roots := parseRoots(t, "Foo\n└── it a\n\n\nFoo\n└── it b\n")
	diags, err := (ConsistentContractRule{}).Run(context.Background(), roots)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics (one per root), got %+v", diags)
	}
	for _, d := range diags {
		if d.Code != CodeMissingFunctionForm {
			t.Fatalf("unexpected code %s", d.Code)
		}
	}
}

func TestConsistentContractRuleFlagsMismatchedContracts(t *testing.T) {
	t.Parallel()

	roots := parseRoots(t, "Foo::a\n└── it a\n\n\nBar::b\n└── it b\n")
	diags, err := (ConsistentContractRule{}).Run(context.Background(), roots)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(diags) != 1 || diags[0].Code != CodeInconsistentContract {
		t.Fatalf("expected 1 %s diagnostic, got %+v", CodeInconsistentContract, diags)
	}
}

func TestConsistentContractRuleAllowsSingleTreeWithoutFunctionForm(t *testing.T) {
	t.Parallel()

	roots := parseRoots(t, "Foo\n└── it a\n")
	diags, err := (ConsistentContractRule{}).Run(context.Background(), roots)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics for a single tree, got %+v", diags)
	}
}

func TestUniqueTopLevelActionTitleRuleFlagsDuplicatesAcrossRoots(t *testing.T) {
	t.Parallel()

	roots := parseRoots(t, "Foo::a\n└── it does the same thing\n\n\nFoo::b\n└── it does the same thing\n")
	diags, err := (UniqueTopLevelActionTitleRule{}).Run(context.Background(), roots)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(diags) != 1 || diags[0].Code != CodeDuplicateActionTitle {
		t.Fatalf("expected 1 %s diagnostic, got %+v", CodeDuplicateActionTitle, diags)
	}
}

func TestUniqueTopLevelActionTitleRuleAllowsDuplicateConditionTitles(t *testing.T) {
	t.Parallel()

	src := "Foo\n" +
		"├── when X\n" +
		"│   └── it a\n" +
		"└── when X\n" +
		"    └── it b\n"
	roots := parseRoots(t, src)
	diags, err := (UniqueTopLevelActionTitleRule{}).Run(context.Background(), roots)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("expected duplicate condition titles to be allowed, got %+v", diags)
	}
}

func TestValidConditionIdentifierRuleFlagsUnfoldableTitles(t *testing.T) {
	t.Parallel()

	roots := parseRoots(t, "Foo\n├── when !!!\n│   └── it a\n")
	diags, err := (ValidConditionIdentifierRule{}).Run(context.Background(), roots)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(diags) != 1 || diags[0].Code != CodeInvalidConditionIdent {
		t.Fatalf("expected 1 %s diagnostic, got %+v", CodeInvalidConditionIdent, diags)
	}
}

func TestRunnerSortsAndStampsSemanticStage(t *testing.T) {
	t.Parallel()

	roots := parseRoots(t, "Foo::a\n└── it dup\n\n\nFoo::b\n└── it dup\n")
	diags, err := NewDefaultRunner().Run(context.Background(), roots)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(diags) == 0 {
		t.Fatalf("expected at least one diagnostic")
	}
	for _, d := range diags {
		if d.Stage != diag.StageSemantic {
			t.Fatalf("expected all diagnostics stamped semantic stage, got %+v", d)
		}
	}
}
