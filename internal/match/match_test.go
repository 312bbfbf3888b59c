package match

import (
	"context"
	"testing"

	"github.com/kpumuk/solbuilder/internal/ast"
	"github.com/kpumuk/solbuilder/internal/hir"
	"github.com/kpumuk/solbuilder/internal/lexer"
	"github.com/kpumuk/solbuilder/internal/solview"
)

func buildHIR(t *testing.T, treeSrc string) hir.HIR {
	t.Helper()
	b := []byte(treeSrc)
	res := ast.Parse(b, lexer.Lex(b))
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected parse diagnostics: %+v", res.Diagnostics)
	}
	return hir.Combine(res.Roots, hir.Options{})
}

func buildView(t *testing.T, solSrc string) solview.View {
	t.Helper()
	v, diags, err := solview.Parse(context.Background(), []byte(solSrc))
	if err != nil {
		t.Fatalf("solview.Parse() error = %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected solview diagnostics: %+v", diags)
	}
	return v
}

func TestComputeReportsNoViolationsWhenFileMatches(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n└── it works\n")
	v := buildView(t, "contract Foo {\n    function test_Works() public {\n    }\n}\n")

	violations := Compute(h, v, Options{})
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %+v", violations)
	}
}

func TestComputeReportsMissingModifierAndFunctionSortedByName(t *testing.T) {
	t.Parallel()

	// Both violations share the contract span and type, so Sort orders them
	// by name; InsertAfter still records each item's HIR predecessor.
	h := buildHIR(t, "Foo\n├── when x\n│   └── it works\n")
	v := buildView(t, "contract Foo {\n}\n")

	violations := Compute(h, v, Options{})
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", violations)
	}
	if violations[0].Type != MissingItem || violations[0].Name != "test_WhenX" || violations[0].InsertAfter != "whenX" {
		t.Fatalf("violation[0] = %+v", violations[0])
	}
	if violations[1].Type != MissingItem || violations[1].Name != "whenX" || violations[1].InsertAfter != "" {
		t.Fatalf("violation[1] = %+v", violations[1])
	}
}

func TestComputeMissingItemSpanPointsAtInsertionAnchor(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n├── when x\n│   └── it works\n")
	v := buildView(t, "contract Foo {\n}\n")

	violations := Compute(h, v, Options{})
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %+v", violations)
	}

	// violations is sorted by name: [0] is test_WhenX, [1] is whenX.
	// The function's predecessor (the modifier) is itself missing, so its
	// Span should fall back to the contract span rather than pointing at a
	// declaration that doesn't exist yet.
	if violations[0].Span != v.ContractSpan {
		t.Fatalf("violation[0].Span = %v, want contract span %v", violations[0].Span, v.ContractSpan)
	}

	// The modifier has no predecessor in the HIR: its Span should also fall
	// back to the contract's own span, not the zero-value {0,0}.
	if violations[1].Span != v.ContractSpan {
		t.Fatalf("violation[1].Span = %v, want contract span %v", violations[1].Span, v.ContractSpan)
	}
}

func TestComputeMissingFunctionSpanPointsAtExistingModifier(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n├── when x\n│   └── it works\n")
	v := buildView(t, "contract Foo {\n    modifier whenX() {\n        _;\n    }\n}\n")

	violations := Compute(h, v, Options{})
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %+v", violations)
	}
	if violations[0].Type != MissingItem || violations[0].Name != "test_WhenX" {
		t.Fatalf("violation = %+v", violations[0])
	}

	whenX := v.Items[0]
	if violations[0].Span != whenX.Span {
		t.Fatalf("violation.Span = %v, want modifier whenX's span %v", violations[0].Span, whenX.Span)
	}
}

func TestComputeReportsOrderMismatchKeepingEarlierHIRItem(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n├── when x\n│   └── it works\n")
	v := buildView(t, "contract Foo {\n"+
		"    function test_WhenX() public whenX {\n    }\n\n"+
		"    modifier whenX() {\n        _;\n    }\n"+
		"}\n")

	violations := Compute(h, v, Options{})
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %+v", violations)
	}
	ov := violations[0]
	if ov.Type != OrderMismatch || ov.Name != "test_WhenX" {
		t.Fatalf("violation = %+v", ov)
	}
	if ov.ExpectedAfter != "whenX" || ov.ActualAfter != "" {
		t.Fatalf("ExpectedAfter/ActualAfter = %q/%q", ov.ExpectedAfter, ov.ActualAfter)
	}
}

func TestComputeReportsModifierListMismatchOnExistingFunction(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n├── when x\n│   └── it works\n")
	v := buildView(t, "contract Foo {\n"+
		"    modifier whenX() {\n        _;\n    }\n\n"+
		"    function test_WhenX() public {\n    }\n"+
		"}\n")

	violations := Compute(h, v, Options{})
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %+v", violations)
	}
	if violations[0].Type != ModifierListMismatch || violations[0].Name != "test_WhenX" {
		t.Fatalf("violation = %+v", violations[0])
	}
}

func TestComputeReportsContractMissingWhenNameDiffers(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n└── it works\n")
	v := buildView(t, "contract Bar {\n}\n")

	violations := Compute(h, v, Options{})
	if len(violations) != 1 || violations[0].Type != ContractMissing || violations[0].Name != "Foo" {
		t.Fatalf("violations = %+v", violations)
	}
}

func TestComputeSkipModifiersSuppressesMissingModifier(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n├── when x\n│   └── it works\n")
	v := buildView(t, "contract Foo {\n}\n")

	violations := Compute(h, v, Options{SkipModifiers: true})
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %+v", violations)
	}
	if violations[0].Kind != solview.KindFunction || violations[0].Name != "test_WhenX" {
		t.Fatalf("violation = %+v", violations[0])
	}
}

func TestComputeIgnoresUserAddedItemsNotInHIR(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n└── it works\n")
	v := buildView(t, "contract Foo {\n"+
		"    function helperNotInTree() internal {\n    }\n\n"+
		"    function test_Works() public {\n    }\n"+
		"}\n")

	violations := Compute(h, v, Options{})
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %+v", violations)
	}
}
