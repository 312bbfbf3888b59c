package hir

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/kpumuk/solbuilder/internal/ast"
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

func TestCombineGeneratesOneModifierPerUniqueConditionTitle(t *testing.T) {
	t.Parallel()

	src := "Foo\n" +
		"├── when something happens\n" +
		"│   └── it does a\n" +
		"└── when something happens\n" +
		"    └── it does b\n"

	h := Combine(parseRoots(t, src), Options{})
	if len(h.Modifiers) != 1 {
		t.Fatalf("expected 1 modifier for the repeated title, got %+v", h.Modifiers)
	}
	if h.Modifiers[0].Name != "whenSomethingHappens" {
		t.Fatalf("modifier name = %q, want %q", h.Modifiers[0].Name, "whenSomethingHappens")
	}
	if len(h.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %+v", h.Functions)
	}
}

func TestCombineTopLevelActionName(t *testing.T) {
	t.Parallel()

	h := Combine(parseRoots(t, "Foo\n└── it transfers the balance\n"), Options{})
	if len(h.Functions) != 1 {
		t.Fatalf("expected 1 function, got %+v", h.Functions)
	}
	if got := h.Functions[0].Name; got != "test_TransfersTheBalance" {
		t.Fatalf("function name = %q, want %q", got, "test_TransfersTheBalance")
	}
	if len(h.Functions[0].Modifiers) != 0 {
		t.Fatalf("expected no modifiers on a top-level action, got %+v", h.Functions[0].Modifiers)
	}
}

func TestCombineRevertTitleUsesRevertNamingScheme(t *testing.T) {
	t.Parallel()

	src := "Foo\n├── when it's paused\n│   └── it should revert\n"
	h := Combine(parseRoots(t, src), Options{})
	if len(h.Functions) != 1 {
		t.Fatalf("expected 1 function, got %+v", h.Functions)
	}
	if got := h.Functions[0].Name; got != "test_RevertWhen_ItSPaused" {
		t.Fatalf("function name = %q, want %q", got, "test_RevertWhen_ItSPaused")
	}
}

func TestCombineGivenConditionUsesGivenNamingScheme(t *testing.T) {
	t.Parallel()

	src := "Foo\n├── given a precondition\n│   └── it works\n"
	h := Combine(parseRoots(t, src), Options{})
	if got := h.Functions[0].Name; got != "test_GivenAPrecondition" {
		t.Fatalf("function name = %q, want %q", got, "test_GivenAPrecondition")
	}
	if len(h.Modifiers) != 1 || h.Modifiers[0].Name != "givenAPrecondition" {
		t.Fatalf("unexpected modifiers: %+v", h.Modifiers)
	}
}

func TestCombineModifierChainIsRootToLeafOrder(t *testing.T) {
	t.Parallel()

	src := "Foo\n" +
		"└── when outer\n" +
		"    └── when inner\n" +
		"        └── it works\n"

	h := Combine(parseRoots(t, src), Options{})
	fn := h.Functions[0]
	want := []string{"whenOuter", "whenInner"}
	if len(fn.Modifiers) != len(want) || fn.Modifiers[0] != want[0] || fn.Modifiers[1] != want[1] {
		t.Fatalf("Modifiers = %v, want %v", fn.Modifiers, want)
	}
}

func TestCombineDescriptionsAreFlattenedInOrder(t *testing.T) {
	t.Parallel()

	src := "Foo\n" +
		"└── it should revert\n" +
		"    └── Because of reason one.\n" +
		"        └── Also because of reason two.\n"

	h := Combine(parseRoots(t, src), Options{})
	want := []string{"Because of reason one.", "Also because of reason two."}
	got := h.Functions[0].Descriptions
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Descriptions = %v, want %v", got, want)
	}
}

func TestCombineDisambiguatesCollidingNamesWithAncestorPrefix(t *testing.T) {
	t.Parallel()

	// Two branches of the same tree each end in a condition titled "edge
	// case", so their actions would otherwise generate the same
	// test_WhenEdgeCase name; the outer branch's title must be borrowed to
	// tell them apart.
	src := "Foo\n" +
		"├── when first branch\n" +
		"│   └── when edge case\n" +
		"│       └── it works\n" +
		"└── when second branch\n" +
		"    └── when edge case\n" +
		"        └── it works\n"

	h := Combine(parseRoots(t, src), Options{})
	if len(h.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %+v", h.Functions)
	}
	if h.Functions[0].Name == h.Functions[1].Name {
		t.Fatalf("expected disambiguated names, both were %q", h.Functions[0].Name)
	}
}

func TestCombineSkipOptionPropagatesToEveryFunction(t *testing.T) {
	t.Parallel()

	h := Combine(parseRoots(t, "Foo\n└── it works\n"), Options{Skip: true})
	if !h.Functions[0].Skip {
		t.Fatalf("expected Skip to propagate to generated functions")
	}
}

// TestCombineRevertUnderConditionStructuralShape cross-checks the modifier
// and function shape produced for a revert action nested under a single
// condition, using go-test/deep's recursive diff instead of field-by-field
// assertions.
func TestCombineRevertUnderConditionStructuralShape(t *testing.T) {
	t.Parallel()

	src := "Foo\n" +
		"├── when it happens\n" +
		"│   └── it should revert\n" +
		"│       └── Because reasons.\n"
	h := Combine(parseRoots(t, src), Options{})

	wantModifiers := []Modifier{{Name: "whenItHappens", ConditionTitle: "it happens", Keyword: ast.KeywordWhen}}
	if diff := deep.Equal(h.Modifiers, wantModifiers); diff != nil {
		t.Fatalf("Modifiers diff: %v", diff)
	}

	type functionShape struct {
		Name         string
		Modifiers    []string
		Descriptions []string
		Skip         bool
	}
	got := make([]functionShape, len(h.Functions))
	for i, fn := range h.Functions {
		got[i] = functionShape{Name: fn.Name, Modifiers: fn.Modifiers, Descriptions: fn.Descriptions, Skip: fn.Skip}
	}
	want := []functionShape{{
		Name:         "test_RevertWhen_ItHappens",
		Modifiers:    []string{"whenItHappens"},
		Descriptions: []string{"Because reasons."},
	}}
	if diff := deep.Equal(got, want); diff != nil {
		t.Fatalf("Functions diff: %v", diff)
	}
}
