package emit

import (
	"strings"
	"testing"

	"github.com/kpumuk/solbuilder/internal/ast"
	"github.com/kpumuk/solbuilder/internal/diag"
	"github.com/kpumuk/solbuilder/internal/hir"
	"github.com/kpumuk/solbuilder/internal/lexer"
)

func buildHIR(t *testing.T, src string, opts hir.Options) hir.HIR {
	t.Helper()
	b := []byte(src)
	res := ast.Parse(b, lexer.Lex(b))
	if len(res.Diagnostics) != 0 {
		t.Fatalf("unexpected parse diagnostics: %+v", res.Diagnostics)
	}
	return hir.Combine(res.Roots, opts)
}

func TestEmitProducesPragmaHeaderAndContract(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n└── it works\n", hir.Options{})
	res, err := Emit(h, nil, Options{})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	out := string(res.Output)
	if !strings.Contains(out, "// SPDX-License-Identifier: UNLICENSED\n") {
		t.Fatalf("missing license header:\n%s", out)
	}
	if !strings.Contains(out, "pragma solidity ^0.8.19;\n") {
		t.Fatalf("missing pragma:\n%s", out)
	}
	if !strings.Contains(out, "contract Foo {\n") {
		t.Fatalf("missing contract header:\n%s", out)
	}
	if !strings.Contains(out, "function test_Works() public {\n") {
		t.Fatalf("missing function signature:\n%s", out)
	}
}

func TestEmitModifierDeclarationAndApplication(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n├── when it happens\n│   └── it works\n", hir.Options{})
	res, err := Emit(h, nil, Options{})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	out := string(res.Output)
	if !strings.Contains(out, "modifier whenItHappens() {\n") {
		t.Fatalf("missing modifier declaration:\n%s", out)
	}
	if !strings.Contains(out, "function test_WhenItHappens() public whenItHappens {\n") {
		t.Fatalf("missing modifier application on function signature:\n%s", out)
	}
}

func TestEmitSkipModifiersOmitsDeclarationsButKeepsNames(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n├── when it happens\n│   └── it works\n", hir.Options{})
	res, err := Emit(h, nil, Options{SkipModifiers: true})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	out := string(res.Output)
	if strings.Contains(out, "modifier whenItHappens()") {
		t.Fatalf("expected modifier declaration to be omitted:\n%s", out)
	}
	if !strings.Contains(out, "whenItHappens {\n") {
		t.Fatalf("expected modifier name to remain on the function signature:\n%s", out)
	}
}

func TestEmitVMSkipAddsTestImportAndMarker(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n└── it works\n", hir.Options{Skip: true})
	res, err := Emit(h, nil, Options{})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	out := string(res.Output)
	if !strings.Contains(out, `import {Test} from "forge-std/Test.sol";`) {
		t.Fatalf("missing forge-std Test import:\n%s", out)
	}
	if !strings.Contains(out, "contract Foo is Test {\n") {
		t.Fatalf("expected contract to inherit Test:\n%s", out)
	}
	if !strings.Contains(out, "vm.skip(true);\n") {
		t.Fatalf("missing vm.skip marker:\n%s", out)
	}
}

func TestEmitRefusesWhenPriorDiagnosticsContainAnError(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n└── it works\n", hir.Options{})
	prior := []diag.Diagnostic{{Severity: diag.SeverityError, Message: "boom"}}
	_, err := Emit(h, prior, Options{})
	if err == nil {
		t.Fatalf("expected Emit to refuse, got nil error")
	}
	var unsafe *ErrUnsafeToEmit
	if !errorsAs(err, &unsafe) {
		t.Fatalf("expected *ErrUnsafeToEmit, got %T: %v", err, err)
	}
}

func TestEmitDescriptionsBecomeLineComments(t *testing.T) {
	t.Parallel()

	h := buildHIR(t, "Foo\n└── it should revert\n    └── Because reasons.\n", hir.Options{})
	res, err := Emit(h, nil, Options{})
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if !strings.Contains(string(res.Output), "// Because reasons.\n") {
		t.Fatalf("missing description comment:\n%s", res.Output)
	}
}

func errorsAs(err error, target **ErrUnsafeToEmit) bool {
	e, ok := err.(*ErrUnsafeToEmit)
	if !ok {
		return false
	}
	*target = e
	return true
}
