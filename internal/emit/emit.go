// Package emit turns a combined HIR into Solidity test-scaffold source.
// It performs one pre-order traversal and is indifferent to final
// whitespace layout; byte-level formatting is out of scope (see
// internal/solview for the read-back side of the boundary).
package emit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/kpumuk/solbuilder/internal/diag"
	"github.com/kpumuk/solbuilder/internal/hir"
)

const (
	defaultIndent  = "    "
	defaultLicense = "UNLICENSED"
)

// Options configures emission. Zero value is valid; defaults are filled in.
type Options struct {
	Indent string
	// SPDXLicense is written as "// SPDX-License-Identifier: <value>".
	SPDXLicense string
	// SolVersion is written into the pragma line, e.g. "^0.8.19".
	SolVersion string
	// SkipModifiers omits modifier declarations while still naming them in
	// function signatures; the caller supplies the bodies elsewhere.
	SkipModifiers bool
}

func (o Options) normalize() Options {
	if o.Indent == "" {
		o.Indent = defaultIndent
	}
	if o.SPDXLicense == "" {
		o.SPDXLicense = defaultLicense
	}
	if o.SolVersion == "" {
		o.SolVersion = "^0.8.19"
	}
	return o
}

// Result is the emitted source plus any diagnostics surfaced while
// generating it.
type Result struct {
	Output      []byte
	Diagnostics []diag.Diagnostic
}

// ErrUnsafeToEmit is returned when the input diagnostics contain an error,
// meaning the HIR may have been built from an invalid AST.
type ErrUnsafeToEmit struct {
	ErrorCount int
}

func (e *ErrUnsafeToEmit) Error() string {
	return fmt.Sprintf("emit: refusing to emit from a HIR built on %d upstream error(s)", e.ErrorCount)
}

// Emit renders h as Solidity source. priorDiagnostics is every diagnostic
// collected by the tokenizer, parser, and semantic analyzer for the file
// that produced h; if any of them is an error, Emit refuses and emits
// nothing, mirroring the formatter's fail-closed posture on syntax errors.
func Emit(h hir.HIR, priorDiagnostics []diag.Diagnostic, opts Options) (Result, error) {
	if n := countErrors(priorDiagnostics); n > 0 {
		return Result{}, &ErrUnsafeToEmit{ErrorCount: n}
	}
	opts = opts.normalize()

	var b bytes.Buffer
	fmt.Fprintf(&b, "// SPDX-License-Identifier: %s\n", opts.SPDXLicense)
	fmt.Fprintf(&b, "pragma solidity %s;\n\n", opts.SolVersion)

	vmSkip := anySkip(h)
	if vmSkip {
		b.WriteString("import {Test} from \"forge-std/Test.sol\";\n\n")
	}

	fmt.Fprintf(&b, "contract %s%s {\n", h.Contract, contractSuffix(vmSkip))

	if !opts.SkipModifiers {
		for _, m := range h.Modifiers {
			writeModifier(&b, m, opts)
		}
	}

	for _, fn := range h.Functions {
		writeFunction(&b, fn, opts)
	}

	b.WriteString("}\n")

	return Result{Output: b.Bytes()}, nil
}

// RenderModifier renders a single modifier declaration in the same shape
// Emit would produce, for splicing into an existing file by the fixer.
func RenderModifier(m hir.Modifier, opts Options) []byte {
	opts = opts.normalize()
	var b bytes.Buffer
	writeModifier(&b, m, opts)
	return b.Bytes()
}

// RenderFunction renders a single test function fragment for splicing into
// an existing file by the fixer.
func RenderFunction(fn hir.TestFunction, opts Options) []byte {
	opts = opts.normalize()
	var b bytes.Buffer
	writeFunction(&b, fn, opts)
	return b.Bytes()
}

func contractSuffix(vmSkip bool) string {
	if vmSkip {
		return " is Test"
	}
	return ""
}

func writeModifier(b *bytes.Buffer, m hir.Modifier, opts Options) {
	fmt.Fprintf(b, "%smodifier %s() {\n", opts.Indent, m.Name)
	fmt.Fprintf(b, "%s%s_;\n", opts.Indent, opts.Indent)
	fmt.Fprintf(b, "%s}\n\n", opts.Indent)
}

func writeFunction(b *bytes.Buffer, fn hir.TestFunction, opts Options) {
	fmt.Fprintf(b, "%sfunction %s() public%s {\n", opts.Indent, fn.Name, modifierClause(fn.Modifiers))
	for _, d := range fn.Descriptions {
		fmt.Fprintf(b, "%s%s// %s\n", opts.Indent, opts.Indent, d)
	}
	if fn.Skip {
		fmt.Fprintf(b, "%s%svm.skip(true);\n", opts.Indent, opts.Indent)
	}
	fmt.Fprintf(b, "%s}\n\n", opts.Indent)
}

func modifierClause(modifiers []string) string {
	if len(modifiers) == 0 {
		return ""
	}
	return " " + strings.Join(modifiers, " ")
}

func anySkip(h hir.HIR) bool {
	for _, fn := range h.Functions {
		if fn.Skip {
			return true
		}
	}
	return false
}

func countErrors(diags []diag.Diagnostic) int {
	n := 0
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			n++
		}
	}
	return n
}
