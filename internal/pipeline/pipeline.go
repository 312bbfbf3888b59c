// Package pipeline wires the tokenizer, parser, semantic analyzer, HIR
// combiner, emitter, Solidity view, matcher and fixer into the two
// operations the driver exposes: scaffold and check, logging stage timings
// through sirupsen/logrus the way vippsas/sqlcode threads a
// logrus.FieldLogger through its CLI commands.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kpumuk/solbuilder/internal/ast"
	"github.com/kpumuk/solbuilder/internal/diag"
	"github.com/kpumuk/solbuilder/internal/emit"
	"github.com/kpumuk/solbuilder/internal/fixer"
	"github.com/kpumuk/solbuilder/internal/hir"
	"github.com/kpumuk/solbuilder/internal/lexer"
	"github.com/kpumuk/solbuilder/internal/match"
	"github.com/kpumuk/solbuilder/internal/sema"
	"github.com/kpumuk/solbuilder/internal/solview"
)

// Options configures both operations. Zero value runs with the emitter's
// and matcher's own defaults.
type Options struct {
	// SolVersion is recorded in the pragma line scaffold emits.
	SolVersion string
	// VmSkip forces every generated function to carry a vm.skip(true);
	// marker and makes the contract inherit forge-std's Test.
	VmSkip bool
	// SkipModifiers omits modifier declarations from scaffold's output and
	// suppresses MissingItem violations for modifiers during check.
	SkipModifiers bool
	// Fix asks Check to also run the fixer and return its output.
	Fix bool
	// Logger receives stage timing and per-file diagnostics. A nil Logger
	// falls back to logrus's standard logger.
	Logger logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

func (o Options) emitOptions() emit.Options {
	return emit.Options{SolVersion: o.SolVersion, SkipModifiers: o.SkipModifiers}
}

func (o Options) hirOptions() hir.Options {
	return hir.Options{SolVersion: o.SolVersion, Skip: o.VmSkip}
}

func (o Options) matchOptions() match.Options {
	return match.Options{SkipModifiers: o.SkipModifiers}
}

// ScaffoldResult is the outcome of compiling one .tree file to Solidity.
type ScaffoldResult struct {
	Output      []byte
	Diagnostics []diag.Diagnostic
}

// Scaffold compiles a .tree source file into a .t.sol scaffold. path is
// used only for log fields; it never influences the compiled output.
func Scaffold(ctx context.Context, path string, src []byte, opts Options) (ScaffoldResult, error) {
	log := opts.logger().WithFields(logrus.Fields{
		"run":  uuid.New().String(),
		"path": path,
		"op":   "scaffold",
	})

	roots, diags, err := frontend(ctx, src, log)
	if err != nil {
		return ScaffoldResult{Diagnostics: diags}, err
	}
	if diag.HasErrors(diags) {
		return ScaffoldResult{Diagnostics: diags}, nil
	}

	t0 := time.Now()
	h := hir.Combine(roots, opts.hirOptions())
	log.WithField("elapsed", time.Since(t0)).Debug("combiner: done")

	t0 = time.Now()
	res, err := emit.Emit(h, diags, opts.emitOptions())
	log.WithField("elapsed", time.Since(t0)).Debug("emitter: done")
	if err != nil {
		return ScaffoldResult{Diagnostics: diags}, fmt.Errorf("pipeline: scaffold: %w", err)
	}
	return ScaffoldResult{Output: res.Output, Diagnostics: diags}, nil
}

// CheckResult is the outcome of comparing an existing .t.sol file against
// the scaffold its .tree source implies.
type CheckResult struct {
	Violations []match.Violation
	// Fixed is the fixer's output; populated only when Options.Fix is set.
	Fixed []byte
	// Applied counts edits the fixer made; meaningful only when Fixed is set.
	Applied int
	Skipped []match.Violation
}

// Check parses treeSrc, parses solSrc as Solidity, and reports every
// structural violation between them. If opts.Fix is set it also runs the
// fixer and returns its output.
func Check(ctx context.Context, path string, treeSrc, solSrc []byte, opts Options) (CheckResult, []diag.Diagnostic, error) {
	log := opts.logger().WithFields(logrus.Fields{
		"run":  uuid.New().String(),
		"path": path,
		"op":   "check",
	})

	roots, diags, err := frontend(ctx, treeSrc, log)
	if err != nil {
		return CheckResult{}, diags, err
	}
	if diag.HasErrors(diags) {
		return CheckResult{}, diags, nil
	}

	h := hir.Combine(roots, opts.hirOptions())

	t0 := time.Now()
	view, viewDiags, err := solview.Parse(ctx, solSrc)
	log.WithField("elapsed", time.Since(t0)).Debug("solview: done")
	if err != nil {
		return CheckResult{}, diags, fmt.Errorf("pipeline: check: %w", err)
	}
	diags = append(diags, viewDiags...)
	if diag.HasErrors(viewDiags) {
		return CheckResult{}, diags, nil
	}

	t0 = time.Now()
	violations := match.Compute(h, view, opts.matchOptions())
	log.WithFields(logrus.Fields{"elapsed": time.Since(t0), "violations": len(violations)}).Debug("matcher: done")

	result := CheckResult{Violations: violations}
	if !opts.Fix {
		return result, diags, nil
	}

	fixRes, err := fixer.Fix(solSrc, h, view, violations, opts.emitOptions())
	if err != nil {
		return result, diags, fmt.Errorf("pipeline: check: %w", err)
	}
	result.Fixed = fixRes.Output
	result.Applied = fixRes.Applied
	result.Skipped = fixRes.Skipped
	return result, diags, nil
}

// frontend runs the tokenizer, parser and semantic analyzer shared by
// both operations, returning the file's roots plus every diagnostic
// collected so far.
func frontend(ctx context.Context, src []byte, log logrus.FieldLogger) ([]*ast.Root, []diag.Diagnostic, error) {
	t0 := time.Now()
	lr := lexer.Lex(src)
	log.WithField("elapsed", time.Since(t0)).Debug("tokenizer: done")

	t0 = time.Now()
	pr := ast.Parse(src, lr)
	log.WithField("elapsed", time.Since(t0)).Debug("parser: done")

	diags := append([]diag.Diagnostic(nil), pr.Diagnostics...)

	t0 = time.Now()
	semaDiags, err := sema.NewDefaultRunner().Run(ctx, pr.Roots)
	log.WithField("elapsed", time.Since(t0)).Debug("semantic: done")
	if err != nil {
		return nil, diags, fmt.Errorf("pipeline: semantic analysis: %w", err)
	}
	diags = append(diags, semaDiags...)
	diag.Sort(diags)

	return pr.Roots, diags, nil
}
