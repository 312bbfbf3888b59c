package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpumuk/solbuilder/internal/diag"
	"github.com/kpumuk/solbuilder/internal/match"
	"github.com/kpumuk/solbuilder/internal/pipeline"
	"github.com/kpumuk/solbuilder/internal/text"
)

type checkFlags struct {
	fix           bool
	stdout        bool
	skipModifiers bool
}

func (c *cli) checkCommand() *cobra.Command {
	flags := checkFlags{skipModifiers: c.cfg.SkipModifiers}

	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Compare existing .t.sol scaffolds against their .tree source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), args, flags)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.fix, "fix", false, "apply every fixable violation in place")
	f.BoolVar(&flags.stdout, "stdout", false, "write a fixed scaffold to stdout instead of disk")
	f.BoolVarP(&flags.skipModifiers, "skip-modifiers", "m", flags.skipModifiers, "don't require modifier declarations for applied modifiers")
	return cmd
}

func (c *cli) runCheck(ctx context.Context, paths []string, flags checkFlags) error {
	if flags.stdout && !flags.fix {
		return errors.New("--stdout only makes sense together with --fix")
	}

	opts := pipeline.Options{
		SkipModifiers: flags.skipModifiers,
		Fix:           flags.fix,
		Logger:        c.logger,
	}

	for _, path := range paths {
		if err := c.checkOne(ctx, path, flags, opts); err != nil {
			fmt.Fprintf(c.stderr, "solbuilder: %s: %v\n", path, err)
			c.fail(exitInputErr)
		}
	}
	return nil
}

func (c *cli) checkOne(ctx context.Context, path string, flags checkFlags, opts pipeline.Options) error {
	treeSrc, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	solPath := scaffoldPath(path)
	solSrc, err := os.ReadFile(solPath)
	if err != nil {
		return fmt.Errorf("read %s (run scaffold first): %w", solPath, err)
	}

	result, diags, err := pipeline.Check(ctx, path, treeSrc, solSrc, opts)
	if err != nil {
		return err
	}
	if diag.HasErrors(diags) {
		c.renderDiagnostics(path, treeSrc, diags)
		c.fail(exitInputErr)
		return nil
	}
	c.renderDiagnostics(path, treeSrc, diags)

	remaining := result.Violations
	if flags.fix {
		remaining = result.Skipped
	}
	c.renderViolations(solPath, solSrc, result.Violations, flags.fix)
	fmt.Fprintf(c.stderr, "%s: %s\n", solPath, checkSummary(result))
	if len(remaining) > 0 {
		c.fail(exitViolation)
	}

	if !flags.fix {
		return nil
	}
	if flags.stdout {
		_, err := c.stdout.Write(result.Fixed)
		return err
	}
	return writeOutputFile(solPath, result.Fixed)
}

func (c *cli) renderViolations(path string, src []byte, violations []match.Violation, fixed bool) {
	if len(violations) == 0 {
		return
	}
	li := text.NewLineIndex(src)
	for _, v := range violations {
		hint := ""
		if v.Fixable && !fixed {
			hint = " (run with --fix)"
		}
		start, _, err := v.Span.Locate(li)
		if err != nil {
			fmt.Fprintf(c.stderr, "%s: %s: %s%s\n", path, v.Type, v.Message, hint)
			continue
		}
		fmt.Fprintf(c.stderr, "%s:%d:%d: %s: %s%s\n", path, start.Line, start.Column, v.Type, v.Message, hint)
	}
}

// checkSummary renders the end-of-run tally line for one file's check,
// mirroring diag.Summary's shape for the matcher's own violation/fix
// counts.
func checkSummary(result pipeline.CheckResult) string {
	if len(result.Violations) == 0 {
		return "no violations"
	}
	if result.Applied > 0 {
		return fmt.Sprintf("%d violation(s); %d fix(es) applied", len(result.Violations), result.Applied)
	}
	return fmt.Sprintf("%d violation(s)", len(result.Violations))
}
