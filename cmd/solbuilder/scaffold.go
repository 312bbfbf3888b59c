package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpumuk/solbuilder/internal/diag"
	"github.com/kpumuk/solbuilder/internal/pipeline"
	"github.com/kpumuk/solbuilder/internal/text"
)

type scaffoldFlags struct {
	writeFiles    bool
	forceWrite    bool
	solVersion    string
	vmSkip        bool
	skipModifiers bool
	stdout        bool
}

func (c *cli) scaffoldCommand() *cobra.Command {
	flags := scaffoldFlags{
		solVersion:    defaultString(c.cfg.SolidityVersion, "0.8.0"),
		vmSkip:        c.cfg.VmSkip,
		skipModifiers: c.cfg.SkipModifiers,
	}

	cmd := &cobra.Command{
		Use:   "scaffold [files...]",
		Short: "Compile .tree files into Solidity test scaffolds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runScaffold(cmd.Context(), args, flags)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&flags.writeFiles, "write-files", "w", false, "write each scaffold next to its .tree source")
	f.BoolVarP(&flags.forceWrite, "force-write", "f", false, "overwrite an existing scaffold file")
	f.StringVarP(&flags.solVersion, "solidity-version", "s", flags.solVersion, "pragma solidity version")
	f.BoolVarP(&flags.vmSkip, "vm-skip", "S", flags.vmSkip, "inherit forge-std Test and mark every function vm.skip(true)")
	f.BoolVarP(&flags.skipModifiers, "skip-modifiers", "m", flags.skipModifiers, "omit modifier declarations, keeping their names on function signatures")
	f.BoolVar(&flags.stdout, "stdout", false, "write scaffolds to stdout instead of disk")
	return cmd
}

func (c *cli) runScaffold(ctx context.Context, paths []string, flags scaffoldFlags) error {
	if flags.writeFiles && flags.stdout {
		return errors.New("--write-files and --stdout may not be used together")
	}

	opts := pipeline.Options{
		SolVersion:    flags.solVersion,
		VmSkip:        flags.vmSkip,
		SkipModifiers: flags.skipModifiers,
		Logger:        c.logger,
	}

	for _, path := range paths {
		if err := c.scaffoldOne(ctx, path, flags, opts); err != nil {
			fmt.Fprintf(c.stderr, "solbuilder: %s: %v\n", path, err)
			c.fail(exitInputErr)
		}
	}
	return nil
}

func (c *cli) scaffoldOne(ctx context.Context, path string, flags scaffoldFlags, opts pipeline.Options) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	res, err := pipeline.Scaffold(ctx, path, src, opts)
	if err != nil {
		return err
	}

	if diag.HasErrors(res.Diagnostics) {
		c.renderDiagnostics(path, src, res.Diagnostics)
		c.fail(exitInputErr)
		return nil
	}
	c.renderDiagnostics(path, src, res.Diagnostics)

	if flags.writeFiles {
		out := scaffoldPath(path)
		if !flags.forceWrite {
			if _, statErr := os.Stat(out); statErr == nil {
				return fmt.Errorf("%s already exists, use --force-write to overwrite", out)
			}
		}
		return writeOutputFile(out, res.Output)
	}

	_, err = c.stdout.Write(res.Output)
	return err
}

func (c *cli) renderDiagnostics(path string, src []byte, diags []diag.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	li := text.NewLineIndex(src)
	for _, d := range diags {
		fmt.Fprintln(c.stderr, diag.Render(path, src, li, d))
	}
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
