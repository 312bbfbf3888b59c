// Package main provides the solbuilder CLI: a cobra root command with a
// "scaffold" and a "check" subcommand, using the "root command with named
// subcommands" shape cobra targets (grounded on playbymail/ottomap and
// vippsas/sqlcode, both of which build multi-subcommand CLIs this way).
package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kpumuk/solbuilder/internal/config"
)

const (
	exitOK        = 0
	exitViolation = 1
	exitInputErr  = 2
)

// cli bundles the IO streams, logger and exit-code slot every subcommand
// writes to. A fresh cli is built on every invocation of run so tests can
// call it repeatedly without leaking state between cases; run itself takes
// no package-level state, same as a plain run(stdin, stdout, stderr, args)
// int function would.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *logrus.Logger
	cfg    config.Config
	exit   int
}

func newCLI(stdin io.Reader, stdout, stderr io.Writer) *cli {
	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.LoadNearest(".")
	if err != nil {
		fmt.Fprintf(stderr, "solbuilder: %v\n", err)
	}

	return &cli{stdin: stdin, stdout: stdout, stderr: stderr, logger: logger, cfg: cfg, exit: exitOK}
}

func (c *cli) fail(code int) {
	if c.exit < code {
		c.exit = code
	}
}

func (c *cli) rootCommand() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "solbuilder",
		Short:         "Compile ASCII behavior trees into Solidity test scaffolds",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				c.logger.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log stage timings and per-file diagnostics at debug level")
	root.AddCommand(c.scaffoldCommand(), c.checkCommand())
	return root
}

// run executes args against a freshly built command tree and returns the
// process exit code.
func run(stdin io.Reader, stdout, stderr io.Writer, args []string) int {
	c := newCLI(stdin, stdout, stderr)
	root := c.rootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "solbuilder: %v\n", err)
		c.fail(exitInputErr)
	}
	return c.exit
}
