// Package diag defines the diagnostic shape shared by every compiler stage
// (tokenizer, parser, semantic analyzer, matcher) and renders diagnostics as
// source-excerpt text for the CLI.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kpumuk/solbuilder/internal/text"
)

// Severity is a diagnostic severity level.
type Severity uint8

// Severity values, ordered so Sort sees errors before warnings.
const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Stage identifies which compiler stage raised a diagnostic.
type Stage string

// Stage values, one per pipeline component that can fail.
const (
	StageTokenizer Stage = "tokenizer"
	StageParser    Stage = "parser"
	StageSemantic  Stage = "semantic"
	StageCombiner  Stage = "combiner"
	StageMatcher   Stage = "matcher"
)

// Code identifies a diagnostic kind within its stage.
type Code string

// Diagnostic is a single compiler message anchored to a source span.
type Diagnostic struct {
	Stage    Stage
	Code     Code
	Severity Severity
	Message  string
	Span     text.Span
	Hint     string // e.g. "run with --fix"; empty when there is none
}

// Error implements the error interface so a Diagnostic can be returned or
// wrapped directly by stage functions.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Stage, d.Message)
}

// HasErrors reports whether diags contains at least one SeverityError
// entry, the fail-closed gate pipeline.Scaffold and pipeline.Check check
// before combining an upstream tree.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Sort orders diagnostics deterministically: span start, then end, then
// severity, then code, then message.
func Sort(diags []Diagnostic) {
	if len(diags) < 2 {
		return
	}
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Span.Start != b.Span.Start {
			return a.Span.Start < b.Span.Start
		}
		if a.Span.End != b.Span.End {
			return a.Span.End < b.Span.End
		}
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})
}

// Render formats a diagnostic with file name, 1-based line/column, a caret
// underline of the offending span on its source line, and an optional fix
// hint.
func Render(file string, src []byte, idx *text.LineIndex, d Diagnostic) string {
	var b strings.Builder

	start, _, err := d.Span.Locate(idx)
	if err != nil {
		fmt.Fprintf(&b, "%s: %s: %s [%s]", file, d.Severity, d.Message, d.Code)
		if d.Hint != "" {
			fmt.Fprintf(&b, "\n  hint: %s", d.Hint)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "%s:%d:%d: %s: %s [%s]\n", file, start.Line, start.Column, d.Severity, d.Message, d.Code)

	line := idx.LineText(start.Line)
	b.Write(line)
	b.WriteByte('\n')
	if start.Column > 1 {
		b.WriteString(strings.Repeat(" ", start.Column-1))
	}
	b.WriteString("^")

	if d.Hint != "" {
		fmt.Fprintf(&b, "\n  hint: %s", d.Hint)
	}
	return b.String()
}

// Summary renders an end-of-run tally line: counts of violations and, if
// fixesApplied > 0, the number of fixes applied in this run.
func Summary(diags []Diagnostic, fixesApplied int) string {
	if len(diags) == 0 {
		if fixesApplied > 0 {
			return fmt.Sprintf("no violations; %d fix(es) applied", fixesApplied)
		}
		return "no violations"
	}
	var errs, warns int
	for _, d := range diags {
		switch d.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		}
	}
	if fixesApplied > 0 {
		return fmt.Sprintf("%d error(s), %d warning(s); %d fix(es) applied", errs, warns, fixesApplied)
	}
	return fmt.Sprintf("%d error(s), %d warning(s)", errs, warns)
}
