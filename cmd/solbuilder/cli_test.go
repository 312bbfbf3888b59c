package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunScaffoldWritesToStdoutByDefault(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTempFile(t, dir, "Foo.tree", "Foo\n└── it works\n")

	var out, errb bytes.Buffer
	code := run(strings.NewReader(""), &out, &errb, []string{"scaffold", path})
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitOK, errb.String())
	}
	if !strings.Contains(out.String(), "contract Foo {\n") {
		t.Fatalf("stdout missing scaffold:\n%s", out.String())
	}
}

func TestRunScaffoldWriteFilesCreatesScaffoldFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTempFile(t, dir, "Foo.tree", "Foo\n└── it works\n")

	var out, errb bytes.Buffer
	code := run(strings.NewReader(""), &out, &errb, []string{"scaffold", "-w", path})
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitOK, errb.String())
	}
	outPath := filepath.Join(dir, "Foo.t.sol")
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", outPath, err)
	}
	if !strings.Contains(string(data), "contract Foo {\n") {
		t.Fatalf("unexpected scaffold file contents:\n%s", data)
	}
}

func TestRunScaffoldRefusesOverwriteWithoutForce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTempFile(t, dir, "Foo.tree", "Foo\n└── it works\n")
	outPath := writeTempFile(t, dir, "Foo.t.sol", "// hand-written\n")

	var out, errb bytes.Buffer
	code := run(strings.NewReader(""), &out, &errb, []string{"scaffold", "-w", path})
	if code != exitInputErr {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitInputErr, errb.String())
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "// hand-written\n" {
		t.Fatalf("expected the existing scaffold to be left untouched, got:\n%s", data)
	}
	if !strings.Contains(errb.String(), "--force-write") {
		t.Fatalf("stderr missing force-write hint: %q", errb.String())
	}
}

func TestRunScaffoldRejectsConflictingFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTempFile(t, dir, "Foo.tree", "Foo\n└── it works\n")

	var out, errb bytes.Buffer
	code := run(strings.NewReader(""), &out, &errb, []string{"scaffold", "-w", "--stdout", path})
	if code != exitInputErr {
		t.Fatalf("exit code = %d, want %d", code, exitInputErr)
	}
	if !strings.Contains(errb.String(), "--write-files and --stdout") {
		t.Fatalf("stderr missing conflict message: %q", errb.String())
	}
}

func TestRunCheckReportsViolationExitCode(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	treePath := writeTempFile(t, dir, "Foo.tree", "Foo\n└── it works\n")
	writeTempFile(t, dir, "Foo.t.sol", "contract Foo {\n}\n")

	var out, errb bytes.Buffer
	code := run(strings.NewReader(""), &out, &errb, []string{"check", treePath})
	if code != exitViolation {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitViolation, errb.String())
	}
	if !strings.Contains(errb.String(), "MissingItem") {
		t.Fatalf("stderr missing violation report: %q", errb.String())
	}
}

func TestRunCheckFixResolvesViolations(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	treePath := writeTempFile(t, dir, "Foo.tree", "Foo\n└── it works\n")
	solPath := writeTempFile(t, dir, "Foo.t.sol", "contract Foo {\n}\n")

	var out, errb bytes.Buffer
	code := run(strings.NewReader(""), &out, &errb, []string{"check", "--fix", treePath})
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitOK, errb.String())
	}
	data, err := os.ReadFile(solPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "function test_Works() public {\n") {
		t.Fatalf("expected the fixer to insert the missing function:\n%s", data)
	}
}

func TestRunCheckMissingScaffoldIsInputError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	treePath := writeTempFile(t, dir, "Foo.tree", "Foo\n└── it works\n")

	var out, errb bytes.Buffer
	code := run(strings.NewReader(""), &out, &errb, []string{"check", treePath})
	if code != exitInputErr {
		t.Fatalf("exit code = %d, want %d; stderr=%q", code, exitInputErr, errb.String())
	}
	if !strings.Contains(errb.String(), "run scaffold first") {
		t.Fatalf("stderr missing hint: %q", errb.String())
	}
}
