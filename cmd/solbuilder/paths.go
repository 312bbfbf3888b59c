package main

import (
	"fmt"
	"os"
	"strings"
)

const (
	treeExt = ".tree"
	solExt  = ".t.sol"
)

// scaffoldPath derives the generated scaffold's path from a .tree input
// path: foo.tree -> foo.t.sol. Inputs without the .tree suffix just get
// the suffix appended, so a bare "Foo" still produces "Foo.t.sol".
func scaffoldPath(treePath string) string {
	return strings.TrimSuffix(treePath, treeExt) + solExt
}

// writeOutputFile writes data to path, preserving its existing mode if it
// already exists.
func writeOutputFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
