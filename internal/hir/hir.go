// Package hir combines a file's validated AST list into a single
// high-level IR rooted at one Solidity contract: a deduplicated modifier
// set plus a disambiguated list of test functions.
package hir

import (
	"fmt"
	"strings"

	"github.com/kpumuk/solbuilder/internal/ast"
	"github.com/kpumuk/solbuilder/internal/text"
)

// Modifier is one deduplicated condition, named "whenX" or "givenX" where X
// is the condition title in PascalCase.
type Modifier struct {
	Name           string
	ConditionTitle string
	Keyword        ast.Keyword
}

// TestFunction is one generated test, its applied modifiers in
// root-to-leaf order, and its flattened description comments.
type TestFunction struct {
	Name         string
	Modifiers    []string
	Descriptions []string
	Skip         bool
	Span         text.Span
}

// HIR is one file's combined intermediate representation.
type HIR struct {
	Contract  string
	Modifiers []Modifier
	Functions []TestFunction
}

// Options configures combination behavior that isn't derivable from the
// AST alone.
type Options struct {
	// SolVersion is for the emitter's pragma line; Combine does not read it.
	SolVersion string
	// Skip marks every generated function for a vm.skip(true); marker.
	Skip bool
}

// Combine builds a HIR from a file's validated roots. Callers must run
// sema.NewDefaultRunner() first and refuse to combine a failing result;
// Combine itself performs no validation.
func Combine(roots []*ast.Root, opts Options) HIR {
	h := HIR{}
	if len(roots) > 0 {
		h.Contract = roots[0].Contract
	}

	modIndex := make(map[string]int)
	multiFunction := hasMultipleDistinctFunctions(roots)

	var builders []*functionBuilder
	for _, root := range roots {
		walkConditions(root, root.Children, nil, modIndex, &h, &builders, multiFunction, opts)
	}

	disambiguate(builders)

	h.Functions = make([]TestFunction, len(builders))
	for i, b := range builders {
		h.Functions[i] = TestFunction{
			Name:         b.name,
			Modifiers:    b.modifiers,
			Descriptions: b.descriptions,
			Skip:         b.skip,
			Span:         b.span,
		}
	}
	return h
}

type chainLink struct {
	cond         *ast.Condition
	modifierName string
	pascalTitle  string
}

// functionBuilder carries a generated function's name plus the bookkeeping
// disambiguate needs: its unprefixed base name and the ancestor chain it
// can still borrow a disambiguating prefix from.
type functionBuilder struct {
	name         string
	baseName     string
	ancestors    []string // root-to-leaf PascalCase condition titles
	usedDepth    int
	modifiers    []string
	descriptions []string
	skip         bool
	span         text.Span
}

func walkConditions(root *ast.Root, nodes []ast.Node, chain []chainLink, modIndex map[string]int, h *HIR, builders *[]*functionBuilder, multiFunction bool, opts Options) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.Condition:
			pascal, _ := ast.ToPascalCase(v.Title)
			prefix := "when"
			if v.Keyword == ast.KeywordGiven {
				prefix = "given"
			}
			modName := prefix + pascal
			if _, ok := modIndex[modName]; !ok {
				modIndex[modName] = len(h.Modifiers)
				h.Modifiers = append(h.Modifiers, Modifier{Name: modName, ConditionTitle: v.Title, Keyword: v.Keyword})
			}
			next := append(append([]chainLink{}, chain...), chainLink{cond: v, modifierName: modName, pascalTitle: pascal})
			walkConditions(root, v.Children, next, modIndex, h, builders, multiFunction, opts)

		case *ast.Action:
			*builders = append(*builders, buildFunction(root, v, chain, multiFunction, opts))
		}
	}
}

func buildFunction(root *ast.Root, action *ast.Action, chain []chainLink, multiFunction bool, opts Options) *functionBuilder {
	var last *chainLink
	if len(chain) > 0 {
		last = &chain[len(chain)-1]
	}

	var base string
	switch {
	case last != nil && isRevertTitle(action.Title):
		verb := "RevertWhen"
		if last.cond.Keyword == ast.KeywordGiven {
			verb = "RevertGiven"
		}
		base = "test_" + verb + "_" + last.pascalTitle
	case last != nil:
		verb := "When"
		if last.cond.Keyword == ast.KeywordGiven {
			verb = "Given"
		}
		base = "test_" + verb + last.pascalTitle
	default:
		actionPascal, _ := ast.ToPascalCase(action.Title)
		base = "test_" + actionPascal
	}

	if multiFunction && root.HasFunction() {
		fnPascal, _ := ast.ToPascalCase(root.Function)
		base = "test_" + fnPascal + "_" + strings.TrimPrefix(base, "test_")
	}

	modifiers := make([]string, len(chain))
	ancestors := make([]string, len(chain))
	for i, c := range chain {
		modifiers[i] = c.modifierName
		ancestors[i] = c.pascalTitle
	}

	var descs []string
	flattenDescriptions(action.Children, &descs)

	return &functionBuilder{
		name:         base,
		baseName:     base,
		ancestors:    ancestors,
		modifiers:    modifiers,
		descriptions: descs,
		skip:         opts.Skip,
		span:         action.Span(),
	}
}

func flattenDescriptions(nodes []*ast.ActionDescription, out *[]string) {
	for _, n := range nodes {
		*out = append(*out, n.Text)
		flattenDescriptions(n.Children, out)
	}
}

// isRevertTitle reports whether an action's title is the bulloak-style
// "should revert" marker (trailing punctuation and case ignored) that
// triggers the test_RevertWhen_/test_RevertGiven_ naming scheme.
func isRevertTitle(title string) bool {
	trimmed := strings.TrimRight(strings.TrimSpace(title), ".!")
	return strings.EqualFold(trimmed, "should revert")
}

func hasMultipleDistinctFunctions(roots []*ast.Root) bool {
	if len(roots) < 2 {
		return false
	}
	seen := make(map[string]bool)
	for _, r := range roots {
		if r.HasFunction() {
			seen[r.Function] = true
		}
	}
	return len(seen) > 1
}

// disambiguate resolves name collisions in document order: non-top-level
// collisions borrow progressively more of their ancestor chain (nearest
// condition first, then outward toward the root); anything still
// colliding after exhausting its chain gets a numeric suffix.
func disambiguate(builders []*functionBuilder) {
	for {
		groups := groupByName(builders)
		anyExtended := false
		for _, idxs := range groups {
			if len(idxs) < 2 {
				continue
			}
			for _, i := range idxs {
				b := builders[i]
				if b.usedDepth >= len(b.ancestors) {
					continue
				}
				b.usedDepth++
				start := len(b.ancestors) - b.usedDepth
				prefix := strings.Join(b.ancestors[start:], "")
				b.name = "test_" + prefix + "_" + strings.TrimPrefix(b.baseName, "test_")
				anyExtended = true
			}
		}
		if !anyExtended {
			break
		}
	}

	for _, idxs := range groupByName(builders) {
		if len(idxs) < 2 {
			continue
		}
		for n, i := range idxs {
			if n == 0 {
				continue
			}
			builders[i].name = fmt.Sprintf("%s%d", builders[i].name, n)
		}
	}
}

func groupByName(builders []*functionBuilder) map[string][]int {
	groups := make(map[string][]int)
	for i, b := range builders {
		groups[b.name] = append(groups[b.name], i)
	}
	return groups
}
