package ast

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// ToPascalCase folds free text into a PascalCase Solidity identifier: runs
// of non-letter-non-digit characters are word boundaries, each word's
// first letter is title-cased, and an identifier that would start with a
// digit or contain no words at all is rejected.
func ToPascalCase(title string) (string, bool) {
	var words []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	if len(words) == 0 {
		return "", false
	}

	var b strings.Builder
	for _, w := range words {
		b.WriteString(titleCaser.String(w))
	}

	ident := b.String()
	if ident == "" || unicode.IsDigit(rune(ident[0])) {
		return "", false
	}
	return ident, true
}
