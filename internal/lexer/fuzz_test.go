package lexer

import "testing"

func FuzzLex(f *testing.F) {
	addCommonSeeds(f)

	f.Fuzz(func(t *testing.T, src []byte) {
		t.Helper()

		// Keep the target responsive; fuzzing should explore shape, not spend cycles on huge blobs.
		if len(src) > 512*1024 {
			t.Skip()
		}

		res := Lex(src)
		if len(res.Tokens) == 0 {
			t.Fatal("lexer returned no tokens")
		}
		last := res.Tokens[len(res.Tokens)-1]
		if last.Kind != TokenEOF {
			t.Fatalf("last token kind = %v, want EOF", last.Kind)
		}

		prevEnd := -1
		for i, tok := range res.Tokens {
			if err := tok.Span.Validate(); err != nil {
				t.Fatalf("token[%d] invalid span %s: %v", i, tok.Span, err)
			}
			if int(tok.Span.End) > len(src) {
				t.Fatalf("token[%d] span %s out of bounds (len=%d)", i, tok.Span, len(src))
			}
			if prevEnd > int(tok.Span.Start) {
				t.Fatalf("token spans out of order: prevEnd=%d curStart=%d", prevEnd, tok.Span.Start)
			}
			prevEnd = int(tok.Span.End)

			for j, tr := range tok.Leading {
				if err := tr.Span.Validate(); err != nil {
					t.Fatalf("token[%d].leading[%d] invalid span %s: %v", i, j, tr.Span, err)
				}
				if int(tr.Span.End) > len(src) {
					t.Fatalf("token[%d].leading[%d] span %s out of bounds (len=%d)", i, j, tr.Span, len(src))
				}
			}
		}

		if got := reconstruct(src, res.Tokens); string(got) != string(src) {
			t.Fatalf("reconstruction mismatch:\n got=%q\nwant=%q", got, src)
		}
	})
}

func addCommonSeeds(f *testing.F) {
	f.Helper()

	for _, s := range [][]byte{
		nil,
		[]byte(""),
		[]byte("MyContract\n├── when something happens\n│   └── it does the thing\n└── given a precondition\n    └── it does another thing\n"),
		[]byte("Foo\n├──\n"),                     // empty title
		[]byte("Foo\n├── maybe stuff\n"),          // unrecognized branch keyword
		[]byte("Foo\n├── it stop // trailing"),    // trailing comment, no newline
		[]byte("Foo::bar\n├── it y\n"),            // root identifier with function suffix
		[]byte("Foo\n\n\nBar\n"),                  // tree separator
		[]byte("─bad\n"),                          // misplaced tree-draw glyph
		[]byte("Foo\n\x01\n"),                     // control character
		{0xff, 0xfe, 0xfd},                        // invalid UTF-8 bytes
		[]byte("é x\nFoo\n"),
	} {
		f.Add(s)
	}
}
