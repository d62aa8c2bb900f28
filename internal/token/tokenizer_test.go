package token

import "testing"

func reconstruct(tokens []Token) string {
	out := make([]byte, 0)
	for _, t := range tokens {
		out = append(out, t.Text...)
	}
	return string(out)
}

func TestTokenizeRoundTrip(t *testing.T) {
	cases := []string{
		`let x = 3; x + 4`,
		`for i in 0 to 3 { i * i }`,
		`"Hello" | (x -> x + " world!")`,
		`let y = 10; let m = x ~> x + y; m 5`,
		`'(1 + 2)`,
		`a@b@c`,
		`a >> b`,
		`a#comment\nb`,
	}
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			tokens, _ := Tokenize(src)
			if got := reconstruct(tokens); got != src {
				t.Fatalf("round-trip mismatch: got %q want %q", got, src)
			}
		})
	}
}

func TestTokenizeKinds(t *testing.T) {
	tokens, diags := Tokenize(`let x = 3`)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	wantKinds := []Kind{Keyword, Whitespace, Symbol, Whitespace, Punctuation, Whitespace, IntegerLiteral}
	if len(tokens) != len(wantKinds) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(wantKinds), tokens)
	}
	for i, k := range wantKinds {
		if tokens[i].Kind != k {
			t.Errorf("token %d: got kind %v, want %v (%q)", i, tokens[i].Kind, k, tokens[i].Text)
		}
	}
}

func TestTokenizeOperatorDisambiguation(t *testing.T) {
	tokens, _ := Tokenize(">>>")
	if len(tokens) != 1 || tokens[0].Text != ">>>" {
		t.Fatalf("expected a single >>> operator token, got %+v", tokens)
	}

	tokens, _ = Tokenize(">>")
	if len(tokens) != 1 || tokens[0].Text != ">>" {
		t.Fatalf("expected a single >> operator token, got %+v", tokens)
	}
}

func TestTokenizeArrowIsAlsoValidSymbolPrefix(t *testing.T) {
	tokens, _ := Tokenize("->foo")
	if len(tokens) != 1 {
		t.Fatalf("expected ->foo to tokenize as a single symbol, got %+v", tokens)
	}
	if tokens[0].Kind != Symbol {
		t.Fatalf("expected symbol kind, got %v", tokens[0].Kind)
	}
}

func TestTokenizeFloat(t *testing.T) {
	tokens, diags := Tokenize("3.14")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(tokens) != 1 || tokens[0].Kind != FloatLiteral {
		t.Fatalf("expected a single float literal, got %+v", tokens)
	}
}

func TestTokenizeMalformedFloat(t *testing.T) {
	_, diags := Tokenize("3.")
	if len(diags) != 1 || diags[0].Kind != DiagInvalidNumber {
		t.Fatalf("expected invalid-number diagnostic, got %+v", diags)
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	tokens, diags := Tokenize(`"a\nb\u{1F600}c"`)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(tokens) != 1 || tokens[0].Kind != StringLiteral {
		t.Fatalf("expected one string literal token, got %+v", tokens)
	}
	decoded := Unescape(tokens[0].Text)
	if decoded != "a\nb\U0001F600c" {
		t.Fatalf("unescape mismatch: got %q", decoded)
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	tokens, _ := Tokenize(`"abc`)
	if len(tokens) != 1 || tokens[0].Kind != StringLiteral {
		t.Fatalf("expected unterminated string to still produce one token, got %+v", tokens)
	}
	if tokens[0].Text != `"abc` {
		t.Fatalf("expected full remainder consumed, got %q", tokens[0].Text)
	}
}

func TestTokenizeIllegalChar(t *testing.T) {
	tokens, diags := Tokenize("a `b")
	foundIllegal := false
	for _, d := range diags {
		if d.Kind == DiagIllegalChar {
			foundIllegal = true
		}
	}
	if !foundIllegal {
		t.Fatalf("expected an illegal-char diagnostic, got %+v", diags)
	}
	if got := reconstruct(tokens); got != "a `b" {
		t.Fatalf("round-trip broke on illegal char: got %q", got)
	}
}
