package token

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// longOperators lists multi-character operators matched before their
// single-character prefixes. Order matters only insofar as the
// next-char-not-symbol filter disambiguates overlapping prefixes (e.g.
// ">>" immediately followed by another ">" fails its own filter and falls
// through to ">>>").
var longOperators = []string{
	"to", "==", "!=", ">=", "<=", "&&", "||", "//", "<<", ">>", ">>>",
}

var keywords = []string{"None", "then", "else", "let", "for", "if", "in"}

var shortOperators = []string{"<", ">", "+", "-", "*", "%", "|"}

var boolLiterals = []string{"True", "False"}

// isSymbolChar reports whether c may appear in a Symbol token: ASCII
// letters, digits, and the fixed punctuation set below. Non-ASCII bytes are
// not currently permitted in identifiers.
func isSymbolChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '_', '+', '-', '.', '~', '\\', '/', '?', '&', '<', '>', '$', '%', '#', '^', ':':
		return true
	}
	return false
}

// Tokenize classifies the entire source string into a token stream plus any
// non-fatal diagnostics. It never returns an error.
func Tokenize(src string) ([]Token, []Diagnostic) {
	var tokens []Token
	var diags []Diagnostic
	pos := 0
	for pos < len(src) {
		tok, diag, newPos := nextToken(src, pos)
		tokens = append(tokens, tok)
		if diag.Kind != DiagValid {
			diags = append(diags, diag)
		}
		pos = newPos
	}
	return tokens, diags
}

// keywordMatch tries to match word at src[pos:] such that the following
// byte (if any) is not a symbol-continuation character. Returns the new
// position on success, or pos unchanged (ok=false) otherwise.
func keywordMatch(src string, pos int, word string) (int, bool) {
	if !strings.HasPrefix(src[pos:], word) {
		return pos, false
	}
	end := pos + len(word)
	if end < len(src) && isSymbolChar(src[end]) {
		return pos, false
	}
	return end, true
}

func nextToken(src string, pos int) (Token, Diagnostic, int) {
	// 1. long operators
	for _, op := range longOperators {
		if end, ok := keywordMatch(src, pos, op); ok {
			return Token{Kind: Operator, Start: pos, End: end, Text: src[pos:end]}, Diagnostic{}, end
		}
	}

	// 2. punctuation (single chars, no adjacency filter) and -> / ~>
	for _, p := range []string{"(", ")", "[", "]", "{", "}", "'", ",", ";", "="} {
		if strings.HasPrefix(src[pos:], p) {
			end := pos + len(p)
			return Token{Kind: Punctuation, Start: pos, End: end, Text: p}, Diagnostic{}, end
		}
	}
	for _, p := range []string{"->", "~>"} {
		if end, ok := keywordMatch(src, pos, p); ok {
			return Token{Kind: Punctuation, Start: pos, End: end, Text: src[pos:end]}, Diagnostic{}, end
		}
	}

	// 3. keywords
	for _, kw := range keywords {
		if end, ok := keywordMatch(src, pos, kw); ok {
			return Token{Kind: Keyword, Start: pos, End: end, Text: kw}, Diagnostic{}, end
		}
	}

	// 4. short operators
	for _, op := range shortOperators {
		if end, ok := keywordMatch(src, pos, op); ok {
			return Token{Kind: Operator, Start: pos, End: end, Text: op}, Diagnostic{}, end
		}
	}
	for _, p := range []string{"@", "!"} {
		if strings.HasPrefix(src[pos:], p) {
			end := pos + len(p)
			return Token{Kind: Operator, Start: pos, End: end, Text: p}, Diagnostic{}, end
		}
	}

	// 5. boolean literals
	for _, b := range boolLiterals {
		if end, ok := keywordMatch(src, pos, b); ok {
			return Token{Kind: BooleanLiteral, Start: pos, End: end, Text: b}, Diagnostic{}, end
		}
	}

	// 6. comments
	if src[pos] == '#' {
		end := pos
		for end < len(src) && src[end] != '\n' && src[end] != '\r' {
			end++
		}
		return Token{Kind: Comment, Start: pos, End: end, Text: src[pos:end]}, Diagnostic{}, end
	}

	// 7. string literal
	if src[pos] == '"' {
		return lexString(src, pos)
	}

	// 8. number literal
	if tok, diag, end, ok := lexNumber(src, pos); ok {
		return tok, diag, end
	}

	// 9. symbol
	if isSymbolChar(src[pos]) {
		end := pos
		for end < len(src) && isSymbolChar(src[end]) {
			end++
		}
		return Token{Kind: Symbol, Start: pos, End: end, Text: src[pos:end]}, Diagnostic{}, end
	}

	// 10. whitespace
	if isASCIISpace(src[pos]) {
		end := pos
		for end < len(src) && isASCIISpace(src[end]) {
			end++
		}
		return Token{Kind: Whitespace, Start: pos, End: end, Text: src[pos:end]}, Diagnostic{}, end
	}

	// fallback: illegal byte/rune folded into a Symbol token.
	_, size := utf8.DecodeRuneInString(src[pos:])
	if size == 0 {
		size = 1
	}
	end := pos + size
	return Token{Kind: Symbol, Start: pos, End: end, Text: src[pos:end]},
		Diagnostic{Kind: DiagIllegalChar, Start: pos, End: end}, end
}

func isASCIISpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// lexNumber attempts to match the number grammar at pos. ok is false if
// there is no digit run to consume (the caller then tries the symbol rule).
func lexNumber(src string, pos int) (Token, Diagnostic, int, bool) {
	p := pos
	if p < len(src) && src[p] == '-' {
		p++
	}
	digitsStart := p
	for p < len(src) && isASCIIDigit(src[p]) {
		p++
	}
	if p == digitsStart {
		return Token{}, Diagnostic{}, pos, false
	}
	if p >= len(src) || src[p] != '.' {
		return Token{Kind: IntegerLiteral, Start: pos, End: p, Text: src[pos:p]}, Diagnostic{}, p, true
	}
	p++ // consume '.'
	fracStart := p
	for p < len(src) && isASCIIDigit(src[p]) {
		p++
	}
	if p == fracStart {
		// A dot not followed by digits is a malformed-number diagnostic;
		// the float token still spans through the dot.
		return Token{Kind: FloatLiteral, Start: pos, End: p, Text: src[pos:p]},
			Diagnostic{Kind: DiagInvalidNumber, Start: pos, End: p}, p, true
	}
	return Token{Kind: FloatLiteral, Start: pos, End: p, Text: src[pos:p]}, Diagnostic{}, p, true
}

func isASCIIDigit(c byte) bool { return c >= '0' && c <= '9' }

// lexString scans a double-quoted string literal starting at the opening
// quote, tracking escape sequences. An unterminated string ends silently at
// end-of-input with no closing-quote diagnostic (the parser may still
// reject it via a SyntaxError for other reasons).
func lexString(src string, pos int) (Token, Diagnostic, int) {
	p := pos + 1 // skip opening quote
	var badEscape *Diagnostic
	for p < len(src) && src[p] != '"' {
		if src[p] == '\\' {
			newP, d := lexEscape(src, p)
			p = newP
			if d != nil && badEscape == nil {
				badEscape = d
			}
			continue
		}
		_, size := utf8.DecodeRuneInString(src[p:])
		if size == 0 {
			size = 1
		}
		p += size
	}
	if p < len(src) && src[p] == '"' {
		p++
	}
	tok := Token{Kind: StringLiteral, Start: pos, End: p, Text: src[pos:p]}
	if badEscape != nil {
		return tok, *badEscape, p
	}
	return tok, Diagnostic{}, p
}

// lexEscape consumes a single backslash escape sequence, returning the new
// position and an optional diagnostic if the escape was malformed.
func lexEscape(src string, pos int) (int, *Diagnostic) {
	p := pos + 1 // skip backslash
	if p >= len(src) {
		return p, &Diagnostic{Kind: DiagInvalidStringEscape, Start: pos, End: p}
	}
	switch src[p] {
	case '"', '\\', 'b', 'f', 'n', 'r', 't':
		return p + 1, nil
	case 'u':
		p++
		if p >= len(src) || src[p] != '{' {
			return p, &Diagnostic{Kind: DiagInvalidStringEscape, Start: pos, End: p}
		}
		p++
		hexStart := p
		for p < len(src) && p-hexStart < 5 && isHexDigit(src[p]) {
			p++
		}
		if p == hexStart {
			return p, &Diagnostic{Kind: DiagInvalidStringEscape, Start: pos, End: p}
		}
		hex := src[hexStart:p]
		if p >= len(src) || src[p] != '}' {
			return p, &Diagnostic{Kind: DiagInvalidStringEscape, Start: pos, End: p}
		}
		codePoint, err := strconv.ParseUint(hex, 16, 32)
		end := p + 1
		if err != nil || !utf8.ValidRune(rune(codePoint)) {
			return end, &Diagnostic{Kind: DiagInvalidStringEscape, Start: pos, End: end}
		}
		return end, nil
	default:
		return p + 1, &Diagnostic{Kind: DiagInvalidStringEscape, Start: pos, End: p + 1}
	}
}

// Unescape converts a string literal's raw token text (including the
// surrounding quotes) into its decoded runtime value.
func Unescape(raw string) string {
	inner := raw
	if strings.HasPrefix(inner, "\"") {
		inner = inner[1:]
	}
	if strings.HasSuffix(inner, "\"") && len(inner) > 0 {
		inner = inner[:len(inner)-1]
	}
	var b strings.Builder
	i := 0
	for i < len(inner) {
		if inner[i] == '\\' && i+1 < len(inner) {
			switch inner[i+1] {
			case '"':
				b.WriteByte('"')
				i += 2
				continue
			case '\\':
				b.WriteByte('\\')
				i += 2
				continue
			case 'b':
				b.WriteByte('\b')
				i += 2
				continue
			case 'f':
				b.WriteByte('\f')
				i += 2
				continue
			case 'n':
				b.WriteByte('\n')
				i += 2
				continue
			case 'r':
				b.WriteByte('\r')
				i += 2
				continue
			case 't':
				b.WriteByte('\t')
				i += 2
				continue
			case 'u':
				j := i + 2
				if j < len(inner) && inner[j] == '{' {
					k := j + 1
					for k < len(inner) && k-j-1 < 5 && isHexDigit(inner[k]) {
						k++
					}
					if k < len(inner) && inner[k] == '}' {
						cp, err := strconv.ParseUint(inner[j+1:k], 16, 32)
						if err == nil && utf8.ValidRune(rune(cp)) {
							b.WriteRune(rune(cp))
							i = k + 1
							continue
						}
					}
				}
			}
		}
		r, size := utf8.DecodeRuneInString(inner[i:])
		if size == 0 {
			size = 1
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

func isHexDigit(c byte) bool {
	return isASCIIDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
