// Package parser implements Dune's hand-written precedence-climbing parser:
// token stream in, ast.Expression out. Operators are lowered to calls on
// the reserved __op__ builtin names at parse time; there are no Binary/
// Unary AST nodes.
package parser

import (
	"fmt"

	"github.com/duneshell/dune/internal/ast"
	"github.com/duneshell/dune/internal/token"
)

// SyntaxError is the parser's single error type. It carries enough context
// for the REPL to print a source-anchored diagnostic.
type SyntaxError struct {
	Input    string // the source slice the parser was looking at
	Expected string
	Found    string // empty if the error was "ran out of input"
	Hint     string // empty if there is no actionable hint
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("syntax error: expected %s", e.Expected)
	if e.Found != "" {
		msg += fmt.Sprintf(", found %q", e.Found)
	} else {
		msg += ", found end of input"
	}
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Parser walks a filtered token stream (whitespace and comments removed).
type Parser struct {
	src    string
	tokens []token.Token
	pos    int
}

// ParseScript tokenizes and parses src into a Do block of its top-level
// statements. requireEOF controls whether trailing unconsumed tokens are a
// syntax error; when it is false, the statements that parsed are returned
// and the remaining tokens are ignored. Every caller in this repository
// (the REPL, the prelude loader, and cmd/dune) passes true.
func ParseScript(src string, requireEOF bool) (ast.Expression, error) {
	tokens, diags := token.Tokenize(src)

	// Tokenizer diagnostics surface here as syntax errors, never as fatal
	// tokenizer failures.
	if len(diags) > 0 {
		return ast.None, diagnosticError(src, diags[0])
	}

	// Whitespace-adjacency rule: two symbol-like tokens with nothing
	// between them are a syntax error. Checked on the *unfiltered* stream,
	// via windows(2), before whitespace/comments are dropped.
	for i := 0; i+1 < len(tokens); i++ {
		a, b := tokens[i], tokens[i+1]
		if isSymbolLike(a.Kind) && isSymbolLike(b.Kind) {
			return ast.None, &SyntaxError{
				Input:    src[a.Start:b.End],
				Expected: "whitespace",
				Found:    src[b.Start:b.End],
				Hint:     "two adjacent tokens need a separating space",
			}
		}
	}

	filtered := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind == token.Whitespace || t.Kind == token.Comment {
			continue
		}
		filtered = append(filtered, t)
	}

	p := &Parser{src: src, tokens: filtered}
	expr, err := p.parseStatements()
	if err != nil {
		return ast.None, err
	}
	if requireEOF && !p.atEOF() {
		return ast.None, &SyntaxError{
			Input:    p.rest(),
			Expected: "end of input",
			Found:    p.peek().Text,
		}
	}
	return expr, nil
}

func diagnosticError(src string, d token.Diagnostic) *SyntaxError {
	slice := src[d.Start:d.End]
	switch d.Kind {
	case token.DiagInvalidStringEscape:
		return &SyntaxError{
			Input:    slice,
			Expected: "a valid escape sequence",
			Found:    slice,
			Hint:     `valid escapes are \" \\ \b \f \n \r \t and \u{XXXXX}`,
		}
	case token.DiagInvalidNumber:
		return &SyntaxError{
			Input:    slice,
			Expected: "a valid number",
			Found:    slice,
			Hint:     "valid floats can be written like 1.0 or 5.23",
		}
	default:
		return &SyntaxError{
			Input:    slice,
			Expected: "a legal character",
			Found:    slice,
		}
	}
}

// isSymbolLike covers the token kinds that must be whitespace-separated
// from each other. Operators are deliberately excluded: `m@key` and
// `x!` are legal adjacencies.
func isSymbolLike(k token.Kind) bool {
	switch k {
	case token.Symbol, token.Keyword, token.BooleanLiteral, token.IntegerLiteral, token.FloatLiteral:
		return true
	}
	return false
}

// ---- token-stream helpers ----

func (p *Parser) atEOF() bool { return p.pos >= len(p.tokens) }

func (p *Parser) peek() token.Token {
	if p.atEOF() {
		return token.Token{Kind: token.Other, Text: ""}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) (token.Token, bool) {
	i := p.pos + offset
	if i < 0 || i >= len(p.tokens) {
		return token.Token{}, false
	}
	return p.tokens[i], true
}

func (p *Parser) advance() token.Token {
	t := p.peek()
	if !p.atEOF() {
		p.pos++
	}
	return t
}

func (p *Parser) rest() string {
	if p.atEOF() {
		return ""
	}
	return p.src[p.tokens[p.pos].Start:]
}

func (p *Parser) is(kind token.Kind, text string) bool {
	t := p.peek()
	return t.Kind == kind && t.Text == text
}

func (p *Parser) eat(kind token.Kind, text string) bool {
	if p.is(kind, text) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(kind token.Kind, text, hint string) error {
	if p.eat(kind, text) {
		return nil
	}
	found := ""
	if !p.atEOF() {
		found = p.peek().Text
	}
	return &SyntaxError{Input: p.rest(), Expected: fmt.Sprintf("%q", text), Found: found, Hint: hint}
}

// ---- statements ----

// parseStatements builds a Do of semicolon-separated statements. For and If
// statements do not require a terminating semicolon; every other statement
// before the last one does.
func (p *Parser) parseStatements() (ast.Expression, error) {
	var stmts []ast.Expression
	for !p.atEOF() {
		stmt, err := p.parseExpression()
		if err != nil {
			return ast.None, err
		}
		stmts = append(stmts, stmt)

		if p.eat(token.Punctuation, ";") {
			continue
		}
		if isBlockLike(stmt) {
			continue
		}
		break
	}
	return ast.Do(stmts), nil
}

func isBlockLike(e ast.Expression) bool {
	return e.Kind == ast.KindFor || e.Kind == ast.KindIf
}

// ---- expression grammar ----

// parseExpression is the whole-expression entry point: level 7 in the
// precedence table, handling the pipe `|` and redirect-out `>>` operators.
// Every other caller that wants "a full expression" (group bodies, list
// elements, map values, let values, lambda bodies) comes through here.
func (p *Parser) parseExpression() (ast.Expression, error) {
	first, err := p.parsePrecSeven()
	if err != nil {
		return ast.None, err
	}
	stages := []ast.Expression{first}
	for p.is(token.Operator, "|") || p.is(token.Operator, ">>") {
		p.advance()
		next, err := p.parsePrecSeven()
		if err != nil {
			return ast.None, err
		}
		stages = append(stages, next)
	}
	if len(stages) == 1 {
		return stages[0], nil
	}
	return ast.Apply(ast.Symbol("__pipe__"), stages), nil
}

// parsePrecSeven is the statement-shaped alternation: for loops, if
// branches, let assignment, the lambda/macro arrow forms, then function/
// program application by juxtaposition, and finally the binary-operator
// climb.
func (p *Parser) parsePrecSeven() (ast.Expression, error) {
	switch {
	case p.is(token.Keyword, "let"):
		return p.parseLet()
	case p.is(token.Keyword, "for"):
		return p.parseFor()
	case p.is(token.Keyword, "if"):
		return p.parseIf()
	}

	if t, ok := p.peekAt(0); ok && t.Kind == token.Symbol {
		if arrow, ok := p.peekAt(1); ok && arrow.Kind == token.Punctuation && (arrow.Text == "->" || arrow.Text == "~>") {
			return p.parseCallable()
		}
	}

	if expr, ok := p.tryParseApply(); ok {
		return expr, nil
	}
	return p.parseAndOr()
}

// tryParseApply speculatively parses `callee arg1 arg2 …` juxtaposition:
// the callee at index level, each argument at comparison level (so
// `f 2 + 3` applies f to one argument, the sum). Backtracks and reports
// !ok when no argument follows, letting the operator climb have the input
// instead.
func (p *Parser) tryParseApply() (ast.Expression, bool) {
	start := p.pos
	callee, err := p.parseIndexLevel()
	if err != nil {
		p.pos = start
		return ast.None, false
	}
	var args []ast.Expression
	for {
		argStart := p.pos
		arg, err := p.parseCompare()
		if err != nil {
			p.pos = argStart
			break
		}
		args = append(args, arg)
	}
	if len(args) == 0 {
		p.pos = start
		return ast.None, false
	}
	return ast.Apply(callee, args), true
}

// parseCallable parses `name -> body` / `name ~> body`; the body is a full
// expression, so a lambda can close over a pipe or a nested arrow form.
func (p *Parser) parseCallable() (ast.Expression, error) {
	param := p.advance().Text
	isMacro := p.advance().Text == "~>"
	body, err := p.parseExpression()
	if err != nil {
		return ast.None, &SyntaxError{
			Input:    p.rest(),
			Expected: "an expression",
			Hint:     "try writing a lambda or macro like `x -> x + 1` or `y ~> let x = y`",
		}
	}
	if isMacro {
		return ast.Macro(param, body), nil
	}
	return ast.Lambda(param, body, nil), nil
}

func (p *Parser) parseLet() (ast.Expression, error) {
	p.advance() // 'let'
	if p.peek().Kind != token.Symbol {
		return ast.None, &SyntaxError{
			Input:    p.rest(),
			Expected: "symbol",
			Found:    p.peek().Text,
			Hint:     "try using a valid symbol such as `x` in `let x = 5`",
		}
	}
	name := p.advance().Text
	if err := p.expect(token.Punctuation, "=", "let expressions must use an `=` sign"); err != nil {
		return ast.None, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return ast.None, err
	}
	return ast.Assign(name, value), nil
}

// parseFor parses `for name in iterable { body }`. The iterable sits at
// comparison level so that `0 to 3` forms a range call without consuming
// the body block; the body must be a braced block.
func (p *Parser) parseFor() (ast.Expression, error) {
	p.advance() // 'for'
	if p.peek().Kind != token.Symbol {
		return ast.None, &SyntaxError{
			Input:    p.rest(),
			Expected: "symbol",
			Found:    p.peek().Text,
			Hint:     "try using a valid symbol such as `x` in `for x in 0 to 10 {}`",
		}
	}
	name := p.advance().Text
	if err := p.expect(token.Keyword, "in", "try writing a for loop in the format of `for i in 0 to 10 {}`"); err != nil {
		return ast.None, err
	}
	iter, err := p.parseCompare()
	if err != nil {
		return ast.None, &SyntaxError{
			Input:    p.rest(),
			Expected: "iterable expression",
			Hint:     "try adding an iterable expression such as `0 to 10` to your for loop",
		}
	}
	if !p.is(token.Punctuation, "{") {
		return ast.None, &SyntaxError{
			Input:    p.rest(),
			Expected: "block",
			Found:    p.peek().Text,
			Hint:     "try adding a block, such as `{ print \"hello!\" }`, to the end of your for loop",
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.None, err
	}
	return ast.For(name, iter, body), nil
}

// parseIf parses `if cond [then] then-expr [else else-expr]`. The condition
// sits at the and/or level, the branches at additive level (either can be a
// braced block, which is an atom); `else if` chains recursively.
func (p *Parser) parseIf() (ast.Expression, error) {
	p.advance() // 'if'
	cond, err := p.parseAndOr()
	if err != nil {
		return ast.None, &SyntaxError{
			Input:    p.rest(),
			Expected: "condition expression",
			Hint:     "try adding a condition expression to your if statement",
		}
	}
	_ = p.eat(token.Keyword, "then")
	then, err := p.parseAdd()
	if err != nil {
		return ast.None, &SyntaxError{
			Input:    p.rest(),
			Expected: "then expression",
			Hint:     "try adding an expression to the end of your if statement",
		}
	}
	els := ast.None
	if p.eat(token.Keyword, "else") {
		if p.is(token.Keyword, "if") {
			els, err = p.parseIf()
		} else {
			els, err = p.parseAdd()
		}
		if err != nil {
			return ast.None, err
		}
	}
	return ast.If(cond, then, els), nil
}

// level 6: && ||
func (p *Parser) parseAndOr() (ast.Expression, error) {
	left, err := p.parseCompare()
	if err != nil {
		return ast.None, err
	}
	for p.is(token.Operator, "&&") || p.is(token.Operator, "||") {
		op := p.advance().Text
		right, err := p.parseCompare()
		if err != nil {
			return ast.None, err
		}
		name := "__and__"
		if op == "||" {
			name = "__or__"
		}
		left = ast.Apply(ast.Symbol(name), []ast.Expression{left, right})
	}
	return left, nil
}

var compareOps = map[string]string{
	"==": "__eq__", "!=": "__neq__", "<=": "__lte__", ">=": "__gte__", "<": "__lt__", ">": "__gt__",
}

// level 5: comparisons (non-chaining), `to` range, postfix `!`
func (p *Parser) parseCompare() (ast.Expression, error) {
	left, err := p.parseAdd()
	if err != nil {
		return ast.None, err
	}
	if p.is(token.Operator, "to") {
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return ast.None, &SyntaxError{
				Input:    p.rest(),
				Expected: "a valid range expression",
				Hint:     "try writing an expression like `0 to 10`",
			}
		}
		left = ast.Apply(ast.Symbol("range"), []ast.Expression{left, right})
	} else if name, ok := compareOps[p.peek().Text]; ok && p.peek().Kind == token.Operator {
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return ast.None, err
		}
		left = ast.Apply(ast.Symbol(name), []ast.Expression{left, right})
	}
	for p.is(token.Operator, "!") {
		p.advance()
		left = ast.Apply(ast.Symbol("__not__"), []ast.Expression{left})
	}
	return left, nil
}

// level 4: + -
func (p *Parser) parseAdd() (ast.Expression, error) {
	left, err := p.parseMul()
	if err != nil {
		return ast.None, err
	}
	for p.is(token.Operator, "+") || p.is(token.Operator, "-") {
		op := p.advance().Text
		right, err := p.parseMul()
		if err != nil {
			return ast.None, err
		}
		name := "__add__"
		if op == "-" {
			name = "__sub__"
		}
		left = ast.Apply(ast.Symbol(name), []ast.Expression{left, right})
	}
	return left, nil
}

// level 3: * // %
func (p *Parser) parseMul() (ast.Expression, error) {
	left, err := p.parseIndexLevel()
	if err != nil {
		return ast.None, err
	}
	for p.is(token.Operator, "*") || p.is(token.Operator, "//") || p.is(token.Operator, "%") {
		op := p.advance().Text
		right, err := p.parseIndexLevel()
		if err != nil {
			return ast.None, err
		}
		name := map[string]string{"*": "__mul__", "//": "__div__", "%": "__rem__"}[op]
		left = ast.Apply(ast.Symbol(name), []ast.Expression{left, right})
	}
	return left, nil
}

// level 2: @ (index), left-associative; a@b@c folds into one
// __idx__(a, b, c) call rather than nested applies.
func (p *Parser) parseIndexLevel() (ast.Expression, error) {
	first, err := p.parsePrimary()
	if err != nil {
		return ast.None, err
	}
	operands := []ast.Expression{first}
	for p.is(token.Operator, "@") {
		p.advance()
		next, err := p.parsePrimary()
		if err != nil {
			return ast.None, err
		}
		operands = append(operands, next)
	}
	if len(operands) == 1 {
		return operands[0], nil
	}
	return ast.Apply(ast.Symbol("__idx__"), operands), nil
}

// ---- primaries ----

func (p *Parser) parsePrimary() (ast.Expression, error) {
	if p.atEOF() {
		return ast.None, &SyntaxError{Input: "", Expected: "an expression"}
	}
	t := p.peek()

	switch {
	case t.Kind == token.IntegerLiteral:
		p.advance()
		var v int64
		fmt.Sscanf(t.Text, "%d", &v)
		return ast.Integer(v), nil

	case t.Kind == token.FloatLiteral:
		p.advance()
		var v float64
		fmt.Sscanf(t.Text, "%g", &v)
		return ast.Float(v), nil

	case t.Kind == token.BooleanLiteral:
		p.advance()
		return ast.Boolean(t.Text == "True"), nil

	case t.Kind == token.StringLiteral:
		p.advance()
		return ast.String(token.Unescape(t.Text)), nil

	case t.Kind == token.Keyword && t.Text == "None":
		p.advance()
		return ast.None, nil

	case t.Kind == token.Symbol:
		p.advance()
		return ast.Symbol(t.Text), nil

	// Quote binds at index level: 'foo@bar quotes the whole index chain,
	// '(a + b) quotes the group.
	case t.Kind == token.Punctuation && t.Text == "'":
		p.advance()
		inner, err := p.parseIndexLevel()
		if err != nil {
			return ast.None, err
		}
		return ast.Quote(inner), nil

	case t.Kind == token.Punctuation && t.Text == "(":
		// `()` is a spelling of None.
		if next, ok := p.peekAt(1); ok && next.Kind == token.Punctuation && next.Text == ")" {
			p.advance()
			p.advance()
			return ast.None, nil
		}
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return ast.None, err
		}
		if err := p.expect(token.Punctuation, ")", "try adding a matching `)` to the end of your expression"); err != nil {
			return ast.None, err
		}
		return ast.Group(inner), nil

	case t.Kind == token.Punctuation && t.Text == "[":
		return p.parseList()

	case t.Kind == token.Punctuation && t.Text == "{":
		return p.parseMapOrBlock()

	default:
		return ast.None, &SyntaxError{Input: p.rest(), Expected: "an expression", Found: t.Text}
	}
}

func (p *Parser) parseList() (ast.Expression, error) {
	p.advance() // '['
	var items []ast.Expression
	if !p.is(token.Punctuation, "]") {
		for {
			item, err := p.parseExpression()
			if err != nil {
				return ast.None, err
			}
			items = append(items, item)
			if p.eat(token.Punctuation, ",") {
				if p.is(token.Punctuation, "]") {
					break
				}
				continue
			}
			break
		}
	}
	if err := p.expect(token.Punctuation, "]", "try adding a matching `]` to the end of your list"); err != nil {
		return ast.None, err
	}
	return ast.ListOf(items), nil
}

// parseMapOrBlock disambiguates `{ k = v, ... }` (a Map literal) from
// `{ stmt; ... }` (a Do block) by speculatively trying the map grammar
// first and backtracking to the block grammar on failure.
func (p *Parser) parseMapOrBlock() (ast.Expression, error) {
	start := p.pos
	if m, ok := p.tryParseMap(); ok {
		return m, nil
	}
	p.pos = start
	return p.parseBlock()
}

func (p *Parser) tryParseMap() (ast.Expression, bool) {
	p.advance() // '{'
	m := map[string]ast.Expression{}
	if p.is(token.Punctuation, "}") {
		p.advance()
		return ast.MapOf(m), true
	}
	for {
		keyTok := p.peek()
		if keyTok.Kind != token.Symbol && keyTok.Kind != token.StringLiteral {
			return ast.None, false
		}
		p.advance()
		key := keyTok.Text
		if keyTok.Kind == token.StringLiteral {
			key = token.Unescape(keyTok.Text)
		}
		if !p.eat(token.Punctuation, "=") {
			return ast.None, false
		}
		val, err := p.parseExpression()
		if err != nil {
			return ast.None, false
		}
		m[key] = val
		if p.eat(token.Punctuation, ",") {
			if p.is(token.Punctuation, "}") {
				p.advance()
				return ast.MapOf(m), true
			}
			continue
		}
		if p.eat(token.Punctuation, "}") {
			return ast.MapOf(m), true
		}
		return ast.None, false
	}
}

func (p *Parser) parseBlock() (ast.Expression, error) {
	if err := p.expect(token.Punctuation, "{", "expected a block"); err != nil {
		return ast.None, err
	}
	var stmts []ast.Expression
	for !p.is(token.Punctuation, "}") {
		if p.atEOF() {
			return ast.None, &SyntaxError{
				Input:    p.rest(),
				Expected: "`}`",
				Hint:     "try adding a matching `}` to the end of your block",
			}
		}
		stmt, err := p.parseExpression()
		if err != nil {
			return ast.None, err
		}
		stmts = append(stmts, stmt)
		if p.eat(token.Punctuation, ";") {
			continue
		}
		if isBlockLike(stmt) {
			continue
		}
		break
	}
	if err := p.expect(token.Punctuation, "}", "try adding a matching `}` to the end of your block"); err != nil {
		return ast.None, err
	}
	return ast.Do(stmts), nil
}
