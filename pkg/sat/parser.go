package sat

import (
	"fmt"
	"strings"

	"github.com/irifrance/gini/logic"
	"github.com/irifrance/gini/z"
	"github.com/pkg/errors"
)

// tokenKind enumerates the propositional grammar tokens named in
// spec.md §4.F: identifiers, !, &&, ||, ->, <->, parentheses, and the
// boolean constants 0/1.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokConst
	tokNot
	tokAnd
	tokOr
	tokImplies
	tokIff
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

// lex splits a propositional-formula string into tokens, matching the
// grammar in spec.md §4.F. Multi-character operators are matched
// greedily before falling back to single-character ones.
func lex(s string) ([]token, error) {
	var toks []token
	i := 0
	n := len(s)
	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '!':
			toks = append(toks, token{tokNot, "!"})
			i++
		case strings.HasPrefix(s[i:], "<->"):
			toks = append(toks, token{tokIff, "<->"})
			i += 3
		case strings.HasPrefix(s[i:], "->"):
			toks = append(toks, token{tokImplies, "->"})
			i += 2
		case strings.HasPrefix(s[i:], "&&"):
			toks = append(toks, token{tokAnd, "&&"})
			i += 2
		case strings.HasPrefix(s[i:], "||"):
			toks = append(toks, token{tokOr, "||"})
			i += 2
		case c == '0' || c == '1':
			// A bare digit is only a boolean constant if it isn't the
			// start of a longer identifier-like token (identifiers never
			// start with a digit in this grammar, so this is safe).
			toks = append(toks, token{tokConst, string(c)})
			i++
		case isIdentStart(c):
			j := i + 1
			for j < n && isIdentPart(s[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, s[i:j]})
			i = j
		default:
			return nil, errors.Errorf("sat: unexpected character %q at offset %d", c, i)
		}
	}
	toks = append(toks, token{tokEOF, ""})
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.'
}

// parser builds a logic.C circuit from a token stream via recursive
// descent, following the precedence <-> (lowest) -> || && ! atom
// (highest), the conventional propositional-logic ordering also used by
// undertaker's own SatChecker grammar.
type parser struct {
	toks []token
	pos  int
	c    *logic.C
	vars map[string]z.Lit
}

func newParser(toks []token, c *logic.C, vars map[string]z.Lit) *parser {
	return &parser{toks: toks, c: c, vars: vars}
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind, what string) error {
	if p.peek().kind != k {
		return errors.Errorf("sat: expected %s at token %d, got %q", what, p.pos, p.peek().text)
	}
	p.next()
	return nil
}

func (p *parser) parseFormula() (z.Lit, error) {
	lit, err := p.parseIff()
	if err != nil {
		return z.LitNull, err
	}
	if p.peek().kind != tokEOF {
		return z.LitNull, errors.Errorf("sat: unexpected trailing token %q", p.peek().text)
	}
	return lit, nil
}

func (p *parser) parseIff() (z.Lit, error) {
	lhs, err := p.parseImplies()
	if err != nil {
		return z.LitNull, err
	}
	for p.peek().kind == tokIff {
		p.next()
		rhs, err := p.parseImplies()
		if err != nil {
			return z.LitNull, err
		}
		lhs = p.c.Xor(lhs, rhs).Not()
	}
	return lhs, nil
}

func (p *parser) parseImplies() (z.Lit, error) {
	lhs, err := p.parseOr()
	if err != nil {
		return z.LitNull, err
	}
	if p.peek().kind == tokImplies {
		p.next()
		rhs, err := p.parseImplies()
		if err != nil {
			return z.LitNull, err
		}
		return p.c.Implies(lhs, rhs), nil
	}
	return lhs, nil
}

func (p *parser) parseOr() (z.Lit, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return z.LitNull, err
	}
	for p.peek().kind == tokOr {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return z.LitNull, err
		}
		lhs = p.c.Or(lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseAnd() (z.Lit, error) {
	lhs, err := p.parseNot()
	if err != nil {
		return z.LitNull, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		rhs, err := p.parseNot()
		if err != nil {
			return z.LitNull, err
		}
		lhs = p.c.Ands(lhs, rhs)
	}
	return lhs, nil
}

func (p *parser) parseNot() (z.Lit, error) {
	if p.peek().kind == tokNot {
		p.next()
		lit, err := p.parseNot()
		if err != nil {
			return z.LitNull, err
		}
		return lit.Not(), nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (z.Lit, error) {
	t := p.peek()
	switch t.kind {
	case tokLParen:
		p.next()
		lit, err := p.parseIff()
		if err != nil {
			return z.LitNull, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return z.LitNull, err
		}
		return lit, nil
	case tokConst:
		p.next()
		if t.text == "1" {
			return p.c.T, nil
		}
		return p.c.F, nil
	case tokIdent:
		p.next()
		return p.litFor(t.text), nil
	default:
		return z.LitNull, errors.Errorf("sat: unexpected token %q", t.text)
	}
}

func (p *parser) litFor(name string) z.Lit {
	if lit, ok := p.vars[name]; ok {
		return lit
	}
	lit := p.c.Lit()
	p.vars[name] = lit
	return lit
}

// ParseError decorates a parse failure with the offending formula for
// diagnostics.
type ParseError struct {
	Formula string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sat: parse error in %q: %v", e.Formula, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
