package expr

import (
	"strconv"
	"strings"
)

// Parse parses src into an expression tree. Syntax errors are reported as
// ErrorTypeParse with the byte offset of the offending token.
func Parse(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, parseError(t.pos, "unexpected %s after expression", t)
	}
	return e, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// accept consumes the next token if it is one of the given operators or
// keywords
func (p *parser) accept(texts ...string) (token, bool) {
	t := p.peek()
	if t.kind != tokOp && t.kind != tokIdent {
		return t, false
	}
	for _, s := range texts {
		if t.text == s {
			return p.next(), true
		}
	}
	return t, false
}

func (p *parser) parseOr() (Expr, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept("|", "or"); !ok {
			return x, nil
		}
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &Binary{Op: OpOr, X: x, Y: y}
	}
}

func (p *parser) parseAnd() (Expr, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept("&", "and"); !ok {
			return x, nil
		}
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = &Binary{Op: OpAnd, X: x, Y: y}
	}
}

func (p *parser) parseNot() (Expr, error) {
	if _, ok := p.accept("~", "not"); ok {
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNot, X: x}, nil
	}
	return p.parseCompare()
}

var comparisons = map[string]Op{
	"<":  OpLt,
	"<=": OpLe,
	">":  OpGt,
	">=": OpGe,
	"==": OpEq,
	"!=": OpNe,
}

func (p *parser) parseCompare() (Expr, error) {
	x, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	op, ok := comparisons[t.text]
	if t.kind != tokOp || !ok {
		return x, nil
	}
	p.next()
	y, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp {
		if _, chained := comparisons[t.text]; chained {
			return nil, parseError(t.pos, "chained comparison %s is not supported", t)
		}
	}
	return &Binary{Op: op, X: x, Y: y}, nil
}

func (p *parser) parseSum() (Expr, error) {
	x, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.accept("+", "-")
		if !ok {
			return x, nil
		}
		y, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		op := OpAdd
		if t.text == "-" {
			op = OpSub
		}
		x = &Binary{Op: op, X: x, Y: y}
	}
}

func (p *parser) parseTerm() (Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.accept("*", "/", "%")
		if !ok {
			return x, nil
		}
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		var op Op
		switch t.text {
		case "*":
			op = OpMul
		case "/":
			op = OpDiv
		default:
			op = OpMod
		}
		x = &Binary{Op: op, X: x, Y: y}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if _, ok := p.accept("-"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNeg, X: x}, nil
	}
	if _, ok := p.accept("+"); ok {
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept("**"); !ok {
		return x, nil
	}
	// right associative and binds tighter than a unary minus on its left
	y, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: OpPow, X: x, Y: y}, nil
}

var keywords = map[string]bool{"and": true, "or": true, "not": true}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return parseNumber(t)
	case tokIdent:
		switch {
		case t.text == "True":
			return &BoolLit{Value: true}, nil
		case t.text == "False":
			return &BoolLit{Value: false}, nil
		case keywords[t.text]:
			return nil, parseError(t.pos, "unexpected keyword %s", t)
		}
		return &Column{Name: t.text}, nil
	case tokLParen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, parseError(c.pos, "expected \")\", found %s", c)
		}
		return e, nil
	case tokEOF:
		return nil, parseError(t.pos, "unexpected end of expression")
	default:
		return nil, parseError(t.pos, "unexpected %s", t)
	}
}

func parseNumber(t token) (Expr, error) {
	if !strings.ContainsAny(t.text, ".eE") {
		v, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, parseError(t.pos, "integer literal %s out of range", t)
		}
		return &IntLit{Value: v}, nil
	}
	v, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return nil, parseError(t.pos, "float literal %s out of range", t)
	}
	return &FloatLit{Value: v}, nil
}
