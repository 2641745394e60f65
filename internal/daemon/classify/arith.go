package classify

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	arithChars = regexp.MustCompile(`^[0-9+\-*/().%\s]+$`)
	hasDigit   = regexp.MustCompile(`[0-9]`)
	errDivZero = errors.New("division by zero")
	errRange   = errors.New("result out of range")
)

// maxExactExponent bounds integer powers computed exactly; larger ones go through float64.
const maxExactExponent = 256

// ArithmeticExpr strips '=' and '?' from the prompt and reports whether what is
// left is a plain arithmetic expression.
func ArithmeticExpr(prompt string) (string, bool) {
	expr := strings.TrimSpace(strings.NewReplacer("=", "", "?", "").Replace(prompt))
	return expr, arithChars.MatchString(expr) && hasDigit.MatchString(expr)
}

// Evaluate computes an arithmetic expression made of numbers, + - * / % **,
// and parentheses, with JavaScript precedence and number literals (a leading
// zero followed only by octal digits is octal). Division is exact; the result
// is formatted as the shortest decimal that round-trips.
func Evaluate(expr string) (string, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return "", fmt.Errorf("invalid expression: %w", err)
	}
	p := &arithParser{toks: toks}
	v, err := p.expr()
	if err != nil {
		return "", err
	}
	if p.pos < len(p.toks) {
		return "", fmt.Errorf("invalid expression: unexpected %q", p.toks[p.pos].text)
	}
	return format(v), nil
}

type arithToken struct {
	num  bool
	text string
}

func tokenize(expr string) ([]arithToken, error) {
	var toks []arithToken
	for i := 0; i < len(expr); {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			toks = append(toks, arithToken{num: true, text: expr[i:j]})
			i = j
		case c == '*' && strings.HasPrefix(expr[i:], "**"):
			toks = append(toks, arithToken{text: "**"})
			i += 2
		case (c == '+' || c == '-') && i+1 < len(expr) && expr[i+1] == c:
			return nil, fmt.Errorf("unsupported operator %s", expr[i:i+2])
		case strings.IndexByte("+-*/%()", c) >= 0:
			toks = append(toks, arithToken{text: string(c)})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return toks, nil
}

// arithParser is a recursive-descent parser that evaluates as it goes.
type arithParser struct {
	toks []arithToken
	pos  int
}

func (p *arithParser) peek() string {
	if p.pos < len(p.toks) && !p.toks[p.pos].num {
		return p.toks[p.pos].text
	}
	return ""
}

func (p *arithParser) expr() (constant.Value, error) {
	x, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != "+" && op != "-" {
			return x, nil
		}
		p.pos++
		y, err := p.term()
		if err != nil {
			return nil, err
		}
		tok := token.ADD
		if op == "-" {
			tok = token.SUB
		}
		x = constant.BinaryOp(x, tok, y)
	}
}

func (p *arithParser) term() (constant.Value, error) {
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		var tok token.Token
		switch op {
		case "*":
			tok = token.MUL
		case "/":
			tok = token.QUO
		case "%":
			tok = token.REM
		default:
			return x, nil
		}
		p.pos++
		y, err := p.unary()
		if err != nil {
			return nil, err
		}
		if x, err = binary(x, tok, y); err != nil {
			return nil, err
		}
	}
}

func (p *arithParser) unary() (constant.Value, error) {
	op := p.peek()
	if op != "+" && op != "-" {
		return p.power()
	}
	p.pos++
	// The operand of a sign is never a bare power: -2 ** 2 is rejected.
	var (
		x   constant.Value
		err error
	)
	if next := p.peek(); next == "+" || next == "-" {
		x, err = p.unary()
	} else {
		x, err = p.primary()
	}
	if err != nil {
		return nil, err
	}
	if p.peek() == "**" {
		return nil, fmt.Errorf("invalid expression: parenthesize the operand of %s before **", op)
	}
	if op == "-" {
		return constant.UnaryOp(token.SUB, x, 0), nil
	}
	return x, nil
}

// power parses a primary optionally raised to a right-associative exponent.
func (p *arithParser) power() (constant.Value, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.peek() != "**" {
		return base, nil
	}
	p.pos++
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return pow(base, exp)
}

func (p *arithParser) primary() (constant.Value, error) {
	if p.pos >= len(p.toks) {
		return nil, errors.New("invalid expression: unexpected end")
	}
	tok := p.toks[p.pos]
	p.pos++
	if tok.num {
		return number(tok.text)
	}
	if tok.text != "(" {
		return nil, fmt.Errorf("invalid expression: unexpected %q", tok.text)
	}
	v, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.peek() != ")" {
		return nil, errors.New("invalid expression: missing )")
	}
	p.pos++
	return v, nil
}

// number parses a JavaScript numeric literal without exponent or prefix forms.
func number(lit string) (constant.Value, error) {
	if lit == "." || strings.Count(lit, ".") > 1 {
		return nil, fmt.Errorf("invalid number %s", lit)
	}
	if len(lit) > 1 && lit[0] == '0' && !strings.Contains(lit, ".") {
		if strings.Trim(lit, "01234567") == "" {
			return constant.MakeFromLiteral("0o"+lit[1:], token.INT, 0), nil
		}
	}
	if len(lit) > 1 && lit[0] == '0' && lit[1] != '.' {
		lit = strings.TrimLeft(lit, "0")
		if lit == "" || lit[0] == '.' {
			lit = "0" + lit
		}
	}
	kind := token.INT
	if strings.Contains(lit, ".") {
		kind = token.FLOAT
	}
	v := constant.MakeFromLiteral(lit, kind, 0)
	if v.Kind() == constant.Unknown {
		return nil, fmt.Errorf("invalid number %s", lit)
	}
	return v, nil
}

func binary(x constant.Value, op token.Token, y constant.Value) (constant.Value, error) {
	switch op {
	case token.ADD, token.SUB, token.MUL:
		return constant.BinaryOp(x, op, y), nil

	case token.QUO:
		if constant.Sign(y) == 0 {
			return nil, errDivZero
		}
		return constant.BinaryOp(x, token.QUO, y), nil

	case token.REM:
		if constant.Sign(y) == 0 {
			return nil, errDivZero
		}
		if x.Kind() == constant.Int && y.Kind() == constant.Int {
			return constant.BinaryOp(x, token.REM, y), nil
		}
		xf, _ := constant.Float64Val(x)
		yf, _ := constant.Float64Val(y)
		return constant.MakeFloat64(math.Mod(xf, yf)), nil
	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

// pow is exact for integer bases and small non-negative integer exponents.
func pow(base, exp constant.Value) (constant.Value, error) {
	if base.Kind() == constant.Int && exp.Kind() == constant.Int {
		if n, ok := constant.Int64Val(exp); ok && n >= 0 && n <= maxExactExponent {
			result := constant.MakeInt64(1)
			for i := int64(0); i < n; i++ {
				result = constant.BinaryOp(result, token.MUL, base)
			}
			return result, nil
		}
	}
	bf, _ := constant.Float64Val(base)
	ef, _ := constant.Float64Val(exp)
	r := math.Pow(bf, ef)
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return nil, errRange
	}
	return constant.MakeFloat64(r), nil
}

func format(v constant.Value) string {
	if v.Kind() == constant.Int {
		return v.ExactString()
	}
	f, _ := constant.Float64Val(v)
	return strconv.FormatFloat(f, 'g', -1, 64)
}
