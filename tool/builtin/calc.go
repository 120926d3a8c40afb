package builtin

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/HuyNguyen260398/bob/tool"
)

// Calculate evaluates arithmetic expressions. Supported: + - * / % **,
// parentheses, unary minus, the functions abs, round, min, max, pow,
// sqrt, and the constants pi and e.
func Calculate() tool.Definition {
	return tool.Must("calculate", func(_ context.Context, args tool.Args) (string, error) {
		result, err := evalExpr(args.String("expression"))
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(result, 'f', -1, 64), nil
	},
		tool.Description("Evaluate an arithmetic expression and return the numeric result."),
		tool.Param("expression", "string", "the expression to evaluate, e.g. \"25 * 4 + 10\""),
		tool.Required("expression"),
	)
}

func evalExpr(input string) (float64, error) {
	p := &exprParser{input: input}
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("empty expression")
	}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("result is not a finite number")
	}
	return v, nil
}

// exprParser is a recursive descent parser over the grammar
//
//	expr   = term   { ("+" | "-") term }
//	term   = power  { ("*" | "/" | "%") power }
//	power  = unary  [ "**" power ]
//	unary  = [ "-" ] primary
//	primary = number | constant | func "(" expr {"," expr} ")" | "(" expr ")"
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch {
		case p.peek() == '*' && !strings.HasPrefix(p.input[p.pos:], "**"):
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.peek() == '/':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case p.peek() == '%':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if strings.HasPrefix(p.input[p.pos:], "**") {
		p.pos += 2
		// right associative
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpace()
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	c := p.input[p.pos]
	switch {
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil

	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()

	case unicode.IsLetter(rune(c)):
		return p.parseIdent()

	default:
		return 0, fmt.Errorf("unexpected %q at position %d", c, p.pos)
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

func (p *exprParser) parseIdent() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (unicode.IsLetter(rune(p.input[p.pos])) || unicode.IsDigit(rune(p.input[p.pos]))) {
		p.pos++
	}
	name := strings.ToLower(p.input[start:p.pos])

	switch name {
	case "pi":
		return math.Pi, nil
	case "e":
		return math.E, nil
	}

	p.skipSpace()
	if p.peek() != '(' {
		return 0, fmt.Errorf("unknown identifier %q", name)
	}
	p.pos++

	var argv []float64
	for {
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		argv = append(argv, v)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if p.peek() != ')' {
		return 0, fmt.Errorf("missing closing parenthesis in call to %q", name)
	}
	p.pos++

	return applyFunc(name, argv)
}

func applyFunc(name string, argv []float64) (float64, error) {
	arity := func(n int) error {
		if len(argv) != n {
			return fmt.Errorf("%s expects %d argument(s), got %d", name, n, len(argv))
		}
		return nil
	}

	switch name {
	case "abs":
		if err := arity(1); err != nil {
			return 0, err
		}
		return math.Abs(argv[0]), nil
	case "sqrt":
		if err := arity(1); err != nil {
			return 0, err
		}
		if argv[0] < 0 {
			return 0, fmt.Errorf("sqrt of negative number")
		}
		return math.Sqrt(argv[0]), nil
	case "round":
		if err := arity(1); err != nil {
			return 0, err
		}
		return math.Round(argv[0]), nil
	case "pow":
		if err := arity(2); err != nil {
			return 0, err
		}
		return math.Pow(argv[0], argv[1]), nil
	case "min":
		if len(argv) == 0 {
			return 0, fmt.Errorf("min expects at least one argument")
		}
		out := argv[0]
		for _, v := range argv[1:] {
			out = math.Min(out, v)
		}
		return out, nil
	case "max":
		if len(argv) == 0 {
			return 0, fmt.Errorf("max expects at least one argument")
		}
		out := argv[0]
		for _, v := range argv[1:] {
			out = math.Max(out, v)
		}
		return out, nil
	default:
		return 0, fmt.Errorf("unknown function %q", name)
	}
}
