package tool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
)

type MathEvaluateOutput struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
}

type calculator struct{}

func (calculator) Name() string { return contractx.ToolCalculator }

func (calculator) Run(_ context.Context, args map[string]string) (contractx.ToolResult, error) {
	expression := strings.TrimSpace(args[contractx.SlotExpression])

	result, err := Evaluate(expression)
	if err != nil {
		return contractx.ToolResult{
			Tool:      contractx.ToolCalculator,
			Error:     calculationErrorText(err),
			ErrorCode: mathErrorCode(err),
		}, nil
	}

	return contractx.ToolResult{
		Tool: contractx.ToolCalculator,
		Text: fmt.Sprintf("%s = %s", expression, FormatNumber(result)),
		Data: MathEvaluateOutput{
			Expression: expression,
			Result:     result,
		},
	}, nil
}

func calculationErrorText(err error) string {
	switch {
	case errors.Is(err, contractx.ErrDivisionByZero):
		return "I can't divide by zero. Try a different divisor."
	default:
		return fmt.Sprintf("That doesn't look like a valid calculation (%v). I can use numbers, + - * /, and parentheses, e.g. 15 + 25 * 2.", err)
	}
}

func mathErrorCode(err error) string {
	if errors.Is(err, contractx.ErrDivisionByZero) {
		return contractx.CodeDivisionByZero
	}
	return contractx.CodeInvalidExpression
}

// FormatNumber renders v without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Evaluate computes an arithmetic expression over + - * / and parentheses.
func Evaluate(expression string) (float64, error) {
	if err := validateMathExpression(expression); err != nil {
		return 0, err
	}

	p := &mathParser{input: expression}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.hasNext() {
		return 0, fmt.Errorf("%w: unexpected %q at position %d", contractx.ErrInvalidExpression, p.peek(), p.pos)
	}
	return value, nil
}

func validateMathExpression(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return fmt.Errorf("%w: expression is empty", contractx.ErrInvalidExpression)
	}

	balance := 0
	for i, ch := range expression {
		switch {
		case ch >= '0' && ch <= '9', ch == '.', isSpace(ch):
		case ch == '+', ch == '-', ch == '*', ch == '/':
		case ch == '(':
			balance++
		case ch == ')':
			balance--
			if balance < 0 {
				return fmt.Errorf("%w: unmatched ')' at position %d", contractx.ErrInvalidExpression, i)
			}
		default:
			return fmt.Errorf("%w: character %q is not allowed", contractx.ErrInvalidExpression, ch)
		}
	}
	if balance != 0 {
		return fmt.Errorf("%w: unterminated parenthesis", contractx.ErrInvalidExpression)
	}
	return nil
}

type mathParser struct {
	input string
	pos   int
}

func (p *mathParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.match('+'):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
			if err := checkRange(left); err != nil {
				return 0, err
			}
		case p.match('-'):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
			if err := checkRange(left); err != nil {
				return 0, err
			}
		default:
			return left, nil
		}
	}
}

func (p *mathParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.match('*'):
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
			if err := checkRange(left); err != nil {
				return 0, err
			}
		case p.match('/'):
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, contractx.ErrDivisionByZero
			}
			left /= right
			if err := checkRange(left); err != nil {
				return 0, err
			}
		default:
			return left, nil
		}
	}
}

func (p *mathParser) parseFactor() (float64, error) {
	p.skipSpaces()
	if p.match('+') {
		return p.parseFactor()
	}
	if p.match('-') {
		value, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	if p.match('(') {
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if !p.match(')') {
			return 0, fmt.Errorf("%w: missing closing parenthesis at position %d", contractx.ErrInvalidExpression, p.pos)
		}
		return value, nil
	}
	return p.parseNumber()
}

func (p *mathParser) parseNumber() (float64, error) {
	p.skipSpaces()
	start := p.pos
	hasDigit := false
	hasDot := false

loop:
	for p.hasNext() {
		ch := p.peek()
		switch {
		case ch >= '0' && ch <= '9':
			hasDigit = true
			p.pos++
		case ch == '.':
			if hasDot {
				return 0, fmt.Errorf("%w: invalid number format at position %d", contractx.ErrInvalidExpression, p.pos)
			}
			hasDot = true
			p.pos++
		default:
			break loop
		}
	}

	if !hasDigit {
		return 0, fmt.Errorf("%w: expected number at position %d", contractx.ErrInvalidExpression, start)
	}

	raw := p.input[start:p.pos]
	value, err := strconv.ParseFloat(raw, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: number out of range", contractx.ErrInvalidExpression)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: invalid number %q", contractx.ErrInvalidExpression, raw)
	}
	return value, nil
}

// checkRange rejects results that float64 cannot represent.
func checkRange(v float64) error {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Errorf("%w: result out of range", contractx.ErrInvalidExpression)
	}
	return nil
}

func (p *mathParser) skipSpaces() {
	for p.hasNext() && isSpace(rune(p.peek())) {
		p.pos++
	}
}

func (p *mathParser) hasNext() bool {
	return p.pos < len(p.input)
}

func (p *mathParser) peek() byte {
	return p.input[p.pos]
}

func (p *mathParser) match(expected byte) bool {
	if p.hasNext() && p.peek() == expected {
		p.pos++
		return true
	}
	return false
}

func isSpace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
