package strategy

import (
	"math"
	"strings"

	"github.com/rxtech-lab/streamquant/internal/indicator"
	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// parser compiles a rule script against an indicator graph: every indicator
// call in the script is registered (or deduped) on the graph at parse time,
// so evaluation only ever reads latest values by id.
type parser struct {
	tokens  []token
	pos     int
	graph   *indicator.Graph
	crosses []*crossCond
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}

	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return errors.Newf(errors.ErrCodeStrategyParse, "line %d: "+format, append([]any{t.line}, args...)...)
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, p.errorf(t, "expected %s, got %q", what, t.String())
	}

	return t, nil
}

func (p *parser) skipNewlines() {
	for p.peek().kind == tokNewline {
		p.next()
	}
}

// parseScript parses all rules. An empty script (no rules after stripping
// comments and blank lines) fails with a dedicated error.
func (p *parser) parseScript() ([]rule, error) {
	var rules []rule
	for {
		p.skipNewlines()
		if p.peek().kind == tokEOF {
			break
		}

		r, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)

		t := p.next()
		if t.kind != tokNewline && t.kind != tokEOF {
			return nil, p.errorf(t, "unexpected %q after rule", t.String())
		}
	}

	if len(rules) == 0 {
		return nil, errors.New(errors.ErrCodeStrategyEmpty, "script contains no rules")
	}

	return rules, nil
}

func (p *parser) parseRule() (rule, error) {
	t := p.next()
	if t.kind != tokIdent || keyword(t) != "IF" {
		return rule{}, p.errorf(t, "expected IF, got %q", t.String())
	}

	cond, err := p.parseOr()
	if err != nil {
		return rule{}, err
	}

	t = p.next()
	if t.kind != tokIdent || keyword(t) != "THEN" {
		return rule{}, p.errorf(t, "expected THEN, got %q", t.String())
	}

	t = p.next()
	if t.kind != tokIdent {
		return rule{}, p.errorf(t, "expected BUY, SELL or HOLD, got %q", t.String())
	}

	var action types.Action
	switch keyword(t) {
	case "BUY":
		action = types.ActionBuy
	case "SELL":
		action = types.ActionSell
	case "HOLD":
		action = types.ActionHold
	default:
		return rule{}, p.errorf(t, "expected BUY, SELL or HOLD, got %q", t.text)
	}

	return rule{cond: cond, action: action}, nil
}

// AND binds tighter than OR.
func (p *parser) parseOr() (condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokIdent && keyword(p.peek()) == "OR" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orCond{left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (condition, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.peek().kind == tokIdent && keyword(p.peek()) == "AND" {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &andCond{left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseUnary() (condition, error) {
	if p.peek().kind == tokIdent && keyword(p.peek()) == "NOT" {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return &notCond{inner: inner}, nil
	}

	return p.parsePrimary()
}

func (p *parser) parsePrimary() (condition, error) {
	// A leading '(' always opens a condition group: operands are never
	// parenthesized, only indicator argument lists are, and those follow an
	// identifier.
	if p.peek().kind == tokLParen {
		p.next()
		cond, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}

		return cond, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (condition, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	t := p.next()
	switch t.kind {
	case tokLt, tokLe, tokGt, tokGe, tokEq:
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}

		var op cmpOp
		switch t.kind {
		case tokLt:
			op = cmpLt
		case tokLe:
			op = cmpLe
		case tokGt:
			op = cmpGt
		case tokGe:
			op = cmpGe
		case tokEq:
			op = cmpEq
		}

		return &compareCond{op: op, left: left, right: right}, nil
	case tokIdent:
		kw := keyword(t)
		if kw != "CROSSUP" && kw != "CROSSDOWN" {
			return nil, p.errorf(t, "expected a comparison or crossover operator, got %q", t.text)
		}

		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}

		cross := &crossCond{
			up:        kw == "CROSSUP",
			left:      left,
			right:     right,
			prevLeft:  math.NaN(),
			prevRight: math.NaN(),
			curLeft:   math.NaN(),
			curRight:  math.NaN(),
		}
		p.crosses = append(p.crosses, cross)

		return cross, nil
	default:
		return nil, p.errorf(t, "expected a comparison or crossover operator, got %q", t.String())
	}
}

func (p *parser) parseOperand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return numberOperand{v: t.num}, nil
	case tokMinus:
		n, err := p.expect(tokNumber, "a number")
		if err != nil {
			return nil, err
		}

		return numberOperand{v: -n.num}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseIndicatorCall(t)
		}

		field, err := types.ParseField(strings.ToLower(t.text))
		if err != nil {
			return nil, p.errorf(t, "unknown operand %q", t.text)
		}

		return fieldOperand{field: field}, nil
	default:
		return nil, p.errorf(t, "expected an operand, got %q", t.String())
	}
}

// parseIndicatorCall parses <name>(<args>), registers the indicator on the
// graph and returns an operand bound to the resulting id. Parameter errors
// from registration (bad period, period beyond capacity) fail the whole
// compilation.
func (p *parser) parseIndicatorCall(name token) (operand, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}

	var spec indicator.Spec
	component := 0

	switch keyword(name) {
	case "RSI":
		period, err := p.parsePeriodArg(name)
		if err != nil {
			return nil, err
		}
		spec = indicator.RSI(period)
	case "SMA", "EMA", "STDDEV":
		field, err := p.parseFieldArg(name)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokComma, "','"); err != nil {
			return nil, err
		}
		period, err := p.parsePeriodArg(name)
		if err != nil {
			return nil, err
		}
		switch keyword(name) {
		case "SMA":
			spec = indicator.SMA(field, period)
		case "EMA":
			spec = indicator.EMA(field, period)
		default:
			spec = indicator.StdDev(field, period)
		}
	case "BOLL_MID", "BOLL_UPPER", "BOLL_LOWER":
		period, err := p.parsePeriodArg(name)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokComma, "','"); err != nil {
			return nil, err
		}
		k, err := p.parseNumberArg(name)
		if err != nil {
			return nil, err
		}
		spec = indicator.Boll(period, k)
		switch keyword(name) {
		case "BOLL_UPPER":
			component = 1
		case "BOLL_LOWER":
			component = 2
		}
	case "MACD", "MACD_SIGNAL", "MACD_HIST":
		fast, err := p.parsePeriodArg(name)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokComma, "','"); err != nil {
			return nil, err
		}
		slow, err := p.parsePeriodArg(name)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokComma, "','"); err != nil {
			return nil, err
		}
		signal, err := p.parsePeriodArg(name)
		if err != nil {
			return nil, err
		}
		spec = indicator.MACD(fast, slow, signal)
		switch keyword(name) {
		case "MACD_SIGNAL":
			component = 1
		case "MACD_HIST":
			component = 2
		}
	default:
		return nil, p.errorf(name, "unknown indicator %q", name.text)
	}

	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}

	id, err := p.graph.Add(spec)
	if err != nil {
		return nil, err
	}

	return indicatorOperand{id: id, component: component}, nil
}

func (p *parser) parseNumberArg(name token) (float64, error) {
	t := p.next()
	neg := false
	if t.kind == tokMinus {
		neg = true
		t = p.next()
	}
	if t.kind != tokNumber {
		return 0, p.errorf(t, "%s: expected a numeric argument, got %q", name.text, t.String())
	}
	if neg {
		return -t.num, nil
	}

	return t.num, nil
}

func (p *parser) parsePeriodArg(name token) (int, error) {
	t := p.next()
	if t.kind != tokNumber || t.num != math.Trunc(t.num) {
		return 0, p.errorf(t, "%s: expected an integer period, got %q", name.text, t.String())
	}

	return int(t.num), nil
}

func (p *parser) parseFieldArg(name token) (types.Field, error) {
	t := p.next()
	if t.kind != tokIdent {
		return "", p.errorf(t, "%s: expected a bar field, got %q", name.text, t.String())
	}

	field, err := types.ParseField(strings.ToLower(t.text))
	if err != nil {
		return "", p.errorf(t, "%s: unknown field %q", name.text, t.text)
	}

	return field, nil
}
