package strategy

import (
	"math"

	"github.com/rxtech-lab/streamquant/internal/indicator"
	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/types"
)

// evalEnv is the read-only snapshot a rule evaluates against: the bar store
// and the indicator graph after the current bar event has been applied.
type evalEnv struct {
	bars  *series.BarBuffer
	graph *indicator.Graph
}

// operand yields one float per evaluation. NaN means not yet defined; every
// comparison involving NaN is false.
type operand interface {
	value(env *evalEnv) float64
}

type numberOperand struct {
	v float64
}

func (o numberOperand) value(*evalEnv) float64 {
	return o.v
}

type fieldOperand struct {
	field types.Field
}

func (o fieldOperand) value(env *evalEnv) float64 {
	return env.bars.LastValue(o.field)
}

// indicatorOperand reads one component (0=a, 1=b, 2=c) of a registered
// indicator's latest value.
type indicatorOperand struct {
	id        int
	component int
}

func (o indicatorOperand) value(env *evalEnv) float64 {
	v, err := env.graph.LastValue(o.id)
	if err != nil {
		return math.NaN()
	}

	return v.Component(o.component)
}

// condition is a boolean rule node.
type condition interface {
	eval(env *evalEnv) bool
}

type cmpOp int

const (
	cmpLt cmpOp = iota
	cmpLe
	cmpGt
	cmpGe
	cmpEq
)

type compareCond struct {
	op    cmpOp
	left  operand
	right operand
}

func (c *compareCond) eval(env *evalEnv) bool {
	l := c.left.value(env)
	r := c.right.value(env)
	if math.IsNaN(l) || math.IsNaN(r) {
		return false
	}

	switch c.op {
	case cmpLt:
		return l < r
	case cmpLe:
		return l <= r
	case cmpGt:
		return l > r
	case cmpGe:
		return l >= r
	case cmpEq:
		return l == r
	default:
		return false
	}
}

// crossCond holds the script's only cross-event state: the operand pair
// sampled at the previous bar. A push shifts cur into prev before sampling;
// a tail revision resamples cur only, so the comparison stays anchored to
// the bar before the one being revised.
type crossCond struct {
	up    bool // CROSSUP when true, CROSSDOWN otherwise
	left  operand
	right operand

	havePrev  bool
	prevLeft  float64
	prevRight float64
	curLeft   float64
	curRight  float64
}

func (c *crossCond) advance(env *evalEnv, isPush bool) {
	if isPush {
		if env.bars.Len() > 1 {
			c.prevLeft = c.curLeft
			c.prevRight = c.curRight
			c.havePrev = true
		}
	}
	c.curLeft = c.left.value(env)
	c.curRight = c.right.value(env)
}

func (c *crossCond) eval(*evalEnv) bool {
	if !c.havePrev {
		return false
	}
	if math.IsNaN(c.prevLeft) || math.IsNaN(c.prevRight) ||
		math.IsNaN(c.curLeft) || math.IsNaN(c.curRight) {
		return false
	}

	if c.up {
		return c.prevLeft <= c.prevRight && c.curLeft > c.curRight
	}

	return c.prevLeft >= c.prevRight && c.curLeft < c.curRight
}

type andCond struct {
	left  condition
	right condition
}

func (c *andCond) eval(env *evalEnv) bool {
	return c.left.eval(env) && c.right.eval(env)
}

type orCond struct {
	left  condition
	right condition
}

func (c *orCond) eval(env *evalEnv) bool {
	return c.left.eval(env) || c.right.eval(env)
}

type notCond struct {
	inner condition
}

func (c *notCond) eval(env *evalEnv) bool {
	return !c.inner.eval(env)
}

// rule is one IF <cond> THEN <action> line.
type rule struct {
	cond   condition
	action types.Action
}
