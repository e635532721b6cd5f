// Package strategy compiles rule scripts into evaluable trees bound to the
// indicator graph. A script is a list of lines of the form
//
//	IF <condition> THEN BUY|SELL|HOLD
//
// with '#' comments, AND/OR/NOT and parentheses (AND binds tighter than OR),
// comparisons (< <= > >= ==) and crossover predicates (CROSSUP, CROSSDOWN).
// Operands are numeric literals, bar fields (close, open, high, low, volume,
// buy_volume) and indicator calls: RSI(p), SMA(field, p), EMA(field, p),
// STDDEV(field, p), BOLL_MID/BOLL_UPPER/BOLL_LOWER(p, k),
// MACD/MACD_SIGNAL/MACD_HIST(fast, slow, signal). Keywords and names are
// case-insensitive.
//
// Rules evaluate in order and the first match wins, so a strategy emits at
// most one action per bar event. A non-matching script emits nothing; HOLD
// is only ever emitted when a rule says so.
package strategy

import (
	"github.com/rxtech-lab/streamquant/internal/indicator"
	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/types"
)

// EventKind distinguishes a genuine new bar from an in-place revision of the
// current one.
type EventKind int

const (
	EventPush EventKind = iota
	EventUpdateLast
)

// Strategy is a compiled rule script. Its only mutable state is the one bar
// of lookback each crossover predicate keeps.
type Strategy struct {
	name    string
	rules   []rule
	crosses []*crossCond
}

// Compile parses a script and registers every indicator it references on the
// graph. Malformed scripts and invalid indicator parameters fail compilation;
// nothing is evaluated and no strategy state is created. Indicators already
// registered by an earlier strategy are shared, not duplicated.
func Compile(name, source string, graph *indicator.Graph) (*Strategy, error) {
	tokens, err := lex(source)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens, graph: graph}
	rules, err := p.parseScript()
	if err != nil {
		return nil, err
	}

	return &Strategy{name: name, rules: rules, crosses: p.crosses}, nil
}

// Name returns the name the strategy was registered under.
func (s *Strategy) Name() string {
	return s.name
}

// Evaluate runs the rules against the current bar and indicator state.
// All crossover predicates advance their lookback state first, regardless of
// where they sit in the rule list, so short-circuit evaluation can never
// leave one stale. Returns the first matching rule's action.
func (s *Strategy) Evaluate(event EventKind, bars *series.BarBuffer, graph *indicator.Graph) (types.Action, bool) {
	env := &evalEnv{bars: bars, graph: graph}

	for _, cross := range s.crosses {
		cross.advance(env, event == EventPush)
	}

	for _, r := range s.rules {
		if r.cond.eval(env) {
			return r.action, true
		}
	}

	return "", false
}
