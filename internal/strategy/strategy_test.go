package strategy

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/streamquant/internal/indicator"
	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

type StrategyTestSuite struct {
	suite.Suite

	bars  *series.BarBuffer
	graph *indicator.Graph
	ts    int64
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) SetupTest() {
	suite.bars = series.NewBarBuffer(64)
	suite.graph = indicator.NewGraph(64)
	suite.ts = 0
}

func (suite *StrategyTestSuite) push(s *Strategy, close float64) (types.Action, bool) {
	suite.ts++
	suite.bars.Push(types.NewBar(suite.ts, close, close, close, close, 1, 0.5))
	suite.graph.OnPush(suite.bars)

	return s.Evaluate(EventPush, suite.bars, suite.graph)
}

func (suite *StrategyTestSuite) revise(s *Strategy, close float64) (types.Action, bool) {
	newBar := types.NewBar(suite.ts, close, close, close, close, 1, 0.5)
	oldBar, ok := suite.bars.UpdateLast(newBar)
	suite.Require().True(ok)
	suite.graph.OnUpdateLast(oldBar, newBar, suite.bars)

	return s.Evaluate(EventUpdateLast, suite.bars, suite.graph)
}

func (suite *StrategyTestSuite) TestParseErrors() {
	cases := []struct {
		name   string
		script string
		code   errors.ErrorCode
	}{
		{"empty", "", errors.ErrCodeStrategyEmpty},
		{"comments only", "# nothing here\n\n# still nothing\n", errors.ErrCodeStrategyEmpty},
		{"missing IF", "close > 10 THEN BUY", errors.ErrCodeStrategyParse},
		{"missing THEN", "IF close > 10 BUY", errors.ErrCodeStrategyParse},
		{"bad action", "IF close > 10 THEN PANIC", errors.ErrCodeStrategyParse},
		{"single equals", "IF close = 10 THEN BUY", errors.ErrCodeStrategyParse},
		{"unknown field", "IF middle > 10 THEN BUY", errors.ErrCodeStrategyParse},
		{"unknown indicator", "IF WMA(close, 5) > 10 THEN BUY", errors.ErrCodeStrategyParse},
		{"fractional period", "IF RSI(14.5) < 30 THEN BUY", errors.ErrCodeStrategyParse},
		{"unbalanced paren", "IF (close > 10 THEN BUY", errors.ErrCodeStrategyParse},
		{"zero period", "IF RSI(0) < 30 THEN BUY", errors.ErrCodeInvalidPeriod},
		{"period beyond capacity", "IF SMA(close, 100) > 10 THEN BUY", errors.ErrCodeInvalidPeriod},
	}

	for _, tc := range cases {
		_, err := Compile(tc.name, tc.script, suite.graph)
		suite.Error(err, tc.name)
		suite.True(errors.HasCode(err, tc.code), tc.name)
	}
}

func (suite *StrategyTestSuite) TestFailedCompileRegistersNothing() {
	// The period error comes after the field parses, so no partial strategy
	// or indicator from the failing line may leak into the graph.
	_, err := Compile("bad", "IF SMA(close, 0) > 10 THEN BUY", suite.graph)
	suite.Error(err)
	suite.Equal(0, suite.graph.Len())
}

func (suite *StrategyTestSuite) TestSimpleComparison() {
	s, err := Compile("breakout", "IF close > 10 THEN BUY", suite.graph)
	suite.Require().NoError(err)
	suite.Equal("breakout", s.Name())

	_, fired := suite.push(s, 9)
	suite.False(fired)

	action, fired := suite.push(s, 11)
	suite.True(fired)
	suite.Equal(types.ActionBuy, action)
}

func (suite *StrategyTestSuite) TestNoMatchEmitsNothing() {
	s, err := Compile("quiet", "IF close > 1000 THEN SELL", suite.graph)
	suite.Require().NoError(err)

	for _, c := range []float64{10, 20, 30} {
		_, fired := suite.push(s, c)
		suite.False(fired)
	}
}

func (suite *StrategyTestSuite) TestExplicitHold() {
	s, err := Compile("hold", "IF close > 0 THEN HOLD", suite.graph)
	suite.Require().NoError(err)

	action, fired := suite.push(s, 5)
	suite.True(fired)
	suite.Equal(types.ActionHold, action)
}

func (suite *StrategyTestSuite) TestFirstMatchWins() {
	script := "IF close > 10 THEN SELL\nIF close > 5 THEN BUY\n"
	s, err := Compile("ordered", script, suite.graph)
	suite.Require().NoError(err)

	action, fired := suite.push(s, 20)
	suite.True(fired)
	suite.Equal(types.ActionSell, action)

	action, fired = suite.push(s, 7)
	suite.True(fired)
	suite.Equal(types.ActionBuy, action)
}

func (suite *StrategyTestSuite) TestCaseInsensitiveKeywords() {
	s, err := Compile("lower", "if Close > 10 then buy", suite.graph)
	suite.Require().NoError(err)

	action, fired := suite.push(s, 11)
	suite.True(fired)
	suite.Equal(types.ActionBuy, action)
}

func (suite *StrategyTestSuite) TestAndBindsTighterThanOr() {
	// Reads as: (close > 1) OR ((close > 100) AND (close < 0)).
	s, err := Compile("prec", "IF close > 1 OR close > 100 AND close < 0 THEN BUY", suite.graph)
	suite.Require().NoError(err)

	_, fired := suite.push(s, 5)
	suite.True(fired)

	// Parenthesized the other way it must not fire.
	suite.SetupTest()
	s, err = Compile("prec2", "IF (close > 1 OR close > 100) AND close < 0 THEN BUY", suite.graph)
	suite.Require().NoError(err)

	_, fired = suite.push(s, 5)
	suite.False(fired)
}

func (suite *StrategyTestSuite) TestNotOperator() {
	s, err := Compile("not", "IF NOT close > 10 THEN SELL", suite.graph)
	suite.Require().NoError(err)

	_, fired := suite.push(s, 20)
	suite.False(fired)

	action, fired := suite.push(s, 5)
	suite.True(fired)
	suite.Equal(types.ActionSell, action)
}

func (suite *StrategyTestSuite) TestComparisonWithUndefinedIndicatorIsFalse() {
	// RSI needs period+1 bars; until then every comparison against it is
	// false, including through NOT.
	s, err := Compile("warmup", "IF RSI(3) < 101 THEN BUY", suite.graph)
	suite.Require().NoError(err)

	for i := 0; i < 3; i++ {
		_, fired := suite.push(s, 100-float64(i))
		suite.False(fired)
	}

	_, fired := suite.push(s, 96)
	suite.True(fired)
}

func (suite *StrategyTestSuite) TestRSIOversoldFiresAtFirstDefinedBar() {
	s, err := Compile("oversold", "IF RSI(3) < 30 THEN BUY", suite.graph)
	suite.Require().NoError(err)

	// Monotonically declining closes: no signal before warm-up completes,
	// then RSI is 0 and the rule fires.
	closes := []float64{100, 99, 98}
	for _, c := range closes {
		_, fired := suite.push(s, c)
		suite.False(fired)
	}

	action, fired := suite.push(s, 97)
	suite.True(fired)
	suite.Equal(types.ActionBuy, action)
}

func (suite *StrategyTestSuite) TestSharedIndicatorRegistration() {
	_, err := Compile("a", "IF RSI(14) < 30 THEN BUY", suite.graph)
	suite.Require().NoError(err)
	before := suite.graph.Len()

	_, err = Compile("b", "IF RSI(14) > 70 THEN SELL", suite.graph)
	suite.Require().NoError(err)
	suite.Equal(before, suite.graph.Len())
}

func (suite *StrategyTestSuite) TestCrossUpFiresOnlyOnTransition() {
	s, err := Compile("cross", "IF close CROSSUP 10 THEN BUY", suite.graph)
	suite.Require().NoError(err)

	_, fired := suite.push(s, 9)
	suite.False(fired) // no prior bar yet

	_, fired = suite.push(s, 9.5)
	suite.False(fired) // still below

	action, fired := suite.push(s, 11)
	suite.True(fired)
	suite.Equal(types.ActionBuy, action)

	_, fired = suite.push(s, 12)
	suite.False(fired) // already above, no transition
}

func (suite *StrategyTestSuite) TestCrossDown() {
	s, err := Compile("crossdown", "IF close CROSSDOWN 10 THEN SELL", suite.graph)
	suite.Require().NoError(err)

	suite.push(s, 12)
	suite.push(s, 11)

	action, fired := suite.push(s, 9)
	suite.True(fired)
	suite.Equal(types.ActionSell, action)

	_, fired = suite.push(s, 8)
	suite.False(fired)
}

func (suite *StrategyTestSuite) TestCrossoverAnchoredDuringRevision() {
	s, err := Compile("live", "IF close CROSSUP 10 THEN BUY", suite.graph)
	suite.Require().NoError(err)

	suite.push(s, 9)
	_, fired := suite.push(s, 9.5)
	suite.False(fired)

	// Live tick pushes the unfinished bar above the level: the comparison is
	// anchored to the previous bar, so the crossover fires.
	action, fired := suite.revise(s, 11)
	suite.True(fired)
	suite.Equal(types.ActionBuy, action)

	// The next tick drops back below: same anchor, no crossover.
	_, fired = suite.revise(s, 9.8)
	suite.False(fired)

	// Finalized below the level, then a fresh bar above it fires again.
	action, fired = suite.push(s, 12)
	suite.True(fired)
	suite.Equal(types.ActionBuy, action)
}

func (suite *StrategyTestSuite) TestSMACrossoverBetweenIndicators() {
	s, err := Compile("golden", "IF SMA(close, 2) CROSSUP SMA(close, 4) THEN BUY", suite.graph)
	suite.Require().NoError(err)

	// Downtrend keeps the fast average below the slow one, then a sharp
	// reversal lifts it above.
	closes := []float64{20, 18, 16, 14, 13, 25}
	var fires int
	var last types.Action
	for _, c := range closes {
		if action, fired := suite.push(s, c); fired {
			fires++
			last = action
		}
	}

	suite.Equal(1, fires)
	suite.Equal(types.ActionBuy, last)
}
