package backtest

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

type FuturesTestSuite struct {
	suite.Suite

	params BacktestParams
}

func TestFuturesSuite(t *testing.T) {
	suite.Run(t, new(FuturesTestSuite))
}

func (suite *FuturesTestSuite) SetupTest() {
	suite.params = BacktestParams{
		InitialMargin:         1000,
		Leverage:              10,
		ContractSize:          1,
		MakerFeeRate:          0.0002,
		TakerFeeRate:          0.0004,
		MaintenanceMarginRate: 0.005,
	}
}

func (suite *FuturesTestSuite) newBacktest() *FuturesBacktest {
	b, err := NewFuturesBacktest(suite.params)
	suite.Require().NoError(err)

	return b
}

func (suite *FuturesTestSuite) TestInvalidParams() {
	cases := []func(*BacktestParams){
		func(p *BacktestParams) { p.InitialMargin = 0 },
		func(p *BacktestParams) { p.Leverage = 0 },
		func(p *BacktestParams) { p.Leverage = -1 },
		func(p *BacktestParams) { p.ContractSize = 0 },
		func(p *BacktestParams) { p.TakerFeeRate = -0.1 },
		func(p *BacktestParams) { p.MaintenanceMarginRate = 1.5 },
	}

	for i, mutate := range cases {
		params := suite.params
		mutate(&params)
		_, err := NewFuturesBacktest(params)
		suite.Error(err, "case %d", i)
		suite.True(errors.HasCode(err, errors.ErrCodeBacktestParams), "case %d", i)
	}
}

func (suite *FuturesTestSuite) TestInvalidCallInputs() {
	b := suite.newBacktest()

	err := b.ApplySignal(types.ActionBuy, 0, 1000)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPrice))

	err = b.ApplySignal(types.ActionBuy, 100, -5)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidMargin))

	err = b.OnPrice(-1)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPrice))

	_, err = b.Result(0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPrice))

	// None of the invalid calls changed state.
	suite.Equal(PositionFlat, b.State())
	res, err := b.Result(100)
	suite.NoError(err)
	suite.Equal(1000.0, res.Equity)
}

func (suite *FuturesTestSuite) TestOpenLongQuantityAndFee() {
	b := suite.newBacktest()

	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 1000))
	suite.Equal(PositionLong, b.State())

	// notional 10000, quantity 100, taker fee 4.
	suite.Equal(100.0, b.quantity)
	suite.Equal(10000.0, b.notional)
	suite.Equal(996.0, b.margin)

	res, err := b.Result(100)
	suite.NoError(err)
	suite.Equal(996.0, res.Equity)
	suite.Equal(-4.0, res.Profit)
}

func (suite *FuturesTestSuite) TestMarkToMarketProfit() {
	b := suite.newBacktest()

	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 1000))
	suite.NoError(b.OnPrice(110))

	res, err := b.Result(110)
	suite.NoError(err)
	// unrealized PnL (110-100)*100 = 1000 on top of 1000 - open fee.
	suite.Equal(1996.0, res.Equity)
	suite.Equal(996.0, res.Profit)
	suite.InDelta(0.996, res.ProfitRate, 1e-12)
	suite.False(res.Liquidated)
}

func (suite *FuturesTestSuite) TestLiquidationOnDrop() {
	b := suite.newBacktest()

	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 1000))
	suite.NoError(b.OnPrice(90))

	// Equity 996 - 1000 = -4 is below the 50 maintenance floor: liquidated,
	// balance clamped at zero.
	suite.Equal(PositionLiquidated, b.State())

	res, err := b.Result(90)
	suite.NoError(err)
	suite.True(res.Liquidated)
	suite.Equal(0.0, res.Equity)
	suite.Equal(-1000.0, res.Profit)
	// The worst observed equity was -4 against the initial peak of 1000.
	suite.InDelta(1.004, res.MaxDrawdownRate, 1e-9)

	// Liquidation is permanent: further ticks and signals are no-ops.
	suite.NoError(b.OnPrice(500))
	suite.NoError(b.ApplySignal(types.ActionBuy, 500, 1000))
	suite.Equal(PositionLiquidated, b.State())

	res, err = b.Result(500)
	suite.NoError(err)
	suite.Equal(0.0, res.Equity)
}

func (suite *FuturesTestSuite) TestShortPosition() {
	b := suite.newBacktest()

	suite.NoError(b.ApplySignal(types.ActionSell, 100, 1000))
	suite.Equal(PositionShort, b.State())

	// Shorts profit when the price falls.
	res, err := b.Result(90)
	suite.NoError(err)
	suite.Equal(1996.0, res.Equity)
}

func (suite *FuturesTestSuite) TestSameDirectionSignalIsNoOp() {
	b := suite.newBacktest()

	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 1000))
	entry := b.entryPrice
	margin := b.margin

	// A second Buy at another price must not re-open or charge a fee.
	suite.NoError(b.ApplySignal(types.ActionBuy, 120, 1000))
	suite.Equal(entry, b.entryPrice)
	suite.Equal(margin, b.margin)
}

func (suite *FuturesTestSuite) TestHoldIsNoOp() {
	b := suite.newBacktest()

	suite.NoError(b.ApplySignal(types.ActionHold, 100, 1000))
	suite.Equal(PositionFlat, b.State())

	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 1000))
	suite.NoError(b.ApplySignal(types.ActionHold, 110, 1000))
	suite.Equal(PositionLong, b.State())
}

func (suite *FuturesTestSuite) TestFlipLongToShortInOneCall() {
	b := suite.newBacktest()

	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 1000))
	suite.NoError(b.ApplySignal(types.ActionSell, 110, 1000))
	suite.Equal(PositionShort, b.State())
	suite.Equal(110.0, b.entryPrice)

	// Close credited margin 996 + pnl 1000 - maker fee 2; the flip then
	// locked 1000 again with a fresh taker fee.
	res, err := b.Result(110)
	suite.NoError(err)
	suite.Equal(1000.0+996.0-2.0-4.0, res.Equity)
}

func (suite *FuturesTestSuite) TestMarginCappedAtFreeBalance() {
	b := suite.newBacktest()

	// Requesting 5x the free balance must not drive the balance negative:
	// the allocation is capped so margin plus the open fee stay fundable.
	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 5000))
	suite.Equal(PositionLong, b.State())

	// Cap m solves m*(1 + leverage*taker_fee) = 1000, so m = 1000/1.004.
	capped := 1000.0 / 1.004
	suite.InDelta(capped*10, b.notional, 1e-9)
	suite.InDelta(capped/10, b.quantity, 1e-9)
	suite.GreaterOrEqual(b.cash, 0.0)

	// Nothing was lost except the open fee: equity is exactly the cap.
	res, err := b.Result(100)
	suite.NoError(err)
	suite.InDelta(capped, res.Equity, 1e-9)
}

func (suite *FuturesTestSuite) TestFlipWithExhaustedBalanceStaysFlat() {
	params := BacktestParams{
		InitialMargin: 1000,
		Leverage:      2,
		ContractSize:  1,
	}
	b, err := NewFuturesBacktest(params)
	suite.Require().NoError(err)

	// The long loses its entire margin by the time the flip arrives, so the
	// close leaves no balance to fund the short leg: the flip ends flat.
	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 1000))
	suite.NoError(b.ApplySignal(types.ActionSell, 50, 1000))
	suite.Equal(PositionFlat, b.State())

	res, err := b.Result(50)
	suite.NoError(err)
	suite.Equal(0.0, res.Equity)
	suite.False(res.Liquidated)
}

func (suite *FuturesTestSuite) TestLiquidationAtOpenWhenMaintenanceExceedsMargin() {
	params := BacktestParams{
		InitialMargin:         1000,
		Leverage:              100,
		ContractSize:          1,
		MaintenanceMarginRate: 0.02,
	}
	b, err := NewFuturesBacktest(params)
	suite.Require().NoError(err)

	// At 100x leverage the maintenance floor (2000) exceeds the posted
	// margin, so the position is force-closed on the same call that opened
	// it, without waiting for the next price tick.
	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 1000))
	suite.Equal(PositionLiquidated, b.State())

	res, err := b.Result(100)
	suite.NoError(err)
	suite.True(res.Liquidated)
	suite.Equal(1000.0, res.Equity)

	suite.NoError(b.ApplySignal(types.ActionSell, 100, 500))
	suite.Equal(PositionLiquidated, b.State())
}

func (suite *FuturesTestSuite) TestDrawdownTracksPeak() {
	b := suite.newBacktest()

	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 1000))
	suite.NoError(b.OnPrice(110)) // peak 1996
	suite.NoError(b.OnPrice(105))

	res, err := b.Result(105)
	suite.NoError(err)
	// Equity 1496 against peak 1996.
	suite.InDelta((1996.0-1496.0)/1996.0, res.MaxDrawdownRate, 1e-12)

	// Recovery does not shrink the recorded maximum.
	suite.NoError(b.OnPrice(110))
	res, err = b.Result(110)
	suite.NoError(err)
	suite.InDelta((1996.0-1496.0)/1996.0, res.MaxDrawdownRate, 1e-12)
}

func (suite *FuturesTestSuite) TestResultDoesNotMutate() {
	b := suite.newBacktest()

	suite.NoError(b.ApplySignal(types.ActionBuy, 100, 1000))

	// A deep adverse price through Result must not liquidate.
	res, err := b.Result(50)
	suite.NoError(err)
	suite.False(res.Liquidated)
	suite.Equal(PositionLong, b.State())

	res, err = b.Result(110)
	suite.NoError(err)
	suite.Equal(1996.0, res.Equity)
}

func (suite *FuturesTestSuite) TestFlatMarkToMarket() {
	b := suite.newBacktest()

	suite.NoError(b.OnPrice(123))
	res, err := b.Result(123)
	suite.NoError(err)
	suite.Equal(1000.0, res.Equity)
	suite.Equal(0.0, res.Profit)
	suite.Equal(0.0, res.MaxDrawdownRate)
}
