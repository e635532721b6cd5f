// Package backtest simulates acting on strategy signals in a leveraged
// futures market: margin, open/close fees, mark-to-market equity, drawdown
// and forced liquidation.
package backtest

import (
	"github.com/go-playground/validator/v10"

	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// PositionState is the simulator's state machine.
type PositionState string

const (
	PositionFlat       PositionState = "flat"
	PositionLong       PositionState = "long"
	PositionShort      PositionState = "short"
	PositionLiquidated PositionState = "liquidated"
)

// BacktestParams parameterizes a FuturesBacktest. Fee rates are fractions of
// notional; the maintenance rate is the equity floor as a fraction of
// notional below which the position is force-closed.
type BacktestParams struct {
	InitialMargin         float64 `json:"initial_margin" yaml:"initial_margin" validate:"gt=0"`
	Leverage              float64 `json:"leverage" yaml:"leverage" validate:"gt=0"`
	ContractSize          float64 `json:"contract_size" yaml:"contract_size" validate:"gt=0"`
	MakerFeeRate          float64 `json:"maker_fee_rate" yaml:"maker_fee_rate" validate:"gte=0,lt=1"`
	TakerFeeRate          float64 `json:"taker_fee_rate" yaml:"taker_fee_rate" validate:"gte=0,lt=1"`
	MaintenanceMarginRate float64 `json:"maintenance_margin_rate" yaml:"maintenance_margin_rate" validate:"gte=0,lt=1"`
}

// Result is a point-in-time snapshot of the simulation outcome.
type Result struct {
	Equity          float64
	Profit          float64
	ProfitRate      float64
	MaxDrawdownRate float64
	Liquidated      bool
}

// FuturesBacktest is a single-position futures simulator. It is driven by
// ApplySignal for trades and OnPrice for mark-to-market ticks; Result reads
// the outcome without mutating anything. Once liquidated it stays inert.
type FuturesBacktest struct {
	params BacktestParams

	state      PositionState
	cash       float64 // free balance, all realized profits and fees folded in
	margin     float64 // margin locked in the open position, open fee deducted
	notional   float64
	entryPrice float64
	quantity   float64

	peakEquity      float64
	maxDrawdownRate float64
}

var paramsValidator = validator.New()

// NewFuturesBacktest validates the parameters and creates a flat position
// holding the initial margin as free balance.
func NewFuturesBacktest(params BacktestParams) (*FuturesBacktest, error) {
	if err := paramsValidator.Struct(params); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestParams, "invalid backtest parameters", err)
	}

	return &FuturesBacktest{
		params:     params,
		state:      PositionFlat,
		cash:       params.InitialMargin,
		peakEquity: params.InitialMargin,
	}, nil
}

// State returns the current position state.
func (b *FuturesBacktest) State() PositionState {
	return b.state
}

func (b *FuturesBacktest) directionSign() float64 {
	if b.state == PositionShort {
		return -1
	}

	return 1
}

func (b *FuturesBacktest) unrealizedPnL(price float64) float64 {
	if b.state != PositionLong && b.state != PositionShort {
		return 0
	}

	return (price - b.entryPrice) * b.quantity * b.params.ContractSize * b.directionSign()
}

func (b *FuturesBacktest) equity(price float64) float64 {
	return b.cash + b.margin + b.unrealizedPnL(price)
}

// touch folds a new equity observation into the peak and drawdown tracking.
// Drawdown is reported as a positive fraction of the peak.
func (b *FuturesBacktest) touch(equity float64) {
	if equity > b.peakEquity {
		b.peakEquity = equity
	}
	if b.peakEquity > 0 {
		drawdown := (b.peakEquity - equity) / b.peakEquity
		if drawdown > b.maxDrawdownRate {
			b.maxDrawdownRate = drawdown
		}
	}
}

func (b *FuturesBacktest) open(state PositionState, price, margin float64) {
	notional := margin * b.params.Leverage
	fee := b.params.TakerFeeRate * notional

	b.cash -= margin
	b.margin = margin - fee
	b.notional = notional
	b.entryPrice = price
	b.quantity = notional / (price * b.params.ContractSize)
	b.state = state
}

// close realizes the position at price, crediting the locked margin plus
// profit minus the maker close fee back to the free balance.
func (b *FuturesBacktest) close(price float64) {
	fee := b.params.MakerFeeRate * b.notional
	b.cash += b.margin + b.unrealizedPnL(price) - fee
	b.margin = 0
	b.notional = 0
	b.entryPrice = 0
	b.quantity = 0
	b.state = PositionFlat
}

// ApplySignal applies a trade signal at the given price with the given
// margin allocation. A Buy opens or flips to Long, a Sell to Short; a signal
// in the direction already held is a no-op, as is Hold. A flip closes the
// old position and opens the new one in this single call. A margin request
// above the free balance is capped so the margin plus the open fee stay
// fundable; when nothing is fundable the position stays closed. After
// liquidation every signal is ignored.
func (b *FuturesBacktest) ApplySignal(action types.Action, price, margin float64) error {
	if price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice, "price must be positive, got %v", price)
	}
	if margin <= 0 {
		return errors.Newf(errors.ErrCodeInvalidMargin, "margin must be positive, got %v", margin)
	}

	if b.state == PositionLiquidated || action == types.ActionHold {
		return nil
	}

	target := PositionLong
	if action == types.ActionSell {
		target = PositionShort
	}
	if b.state == target {
		return nil
	}

	if b.state != PositionFlat {
		b.close(price)
	}

	if margin > b.cash {
		margin = b.cash / (1 + b.params.Leverage*b.params.TakerFeeRate)
	}
	if margin <= 0 {
		return nil
	}

	b.open(target, price, margin)

	equity := b.equity(price)
	b.touch(equity)
	if equity <= b.params.MaintenanceMarginRate*b.notional {
		b.liquidate(equity)
	}

	return nil
}

// liquidate force-closes the position at the given equity: the remaining
// balance is the liquidation-time equity clamped at zero, and the state is
// terminal.
func (b *FuturesBacktest) liquidate(equity float64) {
	b.cash = max(equity, 0)
	b.margin = 0
	b.notional = 0
	b.entryPrice = 0
	b.quantity = 0
	b.state = PositionLiquidated
}

// OnPrice marks the position to market. If equity falls to or below the
// maintenance floor the position is liquidated permanently; afterwards
// OnPrice is a no-op.
func (b *FuturesBacktest) OnPrice(price float64) error {
	if price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice, "price must be positive, got %v", price)
	}
	if b.state == PositionLiquidated {
		return nil
	}

	equity := b.equity(price)
	b.touch(equity)

	if b.state != PositionFlat && equity <= b.params.MaintenanceMarginRate*b.notional {
		b.liquidate(equity)
	}

	return nil
}

// Result computes the outcome at the given price without mutating state.
func (b *FuturesBacktest) Result(price float64) (Result, error) {
	if price <= 0 {
		return Result{}, errors.Newf(errors.ErrCodeInvalidPrice, "price must be positive, got %v", price)
	}

	equity := b.equity(price)
	profit := equity - b.params.InitialMargin

	maxDrawdown := b.maxDrawdownRate
	if b.peakEquity > 0 {
		if drawdown := (b.peakEquity - equity) / b.peakEquity; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return Result{
		Equity:          equity,
		Profit:          profit,
		ProfitRate:      profit / b.params.InitialMargin,
		MaxDrawdownRate: maxDrawdown,
		Liquidated:      b.state == PositionLiquidated,
	}, nil
}
