// Package indicator implements the incremental indicator graph: a registry
// of technical indicators attached to the bar buffer, each maintaining just
// enough rolling state to produce its latest value in O(1) amortized per bar
// and to replay a revision of the most recent bar.
package indicator

import (
	"math"

	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// SpecKind names an indicator algorithm.
type SpecKind string

const (
	SpecSMA    SpecKind = "sma"
	SpecEMA    SpecKind = "ema"
	SpecStdDev SpecKind = "stddev"
	SpecRSI    SpecKind = "rsi"
	SpecBoll   SpecKind = "boll"
	SpecMACD   SpecKind = "macd"
)

// Spec fully identifies an indicator: algorithm plus parameters. Specs are
// comparable so the graph can dedup registrations; KBits holds the Bollinger
// multiplier as math.Float64bits to keep the struct usable as a map key.
type Spec struct {
	Kind   SpecKind
	Field  types.Field
	Period int
	Fast   int
	Slow   int
	Signal int
	KBits  uint64
}

// SMA creates a simple-moving-average spec over the given field.
func SMA(field types.Field, period int) Spec {
	return Spec{Kind: SpecSMA, Field: field, Period: period}
}

// EMA creates an exponential-moving-average spec over the given field.
func EMA(field types.Field, period int) Spec {
	return Spec{Kind: SpecEMA, Field: field, Period: period}
}

// StdDev creates a rolling population standard deviation spec.
func StdDev(field types.Field, period int) Spec {
	return Spec{Kind: SpecStdDev, Field: field, Period: period}
}

// RSI creates a Wilder RSI spec over closes.
func RSI(period int) Spec {
	return Spec{Kind: SpecRSI, Field: types.FieldClose, Period: period}
}

// Boll creates a Bollinger band spec: mid = SMA(close, period),
// upper/lower = mid ± k·StdDev(close, period).
func Boll(period int, k float64) Spec {
	return Spec{Kind: SpecBoll, Field: types.FieldClose, Period: period, KBits: math.Float64bits(k)}
}

// MACD creates a MACD spec: macd = EMA(fast) − EMA(slow) over closes,
// signal = EMA(signal) of the macd series, histogram = macd − signal.
func MACD(fast, slow, signal int) Spec {
	return Spec{Kind: SpecMACD, Field: types.FieldClose, Fast: fast, Slow: slow, Signal: signal}
}

// K returns the Bollinger multiplier.
func (s Spec) K() float64 {
	return math.Float64frombits(s.KBits)
}

// Validate checks the spec's parameters against the store capacity.
// Zero or negative periods and periods exceeding the capacity are rejected
// at registration time.
func (s Spec) Validate(capacity int) error {
	checkPeriod := func(name string, period int) error {
		if period <= 0 {
			return errors.Newf(errors.ErrCodeInvalidPeriod, "%s: period must be positive, got %d", s.Kind, period)
		}
		if period > capacity {
			return errors.Newf(errors.ErrCodeInvalidPeriod, "%s: %s %d exceeds store capacity %d", s.Kind, name, period, capacity)
		}

		return nil
	}

	switch s.Kind {
	case SpecSMA, SpecEMA, SpecStdDev, SpecRSI:
		return checkPeriod("period", s.Period)
	case SpecBoll:
		if err := checkPeriod("period", s.Period); err != nil {
			return err
		}
		if math.IsNaN(s.K()) || math.IsInf(s.K(), 0) {
			return errors.New(errors.ErrCodeInvalidParameter, "boll: k must be finite")
		}

		return nil
	case SpecMACD:
		if err := checkPeriod("fast period", s.Fast); err != nil {
			return err
		}
		if err := checkPeriod("slow period", s.Slow); err != nil {
			return err
		}

		return checkPeriod("signal period", s.Signal)
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown indicator kind: %s", s.Kind)
	}
}
