package types

import (
	"math"

	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// Bar is one OHLCV(+buy volume) sample for a fixed time interval.
// Timestamp is in unix seconds and must be non-decreasing across pushed bars.
type Bar struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	BuyVolume float64
}

// NewBar creates a bar from its raw fields.
func NewBar(timestamp int64, open, high, low, close, volume, buyVolume float64) Bar {
	return Bar{
		Timestamp: timestamp,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		BuyVolume: buyVolume,
	}
}

// Field identifies one numeric column of a bar.
type Field string

const (
	FieldOpen      Field = "open"
	FieldHigh      Field = "high"
	FieldLow       Field = "low"
	FieldClose     Field = "close"
	FieldVolume    Field = "volume"
	FieldBuyVolume Field = "buy_volume"
)

// AllFields lists every numeric bar field in column order.
var AllFields = []Field{
	FieldOpen,
	FieldHigh,
	FieldLow,
	FieldClose,
	FieldVolume,
	FieldBuyVolume,
}

// ParseField parses a field name as used in rule scripts and data files.
// "buyvolume" is accepted as an alias for "buy_volume".
func ParseField(s string) (Field, error) {
	switch s {
	case "open":
		return FieldOpen, nil
	case "high":
		return FieldHigh, nil
	case "low":
		return FieldLow, nil
	case "close":
		return FieldClose, nil
	case "volume":
		return FieldVolume, nil
	case "buy_volume", "buyvolume":
		return FieldBuyVolume, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidField, "unknown field: %s", s)
	}
}

// Value returns the bar's value for the given field.
func (b Bar) Value(field Field) float64 {
	switch field {
	case FieldOpen:
		return b.Open
	case FieldHigh:
		return b.High
	case FieldLow:
		return b.Low
	case FieldClose:
		return b.Close
	case FieldVolume:
		return b.Volume
	case FieldBuyVolume:
		return b.BuyVolume
	default:
		return math.NaN()
	}
}

// Action is the trade action a strategy requests.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal is emitted by a strategy for a single bar event.
type Signal struct {
	StrategyID int
	Action     Action
	Timestamp  int64
}

// IndicatorKind tags the payload shape of an indicator value.
type IndicatorKind string

const (
	IndicatorKindScalar IndicatorKind = "scalar"
	IndicatorKindTriple IndicatorKind = "triple"
)

// IndicatorValue is the latest output of an indicator. Scalar values carry
// A only (B and C are NaN); triple values carry A, B and C.
type IndicatorValue struct {
	Kind IndicatorKind
	A    float64
	B    float64
	C    float64
}

// Scalar creates a scalar indicator value.
func Scalar(v float64) IndicatorValue {
	return IndicatorValue{
		Kind: IndicatorKindScalar,
		A:    v,
		B:    math.NaN(),
		C:    math.NaN(),
	}
}

// Triple creates a triple indicator value.
func Triple(a, b, c float64) IndicatorValue {
	return IndicatorValue{
		Kind: IndicatorKindTriple,
		A:    a,
		B:    b,
		C:    c,
	}
}

// Component returns the i-th component of the value (0=A, 1=B, 2=C).
func (v IndicatorValue) Component(i int) float64 {
	switch i {
	case 0:
		return v.A
	case 1:
		return v.B
	case 2:
		return v.C
	default:
		return math.NaN()
	}
}
