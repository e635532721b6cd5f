package indicator

import (
	"math"

	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/types"
)

// macdExec derives the MACD line from its fast/slow EMA dependencies and
// smooths a signal EMA over the macd series, seeded with the SMA of the
// first signalPeriod defined macd values. Output order is
// (macd, signal, histogram). definedCount tracks how many defined macd
// samples have been consumed; whether a given bar's macd is defined depends
// only on the bar count, so a revision never moves the seeding boundary.
type macdExec struct {
	signalPeriod int
	alpha        float64
	definedCount int
	initSum      float64
}

func newMACDExec(signalPeriod int) *macdExec {
	return &macdExec{
		signalPeriod: signalPeriod,
		alpha:        2.0 / (float64(signalPeriod) + 1.0),
	}
}

func (e *macdExec) kind() types.IndicatorKind {
	return types.IndicatorKindTriple
}

func macdLine(deps []types.IndicatorValue) float64 {
	if len(deps) != 2 {
		return math.NaN()
	}

	return deps[0].A - deps[1].A
}

func (e *macdExec) onPush(_ *series.BarBuffer, deps []types.IndicatorValue, out *outputColumns) {
	macd := macdLine(deps)
	if math.IsNaN(macd) {
		out.pushTriple(math.NaN(), math.NaN(), math.NaN())
		return
	}

	e.definedCount++

	var signal float64
	switch {
	case e.definedCount < e.signalPeriod:
		e.initSum += macd
		signal = math.NaN()
	case e.definedCount == e.signalPeriod:
		e.initSum += macd
		signal = e.initSum / float64(e.signalPeriod)
	default:
		prev := out.componentFromEnd(1, 0, macd)
		signal = prev + e.alpha*(macd-prev)
	}

	out.pushTriple(macd, signal, macd-signal)
}

func (e *macdExec) onUpdateLast(_, _ types.Bar, _ *series.BarBuffer, deps []types.IndicatorValue, out *outputColumns) {
	macd := macdLine(deps)
	if math.IsNaN(macd) {
		out.updateLastTriple(math.NaN(), math.NaN(), math.NaN())
		return
	}

	// The revised bar's defined macd replaces the one it contributed on push.
	oldMacd := out.componentFromEnd(0, 0, macd)

	var signal float64
	switch {
	case e.definedCount < e.signalPeriod:
		e.initSum += macd - oldMacd
		signal = math.NaN()
	case e.definedCount == e.signalPeriod:
		e.initSum += macd - oldMacd
		signal = e.initSum / float64(e.signalPeriod)
	default:
		prev := out.componentFromEnd(1, 1, macd)
		signal = prev + e.alpha*(macd-prev)
	}

	out.updateLastTriple(macd, signal, macd-signal)
}
