package indicator

import (
	"math"

	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/types"
)

// rsiExec implements Wilder's RSI. The average gain/loss is seeded from the
// first period deltas, then smoothed as avg = (avg·(period-1)+current)/period.
// Per-bar averages are stored in circular columns so a tail revision can
// restart from the previous bar's averages without rolling anything back.
//
// Sentinels: zero average loss maps to RSI 100; zero gain and zero loss maps
// to the neutral 50.
type rsiExec struct {
	period int
	seen   int
	// Only needed while seeding (first period diffs).
	initSumGain float64
	initSumLoss float64
	avgGain     *series.CircularColumn[float64]
	avgLoss     *series.CircularColumn[float64]
}

func newRSIExec(period, capacity int) *rsiExec {
	return &rsiExec{
		period:  period,
		avgGain: series.NewCircularColumn[float64](capacity),
		avgLoss: series.NewCircularColumn[float64](capacity),
	}
}

func (e *rsiExec) kind() types.IndicatorKind {
	return types.IndicatorKindScalar
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgGain == 0 && avgLoss == 0 {
		return 50.0
	}
	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss

	return 100.0 - 100.0/(1.0+rs)
}

func (e *rsiExec) onPush(bars *series.BarBuffer, _ []types.IndicatorValue, out *outputColumns) {
	e.seen++
	if e.seen <= 1 {
		e.avgGain.Push(0)
		e.avgLoss.Push(0)
		out.pushScalar(math.NaN())

		return
	}

	close := bars.LastValue(types.FieldClose)
	prevClose := bars.ValueFromEnd(types.FieldClose, 1)
	change := close - prevClose
	gain := math.Max(change, 0)
	loss := math.Max(-change, 0)

	// seen bars yield seen-1 diffs; seeding completes at diffCount == period.
	diffCount := e.seen - 1

	var avgGain, avgLoss float64
	switch {
	case diffCount < e.period:
		e.initSumGain += gain
		e.initSumLoss += loss
	case diffCount == e.period:
		e.initSumGain += gain
		e.initSumLoss += loss
		avgGain = e.initSumGain / float64(e.period)
		avgLoss = e.initSumLoss / float64(e.period)
	default:
		prevGain, _ := e.avgGain.GetFromEnd(0)
		prevLoss, _ := e.avgLoss.GetFromEnd(0)
		avgGain = (prevGain*float64(e.period-1) + gain) / float64(e.period)
		avgLoss = (prevLoss*float64(e.period-1) + loss) / float64(e.period)
	}

	e.avgGain.Push(avgGain)
	e.avgLoss.Push(avgLoss)

	if diffCount < e.period {
		out.pushScalar(math.NaN())
	} else {
		out.pushScalar(rsiFrom(avgGain, avgLoss))
	}
}

func (e *rsiExec) onUpdateLast(oldBar, newBar types.Bar, bars *series.BarBuffer, _ []types.IndicatorValue, out *outputColumns) {
	if e.seen <= 1 {
		e.avgGain.UpdateLast(0)
		e.avgLoss.UpdateLast(0)
		out.updateLastScalar(math.NaN())

		return
	}

	prevClose := bars.ValueFromEnd(types.FieldClose, 1)
	oldChange := oldBar.Close - prevClose
	newChange := newBar.Close - prevClose
	oldGain := math.Max(oldChange, 0)
	oldLoss := math.Max(-oldChange, 0)
	newGain := math.Max(newChange, 0)
	newLoss := math.Max(-newChange, 0)

	diffCount := e.seen - 1

	var avgGain, avgLoss float64
	switch {
	case diffCount < e.period:
		// Still seeding: correct the sums in place.
		e.initSumGain += newGain - oldGain
		e.initSumLoss += newLoss - oldLoss
	case diffCount == e.period:
		e.initSumGain += newGain - oldGain
		e.initSumLoss += newLoss - oldLoss
		avgGain = e.initSumGain / float64(e.period)
		avgLoss = e.initSumLoss / float64(e.period)
	default:
		// Restart from the previous bar's averages.
		prevGain, _ := e.avgGain.GetFromEnd(1)
		prevLoss, _ := e.avgLoss.GetFromEnd(1)
		avgGain = (prevGain*float64(e.period-1) + newGain) / float64(e.period)
		avgLoss = (prevLoss*float64(e.period-1) + newLoss) / float64(e.period)
	}

	e.avgGain.UpdateLast(avgGain)
	e.avgLoss.UpdateLast(avgLoss)

	if diffCount < e.period {
		out.updateLastScalar(math.NaN())
	} else {
		out.updateLastScalar(rsiFrom(avgGain, avgLoss))
	}
}
