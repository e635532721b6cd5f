package indicator

import (
	"math"

	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/types"
)

// stdDevExec computes the population standard deviation over the last
// period samples via rolling sum and sum of squares on its own window. The
// variance is clamped at zero before the square root: the clamp bounds the
// cancellation error of the two-sums form while keeping every sample
// subtractable, which a Welford accumulator would not allow for the
// windowed eviction and the revisable tail.
type stdDevExec struct {
	field  types.Field
	period int
	sum    float64
	sumSq  float64
	window *series.CircularColumn[float64]
}

func newStdDevExec(field types.Field, period int) *stdDevExec {
	return &stdDevExec{
		field:  field,
		period: period,
		window: series.NewCircularColumn[float64](period),
	}
}

func (e *stdDevExec) kind() types.IndicatorKind {
	return types.IndicatorKindScalar
}

func (e *stdDevExec) value() float64 {
	if !e.window.IsFull() {
		return math.NaN()
	}

	mean := e.sum / float64(e.period)
	variance := e.sumSq/float64(e.period) - mean*mean

	return math.Sqrt(math.Max(variance, 0))
}

func (e *stdDevExec) onPush(bars *series.BarBuffer, _ []types.IndicatorValue, out *outputColumns) {
	if bars.IsEmpty() {
		out.pushScalar(math.NaN())
		return
	}

	v := bars.LastValue(e.field)
	if e.window.IsFull() {
		removed, _ := e.window.Get(0)
		e.sum += v - removed
		e.sumSq += v*v - removed*removed
	} else {
		e.sum += v
		e.sumSq += v * v
	}
	e.window.Push(v)

	out.pushScalar(e.value())
}

func (e *stdDevExec) onUpdateLast(oldBar, newBar types.Bar, bars *series.BarBuffer, _ []types.IndicatorValue, out *outputColumns) {
	if bars.IsEmpty() {
		return
	}

	oldV := oldBar.Value(e.field)
	newV := newBar.Value(e.field)
	e.sum += newV - oldV
	e.sumSq += newV*newV - oldV*oldV
	e.window.UpdateLast(newV)

	out.updateLastScalar(e.value())
}
