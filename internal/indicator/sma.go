package indicator

import (
	"math"

	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/types"
)

// smaExec maintains a rolling sum over its own copy of the last period
// samples. Owning the window keeps the evicted sample reachable even when
// the period equals the store capacity, and makes the tail revision a
// straight swap of the top sample's contribution.
type smaExec struct {
	field  types.Field
	period int
	sum    float64
	window *series.CircularColumn[float64]
}

func newSMAExec(field types.Field, period int) *smaExec {
	return &smaExec{
		field:  field,
		period: period,
		window: series.NewCircularColumn[float64](period),
	}
}

func (e *smaExec) kind() types.IndicatorKind {
	return types.IndicatorKindScalar
}

func (e *smaExec) value() float64 {
	if !e.window.IsFull() {
		return math.NaN()
	}

	return e.sum / float64(e.period)
}

func (e *smaExec) onPush(bars *series.BarBuffer, _ []types.IndicatorValue, out *outputColumns) {
	if bars.IsEmpty() {
		out.pushScalar(math.NaN())
		return
	}

	v := bars.LastValue(e.field)
	if e.window.IsFull() {
		removed, _ := e.window.Get(0)
		e.sum += v - removed
	} else {
		e.sum += v
	}
	e.window.Push(v)

	out.pushScalar(e.value())
}

func (e *smaExec) onUpdateLast(oldBar, newBar types.Bar, bars *series.BarBuffer, _ []types.IndicatorValue, out *outputColumns) {
	if bars.IsEmpty() {
		return
	}

	v := newBar.Value(e.field)
	e.sum += v - oldBar.Value(e.field)
	e.window.UpdateLast(v)

	out.updateLastScalar(e.value())
}
