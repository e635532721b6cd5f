package indicator

import (
	"math"

	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/types"
)

// emaExec is undefined through the warm-up window, seeds itself with the
// SMA of the first period samples, then recurses. The previous EMA lives in
// the output column, so a tail revision re-derives the top value from the
// output one bar back instead of the revised one. seen counts samples ever
// consumed; the buffer's len saturates at capacity and cannot serve here.
type emaExec struct {
	field   types.Field
	period  int
	alpha   float64
	seen    int
	initSum float64
}

func newEMAExec(field types.Field, period int) *emaExec {
	return &emaExec{
		field:  field,
		period: period,
		alpha:  2.0 / (float64(period) + 1.0),
	}
}

func (e *emaExec) kind() types.IndicatorKind {
	return types.IndicatorKindScalar
}

func (e *emaExec) onPush(bars *series.BarBuffer, _ []types.IndicatorValue, out *outputColumns) {
	if bars.IsEmpty() {
		out.pushScalar(math.NaN())
		return
	}

	price := bars.LastValue(e.field)
	e.seen++

	switch {
	case e.seen < e.period:
		e.initSum += price
		out.pushScalar(math.NaN())
	case e.seen == e.period:
		e.initSum += price
		out.pushScalar(e.initSum / float64(e.period))
	default:
		prev := out.scalarFromEnd(0, price)
		out.pushScalar(prev + e.alpha*(price-prev))
	}
}

func (e *emaExec) onUpdateLast(oldBar, newBar types.Bar, bars *series.BarBuffer, _ []types.IndicatorValue, out *outputColumns) {
	if bars.IsEmpty() {
		return
	}

	price := newBar.Value(e.field)

	switch {
	case e.seen < e.period:
		e.initSum += price - oldBar.Value(e.field)
		out.updateLastScalar(math.NaN())
	case e.seen == e.period:
		e.initSum += price - oldBar.Value(e.field)
		out.updateLastScalar(e.initSum / float64(e.period))
	default:
		prev := out.scalarFromEnd(1, price)
		out.updateLastScalar(prev + e.alpha*(price-prev))
	}
}
