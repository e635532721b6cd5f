package indicator

import (
	"math"

	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/types"
)

// bollExec derives Bollinger bands from its SMA and StdDev dependencies,
// which the graph updates first. Output order is (mid, upper, lower).
type bollExec struct {
	k float64
}

func newBollExec(k float64, _ int) *bollExec {
	return &bollExec{k: k}
}

func (e *bollExec) kind() types.IndicatorKind {
	return types.IndicatorKindTriple
}

func (e *bollExec) bands(deps []types.IndicatorValue) (mid, upper, lower float64) {
	mid = math.NaN()
	std := math.NaN()
	if len(deps) == 2 {
		mid = deps[0].A
		std = deps[1].A
	}

	return mid, mid + e.k*std, mid - e.k*std
}

func (e *bollExec) onPush(_ *series.BarBuffer, deps []types.IndicatorValue, out *outputColumns) {
	out.pushTriple(e.bands(deps))
}

func (e *bollExec) onUpdateLast(_, _ types.Bar, _ *series.BarBuffer, deps []types.IndicatorValue, out *outputColumns) {
	out.updateLastTriple(e.bands(deps))
}
