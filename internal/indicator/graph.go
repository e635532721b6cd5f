package indicator

import (
	"math"

	"github.com/rxtech-lab/streamquant/internal/series"
	"github.com/rxtech-lab/streamquant/internal/types"
	"github.com/rxtech-lab/streamquant/pkg/errors"
)

// executor is the incremental-update algorithm behind one indicator node.
// onPush consumes the newly appended bar; onUpdateLast corrects the node's
// most recent output after the tail bar was revised in place. Both receive
// the last values of the node's dependencies, already updated this event.
type executor interface {
	kind() types.IndicatorKind
	onPush(bars *series.BarBuffer, deps []types.IndicatorValue, out *outputColumns)
	onUpdateLast(oldBar, newBar types.Bar, bars *series.BarBuffer, deps []types.IndicatorValue, out *outputColumns)
}

// outputColumns stores an indicator's output history in the same circular
// shape as the bar columns. Scalar indicators use a only.
type outputColumns struct {
	valueKind types.IndicatorKind
	a         *series.CircularColumn[float64]
	b         *series.CircularColumn[float64]
	c         *series.CircularColumn[float64]
}

func newOutputColumns(kind types.IndicatorKind, capacity int) *outputColumns {
	out := &outputColumns{
		valueKind: kind,
		a:         series.NewCircularColumn[float64](capacity),
	}
	if kind == types.IndicatorKindTriple {
		out.b = series.NewCircularColumn[float64](capacity)
		out.c = series.NewCircularColumn[float64](capacity)
	}

	return out
}

// lastValue returns the newest output, or a NaN-bearing sentinel of the
// right kind when nothing has been produced yet.
func (o *outputColumns) lastValue() types.IndicatorValue {
	if o.valueKind == types.IndicatorKindTriple {
		a, ok := o.a.GetFromEnd(0)
		if !ok {
			return types.Triple(math.NaN(), math.NaN(), math.NaN())
		}
		b, _ := o.b.GetFromEnd(0)
		c, _ := o.c.GetFromEnd(0)

		return types.Triple(a, b, c)
	}

	v, ok := o.a.GetFromEnd(0)
	if !ok {
		return types.Scalar(math.NaN())
	}

	return types.Scalar(v)
}

func (o *outputColumns) pushScalar(v float64) {
	o.a.Push(v)
}

func (o *outputColumns) updateLastScalar(v float64) {
	o.a.UpdateLast(v)
}

func (o *outputColumns) pushTriple(a, b, c float64) {
	o.a.Push(a)
	o.b.Push(b)
	o.c.Push(c)
}

func (o *outputColumns) updateLastTriple(a, b, c float64) {
	o.a.UpdateLast(a)
	o.b.UpdateLast(b)
	o.c.UpdateLast(c)
}

// scalarFromEnd reads the i-th newest scalar output, defaulting when absent.
func (o *outputColumns) scalarFromEnd(i int, def float64) float64 {
	v, ok := o.a.GetFromEnd(i)
	if !ok {
		return def
	}

	return v
}

// componentFromEnd reads the i-th newest value of one triple component
// (0=a, 1=b, 2=c), defaulting when absent.
func (o *outputColumns) componentFromEnd(component, i int, def float64) float64 {
	var col *series.CircularColumn[float64]
	switch component {
	case 0:
		col = o.a
	case 1:
		col = o.b
	case 2:
		col = o.c
	default:
		return def
	}

	v, ok := col.GetFromEnd(i)
	if !ok {
		return def
	}

	return v
}

type node struct {
	deps []int
	exec executor
	out  *outputColumns
}

// Graph is the indicator registry. Nodes are append-only, identified by
// monotonically assigned ids starting at 1, deduped by spec, and kept in
// insertion order, which is a valid topological order because composite
// indicators register their dependencies before themselves.
type Graph struct {
	capacity int
	nextID   int
	order    []int
	nodes    map[int]*node
	bySpec   map[Spec]int
}

// NewGraph creates an empty graph whose output columns share the bar store's
// capacity.
func NewGraph(capacity int) *Graph {
	return &Graph{
		capacity: capacity,
		nextID:   1,
		nodes:    make(map[int]*node),
		bySpec:   make(map[Spec]int),
	}
}

// Add registers an indicator and returns its stable id. Registering a spec
// identical to an existing one returns the existing id. Invalid parameters
// are rejected here, before any node is created.
func (g *Graph) Add(spec Spec) (int, error) {
	if id, ok := g.bySpec[spec]; ok {
		return id, nil
	}

	if err := spec.Validate(g.capacity); err != nil {
		return 0, err
	}

	// Register dependencies first so insertion order stays topological.
	var deps []int
	var exec executor
	switch spec.Kind {
	case SpecSMA:
		exec = newSMAExec(spec.Field, spec.Period)
	case SpecEMA:
		exec = newEMAExec(spec.Field, spec.Period)
	case SpecStdDev:
		exec = newStdDevExec(spec.Field, spec.Period)
	case SpecRSI:
		exec = newRSIExec(spec.Period, g.capacity)
	case SpecBoll:
		sma, err := g.Add(SMA(types.FieldClose, spec.Period))
		if err != nil {
			return 0, err
		}
		std, err := g.Add(StdDev(types.FieldClose, spec.Period))
		if err != nil {
			return 0, err
		}
		deps = []int{sma, std}
		exec = newBollExec(spec.K(), spec.Period)
	case SpecMACD:
		emaFast, err := g.Add(EMA(types.FieldClose, spec.Fast))
		if err != nil {
			return 0, err
		}
		emaSlow, err := g.Add(EMA(types.FieldClose, spec.Slow))
		if err != nil {
			return 0, err
		}
		deps = []int{emaFast, emaSlow}
		exec = newMACDExec(spec.Signal)
	}

	id := g.nextID
	g.nextID++
	g.nodes[id] = &node{
		deps: deps,
		exec: exec,
		out:  newOutputColumns(exec.kind(), g.capacity),
	}
	g.bySpec[spec] = id
	g.order = append(g.order, id)

	return id, nil
}

// LastValue returns the newest value of the indicator with the given id.
// Querying before warm-up yields a NaN-bearing value; querying an id that
// was never registered is an error.
func (g *Graph) LastValue(id int) (types.IndicatorValue, error) {
	n, ok := g.nodes[id]
	if !ok {
		return types.IndicatorValue{}, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator id %d not registered", id)
	}

	return n.out.lastValue(), nil
}

// Len returns the number of registered indicator nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

func (g *Graph) depValues(n *node) []types.IndicatorValue {
	if len(n.deps) == 0 {
		return nil
	}

	vals := make([]types.IndicatorValue, len(n.deps))
	for i, dep := range n.deps {
		vals[i] = g.nodes[dep].out.lastValue()
	}

	return vals
}

// OnPush advances every node for a newly appended bar, in topological order.
func (g *Graph) OnPush(bars *series.BarBuffer) {
	for _, id := range g.order {
		n := g.nodes[id]
		n.exec.onPush(bars, g.depValues(n), n.out)
	}
}

// OnUpdateLast replays every node's most recent output after the tail bar
// was revised: each node corrects its own top sample using the old and new
// bar, never treating the revision as a fresh append.
func (g *Graph) OnUpdateLast(oldBar, newBar types.Bar, bars *series.BarBuffer) {
	for _, id := range g.order {
		n := g.nodes[id]
		n.exec.onUpdateLast(oldBar, newBar, bars, g.depValues(n), n.out)
	}
}
