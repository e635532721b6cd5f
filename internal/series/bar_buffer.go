package series

import (
	"math"

	"github.com/rxtech-lab/streamquant/internal/types"
)

// BarBuffer is a columnar (struct-of-arrays) ring buffer of bars. Each field
// lives in its own CircularColumn so indicators and readers can consume one
// column without touching the rest.
type BarBuffer struct {
	timestamps *CircularColumn[int64]
	columns    map[types.Field]*CircularColumn[float64]
}

// NewBarBuffer creates a bar buffer with the given fixed capacity.
func NewBarBuffer(capacity int) *BarBuffer {
	columns := make(map[types.Field]*CircularColumn[float64], len(types.AllFields))
	for _, f := range types.AllFields {
		columns[f] = NewCircularColumn[float64](capacity)
	}

	return &BarBuffer{
		timestamps: NewCircularColumn[int64](capacity),
		columns:    columns,
	}
}

// Capacity returns the fixed capacity.
func (b *BarBuffer) Capacity() int {
	return b.timestamps.Capacity()
}

// Len returns the current fill.
func (b *BarBuffer) Len() int {
	return b.timestamps.Len()
}

// IsEmpty reports whether no bars have been pushed yet.
func (b *BarBuffer) IsEmpty() bool {
	return b.Len() == 0
}

// Push appends a bar, evicting the oldest once at capacity.
func (b *BarBuffer) Push(bar types.Bar) {
	b.timestamps.Push(bar.Timestamp)
	for _, f := range types.AllFields {
		b.columns[f].Push(bar.Value(f))
	}
}

// UpdateLast replaces the most recent bar in place and returns the bar it
// replaced. Returns false if the buffer is empty.
func (b *BarBuffer) UpdateLast(bar types.Bar) (types.Bar, bool) {
	old, ok := b.Last()
	if !ok {
		return types.Bar{}, false
	}

	b.timestamps.UpdateLast(bar.Timestamp)
	for _, f := range types.AllFields {
		b.columns[f].UpdateLast(bar.Value(f))
	}

	return old, true
}

// Get returns the bar at logical index i (0 = oldest).
func (b *BarBuffer) Get(i int) (types.Bar, bool) {
	ts, ok := b.timestamps.Get(i)
	if !ok {
		return types.Bar{}, false
	}

	bar := types.Bar{Timestamp: ts}
	bar.Open, _ = b.columns[types.FieldOpen].Get(i)
	bar.High, _ = b.columns[types.FieldHigh].Get(i)
	bar.Low, _ = b.columns[types.FieldLow].Get(i)
	bar.Close, _ = b.columns[types.FieldClose].Get(i)
	bar.Volume, _ = b.columns[types.FieldVolume].Get(i)
	bar.BuyVolume, _ = b.columns[types.FieldBuyVolume].Get(i)

	return bar, true
}

// Last returns the most recent bar.
func (b *BarBuffer) Last() (types.Bar, bool) {
	if b.IsEmpty() {
		return types.Bar{}, false
	}

	return b.Get(b.Len() - 1)
}

// Value returns the value of one field at logical index i, or NaN when the
// index is out of range.
func (b *BarBuffer) Value(field types.Field, i int) float64 {
	v, ok := b.columns[field].Get(i)
	if !ok {
		return math.NaN()
	}

	return v
}

// ValueFromEnd returns the value of one field counted from the newest bar
// (0 = newest), or NaN when the index is out of range.
func (b *BarBuffer) ValueFromEnd(field types.Field, i int) float64 {
	v, ok := b.columns[field].GetFromEnd(i)
	if !ok {
		return math.NaN()
	}

	return v
}

// LastValue returns the newest value of one field, or NaN on an empty buffer.
func (b *BarBuffer) LastValue(field types.Field) float64 {
	return b.ValueFromEnd(field, 0)
}

// Column returns the read-only circular view of one field.
func (b *BarBuffer) Column(field types.Field) *CircularColumn[float64] {
	return b.columns[field]
}

// Timestamps returns the read-only circular view of the timestamp column.
func (b *BarBuffer) Timestamps() *CircularColumn[int64] {
	return b.timestamps
}
