package engine

import (
	"github.com/rxtech-lab/streamquant/internal/types"
)

// SignalQueue buffers strategy signals in emission order until a caller
// drains them. Each signal is delivered at most once.
type SignalQueue struct {
	signals []types.Signal
}

// NewSignalQueue creates an empty queue.
func NewSignalQueue() *SignalQueue {
	return &SignalQueue{}
}

// Len returns the number of signals waiting to be drained.
func (q *SignalQueue) Len() int {
	return len(q.signals)
}

// Push appends a signal to the queue.
func (q *SignalQueue) Push(signal types.Signal) {
	q.signals = append(q.signals, signal)
}

// Poll removes and returns up to max signals in FIFO order, i.e.
// min(max, Len()) signals. max <= 0 returns nothing. An empty drain
// returns nil.
func (q *SignalQueue) Poll(max int) []types.Signal {
	if max <= 0 || len(q.signals) == 0 {
		return nil
	}

	n := len(q.signals)
	if max < n {
		n = max
	}

	out := make([]types.Signal, n)
	copy(out, q.signals[:n])
	q.signals = q.signals[n:]

	return out
}

// PollAll removes and returns every pending signal in FIFO order. An empty
// queue returns nil.
func (q *SignalQueue) PollAll() []types.Signal {
	return q.Poll(len(q.signals))
}
