package series

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type CircularColumnTestSuite struct {
	suite.Suite
}

func TestCircularColumnSuite(t *testing.T) {
	suite.Run(t, new(CircularColumnTestSuite))
}

func (suite *CircularColumnTestSuite) TestRingOverwriteOrderedIteration() {
	c := NewCircularColumn[int](3)
	c.Push(1)
	c.Push(2)
	c.Push(3)
	suite.Equal([]int{1, 2, 3}, c.ToSlice())

	c.Push(4)
	suite.Equal([]int{2, 3, 4}, c.ToSlice())
	suite.Equal(3, c.Len())
	suite.True(c.IsFull())

	c.Push(5)
	suite.Equal([]int{3, 4, 5}, c.ToSlice())
}

func (suite *CircularColumnTestSuite) TestUpdateLastUpdatesMostRecent() {
	c := NewCircularColumn[int](2)
	c.Push(10)
	c.Push(20)
	c.UpdateLast(21)
	suite.Equal([]int{10, 21}, c.ToSlice())

	c.Push(30)
	suite.Equal([]int{21, 30}, c.ToSlice())

	c.UpdateLast(31)
	suite.Equal([]int{21, 31}, c.ToSlice())
}

func (suite *CircularColumnTestSuite) TestUpdateLastOnEmptyIsNoop() {
	c := NewCircularColumn[float64](4)
	c.UpdateLast(1.5)
	suite.Equal(0, c.Len())
	suite.True(c.IsEmpty())
}

func (suite *CircularColumnTestSuite) TestGetFromEnd() {
	c := NewCircularColumn[int](3)
	c.Push(1)
	c.Push(2)
	c.Push(3)
	c.Push(4) // evicts 1

	v, ok := c.GetFromEnd(0)
	suite.True(ok)
	suite.Equal(4, v)

	v, ok = c.GetFromEnd(2)
	suite.True(ok)
	suite.Equal(2, v)

	_, ok = c.GetFromEnd(3)
	suite.False(ok)
}

func (suite *CircularColumnTestSuite) TestGetOutOfRange() {
	c := NewCircularColumn[int](2)
	c.Push(7)

	_, ok := c.Get(1)
	suite.False(ok)
	_, ok = c.Get(-1)
	suite.False(ok)
}

func (suite *CircularColumnTestSuite) TestRawPartsReconstruction() {
	c := NewCircularColumn[int](3)
	c.Push(1)
	c.Push(2)
	c.Push(3)
	c.Push(4) // wrap: head moves past the start

	data, capacity, length, head := c.RawParts()
	suite.Equal(3, capacity)
	suite.Equal(3, length)

	// Reconstruct logical order as [head-len .. head) mod capacity.
	start := (head + capacity - length) % capacity
	ordered := make([]int, 0, length)
	for i := 0; i < length; i++ {
		ordered = append(ordered, data[(start+i)%capacity])
	}
	suite.Equal([]int{2, 3, 4}, ordered)
}

func (suite *CircularColumnTestSuite) TestInvalidCapacityPanics() {
	suite.Panics(func() { NewCircularColumn[int](0) })
	suite.Panics(func() { NewCircularColumn[int](-1) })
}
