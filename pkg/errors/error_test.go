package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNew() {
	err := New(ErrCodeInvalidPeriod, "period must be positive")

	suite.Equal(ErrCodeInvalidPeriod, err.Code)
	suite.Equal("period must be positive", err.Message)
	suite.Nil(err.Cause)
	suite.Equal("[102] period must be positive", err.Error())
}

func (suite *ErrorTestSuite) TestNewf() {
	err := Newf(ErrCodeStrategyParse, "line %d: missing THEN", 3)

	suite.Equal(ErrCodeStrategyParse, err.Code)
	suite.Equal("line 3: missing THEN", err.Message)
}

func (suite *ErrorTestSuite) TestWrap() {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrCodeReportWrite, "failed to insert signal", cause)

	suite.Equal(ErrCodeReportWrite, err.Code)
	suite.Equal(cause, err.Unwrap())
	suite.Contains(err.Error(), "disk full")
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeEmptyStore, "no bars")

	suite.Equal(ErrCodeEmptyStore, GetCode(err))
	suite.Equal(ErrCodeUnknown, GetCode(fmt.Errorf("plain error")))
}

func (suite *ErrorTestSuite) TestHasCode() {
	inner := New(ErrCodeInvalidCapacity, "capacity must be > 0")
	outer := Wrap(ErrCodeInvalidConfig, "bad engine config", inner)

	suite.True(HasCode(outer, ErrCodeInvalidConfig))
	suite.False(HasCode(outer, ErrCodeInvalidPeriod))
}

func (suite *ErrorTestSuite) TestIsAndAs() {
	inner := New(ErrCodeInvalidMargin, "margin must be positive")
	wrapped := Wrap(ErrCodeBacktestParams, "bad params", inner)

	var target *Error
	suite.True(As(wrapped, &target))
	suite.Equal(ErrCodeBacktestParams, target.Code)
	suite.True(Is(wrapped, wrapped))
}
