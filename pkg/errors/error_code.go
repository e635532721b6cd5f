package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter ErrorCode = 100
	ErrCodeInvalidCapacity  ErrorCode = 101
	ErrCodeInvalidPeriod    ErrorCode = 102
	ErrCodeInvalidField     ErrorCode = 103
	ErrCodeInvalidPrice     ErrorCode = 104
	ErrCodeInvalidMargin    ErrorCode = 105
	ErrCodeInvalidConfig    ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeEmptyStore      ErrorCode = 200
	ErrCodeDataParse       ErrorCode = 201
	ErrCodeDataUnavailable ErrorCode = 202

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound ErrorCode = 300

	// Strategy errors (400-499)
	ErrCodeStrategyParse    ErrorCode = 400
	ErrCodeStrategyEmpty    ErrorCode = 401
	ErrCodeStrategyNotFound ErrorCode = 402

	// Backtest errors (600-699)
	ErrCodeBacktestParams ErrorCode = 600

	// Feed/report errors (700-799)
	ErrCodeFeedConfig  ErrorCode = 700
	ErrCodeFeedStream  ErrorCode = 701
	ErrCodeReportWrite ErrorCode = 702
)
