package convert

import "errors"

var (
	ErrInvalidBatchSize = errors.New("batch size must be positive")
	ErrInvalidTimescale = errors.New("timescale must be positive")
)
