package message

import "errors"

var (
	ErrMalformedPayload = errors.New("malformed batch payload")
	ErrBatchTooLarge    = errors.New("batch exceeds the frame size ceiling")
)
