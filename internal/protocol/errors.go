package protocol

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrEmptyFrame    = errors.New("empty frame")
	ErrFrameTooLarge = errors.New("frame exceeds the size ceiling")

	// ErrTruncatedFrame means the stream ended inside a frame payload.
	ErrTruncatedFrame = fmt.Errorf("truncated frame: %w", io.ErrUnexpectedEOF)
)
