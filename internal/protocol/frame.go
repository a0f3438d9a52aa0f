package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"

	"dvsconv/internal/log"
	"dvsconv/pkg"
)

// Frame layout: [Size(4, LE)] + [Payload(Size)]

// WriteFrame writes the length prefix followed by the payload.
// It returns the number of bytes written, prefix included.
func WriteFrame(w io.Writer, payload []byte) (int, error) {
	if len(payload) == 0 {
		return 0, ErrEmptyFrame
	}
	if len(payload) > pkg.MaxFrameSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	var sizeBuf [pkg.LenFrameSize]byte
	pkg.Encod.PutUint32(sizeBuf[:], uint32(len(payload)))

	n, err := w.Write(sizeBuf[:])
	if err != nil {
		return n, err
	}

	m, err := w.Write(payload)
	return n + m, err
}

// Reader pulls frames one at a time from a byte stream.
type Reader struct {
	ctx    context.Context
	r      io.Reader
	bufPtr *[]byte
	offset int64 // stream position of the next frame
}

// NewReader reads frames from r. ctx only scopes the reader's log lines.
func NewReader(ctx context.Context, r io.Reader) *Reader {
	return &Reader{ctx: ctx, r: r}
}

// Offset returns the stream position just past the last frame read.
func (fr *Reader) Offset() int64 {
	return fr.offset
}

/**
 * ReadFrame returns the next payload. The slice is reused by the next call.
 *
 * io.EOF is returned at a clean end of stream, on a zero length prefix and on a
 * partial length prefix (a torn tail). A payload shorter than its declared
 * length yields ErrTruncatedFrame.
 */
func (fr *Reader) ReadFrame() ([]byte, error) {
	var sizeBuf [pkg.LenFrameSize]byte
	n, err := io.ReadFull(fr.r, sizeBuf[:])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			log.Debug(fr.ctx, "partial frame prefix at end of stream", map[string]interface{}{
				log.KeyOffset: fr.offset,
				"bytes":       n,
			})
			return nil, io.EOF
		}
		return nil, err
	}

	size := pkg.Encod.Uint32(sizeBuf[:])
	if size == 0 {
		return nil, io.EOF
	}
	if size > pkg.MaxFrameSize {
		return nil, fmt.Errorf("%w: declared %d bytes at offset %d", ErrFrameTooLarge, size, fr.offset)
	}

	payload := fr.buffer(int(size))
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: declared %d bytes at offset %d", ErrTruncatedFrame, size, fr.offset)
		}
		return nil, err
	}

	fr.offset += pkg.LenFrameSize + int64(size)
	return payload, nil
}

func (fr *Reader) buffer(size int) []byte {
	if fr.bufPtr != nil && cap(*fr.bufPtr) >= size {
		*fr.bufPtr = (*fr.bufPtr)[:size]
		return *fr.bufPtr
	}
	if fr.bufPtr != nil {
		PutBuffer(fr.bufPtr)
	}
	fr.bufPtr = GetBufferWithCapacity(fr.ctx, size)
	return *fr.bufPtr
}

// Release returns the frame buffer to the pool. The reader stays usable.
func (fr *Reader) Release() {
	if fr.bufPtr != nil {
		PutBuffer(fr.bufPtr)
		fr.bufPtr = nil
	}
}
