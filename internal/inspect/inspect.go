package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/HdrHistogram/hdrhistogram-go"

	"dvsconv/internal/message"
	"dvsconv/internal/protocol"
	"dvsconv/internal/store"
	"dvsconv/pkg"
)

// Source is a frame file that knows its own size. store.File implements it.
type Source interface {
	ReadFrame() ([]byte, error)
	Rewind()
	Size() int64
	ValidSize() int64
}

// Report summarizes the frames of one file.
type Report struct {
	Frames     int
	Records    uint64
	Rising     uint64
	Falling    uint64
	Mismatches int

	FileSize  int64
	ValidSize int64
	Truncated bool // the last frame declares more bytes than the file holds

	PayloadP50  int64
	PayloadP99  int64
	PayloadMax  int64
	PayloadMean float64
}

/**
 * Scan walks every frame of src from the start.
 * A truncated last frame ends the scan and is flagged in the report; a frame
 * that cannot be parsed fails it. Counter mismatches are only counted.
 */
func Scan(src Source) (*Report, error) {
	src.Rewind()
	rep := &Report{
		FileSize:  src.Size(),
		ValidSize: src.ValidSize(),
	}
	his := hdrhistogram.New(1, pkg.MaxFrameSize, 3)

	var batch message.Batch
	for {
		payload, err := src.ReadFrame()
		if err == io.EOF {
			break
		}
		if errors.Is(err, protocol.ErrTruncatedFrame) {
			rep.Truncated = true
			break
		}
		if err != nil {
			return rep, fmt.Errorf("read frame %d: %w", rep.Frames+1, err)
		}

		if err := message.Unmarshal(payload, &batch); err != nil {
			return rep, fmt.Errorf("parse frame %d: %w", rep.Frames+1, err)
		}
		rep.Frames++
		rep.Records += uint64(batch.Len())
		rep.Rising += uint64(batch.RisingCount)
		rep.Falling += uint64(batch.FallingCount)
		if !batch.Consistent() {
			rep.Mismatches++
		}
		if err := his.RecordValue(int64(len(payload))); err != nil {
			return rep, err
		}
	}

	if his.TotalCount() > 0 {
		rep.PayloadP50 = his.ValueAtQuantile(50)
		rep.PayloadP99 = his.ValueAtQuantile(99)
		rep.PayloadMax = his.Max()
		rep.PayloadMean = his.Mean()
	}
	return rep, nil
}

// ScanFile maps path and scans it.
func ScanFile(ctx context.Context, path string) (*Report, error) {
	f, err := store.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Scan(f)
}
