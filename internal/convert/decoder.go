package convert

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"dvsconv/internal/config"
	"dvsconv/internal/event"
	"dvsconv/internal/log"
	"dvsconv/internal/message"
	"dvsconv/internal/metrics"
	"dvsconv/internal/protocol"
	"dvsconv/internal/store"
	"dvsconv/pkg"
)

// FrameSource yields one frame payload per call and io.EOF at end of stream.
// Both protocol.Reader and store.File satisfy it.
type FrameSource interface {
	ReadFrame() ([]byte, error)
}

// Decoder turns frames back into SaeEvents, one frame per Next call.
type Decoder struct {
	ctx       context.Context
	src       FrameSource
	release   func()
	transform event.Transform
	batch     message.Batch

	frames     int
	records    int
	bytes      int64
	mismatches int
}

// NewDecoder reads frames from a byte stream. ctx scopes the decoder's log
// lines.
func NewDecoder(ctx context.Context, r io.Reader, timebase, timescale float64) (*Decoder, error) {
	fr := protocol.NewReader(ctx, r)
	d, err := NewFrameDecoder(ctx, fr, event.Transform{Timebase: timebase, Timescale: timescale})
	if err != nil {
		return nil, err
	}
	d.release = fr.Release
	return d, nil
}

func NewFrameDecoder(ctx context.Context, src FrameSource, t event.Transform) (*Decoder, error) {
	if !(t.Timescale > 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimescale, t.Timescale)
	}
	return &Decoder{ctx: ctx, src: src, transform: t}, nil
}

/**
 * Next decodes the next frame.
 *
 * io.EOF is returned unwrapped once the stream is exhausted, and again on
 * every later call. Any other error means the stream cannot be trusted past
 * this point. A frame whose counters disagree with its event count is still
 * returned; the mismatch is logged and counted.
 */
func (d *Decoder) Next() ([]event.SaeEvent, error) {
	payload, err := d.src.ReadFrame()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read chunk %d: %w", d.frames+1, err)
	}
	chunk := d.frames + 1

	if err := message.Unmarshal(payload, &d.batch); err != nil {
		return nil, fmt.Errorf("parse chunk %d: %w", chunk, err)
	}
	d.frames = chunk
	d.records += d.batch.Len()
	d.bytes += pkg.LenFrameSize + int64(len(payload))

	metrics.FramesDecodedCounter.Inc()
	metrics.RecordsDecodedCounter.Add(float64(d.batch.Len()))
	metrics.FramePayloadBytes.WithLabelValues("read").Observe(float64(len(payload)))

	if !d.batch.Consistent() {
		d.mismatches++
		metrics.CountMismatchCounter.Inc()
		log.Warning(d.ctx, "chunk counters do not match its events", map[string]interface{}{
			log.KeyChunk:        chunk,
			log.KeyRisingCount:  d.batch.RisingCount,
			log.KeyFallingCount: d.batch.FallingCount,
			log.KeyRecords:      d.batch.Len(),
		})
	}

	out := make([]event.SaeEvent, d.batch.Len())
	for i, e := range d.batch.Events {
		out[i] = d.transform.Apply(e)
	}
	return out, nil
}

// Frames returns the number of frames decoded so far.
func (d *Decoder) Frames() int {
	return d.frames
}

// Mismatches returns the number of frames with inconsistent counters.
func (d *Decoder) Mismatches() int {
	return d.mismatches
}

func (d *Decoder) Stats() Stats {
	return Stats{
		Records:    d.records,
		Chunks:     d.frames,
		Bytes:      d.bytes,
		Mismatches: d.mismatches,
	}
}

// DecodeAll calls visit for every frame until the stream ends.
// An error from visit stops the loop and is returned as-is.
func (d *Decoder) DecodeAll(visit func(chunk int, events []event.SaeEvent) error) error {
	for {
		events, err := d.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := visit(d.frames, events); err != nil {
			return err
		}
	}
}

// Close releases the frame buffer. It does not close the underlying reader.
func (d *Decoder) Close() {
	if d.release != nil {
		d.release()
		d.release = nil
	}
}

// DecodeFile decodes cfg.Input, streaming it or, with cfg.Mmap, through a
// memory mapping.
func DecodeFile(ctx context.Context, cfg config.DecodeConfig, visit func(chunk int, events []event.SaeEvent) error) (Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Stats{}, err
	}
	t := event.Transform{Timebase: cfg.Timebase, Timescale: cfg.Timescale}
	ctx = log.WithFields(ctx, map[string]interface{}{log.KeyPath: cfg.Input})

	var d *Decoder
	if cfg.Mmap {
		f, err := store.Open(ctx, cfg.Input)
		if err != nil {
			return Stats{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()

		if d, err = NewFrameDecoder(ctx, f, t); err != nil {
			return Stats{}, err
		}
	} else {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return Stats{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()

		if d, err = NewDecoder(ctx, bufio.NewReader(f), t.Timebase, t.Timescale); err != nil {
			return Stats{}, err
		}
	}
	defer d.Close()

	err := d.DecodeAll(visit)
	st := d.Stats()
	if err != nil {
		return st, err
	}

	log.Info(ctx, "decode finished", map[string]interface{}{
		log.KeyRecords: st.Records,
		"chunks":       st.Chunks,
		"mismatches":   st.Mismatches,
	})
	return st, nil
}
