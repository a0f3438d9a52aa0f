package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"dvsconv/internal/config"
	"dvsconv/internal/event"
	"dvsconv/internal/log"
	"dvsconv/internal/message"
	"dvsconv/internal/metrics"
	"dvsconv/internal/protocol"
	"dvsconv/internal/record"
)

// upper bound on preallocated events for large batch sizes
const maxPreallocEvents = 64 * 1024

// RowSource yields events until io.EOF.
type RowSource interface {
	Next() (event.ChangeEvent, error)
}

type flusher interface {
	Flush() error
}

// Stats summarizes one encode or decode run.
type Stats struct {
	Records    int
	Chunks     int
	Bytes      int64
	Mismatches int
}

// Encoder groups events into batches and writes one frame per batch.
type Encoder struct {
	cfg       config.EncodeConfig
	batch     *message.Batch
	marshaler *message.Marshaler
}

func NewEncoder(cfg config.EncodeConfig) (*Encoder, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, cfg.BatchSize)
	}
	if cfg.OnBadRow == "" {
		cfg.OnBadRow = config.BadRowAbort
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prealloc := min(cfg.BatchSize, maxPreallocEvents)
	return &Encoder{
		cfg:       cfg,
		batch:     message.NewBatch(prealloc),
		marshaler: message.NewMarshaler(prealloc * 32),
	}, nil
}

/**
 * Encode drains src and writes frames to w.
 * A full batch is flushed as soon as it reaches BatchSize; whatever is left
 * when the source ends goes out as a final, smaller frame. No frame is
 * written for an empty batch.
 */
func (e *Encoder) Encode(ctx context.Context, src RowSource, w io.Writer) (Stats, error) {
	var st Stats
	e.batch.Reset()

	for {
		ev, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, record.ErrMalformedRow) {
				metrics.MalformedRowCounter.Inc()
			}
			if e.cfg.OnBadRow == config.BadRowStop {
				fields := map[string]interface{}{
					log.KeyError:   err,
					log.KeyRecords: st.Records,
				}
				var perr *record.ParseError
				if errors.As(err, &perr) {
					fields[log.KeyLine] = perr.Line
				}
				log.Warning(ctx, "row read failed, treating it as end of input", fields)
				break
			}
			return st, fmt.Errorf("read input: %w", err)
		}

		e.batch.Add(ev)
		st.Records++
		metrics.RecordsEncodedCounter.Inc()

		if e.batch.Len() >= e.cfg.BatchSize {
			if err := e.flush(ctx, w, &st); err != nil {
				return st, err
			}
		}
	}

	if e.batch.Len() > 0 {
		log.Debug(ctx, "flushing final chunk", map[string]interface{}{
			log.KeyRecords: e.batch.Len(),
		})
		if err := e.flush(ctx, w, &st); err != nil {
			return st, err
		}
	}

	return st, nil
}

func (e *Encoder) flush(ctx context.Context, w io.Writer, st *Stats) error {
	chunk := st.Chunks + 1

	payload, err := e.marshaler.Marshal(e.batch)
	if err != nil {
		return fmt.Errorf("serialize chunk %d: %w", chunk, err)
	}

	n, err := protocol.WriteFrame(w, payload)
	if err != nil {
		return fmt.Errorf("write chunk %d: %w", chunk, err)
	}
	if f, ok := w.(flusher); ok && e.cfg.FlushEachFrame {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush chunk %d: %w", chunk, err)
		}
	}

	log.Debug(ctx, "chunk written", map[string]interface{}{
		log.KeyChunk:        chunk,
		log.KeyRisingCount:  e.batch.RisingCount,
		log.KeyFallingCount: e.batch.FallingCount,
		log.KeyFrameSize:    len(payload),
	})

	st.Chunks = chunk
	st.Bytes += int64(n)
	metrics.FramesWrittenCounter.Inc()
	metrics.BytesWrittenCounter.Add(float64(n))
	metrics.FramePayloadBytes.WithLabelValues("write").Observe(float64(len(payload)))

	e.batch.Reset()
	return nil
}

// EncodeFile converts cfg.Input into cfg.Output.
func EncodeFile(ctx context.Context, cfg config.EncodeConfig) (Stats, error) {
	enc, err := NewEncoder(cfg)
	if err != nil {
		return Stats{}, err
	}
	ctx = log.WithFields(ctx, map[string]interface{}{log.KeyPath: cfg.Input})

	in, err := os.Open(cfg.Input)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(cfg.Output)
	if err != nil {
		return Stats{}, fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	bufSize := cfg.WriteBufferBytes
	if bufSize <= 0 {
		bufSize = config.DefaultWriteBufferBytes
	}
	w := bufio.NewWriterSize(out, bufSize)

	st, err := enc.Encode(ctx, record.NewReader(in), w)
	if err != nil {
		return st, err
	}
	if err := w.Flush(); err != nil {
		return st, fmt.Errorf("flush output: %w", err)
	}
	if err := out.Close(); err != nil {
		return st, fmt.Errorf("close output: %w", err)
	}

	log.Info(ctx, "encode finished", map[string]interface{}{
		"output":       cfg.Output,
		log.KeyRecords: st.Records,
		"chunks":       st.Chunks,
	})
	return st, nil
}
