package message

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"dvsconv/internal/event"
	"dvsconv/pkg"
)

/*
 * Payload layout (protobuf wire format):
 *
 *   FrameData   { 1: rising_count varint, 2: falling_count varint, 3: events repeated bytes }
 *   ChangeEvent { 1: time fixed64, 2: x varint, 3: y varint, 4: polarity zigzag varint }
 */
const (
	fieldRisingCount  protowire.Number = 1
	fieldFallingCount protowire.Number = 2
	fieldEvents       protowire.Number = 3
)

const (
	fieldTime     protowire.Number = 1
	fieldX        protowire.Number = 2
	fieldY        protowire.Number = 3
	fieldPolarity protowire.Number = 4
)

func eventSize(e *event.ChangeEvent) int {
	return protowire.SizeTag(fieldTime) + protowire.SizeFixed64() +
		protowire.SizeTag(fieldX) + protowire.SizeVarint(uint64(e.X)) +
		protowire.SizeTag(fieldY) + protowire.SizeVarint(uint64(e.Y)) +
		protowire.SizeTag(fieldPolarity) + protowire.SizeVarint(protowire.EncodeZigZag(int64(e.Polarity)))
}

// Size returns the exact number of bytes Marshal produces for the batch.
func (b *Batch) Size() int {
	size := protowire.SizeTag(fieldRisingCount) + protowire.SizeVarint(uint64(b.RisingCount)) +
		protowire.SizeTag(fieldFallingCount) + protowire.SizeVarint(uint64(b.FallingCount))
	for i := range b.Events {
		size += protowire.SizeTag(fieldEvents) + protowire.SizeBytes(eventSize(&b.Events[i]))
	}
	return size
}

// Marshaler serializes batches into a scratch buffer it owns.
// The buffer is truncated before every batch and only grows when needed.
type Marshaler struct {
	buf []byte
}

func NewMarshaler(sizeHint int) *Marshaler {
	return &Marshaler{buf: make([]byte, 0, sizeHint)}
}

func (m *Marshaler) Reset() {
	m.buf = m.buf[:0]
}

/**
 * Marshal encodes the batch and returns a view of the scratch buffer.
 * The returned slice is only valid until the next call to Marshal.
 */
func (m *Marshaler) Marshal(b *Batch) ([]byte, error) {
	m.Reset()

	size := b.Size()
	if size > pkg.MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes for %d events", ErrBatchTooLarge, size, b.Len())
	}
	if cap(m.buf) < size {
		m.buf = make([]byte, 0, size)
	}

	m.buf = protowire.AppendTag(m.buf, fieldRisingCount, protowire.VarintType)
	m.buf = protowire.AppendVarint(m.buf, uint64(b.RisingCount))
	m.buf = protowire.AppendTag(m.buf, fieldFallingCount, protowire.VarintType)
	m.buf = protowire.AppendVarint(m.buf, uint64(b.FallingCount))

	for i := range b.Events {
		e := &b.Events[i]
		m.buf = protowire.AppendTag(m.buf, fieldEvents, protowire.BytesType)
		m.buf = protowire.AppendVarint(m.buf, uint64(eventSize(e)))
		m.buf = appendEvent(m.buf, e)
	}

	return m.buf, nil
}

func appendEvent(buf []byte, e *event.ChangeEvent) []byte {
	buf = protowire.AppendTag(buf, fieldTime, protowire.Fixed64Type)
	buf = protowire.AppendFixed64(buf, math.Float64bits(e.Time))
	buf = protowire.AppendTag(buf, fieldX, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.X))
	buf = protowire.AppendTag(buf, fieldY, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.Y))
	buf = protowire.AppendTag(buf, fieldPolarity, protowire.VarintType)
	buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(int64(e.Polarity)))
	return buf
}

/**
 * Unmarshal parses a payload into b, replacing its contents.
 * Counters are taken from the payload as-is; use Consistent to check them.
 * Unknown fields are skipped.
 */
func Unmarshal(data []byte, b *Batch) error {
	b.Reset()

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return parseError(n)
		}
		data = data[n:]

		switch {
		case num == fieldRisingCount && typ == protowire.VarintType:
			v, m, err := consumeUint(data, math.MaxUint32)
			if err != nil {
				return err
			}
			b.RisingCount = uint32(v)
			n = m
		case num == fieldFallingCount && typ == protowire.VarintType:
			v, m, err := consumeUint(data, math.MaxUint32)
			if err != nil {
				return err
			}
			b.FallingCount = uint32(v)
			n = m
		case num == fieldEvents && typ == protowire.BytesType:
			raw, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return parseError(m)
			}
			e, err := unmarshalEvent(raw)
			if err != nil {
				return fmt.Errorf("event %d: %w", len(b.Events), err)
			}
			b.Events = append(b.Events, e)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return parseError(n)
			}
		}
		data = data[n:]
	}

	return nil
}

func unmarshalEvent(data []byte) (event.ChangeEvent, error) {
	var e event.ChangeEvent

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return e, parseError(n)
		}
		data = data[n:]

		switch {
		case num == fieldTime && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return e, parseError(m)
			}
			e.Time = math.Float64frombits(v)
			n = m
		case num == fieldX && typ == protowire.VarintType:
			v, m, err := consumeUint(data, math.MaxUint16)
			if err != nil {
				return e, err
			}
			e.X = uint16(v)
			n = m
		case num == fieldY && typ == protowire.VarintType:
			v, m, err := consumeUint(data, math.MaxUint16)
			if err != nil {
				return e, err
			}
			e.Y = uint16(v)
			n = m
		case num == fieldPolarity && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return e, parseError(m)
			}
			p := protowire.DecodeZigZag(v)
			if p < math.MinInt8 || p > math.MaxInt8 {
				return e, fmt.Errorf("%w: polarity %d out of range", ErrMalformedPayload, p)
			}
			e.Polarity = int8(p)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return e, parseError(n)
			}
		}
		data = data[n:]
	}

	return e, nil
}

// consumeUint reads a varint and rejects values above limit.
func consumeUint(data []byte, limit uint64) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, 0, parseError(n)
	}
	if v > limit {
		return 0, 0, fmt.Errorf("%w: value %d exceeds %d", ErrMalformedPayload, v, limit)
	}
	return v, n, nil
}

func parseError(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformedPayload, protowire.ParseError(n))
}
