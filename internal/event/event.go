package event

import "math"

// ChangeEvent is a single pixel change reported by the sensor.
type ChangeEvent struct {
	Time     float64 // seconds
	X        uint16
	Y        uint16
	Polarity int8
}

// Rising reports whether the event counts as a rising edge.
// Only two polarities are supported: anything not positive is falling.
func (e ChangeEvent) Rising() bool {
	return e.Polarity > 0
}

// SaeEvent is the decoded form of a ChangeEvent.
type SaeEvent struct {
	Row       uint16
	Col       uint16
	Polarity  uint8
	Timestamp uint32

	// NormDescriptor is reserved and always nil after decoding.
	NormDescriptor []float32
}

// Transform rebases and scales source times into integer timestamps.
type Transform struct {
	Timebase  float64 // seconds
	Timescale float64 // seconds per timestamp unit
}

// Timestamp converts a source time, truncating toward zero.
// Times before the timebase map to 0; times past the uint32 range saturate.
func (t Transform) Timestamp(sec float64) uint32 {
	v := (sec - t.Timebase) / t.Timescale
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(v)
}

// Apply maps a ChangeEvent to its SaeEvent. Row and column come from y and x.
func (t Transform) Apply(e ChangeEvent) SaeEvent {
	return SaeEvent{
		Row:       e.Y,
		Col:       e.X,
		Polarity:  uint8(e.Polarity),
		Timestamp: t.Timestamp(e.Time),
	}
}
