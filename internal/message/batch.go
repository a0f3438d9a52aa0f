package message

import (
	"dvsconv/internal/event"
)

// Batch is the unit that becomes one frame on disk.
// RisingCount + FallingCount equals len(Events) when built with Add.
type Batch struct {
	RisingCount  uint32
	FallingCount uint32
	Events       []event.ChangeEvent
}

func NewBatch(capacity int) *Batch {
	return &Batch{
		Events: make([]event.ChangeEvent, 0, capacity),
	}
}

// Add appends an event and classifies its polarity.
func (b *Batch) Add(e event.ChangeEvent) {
	if e.Rising() {
		b.RisingCount++
	} else {
		b.FallingCount++
	}
	b.Events = append(b.Events, e)
}

func (b *Batch) Len() int {
	return len(b.Events)
}

// Reset clears counters and events, keeping the backing array.
func (b *Batch) Reset() {
	b.RisingCount = 0
	b.FallingCount = 0
	b.Events = b.Events[:0]
}

// Consistent reports whether the counters match the number of events.
func (b *Batch) Consistent() bool {
	return uint64(b.RisingCount)+uint64(b.FallingCount) == uint64(len(b.Events))
}
