package log

const (
	KeyError = "error"

	KeyPath         = "path"
	KeyChunk        = "chunk"
	KeyLine         = "line"
	KeyRecords      = "records"
	KeyRisingCount  = "rising_count"
	KeyFallingCount = "falling_count"
	KeyFrameSize    = "frame_size"
	KeyOffset       = "offset"
)
