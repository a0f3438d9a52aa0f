package pkg

import (
	"encoding/binary"
	"math"
)

const (
	// Length prefix of a frame (in bytes)
	LenFrameSize = 4

	// Largest payload a single frame may carry (2 GiB - 1).
	MaxFrameSize = math.MaxInt32
)

// Encoding alias (frames are little-endian on disk)
var Encod = binary.LittleEndian
