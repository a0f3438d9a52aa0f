package inspect

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dvsconv/internal/event"
	"dvsconv/internal/message"
	"dvsconv/internal/protocol"
	"dvsconv/internal/store"
)

func batchOf(n int) *message.Batch {
	b := message.NewBatch(n)
	for i := 0; i < n; i++ {
		p := int8(1)
		if i%2 == 1 {
			p = -1
		}
		b.Add(event.ChangeEvent{Time: float64(i), X: uint16(i), Y: uint16(i + 1), Polarity: p})
	}
	return b
}

func writeFile(t *testing.T, batches []*message.Batch, tail []byte) string {
	t.Helper()

	var buf bytes.Buffer
	m := message.NewMarshaler(0)
	for _, b := range batches {
		payload, err := m.Marshal(b)
		require.NoError(t, err)
		_, err = protocol.WriteFrame(&buf, payload)
		require.NoError(t, err)
	}
	buf.Write(tail)

	path := filepath.Join(t.TempDir(), "events.dat")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestScanFile(t *testing.T) {
	mismatched := batchOf(2)
	mismatched.RisingCount = 9

	batches := []*message.Batch{batchOf(1), batchOf(3), mismatched, batchOf(4)}
	path := writeFile(t, batches, nil)

	rep, err := ScanFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Frames)
	assert.Equal(t, uint64(10), rep.Records)
	assert.Equal(t, uint64(1+2+9+2), rep.Rising)
	assert.Equal(t, uint64(0+1+1+2), rep.Falling)
	assert.Equal(t, 1, rep.Mismatches)
	assert.False(t, rep.Truncated)
	assert.Equal(t, rep.FileSize, rep.ValidSize)

	assert.Equal(t, int64(batches[3].Size()), rep.PayloadMax)
	assert.Equal(t, int64(batches[2].Size()), rep.PayloadP50)
	assert.Equal(t, int64(batches[3].Size()), rep.PayloadP99)
	assert.Greater(t, rep.PayloadMean, float64(batches[0].Size()))
}

func TestScan_StartsFromFirstFrame(t *testing.T) {
	path := writeFile(t, []*message.Batch{batchOf(1), batchOf(2), batchOf(3)}, nil)

	f, err := store.Open(context.Background(), path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.ReadFrame()
	require.NoError(t, err)

	first, err := Scan(f)
	require.NoError(t, err)
	second, err := Scan(f)
	require.NoError(t, err)

	assert.Equal(t, 3, first.Frames)
	assert.Equal(t, uint64(6), first.Records)
	assert.Equal(t, first, second)
}

func TestScanFile_TruncatedTail(t *testing.T) {
	tail := []byte{0x20, 0x00, 0x00, 0x00, 0x01, 0x02}
	path := writeFile(t, []*message.Batch{batchOf(2), batchOf(2)}, tail)

	rep, err := ScanFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Frames)
	assert.True(t, rep.Truncated)
	assert.Equal(t, rep.FileSize-int64(len(tail)), rep.ValidSize)
}

func TestScanFile_Empty(t *testing.T) {
	path := writeFile(t, nil, nil)

	rep, err := ScanFile(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, rep.Frames)
	assert.Zero(t, rep.FileSize)
	assert.Zero(t, rep.PayloadMax)
}

func TestScanFile_MalformedFrame(t *testing.T) {
	var buf bytes.Buffer
	_, err := protocol.WriteFrame(&buf, []byte{0x1A, 0x05, 0x01})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bad.dat")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	_, err = ScanFile(context.Background(), path)
	assert.ErrorIs(t, err, message.ErrMalformedPayload)
}

func TestScanFile_Missing(t *testing.T) {
	_, err := ScanFile(context.Background(), filepath.Join(t.TempDir(), "missing.dat"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
