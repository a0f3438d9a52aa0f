package store

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dvsconv/internal/log"
	"dvsconv/internal/protocol"
)

func writeFrameFile(t *testing.T, payloads [][]byte, tail []byte) (string, int64) {
	t.Helper()

	var buf bytes.Buffer
	for _, p := range payloads {
		_, err := protocol.WriteFrame(&buf, p)
		require.NoError(t, err)
	}
	valid := int64(buf.Len())
	buf.Write(tail)

	path := filepath.Join(t.TempDir(), "events.dat")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path, valid
}

func TestFile_ReadFrame(t *testing.T) {
	payloads := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma-delta")}
	path, valid := writeFrameFile(t, payloads, nil)

	f, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, valid, f.Size())
	for _, want := range payloads {
		got, err := f.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = f.ReadFrame()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, valid, f.Offset())

	f.Rewind()
	got, err := f.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, payloads[0], got)
}

func TestFile_EmptyFile(t *testing.T) {
	path, _ := writeFrameFile(t, nil, nil)

	f, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer f.Close()

	assert.Zero(t, f.Size())
	assert.Zero(t, f.ValidSize())
	_, err = f.ReadFrame()
	assert.Equal(t, io.EOF, err)
}

func TestFile_ValidSize(t *testing.T) {
	payloads := [][]byte{[]byte("one"), []byte("two")}

	tests := []struct {
		name    string
		tail    []byte
		nextErr error
	}{
		{name: "clean", tail: nil, nextErr: io.EOF},
		{name: "torn prefix", tail: []byte{0x09, 0x00}, nextErr: io.EOF},
		{name: "zero padding", tail: make([]byte, 16), nextErr: io.EOF},
		{name: "truncated payload", tail: []byte{0x09, 0x00, 0x00, 0x00, 'a', 'b'}, nextErr: protocol.ErrTruncatedFrame},
		{name: "oversized prefix", tail: []byte{0x00, 0x00, 0x00, 0x80, 'a', 'b'}, nextErr: protocol.ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, valid := writeFrameFile(t, payloads, tt.tail)

			f, err := Open(context.Background(), path)
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, valid, f.ValidSize())
			assert.Equal(t, valid+int64(len(tt.tail)), f.Size())

			for range payloads {
				_, err := f.ReadFrame()
				require.NoError(t, err)
			}
			_, err = f.ReadFrame()
			assert.ErrorIs(t, err, tt.nextErr)
		})
	}
}

func TestFile_FrameTooLarge(t *testing.T) {
	path, _ := writeFrameFile(t, nil, []byte{0x00, 0x00, 0x00, 0x80})

	f, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.ReadFrame()
	assert.ErrorIs(t, err, protocol.ErrFrameTooLarge)
	assert.NotErrorIs(t, err, protocol.ErrTruncatedFrame)
	assert.Zero(t, f.ValidSize())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	r := protocol.NewReader(context.Background(), bytes.NewReader(data))
	_, err = r.ReadFrame()
	assert.ErrorIs(t, err, protocol.ErrFrameTooLarge)
}

func TestFile_LogsPath(t *testing.T) {
	var buf bytes.Buffer
	log.SetLogWriter(&buf)
	log.SetLevel("debug")
	t.Cleanup(func() {
		log.SetLogWriter(os.Stderr)
		log.SetLevel("info")
	})

	path, _ := writeFrameFile(t, [][]byte{[]byte("one")}, []byte{0x05, 0x00})

	f, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.ReadFrame()
	require.NoError(t, err)
	_, err = f.ReadFrame()
	assert.Equal(t, io.EOF, err)
	assert.Contains(t, buf.String(), "partial frame prefix")
	assert.Contains(t, buf.String(), path)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.dat"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
