package store

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"dvsconv/internal/log"
	"dvsconv/internal/protocol"
	"dvsconv/pkg"
)

/**
 * File is a read-only, memory-mapped frame file.
 * Frames are handed out as slices of the mapping (zero-copy) and stay valid
 * until Close.
 */
type File struct {
	// log lines carry the path
	ctx  context.Context
	file *os.File
	data []byte // mmap'd data, nil for an empty file
	pos  int64  // position of the next frame
}

// Open maps path read-only. ctx scopes the file's log lines.
func Open(ctx context.Context, path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &File{
		ctx:  log.WithFields(ctx, map[string]interface{}{log.KeyPath: path}),
		file: f,
	}
	if fi.Size() == 0 {
		return s, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	s.data = data

	return s, nil
}

func (s *File) Name() string {
	return s.file.Name()
}

// Size returns the size of the file in bytes.
func (s *File) Size() int64 {
	return int64(len(s.data))
}

// ReadFrame returns the payload of the next frame, with the same end-of-stream
// rules as protocol.Reader.
func (s *File) ReadFrame() ([]byte, error) {
	size := int64(len(s.data))
	if s.pos+pkg.LenFrameSize > size {
		if s.pos < size {
			log.Debug(s.ctx, "partial frame prefix at end of file", map[string]interface{}{
				log.KeyOffset: s.pos,
			})
		}
		return nil, io.EOF
	}

	frameSize := int64(pkg.Encod.Uint32(s.data[s.pos:]))
	if frameSize == 0 {
		return nil, io.EOF
	}
	if frameSize > pkg.MaxFrameSize {
		return nil, fmt.Errorf("%w: declared %d bytes at offset %d", protocol.ErrFrameTooLarge, frameSize, s.pos)
	}

	start := s.pos + pkg.LenFrameSize
	end := start + frameSize
	if end > size {
		return nil, fmt.Errorf("%w: declared %d bytes at offset %d", protocol.ErrTruncatedFrame, frameSize, s.pos)
	}

	s.pos = end
	return s.data[start:end], nil
}

// Offset returns the position of the next frame.
func (s *File) Offset() int64 {
	return s.pos
}

// Rewind moves back to the first frame.
func (s *File) Rewind() {
	s.pos = 0
}

/**
 * ValidSize scans the file from the start and returns the offset just past
 * the last complete frame. A torn tail or zero padding ends the scan.
 */
func (s *File) ValidSize() int64 {
	var position int64
	size := int64(len(s.data))

	for position+pkg.LenFrameSize <= size {
		frameSize := int64(pkg.Encod.Uint32(s.data[position:]))
		if frameSize == 0 || frameSize > pkg.MaxFrameSize {
			break
		}
		if position+pkg.LenFrameSize+frameSize > size {
			break
		}
		position += pkg.LenFrameSize + frameSize
	}

	return position
}

func (s *File) Close() error {
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			return err
		}
		s.data = nil
	}
	return s.file.Close()
}
