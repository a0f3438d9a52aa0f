package record

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"dvsconv/internal/event"
)

const fieldsPerRow = 4

var errFieldCount = errors.New("expected 4 fields: time x y polarity")

// Reader yields one ChangeEvent per line of "time x y polarity".
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), 1024*1024)
	return &Reader{scanner: s}
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next event, io.EOF at end of input or a *ParseError.
func (r *Reader) Next() (event.ChangeEvent, error) {
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		return ParseRow(r.line, text)
	}
	if err := r.scanner.Err(); err != nil {
		return event.ChangeEvent{}, err
	}
	return event.ChangeEvent{}, io.EOF
}

// ParseRow parses a single row, e.g. "0.706715000 58 68 1".
func ParseRow(line int, text string) (event.ChangeEvent, error) {
	var e event.ChangeEvent

	fields := strings.Fields(text)
	if len(fields) != fieldsPerRow {
		return e, &ParseError{Line: line, Text: text, Err: errFieldCount}
	}

	t, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return e, fieldError(line, "time", text, err)
	}
	x, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return e, fieldError(line, "x", text, err)
	}
	y, err := strconv.ParseUint(fields[2], 10, 16)
	if err != nil {
		return e, fieldError(line, "y", text, err)
	}
	p, err := strconv.ParseInt(fields[3], 10, 8)
	if err != nil {
		return e, fieldError(line, "polarity", text, err)
	}

	e.Time = t
	e.X = uint16(x)
	e.Y = uint16(y)
	e.Polarity = int8(p)
	return e, nil
}

func fieldError(line int, field, text string, err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		err = numErr.Err
	}
	return &ParseError{Line: line, Field: field, Text: text, Err: err}
}
