package stream

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
)

// maxLineSize bounds a single SSE line.
const maxLineSize = 1024 * 1024

// Decoder reads Frames from an SSE byte stream.
type Decoder struct {
	scanner *bufio.Scanner
	lastID  string
	retry   int
	// skipLF is set after a line ended in CR, whose LF may arrive in the
	// next read.
	skipLF bool
}

// NewDecoder returns a Decoder reading from r. Lines may end in CRLF, a
// lone LF or a lone CR.
func NewDecoder(r io.Reader) *Decoder {
	d := &Decoder{}
	d.scanner = bufio.NewScanner(r)
	d.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	d.scanner.Split(d.splitLines)
	return d
}

// splitLines is a bufio.SplitFunc for SSE line endings. A CR ends its line
// straight away so a frame is not held back waiting to see whether LF
// follows.
func (d *Decoder) splitLines(data []byte, atEOF bool) (int, []byte, error) {
	if d.skipLF && len(data) > 0 {
		d.skipLF = false
		if data[0] == '\n' {
			return 1, nil, nil
		}
	}
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
			} else {
				d.skipLF = true
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Decode returns the next dispatched frame. It returns io.EOF when the
// stream ends cleanly; a partially received frame at EOF is discarded.
//
// The last seen id persists across frames, so a frame without an id field
// carries the previous one, as an EventSource's lastEventId does.
func (d *Decoder) Decode() (*Frame, error) {
	var (
		data    []string
		hasData bool
		frame   = Frame{}
	)

	for d.scanner.Scan() {
		line := d.scanner.Text()

		if line == "" {
			if !hasData {
				// Nothing to dispatch; the event name is reset too.
				frame = Frame{}
				continue
			}
			frame.ID = d.lastID
			frame.Data = strings.Join(data, "\n")
			return &frame, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			frame.Event = value
		case "data":
			data = append(data, value)
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 && isDigits(value) {
				frame.Retry = n
				d.retry = n
			}
		}
	}

	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// LastID returns the most recent event id seen on the stream.
func (d *Decoder) LastID() string {
	return d.lastID
}

// Retry returns the most recent reconnection time in milliseconds, 0 if the
// server never sent one.
func (d *Decoder) Retry() int {
	return d.retry
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
