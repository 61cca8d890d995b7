package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const maxFrameBytes = 1024 * 1024

// ErrTruncated means the body ended before the completion marker.
var ErrTruncated = errors.New("stream ended before completion marker")

// Reader decodes SSE frames produced by Writer.
type Reader struct {
	scanner *bufio.Scanner
	done    bool
}

func NewReader(source io.Reader) *Reader {
	scanner := bufio.NewScanner(source)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)
	return &Reader{scanner: scanner}
}

// Next returns the next fragment. It returns io.EOF once the completion marker
// was read and ErrTruncated if the body ends without one.
func (r *Reader) Next() (Fragment, error) {
	if r.done {
		return Fragment{}, io.EOF
	}

	data, err := r.nextData()
	if err != nil {
		return Fragment{}, err
	}
	if data == doneMarker {
		r.done = true
		return Fragment{}, io.EOF
	}

	var f Fragment
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return Fragment{}, fmt.Errorf("decode stream fragment: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Fragment{}, err
	}
	return f, nil
}

// nextData collects the data lines of one event, skipping comments and blank
// keep-alives.
func (r *Reader) nextData() (string, error) {
	var lines []string
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" {
			if len(lines) > 0 {
				return strings.Join(lines, "\n"), nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// event:, id: and retry: fields carry nothing for this protocol.
			continue
		}
		lines = append(lines, strings.TrimPrefix(data, " "))
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), nil
	}
	return "", ErrTruncated
}
