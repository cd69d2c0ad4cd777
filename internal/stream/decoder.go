// Package stream decodes the completion endpoint's chunked reply into a
// single answer string. The body is a sequence of lines prefixed "data: ",
// each carrying a JSON fragment with a "content" field, but chunk
// boundaries are arbitrary and may fall mid-line or mid-object.
package stream

import (
	"encoding/json"
	"io"
	"strings"
)

const dataPrefix = "data: "

const chunkSize = 1024

// Decoder accumulates answer text from raw body chunks. Feed chunks with
// Write in arrival order, then call Answer once the stream ends. The zero
// value is not usable; call NewDecoder.
type Decoder struct {
	carry   string
	answer  strings.Builder
	flushed bool
}

// NewDecoder returns an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write consumes one raw chunk. Complete lines are processed immediately;
// the trailing partial line is carried over to the next chunk. Write never
// fails; it implements io.Writer so a response body can be copied in.
func (d *Decoder) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	d.carry += string(p)
	lines := strings.Split(d.carry, "\n")
	for _, line := range lines[:len(lines)-1] {
		d.consume(line)
	}
	d.carry = lines[len(lines)-1]
	return len(p), nil
}

// consume processes one complete line. Lines without the data prefix are
// ignored. Malformed JSON is skipped rather than treated as an error: a
// line that straddled a chunk boundary inside a quoted string parses fine
// once reassembled, but server keep-alives and blank lines never will.
func (d *Decoder) consume(line string) {
	if strings.TrimSpace(line) == "" || !strings.HasPrefix(line, dataPrefix) {
		return
	}

	var fragment struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(line[len(dataPrefix):]), &fragment); err != nil {
		return
	}
	if fragment.Content != nil {
		d.answer.WriteString(*fragment.Content)
	}
}

// Answer flushes the remaining carry-over through the line processor and
// returns the accumulated text with surrounding double quotes trimmed.
// Safe to call more than once; the flush happens on the first call.
func (d *Decoder) Answer() string {
	if !d.flushed {
		d.consume(d.carry)
		d.carry = ""
		d.flushed = true
	}
	return strings.Trim(d.answer.String(), `"`)
}

// ReadAll drains r through a decoder in fixed-size chunks and returns the
// final answer. A read error is returned together with whatever answer was
// accumulated before it.
func ReadAll(r io.Reader) (string, error) {
	d := NewDecoder()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			d.Write(buf[:n])
		}
		if err == io.EOF {
			return d.Answer(), nil
		}
		if err != nil {
			return d.Answer(), err
		}
	}
}
