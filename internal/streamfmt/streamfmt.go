// Package streamfmt implements the line-prefixed streaming format used
// between the chat endpoint and the widget. Each text fragment is written as
// one record: the prefix "0:" followed by the fragment as a JSON string and a
// trailing newline. JSON escaping keeps embedded quotes and newlines intact,
// so concatenating the decoded fragments reconstructs the model output
// exactly.
package streamfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// TextPrefix marks a text-fragment record.
const TextPrefix = "0:"

// Writer encodes text fragments onto an output stream, flushing after every
// record when the underlying writer supports it.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter wraps w. If w is an http.ResponseWriter that supports flushing,
// each record is pushed to the client immediately.
func NewWriter(w io.Writer) *Writer {
	sw := &Writer{w: w}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// WriteText writes one fragment record.
func (sw *Writer) WriteText(fragment string) error {
	payload, err := json.Marshal(fragment)
	if err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "%s%s\n", TextPrefix, payload); err != nil {
		return err
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// Decoder is the receiving side of the format. It is restartable and
// transport-independent: feed it byte slices as they arrive and it returns
// the fragments completed by each feed, buffering partial lines internally.
// Lines without the record prefix and records with malformed payloads are
// skipped, not treated as errors.
type Decoder struct {
	partial strings.Builder
}

// Feed consumes the next chunk of bytes and returns any fragments whose
// records were completed by it.
func (d *Decoder) Feed(p []byte) []string {
	var fragments []string

	data := d.partial.String() + string(p)
	d.partial.Reset()

	for {
		i := strings.IndexByte(data, '\n')
		if i < 0 {
			d.partial.WriteString(data)
			return fragments
		}
		line := data[:i]
		data = data[i+1:]

		if frag, ok := decodeLine(line); ok {
			fragments = append(fragments, frag)
		}
	}
}

// Close drains a trailing record that arrived without its newline. Call it
// once the transport reports EOF.
func (d *Decoder) Close() []string {
	line := d.partial.String()
	d.partial.Reset()
	if frag, ok := decodeLine(line); ok {
		return []string{frag}
	}
	return nil
}

func decodeLine(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, TextPrefix) {
		return "", false
	}
	var fragment string
	if err := json.Unmarshal([]byte(line[len(TextPrefix):]), &fragment); err != nil {
		return "", false
	}
	return fragment, true
}
