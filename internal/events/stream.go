package events

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// maxLineBytes bounds a single encoded event; long tool output lines fit comfortably.
const maxLineBytes = 1 << 20

// envelope is the JSON-lines wire form of a Message.
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LineWriter publishes events as JSON lines, one envelope per line, so a host
// and a progress surface can run as separate processes.
type LineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewLineWriter returns a Publisher writing to w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{enc: json.NewEncoder(w)}
}

// Publish writes one envelope line.
func (lw *LineWriter) Publish(topic string, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.enc.Encode(envelope{Event: topic, Payload: raw})
}

// Pump reads JSON-line envelopes from r and republishes them in order until r
// is exhausted. Malformed lines are skipped. The context is checked between
// lines; a blocked read is not interrupted.
func Pump(ctx context.Context, r io.Reader, pub Publisher) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var env envelope
		if err := json.Unmarshal(line, &env); err != nil || env.Event == "" {
			logrus.Debugf("skipping malformed event line: %q", line)
			continue
		}
		if err := pub.Publish(env.Event, env.Payload); err != nil {
			return fmt.Errorf("publish %s: %w", env.Event, err)
		}
	}
	return sc.Err()
}
