//nolint:testpackage // White-box tests require access to unexported identifiers in this package.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Publisher that keeps every message.
type recorder struct {
	msgs []Message
}

func (r *recorder) Publish(topic string, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	r.msgs = append(r.msgs, Message{Topic: topic, Payload: raw})
	return nil
}

func TestLineWriter_PumpRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	lw := NewLineWriter(&buf)
	require.NoError(t, lw.Publish(LogLine, "Step 1 done"))
	require.NoError(t, lw.Publish(LogLine, "Step 2 done"))
	require.NoError(t, lw.Publish(InstallComplete, Completion{OK: true, Alias: "myalias"}))

	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), `{"event":"log-line","payload":"Step 1 done"}`)

	rec := &recorder{}
	require.NoError(t, Pump(context.Background(), &buf, rec))
	require.Len(t, rec.msgs, 3)
	assert.Equal(t, "Step 1 done", DecodeLogLine(rec.msgs[0].Payload))
	assert.Equal(t, "Step 2 done", DecodeLogLine(rec.msgs[1].Payload))
	assert.Equal(t, InstallComplete, rec.msgs[2].Topic)
	assert.Equal(t, Completion{OK: true, Alias: "myalias"}, DecodeCompletion(rec.msgs[2].Payload))
}

func TestPump_SkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`not json`,
		``,
		`{"payload":"no event name"}`,
		`{"event":"log-line"}`,
		`{"event":"log-line","payload":null}`,
		`{"event":"log-line","payload":"kept"}`,
	}, "\n")

	rec := &recorder{}
	require.NoError(t, Pump(context.Background(), strings.NewReader(input), rec))

	require.Len(t, rec.msgs, 3)
	for _, m := range rec.msgs {
		assert.Equal(t, LogLine, m.Topic)
	}
	assert.Empty(t, DecodeLogLine(rec.msgs[0].Payload))
	assert.Empty(t, DecodeLogLine(rec.msgs[1].Payload))
	assert.Equal(t, "kept", DecodeLogLine(rec.msgs[2].Payload))
}

func TestPump_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	err := Pump(ctx, strings.NewReader(`{"event":"log-line","payload":"x"}`), rec)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.msgs)
}

func TestPump_PublishErrorStops(t *testing.T) {
	bus := NewBus()
	bus.Close()

	err := Pump(context.Background(), strings.NewReader(`{"event":"log-line","payload":"x"}`), bus)
	require.ErrorIs(t, err, ErrClosed)
}

func TestEncodePayload_PassesRawThrough(t *testing.T) {
	raw := json.RawMessage(`{"ok":true}`)
	got, err := encodePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}
