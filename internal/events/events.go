// Package events carries host notifications (log lines and the single install
// completion) to the progress surface over named, ordered topics.
package events

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// Topics used by an install session.
const (
	LogLine         = "log-line"
	InstallComplete = "install-complete"
)

// Completion is the terminal install-complete payload.
type Completion struct {
	OK    bool   `json:"ok"`
	Code  int    `json:"code"`
	Alias string `json:"alias"`
}

// Message is one delivery on a topic.
type Message struct {
	Topic   string
	Payload json.RawMessage
}

// Handler is invoked once per message, in delivery order, by a single consumer.
type Handler func(payload json.RawMessage)

// Subscriber registers handlers on named topics. When Subscribe returns nil the
// subscription is live and no later message on the topic is missed.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, h Handler) error
}

// Publisher delivers a payload to every subscriber of topic.
type Publisher interface {
	Publish(topic string, payload any) error
}

// DecodeLogLine returns the text of a log-line payload. Absent, null or
// non-string payloads decode to the empty line.
func DecodeLogLine(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		logrus.Debugf("log-line payload is not a string: %v", err)
		return ""
	}
	return s
}

// DecodeCompletion returns the completion record as received. Missing or
// mistyped fields keep their zero values; nothing is validated.
func DecodeCompletion(raw json.RawMessage) Completion {
	var c Completion
	if len(raw) == 0 {
		return c
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		logrus.Debugf("install-complete payload partially decoded: %v", err)
	}
	return c
}

// encodePayload marshals payload unless it is already raw JSON.
func encodePayload(payload any) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(payload)
}
