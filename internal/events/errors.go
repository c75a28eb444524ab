package events

import (
	"errors"
	"fmt"
)

// Sentinel errors for bus and subscription failures.
var (
	ErrClosed              = errors.New("event bus closed")
	ErrInvalidSubscription = errors.New("invalid subscription")
)

// SubscriptionError reports that a topic could not be registered. The session
// cannot learn about progress without it; nothing retries.
type SubscriptionError struct {
	Topic string
	Err   error
}

func (e SubscriptionError) Error() string {
	return fmt.Sprintf("subscribe %q: %v", e.Topic, e.Err)
}

func (e SubscriptionError) Unwrap() error { return e.Err }
