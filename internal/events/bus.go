package events

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

const queueSize = 256

// Bus is an in-process Subscriber and Publisher. Every subscription owns its
// own FIFO queue drained by one goroutine, so handlers for a topic never run
// concurrently with each other and see messages in publish order.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscription
	closed bool
	wg     sync.WaitGroup
}

type subscription struct {
	queue   chan Message
	handler Handler
}

// NewBus returns an open bus with no subscriptions.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]*subscription)}
}

// Subscribe registers h on topic. The context only bounds registration; a
// subscription lives until the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string, h Handler) error {
	if topic == "" || h == nil {
		return SubscriptionError{Topic: topic, Err: ErrInvalidSubscription}
	}
	if err := ctx.Err(); err != nil {
		return SubscriptionError{Topic: topic, Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return SubscriptionError{Topic: topic, Err: ErrClosed}
	}
	s := &subscription{queue: make(chan Message, queueSize), handler: h}
	b.subs[topic] = append(b.subs[topic], s)
	b.wg.Add(1)
	go s.drain(&b.wg)
	logrus.Debugf("subscribed to %s", topic)
	return nil
}

// Publish enqueues payload for every subscriber of topic. Messages on topics
// nobody subscribed to are dropped. Publish blocks while a queue is full.
func (b *Bus) Publish(topic string, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, s := range b.subs[topic] {
		s.queue <- Message{Topic: topic, Payload: raw}
	}
	return nil
}

// Close stops accepting messages and waits until every queued message has
// been handled.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, s := range subs {
			close(s.queue)
		}
	}
	b.mu.Unlock()
	b.wg.Wait()
}

func (s *subscription) drain(wg *sync.WaitGroup) {
	defer wg.Done()
	for msg := range s.queue {
		s.handler(msg.Payload)
	}
}
