// Package messagingtest provides an in-memory, single-partition broker that
// satisfies messaging.Reader and messaging.Writer for tests.
package messagingtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrClosed = errors.New("messagingtest: closed")

type Broker struct {
	mu        sync.Mutex
	topics    map[string][]kafka.Message
	committed map[string]int64
	changed   chan struct{}
}

func NewBroker() *Broker {
	return &Broker{
		topics:    make(map[string][]kafka.Message),
		committed: make(map[string]int64),
		changed:   make(chan struct{}),
	}
}

func groupKey(group, topic string) string {
	return group + "/" + topic
}

// Append stores msgs and wakes blocked readers.
func (b *Broker) Append(msgs ...kafka.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range msgs {
		m.Offset = int64(len(b.topics[m.Topic]))
		m.Partition = 0
		if m.Time.IsZero() {
			m.Time = time.Now().UTC()
		}
		b.topics[m.Topic] = append(b.topics[m.Topic], m)
	}
	close(b.changed)
	b.changed = make(chan struct{})
}

// Messages returns a copy of everything written to topic.
func (b *Broker) Messages(topic string) []kafka.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]kafka.Message, len(b.topics[topic]))
	copy(out, b.topics[topic])
	return out
}

// Committed returns the next offset group will read from topic.
func (b *Broker) Committed(group, topic string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.committed[groupKey(group, topic)]
}

func (b *Broker) Writer() *Writer {
	return &Writer{broker: b}
}

// Reader starts at the group's committed offset, like a restarted consumer.
func (b *Broker) Reader(topic, group string) *Reader {
	return &Reader{
		broker: b,
		topic:  topic,
		group:  group,
		pos:    b.Committed(group, topic),
	}
}

type Writer struct {
	broker *Broker

	mu       sync.Mutex
	failures []error
	closed   bool
	writes   int
}

// FailNext makes the next len(errs) WriteMessages calls return errs in order.
func (w *Writer) FailNext(errs ...error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures = append(w.failures, errs...)
}

// Writes counts WriteMessages calls, failed ones included.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	w.writes++
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if len(w.failures) > 0 {
		err := w.failures[0]
		w.failures = w.failures[1:]
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	w.broker.Append(msgs...)
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

type Reader struct {
	broker *Broker
	topic  string
	group  string

	mu        sync.Mutex
	pos       int64
	closed    bool
	commitErr error
}

// FailCommits makes every following CommitMessages call return err.
func (r *Reader) FailCommits(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitErr = err
}

func (r *Reader) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Reader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return kafka.Message{}, ErrClosed
		}
		pos := r.pos
		r.mu.Unlock()

		r.broker.mu.Lock()
		msgs := r.broker.topics[r.topic]
		changed := r.broker.changed
		if pos < int64(len(msgs)) {
			msg := msgs[pos]
			r.broker.mu.Unlock()

			r.mu.Lock()
			r.pos = pos + 1
			r.mu.Unlock()
			return msg, nil
		}
		r.broker.mu.Unlock()

		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-changed:
		}
	}
}

func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	err := r.commitErr
	r.mu.Unlock()
	if err != nil {
		return err
	}

	r.broker.mu.Lock()
	defer r.broker.mu.Unlock()
	key := groupKey(r.group, r.topic)
	for _, m := range msgs {
		if next := m.Offset + 1; next > r.broker.committed[key] {
			r.broker.committed[key] = next
		}
	}
	return nil
}

func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
