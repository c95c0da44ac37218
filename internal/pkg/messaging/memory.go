package messaging

import (
	"context"
	"io"
	"maps"
	"sync"

	"go.uber.org/atomic"
)

// Memory is an in-process broker. Every subscription of a topic gets each
// message; a nacked message is redelivered once to the same subscription.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]chan memoryMessage
	closed atomic.Bool
}

type memoryMessage struct {
	body    []byte
	headers map[string]string
	retried bool
}

// NewMemory returns an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]chan memoryMessage)}
}

func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if destination == "" {
		return ErrDestinationRequired
	}

	if m.closed.Load() {
		return io.ErrClosedPipe
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	mm := memoryMessage{body: append([]byte(nil), msg.Body...), headers: maps.Clone(msg.Headers)}
	for _, ch := range m.subs[destination] {
		select {
		case ch <- mm:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	co := newConsumeOptions(opts...)

	ch := make(chan memoryMessage, 64)
	if m.closed.Load() {
		return io.ErrClosedPipe
	}
	m.mu.Lock()
	m.subs[source] = append(m.subs[source], ch)
	m.mu.Unlock()

	defer m.unsubscribe(source, ch)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case mm := <-ch:
					msg := &memoryDelivery{msg: mm, requeue: ch}
					herr := callHandler(ctx, DriverMemory, handler, msg)
					if co.autoAck {
						_ = settle(ctx, msg, herr)
					}
				}
			}
		})
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (m *Memory) unsubscribe(source string, ch chan memoryMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subs[source]
	for i := range subs {
		if subs[i] == ch {
			m.subs[source] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Close rejects further publishes.
func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}

type memoryDelivery struct {
	msg     memoryMessage
	requeue chan memoryMessage
	once    sync.Once
}

func (d *memoryDelivery) Body() []byte { return d.msg.body }

func (d *memoryDelivery) Header(key string) string { return d.msg.headers[key] }

func (d *memoryDelivery) Ack(context.Context) error {
	d.once.Do(func() {})
	return nil
}

func (d *memoryDelivery) Nack(context.Context) error {
	d.once.Do(func() {
		if d.msg.retried {
			return
		}
		retry := d.msg
		retry.retried = true
		select {
		case d.requeue <- retry:
		default:
		}
	})
	return nil
}
