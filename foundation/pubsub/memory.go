package pubsub

import (
	"context"
	"errors"
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// ErrClosed is returned when subscribing on a closed channel.
var ErrClosed = errors.New("channel closed")

// Memory is an in-process bus for replicas running inside the same process.
// Each replica takes its own handle with Node so closing one replica leaves
// the others subscribed. Memory itself is also a Channel for a process with
// a single replica.
type Memory struct {
	bus evbus.Bus

	mu       sync.RWMutex
	topics   map[string]bool
	handlers map[string]map[uint64]Handler
	nextID   uint64
	owner    *MemoryNode
}

// NewMemory constructs a Memory bus.
func NewMemory() *Memory {
	m := Memory{
		bus:      evbus.New(),
		topics:   make(map[string]bool),
		handlers: make(map[string]map[uint64]Handler),
	}
	m.owner = m.Node()

	return &m
}

// Node returns a handle on the bus for one replica.
func (m *Memory) Node() *MemoryNode {
	return &MemoryNode{
		mem:  m,
		subs: make(map[uint64]string),
	}
}

// Publish delivers the message to every subscriber of the topic.
func (m *Memory) Publish(ctx context.Context, topic string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := append([]byte(nil), data...)
	m.bus.Publish(topic, topic, msg)

	return nil
}

// Subscribe registers the handler for the topic on the bus's own handle.
func (m *Memory) Subscribe(topic string, handler Handler) error {
	return m.owner.Subscribe(topic, handler)
}

// Wait blocks until every message published so far has been handled.
func (m *Memory) Wait() {
	m.bus.WaitAsync()
}

// Close removes every subscription on the bus, from all handles, after
// in-flight messages are handled.
func (m *Memory) Close() error {
	m.bus.WaitAsync()
	m.owner.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	for topic := range m.handlers {
		delete(m.handlers, topic)
	}

	return nil
}

// add registers the handler and makes sure the topic is dispatched.
func (m *Memory) add(topic string, handler Handler) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.topics[topic] {
		if err := m.bus.SubscribeAsync(topic, m.dispatch, false); err != nil {
			return 0, err
		}
		m.topics[topic] = true
	}

	m.nextID++
	id := m.nextID

	if m.handlers[topic] == nil {
		m.handlers[topic] = make(map[uint64]Handler)
	}
	m.handlers[topic][id] = handler

	return id, nil
}

// remove drops the handlers registered under the ids.
func (m *Memory) remove(subs map[uint64]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, topic := range subs {
		delete(m.handlers[topic], id)
	}
}

// dispatch hands a published message to the current handlers of the topic.
// Every handler gets its own copy of the message.
func (m *Memory) dispatch(topic string, data []byte) {
	m.mu.RLock()
	handlers := make([]Handler, 0, len(m.handlers[topic]))
	for _, h := range m.handlers[topic] {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		h(topic, append([]byte(nil), data...))
	}
}

// =============================================================================

// MemoryNode is one replica's Channel on a Memory bus.
type MemoryNode struct {
	mem *Memory

	mu     sync.Mutex
	subs   map[uint64]string
	closed bool
}

// Publish delivers the message to every subscriber on the bus.
func (n *MemoryNode) Publish(ctx context.Context, topic string, data []byte) error {
	return n.mem.Publish(ctx, topic, data)
}

// Subscribe registers the handler for the topic.
func (n *MemoryNode) Subscribe(topic string, handler Handler) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}

	id, err := n.mem.add(topic, handler)
	if err != nil {
		return err
	}
	n.subs[id] = topic

	return nil
}

// Close removes the subscriptions made through this handle. The bus and
// every other handle keep working.
func (n *MemoryNode) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	n.mem.remove(n.subs)
	n.subs = nil

	return nil
}
