// Package events fans node events out to registered receivers such as
// websocket clients.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// messageBuffer is the number of events a slow receiver can fall behind
// before events are dropped for it.
const messageBuffer = 100

// receiver is a registered consumer of events.
type receiver struct {
	ch       chan string
	prefixes []string
	dropped  uint64
}

// wants reports whether the receiver asked for the event. A receiver with
// no prefixes gets every event.
func (r *receiver) wants(s string) bool {
	if len(r.prefixes) == 0 {
		return true
	}

	for _, p := range r.prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}

// Events maintains the set of receivers keyed by a unique id.
type Events struct {
	mu        sync.RWMutex
	receivers map[string]*receiver
}

// New constructs an Events ready for receivers.
func New() *Events {
	return &Events{
		receivers: make(map[string]*receiver),
	}
}

// Shutdown closes and removes every receiver.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, r := range evt.receivers {
		delete(evt.receivers, id)
		close(r.ch)
	}
}

// Acquire registers a receiver under the id and returns its channel. When
// prefixes are given only events starting with one of them are delivered,
// e.g. "viewer:" for block events. Acquiring an existing id returns the
// channel already registered.
func (evt *Events) Acquire(id string, prefixes ...string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if r, exists := evt.receivers[id]; exists {
		return r.ch
	}

	r := receiver{
		ch:       make(chan string, messageBuffer),
		prefixes: prefixes,
	}
	evt.receivers[id] = &r

	return r.ch
}

// Release closes and removes the receiver registered under the id.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	r, exists := evt.receivers[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.receivers, id)
	close(r.ch)

	return nil
}

// Count returns the number of registered receivers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.receivers)
}

// Dropped returns the number of events the receiver missed because its
// buffer was full.
func (evt *Events) Dropped(id string) uint64 {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	if r, exists := evt.receivers[id]; exists {
		return r.dropped
	}

	return 0
}

// Send delivers the event to every receiver that wants it. A receiver that
// is not keeping up misses the event, Send never blocks.
func (evt *Events) Send(s string) {

	// The write lock protects the drop counters.
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for _, r := range evt.receivers {
		if !r.wants(s) {
			continue
		}

		select {
		case r.ch <- s:
		default:
			r.dropped++
		}
	}
}
