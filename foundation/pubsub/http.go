package pubsub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

const baseURL = "http://%s/v1/node/pubsub/%s"

// HTTP is a Channel that posts every message to the private API of each
// known peer. Messages from peers arrive through the node's private route,
// which hands them to Deliver.
type HTTP struct {
	host   string
	peers  *peer.PeerSet
	client http.Client

	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewHTTP constructs an HTTP channel. The host is this node's private host
// and is never sent a message.
func NewHTTP(host string, peers *peer.PeerSet) *HTTP {
	return &HTTP{
		host:     host,
		peers:    peers,
		client:   http.Client{Timeout: 10 * time.Second},
		handlers: make(map[string][]Handler),
	}
}

// Publish sends the message to every known peer. A peer that can't be
// reached doesn't stop the others, all failures are returned together.
func (h *HTTP) Publish(ctx context.Context, topic string, data []byte) error {
	var errs []error

	for _, pr := range h.peers.Copy(h.host) {
		url := fmt.Sprintf(baseURL, pr.Host, topic)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pr, err))
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		if err := h.send(req); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pr, err))
		}
	}

	return errors.Join(errs...)
}

// Subscribe registers the handler for the topic.
func (h *HTTP) Subscribe(topic string, handler Handler) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handlers[topic] = append(h.handlers[topic], handler)
	return nil
}

// Deliver hands a message received from a peer to the topic's handlers.
// It reports whether anyone is subscribed to the topic.
func (h *HTTP) Deliver(topic string, data []byte) bool {
	h.mu.RLock()
	handlers := h.handlers[topic]
	h.mu.RUnlock()

	for _, handler := range handlers {
		handler(topic, data)
	}

	return len(handlers) > 0
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// send executes the request and turns a non 2xx response into an error.
func (h *HTTP) send(req *http.Request) error {
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	return nil
}
