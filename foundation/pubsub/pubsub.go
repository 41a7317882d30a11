// Package pubsub provides the message channel nodes use to relay blocks,
// chains and payloads to each other. Several transports implement the same
// Channel behavior so a node can be configured for the environment it runs in.
package pubsub

import "context"

// Set of topics used by the node.
const (
	TopicBlock   = "BLOCK"
	TopicChain   = "CHAIN"
	TopicPayload = "PAYLOAD"
)

// Handler is called for every message delivered on a subscribed topic.
type Handler func(topic string, data []byte)

// Channel represents the behavior required to publish messages to the
// network and receive messages published by peers.
type Channel interface {
	Publish(ctx context.Context, topic string, data []byte) error
	Subscribe(topic string, handler Handler) error
	Close() error
}
