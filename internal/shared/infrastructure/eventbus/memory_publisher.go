package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// Message is a published message as recorded by MemoryPublisher.
type Message struct {
	RoutingKey string
	Payload    []byte
}

// MemoryPublisher keeps published messages in memory. It backs the "memory"
// event sink and tests.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message
	limit    int
	closed   bool
	logger   *slog.Logger
}

// NewMemoryPublisher creates a publisher keeping at most limit messages.
// A limit of zero keeps everything.
func NewMemoryPublisher(limit int, logger *slog.Logger) *MemoryPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryPublisher{limit: limit, logger: logger}
}

// Publish records the message.
func (p *MemoryPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}

	body := make([]byte, len(payload))
	copy(body, payload)
	p.messages = append(p.messages, Message{RoutingKey: routingKey, Payload: body})
	if p.limit > 0 && len(p.messages) > p.limit {
		p.messages = p.messages[len(p.messages)-p.limit:]
	}

	p.logger.Debug("message recorded",
		"routing_key", routingKey,
		"size", len(payload),
	)
	return nil
}

// Messages returns a copy of the recorded messages.
func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// Close stops accepting messages.
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
