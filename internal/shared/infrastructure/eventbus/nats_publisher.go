package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject prefixes routing keys published to NATS.
const DefaultSubject = "bridge.events"

// NATSPublisher publishes events to NATS. The routing key is appended to the
// configured subject, so billing.purchase.failed goes to
// bridge.events.billing.purchase.failed.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher connects to url. An empty subject selects DefaultSubject.
func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url,
		nats.Name("nativebridge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS publisher connected", "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}, nil
}

// Subject returns the subject used for routingKey.
func (p *NATSPublisher) Subject(routingKey string) string {
	if routingKey == "" {
		return p.subject
	}
	return p.subject + "." + routingKey
}

// Publish sends payload and flushes so failures surface to the caller.
func (p *NATSPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if p.conn == nil || p.conn.IsClosed() {
		return ErrPublisherClosed
	}
	subject := p.Subject(routingKey)
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Error("failed to publish message", "subject", subject, "error", err)
		return fmt.Errorf("failed to publish message to NATS: %w", err)
	}
	if err := p.flush(ctx); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}

	p.logger.Debug("message published", "subject", subject, "size", len(payload))
	return nil
}

func (p *NATSPublisher) flush(ctx context.Context) error {
	// FlushWithContext rejects contexts without a deadline.
	if _, ok := ctx.Deadline(); ok {
		return p.conn.FlushWithContext(ctx)
	}
	return p.conn.Flush()
}

// Ping reports whether the connection is up.
func (p *NATSPublisher) Ping(ctx context.Context) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return fmt.Errorf("NATS not connected")
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	p.logger.Info("NATS publisher closed")
	return nil
}
