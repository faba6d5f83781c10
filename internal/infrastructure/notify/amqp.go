package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/usecase"
)

// AMQPConfig selects where key deliveries are published.
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// AMQPNotifier publishes each delivery as a persistent JSON message on a topic
// exchange. A mail worker consumes it and sends the email.
type AMQPNotifier struct {
	cfg    AMQPConfig
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQP(cfg AMQPConfig, logger *zap.Logger) (*AMQPNotifier, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "storefront.events"
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = "order.keys.delivered"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &AMQPNotifier{cfg: cfg, logger: logger}
	if err := n.connect(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) Deliver(ctx context.Context, d usecase.Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.ch == nil || n.ch.IsClosed() {
		n.logger.Warn("amqp channel closed, reconnecting")
		if err := n.connect(); err != nil {
			return err
		}
	}

	return n.ch.PublishWithContext(ctx, n.cfg.Exchange, n.cfg.RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    d.Order.ID,
		Body:         body,
	})
}

// Ping reports whether the broker connection is usable.
func (n *AMQPNotifier) Ping() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn == nil || n.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

// connect must be called with mu held (or before the notifier is shared).
func (n *AMQPNotifier) connect() error {
	if n.conn != nil && !n.conn.IsClosed() {
		_ = n.conn.Close()
	}
	conn, err := amqp.Dial(n.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(n.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	n.conn, n.ch = conn, ch
	return nil
}

var _ usecase.Notifier = (*AMQPNotifier)(nil)
