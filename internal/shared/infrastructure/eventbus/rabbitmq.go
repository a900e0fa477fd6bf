package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the topic exchange carrying domain events.
	ExchangeName = "backy.domain.events"

	// DefaultQueueName is used when a subscriber is created without one.
	DefaultQueueName = "backy.worker"
)

// ErrSubscriberRunning is returned when Start is called twice.
var ErrSubscriberRunning = errors.New("subscriber already running")

func dialExchange(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return conn, ch, nil
}

// RabbitMQPublisher publishes envelopes to the topic exchange.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewRabbitMQPublisher connects and declares the exchange.
func NewRabbitMQPublisher(url string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, ch, err := dialExchange(url, ExchangeName)
	if err != nil {
		return nil, err
	}
	logger.Info("rabbitmq publisher connected", "exchange", ExchangeName)

	return &RabbitMQPublisher{
		conn:     conn,
		channel:  ch,
		exchange: ExchangeName,
		logger:   logger,
	}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.logger.Debug("event published", "routing_key", routingKey, "size", len(body))
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("closing channel", "error", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// RabbitMQConfig configures a subscriber.
type RabbitMQConfig struct {
	URL      string
	Queue    string
	Exchange string
	Logger   *slog.Logger
}

// RabbitMQSubscriber consumes a durable queue bound to the exchange.
type RabbitMQSubscriber struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	exchange string
	registry *Registry
	logger   *slog.Logger
	mu       sync.Mutex
	running  bool
	closed   chan struct{}
}

// NewRabbitMQSubscriber connects and declares the queue.
func NewRabbitMQSubscriber(cfg RabbitMQConfig) (*RabbitMQSubscriber, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueueName
	}
	if cfg.Exchange == "" {
		cfg.Exchange = ExchangeName
	}

	conn, ch, err := dialExchange(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	cfg.Logger.Info("rabbitmq subscriber connected", "queue", cfg.Queue, "exchange", cfg.Exchange)

	return &RabbitMQSubscriber{
		conn:     conn,
		channel:  ch,
		queue:    cfg.Queue,
		exchange: cfg.Exchange,
		registry: NewRegistry(cfg.Logger),
		logger:   cfg.Logger,
		closed:   make(chan struct{}),
	}, nil
}

// Subscribe registers the handler and binds its routing keys to the queue.
func (s *RabbitMQSubscriber) Subscribe(handler Handler) error {
	s.registry.Register(handler)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range handler.RoutingKeys() {
		if err := s.channel.QueueBind(s.queue, key, s.exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Start consumes with manual acks. Failed dispatches are requeued,
// undecodable bodies are acked and dropped.
func (s *RabbitMQSubscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSubscriberRunning
	}
	s.running = true
	s.mu.Unlock()

	if err := s.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := s.channel.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", s.queue, err)
	}
	s.logger.Info("consuming events", "queue", s.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			s.deliver(ctx, d)
		}
	}
}

func (s *RabbitMQSubscriber) deliver(ctx context.Context, d amqp.Delivery) {
	event, err := ParseEnvelope(d.Body, d.RoutingKey)
	if err != nil {
		s.logger.Error("dropping undecodable event", "routing_key", d.RoutingKey, "error", err)
		_ = d.Ack(false)
		return
	}

	if err := s.registry.Dispatch(ctx, event); err != nil {
		if nackErr := d.Nack(false, true); nackErr != nil {
			s.logger.Error("nack failed", "event_id", event.EventID, "error", nackErr)
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		s.logger.Error("ack failed", "event_id", event.EventID, "error", ackErr)
	}
}

func (s *RabbitMQSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	s.running = false

	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.logger.Warn("closing channel", "error", err)
		}
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
