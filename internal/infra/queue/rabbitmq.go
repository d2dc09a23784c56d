package mq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ucu-innovators/hub/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DialFunc opens a fresh broker connection; the publisher calls it again after a disconnect.
type DialFunc func() (*amqp.Connection, error)

// NewDialFunc honours rabbitmq.enabletls and amqps:// URLs.
func NewDialFunc(cfg *config.Config) DialFunc {
	return func() (*amqp.Connection, error) {
		url := cfg.RabbitMQ.URL
		if cfg.RabbitMQ.EnableTLS || strings.HasPrefix(url, "amqps://") {
			if strings.HasPrefix(url, "amqp://") {
				url = strings.Replace(url, "amqp://", "amqps://", 1)
			}
			return amqp.DialTLS(url, &tls.Config{MinVersion: tls.VersionTLS12})
		}
		return amqp.Dial(url)
	}
}

// tableCarrier adapts amqp.Table to TextMapCarrier for OpenTelemetry propagation
type tableCarrier struct {
	table amqp.Table
}

func (c tableCarrier) Get(key string) string {
	if val, ok := c.table[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
		return fmt.Sprintf("%v", val)
	}
	return ""
}

func (c tableCarrier) Set(key, value string) {
	c.table[key] = value
}

func (c tableCarrier) Keys() []string {
	keys := make([]string, 0, len(c.table))
	for k := range c.table {
		keys = append(keys, k)
	}
	return keys
}

type exchangeDeclarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
}

// consumerTopology is the part of *amqp.Channel a consumer needs at startup.
type consumerTopology interface {
	exchangeDeclarer
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Close() error
}

// DeclareExchanges makes sure every topic exchange the service publishes to exists.
func DeclareExchanges(ch exchangeDeclarer, cfg *config.Config) error {
	for _, name := range []string{cfg.RabbitMQ.ExchangeName.Project, cfg.RabbitMQ.ExchangeName.Notification} {
		if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

type Publisher struct {
	mu   sync.Mutex
	dial DialFunc
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
	cfg  *config.Config
}

func NewPublisher(conn *amqp.Connection, log *zap.Logger, cfg *config.Config, dial DialFunc) (*Publisher, error) {
	p := &Publisher{dial: dial, conn: conn, log: log, cfg: cfg}
	if err := p.openChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	if err := DeclareExchanges(ch, p.cfg); err != nil {
		_ = ch.Close()
		return err
	}
	p.ch = ch
	return nil
}

// reconnect must be called with p.mu held.
func (p *Publisher) reconnect() error {
	if p.conn == nil || p.conn.IsClosed() {
		if p.dial == nil {
			return amqp.ErrClosed
		}
		conn, err := p.dial()
		if err != nil {
			return fmt.Errorf("redial rabbitmq: %w", err)
		}
		p.conn = conn
	}
	return p.openChannel()
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	return p.ch.Close()
}

func (p *Publisher) PublishJSON(ctx context.Context, exchangeName string, routingKey string, body any) error {
	b, err := sonic.Marshal(body)
	if err != nil {
		return err
	}

	tracer := otel.Tracer(p.cfg.App.Name)
	ctx, span := tracer.Start(ctx, "rabbitmq.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination", exchangeName),
			attribute.String("messaging.destination_kind", "exchange"),
			attribute.String("messaging.rabbitmq.routing_key", routingKey),
		))
	defer span.End()

	// Inject trace context into message headers
	headers := make(amqp.Table)
	otel.GetTextMapPropagator().Inject(ctx, tableCarrier{table: headers})

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         b,
		Headers:      headers,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if err := p.reconnect(); err != nil {
			span.RecordError(err)
			return err
		}
	}
	err = p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, publishing)
	if errors.Is(err, amqp.ErrClosed) {
		p.log.Warn("rabbitmq channel closed, reconnecting", zap.String("exchange", exchangeName))
		if rerr := p.reconnect(); rerr != nil {
			span.RecordError(rerr)
			return rerr
		}
		err = p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, publishing)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Int("messaging.message.body.size", len(b)))
	return nil
}

type Consumer struct {
	ch  *amqp.Channel
	q   amqp.Queue
	log *zap.Logger
	cfg *config.Config
}

// NewConsumer declares a durable queue bound to exchange with each routing key.
func NewConsumer(conn *amqp.Connection, queueName, exchange string, routingKeys []string, prefetch int, log *zap.Logger, cfg *config.Config) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	q, err := declareConsumerQueue(ch, queueName, exchange, routingKeys, prefetch, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{ch: ch, q: q, log: log, cfg: cfg}, nil
}

// declareConsumerQueue closes ch when any step fails.
func declareConsumerQueue(ch consumerTopology, queueName, exchange string, routingKeys []string, prefetch int, cfg *config.Config) (q amqp.Queue, err error) {
	defer func() {
		if err != nil {
			_ = ch.Close()
		}
	}()
	if prefetch <= 0 {
		prefetch = 10
	}
	if err = ch.Qos(prefetch, 0, false); err != nil {
		return q, err
	}
	if err = DeclareExchanges(ch, cfg); err != nil {
		return q, err
	}
	q, err = ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return q, err
	}
	for _, key := range routingKeys {
		if err = ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			return q, fmt.Errorf("bind %s to %s/%s: %w", q.Name, exchange, key, err)
		}
	}
	return q, nil
}

func (c *Consumer) Close() error { return c.ch.Close() }

// Handle consumes until ctx is done. A handler error nacks and requeues the delivery.
func (c *Consumer) Handle(ctx context.Context, handler func(ctx context.Context, routingKey string, body []byte) error) error {
	msgs, err := c.ch.Consume(c.q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	tracer := otel.Tracer(c.cfg.App.Name)
	propagator := otel.GetTextMapPropagator()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return errors.New("consumer channel closed")
			}

			msgCtx := ctx
			if m.Headers != nil {
				msgCtx = propagator.Extract(ctx, tableCarrier{table: m.Headers})
			}
			msgCtx, span := tracer.Start(msgCtx, "rabbitmq.consume",
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("messaging.system", "rabbitmq"),
					attribute.String("messaging.destination", c.q.Name),
					attribute.String("messaging.destination_kind", "queue"),
					attribute.String("messaging.operation", "receive"),
					attribute.Int("messaging.message.body.size", len(m.Body)),
				))

			if err := handler(msgCtx, m.RoutingKey, m.Body); err != nil {
				span.RecordError(err)
				span.End()
				_ = m.Nack(false, true)
				c.log.Sugar().Errorw("consume error", "err", err, "routing_key", m.RoutingKey)
				continue
			}

			_ = m.Ack(false)
			span.End()
		}
	}
}
