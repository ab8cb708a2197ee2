package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	reconnectDelay = 5 * time.Second
	publishTimeout = 5 * time.Second
	dialAttempts   = 5

	deadLetterRoutingKey = "dlq.request.events"
	deadLetterTTL        = int64(24 * time.Hour / time.Millisecond)
)

var ErrChannelUnavailable = errors.New("rabbitmq channel not available")

// RabbitMQ owns one connection and channel to the broker and re-establishes
// both when the broker drops them.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
	mu      sync.RWMutex
	done    chan struct{}
	log     *slog.Logger
}

// NewRabbitMQ dials url, declares the request topology and starts the
// reconnect loop.
func NewRabbitMQ(url string, logger *slog.Logger) (*RabbitMQ, error) {
	rmq := &RabbitMQ{
		url:  url,
		done: make(chan struct{}),
		log:  logger.With(slog.String("component", "rabbitmq")),
	}

	err := retry.Do(
		rmq.connect,
		retry.Attempts(dialAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			rmq.log.Warn("connect failed, retrying", slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
		}),
	)
	if err != nil {
		return nil, err
	}

	go rmq.handleReconnect()

	return rmq, nil
}

func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	r.conn = conn
	r.channel = ch
	r.log.Info("connected")
	return nil
}

// declareTopology sets up the request exchange, its queue and the
// dead-letter pair behind it.
func declareTopology(ch *amqp.Channel) error {
	for _, name := range []string{ExchangeName, DeadLetterExchangeName} {
		if err := ch.ExchangeDeclare(
			name,
			"topic",
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("exchange declare %s: %w", name, err)
		}
	}

	if _, err := ch.QueueDeclare(
		DeadLetterQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-message-ttl": deadLetterTTL},
	); err != nil {
		return fmt.Errorf("dlq declare: %w", err)
	}
	if err := ch.QueueBind(DeadLetterQueueName, deadLetterRoutingKey, DeadLetterExchangeName, false, nil); err != nil {
		return fmt.Errorf("dlq bind: %w", err)
	}

	if _, err := ch.QueueDeclare(
		QueueName,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    DeadLetterExchangeName,
			"x-dead-letter-routing-key": deadLetterRoutingKey,
		},
	); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	for _, key := range RoutingKeys {
		if err := ch.QueueBind(QueueName, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind %s->%s: %w", QueueName, key, err)
		}
	}
	return nil
}

func (r *RabbitMQ) handleReconnect() {
	for {
		r.mu.RLock()
		closed := r.conn.NotifyClose(make(chan *amqp.Error, 1))
		r.mu.RUnlock()

		select {
		case <-r.done:
			return
		case err := <-closed:
			select {
			case <-r.done:
				return
			default:
			}
			r.log.Warn("disconnected", slog.Any("error", err))

			r.mu.Lock()
			for {
				if err := r.connect(); err != nil {
					r.log.Error("reconnect failed", slog.Any("error", err), slog.Duration("retry_in", reconnectDelay))
					select {
					case <-r.done:
						r.mu.Unlock()
						return
					case <-time.After(reconnectDelay):
					}
					continue
				}
				break
			}
			r.mu.Unlock()
		}
	}
}

// Publish sends body to the request exchange. messageID lets consumers
// drop redeliveries.
func (r *RabbitMQ) Publish(ctx context.Context, messageID, routingKey string, body []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.channel == nil || r.channel.IsClosed() {
		return ErrChannelUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := r.channel.PublishWithContext(
		ctx,
		ExchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (r *RabbitMQ) Close() {
	close(r.done)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}

	r.log.Info("connection closed")
}
