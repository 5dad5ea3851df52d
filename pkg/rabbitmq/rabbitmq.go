package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"plantmart/internal/models"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

const (
	// OrderQueue is the durable queue order events are routed to.
	OrderQueue = "plant_orders"
	// RoutingKeyOrderConfirmed tags order confirmation events.
	RoutingKeyOrderConfirmed = "order.confirmed"
)

// Channel is the subset of *amqp.Channel the client uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel Channel
	log     logrus.FieldLogger
	mu      sync.Mutex // amqp channels are not safe for concurrent publishing
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares OrderQueue.
func NewClient(cfg Config, log logrus.FieldLogger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	client, err := NewClientWithChannel(ch, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	client.conn = conn
	return client, nil
}

// NewClientWithChannel wraps an already open channel and declares OrderQueue.
func NewClientWithChannel(ch Channel, log logrus.FieldLogger) (*Client, error) {
	if err := declareOrderQueue(ch); err != nil {
		ch.Close()
		return nil, err
	}
	log.WithField("queue", OrderQueue).Info("RabbitMQ client connected and queue declared")
	return &Client{channel: ch, log: log}, nil
}

func declareOrderQueue(ch Channel) error {
	_, err := ch.QueueDeclare(
		OrderQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", OrderQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish sends a persistent JSON message to OrderQueue tagged with
// routingKey in the "type" header. The context is checked before sending;
// the amqp library itself does not take one.
func (c *Client) Publish(ctx context.Context, routingKey string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.channel.Publish(
		"",         // exchange: default exchange
		OrderQueue, // routing key: the queue name
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         routingKey,
			Headers:      amqp.Table{"routing_key": routingKey},
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishOrderConfirmed publishes an order.confirmed event.
func (c *Client) PublishOrderConfirmed(ctx context.Context, order models.OrderConfirmation) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order %s: %w", order.ID, err)
	}
	if err := c.Publish(ctx, RoutingKeyOrderConfirmed, body); err != nil {
		return err
	}
	c.log.WithField("order_id", order.ID).Debugf(" [x] Sent order event: %s", body)
	return nil
}

// OrderHandler processes one order event. Returning an error nacks the
// message; it is requeued unless it was already redelivered once.
type OrderHandler func(ctx context.Context, order models.OrderConfirmation) error

// ConsumeOrderEvents starts a goroutine delivering OrderQueue messages to
// handler until ctx is done or the channel closes. Messages that do not
// decode are dropped.
func (c *Client) ConsumeOrderEvents(ctx context.Context, handler OrderHandler) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}
	if err := declareOrderQueue(c.channel); err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		OrderQueue, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.WithField("queue", OrderQueue).Info("waiting for order events")
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c.handle(ctx, msg, handler)
			}
		}
	}()
	return nil
}

// Acknowledger is the subset of amqp.Delivery used to settle a message.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) handle(ctx context.Context, msg amqp.Delivery, handler OrderHandler) {
	c.settle(ctx, &msg, msg.Body, msg.Redelivered, msg.DeliveryTag, handler)
}

func (c *Client) settle(ctx context.Context, ack Acknowledger, body []byte, redelivered bool, tag uint64, handler OrderHandler) {
	entry := c.log.WithField("delivery_tag", tag)

	var order models.OrderConfirmation
	if err := json.Unmarshal(body, &order); err != nil {
		entry.WithError(err).Warn("dropping undecodable order event")
		if nackErr := ack.Nack(false, false); nackErr != nil {
			entry.WithError(nackErr).Error("error nacking message")
		}
		return
	}

	if err := handler(ctx, order); err != nil {
		entry.WithError(err).WithField("order_id", order.ID).Error("error processing order event")
		if nackErr := ack.Nack(false, !redelivered); nackErr != nil {
			entry.WithError(nackErr).Error("error nacking message")
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		entry.WithError(ackErr).Error("error acking message")
	}
}
