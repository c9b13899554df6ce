// Package amqp carries entity-change events between processes. The server
// publishes after every mutation; worker processes consume and mirror the
// invalidation into their own local caches. Delivery is best-effort: a dead
// broker never fails a mutation, TTLs bound the staleness.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const maxBackoff = 30 * time.Second

// exponentialBackoff returns how long to wait before reconnect attempt
// number attempt: 1s, 2s, 4s, ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// isConnectionError reports whether err looks like a broken broker
// connection rather than a protocol or application error. The amqp091
// library surfaces these as plain errors, so this matches on message text.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"channel/connection is not open",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

var errDeliveryClosed = errors.New("delivery channel closed")

type Client struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	url          string
	exchangeName string
	queueName    string
}

// NewClient connects and declares a fanout exchange. queueName names this
// process's own queue for consuming; leave it empty for publish-only clients.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

// connect dials the broker and redeclares the topology. Any previous
// connection is closed first, so it doubles as the reconnect path.
func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func (c *Client) setup(channel *amqp091.Channel) error {
	// Fanout: every consumer sees every change event
	err := channel.ExchangeDeclare(
		c.exchangeName, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if c.queueName == "" {
		return nil
	}

	_, err = channel.QueueDeclare(
		c.queueName, // name
		false,       // durable; invalidation events are worthless after restart
		true,        // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = channel.QueueBind(
		c.queueName,    // queue name
		"",             // routing key ignored by fanout
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PublishEntityChanged publishes a change event to the fanout exchange.
// A broken connection gets one reconnect-and-retry; anything beyond that is
// the caller's problem, and callers treat publish failures as non-fatal.
func (c *Client) PublishEntityChanged(ctx context.Context, msg *EntityChangedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.publishBody(ctx, body)
	if err != nil && isConnectionError(err) {
		if rerr := c.connect(); rerr == nil {
			err = c.publishBody(ctx, body)
		}
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.DebugContext(ctx, "Published entity change event",
		"entity", msg.Entity,
		"user_id", msg.UserID,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publishBody(ctx context.Context, body []byte) error {
	return c.currentChannel().PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		"",             // routing key ignored by fanout
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
}

// Consume delivers change events to handler until ctx is cancelled. When the
// broker drops the connection it re-dials with exponential backoff instead of
// returning, so one broker restart does not silence the invalidation mirror.
// Events missed while disconnected are covered by TTL expiry.
func (c *Client) Consume(ctx context.Context, handler func(context.Context, *EntityChangedMessage) error) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, errDeliveryClosed) && !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP consumer disconnected, reconnecting",
			"error", err, "wait", wait, "attempt", attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := c.connect(); err != nil {
			slog.WarnContext(ctx, "AMQP reconnect failed", "error", err, "attempt", attempt)
			continue
		}
		attempt = 0
		slog.InfoContext(ctx, "AMQP consumer reconnected", "queue", c.queueName)
	}
}

// consumeOnce runs one consumer session on the current channel. Handler
// errors are logged and the message dropped; invalidation is idempotent and
// TTL expiry covers anything missed.
func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *EntityChangedMessage) error) error {
	deliveries, err := c.currentChannel().Consume(
		c.queueName, // queue
		"",          // consumer tag
		true,        // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveryClosed
			}
			msg, err := EntityChangedMessageFromJSON(d.Body)
			if err != nil {
				slog.WarnContext(ctx, "Dropping malformed change event", "error", err)
				continue
			}
			if err := handler(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Change event handler failed",
					"entity", msg.Entity, "user_id", msg.UserID, "error", err)
			}
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
