package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"saldo/internal/log"
)

const (
	dialTimeout      = 5 * time.Second
	heartbeat        = 10 * time.Second
	publishTimeout   = 5 * time.Second
	drainTimeout     = 10 * time.Second
	maxPublishTries  = 3
	maxBackoffPeriod = 30 * time.Second
	queueSize        = 256
)

var (
	ErrQueueFull    = errors.New("event queue full")
	ErrClientClosed = errors.New("amqp client closed")
)

// Client publishes expense events to a durable direct exchange.
//
// Publish only enqueues. A single goroutine delivers queued events, so a slow
// or unreachable broker never holds up the caller.
type Client struct {
	url          string
	exchangeName string
	routingKey   string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	queue     chan ExpenseEvent
	stop      chan struct{}
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// deliver sends one event with retries; replaced in tests.
	deliver func(ctx context.Context, event ExpenseEvent) error
}

// NewClient dials the broker, declares the exchange and starts the delivery
// goroutine.
func NewClient(url, exchangeName, routingKey string) (*Client, error) {
	c := newClient(url, exchangeName, routingKey, queueSize)
	if err := c.connect(); err != nil {
		c.cancel()
		return nil, err
	}
	c.deliver = c.publishWithRetry
	go c.run()
	return c, nil
}

func newClient(url, exchangeName, routingKey string, size int) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:          url,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		logger:       log.FromContext(ctx).WithComponent(log.ComponentAMQP),
		queue:        make(chan ExpenseEvent, size),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// connect must be called with mu held or before the client is shared.
func (c *Client) connect() error {
	conn, err := amqp091.DialConfig(c.url, amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

// Publish queues event for delivery and returns at once. It fails only when
// the queue is full or the client was closed.
func (c *Client) Publish(ctx context.Context, event ExpenseEvent) error {
	select {
	case <-c.stop:
		return ErrClientClosed
	default:
	}

	select {
	case c.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Client) run() {
	defer close(c.done)
	for {
		select {
		case event := <-c.queue:
			c.send(event)
		case <-c.stop:
			for {
				select {
				case event := <-c.queue:
					c.send(event)
				default:
					return
				}
			}
		}
	}
}

func (c *Client) send(event ExpenseEvent) {
	if err := c.deliver(c.ctx, event); err != nil {
		fields := log.NewFields().WithOperation(log.OpPublish).WithError(err).ToSlice()
		fields = append(fields, log.FieldEventType, event.Type, log.FieldExpenseID, event.ID)
		c.logger.Error("Failed to publish expense event", fields...)
	}
}

// publishWithRetry sends an event, reconnecting with exponential backoff when
// the broker connection was lost.
func (c *Client) publishWithRetry(ctx context.Context, event ExpenseEvent) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxPublishTries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}

		if c.conn == nil || c.conn.IsClosed() {
			if err := c.connect(); err != nil {
				lastErr = err
				continue
			}
		}

		lastErr = c.publish(ctx, body)
		if lastErr == nil {
			c.logger.Debug("Published expense event",
				log.FieldEventType, event.Type,
				log.FieldExpenseID, event.ID,
				"exchange", c.exchangeName,
				"routing_key", c.routingKey)
			return nil
		}
		if !isConnectionError(lastErr) {
			return lastErr
		}
		c.logger.Warn("AMQP connection lost, retrying", "attempt", attempt+1, log.FieldError, lastErr)
		c.closeLocked()
	}
	return fmt.Errorf("publish event after %d attempts: %w", maxPublishTries, lastErr)
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Close stops accepting events, delivers what is already queued within
// drainTimeout, and closes the broker connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		select {
		case <-c.done:
		case <-time.After(drainTimeout):
			c.logger.Warn("Event queue not drained before close", "pending", len(c.queue))
			c.cancel()
			<-c.done
		}
		c.cancel()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxBackoffPeriod
	}
	d := time.Second << uint(attempt)
	if d > maxBackoffPeriod {
		return maxBackoffPeriod
	}
	return d
}

// isConnectionError reports whether err means the broker link is gone and a
// reconnect is worth trying.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "eof", "broken pipe", "closed network connection", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
