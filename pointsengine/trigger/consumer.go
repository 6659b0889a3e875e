package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	reconnectDelay       = 5 * time.Second
	maxReconnectAttempts = 10
	handlerTimeout       = 30 * time.Second
)

// Config is the change-feed section of the service configuration.
type Config struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	VHost         string `toml:"vhost"`
	Prefetch      int    `toml:"prefetch"`
	Workers       int    `toml:"workers"`
	TodoQueue     string `toml:"todo_queue"`
	HabitLogQueue string `toml:"habit_log_queue"`
	ActionQueue   string `toml:"action_queue"`
}

// Consumer subscribes one handler per collection queue. Delivery is
// at-least-once: successful reconciliations (including no-ops) are
// acked, infrastructure failures are nacked back onto the queue for
// redelivery, and malformed messages are dropped.
type Consumer struct {
	cfg      Config
	handlers map[string]Handler

	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New connects to the broker and declares every configured queue.
func New(cfg Config, handlers map[string]Handler) (*Consumer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Consumer{
		cfg:      cfg,
		handlers: handlers,
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := c.connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return c, nil
}

func (c *Consumer) connect() error {
	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.cfg.User, c.cfg.Password, c.cfg.Host, c.cfg.Port, c.cfg.VHost)

	conn, err := amqp.Dial(dsn)
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	for queue := range c.handlers {
		if _, err := ch.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	slog.Info("connected to change feed",
		slog.String("type", "feed"),
		slog.String("host", c.cfg.Host),
		slog.Int("queues", len(c.handlers)))

	go c.monitorConnection()
	return nil
}

func (c *Consumer) monitorConnection() {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return
	}

	notifyClose := conn.NotifyClose(make(chan *amqp.Error))

	select {
	case err := <-notifyClose:
		if err != nil {
			slog.Error("change feed connection closed unexpectedly",
				slog.String("type", "feed"),
				slog.Any("error", err))
			c.reconnect()
		}
	case <-c.ctx.Done():
	}
}

func (c *Consumer) reconnect() {
	c.mu.Lock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		slog.Info("attempting to reconnect to change feed",
			slog.String("type", "feed"),
			slog.Int("attempt", attempt))

		if err := c.connect(); err == nil {
			slog.Info("reconnected to change feed", slog.String("type", "feed"))
			go func() {
				if err := c.Start(c.ctx); err != nil && c.ctx.Err() == nil {
					slog.Error("failed to restart consumer after reconnect",
						slog.String("type", "feed"),
						slog.Any("error", err))
				}
			}()
			return
		}

		delay := reconnectDelay * time.Duration(attempt)
		slog.Warn("reconnection failed, retrying",
			slog.String("type", "feed"),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay))

		select {
		case <-time.After(delay):
		case <-c.ctx.Done():
			return
		}
	}

	slog.Error("max reconnection attempts reached, giving up", slog.String("type", "feed"))
}

// Start consumes every configured queue until the context is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()

	if channel == nil {
		return fmt.Errorf("channel is not initialized")
	}

	workers := c.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	for queue, handler := range c.handlers {
		msgs, err := channel.Consume(
			queue,
			"",    // consumer tag
			false, // auto-ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to consume queue %s: %w", queue, err)
		}

		for i := 0; i < workers; i++ {
			c.wg.Add(1)
			go c.worker(ctx, queue, handler, msgs)
		}
	}

	slog.Info("change feed consumers started",
		slog.String("type", "feed"),
		slog.Int("workers_per_queue", workers))

	<-ctx.Done()
	slog.Info("stopping change feed consumers", slog.String("type", "feed"))
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, queue string, handler Handler, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Warn("delivery channel closed",
					slog.String("type", "feed"),
					slog.String("queue", queue))
				return
			}
			c.handleDelivery(ctx, queue, handler, msg)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, queue string, handler Handler, msg amqp.Delivery) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	var change ChangeMessage
	if err := json.Unmarshal(msg.Body, &change); err != nil {
		slog.Error("failed to unmarshal change message, dropping",
			slog.String("type", "feed"),
			slog.String("queue", queue),
			slog.Any("error", err))
		_ = msg.Nack(false, false)
		return
	}

	if change.EntityID == "" {
		slog.Error("change message has no entity id, dropping",
			slog.String("type", "feed"),
			slog.String("queue", queue))
		_ = msg.Nack(false, false)
		return
	}

	outcome, err := handler(ctx, change)
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			slog.Error("unprocessable change message, dropping",
				slog.String("type", "feed"),
				slog.String("queue", queue),
				slog.String("entity_id", change.EntityID),
				slog.Any("error", err))
			_ = msg.Nack(false, false)
			return
		}

		// Infrastructure failure: requeue so the broker redelivers.
		// Every reconciliation step is idempotent, so the retry is safe.
		slog.Error("reconciliation failed, requeueing",
			slog.String("type", "feed"),
			slog.String("queue", queue),
			slog.String("entity_id", change.EntityID),
			slog.Any("error", err))
		_ = msg.Nack(false, true)
		return
	}

	slog.Debug("change reconciled",
		slog.String("type", "feed"),
		slog.String("queue", queue),
		slog.String("entity_id", change.EntityID),
		slog.String("result", string(outcome.Result)),
		slog.String("reason", outcome.Reason))
	_ = msg.Ack(false)
}

// Close stops the workers and tears down the broker connection.
func (c *Consumer) Close() {
	c.cancel()
	c.wg.Wait()

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

	slog.Info("change feed consumer closed", slog.String("type", "feed"))
}
