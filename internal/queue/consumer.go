package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer drains the event queues and appends one line per event to out.
type Consumer struct {
	url string
	out io.Writer
	log *zap.Logger
	mu  sync.Mutex
}

func NewConsumer(url string, out io.Writer, l *zap.Logger) *Consumer {
	if l == nil {
		l = zap.NewNop()
	}
	return &Consumer{url: url, out: out, log: l}
}

// Run keeps consuming until ctx is done, reconnecting with exponential
// backoff when the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("event consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("event consumer: loop ended, reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("event consumer: set qos failed", zap.Error(err))
	}

	deliveries := make(chan amqp.Delivery)
	var wg sync.WaitGroup
	for _, t := range EventTypes {
		if _, err := ch.QueueDeclare(string(t), true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", t, err)
		}
		msgs, err := ch.Consume(string(t), "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", t, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range msgs {
				select {
				case deliveries <- d:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(deliveries)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(d.Body); err != nil {
				c.log.Warn("event consumer: handle failed", zap.Error(err))
				// reject without requeue to avoid a poison loop
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one event body and writes its activity line.
func (c *Consumer) Handle(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.out, ev.Line()); err != nil {
		return fmt.Errorf("write activity log: %w", err)
	}
	return nil
}
