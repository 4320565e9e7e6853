// Package service publishes domain events to RabbitMQ.  Publishing is best
// effort: failures are logged and never reach the caller's request.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/emprestaae/empresta-api/internal/queue"
)

const publishTimeout = 3 * time.Second

// Publisher keeps one broker connection and redials after a failure.  A nil
// *Publisher is valid and drops every event.
type Publisher struct {
	url string
	log *zap.Logger
	now func() time.Time

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, l *zap.Logger) *Publisher {
	if l == nil {
		l = zap.NewNop()
	}
	return &Publisher{url: url, log: l, now: func() time.Time { return time.Now().UTC() }}
}

// channel returns an open channel with every event queue declared.
// Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	for _, t := range queue.EventTypes {
		if _, err := ch.QueueDeclare(string(t), true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("queue declare %s: %w", t, err)
		}
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Publish sends ev as a persistent JSON message to the queue named after its
// type.  OccurredAt is filled in when unset.
func (p *Publisher) Publish(ctx context.Context, ev queue.Event) {
	if p == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = p.now()
	}
	if err := p.publish(ctx, ev); err != nil {
		p.log.Warn("event publish failed", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

func (p *Publisher) publish(ctx context.Context, ev queue.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx, "", string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		p.closeLocked()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}
