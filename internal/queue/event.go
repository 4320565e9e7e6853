// Package queue defines the domain events exchanged over RabbitMQ and the
// consumer that records them in the activity log.
package queue

import (
	"fmt"
	"strings"
	"time"
)

// EventType doubles as the name of the durable queue carrying the event.
type EventType string

const (
	LoanRequested     EventType = "loan.requested"
	LoanStatusChanged EventType = "loan.status_changed"
	MessageSent       EventType = "message.sent"
)

// EventTypes lists every queue the consumer declares.
var EventTypes = []EventType{LoanRequested, LoanStatusChanged, MessageSent}

// Event carries enough context for downstream consumers to log or notify
// without reading the database.  Fields that do not apply stay empty.
type Event struct {
	Type        EventType `json:"type"`
	OccurredAt  time.Time `json:"occurred_at"`
	ActorID     string    `json:"actor_id"`
	RecipientID string    `json:"recipient_id,omitempty"`
	LoanID      string    `json:"loan_id,omitempty"`
	ItemID      string    `json:"item_id,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	StartDate   string    `json:"start_date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	TotalAmount float64   `json:"total_amount,omitempty"`
}

// Line renders the event as one activity-log line.
func (e Event) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | actor=%s", e.OccurredAt.UTC().Format(time.RFC3339), e.Type, e.ActorID)
	kv := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, " | %s=%s", k, v)
		}
	}
	kv("recipient", e.RecipientID)
	kv("loan", e.LoanID)
	kv("item", e.ItemID)
	kv("message", e.MessageID)
	kv("status", e.Status)
	if e.StartDate != "" {
		fmt.Fprintf(&b, " | period=%s..%s", e.StartDate, e.EndDate)
	}
	if e.TotalAmount > 0 {
		fmt.Fprintf(&b, " | total=%.2f", e.TotalAmount)
	}
	b.WriteByte('\n')
	return b.String()
}
