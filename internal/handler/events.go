package handler

import (
	"context"

	"github.com/emprestaae/empresta-api/internal/queue"
)

// Events receives domain events.  Implementations must not block the
// request on broker trouble.
type Events interface {
	Publish(ctx context.Context, ev queue.Event)
}

type noEvents struct{}

func (noEvents) Publish(context.Context, queue.Event) {}

func eventsOrNop(e Events) Events {
	if e == nil {
		return noEvents{}
	}
	return e
}
