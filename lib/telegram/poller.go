package telegram

import (
	"context"
	"log/slog"
	"time"
)

type Handler interface {
	HandleUpdate(ctx context.Context, update Update)
}

// Poller drives the long-poll loop against the Bot API.
//
// Updates are dispatched strictly in order, one at a time: the next
// update is not fetched until the handler has returned. Per-user state
// downstream (quota counters, sessions) relies on this single-writer
// behavior; a retried delivery for the same user can therefore never
// overlap with the original.
type Poller struct {
	client  *Client
	handler Handler
}

func NewPoller(client *Client, handler Handler) *Poller {
	return &Poller{client: client, handler: handler}
}

func (p *Poller) Run(ctx context.Context) {
	var offset int64

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := p.client.GetUpdates(ctx, offset, 50)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to fetch updates", "err", err)
			select {
			case <-time.After(time.Second * 3):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, update := range updates {
			p.handler.HandleUpdate(ctx, update)
			if update.UpdateId >= offset {
				offset = update.UpdateId + 1
			}
		}
	}
}
