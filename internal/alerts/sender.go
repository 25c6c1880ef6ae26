// Package alerts decides whether a probe outcome warrants a delivered
// notification and hands accepted alerts off to channel-specific senders.
package alerts

import (
	"context"

	"github.com/bissquit/apimonitor/internal/domain"
)

// Sender delivers one already-persisted Alert to its destination. An error
// from a sink is not retried: the Engine records the failure on the Alert
// row and moves on.
type Sender interface {
	Channel() domain.AlertChannel
	Send(ctx context.Context, alert *domain.Alert) error
}

// Dispatcher routes an Alert to the Sender registered for its channel.
type Dispatcher struct {
	senders map[domain.AlertChannel]Sender
}

// NewDispatcher builds a Dispatcher from zero or more Senders. The core
// always ships an EMAIL sender; SLACK/WEBHOOK are additive and only present
// when the configuration provider enables them for the caller's plan.
func NewDispatcher(senders ...Sender) *Dispatcher {
	m := make(map[domain.AlertChannel]Sender, len(senders))
	for _, s := range senders {
		m[s.Channel()] = s
	}
	return &Dispatcher{senders: m}
}

// Deliver sends alert through the sender registered for its channel. It
// returns an error describing why delivery failed, including when no
// sender is registered for the channel at all.
func (d *Dispatcher) Deliver(ctx context.Context, alert *domain.Alert) error {
	sender, ok := d.senders[alert.Channel]
	if !ok {
		return &domain.DeliveryError{Channel: string(alert.Channel), Reason: "no sender registered"}
	}
	if err := sender.Send(ctx, alert); err != nil {
		return &domain.DeliveryError{Channel: string(alert.Channel), Reason: "send failed", Err: err}
	}
	return nil
}
