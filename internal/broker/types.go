// Package broker provides topic-based pub/sub for workflow run events.
// The local implementation serves a single process; the NATS one fans
// events out across processes.
package broker

import (
	"context"

	"github.com/HuyNguyen260398/bob/events"
)

// Broker hands out topics by id. Topics are created on first use.
type Broker interface {
	Topic(context.Context, string) Topic
}

// Topic is an ordered event stream for one workflow run. Events arrive
// in publish order; the stream ends when the publisher unsubscribes all
// consumers or the subscriber context is done.
type Topic interface {
	Publish(context.Context, events.Event) error
	Subscribe(context.Context) (<-chan events.Event, Subscription, error)
}

// Subscription identifies one consumer of a topic. Unsubscribe is
// idempotent and closes the consumer's channel after any buffered
// events drain.
type Subscription interface {
	ID() string
	Unsubscribe()
}
