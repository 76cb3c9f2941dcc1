// Package progress tracks live subscriber channels and delivers best-effort messages to them.
//
// Delivery carries no guarantee: a failed or timed-out send is logged and skipped, never
// retried or queued, and never affects the analysis that produced the message.
package progress

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/spendlens/internal/events"
	"github.com/aristath/spendlens/pkg/logger"
)

// DefaultSendTimeout bounds a single send when the registry is built without one.
const DefaultSendTimeout = 2 * time.Second

// ErrSubscriberClosed is returned by subscribers that can no longer accept messages.
var ErrSubscriberClosed = errors.New("subscriber closed")

// Subscriber is one live channel endpoint. Implementations are expected to be pointer types.
type Subscriber interface {
	// ID uniquely identifies the subscriber within a registry
	ID() string
	// Send delivers one message, honouring ctx cancellation
	Send(ctx context.Context, msg any) error
	// Closed reports whether the underlying channel has gone away
	Closed() bool
	// Close shuts the channel down with a human-readable reason
	Close(reason string) error
}

// Registry is the set of currently open subscribers. All mutations and snapshots happen
// under one mutex; sends happen outside it.
type Registry struct {
	subscribers map[string]Subscriber
	mu          sync.Mutex
	sendTimeout time.Duration
	log         zerolog.Logger
}

// NewRegistry creates an empty registry. A non-positive sendTimeout selects
// DefaultSendTimeout.
func NewRegistry(sendTimeout time.Duration, log zerolog.Logger) *Registry {
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Registry{
		subscribers: make(map[string]Subscriber),
		sendTimeout: sendTimeout,
		log:         logger.Component(log, "progress_registry"),
	}
}

// SendTimeout returns the bound applied to each individual send.
func (r *Registry) SendTimeout() time.Duration {
	return r.sendTimeout
}

// Register adds a subscriber. A subscriber with the same ID is replaced.
func (r *Registry) Register(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers[sub.ID()] = sub
	r.log.Debug().Str("subscriber", sub.ID()).Int("count", len(r.subscribers)).Msg("Subscriber registered")
}

// Unregister removes a subscriber. Removing an unknown subscriber is a no-op.
func (r *Registry) Unregister(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remove(sub)
}

// remove deletes sub if it is still the registered instance for its ID.
// Must be called with lock held.
func (r *Registry) remove(sub Subscriber) {
	if current, ok := r.subscribers[sub.ID()]; ok && current == sub {
		delete(r.subscribers, sub.ID())
		r.log.Debug().Str("subscriber", sub.ID()).Int("count", len(r.subscribers)).Msg("Subscriber unregistered")
	}
}

// Snapshot returns the current subscribers ordered by ID.
func (r *Registry) Snapshot() []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := make([]Subscriber, 0, len(r.subscribers))
	for _, sub := range r.subscribers {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].ID() < subs[j].ID()
	})
	return subs
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.subscribers)
}

// Contains reports whether a subscriber with the given ID is registered.
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.subscribers[id]
	return ok
}

// Broadcast sends msg to every registered subscriber and returns how many accepted it.
// Closed subscribers are skipped and pruned; send failures are logged and skipped.
func (r *Registry) Broadcast(ctx context.Context, msg events.EventData) int {
	log := r.log.With().Str("event", string(msg.EventType())).Logger()
	delivered := 0
	for _, sub := range r.Snapshot() {
		if sub.Closed() {
			log.Debug().Str("subscriber", sub.ID()).Msg("Skipping closed subscriber")
			r.Unregister(sub)
			continue
		}
		if err := r.send(ctx, sub, msg); err != nil {
			log.Warn().Err(err).Str("subscriber", sub.ID()).Msg("Broadcast send failed")
			if sub.Closed() {
				r.Unregister(sub)
			}
			continue
		}
		delivered++
	}
	log.Debug().Int("delivered", delivered).Msg("Broadcast sent")
	return delivered
}

// send delivers msg to one subscriber within the registry send timeout.
func (r *Registry) send(ctx context.Context, sub Subscriber, msg any) error {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return sub.Send(sendCtx, msg)
}

// CloseAll closes every registered subscriber and empties the registry. It stops early if
// ctx is done.
func (r *Registry) CloseAll(ctx context.Context, reason string) {
	r.mu.Lock()
	subs := make([]Subscriber, 0, len(r.subscribers))
	for _, sub := range r.subscribers {
		subs = append(subs, sub)
	}
	r.subscribers = make(map[string]Subscriber)
	r.mu.Unlock()

	for _, sub := range subs {
		if ctx.Err() != nil {
			r.log.Warn().Int("remaining", len(subs)).Msg("Shutdown deadline reached while closing subscribers")
			return
		}
		if err := sub.Close(reason); err != nil {
			r.log.Debug().Err(err).Str("subscriber", sub.ID()).Msg("Error closing subscriber")
		}
	}
	r.log.Info().Int("closed", len(subs)).Msg("Closed all subscribers")
}
