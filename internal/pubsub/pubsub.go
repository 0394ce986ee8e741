// Package pubsub is a small in-process fan-out broker.  It is constructed
// explicitly and passed to whoever publishes or subscribes - there is no
// package-level state.
//
// Delivery is fire-and-forget: a publish reaches exactly the subscribers
// registered at that moment, in publish order, and never blocks the
// publisher.  Nothing is persisted or replayed; a late subscriber misses
// earlier events.
package pubsub

import (
	"context"
	"sync"
)

type Broker[T any] struct {
	mu   sync.Mutex
	subs map[*subscriber[T]]struct{}
}

// subscriber buffers published values so a slow consumer cannot stall the
// publisher.  The queue is drained into out by the goroutine started in
// Subscribe.
type subscriber[T any] struct {
	mu    sync.Mutex
	queue []T
	wake  chan struct{} // buffered(1): signals the drain loop
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{subs: make(map[*subscriber[T]]struct{})}
}

// Publish delivers v to every currently registered subscriber.
func (b *Broker[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		sub.mu.Lock()
		sub.queue = append(sub.queue, v)
		sub.mu.Unlock()
		select {
		case sub.wake <- struct{}{}:
		default: // drain loop already signalled
		}
	}
}

// Subscribe registers a live stream of future events.  The returned channel
// is closed, and the subscriber unregistered, when ctx is cancelled - that is
// the only way a subscription ends.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan T {
	sub := &subscriber[T]{wake: make(chan struct{}, 1)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	out := make(chan T)
	go func() {
		defer close(out)
		defer b.remove(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.wake:
			}
			for {
				sub.mu.Lock()
				if len(sub.queue) == 0 {
					sub.mu.Unlock()
					break
				}
				v := sub.queue[0]
				sub.queue = sub.queue[1:]
				sub.mu.Unlock()
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Subscribers reports how many subscriptions are currently registered.
func (b *Broker[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker[T]) remove(sub *subscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}
