package sse

import (
	"context"
	"slices"
	"sync"
)

/*
Registry fans events out to the live subscriptions of each task. Tasks are
independent: each has its own topic lock, and topics are held in a sync.Map,
so publishing to one task never waits on another.
*/
type Registry[T any] struct {
	topics     sync.Map // task id -> *topic[T]
	terminal   func(T) bool
	maxPending int
}

type Option[T any] func(*Registry[T])

/*
WithMaxPending bounds the number of undelivered events a subscription may
hold. A subscription that would exceed it is disconnected and reports
Overflowed. Zero, the default, means unbounded.
*/
func WithMaxPending[T any](n int) Option[T] {
	return func(registry *Registry[T]) { registry.maxPending = n }
}

/*
NewRegistry creates a registry. Once terminal reports true for an event
delivered to a subscription, that subscription accepts nothing further.
*/
func NewRegistry[T any](terminal func(T) bool, opts ...Option[T]) *Registry[T] {
	registry := &Registry[T]{terminal: terminal}

	for _, opt := range opts {
		opt(registry)
	}

	return registry
}

type topic[T any] struct {
	mu   sync.Mutex
	subs []*Subscription[T]
	dead bool
}

/*
Subscribe registers a new subscription for taskID. It is valid for a task
without prior subscribers.
*/
func (registry *Registry[T]) Subscribe(taskID string) *Subscription[T] {
	sub := &Subscription[T]{
		taskID:     taskID,
		ready:      make(chan struct{}, 1),
		maxPending: registry.maxPending,
	}

	for {
		value, _ := registry.topics.LoadOrStore(taskID, &topic[T]{})
		t := value.(*topic[T])

		t.mu.Lock()

		// Lost a race with the last Unsubscribe of this topic; take a fresh one.
		if t.dead {
			t.mu.Unlock()
			continue
		}

		t.subs = append(t.subs, sub)
		t.mu.Unlock()

		return sub
	}
}

/*
Unsubscribe removes sub, closes it and drops anything still queued.
Calling it more than once is safe.
*/
func (registry *Registry[T]) Unsubscribe(sub *Subscription[T]) {
	sub.close()

	value, ok := registry.topics.Load(sub.taskID)

	if !ok {
		return
	}

	t := value.(*topic[T])

	t.mu.Lock()
	defer t.mu.Unlock()

	before := len(t.subs)
	t.subs = slices.DeleteFunc(t.subs, func(s *Subscription[T]) bool { return s == sub })

	if len(t.subs) < before {
		registry.prune(sub.taskID, t)
	}
}

// prune drops an empty topic. The caller holds t.mu.
func (registry *Registry[T]) prune(taskID string, t *topic[T]) {
	if len(t.subs) == 0 && !t.dead {
		t.dead = true
		registry.topics.CompareAndDelete(taskID, t)
	}
}

/*
Publish queues event on every subscription of taskID in registration order
and returns how many accepted it. It never blocks on a consumer. Closed
subscriptions leave the topic; their consumers still drain what was queued.
*/
func (registry *Registry[T]) Publish(taskID string, event T) int {
	value, ok := registry.topics.Load(taskID)

	if !ok {
		return 0
	}

	t := value.(*topic[T])
	terminal := registry.terminal != nil && registry.terminal(event)
	delivered := 0

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, sub := range t.subs {
		if sub.offer(event, terminal) {
			delivered++
		}
	}

	t.subs = slices.DeleteFunc(t.subs, (*Subscription[T]).isClosed)
	registry.prune(taskID, t)

	return delivered
}

// Len reports the number of subscriptions registered for taskID.
func (registry *Registry[T]) Len(taskID string) int {
	value, ok := registry.topics.Load(taskID)

	if !ok {
		return 0
	}

	t := value.(*topic[T])

	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.subs)
}

/*
Subscription is the consuming end of one registration.
*/
type Subscription[T any] struct {
	taskID     string
	mu         sync.Mutex
	queue      []T
	ready      chan struct{}
	closed     bool
	overflowed bool
	maxPending int
}

func (sub *Subscription[T]) TaskID() string {
	return sub.taskID
}

/*
Next blocks until an event is available. It returns false once the
subscription is closed and drained, or when ctx is done.
*/
func (sub *Subscription[T]) Next(ctx context.Context) (T, bool) {
	var zero T

	for {
		sub.mu.Lock()

		if len(sub.queue) > 0 {
			event := sub.queue[0]
			sub.queue[0] = zero
			sub.queue = sub.queue[1:]
			sub.mu.Unlock()

			return event, true
		}

		if sub.closed {
			sub.mu.Unlock()
			return zero, false
		}

		sub.mu.Unlock()

		select {
		case <-sub.ready:
		case <-ctx.Done():
			return zero, false
		}
	}
}

/*
Overflowed reports whether the subscription was disconnected for exceeding
its pending limit.
*/
func (sub *Subscription[T]) Overflowed() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	return sub.overflowed
}

func (sub *Subscription[T]) isClosed() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	return sub.closed
}

func (sub *Subscription[T]) offer(event T, terminal bool) bool {
	sub.mu.Lock()

	if sub.closed {
		sub.mu.Unlock()
		return false
	}

	if sub.maxPending > 0 && len(sub.queue) >= sub.maxPending {
		sub.overflowed = true
		sub.closed = true
		sub.mu.Unlock()
		sub.signal()

		return false
	}

	sub.queue = append(sub.queue, event)
	sub.closed = terminal
	sub.mu.Unlock()
	sub.signal()

	return true
}

func (sub *Subscription[T]) close() {
	sub.mu.Lock()
	sub.closed = true
	sub.queue = nil
	sub.mu.Unlock()
	sub.signal()
}

func (sub *Subscription[T]) signal() {
	select {
	case sub.ready <- struct{}{}:
	default:
	}
}
