// Package actionbus broadcasts row-action results to the screens that render them.
package actionbus

import (
	"sync"

	"github.com/charmbracelet/log"
)

// subscriber stores one registered handler.
type subscriber[T any] struct {
	id      uint64
	handler func(T)
}

// Bus delivers published events to every current subscriber.
type Bus[T any] struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers []subscriber[T]
	logger      *log.Logger
}

// New constructs a bus; a nil logger selects the charm default logger.
func New[T any](logger *log.Logger) *Bus[T] {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus[T]{logger: logger}
}

// Subscribe registers one handler and returns the func that removes it.
// Calling the returned func more than once is a no-op.
func (b *Bus[T]) Subscribe(handler func(T)) func() {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subscribers = append(b.subscribers, subscriber[T]{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

// unsubscribe removes one handler by id.
func (b *Bus[T]) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if sub.id == id {
			b.subscribers = append(b.subscribers[:i:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Publish delivers evt synchronously to a snapshot of current subscribers.
// A panicking handler is logged and does not stop delivery to the rest.
func (b *Bus[T]) Publish(evt T) {
	b.mu.RLock()
	subs := append([]subscriber[T](nil), b.subscribers...)
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.logger.Debug("action bus publish without subscribers")
		return
	}
	for _, sub := range subs {
		b.deliver(sub, evt)
	}
}

// deliver runs one handler with panic recovery.
func (b *Bus[T]) deliver(sub subscriber[T], evt T) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("action bus handler panicked", "subscriber", sub.id, "panic", r)
		}
	}()
	sub.handler(evt)
}

// Len reports the number of current subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Clear removes every subscriber.
func (b *Bus[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = nil
}
