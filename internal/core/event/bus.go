package event

import (
	"reflect"
	"sync"
)

// Bus queues events emitted during one tick and delivers them during the
// next. EventDispatchSystem calls SwapBuffers then DispatchAll at the start
// of every tick; events keep their emission order.
type Bus struct {
	mu         sync.Mutex // guards subs while subscribing
	front      []any
	back       []any
	subs       map[reflect.Type][]func(any)
	dispatched uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[reflect.Type][]func(any))}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues ev for delivery after the next swap.
func Emit[T any](b *Bus, ev T) {
	b.back = append(b.back, ev)
}

// Subscribe adds fn as a handler for events of type T. Handlers run in
// subscription order.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.subs[t] = append(b.subs[t], func(ev any) { fn(ev.(T)) })
}

// Subscribers returns the number of handlers registered for T.
func Subscribers[T any](b *Bus) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[typeOf[T]()])
}

// SwapBuffers makes last tick's events current and starts an empty queue.
func (b *Bus) SwapBuffers() {
	clear(b.front)
	b.front, b.back = b.back, b.front[:0]
}

// Pending returns the number of events waiting for the next swap.
func (b *Bus) Pending() int {
	return len(b.back)
}

// Dispatched returns how many events have been delivered since creation,
// counting events that had no subscriber.
func (b *Bus) Dispatched() uint64 {
	return b.dispatched
}

// DispatchAll delivers the current events. Events a handler emits are queued
// for the following tick.
func (b *Bus) DispatchAll() {
	for _, ev := range b.front {
		for _, h := range b.subs[reflect.TypeOf(ev)] {
			h(ev)
		}
		b.dispatched++
	}
}
