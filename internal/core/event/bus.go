package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted during frame N are
// delivered during frame N+1, when the events module calls SwapBuffers and
// DispatchAll at the start of the frame.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	order    []reflect.Type // first-emit order, keeps dispatch deterministic
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]any),
	}
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event for the next frame.
func Emit[T any](b *Bus, event T) {
	t := keyOf[T]()
	if _, seen := b.back[t]; !seen {
		if _, known := b.front[t]; !known {
			b.order = append(b.order, t)
		}
	}
	b.back[t] = append(b.back[t], event)
}

// Subscribe registers a handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := keyOf[T]()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SwapBuffers makes last frame's events readable and empties the back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers front-buffer events to their handlers, event types in
// first-emitted order and events of one type in emission order.
func (b *Bus) DispatchAll() int {
	n := 0
	for _, t := range b.order {
		events := b.front[t]
		if len(events) == 0 {
			continue
		}
		b.mu.Lock()
		handlers := b.handlers[t]
		b.mu.Unlock()
		for _, ev := range events {
			for _, h := range handlers {
				callHandler(h, ev)
			}
			n++
		}
	}
	return n
}

// Pending returns the number of events waiting for the next swap.
func (b *Bus) Pending() int {
	n := 0
	for _, events := range b.back {
		n += len(events)
	}
	return n
}

func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
