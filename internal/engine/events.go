package engine

import (
	"time"

	"github.com/acidgo/acid/internal/core/event"
)

// Events is the Always-stage module that publishes last frame's events.
type Events struct {
	bus        *event.Bus
	dispatched uint64
}

func NewEvents(bus *event.Bus) *Events {
	return &Events{bus: bus}
}

func (m *Events) Update(time.Duration) error {
	m.bus.SwapBuffers()
	m.dispatched += uint64(m.bus.DispatchAll())
	return nil
}

// Dispatched returns the number of events delivered so far.
func (m *Events) Dispatched() uint64 { return m.dispatched }
