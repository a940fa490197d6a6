package ecs

// World owns the entity pool, the component store registry and a deferred
// destruction queue flushed at the end of each scene update.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 32),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Len returns the number of live entities.
func (w *World) Len() int { return w.pool.Len() }

// MarkForDestruction queues id for the next FlushDestroyQueue.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// Destroy removes id's components from every store and frees it now.
func (w *World) Destroy(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	w.registry.RemoveAll(id)
	return w.pool.Destroy(id)
}

// FlushDestroyQueue destroys every queued entity and returns the ones that
// were still alive, in queue order.
func (w *World) FlushDestroyQueue() []EntityID {
	var destroyed []EntityID
	for _, id := range w.destroyQueue {
		if w.Destroy(id) {
			destroyed = append(destroyed, id)
		}
	}
	w.destroyQueue = w.destroyQueue[:0]
	return destroyed
}

// Clear destroys every live entity.
func (w *World) Clear() {
	var live []EntityID
	w.pool.Each(func(id EntityID) { live = append(live, id) })
	for _, id := range live {
		w.Destroy(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}
