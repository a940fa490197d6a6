package ecs

import "slices"

// Removable is implemented by every component store so the Registry can drop
// an entity's data from all stores when the entity is destroyed.
type Removable interface {
	Remove(id EntityID)
}

// Store is a typed component store keyed by entity. T is usually a pointer or
// an interface so components are mutated in place.
type Store[T any] struct {
	data    map[EntityID]T
	release func(EntityID, T)
}

// NewStore creates a store. release, if non-nil, runs whenever a component
// leaves the store (replaced, removed or its entity destroyed).
func NewStore[T any](release func(EntityID, T)) *Store[T] {
	return &Store[T]{
		data:    make(map[EntityID]T, 64),
		release: release,
	}
}

// Set attaches c to id, releasing any component it replaces.
func (s *Store[T]) Set(id EntityID, c T) {
	if old, ok := s.data[id]; ok && s.release != nil {
		s.release(id, old)
	}
	s.data[id] = c
}

func (s *Store[T]) Get(id EntityID) (T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *Store[T]) Remove(id EntityID) {
	c, ok := s.data[id]
	if !ok {
		return
	}
	delete(s.data, id)
	if s.release != nil {
		s.release(id, c)
	}
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// IDs returns the entities holding a component, ascending.
func (s *Store[T]) IDs() []EntityID {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Each visits components in ascending entity order so frame updates are
// reproducible run to run.
func (s *Store[T]) Each(fn func(EntityID, T)) {
	for _, id := range s.IDs() {
		if c, ok := s.data[id]; ok {
			fn(id, c)
		}
	}
}

// Each2 visits entities holding both A and B, ascending, driving iteration
// from the smaller store.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(EntityID, A, B)) {
	if sa.Len() <= sb.Len() {
		for _, id := range sa.IDs() {
			a, okA := sa.data[id]
			b, okB := sb.data[id]
			if okA && okB {
				fn(id, a, b)
			}
		}
		return
	}
	for _, id := range sb.IDs() {
		b, okB := sb.data[id]
		a, okA := sa.data[id]
		if okA && okB {
			fn(id, a, b)
		}
	}
}
