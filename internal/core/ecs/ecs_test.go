package ecs

import "testing"

func TestEntityPoolRecyclesWithNewGeneration(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	if a.IsZero() {
		t.Fatal("first entity must not be the zero ID")
	}
	if !p.Destroy(a) {
		t.Fatal("Destroy returned false for live entity")
	}
	if p.Alive(a) {
		t.Fatal("destroyed entity still alive")
	}
	b := p.Create()
	if b.Index() != a.Index() || b.Generation() != a.Generation()+1 {
		t.Fatalf("recycled id = %d/%d, want slot %d gen %d", b.Index(), b.Generation(), a.Index(), a.Generation()+1)
	}
	if p.Destroy(a) {
		t.Fatal("stale id destroyed a recycled slot")
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
}

func TestWorldDestroyReleasesComponents(t *testing.T) {
	w := NewWorld()
	var released []EntityID
	names := NewStore(func(id EntityID, _ string) { released = append(released, id) })
	w.Registry().Register(names)

	e1, e2 := w.CreateEntity(), w.CreateEntity()
	names.Set(e1, "one")
	names.Set(e2, "two")

	w.MarkForDestruction(e2)
	w.MarkForDestruction(e2)
	if got := w.FlushDestroyQueue(); len(got) != 1 || got[0] != e2 {
		t.Fatalf("flushed %v, want [%d]", got, e2)
	}
	if names.Has(e2) || !names.Has(e1) {
		t.Fatal("wrong components removed")
	}
	if len(released) != 1 || released[0] != e2 {
		t.Fatalf("released = %v, want [%d]", released, e2)
	}

	names.Set(e1, "uno")
	if len(released) != 2 || released[1] != e1 {
		t.Fatalf("replacing a component should release the old one, released = %v", released)
	}

	w.Clear()
	if w.Len() != 0 || names.Len() != 0 {
		t.Fatalf("Clear left %d entities, %d components", w.Len(), names.Len())
	}
}

func TestClearSkipsFreedSlots(t *testing.T) {
	w := NewWorld()
	a, b := w.CreateEntity(), w.CreateEntity()
	if !w.Destroy(a) {
		t.Fatal("Destroy returned false for live entity")
	}
	if w.Destroy(a) {
		t.Fatal("second Destroy freed the slot again")
	}

	w.Clear()
	if w.Len() != 0 || w.Alive(b) {
		t.Fatalf("after Clear: Len = %d, b alive = %v", w.Len(), w.Alive(b))
	}

	seen := make(map[EntityID]bool)
	for i := 0; i < 3; i++ {
		id := w.CreateEntity()
		if seen[id] {
			t.Fatalf("id %d handed out twice", id)
		}
		seen[id] = true
	}
	if w.Len() != 3 {
		t.Fatalf("Len = %d, want 3", w.Len())
	}
}

func TestEach2VisitsIntersectionInOrder(t *testing.T) {
	w := NewWorld()
	a := NewStore[int](nil)
	b := NewStore[string](nil)
	var ids []EntityID
	for i := 0; i < 5; i++ {
		id := w.CreateEntity()
		ids = append(ids, id)
		a.Set(id, i)
		if i%2 == 0 {
			b.Set(id, "even")
		}
	}

	var got []int
	Each2(a, b, func(_ EntityID, n int, _ string) { got = append(got, n) })
	want := []int{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("Each2 = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Each2 = %v, want %v", got, want)
		}
	}
}
